package domain

import (
	"time"
)

// ChargerStatus represents the operational state of a charging point
type ChargerStatus string

const (
	ChargerStatusOnline      ChargerStatus = "ONLINE"
	ChargerStatusOffline     ChargerStatus = "OFFLINE"
	ChargerStatusMaintenance ChargerStatus = "MAINTENANCE"
)

// utilizationStep is how many percentage points a verified session adds
const utilizationStep = 5.0

// Charger represents a physical charging point owned by a host
type Charger struct {
	ID            string        `json:"id" gorm:"primaryKey"`
	HostID        string        `json:"host_id" gorm:"index"`
	Name          string        `json:"name"`
	Address       string        `json:"address"`
	PowerKW       float64       `json:"power_kw"`
	PricePerHour  float64       `json:"price_per_hour"`
	Status        ChargerStatus `json:"status" gorm:"index"`
	TotalSessions int64         `json:"total_sessions"`
	Utilization   float64       `json:"utilization"` // 0-100
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// IsAvailableForSession reports whether a session may be started or an OTP
// issued against this charger. The switch is exhaustive over ChargerStatus so
// a new status forces a policy decision here instead of defaulting silently.
func (c *Charger) IsAvailableForSession() bool {
	switch c.Status {
	case ChargerStatusOffline, ChargerStatusMaintenance:
		return false
	case ChargerStatusOnline:
		return true
	}
	return true
}

// RecordSessionStart applies the per-session counter mutations: bumps
// TotalSessions by exactly one, raises Utilization by a fixed step capped at
// 100, and forces the charger ONLINE. Must be called at most once per verified
// booking, inside the verification unit of work.
func (c *Charger) RecordSessionStart() {
	c.TotalSessions++
	c.Utilization += utilizationStep
	if c.Utilization > 100 {
		c.Utilization = 100
	}
	if c.Status != ChargerStatusOnline {
		c.Status = ChargerStatusOnline
	}
}
