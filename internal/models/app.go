package models

import (
	"time"
)

// App represents a third-party application registered with the gateway.
// Apps are created and edited elsewhere; this core treats them as
// read-only except for the restriction policy check.
type App struct {
	ID          string
	Name        string
	Domain      string
	Key         string // shared secret used to authenticate code exchange
	IconURL     string
	OwnerID     string
	Deleted     bool
	Restriction RestrictionPolicy
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
