package models

import (
	"time"
)

// Account represents an end user able to authorize Apps.
type Account struct {
	ID              string
	Name            string // unique login name
	Password        string // shared secret for signature checks, never transmitted
	OpenID          string // stable public identifier exposed to Apps
	RealName        string
	Nickname        string
	Gender          int
	Phone           string
	Available       bool
	TodayErrorCount int
	TotalErrorCount int
	LastErrorDate   time.Time // calendar date of the counter window
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ProfileComplete reports whether the account may authorize an App.
// Login requires a filled-in real name; the direct token grant does not.
func (a *Account) ProfileComplete() bool {
	return a.RealName != ""
}
