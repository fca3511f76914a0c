package model

import (
	"time"
)

const (
	ALERT_OVER_SHIFT = "Time entry open longer than the maximum shift"
)

// Status is the per-user clocked-in flag.
type Status struct {
	ClockedIn bool `bson:"clocked_in" firestore:"clockedIn" json:"clockedIn"`
}

// TimeEntry is one clock-in record. ClockOut stays nil until the entry is closed.
type TimeEntry struct {
	ID       string     `bson:"-" firestore:"-" json:"id"`
	UserID   string     `bson:"user_id" firestore:"userId" json:"userId"`
	ClockIn  *time.Time `bson:"clock_in" firestore:"clockInTime" json:"clockInTime"`
	ClockOut *time.Time `bson:"clock_out" firestore:"clockOutTime" json:"clockOutTime"`
}

// Open reports whether the entry has no clock-out yet.
func (e TimeEntry) Open() bool {
	return e.ClockOut == nil
}

type TimeOffBank struct {
	AccruedHours float64 `bson:"accrued_hours" firestore:"accruedHours" json:"accruedHours"`
	UsedHours    float64 `bson:"used_hours" firestore:"usedHours" json:"usedHours"`
}

// Profile is written once, when an account registers.
type Profile struct {
	Email     string    `bson:"email" firestore:"email" json:"email"`
	CreatedAt time.Time `bson:"created_at" firestore:"createdAt" json:"createdAt"`
}

// Alert is a forgotten clock-out found by the alert job.
type Alert struct {
	Entry   TimeEntry
	Email   string
	OpenFor time.Duration
	Message string
}
