// Package ledger holds the time bank arithmetic: elapsed hours between a
// clock-in and a clock-out, and the accrued/used running totals.
package ledger

import (
	"errors"
	"math"
	"sort"
	"time"

	"github.com/huyquangvevo/vcs-timebank/internal/model"
)

const msPerHour = 1000 * 60 * 60

var (
	ErrInvalidHours        = errors.New("hours must be a number greater than zero")
	ErrInsufficientBalance = errors.New("not enough hours in the time bank")
)

// HoursBetween returns (out - in) in milliseconds divided by 3,600,000.
// A clock-out before the clock-in gives a negative value.
func HoursBetween(in, out time.Time) float64 {
	return float64(out.Sub(in).Milliseconds()) / msPerHour
}

// Accrue adds the elapsed hours of a closed entry to the accrued total.
func Accrue(bank model.TimeOffBank, in, out time.Time) model.TimeOffBank {
	bank.AccruedHours += HoursBetween(in, out)
	return bank
}

func Balance(bank model.TimeOffBank) float64 {
	return bank.AccruedHours - bank.UsedHours
}

// Use records hours of time off taken against the bank. Hours must be a
// finite positive number.
func Use(bank model.TimeOffBank, hours float64) (model.TimeOffBank, error) {
	if math.IsNaN(hours) || math.IsInf(hours, 0) || hours <= 0 {
		return bank, ErrInvalidHours
	}
	if hours > Balance(bank) {
		return bank, ErrInsufficientBalance
	}
	bank.UsedHours += hours
	return bank, nil
}

// SortNewestFirst orders entries by clock-in, most recent first. Entries
// without a clock-in go last.
func SortNewestFirst(entries []model.TimeEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i].ClockIn, entries[j].ClockIn
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		}
		return a.After(*b)
	})
}
