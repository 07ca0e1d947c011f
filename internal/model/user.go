// Package model defines domain entities for the application.
package model

import (
	"math"
	"strings"
	"time"
)

// Plan is the subscription tier chosen at signup.
type Plan string

const (
	PlanStarter Plan = "starter"
	PlanGrowth  Plan = "growth"
	PlanPro     Plan = "pro"
)

// DefaultTrialDays is applied when a registration omits a trial length.
const DefaultTrialDays = 7

// ParsePlan maps free-form input to a Plan. Unknown values become starter.
func ParsePlan(s string) Plan {
	switch Plan(strings.ToLower(strings.TrimSpace(s))) {
	case PlanGrowth:
		return PlanGrowth
	case PlanPro:
		return PlanPro
	default:
		return PlanStarter
	}
}

// User is a registered account owner. Timestamps are unix milliseconds.
type User struct {
	Email      string  `json:"email"`
	Name       string  `json:"name"`
	Plan       Plan    `json:"plan"`
	TrialStart int64   `json:"trialStart"`
	TrialDays  float64 `json:"trialDays"`
	CreatedAt  int64   `json:"createdAt"`
}

const dayMillis = 24 * 60 * 60 * 1000

// TrialEndMillis returns the unix millisecond at which the trial closes.
// Trials too long to represent end at math.MaxInt64.
func (u *User) TrialEndMillis() int64 {
	end := float64(u.TrialStart) + u.TrialDays*dayMillis
	switch {
	case end >= math.MaxInt64:
		return math.MaxInt64
	case end <= math.MinInt64:
		return math.MinInt64
	default:
		return int64(end)
	}
}

// TrialEndsAt returns the instant the trial window closes.
func (u *User) TrialEndsAt() time.Time {
	return time.UnixMilli(u.TrialEndMillis())
}

// TrialExpired reports whether now is at or past the end of the trial.
func (u *User) TrialExpired(now time.Time) bool {
	return now.UnixMilli() >= u.TrialEndMillis()
}
