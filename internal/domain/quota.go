// Package domain contains core business types and interfaces.
//
// This file implements the quota gate: the decision function that permits or
// denies a new analysis based on plan limits and usage counters, including
// calendar rollover resets.
package domain

import "time"

// QuotaDenialReason identifies why a request was denied by the quota gate.
type QuotaDenialReason string

const (
	DenialDailyLimit     QuotaDenialReason = "DAILY_LIMIT"
	DenialMonthlyLimit   QuotaDenialReason = "MONTHLY_LIMIT"
	DenialFreeTotalLimit QuotaDenialReason = "FREE_TOTAL_LIMIT"
)

// freeTotalLimit is the lifetime analysis cap for free accounts.
//
// This is intentionally hardcoded rather than read from the plan catalog's
// TotalLimit field. The two values agree today but are not structurally
// linked; unifying them would be a behavior change for any deployment that
// edits the catalog.
const freeTotalLimit = 10

// UsageCounters tracks how many analyses a user has performed.
//
// Counters are only ever incremented by the post-analysis accounting step and
// reset by the quota gate on calendar rollover. The single exception is a
// manual admin adjustment.
type UsageCounters struct {
	UsedToday int
	UsedMonth int
	UsedTotal int
	LastReset time.Time
}

// QuotaDecision is the outcome of a quota gate evaluation.
//
// Counters holds the post-reset counter values; when DidReset is true the
// caller must persist them before (or atomically with) admitting the request.
type QuotaDecision struct {
	Permitted bool
	Reason    QuotaDenialReason
	Counters  UsageCounters
	DidReset  bool
}

// CheckQuota decides whether a user may start a new analysis at the given
// wall-clock time.
//
// Free-plan accounts are capped on lifetime use and their counters are never
// reset. All other plans get their daily counter reset on a calendar-day
// change and their monthly counter reset on a month change; the reset is
// applied before the limit comparison, so a request arriving just after
// midnight is checked against fresh counters.
func CheckQuota(plan Plan, counters UsageCounters, now time.Time) QuotaDecision {
	if plan.ID == PlanFree {
		if counters.UsedTotal >= freeTotalLimit {
			return QuotaDecision{Reason: DenialFreeTotalLimit, Counters: counters}
		}
		return QuotaDecision{Permitted: true, Counters: counters}
	}

	last := counters.LastReset
	newDay := now.Year() != last.Year() || now.YearDay() != last.YearDay()
	newMonth := now.Year() != last.Year() || now.Month() != last.Month()

	didReset := false
	if newDay {
		counters.UsedToday = 0
		didReset = true
	}
	if newMonth {
		counters.UsedMonth = 0
		didReset = true
	}
	if didReset {
		counters.LastReset = now
	}

	if plan.PerDay > 0 && counters.UsedToday >= plan.PerDay {
		return QuotaDecision{Reason: DenialDailyLimit, Counters: counters, DidReset: didReset}
	}
	if plan.PerMonth > 0 && counters.UsedMonth >= plan.PerMonth {
		return QuotaDecision{Reason: DenialMonthlyLimit, Counters: counters, DidReset: didReset}
	}

	return QuotaDecision{Permitted: true, Counters: counters, DidReset: didReset}
}

// QuotaUsage is the user-facing view of quota consumption, returned by the
// usage endpoint.
type QuotaUsage struct {
	Plan       PlanID `json:"plan"`
	UsedToday  int    `json:"used_today"`
	UsedMonth  int    `json:"used_month"`
	UsedTotal  int    `json:"used_total"`
	PerDay     int    `json:"per_day"`     // 0 = unlimited
	PerMonth   int    `json:"per_month"`   // -1 = unlimited
	TotalLimit int    `json:"total_limit"` // 0 = none
	Remaining  int    `json:"remaining_today"`
}

// BuildQuotaUsage computes the usage view for a plan and counter set.
func BuildQuotaUsage(plan Plan, counters UsageCounters) QuotaUsage {
	remaining := -1
	switch {
	case plan.ID == PlanFree:
		remaining = freeTotalLimit - counters.UsedTotal
	case plan.PerDay > 0:
		remaining = plan.PerDay - counters.UsedToday
	}
	if remaining < 0 && plan.ID != PlanEnterprise && plan.PerDay > 0 {
		remaining = 0
	}
	if plan.ID == PlanFree && remaining < 0 {
		remaining = 0
	}
	return QuotaUsage{
		Plan:       plan.ID,
		UsedToday:  counters.UsedToday,
		UsedMonth:  counters.UsedMonth,
		UsedTotal:  counters.UsedTotal,
		PerDay:     plan.PerDay,
		PerMonth:   plan.PerMonth,
		TotalLimit: plan.TotalLimit,
		Remaining:  remaining,
	}
}
