// Package domain contains core business types and interfaces.
//
// This file defines the subscription plan catalog. Plans are static
// configuration loaded at process start; they are never persisted or
// mutated at runtime.
package domain

// PlanID identifies a subscription plan.
type PlanID string

const (
	PlanFree         PlanID = "FREE"
	PlanStandard     PlanID = "STANDARD"
	PlanProfessional PlanID = "PROFESSIONAL"
	PlanBusiness     PlanID = "BUSINESS"
	PlanEnterprise   PlanID = "ENTERPRISE"
)

// Valid reports whether the plan identifier is a known plan.
func (p PlanID) Valid() bool {
	_, ok := Plans[p]
	return ok
}

// UnlimitedMonthly is the sentinel value for PerMonth meaning "no monthly cap".
const UnlimitedMonthly = -1

// Plan describes the quota limits and pricing of a subscription tier.
//
// PerDay of 0 means no daily cap. PerMonth of UnlimitedMonthly (-1) means no
// monthly cap. TotalLimit is a lifetime cap and is only meaningful for the
// free plan; 0 means no lifetime cap.
type Plan struct {
	ID                PlanID
	PerDay            int
	PerMonth          int
	TotalLimit        int
	PriceCentsMonthly int
	PriceCentsYearly  int
	Features          []string
}

// Plans is the static plan catalog.
var Plans = map[PlanID]Plan{
	PlanFree: {
		ID:         PlanFree,
		PerDay:     0,
		PerMonth:   UnlimitedMonthly,
		TotalLimit: 10,
		Features:   []string{"image_detection", "text_detection"},
	},
	PlanStandard: {
		ID:                PlanStandard,
		PerDay:            10,
		PerMonth:          100,
		PriceCentsMonthly: 990,
		PriceCentsYearly:  9900,
		Features:          []string{"image_detection", "text_detection", "history"},
	},
	PlanProfessional: {
		ID:                PlanProfessional,
		PerDay:            50,
		PerMonth:          1000,
		PriceCentsMonthly: 2990,
		PriceCentsYearly:  29900,
		Features:          []string{"image_detection", "video_detection", "text_detection", "history", "priority_support"},
	},
	PlanBusiness: {
		ID:                PlanBusiness,
		PerDay:            200,
		PerMonth:          5000,
		PriceCentsMonthly: 9990,
		PriceCentsYearly:  99900,
		Features:          []string{"image_detection", "video_detection", "text_detection", "history", "priority_support", "api_access"},
	},
	PlanEnterprise: {
		ID:       PlanEnterprise,
		PerDay:   0,
		PerMonth: UnlimitedMonthly,
		Features: []string{"image_detection", "video_detection", "text_detection", "history", "priority_support", "api_access", "sla"},
	},
}

// GetPlan returns the plan definition for an identifier, defaulting to the
// free plan for unknown identifiers.
func GetPlan(id PlanID) Plan {
	if plan, ok := Plans[id]; ok {
		return plan
	}
	return Plans[PlanFree]
}
