package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckQuota_FreeTotalLimit(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	plan := GetPlan(PlanFree)

	tests := []struct {
		name       string
		counters   UsageCounters
		wantAllow  bool
		wantReason QuotaDenialReason
	}{
		{"fresh account", UsageCounters{}, true, ""},
		{"nine used", UsageCounters{UsedTotal: 9}, true, ""},
		{"ten used", UsageCounters{UsedTotal: 10}, false, DenialFreeTotalLimit},
		{"over limit", UsageCounters{UsedTotal: 42}, false, DenialFreeTotalLimit},
		// Daily/monthly counters and lastReset are irrelevant on free
		{
			"stale counters ignored",
			UsageCounters{UsedToday: 999, UsedMonth: 999, UsedTotal: 10, LastReset: now.AddDate(0, -2, 0)},
			false, DenialFreeTotalLimit,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := CheckQuota(plan, tt.counters, now)
			assert.Equal(t, tt.wantAllow, d.Permitted)
			assert.Equal(t, tt.wantReason, d.Reason)
			// Free counters are never reset
			assert.False(t, d.DidReset)
			assert.Equal(t, tt.counters, d.Counters)
		})
	}
}

func TestCheckQuota_DailyRollover(t *testing.T) {
	plan := GetPlan(PlanStandard) // perDay=10, perMonth=100
	now := time.Date(2025, 6, 15, 0, 5, 0, 0, time.UTC)
	yesterday := now.AddDate(0, 0, -1)

	// Daily limit hit yesterday: the reset must happen before the check, so
	// the request is permitted.
	d := CheckQuota(plan, UsageCounters{UsedToday: 10, UsedMonth: 50, LastReset: yesterday}, now)
	require.True(t, d.Permitted)
	assert.True(t, d.DidReset)
	assert.Equal(t, 0, d.Counters.UsedToday)
	assert.Equal(t, 50, d.Counters.UsedMonth, "monthly counter survives a day rollover")
	assert.Equal(t, now, d.Counters.LastReset)
}

func TestCheckQuota_MonthRollover(t *testing.T) {
	plan := GetPlan(PlanStandard)
	now := time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)
	lastMonth := time.Date(2025, 6, 30, 23, 0, 0, 0, time.UTC)

	d := CheckQuota(plan, UsageCounters{UsedToday: 10, UsedMonth: 100, LastReset: lastMonth}, now)
	require.True(t, d.Permitted)
	assert.True(t, d.DidReset)
	assert.Equal(t, 0, d.Counters.UsedToday)
	assert.Equal(t, 0, d.Counters.UsedMonth)
}

func TestCheckQuota_YearBoundary(t *testing.T) {
	// Dec 31 -> Jan 1 is both a new day and a new month even though the
	// month number wraps around.
	plan := GetPlan(PlanStandard)
	now := time.Date(2026, 1, 1, 0, 1, 0, 0, time.UTC)
	dec := time.Date(2025, 12, 31, 18, 0, 0, 0, time.UTC)

	d := CheckQuota(plan, UsageCounters{UsedToday: 10, UsedMonth: 100, LastReset: dec}, now)
	require.True(t, d.Permitted)
	assert.Equal(t, 0, d.Counters.UsedToday)
	assert.Equal(t, 0, d.Counters.UsedMonth)
}

func TestCheckQuota_Denials(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	sameDay := now.Add(-2 * time.Hour)

	tests := []struct {
		name       string
		plan       PlanID
		counters   UsageCounters
		wantAllow  bool
		wantReason QuotaDenialReason
	}{
		{"standard under limits", PlanStandard, UsageCounters{UsedToday: 9, UsedMonth: 99, LastReset: sameDay}, true, ""},
		{"standard daily hit", PlanStandard, UsageCounters{UsedToday: 10, UsedMonth: 50, LastReset: sameDay}, false, DenialDailyLimit},
		{"standard monthly hit", PlanStandard, UsageCounters{UsedToday: 3, UsedMonth: 100, LastReset: sameDay}, false, DenialMonthlyLimit},
		// Daily limit is checked before monthly
		{"both hit reports daily", PlanStandard, UsageCounters{UsedToday: 10, UsedMonth: 100, LastReset: sameDay}, false, DenialDailyLimit},
		// Enterprise has no caps at all
		{"enterprise unlimited", PlanEnterprise, UsageCounters{UsedToday: 100000, UsedMonth: 100000, LastReset: sameDay}, true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := CheckQuota(GetPlan(tt.plan), tt.counters, now)
			assert.Equal(t, tt.wantAllow, d.Permitted)
			assert.Equal(t, tt.wantReason, d.Reason)
		})
	}
}

func TestCheckQuota_ResetIsIdempotent(t *testing.T) {
	// Re-applying the same decision's counters on a second call within the
	// same day must not reset again. This is what makes the documented
	// weak-consistency window harmless.
	plan := GetPlan(PlanProfessional)
	now := time.Date(2025, 6, 15, 8, 0, 0, 0, time.UTC)

	first := CheckQuota(plan, UsageCounters{UsedToday: 7, UsedMonth: 30, LastReset: now.AddDate(0, 0, -3)}, now)
	require.True(t, first.DidReset)

	second := CheckQuota(plan, first.Counters, now.Add(time.Minute))
	assert.False(t, second.DidReset)
	assert.Equal(t, first.Counters.UsedToday, second.Counters.UsedToday)
}

func TestBuildQuotaUsage(t *testing.T) {
	free := BuildQuotaUsage(GetPlan(PlanFree), UsageCounters{UsedTotal: 4})
	assert.Equal(t, 6, free.Remaining)
	assert.Equal(t, 10, free.TotalLimit)

	std := BuildQuotaUsage(GetPlan(PlanStandard), UsageCounters{UsedToday: 3})
	assert.Equal(t, 7, std.Remaining)
	assert.Equal(t, 10, std.PerDay)
	assert.Equal(t, 100, std.PerMonth)

	ent := BuildQuotaUsage(GetPlan(PlanEnterprise), UsageCounters{UsedToday: 55})
	assert.Equal(t, -1, ent.Remaining, "unlimited plans report -1")
	assert.Equal(t, UnlimitedMonthly, ent.PerMonth)
}
