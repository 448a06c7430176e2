// Package usage describes embedding token consumption against the configured budget.
package usage

// Period is the aggregation granularity.
type Period string

// Aggregation periods.
const (
	PeriodDay   Period = "day"
	PeriodMonth Period = "month"
)

// ParsePeriod maps user input to a Period, defaulting to the current month.
func ParsePeriod(s string) Period {
	if s == string(PeriodDay) {
		return PeriodDay
	}
	return PeriodMonth
}

// Report is the token usage for one period. A zero limit means unlimited.
type Report struct {
	period    Period
	start     int64
	end       int64
	limit     int64
	used      int64
	remaining int64
}

// NewReport creates a usage report. start and end are unix millis.
func NewReport(period Period, start, end, limit, used, remaining int64) Report {
	return Report{
		period:    period,
		start:     start,
		end:       end,
		limit:     limit,
		used:      used,
		remaining: remaining,
	}
}

// Period returns the aggregation granularity.
func (r Report) Period() Period { return r.period }

// PeriodStart returns the period start (unix millis).
func (r Report) PeriodStart() int64 { return r.start }

// PeriodEnd returns the period end, which is also when the budget resets (unix millis).
func (r Report) PeriodEnd() int64 { return r.end }

// TokensLimit returns the token cap, 0 when unlimited.
func (r Report) TokensLimit() int64 { return r.limit }

// TokensUsed returns tokens consumed in the period.
func (r Report) TokensUsed() int64 { return r.used }

// TokensRemaining returns tokens left, -1 when unlimited.
func (r Report) TokensRemaining() int64 { return r.remaining }

// Exhausted reports a limited budget with nothing left.
func (r Report) Exhausted() bool { return r.limit > 0 && r.remaining <= 0 }
