package usage

import "testing"

func TestNewReport(t *testing.T) {
	r := NewReport(PeriodMonth, 1700000000000, 1702600000000, 1000000, 384200, 615800)

	if r.Period() != PeriodMonth {
		t.Errorf("Period() = %q", r.Period())
	}
	if r.PeriodStart() != 1700000000000 || r.PeriodEnd() != 1702600000000 {
		t.Errorf("unexpected bounds %d..%d", r.PeriodStart(), r.PeriodEnd())
	}
	if r.TokensUsed() != 384200 || r.TokensRemaining() != 615800 || r.TokensLimit() != 1000000 {
		t.Errorf("unexpected tokens: %+v", r)
	}
	if r.Exhausted() {
		t.Error("budget with tokens left must not be exhausted")
	}
}

func TestReport_Exhausted(t *testing.T) {
	tests := []struct {
		name             string
		limit, remaining int64
		want             bool
	}{
		{"spent", 100, 0, true},
		{"overspent", 100, -5, true},
		{"unlimited", 0, -1, false},
		{"left", 100, 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReport(PeriodDay, 0, 0, tt.limit, 0, tt.remaining)
			if r.Exhausted() != tt.want {
				t.Errorf("Exhausted() = %v, want %v", r.Exhausted(), tt.want)
			}
		})
	}
}

func TestParsePeriod(t *testing.T) {
	if ParsePeriod("day") != PeriodDay {
		t.Error("expected day")
	}
	if ParsePeriod("") != PeriodMonth || ParsePeriod("total") != PeriodMonth {
		t.Error("expected month as default")
	}
}
