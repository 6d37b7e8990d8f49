// Package status derives display labels for contracts: the lifecycle status
// from stored dates, and the risk percentage and verdict from validation
// findings. All functions are pure and degrade to the lowest-risk label when
// inputs are missing.
package status

import (
	"strings"
	"time"

	"github.com/faawibowo/pakta/backend/model"
)

// Lifecycle is the derived display status of a contract.
type Lifecycle string

const (
	Active  Lifecycle = "Active"
	DueSoon Lifecycle = "DueSoon"
	Expired Lifecycle = "Expired"
	Pending Lifecycle = "Pending"
)

// DueSoonWindowDays is how close to its end date an active contract must be
// to be reported as DueSoon.
const DueSoonWindowDays = 30

// Risk weights, in percentage points per occurrence.
const (
	MissingElementWeight = 20
	HighRiskWeight       = 15
	MediumRiskWeight     = 10
	LowRiskWeight        = 5

	MaxRiskPercentage = 100
)

// Verdict band lower bounds, inclusive.
const (
	HighRiskThreshold = 70
	WarningThreshold  = 30
)

const day = 24 * time.Hour

// DeriveLifecycleStatus maps the stored flag and end date to a display status.
// Expired dominates everything else, so a Pending contract whose end date has
// passed reports Expired. A zero endDate skips the date checks.
func DeriveLifecycleStatus(stored model.ContractStatus, endDate, now time.Time) Lifecycle {
	hasEnd := !endDate.IsZero()

	if stored == model.StatusExpired || (hasEnd && endDate.Before(now)) {
		return Expired
	}
	if stored == model.StatusPending {
		return Pending
	}
	if hasEnd && DaysUntil(endDate, now) <= DueSoonWindowDays {
		return DueSoon
	}
	return Active
}

// DaysUntil returns the whole days from now to end, rounding any partial day
// up. It is negative when end is in the past.
func DaysUntil(end, now time.Time) int {
	d := end.Sub(now)
	days := int(d / day)
	if d%day > 0 {
		days++
	}
	return days
}

// DeriveRiskPercentage weighs missing mandatory elements and risks by
// severity and clamps the sum to [0, MaxRiskPercentage]. Negative counts
// contribute nothing.
func DeriveRiskPercentage(missing, high, medium, low int) int {
	score := 0
	for _, term := range [...]struct{ count, weight int }{
		{missing, MissingElementWeight},
		{high, HighRiskWeight},
		{medium, MediumRiskWeight},
		{low, LowRiskWeight},
	} {
		if term.count <= 0 {
			continue
		}
		// Saturate before multiplying so large counts cannot overflow.
		if term.count > MaxRiskPercentage/term.weight {
			return MaxRiskPercentage
		}
		score += term.count * term.weight
		if score >= MaxRiskPercentage {
			return MaxRiskPercentage
		}
	}
	return score
}

// DeriveOverallVerdict buckets a risk percentage. Each band includes its
// lower bound: exactly 70 is HighRisk and exactly 30 is Warning.
func DeriveOverallVerdict(riskPercentage int) model.Verdict {
	switch {
	case riskPercentage >= HighRiskThreshold:
		return model.VerdictHighRisk
	case riskPercentage >= WarningThreshold:
		return model.VerdictWarning
	default:
		return model.VerdictValid
	}
}

// Findings are the counts the risk arithmetic consumes.
type Findings struct {
	Missing int `json:"missing"`
	High    int `json:"high"`
	Medium  int `json:"medium"`
	Low     int `json:"low"`
}

// CountFindings tallies missing mandatory elements and risks by severity.
// A nil record counts as no findings; unknown severities are ignored.
func CountFindings(rec *model.ValidationRecord) Findings {
	var f Findings
	if rec == nil {
		return f
	}
	for _, present := range rec.Elements() {
		if !present {
			f.Missing++
		}
	}
	for _, r := range rec.Risks {
		switch model.Severity(strings.ToLower(strings.TrimSpace(string(r.Severity)))) {
		case model.SeverityHigh:
			f.High++
		case model.SeverityMedium:
			f.Medium++
		case model.SeverityLow:
			f.Low++
		}
	}
	return f
}

// Assessment is the derived outcome of a validation record.
type Assessment struct {
	Findings       Findings      `json:"findings"`
	RiskPercentage int           `json:"risk_percentage"`
	Verdict        model.Verdict `json:"verdict"`
}

// Assess runs the full derivation for rec.
func Assess(rec *model.ValidationRecord) Assessment {
	f := CountFindings(rec)
	pct := DeriveRiskPercentage(f.Missing, f.High, f.Medium, f.Low)
	return Assessment{
		Findings:       f,
		RiskPercentage: pct,
		Verdict:        DeriveOverallVerdict(pct),
	}
}
