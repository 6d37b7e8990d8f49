package status

import (
	"testing"
	"time"

	"github.com/faawibowo/pakta/backend/model"
	"github.com/stretchr/testify/assert"
	"gorm.io/datatypes"
)

var now = time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC)

func TestDeriveLifecycleStatus(t *testing.T) {
	tests := []struct {
		name   string
		stored model.ContractStatus
		end    time.Time
		want   Lifecycle
	}{
		{"expired flag with future end", model.StatusExpired, now.AddDate(2, 0, 0), Expired},
		{"expired flag with past end", model.StatusExpired, now.AddDate(0, 0, -3), Expired},
		{"expired flag without end", model.StatusExpired, time.Time{}, Expired},
		{"active past end", model.StatusActive, now.Add(-time.Minute), Expired},
		{"pending past end", model.StatusPending, now.AddDate(0, 0, -1), Expired},
		{"pending future end", model.StatusPending, now.AddDate(0, 0, 10), Pending},
		{"pending far future", model.StatusPending, now.AddDate(1, 0, 0), Pending},
		{"active in 15 days", model.StatusActive, now.AddDate(0, 0, 15), DueSoon},
		{"active in 30 days", model.StatusActive, now.AddDate(0, 0, 30), DueSoon},
		{"active in 30 days and an hour", model.StatusActive, now.AddDate(0, 0, 30).Add(time.Hour), Active},
		{"active in 31 days", model.StatusActive, now.AddDate(0, 0, 31), Active},
		{"active ending now", model.StatusActive, now, DueSoon},
		{"active without end", model.StatusActive, time.Time{}, Active},
		{"pending without end", model.StatusPending, time.Time{}, Pending},
		{"unknown flag far future", model.ContractStatus("Archived"), now.AddDate(1, 0, 0), Active},
		{"empty flag soon", model.ContractStatus(""), now.AddDate(0, 0, 2), DueSoon},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveLifecycleStatus(tt.stored, tt.end, now))
		})
	}
}

func TestDaysUntil(t *testing.T) {
	assert.Equal(t, 0, DaysUntil(now, now))
	assert.Equal(t, 1, DaysUntil(now.Add(time.Second), now))
	assert.Equal(t, 1, DaysUntil(now.Add(24*time.Hour), now))
	assert.Equal(t, 2, DaysUntil(now.Add(25*time.Hour), now))
	assert.Equal(t, -1, DaysUntil(now.Add(-24*time.Hour), now))
	assert.Equal(t, 0, DaysUntil(now.Add(-time.Hour), now))
}

func TestDeriveRiskPercentage(t *testing.T) {
	tests := []struct {
		name                     string
		missing, high, med, low int
		want                     int
	}{
		{"nothing", 0, 0, 0, 0, 0},
		{"one of each plus two missing", 2, 1, 1, 1, 70},
		{"one missing two high", 1, 2, 0, 0, 50},
		{"single low", 0, 0, 0, 1, 5},
		{"single medium", 0, 0, 1, 0, 10},
		{"exactly one hundred", 5, 0, 0, 0, 100},
		{"clamped", 10, 10, 10, 10, 100},
		{"clamped by high only", 0, 7, 0, 0, 100},
		{"negative counts ignored", -3, -1, 2, -8, 20},
		{"huge counts saturate", int(^uint(0) >> 1), 1, 1, 1, 100},
		{"huge low count", 0, 0, 0, int(^uint(0) >> 1), 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveRiskPercentage(tt.missing, tt.high, tt.med, tt.low))
		})
	}
}

func TestDeriveOverallVerdict(t *testing.T) {
	tests := []struct {
		pct  int
		want model.Verdict
	}{
		{-5, model.VerdictValid},
		{0, model.VerdictValid},
		{29, model.VerdictValid},
		{30, model.VerdictWarning},
		{50, model.VerdictWarning},
		{69, model.VerdictWarning},
		{70, model.VerdictHighRisk},
		{100, model.VerdictHighRisk},
		{250, model.VerdictHighRisk},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, DeriveOverallVerdict(tt.pct), "pct=%d", tt.pct)
	}
}

func TestCountFindings(t *testing.T) {
	rec := &model.ValidationRecord{
		MandatoryElements: datatypes.NewJSONType(map[string]bool{
			"parties":         true,
			"subject":         true,
			"governing_law":   false,
			"dispute_clause":  false,
			"signature_block": true,
		}),
		Risks: datatypes.NewJSONSlice([]model.Risk{
			{Severity: "high"},
			{Severity: "HIGH"},
			{Severity: " Medium "},
			{Severity: "low"},
			{Severity: "critical"},
			{Severity: ""},
		}),
	}

	assert.Equal(t, Findings{Missing: 2, High: 2, Medium: 1, Low: 1}, CountFindings(rec))
	assert.Equal(t, Findings{}, CountFindings(nil))
	assert.Equal(t, Findings{}, CountFindings(&model.ValidationRecord{}))
}

func TestAssessMissingDataDegradesToValid(t *testing.T) {
	a := Assess(nil)
	assert.Equal(t, 0, a.RiskPercentage)
	assert.Equal(t, model.VerdictValid, a.Verdict)
}

func TestContractScenario(t *testing.T) {
	contract := model.Contract{Status: model.StatusActive, EndDate: now.AddDate(0, 0, 10)}
	assert.Equal(t, DueSoon, DeriveLifecycleStatus(contract.Status, contract.EndDate, now))

	rec := &model.ValidationRecord{
		MandatoryElements: datatypes.NewJSONType(map[string]bool{"parties": true, "term": false}),
		Risks: datatypes.NewJSONSlice([]model.Risk{
			{Severity: model.SeverityHigh, Description: "Uncapped indemnity"},
			{Severity: model.SeverityHigh, Description: "Unilateral termination"},
		}),
	}
	a := Assess(rec)
	assert.Equal(t, 50, a.RiskPercentage)
	assert.Equal(t, model.VerdictWarning, a.Verdict)
}
