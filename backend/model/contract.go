package model

import (
	"errors"
	"time"

	"gorm.io/datatypes"
)

// ContractStatus is the lifecycle flag stored with a contract.
type ContractStatus string

const (
	StatusActive  ContractStatus = "Active"
	StatusExpired ContractStatus = "Expired"
	StatusPending ContractStatus = "Pending"
)

// Valid reports whether s is one of the stored lifecycle flags.
func (s ContractStatus) Valid() bool {
	switch s {
	case StatusActive, StatusExpired, StatusPending:
		return true
	}
	return false
}

// ErrInvalidPeriod is returned when a contract ends on or before its start.
var ErrInvalidPeriod = errors.New("end date must be after start date")

// Contract represents an uploaded or drafted legal document
type Contract struct {
	ID         string         `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Title      string         `json:"title" gorm:"not null"`
	Filename   string         `json:"filename,omitempty"`
	ObjectName string         `json:"-"`
	FileURL    string         `json:"file_url,omitempty"`
	Status     ContractStatus `json:"status" gorm:"type:varchar(16);not null"`
	StartDate  time.Time      `json:"start_date"`
	EndDate    time.Time      `json:"end_date"`
	Value      float64        `json:"value"`
	OwnerID    string         `json:"owner_id" gorm:"index;not null"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// Validate checks the fields the write paths require. Status derivation
// itself never calls it.
func (c *Contract) Validate() error {
	if c.Title == "" {
		return errors.New("title is required")
	}
	if !c.Status.Valid() {
		return errors.New("status must be one of Active, Expired, Pending")
	}
	if !c.StartDate.IsZero() && !c.EndDate.IsZero() && !c.EndDate.After(c.StartDate) {
		return ErrInvalidPeriod
	}
	return nil
}

// Severity grades a single risk finding.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// Risk is one finding reported by the document analyzer.
type Risk struct {
	Severity    Severity `json:"severity"`
	Description string   `json:"description"`
	Section     string   `json:"section,omitempty"`
}

// Verdict is the overall outcome of a validation.
type Verdict string

const (
	VerdictValid    Verdict = "Valid"
	VerdictWarning  Verdict = "Warning"
	VerdictHighRisk Verdict = "HighRisk"
)

// ValidationRecord is an immutable risk assessment snapshot of a contract.
// Several may exist per contract; the newest one is authoritative.
type ValidationRecord struct {
	ID                string                              `json:"id" gorm:"primaryKey;type:varchar(36)"`
	ContractID        string                              `json:"contract_id" gorm:"index;not null"`
	MandatoryElements datatypes.JSONType[map[string]bool] `json:"mandatory_elements"`
	Risks             datatypes.JSONSlice[Risk]           `json:"risks"`
	Summary           string                              `json:"summary,omitempty"`
	RiskPercentage    int                                 `json:"risk_percentage"`
	Verdict           Verdict                             `json:"verdict" gorm:"type:varchar(16)"`
	CreatedBy         string                              `json:"created_by,omitempty"`
	CreatedAt         time.Time                           `json:"created_at" gorm:"index"`
}

// Elements returns the mandatory element flags, never nil.
func (v *ValidationRecord) Elements() map[string]bool {
	if v == nil {
		return map[string]bool{}
	}
	m := v.MandatoryElements.Data()
	if m == nil {
		return map[string]bool{}
	}
	return m
}
