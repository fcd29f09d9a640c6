package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AssetStatus captures the lifecycle state of an asset.
type AssetStatus string

const (
	AssetStatusAvailable AssetStatus = "available"
	AssetStatusAssigned  AssetStatus = "assigned"
	AssetStatusInRepair  AssetStatus = "in_repair"
	AssetStatusRetired   AssetStatus = "retired"
)

// Valid reports whether the status is known.
func (s AssetStatus) Valid() bool {
	switch s {
	case AssetStatusAvailable, AssetStatusAssigned, AssetStatusInRepair, AssetStatusRetired:
		return true
	}
	return false
}

// LifecycleAction names an asset state machine transition.
type LifecycleAction string

const (
	ActionAssign   LifecycleAction = "assign"
	ActionReturn   LifecycleAction = "return"
	ActionTransfer LifecycleAction = "transfer"
	ActionRepair   LifecycleAction = "send_to_repair"
	ActionRestore  LifecycleAction = "restore_from_repair"
	ActionRetire   LifecycleAction = "retire"
)

// lifecycleRules lists the statuses each action may start from and the
// status it produces. Retired is terminal.
var lifecycleRules = map[LifecycleAction]struct {
	from []AssetStatus
	to   AssetStatus
}{
	ActionAssign:   {from: []AssetStatus{AssetStatusAvailable}, to: AssetStatusAssigned},
	ActionReturn:   {from: []AssetStatus{AssetStatusAssigned}, to: AssetStatusAvailable},
	ActionTransfer: {from: []AssetStatus{AssetStatusAssigned}, to: AssetStatusAssigned},
	ActionRepair:   {from: []AssetStatus{AssetStatusAvailable}, to: AssetStatusInRepair},
	ActionRestore:  {from: []AssetStatus{AssetStatusInRepair}, to: AssetStatusAvailable},
	ActionRetire:   {from: []AssetStatus{AssetStatusAvailable, AssetStatusAssigned, AssetStatusInRepair}, to: AssetStatusRetired},
}

// Transition returns the status produced by applying action to current, and
// false when the action is not allowed from current.
func (a LifecycleAction) Transition(current AssetStatus) (AssetStatus, bool) {
	rule, ok := lifecycleRules[a]
	if !ok {
		return current, false
	}
	for _, from := range rule.from {
		if from == current {
			return rule.to, true
		}
	}
	return current, false
}

// Asset is a tracked physical item.
type Asset struct {
	ID                    string           `db:"id" json:"id"`
	Name                  string           `db:"name" json:"name"`
	CategoryID            string           `db:"category_id" json:"category_id"`
	DepartmentID          string           `db:"department_id" json:"department_id"`
	DatePurchased         time.Time        `db:"date_purchased" json:"date_purchased"`
	Cost                  decimal.Decimal  `db:"cost" json:"cost"`
	Status                AssetStatus      `db:"status" json:"status"`
	SerialNumber          *string          `db:"serial_number" json:"serial_number,omitempty"`
	Description           *string          `db:"description" json:"description,omitempty"`
	Location              *string          `db:"location" json:"location,omitempty"`
	WarrantyExpiry        *time.Time       `db:"warranty_expiry" json:"warranty_expiry,omitempty"`
	WarrantyNotes         *string          `db:"warranty_notes" json:"warranty_notes,omitempty"`
	InsuranceProvider     *string          `db:"insurance_provider" json:"insurance_provider,omitempty"`
	InsurancePolicyNumber *string          `db:"insurance_policy_number" json:"insurance_policy_number,omitempty"`
	InsuranceExpiry       *time.Time       `db:"insurance_expiry" json:"insurance_expiry,omitempty"`
	InsuranceCoverage     *decimal.Decimal `db:"insurance_coverage" json:"insurance_coverage,omitempty"`
	AssignedTo            *string          `db:"assigned_to" json:"assigned_to,omitempty"`
	AssignedDate          *time.Time       `db:"assigned_date" json:"assigned_date,omitempty"`
	UserID                string           `db:"user_id" json:"user_id"`
	CreatedAt             time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time        `db:"updated_at" json:"updated_at"`
	DeletedAt             *time.Time       `db:"deleted_at" json:"deleted_at,omitempty"`
}

// AssignmentConsistent checks the invariant status=assigned <=> assigned_to set.
func (a Asset) AssignmentConsistent() bool {
	hasAssignee := a.AssignedTo != nil && *a.AssignedTo != ""
	return (a.Status == AssetStatusAssigned) == hasAssignee
}

// IsAssignedTo reports whether userID is the current assignee.
func (a Asset) IsAssignedTo(userID string) bool {
	return a.Status == AssetStatusAssigned && a.AssignedTo != nil && *a.AssignedTo == userID
}

// AssetFilter constrains asset listing queries.
type AssetFilter struct {
	Status       []AssetStatus
	CategoryID   string
	DepartmentID string
	AssignedTo   string
	Search       string
	Page         int
	PageSize     int
}
