package models

import "time"

// AssignmentAction enumerates ledger entry kinds.
type AssignmentAction string

const (
	AssignmentAssigned      AssignmentAction = "assigned"
	AssignmentReturned      AssignmentAction = "returned"
	AssignmentTransferred   AssignmentAction = "transferred"
	AssignmentStatusChanged AssignmentAction = "status_changed"
)

// AssetAssignment is one append-only ledger row recording an asset transition.
type AssetAssignment struct {
	ID         string           `db:"id" json:"id"`
	AssetID    string           `db:"asset_id" json:"asset_id"`
	UserID     *string          `db:"user_id" json:"user_id,omitempty"`
	Action     AssignmentAction `db:"action" json:"action"`
	FromStatus *AssetStatus     `db:"from_status" json:"from_status,omitempty"`
	ToStatus   *AssetStatus     `db:"to_status" json:"to_status,omitempty"`
	Notes      *string          `db:"notes" json:"notes,omitempty"`
	AssignedBy string           `db:"assigned_by" json:"assigned_by"`
	CreatedAt  time.Time        `db:"created_at" json:"created_at"`
}
