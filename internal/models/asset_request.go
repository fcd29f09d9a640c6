package models

import "time"

// RequestType enumerates asset request kinds.
type RequestType string

const (
	RequestTypeNew         RequestType = "new"
	RequestTypeReplacement RequestType = "replacement"
	RequestTypeUpgrade     RequestType = "upgrade"
	RequestTypeTransfer    RequestType = "transfer"
)

// RequestPriority ranks asset requests.
type RequestPriority string

const (
	PriorityLow    RequestPriority = "low"
	PriorityMedium RequestPriority = "medium"
	PriorityHigh   RequestPriority = "high"
	PriorityUrgent RequestPriority = "urgent"
)

// RequestStatus captures the asset request workflow state.
type RequestStatus string

const (
	RequestPending   RequestStatus = "pending"
	RequestApproved  RequestStatus = "approved"
	RequestDenied    RequestStatus = "denied"
	RequestFulfilled RequestStatus = "fulfilled"
	RequestCancelled RequestStatus = "cancelled"
)

var requestTransitions = map[RequestStatus][]RequestStatus{
	RequestPending:  {RequestApproved, RequestDenied, RequestCancelled},
	RequestApproved: {RequestFulfilled},
}

// CanTransitionTo reports whether the workflow allows moving to next.
func (s RequestStatus) CanTransitionTo(next RequestStatus) bool {
	for _, allowed := range requestTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// RequestSourceFor returns the single status from which next can be reached.
// Denied, cancelled and fulfilled are terminal, so every target has one source.
func RequestSourceFor(next RequestStatus) (RequestStatus, bool) {
	for _, from := range []RequestStatus{RequestPending, RequestApproved} {
		if from.CanTransitionTo(next) {
			return from, true
		}
	}
	return "", false
}

// AssetRequest is an employee's request for a new, replacement, upgraded or
// transferred asset.
type AssetRequest struct {
	ID            string          `db:"id" json:"id"`
	UserID        string          `db:"user_id" json:"user_id"`
	RequestType   RequestType     `db:"request_type" json:"request_type"`
	CategoryID    *string         `db:"category_id" json:"category_id,omitempty"`
	Title         string          `db:"title" json:"title"`
	Description   *string         `db:"description" json:"description,omitempty"`
	Justification *string         `db:"justification" json:"justification,omitempty"`
	Priority      RequestPriority `db:"priority" json:"priority"`
	Status        RequestStatus   `db:"status" json:"status"`
	AdminNotes    *string         `db:"admin_notes" json:"admin_notes,omitempty"`
	ReviewedBy    *string         `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt    *time.Time      `db:"reviewed_at" json:"reviewed_at,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}

// AssetRequestFilter constrains request listing queries.
type AssetRequestFilter struct {
	UserID   string
	Status   []RequestStatus
	Priority RequestPriority
	Page     int
	PageSize int
}
