package models

import "time"

// IssueType enumerates reported problem kinds.
type IssueType string

const (
	IssueDamage      IssueType = "damage"
	IssueMalfunction IssueType = "malfunction"
	IssueLoss        IssueType = "loss"
	IssueTheft       IssueType = "theft"
	IssueMaintenance IssueType = "maintenance"
	IssueOther       IssueType = "other"
)

// IssueSeverity ranks issue reports.
type IssueSeverity string

const (
	SeverityLow      IssueSeverity = "low"
	SeverityMedium   IssueSeverity = "medium"
	SeverityHigh     IssueSeverity = "high"
	SeverityCritical IssueSeverity = "critical"
)

// IssueStatus captures the issue workflow state.
type IssueStatus string

const (
	IssueOpen       IssueStatus = "open"
	IssueInProgress IssueStatus = "in_progress"
	IssueResolved   IssueStatus = "resolved"
	IssueClosed     IssueStatus = "closed"
	IssueCancelled  IssueStatus = "cancelled"
)

var issueTransitions = map[IssueStatus][]IssueStatus{
	IssueOpen:       {IssueInProgress, IssueResolved, IssueClosed, IssueCancelled},
	IssueInProgress: {IssueResolved, IssueClosed, IssueCancelled},
}

// CanTransitionTo reports whether the workflow allows moving to next.
func (s IssueStatus) CanTransitionTo(next IssueStatus) bool {
	for _, allowed := range issueTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// SourcesFor lists the statuses from which next can be reached.
func SourcesFor(next IssueStatus) []IssueStatus {
	sources := make([]IssueStatus, 0, 2)
	for _, from := range []IssueStatus{IssueOpen, IssueInProgress} {
		if from.CanTransitionTo(next) {
			sources = append(sources, from)
		}
	}
	return sources
}

// IssueReport is a problem raised by an employee about an asset assigned to them.
type IssueReport struct {
	ID              string        `db:"id" json:"id"`
	UserID          string        `db:"user_id" json:"user_id"`
	AssetID         string        `db:"asset_id" json:"asset_id"`
	IssueType       IssueType     `db:"issue_type" json:"issue_type"`
	Title           string        `db:"title" json:"title"`
	Description     string        `db:"description" json:"description"`
	Severity        IssueSeverity `db:"severity" json:"severity"`
	Status          IssueStatus   `db:"status" json:"status"`
	ResolutionNotes *string       `db:"resolution_notes" json:"resolution_notes,omitempty"`
	ResolvedBy      *string       `db:"resolved_by" json:"resolved_by,omitempty"`
	ResolvedAt      *time.Time    `db:"resolved_at" json:"resolved_at,omitempty"`
	CreatedAt       time.Time     `db:"created_at" json:"created_at"`
}

// IssueReportFilter constrains issue listing queries.
type IssueReportFilter struct {
	UserID   string
	AssetID  string
	Status   []IssueStatus
	Severity IssueSeverity
	Page     int
	PageSize int
}
