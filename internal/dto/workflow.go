package dto

import "github.com/noah-isme/asset-desk-api/internal/models"

// SubmitAssetRequest files a new asset request.
type SubmitAssetRequest struct {
	RequestType   models.RequestType     `json:"request_type" validate:"required,oneof=new replacement upgrade transfer"`
	CategoryID    *string                `json:"category_id"`
	Title         string                 `json:"title" validate:"required,max=200"`
	Description   *string                `json:"description"`
	Justification *string                `json:"justification"`
	Priority      models.RequestPriority `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
}

// DecideAssetRequest approves or denies a pending request.
type DecideAssetRequest struct {
	Outcome models.RequestStatus `json:"outcome" validate:"required,oneof=approved denied"`
	Notes   string               `json:"notes" validate:"max=2000"`
}

// ReportIssueRequest raises an issue about an asset assigned to the caller.
type ReportIssueRequest struct {
	AssetID     string               `json:"asset_id" validate:"required"`
	IssueType   models.IssueType     `json:"issue_type" validate:"required,oneof=damage malfunction loss theft maintenance other"`
	Title       string               `json:"title" validate:"required,max=200"`
	Description string               `json:"description" validate:"required"`
	Severity    models.IssueSeverity `json:"severity" validate:"omitempty,oneof=low medium high critical"`
}

// IssueNotesRequest carries resolution notes for resolve and close.
type IssueNotesRequest struct {
	Notes string `json:"notes" validate:"max=2000"`
}
