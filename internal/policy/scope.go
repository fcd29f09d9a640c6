package policy

import "github.com/noah-isme/asset-desk-api/internal/models"

// ScopeAssets restricts a listing for non-admin actors to assets assigned to them.
func ScopeAssets(actor *models.Actor, filter models.AssetFilter) models.AssetFilter {
	if !actor.IsAdmin() {
		filter.AssignedTo = actorID(actor)
	}
	return filter
}

// ScopeRequests restricts a listing for non-admin actors to their own requests.
func ScopeRequests(actor *models.Actor, filter models.AssetRequestFilter) models.AssetRequestFilter {
	if !actor.IsAdmin() {
		filter.UserID = actorID(actor)
	}
	return filter
}

// ScopeIssues restricts a listing for non-admin actors to their own reports.
func ScopeIssues(actor *models.Actor, filter models.IssueReportFilter) models.IssueReportFilter {
	if !actor.IsAdmin() {
		filter.UserID = actorID(actor)
	}
	return filter
}

// actorID never returns an empty string so a scoped query cannot widen to all rows.
func actorID(actor *models.Actor) string {
	if actor == nil || actor.UserID == "" {
		return "-"
	}
	return actor.UserID
}
