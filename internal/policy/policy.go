// Package policy decides which rows an actor may see and which mutations it
// may perform. Every function is pure: callers pass the actor and the entity
// loaded from the store.
package policy

import (
	"fmt"

	"github.com/noah-isme/asset-desk-api/internal/models"
	appErrors "github.com/noah-isme/asset-desk-api/pkg/errors"
)

// EntityKind names a guarded entity type.
type EntityKind string

const (
	KindUser        EntityKind = "user"
	KindCategory    EntityKind = "category"
	KindDepartment  EntityKind = "department"
	KindAsset       EntityKind = "asset"
	KindMaintenance EntityKind = "maintenance"
	KindRequest     EntityKind = "asset_request"
	KindIssue       EntityKind = "issue_report"
)

// Operation names a mutation.
type Operation string

const (
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
	// OpUpdateProfile is a self-service edit restricted to name fields.
	OpUpdateProfile Operation = "update_profile"
	// OpTransition covers lifecycle and workflow status changes.
	OpTransition Operation = "transition"
	OpDecide     Operation = "decide"
	OpCancel     Operation = "cancel"
)

// CanView reports whether actor may read entity. entity is the loaded row
// (*models.User, *models.Asset, *models.AssetRequest, *models.IssueReport) or
// nil for lookup kinds.
func CanView(actor *models.Actor, kind EntityKind, entity interface{}) bool {
	if actor == nil || actor.UserID == "" {
		return false
	}
	if actor.IsAdmin() {
		return true
	}

	switch kind {
	case KindCategory, KindDepartment:
		return true
	case KindUser:
		u, ok := entity.(*models.User)
		return ok && u != nil && u.ID == actor.UserID
	case KindAsset:
		a, ok := entity.(*models.Asset)
		return ok && a != nil && a.AssignedTo != nil && *a.AssignedTo == actor.UserID
	case KindRequest:
		r, ok := entity.(*models.AssetRequest)
		return ok && r != nil && r.UserID == actor.UserID
	case KindIssue:
		i, ok := entity.(*models.IssueReport)
		return ok && i != nil && i.UserID == actor.UserID
	}
	return false
}

// CanMutate reports whether actor may apply op to entity. For issue creation
// entity is the *models.Asset the issue is raised against.
func CanMutate(actor *models.Actor, kind EntityKind, entity interface{}, op Operation) bool {
	if actor == nil || actor.UserID == "" {
		return false
	}

	if kind == KindUser {
		u, _ := entity.(*models.User)
		self := u != nil && u.ID == actor.UserID
		if op == OpUpdateProfile {
			return self
		}
		// Admins never manage their own account through user management.
		return actor.IsAdmin() && !self
	}

	if actor.IsAdmin() {
		return true
	}

	switch kind {
	case KindAsset:
		return op == OpCreate
	case KindRequest:
		switch op {
		case OpCreate:
			return true
		case OpCancel:
			r, ok := entity.(*models.AssetRequest)
			return ok && r != nil && r.UserID == actor.UserID
		}
	case KindIssue:
		if op == OpCreate {
			a, ok := entity.(*models.Asset)
			return ok && a != nil && a.IsAssignedTo(actor.UserID)
		}
	}
	return false
}

// AuthorizeView returns a typed error when CanView denies access.
func AuthorizeView(actor *models.Actor, kind EntityKind, entity interface{}) error {
	if actor == nil || actor.UserID == "" {
		return appErrors.ErrUnauthorized
	}
	if !CanView(actor, kind, entity) {
		return appErrors.Clone(appErrors.ErrForbidden, fmt.Sprintf("not allowed to view %s", kind))
	}
	return nil
}

// Authorize returns a typed error when CanMutate denies op.
func Authorize(actor *models.Actor, kind EntityKind, entity interface{}, op Operation) error {
	if actor == nil || actor.UserID == "" {
		return appErrors.ErrUnauthorized
	}
	if !CanMutate(actor, kind, entity, op) {
		return appErrors.Clone(appErrors.ErrForbidden, fmt.Sprintf("not allowed to %s %s", op, kind))
	}
	return nil
}
