package service

import (
	"context"
	"encoding/json"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/asset-desk-api/internal/dto"
	"github.com/noah-isme/asset-desk-api/internal/models"
	"github.com/noah-isme/asset-desk-api/internal/policy"
	appErrors "github.com/noah-isme/asset-desk-api/pkg/errors"
	"github.com/noah-isme/asset-desk-api/pkg/events"
	"github.com/noah-isme/asset-desk-api/pkg/response"
)

type userRepository interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	UpdateProfile(ctx context.Context, id string, firstName, lastName *string) error
	Delete(ctx context.Context, id string) (int, error)
}

// UserService handles profile edits and admin user management.
type UserService struct {
	repo      userRepository
	validator *validator.Validate
	logger    *zap.Logger
	opts      serviceOptions
	notify    notifier
}

// NewUserService creates an instance of UserService.
func NewUserService(repo userRepository, validate *validator.Validate, logger *zap.Logger, opts ...ServiceOption) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	o := buildOptions(opts)
	return &UserService{repo: repo, validator: validate, logger: logger, opts: o, notify: newNotifier(o.publisher, o.metrics, logger)}
}

// Me returns the actor's own user row.
func (s *UserService) Me(ctx context.Context, actor *models.Actor) (*models.User, error) {
	if actor == nil || actor.UserID == "" {
		return nil, appErrors.ErrUnauthorized
	}
	user, err := s.repo.FindByID(ctx, actor.UserID)
	if err != nil {
		return nil, storeError(ctx, s.logger, opContext{op: "load profile", actor: actor, entity: "user", entityID: actor.UserID}, err)
	}
	return user, nil
}

// UpdateProfile lets a user change their own name. Role and department are
// admin-managed and rejected here.
func (s *UserService) UpdateProfile(ctx context.Context, actor *models.Actor, req dto.UpdateProfileRequest) (*models.User, error) {
	if actor == nil || actor.UserID == "" {
		return nil, appErrors.ErrUnauthorized
	}
	if err := policy.Authorize(actor, policy.KindUser, &models.User{ID: actor.UserID}, policy.OpUpdateProfile); err != nil {
		return nil, err
	}
	if req.Role != nil || req.DepartmentID != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "role and department can only be changed by an admin")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid profile payload")
	}

	oc := opContext{op: "update profile", actor: actor, entity: "user", entityID: actor.UserID}
	user, err := s.repo.FindByID(ctx, actor.UserID)
	if err != nil {
		return nil, storeError(ctx, s.logger, oc, err)
	}
	if req.FirstName != nil {
		user.FirstName = req.FirstName
	}
	if req.LastName != nil {
		user.LastName = req.LastName
	}
	if err := s.repo.UpdateProfile(ctx, user.ID, user.FirstName, user.LastName); err != nil {
		return nil, storeError(ctx, s.logger, oc, err)
	}

	s.opts.emitAudit(ctx, s.logger, auditEntry(actor, models.AuditActionProfileUpdate, "users", user.ID, req))
	s.notify.emit(ctx, events.New(events.UserChanged, "users", user.ID, actor.UserID, user))
	return user, nil
}

// List returns paginated users. Admin only.
func (s *UserService) List(ctx context.Context, actor *models.Actor, filter models.UserFilter) ([]models.User, *response.Pagination, error) {
	if !actor.IsAdmin() {
		if actor == nil || actor.UserID == "" {
			return nil, nil, appErrors.ErrUnauthorized
		}
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "only admins can list users")
	}
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, storeError(ctx, s.logger, opContext{op: "list users", actor: actor, entity: "user"}, err)
	}
	if users == nil {
		users = []models.User{}
	}
	return users, pagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a user by ID to admins, or the actor's own row.
func (s *UserService) Get(ctx context.Context, actor *models.Actor, id string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(ctx, s.logger, opContext{op: "get user", actor: actor, entity: "user", entityID: id}, err)
	}
	if err := policy.AuthorizeView(actor, policy.KindUser, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Update modifies another user's role, name or department.
func (s *UserService) Update(ctx context.Context, actor *models.Actor, id string, req dto.AdminUpdateUserRequest) (*models.User, error) {
	if err := policy.Authorize(actor, policy.KindUser, &models.User{ID: id}, policy.OpUpdate); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid update payload")
	}

	oc := opContext{op: "update user", actor: actor, entity: "user", entityID: id}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(ctx, s.logger, oc, err)
	}

	oldPayload, _ := json.Marshal(map[string]interface{}{"role": user.Role, "department_id": user.DepartmentID})

	if req.Role != nil {
		user.Role = *req.Role
	}
	if req.FirstName != nil {
		user.FirstName = req.FirstName
	}
	if req.LastName != nil {
		user.LastName = req.LastName
	}
	if req.DepartmentID != nil {
		if *req.DepartmentID == "" {
			user.DepartmentID = nil
		} else {
			user.DepartmentID = req.DepartmentID
		}
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, storeError(ctx, s.logger, oc, err)
	}

	entry := auditEntry(actor, models.AuditActionUserUpdate, "users", user.ID, map[string]interface{}{"role": user.Role, "department_id": user.DepartmentID})
	entry.OldValues = oldPayload
	s.opts.emitAudit(ctx, s.logger, entry)
	s.notify.emit(ctx, events.New(events.UserChanged, "users", user.ID, actor.UserID, user))
	return user, nil
}

// Delete removes a user nothing references.
func (s *UserService) Delete(ctx context.Context, actor *models.Actor, id string) error {
	if err := policy.Authorize(actor, policy.KindUser, &models.User{ID: id}, policy.OpDelete); err != nil {
		return err
	}
	count, err := s.repo.Delete(ctx, id)
	if err != nil {
		return storeError(ctx, s.logger, opContext{op: "delete user", actor: actor, entity: "user", entityID: id}, err)
	}
	if count > 0 {
		return appErrors.ReferentialConflict("user", count, 0)
	}
	s.opts.emitAudit(ctx, s.logger, auditEntry(actor, models.AuditActionUserDelete, "users", id, nil))
	s.notify.emit(ctx, events.New(events.UserChanged, "users", id, actor.UserID, map[string]string{"deleted": id}))
	return nil
}
