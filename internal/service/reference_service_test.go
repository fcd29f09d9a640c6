package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/asset-desk-api/internal/dto"
	"github.com/noah-isme/asset-desk-api/internal/models"
	"github.com/noah-isme/asset-desk-api/internal/repository"
	appErrors "github.com/noah-isme/asset-desk-api/pkg/errors"
)

type stubReferenceRepo struct {
	categories  map[string]*models.Category
	departments map[string]*models.Department
	// refs holds the rows referencing each id.
	refs    map[string]repository.References
	deleted []string
	listErr error
}

func newStubReferenceRepo() *stubReferenceRepo {
	return &stubReferenceRepo{
		categories:  map[string]*models.Category{"cat-1": {ID: "cat-1", Name: "Laptops"}},
		departments: map[string]*models.Department{"dep-1": {ID: "dep-1", Name: "Finance"}},
		refs:        map[string]repository.References{},
	}
}

func (s *stubReferenceRepo) ListCategories(ctx context.Context) ([]models.Category, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []models.Category
	for _, c := range s.categories {
		out = append(out, *c)
	}
	return out, nil
}

func (s *stubReferenceRepo) GetCategory(ctx context.Context, id string) (*models.Category, error) {
	c, ok := s.categories[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *c
	return &cp, nil
}

func (s *stubReferenceRepo) CreateCategory(ctx context.Context, item *models.Category) error {
	item.ID = "cat-new"
	s.categories[item.ID] = item
	return nil
}

func (s *stubReferenceRepo) RenameCategory(ctx context.Context, id, name string) error {
	c, ok := s.categories[id]
	if !ok {
		return sql.ErrNoRows
	}
	c.Name = name
	return nil
}

func (s *stubReferenceRepo) DeleteCategory(ctx context.Context, id string) (repository.References, error) {
	if _, ok := s.categories[id]; !ok {
		return repository.References{}, sql.ErrNoRows
	}
	if refs := s.refs[id]; refs.Total > 0 {
		return refs, nil
	}
	delete(s.categories, id)
	s.deleted = append(s.deleted, id)
	return repository.References{}, nil
}

func (s *stubReferenceRepo) ListDepartments(ctx context.Context) ([]models.Department, error) {
	var out []models.Department
	for _, d := range s.departments {
		out = append(out, *d)
	}
	return out, nil
}

func (s *stubReferenceRepo) GetDepartment(ctx context.Context, id string) (*models.Department, error) {
	d, ok := s.departments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *d
	return &cp, nil
}

func (s *stubReferenceRepo) CreateDepartment(ctx context.Context, item *models.Department) error {
	item.ID = "dep-new"
	s.departments[item.ID] = item
	return nil
}

func (s *stubReferenceRepo) RenameDepartment(ctx context.Context, id, name string) error {
	d, ok := s.departments[id]
	if !ok {
		return sql.ErrNoRows
	}
	d.Name = name
	return nil
}

func (s *stubReferenceRepo) DeleteDepartment(ctx context.Context, id string) (repository.References, error) {
	if _, ok := s.departments[id]; !ok {
		return repository.References{}, sql.ErrNoRows
	}
	if refs := s.refs[id]; refs.Total > 0 {
		return refs, nil
	}
	delete(s.departments, id)
	s.deleted = append(s.deleted, id)
	return repository.References{}, nil
}

func TestDeleteReferencedCategoryIsRejected(t *testing.T) {
	repo := newStubReferenceRepo()
	repo.refs["cat-1"] = repository.References{Total: 2}
	svc := NewReferenceService(repo, nil, zap.NewNop())

	err := svc.DeleteCategory(context.Background(), adminActor, "cat-1")
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrReferentialConflict.Code, appErr.Code)
	assert.Equal(t, 2, appErr.Details["count"])
	assert.Equal(t, 0, appErr.Details["archived"])
	assert.Contains(t, repo.categories, "cat-1")

	repo.refs["cat-1"] = repository.References{}
	require.NoError(t, svc.DeleteCategory(context.Background(), adminActor, "cat-1"))
	assert.Equal(t, []string{"cat-1"}, repo.deleted)
}

func TestDeleteCategoryHeldOnlyByDeletedAssets(t *testing.T) {
	repo := newStubReferenceRepo()
	repo.refs["cat-1"] = repository.References{Total: 1, Archived: 1}
	svc := NewReferenceService(repo, nil, zap.NewNop())

	err := svc.DeleteCategory(context.Background(), adminActor, "cat-1")
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, 1, appErr.Details["count"])
	assert.Equal(t, 1, appErr.Details["archived"])
	assert.Contains(t, appErr.Message, "deleted assets kept for history")
	assert.Empty(t, repo.deleted)
}

func TestDeleteReferencedDepartment(t *testing.T) {
	repo := newStubReferenceRepo()
	repo.refs["dep-1"] = repository.References{Total: 3}
	audit := &recordingAudit{}
	svc := NewReferenceService(repo, nil, zap.NewNop(), WithAuditLogger(audit))

	err := svc.DeleteDepartment(context.Background(), adminActor, "dep-1")
	assert.True(t, errors.Is(err, appErrors.ErrReferentialConflict))
	assert.Empty(t, audit.entries)

	err = svc.DeleteDepartment(context.Background(), adminActor, "missing")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestReferenceWritesAreAdminOnly(t *testing.T) {
	svc := NewReferenceService(newStubReferenceRepo(), nil, zap.NewNop())
	ctx := context.Background()

	_, err := svc.CreateCategory(ctx, aliceActor, dto.ReferenceRequest{Name: "Phones"})
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))
	_, err = svc.RenameDepartment(ctx, aliceActor, "dep-1", dto.ReferenceRequest{Name: "HR"})
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))
	err = svc.DeleteCategory(ctx, aliceActor, "cat-1")
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	items, err := svc.ListCategories(ctx, aliceActor)
	require.NoError(t, err)
	assert.Len(t, items, 1)
	_, err = svc.ListDepartments(ctx, nil)
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))
}

func TestReferenceCreateAndRename(t *testing.T) {
	repo := newStubReferenceRepo()
	pub := &recordingPublisher{}
	svc := NewReferenceService(repo, nil, zap.NewNop(), WithPublisher(pub))
	ctx := context.Background()

	_, err := svc.CreateCategory(ctx, adminActor, dto.ReferenceRequest{Name: "   "})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	cat, err := svc.CreateCategory(ctx, adminActor, dto.ReferenceRequest{Name: " Phones "})
	require.NoError(t, err)
	assert.Equal(t, "Phones", cat.Name)

	dep, err := svc.RenameDepartment(ctx, adminActor, "dep-1", dto.ReferenceRequest{Name: "Accounting"})
	require.NoError(t, err)
	assert.Equal(t, "Accounting", dep.Name)

	_, err = svc.RenameCategory(ctx, adminActor, "missing", dto.ReferenceRequest{Name: "x"})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
	assert.Len(t, pub.events, 2)
}
