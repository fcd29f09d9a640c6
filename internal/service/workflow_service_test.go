package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/asset-desk-api/internal/dto"
	"github.com/noah-isme/asset-desk-api/internal/models"
	"github.com/noah-isme/asset-desk-api/internal/repository"
	appErrors "github.com/noah-isme/asset-desk-api/pkg/errors"
	"github.com/noah-isme/asset-desk-api/pkg/events"
)

type memRequests struct {
	items   map[string]*models.AssetRequest
	seq     int
	sources []models.RequestStatus
}

func (m *memRequests) Create(ctx context.Context, req *models.AssetRequest) error {
	m.seq++
	req.ID = fmt.Sprintf("req-%d", m.seq)
	cp := *req
	m.items[req.ID] = &cp
	return nil
}

func (m *memRequests) GetByID(ctx context.Context, id string) (*models.AssetRequest, error) {
	item, ok := m.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *item
	return &cp, nil
}

func (m *memRequests) List(ctx context.Context, filter models.AssetRequestFilter) ([]models.AssetRequest, int, error) {
	var out []models.AssetRequest
	for _, item := range m.items {
		if filter.UserID != "" && item.UserID != filter.UserID {
			continue
		}
		out = append(out, *item)
	}
	return out, len(out), nil
}

func (m *memRequests) ChangeStatus(ctx context.Context, change repository.RequestStatusChange) error {
	m.sources = append(m.sources, change.From)
	item, ok := m.items[change.ID]
	if !ok || item.Status != change.From {
		return repository.ErrConditionFailed
	}
	item.Status = change.To
	if change.ReviewedBy != nil {
		item.ReviewedBy = change.ReviewedBy
		item.ReviewedAt = change.ReviewedAt
		item.AdminNotes = change.AdminNotes
	}
	return nil
}

type memIssues struct {
	items  map[string]*models.IssueReport
	assets *memAssets
	seq    int
}

func (m *memIssues) CreateForAssignee(ctx context.Context, issue *models.IssueReport) error {
	asset, err := m.assets.GetByID(ctx, issue.AssetID)
	if err != nil || !asset.IsAssignedTo(issue.UserID) {
		return repository.ErrConditionFailed
	}
	m.seq++
	issue.ID = fmt.Sprintf("issue-%d", m.seq)
	cp := *issue
	m.items[issue.ID] = &cp
	return nil
}

func (m *memIssues) GetByID(ctx context.Context, id string) (*models.IssueReport, error) {
	item, ok := m.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *item
	return &cp, nil
}

func (m *memIssues) List(ctx context.Context, filter models.IssueReportFilter) ([]models.IssueReport, int, error) {
	var out []models.IssueReport
	for _, item := range m.items {
		if filter.UserID != "" && item.UserID != filter.UserID {
			continue
		}
		out = append(out, *item)
	}
	return out, len(out), nil
}

func (m *memIssues) ChangeStatus(ctx context.Context, change repository.IssueStatusChange) error {
	item, ok := m.items[change.ID]
	if !ok {
		return repository.ErrConditionFailed
	}
	allowed := false
	for _, from := range change.From {
		if item.Status == from {
			allowed = true
		}
	}
	if !allowed {
		return repository.ErrConditionFailed
	}
	item.Status = change.To
	if change.ResolvedBy != nil {
		item.ResolvedBy = change.ResolvedBy
		item.ResolvedAt = change.ResolvedAt
		item.ResolutionNotes = change.ResolutionNotes
	}
	return nil
}

func submitRequest() dto.SubmitAssetRequest {
	return dto.SubmitAssetRequest{RequestType: models.RequestTypeNew, Title: "Second monitor"}
}

func TestRequestApproveThenFulfill(t *testing.T) {
	repo := &memRequests{items: map[string]*models.AssetRequest{}}
	pub := &recordingPublisher{}
	svc := NewRequestService(repo, nil, zap.NewNop(), WithPublisher(pub), WithClock(fixedClock))
	ctx := context.Background()

	req, err := svc.Submit(ctx, aliceActor, submitRequest())
	require.NoError(t, err)
	assert.Equal(t, models.RequestPending, req.Status)
	assert.Equal(t, models.PriorityMedium, req.Priority)
	assert.Equal(t, "u-alice", req.UserID)

	_, err = svc.Decide(ctx, aliceActor, req.ID, dto.DecideAssetRequest{Outcome: models.RequestApproved})
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	decided, err := svc.Decide(ctx, adminActor, req.ID, dto.DecideAssetRequest{Outcome: models.RequestApproved, Notes: "ok"})
	require.NoError(t, err)
	assert.Equal(t, models.RequestApproved, decided.Status)
	require.NotNil(t, decided.ReviewedBy)
	assert.Equal(t, "admin-1", *decided.ReviewedBy)
	assert.Equal(t, fixedNow, *decided.ReviewedAt)

	fulfilled, err := svc.Fulfill(ctx, adminActor, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestFulfilled, fulfilled.Status)

	assert.Equal(t, []events.Type{events.RequestSubmitted, events.RequestDecided, events.RequestFulfilled}, pub.types())
}

func TestRequestDecisionOnlyFromPending(t *testing.T) {
	repo := &memRequests{items: map[string]*models.AssetRequest{}}
	svc := NewRequestService(repo, nil, zap.NewNop(), WithClock(fixedClock))
	ctx := context.Background()

	req, err := svc.Submit(ctx, aliceActor, submitRequest())
	require.NoError(t, err)
	_, err = svc.Decide(ctx, adminActor, req.ID, dto.DecideAssetRequest{Outcome: models.RequestDenied})
	require.NoError(t, err)

	_, err = svc.Decide(ctx, adminActor, req.ID, dto.DecideAssetRequest{Outcome: models.RequestApproved})
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErr.Code)
	assert.Equal(t, "denied", appErr.Details["current_status"])

	_, err = svc.Fulfill(ctx, adminActor, req.ID)
	assert.True(t, errors.Is(err, appErrors.ErrInvalidTransition))
	_, err = svc.Cancel(ctx, aliceActor, req.ID)
	assert.True(t, errors.Is(err, appErrors.ErrInvalidTransition))

	_, err = svc.Decide(ctx, adminActor, req.ID, dto.DecideAssetRequest{Outcome: models.RequestFulfilled})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestRequestTransitionsWriteTheirSourceStatus(t *testing.T) {
	repo := &memRequests{items: map[string]*models.AssetRequest{}}
	svc := NewRequestService(repo, nil, zap.NewNop())
	ctx := context.Background()

	first, err := svc.Submit(ctx, aliceActor, submitRequest())
	require.NoError(t, err)
	_, err = svc.Decide(ctx, adminActor, first.ID, dto.DecideAssetRequest{Outcome: models.RequestApproved})
	require.NoError(t, err)
	_, err = svc.Fulfill(ctx, adminActor, first.ID)
	require.NoError(t, err)

	second, err := svc.Submit(ctx, aliceActor, submitRequest())
	require.NoError(t, err)
	_, err = svc.Cancel(ctx, aliceActor, second.ID)
	require.NoError(t, err)

	assert.Equal(t, []models.RequestStatus{models.RequestPending, models.RequestApproved, models.RequestPending}, repo.sources)
}

func TestRequestCancelByOwnerOnly(t *testing.T) {
	repo := &memRequests{items: map[string]*models.AssetRequest{}}
	svc := NewRequestService(repo, nil, zap.NewNop())
	ctx := context.Background()

	req, err := svc.Submit(ctx, aliceActor, submitRequest())
	require.NoError(t, err)

	_, err = svc.Cancel(ctx, bobActor, req.ID)
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))
	_, err = svc.Get(ctx, bobActor, req.ID)
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	cancelled, err := svc.Cancel(ctx, aliceActor, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestCancelled, cancelled.Status)

	mine, _, err := svc.List(ctx, bobActor, models.AssetRequestFilter{UserID: "u-alice"})
	require.NoError(t, err)
	assert.Empty(t, mine, "a user listing another user's requests gets an empty list")
	assert.NotNil(t, mine)
}

func newIssueFixture() (*IssueService, *memIssues, *memAssets) {
	alice := "u-alice"
	held := availableAsset("held")
	held.Status = models.AssetStatusAssigned
	held.AssignedTo = &alice
	assets := newMemAssets(held, availableAsset("pool"))
	issues := &memIssues{items: map[string]*models.IssueReport{}, assets: assets}
	return NewIssueService(issues, assets, nil, zap.NewNop(), WithClock(fixedClock)), issues, assets
}

func reportFor(assetID string) dto.ReportIssueRequest {
	return dto.ReportIssueRequest{AssetID: assetID, IssueType: models.IssueDamage, Title: "Cracked screen", Description: "Dropped it"}
}

func TestIssueReportRequiresCurrentAssignment(t *testing.T) {
	svc, issues, _ := newIssueFixture()
	ctx := context.Background()

	_, err := svc.Report(ctx, bobActor, reportFor("held"))
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))
	_, err = svc.Report(ctx, aliceActor, reportFor("pool"))
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))
	assert.Empty(t, issues.items, "rejected reports create no rows")

	_, err = svc.Report(ctx, aliceActor, reportFor("missing"))
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	issue, err := svc.Report(ctx, aliceActor, reportFor("held"))
	require.NoError(t, err)
	assert.Equal(t, models.IssueOpen, issue.Status)
	assert.Equal(t, models.SeverityMedium, issue.Severity)
}

func TestIssueReportLosesRaceWithReturn(t *testing.T) {
	svc, issues, assets := newIssueFixture()
	// The asset is returned between the visibility check and the insert.
	issues.assets = newMemAssets(availableAsset("held"))

	_, err := svc.Report(context.Background(), aliceActor, reportFor("held"))
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))
	assert.Empty(t, issues.items)
	assert.Equal(t, models.AssetStatusAssigned, assets.get("held").Status)
}

func TestIssueWorkflow(t *testing.T) {
	svc, _, _ := newIssueFixture()
	ctx := context.Background()

	issue, err := svc.Report(ctx, aliceActor, reportFor("held"))
	require.NoError(t, err)

	_, err = svc.StartWork(ctx, aliceActor, issue.ID)
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	started, err := svc.StartWork(ctx, adminActor, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, models.IssueInProgress, started.Status)

	_, err = svc.StartWork(ctx, adminActor, issue.ID)
	assert.True(t, errors.Is(err, appErrors.ErrInvalidTransition))

	resolved, err := svc.Resolve(ctx, adminActor, issue.ID, dto.IssueNotesRequest{Notes: "replaced panel"})
	require.NoError(t, err)
	assert.Equal(t, models.IssueResolved, resolved.Status)
	assert.Equal(t, "admin-1", *resolved.ResolvedBy)
	assert.Equal(t, "replaced panel", *resolved.ResolutionNotes)

	for _, attempt := range []func() error{
		func() error { _, err := svc.Close(ctx, adminActor, issue.ID, dto.IssueNotesRequest{}); return err },
		func() error { _, err := svc.Cancel(ctx, adminActor, issue.ID); return err },
		func() error { _, err := svc.StartWork(ctx, adminActor, issue.ID); return err },
	} {
		assert.True(t, errors.Is(attempt(), appErrors.ErrInvalidTransition), "resolved is terminal")
	}
}

func TestIssueCloseAndCancelFromOpen(t *testing.T) {
	svc, _, _ := newIssueFixture()
	ctx := context.Background()

	first, err := svc.Report(ctx, aliceActor, reportFor("held"))
	require.NoError(t, err)
	closed, err := svc.Close(ctx, adminActor, first.ID, dto.IssueNotesRequest{Notes: "duplicate"})
	require.NoError(t, err)
	assert.Equal(t, models.IssueClosed, closed.Status)

	second, err := svc.Report(ctx, aliceActor, reportFor("held"))
	require.NoError(t, err)
	cancelled, err := svc.Cancel(ctx, adminActor, second.ID)
	require.NoError(t, err)
	assert.Equal(t, models.IssueCancelled, cancelled.Status)
	assert.Nil(t, cancelled.ResolvedBy)

	items, _, err := svc.List(ctx, bobActor, models.IssueReportFilter{})
	require.NoError(t, err)
	assert.Empty(t, items)
	items, _, err = svc.List(ctx, aliceActor, models.IssueReportFilter{})
	require.NoError(t, err)
	assert.Len(t, items, 2)

	_, err = svc.Get(ctx, bobActor, first.ID)
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))
}
