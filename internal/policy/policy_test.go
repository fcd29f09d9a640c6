package policy

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/asset-desk-api/internal/models"
	appErrors "github.com/noah-isme/asset-desk-api/pkg/errors"
)

func ptr(s string) *string { return &s }

var (
	admin    = &models.Actor{UserID: "admin-1", Role: models.RoleAdmin}
	employee = &models.Actor{UserID: "user-1", Role: models.RoleUser}
)

func TestCanViewAdminSeesEverything(t *testing.T) {
	for _, kind := range []EntityKind{KindUser, KindCategory, KindDepartment, KindAsset, KindMaintenance, KindRequest, KindIssue} {
		assert.True(t, CanView(admin, kind, nil), string(kind))
	}
}

func TestCanViewUserScopedToOwnRows(t *testing.T) {
	mine := &models.Asset{ID: "a-1", Status: models.AssetStatusAssigned, AssignedTo: ptr("user-1")}
	theirs := &models.Asset{ID: "a-2", Status: models.AssetStatusAssigned, AssignedTo: ptr("user-2")}
	unassigned := &models.Asset{ID: "a-3", Status: models.AssetStatusAvailable}

	assert.True(t, CanView(employee, KindAsset, mine))
	assert.False(t, CanView(employee, KindAsset, theirs))
	assert.False(t, CanView(employee, KindAsset, unassigned))

	assert.True(t, CanView(employee, KindCategory, nil))
	assert.True(t, CanView(employee, KindDepartment, nil))
	assert.False(t, CanView(employee, KindMaintenance, &models.Maintenance{}))

	assert.True(t, CanView(employee, KindUser, &models.User{ID: "user-1"}))
	assert.False(t, CanView(employee, KindUser, &models.User{ID: "user-2"}))

	assert.True(t, CanView(employee, KindRequest, &models.AssetRequest{UserID: "user-1"}))
	assert.False(t, CanView(employee, KindRequest, &models.AssetRequest{UserID: "user-2"}))
	assert.True(t, CanView(employee, KindIssue, &models.IssueReport{UserID: "user-1"}))
	assert.False(t, CanView(employee, KindIssue, &models.IssueReport{UserID: "user-2"}))
}

func TestCanViewWithoutActor(t *testing.T) {
	assert.False(t, CanView(nil, KindCategory, nil))
	assert.False(t, CanView(&models.Actor{Role: models.RoleAdmin}, KindCategory, nil))
}

func TestAdminSelfProtection(t *testing.T) {
	self := &models.User{ID: "admin-1", Role: models.RoleAdmin}
	other := &models.User{ID: "user-1", Role: models.RoleUser}

	assert.False(t, CanMutate(admin, KindUser, self, OpUpdate))
	assert.False(t, CanMutate(admin, KindUser, self, OpDelete))
	assert.True(t, CanMutate(admin, KindUser, self, OpUpdateProfile))
	assert.True(t, CanMutate(admin, KindUser, other, OpUpdate))
	assert.True(t, CanMutate(admin, KindUser, other, OpDelete))
}

func TestUserMutations(t *testing.T) {
	assert.True(t, CanMutate(employee, KindUser, &models.User{ID: "user-1"}, OpUpdateProfile))
	assert.False(t, CanMutate(employee, KindUser, &models.User{ID: "user-1"}, OpUpdate))
	assert.False(t, CanMutate(employee, KindUser, &models.User{ID: "user-2"}, OpUpdateProfile))

	assert.False(t, CanMutate(employee, KindCategory, nil, OpCreate))
	assert.False(t, CanMutate(employee, KindDepartment, nil, OpDelete))
	assert.False(t, CanMutate(employee, KindMaintenance, nil, OpCreate))

	assert.True(t, CanMutate(employee, KindAsset, nil, OpCreate))
	assert.False(t, CanMutate(employee, KindAsset, &models.Asset{AssignedTo: ptr("user-1")}, OpTransition))
	assert.False(t, CanMutate(employee, KindAsset, &models.Asset{}, OpDelete))

	assert.True(t, CanMutate(employee, KindRequest, nil, OpCreate))
	assert.True(t, CanMutate(employee, KindRequest, &models.AssetRequest{UserID: "user-1"}, OpCancel))
	assert.False(t, CanMutate(employee, KindRequest, &models.AssetRequest{UserID: "user-2"}, OpCancel))
	assert.False(t, CanMutate(employee, KindRequest, &models.AssetRequest{UserID: "user-1"}, OpDecide))

	assigned := &models.Asset{Status: models.AssetStatusAssigned, AssignedTo: ptr("user-1")}
	assert.True(t, CanMutate(employee, KindIssue, assigned, OpCreate))
	assert.False(t, CanMutate(employee, KindIssue, &models.Asset{Status: models.AssetStatusAssigned, AssignedTo: ptr("user-2")}, OpCreate))
	assert.False(t, CanMutate(employee, KindIssue, &models.IssueReport{UserID: "user-1"}, OpTransition))
}

func TestAuthorizeErrors(t *testing.T) {
	err := Authorize(nil, KindAsset, nil, OpCreate)
	require.True(t, errors.Is(err, appErrors.ErrUnauthorized))

	err = Authorize(employee, KindCategory, nil, OpDelete)
	require.True(t, errors.Is(err, appErrors.ErrForbidden))
	assert.Equal(t, 403, appErrors.FromError(err).Status)

	require.NoError(t, Authorize(admin, KindCategory, nil, OpDelete))
	require.NoError(t, AuthorizeView(employee, KindCategory, nil))
	require.Error(t, AuthorizeView(employee, KindMaintenance, nil))
}

func TestScopeFilters(t *testing.T) {
	f := ScopeAssets(employee, models.AssetFilter{AssignedTo: "user-2"})
	assert.Equal(t, "user-1", f.AssignedTo)

	f = ScopeAssets(admin, models.AssetFilter{AssignedTo: "user-2"})
	assert.Equal(t, "user-2", f.AssignedTo)

	assert.Equal(t, "user-1", ScopeRequests(employee, models.AssetRequestFilter{}).UserID)
	assert.Equal(t, "", ScopeRequests(admin, models.AssetRequestFilter{}).UserID)
	assert.Equal(t, "user-1", ScopeIssues(employee, models.IssueReportFilter{}).UserID)
	assert.Equal(t, "-", ScopeIssues(&models.Actor{Role: models.RoleUser}, models.IssueReportFilter{}).UserID)
}
