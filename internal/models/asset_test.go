package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLifecycleTransitions(t *testing.T) {
	cases := []struct {
		action LifecycleAction
		from   AssetStatus
		to     AssetStatus
		ok     bool
	}{
		{ActionAssign, AssetStatusAvailable, AssetStatusAssigned, true},
		{ActionAssign, AssetStatusAssigned, AssetStatusAssigned, false},
		{ActionAssign, AssetStatusInRepair, AssetStatusInRepair, false},
		{ActionAssign, AssetStatusRetired, AssetStatusRetired, false},
		{ActionReturn, AssetStatusAssigned, AssetStatusAvailable, true},
		{ActionReturn, AssetStatusAvailable, AssetStatusAvailable, false},
		{ActionTransfer, AssetStatusAssigned, AssetStatusAssigned, true},
		{ActionRepair, AssetStatusAvailable, AssetStatusInRepair, true},
		{ActionRepair, AssetStatusAssigned, AssetStatusAssigned, false},
		{ActionRestore, AssetStatusInRepair, AssetStatusAvailable, true},
		{ActionRetire, AssetStatusInRepair, AssetStatusRetired, true},
		{ActionRetire, AssetStatusRetired, AssetStatusRetired, false},
	}
	for _, tc := range cases {
		next, ok := tc.action.Transition(tc.from)
		assert.Equal(t, tc.ok, ok, "%s from %s", tc.action, tc.from)
		assert.Equal(t, tc.to, next, "%s from %s", tc.action, tc.from)
	}
}

func TestAssetAssignmentConsistent(t *testing.T) {
	user := "u-1"
	empty := ""

	assert.True(t, Asset{Status: AssetStatusAvailable}.AssignmentConsistent())
	assert.True(t, Asset{Status: AssetStatusAssigned, AssignedTo: &user}.AssignmentConsistent())
	assert.False(t, Asset{Status: AssetStatusAssigned}.AssignmentConsistent())
	assert.False(t, Asset{Status: AssetStatusAssigned, AssignedTo: &empty}.AssignmentConsistent())
	assert.False(t, Asset{Status: AssetStatusInRepair, AssignedTo: &user}.AssignmentConsistent())

	assert.True(t, Asset{Status: AssetStatusAssigned, AssignedTo: &user}.IsAssignedTo("u-1"))
	assert.False(t, Asset{Status: AssetStatusAssigned, AssignedTo: &user}.IsAssignedTo("u-2"))
}

func TestRequestAndIssueWorkflows(t *testing.T) {
	assert.True(t, RequestPending.CanTransitionTo(RequestApproved))
	assert.True(t, RequestApproved.CanTransitionTo(RequestFulfilled))
	assert.False(t, RequestApproved.CanTransitionTo(RequestCancelled))
	assert.False(t, RequestDenied.CanTransitionTo(RequestApproved))
	for next, want := range map[RequestStatus]RequestStatus{
		RequestApproved:  RequestPending,
		RequestDenied:    RequestPending,
		RequestCancelled: RequestPending,
		RequestFulfilled: RequestApproved,
	} {
		from, ok := RequestSourceFor(next)
		assert.True(t, ok, next)
		assert.Equal(t, want, from, next)
	}
	_, ok := RequestSourceFor(RequestPending)
	assert.False(t, ok)

	assert.True(t, IssueOpen.CanTransitionTo(IssueResolved))
	assert.True(t, IssueInProgress.CanTransitionTo(IssueClosed))
	assert.False(t, IssueInProgress.CanTransitionTo(IssueInProgress))
	assert.False(t, IssueResolved.CanTransitionTo(IssueClosed))
	assert.ElementsMatch(t, []IssueStatus{IssueOpen}, SourcesFor(IssueInProgress))
	assert.ElementsMatch(t, []IssueStatus{IssueOpen, IssueInProgress}, SourcesFor(IssueResolved))

	assert.Equal(t, MaintenancePending, MaintenanceOverdueLegacy.Normalize())
	assert.Equal(t, MaintenanceCompleted, MaintenanceCompleted.Normalize())
}
