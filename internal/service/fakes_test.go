package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/noah-isme/asset-desk-api/internal/models"
	"github.com/noah-isme/asset-desk-api/internal/repository"
	"github.com/noah-isme/asset-desk-api/pkg/events"
)

var fixedNow = time.Date(2024, 6, 15, 9, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

var (
	adminActor = &models.Actor{UserID: "admin-1", Role: models.RoleAdmin, Email: "admin@example.com"}
	aliceActor = &models.Actor{UserID: "u-alice", Role: models.RoleUser, Email: "alice@example.com"}
	bobActor   = &models.Actor{UserID: "u-bob", Role: models.RoleUser, Email: "bob@example.com"}
)

// memAssets is an in-memory asset store that honours the compare-and-swap
// contract of the SQL repository.
type memAssets struct {
	mu      sync.Mutex
	seq     int
	assets  map[string]*models.Asset
	ledger  []models.AssetAssignment
	failErr error
	// beforeApply runs inside ApplyTransition before the status check.
	beforeApply func(*memAssets)
}

func newMemAssets(seed ...models.Asset) *memAssets {
	m := &memAssets{assets: map[string]*models.Asset{}}
	for i := range seed {
		a := seed[i]
		m.assets[a.ID] = &a
	}
	return m
}

func (m *memAssets) Create(ctx context.Context, asset *models.Asset, initial *models.AssetAssignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return m.failErr
	}
	m.seq++
	asset.ID = fmt.Sprintf("asset-%d", m.seq)
	cp := *asset
	m.assets[asset.ID] = &cp
	if initial != nil {
		entry := *initial
		entry.AssetID = asset.ID
		m.ledger = append(m.ledger, entry)
	}
	return nil
}

func (m *memAssets) GetByID(ctx context.Context, id string) (*models.Asset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.assets[id]
	if !ok || a.DeletedAt != nil {
		return nil, sql.ErrNoRows
	}
	cp := *a
	return &cp, nil
}

func (m *memAssets) List(ctx context.Context, filter models.AssetFilter) ([]models.Asset, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Asset
	for _, a := range m.assets {
		if a.DeletedAt != nil {
			continue
		}
		if filter.AssignedTo != "" && (a.AssignedTo == nil || *a.AssignedTo != filter.AssignedTo) {
			continue
		}
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (m *memAssets) ListAll(ctx context.Context, filter models.AssetFilter) ([]models.Asset, error) {
	items, _, err := m.List(ctx, filter)
	return items, err
}

func (m *memAssets) Update(ctx context.Context, asset *models.Asset) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.assets[asset.ID]; !ok {
		return sql.ErrNoRows
	}
	cp := *asset
	m.assets[asset.ID] = &cp
	return nil
}

func (m *memAssets) ApplyTransition(ctx context.Context, t repository.AssetTransition) error {
	if m.beforeApply != nil {
		m.beforeApply(m)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.assets[t.AssetID]
	if !ok || a.Status != t.From {
		return repository.ErrConditionFailed
	}
	if t.ExpectedAssignee != nil && (a.AssignedTo == nil || *a.AssignedTo != *t.ExpectedAssignee) {
		return repository.ErrConditionFailed
	}
	a.Status = t.To
	a.AssignedTo = t.AssignedTo
	a.AssignedDate = t.AssignedDate
	a.UpdatedAt = t.At
	entry := t.Entry
	entry.AssetID = t.AssetID
	entry.CreatedAt = t.At
	m.ledger = append(m.ledger, entry)
	return nil
}

func (m *memAssets) SoftDelete(ctx context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.assets[id]
	if !ok || a.DeletedAt != nil || a.Status == models.AssetStatusAssigned {
		return repository.ErrConditionFailed
	}
	a.DeletedAt = &at
	return nil
}

func (m *memAssets) History(ctx context.Context, assetID string) ([]models.AssetAssignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.AssetAssignment
	for i := len(m.ledger) - 1; i >= 0; i-- {
		if m.ledger[i].AssetID == assetID {
			out = append(out, m.ledger[i])
		}
	}
	return out, nil
}

func (m *memAssets) get(id string) models.Asset {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.assets[id]
}

type memUsers struct {
	users map[string]*models.User
}

func newMemUsers(users ...models.User) *memUsers {
	m := &memUsers{users: map[string]*models.User{}}
	for i := range users {
		u := users[i]
		m.users[u.ID] = &u
	}
	return m
}

func (m *memUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *u
	return &cp, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, evt events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return p.err
}

func (p *recordingPublisher) types() []events.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Type, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type recordingAudit struct {
	entries []*models.AuditLog
}

func (a *recordingAudit) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	a.entries = append(a.entries, log)
	return nil
}

func strRef(s string) *string { return &s }
