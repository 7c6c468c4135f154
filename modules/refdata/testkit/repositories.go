// Package testkit provides in-memory repository implementations for tests
// and local seeding. They enforce the same invariants the SQL layer does:
// lock-version compare-and-increment and the one-submitted-per-single-owner
// reference constraint.
package testkit

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/JomsTrinidad/master-data-utility/modules/refdata/domain/changerequest"
	"github.com/JomsTrinidad/master-data-utility/modules/refdata/domain/reference"
)

// ErrDuplicateSubmit mimics the partial unique index
// uniq_submitted_cr_single_owner firing.
var ErrDuplicateSubmit = &pgconn.PgError{
	Code:           "23505",
	ConstraintName: "uniq_submitted_cr_single_owner",
}

type MemoryReferenceRepository struct {
	mu    sync.Mutex
	items map[uuid.UUID]*reference.Reference
}

func NewMemoryReferenceRepository() *MemoryReferenceRepository {
	return &MemoryReferenceRepository{items: map[uuid.UUID]*reference.Reference{}}
}

func (m *MemoryReferenceRepository) Create(_ context.Context, r *reference.Reference) (*reference.Reference, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	m.items[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (m *MemoryReferenceRepository) GetByID(_ context.Context, id uuid.UUID) (*reference.Reference, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.items[id]
	if !ok {
		return nil, reference.ErrNotFound
	}
	out := *r
	return &out, nil
}

func (m *MemoryReferenceRepository) GetByName(_ context.Context, name string) (*reference.Reference, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.items {
		if r.Name == name {
			out := *r
			return &out, nil
		}
	}
	return nil, reference.ErrNotFound
}

func (m *MemoryReferenceRepository) List(_ context.Context, f reference.Filter) ([]*reference.Reference, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*reference.Reference
	for _, r := range m.items {
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		if f.Kind != "" && r.Kind != f.Kind {
			continue
		}
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *MemoryReferenceRepository) Update(_ context.Context, r *reference.Reference) (*reference.Reference, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[r.ID]; !ok {
		return nil, reference.ErrNotFound
	}
	cp := *r
	m.items[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (m *MemoryReferenceRepository) SetBaseline(_ context.Context, id uuid.UUID, changeID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.items[id]
	if !ok {
		return reference.ErrNotFound
	}
	cid := changeID
	r.LastApprovedChangeID = &cid
	r.Status = reference.StatusActive
	return nil
}

func (m *MemoryReferenceRepository) UpdateStatus(_ context.Context, id uuid.UUID, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.items[id]
	if !ok {
		return reference.ErrNotFound
	}
	r.Status = status
	return nil
}

type MemoryChangeRequestRepository struct {
	mu           sync.Mutex
	items        map[uuid.UUID]*changerequest.ChangeRequest
	audits       []changerequest.RowAudit
	contributors map[uuid.UUID]map[uuid.UUID]struct{}
	seq          int
}

func NewMemoryChangeRequestRepository() *MemoryChangeRequestRepository {
	return &MemoryChangeRequestRepository{
		items:        map[uuid.UUID]*changerequest.ChangeRequest{},
		contributors: map[uuid.UUID]map[uuid.UUID]struct{}{},
	}
}

func (m *MemoryChangeRequestRepository) clone(cr *changerequest.ChangeRequest) *changerequest.ChangeRequest {
	cp := *cr
	cp.Contributors = nil
	for c := range m.contributors[cr.ID] {
		cp.Contributors = append(cp.Contributors, c)
	}
	return &cp
}

func (m *MemoryChangeRequestRepository) Create(_ context.Context, cr *changerequest.ChangeRequest) (*changerequest.ChangeRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *cr
	m.items[cp.ID] = &cp
	return m.clone(&cp), nil
}

func (m *MemoryChangeRequestRepository) GetByID(_ context.Context, id uuid.UUID) (*changerequest.ChangeRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cr, ok := m.items[id]
	if !ok {
		return nil, changerequest.ErrNotFound
	}
	return m.clone(cr), nil
}

func (m *MemoryChangeRequestRepository) List(_ context.Context, f changerequest.Filter) ([]*changerequest.ChangeRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*changerequest.ChangeRequest
	for _, cr := range m.items {
		if f.ReferenceID != nil && cr.ReferenceID != *f.ReferenceID {
			continue
		}
		if f.Status != "" && cr.Status != f.Status {
			continue
		}
		out = append(out, m.clone(cr))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DisplayID < out[j].DisplayID })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *MemoryChangeRequestRepository) FindSubmitted(_ context.Context, referenceID uuid.UUID) (*changerequest.ChangeRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, cr := range m.items {
		if cr.ReferenceID == referenceID && cr.Status == changerequest.StatusSubmitted {
			return m.clone(cr), nil
		}
	}
	return nil, changerequest.ErrNotFound
}

func (m *MemoryChangeRequestRepository) ListDrafts(_ context.Context, referenceID uuid.UUID) ([]*changerequest.ChangeRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*changerequest.ChangeRequest
	for _, cr := range m.items {
		if cr.ReferenceID == referenceID && cr.Status == changerequest.StatusDraft {
			out = append(out, m.clone(cr))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryChangeRequestRepository) UpdateDraft(_ context.Context, id uuid.UUID, lockVersion int32, upd changerequest.DraftUpdate) (*changerequest.ChangeRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cr, ok := m.items[id]
	if !ok {
		return nil, changerequest.ErrNotFound
	}
	if cr.LockVersion != lockVersion {
		return nil, changerequest.ErrLockConflict
	}
	cr.LockVersion++
	cr.Payload = upd.Payload
	cr.TrackingID = upd.TrackingID
	cr.ChangeReason = upd.ChangeReason
	cr.Category = upd.Category
	cr.OverrideFlag = upd.OverrideFlag
	cr.BulkAddCount += upd.BulkAddDelta
	cr.UpdatedAt = time.Now().UTC()
	return m.clone(cr), nil
}

func (m *MemoryChangeRequestRepository) MarkSubmitted(_ context.Context, id uuid.UUID, lockVersion int32, submittedAt time.Time) (*changerequest.ChangeRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cr, ok := m.items[id]
	if !ok {
		return nil, changerequest.ErrNotFound
	}
	if cr.LockVersion != lockVersion {
		return nil, changerequest.ErrLockConflict
	}
	if cr.Collaboration == changerequest.CollaborationSingleOwner {
		for _, other := range m.items {
			if other.ID != id && other.ReferenceID == cr.ReferenceID &&
				other.Status == changerequest.StatusSubmitted &&
				other.Collaboration == changerequest.CollaborationSingleOwner {
				return nil, ErrDuplicateSubmit
			}
		}
	}
	cr.LockVersion++
	cr.Status = changerequest.StatusSubmitted
	at := submittedAt
	cr.SubmittedAt = &at
	cr.UpdatedAt = submittedAt
	return m.clone(cr), nil
}

func (m *MemoryChangeRequestRepository) MarkDecided(_ context.Context, id uuid.UUID, status string, version *int32, decidedAt time.Time, decidedBySID, note string) (*changerequest.ChangeRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cr, ok := m.items[id]
	if !ok {
		return nil, changerequest.ErrNotFound
	}
	cr.Status = status
	cr.Version = version
	at := decidedAt
	cr.DecidedAt = &at
	cr.DecidedBySID = decidedBySID
	cr.DecisionNote = note
	cr.UpdatedAt = decidedAt
	return m.clone(cr), nil
}

func (m *MemoryChangeRequestRepository) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return changerequest.ErrNotFound
	}
	delete(m.items, id)
	delete(m.contributors, id)
	return nil
}

func (m *MemoryChangeRequestRepository) AddContributor(_ context.Context, id uuid.UUID, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return changerequest.ErrNotFound
	}
	if m.contributors[id] == nil {
		m.contributors[id] = map[uuid.UUID]struct{}{}
	}
	m.contributors[id][userID] = struct{}{}
	return nil
}

func (m *MemoryChangeRequestRepository) NextDisplaySeq(_ context.Context, _ int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	return m.seq, nil
}

func (m *MemoryChangeRequestRepository) CountCreatedOn(_ context.Context, day time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	y, mo, d := day.Date()
	for _, cr := range m.items {
		cy, cm, cd := cr.CreatedAt.Date()
		if cy == y && cm == mo && cd == d {
			n++
		}
	}
	return n, nil
}

func (m *MemoryChangeRequestRepository) MaxApprovedVersion(_ context.Context, referenceID uuid.UUID) (int32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var max int32
	for _, cr := range m.items {
		if cr.ReferenceID == referenceID && cr.Status == changerequest.StatusApproved &&
			cr.Version != nil && *cr.Version > max {
			max = *cr.Version
		}
	}
	return max, nil
}

func (m *MemoryChangeRequestRepository) GetApprovedByVersion(_ context.Context, referenceID uuid.UUID, version int32) (*changerequest.ChangeRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, cr := range m.items {
		if cr.ReferenceID == referenceID && cr.Status == changerequest.StatusApproved &&
			cr.Version != nil && *cr.Version == version {
			return m.clone(cr), nil
		}
	}
	return nil, changerequest.ErrNotFound
}

func (m *MemoryChangeRequestRepository) InsertRowAudits(_ context.Context, audits []changerequest.RowAudit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audits = append(m.audits, audits...)
	return nil
}

func (m *MemoryChangeRequestRepository) ListRowAudits(_ context.Context, changeRequestID uuid.UUID) ([]changerequest.RowAudit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []changerequest.RowAudit
	for _, a := range m.audits {
		if a.ChangeRequestID == changeRequestID {
			out = append(out, a)
		}
	}
	return out, nil
}
