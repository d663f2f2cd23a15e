// File: internal/usecase/mocks_test.go
package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"template-market/internal/domain"
	"template-market/internal/domain/model"
	"template-market/internal/domain/ports/repository"
)

func testLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// memCodeRepo is a small in-memory implementation used by unit tests. Its
// ConsumeUse honors the same contract as the Postgres repository: the
// validity checks and the increment happen under one lock, so concurrent
// callers observe an atomic conditional update.
type memCodeRepo struct {
	mu    sync.Mutex
	store map[string]*model.AccessCode // by ID

	lookups    int   // FindByCode + ConsumeUse calls, to assert malformed input never reaches the store
	consumeErr error // used by tests to simulate store failures
	saveErr    error
}

func newMemCodeRepo() *memCodeRepo {
	return &memCodeRepo{store: make(map[string]*model.AccessCode)}
}

func (m *memCodeRepo) put(c *model.AccessCode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	cp := *c
	m.store[c.ID] = &cp
}

func (m *memCodeRepo) get(id string) *model.AccessCode {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.store[id]
	if !ok {
		return nil
	}
	cp := *c
	return &cp
}

func (m *memCodeRepo) lookupCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lookups
}

func (m *memCodeRepo) Save(ctx context.Context, tx repository.Tx, code *model.AccessCode) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if code.ID == "" {
		code.ID = uuid.NewString()
	}
	for id, c := range m.store {
		if c.Code == code.Code && id != code.ID {
			return domain.ErrAlreadyExists
		}
	}
	cp := *code
	if prev, ok := m.store[code.ID]; ok {
		cp.UsedCount = prev.UsedCount // owned by ConsumeUse
	}
	m.store[code.ID] = &cp
	return nil
}

func (m *memCodeRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.AccessCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memCodeRepo) FindByCode(ctx context.Context, tx repository.Tx, code string) (*model.AccessCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups++
	for _, c := range m.store {
		if c.Code == code {
			cp := *c
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memCodeRepo) List(ctx context.Context, tx repository.Tx, includeRetired bool) ([]*model.AccessCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.AccessCode
	for _, c := range m.store {
		if !includeRetired && c.RetiredAt != nil {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memCodeRepo) ConsumeUse(ctx context.Context, tx repository.Tx, code string, now time.Time) (*model.AccessCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups++
	if m.consumeErr != nil {
		return nil, m.consumeErr
	}
	for _, c := range m.store {
		if c.Code != code {
			continue
		}
		if !c.IsActive || c.Expired(now) || c.Exhausted() {
			return nil, domain.ErrNotFound
		}
		c.UsedCount++
		cp := *c
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memCodeRepo) Retire(ctx context.Context, tx repository.Tx, id string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.store[id]
	if !ok {
		return false, nil
	}
	if c.RetiredAt != nil || c.IsLongTerm {
		return false, nil
	}
	if !c.Expired(now) && !c.Exhausted() {
		return false, nil
	}
	t := now
	c.RetiredAt = &t
	return true, nil
}

func (m *memCodeRepo) SweepExpired(ctx context.Context, tx repository.Tx, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.store {
		if c.RetiredAt == nil && !c.IsLongTerm && c.Expired(now) {
			t := now
			c.RetiredAt = &t
			n++
		}
	}
	return n, nil
}

func (m *memCodeRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.store, id)
	return nil
}

// memAttemptRepo collects audit rows in memory.
type memAttemptRepo struct {
	mu        sync.Mutex
	rows      []*model.RedemptionAttempt
	appendErr error // used by tests to simulate audit failures
}

func newMemAttemptRepo() *memAttemptRepo {
	return &memAttemptRepo{}
}

func (m *memAttemptRepo) Append(ctx context.Context, tx repository.Tx, attempt *model.RedemptionAttempt) error {
	if m.appendErr != nil {
		return m.appendErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *attempt
	m.rows = append(m.rows, &cp)
	return nil
}

func (m *memAttemptRepo) Query(ctx context.Context, tx repository.Tx, f repository.RedemptionLogFilter) ([]*model.RedemptionAttempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.RedemptionAttempt
	for i := len(m.rows) - 1; i >= 0; i-- { // newest first
		a := m.rows[i]
		if f.CodeID != "" && (a.CodeID == nil || *a.CodeID != f.CodeID) {
			continue
		}
		if f.SubjectID != "" && a.SubjectID != f.SubjectID {
			continue
		}
		if f.Outcome != nil && a.Outcome != *f.Outcome {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return nil, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *memAttemptRepo) all() []*model.RedemptionAttempt {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.RedemptionAttempt, len(m.rows))
	copy(out, m.rows)
	return out
}

// memTemplateRepo provides in-memory templates for tests.
type memTemplateRepo struct {
	mu    sync.Mutex
	store map[string]*model.Template
}

func newMemTemplateRepo() *memTemplateRepo {
	return &memTemplateRepo{store: make(map[string]*model.Template)}
}

func (m *memTemplateRepo) Save(ctx context.Context, tx repository.Tx, t *model.Template) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	cp := *t
	m.store[t.ID] = &cp
	return nil
}

func (m *memTemplateRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Template, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memTemplateRepo) List(ctx context.Context, tx repository.Tx, activeOnly bool) ([]*model.Template, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Template
	for _, t := range m.store {
		if activeOnly && !t.IsActive {
			continue
		}
		cp := *t
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memTemplateRepo) IncrementUsage(ctx context.Context, tx repository.Tx, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.store[id]
	if !ok {
		return domain.ErrNotFound
	}
	t.UsageCount++
	return nil
}

func (m *memTemplateRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.store, id)
	return nil
}
