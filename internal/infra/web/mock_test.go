//go:build !integration

package web

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"template-market/internal/domain"
	"template-market/internal/domain/model"
	"template-market/internal/domain/ports/repository"
)

// --- Mock Repositories (Ports) ---

type mockCodeRepo struct {
	mu    sync.Mutex
	codes map[string]*model.AccessCode // by ID

	ConsumeError error // to simulate store failures
}

func newMockCodeRepo() *mockCodeRepo {
	return &mockCodeRepo{codes: make(map[string]*model.AccessCode)}
}

func (m *mockCodeRepo) put(c *model.AccessCode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	cp := *c
	m.codes[c.ID] = &cp
}

func (m *mockCodeRepo) Save(ctx context.Context, tx repository.Tx, code *model.AccessCode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if code.ID == "" {
		code.ID = uuid.NewString()
	}
	for id, c := range m.codes {
		if c.Code == code.Code && id != code.ID {
			return domain.ErrAlreadyExists
		}
	}
	cp := *code
	if prev, ok := m.codes[code.ID]; ok {
		cp.UsedCount = prev.UsedCount
	}
	m.codes[code.ID] = &cp
	return nil
}

func (m *mockCodeRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.AccessCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.codes[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *mockCodeRepo) FindByCode(ctx context.Context, tx repository.Tx, code string) (*model.AccessCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.codes {
		if c.Code == code {
			cp := *c
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockCodeRepo) List(ctx context.Context, tx repository.Tx, includeRetired bool) ([]*model.AccessCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.AccessCode
	for _, c := range m.codes {
		if !includeRetired && c.RetiredAt != nil {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}

func (m *mockCodeRepo) ConsumeUse(ctx context.Context, tx repository.Tx, code string, now time.Time) (*model.AccessCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ConsumeError != nil {
		return nil, m.ConsumeError
	}
	for _, c := range m.codes {
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

func (m *mockCodeRepo) Retire(ctx context.Context, tx repository.Tx, id string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.codes[id]
	if !ok || c.RetiredAt != nil || c.IsLongTerm {
		return false, nil
	}
	if !c.Expired(now) && !c.Exhausted() {
		return false, nil
	}
	t := now
	c.RetiredAt = &t
	return true, nil
}

func (m *mockCodeRepo) SweepExpired(ctx context.Context, tx repository.Tx, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.codes {
		if c.RetiredAt == nil && !c.IsLongTerm && c.Expired(now) {
			t := now
			c.RetiredAt = &t
			n++
		}
	}
	return n, nil
}

func (m *mockCodeRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.codes[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.codes, id)
	return nil
}

type mockAttemptRepo struct {
	mu   sync.Mutex
	rows []*model.RedemptionAttempt
}

func (m *mockAttemptRepo) Append(ctx context.Context, tx repository.Tx, attempt *model.RedemptionAttempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *attempt
	m.rows = append(m.rows, &cp)
	return nil
}

func (m *mockAttemptRepo) Query(ctx context.Context, tx repository.Tx, f repository.RedemptionLogFilter) ([]*model.RedemptionAttempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.RedemptionAttempt
	for i := len(m.rows) - 1; i >= 0; i-- {
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
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

type mockTemplateRepo struct {
	mu        sync.Mutex
	templates map[string]*model.Template
}

func newMockTemplateRepo() *mockTemplateRepo {
	return &mockTemplateRepo{templates: make(map[string]*model.Template)}
}

func (m *mockTemplateRepo) Save(ctx context.Context, tx repository.Tx, t *model.Template) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	cp := *t
	m.templates[t.ID] = &cp
	return nil
}

func (m *mockTemplateRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Template, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.templates[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *mockTemplateRepo) List(ctx context.Context, tx repository.Tx, activeOnly bool) ([]*model.Template, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Template
	for _, t := range m.templates {
		if activeOnly && !t.IsActive {
			continue
		}
		cp := *t
		out = append(out, &cp)
	}
	return out, nil
}

func (m *mockTemplateRepo) IncrementUsage(ctx context.Context, tx repository.Tx, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.templates[id]
	if !ok {
		return domain.ErrNotFound
	}
	t.UsageCount++
	return nil
}

func (m *mockTemplateRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.templates[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.templates, id)
	return nil
}

// --- Fake rate limiters ---

type allowAllLimiter struct{}

func (allowAllLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	return true, nil
}

type denyLimiter struct{}

func (denyLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	return false, nil
}

type brokenLimiter struct{}

func (brokenLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	return false, context.DeadlineExceeded
}
