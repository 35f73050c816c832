//go:build !integration

package usecase_test

import (
	"context"
	"sync"
	"time"

	"flash-code/internal/domain"
	"flash-code/internal/domain/model"
	"flash-code/internal/domain/ports/adapter"
	"flash-code/internal/domain/ports/repository"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// --- Transaction manager ---

// MockTxManager runs the callback without a real transaction; the in-memory
// repos below ignore the tx handle anyway.
type MockTxManager struct {
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

func NewMockTxManager() *MockTxManager { return &MockTxManager{} }

func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	return fn(ctx, nil)
}

// --- Activation code repository ---

// MockCodeRepo is an in-memory ActivationCodeRepository. Individual methods
// can be overridden per test via the Func fields.
type MockCodeRepo struct {
	mu    sync.Mutex
	store map[string]*model.ActivationCode // keyed by code string

	InsertFunc        func(ctx context.Context, tx repository.Tx, code *model.ActivationCode) error
	RedeemFunc        func(ctx context.Context, tx repository.Tx, code, userID string, usedAt time.Time) (*model.ActivationCode, error)
	DeleteAllUsedFunc func(ctx context.Context, tx repository.Tx) (int64, error)
}

var _ repository.ActivationCodeRepository = (*MockCodeRepo)(nil)

func NewMockCodeRepo() *MockCodeRepo {
	return &MockCodeRepo{store: make(map[string]*model.ActivationCode)}
}

func (m *MockCodeRepo) Insert(ctx context.Context, tx repository.Tx, code *model.ActivationCode) error {
	if m.InsertFunc != nil {
		return m.InsertFunc(ctx, tx, code)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.store[code.Code]; exists {
		return domain.ErrDuplicateCode
	}
	cp := *code
	m.store[code.Code] = &cp
	return nil
}

func (m *MockCodeRepo) InsertBatch(ctx context.Context, tx repository.Tx, codes []*model.ActivationCode) error {
	// All-or-nothing, like the real repo's transactional batch.
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range codes {
		if _, exists := m.store[c.Code]; exists {
			return domain.ErrDuplicateCode
		}
	}
	for _, c := range codes {
		cp := *c
		m.store[c.Code] = &cp
	}
	return nil
}

func (m *MockCodeRepo) Redeem(ctx context.Context, tx repository.Tx, code, userID string, usedAt time.Time) (*model.ActivationCode, error) {
	if m.RedeemFunc != nil {
		return m.RedeemFunc(ctx, tx, code, userID, usedAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.store[code]
	if !ok || c.IsUsed {
		return nil, domain.ErrInvalidOrUsedCode
	}
	c.IsUsed = true
	c.UsedBy = &userID
	at := usedAt
	c.UsedAt = &at
	cp := *c
	return &cp, nil
}

func (m *MockCodeRepo) FindByCode(ctx context.Context, tx repository.Tx, code string) (*model.ActivationCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.store[code]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *MockCodeRepo) ClaimUnused(ctx context.Context, tx repository.Tx, code string) (*model.ActivationCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.store[code]
	if !ok || c.IsUsed {
		return nil, domain.ErrInvalidOrUsedCode
	}
	cp := *c
	return &cp, nil
}

func (m *MockCodeRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for code, c := range m.store {
		if c.ID == id {
			delete(m.store, code)
			return nil
		}
	}
	return nil
}

func (m *MockCodeRepo) DeleteMany(ctx context.Context, tx repository.Tx, ids []string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	var n int64
	for code, c := range m.store {
		if wanted[c.ID] {
			delete(m.store, code)
			n++
		}
	}
	return n, nil
}

func (m *MockCodeRepo) DeleteAllUsed(ctx context.Context, tx repository.Tx) (int64, error) {
	if m.DeleteAllUsedFunc != nil {
		return m.DeleteAllUsedFunc(ctx, tx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for code, c := range m.store {
		if c.IsUsed {
			delete(m.store, code)
			n++
		}
	}
	return n, nil
}

func (m *MockCodeRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.ActivationCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.ActivationCode, 0, len(m.store))
	for _, c := range m.store {
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}

func (m *MockCodeRepo) CountStats(ctx context.Context, tx repository.Tx) (*repository.CodeStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := &repository.CodeStats{}
	for _, c := range m.store {
		st.Total++
		if c.IsUsed {
			st.Used++
		} else {
			st.Unused++
		}
	}
	return st, nil
}

// --- Profile repository ---

type MockProfileRepo struct {
	mu    sync.Mutex
	store map[string]*model.Profile

	FindByIDFunc func(ctx context.Context, tx repository.Tx, id string) (*model.Profile, error)
	SaveFunc     func(ctx context.Context, tx repository.Tx, p *model.Profile) error
}

var _ repository.ProfileRepository = (*MockProfileRepo)(nil)

func NewMockProfileRepo() *MockProfileRepo {
	return &MockProfileRepo{store: make(map[string]*model.Profile)}
}

func (m *MockProfileRepo) Save(ctx context.Context, tx repository.Tx, p *model.Profile) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tx, p)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.store[p.ID] = &cp
	return nil
}

func (m *MockProfileRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Profile, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, tx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MockProfileRepo) SetActive(ctx context.Context, tx repository.Tx, id string, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.IsActive = active
	return nil
}

func (m *MockProfileRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.Profile, 0, len(m.store))
	for _, p := range m.store {
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

func (m *MockProfileRepo) CountUsers(ctx context.Context, tx repository.Tx) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.store), nil
}

func (m *MockProfileRepo) CountActiveUsers(ctx context.Context, tx repository.Tx) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, p := range m.store {
		if p.IsActive {
			n++
		}
	}
	return n, nil
}

// seedProfile drops a profile straight into the mock store.
func (m *MockProfileRepo) seedProfile(id, email string, isAdmin, isActive bool) *model.Profile {
	p := &model.Profile{
		ID:          id,
		Email:       email,
		DisplayName: model.DisplayNameFromEmail(email),
		IsAdmin:     isAdmin,
		IsActive:    isActive,
		CreatedAt:   time.Now(),
	}
	m.Save(context.Background(), nil, p)
	return p
}

// --- Identity provider ---

type MockIdentity struct {
	AuthenticateFunc  func(ctx context.Context, email, password string) (*adapter.Account, error)
	CreateAccountFunc func(ctx context.Context, email, password, displayName string) (*adapter.Account, error)
	EndSessionFunc    func(ctx context.Context, accountID string) error

	EndedSessions []string
}

var _ adapter.IdentityProvider = (*MockIdentity)(nil)

func NewMockIdentity() *MockIdentity { return &MockIdentity{} }

func (m *MockIdentity) Authenticate(ctx context.Context, email, password string) (*adapter.Account, error) {
	if m.AuthenticateFunc != nil {
		return m.AuthenticateFunc(ctx, email, password)
	}
	return &adapter.Account{ID: "account-" + email, Email: email}, nil
}

func (m *MockIdentity) CreateAccount(ctx context.Context, email, password, displayName string) (*adapter.Account, error) {
	if m.CreateAccountFunc != nil {
		return m.CreateAccountFunc(ctx, email, password, displayName)
	}
	return &adapter.Account{ID: "account-" + email, Email: email}, nil
}

func (m *MockIdentity) EndSession(ctx context.Context, accountID string) error {
	m.EndedSessions = append(m.EndedSessions, accountID)
	if m.EndSessionFunc != nil {
		return m.EndSessionFunc(ctx, accountID)
	}
	return nil
}
