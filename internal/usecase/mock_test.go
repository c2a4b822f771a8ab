//go:build !integration

package usecase_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/last9death/maturmarket/internal/config"
	"github.com/last9death/maturmarket/internal/domain"
	"github.com/last9death/maturmarket/internal/domain/model"
	"github.com/last9death/maturmarket/internal/domain/ports/adapter"
	"github.com/last9death/maturmarket/internal/domain/ports/repository"
	"github.com/last9death/maturmarket/internal/infra/ratelimit"
)

// -----------------------------
// Utilities
// -----------------------------

func testLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// testSite returns shop settings with politeness delays off so tests run fast.
func testSite() *config.SiteConfig {
	return &config.SiteConfig{
		BaseURL:        "https://maturmarket.ru",
		RequestTimeout: time.Second,
		CacheTTL:       90 * time.Second,
		MinDelay:       0,
		MaxDelay:       0,
	}
}

func testLimits() *config.LimitsConfig {
	return &config.LimitsConfig{UserPerHour: 30, DomainPerMinute: 60}
}

// =============================
// Adapters
// =============================

// ---- Mock SiteFetcher ----

type MockFetcher struct {
	mu    sync.Mutex
	Pages map[string]*adapter.FetchResult
	Calls []string

	FetchFunc func(ctx context.Context, url string) (*adapter.FetchResult, error)
}

var _ adapter.SiteFetcher = (*MockFetcher)(nil)

func NewMockFetcher() *MockFetcher {
	return &MockFetcher{Pages: map[string]*adapter.FetchResult{}}
}

// SetHTML registers a 200 response for url.
func (m *MockFetcher) SetHTML(url, html string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Pages[url] = &adapter.FetchResult{StatusCode: 200, Body: []byte(html), FinalURL: url}
}

func (m *MockFetcher) SetStatus(url string, status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Pages[url] = &adapter.FetchResult{StatusCode: status, FinalURL: url}
}

func (m *MockFetcher) Fetch(ctx context.Context, url string) (*adapter.FetchResult, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, url)
	m.mu.Unlock()
	if m.FetchFunc != nil {
		return m.FetchFunc(ctx, url)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if res, ok := m.Pages[url]; ok {
		return res, nil
	}
	return &adapter.FetchResult{StatusCode: 404, FinalURL: url}, nil
}

func (m *MockFetcher) CallCount(url string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.Calls {
		if c == url {
			n++
		}
	}
	return n
}

func (m *MockFetcher) TotalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// ---- Mock Limiter ----

type MockLimiter struct {
	mu     sync.Mutex
	Keys   []string
	Denied map[string]bool

	AllowFunc func(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

var _ ratelimit.Limiter = (*MockLimiter)(nil)

func NewMockLimiter() *MockLimiter {
	return &MockLimiter{Denied: map[string]bool{}}
}

func (m *MockLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	m.mu.Lock()
	m.Keys = append(m.Keys, key)
	m.mu.Unlock()
	if m.AllowFunc != nil {
		return m.AllowFunc(ctx, key, limit, window)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.Denied[key], nil
}

// =============================
// Repositories
// =============================

// ---- Mock UserRepository ----

type MockUserRepo struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]*model.User
	byTG   map[int64]*model.User
}

var _ repository.UserRepository = (*MockUserRepo)(nil)

func NewMockUserRepo() *MockUserRepo {
	return &MockUserRepo{byID: map[int64]*model.User{}, byTG: map[int64]*model.User{}}
}

func (r *MockUserRepo) Save(ctx context.Context, u *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.byTG[u.TelegramID]; ok {
		*u = *existing
		return nil
	}
	r.nextID++
	u.ID = r.nextID
	cp := *u
	r.byID[cp.ID] = &cp
	r.byTG[cp.TelegramID] = &cp
	return nil
}

func (r *MockUserRepo) FindByTelegramID(ctx context.Context, tgID int64) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.byTG[tgID]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockUserRepo) FindByID(ctx context.Context, id int64) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.byID[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockUserRepo) Count(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID), nil
}

// ---- Mock WatchRepository ----

type MockWatchRepo struct {
	mu     sync.Mutex
	nextID int64
	items  map[int64]*model.Watch
}

var _ repository.WatchRepository = (*MockWatchRepo)(nil)

func NewMockWatchRepo() *MockWatchRepo {
	return &MockWatchRepo{items: map[int64]*model.Watch{}}
}

func (r *MockWatchRepo) Add(ctx context.Context, w *model.Watch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	w.ID = r.nextID
	w.Active = true
	cp := *w
	r.items[cp.ID] = &cp
	return nil
}

func (r *MockWatchRepo) ListActiveByUser(ctx context.Context, userID int64) ([]*model.Watch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Watch
	for _, w := range r.items {
		if w.Active && w.UserID == userID {
			cp := *w
			out = append(out, &cp)
		}
	}
	sortWatches(out)
	return out, nil
}

func (r *MockWatchRepo) ListActive(ctx context.Context) ([]*model.Watch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Watch
	for _, w := range r.items {
		if w.Active {
			cp := *w
			out = append(out, &cp)
		}
	}
	sortWatches(out)
	return out, nil
}

func (r *MockWatchRepo) Deactivate(ctx context.Context, userID, watchID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.items[watchID]
	if !ok || !w.Active || w.UserID != userID {
		return domain.ErrWatchNotFound
	}
	w.Active = false
	return nil
}

func (r *MockWatchRepo) UpdateStatus(ctx context.Context, watchID int64, status model.AvailabilityStatus, price *float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.items[watchID]
	if !ok {
		return domain.ErrWatchNotFound
	}
	w.LastStatus = status
	w.LastPrice = price
	return nil
}

func (r *MockWatchRepo) UpdateNotifiedStatus(ctx context.Context, watchID int64, status model.AvailabilityStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.items[watchID]
	if !ok {
		return domain.ErrWatchNotFound
	}
	w.LastNotifiedStatus = status
	return nil
}

func (r *MockWatchRepo) CountActive(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, w := range r.items {
		if w.Active {
			n++
		}
	}
	return n, nil
}

// Get returns the stored watch for assertions.
func (r *MockWatchRepo) Get(id int64) *model.Watch {
	r.mu.Lock()
	defer r.mu.Unlock()
	if w, ok := r.items[id]; ok {
		cp := *w
		return &cp
	}
	return nil
}

func sortWatches(ws []*model.Watch) {
	sort.Slice(ws, func(i, j int) bool { return ws[i].ID < ws[j].ID })
}

// ---- Mock ProductCacheRepository ----

type MockProductCacheRepo struct {
	mu    sync.Mutex
	items map[string]*model.Product
}

var _ repository.ProductCacheRepository = (*MockProductCacheRepo)(nil)

func NewMockProductCacheRepo() *MockProductCacheRepo {
	return &MockProductCacheRepo{items: map[string]*model.Product{}}
}

func (r *MockProductCacheRepo) Upsert(ctx context.Context, p *model.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.items[cp.URL] = &cp
	return nil
}

func (r *MockProductCacheRepo) Find(ctx context.Context, url string) (*model.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.items[url]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockProductCacheRepo) Count(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items), nil
}

// ---- Mock ScanRunRepository ----

type MockScanRunRepo struct {
	mu   sync.Mutex
	runs map[string]*model.ScanRun
}

var _ repository.ScanRunRepository = (*MockScanRunRepo)(nil)

func NewMockScanRunRepo() *MockScanRunRepo {
	return &MockScanRunRepo{runs: map[string]*model.ScanRun{}}
}

func (r *MockScanRunRepo) Save(ctx context.Context, run *model.ScanRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *run
	r.runs[cp.ID] = &cp
	return nil
}

func (r *MockScanRunRepo) FindLatest(ctx context.Context) (*model.ScanRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *model.ScanRun
	for _, run := range r.runs {
		if latest == nil || run.StartedAt.After(latest.StartedAt) {
			latest = run
		}
	}
	if latest == nil {
		return nil, domain.ErrNotFound
	}
	cp := *latest
	return &cp, nil
}
