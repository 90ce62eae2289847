package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"market-edge-engine/internal/apperrors"
	"market-edge-engine/internal/engine/dto"
	"market-edge-engine/internal/engine/repository"
	"market-edge-engine/internal/entity"
	"market-edge-engine/pkg/logger"
)

func testLogger() *logger.Logger {
	l, err := logger.New("error", "console")
	if err != nil {
		panic(err)
	}
	return l
}

type fakeMarketRepo struct {
	mu      sync.Mutex
	markets map[int64]*entity.Market
	nextID  int64
}

func newFakeMarketRepo() *fakeMarketRepo {
	return &fakeMarketRepo{markets: make(map[int64]*entity.Market), nextID: 1}
}

func (r *fakeMarketRepo) Upsert(_ context.Context, market *entity.Market) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.markets {
		if m.Platform == market.Platform && m.PlatformID == market.PlatformID {
			market.ID = m.ID
			m.Status = market.Status
			return nil
		}
	}
	market.ID = r.nextID
	r.nextID++
	clone := *market
	r.markets[market.ID] = &clone
	return nil
}

func (r *fakeMarketRepo) FindByID(_ context.Context, id int64) (*entity.Market, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.markets[id]
	if !ok {
		return nil, fmt.Errorf("market %d: %w", id, apperrors.ErrNotFound)
	}
	clone := *m
	return &clone, nil
}

func (r *fakeMarketRepo) FindByPlatformID(_ context.Context, platform entity.Platform, platformID string) (*entity.Market, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.markets {
		if m.Platform == platform && m.PlatformID == platformID {
			clone := *m
			return &clone, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r *fakeMarketRepo) FindAll(_ context.Context, status entity.MarketStatus) ([]entity.Market, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.Market
	for _, m := range r.markets {
		if status == "" || m.Status == status {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (r *fakeMarketRepo) FindUnresolved(_ context.Context) ([]entity.Market, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.Market
	for _, m := range r.markets {
		if m.Status != entity.MarketStatusResolved {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (r *fakeMarketRepo) MarkResolved(_ context.Context, id int64, outcome bool, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.markets[id]
	if !ok {
		return fmt.Errorf("market %d: %w", id, apperrors.ErrNotFound)
	}
	m.Status = entity.MarketStatusResolved
	m.Outcome = &outcome
	m.UpdatedAt = at
	return nil
}

func (r *fakeMarketRepo) add(m entity.Market) *entity.Market {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m.ID == 0 {
		m.ID = r.nextID
		r.nextID++
	} else if m.ID >= r.nextID {
		r.nextID = m.ID + 1
	}
	r.markets[m.ID] = &m
	return &m
}

type fakeSnapshotRepo struct {
	mu        sync.Mutex
	snapshots []entity.MarketSnapshot
	nextID    int64
}

func newFakeSnapshotRepo() *fakeSnapshotRepo {
	return &fakeSnapshotRepo{nextID: 1}
}

func (r *fakeSnapshotRepo) Create(_ context.Context, snapshot *entity.MarketSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	snapshot.ID = r.nextID
	r.nextID++
	r.snapshots = append(r.snapshots, *snapshot)
	return nil
}

func (r *fakeSnapshotRepo) CreateBatch(_ context.Context, snapshots []entity.MarketSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range snapshots {
		snapshots[i].ID = r.nextID
		r.nextID++
		r.snapshots = append(r.snapshots, snapshots[i])
	}
	return nil
}

func (r *fakeSnapshotRepo) FindLatestByMarket(_ context.Context, marketID int64) (*entity.MarketSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *entity.MarketSnapshot
	for i := range r.snapshots {
		s := &r.snapshots[i]
		if s.MarketID != marketID {
			continue
		}
		if latest == nil || s.CapturedAt.After(latest.CapturedAt) {
			latest = s
		}
	}
	if latest == nil {
		return nil, fmt.Errorf("market %d: %w", marketID, apperrors.ErrNoData)
	}
	clone := *latest
	return &clone, nil
}

func (r *fakeSnapshotRepo) FindByMarket(_ context.Context, marketID int64, limit int) ([]entity.MarketSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.MarketSnapshot
	for _, s := range r.snapshots {
		if s.MarketID == marketID {
			out = append(out, s)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeEstimateRepo struct {
	mu        sync.Mutex
	estimates []entity.AIEstimate
	nextID    int64
}

func newFakeEstimateRepo() *fakeEstimateRepo {
	return &fakeEstimateRepo{nextID: 1}
}

func (r *fakeEstimateRepo) Create(_ context.Context, estimate *entity.AIEstimate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	estimate.ID = r.nextID
	r.nextID++
	r.estimates = append(r.estimates, *estimate)
	return nil
}

func (r *fakeEstimateRepo) FindLatestByMarket(_ context.Context, marketID int64) (*entity.AIEstimate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *entity.AIEstimate
	for i := range r.estimates {
		e := &r.estimates[i]
		if e.MarketID != marketID {
			continue
		}
		if latest == nil || e.CreatedAt.After(latest.CreatedAt) {
			latest = e
		}
	}
	if latest == nil {
		return nil, fmt.Errorf("market %d has no estimate: %w", marketID, apperrors.ErrNotFound)
	}
	clone := *latest
	return &clone, nil
}

func (r *fakeEstimateRepo) FindByMarket(_ context.Context, marketID int64) ([]entity.AIEstimate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.AIEstimate
	for _, e := range r.estimates {
		if e.MarketID == marketID {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakeRecommendationRepo struct {
	mu     sync.Mutex
	recs   []entity.Recommendation
	nextID int64
}

func newFakeRecommendationRepo() *fakeRecommendationRepo {
	return &fakeRecommendationRepo{nextID: 1}
}

func (r *fakeRecommendationRepo) CreateExclusive(_ context.Context, rec *entity.Recommendation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.recs {
		prior := &r.recs[i]
		if prior.MarketID == rec.MarketID && prior.Status == entity.RecommendationStatusActive {
			prior.Status = entity.RecommendationStatusExpired
		}
	}
	rec.ID = r.nextID
	r.nextID++
	r.recs = append(r.recs, *rec)
	return nil
}

func (r *fakeRecommendationRepo) ResolveForMarket(_ context.Context, marketID int64, outcome bool, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var target *entity.Recommendation
	for i := range r.recs {
		rec := &r.recs[i]
		if rec.MarketID != marketID {
			continue
		}
		if rec.Status == entity.RecommendationStatusActive {
			target = rec
			break
		}
		if target == nil || rec.CreatedAt.After(target.CreatedAt) {
			target = rec
		}
	}
	if target == nil {
		return nil
	}
	target.Status = entity.RecommendationStatusResolved
	target.Outcome = &outcome
	target.ResolvedAt = &at
	return nil
}

func (r *fakeRecommendationRepo) FindByID(_ context.Context, id int64) (*entity.Recommendation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.recs {
		if rec.ID == id {
			clone := rec
			return &clone, nil
		}
	}
	return nil, fmt.Errorf("recommendation %d: %w", id, apperrors.ErrNotFound)
}

func (r *fakeRecommendationRepo) FindActiveByMarket(_ context.Context, marketID int64) (*entity.Recommendation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.recs {
		if rec.MarketID == marketID && rec.Status == entity.RecommendationStatusActive {
			clone := rec
			return &clone, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r *fakeRecommendationRepo) FindAll(_ context.Context, status entity.RecommendationStatus) ([]entity.Recommendation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.Recommendation
	for _, rec := range r.recs {
		if status == "" || rec.Status == status {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *fakeRecommendationRepo) FindResolved(_ context.Context) ([]entity.Recommendation, error) {
	return r.FindAll(nil, entity.RecommendationStatusResolved)
}

func (r *fakeRecommendationRepo) add(rec entity.Recommendation) entity.Recommendation {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec.ID == 0 {
		rec.ID = r.nextID
		r.nextID++
	} else if rec.ID >= r.nextID {
		r.nextID = rec.ID + 1
	}
	r.recs = append(r.recs, rec)
	return rec
}

type fakeScanJobRepo struct {
	mu   sync.Mutex
	jobs map[string]*entity.ScanJob
}

func newFakeScanJobRepo() *fakeScanJobRepo {
	return &fakeScanJobRepo{jobs: make(map[string]*entity.ScanJob)}
}

func (r *fakeScanJobRepo) Create(_ context.Context, job *entity.ScanJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *job
	r.jobs[job.ID] = &clone
	return nil
}

func (r *fakeScanJobRepo) Update(_ context.Context, job *entity.ScanJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *job
	r.jobs[job.ID] = &clone
	return nil
}

func (r *fakeScanJobRepo) FindLatest(_ context.Context) (*entity.ScanJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *entity.ScanJob
	for _, job := range r.jobs {
		if latest == nil || job.StartedAt.After(latest.StartedAt) {
			latest = job
		}
	}
	if latest == nil {
		return nil, nil
	}
	clone := *latest
	return &clone, nil
}

func (r *fakeScanJobRepo) FindNonTerminal(_ context.Context) (*entity.ScanJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, job := range r.jobs {
		if !job.Phase.Terminal() {
			clone := *job
			return &clone, nil
		}
	}
	return nil, nil
}

type fakeTradeRepo struct {
	mu     sync.Mutex
	trades map[int64]*entity.Trade
	nextID int64
}

func newFakeTradeRepo() *fakeTradeRepo {
	return &fakeTradeRepo{trades: make(map[int64]*entity.Trade), nextID: 1}
}

func (r *fakeTradeRepo) Create(_ context.Context, trade *entity.Trade) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	trade.ID = r.nextID
	r.nextID++
	clone := *trade
	r.trades[trade.ID] = &clone
	return nil
}

func (r *fakeTradeRepo) FindByID(_ context.Context, id int64) (*entity.Trade, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.trades[id]
	if !ok {
		return nil, fmt.Errorf("trade %d: %w", id, apperrors.ErrNotFound)
	}
	clone := *t
	return &clone, nil
}

func (r *fakeTradeRepo) FindAll(_ context.Context, status entity.TradeStatus) ([]entity.Trade, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.Trade
	for _, t := range r.trades {
		if status == "" || t.Status == status {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (r *fakeTradeRepo) FindClosed(_ context.Context) ([]entity.Trade, error) {
	return r.FindAll(nil, entity.TradeStatusClosed)
}

func (r *fakeTradeRepo) Close(_ context.Context, id int64, exitPrice, pnl float64, fees *float64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.trades[id]
	if !ok {
		return fmt.Errorf("trade %d: %w", id, apperrors.ErrNotFound)
	}
	if t.Status != entity.TradeStatusOpen {
		return apperrors.ErrConflict
	}
	t.Status = entity.TradeStatusClosed
	t.ExitPrice = &exitPrice
	t.PnL = &pnl
	t.Fees = fees
	t.ClosedAt = &at
	return nil
}

func (r *fakeTradeRepo) add(t entity.Trade) entity.Trade {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t.ID == 0 {
		t.ID = r.nextID
		r.nextID++
	} else if t.ID >= r.nextID {
		r.nextID = t.ID + 1
	}
	clone := t
	r.trades[t.ID] = &clone
	return t
}

type fakeSettingsRepo struct {
	mu       sync.Mutex
	settings entity.EngineSettings
}

func newFakeSettingsRepo(settings *entity.EngineSettings) *fakeSettingsRepo {
	return &fakeSettingsRepo{settings: *settings}
}

func (r *fakeSettingsRepo) Get(_ context.Context) (*entity.EngineSettings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := r.settings
	return &clone, nil
}

func (r *fakeSettingsRepo) Save(_ context.Context, settings *entity.EngineSettings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settings = *settings
	return nil
}

// fakeLocker hands out locks from process memory; set held to simulate
// another holder.
type fakeLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{held: make(map[string]bool)}
}

func (l *fakeLocker) Acquire(_ context.Context, key string, _ time.Duration) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] {
		return nil, apperrors.ErrLockHeld
	}
	l.held[key] = true
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, key)
	}, nil
}

type fakeEstimator struct {
	mu     sync.Mutex
	result *dto.EstimateResult
	err    error
	delay  time.Duration
	calls  int
}

func (e *fakeEstimator) Estimate(ctx context.Context, _ *entity.Market, _ int) (*dto.EstimateResult, error) {
	e.mu.Lock()
	e.calls++
	err, result, delay := e.err, e.result, e.delay
	e.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	clone := *result
	return &clone, nil
}

func (e *fakeEstimator) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

type fakeNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *fakeNotifier) SendMessage(text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, text)
	return nil
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.messages)
}

type fakeSource struct {
	platform  entity.Platform
	markets   []entity.Market
	snapshots []entity.MarketSnapshot
	err       error
}

func (s *fakeSource) Platform() entity.Platform { return s.platform }

func (s *fakeSource) FetchMarkets(_ context.Context, limit int) ([]entity.Market, []entity.MarketSnapshot, error) {
	if s.err != nil {
		return nil, nil, s.err
	}
	n := len(s.markets)
	if limit > 0 && limit < n {
		n = limit
	}
	markets := make([]entity.Market, n)
	snapshots := make([]entity.MarketSnapshot, n)
	copy(markets, s.markets[:n])
	copy(snapshots, s.snapshots[:n])
	return markets, snapshots, nil
}

func (s *fakeSource) FetchResolution(_ context.Context, platformID string) (*bool, error) {
	return nil, nil
}

type fakeGateway struct {
	execution *dto.TradeExecution
	err       error
}

func (g *fakeGateway) ExecuteTrade(_ context.Context, _ *entity.Recommendation, _ float64) (*dto.TradeExecution, error) {
	if g.err != nil {
		return nil, g.err
	}
	clone := *g.execution
	return &clone, nil
}

var _ repository.MarketRepository = (*fakeMarketRepo)(nil)
var _ repository.MarketSnapshotRepository = (*fakeSnapshotRepo)(nil)
var _ repository.AIEstimateRepository = (*fakeEstimateRepo)(nil)
var _ repository.RecommendationRepository = (*fakeRecommendationRepo)(nil)
var _ repository.ScanJobRepository = (*fakeScanJobRepo)(nil)
var _ repository.TradeRepository = (*fakeTradeRepo)(nil)
var _ repository.EngineSettingsRepository = (*fakeSettingsRepo)(nil)
var _ repository.MarketSourceRepository = (*fakeSource)(nil)
var _ repository.TradeGatewayRepository = (*fakeGateway)(nil)
var _ repository.EstimatorRepository = (*fakeEstimator)(nil)
