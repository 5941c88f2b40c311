package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	auditdomain "github.com/smallbiznis/frontdesk/internal/audit/domain"
	"github.com/smallbiznis/frontdesk/internal/clock"
	"github.com/smallbiznis/frontdesk/internal/observability/metrics"
	pricingdomain "github.com/smallbiznis/frontdesk/internal/pricing/domain"
	roomdomain "github.com/smallbiznis/frontdesk/internal/room/domain"
	settingsdomain "github.com/smallbiznis/frontdesk/internal/settings/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const subscriberBuffer = 1

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Settings settingsdomain.Repository
	Rooms    roomdomain.Repository
	Audit    auditdomain.Service `optional:"true"`
	Clock    clock.Clock         `optional:"true"`
	Metrics  *metrics.Metrics    `optional:"true"`
}

// Service owns the cached pricing snapshot. Reads share the cache; only
// SavePricing, RestoreDefaults and Invalidate replace it.
type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	settings settingsdomain.Repository
	rooms    roomdomain.Repository
	audit    auditdomain.Service
	clock    clock.Clock
	metrics  *metrics.Metrics

	mu     sync.RWMutex
	cached *pricingdomain.PricingConfig

	version atomic.Uint64

	subMu   sync.Mutex
	nextSub int
	subs    map[int]chan pricingdomain.Change
}

func NewService(p Params) pricingdomain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("pricing.service"),
		settings: p.Settings,
		rooms:    p.Rooms,
		audit:    p.Audit,
		clock:    clk,
		metrics:  p.Metrics,
		subs:     make(map[int]chan pricingdomain.Change),
	}
}

func (s *Service) GetCurrentPricing(ctx context.Context) (pricingdomain.PricingConfig, error) {
	s.mu.RLock()
	if s.cached != nil {
		cfg := *s.cached
		s.mu.RUnlock()
		return cfg, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cached != nil {
		return *s.cached, nil
	}

	values, err := s.settings.GetAll(ctx, s.db, pricingdomain.Keys())
	if err != nil {
		return pricingdomain.PricingConfig{}, fmt.Errorf("load pricing settings: %w", err)
	}
	cfg, err := pricingdomain.FromSettings(values)
	if err != nil {
		return pricingdomain.PricingConfig{}, err
	}
	if err := cfg.Validate(); err != nil {
		return pricingdomain.PricingConfig{}, err
	}

	s.cached = &cfg
	s.log.Debug("pricing loaded", zap.Int("stored_keys", len(values)))
	return cfg, nil
}

func (s *Service) SavePricing(ctx context.Context, cfg pricingdomain.PricingConfig, actor auditdomain.Actor) (pricingdomain.PricingConfig, error) {
	return s.save(ctx, cfg, actor, false)
}

func (s *Service) RestoreDefaults(ctx context.Context, actor auditdomain.Actor) (pricingdomain.PricingConfig, error) {
	return s.save(ctx, pricingdomain.DefaultPricingConfig(), actor, true)
}

func (s *Service) save(ctx context.Context, cfg pricingdomain.PricingConfig, actor auditdomain.Actor, restored bool) (pricingdomain.PricingConfig, error) {
	if err := cfg.Validate(); err != nil {
		return pricingdomain.PricingConfig{}, err
	}
	actor = actor.Normalize()

	var before map[string]any
	if previous, err := s.GetCurrentPricing(ctx); err == nil {
		before = snapshot(previous)
	} else {
		s.log.Warn("previous pricing unavailable for audit", zap.Error(err))
	}

	now := s.clock.Now()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.settings.UpsertMany(ctx, tx, cfg.ToSettings(), actor.Name, now)
	})
	if err != nil {
		return pricingdomain.PricingConfig{}, fmt.Errorf("save pricing settings: %w", err)
	}

	s.mu.Lock()
	stored := cfg
	s.cached = &stored
	s.mu.Unlock()

	version := s.version.Add(1)
	s.notify(pricingdomain.Change{
		Version:   version,
		Config:    cfg,
		Actor:     actor.Name,
		Restored:  restored,
		ChangedAt: now,
	})

	action := "pricing.update"
	kind := "update"
	if restored {
		action = "pricing.restore"
		kind = "restore"
	}
	s.metrics.IncPricingChange(kind)
	if s.audit != nil {
		s.audit.Record(ctx, auditdomain.Entry{
			Actor:      actor,
			Action:     action,
			TargetType: "pricing",
			TargetID:   "current",
			Before:     before,
			After:      snapshot(cfg),
			Metadata:   map[string]any{"version": version},
		})
	}

	s.log.Info("pricing saved",
		zap.String("actor", actor.Name),
		zap.String("correlation_id", actor.CorrelationID),
		zap.Bool("restored", restored),
		zap.Uint64("version", version),
	)
	return cfg, nil
}

func (s *Service) CalculateBillableHours(ctx context.Context, start, now time.Time, roomType roomdomain.RoomType) (int, error) {
	if !roomType.Valid() {
		return 0, roomdomain.ErrInvalidRoomType
	}
	if start.IsZero() || now.IsZero() {
		return 0, pricingdomain.ErrInvalidDuration
	}
	cfg, err := s.GetCurrentPricing(ctx)
	if err != nil {
		return 0, err
	}
	return pricingdomain.CalculateBillableHours(cfg, start, now, roomType), nil
}

func (s *Service) CalculateHourlyChargeBreakdown(ctx context.Context, start, now time.Time, roomType roomdomain.RoomType) (pricingdomain.ChargeBreakdown, error) {
	if !roomType.Valid() {
		return pricingdomain.ChargeBreakdown{}, roomdomain.ErrInvalidRoomType
	}
	if start.IsZero() || now.IsZero() {
		return pricingdomain.ChargeBreakdown{}, pricingdomain.ErrInvalidDuration
	}
	cfg, err := s.GetCurrentPricing(ctx)
	if err != nil {
		return pricingdomain.ChargeBreakdown{}, err
	}
	return pricingdomain.CalculateHourlyChargeBreakdown(cfg, start, now, roomType)
}

// CalculateOvernightChargeBreakdown resolves rates and computes the overnight
// breakdown. A nil or zero override falls back to the default rate.
func (s *Service) CalculateOvernightChargeBreakdown(ctx context.Context, start time.Time, nights int, roomType roomdomain.RoomType, nightlyRateOverride *int64, now time.Time, dailyRateOverride *int64) (pricingdomain.ChargeBreakdown, error) {
	if !roomType.Valid() {
		return pricingdomain.ChargeBreakdown{}, roomdomain.ErrInvalidRoomType
	}
	if start.IsZero() || now.IsZero() {
		return pricingdomain.ChargeBreakdown{}, pricingdomain.ErrInvalidDuration
	}
	if nights < 0 {
		return pricingdomain.ChargeBreakdown{}, pricingdomain.ErrInvalidNights
	}
	if (nightlyRateOverride != nil && *nightlyRateOverride < 0) || (dailyRateOverride != nil && *dailyRateOverride < 0) {
		return pricingdomain.ChargeBreakdown{}, pricingdomain.ErrInvalidRate
	}

	cfg, err := s.GetCurrentPricing(ctx)
	if err != nil {
		return pricingdomain.ChargeBreakdown{}, err
	}

	nightly, daily, err := s.resolveRates(ctx, cfg, roomType)
	if err != nil {
		return pricingdomain.ChargeBreakdown{}, err
	}
	if nightlyRateOverride != nil && *nightlyRateOverride > 0 {
		nightly = *nightlyRateOverride
	}
	if dailyRateOverride != nil && *dailyRateOverride > 0 {
		daily = *dailyRateOverride
	}

	return pricingdomain.CalculateOvernightChargeBreakdown(cfg, start, nights, roomType, pricingdomain.OvernightRates{
		Nightly: nightly,
		Daily:   daily,
	}, now)
}

func (s *Service) GetDefaultNightlyRate(ctx context.Context, roomType roomdomain.RoomType) (int64, error) {
	if !roomType.Valid() {
		return 0, roomdomain.ErrInvalidRoomType
	}
	cfg, err := s.GetCurrentPricing(ctx)
	if err != nil {
		return 0, err
	}
	nightly, _, err := s.resolveRates(ctx, cfg, roomType)
	return nightly, err
}

func (s *Service) GetDefaultDailyRate(ctx context.Context, roomType roomdomain.RoomType) (int64, error) {
	if !roomType.Valid() {
		return 0, roomdomain.ErrInvalidRoomType
	}
	cfg, err := s.GetCurrentPricing(ctx)
	if err != nil {
		return 0, err
	}
	_, daily, err := s.resolveRates(ctx, cfg, roomType)
	return daily, err
}

// resolveRates prefers the pricing config and falls back to the legacy
// room_types table only for rates configured as zero.
func (s *Service) resolveRates(ctx context.Context, cfg pricingdomain.PricingConfig, roomType roomdomain.RoomType) (int64, int64, error) {
	nightly := cfg.NightlyRate(roomType)
	daily := cfg.DailyRate(roomType)
	if (nightly > 0 && daily > 0) || s.rooms == nil {
		return nightly, daily, nil
	}

	legacy, err := s.rooms.FindRoomTypeRate(ctx, s.db, roomType)
	if err != nil {
		return 0, 0, fmt.Errorf("load room type rate: %w", err)
	}
	if legacy == nil {
		return nightly, daily, nil
	}
	if nightly <= 0 {
		nightly = legacy.NightlyRate
	}
	if daily <= 0 {
		daily = legacy.DailyRate
	}
	return nightly, daily, nil
}

func (s *Service) Subscribe() (<-chan pricingdomain.Change, func()) {
	ch := make(chan pricingdomain.Change, subscriberBuffer)

	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.subMu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// notify delivers the latest change to every subscriber without blocking.
// A subscriber that has not drained the previous change only sees the newest.
func (s *Service) notify(change pricingdomain.Change) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	for _, ch := range s.subs {
		select {
		case ch <- change:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- change:
		default:
		}
	}
}

func (s *Service) Version() uint64 {
	return s.version.Load()
}

// Invalidate drops the cached snapshot so the next read reloads from settings.
func (s *Service) Invalidate() {
	s.mu.Lock()
	s.cached = nil
	s.mu.Unlock()
	s.version.Add(1)
}

func snapshot(cfg pricingdomain.PricingConfig) map[string]any {
	values := cfg.ToSettings()
	out := make(map[string]any, len(values))
	for k, v := range values {
		out[k] = v
	}
	return out
}
