package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/frontdesk/internal/audit/domain"
	"github.com/smallbiznis/frontdesk/internal/clock"
	"github.com/smallbiznis/frontdesk/internal/config"
	"github.com/smallbiznis/frontdesk/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	defaultBufferSize = 256
	writeTimeout      = 5 * time.Second
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Repo    auditdomain.Repository
	Clock   clock.Clock
	Cfg     config.Config    `optional:"true"`
	Metrics *metrics.Metrics `optional:"true"`
}

type queued struct {
	ctx   context.Context
	entry auditdomain.AuditLog
}

// Service writes audit entries from a single background worker fed by a
// bounded queue. When the queue is full the entry is dropped.
type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  auditdomain.Repository
	clock clock.Clock
	stats *metrics.Metrics

	mu      sync.RWMutex
	closed  bool
	queue   chan queued
	wg      sync.WaitGroup
	started sync.Once
}

func NewService(p Params) *Service {
	size := p.Cfg.AuditBufferSize
	if size <= 0 {
		size = defaultBufferSize
	}
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("audit.service"),
		genID: p.GenID,
		repo:  p.Repo,
		clock: clk,
		stats: p.Metrics,
		queue: make(chan queued, size),
	}
}

// AsDomain exposes the writer through the domain interface.
func AsDomain(s *Service) auditdomain.Service {
	return s
}

func RegisterLifecycle(lc fx.Lifecycle, s *Service) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			s.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return s.Stop(ctx)
		},
	})
}

func (s *Service) Start() {
	s.started.Do(func() {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			for item := range s.queue {
				s.write(item)
			}
		}()
	})
}

// Stop closes the queue and waits for pending entries to be written.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) Record(ctx context.Context, entry auditdomain.Entry) {
	action := strings.TrimSpace(entry.Action)
	if action == "" {
		s.log.Warn("audit entry without action dropped", zap.Error(auditdomain.ErrInvalidAction))
		return
	}

	actor := entry.Actor.Normalize()
	targetType := strings.TrimSpace(entry.TargetType)
	if targetType == "" {
		targetType = "unknown"
	}

	record := auditdomain.AuditLog{
		ID:            s.genID.Generate(),
		Actor:         actor.Name,
		ActorRole:     actor.Role,
		CorrelationID: actor.CorrelationID,
		Action:        action,
		TargetType:    targetType,
		TargetID:      strings.TrimSpace(entry.TargetID),
		Before:        toJSONMap(entry.Before),
		After:         toJSONMap(entry.After),
		Metadata:      toJSONMap(entry.Metadata),
		CreatedAt:     s.clock.Now().UTC(),
	}

	if ctx == nil {
		ctx = context.Background()
	}
	item := queued{ctx: context.WithoutCancel(ctx), entry: record}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		s.log.Warn("audit writer stopped, entry dropped", zap.String("action", action))
		s.stats.IncAuditDropped("closed")
		return
	}
	select {
	case s.queue <- item:
	default:
		s.log.Warn("audit queue full, entry dropped", zap.String("action", action), zap.String("target_id", record.TargetID))
		s.stats.IncAuditDropped("queue_full")
	}
}

func (s *Service) write(item queued) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("audit write panicked", zap.Any("panic", r), zap.String("action", item.entry.Action))
		}
	}()

	ctx, cancel := context.WithTimeout(item.ctx, writeTimeout)
	defer cancel()

	if err := s.repo.Insert(ctx, s.db, &item.entry); err != nil {
		s.stats.IncAuditDropped("store_error")
		s.log.Warn("failed to write audit log",
			zap.String("action", item.entry.Action),
			zap.String("target_id", item.entry.TargetID),
			zap.Error(err),
		)
	}
}

func toJSONMap(values map[string]any) datatypes.JSONMap {
	if len(values) == 0 {
		return nil
	}
	payload := make(datatypes.JSONMap, len(values))
	for key, value := range values {
		if key == "" {
			continue
		}
		payload[key] = value
	}
	return payload
}
