package domain

import (
	"context"
	"errors"
	"time"

	auditdomain "github.com/smallbiznis/frontdesk/internal/audit/domain"
	roomdomain "github.com/smallbiznis/frontdesk/internal/room/domain"
)

// Change is published to subscribers after every successful save or restore.
type Change struct {
	Version   uint64
	Config    PricingConfig
	Actor     string
	Restored  bool
	ChangedAt time.Time
}

type Service interface {
	GetCurrentPricing(ctx context.Context) (PricingConfig, error)
	SavePricing(ctx context.Context, cfg PricingConfig, actor auditdomain.Actor) (PricingConfig, error)
	RestoreDefaults(ctx context.Context, actor auditdomain.Actor) (PricingConfig, error)

	CalculateBillableHours(ctx context.Context, start, now time.Time, roomType roomdomain.RoomType) (int, error)
	CalculateHourlyChargeBreakdown(ctx context.Context, start, now time.Time, roomType roomdomain.RoomType) (ChargeBreakdown, error)
	CalculateOvernightChargeBreakdown(ctx context.Context, start time.Time, nights int, roomType roomdomain.RoomType, nightlyRateOverride *int64, now time.Time, dailyRateOverride *int64) (ChargeBreakdown, error)
	GetDefaultNightlyRate(ctx context.Context, roomType roomdomain.RoomType) (int64, error)
	GetDefaultDailyRate(ctx context.Context, roomType roomdomain.RoomType) (int64, error)

	// Subscribe returns a channel of pricing changes and a func that releases it.
	Subscribe() (<-chan Change, func())
	Version() uint64
	Invalidate()
}

var (
	ErrInvalidNights   = errors.New("invalid_nights")
	ErrInvalidRate     = errors.New("invalid_rate")
	ErrInvalidDuration = errors.New("invalid_duration")
	ErrAmountOverflow  = errors.New("amount_overflow")
)
