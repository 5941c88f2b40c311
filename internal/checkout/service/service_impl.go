package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/frontdesk/internal/audit/domain"
	bookingdomain "github.com/smallbiznis/frontdesk/internal/booking/domain"
	checkoutdomain "github.com/smallbiznis/frontdesk/internal/checkout/domain"
	"github.com/smallbiznis/frontdesk/internal/clock"
	"github.com/smallbiznis/frontdesk/internal/config"
	"github.com/smallbiznis/frontdesk/internal/observability/logger"
	"github.com/smallbiznis/frontdesk/internal/observability/metrics"
	pricingdomain "github.com/smallbiznis/frontdesk/internal/pricing/domain"
	roomdomain "github.com/smallbiznis/frontdesk/internal/room/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Ledger  bookingdomain.Ledger
	Pricing pricingdomain.Service
	Rooms   roomdomain.Repository
	Cfg     config.Config                `optional:"true"`
	Policy  *config.CheckoutPolicyHolder `optional:"true"`
	Audit   auditdomain.Service          `optional:"true"`
	Clock   clock.Clock                  `optional:"true"`
	Metrics *metrics.Metrics             `optional:"true"`
}

// Service drives a stay through Start, Save, Pay and Cancel. It holds no
// per-booking state; every call recomputes from the ledger and pricing.
type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	ledger  bookingdomain.Ledger
	pricing pricingdomain.Service
	rooms   roomdomain.Repository
	policy  *config.CheckoutPolicyHolder
	audit   auditdomain.Service
	clock   clock.Clock
	metrics *metrics.Metrics
	loc     *time.Location
}

func NewService(p Params) checkoutdomain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	policy := p.Policy
	if policy == nil {
		policy = config.NewStaticCheckoutPolicyHolder(config.DefaultCheckoutPolicy())
	}
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("checkout.service"),
		ledger:  p.Ledger,
		pricing: p.Pricing,
		rooms:   p.Rooms,
		policy:  policy,
		audit:   p.Audit,
		clock:   clk,
		metrics: p.Metrics,
		loc:     p.Cfg.Location(),
	}
}

func (s *Service) Start(ctx context.Context, req checkoutdomain.StartRequest) (result *checkoutdomain.Result, err error) {
	defer s.observe(metrics.OpStart, time.Now(), &err)

	booking, err := s.ledger.EnsureBooking(ctx, bookingdomain.EnsureRequest{
		RoomID:      req.RoomID,
		Mode:        req.Mode,
		CheckInAt:   req.CheckInAt,
		Nights:      req.Nights,
		NightlyRate: req.NightlyRate,
		DailyRate:   req.DailyRate,
		Actor:       req.Actor.Normalize(),
	})
	if err != nil {
		return nil, err
	}

	result, err = s.compute(ctx, booking, nil, nil)
	if err != nil {
		return nil, err
	}
	s.record(ctx, req.Actor, "checkout.start", booking.ID, nil, resultSnapshot(result))
	return result, nil
}

// Quote recomputes the running totals of an open booking without writing.
func (s *Service) Quote(ctx context.Context, bookingID snowflake.ID) (result *checkoutdomain.Result, err error) {
	defer s.observe(metrics.OpQuote, time.Now(), &err)

	booking, err := s.loadOpen(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	return s.compute(ctx, booking, nil, nil)
}

// Save persists the requested extra quantities and stay changes. Quantities
// are set, not added; a quantity of zero keeps the line at zero.
func (s *Service) Save(ctx context.Context, req checkoutdomain.SaveRequest) (result *checkoutdomain.Result, err error) {
	defer s.observe(metrics.OpSave, time.Now(), &err)

	booking, err := s.loadOpen(ctx, req.BookingID)
	if err != nil {
		return nil, err
	}
	before, err := s.compute(ctx, booking, nil, req.TargetCollected)
	if err != nil {
		return nil, err
	}
	inputs, err := s.resolveExtras(ctx, before.Extras, req.Extras)
	if err != nil {
		return nil, err
	}

	_, err = s.ledger.CommitSave(ctx, bookingdomain.SaveCommit{
		BookingID: booking.ID,
		Extras:    inputs,
		Stay: bookingdomain.StayUpdate{
			Nights:      req.Nights,
			NightlyRate: req.NightlyRate,
			DailyRate:   req.DailyRate,
		},
		At: s.clock.Now(),
	})
	if err != nil {
		return nil, notReady(err)
	}

	booking, err = s.ledger.GetBooking(ctx, booking.ID)
	if err != nil {
		return nil, err
	}
	result, err = s.compute(ctx, booking, nil, req.TargetCollected)
	if err != nil {
		return nil, err
	}
	result.Committed = true

	s.record(ctx, req.Actor, "checkout.save", booking.ID, resultSnapshot(before), resultSnapshot(result))
	logger.WithContext(ctx, s.log).Debug("stay saved",
		zap.String("booking_id", booking.ID.String()),
		zap.Int64("total", result.Breakdown.Total),
		zap.Int64("due", result.Breakdown.Due),
	)
	return result, nil
}

// Pay computes the final amount due. Without Confirm it only previews; with
// Confirm the extras, invoice, booking and room status are committed together.
func (s *Service) Pay(ctx context.Context, req checkoutdomain.PayRequest) (result *checkoutdomain.Result, err error) {
	defer s.observe(metrics.OpPay, time.Now(), &err)

	booking, err := s.loadOpen(ctx, req.BookingID)
	if err != nil {
		return nil, err
	}
	current, err := s.ledger.GetExtras(ctx, booking.ID)
	if err != nil {
		return nil, err
	}
	inputs, err := s.resolveExtras(ctx, current, req.Extras)
	if err != nil {
		return nil, err
	}

	preview, err := s.compute(ctx, booking, inputs, req.TargetCollected)
	if err != nil {
		return nil, err
	}
	if !req.Confirm {
		return preview, nil
	}

	collectedBefore, err := s.ledger.GetCollectedAmount(ctx, booking.ID)
	if err != nil {
		return nil, err
	}
	b := preview.Breakdown
	paid, err := s.ledger.CommitPayment(ctx, bookingdomain.PaymentCommit{
		BookingID:       booking.ID,
		Extras:          inputs,
		RoomAmount:      b.RoomBase,
		ExtrasAmount:    b.Extras,
		LateFee:         b.LateFee,
		Total:           b.Total,
		TargetCollected: s.allowedTarget(collectedBefore, req.TargetCollected),
		Actor:           req.Actor.Normalize(),
		At:              preview.ComputedAt,
	})
	if err != nil {
		return nil, notReady(err)
	}

	result = preview
	result.BookingStatus = paid.Booking.Status
	result.RoomStatus = roomdomain.RoomStatusNeedsCleaning
	result.Extras = paid.Extras
	result.SoftDrinkQuantity, result.WaterQuantity = wellKnownQuantities(paid.Extras)
	extrasTotal, err := bookingdomain.SumExtras(paid.Extras)
	if err != nil {
		return nil, err
	}
	settled, err := b.Settle(extrasTotal, paid.CollectedAfter)
	if err != nil {
		return nil, err
	}
	result.Breakdown = settled
	result.Collected = paid.CollectedAfter
	result.Paid = paid.Paid
	result.Invoices = paid.Invoices
	result.Committed = true

	s.metrics.AddCollected(paid.Paid)
	s.record(ctx, req.Actor, "checkout.pay", booking.ID, resultSnapshot(preview), resultSnapshot(result))
	logger.WithContext(ctx, s.log).Info("stay paid",
		zap.String("booking_id", booking.ID.String()),
		zap.Int64("paid", paid.Paid),
		zap.Int64("collected_before", paid.CollectedBefore),
		zap.Int64("collected_after", paid.CollectedAfter),
	)
	return result, nil
}

// Cancel discards the stay: extras are removed, the room returns to vacant
// and no invoice is written.
func (s *Service) Cancel(ctx context.Context, req checkoutdomain.CancelRequest) (result *checkoutdomain.Result, err error) {
	defer s.observe(metrics.OpCancel, time.Now(), &err)

	booking, err := s.loadOpen(ctx, req.BookingID)
	if err != nil {
		return nil, err
	}
	before, err := s.compute(ctx, booking, nil, nil)
	if err != nil {
		return nil, err
	}

	if err := s.ledger.CommitCancel(ctx, bookingdomain.CancelCommit{BookingID: booking.ID, At: s.clock.Now()}); err != nil {
		return nil, notReady(err)
	}

	result = &checkoutdomain.Result{
		BookingID:      booking.ID,
		BookingStatus:  bookingdomain.StatusCancelled,
		Mode:           booking.Mode,
		CheckInAt:      booking.CheckInAt,
		Nights:         booking.Nights,
		RoomID:         before.RoomID,
		RoomNumber:     before.RoomNumber,
		RoomType:       before.RoomType,
		RoomStatus:     roomdomain.RoomStatusVacant,
		Breakdown:      pricingdomain.ChargeBreakdown{RoomType: before.RoomType, Collected: before.Collected},
		Extras:         []bookingdomain.ExtraLine{},
		Collected:      before.Collected,
		Committed:      true,
		PricingVersion: before.PricingVersion,
		ComputedAt:     s.clock.Now(),
	}

	s.record(ctx, req.Actor, "checkout.cancel", booking.ID, resultSnapshot(before), resultSnapshot(result))
	logger.WithContext(ctx, s.log).Info("stay cancelled", zap.String("booking_id", booking.ID.String()))
	return result, nil
}

func (s *Service) loadOpen(ctx context.Context, id snowflake.ID) (*bookingdomain.Booking, error) {
	if id == 0 {
		return nil, bookingdomain.ErrInvalidBookingID
	}
	booking, err := s.ledger.GetBooking(ctx, id)
	if err != nil {
		return nil, notReady(err)
	}
	if booking.Status != bookingdomain.StatusOpen {
		return nil, notReady(bookingdomain.ErrBookingNotOpen)
	}
	return booking, nil
}

// compute builds the result for a booking, overlaying pending extras that
// have not been written yet.
func (s *Service) compute(ctx context.Context, booking *bookingdomain.Booking, pending []bookingdomain.ExtraInput, target *int64) (*checkoutdomain.Result, error) {
	room, err := s.rooms.FindByID(ctx, s.db, booking.RoomID)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, roomdomain.ErrNotFound
	}

	lines, err := s.ledger.GetExtras(ctx, booking.ID)
	if err != nil {
		return nil, err
	}
	lines, err = overlayExtras(lines, pending)
	if err != nil {
		return nil, err
	}

	collected, err := s.ledger.GetCollectedAmount(ctx, booking.ID)
	if err != nil {
		return nil, err
	}
	if allowed := s.allowedTarget(collected, target); allowed != nil {
		collected = *allowed
	}

	version := s.pricing.Version()
	now := s.clock.Now().In(s.loc)
	checkIn := booking.CheckInAt.In(s.loc)

	var breakdown pricingdomain.ChargeBreakdown
	switch booking.Mode {
	case bookingdomain.ModeHourly:
		breakdown, err = s.pricing.CalculateHourlyChargeBreakdown(ctx, checkIn, now, room.RoomType)
	case bookingdomain.ModeOvernight:
		breakdown, err = s.pricing.CalculateOvernightChargeBreakdown(ctx, checkIn, booking.Nights, room.RoomType, booking.NightlyRate, now, booking.DailyRate)
	default:
		err = bookingdomain.ErrInvalidMode
	}
	if err != nil {
		return nil, err
	}
	extrasTotal, err := bookingdomain.SumExtras(lines)
	if err != nil {
		return nil, err
	}
	breakdown, err = breakdown.Settle(extrasTotal, collected)
	if err != nil {
		return nil, err
	}

	soft, water := wellKnownQuantities(lines)
	return &checkoutdomain.Result{
		BookingID:         booking.ID,
		BookingStatus:     booking.Status,
		Mode:              booking.Mode,
		CheckInAt:         checkIn,
		Nights:            booking.Nights,
		RoomID:            room.ID,
		RoomNumber:        room.Number,
		RoomType:          room.RoomType,
		RoomStatus:        room.Status,
		Breakdown:         breakdown,
		Extras:            lines,
		SoftDrinkQuantity: soft,
		WaterQuantity:     water,
		Collected:         collected,
		PricingVersion:    version,
		ComputedAt:        now,
	}, nil
}

// resolveExtras validates requested lines and fills in unit prices and names.
func (s *Service) resolveExtras(ctx context.Context, current []bookingdomain.ExtraLine, reqs []checkoutdomain.ExtraRequest) ([]bookingdomain.ExtraInput, error) {
	if len(reqs) == 0 {
		return nil, nil
	}
	cfg, err := s.pricing.GetCurrentPricing(ctx)
	if err != nil {
		return nil, err
	}

	existing := make(map[string]bookingdomain.ExtraLine, len(current))
	for _, line := range current {
		existing[line.ItemCode] = line
	}

	out := make([]bookingdomain.ExtraInput, 0, len(reqs))
	for _, req := range reqs {
		code := bookingdomain.NormalizeItemCode(req.ItemCode)
		if code == "" {
			code = bookingdomain.NormalizeItemCode(req.ItemName)
		}
		if code == "" {
			return nil, bookingdomain.ErrInvalidItemCode
		}
		if req.Quantity < 0 {
			return nil, bookingdomain.ErrInvalidQuantity
		}

		line, hasLine := existing[code]
		var price int64
		switch {
		case req.UnitPrice != nil:
			if *req.UnitPrice < 0 {
				return nil, bookingdomain.ErrInvalidUnitPrice
			}
			price = *req.UnitPrice
		case code == bookingdomain.ItemCodeSoftDrink:
			price = cfg.SoftDrinkPrice
		case code == bookingdomain.ItemCodeWater:
			price = cfg.WaterPrice
		case hasLine:
			price = line.UnitPrice
		default:
			return nil, fmt.Errorf("%w: no price for %s", bookingdomain.ErrInvalidUnitPrice, code)
		}
		if _, err := bookingdomain.LineAmount(req.Quantity, price); err != nil {
			return nil, err
		}

		name := strings.TrimSpace(req.ItemName)
		switch {
		case name != "":
		case hasLine:
			name = line.ItemName
		default:
			name = defaultItemName(code)
		}

		out = append(out, bookingdomain.ExtraInput{
			ItemCode:  code,
			ItemName:  name,
			Quantity:  req.Quantity,
			UnitPrice: price,
		})
	}
	return out, nil
}

// allowedTarget returns the caller-supplied collected amount only when the
// policy allows overrides and it does not go below the invoice history.
func (s *Service) allowedTarget(collected int64, target *int64) *int64 {
	if target == nil || !s.policy.Get().AllowCollectedOverride {
		return nil
	}
	if *target < collected {
		s.log.Debug("target collected below ledger ignored",
			zap.Int64("target", *target),
			zap.Int64("collected", collected),
		)
		return nil
	}
	v := *target
	return &v
}

func (s *Service) record(ctx context.Context, actor auditdomain.Actor, action string, bookingID snowflake.ID, before, after map[string]any) {
	if s.audit == nil {
		return
	}
	s.audit.Record(ctx, auditdomain.Entry{
		Actor:      actor,
		Action:     action,
		TargetType: "booking",
		TargetID:   bookingID.String(),
		Before:     before,
		After:      after,
	})
}

func (s *Service) observe(op string, begin time.Time, err *error) {
	var opErr error
	if err != nil {
		opErr = *err
	}
	s.metrics.ObserveTransition(op, opErr, time.Since(begin))
	if opErr != nil && !errors.Is(opErr, checkoutdomain.ErrNotReady) {
		s.log.Warn("checkout operation failed", zap.String("op", op), zap.Error(opErr))
	}
}

// notReady folds "booking missing or closed" ledger errors into ErrNotReady.
func notReady(err error) error {
	if errors.Is(err, bookingdomain.ErrBookingNotFound) || errors.Is(err, bookingdomain.ErrBookingNotOpen) {
		return fmt.Errorf("%w: %w", checkoutdomain.ErrNotReady, err)
	}
	return err
}

func overlayExtras(lines []bookingdomain.ExtraLine, pending []bookingdomain.ExtraInput) ([]bookingdomain.ExtraLine, error) {
	out := make([]bookingdomain.ExtraLine, len(lines))
	copy(out, lines)
	if len(pending) == 0 {
		return out, nil
	}

	index := make(map[string]int, len(out))
	for i, line := range out {
		index[line.ItemCode] = i
	}
	for _, p := range pending {
		amount, err := bookingdomain.LineAmount(p.Quantity, p.UnitPrice)
		if err != nil {
			return nil, err
		}
		line := bookingdomain.ExtraLine{
			ItemCode:  p.ItemCode,
			ItemName:  p.ItemName,
			Quantity:  p.Quantity,
			UnitPrice: p.UnitPrice,
			Amount:    amount,
		}
		if i, ok := index[p.ItemCode]; ok {
			line.ID = out[i].ID
			line.BookingID = out[i].BookingID
			out[i] = line
			continue
		}
		index[p.ItemCode] = len(out)
		out = append(out, line)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ItemCode < out[j].ItemCode })
	return out, nil
}

func wellKnownQuantities(lines []bookingdomain.ExtraLine) (soft, water int64) {
	for _, line := range lines {
		switch line.ItemCode {
		case bookingdomain.ItemCodeSoftDrink:
			soft += line.Quantity
		case bookingdomain.ItemCodeWater:
			water += line.Quantity
		}
	}
	return soft, water
}

func defaultItemName(code string) string {
	switch code {
	case bookingdomain.ItemCodeSoftDrink:
		return "Soft drink"
	case bookingdomain.ItemCodeWater:
		return "Water"
	}
	return code
}

func resultSnapshot(r *checkoutdomain.Result) map[string]any {
	if r == nil {
		return nil
	}
	extras := make(map[string]any, len(r.Extras))
	for _, line := range r.Extras {
		extras[line.ItemCode] = map[string]any{
			"quantity":   line.Quantity,
			"unit_price": line.UnitPrice,
			"amount":     line.Amount,
		}
	}
	return map[string]any{
		"booking_status": string(r.BookingStatus),
		"room_status":    string(r.RoomStatus),
		"mode":           string(r.Mode),
		"nights":         r.Nights,
		"extras":         extras,
		"room_base":      r.Breakdown.RoomBase,
		"late_fee":       r.Breakdown.LateFee,
		"total":          r.Breakdown.Total,
		"due":            r.Breakdown.Due,
		"collected":      r.Collected,
	}
}
