package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	bookingdomain "github.com/smallbiznis/frontdesk/internal/booking/domain"
	"github.com/smallbiznis/frontdesk/internal/clock"
	roomdomain "github.com/smallbiznis/frontdesk/internal/room/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  bookingdomain.Repository
	Rooms roomdomain.Repository
	Clock clock.Clock `optional:"true"`
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  bookingdomain.Repository
	rooms roomdomain.Repository
	clock clock.Clock
}

func NewService(p Params) bookingdomain.Ledger {
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("booking.service"),
		genID: p.GenID,
		repo:  p.Repo,
		rooms: p.Rooms,
		clock: clk,
	}
}

// EnsureBooking returns the open booking for the room when its mode matches,
// otherwise opens a new one and marks the room occupied.
func (s *Service) EnsureBooking(ctx context.Context, req bookingdomain.EnsureRequest) (*bookingdomain.Booking, error) {
	if req.RoomID == 0 {
		return nil, roomdomain.ErrInvalidRoomID
	}
	if _, ok := bookingdomain.ParseMode(string(req.Mode)); !ok {
		return nil, bookingdomain.ErrInvalidMode
	}
	if req.Nights < 0 || req.Nights > bookingdomain.MaxNights {
		return nil, bookingdomain.ErrInvalidNights
	}
	if (req.NightlyRate != nil && *req.NightlyRate < 0) || (req.DailyRate != nil && *req.DailyRate < 0) {
		return nil, bookingdomain.ErrInvalidRate
	}

	now := s.clock.Now()
	checkIn := req.CheckInAt
	if checkIn.IsZero() || checkIn.After(now) {
		checkIn = now
	}
	nights := req.Nights
	if req.Mode == bookingdomain.ModeOvernight && nights < 1 {
		nights = 1
	}
	if req.Mode == bookingdomain.ModeHourly {
		nights = 0
	}

	var out *bookingdomain.Booking
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		room, err := s.rooms.FindByID(ctx, tx, req.RoomID)
		if err != nil {
			return err
		}
		if room == nil {
			return roomdomain.ErrNotFound
		}

		existing, err := s.repo.FindOpenByRoom(ctx, tx, room.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			if existing.Mode != req.Mode {
				return bookingdomain.ErrModeMismatch
			}
			out = existing
			return nil
		}

		if !room.Status.Assignable() {
			return roomdomain.ErrRoomNotAvailable
		}

		booking := &bookingdomain.Booking{
			ID:            s.genID.Generate(),
			RoomID:        room.ID,
			Mode:          req.Mode,
			Status:        bookingdomain.StatusOpen,
			CheckInAt:     checkIn.UTC(),
			Nights:        nights,
			NightlyRate:   req.NightlyRate,
			DailyRate:     req.DailyRate,
			OpenedBy:      req.Actor.Name,
			CorrelationID: req.Actor.CorrelationID,
			CreatedAt:     now.UTC(),
			UpdatedAt:     now.UTC(),
		}
		if err := s.repo.CreateBooking(ctx, tx, booking); err != nil {
			return err
		}
		if err := s.rooms.TransitionStatus(ctx, tx, room.ID,
			[]roomdomain.RoomStatus{roomdomain.RoomStatusVacant, roomdomain.RoomStatusReserved},
			roomdomain.RoomStatusOccupied, now,
		); err != nil {
			return err
		}
		out = booking
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Debug("booking ensured",
		zap.String("booking_id", out.ID.String()),
		zap.String("room_id", out.RoomID.String()),
		zap.String("mode", string(out.Mode)),
	)
	return out, nil
}

func (s *Service) UpsertExtra(ctx context.Context, bookingID snowflake.ID, extra bookingdomain.ExtraInput) (*bookingdomain.ExtraLine, error) {
	if bookingID == 0 {
		return nil, bookingdomain.ErrInvalidBookingID
	}
	normalized, err := normalizeExtras([]bookingdomain.ExtraInput{extra})
	if err != nil {
		return nil, err
	}

	var out *bookingdomain.ExtraLine
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.requireOpen(ctx, tx, bookingID); err != nil {
			return err
		}
		lines, err := s.applyExtras(ctx, tx, bookingID, normalized)
		if err != nil {
			return err
		}
		out = findLine(lines, normalized[0].ItemCode)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) GetExtras(ctx context.Context, bookingID snowflake.ID) ([]bookingdomain.ExtraLine, error) {
	if bookingID == 0 {
		return nil, bookingdomain.ErrInvalidBookingID
	}
	return s.repo.ListExtras(ctx, s.db, bookingID)
}

func (s *Service) GetCollectedAmount(ctx context.Context, bookingID snowflake.ID) (int64, error) {
	if bookingID == 0 {
		return 0, bookingdomain.ErrInvalidBookingID
	}
	return s.repo.SumInvoices(ctx, s.db, bookingID)
}

func (s *Service) GetBooking(ctx context.Context, id snowflake.ID) (*bookingdomain.Booking, error) {
	if id == 0 {
		return nil, bookingdomain.ErrInvalidBookingID
	}
	booking, err := s.repo.FindBooking(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, bookingdomain.ErrBookingNotFound
	}
	return booking, nil
}

func (s *Service) UpdateStay(ctx context.Context, id snowflake.ID, update bookingdomain.StayUpdate) (*bookingdomain.Booking, error) {
	if id == 0 {
		return nil, bookingdomain.ErrInvalidBookingID
	}
	if err := validateStay(update); err != nil {
		return nil, err
	}

	var out *bookingdomain.Booking
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		booking, err := s.requireOpen(ctx, tx, id)
		if err != nil {
			return err
		}
		if !update.Empty() && booking.Mode != bookingdomain.ModeOvernight {
			return bookingdomain.ErrOvernightOnly
		}
		if !update.Empty() {
			if err := s.repo.UpdateStay(ctx, tx, id, update, s.clock.Now()); err != nil {
				return err
			}
		}
		booking, err = s.repo.FindBooking(ctx, tx, id)
		out = booking
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) CommitSave(ctx context.Context, commit bookingdomain.SaveCommit) ([]bookingdomain.ExtraLine, error) {
	if commit.BookingID == 0 {
		return nil, bookingdomain.ErrInvalidBookingID
	}
	if err := validateStay(commit.Stay); err != nil {
		return nil, err
	}
	extras, err := normalizeExtras(commit.Extras)
	if err != nil {
		return nil, err
	}
	at := commit.At
	if at.IsZero() {
		at = s.clock.Now()
	}

	var out []bookingdomain.ExtraLine
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		booking, err := s.requireOpen(ctx, tx, commit.BookingID)
		if err != nil {
			return err
		}
		if !commit.Stay.Empty() && booking.Mode != bookingdomain.ModeOvernight {
			return bookingdomain.ErrOvernightOnly
		}
		if !commit.Stay.Empty() {
			if err := s.repo.UpdateStay(ctx, tx, commit.BookingID, commit.Stay, at); err != nil {
				return err
			}
		}
		lines, err := s.applyExtras(ctx, tx, commit.BookingID, extras)
		out = lines
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CommitPayment writes the final extras, invoices and status changes of a
// Pay transition in one transaction. The amount collected is recomputed from
// the invoice history inside the transaction.
func (s *Service) CommitPayment(ctx context.Context, commit bookingdomain.PaymentCommit) (*bookingdomain.PaymentResult, error) {
	if commit.BookingID == 0 {
		return nil, bookingdomain.ErrInvalidBookingID
	}
	extras, err := normalizeExtras(commit.Extras)
	if err != nil {
		return nil, err
	}
	at := commit.At
	if at.IsZero() {
		at = s.clock.Now()
	}

	result := &bookingdomain.PaymentResult{}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		booking, err := s.requireOpen(ctx, tx, commit.BookingID)
		if err != nil {
			return err
		}

		lines, err := s.applyExtras(ctx, tx, booking.ID, extras)
		if err != nil {
			return err
		}
		result.Extras = lines

		collected, err := s.repo.SumInvoices(ctx, tx, booking.ID)
		if err != nil {
			return err
		}
		result.CollectedBefore = collected

		newInvoice := func(kind bookingdomain.InvoiceKind, amount int64) bookingdomain.Invoice {
			return bookingdomain.Invoice{
				ID:              s.genID.Generate(),
				BookingID:       booking.ID,
				Kind:            kind,
				Amount:          amount,
				RoomAmount:      commit.RoomAmount,
				ExtrasAmount:    commit.ExtrasAmount,
				LateFee:         commit.LateFee,
				Total:           commit.Total,
				CollectedBefore: collected,
				CollectedAfter:  collected + amount,
				Actor:           commit.Actor.Name,
				CorrelationID:   commit.Actor.CorrelationID,
				CreatedAt:       at.UTC(),
			}
		}

		if commit.TargetCollected != nil && *commit.TargetCollected > collected {
			adjustment := newInvoice(bookingdomain.InvoiceKindAdjustment, *commit.TargetCollected-collected)
			if err := s.repo.InsertInvoice(ctx, tx, &adjustment); err != nil {
				return err
			}
			result.Invoices = append(result.Invoices, adjustment)
			collected = adjustment.CollectedAfter
		}

		due := commit.Total - collected
		if due < 0 {
			due = 0
		}
		payment := newInvoice(bookingdomain.InvoiceKindPayment, due)
		if err := s.repo.InsertInvoice(ctx, tx, &payment); err != nil {
			return err
		}
		result.Invoices = append(result.Invoices, payment)
		result.Paid = due
		result.CollectedAfter = payment.CollectedAfter

		if err := s.repo.CloseBooking(ctx, tx, booking.ID, bookingdomain.StatusPaid, at); err != nil {
			return err
		}
		if err := s.rooms.TransitionStatus(ctx, tx, booking.RoomID,
			[]roomdomain.RoomStatus{roomdomain.RoomStatusOccupied},
			roomdomain.RoomStatusNeedsCleaning, at,
		); err != nil {
			return err
		}

		closed, err := s.repo.FindBooking(ctx, tx, booking.ID)
		if err != nil {
			return err
		}
		result.Booking = *closed
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("booking paid",
		zap.String("booking_id", commit.BookingID.String()),
		zap.Int64("paid", result.Paid),
		zap.Int64("collected_after", result.CollectedAfter),
	)
	return result, nil
}

// CommitCancel discards all extras, closes the booking as cancelled and frees
// the room. No invoice is written.
func (s *Service) CommitCancel(ctx context.Context, commit bookingdomain.CancelCommit) error {
	if commit.BookingID == 0 {
		return bookingdomain.ErrInvalidBookingID
	}
	at := commit.At
	if at.IsZero() {
		at = s.clock.Now()
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		booking, err := s.requireOpen(ctx, tx, commit.BookingID)
		if err != nil {
			return err
		}
		if err := s.repo.DeleteExtras(ctx, tx, booking.ID); err != nil {
			return err
		}
		if err := s.repo.CloseBooking(ctx, tx, booking.ID, bookingdomain.StatusCancelled, at); err != nil {
			return err
		}
		return s.rooms.TransitionStatus(ctx, tx, booking.RoomID,
			[]roomdomain.RoomStatus{roomdomain.RoomStatusOccupied},
			roomdomain.RoomStatusVacant, at,
		)
	})
	if err != nil {
		return err
	}

	s.log.Info("booking cancelled", zap.String("booking_id", commit.BookingID.String()))
	return nil
}

func (s *Service) GetInvoice(ctx context.Context, id snowflake.ID) (*bookingdomain.Invoice, error) {
	if id == 0 {
		return nil, bookingdomain.ErrInvoiceNotFound
	}
	invoice, err := s.repo.FindInvoice(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, bookingdomain.ErrInvoiceNotFound
	}
	return invoice, nil
}

func (s *Service) ListInvoices(ctx context.Context, bookingID snowflake.ID) ([]bookingdomain.Invoice, error) {
	if bookingID == 0 {
		return nil, bookingdomain.ErrInvalidBookingID
	}
	return s.repo.ListInvoices(ctx, s.db, bookingID)
}

func (s *Service) requireOpen(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*bookingdomain.Booking, error) {
	booking, err := s.repo.FindBooking(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, bookingdomain.ErrBookingNotFound
	}
	if booking.Status != bookingdomain.StatusOpen {
		return nil, bookingdomain.ErrBookingNotOpen
	}
	return booking, nil
}

// applyExtras upserts each requested line and returns the booking's current
// lines. Lines whose name, quantity and unit price are unchanged are not rewritten.
func (s *Service) applyExtras(ctx context.Context, tx *gorm.DB, bookingID snowflake.ID, extras []bookingdomain.ExtraInput) ([]bookingdomain.ExtraLine, error) {
	current, err := s.repo.ListExtras(ctx, tx, bookingID)
	if err != nil {
		return nil, err
	}
	if len(extras) == 0 {
		return current, nil
	}

	now := s.clock.Now().UTC()
	changed := false
	for _, extra := range extras {
		amount, err := bookingdomain.LineAmount(extra.Quantity, extra.UnitPrice)
		if err != nil {
			return nil, err
		}
		if existing := findLine(current, extra.ItemCode); existing != nil &&
			existing.ItemName == extra.ItemName &&
			existing.Quantity == extra.Quantity &&
			existing.UnitPrice == extra.UnitPrice &&
			existing.Amount == amount {
			continue
		}
		line := &bookingdomain.ExtraLine{
			ID:        s.genID.Generate(),
			BookingID: bookingID,
			ItemCode:  extra.ItemCode,
			ItemName:  extra.ItemName,
			Quantity:  extra.Quantity,
			UnitPrice: extra.UnitPrice,
			Amount:    amount,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.repo.UpsertExtra(ctx, tx, line); err != nil {
			return nil, fmt.Errorf("upsert extra %s: %w", extra.ItemCode, err)
		}
		changed = true
	}
	if !changed {
		return current, nil
	}
	lines, err := s.repo.ListExtras(ctx, tx, bookingID)
	if err != nil {
		return nil, err
	}
	if _, err := bookingdomain.SumExtras(lines); err != nil {
		return nil, err
	}
	return lines, nil
}

// normalizeExtras validates the inputs and collapses duplicate codes; the
// last entry for a code wins.
func normalizeExtras(extras []bookingdomain.ExtraInput) ([]bookingdomain.ExtraInput, error) {
	out := make([]bookingdomain.ExtraInput, 0, len(extras))
	index := make(map[string]int, len(extras))
	for _, extra := range extras {
		code := bookingdomain.NormalizeItemCode(extra.ItemCode)
		if code == "" {
			code = bookingdomain.NormalizeItemCode(extra.ItemName)
		}
		if code == "" {
			return nil, bookingdomain.ErrInvalidItemCode
		}
		if extra.Quantity < 0 {
			return nil, bookingdomain.ErrInvalidQuantity
		}
		if extra.UnitPrice < 0 {
			return nil, bookingdomain.ErrInvalidUnitPrice
		}
		if _, err := bookingdomain.LineAmount(extra.Quantity, extra.UnitPrice); err != nil {
			return nil, err
		}
		name := strings.TrimSpace(extra.ItemName)
		if name == "" {
			name = code
		}

		normalized := bookingdomain.ExtraInput{
			ItemCode:  code,
			ItemName:  name,
			Quantity:  extra.Quantity,
			UnitPrice: extra.UnitPrice,
		}
		if i, ok := index[code]; ok {
			out[i] = normalized
			continue
		}
		index[code] = len(out)
		out = append(out, normalized)
	}
	return out, nil
}

func validateStay(update bookingdomain.StayUpdate) error {
	if update.Nights != nil && !bookingdomain.ValidNights(*update.Nights) {
		return bookingdomain.ErrInvalidNights
	}
	if (update.NightlyRate != nil && *update.NightlyRate < 0) || (update.DailyRate != nil && *update.DailyRate < 0) {
		return bookingdomain.ErrInvalidRate
	}
	return nil
}

func findLine(lines []bookingdomain.ExtraLine, code string) *bookingdomain.ExtraLine {
	for i := range lines {
		if lines[i].ItemCode == code {
			return &lines[i]
		}
	}
	return nil
}
