package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/frontdesk/internal/audit/domain"
)

type EnsureRequest struct {
	RoomID      snowflake.ID
	Mode        Mode
	CheckInAt   time.Time
	Nights      int
	NightlyRate *int64
	DailyRate   *int64
	Actor       auditdomain.Actor
}

type ExtraInput struct {
	ItemCode  string
	ItemName  string
	Quantity  int64
	UnitPrice int64
}

// StayUpdate carries optional overnight parameter changes; nil fields are left as is.
type StayUpdate struct {
	Nights      *int
	NightlyRate *int64
	DailyRate   *int64
}

func (u StayUpdate) Empty() bool {
	return u.Nights == nil && u.NightlyRate == nil && u.DailyRate == nil
}

type SaveCommit struct {
	BookingID snowflake.ID
	Extras    []ExtraInput
	Stay      StayUpdate
	At        time.Time
}

type PaymentCommit struct {
	BookingID    snowflake.ID
	Extras       []ExtraInput
	RoomAmount   int64
	ExtrasAmount int64
	LateFee      int64
	Total        int64
	// TargetCollected, when above the ledger's collected amount, is first
	// recorded as an ADJUSTMENT invoice for the difference.
	TargetCollected *int64
	Actor           auditdomain.Actor
	At              time.Time
}

type PaymentResult struct {
	Booking         Booking
	Invoices        []Invoice
	Extras          []ExtraLine
	CollectedBefore int64
	CollectedAfter  int64
	Paid            int64
}

type CancelCommit struct {
	BookingID snowflake.ID
	At        time.Time
}

// Ledger is the persistence contract consumed by the checkout orchestrator.
// Every Commit* runs in a single transaction.
type Ledger interface {
	EnsureBooking(ctx context.Context, req EnsureRequest) (*Booking, error)
	UpsertExtra(ctx context.Context, bookingID snowflake.ID, extra ExtraInput) (*ExtraLine, error)
	GetExtras(ctx context.Context, bookingID snowflake.ID) ([]ExtraLine, error)
	GetCollectedAmount(ctx context.Context, bookingID snowflake.ID) (int64, error)

	GetBooking(ctx context.Context, id snowflake.ID) (*Booking, error)
	UpdateStay(ctx context.Context, id snowflake.ID, update StayUpdate) (*Booking, error)
	CommitSave(ctx context.Context, commit SaveCommit) ([]ExtraLine, error)
	CommitPayment(ctx context.Context, commit PaymentCommit) (*PaymentResult, error)
	CommitCancel(ctx context.Context, commit CancelCommit) error

	GetInvoice(ctx context.Context, id snowflake.ID) (*Invoice, error)
	ListInvoices(ctx context.Context, bookingID snowflake.ID) ([]Invoice, error)
}

var (
	ErrInvalidBookingID = errors.New("invalid_booking_id")
	ErrBookingNotFound  = errors.New("booking_not_found")
	ErrBookingNotOpen   = errors.New("booking_not_open")
	ErrModeMismatch     = errors.New("booking_mode_mismatch")
	ErrInvalidMode      = errors.New("invalid_mode")
	ErrInvalidNights    = errors.New("invalid_nights")
	ErrInvalidRate      = errors.New("invalid_rate")
	ErrInvalidItemCode  = errors.New("invalid_item_code")
	ErrInvalidQuantity  = errors.New("invalid_quantity")
	ErrInvalidUnitPrice = errors.New("invalid_unit_price")
	ErrInvoiceNotFound  = errors.New("invoice_not_found")
	ErrOvernightOnly    = errors.New("overnight_only")
)
