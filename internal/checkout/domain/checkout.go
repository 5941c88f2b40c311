package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/frontdesk/internal/audit/domain"
	bookingdomain "github.com/smallbiznis/frontdesk/internal/booking/domain"
	pricingdomain "github.com/smallbiznis/frontdesk/internal/pricing/domain"
	roomdomain "github.com/smallbiznis/frontdesk/internal/room/domain"
)

// ExtraRequest sets the quantity of one item. A nil UnitPrice takes the
// configured price for well-known items, then the price already on the line.
type ExtraRequest struct {
	ItemCode  string `json:"item_code"`
	ItemName  string `json:"item_name"`
	Quantity  int64  `json:"quantity"`
	UnitPrice *int64 `json:"unit_price,omitempty"`
}

type StartRequest struct {
	RoomID      snowflake.ID
	Mode        bookingdomain.Mode
	Nights      int
	NightlyRate *int64
	DailyRate   *int64
	CheckInAt   time.Time
	Actor       auditdomain.Actor
}

type SaveRequest struct {
	BookingID   snowflake.ID
	Extras      []ExtraRequest
	Nights      *int
	NightlyRate *int64
	DailyRate   *int64
	// TargetCollected is advisory; see CheckoutPolicy.AllowCollectedOverride.
	TargetCollected *int64
	Actor           auditdomain.Actor
}

type PayRequest struct {
	BookingID       snowflake.ID
	Extras          []ExtraRequest
	TargetCollected *int64
	// Confirm commits the payment; without it Pay only previews the amounts.
	Confirm bool
	Actor   auditdomain.Actor
}

type CancelRequest struct {
	BookingID snowflake.ID
	Actor     auditdomain.Actor
}

// Result is the plain value returned to the presentation layer after every operation.
type Result struct {
	BookingID     snowflake.ID                  `json:"booking_id"`
	BookingStatus bookingdomain.Status          `json:"booking_status"`
	Mode          bookingdomain.Mode            `json:"mode"`
	CheckInAt     time.Time                     `json:"check_in_at"`
	Nights        int                           `json:"nights,omitempty"`
	RoomID        snowflake.ID                  `json:"room_id"`
	RoomNumber    string                        `json:"room_number"`
	RoomType      roomdomain.RoomType           `json:"room_type"`
	RoomStatus    roomdomain.RoomStatus         `json:"room_status"`
	Breakdown     pricingdomain.ChargeBreakdown `json:"breakdown"`
	Extras        []bookingdomain.ExtraLine     `json:"extras"`

	SoftDrinkQuantity int64 `json:"soft_drink_quantity"`
	WaterQuantity     int64 `json:"water_quantity"`

	// Collected is the amount collected after the operation.
	Collected      int64                   `json:"collected"`
	Paid           int64                   `json:"paid,omitempty"`
	Invoices       []bookingdomain.Invoice `json:"invoices,omitempty"`
	Committed      bool                    `json:"committed"`
	PricingVersion uint64                  `json:"pricing_version"`
	ComputedAt     time.Time               `json:"computed_at"`
}

type Service interface {
	Start(ctx context.Context, req StartRequest) (*Result, error)
	Quote(ctx context.Context, bookingID snowflake.ID) (*Result, error)
	Save(ctx context.Context, req SaveRequest) (*Result, error)
	Pay(ctx context.Context, req PayRequest) (*Result, error)
	Cancel(ctx context.Context, req CancelRequest) (*Result, error)
}

var (
	// ErrNotReady reports an expected business-rule violation such as acting
	// on a booking that was never opened or is already closed.
	ErrNotReady = errors.New("not_ready")
)
