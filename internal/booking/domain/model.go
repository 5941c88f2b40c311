package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/smallbiznis/frontdesk/pkg/money"
)

type Mode string

const (
	ModeHourly    Mode = "HOURLY"
	ModeOvernight Mode = "OVERNIGHT"
)

func ParseMode(value string) (Mode, bool) {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case string(ModeHourly):
		return ModeHourly, true
	case string(ModeOvernight):
		return ModeOvernight, true
	default:
		return "", false
	}
}

type Status string

const (
	StatusOpen      Status = "OPEN"
	StatusPaid      Status = "PAID"
	StatusCancelled Status = "CANCELLED"
)

// Booking is one room stay. A room has at most one OPEN booking.
type Booking struct {
	ID            snowflake.ID `json:"id" gorm:"primaryKey"`
	RoomID        snowflake.ID `json:"room_id" gorm:"not null;index"`
	Mode          Mode         `json:"mode" gorm:"type:varchar(16);not null"`
	Status        Status       `json:"status" gorm:"type:varchar(16);not null;index"`
	CheckInAt     time.Time    `json:"check_in_at" gorm:"not null"`
	Nights        int          `json:"nights" gorm:"not null;default:0"`
	NightlyRate   *int64       `json:"nightly_rate,omitempty"`
	DailyRate     *int64       `json:"daily_rate,omitempty"`
	OpenedBy      string       `json:"opened_by" gorm:"type:text"`
	CorrelationID string       `json:"correlation_id" gorm:"type:text"`
	ClosedAt      *time.Time   `json:"closed_at,omitempty"`
	CreatedAt     time.Time    `json:"created_at" gorm:"not null"`
	UpdatedAt     time.Time    `json:"updated_at" gorm:"not null"`
}

func (Booking) TableName() string { return "bookings" }

const (
	ItemCodeSoftDrink = "soft-drink"
	ItemCodeWater     = "water"
)

// NormalizeItemCode turns a free-form item name or code into its ledger key.
func NormalizeItemCode(code string) string {
	return slug.Make(strings.TrimSpace(code))
}

// ExtraLine is a billable add-on. Amount is always Quantity * UnitPrice.
type ExtraLine struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey"`
	BookingID snowflake.ID `json:"booking_id" gorm:"not null;uniqueIndex:ux_extra_lines_booking_item"`
	ItemCode  string       `json:"item_code" gorm:"type:varchar(64);not null;uniqueIndex:ux_extra_lines_booking_item"`
	ItemName  string       `json:"item_name" gorm:"type:text;not null"`
	Quantity  int64        `json:"quantity" gorm:"not null;default:0"`
	UnitPrice int64        `json:"unit_price" gorm:"not null;default:0"`
	Amount    int64        `json:"amount" gorm:"not null;default:0"`
	CreatedAt time.Time    `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time    `json:"updated_at" gorm:"not null"`
}

// MaxNights bounds the nights of one overnight booking.
const MaxNights = 366

// ValidNights reports whether n is a bookable number of nights.
func ValidNights(n int) bool {
	return n >= 1 && n <= MaxNights
}

// LineAmount is quantity * unitPrice, or ErrInvalidQuantity when the product
// does not fit an amount.
func LineAmount(quantity, unitPrice int64) (int64, error) {
	if quantity < 0 {
		return 0, ErrInvalidQuantity
	}
	if unitPrice < 0 {
		return 0, ErrInvalidUnitPrice
	}
	amount, ok := money.Mul(quantity, unitPrice)
	if !ok {
		return 0, ErrInvalidQuantity
	}
	return amount, nil
}

// SumExtras totals the line amounts.
func SumExtras(lines []ExtraLine) (int64, error) {
	var total int64
	for _, line := range lines {
		next, ok := money.Add(total, line.Amount)
		if !ok {
			return 0, ErrInvalidQuantity
		}
		total = next
	}
	return total, nil
}

func (ExtraLine) TableName() string { return "extra_lines" }

type InvoiceKind string

const (
	InvoiceKindPayment    InvoiceKind = "PAYMENT"
	InvoiceKindAdjustment InvoiceKind = "ADJUSTMENT"
)

// Invoice records money collected for a booking. The collected amount of a
// booking is the sum of its invoice amounts.
type Invoice struct {
	ID              snowflake.ID `json:"id" gorm:"primaryKey"`
	BookingID       snowflake.ID `json:"booking_id" gorm:"not null;index"`
	Kind            InvoiceKind  `json:"kind" gorm:"type:varchar(16);not null"`
	Amount          int64        `json:"amount" gorm:"not null"`
	RoomAmount      int64        `json:"room_amount" gorm:"not null;default:0"`
	ExtrasAmount    int64        `json:"extras_amount" gorm:"not null;default:0"`
	LateFee         int64        `json:"late_fee" gorm:"not null;default:0"`
	Total           int64        `json:"total" gorm:"not null;default:0"`
	CollectedBefore int64        `json:"collected_before" gorm:"not null;default:0"`
	CollectedAfter  int64        `json:"collected_after" gorm:"not null;default:0"`
	Actor           string       `json:"actor" gorm:"type:text"`
	CorrelationID   string       `json:"correlation_id" gorm:"type:text"`
	CreatedAt       time.Time    `json:"created_at" gorm:"not null"`
}

func (Invoice) TableName() string { return "invoices" }
