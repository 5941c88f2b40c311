package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	CreateBooking(ctx context.Context, db *gorm.DB, booking *Booking) error
	FindBooking(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Booking, error)
	FindOpenByRoom(ctx context.Context, db *gorm.DB, roomID snowflake.ID) (*Booking, error)
	UpdateStay(ctx context.Context, db *gorm.DB, id snowflake.ID, update StayUpdate, at time.Time) error
	// CloseBooking moves an OPEN booking to status; ErrBookingNotOpen otherwise.
	CloseBooking(ctx context.Context, db *gorm.DB, id snowflake.ID, status Status, at time.Time) error

	UpsertExtra(ctx context.Context, db *gorm.DB, line *ExtraLine) error
	ListExtras(ctx context.Context, db *gorm.DB, bookingID snowflake.ID) ([]ExtraLine, error)
	DeleteExtras(ctx context.Context, db *gorm.DB, bookingID snowflake.ID) error

	InsertInvoice(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	SumInvoices(ctx context.Context, db *gorm.DB, bookingID snowflake.ID) (int64, error)
	FindInvoice(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Invoice, error)
	ListInvoices(ctx context.Context, db *gorm.DB, bookingID snowflake.ID) ([]Invoice, error)
}
