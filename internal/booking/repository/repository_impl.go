package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	bookingdomain "github.com/smallbiznis/frontdesk/internal/booking/domain"
	pkgdb "github.com/smallbiznis/frontdesk/pkg/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() bookingdomain.Repository {
	return &repo{}
}

func (r *repo) CreateBooking(ctx context.Context, db *gorm.DB, booking *bookingdomain.Booking) error {
	return db.WithContext(ctx).Create(booking).Error
}

func (r *repo) FindBooking(ctx context.Context, db *gorm.DB, id snowflake.ID) (*bookingdomain.Booking, error) {
	var booking bookingdomain.Booking
	err := db.WithContext(ctx).Where("id = ?", id).First(&booking).Error
	if err != nil {
		if pkgdb.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &booking, nil
}

func (r *repo) FindOpenByRoom(ctx context.Context, db *gorm.DB, roomID snowflake.ID) (*bookingdomain.Booking, error) {
	var booking bookingdomain.Booking
	err := db.WithContext(ctx).
		Where("room_id = ? AND status = ?", roomID, bookingdomain.StatusOpen).
		Order("created_at DESC").
		First(&booking).Error
	if err != nil {
		if pkgdb.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &booking, nil
}

func (r *repo) UpdateStay(ctx context.Context, db *gorm.DB, id snowflake.ID, update bookingdomain.StayUpdate, at time.Time) error {
	updates := map[string]any{"updated_at": at.UTC()}
	if update.Nights != nil {
		updates["nights"] = *update.Nights
	}
	if update.NightlyRate != nil {
		updates["nightly_rate"] = *update.NightlyRate
	}
	if update.DailyRate != nil {
		updates["daily_rate"] = *update.DailyRate
	}

	result := db.WithContext(ctx).
		Model(&bookingdomain.Booking{}).
		Where("id = ? AND status = ?", id, bookingdomain.StatusOpen).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return bookingdomain.ErrBookingNotOpen
	}
	return nil
}

func (r *repo) CloseBooking(ctx context.Context, db *gorm.DB, id snowflake.ID, status bookingdomain.Status, at time.Time) error {
	result := db.WithContext(ctx).
		Model(&bookingdomain.Booking{}).
		Where("id = ? AND status = ?", id, bookingdomain.StatusOpen).
		Updates(map[string]any{
			"status":     status,
			"closed_at":  at.UTC(),
			"updated_at": at.UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return bookingdomain.ErrBookingNotOpen
	}
	return nil
}

func (r *repo) UpsertExtra(ctx context.Context, db *gorm.DB, line *bookingdomain.ExtraLine) error {
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "booking_id"}, {Name: "item_code"}},
		DoUpdates: clause.AssignmentColumns([]string{"item_name", "quantity", "unit_price", "amount", "updated_at"}),
	}).Create(line).Error
}

func (r *repo) ListExtras(ctx context.Context, db *gorm.DB, bookingID snowflake.ID) ([]bookingdomain.ExtraLine, error) {
	var lines []bookingdomain.ExtraLine
	err := db.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		Order("item_code ASC").
		Find(&lines).Error
	if err != nil {
		return nil, err
	}
	return lines, nil
}

func (r *repo) DeleteExtras(ctx context.Context, db *gorm.DB, bookingID snowflake.ID) error {
	return db.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		Delete(&bookingdomain.ExtraLine{}).Error
}

func (r *repo) InsertInvoice(ctx context.Context, db *gorm.DB, invoice *bookingdomain.Invoice) error {
	return db.WithContext(ctx).Create(invoice).Error
}

func (r *repo) SumInvoices(ctx context.Context, db *gorm.DB, bookingID snowflake.ID) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&bookingdomain.Invoice{}).
		Where("booking_id = ?", bookingID).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}

func (r *repo) FindInvoice(ctx context.Context, db *gorm.DB, id snowflake.ID) (*bookingdomain.Invoice, error) {
	var invoice bookingdomain.Invoice
	err := db.WithContext(ctx).Where("id = ?", id).First(&invoice).Error
	if err != nil {
		if pkgdb.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &invoice, nil
}

func (r *repo) ListInvoices(ctx context.Context, db *gorm.DB, bookingID snowflake.ID) ([]bookingdomain.Invoice, error) {
	var invoices []bookingdomain.Invoice
	err := db.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		Order("created_at ASC, id ASC").
		Find(&invoices).Error
	if err != nil {
		return nil, err
	}
	return invoices, nil
}
