package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	roomdomain "github.com/smallbiznis/frontdesk/internal/room/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() roomdomain.Repository {
	return &repo{}
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*roomdomain.Room, error) {
	var room roomdomain.Room
	err := db.WithContext(ctx).Where("id = ?", id).First(&room).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &room, nil
}

func (r *repo) TransitionStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, from []roomdomain.RoomStatus, to roomdomain.RoomStatus, at time.Time) error {
	result := db.WithContext(ctx).
		Model(&roomdomain.Room{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(map[string]any{"status": to, "updated_at": at.UTC()})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return roomdomain.ErrStatusConflict
	}
	return nil
}

func (r *repo) SetStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, to roomdomain.RoomStatus, at time.Time) error {
	result := db.WithContext(ctx).
		Model(&roomdomain.Room{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": to, "updated_at": at.UTC()})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return roomdomain.ErrNotFound
	}
	return nil
}

func (r *repo) FindRoomTypeRate(ctx context.Context, db *gorm.DB, roomType roomdomain.RoomType) (*roomdomain.RoomTypeRate, error) {
	var rate roomdomain.RoomTypeRate
	err := db.WithContext(ctx).Where("room_type = ?", roomType).First(&rate).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rate, nil
}
