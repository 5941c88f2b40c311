package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Room, error)
	// TransitionStatus moves a room to `to` only if its current status is one of `from`.
	TransitionStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, from []RoomStatus, to RoomStatus, at time.Time) error
	SetStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, to RoomStatus, at time.Time) error
	FindRoomTypeRate(ctx context.Context, db *gorm.DB, roomType RoomType) (*RoomTypeRate, error)
}

var (
	ErrNotFound         = errors.New("room_not_found")
	ErrInvalidRoomID    = errors.New("invalid_room_id")
	ErrStatusConflict   = errors.New("room_status_conflict")
	ErrInvalidRoomType  = errors.New("invalid_room_type")
	ErrRoomNotAvailable = errors.New("room_not_available")
)
