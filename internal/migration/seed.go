package migration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	roomdomain "github.com/smallbiznis/frontdesk/internal/room/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Legacy rates are left at zero so the settings-backed pricing wins.
var defaultRoomTypes = []roomdomain.RoomTypeRate{
	{RoomType: roomdomain.RoomTypeSingle, Name: "Single"},
	{RoomType: roomdomain.RoomTypeDouble, Name: "Double"},
}

// EnsureRoomTypes inserts the known room types, leaving existing rows alone.
func EnsureRoomTypes(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}
	rows := make([]roomdomain.RoomTypeRate, len(defaultRoomTypes))
	copy(rows, defaultRoomTypes)
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rows).Error
}

// EnsureDemoRooms creates rooms 101-105 (single) and 201-205 (double) when
// the rooms table is empty.
func EnsureDemoRooms(ctx context.Context, db *gorm.DB, node *snowflake.Node, now time.Time) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}
	if node == nil {
		return errors.New("seed id generator is required")
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&roomdomain.Room{}).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		rooms := make([]roomdomain.Room, 0, 10)
		for floor, roomType := range []roomdomain.RoomType{roomdomain.RoomTypeSingle, roomdomain.RoomTypeDouble} {
			for n := 1; n <= 5; n++ {
				rooms = append(rooms, roomdomain.Room{
					ID:        node.Generate(),
					Number:    fmt.Sprintf("%d%02d", floor+1, n),
					RoomType:  roomType,
					Status:    roomdomain.RoomStatusVacant,
					CreatedAt: now,
					UpdatedAt: now,
				})
			}
		}
		return tx.Create(&rooms).Error
	})
}
