package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

type RoomType string

const (
	RoomTypeSingle RoomType = "SINGLE"
	RoomTypeDouble RoomType = "DOUBLE"
)

// ParseRoomType normalizes a room type code; ok is false for unknown codes.
func ParseRoomType(value string) (RoomType, bool) {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case string(RoomTypeSingle):
		return RoomTypeSingle, true
	case string(RoomTypeDouble):
		return RoomTypeDouble, true
	default:
		return "", false
	}
}

func (t RoomType) Valid() bool {
	_, ok := ParseRoomType(string(t))
	return ok
}

type RoomStatus string

const (
	RoomStatusVacant        RoomStatus = "VACANT"
	RoomStatusOccupied      RoomStatus = "OCCUPIED"
	RoomStatusNeedsCleaning RoomStatus = "NEEDS_CLEANING"
	RoomStatusReserved      RoomStatus = "RESERVED"
)

// Assignable reports whether a new stay may be opened on a room in this status.
func (s RoomStatus) Assignable() bool {
	return s == RoomStatusVacant || s == RoomStatusReserved
}

type Room struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey"`
	Number    string       `json:"number" gorm:"type:varchar(32);not null;uniqueIndex"`
	RoomType  RoomType     `json:"room_type" gorm:"type:varchar(16);not null"`
	Status    RoomStatus   `json:"status" gorm:"type:varchar(32);not null;default:'VACANT'"`
	CreatedAt time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time    `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Room) TableName() string { return "rooms" }

// RoomTypeRate is the legacy per-room-type default rate table that predates
// the settings-backed pricing configuration.
type RoomTypeRate struct {
	RoomType    RoomType `json:"room_type" gorm:"primaryKey;type:varchar(16)"`
	Name        string   `json:"name" gorm:"type:text"`
	NightlyRate int64    `json:"nightly_rate" gorm:"not null;default:0"`
	DailyRate   int64    `json:"daily_rate" gorm:"not null;default:0"`
}

func (RoomTypeRate) TableName() string { return "room_types" }
