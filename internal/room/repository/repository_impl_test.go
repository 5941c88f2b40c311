package repository

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	roomdomain "github.com/smallbiznis/frontdesk/internal/room/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setup(t *testing.T) (*gorm.DB, *snowflake.Node) {
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&roomdomain.Room{}, &roomdomain.RoomTypeRate{}))
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return db, node
}

func TestTransitionStatus(t *testing.T) {
	db, node := setup(t)
	r := Provide()
	ctx := context.Background()
	now := time.Now()

	room := roomdomain.Room{ID: node.Generate(), Number: "101", RoomType: roomdomain.RoomTypeSingle, Status: roomdomain.RoomStatusVacant}
	require.NoError(t, db.Create(&room).Error)

	require.NoError(t, r.TransitionStatus(ctx, db, room.ID, []roomdomain.RoomStatus{roomdomain.RoomStatusVacant}, roomdomain.RoomStatusOccupied, now))

	err := r.TransitionStatus(ctx, db, room.ID, []roomdomain.RoomStatus{roomdomain.RoomStatusVacant}, roomdomain.RoomStatusOccupied, now)
	assert.ErrorIs(t, err, roomdomain.ErrStatusConflict)

	got, err := r.FindByID(ctx, db, room.ID)
	require.NoError(t, err)
	assert.Equal(t, roomdomain.RoomStatusOccupied, got.Status)

	require.NoError(t, r.SetStatus(ctx, db, room.ID, roomdomain.RoomStatusVacant, now))
	assert.ErrorIs(t, r.SetStatus(ctx, db, node.Generate(), roomdomain.RoomStatusVacant, now), roomdomain.ErrNotFound)
}

func TestFindRoomTypeRate(t *testing.T) {
	db, _ := setup(t)
	r := Provide()
	ctx := context.Background()

	require.NoError(t, db.Create(&roomdomain.RoomTypeRate{RoomType: roomdomain.RoomTypeDouble, Name: "Double", NightlyRate: 450000, DailyRate: 380000}).Error)

	rate, err := r.FindRoomTypeRate(ctx, db, roomdomain.RoomTypeDouble)
	require.NoError(t, err)
	require.NotNil(t, rate)
	assert.Equal(t, int64(450000), rate.NightlyRate)

	missing, err := r.FindRoomTypeRate(ctx, db, roomdomain.RoomTypeSingle)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestParseRoomType(t *testing.T) {
	got, ok := roomdomain.ParseRoomType(" double ")
	assert.True(t, ok)
	assert.Equal(t, roomdomain.RoomTypeDouble, got)

	_, ok = roomdomain.ParseRoomType("suite")
	assert.False(t, ok)
}
