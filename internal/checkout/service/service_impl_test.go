package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	auditdomain "github.com/smallbiznis/frontdesk/internal/audit/domain"
	bookingdomain "github.com/smallbiznis/frontdesk/internal/booking/domain"
	bookingrepo "github.com/smallbiznis/frontdesk/internal/booking/repository"
	bookingservice "github.com/smallbiznis/frontdesk/internal/booking/service"
	checkoutdomain "github.com/smallbiznis/frontdesk/internal/checkout/domain"
	"github.com/smallbiznis/frontdesk/internal/clock"
	"github.com/smallbiznis/frontdesk/internal/config"
	pricingservice "github.com/smallbiznis/frontdesk/internal/pricing/service"
	roomdomain "github.com/smallbiznis/frontdesk/internal/room/domain"
	roomrepo "github.com/smallbiznis/frontdesk/internal/room/repository"
	settingsdomain "github.com/smallbiznis/frontdesk/internal/settings/domain"
	settingsrepo "github.com/smallbiznis/frontdesk/internal/settings/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type recordingAudit struct {
	mu      sync.Mutex
	entries []auditdomain.Entry
}

func (r *recordingAudit) Record(_ context.Context, entry auditdomain.Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
}

func (r *recordingAudit) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.Action)
	}
	return out
}

type fixture struct {
	db     *gorm.DB
	svc    checkoutdomain.Service
	clock  *clock.FakeClock
	audit  *recordingAudit
	room   roomdomain.Room
	policy *config.CheckoutPolicyHolder
}

func setup(t *testing.T, policy config.CheckoutPolicy) *fixture {
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&settingsdomain.Setting{},
		&roomdomain.Room{},
		&roomdomain.RoomTypeRate{},
		&bookingdomain.Booking{},
		&bookingdomain.ExtraLine{},
		&bookingdomain.Invoice{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2026, 3, 10, 21, 0, 0, 0, time.UTC))

	room := roomdomain.Room{
		ID:        node.Generate(),
		Number:    "101",
		RoomType:  roomdomain.RoomTypeSingle,
		Status:    roomdomain.RoomStatusVacant,
		CreatedAt: clk.Now(),
		UpdatedAt: clk.Now(),
	}
	require.NoError(t, db.Create(&room).Error)

	log := zap.NewNop()
	rooms := roomrepo.Provide()
	audit := &recordingAudit{}
	holder := config.NewStaticCheckoutPolicyHolder(policy)

	pricing := pricingservice.NewService(pricingservice.Params{
		DB:       db,
		Log:      log,
		Settings: settingsrepo.Provide(),
		Rooms:    rooms,
		Clock:    clk,
	})
	ledger := bookingservice.NewService(bookingservice.Params{
		DB:    db,
		Log:   log,
		GenID: node,
		Repo:  bookingrepo.Provide(),
		Rooms: rooms,
		Clock: clk,
	})
	svc := NewService(Params{
		DB:      db,
		Log:     log,
		Ledger:  ledger,
		Pricing: pricing,
		Rooms:   rooms,
		Cfg:     config.Config{Timezone: "UTC"},
		Policy:  holder,
		Audit:   audit,
		Clock:   clk,
	})
	return &fixture{db: db, svc: svc, clock: clk, audit: audit, room: room, policy: holder}
}

func (f *fixture) roomStatus(t *testing.T) roomdomain.RoomStatus {
	var room roomdomain.Room
	require.NoError(t, f.db.First(&room, "id = ?", f.room.ID).Error)
	return room.Status
}

func (f *fixture) count(t *testing.T, model any) int64 {
	var n int64
	require.NoError(t, f.db.Model(model).Count(&n).Error)
	return n
}

var desk = auditdomain.Actor{Name: "dina", Role: "desk", CorrelationID: "cid-9"}

func qty(code string, n int64) checkoutdomain.ExtraRequest {
	return checkoutdomain.ExtraRequest{ItemCode: code, Quantity: n}
}

func TestOvernightStayWithDrinksIsPaidInFull(t *testing.T) {
	f := setup(t, config.DefaultCheckoutPolicy())
	ctx := context.Background()

	started, err := f.svc.Start(ctx, checkoutdomain.StartRequest{
		RoomID: f.room.ID,
		Mode:   bookingdomain.ModeOvernight,
		Nights: 1,
		Actor:  desk,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 300_000, started.Breakdown.RoomBase)
	assert.EqualValues(t, 300_000, started.Breakdown.Due)
	assert.Equal(t, roomdomain.RoomStatusOccupied, started.RoomStatus)

	saved, err := f.svc.Save(ctx, checkoutdomain.SaveRequest{
		BookingID: started.BookingID,
		Extras:    []checkoutdomain.ExtraRequest{qty("soft-drink", 2), qty("water", 1)},
		Actor:     desk,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 2, saved.SoftDrinkQuantity)
	assert.EqualValues(t, 1, saved.WaterQuantity)
	assert.EqualValues(t, 50_000, saved.Breakdown.Extras)
	assert.EqualValues(t, 350_000, saved.Breakdown.Total)
	assert.EqualValues(t, 350_000, saved.Breakdown.Due)

	paid, err := f.svc.Pay(ctx, checkoutdomain.PayRequest{BookingID: started.BookingID, Confirm: true, Actor: desk})
	require.NoError(t, err)
	assert.True(t, paid.Committed)
	assert.EqualValues(t, 350_000, paid.Paid)
	assert.EqualValues(t, 350_000, paid.Collected)
	assert.EqualValues(t, 0, paid.Breakdown.Due)
	assert.Equal(t, bookingdomain.StatusPaid, paid.BookingStatus)
	assert.Equal(t, roomdomain.RoomStatusNeedsCleaning, f.roomStatus(t))
	require.Len(t, paid.Invoices, 1)
	assert.Equal(t, bookingdomain.InvoiceKindPayment, paid.Invoices[0].Kind)

	assert.Equal(t, []string{"checkout.start", "checkout.save", "checkout.pay"}, f.audit.actions())
}

func TestPayIsNotRepeatable(t *testing.T) {
	f := setup(t, config.DefaultCheckoutPolicy())
	ctx := context.Background()

	started, err := f.svc.Start(ctx, checkoutdomain.StartRequest{RoomID: f.room.ID, Mode: bookingdomain.ModeHourly, Actor: desk})
	require.NoError(t, err)

	f.clock.Advance(90 * time.Minute)
	_, err = f.svc.Pay(ctx, checkoutdomain.PayRequest{BookingID: started.BookingID, Confirm: true, Actor: desk})
	require.NoError(t, err)

	_, err = f.svc.Pay(ctx, checkoutdomain.PayRequest{BookingID: started.BookingID, Confirm: true, Actor: desk})
	assert.ErrorIs(t, err, checkoutdomain.ErrNotReady)

	_, err = f.svc.Quote(ctx, started.BookingID)
	assert.ErrorIs(t, err, checkoutdomain.ErrNotReady)

	_, err = f.svc.Cancel(ctx, checkoutdomain.CancelRequest{BookingID: started.BookingID, Actor: desk})
	assert.ErrorIs(t, err, checkoutdomain.ErrNotReady)

	assert.EqualValues(t, 1, f.count(t, &bookingdomain.Invoice{}))
}

func TestPayPreviewWritesNothing(t *testing.T) {
	f := setup(t, config.DefaultCheckoutPolicy())
	ctx := context.Background()

	started, err := f.svc.Start(ctx, checkoutdomain.StartRequest{RoomID: f.room.ID, Mode: bookingdomain.ModeHourly, Actor: desk})
	require.NoError(t, err)

	f.clock.Advance(35 * time.Minute)
	preview, err := f.svc.Pay(ctx, checkoutdomain.PayRequest{
		BookingID: started.BookingID,
		Extras:    []checkoutdomain.ExtraRequest{qty("water", 3)},
		Actor:     desk,
	})
	require.NoError(t, err)
	assert.False(t, preview.Committed)
	assert.EqualValues(t, 60_000, preview.Breakdown.RoomBase)
	assert.EqualValues(t, 30_000, preview.Breakdown.Extras)
	assert.EqualValues(t, 90_000, preview.Breakdown.Due)

	assert.EqualValues(t, 0, f.count(t, &bookingdomain.ExtraLine{}))
	assert.EqualValues(t, 0, f.count(t, &bookingdomain.Invoice{}))
	assert.Equal(t, roomdomain.RoomStatusOccupied, f.roomStatus(t))
}

func TestHourlyStayCancelledDropsExtras(t *testing.T) {
	f := setup(t, config.DefaultCheckoutPolicy())
	ctx := context.Background()

	started, err := f.svc.Start(ctx, checkoutdomain.StartRequest{RoomID: f.room.ID, Mode: bookingdomain.ModeHourly, Actor: desk})
	require.NoError(t, err)

	_, err = f.svc.Save(ctx, checkoutdomain.SaveRequest{
		BookingID: started.BookingID,
		Extras:    []checkoutdomain.ExtraRequest{qty("soft-drink", 1)},
		Actor:     desk,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, f.count(t, &bookingdomain.ExtraLine{}))

	cancelled, err := f.svc.Cancel(ctx, checkoutdomain.CancelRequest{BookingID: started.BookingID, Actor: desk})
	require.NoError(t, err)
	assert.Equal(t, bookingdomain.StatusCancelled, cancelled.BookingStatus)
	assert.Equal(t, roomdomain.RoomStatusVacant, cancelled.RoomStatus)
	assert.Empty(t, cancelled.Extras)

	assert.Equal(t, roomdomain.RoomStatusVacant, f.roomStatus(t))
	assert.EqualValues(t, 0, f.count(t, &bookingdomain.ExtraLine{}))
	assert.EqualValues(t, 0, f.count(t, &bookingdomain.Invoice{}))
}

func TestSaveSetsQuantities(t *testing.T) {
	f := setup(t, config.DefaultCheckoutPolicy())
	ctx := context.Background()

	started, err := f.svc.Start(ctx, checkoutdomain.StartRequest{RoomID: f.room.ID, Mode: bookingdomain.ModeHourly, Actor: desk})
	require.NoError(t, err)

	for _, n := range []int64{2, 2, 0} {
		res, err := f.svc.Save(ctx, checkoutdomain.SaveRequest{
			BookingID: started.BookingID,
			Extras:    []checkoutdomain.ExtraRequest{qty("Soft Drink", n)},
			Actor:     desk,
		})
		require.NoError(t, err)
		assert.EqualValues(t, n, res.SoftDrinkQuantity)
		assert.EqualValues(t, n*20_000, res.Breakdown.Extras)
	}
	assert.EqualValues(t, 1, f.count(t, &bookingdomain.ExtraLine{}))
}

func TestSaveResolvesCustomItemPrice(t *testing.T) {
	f := setup(t, config.DefaultCheckoutPolicy())
	ctx := context.Background()

	started, err := f.svc.Start(ctx, checkoutdomain.StartRequest{RoomID: f.room.ID, Mode: bookingdomain.ModeHourly, Actor: desk})
	require.NoError(t, err)

	_, err = f.svc.Save(ctx, checkoutdomain.SaveRequest{
		BookingID: started.BookingID,
		Extras:    []checkoutdomain.ExtraRequest{qty("towel", 1)},
		Actor:     desk,
	})
	assert.ErrorIs(t, err, bookingdomain.ErrInvalidUnitPrice)

	price := int64(15_000)
	res, err := f.svc.Save(ctx, checkoutdomain.SaveRequest{
		BookingID: started.BookingID,
		Extras:    []checkoutdomain.ExtraRequest{{ItemCode: "towel", ItemName: "Towel", Quantity: 1, UnitPrice: &price}},
		Actor:     desk,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 15_000, res.Breakdown.Extras)

	res, err = f.svc.Save(ctx, checkoutdomain.SaveRequest{
		BookingID: started.BookingID,
		Extras:    []checkoutdomain.ExtraRequest{qty("towel", 2)},
		Actor:     desk,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 30_000, res.Breakdown.Extras)
	require.Len(t, res.Extras, 1)
	assert.Equal(t, "Towel", res.Extras[0].ItemName)
}

func TestRejectsBadInputBeforeWriting(t *testing.T) {
	f := setup(t, config.DefaultCheckoutPolicy())
	ctx := context.Background()

	_, err := f.svc.Save(ctx, checkoutdomain.SaveRequest{Extras: []checkoutdomain.ExtraRequest{qty("water", 1)}, Actor: desk})
	assert.ErrorIs(t, err, bookingdomain.ErrInvalidBookingID)

	_, err = f.svc.Pay(ctx, checkoutdomain.PayRequest{Confirm: true, Actor: desk})
	assert.ErrorIs(t, err, bookingdomain.ErrInvalidBookingID)

	_, err = f.svc.Quote(ctx, snowflake.ID(12345))
	assert.ErrorIs(t, err, checkoutdomain.ErrNotReady)

	started, err := f.svc.Start(ctx, checkoutdomain.StartRequest{RoomID: f.room.ID, Mode: bookingdomain.ModeHourly, Actor: desk})
	require.NoError(t, err)

	_, err = f.svc.Save(ctx, checkoutdomain.SaveRequest{
		BookingID: started.BookingID,
		Extras:    []checkoutdomain.ExtraRequest{qty("water", -1)},
		Actor:     desk,
	})
	assert.ErrorIs(t, err, bookingdomain.ErrInvalidQuantity)
	assert.EqualValues(t, 0, f.count(t, &bookingdomain.ExtraLine{}))
	assert.Equal(t, []string{"checkout.start"}, f.audit.actions())
}

func TestOverflowingAmountsAreRejected(t *testing.T) {
	f := setup(t, config.DefaultCheckoutPolicy())
	ctx := context.Background()

	_, err := f.svc.Start(ctx, checkoutdomain.StartRequest{RoomID: f.room.ID, Mode: bookingdomain.ModeOvernight, Nights: 1 << 50, Actor: desk})
	assert.ErrorIs(t, err, bookingdomain.ErrInvalidNights)
	assert.Equal(t, roomdomain.RoomStatusVacant, f.roomStatus(t))
	assert.EqualValues(t, 0, f.count(t, &bookingdomain.Booking{}))

	started, err := f.svc.Start(ctx, checkoutdomain.StartRequest{RoomID: f.room.ID, Mode: bookingdomain.ModeHourly, Actor: desk})
	require.NoError(t, err)

	_, err = f.svc.Save(ctx, checkoutdomain.SaveRequest{
		BookingID: started.BookingID,
		Extras:    []checkoutdomain.ExtraRequest{qty("soft-drink", 1<<60)},
		Actor:     desk,
	})
	assert.ErrorIs(t, err, bookingdomain.ErrInvalidQuantity)

	_, err = f.svc.Pay(ctx, checkoutdomain.PayRequest{
		BookingID: started.BookingID,
		Extras:    []checkoutdomain.ExtraRequest{qty("soft-drink", 1<<60)},
		Confirm:   true,
		Actor:     desk,
	})
	assert.ErrorIs(t, err, bookingdomain.ErrInvalidQuantity)

	nights := 2
	_, err = f.svc.Save(ctx, checkoutdomain.SaveRequest{BookingID: started.BookingID, Nights: &nights, Actor: desk})
	assert.ErrorIs(t, err, bookingdomain.ErrOvernightOnly)

	assert.EqualValues(t, 0, f.count(t, &bookingdomain.ExtraLine{}))
	assert.EqualValues(t, 0, f.count(t, &bookingdomain.Invoice{}))
	assert.Equal(t, roomdomain.RoomStatusOccupied, f.roomStatus(t))
	assert.Equal(t, []string{"checkout.start"}, f.audit.actions())
}

func TestTargetCollectedRequiresPolicy(t *testing.T) {
	ctx := context.Background()
	target := int64(100_000)

	t.Run("ignored", func(t *testing.T) {
		f := setup(t, config.DefaultCheckoutPolicy())
		started, err := f.svc.Start(ctx, checkoutdomain.StartRequest{RoomID: f.room.ID, Mode: bookingdomain.ModeOvernight, Nights: 1, Actor: desk})
		require.NoError(t, err)

		res, err := f.svc.Save(ctx, checkoutdomain.SaveRequest{BookingID: started.BookingID, TargetCollected: &target, Actor: desk})
		require.NoError(t, err)
		assert.EqualValues(t, 0, res.Collected)
		assert.EqualValues(t, 300_000, res.Breakdown.Due)
	})

	t.Run("allowed", func(t *testing.T) {
		policy := config.DefaultCheckoutPolicy()
		policy.AllowCollectedOverride = true
		f := setup(t, policy)
		started, err := f.svc.Start(ctx, checkoutdomain.StartRequest{RoomID: f.room.ID, Mode: bookingdomain.ModeOvernight, Nights: 1, Actor: desk})
		require.NoError(t, err)

		res, err := f.svc.Save(ctx, checkoutdomain.SaveRequest{BookingID: started.BookingID, TargetCollected: &target, Actor: desk})
		require.NoError(t, err)
		assert.EqualValues(t, 100_000, res.Collected)
		assert.EqualValues(t, 200_000, res.Breakdown.Due)

		paid, err := f.svc.Pay(ctx, checkoutdomain.PayRequest{BookingID: started.BookingID, TargetCollected: &target, Confirm: true, Actor: desk})
		require.NoError(t, err)
		assert.EqualValues(t, 300_000, paid.Collected)
		require.Len(t, paid.Invoices, 2)
		assert.Equal(t, bookingdomain.InvoiceKindAdjustment, paid.Invoices[0].Kind)
		assert.EqualValues(t, 100_000, paid.Invoices[0].Amount)
		assert.EqualValues(t, 200_000, paid.Invoices[1].Amount)
	})
}

func TestLateCheckoutAddsFee(t *testing.T) {
	f := setup(t, config.DefaultCheckoutPolicy())
	ctx := context.Background()

	started, err := f.svc.Start(ctx, checkoutdomain.StartRequest{RoomID: f.room.ID, Mode: bookingdomain.ModeOvernight, Nights: 1, Actor: desk})
	require.NoError(t, err)

	f.clock.Set(time.Date(2026, 3, 11, 13, 30, 0, 0, time.UTC))
	res, err := f.svc.Quote(ctx, started.BookingID)
	require.NoError(t, err)
	assert.EqualValues(t, 20_000, res.Breakdown.LateFee)
	assert.EqualValues(t, 320_000, res.Breakdown.Total)
}
