package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	auditdomain "github.com/smallbiznis/frontdesk/internal/audit/domain"
	"github.com/smallbiznis/frontdesk/internal/clock"
	pricingdomain "github.com/smallbiznis/frontdesk/internal/pricing/domain"
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

func (a *recordingAudit) Record(ctx context.Context, entry auditdomain.Entry) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, entry)
}

func (a *recordingAudit) actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.entries))
	for _, e := range a.entries {
		out = append(out, e.Action)
	}
	return out
}

type failingSettings struct {
	settingsdomain.Repository
}

func (failingSettings) GetAll(ctx context.Context, db *gorm.DB, keys []string) (map[string]string, error) {
	return nil, errors.New("settings store down")
}

func setupDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&settingsdomain.Setting{}, &roomdomain.RoomTypeRate{}))
	return db
}

func newTestService(t *testing.T, db *gorm.DB) (*Service, *recordingAudit) {
	audit := &recordingAudit{}
	svc := NewService(Params{
		DB:       db,
		Log:      zap.NewNop(),
		Settings: settingsrepo.Provide(),
		Rooms:    roomrepo.Provide(),
		Audit:    audit,
		Clock:    clock.NewFakeClock(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)),
	})
	return svc.(*Service), audit
}

var manager = auditdomain.Actor{Name: "maria", Role: "manager", CorrelationID: "cid-1"}

func TestGetCurrentPricingDefaultsWhenStoreEmpty(t *testing.T) {
	svc, _ := newTestService(t, setupDB(t))

	cfg, err := svc.GetCurrentPricing(context.Background())
	require.NoError(t, err)
	assert.Equal(t, pricingdomain.DefaultPricingConfig(), cfg)
}

func TestGetCurrentPricingParsesStoredValues(t *testing.T) {
	db := setupDB(t)
	require.NoError(t, settingsrepo.Provide().UpsertMany(context.Background(), db, map[string]string{
		pricingdomain.KeyNightlyRateSingle: "325.000",
		pricingdomain.KeyLateFeeDouble:     "35,000",
	}, "seed", time.Now()))

	svc, _ := newTestService(t, db)
	cfg, err := svc.GetCurrentPricing(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 325_000, cfg.NightlyRateSingle)
	assert.EqualValues(t, 35_000, cfg.LateFeeDouble)
}

func TestGetCurrentPricingIsCached(t *testing.T) {
	db := setupDB(t)
	svc, _ := newTestService(t, db)
	ctx := context.Background()

	_, err := svc.GetCurrentPricing(ctx)
	require.NoError(t, err)

	require.NoError(t, settingsrepo.Provide().UpsertMany(ctx, db, map[string]string{
		pricingdomain.KeyWaterPrice: "15000",
	}, "external", time.Now()))

	cfg, err := svc.GetCurrentPricing(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 10_000, cfg.WaterPrice)

	svc.Invalidate()
	cfg, err = svc.GetCurrentPricing(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 15_000, cfg.WaterPrice)
}

func TestGetCurrentPricingPropagatesStoreError(t *testing.T) {
	svc, _ := newTestService(t, setupDB(t))
	svc.settings = failingSettings{}

	_, err := svc.GetCurrentPricing(context.Background())
	assert.ErrorContains(t, err, "settings store down")
}

func TestSavePricingPersistsAndNotifies(t *testing.T) {
	db := setupDB(t)
	svc, audit := newTestService(t, db)
	ctx := context.Background()

	changes, cancel := svc.Subscribe()
	defer cancel()

	cfg := pricingdomain.DefaultPricingConfig()
	cfg.NightlyRateDouble = 420_000
	cfg.CheckoutHour = 11

	_, err := svc.SavePricing(ctx, cfg, manager)
	require.NoError(t, err)
	assert.EqualValues(t, 1, svc.Version())

	select {
	case change := <-changes:
		assert.EqualValues(t, 1, change.Version)
		assert.Equal(t, cfg, change.Config)
		assert.Equal(t, "maria", change.Actor)
		assert.False(t, change.Restored)
	default:
		t.Fatal("expected a change notification")
	}

	// a fresh instance reads the persisted values
	other, _ := newTestService(t, db)
	got, err := other.GetCurrentPricing(ctx)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)

	assert.Equal(t, []string{"pricing.update"}, audit.actions())
	assert.Equal(t, "400000", audit.entries[0].Before[pricingdomain.KeyNightlyRateDouble])
	assert.Equal(t, "420000", audit.entries[0].After[pricingdomain.KeyNightlyRateDouble])
}

func TestSavePricingRejectsInvalidWithoutWriting(t *testing.T) {
	db := setupDB(t)
	svc, audit := newTestService(t, db)
	ctx := context.Background()

	cfg := pricingdomain.DefaultPricingConfig()
	cfg.LateFeeSingle = -1
	cfg.NightStartHour = 25

	_, err := svc.SavePricing(ctx, cfg, manager)
	require.ErrorIs(t, err, pricingdomain.ErrInvalidPricing)

	var count int64
	require.NoError(t, db.Model(&settingsdomain.Setting{}).Count(&count).Error)
	assert.Zero(t, count)
	assert.Zero(t, svc.Version())
	assert.Empty(t, audit.actions())
}

func TestRestoreDefaultsReturnsDocumentedTable(t *testing.T) {
	db := setupDB(t)
	svc, audit := newTestService(t, db)
	ctx := context.Background()

	custom := pricingdomain.DefaultPricingConfig()
	custom.SoftDrinkPrice = 25_000
	custom.HourlyThresholdMinutesSingle = 15
	_, err := svc.SavePricing(ctx, custom, manager)
	require.NoError(t, err)

	_, err = svc.RestoreDefaults(ctx, manager)
	require.NoError(t, err)

	got, err := svc.GetCurrentPricing(ctx)
	require.NoError(t, err)
	want := pricingdomain.PricingConfig{
		NightlyRateSingle: 300000, NightlyRateDouble: 400000,
		DailyRateSingle: 250000, DailyRateDouble: 350000,
		HourlyFirstHourSingle: 60000, HourlyNextHourSingle: 20000, HourlyThresholdMinutesSingle: 30,
		HourlyFirstHourDouble: 80000, HourlyNextHourDouble: 30000, HourlyThresholdMinutesDouble: 30,
		NightStartHour: 20, CheckoutHour: 12,
		GraceHoursSingle: 1, GraceHoursDouble: 1,
		LateFeeSingle: 20000, LateFeeDouble: 30000,
		SoftDrinkPrice: 20000, WaterPrice: 10000,
	}
	assert.Equal(t, want, got)

	svc.Invalidate()
	reloaded, err := svc.GetCurrentPricing(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, reloaded)
	assert.Equal(t, []string{"pricing.update", "pricing.restore"}, audit.actions())
}

func TestSubscribeKeepsNewestAndCancels(t *testing.T) {
	svc, _ := newTestService(t, setupDB(t))
	ctx := context.Background()

	changes, cancel := svc.Subscribe()

	cfg := pricingdomain.DefaultPricingConfig()
	for i := 0; i < 3; i++ {
		cfg.WaterPrice = int64(11_000 + i)
		_, err := svc.SavePricing(ctx, cfg, manager)
		require.NoError(t, err)
	}

	change := <-changes
	assert.EqualValues(t, 3, change.Version)
	assert.EqualValues(t, 13_000, change.Config.WaterPrice)

	cancel()
	cancel()
	_, open := <-changes
	assert.False(t, open)

	_, err := svc.SavePricing(ctx, cfg, manager)
	require.NoError(t, err)
}

func TestCalculationsRejectInvalidInput(t *testing.T) {
	svc, _ := newTestService(t, setupDB(t))
	ctx := context.Background()
	start := time.Date(2026, 3, 10, 21, 0, 0, 0, time.UTC)
	now := start.Add(12 * time.Hour)

	_, err := svc.CalculateBillableHours(ctx, start, now, roomdomain.RoomType("SUITE"))
	assert.ErrorIs(t, err, roomdomain.ErrInvalidRoomType)

	_, err = svc.CalculateBillableHours(ctx, time.Time{}, now, roomdomain.RoomTypeSingle)
	assert.ErrorIs(t, err, pricingdomain.ErrInvalidDuration)

	_, err = svc.CalculateOvernightChargeBreakdown(ctx, start, -1, roomdomain.RoomTypeSingle, nil, now, nil)
	assert.ErrorIs(t, err, pricingdomain.ErrInvalidNights)

	negative := int64(-1)
	_, err = svc.CalculateOvernightChargeBreakdown(ctx, start, 1, roomdomain.RoomTypeSingle, &negative, now, nil)
	assert.ErrorIs(t, err, pricingdomain.ErrInvalidRate)

	_, err = svc.CalculateOvernightChargeBreakdown(ctx, start, 1<<50, roomdomain.RoomTypeSingle, nil, now, nil)
	assert.ErrorIs(t, err, pricingdomain.ErrInvalidNights)

	_, err = svc.GetDefaultNightlyRate(ctx, roomdomain.RoomType(""))
	assert.ErrorIs(t, err, roomdomain.ErrInvalidRoomType)
}

func TestOvernightScenarios(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2026, 3, 10, 21, 0, 0, 0, time.UTC)

	t.Run("checkout before noon", func(t *testing.T) {
		svc, _ := newTestService(t, setupDB(t))
		b, err := svc.CalculateOvernightChargeBreakdown(ctx, start, 1, roomdomain.RoomTypeSingle, nil, start.Add(14*time.Hour), nil)
		require.NoError(t, err)
		assert.EqualValues(t, 300_000, b.RoomBase)
		assert.Zero(t, b.LateFee)
	})

	t.Run("late checkout without grace", func(t *testing.T) {
		svc, _ := newTestService(t, setupDB(t))
		cfg := pricingdomain.DefaultPricingConfig()
		cfg.GraceHoursSingle = 0
		_, err := svc.SavePricing(ctx, cfg, manager)
		require.NoError(t, err)

		b, err := svc.CalculateOvernightChargeBreakdown(ctx, start, 1, roomdomain.RoomTypeSingle, nil, start.Add(17*time.Hour), nil)
		require.NoError(t, err)
		assert.EqualValues(t, 300_000, b.RoomBase)
		assert.EqualValues(t, 20_000, b.LateFee)
		assert.EqualValues(t, 320_000, b.Total)
	})

	t.Run("override wins", func(t *testing.T) {
		svc, _ := newTestService(t, setupDB(t))
		override := int64(275_000)
		b, err := svc.CalculateOvernightChargeBreakdown(ctx, start, 2, roomdomain.RoomTypeSingle, &override, start.Add(14*time.Hour), nil)
		require.NoError(t, err)
		assert.EqualValues(t, 550_000, b.RoomBase)
	})
}

func TestDefaultRatesFallBackToLegacyRoomTypes(t *testing.T) {
	db := setupDB(t)
	require.NoError(t, db.Create(&roomdomain.RoomTypeRate{
		RoomType:    roomdomain.RoomTypeDouble,
		Name:        "Double",
		NightlyRate: 410_000,
		DailyRate:   360_000,
	}).Error)

	svc, _ := newTestService(t, db)
	ctx := context.Background()

	nightly, err := svc.GetDefaultNightlyRate(ctx, roomdomain.RoomTypeDouble)
	require.NoError(t, err)
	assert.EqualValues(t, 400_000, nightly)

	cfg := pricingdomain.DefaultPricingConfig()
	cfg.NightlyRateDouble = 0
	cfg.DailyRateDouble = 0
	_, err = svc.SavePricing(ctx, cfg, manager)
	require.NoError(t, err)

	nightly, err = svc.GetDefaultNightlyRate(ctx, roomdomain.RoomTypeDouble)
	require.NoError(t, err)
	assert.EqualValues(t, 410_000, nightly)

	daily, err := svc.GetDefaultDailyRate(ctx, roomdomain.RoomTypeDouble)
	require.NoError(t, err)
	assert.EqualValues(t, 360_000, daily)
}
