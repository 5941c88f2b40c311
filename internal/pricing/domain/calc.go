package domain

import (
	"time"

	roomdomain "github.com/smallbiznis/frontdesk/internal/room/domain"
	"github.com/smallbiznis/frontdesk/pkg/money"
)

// ChargeBreakdown is the computed, never persisted, result of a pricing run.
type ChargeBreakdown struct {
	RoomType roomdomain.RoomType `json:"room_type"`

	BillableHours int `json:"billable_hours,omitempty"`
	NightSegments int `json:"night_segments,omitempty"`
	DaySegments   int `json:"day_segments,omitempty"`

	NightlyRate int64 `json:"nightly_rate,omitempty"`
	DailyRate   int64 `json:"daily_rate,omitempty"`

	NightAmount int64 `json:"night_amount"`
	DayAmount   int64 `json:"day_amount"`
	RoomBase    int64 `json:"room_base"`
	LateFee     int64 `json:"late_fee"`
	Extras      int64 `json:"extras"`
	Total       int64 `json:"total"`
	Collected   int64 `json:"collected"`
	Due         int64 `json:"due"`

	ExpectedCheckout *time.Time `json:"expected_checkout,omitempty"`
}

// Settle adds extras and the already collected amount, recomputing Total and Due.
func (b ChargeBreakdown) Settle(extras, collected int64) (ChargeBreakdown, error) {
	b.Extras = clampMoney(extras)
	b.Collected = clampMoney(collected)
	total, ok := money.Add(b.RoomBase, b.LateFee, b.Extras)
	if !ok {
		return ChargeBreakdown{}, ErrAmountOverflow
	}
	b.Total = total
	b.Due = Due(b.Total, b.Collected)
	return b, nil
}

// Due is max(0, total - collected).
func Due(total, collected int64) int64 {
	if total <= collected {
		return 0
	}
	return total - collected
}

// CalculateBillableHours rounds elapsed time into billable hours. A partial
// hour counts only when its remainder in whole minutes exceeds the room
// type's threshold, and every stay bills at least one hour.
func CalculateBillableHours(cfg PricingConfig, start, now time.Time, roomType roomdomain.RoomType) int {
	elapsed := now.Sub(start)
	if elapsed < 0 {
		elapsed = 0
	}

	hours := int(elapsed / time.Hour)
	remainder := (elapsed - time.Duration(hours)*time.Hour).Truncate(time.Minute)
	threshold := time.Duration(cfg.HourlyThresholdMinutes(roomType)) * time.Minute
	if remainder > threshold {
		hours++
	}
	if hours < 1 {
		hours = 1
	}
	return hours
}

// HourlyCharge is the first-hour rate plus the next-hour rate for every hour after the first.
func HourlyCharge(cfg PricingConfig, hours int, roomType roomdomain.RoomType) (int64, error) {
	if hours < 1 {
		hours = 1
	}
	next, ok := money.Mul(int64(hours-1), clampMoney(cfg.HourlyNextHour(roomType)))
	if !ok {
		return 0, ErrInvalidDuration
	}
	charge, ok := money.Add(clampMoney(cfg.HourlyFirstHour(roomType)), next)
	if !ok {
		return 0, ErrInvalidDuration
	}
	return charge, nil
}

func CalculateHourlyChargeBreakdown(cfg PricingConfig, start, now time.Time, roomType roomdomain.RoomType) (ChargeBreakdown, error) {
	hours := CalculateBillableHours(cfg, start, now, roomType)
	base, err := HourlyCharge(cfg, hours, roomType)
	if err != nil {
		return ChargeBreakdown{}, err
	}
	b := ChargeBreakdown{
		RoomType:      roomType,
		BillableHours: hours,
		RoomBase:      base,
	}
	return b.Settle(0, 0)
}

// OvernightRates are the resolved per-segment rates for one overnight stay.
type OvernightRates struct {
	Nightly int64
	Daily   int64
}

// CalculateOvernightChargeBreakdown splits an overnight stay into night and
// day segments. An arrival at or after the night start hour, or before the
// checkout hour, opens on a night (after-midnight arrivals belong to the
// previous calendar night). A daytime arrival bills one day segment before
// the first night. The flat late fee applies once when now passes the
// expected checkout by more than the grace hours.
func CalculateOvernightChargeBreakdown(cfg PricingConfig, start time.Time, nights int, roomType roomdomain.RoomType, rates OvernightRates, now time.Time) (ChargeBreakdown, error) {
	if nights < 1 {
		nights = 1
	}
	if start.After(now) {
		start = now
	}

	loc := start.Location()
	anchor := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, loc)
	daySegments := 0

	hour := start.Hour()
	switch {
	case hour >= cfg.NightStartHour:
	case hour < cfg.CheckoutHour:
		anchor = anchor.AddDate(0, 0, -1)
	default:
		daySegments = 1
	}

	checkoutDay := anchor.AddDate(0, 0, nights)
	expected := time.Date(checkoutDay.Year(), checkoutDay.Month(), checkoutDay.Day(), cfg.CheckoutHour, 0, 0, 0, loc)

	nightly := clampMoney(rates.Nightly)
	daily := clampMoney(rates.Daily)
	nightAmount, ok := money.Mul(int64(nights), nightly)
	if !ok {
		return ChargeBreakdown{}, ErrInvalidNights
	}
	dayAmount := int64(daySegments) * daily
	roomBase, ok := money.Add(nightAmount, dayAmount)
	if !ok {
		return ChargeBreakdown{}, ErrInvalidNights
	}

	var lateFee int64
	grace := time.Duration(cfg.GraceHours(roomType)) * time.Hour
	if now.After(expected.Add(grace)) {
		lateFee = clampMoney(cfg.LateFee(roomType))
	}

	b := ChargeBreakdown{
		RoomType:         roomType,
		NightSegments:    nights,
		DaySegments:      daySegments,
		NightlyRate:      nightly,
		DailyRate:        daily,
		NightAmount:      nightAmount,
		DayAmount:        dayAmount,
		RoomBase:         roomBase,
		LateFee:          lateFee,
		ExpectedCheckout: &expected,
	}
	return b.Settle(0, 0)
}

func clampMoney(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}
