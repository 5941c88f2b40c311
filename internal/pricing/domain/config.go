package domain

import (
	"errors"
	"fmt"

	roomdomain "github.com/smallbiznis/frontdesk/internal/room/domain"
)

// PricingConfig is an immutable snapshot of every tunable billing parameter.
// Money is expressed in whole currency units.
type PricingConfig struct {
	NightlyRateSingle int64 `json:"nightly_rate_single"`
	NightlyRateDouble int64 `json:"nightly_rate_double"`
	DailyRateSingle   int64 `json:"daily_rate_single"`
	DailyRateDouble   int64 `json:"daily_rate_double"`

	HourlyFirstHourSingle        int64 `json:"hourly_first_hour_single"`
	HourlyNextHourSingle         int64 `json:"hourly_next_hour_single"`
	HourlyThresholdMinutesSingle int   `json:"hourly_threshold_minutes_single"`
	HourlyFirstHourDouble        int64 `json:"hourly_first_hour_double"`
	HourlyNextHourDouble         int64 `json:"hourly_next_hour_double"`
	HourlyThresholdMinutesDouble int   `json:"hourly_threshold_minutes_double"`

	NightStartHour int `json:"night_start_hour"`
	CheckoutHour   int `json:"checkout_hour"`

	GraceHoursSingle int   `json:"grace_hours_single"`
	GraceHoursDouble int   `json:"grace_hours_double"`
	LateFeeSingle    int64 `json:"late_fee_single"`
	LateFeeDouble    int64 `json:"late_fee_double"`

	SoftDrinkPrice int64 `json:"soft_drink_price"`
	WaterPrice     int64 `json:"water_price"`
}

// DefaultPricingConfig is the documented table written by RestoreDefaults.
func DefaultPricingConfig() PricingConfig {
	return PricingConfig{
		NightlyRateSingle: 300_000,
		NightlyRateDouble: 400_000,
		DailyRateSingle:   250_000,
		DailyRateDouble:   350_000,

		HourlyFirstHourSingle:        60_000,
		HourlyNextHourSingle:         20_000,
		HourlyThresholdMinutesSingle: 30,
		HourlyFirstHourDouble:        80_000,
		HourlyNextHourDouble:         30_000,
		HourlyThresholdMinutesDouble: 30,

		NightStartHour: 20,
		CheckoutHour:   12,

		GraceHoursSingle: 1,
		GraceHoursDouble: 1,
		LateFeeSingle:    20_000,
		LateFeeDouble:    30_000,

		SoftDrinkPrice: 20_000,
		WaterPrice:     10_000,
	}
}

var ErrInvalidPricing = errors.New("invalid_pricing")

// FieldError reports one pricing field that violates its invariant.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("invalid_pricing: %s %s", e.Field, e.Reason)
}

func (e *FieldError) Unwrap() error {
	return ErrInvalidPricing
}

// Validate checks every field and returns all violations joined together.
func (c PricingConfig) Validate() error {
	var errs []error

	money := []struct {
		field string
		value int64
	}{
		{"nightly_rate_single", c.NightlyRateSingle},
		{"nightly_rate_double", c.NightlyRateDouble},
		{"daily_rate_single", c.DailyRateSingle},
		{"daily_rate_double", c.DailyRateDouble},
		{"hourly_first_hour_single", c.HourlyFirstHourSingle},
		{"hourly_next_hour_single", c.HourlyNextHourSingle},
		{"hourly_first_hour_double", c.HourlyFirstHourDouble},
		{"hourly_next_hour_double", c.HourlyNextHourDouble},
		{"late_fee_single", c.LateFeeSingle},
		{"late_fee_double", c.LateFeeDouble},
		{"soft_drink_price", c.SoftDrinkPrice},
		{"water_price", c.WaterPrice},
	}
	for _, m := range money {
		if m.value < 0 {
			errs = append(errs, &FieldError{Field: m.field, Reason: "must be >= 0"})
		}
	}

	minutes := []struct {
		field string
		value int
	}{
		{"hourly_threshold_minutes_single", c.HourlyThresholdMinutesSingle},
		{"hourly_threshold_minutes_double", c.HourlyThresholdMinutesDouble},
	}
	for _, m := range minutes {
		if m.value < 0 || m.value > 59 {
			errs = append(errs, &FieldError{Field: m.field, Reason: "must be within [0,59]"})
		}
	}

	hours := []struct {
		field string
		value int
	}{
		{"night_start_hour", c.NightStartHour},
		{"checkout_hour", c.CheckoutHour},
	}
	for _, h := range hours {
		if h.value < 0 || h.value > 23 {
			errs = append(errs, &FieldError{Field: h.field, Reason: "must be within [0,23]"})
		}
	}

	if c.GraceHoursSingle < 0 {
		errs = append(errs, &FieldError{Field: "grace_hours_single", Reason: "must be >= 0"})
	}
	if c.GraceHoursDouble < 0 {
		errs = append(errs, &FieldError{Field: "grace_hours_double", Reason: "must be >= 0"})
	}

	return errors.Join(errs...)
}

func (c PricingConfig) NightlyRate(t roomdomain.RoomType) int64 {
	if t == roomdomain.RoomTypeDouble {
		return c.NightlyRateDouble
	}
	return c.NightlyRateSingle
}

func (c PricingConfig) DailyRate(t roomdomain.RoomType) int64 {
	if t == roomdomain.RoomTypeDouble {
		return c.DailyRateDouble
	}
	return c.DailyRateSingle
}

func (c PricingConfig) HourlyFirstHour(t roomdomain.RoomType) int64 {
	if t == roomdomain.RoomTypeDouble {
		return c.HourlyFirstHourDouble
	}
	return c.HourlyFirstHourSingle
}

func (c PricingConfig) HourlyNextHour(t roomdomain.RoomType) int64 {
	if t == roomdomain.RoomTypeDouble {
		return c.HourlyNextHourDouble
	}
	return c.HourlyNextHourSingle
}

func (c PricingConfig) HourlyThresholdMinutes(t roomdomain.RoomType) int {
	if t == roomdomain.RoomTypeDouble {
		return c.HourlyThresholdMinutesDouble
	}
	return c.HourlyThresholdMinutesSingle
}

func (c PricingConfig) GraceHours(t roomdomain.RoomType) int {
	if t == roomdomain.RoomTypeDouble {
		return c.GraceHoursDouble
	}
	return c.GraceHoursSingle
}

func (c PricingConfig) LateFee(t roomdomain.RoomType) int64 {
	if t == roomdomain.RoomTypeDouble {
		return c.LateFeeDouble
	}
	return c.LateFeeSingle
}
