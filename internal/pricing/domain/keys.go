package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Settings keys persisted for each PricingConfig field.
const (
	KeyNightlyRateSingle            = "pricing.nightly_rate.single"
	KeyNightlyRateDouble            = "pricing.nightly_rate.double"
	KeyDailyRateSingle              = "pricing.daily_rate.single"
	KeyDailyRateDouble              = "pricing.daily_rate.double"
	KeyHourlyFirstHourSingle        = "pricing.hourly.first_hour.single"
	KeyHourlyNextHourSingle         = "pricing.hourly.next_hour.single"
	KeyHourlyThresholdMinutesSingle = "pricing.hourly.threshold_minutes.single"
	KeyHourlyFirstHourDouble        = "pricing.hourly.first_hour.double"
	KeyHourlyNextHourDouble         = "pricing.hourly.next_hour.double"
	KeyHourlyThresholdMinutesDouble = "pricing.hourly.threshold_minutes.double"
	KeyNightStartHour               = "pricing.night_start_hour"
	KeyCheckoutHour                 = "pricing.checkout_hour"
	KeyGraceHoursSingle             = "pricing.grace_hours.single"
	KeyGraceHoursDouble             = "pricing.grace_hours.double"
	KeyLateFeeSingle                = "pricing.late_fee.single"
	KeyLateFeeDouble                = "pricing.late_fee.double"
	KeySoftDrinkPrice               = "pricing.drink.soft_drink"
	KeyWaterPrice                   = "pricing.drink.water"
)

type field struct {
	key   string
	money func(c *PricingConfig) *int64
	count func(c *PricingConfig) *int
}

var fields = []field{
	{key: KeyNightlyRateSingle, money: func(c *PricingConfig) *int64 { return &c.NightlyRateSingle }},
	{key: KeyNightlyRateDouble, money: func(c *PricingConfig) *int64 { return &c.NightlyRateDouble }},
	{key: KeyDailyRateSingle, money: func(c *PricingConfig) *int64 { return &c.DailyRateSingle }},
	{key: KeyDailyRateDouble, money: func(c *PricingConfig) *int64 { return &c.DailyRateDouble }},
	{key: KeyHourlyFirstHourSingle, money: func(c *PricingConfig) *int64 { return &c.HourlyFirstHourSingle }},
	{key: KeyHourlyNextHourSingle, money: func(c *PricingConfig) *int64 { return &c.HourlyNextHourSingle }},
	{key: KeyHourlyThresholdMinutesSingle, count: func(c *PricingConfig) *int { return &c.HourlyThresholdMinutesSingle }},
	{key: KeyHourlyFirstHourDouble, money: func(c *PricingConfig) *int64 { return &c.HourlyFirstHourDouble }},
	{key: KeyHourlyNextHourDouble, money: func(c *PricingConfig) *int64 { return &c.HourlyNextHourDouble }},
	{key: KeyHourlyThresholdMinutesDouble, count: func(c *PricingConfig) *int { return &c.HourlyThresholdMinutesDouble }},
	{key: KeyNightStartHour, count: func(c *PricingConfig) *int { return &c.NightStartHour }},
	{key: KeyCheckoutHour, count: func(c *PricingConfig) *int { return &c.CheckoutHour }},
	{key: KeyGraceHoursSingle, count: func(c *PricingConfig) *int { return &c.GraceHoursSingle }},
	{key: KeyGraceHoursDouble, count: func(c *PricingConfig) *int { return &c.GraceHoursDouble }},
	{key: KeyLateFeeSingle, money: func(c *PricingConfig) *int64 { return &c.LateFeeSingle }},
	{key: KeyLateFeeDouble, money: func(c *PricingConfig) *int64 { return &c.LateFeeDouble }},
	{key: KeySoftDrinkPrice, money: func(c *PricingConfig) *int64 { return &c.SoftDrinkPrice }},
	{key: KeyWaterPrice, money: func(c *PricingConfig) *int64 { return &c.WaterPrice }},
}

// Keys lists every settings key owned by the pricing engine.
func Keys() []string {
	keys := make([]string, 0, len(fields))
	for _, f := range fields {
		keys = append(keys, f.key)
	}
	return keys
}

// ToSettings flattens the config into settings key/value pairs.
func (c PricingConfig) ToSettings() map[string]string {
	out := make(map[string]string, len(fields))
	for _, f := range fields {
		if f.money != nil {
			out[f.key] = strconv.FormatInt(*f.money(&c), 10)
			continue
		}
		out[f.key] = strconv.Itoa(*f.count(&c))
	}
	return out
}

// FromSettings overlays stored values onto the default table. Missing keys
// keep their default; malformed values are reported as field errors.
func FromSettings(values map[string]string) (PricingConfig, error) {
	cfg := DefaultPricingConfig()
	for _, f := range fields {
		raw, ok := values[f.key]
		if !ok || strings.TrimSpace(raw) == "" {
			continue
		}
		n, err := ParseAmount(raw)
		if err != nil {
			return PricingConfig{}, &FieldError{Field: f.key, Reason: err.Error()}
		}
		if f.money != nil {
			*f.money(&cfg) = n
			continue
		}
		*f.count(&cfg) = int(n)
	}
	return cfg, nil
}

// ParseAmount parses an integer or decimal value written with any common
// grouping/decimal separator convention and rounds it to whole units.
//
//	300000, 300,000, 300.000, 300 000, 300000.00, 300.000,50, 1,5
func ParseAmount(raw string) (int64, error) {
	s := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\u00a0', '_', '\'':
			return -1
		}
		return r
	}, strings.TrimSpace(raw))
	if s == "" {
		return 0, fmt.Errorf("empty value")
	}

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}

	normalized := normalizeSeparators(s)
	f, err := strconv.ParseFloat(normalized, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("malformed number %q", raw)
	}
	if f > math.MaxInt64 || f < math.MinInt64 {
		return 0, fmt.Errorf("out of range %q", raw)
	}
	return int64(math.Round(f)), nil
}

func normalizeSeparators(s string) string {
	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")

	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			return strings.Replace(s, ",", ".", 1)
		}
		return strings.ReplaceAll(s, ",", "")
	case lastComma >= 0:
		return normalizeSingle(s, ",")
	case lastDot >= 0:
		return normalizeSingle(s, ".")
	}
	return s
}

// normalizeSingle handles a value using only one kind of separator. Repeated
// separators, or one followed by exactly three digits, are grouping marks.
func normalizeSingle(s, sep string) string {
	if strings.Count(s, sep) > 1 {
		return strings.ReplaceAll(s, sep, "")
	}
	idx := strings.Index(s, sep)
	if len(s)-idx-1 == 3 {
		return strings.ReplaceAll(s, sep, "")
	}
	return strings.Replace(s, sep, ".", 1)
}
