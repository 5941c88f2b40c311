package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"300000", 300000},
		{" 300000 ", 300000},
		{"300,000", 300000},
		{"300.000", 300000},
		{"300 000", 300000},
		{"300 000", 300000},
		{"1.250.000", 1250000},
		{"1,250,000", 1250000},
		{"300000.00", 300000},
		{"300000,00", 300000},
		{"1,250,000.50", 1250001},
		{"1.250.000,49", 1250000},
		{"30", 30},
		{"0", 0},
		{"-5", -5},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseAmount(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseAmountRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "  ", "abc", "12x", "1.2.3,4,5"} {
		_, err := ParseAmount(in)
		assert.Error(t, err, in)
	}
}

func TestSettingsRoundTripDefaults(t *testing.T) {
	cfg := DefaultPricingConfig()
	values := cfg.ToSettings()
	assert.Len(t, values, len(Keys()))
	assert.Equal(t, "300000", values[KeyNightlyRateSingle])
	assert.Equal(t, "20", values[KeyNightStartHour])

	got, err := FromSettings(values)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestFromSettingsFallsBackToDefaults(t *testing.T) {
	got, err := FromSettings(map[string]string{
		KeyNightlyRateDouble: "450.000",
		KeyCheckoutHour:      "11",
		KeyWaterPrice:        "",
	})
	require.NoError(t, err)

	want := DefaultPricingConfig()
	want.NightlyRateDouble = 450000
	want.CheckoutHour = 11
	assert.Equal(t, want, got)
}

func TestFromSettingsReportsMalformedKey(t *testing.T) {
	_, err := FromSettings(map[string]string{KeyLateFeeSingle: "twenty"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidPricing)
	assert.Contains(t, err.Error(), KeyLateFeeSingle)
}
