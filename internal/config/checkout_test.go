package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateCheckoutPolicy(t *testing.T) {
	assert.NoError(t, validateCheckoutPolicy(DefaultCheckoutPolicy()))
	assert.Error(t, validateCheckoutPolicy(CheckoutPolicy{QuoteRefreshSeconds: 0}))
}

func TestStaticCheckoutPolicyHolder(t *testing.T) {
	holder := NewStaticCheckoutPolicyHolder(CheckoutPolicy{AllowCollectedOverride: true, QuoteRefreshSeconds: 2})
	got := holder.Get()
	assert.True(t, got.AllowCollectedOverride)
	assert.Equal(t, 2, got.QuoteRefreshSeconds)
}

func TestGetenvHelpers(t *testing.T) {
	t.Setenv("FD_TEST_BOOL", "yes")
	t.Setenv("FD_TEST_INT", "42")
	t.Setenv("FD_TEST_BAD_INT", "abc")

	assert.True(t, getenvBool("FD_TEST_BOOL", false))
	assert.False(t, getenvBool("FD_TEST_MISSING", false))
	assert.Equal(t, 42, getenvInt("FD_TEST_INT", 1))
	assert.Equal(t, 7, getenvInt("FD_TEST_BAD_INT", 7))
	assert.Equal(t, "fallback", getenv("FD_TEST_MISSING", "fallback"))
}
