package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// CheckoutPolicy holds operator-tunable switches for the checkout flow.
type CheckoutPolicy struct {
	// AllowCollectedOverride lets the desk supply an already-collected amount
	// that is higher than the invoice history (deposits taken off-system).
	AllowCollectedOverride bool `mapstructure:"allowCollectedOverride"`
	QuoteRefreshSeconds    int  `mapstructure:"quoteRefreshSeconds"`
}

func DefaultCheckoutPolicy() CheckoutPolicy {
	return CheckoutPolicy{
		AllowCollectedOverride: false,
		QuoteRefreshSeconds:    1,
	}
}

type CheckoutPolicyHolder struct {
	current atomic.Value // holds CheckoutPolicy
}

// NewStaticCheckoutPolicyHolder returns a holder that never reloads.
func NewStaticCheckoutPolicyHolder(policy CheckoutPolicy) *CheckoutPolicyHolder {
	holder := &CheckoutPolicyHolder{}
	holder.current.Store(policy)
	return holder
}

func NewCheckoutPolicyHolder() (*CheckoutPolicyHolder, error) {
	v := viper.New()

	v.SetConfigName("checkout")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/frontdesk")
	v.AddConfigPath(".")

	v.SetEnvPrefix("FRONTDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultCheckoutPolicy()
	v.SetDefault("checkout.allowCollectedOverride", defaults.AllowCollectedOverride)
	v.SetDefault("checkout.quoteRefreshSeconds", defaults.QuoteRefreshSeconds)

	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileFound = false
	}

	var policy CheckoutPolicy
	if err := v.UnmarshalKey("checkout", &policy); err != nil {
		return nil, err
	}
	if err := validateCheckoutPolicy(policy); err != nil {
		return nil, err
	}

	holder := NewStaticCheckoutPolicyHolder(policy)
	if !fileFound {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated CheckoutPolicy
		if err := v.UnmarshalKey("checkout", &updated); err != nil {
			log.Printf("[checkout-policy] reload failed: %v", err)
			return
		}
		if err := validateCheckoutPolicy(updated); err != nil {
			log.Printf("[checkout-policy] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[checkout-policy] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *CheckoutPolicyHolder) Get() CheckoutPolicy {
	return h.current.Load().(CheckoutPolicy)
}

func validateCheckoutPolicy(policy CheckoutPolicy) error {
	if policy.QuoteRefreshSeconds < 1 {
		return errors.New("checkout.quoteRefreshSeconds must be at least 1")
	}
	return nil
}
