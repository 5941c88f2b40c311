package metrics

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/smallbiznis/frontdesk/internal/authorization"
	bookingdomain "github.com/smallbiznis/frontdesk/internal/booking/domain"
	checkoutdomain "github.com/smallbiznis/frontdesk/internal/checkout/domain"
	pricingdomain "github.com/smallbiznis/frontdesk/internal/pricing/domain"
	roomdomain "github.com/smallbiznis/frontdesk/internal/room/domain"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestClassifyResult(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ResultOK},
		{"deadline", context.DeadlineExceeded, ResultDeadlineExceeded},
		{"forbidden", authorization.ErrForbidden, ResultForbidden},
		{"not ready wraps ledger error", fmt.Errorf("%w: %w", checkoutdomain.ErrNotReady, bookingdomain.ErrBookingNotOpen), ResultNotReady},
		{"pricing field", &pricingdomain.FieldError{Field: "checkout_hour", Reason: "must be within [0,23]"}, ResultValidation},
		{"booking id", bookingdomain.ErrInvalidBookingID, ResultValidation},
		{"room missing", roomdomain.ErrNotFound, ResultNotFound},
		{"unique violation", &pgconn.PgError{Code: "23505"}, ResultConflict},
		{"gorm duplicate", gorm.ErrDuplicatedKey, ResultConflict},
		{"room busy", roomdomain.ErrRoomNotAvailable, ResultConflict},
		{"unknown", errors.New("boom"), ResultError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ClassifyResult(tc.err))
		})
	}
}

func TestObserveTransition(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry, Config{ServiceName: "frontdesk", Environment: "test"})

	m.ObserveTransition(OpSave, nil, 10*time.Millisecond)
	m.ObserveTransition(OpSave, nil, 12*time.Millisecond)
	m.ObserveTransition(OpSave, checkoutdomain.ErrNotReady, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.transitions.WithLabelValues(OpSave, ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitions.WithLabelValues(OpSave, ResultNotReady)))
}

func TestCountersAndNilSafety(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry, Config{})

	m.AddCollected(350_000)
	m.AddCollected(-5)
	m.IncPricingChange("restore")
	m.IncAuditDropped("queue_full")

	assert.Equal(t, 350_000.0, testutil.ToFloat64(m.collected))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.pricingChanges.WithLabelValues("restore")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.auditDropped.WithLabelValues("queue_full")))

	var none *Metrics
	assert.NotPanics(t, func() {
		none.ObserveTransition(OpPay, nil, time.Second)
		none.AddCollected(1)
		none.IncPricingChange("update")
		none.IncAuditDropped("closed")
	})
}
