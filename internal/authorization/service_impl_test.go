package authorization

import (
	"context"
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	auditdomain "github.com/smallbiznis/frontdesk/internal/audit/domain"
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

func newTestService(t *testing.T) (Service, *recordingAudit) {
	enforcer, err := NewMemoryEnforcer()
	require.NoError(t, err)
	audit := &recordingAudit{}
	return NewService(Params{Log: zap.NewNop(), Enforcer: enforcer, AuditSvc: audit}), audit
}

func TestAuthorizeRoles(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		role    string
		object  string
		action  string
		allowed bool
	}{
		{RoleDesk, ObjectStay, ActionStayPay, true},
		{RoleDesk, ObjectPricing, ActionPricingView, true},
		{RoleDesk, ObjectPricing, ActionPricingUpdate, false},
		{RoleDesk, ObjectPricing, ActionPricingRestore, false},
		{RoleManager, ObjectPricing, ActionPricingUpdate, true},
		{RoleManager, ObjectStay, ActionStayCancel, true},
		{"Manager", ObjectPricing, ActionPricingRestore, true},
		{RoleSystem, ObjectPricing, ActionPricingRestore, true},
		{"housekeeping", ObjectStay, ActionStayStart, false},
	}
	for _, tc := range cases {
		t.Run(tc.role+"/"+tc.action, func(t *testing.T) {
			err := svc.Authorize(ctx, auditdomain.Actor{Name: "x", Role: tc.role}, tc.object, tc.action)
			if tc.allowed {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrForbidden)
			}
		})
	}
}

func TestAuthorizeValidatesInput(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	assert.ErrorIs(t, svc.Authorize(ctx, auditdomain.Actor{Name: "x"}, ObjectStay, ActionStayPay), ErrInvalidActor)
	assert.ErrorIs(t, svc.Authorize(ctx, auditdomain.Actor{Role: RoleDesk}, "", ActionStayPay), ErrInvalidObject)
	assert.ErrorIs(t, svc.Authorize(ctx, auditdomain.Actor{Role: RoleDesk}, ObjectStay, " "), ErrInvalidAction)
}

func TestAuthorizeAuditsDenials(t *testing.T) {
	svc, audit := newTestService(t)

	err := svc.Authorize(context.Background(), auditdomain.Actor{Name: "dina", Role: RoleDesk, CorrelationID: "cid"}, ObjectPricing, ActionPricingUpdate)
	require.ErrorIs(t, err, ErrForbidden)

	require.Len(t, audit.entries, 1)
	assert.Equal(t, "authorization.denied", audit.entries[0].Action)
	assert.Equal(t, ActionPricingUpdate, audit.entries[0].Metadata["action"])
}

func TestGormEnforcerSeedsOnce(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	first, err := NewEnforcer(db)
	require.NoError(t, err)
	ok, err := first.Enforce(roleSubject(RoleManager), ObjectStay, ActionStayQuote)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = NewEnforcer(db)
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Table("casbin_rule").Count(&count).Error)
	assert.EqualValues(t, 11, count)
}
