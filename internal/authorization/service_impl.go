package authorization

import (
	"context"
	_ "embed"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/casbin/casbin/v2/persist"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	auditdomain "github.com/smallbiznis/frontdesk/internal/audit/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectStay    = "stay"
	ObjectPricing = "pricing"
	ObjectInvoice = "invoice"
)

const (
	ActionStayStart  = "stay.start"
	ActionStayQuote  = "stay.quote"
	ActionStaySave   = "stay.save"
	ActionStayPay    = "stay.pay"
	ActionStayCancel = "stay.cancel"

	ActionPricingView    = "pricing.view"
	ActionPricingUpdate  = "pricing.update"
	ActionPricingRestore = "pricing.restore"

	ActionInvoiceView = "invoice.view"
)

const (
	RoleDesk    = "desk"
	RoleManager = "manager"
	RoleSystem  = "system"
)

var Module = fx.Module("authorization",
	fx.Provide(NewEnforcer),
	fx.Provide(NewService),
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
	AuditSvc auditdomain.Service `optional:"true"`
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
	auditSvc auditdomain.Service
}

// NewEnforcer loads the role policies from the casbin_rule table and seeds the
// built-in front-desk roles.
func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	return newEnforcer(adapter)
}

// NewMemoryEnforcer builds an enforcer without persistence.
func NewMemoryEnforcer() (*casbin.SyncedEnforcer, error) {
	return newEnforcer(nil)
}

func newEnforcer(adapter persist.Adapter) (*casbin.SyncedEnforcer, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}

	var enforcer *casbin.SyncedEnforcer
	if adapter != nil {
		enforcer, err = casbin.NewSyncedEnforcer(m, adapter)
	} else {
		enforcer, err = casbin.NewSyncedEnforcer(m)
	}
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoBuildRoleLinks(true)
	if adapter != nil {
		enforcer.EnableAutoSave(true)
		if err := enforcer.LoadPolicy(); err != nil {
			return nil, err
		}
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	if err := enforcer.BuildRoleLinks(); err != nil {
		return nil, err
	}
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
		auditSvc: p.AuditSvc,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, actor auditdomain.Actor, object string, action string) error {
	actor = actor.Normalize()
	if actor.Role == "" {
		return ErrInvalidActor
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	allowed, err := s.enforcer.Enforce(roleSubject(actor.Role), object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.log.Info("authorization denied",
			zap.String("actor", actor.Name),
			zap.String("role", actor.Role),
			zap.String("action", action),
		)
		s.auditDenied(ctx, actor, object, action)
		return ErrForbidden
	}
	return nil
}

func (s *ServiceImpl) auditDenied(ctx context.Context, actor auditdomain.Actor, object string, action string) {
	if s.auditSvc == nil {
		return
	}
	s.auditSvc.Record(ctx, auditdomain.Entry{
		Actor:      actor,
		Action:     "authorization.denied",
		TargetType: "authorization",
		TargetID:   object,
		Metadata: map[string]any{
			"object": object,
			"action": action,
			"role":   actor.Role,
		},
	})
}

func roleSubject(role string) string {
	return "role:" + strings.ToLower(strings.TrimSpace(role))
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		// Desk operators run stays
		{roleSubject(RoleDesk), ObjectStay, ActionStayStart},
		{roleSubject(RoleDesk), ObjectStay, ActionStayQuote},
		{roleSubject(RoleDesk), ObjectStay, ActionStaySave},
		{roleSubject(RoleDesk), ObjectStay, ActionStayPay},
		{roleSubject(RoleDesk), ObjectStay, ActionStayCancel},
		{roleSubject(RoleDesk), ObjectPricing, ActionPricingView},
		{roleSubject(RoleDesk), ObjectInvoice, ActionInvoiceView},

		// Managers also change pricing
		{roleSubject(RoleManager), ObjectPricing, ActionPricingUpdate},
		{roleSubject(RoleManager), ObjectPricing, ActionPricingRestore},
	}
	for _, policy := range policies {
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}

	groupings := [][]string{
		{roleSubject(RoleManager), roleSubject(RoleDesk)},
		{roleSubject(RoleSystem), roleSubject(RoleManager)},
	}
	for _, grouping := range groupings {
		if _, err := enforcer.AddGroupingPolicy(grouping); err != nil {
			return err
		}
	}
	return nil
}
