package authorization

import (
	"context"
	"errors"

	auditdomain "github.com/smallbiznis/frontdesk/internal/audit/domain"
)

type Service interface {
	Authorize(ctx context.Context, actor auditdomain.Actor, object string, action string) error
}

var (
	ErrForbidden     = errors.New("forbidden")
	ErrInvalidActor  = errors.New("invalid_actor")
	ErrInvalidObject = errors.New("invalid_object")
	ErrInvalidAction = errors.New("invalid_action")
)
