package domain

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ActorType string

const (
	ActorTypeSystem ActorType = "system"
	ActorTypeDesk   ActorType = "desk"
)

// Actor identifies who triggered an operation. It travels explicitly in every
// pricing and checkout request instead of being read from ambient state.
type Actor struct {
	Name          string `json:"name"`
	Role          string `json:"role"`
	CorrelationID string `json:"correlation_id"`
}

// SystemActor is used for bootstrap writes that have no desk operator.
func SystemActor() Actor {
	return Actor{Name: string(ActorTypeSystem), Role: string(ActorTypeSystem)}
}

func (a Actor) Normalize() Actor {
	a.Name = strings.TrimSpace(a.Name)
	a.Role = strings.ToLower(strings.TrimSpace(a.Role))
	a.CorrelationID = strings.TrimSpace(a.CorrelationID)
	if a.Name == "" {
		a.Name = string(ActorTypeSystem)
	}
	return a
}

// Entry is one audit record as submitted by a caller.
type Entry struct {
	Actor      Actor
	Action     string
	TargetType string
	TargetID   string
	Before     map[string]any
	After      map[string]any
	Metadata   map[string]any
}

type AuditLog struct {
	ID            snowflake.ID      `json:"id" gorm:"primaryKey"`
	Actor         string            `json:"actor" gorm:"type:text;not null"`
	ActorRole     string            `json:"actor_role" gorm:"type:text"`
	CorrelationID string            `json:"correlation_id" gorm:"type:text;index"`
	Action        string            `json:"action" gorm:"type:text;not null;index"`
	TargetType    string            `json:"target_type" gorm:"type:text;not null"`
	TargetID      string            `json:"target_id" gorm:"type:text;index"`
	Before        datatypes.JSONMap `json:"before,omitempty" gorm:"type:jsonb"`
	After         datatypes.JSONMap `json:"after,omitempty" gorm:"type:jsonb"`
	Metadata      datatypes.JSONMap `json:"metadata,omitempty" gorm:"type:jsonb"`
	CreatedAt     time.Time         `json:"created_at" gorm:"not null"`
}

func (AuditLog) TableName() string { return "audit_logs" }

// Service is a fire-and-forget audit sink. Record never blocks the caller and
// never reports failure; write errors are logged by the implementation.
type Service interface {
	Record(ctx context.Context, entry Entry)
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *AuditLog) error
}

var (
	ErrInvalidAction = errors.New("invalid_action")
)
