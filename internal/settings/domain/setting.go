package domain

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

// Setting is one row of the flat key/value settings table.
type Setting struct {
	Key       string    `json:"key" gorm:"column:setting_key;primaryKey;type:varchar(128)"`
	Value     string    `json:"value" gorm:"type:text;not null"`
	UpdatedBy string    `json:"updated_by" gorm:"type:text"`
	UpdatedAt time.Time `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Setting) TableName() string { return "settings" }

type Repository interface {
	GetAll(ctx context.Context, db *gorm.DB, keys []string) (map[string]string, error)
	UpsertMany(ctx context.Context, db *gorm.DB, values map[string]string, updatedBy string, at time.Time) error
}

var (
	ErrInvalidKey = errors.New("invalid_setting_key")
)
