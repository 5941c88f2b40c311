package repository

import (
	"context"
	"sort"
	"strings"
	"time"

	settingsdomain "github.com/smallbiznis/frontdesk/internal/settings/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() settingsdomain.Repository {
	return &repo{}
}

func (r *repo) GetAll(ctx context.Context, db *gorm.DB, keys []string) (map[string]string, error) {
	var rows []settingsdomain.Setting
	query := db.WithContext(ctx).Model(&settingsdomain.Setting{})
	if len(keys) > 0 {
		query = query.Where("setting_key IN ?", keys)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	values := make(map[string]string, len(rows))
	for _, row := range rows {
		values[row.Key] = row.Value
	}
	return values, nil
}

func (r *repo) UpsertMany(ctx context.Context, db *gorm.DB, values map[string]string, updatedBy string, at time.Time) error {
	keys := make([]string, 0, len(values))
	for key := range values {
		if strings.TrimSpace(key) == "" {
			return settingsdomain.ErrInvalidKey
		}
		keys = append(keys, key)
	}
	// stable row order
	sort.Strings(keys)

	rows := make([]settingsdomain.Setting, 0, len(keys))
	for _, key := range keys {
		rows = append(rows, settingsdomain.Setting{
			Key:       key,
			Value:     values[key],
			UpdatedBy: updatedBy,
			UpdatedAt: at.UTC(),
		})
	}
	if len(rows) == 0 {
		return nil
	}

	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "setting_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_by", "updated_at"}),
	}).Create(&rows).Error
}
