package storage

import (
	"context"

	"github.com/peekbilling/importer/internal/telemetry"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type tableStore struct {
	db      *gorm.DB
	metrics *telemetry.Metrics
}

// NewTables returns a Tables implementation backed by gorm with
// insert-or-replace semantics on (partition_key, row_key).
func NewTables(db *gorm.DB, metrics *telemetry.Metrics) Tables {
	return &tableStore{db: db, metrics: metrics}
}

func (t *tableStore) Upsert(ctx context.Context, entity Entity) error {
	if err := validateKeys(entity); err != nil {
		return err
	}

	err := t.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "partition_key"}, {Name: "row_key"}},
			UpdateAll: true,
		}).
		Create(entity).Error

	status := "ok"
	if err != nil {
		status = "error"
	}
	t.metrics.TableWrite(entity.TableName(), status)
	return err
}
