package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/vibecode-backend/internal/domain/revision"
)

// models lists every table the relational index owns.
var models = []any{
	&revision.Record{},
}

// AutoMigrateAll creates or updates the index tables one model at a time so a
// failure names the table that broke.
func AutoMigrateAll(db *gorm.DB) error {
	for _, m := range models {
		if err := db.AutoMigrate(m); err != nil {
			return fmt.Errorf("migrate %T: %w", m, err)
		}
	}
	return nil
}
