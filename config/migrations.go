package config

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"

	"p9e.in/energydesk/models"
)

func Migrations(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "15102026_create_client_records",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&models.ClientRecord{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("client_records")
			},
		},
		{
			ID: "15102026_index_client_records_status",
			Migrate: func(tx *gorm.DB) error {
				return tx.Exec("CREATE INDEX IF NOT EXISTS idx_client_records_status ON client_records(status)").Error
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Exec("DROP INDEX IF EXISTS idx_client_records_status").Error
			},
		},
	})
	return m.Migrate()
}
