package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"p9e.in/energydesk/models"
	"p9e.in/energydesk/pkg/records"
)

// GormStore keeps client records in a relational table through gorm.
type GormStore struct {
	db *gorm.DB
}

var _ records.Store = (*GormStore)(nil)

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// DB exposes the handle for migrations.
func (s *GormStore) DB() *gorm.DB {
	return s.db
}

func (s *GormStore) List(ctx context.Context) ([]models.ClientRecord, error) {
	var recs []models.ClientRecord
	if err := s.db.WithContext(ctx).Find(&recs).Error; err != nil {
		return nil, err
	}
	return recs, nil
}

func (s *GormStore) Insert(ctx context.Context, rec *models.ClientRecord) error {
	rec.ID = ""
	return s.db.WithContext(ctx).Create(rec).Error
}

func (s *GormStore) Replace(ctx context.Context, id string, fields models.ClientRecordFields, updatedAt time.Time) error {
	if !validID(id) {
		return records.ErrNotFound
	}
	result := s.db.WithContext(ctx).
		Model(&models.ClientRecord{}).
		Where("id = ?", id).
		Select("*").
		Omit("ID", "CreatedAt").
		Updates(&models.ClientRecord{ClientRecordFields: fields, UpdatedAt: updatedAt})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return records.ErrNotFound
	}
	return nil
}

func (s *GormStore) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return records.ErrNotFound
	}
	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.ClientRecord{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return records.ErrNotFound
	}
	return nil
}

func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

func (s *GormStore) Close(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	return sqlDB.Close()
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
