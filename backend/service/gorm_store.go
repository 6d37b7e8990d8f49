package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/faawibowo/pakta/backend/config"
	"github.com/faawibowo/pakta/backend/model"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// GormStore is a ContractRepository backed by PostgreSQL.
type GormStore struct {
	db *gorm.DB
}

// OpenDatabase connects to the configured DSN, applies the pool settings and
// optionally migrates the schema.
func OpenDatabase(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)

	if cfg.AutoMigrate {
		slog.Info("running database migrations")
		if err := Migrate(db); err != nil {
			return nil, err
		}
	}
	return db, nil
}

// Migrate creates or updates the contract tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&model.Contract{}, &model.ValidationRecord{}); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) CreateContract(ctx context.Context, c *model.Contract) error {
	if err := s.db.WithContext(ctx).Create(c).Error; err != nil {
		return fmt.Errorf("failed to create contract: %w", err)
	}
	return nil
}

func (s *GormStore) UpdateContract(ctx context.Context, c *model.Contract) error {
	res := s.db.WithContext(ctx).
		Model(&model.Contract{ID: c.ID}).
		Select("*").
		Omit("id", "created_at").
		Updates(c)
	if res.Error != nil {
		return fmt.Errorf("failed to update contract: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrContractNotFound
	}
	return nil
}

func (s *GormStore) GetContract(ctx context.Context, id string) (*model.Contract, error) {
	var c model.Contract
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrContractNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get contract: %w", err)
	}
	return &c, nil
}

func (s *GormStore) ListContracts(ctx context.Context, filter ContractFilter) ([]*model.Contract, error) {
	q := s.db.WithContext(ctx)
	if filter.OwnerID != "" {
		q = q.Where("owner_id = ?", filter.OwnerID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}

	var contracts []*model.Contract
	if err := q.Order("created_at DESC").Find(&contracts).Error; err != nil {
		return nil, fmt.Errorf("failed to list contracts: %w", err)
	}
	return contracts, nil
}

func (s *GormStore) DeleteContract(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("contract_id = ?", id).Delete(&model.ValidationRecord{}).Error; err != nil {
			return fmt.Errorf("failed to delete validations: %w", err)
		}
		res := tx.Where("id = ?", id).Delete(&model.Contract{})
		if res.Error != nil {
			return fmt.Errorf("failed to delete contract: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrContractNotFound
		}
		return nil
	})
}

func (s *GormStore) AddValidation(ctx context.Context, v *model.ValidationRecord) error {
	if err := s.ensureContract(ctx, v.ContractID); err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Create(v).Error; err != nil {
		return fmt.Errorf("failed to save validation: %w", err)
	}
	return nil
}

func (s *GormStore) ListValidations(ctx context.Context, contractID string) ([]*model.ValidationRecord, error) {
	if err := s.ensureContract(ctx, contractID); err != nil {
		return nil, err
	}
	var records []*model.ValidationRecord
	err := s.db.WithContext(ctx).
		Where("contract_id = ?", contractID).
		Order("created_at DESC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list validations: %w", err)
	}
	return records, nil
}

func (s *GormStore) LatestValidation(ctx context.Context, contractID string) (*model.ValidationRecord, error) {
	var records []*model.ValidationRecord
	err := s.db.WithContext(ctx).
		Where("contract_id = ?", contractID).
		Order("created_at DESC").
		Limit(1).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get latest validation: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	return records[0], nil
}

func (s *GormStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&model.Contract{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count contracts: %w", err)
	}
	return n, nil
}

func (s *GormStore) ensureContract(ctx context.Context, id string) error {
	var n int64
	err := s.db.WithContext(ctx).Model(&model.Contract{}).Where("id = ?", id).Count(&n).Error
	if err != nil {
		return fmt.Errorf("failed to look up contract: %w", err)
	}
	if n == 0 {
		return ErrContractNotFound
	}
	return nil
}
