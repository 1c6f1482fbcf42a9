package fees

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

type GormStore struct{ db *gorm.DB }

func NewGormStore(db *gorm.DB) *GormStore { return &GormStore{db: db} }

func (s *GormStore) ActiveOverride(ctx context.Context, tenantID string, at time.Time) (*FeeOverride, error) {
	var o FeeOverride
	err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND is_active = ? AND starts_at <= ?", tenantID, true, at).
		Where("expires_at IS NULL OR expires_at > ?", at).
		Order("starts_at DESC").
		First(&o).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &o, nil
}

func (s *GormStore) Tier(ctx context.Context, name string) (*FeeTier, error) {
	var t FeeTier
	err := s.db.WithContext(ctx).First(&t, "tier = ?", name).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}
