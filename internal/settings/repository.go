package settings

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository interface {
	Get(ctx context.Context, userID uuid.UUID) (*Preferences, error)
	Upsert(ctx context.Context, prefs *Preferences) error
}

type gormRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Get(ctx context.Context, userID uuid.UUID) (*Preferences, error) {
	var prefs Preferences
	err := r.db.WithContext(ctx).First(&prefs, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &prefs, nil
}

func (r *gormRepository) Upsert(ctx context.Context, prefs *Preferences) error {
	return r.db.WithContext(ctx).Save(prefs).Error
}
