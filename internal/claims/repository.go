package claims

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, claim *CreditClaim) error
	GetByID(ctx context.Context, id uuid.UUID) (*CreditClaim, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]CreditClaim, error)
	ListByStatus(ctx context.Context, status ClaimStatus) ([]CreditClaim, error)
	Update(ctx context.Context, claim *CreditClaim) error
}

type gormRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Create(ctx context.Context, claim *CreditClaim) error {
	return r.db.WithContext(ctx).Create(claim).Error
}

func (r *gormRepository) GetByID(ctx context.Context, id uuid.UUID) (*CreditClaim, error) {
	var claim CreditClaim
	err := r.db.WithContext(ctx).First(&claim, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &claim, nil
}

func (r *gormRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]CreditClaim, error) {
	var out []CreditClaim
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}

func (r *gormRepository) ListByStatus(ctx context.Context, status ClaimStatus) ([]CreditClaim, error) {
	var out []CreditClaim
	err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("created_at ASC").
		Find(&out).Error
	return out, err
}

func (r *gormRepository) Update(ctx context.Context, claim *CreditClaim) error {
	return r.db.WithContext(ctx).Save(claim).Error
}
