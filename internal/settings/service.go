package settings

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Service interface {
	Get(ctx context.Context, userID uuid.UUID) (*Preferences, error)
	Update(ctx context.Context, userID uuid.UUID, update UpdateRequest) (*Preferences, error)
}

// UpdateRequest carries the mutable preference fields. Pointers distinguish
// "leave unchanged" from an explicit value.
type UpdateRequest struct {
	DisplayName      *string `json:"displayName"`
	Organization     *string `json:"organization"`
	Currency         *string `json:"currency"`
	Timezone         *string `json:"timezone"`
	NotifyOnPurchase *bool   `json:"notifyOnPurchase"`
	NotifyOnReview   *bool   `json:"notifyOnReview"`
}

type prefService struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &prefService{repo: repo}
}

// Get returns the user's preferences, falling back to defaults for users who
// never saved any.
func (s *prefService) Get(ctx context.Context, userID uuid.UUID) (*Preferences, error) {
	prefs, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if prefs == nil {
		return defaultPreferences(userID), nil
	}
	return prefs, nil
}

func (s *prefService) Update(ctx context.Context, userID uuid.UUID, update UpdateRequest) (*Preferences, error) {
	prefs, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	if update.DisplayName != nil {
		prefs.DisplayName = *update.DisplayName
	}
	if update.Organization != nil {
		prefs.Organization = *update.Organization
	}
	if update.Currency != nil {
		prefs.Currency = *update.Currency
	}
	if update.Timezone != nil {
		prefs.Timezone = *update.Timezone
	}
	if update.NotifyOnPurchase != nil {
		prefs.NotifyOnPurchase = *update.NotifyOnPurchase
	}
	if update.NotifyOnReview != nil {
		prefs.NotifyOnReview = *update.NotifyOnReview
	}
	prefs.UpdatedAt = time.Now()

	if err := s.repo.Upsert(ctx, prefs); err != nil {
		return nil, err
	}
	return prefs, nil
}
