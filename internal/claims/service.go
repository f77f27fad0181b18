package claims

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"carbon-market/marketplace-backend/internal/validation"
	"carbon-market/marketplace-backend/pkg/workflows"
)

const presignTTL = 15 * time.Minute

var (
	ErrNotFound          = errors.New("claim not found")
	ErrNotOwner          = errors.New("not the claim owner")
	ErrInvalidTransition = errors.New("invalid review transition")
	ErrAlreadyIssued     = errors.New("credits already issued for this claim")
	ErrNotApproved       = errors.New("claim is not approved")
	ErrInvalidAmount     = errors.New("approved credits must be positive")
)

// ValidationError carries the normalized field violations for a rejected
// submission.
type ValidationError struct {
	Fields []validation.FieldError
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("claim submission failed validation (%d fields)", len(e.Fields))
}

type SubmitClaimRequest struct {
	Payload      validation.SubmitClaimPayload
	EvidenceName string
	Evidence     io.Reader
}

type ReviewAction string

const (
	ActionStartReview ReviewAction = "start_review"
	ActionApprove     ReviewAction = "approve"
	ActionReject      ReviewAction = "reject"
)

type Service interface {
	SubmitClaim(ctx context.Context, req SubmitClaimRequest, ownerID uuid.UUID) (*CreditClaim, error)
	GetClaim(ctx context.Context, id uuid.UUID) (*CreditClaim, error)
	MyClaims(ctx context.Context, ownerID uuid.UUID) ([]CreditClaim, error)
	PendingReview(ctx context.Context) ([]CreditClaim, error)
	ReviewClaim(ctx context.Context, id uuid.UUID, action ReviewAction, note string, reviewerID uuid.UUID) (*CreditClaim, error)
	IssueCredits(ctx context.Context, id uuid.UUID, approvedCredits float64, reviewerID uuid.UUID) (*CreditClaim, error)
	EvidenceURL(ctx context.Context, id uuid.UUID, requesterID uuid.UUID) (string, error)
}

type claimService struct {
	repo     Repository
	evidence *EvidenceStore
	review   *workflows.StateMachine
}

func NewService(repo Repository, evidence *EvidenceStore) Service {
	return &claimService{
		repo:     repo,
		evidence: evidence,
		review:   workflows.NewClaimReviewMachine(),
	}
}

func (s *claimService) SubmitClaim(ctx context.Context, req SubmitClaimRequest, ownerID uuid.UUID) (*CreditClaim, error) {
	if fields := validation.Evaluate(req.Payload); fields != nil {
		return nil, &ValidationError{Fields: fields}
	}

	projectID, err := uuid.Parse(req.Payload.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("parse project id: %w", err)
	}

	claim := &CreditClaim{
		ID:             uuid.New(),
		ProjectID:      projectID,
		OwnerID:        ownerID,
		Status:         StatusSubmitted,
		VintageYear:    req.Payload.VintageYear,
		ClaimedCredits: req.Payload.ClaimedCredits,
		Methodology:    req.Payload.Methodology,
		CreditingStart: req.Payload.CreditingStart,
		CreditingEnd:   req.Payload.CreditingEnd,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}

	if req.Evidence != nil {
		key := s.evidence.Key(claim.ProjectID.String(), claim.ID.String(), req.EvidenceName)
		stored, err := s.evidence.Store(ctx, key, req.Evidence)
		if err != nil {
			return nil, err
		}
		claim.EvidenceKey = stored.Key
		claim.EvidenceCID = stored.CID
		claim.EvidenceChecksum = stored.Checksum
	}

	if err := s.repo.Create(ctx, claim); err != nil {
		return nil, err
	}
	return claim, nil
}

func (s *claimService) GetClaim(ctx context.Context, id uuid.UUID) (*CreditClaim, error) {
	claim, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if claim == nil {
		return nil, ErrNotFound
	}
	return claim, nil
}

func (s *claimService) MyClaims(ctx context.Context, ownerID uuid.UUID) ([]CreditClaim, error) {
	return s.repo.ListByOwner(ctx, ownerID)
}

func (s *claimService) PendingReview(ctx context.Context) ([]CreditClaim, error) {
	return s.repo.ListByStatus(ctx, StatusSubmitted)
}

func (s *claimService) ReviewClaim(ctx context.Context, id uuid.UUID, action ReviewAction, note string, reviewerID uuid.UUID) (*CreditClaim, error) {
	claim, err := s.GetClaim(ctx, id)
	if err != nil {
		return nil, err
	}

	var target ClaimStatus
	switch action {
	case ActionStartReview:
		target = StatusUnderReview
	case ActionApprove:
		target = StatusApproved
	case ActionReject:
		target = StatusRejected
	default:
		return nil, fmt.Errorf("%w: unknown action %q", ErrInvalidTransition, action)
	}

	if !s.review.CanTransition(string(claim.Status), string(target)) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, claim.Status, target)
	}

	claim.Status = target
	claim.ReviewedBy = &reviewerID
	claim.ReviewNote = note
	claim.UpdatedAt = time.Now()

	// Revoking an issued claim retires its issuance.
	if target == StatusRejected && claim.CreditIssuance.CreditsIssued {
		claim.CreditIssuance = CreditIssuance{}
	}

	if err := s.repo.Update(ctx, claim); err != nil {
		return nil, err
	}
	return claim, nil
}

// IssueCredits finalizes an approved claim. The issued amount is capped by the
// claimed amount and becomes the ceiling for all marketplace listings.
func (s *claimService) IssueCredits(ctx context.Context, id uuid.UUID, approvedCredits float64, reviewerID uuid.UUID) (*CreditClaim, error) {
	claim, err := s.GetClaim(ctx, id)
	if err != nil {
		return nil, err
	}
	if claim.Status != StatusApproved {
		return nil, ErrNotApproved
	}
	if claim.CreditIssuance.CreditsIssued {
		return nil, ErrAlreadyIssued
	}
	if approvedCredits <= 0 {
		return nil, ErrInvalidAmount
	}
	if approvedCredits > claim.ClaimedCredits {
		approvedCredits = claim.ClaimedCredits
	}

	now := time.Now()
	claim.CreditIssuance = CreditIssuance{
		CreditsIssued:   true,
		ApprovedCredits: approvedCredits,
		IssuedAt:        &now,
	}
	claim.ReviewedBy = &reviewerID
	claim.UpdatedAt = now

	if err := s.repo.Update(ctx, claim); err != nil {
		return nil, err
	}
	return claim, nil
}

func (s *claimService) EvidenceURL(ctx context.Context, id uuid.UUID, requesterID uuid.UUID) (string, error) {
	claim, err := s.GetClaim(ctx, id)
	if err != nil {
		return "", err
	}
	if claim.OwnerID != requesterID {
		return "", ErrNotOwner
	}
	if claim.EvidenceKey == "" {
		return "", ErrNotFound
	}
	return s.evidence.PresignedURL(ctx, claim.EvidenceKey)
}
