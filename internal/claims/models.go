package claims

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ClaimStatus string

const (
	StatusSubmitted   ClaimStatus = "submitted"
	StatusUnderReview ClaimStatus = "under_review"
	StatusApproved    ClaimStatus = "approved"
	StatusRejected    ClaimStatus = "rejected"
)

// CreditIssuance records the outcome of a successful review. Once
// CreditsIssued is set the claim is immutable except for revocation.
type CreditIssuance struct {
	CreditsIssued   bool       `gorm:"column:credits_issued;not null;default:false" json:"creditsIssued"`
	ApprovedCredits float64    `gorm:"column:approved_credits;not null;default:0" json:"approvedCredits"`
	IssuedAt        *time.Time `gorm:"column:issued_at" json:"issuedAt,omitempty"`
}

// CreditClaim is a user's assertion of issued carbon credits tied to a
// project, subject to approval. JSON field names follow the marketplace API
// contract consumed by the listing workflow.
type CreditClaim struct {
	ID             uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ProjectID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"projectId"`
	OwnerID        uuid.UUID      `gorm:"type:uuid;not null;index" json:"ownerId"`
	Status         ClaimStatus    `gorm:"type:varchar(20);not null;default:'submitted'" json:"status"`
	VintageYear    int            `json:"vintageYear"`
	ClaimedCredits float64        `json:"claimedCredits"`
	Methodology    string         `json:"methodology"`
	CreditingStart time.Time      `json:"creditingStart"`
	CreditingEnd   time.Time      `json:"creditingEnd"`
	CreditIssuance CreditIssuance `gorm:"embedded" json:"creditIssuance"`

	// Evidence file locations. The S3 key is internal; the IPFS CID is part
	// of the public record when pinning succeeded.
	EvidenceKey      string  `json:"-"`
	EvidenceCID      *string `json:"evidenceCid,omitempty"`
	EvidenceChecksum string  `json:"evidenceChecksum,omitempty"`

	ReviewedBy *uuid.UUID     `gorm:"type:uuid" json:"reviewedBy,omitempty"`
	ReviewNote string         `json:"reviewNote,omitempty"`
	Metadata   datatypes.JSON `json:"metadata,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
