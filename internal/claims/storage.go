package claims

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"carbon-market/marketplace-backend/pkg/security"
	"carbon-market/marketplace-backend/pkg/storage"
)

// EvidenceStore writes claim evidence to S3 and pins a copy to IPFS.
// Pinning is best-effort: an unreachable IPFS node degrades to S3-only.
type EvidenceStore struct {
	s3        storage.S3Client
	ipfs      storage.IPFSClient
	validator security.Validator
	bucket    string
	logger    *zap.Logger
}

// StoredEvidence describes where an uploaded file ended up.
type StoredEvidence struct {
	Key      string
	CID      *string
	Checksum string
	Size     int64
}

func NewEvidenceStore(s3 storage.S3Client, ipfs storage.IPFSClient, validator security.Validator, bucket string, logger *zap.Logger) *EvidenceStore {
	return &EvidenceStore{s3: s3, ipfs: ipfs, validator: validator, bucket: bucket, logger: logger}
}

func (e *EvidenceStore) Key(projectID, claimID, fileName string) string {
	return fmt.Sprintf("projects/%s/claims/%s/%s", projectID, claimID, fileName)
}

// Store buffers the file once, checksums it, uploads to S3 and pins to IPFS.
func (e *EvidenceStore) Store(ctx context.Context, key string, body io.Reader) (*StoredEvidence, error) {
	buf, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read evidence: %w", err)
	}

	checksum, size, err := e.validator.Checksum(ctx, bytes.NewReader(buf))
	if err != nil {
		return nil, err
	}

	if err := e.s3.Upload(ctx, e.bucket, key, bytes.NewReader(buf)); err != nil {
		return nil, fmt.Errorf("upload evidence: %w", err)
	}

	out := &StoredEvidence{Key: key, Checksum: checksum, Size: size}

	cid, err := e.ipfs.PinFile(ctx, bytes.NewReader(buf))
	if err != nil {
		e.logger.Warn("evidence not pinned to ipfs", zap.String("key", key), zap.Error(err))
	} else {
		out.CID = &cid
	}

	return out, nil
}

// Open returns the evidence file contents from S3.
func (e *EvidenceStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	return e.s3.Download(ctx, e.bucket, key)
}

// PresignedURL returns a short-lived download link for the evidence.
func (e *EvidenceStore) PresignedURL(ctx context.Context, key string) (string, error) {
	return e.s3.GetPresignedURL(ctx, e.bucket, key, presignTTL)
}
