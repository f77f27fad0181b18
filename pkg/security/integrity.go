package security

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
)

// IntegrityInfo describes the verification result for an evidence file.
type IntegrityInfo struct {
	Checksum string
	Size     int64
	Valid    bool
}

// Validator checks uploaded evidence against its recorded checksum.
type Validator interface {
	Checksum(ctx context.Context, body io.Reader) (string, int64, error)
	Verify(ctx context.Context, body io.Reader, expected string) (IntegrityInfo, error)
}

type sha256Validator struct{}

func NewValidator() Validator {
	return &sha256Validator{}
}

func (v *sha256Validator) Checksum(ctx context.Context, body io.Reader) (string, int64, error) {
	h := sha256.New()
	n, err := io.Copy(h, body)
	if err != nil {
		return "", 0, fmt.Errorf("checksum: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}

func (v *sha256Validator) Verify(ctx context.Context, body io.Reader, expected string) (IntegrityInfo, error) {
	sum, n, err := v.Checksum(ctx, body)
	if err != nil {
		return IntegrityInfo{}, err
	}
	return IntegrityInfo{Checksum: sum, Size: n, Valid: sum == expected}, nil
}
