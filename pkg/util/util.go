// Package util holds small pure helpers shared across modules: reference id
// generation, date formatting, pagination math, content hashing and error
// normalization. Nothing here keeps state.
package util

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewReferenceID returns a short, human-pasteable identifier with the given
// prefix, e.g. "LST-1a2b3c4d".
func NewReferenceID(prefix string) string {
	id := uuid.New().String()
	return fmt.Sprintf("%s-%s", strings.ToUpper(prefix), id[:8])
}

// FormatDate renders a timestamp the way the API presents dates.
func FormatDate(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// FormatTimestamp renders a full timestamp in RFC3339.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// Pagination carries resolved paging values for a list query.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// NewPagination clamps page/pageSize to sane bounds and derives totals.
func NewPagination(page, pageSize int, total int64) Pagination {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	pages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return Pagination{Page: page, PageSize: pageSize, Total: total, TotalPages: pages}
}

// Offset returns the query offset for the pagination values.
func (p Pagination) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// HashContent returns the hex-encoded SHA-256 of the reader's contents.
func HashContent(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// HashBytes returns the hex-encoded SHA-256 of b.
func HashBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// NormalizeError flattens an error chain into a single user-presentable
// message, trimming driver noise like "ERROR: " prefixes.
func NormalizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	msg = strings.TrimPrefix(msg, "ERROR: ")
	return strings.TrimSpace(msg)
}
