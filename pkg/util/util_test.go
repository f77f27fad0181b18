package util

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewReferenceID(t *testing.T) {
	id := NewReferenceID("lst")
	assert.True(t, strings.HasPrefix(id, "LST-"))
	assert.Len(t, id, 12)

	other := NewReferenceID("lst")
	assert.NotEqual(t, id, other)
}

func TestNewPagination(t *testing.T) {
	p := NewPagination(0, 0, 95)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 20, p.PageSize)
	assert.Equal(t, 5, p.TotalPages)
	assert.Equal(t, 0, p.Offset())

	p = NewPagination(3, 10, 95)
	assert.Equal(t, 10, p.TotalPages)
	assert.Equal(t, 20, p.Offset())

	p = NewPagination(1, 1000, 95)
	assert.Equal(t, 100, p.PageSize)
}

func TestHashContent(t *testing.T) {
	sum, err := HashContent(strings.NewReader("carbon"))
	assert.NoError(t, err)
	assert.Equal(t, HashBytes([]byte("carbon")), sum)
	assert.Len(t, sum, 64)
}

func TestNormalizeError(t *testing.T) {
	assert.Equal(t, "", NormalizeError(nil))
	assert.Equal(t, "duplicate key", NormalizeError(errors.New("ERROR: duplicate key")))
}

func TestFormatDate(t *testing.T) {
	ts := time.Date(2025, 6, 3, 15, 4, 5, 0, time.UTC)
	assert.Equal(t, "2025-06-03", FormatDate(ts))
	assert.Equal(t, "2025-06-03T15:04:05Z", FormatTimestamp(ts))
}
