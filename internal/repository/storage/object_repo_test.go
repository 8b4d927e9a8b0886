package storage

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestReceiptObjectPath(t *testing.T) {
	p := ReceiptObjectPath(3, 42, ".jpg")

	assert.True(t, strings.HasPrefix(p, "receipts/3/42/"), p)
	assert.True(t, strings.HasSuffix(p, ".jpg"), p)
	assert.NotEqual(t, p, ReceiptObjectPath(3, 42, ".jpg"))
}

func TestSnapshotObjectPath(t *testing.T) {
	assert.Equal(t, "closes/3/2024-01-10/all.json", SnapshotObjectPath(3, "2024-01-10", nil))

	id := uuid.MustParse("6f1c2a8e-1d3b-4c5a-9e7f-0a1b2c3d4e5f")
	assert.Equal(t, "closes/3/2024-01-10/6f1c2a8e-1d3b-4c5a-9e7f-0a1b2c3d4e5f.json", SnapshotObjectPath(3, "2024-01-10", &id))
}
