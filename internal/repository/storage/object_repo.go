package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/google/uuid"
)

// ObjectRepository defines the interface for object storage used by
// receipt photos and close-day snapshots
type ObjectRepository interface {
	// Upload stores data under objectPath and returns the object path
	Upload(ctx context.Context, objectPath string, data io.Reader, contentType string, size int64) (string, error)
	Delete(ctx context.Context, objectPath string) error
	GeneratePresignedURL(ctx context.Context, objectPath string, expiry time.Duration) (string, error)
}

// ReceiptObjectPath creates a unique object path for a payment receipt photo
func ReceiptObjectPath(workspaceID int32, paymentID int32, ext string) string {
	filename := fmt.Sprintf("%s%s", uuid.New().String(), ext)
	return path.Join("receipts", fmt.Sprintf("%d", workspaceID), fmt.Sprintf("%d", paymentID), filename)
}

// SnapshotObjectPath returns the object path of a close-day snapshot.
// Workspace-wide closes use "all" in place of the collector ID.
func SnapshotObjectPath(workspaceID int32, date string, collectorID *uuid.UUID) string {
	owner := "all"
	if collectorID != nil {
		owner = collectorID.String()
	}
	return path.Join("closes", fmt.Sprintf("%d", workspaceID), date, owner+".json")
}
