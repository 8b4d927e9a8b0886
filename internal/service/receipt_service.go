package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"path/filepath"
	"strings"
	"time"

	"github.com/cobrodiario/cobrodiario-backend/internal/domain"
	"github.com/cobrodiario/cobrodiario-backend/internal/repository/storage"
	"github.com/disintegration/imaging"
	"github.com/rs/zerolog/log"
	_ "golang.org/x/image/webp"
)

const (
	MaxImageSize       = 5 * 1024 * 1024 // 5MB
	MinImageWidth      = 50
	MinImageHeight     = 50
	ReceiptMaxWidth    = 1024
	JPEGQuality        = 85
	ReceiptURLLifetime = 15 * time.Minute
)

var (
	ErrImageTooLarge             = errors.New("file too large. Maximum size is 5MB")
	ErrInvalidFormat             = errors.New("invalid format. Supported: JPEG, PNG, WebP")
	ErrImageTooSmall             = errors.New("image too small. Minimum 50x50 pixels")
	ErrInvalidImageData          = errors.New("invalid image data")
	ErrImageStorageNotConfigured = errors.New("image storage not configured")
	ErrReceiptNotFound           = errors.New("payment has no receipt")
)

// AllowedExtensions maps extensions to content types
var AllowedExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
}

// Receipt is a stored receipt photo with a short-lived download URL
type Receipt struct {
	Path      string    `json:"path"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ReceiptService handles payment receipt photos
type ReceiptService struct {
	storage     storage.ObjectRepository
	paymentRepo domain.PaymentRepository
}

// NewReceiptService creates a new ReceiptService. A nil storage disables uploads.
func NewReceiptService(objects storage.ObjectRepository, paymentRepo domain.PaymentRepository) *ReceiptService {
	return &ReceiptService{storage: objects, paymentRepo: paymentRepo}
}

// IsEnabled indicates whether uploads are supported (storage configured)
func (s *ReceiptService) IsEnabled() bool {
	return s != nil && s.storage != nil
}

// ValidateImage validates image format and size
func (s *ReceiptService) ValidateImage(data []byte, filename string) error {
	_, err := validateAndDecode(data, filename)
	return err
}

func validateAndDecode(data []byte, filename string) (image.Image, error) {
	if len(data) > MaxImageSize {
		return nil, ErrImageTooLarge
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := AllowedExtensions[ext]; !ok {
		return nil, ErrInvalidFormat
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, ErrInvalidImageData
	}

	bounds := img.Bounds()
	if bounds.Dx() < MinImageWidth || bounds.Dy() < MinImageHeight {
		return nil, ErrImageTooSmall
	}
	return img, nil
}

// UploadReceipt stores a receipt photo for a payment, replacing any previous one
func (s *ReceiptService) UploadReceipt(ctx context.Context, workspaceID int32, paymentID int32, data []byte, filename string) (*Receipt, error) {
	if !s.IsEnabled() {
		return nil, ErrImageStorageNotConfigured
	}

	payment, err := s.paymentRepo.GetByID(workspaceID, paymentID)
	if err != nil {
		return nil, err
	}

	var previous string
	if payment.ReceiptPath != nil {
		previous = *payment.ReceiptPath
	}

	img, err := validateAndDecode(data, filename)
	if err != nil {
		return nil, err
	}
	if img.Bounds().Dx() > ReceiptMaxWidth {
		img = imaging.Resize(img, ReceiptMaxWidth, 0, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	objectPath := storage.ReceiptObjectPath(workspaceID, paymentID, ".jpg")
	if _, err := s.storage.Upload(ctx, objectPath, bytes.NewReader(buf.Bytes()), "image/jpeg", int64(buf.Len())); err != nil {
		return nil, fmt.Errorf("failed to upload receipt: %w", err)
	}

	if _, err := s.paymentRepo.SetReceiptPath(workspaceID, paymentID, objectPath); err != nil {
		_ = s.storage.Delete(ctx, objectPath)
		return nil, err
	}

	if previous != "" && previous != objectPath {
		if err := s.storage.Delete(ctx, previous); err != nil {
			log.Warn().Err(err).Str("path", previous).Msg("Failed to delete replaced receipt")
		}
	}

	return s.presign(ctx, objectPath)
}

// GetReceipt returns a download URL for the receipt of a payment
func (s *ReceiptService) GetReceipt(ctx context.Context, workspaceID int32, paymentID int32) (*Receipt, error) {
	if !s.IsEnabled() {
		return nil, ErrImageStorageNotConfigured
	}
	payment, err := s.paymentRepo.GetByID(workspaceID, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.ReceiptPath == nil {
		return nil, ErrReceiptNotFound
	}
	return s.presign(ctx, *payment.ReceiptPath)
}

// DeleteReceiptObject removes a stored receipt. Missing storage is not an error.
func (s *ReceiptService) DeleteReceiptObject(ctx context.Context, objectPath string) error {
	if !s.IsEnabled() || objectPath == "" {
		return nil
	}
	return s.storage.Delete(ctx, objectPath)
}

func (s *ReceiptService) presign(ctx context.Context, objectPath string) (*Receipt, error) {
	url, err := s.storage.GeneratePresignedURL(ctx, objectPath, ReceiptURLLifetime)
	if err != nil {
		return nil, fmt.Errorf("failed to sign receipt URL: %w", err)
	}
	return &Receipt{
		Path:      objectPath,
		URL:       url,
		ExpiresAt: time.Now().Add(ReceiptURLLifetime),
	}, nil
}

// GetContentType returns the content type for a file extension
func GetContentType(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ct, ok := AllowedExtensions[ext]; ok {
		return ct
	}
	return "application/octet-stream"
}
