package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"

	"github.com/cobrodiario/cobrodiario-backend/internal/domain"
	"github.com/cobrodiario/cobrodiario-backend/internal/testutil"
	"github.com/shopspring/decimal"
)

// createTestImage creates a test image of the specified size and format
func createTestImage(width, height int, format string) ([]byte, string) {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: 255, G: 0, B: 0, A: 255})
		}
	}

	var buf bytes.Buffer
	var filename string

	switch format {
	case "png":
		png.Encode(&buf, img)
		filename = "receipt.png"
	default:
		jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85})
		filename = "receipt.jpg"
	}

	return buf.Bytes(), filename
}

func newReceiptFixture() (*ReceiptService, *testutil.MockObjectRepository, *testutil.MockPaymentRepository) {
	objects := testutil.NewMockObjectRepository()
	payments := testutil.NewMockPaymentRepository(testutil.NewMockLoanRepository())
	payments.AddPayment(&domain.Payment{ID: 5, WorkspaceID: 1, LoanID: 1, Amount: decimal.NewFromInt(40)})
	return NewReceiptService(objects, payments), objects, payments
}

func TestValidateImage(t *testing.T) {
	svc := NewReceiptService(nil, nil)

	tests := []struct {
		name     string
		data     func() ([]byte, string)
		expected error
	}{
		{"valid jpeg", func() ([]byte, string) { return createTestImage(100, 100, "jpeg") }, nil},
		{"valid png", func() ([]byte, string) { return createTestImage(100, 100, "png") }, nil},
		{"too small", func() ([]byte, string) { return createTestImage(40, 100, "png") }, ErrImageTooSmall},
		{"bad extension", func() ([]byte, string) {
			data, _ := createTestImage(100, 100, "png")
			return data, "receipt.gif"
		}, ErrInvalidFormat},
		{"not an image", func() ([]byte, string) { return []byte("plain text"), "receipt.jpg" }, ErrInvalidImageData},
		{"too large", func() ([]byte, string) { return make([]byte, MaxImageSize+1), "receipt.jpg" }, ErrImageTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, filename := tt.data()
			err := svc.ValidateImage(data, filename)
			if !errors.Is(err, tt.expected) {
				t.Errorf("expected %v, got %v", tt.expected, err)
			}
		})
	}
}

func TestUploadReceipt_ResizesAndStores(t *testing.T) {
	svc, objects, payments := newReceiptFixture()
	data, filename := createTestImage(2048, 1024, "png")

	receipt, err := svc.UploadReceipt(context.Background(), 1, 5, data, filename)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if !strings.HasPrefix(receipt.Path, "receipts/1/5/") || !strings.HasSuffix(receipt.Path, ".jpg") {
		t.Errorf("unexpected object path %s", receipt.Path)
	}
	if receipt.URL == "" {
		t.Error("expected a presigned URL")
	}

	stored, ok := objects.Object(receipt.Path)
	if !ok {
		t.Fatal("expected receipt to be uploaded")
	}
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(stored))
	if err != nil {
		t.Fatalf("expected stored receipt to be a JPEG: %v", err)
	}
	if cfg.Width != ReceiptMaxWidth || cfg.Height != ReceiptMaxWidth/2 {
		t.Errorf("expected %dx%d, got %dx%d", ReceiptMaxWidth, ReceiptMaxWidth/2, cfg.Width, cfg.Height)
	}

	payment, _ := payments.GetByID(1, 5)
	if payment.ReceiptPath == nil || *payment.ReceiptPath != receipt.Path {
		t.Error("expected payment to reference the receipt")
	}
}

func TestUploadReceipt_ReplacesPrevious(t *testing.T) {
	svc, objects, _ := newReceiptFixture()
	data, filename := createTestImage(100, 100, "jpeg")

	first, err := svc.UploadReceipt(context.Background(), 1, 5, data, filename)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	second, err := svc.UploadReceipt(context.Background(), 1, 5, data, filename)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if _, ok := objects.Object(first.Path); ok {
		t.Error("expected previous receipt to be deleted")
	}
	if _, ok := objects.Object(second.Path); !ok {
		t.Error("expected new receipt to be stored")
	}
}

func TestUploadReceipt_Errors(t *testing.T) {
	data, filename := createTestImage(100, 100, "jpeg")

	disabled := NewReceiptService(nil, nil)
	if _, err := disabled.UploadReceipt(context.Background(), 1, 5, data, filename); !errors.Is(err, ErrImageStorageNotConfigured) {
		t.Errorf("expected ErrImageStorageNotConfigured, got %v", err)
	}

	svc, objects, _ := newReceiptFixture()
	if _, err := svc.UploadReceipt(context.Background(), 2, 5, data, filename); !errors.Is(err, domain.ErrPaymentNotFound) {
		t.Errorf("expected ErrPaymentNotFound, got %v", err)
	}

	objects.UploadErr = errors.New("bucket unavailable")
	if _, err := svc.UploadReceipt(context.Background(), 1, 5, data, filename); err == nil {
		t.Error("expected upload error")
	}
}

func TestGetReceipt(t *testing.T) {
	svc, _, _ := newReceiptFixture()

	if _, err := svc.GetReceipt(context.Background(), 1, 5); !errors.Is(err, ErrReceiptNotFound) {
		t.Errorf("expected ErrReceiptNotFound, got %v", err)
	}

	data, filename := createTestImage(100, 100, "jpeg")
	uploaded, err := svc.UploadReceipt(context.Background(), 1, 5, data, filename)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	receipt, err := svc.GetReceipt(context.Background(), 1, 5)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if receipt.Path != uploaded.Path {
		t.Errorf("expected %s, got %s", uploaded.Path, receipt.Path)
	}
}
