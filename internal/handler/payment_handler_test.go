package handler

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cobrodiario/cobrodiario-backend/internal/domain"
	"github.com/cobrodiario/cobrodiario-backend/internal/repository/storage"
	"github.com/cobrodiario/cobrodiario-backend/internal/service"
	"github.com/cobrodiario/cobrodiario-backend/internal/testutil"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type paymentHandlerFixture struct {
	handler   *PaymentHandler
	loans     *testutil.MockLoanRepository
	payments  *testutil.MockPaymentRepository
	closes    *testutil.MockDailyCloseRepository
	objects   *testutil.MockObjectRepository
	admin     *domain.User
	collector *domain.User
	other     *domain.User
	loan      *domain.Loan
}

func newPaymentHandlerFixture(withStorage bool) *paymentHandlerFixture {
	userRepo := testutil.NewMockUserRepository()
	f := &paymentHandlerFixture{
		loans:     testutil.NewMockLoanRepository(),
		closes:    testutil.NewMockDailyCloseRepository(),
		admin:     userRepo.AddUser(&domain.User{WorkspaceID: 1, Email: "admin@example.com", Name: "Admin", Role: domain.RoleAdmin, Active: true}),
		collector: userRepo.AddUser(&domain.User{WorkspaceID: 1, Email: "col@example.com", Name: "Col", Role: domain.RoleCollector, Active: true}),
		other:     userRepo.AddUser(&domain.User{WorkspaceID: 1, Email: "other@example.com", Name: "Other", Role: domain.RoleCollector, Active: true}),
	}
	f.payments = testutil.NewMockPaymentRepository(f.loans)
	f.loan = f.loans.AddLoan(&domain.Loan{
		WorkspaceID:     1,
		ClientID:        1,
		CollectorID:     &f.collector.ID,
		Amount:          decimal.NewFromInt(500),
		InterestRate:    decimal.NewFromInt(20),
		Interest:        decimal.NewFromInt(100),
		Fee:             decimal.NewFromInt(25),
		TermDays:        24,
		StartDate:       testDay(-3),
		RemainingAmount: decimal.NewFromInt(600),
		Status:          domain.LoanStatusActive,
	})

	var objects storage.ObjectRepository
	if withStorage {
		f.objects = testutil.NewMockObjectRepository()
		objects = f.objects
	}
	receipts := service.NewReceiptService(objects, f.payments)
	paymentService := service.NewPaymentService(f.payments, f.loans, f.closes, receipts, testClock, nil)
	f.handler = NewPaymentHandler(paymentService, receipts, testClock)
	return f
}

func createTestJPEG(width, height int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: 20, G: 120, B: 60, A: 255})
		}
	}
	var buf bytes.Buffer
	_ = jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85})
	return buf.Bytes()
}

func createReceiptForm(filename string, data []byte) (*bytes.Buffer, string) {
	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)
	part, _ := writer.CreateFormFile("file", filename)
	_, _ = part.Write(data)
	_ = writer.Close()
	return body, writer.FormDataContentType()
}

func (f *paymentHandlerFixture) registerRequest(body string, actor *domain.User) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/loans/1/payments", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("1")
	setupMemberContext(c, 1, actor.ID, actor.Role)
	return c, rec
}

func TestRegisterPayment_Success(t *testing.T) {
	f := newPaymentHandlerFixture(false)
	c, rec := f.registerRequest(`{"amount":"25.00","notes":"Pago diario"}`, f.collector)

	require.NoError(t, f.handler.RegisterPayment(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var response PaymentResultResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "25.00", response.Payment.Amount)
	assert.False(t, response.Payment.HasReceipt)
	require.NotNil(t, response.Payment.CollectorID)
	assert.Equal(t, f.collector.ID.String(), *response.Payment.CollectorID)
	assert.Equal(t, "575.00", response.Loan.RemainingAmount)
	assert.Equal(t, domain.LoanStatusActive, response.Loan.Status)
}

func TestRegisterPayment_PaysOffLoan(t *testing.T) {
	f := newPaymentHandlerFixture(false)
	c, rec := f.registerRequest(`{"amount":"600"}`, f.admin)

	require.NoError(t, f.handler.RegisterPayment(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var response PaymentResultResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "0.00", response.Loan.RemainingAmount)
	assert.Equal(t, domain.LoanStatusPaid, response.Loan.Status)
	// recorded by a manager on behalf of the loan's collector
	require.NotNil(t, response.Payment.CollectorID)
	assert.Equal(t, f.collector.ID.String(), *response.Payment.CollectorID)
}

func TestRegisterPayment_Errors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		actor    func(f *paymentHandlerFixture) *domain.User
		setup    func(f *paymentHandlerFixture)
		wantCode int
	}{
		{
			name:     "exceeds balance",
			body:     `{"amount":"600.01"}`,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "non-positive amount",
			body:     `{"amount":"0"}`,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "malformed amount",
			body:     `{"amount":"diez"}`,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "future payment",
			body:     `{"amount":"25","paidAt":"2026-03-16T09:00:00Z"}`,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "other collector's loan",
			body:     `{"amount":"25"}`,
			actor:    func(f *paymentHandlerFixture) *domain.User { return f.other },
			wantCode: http.StatusNotFound,
		},
		{
			name: "day closed",
			body: `{"amount":"25"}`,
			setup: func(f *paymentHandlerFixture) {
				_, _ = f.closes.Create(&domain.DailyClose{WorkspaceID: 1, Date: testDay(0)})
			},
			wantCode: http.StatusConflict,
		},
		{
			name: "loan cancelled",
			body: `{"amount":"25"}`,
			setup: func(f *paymentHandlerFixture) {
				f.loan.Status = domain.LoanStatusCancelled
			},
			wantCode: http.StatusConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newPaymentHandlerFixture(false)
			if tt.setup != nil {
				tt.setup(f)
			}
			actor := f.collector
			if tt.actor != nil {
				actor = tt.actor(f)
			}
			c, rec := f.registerRequest(tt.body, actor)

			_ = f.handler.RegisterPayment(c)

			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			assert.Empty(t, f.payments.Payments)
		})
	}
}

func TestGetPaymentsByDay_DefaultsToToday(t *testing.T) {
	f := newPaymentHandlerFixture(false)
	f.payments.AddPayment(&domain.Payment{WorkspaceID: 1, LoanID: 1, CollectorID: &f.collector.ID, Amount: decimal.NewFromInt(25), PaidAt: testClock.At})
	f.payments.AddPayment(&domain.Payment{WorkspaceID: 1, LoanID: 1, CollectorID: &f.collector.ID, Amount: decimal.NewFromInt(25), PaidAt: testDay(-1).Add(9 * time.Hour)})
	f.payments.AddPayment(&domain.Payment{WorkspaceID: 1, LoanID: 1, CollectorID: &f.other.ID, Amount: decimal.NewFromInt(30), PaidAt: testClock.At})

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/payments", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	setupMemberContext(c, 1, f.collector.ID, domain.RoleCollector)

	require.NoError(t, f.handler.GetPaymentsByDay(c))

	var response []PaymentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	require.Len(t, response, 1)
	assert.Equal(t, int32(1), response[0].ID)
}

func TestGetPaymentsByDay_InvalidDate(t *testing.T) {
	f := newPaymentHandlerFixture(false)
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/payments?date=ayer", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	setupMemberContext(c, 1, f.admin.ID, domain.RoleAdmin)

	_ = f.handler.GetPaymentsByDay(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeletePayment_RestoresBalance(t *testing.T) {
	f := newPaymentHandlerFixture(false)
	c, _ := f.registerRequest(`{"amount":"100"}`, f.collector)
	require.NoError(t, f.handler.RegisterPayment(c))
	require.True(t, f.loan.RemainingAmount.Equal(decimal.NewFromInt(500)))

	e := echo.New()
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/payments/1", nil)
	rec := httptest.NewRecorder()
	dc := e.NewContext(req, rec)
	dc.SetParamNames("id")
	dc.SetParamValues("1")
	setupMemberContext(dc, 1, f.admin.ID, domain.RoleAdmin)

	require.NoError(t, f.handler.DeletePayment(dc))
	assert.Equal(t, http.StatusOK, rec.Code)

	var response LoanResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "600.00", response.RemainingAmount)
}

func TestDeletePayment_ClosedDay(t *testing.T) {
	f := newPaymentHandlerFixture(false)
	f.payments.AddPayment(&domain.Payment{WorkspaceID: 1, LoanID: 1, CollectorID: &f.collector.ID, Amount: decimal.NewFromInt(25), PaidAt: testDay(-1)})
	_, _ = f.closes.Create(&domain.DailyClose{WorkspaceID: 1, CollectorID: &f.collector.ID, Date: testDay(-1)})

	e := echo.New()
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/payments/1", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("1")
	setupMemberContext(c, 1, f.admin.ID, domain.RoleAdmin)

	_ = f.handler.DeletePayment(c)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Len(t, f.payments.Payments, 1)
}

func TestUploadReceipt_StorageDisabled(t *testing.T) {
	f := newPaymentHandlerFixture(false)
	body, contentType := createReceiptForm("recibo.jpg", createTestJPEG(100, 100))

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/1/receipt", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("1")
	setupMemberContext(c, 1, f.collector.ID, domain.RoleCollector)

	_ = f.handler.UploadReceipt(c)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestUploadReceipt_Success(t *testing.T) {
	f := newPaymentHandlerFixture(true)
	f.payments.AddPayment(&domain.Payment{WorkspaceID: 1, LoanID: 1, CollectorID: &f.collector.ID, Amount: decimal.NewFromInt(25), PaidAt: testClock.At})
	body, contentType := createReceiptForm("recibo.jpg", createTestJPEG(1600, 1200))

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/1/receipt", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("1")
	setupMemberContext(c, 1, f.collector.ID, domain.RoleCollector)

	require.NoError(t, f.handler.UploadReceipt(c))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var response ReceiptResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Contains(t, response.URL, "https://storage.test/")

	path := f.payments.Payments[1].ReceiptPath
	require.NotNil(t, path)
	stored, ok := f.objects.Object(*path)
	require.True(t, ok)

	img, err := jpeg.Decode(bytes.NewReader(stored))
	require.NoError(t, err)
	assert.Equal(t, service.ReceiptMaxWidth, img.Bounds().Dx())
}

func TestUploadReceipt_Validation(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		data     []byte
		wantCode int
	}{
		{"too small", "recibo.jpg", createTestJPEG(20, 20), http.StatusBadRequest},
		{"bad extension", "recibo.gif", createTestJPEG(100, 100), http.StatusBadRequest},
		{"not an image", "recibo.png", []byte("definitely not a png"), http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newPaymentHandlerFixture(true)
			f.payments.AddPayment(&domain.Payment{WorkspaceID: 1, LoanID: 1, CollectorID: &f.collector.ID, Amount: decimal.NewFromInt(25), PaidAt: testClock.At})
			body, contentType := createReceiptForm(tt.filename, tt.data)

			e := echo.New()
			req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/1/receipt", body)
			req.Header.Set("Content-Type", contentType)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)
			c.SetParamNames("id")
			c.SetParamValues("1")
			setupMemberContext(c, 1, f.collector.ID, domain.RoleCollector)

			_ = f.handler.UploadReceipt(c)
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Empty(t, f.objects.Objects)
		})
	}
}

func TestUploadReceipt_OtherCollectorsPayment(t *testing.T) {
	f := newPaymentHandlerFixture(true)
	f.payments.AddPayment(&domain.Payment{WorkspaceID: 1, LoanID: 1, CollectorID: &f.other.ID, Amount: decimal.NewFromInt(25), PaidAt: testClock.At})
	body, contentType := createReceiptForm("recibo.jpg", createTestJPEG(100, 100))

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/1/receipt", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("1")
	setupMemberContext(c, 1, f.collector.ID, domain.RoleCollector)

	_ = f.handler.UploadReceipt(c)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetReceipt_NoReceipt(t *testing.T) {
	f := newPaymentHandlerFixture(true)
	f.payments.AddPayment(&domain.Payment{WorkspaceID: 1, LoanID: 1, CollectorID: &f.collector.ID, Amount: decimal.NewFromInt(25), PaidAt: testClock.At})

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/payments/1/receipt", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("1")
	setupMemberContext(c, 1, f.admin.ID, domain.RoleAdmin)

	_ = f.handler.GetReceipt(c)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
