package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cobrodiario/cobrodiario-backend/internal/domain"
	"github.com/cobrodiario/cobrodiario-backend/internal/service"
	"github.com/cobrodiario/cobrodiario-backend/internal/testutil"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type closeHandlerFixture struct {
	handler   *CloseHandler
	closes    *testutil.MockDailyCloseRepository
	loans     *testutil.MockLoanRepository
	payments  *testutil.MockPaymentRepository
	expenses  *testutil.MockExpenseRepository
	admin     uuid.UUID
	collector uuid.UUID
}

// newCloseHandlerFixture seeds one day of activity: a loan disbursed today,
// a 25 payment on an older loan and a 10 expense.
func newCloseHandlerFixture() *closeHandlerFixture {
	f := &closeHandlerFixture{
		closes:    testutil.NewMockDailyCloseRepository(),
		loans:     testutil.NewMockLoanRepository(),
		expenses:  testutil.NewMockExpenseRepository(),
		admin:     uuid.New(),
		collector: uuid.New(),
	}
	f.payments = testutil.NewMockPaymentRepository(f.loans)

	f.loans.AddLoan(&domain.Loan{
		WorkspaceID:     1,
		ClientID:        1,
		CollectorID:     &f.collector,
		Amount:          decimal.NewFromInt(500),
		Interest:        decimal.NewFromInt(100),
		Fee:             decimal.NewFromInt(25),
		TermDays:        24,
		StartDate:       testDay(-1),
		RemainingAmount: decimal.NewFromInt(575),
	})
	f.loans.AddLoan(&domain.Loan{
		WorkspaceID:     1,
		ClientID:        2,
		CollectorID:     &f.collector,
		Amount:          decimal.NewFromInt(500),
		Interest:        decimal.NewFromInt(100),
		Fee:             decimal.NewFromInt(25),
		TermDays:        24,
		StartDate:       testDay(0),
		RemainingAmount: decimal.NewFromInt(600),
	})
	f.payments.AddPayment(&domain.Payment{
		WorkspaceID: 1,
		LoanID:      1,
		CollectorID: &f.collector,
		Amount:      decimal.NewFromInt(25),
		PaidAt:      testDay(0).Add(9 * time.Hour),
	})
	_, _ = f.expenses.Create(&domain.Expense{
		WorkspaceID: 1,
		CollectorID: &f.collector,
		Category:    domain.ExpenseCategoryFuel,
		Description: "Gasolina",
		Amount:      decimal.NewFromInt(10),
		SpentOn:     testDay(0),
	})

	svc := service.NewCloseDayService(f.closes, f.payments, f.expenses, f.loans, nil, nil, testClock, nil)
	f.handler = NewCloseHandler(svc, testClock)
	return f
}

func (f *closeHandlerFixture) closeRequest(body string, userID uuid.UUID, role string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/closes", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	setupMemberContext(c, 1, userID, role)
	return c, rec
}

func TestPreviewClose_Totals(t *testing.T) {
	f := newCloseHandlerFixture()
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/closes/preview", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	setupMemberContext(c, 1, f.admin, domain.RoleAdmin)

	require.NoError(t, f.handler.PreviewClose(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var response CloseDayReportResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "2026-03-15", response.Close.Date)
	assert.Equal(t, int32(1), response.Close.PaymentsCount)
	assert.Equal(t, "25.00", response.Close.CollectedTotal)
	assert.Equal(t, "10.00", response.Close.ExpensesTotal)
	assert.Equal(t, int32(1), response.Close.LoansDisbursed)
	assert.Equal(t, "500.00", response.Close.DisbursedTotal)
	assert.Equal(t, "-485.00", response.Close.NetCash)
	assert.Equal(t, 1, response.Close.Arrears.OnTime)
	assert.Equal(t, 1, response.Close.Arrears.Recent)
	assert.Nil(t, response.Close.ClosedAt)
	assert.Len(t, response.Payments, 1)
	assert.Len(t, response.Expenses, 1)
	assert.Len(t, response.Disbursed, 1)
	assert.Empty(t, f.closes.Closes)
}

func TestPreviewClose_OtherCollectorSeesNothing(t *testing.T) {
	f := newCloseHandlerFixture()
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/closes/preview?collectorId="+f.collector.String(), nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	setupMemberContext(c, 1, uuid.New(), domain.RoleCollector)

	require.NoError(t, f.handler.PreviewClose(c))

	var response CloseDayReportResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, int32(0), response.Close.PaymentsCount)
	assert.Equal(t, "0.00", response.Close.NetCash)
}

func TestCloseDay_CollectorClosesOwnDay(t *testing.T) {
	f := newCloseHandlerFixture()

	c, rec := f.closeRequest(`{"date":"2026-03-15"}`, f.collector, domain.RoleCollector)
	require.NoError(t, f.handler.CloseDay(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var response DailyCloseResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	require.NotNil(t, response.CollectorID)
	assert.Equal(t, f.collector.String(), *response.CollectorID)
	assert.Equal(t, "-485.00", response.NetCash)
	require.NotNil(t, response.ClosedBy)
	assert.Equal(t, f.collector.String(), *response.ClosedBy)
	assert.False(t, response.HasSnapshot)

	// the same day cannot be closed twice
	c, rec = f.closeRequest(`{"date":"2026-03-15"}`, f.collector, domain.RoleCollector)
	_ = f.handler.CloseDay(c)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Len(t, f.closes.Closes, 1)
}

func TestCloseDay_Errors(t *testing.T) {
	otherCollector := uuid.New()

	tests := []struct {
		name     string
		body     string
		role     string
		wantCode int
	}{
		{"other collector", `{"date":"2026-03-15","collectorId":"` + otherCollector.String() + `"}`, domain.RoleCollector, http.StatusForbidden},
		{"future day", `{"date":"2026-03-16"}`, domain.RoleAdmin, http.StatusBadRequest},
		{"missing date", `{}`, domain.RoleAdmin, http.StatusBadRequest},
		{"bad collector", `{"date":"2026-03-15","collectorId":"x"}`, domain.RoleAdmin, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newCloseHandlerFixture()
			userID := f.admin
			if tt.role == domain.RoleCollector {
				userID = f.collector
			}
			c, rec := f.closeRequest(tt.body, userID, tt.role)

			_ = f.handler.CloseDay(c)
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Empty(t, f.closes.Closes)
		})
	}
}

func TestGetClose_NotClosed(t *testing.T) {
	f := newCloseHandlerFixture()
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/closes/2026-03-14", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("date")
	c.SetParamValues("2026-03-14")
	setupMemberContext(c, 1, f.admin, domain.RoleAdmin)

	_ = f.handler.GetClose(c)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetClose_WorkspaceWide(t *testing.T) {
	f := newCloseHandlerFixture()
	_, _ = f.closes.Create(&domain.DailyClose{
		WorkspaceID:    1,
		Date:           testDay(-1),
		CollectedTotal: decimal.NewFromInt(300),
		NetCash:        decimal.NewFromInt(280),
		ClosedBy:       f.admin,
	})
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/closes/2026-03-14", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("date")
	c.SetParamValues("2026-03-14")
	setupMemberContext(c, 1, f.admin, domain.RoleAdmin)

	require.NoError(t, f.handler.GetClose(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var response DailyCloseResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Nil(t, response.CollectorID)
	assert.Equal(t, "300.00", response.CollectedTotal)
	assert.Equal(t, "280.00", response.NetCash)
}

func TestListCloses_CollectorScope(t *testing.T) {
	f := newCloseHandlerFixture()
	other := uuid.New()
	_, _ = f.closes.Create(&domain.DailyClose{WorkspaceID: 1, Date: testDay(-2)})
	_, _ = f.closes.Create(&domain.DailyClose{WorkspaceID: 1, CollectorID: &f.collector, Date: testDay(-1)})
	_, _ = f.closes.Create(&domain.DailyClose{WorkspaceID: 1, CollectorID: &other, Date: testDay(-1)})
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/closes?from=2026-03-01&to=2026-03-15", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	setupMemberContext(c, 1, f.collector, domain.RoleCollector)

	require.NoError(t, f.handler.ListCloses(c))

	var response []DailyCloseResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	require.Len(t, response, 2)
	assert.Equal(t, "2026-03-14", response[0].Date)
	assert.Equal(t, "2026-03-13", response[1].Date)
}

func TestListCloses_InvalidDate(t *testing.T) {
	f := newCloseHandlerFixture()
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/closes?from=marzo", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	setupMemberContext(c, 1, f.admin, domain.RoleAdmin)

	_ = f.handler.ListCloses(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"field":"from"`)
}

func TestReopenDay(t *testing.T) {
	f := newCloseHandlerFixture()
	dc, _ := f.closes.Create(&domain.DailyClose{WorkspaceID: 1, Date: testDay(0)})
	e := echo.New()

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/closes/1", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("1")
	setupMemberContext(c, 1, f.admin, domain.RoleOwner)

	require.NoError(t, f.handler.ReopenDay(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.NotContains(t, f.closes.Closes, dc.ID)

	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("1")
	setupMemberContext(c, 1, f.admin, domain.RoleOwner)

	_ = f.handler.ReopenDay(c)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
