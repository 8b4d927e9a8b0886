package service

import (
	"testing"
	"time"

	"github.com/cobrodiario/cobrodiario-backend/internal/domain"
	"github.com/cobrodiario/cobrodiario-backend/internal/testutil"
	"github.com/cobrodiario/cobrodiario-backend/internal/util"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var businessLocation = time.FixedZone("CST", -6*60*60)

// 2025-03-10 10:00 in the business location
func testNow() time.Time {
	return time.Date(2025, 3, 10, 10, 0, 0, 0, businessLocation)
}

func calendarDay(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

type loanFixture struct {
	svc         *LoanService
	loanRepo    *testutil.MockLoanRepository
	clientRepo  *testutil.MockClientRepository
	paymentRepo *testutil.MockPaymentRepository
	userRepo    *testutil.MockUserRepository
	events      *testutil.MockEventPublisher
}

func newLoanFixture() *loanFixture {
	loanRepo := testutil.NewMockLoanRepository()
	clientRepo := testutil.NewMockClientRepository()
	paymentRepo := testutil.NewMockPaymentRepository(loanRepo)
	userRepo := testutil.NewMockUserRepository()
	events := testutil.NewMockEventPublisher()

	svc := NewLoanService(loanRepo, clientRepo, paymentRepo, NewCollectorService(userRepo), util.FixedClock{At: testNow()})
	svc.SetEventPublisher(events)
	return &loanFixture{
		svc:         svc,
		loanRepo:    loanRepo,
		clientRepo:  clientRepo,
		paymentRepo: paymentRepo,
		userRepo:    userRepo,
		events:      events,
	}
}

// standardLoan is 1000 at 20% over 30 days: obligation 1200, fee 40
func standardLoan(workspaceID int32, start time.Time, paid int64) *domain.Loan {
	return &domain.Loan{
		WorkspaceID:     workspaceID,
		ClientID:        1,
		Amount:          decimal.NewFromInt(1000),
		InterestRate:    decimal.NewFromInt(20),
		Interest:        decimal.NewFromInt(200),
		Fee:             decimal.NewFromInt(40),
		TermDays:        30,
		StartDate:       start,
		RemainingAmount: decimal.NewFromInt(1200 - paid),
		Status:          domain.LoanStatusActive,
	}
}

func TestCalculateLoanTerms(t *testing.T) {
	tests := []struct {
		name         string
		amount       string
		rate         string
		termDays     int32
		wantInterest string
		wantFee      string
	}{
		{"round numbers", "1000", "20", 30, "200", "40"},
		{"fee rounds to cents", "1000", "10", 23, "100", "47.83"},
		{"interest rounds to cents", "333.33", "15", 20, "50", "19.17"},
		{"zero interest", "600", "0", 24, "0", "25"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			amount := decimal.RequireFromString(tt.amount)
			interest := CalculateLoanInterest(amount, decimal.RequireFromString(tt.rate))
			fee := CalculateDailyFee(amount, interest, tt.termDays)
			assert.True(t, interest.Equal(decimal.RequireFromString(tt.wantInterest)), "interest %s", interest)
			assert.True(t, fee.Equal(decimal.RequireFromString(tt.wantFee)), "fee %s", fee)
		})
	}

	assert.True(t, CalculateDailyFee(decimal.NewFromInt(100), decimal.Zero, 0).IsZero())
}

func TestPreviewLoan(t *testing.T) {
	f := newLoanFixture()

	terms, err := f.svc.PreviewLoan(LoanTermsInput{
		Amount:       decimal.NewFromInt(1000),
		InterestRate: decimal.NewFromInt(20),
		TermDays:     30,
	})
	require.NoError(t, err)
	assert.True(t, terms.TotalObligation.Equal(decimal.NewFromInt(1200)))
	assert.True(t, terms.Fee.Equal(decimal.NewFromInt(40)))
	assert.Equal(t, "2025-03-10", util.FormatDate(terms.StartDate))
	assert.Equal(t, "2025-04-09", util.FormatDate(terms.EndDate))
	assert.Empty(t, f.loanRepo.Loans)
}

func TestPreviewLoan_Validation(t *testing.T) {
	future := testNow().AddDate(0, 0, 1)
	tests := []struct {
		name    string
		input   LoanTermsInput
		wantErr error
	}{
		{"zero amount", LoanTermsInput{Amount: decimal.Zero, TermDays: 30}, domain.ErrLoanAmountInvalid},
		{"negative rate", LoanTermsInput{Amount: decimal.NewFromInt(100), InterestRate: decimal.NewFromInt(-1), TermDays: 30}, domain.ErrLoanInterestInvalid},
		{"rate above 100", LoanTermsInput{Amount: decimal.NewFromInt(100), InterestRate: decimal.NewFromInt(101), TermDays: 30}, domain.ErrLoanInterestInvalid},
		{"zero term", LoanTermsInput{Amount: decimal.NewFromInt(100), TermDays: 0}, domain.ErrLoanTermInvalid},
		{"future start", LoanTermsInput{Amount: decimal.NewFromInt(100), TermDays: 10, StartDate: &future}, domain.ErrLoanStartDateInFuture},
		{"fee rounds to zero", LoanTermsInput{Amount: decimal.RequireFromString("0.01"), TermDays: 30}, domain.ErrLoanFeeInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newLoanFixture()
			_, err := f.svc.PreviewLoan(tt.input)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCreateLoan_Success(t *testing.T) {
	f := newLoanFixture()
	collector := f.userRepo.AddUser(&domain.User{WorkspaceID: 1, Role: domain.RoleCollector, Active: true})
	client := f.clientRepo.AddClient(&domain.Client{WorkspaceID: 1, Name: "Rosa", CollectorID: &collector.ID})

	loan, err := f.svc.CreateLoan(1, CreateLoanInput{
		LoanTermsInput: LoanTermsInput{Amount: decimal.NewFromInt(1000), InterestRate: decimal.NewFromInt(20), TermDays: 30},
		ClientID:       client.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.LoanStatusActive, loan.Status)
	assert.True(t, loan.RemainingAmount.Equal(decimal.NewFromInt(1200)))
	assert.True(t, loan.Fee.Equal(decimal.NewFromInt(40)))
	require.NotNil(t, loan.CollectorID)
	assert.Equal(t, collector.ID, *loan.CollectorID, "loan inherits the client's collector")
	assert.Equal(t, []string{"loan.created"}, f.events.Types())
}

func TestCreateLoan_InvalidReferences(t *testing.T) {
	f := newLoanFixture()
	terms := LoanTermsInput{Amount: decimal.NewFromInt(1000), TermDays: 30}

	_, err := f.svc.CreateLoan(1, CreateLoanInput{LoanTermsInput: terms, ClientID: 99})
	assert.ErrorIs(t, err, domain.ErrLoanClientInvalid)

	client := f.clientRepo.AddClient(&domain.Client{WorkspaceID: 1, Name: "Rosa"})
	missing := uuid.New()
	_, err = f.svc.CreateLoan(1, CreateLoanInput{LoanTermsInput: terms, ClientID: client.ID, CollectorID: &missing})
	assert.ErrorIs(t, err, domain.ErrLoanCollectorInvalid)

	_, err = f.svc.CreateLoan(2, CreateLoanInput{LoanTermsInput: terms, ClientID: client.ID})
	assert.ErrorIs(t, err, domain.ErrLoanClientInvalid, "client of another workspace")
	assert.Empty(t, f.loanRepo.Loans)
}

func TestListLoans_DecoratesStatus(t *testing.T) {
	f := newLoanFixture()
	recent := f.loanRepo.AddLoan(standardLoan(1, calendarDay(2025, 3, 10), 0))
	onTime := f.loanRepo.AddLoan(standardLoan(1, calendarDay(2025, 3, 1), 360))
	mild := f.loanRepo.AddLoan(standardLoan(1, calendarDay(2025, 3, 1), 200))
	severe := f.loanRepo.AddLoan(standardLoan(1, calendarDay(2025, 3, 1), 0))

	loans, err := f.svc.ListLoans(1, LoanListFilter{})
	require.NoError(t, err)
	require.Len(t, loans, 4)

	tiers := make(map[int32]domain.LoanStatusTier)
	for _, l := range loans {
		tiers[l.ID] = l.LoanStatus.Tier
	}
	assert.Equal(t, domain.TierRecent, tiers[recent.ID])
	assert.Equal(t, domain.TierOnTime, tiers[onTime.ID])
	assert.Equal(t, domain.TierMildArrears, tiers[mild.ID])
	assert.Equal(t, domain.TierSevereArrears, tiers[severe.ID])
}

func TestListLoans_TierFilter(t *testing.T) {
	f := newLoanFixture()
	f.loanRepo.AddLoan(standardLoan(1, calendarDay(2025, 3, 1), 360))
	mild := f.loanRepo.AddLoan(standardLoan(1, calendarDay(2025, 3, 1), 200))

	loans, err := f.svc.ListLoans(1, LoanListFilter{Tier: domain.TierMildArrears})
	require.NoError(t, err)
	require.Len(t, loans, 1)
	assert.Equal(t, mild.ID, loans[0].ID)

	_, err = f.svc.ListLoans(1, LoanListFilter{Tier: "late"})
	assert.ErrorIs(t, err, domain.ErrInvalidTier)

	_, err = f.svc.ListLoans(1, LoanListFilter{LoanFilter: domain.LoanFilter{Status: "open"}})
	assert.ErrorIs(t, err, domain.ErrInvalidLoanStatus)
}

func TestListLoans_ClosedLoansCarryNoStatus(t *testing.T) {
	f := newLoanFixture()
	severe := f.loanRepo.AddLoan(standardLoan(1, calendarDay(2025, 2, 1), 0))
	cancelled := standardLoan(1, calendarDay(2025, 2, 1), 0)
	cancelled.Status = domain.LoanStatusCancelled
	cancelled = f.loanRepo.AddLoan(cancelled)
	paid := standardLoan(1, calendarDay(2025, 2, 1), 1200)
	paid.Status = domain.LoanStatusPaid
	paid = f.loanRepo.AddLoan(paid)

	loans, err := f.svc.ListLoans(1, LoanListFilter{Tier: domain.TierSevereArrears})
	require.NoError(t, err)
	require.Len(t, loans, 1)
	assert.Equal(t, severe.ID, loans[0].ID)

	loans, err = f.svc.ListLoans(1, LoanListFilter{})
	require.NoError(t, err)
	require.Len(t, loans, 3)
	for _, l := range loans {
		if l.ID == severe.ID {
			require.NotNil(t, l.LoanStatus)
			continue
		}
		assert.Nil(t, l.LoanStatus, "loan %d is %s", l.ID, l.Status)
	}

	detail, err := f.svc.GetLoan(1, cancelled.ID, nil)
	require.NoError(t, err)
	assert.Nil(t, detail.LoanStatus)

	detail, err = f.svc.GetLoan(1, paid.ID, nil)
	require.NoError(t, err)
	assert.Nil(t, detail.LoanStatus)
}

func TestListLoans_BadLoanDoesNotFailListing(t *testing.T) {
	f := newLoanFixture()
	good := f.loanRepo.AddLoan(standardLoan(1, calendarDay(2025, 3, 1), 360))
	broken := standardLoan(1, calendarDay(2025, 3, 1), 0)
	broken.Fee = decimal.Zero
	broken = f.loanRepo.AddLoan(broken)

	loans, err := f.svc.ListLoans(1, LoanListFilter{})
	require.NoError(t, err)
	require.Len(t, loans, 2)
	for _, l := range loans {
		switch l.ID {
		case good.ID:
			assert.Equal(t, domain.TierOnTime, l.LoanStatus.Tier)
		case broken.ID:
			assert.Equal(t, domain.TierUnknown, l.LoanStatus.Tier)
		}
	}
}

func TestGetLoan_CollectorVisibility(t *testing.T) {
	f := newLoanFixture()
	mine := uuid.New()
	other := uuid.New()
	loan := standardLoan(1, calendarDay(2025, 3, 1), 40)
	loan.CollectorID = &mine
	loan = f.loanRepo.AddLoan(loan)
	f.paymentRepo.AddPayment(&domain.Payment{WorkspaceID: 1, LoanID: loan.ID, Amount: decimal.NewFromInt(40)})

	detail, err := f.svc.GetLoan(1, loan.ID, &mine)
	require.NoError(t, err)
	assert.Len(t, detail.Payments, 1)
	assert.NotNil(t, detail.LoanStatus)

	_, err = f.svc.GetLoan(1, loan.ID, &other)
	assert.ErrorIs(t, err, domain.ErrLoanNotFound)

	_, err = f.svc.GetLoan(1, loan.ID, nil)
	assert.NoError(t, err)
}

func TestUpdateLoan(t *testing.T) {
	f := newLoanFixture()
	collector := f.userRepo.AddUser(&domain.User{WorkspaceID: 1, Role: domain.RoleCollector, Active: true})
	loan := f.loanRepo.AddLoan(standardLoan(1, calendarDay(2025, 3, 1), 0))

	notes := " weekly visit "
	updated, err := f.svc.UpdateLoan(1, loan.ID, UpdateLoanInput{Notes: &notes, CollectorID: &collector.ID})
	require.NoError(t, err)
	assert.Equal(t, "weekly visit", *updated.Notes)
	assert.Equal(t, collector.ID, *updated.CollectorID)
	assert.Equal(t, []string{"loan.updated"}, f.events.Types())
}

func TestCancelLoan(t *testing.T) {
	f := newLoanFixture()
	clean := f.loanRepo.AddLoan(standardLoan(1, calendarDay(2025, 3, 1), 0))
	withPayment := f.loanRepo.AddLoan(standardLoan(1, calendarDay(2025, 3, 1), 40))
	f.paymentRepo.AddPayment(&domain.Payment{WorkspaceID: 1, LoanID: withPayment.ID, Amount: decimal.NewFromInt(40)})

	cancelled, err := f.svc.CancelLoan(1, clean.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.LoanStatusCancelled, cancelled.Status)

	_, err = f.svc.CancelLoan(1, clean.ID)
	assert.ErrorIs(t, err, domain.ErrLoanNotActive)

	_, err = f.svc.CancelLoan(1, withPayment.ID)
	assert.ErrorIs(t, err, domain.ErrLoanHasPayments)
}

func TestEvaluateSnapshot(t *testing.T) {
	f := newLoanFixture()
	remaining := decimal.NewFromInt(1000)
	snapshot := domain.LoanSnapshot{
		Amount:          decimal.NewFromInt(1000),
		Interest:        decimal.NewFromInt(200),
		Fee:             decimal.NewFromInt(40),
		StartDate:       "2025-03-01",
		RemainingAmount: &remaining,
	}

	// as of the fixed clock: 9 days elapsed, 360 due, 200 paid
	status, err := f.svc.EvaluateSnapshot(snapshot, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.TierMildArrears, status.Tier)
	assert.Equal(t, 4, status.DaysOverdue)

	reference := time.Date(2025, 3, 3, 8, 0, 0, 0, businessLocation)
	status, err = f.svc.EvaluateSnapshot(snapshot, &reference)
	require.NoError(t, err)
	assert.Equal(t, domain.TierOnTime, status.Tier)

	snapshot.StartDate = "not-a-date"
	_, err = f.svc.EvaluateSnapshot(snapshot, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidStartDate)
}
