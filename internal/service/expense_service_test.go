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

func newExpenseFixture() (*ExpenseService, *testutil.MockExpenseRepository, *testutil.MockDailyCloseRepository, *testutil.MockEventPublisher) {
	expenses := testutil.NewMockExpenseRepository()
	closes := testutil.NewMockDailyCloseRepository()
	events := testutil.NewMockEventPublisher()
	svc := NewExpenseService(expenses, closes, util.FixedClock{At: testNow()}, nil)
	svc.SetEventPublisher(events)
	return svc, expenses, closes, events
}

func TestCreateExpense(t *testing.T) {
	svc, _, _, events := newExpenseFixture()
	collector := Actor{UserID: uuid.New(), Role: domain.RoleCollector}
	other := uuid.New()

	expense, err := svc.CreateExpense(1, collector, CreateExpenseInput{
		Category:    domain.ExpenseCategoryFuel,
		Description: " gasoline ",
		Amount:      decimal.NewFromInt(150),
		CollectorID: &other,
	})
	require.NoError(t, err)
	assert.Equal(t, "gasoline", expense.Description)
	assert.Equal(t, collector.UserID, *expense.CollectorID, "collectors record their own expenses")
	assert.Equal(t, "2025-03-10", util.FormatDate(expense.SpentOn))
	assert.Equal(t, []string{"expense.created"}, events.Types())
}

func TestCreateExpense_Validation(t *testing.T) {
	future := testNow().AddDate(0, 0, 2)
	manager := Actor{UserID: uuid.New(), Role: domain.RoleOwner}

	tests := []struct {
		name    string
		input   CreateExpenseInput
		wantErr error
	}{
		{"empty description", CreateExpenseInput{Amount: decimal.NewFromInt(1)}, domain.ErrExpenseDescriptionEmpty},
		{"zero amount", CreateExpenseInput{Description: "lunch", Amount: decimal.Zero}, domain.ErrExpenseAmountInvalid},
		{"bad category", CreateExpenseInput{Description: "lunch", Amount: decimal.NewFromInt(1), Category: "fun"}, domain.ErrInvalidExpenseCategory},
		{"future day", CreateExpenseInput{Description: "lunch", Amount: decimal.NewFromInt(1), SpentOn: &future}, domain.ErrExpenseInFuture},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, _, _ := newExpenseFixture()
			_, err := svc.CreateExpense(1, manager, tt.input)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCreateExpense_ClosedDay(t *testing.T) {
	svc, _, closes, _ := newExpenseFixture()
	collector := Actor{UserID: uuid.New(), Role: domain.RoleCollector}
	closes.Create(&domain.DailyClose{WorkspaceID: 1, Date: util.StartOfDay(testNow()), CollectorID: &collector.UserID})

	_, err := svc.CreateExpense(1, collector, CreateExpenseInput{Description: "lunch", Amount: decimal.NewFromInt(50)})
	assert.ErrorIs(t, err, domain.ErrDayClosed)

	// another collector's day is still open
	_, err = svc.CreateExpense(1, Actor{UserID: uuid.New(), Role: domain.RoleCollector}, CreateExpenseInput{Description: "lunch", Amount: decimal.NewFromInt(50)})
	assert.NoError(t, err)
}

func TestGetExpenses(t *testing.T) {
	svc, _, _, _ := newExpenseFixture()
	manager := Actor{UserID: uuid.New(), Role: domain.RoleAdmin}
	yesterday := testNow().AddDate(0, 0, -1)
	lastWeek := testNow().AddDate(0, 0, -7)

	for _, spent := range []*time.Time{&yesterday, &lastWeek, nil} {
		_, err := svc.CreateExpense(1, manager, CreateExpenseInput{Description: "fuel", Amount: decimal.NewFromInt(10), SpentOn: spent})
		require.NoError(t, err)
	}

	expenses, err := svc.GetExpenses(1, manager, yesterday, testNow(), nil)
	require.NoError(t, err)
	assert.Len(t, expenses, 2)

	_, err = svc.GetExpenses(1, manager, testNow(), yesterday, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidDate)
}

func TestDeleteExpense(t *testing.T) {
	svc, expenses, _, _ := newExpenseFixture()
	owner := Actor{UserID: uuid.New(), Role: domain.RoleCollector}
	stranger := Actor{UserID: uuid.New(), Role: domain.RoleCollector}

	expense, err := svc.CreateExpense(1, owner, CreateExpenseInput{Description: "food", Amount: decimal.NewFromInt(30)})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.DeleteExpense(1, stranger, expense.ID), domain.ErrExpenseNotFound)
	require.NoError(t, svc.DeleteExpense(1, owner, expense.ID))
	assert.Empty(t, expenses.Expenses)
}
