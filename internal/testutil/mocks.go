package testutil

import (
	"sort"
	"strings"
	"time"

	"github.com/cobrodiario/cobrodiario-backend/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func sameCollector(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// matchesCollector treats a nil filter as "any collector"
func matchesCollector(filter, value *uuid.UUID) bool {
	return filter == nil || sameCollector(filter, value)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// MockUserRepository is a mock implementation of domain.UserRepository
type MockUserRepository struct {
	ByID     map[uuid.UUID]*domain.User
	CreateFn func(user *domain.User) (*domain.User, error)
	ListFn   func(workspaceID int32, activeOnly bool) ([]*domain.User, error)
}

// NewMockUserRepository creates a new MockUserRepository
func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{
		ByID: make(map[uuid.UUID]*domain.User),
	}
}

// GetByID retrieves a member of a workspace
func (m *MockUserRepository) GetByID(workspaceID int32, id uuid.UUID) (*domain.User, error) {
	if user, ok := m.ByID[id]; ok && user.WorkspaceID == workspaceID {
		return user, nil
	}
	return nil, domain.ErrUserNotFound
}

// GetByAuth0ID retrieves a user by Auth0 ID
func (m *MockUserRepository) GetByAuth0ID(auth0ID string) (*domain.User, error) {
	for _, user := range m.ByID {
		if user.Auth0ID != nil && *user.Auth0ID == auth0ID {
			return user, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

// GetPendingByEmail retrieves an active invited member without Auth0 ID
func (m *MockUserRepository) GetPendingByEmail(email string) (*domain.User, error) {
	for _, user := range m.ByID {
		if user.Auth0ID == nil && user.Active && strings.EqualFold(user.Email, email) {
			return user, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

// GetByWorkspaceAndEmail retrieves a member by email
func (m *MockUserRepository) GetByWorkspaceAndEmail(workspaceID int32, email string) (*domain.User, error) {
	for _, user := range m.ByID {
		if user.WorkspaceID == workspaceID && strings.EqualFold(user.Email, email) {
			return user, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

// ListByWorkspace lists members ordered by name
func (m *MockUserRepository) ListByWorkspace(workspaceID int32, activeOnly bool) ([]*domain.User, error) {
	if m.ListFn != nil {
		return m.ListFn(workspaceID, activeOnly)
	}
	users := make([]*domain.User, 0)
	for _, user := range m.ByID {
		if user.WorkspaceID == workspaceID && (!activeOnly || user.Active) {
			users = append(users, user)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Name < users[j].Name })
	return users, nil
}

// Create creates a new user
func (m *MockUserRepository) Create(user *domain.User) (*domain.User, error) {
	if m.CreateFn != nil {
		return m.CreateFn(user)
	}
	if _, err := m.GetByWorkspaceAndEmail(user.WorkspaceID, user.Email); err == nil {
		return nil, domain.ErrUserEmailExists
	}
	user.ID = uuid.New()
	user.CreatedAt = time.Now()
	user.UpdatedAt = time.Now()
	m.ByID[user.ID] = user
	return user, nil
}

// Update updates name and role
func (m *MockUserRepository) Update(user *domain.User) (*domain.User, error) {
	existing, err := m.GetByID(user.WorkspaceID, user.ID)
	if err != nil {
		return nil, err
	}
	existing.Name = user.Name
	existing.Role = user.Role
	existing.UpdatedAt = time.Now()
	return existing, nil
}

// LinkAuth0ID attaches an Auth0 identity to an invited member
func (m *MockUserRepository) LinkAuth0ID(id uuid.UUID, auth0ID string) (*domain.User, error) {
	user, ok := m.ByID[id]
	if !ok || user.Auth0ID != nil {
		return nil, domain.ErrUserNotFound
	}
	user.Auth0ID = &auth0ID
	return user, nil
}

// SetActive activates or deactivates a member
func (m *MockUserRepository) SetActive(workspaceID int32, id uuid.UUID, active bool) (*domain.User, error) {
	user, err := m.GetByID(workspaceID, id)
	if err != nil {
		return nil, err
	}
	user.Active = active
	return user, nil
}

// AddUser adds a user to the mock repository (helper for tests)
func (m *MockUserRepository) AddUser(user *domain.User) *domain.User {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	m.ByID[user.ID] = user
	return user
}

// MockWorkspaceRepository is a mock implementation of domain.WorkspaceRepository
type MockWorkspaceRepository struct {
	Workspaces map[int32]*domain.Workspace
	NextID     int32
	CreateFn   func(workspace *domain.Workspace) (*domain.Workspace, error)
}

// NewMockWorkspaceRepository creates a new MockWorkspaceRepository
func NewMockWorkspaceRepository() *MockWorkspaceRepository {
	return &MockWorkspaceRepository{
		Workspaces: make(map[int32]*domain.Workspace),
		NextID:     1,
	}
}

// GetByID retrieves a workspace by ID
func (m *MockWorkspaceRepository) GetByID(id int32) (*domain.Workspace, error) {
	if ws, ok := m.Workspaces[id]; ok {
		return ws, nil
	}
	return nil, domain.ErrWorkspaceNotFound
}

// GetAllIDs returns every workspace ID in ascending order
func (m *MockWorkspaceRepository) GetAllIDs() ([]int32, error) {
	ids := make([]int32, 0, len(m.Workspaces))
	for id := range m.Workspaces {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// Create creates a new workspace
func (m *MockWorkspaceRepository) Create(workspace *domain.Workspace) (*domain.Workspace, error) {
	if m.CreateFn != nil {
		return m.CreateFn(workspace)
	}
	workspace.ID = m.NextID
	m.NextID++
	m.Workspaces[workspace.ID] = workspace
	return workspace, nil
}

// AddWorkspace adds a workspace to the mock repository (helper for tests)
func (m *MockWorkspaceRepository) AddWorkspace(workspace *domain.Workspace) {
	m.Workspaces[workspace.ID] = workspace
	if workspace.ID >= m.NextID {
		m.NextID = workspace.ID + 1
	}
}

// MockClientRepository is a mock implementation of domain.ClientRepository
type MockClientRepository struct {
	Clients   map[int32]*domain.Client
	NextID    int32
	ListCalls int
	ListFn    func(workspaceID int32, filter domain.ClientFilter) ([]*domain.Client, error)
}

// NewMockClientRepository creates a new MockClientRepository
func NewMockClientRepository() *MockClientRepository {
	return &MockClientRepository{
		Clients: make(map[int32]*domain.Client),
		NextID:  1,
	}
}

// Create creates a new client
func (m *MockClientRepository) Create(client *domain.Client) (*domain.Client, error) {
	client.ID = m.NextID
	m.NextID++
	client.CreatedAt = time.Now()
	client.UpdatedAt = time.Now()
	m.Clients[client.ID] = client
	return client, nil
}

// GetByID retrieves a client that has not been deleted
func (m *MockClientRepository) GetByID(workspaceID int32, id int32) (*domain.Client, error) {
	if c, ok := m.Clients[id]; ok && c.WorkspaceID == workspaceID && c.DeletedAt == nil {
		return c, nil
	}
	return nil, domain.ErrClientNotFound
}

// List retrieves clients matching the filter ordered by name
func (m *MockClientRepository) List(workspaceID int32, filter domain.ClientFilter) ([]*domain.Client, error) {
	m.ListCalls++
	if m.ListFn != nil {
		return m.ListFn(workspaceID, filter)
	}
	search := strings.ToLower(strings.TrimSpace(filter.Search))
	clients := make([]*domain.Client, 0)
	for _, c := range m.Clients {
		if c.WorkspaceID != workspaceID || c.DeletedAt != nil {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(c.Name), search) {
			continue
		}
		if !matchesCollector(filter.CollectorID, c.CollectorID) {
			continue
		}
		clients = append(clients, c)
	}
	sort.Slice(clients, func(i, j int) bool { return clients[i].Name < clients[j].Name })
	return clients, nil
}

// Update updates a client
func (m *MockClientRepository) Update(client *domain.Client) (*domain.Client, error) {
	if _, err := m.GetByID(client.WorkspaceID, client.ID); err != nil {
		return nil, err
	}
	client.UpdatedAt = time.Now()
	m.Clients[client.ID] = client
	return client, nil
}

// SoftDelete marks a client as deleted
func (m *MockClientRepository) SoftDelete(workspaceID int32, id int32) error {
	c, err := m.GetByID(workspaceID, id)
	if err != nil {
		return err
	}
	now := time.Now()
	c.DeletedAt = &now
	return nil
}

// AddClient adds a client to the mock repository (helper for tests)
func (m *MockClientRepository) AddClient(client *domain.Client) *domain.Client {
	if client.ID == 0 {
		client.ID = m.NextID
	}
	if client.ID >= m.NextID {
		m.NextID = client.ID + 1
	}
	m.Clients[client.ID] = client
	return client
}

// MockLoanRepository is a mock implementation of domain.LoanRepository
type MockLoanRepository struct {
	Loans           map[int32]*domain.Loan
	NextID          int32
	CreateFn        func(loan *domain.Loan) (*domain.Loan, error)
	GetActiveFn     func(workspaceID int32) ([]*domain.Loan, error)
	UpdateStatusErr error
}

// NewMockLoanRepository creates a new MockLoanRepository
func NewMockLoanRepository() *MockLoanRepository {
	return &MockLoanRepository{
		Loans:  make(map[int32]*domain.Loan),
		NextID: 1,
	}
}

// Create creates a new loan
func (m *MockLoanRepository) Create(loan *domain.Loan) (*domain.Loan, error) {
	if m.CreateFn != nil {
		return m.CreateFn(loan)
	}
	loan.ID = m.NextID
	m.NextID++
	if loan.Status == "" {
		loan.Status = domain.LoanStatusActive
	}
	loan.CreatedAt = time.Now()
	loan.UpdatedAt = time.Now()
	m.Loans[loan.ID] = loan
	return loan, nil
}

// GetByID retrieves a loan of a workspace
func (m *MockLoanRepository) GetByID(workspaceID int32, id int32) (*domain.Loan, error) {
	if loan, ok := m.Loans[id]; ok && loan.WorkspaceID == workspaceID && loan.DeletedAt == nil {
		return loan, nil
	}
	return nil, domain.ErrLoanNotFound
}

// List retrieves loans matching the filter, newest first
func (m *MockLoanRepository) List(workspaceID int32, filter domain.LoanFilter) ([]*domain.Loan, error) {
	loans := make([]*domain.Loan, 0)
	for _, loan := range m.Loans {
		if loan.WorkspaceID != workspaceID || loan.DeletedAt != nil {
			continue
		}
		if filter.Status != "" && loan.Status != filter.Status {
			continue
		}
		if filter.ClientID > 0 && loan.ClientID != filter.ClientID {
			continue
		}
		if !matchesCollector(filter.CollectorID, loan.CollectorID) {
			continue
		}
		loans = append(loans, loan)
	}
	sort.Slice(loans, func(i, j int) bool { return loans[i].ID > loans[j].ID })
	return loans, nil
}

// GetActiveByWorkspace retrieves every active loan of a workspace
func (m *MockLoanRepository) GetActiveByWorkspace(workspaceID int32) ([]*domain.Loan, error) {
	if m.GetActiveFn != nil {
		return m.GetActiveFn(workspaceID)
	}
	loans, _ := m.List(workspaceID, domain.LoanFilter{Status: domain.LoanStatusActive})
	sort.Slice(loans, func(i, j int) bool { return loans[i].ID < loans[j].ID })
	return loans, nil
}

// GetStartedOn retrieves the non-cancelled loans disbursed on a day
func (m *MockLoanRepository) GetStartedOn(workspaceID int32, day time.Time, collectorID *uuid.UUID) ([]*domain.Loan, error) {
	loans := make([]*domain.Loan, 0)
	for _, loan := range m.Loans {
		if loan.WorkspaceID == workspaceID && loan.Status != domain.LoanStatusCancelled &&
			sameDay(loan.StartDate, day) && matchesCollector(collectorID, loan.CollectorID) {
			loans = append(loans, loan)
		}
	}
	sort.Slice(loans, func(i, j int) bool { return loans[i].ID < loans[j].ID })
	return loans, nil
}

// CountActiveByClient counts the active loans of a client
func (m *MockLoanRepository) CountActiveByClient(workspaceID int32, clientID int32) (int64, error) {
	var count int64
	for _, loan := range m.Loans {
		if loan.WorkspaceID == workspaceID && loan.ClientID == clientID && loan.Status == domain.LoanStatusActive {
			count++
		}
	}
	return count, nil
}

// Update saves notes and collector
func (m *MockLoanRepository) Update(loan *domain.Loan) (*domain.Loan, error) {
	existing, err := m.GetByID(loan.WorkspaceID, loan.ID)
	if err != nil {
		return nil, err
	}
	existing.Notes = loan.Notes
	existing.CollectorID = loan.CollectorID
	existing.UpdatedAt = time.Now()
	return existing, nil
}

// UpdateStatus changes the status of a loan
func (m *MockLoanRepository) UpdateStatus(workspaceID int32, id int32, status string) (*domain.Loan, error) {
	if m.UpdateStatusErr != nil {
		return nil, m.UpdateStatusErr
	}
	loan, err := m.GetByID(workspaceID, id)
	if err != nil {
		return nil, err
	}
	loan.Status = status
	return loan, nil
}

// AddLoan adds a loan to the mock repository (helper for tests)
func (m *MockLoanRepository) AddLoan(loan *domain.Loan) *domain.Loan {
	if loan.ID == 0 {
		loan.ID = m.NextID
	}
	if loan.ID >= m.NextID {
		m.NextID = loan.ID + 1
	}
	if loan.Status == "" {
		loan.Status = domain.LoanStatusActive
	}
	m.Loans[loan.ID] = loan
	return loan
}

// MockPaymentRepository is a mock implementation of domain.PaymentRepository.
// It applies payments to the loans of the linked MockLoanRepository.
type MockPaymentRepository struct {
	Payments   map[int32]*domain.Payment
	Loans      *MockLoanRepository
	NextID     int32
	CreateFn   func(payment *domain.Payment) (*domain.PaymentResult, error)
	GetByDayFn func(workspaceID int32, from, to time.Time, collectorID *uuid.UUID) ([]*domain.Payment, error)
}

// NewMockPaymentRepository creates a new MockPaymentRepository backed by loans
func NewMockPaymentRepository(loans *MockLoanRepository) *MockPaymentRepository {
	return &MockPaymentRepository{
		Payments: make(map[int32]*domain.Payment),
		Loans:    loans,
		NextID:   1,
	}
}

// CreateAndApply stores the payment and decrements the loan balance
func (m *MockPaymentRepository) CreateAndApply(payment *domain.Payment) (*domain.PaymentResult, error) {
	if m.CreateFn != nil {
		return m.CreateFn(payment)
	}
	loan, err := m.Loans.GetByID(payment.WorkspaceID, payment.LoanID)
	if err != nil {
		return nil, err
	}
	if loan.Status != domain.LoanStatusActive {
		return nil, domain.ErrLoanNotActive
	}
	if payment.Amount.GreaterThan(loan.RemainingAmount) {
		return nil, domain.ErrPaymentExceedsBalance
	}

	payment.ID = m.NextID
	m.NextID++
	payment.CreatedAt = time.Now()
	m.Payments[payment.ID] = payment

	loan.RemainingAmount = loan.RemainingAmount.Sub(payment.Amount)
	if loan.RemainingAmount.LessThanOrEqual(decimal.Zero) {
		loan.RemainingAmount = decimal.Zero
		loan.Status = domain.LoanStatusPaid
	}
	return &domain.PaymentResult{Payment: payment, Loan: loan}, nil
}

// DeleteAndRevert removes the payment and restores the loan balance
func (m *MockPaymentRepository) DeleteAndRevert(workspaceID int32, id int32) (*domain.Loan, error) {
	payment, err := m.GetByID(workspaceID, id)
	if err != nil {
		return nil, err
	}
	loan, err := m.Loans.GetByID(workspaceID, payment.LoanID)
	if err != nil {
		return nil, err
	}
	delete(m.Payments, id)
	loan.RemainingAmount = loan.RemainingAmount.Add(payment.Amount)
	if loan.Status == domain.LoanStatusPaid {
		loan.Status = domain.LoanStatusActive
	}
	return loan, nil
}

// GetByID retrieves a payment of a workspace
func (m *MockPaymentRepository) GetByID(workspaceID int32, id int32) (*domain.Payment, error) {
	if p, ok := m.Payments[id]; ok && p.WorkspaceID == workspaceID {
		return p, nil
	}
	return nil, domain.ErrPaymentNotFound
}

// GetByLoanID retrieves the payments of a loan, newest first
func (m *MockPaymentRepository) GetByLoanID(workspaceID int32, loanID int32) ([]*domain.Payment, error) {
	payments := make([]*domain.Payment, 0)
	for _, p := range m.Payments {
		if p.WorkspaceID == workspaceID && p.LoanID == loanID {
			payments = append(payments, p)
		}
	}
	sort.Slice(payments, func(i, j int) bool { return payments[i].ID > payments[j].ID })
	return payments, nil
}

// GetByDay retrieves payments made in [from, to]
func (m *MockPaymentRepository) GetByDay(workspaceID int32, from, to time.Time, collectorID *uuid.UUID) ([]*domain.Payment, error) {
	if m.GetByDayFn != nil {
		return m.GetByDayFn(workspaceID, from, to, collectorID)
	}
	payments := make([]*domain.Payment, 0)
	for _, p := range m.Payments {
		if p.WorkspaceID == workspaceID && !p.PaidAt.Before(from) && !p.PaidAt.After(to) &&
			matchesCollector(collectorID, p.CollectorID) {
			payments = append(payments, p)
		}
	}
	sort.Slice(payments, func(i, j int) bool { return payments[i].ID < payments[j].ID })
	return payments, nil
}

// CountByLoan counts the payments of a loan
func (m *MockPaymentRepository) CountByLoan(workspaceID int32, loanID int32) (int64, error) {
	payments, _ := m.GetByLoanID(workspaceID, loanID)
	return int64(len(payments)), nil
}

// SetReceiptPath stores the receipt object key
func (m *MockPaymentRepository) SetReceiptPath(workspaceID int32, id int32, path string) (*domain.Payment, error) {
	p, err := m.GetByID(workspaceID, id)
	if err != nil {
		return nil, err
	}
	p.ReceiptPath = &path
	return p, nil
}

// AddPayment adds a payment without touching the loan balance (helper for tests)
func (m *MockPaymentRepository) AddPayment(payment *domain.Payment) *domain.Payment {
	if payment.ID == 0 {
		payment.ID = m.NextID
	}
	if payment.ID >= m.NextID {
		m.NextID = payment.ID + 1
	}
	m.Payments[payment.ID] = payment
	return payment
}

// MockExpenseRepository is a mock implementation of domain.ExpenseRepository
type MockExpenseRepository struct {
	Expenses         map[int32]*domain.Expense
	NextID           int32
	GetByDateRangeFn func(workspaceID int32, from, to time.Time, collectorID *uuid.UUID) ([]*domain.Expense, error)
}

// NewMockExpenseRepository creates a new MockExpenseRepository
func NewMockExpenseRepository() *MockExpenseRepository {
	return &MockExpenseRepository{
		Expenses: make(map[int32]*domain.Expense),
		NextID:   1,
	}
}

// Create creates a new expense
func (m *MockExpenseRepository) Create(expense *domain.Expense) (*domain.Expense, error) {
	expense.ID = m.NextID
	m.NextID++
	expense.CreatedAt = time.Now()
	m.Expenses[expense.ID] = expense
	return expense, nil
}

// GetByID retrieves an expense of a workspace
func (m *MockExpenseRepository) GetByID(workspaceID int32, id int32) (*domain.Expense, error) {
	if e, ok := m.Expenses[id]; ok && e.WorkspaceID == workspaceID {
		return e, nil
	}
	return nil, domain.ErrExpenseNotFound
}

// GetByDateRange retrieves expenses between two days inclusive
func (m *MockExpenseRepository) GetByDateRange(workspaceID int32, from, to time.Time, collectorID *uuid.UUID) ([]*domain.Expense, error) {
	if m.GetByDateRangeFn != nil {
		return m.GetByDateRangeFn(workspaceID, from, to, collectorID)
	}
	fromDay := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	toDay := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)

	expenses := make([]*domain.Expense, 0)
	for _, e := range m.Expenses {
		day := time.Date(e.SpentOn.Year(), e.SpentOn.Month(), e.SpentOn.Day(), 0, 0, 0, 0, time.UTC)
		if e.WorkspaceID == workspaceID && !day.Before(fromDay) && !day.After(toDay) &&
			matchesCollector(collectorID, e.CollectorID) {
			expenses = append(expenses, e)
		}
	}
	sort.Slice(expenses, func(i, j int) bool { return expenses[i].ID < expenses[j].ID })
	return expenses, nil
}

// Delete removes an expense
func (m *MockExpenseRepository) Delete(workspaceID int32, id int32) error {
	if _, err := m.GetByID(workspaceID, id); err != nil {
		return err
	}
	delete(m.Expenses, id)
	return nil
}

// MockDailyCloseRepository is a mock implementation of domain.DailyCloseRepository
type MockDailyCloseRepository struct {
	Closes   map[int32]*domain.DailyClose
	NextID   int32
	CreateFn func(close *domain.DailyClose) (*domain.DailyClose, error)
}

// NewMockDailyCloseRepository creates a new MockDailyCloseRepository
func NewMockDailyCloseRepository() *MockDailyCloseRepository {
	return &MockDailyCloseRepository{
		Closes: make(map[int32]*domain.DailyClose),
		NextID: 1,
	}
}

// Create stores a close, rejecting a second close of the same day and collector
func (m *MockDailyCloseRepository) Create(close *domain.DailyClose) (*domain.DailyClose, error) {
	if m.CreateFn != nil {
		return m.CreateFn(close)
	}
	if _, err := m.GetByDate(close.WorkspaceID, close.Date, close.CollectorID); err == nil {
		return nil, domain.ErrDayAlreadyClosed
	}
	close.ID = m.NextID
	m.NextID++
	if close.ClosedAt.IsZero() {
		close.ClosedAt = time.Now()
	}
	m.Closes[close.ID] = close
	return close, nil
}

// GetByID retrieves a close of a workspace
func (m *MockDailyCloseRepository) GetByID(workspaceID int32, id int32) (*domain.DailyClose, error) {
	if c, ok := m.Closes[id]; ok && c.WorkspaceID == workspaceID {
		return c, nil
	}
	return nil, domain.ErrDailyCloseNotFound
}

// GetByDate retrieves the close of a day for exactly this collector (nil = workspace-wide)
func (m *MockDailyCloseRepository) GetByDate(workspaceID int32, date time.Time, collectorID *uuid.UUID) (*domain.DailyClose, error) {
	for _, c := range m.Closes {
		if c.WorkspaceID == workspaceID && sameDay(c.Date, date) && sameCollector(c.CollectorID, collectorID) {
			return c, nil
		}
	}
	return nil, domain.ErrDailyCloseNotFound
}

// ListByDateRange lists closes between two days inclusive, newest first
func (m *MockDailyCloseRepository) ListByDateRange(workspaceID int32, from, to time.Time) ([]*domain.DailyClose, error) {
	closes := make([]*domain.DailyClose, 0)
	for _, c := range m.Closes {
		if c.WorkspaceID != workspaceID {
			continue
		}
		if (sameDay(c.Date, from) || c.Date.After(from)) && (sameDay(c.Date, to) || c.Date.Before(to)) {
			closes = append(closes, c)
		}
	}
	sort.Slice(closes, func(i, j int) bool { return closes[i].Date.After(closes[j].Date) })
	return closes, nil
}

// IsClosed reports whether the workspace-wide or the collector's close exists
func (m *MockDailyCloseRepository) IsClosed(workspaceID int32, date time.Time, collectorID *uuid.UUID) (bool, error) {
	for _, c := range m.Closes {
		if c.WorkspaceID == workspaceID && sameDay(c.Date, date) &&
			(c.CollectorID == nil || sameCollector(c.CollectorID, collectorID)) {
			return true, nil
		}
	}
	return false, nil
}

// SetSnapshotPath stores the snapshot object key
func (m *MockDailyCloseRepository) SetSnapshotPath(workspaceID int32, id int32, path string) error {
	c, err := m.GetByID(workspaceID, id)
	if err != nil {
		return err
	}
	c.SnapshotPath = &path
	return nil
}

// Delete removes a close
func (m *MockDailyCloseRepository) Delete(workspaceID int32, id int32) error {
	if _, err := m.GetByID(workspaceID, id); err != nil {
		return err
	}
	delete(m.Closes, id)
	return nil
}
