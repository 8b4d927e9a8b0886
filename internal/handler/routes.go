package handler

import (
	"net/http"

	"github.com/cobrodiario/cobrodiario-backend/internal/domain"
	"github.com/cobrodiario/cobrodiario-backend/internal/middleware"
	"github.com/labstack/echo/v4"
)

// Handlers groups every HTTP handler mounted by RegisterRoutes
type Handlers struct {
	Auth      *AuthHandler
	Collector *CollectorHandler
	Client    *ClientHandler
	Loan      *LoanHandler
	Payment   *PaymentHandler
	Expense   *ExpenseHandler
	Close     *CloseHandler
	Dashboard *DashboardHandler
	WebSocket *WebSocketHandler
}

// RegisterRoutes sets up all API routes
func RegisterRoutes(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, rateLimiter *middleware.RateLimiter, h Handlers) {
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	if h.WebSocket != nil {
		e.GET("/ws", h.WebSocket.HandleWS)
	}

	// API version 1
	api := e.Group("/api/v1")

	managers := middleware.RequireRole(domain.RoleOwner, domain.RoleAdmin)
	owner := middleware.RequireRole(domain.RoleOwner)

	// Sign-in callback only needs a valid token; the member may not exist yet
	api.POST("/auth/callback", h.Auth.Callback, authMiddleware.AuthenticateToken())

	protected := api.Group("")
	protected.Use(authMiddleware.Authenticate())
	if rateLimiter != nil {
		protected.Use(middleware.RateLimitMiddleware(rateLimiter))
	}

	// Auth routes
	auth := protected.Group("/auth")
	auth.GET("/me", h.Auth.Me)
	auth.POST("/logout", h.Auth.Logout)

	// Collector (staff) routes
	collectors := protected.Group("/collectors")
	collectors.GET("", h.Collector.ListCollectors)
	collectors.POST("", h.Collector.CreateCollector, managers)
	collectors.PUT("/:id", h.Collector.UpdateCollector, managers)
	collectors.PATCH("/:id/active", h.Collector.SetCollectorActive, managers)

	// Client routes
	clients := protected.Group("/clients")
	clients.GET("", h.Client.ListClients)
	clients.POST("", h.Client.CreateClient)
	clients.GET("/:id", h.Client.GetClient)
	clients.PUT("/:id", h.Client.UpdateClient)
	clients.DELETE("/:id", h.Client.DeleteClient)

	// Loan routes
	loans := protected.Group("/loans")
	loans.GET("", h.Loan.ListLoans)
	loans.POST("", h.Loan.CreateLoan)
	loans.POST("/preview", h.Loan.PreviewLoan)
	loans.POST("/status/evaluate", h.Loan.EvaluateStatus)
	loans.GET("/:id", h.Loan.GetLoan)
	loans.PUT("/:id", h.Loan.UpdateLoan)
	loans.POST("/:id/cancel", h.Loan.CancelLoan, managers)
	loans.GET("/:id/payments", h.Payment.GetLoanPayments)
	loans.POST("/:id/payments", h.Payment.RegisterPayment)

	// Payment routes
	payments := protected.Group("/payments")
	payments.GET("", h.Payment.GetPaymentsByDay)
	payments.DELETE("/:id", h.Payment.DeletePayment, managers)
	payments.POST("/:id/receipt", h.Payment.UploadReceipt)
	payments.GET("/:id/receipt", h.Payment.GetReceipt)

	// Expense routes
	expenses := protected.Group("/expenses")
	expenses.GET("", h.Expense.GetExpenses)
	expenses.POST("", h.Expense.CreateExpense)
	expenses.DELETE("/:id", h.Expense.DeleteExpense)

	// Close-day routes
	closes := protected.Group("/closes")
	closes.GET("", h.Close.ListCloses)
	closes.GET("/preview", h.Close.PreviewClose)
	closes.POST("", h.Close.CloseDay)
	closes.GET("/:date", h.Close.GetClose)
	closes.DELETE("/:id", h.Close.ReopenDay, owner)

	// Dashboard routes
	dashboard := protected.Group("/dashboard")
	dashboard.GET("/summary", h.Dashboard.GetSummary)
	dashboard.GET("/arrears", h.Dashboard.GetArrears)
}
