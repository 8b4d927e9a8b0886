package middleware

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/auth0/go-jwt-middleware/v2/jwks"
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// CustomClaims contains the custom claims from Auth0 JWT
type CustomClaims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Validate implements validator.CustomClaims
func (c CustomClaims) Validate(ctx context.Context) error {
	return nil
}

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	// ClaimsKey is the context key for JWT claims
	ClaimsKey contextKey = "claims"
	// Auth0IDKey is the context key for the Auth0 user ID (subject)
	Auth0IDKey contextKey = "auth0_id"
	// WorkspaceIDKey is the context key for the member's workspace ID
	WorkspaceIDKey contextKey = "workspace_id"
	// UserIDKey is the context key for the staff member ID
	UserIDKey contextKey = "user_id"
	// RoleKey is the context key for the staff member role
	RoleKey contextKey = "role"
)

// Membership is what a token subject resolves to inside a workspace
type Membership struct {
	WorkspaceID int32
	UserID      uuid.UUID
	Role        string
}

// MemberProvider resolves an Auth0 subject to an active staff membership
type MemberProvider interface {
	GetMembershipByAuth0ID(auth0ID string) (*Membership, error)
}

// TokenValidator is the subset of validator.Validator the middleware needs
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (interface{}, error)
}

// AuthMiddleware provides JWT validation middleware
type AuthMiddleware struct {
	validator      TokenValidator
	memberProvider MemberProvider
}

// NewAuthMiddleware creates a new AuthMiddleware with Auth0 configuration
func NewAuthMiddleware(domain, audience string, memberProvider MemberProvider) (*AuthMiddleware, error) {
	issuerURL, err := url.Parse("https://" + domain + "/")
	if err != nil {
		return nil, err
	}

	provider := jwks.NewCachingProvider(issuerURL, 5*time.Minute)

	jwtValidator, err := validator.New(
		provider.KeyFunc,
		validator.RS256,
		issuerURL.String(),
		[]string{audience},
		validator.WithCustomClaims(func() validator.CustomClaims {
			return &CustomClaims{}
		}),
		validator.WithAllowedClockSkew(time.Minute),
	)
	if err != nil {
		return nil, err
	}

	return NewAuthMiddlewareWithValidator(jwtValidator, memberProvider), nil
}

// NewAuthMiddlewareWithValidator creates an AuthMiddleware around an existing token validator
func NewAuthMiddlewareWithValidator(v TokenValidator, memberProvider MemberProvider) *AuthMiddleware {
	return &AuthMiddleware{
		validator:      v,
		memberProvider: memberProvider,
	}
}

// AuthenticateToken validates the bearer token only. Used by the sign-in callback,
// where the subject may not be a member yet.
func (m *AuthMiddleware) AuthenticateToken() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx, detail := m.validateRequest(c)
			if ctx == nil {
				return unauthorizedError(c, detail)
			}
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// Authenticate validates the bearer token and resolves the caller's membership
func (m *AuthMiddleware) Authenticate() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx, detail := m.validateRequest(c)
			if ctx == nil {
				return unauthorizedError(c, detail)
			}

			auth0ID, _ := ctx.Value(Auth0IDKey).(string)
			membership, err := m.memberProvider.GetMembershipByAuth0ID(auth0ID)
			if err != nil {
				log.Debug().Err(err).Str("auth0_id", auth0ID).Msg("Membership lookup failed")
				return unauthorizedError(c, "No active membership for this account")
			}

			c.SetRequest(c.Request().WithContext(ctx))
			SetMembership(c, *membership)

			return next(c)
		}
	}
}

// validateRequest returns the request context carrying the token claims,
// or a nil context and the reason the request is rejected
func (m *AuthMiddleware) validateRequest(c echo.Context) (context.Context, string) {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		return nil, "Missing authorization header"
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || parts[1] == "" {
		return nil, "Invalid authorization header format"
	}

	claims, err := m.validator.ValidateToken(c.Request().Context(), parts[1])
	if err != nil {
		log.Debug().Err(err).Msg("Token validation failed")
		return nil, "Invalid token"
	}

	validatedClaims, ok := claims.(*validator.ValidatedClaims)
	if !ok {
		return nil, "Invalid claims"
	}

	ctx := context.WithValue(c.Request().Context(), ClaimsKey, validatedClaims)
	ctx = context.WithValue(ctx, Auth0IDKey, validatedClaims.RegisteredClaims.Subject)
	return ctx, ""
}

// RequireRole rejects members whose role is not listed
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role := GetRole(c)
			for _, r := range roles {
				if r == role {
					return next(c)
				}
			}
			log.Debug().Str("role", role).Str("path", c.Request().URL.Path).Msg("Role not allowed")
			return forbiddenError(c, "Your role cannot perform this action")
		}
	}
}

// GetAuth0ID extracts the Auth0 user ID from the context
func GetAuth0ID(c echo.Context) string {
	if id, ok := c.Request().Context().Value(Auth0IDKey).(string); ok {
		return id
	}
	return ""
}

// GetClaims extracts the validated claims from the context
func GetClaims(c echo.Context) *validator.ValidatedClaims {
	if claims, ok := c.Request().Context().Value(ClaimsKey).(*validator.ValidatedClaims); ok {
		return claims
	}
	return nil
}

// GetCustomClaims extracts the custom claims from the context
func GetCustomClaims(c echo.Context) *CustomClaims {
	claims := GetClaims(c)
	if claims == nil {
		return nil
	}
	if custom, ok := claims.CustomClaims.(*CustomClaims); ok {
		return custom
	}
	return nil
}

// GetWorkspaceID extracts the workspace ID from the context
func GetWorkspaceID(c echo.Context) int32 {
	if id, ok := c.Request().Context().Value(WorkspaceIDKey).(int32); ok {
		return id
	}
	return 0
}

// GetUserID extracts the staff member ID from the context
func GetUserID(c echo.Context) uuid.UUID {
	if id, ok := c.Request().Context().Value(UserIDKey).(uuid.UUID); ok {
		return id
	}
	return uuid.Nil
}

// GetRole extracts the staff member role from the context
func GetRole(c echo.Context) string {
	if role, ok := c.Request().Context().Value(RoleKey).(string); ok {
		return role
	}
	return ""
}

// SetMembership stores a membership on the request context
func SetMembership(c echo.Context, m Membership) {
	ctx := context.WithValue(c.Request().Context(), WorkspaceIDKey, m.WorkspaceID)
	ctx = context.WithValue(ctx, UserIDKey, m.UserID)
	ctx = context.WithValue(ctx, RoleKey, m.Role)
	c.SetRequest(c.Request().WithContext(ctx))
}
