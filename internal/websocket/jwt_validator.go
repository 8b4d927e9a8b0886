package websocket

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/auth0/go-jwt-middleware/v2/jwks"
	"github.com/auth0/go-jwt-middleware/v2/validator"
)

// ErrInvalidToken is returned when JWT validation fails
var ErrInvalidToken = errors.New("invalid token")

// ErrMemberNotFound is returned when the token subject is not an active staff member
var ErrMemberNotFound = errors.New("member not found")

// MemberLookup resolves an Auth0 subject to its workspace membership
type MemberLookup interface {
	LookupMember(auth0ID string) (workspaceID int32, member Member, err error)
}

// CustomClaims contains the custom claims from Auth0 JWT
type CustomClaims struct{}

// Validate implements validator.CustomClaims
func (c CustomClaims) Validate(ctx context.Context) error {
	return nil
}

// tokenValidator is the part of validator.Validator used here
type tokenValidator interface {
	ValidateToken(ctx context.Context, token string) (interface{}, error)
}

// Auth0JWTValidator validates Auth0 JWT tokens for WebSocket connections
type Auth0JWTValidator struct {
	validator    tokenValidator
	memberLookup MemberLookup
}

// NewAuth0JWTValidator creates a new Auth0JWTValidator
func NewAuth0JWTValidator(domain, audience string, memberLookup MemberLookup) (*Auth0JWTValidator, error) {
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

	return &Auth0JWTValidator{
		validator:    jwtValidator,
		memberLookup: memberLookup,
	}, nil
}

// ValidateToken validates a JWT token and returns the membership of its subject
func (v *Auth0JWTValidator) ValidateToken(token string) (int32, Member, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	claims, err := v.validator.ValidateToken(ctx, token)
	if err != nil {
		return 0, Member{}, ErrInvalidToken
	}

	validatedClaims, ok := claims.(*validator.ValidatedClaims)
	if !ok {
		return 0, Member{}, ErrInvalidToken
	}

	workspaceID, member, err := v.memberLookup.LookupMember(validatedClaims.RegisteredClaims.Subject)
	if err != nil {
		return 0, Member{}, ErrMemberNotFound
	}

	return workspaceID, member, nil
}
