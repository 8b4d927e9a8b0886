package websocket

import (
	"context"
	"errors"
	"testing"

	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockMemberLookup struct {
	workspaceID int32
	member      Member
	err         error
	lastAuth0ID string
}

func (m *mockMemberLookup) LookupMember(auth0ID string) (int32, Member, error) {
	m.lastAuth0ID = auth0ID
	return m.workspaceID, m.member, m.err
}

type stubTokenValidator struct {
	claims interface{}
	err    error
}

func (s *stubTokenValidator) ValidateToken(ctx context.Context, token string) (interface{}, error) {
	return s.claims, s.err
}

func TestNewAuth0JWTValidator_Success(t *testing.T) {
	v, err := NewAuth0JWTValidator("test.auth0.com", "https://api.cobrodiario.app", &mockMemberLookup{})
	assert.NoError(t, err)
	assert.NotNil(t, v)
}

func TestAuth0JWTValidator_ValidateToken(t *testing.T) {
	member := Member{UserID: uuid.New(), Role: "collector"}
	lookup := &mockMemberLookup{workspaceID: 4, member: member}
	v := &Auth0JWTValidator{
		validator: &stubTokenValidator{claims: &validator.ValidatedClaims{
			RegisteredClaims: validator.RegisteredClaims{Subject: "auth0|abc"},
		}},
		memberLookup: lookup,
	}

	workspaceID, got, err := v.ValidateToken("token")
	require.NoError(t, err)
	assert.Equal(t, int32(4), workspaceID)
	assert.Equal(t, member, got)
	assert.Equal(t, "auth0|abc", lookup.lastAuth0ID)
}

func TestAuth0JWTValidator_InvalidToken(t *testing.T) {
	v := &Auth0JWTValidator{
		validator:    &stubTokenValidator{err: errors.New("expired")},
		memberLookup: &mockMemberLookup{},
	}

	_, _, err := v.ValidateToken("token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuth0JWTValidator_UnexpectedClaims(t *testing.T) {
	v := &Auth0JWTValidator{
		validator:    &stubTokenValidator{claims: "not claims"},
		memberLookup: &mockMemberLookup{},
	}

	_, _, err := v.ValidateToken("token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuth0JWTValidator_MemberNotFound(t *testing.T) {
	v := &Auth0JWTValidator{
		validator: &stubTokenValidator{claims: &validator.ValidatedClaims{
			RegisteredClaims: validator.RegisteredClaims{Subject: "auth0|gone"},
		}},
		memberLookup: &mockMemberLookup{err: errors.New("no rows")},
	}

	_, _, err := v.ValidateToken("token")
	assert.ErrorIs(t, err, ErrMemberNotFound)
}
