package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	firebaseauth "firebase.google.com/go/v4/auth"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	auth := NewJWTAuth("secret", time.Hour)
	token, err := auth.IssueToken("pm@example.com")
	require.NoError(t, err)

	identity, err := auth.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "pm@example.com", identity.Email)
}

func TestJWTRejectsBadTokens(t *testing.T) {
	auth := NewJWTAuth("secret", time.Hour)

	other, err := NewJWTAuth("other", time.Hour).IssueToken("pm@example.com")
	require.NoError(t, err)
	_, err = auth.ValidateToken(context.Background(), other)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, err := NewJWTAuth("secret", -time.Minute).IssueToken("pm@example.com")
	require.NoError(t, err)
	_, err = auth.ValidateToken(context.Background(), expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	noEmail, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "x", "exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = auth.ValidateToken(context.Background(), noEmail)
	assert.ErrorIs(t, err, ErrNoEmail)

	_, err = auth.ValidateToken(context.Background(), "garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

type fakeVerifier struct {
	token *firebaseauth.Token
	err   error
}

func (f fakeVerifier) VerifyIDToken(ctx context.Context, idToken string) (*firebaseauth.Token, error) {
	return f.token, f.err
}

func TestFirebaseAuth(t *testing.T) {
	auth := NewFirebaseAuth(fakeVerifier{token: &firebaseauth.Token{
		UID:    "uid-1",
		Claims: map[string]interface{}{"email": "dev@example.com"},
	}})
	identity, err := auth.ValidateToken(context.Background(), "id-token")
	require.NoError(t, err)
	assert.Equal(t, "uid-1", identity.UID)
	assert.Equal(t, "dev@example.com", identity.Email)

	_, err = NewFirebaseAuth(fakeVerifier{err: errors.New("expired")}).ValidateToken(context.Background(), "x")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = NewFirebaseAuth(fakeVerifier{token: &firebaseauth.Token{UID: "u"}}).ValidateToken(context.Background(), "x")
	assert.ErrorIs(t, err, ErrNoEmail)
}

func TestNewSelectsMode(t *testing.T) {
	ctx := context.Background()

	a, err := New(ctx, "", "", nil)
	require.NoError(t, err)
	assert.Equal(t, ModeNone, a.Mode())

	a, err = New(ctx, ModeJWT, "secret", nil)
	require.NoError(t, err)
	assert.Equal(t, ModeJWT, a.Mode())

	_, err = New(ctx, ModeJWT, "", nil)
	assert.Error(t, err)
	_, err = New(ctx, ModeFirebase, "", nil)
	assert.Error(t, err)
	_, err = New(ctx, "oauth", "", nil)
	assert.Error(t, err)
}
