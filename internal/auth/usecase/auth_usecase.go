package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	authdomain "pmchat-backend/internal/auth/domain"

	firebase "firebase.google.com/go/v4"
	firebaseauth "firebase.google.com/go/v4/auth"
	"github.com/golang-jwt/jwt/v5"
)

const (
	ModeNone     = "none"
	ModeFirebase = "firebase"
	ModeJWT      = "jwt"
)

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrNoEmail      = errors.New("token carries no email")
)

// AuthUsecase verifies bearer tokens
type AuthUsecase interface {
	Mode() string
	ValidateToken(ctx context.Context, token string) (*authdomain.Identity, error)
}

// IDTokenVerifier is the part of the Firebase auth client used here
type IDTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*firebaseauth.Token, error)
}

// New picks the verifier for mode
func New(ctx context.Context, mode, jwtSecret string, app *firebase.App) (AuthUsecase, error) {
	switch mode {
	case "", ModeNone:
		log.Println("[Auth] Authentication disabled")
		return noAuth{}, nil
	case ModeJWT:
		if jwtSecret == "" {
			return nil, fmt.Errorf("JWT_SECRET is required for AUTH_MODE=jwt")
		}
		return NewJWTAuth(jwtSecret, 24*time.Hour), nil
	case ModeFirebase:
		if app == nil {
			return nil, fmt.Errorf("firebase app is required for AUTH_MODE=firebase")
		}
		client, err := app.Auth(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get firebase auth client: %w", err)
		}
		return NewFirebaseAuth(client), nil
	default:
		return nil, fmt.Errorf("unknown AUTH_MODE %q", mode)
	}
}

type noAuth struct{}

func (noAuth) Mode() string { return ModeNone }

func (noAuth) ValidateToken(ctx context.Context, token string) (*authdomain.Identity, error) {
	return &authdomain.Identity{}, nil
}

// FirebaseAuth verifies Firebase ID tokens
type FirebaseAuth struct {
	verifier IDTokenVerifier
}

func NewFirebaseAuth(verifier IDTokenVerifier) *FirebaseAuth {
	return &FirebaseAuth{verifier: verifier}
}

func (f *FirebaseAuth) Mode() string { return ModeFirebase }

func (f *FirebaseAuth) ValidateToken(ctx context.Context, token string) (*authdomain.Identity, error) {
	verified, err := f.verifier.VerifyIDToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	email, _ := verified.Claims["email"].(string)
	if email == "" {
		return nil, ErrNoEmail
	}
	return &authdomain.Identity{UID: verified.UID, Email: email}, nil
}

// JWTAuth issues and verifies HS256 tokens signed with a shared secret
type JWTAuth struct {
	secret []byte
	expiry time.Duration
}

func NewJWTAuth(secret string, expiry time.Duration) *JWTAuth {
	return &JWTAuth{secret: []byte(secret), expiry: expiry}
}

func (j *JWTAuth) Mode() string { return ModeJWT }

// IssueToken signs a token for email
func (j *JWTAuth) IssueToken(email string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   email,
		"email": email,
		"exp":   now.Add(j.expiry).Unix(),
		"iat":   now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.secret)
}

func (j *JWTAuth) ValidateToken(ctx context.Context, tokenString string) (*authdomain.Identity, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return j.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	email, _ := claims["email"].(string)
	if email == "" {
		return nil, ErrNoEmail
	}
	sub, _ := claims["sub"].(string)
	return &authdomain.Identity{UID: sub, Email: email}, nil
}
