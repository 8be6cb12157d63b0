package auth

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"rifa/internal/platform/middleware"
	pkgerrors "rifa/pkg/domain-errors"
)

// UserStore persists user accounts.
type UserStore interface {
	Insert(ctx context.Context, u User) error
	GetByUsername(ctx context.Context, username string) (User, error)
	GetByID(ctx context.Context, id uuid.UUID) (User, error)
}

// RevocationList tracks tokens invalidated before their natural expiry.
type RevocationList interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// Claims is the JWT payload. Subject carries the user id.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Service issues and validates bearer tokens.
type Service struct {
	users       UserStore
	revocations RevocationList
	signingKey  []byte
	tokenTTL    time.Duration
}

func NewService(users UserStore, revocations RevocationList, signingKey []byte, tokenTTL time.Duration) *Service {
	return &Service{
		users:       users,
		revocations: revocations,
		signingKey:  signingKey,
		tokenTTL:    tokenTTL,
	}
}

// CreateUser registers an account with a bcrypt-hashed password.
func (s *Service) CreateUser(ctx context.Context, username, password string) (User, error) {
	if username == "" || password == "" {
		return User{}, pkgerrors.New(pkgerrors.CodeBadRequest, "username and password are required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "hash password")
	}
	u := User{
		ID:             uuid.New(),
		Username:       username,
		HashedPassword: string(hash),
		Active:         true,
	}
	if err := s.users.Insert(ctx, u); err != nil {
		return User{}, err
	}
	return u, nil
}

// Login verifies credentials and returns a signed bearer token. All
// credential failures collapse to one unauthorized message.
func (s *Service) Login(ctx context.Context, username, password string) (TokenResponse, error) {
	invalid := pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid username or password")

	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if pkgerrors.Is(err, pkgerrors.CodeNotFound) {
			return TokenResponse{}, invalid
		}
		return TokenResponse{}, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "load user")
	}
	if !u.Active {
		return TokenResponse{}, invalid
	}
	if bcrypt.CompareHashAndPassword([]byte(u.HashedPassword), []byte(password)) != nil {
		return TokenResponse{}, invalid
	}

	now := time.Now()
	claims := Claims{
		Username: u.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID.String(),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
	if err != nil {
		return TokenResponse{}, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "sign token")
	}
	return TokenResponse{AccessToken: signed, TokenType: "bearer"}, nil
}

// Logout revokes the token for whatever lifetime it has left.
func (s *Service) Logout(ctx context.Context, token string) error {
	claims, err := s.parse(token)
	if err != nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid token")
	}
	remaining := time.Until(claims.ExpiresAt.Time)
	if remaining <= 0 {
		return nil
	}
	if err := s.revocations.Revoke(ctx, claims.ID, remaining); err != nil {
		return pkgerrors.Wrap(err, pkgerrors.CodeInternal, "revoke token")
	}
	return nil
}

// ValidateToken implements the middleware validator: signature, expiry and
// revocation all have to pass.
func (s *Service) ValidateToken(token string) (*middleware.JWTClaims, error) {
	claims, err := s.parse(token)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid token")
	}
	revoked, err := s.revocations.IsRevoked(context.Background(), claims.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "check revocation")
	}
	if revoked {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "token revoked")
	}
	return &middleware.JWTClaims{
		UserID:   claims.Subject,
		Username: claims.Username,
		JTI:      claims.ID,
	}, nil
}

// Username resolves a user id to its display name. It serves the ticket
// module's responsible field.
func (s *Service) Username(ctx context.Context, id uuid.UUID) (string, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	return u.Username, nil
}

func (s *Service) parse(token string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(*jwt.Token) (any, error) {
		return s.signingKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}
