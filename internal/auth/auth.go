// Package auth registers accounts, checks credentials and issues the signed
// session tokens the mutation endpoints require.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/Clark-Hu/mywatchlist/internal/domain"
	"github.com/Clark-Hu/mywatchlist/internal/repository"
	"github.com/Clark-Hu/mywatchlist/internal/validation"
)

const (
	issuer           = "mywatchlist"
	// bcrypt rejects passwords longer than 72 bytes.
	maxPasswordBytes = 72
)

// ErrInvalidToken is returned for missing, malformed, forged or expired tokens.
var ErrInvalidToken = errors.New("invalid or expired token")

// fallbackDummyHash is used when a dummy hash cannot be generated at the
// configured cost.
var fallbackDummyHash = []byte("$2a$10$CwTycUXWue0Thq9StjUM0uJ8n4VWeNseyX2fA9DE.D7su7J6iYGTC")

type userStore interface {
	Create(ctx context.Context, params repository.UserCreateParams) (domain.User, error)
	GetByUsername(ctx context.Context, username string) (domain.User, error)
}

// Options configures token signing and password hashing.
type Options struct {
	Secret     []byte
	TokenTTL   time.Duration
	BcryptCost int
}

// Service handles registration, login and token verification.
type Service struct {
	users  userStore
	secret []byte
	ttl    time.Duration
	cost   int
	now    func() time.Time

	// dummyHash is compared against when the username is unknown so both
	// failure paths cost one bcrypt comparison at the same cost.
	dummyHash []byte
}

// New builds a Service. A zero BcryptCost means bcrypt.DefaultCost.
func New(users userStore, opts Options) *Service {
	cost := opts.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), cost)
	if err != nil {
		dummy = fallbackDummyHash
	}
	return &Service{
		users:     users,
		secret:    opts.Secret,
		ttl:       opts.TokenTTL,
		cost:      cost,
		now:       time.Now,
		dummyHash: dummy,
	}
}

// RegisterInput is the payload of a new account.
type RegisterInput struct {
	Username string `json:"username" validate:"nonblank,min=3,max=50"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"min=8,max=72"`
}

// Session is the result of a successful login.
type Session struct {
	Token     string
	ExpiresAt time.Time
	User      domain.User
}

// Claims are the JWT claims of a session token.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Register creates an account with a bcrypt hash of the password. A taken
// username or email yields domain.ErrConflict.
func (s *Service) Register(ctx context.Context, in RegisterInput) (domain.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validation.Struct(&in); err != nil {
		return domain.User{}, err
	}
	if len(in.Password) > maxPasswordBytes {
		return domain.User{}, &validation.Error{Fields: []validation.FieldError{{
			Field:   "password",
			Tag:     "max",
			Message: fmt.Sprintf("password must be at most %d bytes", maxPasswordBytes),
		}}}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.Create(ctx, repository.UserCreateParams{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: string(hash),
	})
	if err != nil {
		return domain.User{}, fmt.Errorf("register %q: %w", in.Username, err)
	}
	return user, nil
}

// Authenticate checks the credentials and issues a session token.
func (s *Service) Authenticate(ctx context.Context, username, password string) (Session, error) {
	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
			return Session{}, domain.ErrInvalidCredentials
		}
		return Session{}, fmt.Errorf("lookup user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return Session{}, domain.ErrInvalidCredentials
	}

	token, expiresAt, err := s.issue(user)
	if err != nil {
		return Session{}, fmt.Errorf("issue token: %w", err)
	}
	return Session{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

func (s *Service) issue(user domain.User) (string, time.Time, error) {
	now := s.now().UTC()
	expiresAt := now.Add(s.ttl)
	claims := Claims{
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   strconv.FormatInt(user.ID, 10),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ParseToken verifies a session token and returns the user id it carries.
func (s *Service) ParseToken(token string) (int64, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		return 0, ErrInvalidToken
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return 0, ErrInvalidToken
	}
	return userID, nil
}
