// Package service holds the business logic that sits between the HTTP
// handlers and the config store: authentication, privilege resolution,
// assessment scoring, policy generation and document export.
package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/phdlabs/admind/internal/authz"
	"github.com/phdlabs/admind/internal/config"
	"github.com/phdlabs/admind/internal/model"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenRevoked       = errors.New("token revoked")
	ErrAccountDisabled    = errors.New("account disabled")
)

// Default token lifetimes.
const (
	DefaultAccessTTL  = 15 * time.Minute
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

type JWTPrincipal struct {
	AdminID int64
	Email   string
}

type AuthService struct {
	store      *config.Store
	jwtSecret  []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	privileges *PrivilegeCache
}

func NewAuthService(store *config.Store, jwtSecret string) *AuthService {
	return &AuthService{
		store:      store,
		jwtSecret:  []byte(jwtSecret),
		accessTTL:  DefaultAccessTTL,
		refreshTTL: DefaultRefreshTTL,
		privileges: NewPrivilegeCache(store, nil, 0),
	}
}

// SetTokenTTL overrides the access and refresh token lifetimes. Zero values
// keep the current setting.
func (s *AuthService) SetTokenTTL(access, refresh time.Duration) {
	if access > 0 {
		s.accessTTL = access
	}
	if refresh > 0 {
		s.refreshTTL = refresh
	}
}

// SetPrivilegeCache replaces the privilege cache, e.g. with a Redis backed one.
func (s *AuthService) SetPrivilegeCache(c *PrivilegeCache) {
	s.privileges = c
}

// PrivilegeCache returns the cache used to resolve privilege matrices.
func (s *AuthService) PrivilegeCache() *PrivilegeCache {
	return s.privileges
}

// AccessTTL returns the lifetime of issued access tokens.
func (s *AuthService) AccessTTL() time.Duration {
	return s.accessTTL
}

// RefreshTTL returns the lifetime of issued refresh tokens.
func (s *AuthService) RefreshTTL() time.Duration {
	return s.refreshTTL
}

// ---------------------------------------------------------------------------
// Sign in, refresh, sign out
// ---------------------------------------------------------------------------

// Login verifies the email and password of an admin and issues a token pair.
// Failed attempts are written to the activity log.
func (s *AuthService) Login(ctx context.Context, email, password string) (*model.LoginResult, error) {
	email = strings.TrimSpace(email)

	admin, err := s.store.GetAdminByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, config.ErrNotFound) {
			s.recordFailedLogin(ctx, 0, email)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup admin: %w", err)
	}

	if !CheckPassword(admin.PasswordHash, password) {
		s.recordFailedLogin(ctx, admin.ID, email)
		return nil, ErrInvalidCredentials
	}
	if !admin.IsActive {
		s.recordFailedLogin(ctx, admin.ID, email)
		return nil, ErrAccountDisabled
	}

	if err := s.store.UpdateAdminLastLogin(ctx, admin.ID); err != nil {
		slog.Warn("failed to update last login", "admin_id", admin.ID, "error", err)
	}

	return s.issue(ctx, admin)
}

// Refresh exchanges a refresh token for a new token pair. The presented token
// is revoked. Presenting a revoked token revokes every token of the admin.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*model.LoginResult, error) {
	if refreshToken == "" {
		return nil, ErrInvalidCredentials
	}

	stored, err := s.store.GetRefreshToken(ctx, config.HashToken(refreshToken))
	if err != nil {
		if errors.Is(err, config.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup refresh token: %w", err)
	}

	if stored.RevokedAt != nil {
		if err := s.store.RevokeAdminRefreshTokens(ctx, stored.AdminID); err != nil {
			slog.Warn("failed to revoke refresh tokens", "admin_id", stored.AdminID, "error", err)
		}
		return nil, ErrTokenRevoked
	}
	if time.Now().After(stored.ExpiresAt) {
		return nil, ErrTokenExpired
	}

	admin, err := s.store.GetAdmin(ctx, stored.AdminID)
	if err != nil {
		if errors.Is(err, config.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup admin: %w", err)
	}
	if !admin.IsActive {
		return nil, ErrAccountDisabled
	}

	if err := s.store.RevokeRefreshToken(ctx, stored.ID); err != nil {
		if errors.Is(err, config.ErrNotFound) {
			// Lost a race with a concurrent refresh of the same token.
			return nil, ErrTokenRevoked
		}
		return nil, fmt.Errorf("revoke refresh token: %w", err)
	}

	return s.issue(ctx, admin)
}

// Logout revokes the refresh token. Unknown or already revoked tokens are
// ignored.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	stored, err := s.store.GetRefreshToken(ctx, config.HashToken(refreshToken))
	if err != nil {
		if errors.Is(err, config.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("lookup refresh token: %w", err)
	}
	if err := s.store.RevokeRefreshToken(ctx, stored.ID); err != nil && !errors.Is(err, config.ErrNotFound) {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

// ResolveAdmin loads the admin a token was issued to. Deleted and deactivated
// admins yield ErrAccountDisabled so outstanding access tokens stop working.
func (s *AuthService) ResolveAdmin(ctx context.Context, adminID int64) (*model.Admin, error) {
	admin, err := s.store.GetAdmin(ctx, adminID)
	if err != nil {
		if errors.Is(err, config.ErrNotFound) {
			return nil, ErrAccountDisabled
		}
		return nil, fmt.Errorf("lookup admin: %w", err)
	}
	if !admin.IsActive {
		return nil, ErrAccountDisabled
	}
	return admin, nil
}

// Privileges returns the effective privilege matrix of an admin.
func (s *AuthService) Privileges(ctx context.Context, adminID int64) (authz.Privileges, error) {
	return s.privileges.Get(ctx, adminID)
}

func (s *AuthService) issue(ctx context.Context, admin *model.Admin) (*model.LoginResult, error) {
	access, err := s.IssueJWT(ctx, admin.ID, admin.Email, s.accessTTL)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	refresh, err := generateRefreshToken()
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateRefreshToken(ctx, admin.ID, config.HashToken(refresh), time.Now().Add(s.refreshTTL)); err != nil {
		return nil, err
	}

	privs, err := s.Privileges(ctx, admin.ID)
	if err != nil {
		return nil, fmt.Errorf("load privileges: %w", err)
	}

	return &model.LoginResult{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int(s.accessTTL.Seconds()),
		Admin:        admin,
		Privileges:   privs,
	}, nil
}

func (s *AuthService) recordFailedLogin(ctx context.Context, adminID int64, email string) {
	err := s.store.CreateUserLog(ctx, adminID, model.ActionPost, config.TableAuth, "Failed login for "+email)
	if err != nil {
		slog.Warn("failed to record failed login", "email", email, "error", err)
	}
}

// ---------------------------------------------------------------------------
// JWT
// ---------------------------------------------------------------------------

// ValidateJWT verifies a JWT bearer token and returns the associated admin identity.
func (s *AuthService) ValidateJWT(ctx context.Context, tokenStr string) (*JWTPrincipal, error) {
	claims := &jwtClaims{}

	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidCredentials
	}

	if !token.Valid {
		return nil, ErrInvalidCredentials
	}

	return &JWTPrincipal{
		AdminID: claims.AdminID,
		Email:   claims.Email,
	}, nil
}

// IssueJWT creates a new signed JWT token for the given admin.
func (s *AuthService) IssueJWT(ctx context.Context, adminID int64, email string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwtClaims{
		AdminID: adminID,
		Email:   email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    "admind",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

type jwtClaims struct {
	AdminID int64  `json:"admin_id"`
	Email   string `json:"email"`
	jwt.RegisteredClaims
}

// ---------------------------------------------------------------------------
// Passwords
// ---------------------------------------------------------------------------

// HashPassword returns the bcrypt hash of a password.
func HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

// CheckPassword reports whether password matches the bcrypt hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func generateRefreshToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
