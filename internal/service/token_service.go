package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/campus-monitor-api/internal/models"
	appErrors "github.com/noah-isme/campus-monitor-api/pkg/errors"
)

// TokenConfig holds the shared secret agreed with the session layer.
type TokenConfig struct {
	Secret string
	Issuer string
	Expiry time.Duration
}

// TokenService validates the HS256 bearer tokens issued by the external
// session layer and can mint equivalent tokens for local development.
type TokenService struct {
	config TokenConfig
	now    func() time.Time
}

// NewTokenService constructs the service.
func NewTokenService(cfg TokenConfig) *TokenService {
	if cfg.Expiry <= 0 {
		cfg.Expiry = 24 * time.Hour
	}
	return &TokenService{config: cfg, now: func() time.Time { return time.Now().UTC() }}
}

// ValidateToken parses and validates an access token returning the claims.
// The role claim is normalised so "Admin" and "ADMIN" are equivalent.
func (s *TokenService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	opts := []jwt.ParserOption{jwt.WithTimeFunc(s.now)}
	if s.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.config.Issuer))
	}
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.Secret), nil
	}, opts...)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	if strings.TrimSpace(claims.Email) == "" && strings.TrimSpace(claims.UserID) == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "token carries no identity")
	}
	claims.Role = models.ParseRole(string(claims.Role))
	return claims, nil
}

// Issue signs a token for the given identity.
func (s *TokenService) Issue(email, fullName string, role models.UserRole) (string, time.Time, error) {
	issuedAt := s.now()
	expiresAt := issuedAt.Add(s.config.Expiry)
	normalized := models.NormalizeUserID(email)
	claims := &models.JWTClaims{
		UserID:   normalized,
		Role:     models.ParseRole(string(role)),
		Email:    normalized,
		FullName: fullName,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   normalized,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.Secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}
