package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
)

var (
	ErrInvalidToken    = errors.New("invalid token")
	ErrInvalidAdminKey = errors.New("invalid admin key")
)

const DefaultAdminId = "admin"

type Config struct {
	Secret   string
	AdminKey string
	TokenTTL time.Duration
	Clock    clockwork.Clock
}

// service stands in for the external admin login: it trades the shared admin
// key for a signed token that later marks a connection as admin.
type service struct {
	secret   []byte
	adminKey string
	tokenTTL time.Duration
	clock    clockwork.Clock
}

func NewService(cfg *Config) *service {
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &service{
		secret:   []byte(cfg.Secret),
		adminKey: cfg.AdminKey,
		tokenTTL: cfg.TokenTTL,
		clock:    clock,
	}
}

type Claims struct {
	AdminId string `json:"admin_id"`
	jwt.RegisteredClaims
}

type IssueAdminTokenParams struct {
	AdminKey string
	AdminId  string
}

type IssueAdminTokenResponse struct {
	Token     string
	AdminId   string
	ExpiresAt *time.Time
}

func (s service) IssueAdminToken(params *IssueAdminTokenParams) (IssueAdminTokenResponse, error) {
	if s.adminKey == "" || subtle.ConstantTimeCompare([]byte(params.AdminKey), []byte(s.adminKey)) != 1 {
		return IssueAdminTokenResponse{}, ErrInvalidAdminKey
	}

	adminId := params.AdminId
	if adminId == "" {
		adminId = DefaultAdminId
	}

	now := s.clock.Now()
	claims := Claims{
		AdminId: adminId,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(now),
		},
	}

	var expiresAt *time.Time
	if s.tokenTTL > 0 {
		exp := now.Add(s.tokenTTL)
		expiresAt = &exp
		claims.ExpiresAt = jwt.NewNumericDate(exp)
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return IssueAdminTokenResponse{}, fmt.Errorf("failed to sign token: %w", err)
	}

	return IssueAdminTokenResponse{
		Token:     token,
		AdminId:   adminId,
		ExpiresAt: expiresAt,
	}, nil
}

// ParseAdminToken returns the admin id carried by a token issued by
// IssueAdminToken.
func (s service) ParseAdminToken(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.clock.Now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.AdminId == "" {
		return "", ErrInvalidToken
	}

	return claims.AdminId, nil
}
