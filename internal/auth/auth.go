package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/kamala96/email-service/internal/models"
)

var ErrInvalidToken = errors.New("invalid token")

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// TokenPair is what a client receives from the token endpoint. The refresh
// token is non-rotating: refreshing mints a new access token only.
type TokenPair struct {
	Access     string
	Refresh    string
	AccessInfo map[string]any
}

// Claims carried by a validated token.
type Claims struct {
	IdentityPublicID uuid.UUID
	IdentityName     string
	TokenType        string
}

// Service issues and validates HS256 JWTs scoped to client identities.
type Service struct {
	signingKey []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewService(signingKey string, accessTTL, refreshTTL time.Duration) *Service {
	return &Service{
		signingKey: []byte(signingKey),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// IssueTokenPair creates an access and a refresh token for the identity.
// Both carry the identity's stable public ID as subject.
func (s *Service) IssueTokenPair(identity *models.Identity) (*TokenPair, error) {
	now := time.Now()

	access, accessClaims, err := s.sign(identity, tokenTypeAccess, now, s.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, _, err := s.sign(identity, tokenTypeRefresh, now, s.refreshTTL)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		Access:     access,
		Refresh:    refresh,
		AccessInfo: accessClaims,
	}, nil
}

// RefreshAccess validates a refresh token and mints a fresh access token for
// the same identity. The refresh token itself stays valid until it expires.
func (s *Service) RefreshAccess(refreshToken string, identity *models.Identity) (string, map[string]any, error) {
	claims, err := s.validate(refreshToken, tokenTypeRefresh)
	if err != nil {
		return "", nil, err
	}
	if claims.IdentityPublicID != identity.PublicID {
		return "", nil, ErrInvalidToken
	}
	return s.sign(identity, tokenTypeAccess, time.Now(), s.accessTTL)
}

// ValidateAccess checks an access token and returns its claims.
func (s *Service) ValidateAccess(token string) (*Claims, error) {
	return s.validate(token, tokenTypeAccess)
}

// ValidateRefresh checks a refresh token and returns its claims.
func (s *Service) ValidateRefresh(token string) (*Claims, error) {
	return s.validate(token, tokenTypeRefresh)
}

func (s *Service) sign(identity *models.Identity, tokenType string, now time.Time, ttl time.Duration) (string, map[string]any, error) {
	claims := jwt.MapClaims{
		"sub":  identity.PublicID.String(),
		"name": identity.Name,
		"typ":  tokenType,
		"iat":  now.Unix(),
		"exp":  now.Add(ttl).Unix(),
		"jti":  uuid.NewString(),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign %s token: %w", tokenType, err)
	}
	return token, map[string]any(claims), nil
}

func (s *Service) validate(tokenStr, wantType string) (*Claims, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (any, error) {
		return s.signingKey, nil
	}, jwt.WithLeeway(30*time.Second), jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	typ, _ := mapClaims["typ"].(string)
	if typ != wantType {
		return nil, ErrInvalidToken
	}

	sub, _ := mapClaims["sub"].(string)
	publicID, err := uuid.Parse(sub)
	if err != nil {
		return nil, ErrInvalidToken
	}
	name, _ := mapClaims["name"].(string)

	return &Claims{
		IdentityPublicID: publicID,
		IdentityName:     name,
		TokenType:        typ,
	}, nil
}
