package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrExpiredToken  = errors.New("token has expired")
	ErrInvalidClaims = errors.New("invalid token claims")
)

// TokenTypeAccess is the only token type the API accepts
const TokenTypeAccess = "access"

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret string
	Expiry time.Duration
	Issuer string
	// Leeway tolerates clock skew between the issuer and this service
	Leeway time.Duration
}

// StudentClaims is the token payload. Tokens are issued by the account
// service; this service only verifies them and reads the student id.
type StudentClaims struct {
	StudentID uint   `json:"user_id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// JWTManager verifies (and for local tooling, signs) HS256 tokens
type JWTManager struct {
	config JWTConfig
	parser *jwt.Parser
}

// NewJWTManager creates a new JWT manager
func NewJWTManager(config JWTConfig) *JWTManager {
	if config.Expiry <= 0 {
		config.Expiry = 24 * time.Hour
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(config.Leeway),
	}
	if config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(config.Issuer))
	}

	return &JWTManager{
		config: config,
		parser: jwt.NewParser(opts...),
	}
}

// GenerateAccessToken signs an access token for a student. It returns the
// token and its id. Used by tests and local tooling.
func (j *JWTManager) GenerateAccessToken(studentID uint, email string, role string) (string, string, error) {
	now := time.Now()
	jti := uuid.NewString()

	claims := StudentClaims{
		StudentID: studentID,
		Email:     email,
		Role:      role,
		TokenType: TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			ExpiresAt: jwt.NewNumericDate(now.Add(j.config.Expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    j.config.Issuer,
			Subject:   email,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(j.config.Secret))
	return signed, jti, err
}

// ValidateToken checks signature, expiry and issuer and returns the claims
// of an access token that names a student.
func (j *JWTManager) ValidateToken(tokenString string) (*StudentClaims, error) {
	claims := &StudentClaims{}
	_, err := j.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(j.config.Secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	if claims.StudentID == 0 || claims.TokenType != TokenTypeAccess {
		return nil, ErrInvalidClaims
	}
	return claims, nil
}
