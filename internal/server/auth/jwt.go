package auth

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/securecloud/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims carries the registered claims plus the owning user. The session id
// travels in the standard "jti" claim (RegisteredClaims.ID).
type Claims struct {
	jwt.RegisteredClaims
	UserID string
}

// GenerateToken signs an HS256 token for the given session.
func GenerateToken(userID, sessionID string, secretKey []byte, expiresAt time.Time) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sessionID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UserID: userID,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ParseToken verifies the signature and expiry of tokenString and returns
// its claims. Only HS256 is accepted.
func ParseToken(tokenString string, secretKey []byte, opts ...jwt.ParserOption) (*Claims, error) {
	claims := &Claims{}

	opts = append(opts, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return secretKey, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidToken, err)
	}

	if !token.Valid || claims.UserID == "" || claims.ID == "" {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}
