package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CustomClaims defines the structure of the data stored inside the JWT.
type CustomClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// Authenticator signs and validates session tokens. The secret comes
// from configuration so it can be rotated without a rebuild.
type Authenticator struct {
	secret   []byte
	duration time.Duration
}

func NewAuthenticator(secret string, duration time.Duration) Authenticator {
	return Authenticator{secret: []byte(secret), duration: duration}
}

// GenerateToken creates a signed JWT for a specific user.
func (a Authenticator) GenerateToken(userID string) (string, error) {
	expirationTime := time.Now().Add(a.duration)

	claims := &CustomClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "pairchat",
		},
	}

	// Create the token using the HS256 algorithm (HMAC with SHA256).
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	// Sign the token with the server's secret key.
	return token.SignedString(a.secret)
}

// ValidateToken parses and validates the signature and expiration of a JWT string.
func (a Authenticator) ValidateToken(tokenString string) (*CustomClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		return a.secret, nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*CustomClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, jwt.ErrSignatureInvalid
}
