package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	AccountID uuid.UUID
	JTI       string
}

// AccessTokenClaims represents the typed JWT issued to marketplace clients.
// The engine only needs the account identity; marketplace-side authorization
// happens upstream.
type AccessTokenClaims struct {
	AccountID uuid.UUID `json:"account_id"`
	jwt.RegisteredClaims
}
