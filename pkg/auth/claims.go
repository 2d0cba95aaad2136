package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/prestalink/prestalink-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID uuid.UUID
	Role   enums.ActorRole
	JTI    string
}

// AccessTokenClaims represents the typed JWT issued by the identity service.
type AccessTokenClaims struct {
	UserID uuid.UUID       `json:"user_id"`
	Role   enums.ActorRole `json:"role"`
	jwt.RegisteredClaims
}
