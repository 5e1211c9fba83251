package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/posledger-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID uuid.UUID
	Name   string
	Role   enums.ActorRole
	// TerminalID names the register the session was opened on, if any.
	TerminalID string
	JTI        string
}

// AccessTokenClaims represents the typed JWT issued to terminal operators.
type AccessTokenClaims struct {
	UserID uuid.UUID       `json:"user_id"`
	Name   string          `json:"name,omitempty"`
	Role   enums.ActorRole `json:"role"`
	// TerminalID is optional; back-office sessions have none.
	TerminalID string `json:"terminal_id,omitempty"`
	jwt.RegisteredClaims
}

// Actor is the authenticated identity every core operation runs on behalf of.
type Actor struct {
	ID         string
	Name       string
	Role       enums.ActorRole
	TerminalID string
}

// ActorFromClaims maps validated token claims to an Actor.
func ActorFromClaims(claims *AccessTokenClaims) Actor {
	if claims == nil {
		return Actor{}
	}
	return Actor{
		ID:         claims.UserID.String(),
		Name:       claims.Name,
		Role:       claims.Role,
		TerminalID: claims.TerminalID,
	}
}

// IsPrivileged reports whether the actor may adjust wallets and decide refunds.
func (a Actor) IsPrivileged() bool {
	return a.Role.IsPrivileged()
}

// Valid reports whether the actor carries an identity and a known role.
func (a Actor) Valid() bool {
	return a.ID != "" && a.Role.IsValid()
}
