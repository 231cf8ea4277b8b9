package model

import "github.com/golang-jwt/jwt/v5"

// IdentityClaims are the JWT claims the identity provider issues; Subject is the user id.
type IdentityClaims struct {
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
	jwt.RegisteredClaims
}

// GuestRequest is the request body for minting a development guest identity
type GuestRequest struct {
	DisplayName string `json:"displayName" validate:"required,min=1,max=32"`
	AvatarURL   string `json:"avatarUrl,omitempty" validate:"omitempty,url"`
}

// GuestResponse is returned after a guest identity is issued
type GuestResponse struct {
	Token string   `json:"token"`
	User  Identity `json:"user"`
}
