package models

import "github.com/golang-jwt/jwt/v5"

// TokenClaims, auth collaborator'ın verdiği bearer token'ın payload'u.
//
// Token imzası sunucu tarafında doğrulanır, client sadece kimliği okur.
// Sunucu sürümüne göre kullanıcı id'si "user_id" veya "userId" claim'inde,
// username ise "username" veya "sub" claim'inde gelebilir.
type TokenClaims struct {
	UserID            string `json:"user_id,omitempty"`
	UserIDAlt         string `json:"userId,omitempty"`
	Username          string `json:"username,omitempty"`
	ProfilePictureURL string `json:"profilePictureUrl,omitempty"`
	jwt.RegisteredClaims
}

// User, claim'lerden SessionUser üretir. Username yoksa subject kullanılır.
func (c *TokenClaims) User() SessionUser {
	u := SessionUser{
		UserID:            c.UserID,
		Username:          c.Username,
		ProfilePictureURL: c.ProfilePictureURL,
	}
	if u.UserID == "" {
		u.UserID = c.UserIDAlt
	}
	if u.Username == "" {
		u.Username = c.Subject
	}
	return u
}
