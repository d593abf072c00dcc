package backend

import (
	"fmt"
	"time"

	"crypto-desk/src/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// -----------------------------------------------------------------------------

// parseAccessToken decodes the identity claims of a backend access token.
// The signature is NOT verified here: the signing secret belongs to the
// service, which validates the token on every request. Local decoding is only
// used for display identity and expiry bookkeeping.
func parseAccessToken(accessToken string) (*models.MUser, time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil {
		return nil, time.Time{}, err
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, time.Time{}, fmt.Errorf("token has no subject claim")
	}

	userID, err := uuid.Parse(sub)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("token subject is not a user id: %w", err)
	}

	email, _ := claims["email"].(string)

	var expiresAt time.Time
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		expiresAt = exp.Time
	}

	return &models.MUser{ID: userID, Email: email}, expiresAt, nil
}
