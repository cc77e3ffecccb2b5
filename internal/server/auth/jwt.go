// Package auth mints and verifies the bearer tokens of the API.
package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/manokeeper/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Identity is who a request acts as.
type Identity struct {
	UserID                 string
	OrganisationID         string
	Role                   string
	HealthcareProfessional bool
}

// Claims are the registered claims plus the caller's identity.
type Claims struct {
	jwt.RegisteredClaims
	UserID                 string `json:"userId"`
	OrganisationID         string `json:"organisation"`
	Role                   string `json:"role"`
	HealthcareProfessional bool   `json:"healthcareProfessional,omitempty"`
}

func GenerateToken(id Identity, secretKey []byte, validityDuration time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validityDuration)),
		},
		UserID:                 id.UserID,
		OrganisationID:         id.OrganisationID,
		Role:                   id.Role,
		HealthcareProfessional: id.HealthcareProfessional,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ParseToken verifies tokenString and returns the identity it carries.
// Expired tokens yield common.ErrTokenExpired, anything else that does not
// verify yields common.ErrInvalidToken.
func ParseToken(tokenString string, secretKey []byte) (*Identity, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}

	if !token.Valid || claims.UserID == "" || claims.OrganisationID == "" {
		return nil, common.ErrInvalidToken
	}

	return &Identity{
		UserID:                 claims.UserID,
		OrganisationID:         claims.OrganisationID,
		Role:                   claims.Role,
		HealthcareProfessional: claims.HealthcareProfessional,
	}, nil
}
