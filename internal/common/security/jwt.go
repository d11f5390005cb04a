package security

import (
	"errors"
	"time"

	"taskini/internal/platform/config"

	"github.com/go-chi/jwtauth/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var TokenAuth *jwtauth.JWTAuth

func InitJWT() {
	TokenAuth = jwtauth.New("HS256", config.AppConfig.JWTKey, nil)
}

func GenerateToken(userID, role string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id": userID,
		"role":    role,
		"jti":     uuid.NewString(),
		"exp":     now.Add(config.AppConfig.JWTExp).Unix(),
		"iat":     now.Unix(),
	}
	_, tokenString, err := TokenAuth.Encode(claims)
	return tokenString, err
}

// Helper functions to extract claims, can be used in middleware or services
func GetUserIDFromClaims(claims jwt.MapClaims) (string, error) {
	id, ok := claims["user_id"].(string)
	if !ok || id == "" {
		return "", errors.New("user_id claim is missing or not a string")
	}
	return id, nil
}

func GetUserRoleFromClaims(claims jwt.MapClaims) (string, error) {
	role, ok := claims["role"].(string)
	if !ok {
		return "", errors.New("role claim is missing or not a string")
	}
	return role, nil
}

func GetTokenIDFromClaims(claims jwt.MapClaims) (string, error) {
	id, ok := claims["jti"].(string)
	if !ok || id == "" {
		return "", errors.New("jti claim is missing or not a string")
	}
	return id, nil
}

// GetExpiryFromClaims accepts both the decoded form (time.Time) and the raw
// numeric form of the exp claim.
func GetExpiryFromClaims(claims jwt.MapClaims) (time.Time, error) {
	switch exp := claims["exp"].(type) {
	case time.Time:
		return exp, nil
	case float64:
		return time.Unix(int64(exp), 0), nil
	case int64:
		return time.Unix(exp, 0), nil
	default:
		return time.Time{}, errors.New("exp claim is missing or malformed")
	}
}
