package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// JWT с кодом магазина для API-запросов

type Claims struct {
	jwt.RegisteredClaims
	StoreCode string `json:"store_code"`
}

const tokenExp = 24 * time.Hour

var ErrInvalidToken = errors.New("invalid token")

func BuildString(storeCode string, secret string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(tokenExp)),
		},
		StoreCode: storeCode,
	})

	return token.SignedString([]byte(secret))
}

func GetStoreCode(tokenString string, secret string) (string, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, ErrInvalidToken
			}
			return []byte(secret), nil
		})
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", ErrInvalidToken
	}

	return claims.StoreCode, nil
}
