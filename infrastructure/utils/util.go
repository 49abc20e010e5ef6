package utils

import (
	"crypto/rand"
	"math/big"
	"time"

	"autopost/infrastructure/logger"

	"github.com/golang-jwt/jwt"
)

const alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

func GetCurrentTime() time.Time {
	return time.Now().UTC()
}

func GenerateToken(payload map[string]interface{}, secretKey string) (string, error) {
	var claims jwt.MapClaims = payload
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(secretKey))
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while generate token")
		return "", err
	}
	return tokenString, nil
}

// RandomCode returns n characters drawn uniformly from [A-Za-z0-9].
func RandomCode(n int) string {
	out := make([]byte, n)
	max := big.NewInt(int64(len(alphanumeric)))
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			logger.GetLogger().WithField("error", err).Error("Error while reading random source")
			idx = big.NewInt(int64(time.Now().UnixNano() % int64(len(alphanumeric))))
		}
		out[i] = alphanumeric[idx.Int64()]
	}
	return string(out)
}
