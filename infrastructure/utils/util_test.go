package utils

import (
	"regexp"
	"testing"

	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomCode(t *testing.T) {
	re := regexp.MustCompile(`^[A-Za-z0-9]{6}$`)
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		code := RandomCode(6)
		assert.Regexp(t, re, code)
		seen[code] = true
	}
	assert.Greater(t, len(seen), 1)
}

func TestGenerateToken(t *testing.T) {
	token, err := GenerateToken(map[string]interface{}{"iss": "user-1", "role": "admin"}, "secret")
	require.NoError(t, err)

	claims := jwt.MapClaims{}
	_, err = jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) { return []byte("secret"), nil })
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims["iss"])
	assert.Equal(t, "admin", claims["role"])
}
