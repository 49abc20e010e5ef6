package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"autopost/domain/model"
	"autopost/infrastructure/logger"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
)

const (
	KeyUserID = "user_id"
	KeyRole   = "role"
)

// Auth validates the bearer token and stores the caller identity in the gin context.
func Auth(secretKey string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		authorization := ctx.Request.Header.Get("Authorization")
		auth := strings.Split(authorization, "Bearer ")
		if authorization == "" || len(auth) != 2 || auth[1] == "" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		userClaims, token, err := getClaim(auth[1], secretKey)
		if err != nil || token == nil || !token.Valid {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": abortMessage(err)})
			return
		}
		if userClaims.Issuer == "" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token has no issuer"})
			return
		}

		role := userClaims.Role
		if role == "" {
			role = model.RoleUser
		}
		ctx.Set(KeyUserID, userClaims.Issuer)
		ctx.Set(KeyRole, role)
		ctx.Next()
	}
}

func abortMessage(err error) string {
	var ve *jwt.ValidationError
	if errors.As(err, &ve) {
		if ve.Errors&jwt.ValidationErrorMalformed != 0 {
			return "That's not even a token"
		} else if ve.Errors&(jwt.ValidationErrorExpired|jwt.ValidationErrorNotValidYet) != 0 {
			// Token is either expired or not active yet
			return "Timing is everything"
		}
		return fmt.Sprintf("Couldn't handle this token:%v", err)
	}
	return "Unauthorized"
}

func getClaim(tokenString, secretKey string) (model.UserClaims, *jwt.Token, error) {
	var userClaims model.UserClaims
	token, err := jwt.ParseWithClaims(
		tokenString,
		&userClaims,
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
			}
			return []byte(secretKey), nil
		},
	)
	if err != nil {
		logger.GetLogger().WithField("error", err).Debug("Token rejected")
	}
	return userClaims, token, err
}

// CallerFromContext returns the identity stored by Auth.
func CallerFromContext(ctx *gin.Context) (model.Caller, bool) {
	userID := ctx.GetString(KeyUserID)
	if userID == "" {
		return model.Caller{}, false
	}
	return model.Caller{UserID: userID, Role: ctx.GetString(KeyRole)}, true
}
