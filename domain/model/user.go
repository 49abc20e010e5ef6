package model

import (
	"time"

	"github.com/golang-jwt/jwt"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID        string    `json:"id"        bson:"-"`
	Name      string    `json:"name"      bson:"name"`
	Email     string    `json:"email"     bson:"email"`
	Role      string    `json:"role"      bson:"role"`
	Balance   int       `json:"balance"   bson:"balance"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// UserClaims carries the caller identity; Issuer holds the user id.
type UserClaims struct {
	UserName string `json:"userName"`
	Role     string `json:"role"`
	jwt.StandardClaims
}

// Caller is the authenticated identity a request acts as.
type Caller struct {
	UserID string
	Role   string
}

func (c Caller) IsAdmin() bool { return c.Role == RoleAdmin }
