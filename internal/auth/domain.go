package auth

import "github.com/golang-jwt/jwt/v5"

// Claims are the bearer token claims issued by the console login service.
type Claims struct {
	BranchID    string   `json:"branch_id"`
	Permissions []string `json:"perms"`
	jwt.RegisteredClaims
}
