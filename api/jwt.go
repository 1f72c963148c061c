package api

import (
	"crypto"
	"fmt"
	"strconv"

	"github.com/golang-jwt/jwt/v5"
)

// JWT 是 Auth Service 簽發的 access token 內容，
// Subject 為經過驗證的買家識別碼
type JWT struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// BuyerID 取出 token 中的買家識別碼
func (t *JWT) BuyerID() (int64, error) {
	id, err := strconv.ParseInt(t.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid subject %q: %w", t.Subject, err)
	}
	return id, nil
}

// ParseAndValidateJWT 驗證 access token 的簽章並取出內容
func ParseAndValidateJWT(tokenString string, key crypto.PublicKey) (*JWT, error) {
	const op = "ParseJWT"
	token, err := jwt.ParseWithClaims(tokenString, &JWT{}, func(token *jwt.Token) (interface{}, error) {
		return key, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("%s: token is invalid", op)
	}
	claims, ok := token.Claims.(*JWT)
	if !ok {
		return nil, fmt.Errorf("%s: token claims are invalid", op)
	}
	return claims, nil
}
