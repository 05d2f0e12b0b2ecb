package middleware

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/keylia/api/pkg/response"
)

// UserClaims are the JWT claims carried by API tokens.
type UserClaims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Role   string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// AuthMiddleware validates bearer tokens signed with the shared HMAC secret.
type AuthMiddleware struct {
	jwtSecret       string
	expirationHours int
}

func NewAuthMiddleware(jwtSecret string, expirationHours int) *AuthMiddleware {
	return &AuthMiddleware{jwtSecret: jwtSecret, expirationHours: expirationHours}
}

// Authenticate validates the JWT from the Authorization header and stores
// the claims on the request context.
func (m *AuthMiddleware) Authenticate() fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return response.Unauthorized(c, "Missing authorization header")
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			return response.Unauthorized(c, "Invalid authorization header format")
		}

		claims, err := m.validateToken(parts[1])
		if err != nil {
			return response.Unauthorized(c, "Invalid or expired token")
		}

		c.Locals("userId", claims.UserID)
		c.Locals("email", claims.Email)
		c.Locals("role", claims.Role)
		c.Locals("claims", claims)
		return c.Next()
	}
}

// RequireAdmin gates operator endpoints on the admin role. Must run after
// Authenticate.
func (m *AuthMiddleware) RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if role, _ := c.Locals("role").(string); role != "admin" {
			return response.Forbidden(c, "Admin access required")
		}
		return c.Next()
	}
}

func (m *AuthMiddleware) validateToken(tokenString string) (*UserClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &UserClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(m.jwtSecret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*UserClaims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

// GetUserID extracts the authenticated user id from the request context.
func GetUserID(c *fiber.Ctx) string {
	if userID, ok := c.Locals("userId").(string); ok {
		return userID
	}
	return ""
}

// GenerateToken creates a signed token, useful in tests and local tooling.
func (m *AuthMiddleware) GenerateToken(userID, email, role string) (string, error) {
	if m.jwtSecret == "" {
		return "", jwt.ErrTokenNotValidYet
	}

	now := time.Now()
	claims := UserClaims{
		UserID: userID,
		Email:  email,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "keylia-api",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(m.expirationHours) * time.Hour)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(m.jwtSecret))
}
