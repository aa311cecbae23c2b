package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

const (
	RoleAdmin = "admin"

	// AuthModeJWT verifies HS256 bearer tokens.
	AuthModeJWT = "jwt"
	// AuthModeGateway trusts X-User-ID and X-User-Role set by a gateway that
	// already authenticated the caller and strips those headers from clients.
	AuthModeGateway = "gateway"

	userIDKey = "userID"
	rolesKey  = "roles"
)

// Claims is the payload of tokens issued by the identity provider.
type Claims struct {
	UserID int      `json:"user_id"`
	Role   []string `json:"role"`
	jwt.RegisteredClaims
}

func abort(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{"Status": "Fail", "Message": message, "Code": code})
}

// Authenticate resolves the caller. In gateway mode it trusts the identity
// headers; in every other mode it verifies an HS256 bearer token signed with
// secret. An empty secret rejects every request.
func Authenticate(mode, secret string, log *logrus.Logger) gin.HandlerFunc {
	if mode == AuthModeGateway {
		return headerAuth(log)
	}
	key := []byte(secret)

	return func(c *gin.Context) {
		if len(key) == 0 {
			log.Error("Middleware: JWT secret is not configured, rejecting request")
			abort(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication is not configured")
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			log.Warn("Middleware: Authorization header is missing")
			abort(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authorization header required")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
			log.Warn("Middleware: Invalid Authorization header format")
			abort(c, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid Authorization header format")
			return
		}

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (any, error) {
			return key, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !token.Valid || claims.UserID <= 0 {
			log.Warnf("Middleware: Rejected bearer token: %v", err)
			abort(c, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid token")
			return
		}

		c.Set(userIDKey, claims.UserID)
		c.Set(rolesKey, claims.Role)
		c.Next()
	}
}

func headerAuth(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userIDStr := c.GetHeader("X-User-ID")
		if userIDStr == "" {
			log.Warn("Middleware: X-User-ID header is missing")
			abort(c, http.StatusUnauthorized, "UNAUTHORIZED", "User identification missing")
			return
		}
		userID, err := strconv.Atoi(userIDStr)
		if err != nil || userID <= 0 {
			log.Warnf("Middleware: Invalid X-User-ID header value: %s", userIDStr)
			abort(c, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid user identification data")
			return
		}

		var roles []string
		for _, role := range strings.Split(c.GetHeader("X-User-Role"), ",") {
			if role = strings.TrimSpace(role); role != "" {
				roles = append(roles, role)
			}
		}

		c.Set(userIDKey, userID)
		c.Set(rolesKey, roles)
		c.Next()
	}
}

// RequireRole rejects callers that do not carry role. It must run after
// Authenticate.
func RequireRole(role string, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !HasRole(c, role) {
			userID, _ := UserID(c)
			log.Warnf("Middleware: User %d lacks role '%s' for %s %s", userID, role, c.Request.Method, c.Request.URL.Path)
			abort(c, http.StatusForbidden, "FORBIDDEN", "Insufficient permissions")
			return
		}
		c.Next()
	}
}

// UserID returns the authenticated caller's id.
func UserID(c *gin.Context) (int, bool) {
	id, ok := c.Get(userIDKey)
	if !ok {
		return 0, false
	}
	userID, ok := id.(int)
	return userID, ok && userID > 0
}

func HasRole(c *gin.Context, role string) bool {
	roles, ok := c.Get(rolesKey)
	if !ok {
		return false
	}
	list, _ := roles.([]string)
	for _, r := range list {
		if r == role {
			return true
		}
	}
	return false
}
