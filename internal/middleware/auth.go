package middleware

import (
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/flowdeck-dev/flowdeck/internal/auth"
	"github.com/flowdeck-dev/flowdeck/internal/models"
	"github.com/flowdeck-dev/flowdeck/internal/types"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"
)

type AuthenticatedUser struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

var Domain = os.Getenv("DOMAIN")

// Auth requires a valid token and aborts with 401 otherwise.
func Auth(db *gorm.DB) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if !resolveUser(ctx, db) {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		ctx.Next()
	}
}

// OptionalAuth resolves the current user when a valid token is present and
// lets the request through either way. Handlers decide what an anonymous
// requester may see.
func OptionalAuth(db *gorm.DB) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		resolveUser(ctx, db)
		ctx.Next()
	}
}

func resolveUser(ctx *gin.Context, db *gorm.DB) bool {
	tokenString := extractToken(ctx)

	if tokenString == "" {
		return false
	}

	token, err := auth.VerifyJWT(tokenString)

	if err != nil || !token.Valid {
		return false
	}

	claims, ok := token.Claims.(jwt.MapClaims)

	if !ok {
		return false
	}

	userIDFloat, ok := claims["user_id"].(float64)

	if !ok {
		return false
	}

	userID := uint(userIDFloat)

	var user models.User

	if err := db.Where("id = ?", userID).First(&user).Error; err != nil {
		return false
	}

	refreshExpiring(ctx, claims, &user)

	ctx.Set(types.ContextUserKey, AuthenticatedUser{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
	})

	return true
}

func extractToken(ctx *gin.Context) string {
	authHeader := ctx.GetHeader("Authorization")

	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)

		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1]
		}
	}

	if cookie, err := ctx.Cookie("token"); err == nil {
		return cookie
	}

	return ""
}

// refreshExpiring re-issues tokens that are close to expiry so an active
// session never lapses mid-use.
func refreshExpiring(ctx *gin.Context, claims jwt.MapClaims, user *models.User) {
	if !auth.NearExpiry(claims) {
		return
	}

	token, err := auth.GenerateJWT(user.ID, user.Username)

	if err != nil {
		log.Printf("Failed to refresh token for user %d: %v", user.ID, err)
		return
	}

	http.SetCookie(ctx.Writer, &http.Cookie{
		Name:     "token",
		Value:    token,
		Path:     "/",
		Domain:   Domain,
		MaxAge:   60 * 60 * 24 * 7,
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteNoneMode,
	})
}
