package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/harentsoaR/wellness-api/internal/apperrors"
	"github.com/harentsoaR/wellness-api/internal/models"
	"github.com/harentsoaR/wellness-api/internal/scheduling"
	"github.com/harentsoaR/wellness-api/internal/store"
	"github.com/harentsoaR/wellness-api/internal/utils"
)

const (
	ctxUserID        = "userID"
	ctxUserRole      = "userRole"
	ctxProviderID    = "providerID"
	ctxProviderModel = "providerModel"
)

var (
	ErrUnauthorized = apperrors.Unauthorized("UNAUTHORIZED", "authentication required")
	ErrRoleRequired = apperrors.Forbidden("FORBIDDEN", "permission denied")
)

// UserLookup is satisfied by the cached user repository.
type UserLookup interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

// Auth verifies the bearer token and that its account still exists, then
// stores the caller identity on the context. The role and provider link are
// taken from the account, so a token issued before a role change does not
// keep stale rights.
func Auth(tokens *utils.TokenManager, users UserLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		tokenString, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || tokenString == "" {
			RespondError(c, ErrUnauthorized.WithMessage("Authorization header required"))
			return
		}

		claims, err := tokens.Validate(tokenString)
		if err != nil {
			RespondError(c, ErrUnauthorized.WithMessage("invalid token"))
			return
		}
		userID, err := primitive.ObjectIDFromHex(claims.UserID)
		if err != nil {
			RespondError(c, ErrUnauthorized.WithMessage("invalid token"))
			return
		}

		user, err := users.FindByID(c.Request.Context(), userID)
		if errors.Is(err, store.ErrUserNotFound) {
			RespondError(c, ErrUnauthorized.WithMessage("account no longer exists"))
			return
		}
		if err != nil {
			RespondError(c, err)
			return
		}

		c.Set(ctxUserID, user.ID.Hex())
		c.Set(ctxUserRole, user.Role)
		if p := user.ProviderProfile; p != nil && claims.ProviderID == p.ProviderID.Hex() {
			c.Set(ctxProviderID, p.ProviderID.Hex())
			c.Set(ctxProviderModel, string(p.ProviderModel))
		}

		c.Next()
	}
}

// RequireRole lets the request through only for the listed roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(ctxUserRole)
		for _, r := range roles {
			if r == role {
				c.Next()
				return
			}
		}
		RespondError(c, ErrRoleRequired)
	}
}

// RequireProvider accepts only tokens issued through the provider login.
func RequireProvider() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentProvider(c).IsZero() {
			RespondError(c, ErrRoleRequired.WithMessage("a provider account is required"))
			return
		}
		c.Next()
	}
}

func CurrentUserID(c *gin.Context) primitive.ObjectID {
	id, _ := primitive.ObjectIDFromHex(c.GetString(ctxUserID))
	return id
}

func CurrentRole(c *gin.Context) string {
	return c.GetString(ctxUserRole)
}

// CurrentProvider is the zero ref for callers that are not providers.
func CurrentProvider(c *gin.Context) scheduling.ProviderRef {
	id, err := primitive.ObjectIDFromHex(c.GetString(ctxProviderID))
	if err != nil {
		return scheduling.ProviderRef{}
	}
	kind, ok := models.ParseProviderKind(c.GetString(ctxProviderModel))
	if !ok {
		return scheduling.ProviderRef{}
	}
	return scheduling.ProviderRef{Kind: kind, ID: id}
}
