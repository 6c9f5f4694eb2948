package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/harentsoaR/wellness-api/internal/apperrors"
	"github.com/harentsoaR/wellness-api/internal/middleware"
	"github.com/harentsoaR/wellness-api/internal/models"
	"github.com/harentsoaR/wellness-api/internal/store"
	"github.com/harentsoaR/wellness-api/internal/utils"
)

var (
	ErrInvalidCredentials = apperrors.Unauthorized("INVALID_CREDENTIALS", "invalid credentials")
	ErrNotProviderAccount = apperrors.Forbidden("NOT_A_PROVIDER", "this account does not operate a provider")
)

type RegisterUserRequest struct {
	FullName string `json:"fullName" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Phone    string `json:"phone" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type UpdateUserRequest struct {
	FullName *string `json:"fullName"`
	Phone    *string `json:"phone"`
}

// RegisterUser creates a plain user account. Roles other than "user" are
// granted by linking a provider or directly in the database.
func (h *Handler) RegisterUser(c *gin.Context) {
	var req RegisterUserRequest
	if !bindJSON(c, &req) {
		return
	}

	phone, err := h.phones.Normalize(req.Phone)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	hashed, err := utils.HashPassword(req.Password, h.bcryptCost)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}

	user := models.User{
		FullName: strings.TrimSpace(req.FullName),
		Email:    req.Email,
		Password: hashed,
		Role:     models.RoleUser,
		Phone:    phone,
	}
	if err := h.users.Create(c.Request.Context(), &user); err != nil {
		middleware.RespondError(c, err)
		return
	}

	h.logger.Info().Str("user_id", user.ID.Hex()).Msg("user registered")
	c.JSON(http.StatusCreated, user)
}

func (h *Handler) Login(c *gin.Context) {
	user, ok := h.authenticate(c)
	if !ok {
		return
	}
	h.issueToken(c, user, utils.Claims{})
}

// ProviderLogin issues a token that also carries the provider the account
// operates. Provider-only routes require such a token.
func (h *Handler) ProviderLogin(c *gin.Context) {
	user, ok := h.authenticate(c)
	if !ok {
		return
	}
	p := user.ProviderProfile
	if p == nil {
		middleware.RespondError(c, ErrNotProviderAccount)
		return
	}
	h.issueToken(c, user, utils.Claims{
		ProviderID:    p.ProviderID.Hex(),
		ProviderModel: string(p.ProviderModel),
	})
}

func (h *Handler) authenticate(c *gin.Context) (*models.User, bool) {
	var req LoginRequest
	if !bindJSON(c, &req) {
		return nil, false
	}

	user, err := h.users.FindByEmail(c.Request.Context(), req.Email)
	if errors.Is(err, store.ErrUserNotFound) {
		middleware.RespondError(c, ErrInvalidCredentials)
		return nil, false
	}
	if err != nil {
		middleware.RespondError(c, err)
		return nil, false
	}
	if !utils.CheckPasswordHash(req.Password, user.Password) {
		middleware.RespondError(c, ErrInvalidCredentials)
		return nil, false
	}
	user.Password = ""
	return user, true
}

func (h *Handler) issueToken(c *gin.Context, user *models.User, claims utils.Claims) {
	claims.UserID = user.ID.Hex()
	claims.Email = user.Email
	claims.Role = user.Role
	token, err := h.tokens.Generate(claims)
	if err != nil {
		middleware.RespondError(c, apperrors.Internal("generate token", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

// GetCurrentUser retrieves the profile of the currently authenticated user.
func (h *Handler) GetCurrentUser(c *gin.Context) {
	user, err := h.users.FindByID(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handler) UpdateCurrentUser(c *gin.Context) {
	var req UpdateUserRequest
	if !bindJSON(c, &req) {
		return
	}

	upd := store.UserUpdate{}
	if req.FullName != nil {
		name := strings.TrimSpace(*req.FullName)
		if name == "" {
			middleware.RespondError(c, ErrInvalidRequest.WithMessage("fullName must not be empty"))
			return
		}
		upd.FullName = &name
	}
	if req.Phone != nil {
		phone, err := h.phones.Normalize(*req.Phone)
		if err != nil {
			middleware.RespondError(c, err)
			return
		}
		upd.Phone = &phone
	}

	user, err := h.users.UpdateProfile(c.Request.Context(), middleware.CurrentUserID(c), upd)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
