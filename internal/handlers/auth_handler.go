package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/farellandr/storefront/internal/clients"
	"github.com/farellandr/storefront/internal/helpers"
	"github.com/farellandr/storefront/internal/middleware"
	"github.com/farellandr/storefront/internal/models"
)

type RegisterRequest struct {
	Name            string `json:"name" binding:"required"`
	Email           string `json:"email" binding:"required,email"`
	PhoneNumber     string `json:"phoneNumber" binding:"required"`
	CPF             string `json:"cpf"`
	Password        string `json:"password" binding:"required,min=6"`
	ConfirmPassword string `json:"confirmPassword" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Register creates the account upstream. The visitor stays logged out and is
// expected to log in next.
func Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, helpers.CodeValidation, "Invalid input. Please check your fields.")
		return
	}
	if req.Password != req.ConfirmPassword {
		helpers.RespondWithError(c, http.StatusBadRequest, helpers.CodeValidation, "Passwords do not match.")
		return
	}

	api, ok := apiClient(c)
	if !ok {
		return
	}

	user, err := api.Register(c.Request.Context(), models.RegisterRequest{
		Name:        req.Name,
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
		CPF:         req.CPF,
		Password:    req.Password,
	})
	if err != nil {
		switch clients.StatusOf(err) {
		case http.StatusConflict:
			helpers.RespondWithError(c, http.StatusConflict, helpers.CodeRegistrationConflict, upstreamMessage(err, "User already exists."))
		case http.StatusBadRequest:
			helpers.RespondWithError(c, http.StatusBadRequest, helpers.CodeValidation, upstreamMessage(err, "Invalid input. Please check your fields."))
		default:
			respondUpstream(c, err, "Registration is unavailable.", "Failed to register user.")
		}
		return
	}

	middleware.GetLogger(c).Info("user registered", zap.String("user_id", user.ID))
	c.JSON(http.StatusCreated, gin.H{
		"message": "User registered successfully.",
		"user":    user,
	})
}

func Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, helpers.CodeValidation, "Invalid input. Please check your fields.")
		return
	}

	store := middleware.GetCredentials(c)
	if store == nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, helpers.CodeInternal, "Credential store not found.")
		return
	}
	api, ok := apiClient(c)
	if !ok {
		return
	}

	resp, err := api.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		switch clients.StatusOf(err) {
		case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
			helpers.RespondWithError(c, http.StatusUnauthorized, helpers.CodeInvalidCredentials, "Invalid credentials.")
		default:
			respondUpstream(c, err, "Login is unavailable.", "Failed to log in.")
		}
		return
	}
	if resp.AccessToken == "" {
		helpers.RespondWithError(c, http.StatusBadGateway, helpers.CodeUpstreamUnavailable, "Failed to log in.")
		return
	}

	if err := store.Save(c.Request.Context(), middleware.GetClientID(c), resp.User, resp.AccessToken); err != nil {
		middleware.GetLogger(c).Error("failed to store credentials", zap.Error(err))
		helpers.RespondWithError(c, http.StatusInternalServerError, helpers.CodeInternal, "Failed to save session.")
		return
	}

	user := resp.User
	auth := models.AuthSession{IsLoggedIn: true, User: &user, Token: resp.AccessToken}
	middleware.SetAuthSession(c, auth)
	middleware.GetLogger(c).Info("user logged in", zap.String("user_id", user.ID))

	c.JSON(http.StatusOK, auth)
}

func Logout(c *gin.Context) {
	store := middleware.GetCredentials(c)
	if store == nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, helpers.CodeInternal, "Credential store not found.")
		return
	}

	sid := middleware.GetClientID(c)
	if err := store.Clear(c.Request.Context(), sid); err != nil {
		middleware.GetLogger(c).Error("failed to clear credentials", zap.Error(err))
		helpers.RespondWithError(c, http.StatusInternalServerError, helpers.CodeInternal, "Failed to log out.")
		return
	}
	if ind := middleware.GetIndicators(c); ind != nil {
		ind.CancelPrefix(ticketKeyPrefix(sid))
	}

	middleware.SetAuthSession(c, models.AuthSession{})
	c.JSON(http.StatusOK, models.AuthSession{})
}

func GetSession(c *gin.Context) {
	c.JSON(http.StatusOK, middleware.GetAuthSession(c))
}

func upstreamMessage(err error, fallback string) string {
	var apiErr *clients.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
