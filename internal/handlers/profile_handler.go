package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/farellandr/storefront/internal/clients"
	"github.com/farellandr/storefront/internal/helpers"
	"github.com/farellandr/storefront/internal/middleware"
	"github.com/farellandr/storefront/internal/models"
)

func fetchProfile(c *gin.Context) (*models.UserProfile, bool) {
	auth := middleware.GetAuthSession(c)
	if !auth.IsLoggedIn || auth.User == nil {
		helpers.RespondWithError(c, http.StatusUnauthorized, helpers.CodeAuthRequired, "Please log in to continue.")
		return nil, false
	}
	api, ok := apiClient(c)
	if !ok {
		return nil, false
	}

	profile, err := api.GetUser(c.Request.Context(), auth.User.ID)
	if err != nil {
		if clients.StatusOf(err) == http.StatusUnauthorized {
			helpers.RespondWithError(c, http.StatusUnauthorized, helpers.CodeAuthRequired, "Your session has expired. Please log in again.")
			return nil, false
		}
		respondUpstream(c, err, "User not found.", "Failed to load profile.")
		return nil, false
	}
	return profile, true
}

func GetProfile(c *gin.Context) {
	profile, ok := fetchProfile(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, profile)
}
