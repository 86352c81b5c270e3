package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/farellandr/storefront/internal/clients"
	"github.com/farellandr/storefront/internal/helpers"
	"github.com/farellandr/storefront/internal/middleware"
	"github.com/farellandr/storefront/internal/models"
)

func apiClient(c *gin.Context) (*clients.APIClient, bool) {
	api := middleware.GetAPIClient(c)
	if api == nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, helpers.CodeInternal, "Events API client not found.")
		return nil, false
	}
	return api, true
}

// respondUpstream maps an events API failure onto the storefront's error
// shape. A missing resource stays a 404; everything else is a 502.
func respondUpstream(c *gin.Context, err error, notFound, failed string) {
	status := clients.StatusOf(err)
	middleware.GetLogger(c).Warn("events API call failed", zap.Int("upstream_status", status), zap.Error(err))

	if status == http.StatusNotFound {
		helpers.RespondWithError(c, http.StatusNotFound, helpers.CodeNotFound, notFound)
		return
	}
	helpers.RespondWithError(c, http.StatusBadGateway, helpers.CodeUpstreamUnavailable, failed)
}

func fetchEvent(c *gin.Context, id string) (*models.Event, bool) {
	api, ok := apiClient(c)
	if !ok {
		return nil, false
	}
	event, err := api.GetEvent(c.Request.Context(), id)
	if err != nil {
		respondUpstream(c, err, "Event not found.", "Failed to load event.")
		return nil, false
	}
	return event, true
}
