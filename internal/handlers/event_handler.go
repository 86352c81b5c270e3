package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/farellandr/storefront/internal/catalog"
	"github.com/farellandr/storefront/internal/helpers"
	"github.com/farellandr/storefront/internal/middleware"
	"github.com/farellandr/storefront/internal/models"
	"github.com/farellandr/storefront/internal/transient"
)

const countdownInterval = time.Second

type EventListResponse struct {
	Events     []models.Event    `json:"events"`
	Total      int               `json:"total"`
	Criteria   catalog.Criteria  `json:"criteria"`
	Pagination models.Pagination `json:"pagination"`
}

// ListEvents fetches one page of events and narrows it with the visitor's
// filters. Filtering applies to the fetched page only.
func ListEvents(c *gin.Context) {
	criteria, err := catalog.ParseCriteria(
		c.Query("category"),
		c.Query("search"),
		c.Query("maxPrice"),
		c.Query("date"),
	)
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, helpers.CodeValidation, err.Error())
		return
	}

	page, err := helpers.PositiveIntOr(c.Query("page"), 1)
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, helpers.CodeValidation, "Invalid page.")
		return
	}
	limit, err := helpers.PositiveIntOr(c.Query("limit"), 0)
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, helpers.CodeValidation, "Invalid limit.")
		return
	}

	api, ok := apiClient(c)
	if !ok {
		return
	}

	result, err := api.ListEvents(c.Request.Context(), page, limit)
	if err != nil {
		respondUpstream(c, err, "Events not found.", "Failed to load events.")
		return
	}

	visible := catalog.Visible(result.Data, criteria, middleware.GetClock(c).Now())
	c.JSON(http.StatusOK, EventListResponse{
		Events:     visible,
		Total:      len(visible),
		Criteria:   criteria,
		Pagination: result.Pagination,
	})
}

func GetEvent(c *gin.Context) {
	event, ok := fetchEvent(c, c.Param("id"))
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"event":       event,
		"lowestPrice": catalog.LowestPrice(*event),
	})
}

func shareKey(c *gin.Context, eventID string) string {
	return "share:" + middleware.GetClientID(c) + ":" + eventID
}

func GetEventShare(c *gin.Context) {
	event, ok := fetchEvent(c, c.Param("id"))
	if !ok {
		return
	}

	url := helpers.ShareURL(middleware.GetPublicBaseURL(c), event.ID)
	copied := false
	if ind := middleware.GetIndicators(c); ind != nil {
		copied = ind.Active(shareKey(c, event.ID))
	}

	c.JSON(http.StatusOK, gin.H{
		"url":     url,
		"options": helpers.ShareOptions(event.Title, url),
		"copied":  copied,
	})
}

// CopyEventShare records that the visitor copied the share link; the flag
// reverts on its own after the share window.
func CopyEventShare(c *gin.Context) {
	eventID := c.Param("id")
	ind := middleware.GetIndicators(c)
	if ind == nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, helpers.CodeInternal, "Indicators not found.")
		return
	}
	ind.Mark(shareKey(c, eventID), transient.ShareLinkWindow)

	c.JSON(http.StatusOK, gin.H{
		"url":    helpers.ShareURL(middleware.GetPublicBaseURL(c), eventID),
		"copied": true,
	})
}

// EventCountdown streams the promotional countdown as server-sent events,
// one per second, until it runs out or the client goes away.
func EventCountdown(c *gin.Context) {
	event, ok := fetchEvent(c, c.Param("id"))
	if !ok {
		return
	}

	clk := middleware.GetClock(c)
	countdown, ok := transient.PromotionCountdown(*event)
	if !ok || !countdown.Visible(clk.Now()) {
		c.Status(http.StatusNoContent)
		return
	}

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	_ = countdown.Run(c.Request.Context(), clk, countdownInterval, func(left transient.TimeLeft) bool {
		c.SSEvent("countdown", left)
		c.Writer.Flush()
		return true
	})
}
