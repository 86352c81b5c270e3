package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/farellandr/storefront/internal/helpers"
	"github.com/farellandr/storefront/internal/middleware"
	"github.com/farellandr/storefront/internal/models"
	"github.com/farellandr/storefront/internal/transient"
)

type TicketView struct {
	ID        string              `json:"id"`
	Status    models.TicketStatus `json:"status"`
	Quantity  int                 `json:"quantity"`
	Price     float64             `json:"price"`
	ShareLink string              `json:"shareLink"`
	Copied    bool                `json:"copied"`
}

// EventTickets groups the visitor's tickets under the event they are for.
type EventTickets struct {
	EventID string        `json:"eventId"`
	Event   *models.Event `json:"event,omitempty"`
	Tickets []TicketView  `json:"tickets"`
}

func ticketKeyPrefix(clientID string) string {
	return "ticket:" + clientID + ":"
}

func groupTickets(c *gin.Context, tickets []models.UserTicket, status models.TicketStatus) []EventTickets {
	base := middleware.GetPublicBaseURL(c)
	ind := middleware.GetIndicators(c)
	prefix := ticketKeyPrefix(middleware.GetClientID(c))

	groups := make([]EventTickets, 0)
	index := make(map[string]int)
	for _, t := range tickets {
		if status != "" && t.Status != status {
			continue
		}

		i, seen := index[t.EventID]
		if !seen {
			i = len(groups)
			index[t.EventID] = i
			groups = append(groups, EventTickets{EventID: t.EventID, Event: t.Event, Tickets: []TicketView{}})
		}

		view := TicketView{
			ID:        t.ID,
			Status:    t.Status,
			Quantity:  t.Quantity,
			Price:     t.Price,
			ShareLink: helpers.TicketURL(base, t.ID),
		}
		if ind != nil {
			view.Copied = ind.Active(prefix + t.ID)
		}
		groups[i].Tickets = append(groups[i].Tickets, view)
	}
	return groups
}

func ListMyTickets(c *gin.Context) {
	status := models.TicketStatus(c.Query("status"))
	if status != "" && !status.Valid() {
		helpers.RespondWithError(c, http.StatusBadRequest, helpers.CodeValidation, "Invalid ticket status.")
		return
	}

	profile, ok := fetchProfile(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"events": groupTickets(c, profile.Tickets, status),
	})
}

// CopyTicketLink flags a ticket's share link as copied for the ticket-link
// window.
func CopyTicketLink(c *gin.Context) {
	ticketID := c.Param("ticketId")
	ind := middleware.GetIndicators(c)
	if ind == nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, helpers.CodeInternal, "Indicators not found.")
		return
	}
	ind.Mark(ticketKeyPrefix(middleware.GetClientID(c))+ticketID, transient.TicketLinkWindow)

	c.JSON(http.StatusOK, gin.H{
		"ticketId":  ticketID,
		"shareLink": helpers.TicketURL(middleware.GetPublicBaseURL(c), ticketID),
		"copied":    true,
	})
}
