package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/farellandr/storefront/internal/checkout"
	"github.com/farellandr/storefront/internal/helpers"
	"github.com/farellandr/storefront/internal/middleware"
)

type StartCheckoutRequest struct {
	EventID  string `json:"eventId" binding:"required"`
	BatchID  string `json:"batchId"`
	Quantity int    `json:"quantity"`
}

type AdjustQuantityRequest struct {
	Delta *int `json:"delta" binding:"required"`
}

type SelectBatchRequest struct {
	BatchID string `json:"batchId" binding:"required"`
}

type CheckoutResponse struct {
	*checkout.Session
	Copied    bool   `json:"copied"`
	QRCodeURL string `json:"qrCodeUrl,omitempty"`
}

func paymentCodeKey(checkoutID string) string {
	return "checkout:" + checkoutID + ":code"
}

func checkoutView(c *gin.Context, s *checkout.Session) CheckoutResponse {
	view := CheckoutResponse{Session: s}
	if ind := middleware.GetIndicators(c); ind != nil {
		view.Copied = ind.Active(paymentCodeKey(s.ID))
	}
	if s.Order != nil {
		view.QRCodeURL = "/v1/checkout/" + s.ID + "/qr.png"
	}
	return view
}

func checkoutStore(c *gin.Context) (checkout.Store, bool) {
	store := middleware.GetCheckoutStore(c)
	if store == nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, helpers.CodeInternal, "Checkout store not found.")
		return nil, false
	}
	return store, true
}

// loadCheckout reads the session named in the path. Sessions belong to the
// storefront client that opened them; anyone else gets a 404.
func loadCheckout(c *gin.Context) (checkout.Store, *checkout.Session, bool) {
	store, ok := checkoutStore(c)
	if !ok {
		return nil, nil, false
	}

	s, err := store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, checkout.ErrSessionNotFound) {
			helpers.RespondWithError(c, http.StatusNotFound, helpers.CodeNotFound, "Checkout not found.")
			return nil, nil, false
		}
		middleware.GetLogger(c).Error("failed to load checkout", zap.Error(err))
		helpers.RespondWithError(c, http.StatusInternalServerError, helpers.CodeInternal, "Failed to load checkout.")
		return nil, nil, false
	}
	if s.ClientID != middleware.GetClientID(c) {
		helpers.RespondWithError(c, http.StatusNotFound, helpers.CodeNotFound, "Checkout not found.")
		return nil, nil, false
	}
	return store, s, true
}

func saveCheckout(c *gin.Context, store checkout.Store, s *checkout.Session) bool {
	return saveCheckoutContext(c, c.Request.Context(), store, s)
}

func saveCheckoutContext(c *gin.Context, ctx context.Context, store checkout.Store, s *checkout.Session) bool {
	if err := store.Save(ctx, s); err != nil {
		middleware.GetLogger(c).Error("failed to save checkout", zap.String("checkout_id", s.ID), zap.Error(err))
		helpers.RespondWithError(c, http.StatusInternalServerError, helpers.CodeInternal, "Failed to save checkout.")
		return false
	}
	return true
}

func StartCheckout(c *gin.Context) {
	var req StartCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, helpers.CodeValidation, "Invalid input. Please check your fields.")
		return
	}

	store, ok := checkoutStore(c)
	if !ok {
		return
	}
	event, ok := fetchEvent(c, req.EventID)
	if !ok {
		return
	}

	s, err := checkout.NewSession(uuid.NewString(), middleware.GetClientID(c), *event, req.BatchID, req.Quantity, middleware.GetClock(c).Now())
	if err != nil {
		helpers.RespondWithError(c, http.StatusConflict, helpers.CodeConflict, "No tickets are available for this event.")
		return
	}
	if !saveCheckout(c, store, s) {
		return
	}

	middleware.GetLogger(c).Info("checkout started", zap.String("checkout_id", s.ID), zap.String("event_id", event.ID))
	c.JSON(http.StatusCreated, checkoutView(c, s))
}

func GetCheckout(c *gin.Context) {
	_, s, ok := loadCheckout(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, checkoutView(c, s))
}

func AdjustCheckoutQuantity(c *gin.Context) {
	var req AdjustQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, helpers.CodeValidation, "Invalid input. Please check your fields.")
		return
	}

	store, s, ok := loadCheckout(c)
	if !ok {
		return
	}
	if err := s.AdjustQuantity(*req.Delta); err != nil {
		helpers.RespondWithError(c, http.StatusConflict, helpers.CodeConflict, "The order was already placed.")
		return
	}
	if !saveCheckout(c, store, s) {
		return
	}
	c.JSON(http.StatusOK, checkoutView(c, s))
}

func SelectCheckoutBatch(c *gin.Context) {
	var req SelectBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, helpers.CodeValidation, "Invalid input. Please check your fields.")
		return
	}

	store, s, ok := loadCheckout(c)
	if !ok {
		return
	}
	if err := s.SelectBatch(req.BatchID); err != nil {
		if errors.Is(err, checkout.ErrBatchNotFound) {
			helpers.RespondWithError(c, http.StatusBadRequest, helpers.CodeValidation, "Batch not found for this event.")
			return
		}
		helpers.RespondWithError(c, http.StatusConflict, helpers.CodeConflict, "The order was already placed.")
		return
	}
	if !saveCheckout(c, store, s) {
		return
	}
	c.JSON(http.StatusOK, checkoutView(c, s))
}

// SubmitCheckout asks the events API for the order and its payment
// instructions. Failures leave the session selecting with a notice set.
func SubmitCheckout(c *gin.Context) {
	store, s, ok := loadCheckout(c)
	if !ok {
		return
	}
	api, ok := apiClient(c)
	if !ok {
		return
	}

	auth := middleware.GetAuthSession(c)
	seq := checkout.NewSequencer(api, store, middleware.GetLogger(c))
	submitErr := seq.Submit(c.Request.Context(), s, auth)

	if errors.Is(submitErr, checkout.ErrAuthRequired) {
		helpers.RespondWithError(c, http.StatusUnauthorized, helpers.CodeAuthRequired, "Please log in to buy tickets.")
		return
	}
	if errors.Is(submitErr, checkout.ErrNotSelecting) {
		helpers.RespondWithError(c, http.StatusConflict, helpers.CodeConflict, "The order was already placed.")
		return
	}

	// The stored copy still says loading; release it even if the visitor
	// went away mid-request.
	settle := context.WithoutCancel(c.Request.Context())

	// The visitor may have left the checkout while the order was in flight.
	if _, err := store.Get(settle, s.ID); errors.Is(err, checkout.ErrSessionNotFound) {
		helpers.RespondWithError(c, http.StatusNotFound, helpers.CodeNotFound, "Checkout not found.")
		return
	}
	if !saveCheckoutContext(c, settle, store, s) {
		return
	}

	switch {
	case submitErr == nil:
		c.JSON(http.StatusOK, checkoutView(c, s))
	case errors.Is(submitErr, checkout.ErrPayloadTooLarge):
		helpers.RespondWithError(c, http.StatusBadGateway, helpers.CodePayloadTooLarge, s.Error)
	case errors.Is(submitErr, checkout.ErrCreationFailed):
		helpers.RespondWithError(c, http.StatusBadGateway, helpers.CodeTicketCreationFailed, s.Error)
	default:
		helpers.RespondWithError(c, http.StatusConflict, helpers.CodeConflict, "Selected batch is no longer available.")
	}
}

// DiscardCheckout drops the session and any indicator still counting down
// for it.
func DiscardCheckout(c *gin.Context) {
	store, s, ok := loadCheckout(c)
	if !ok {
		return
	}
	if err := store.Delete(c.Request.Context(), s.ID); err != nil {
		middleware.GetLogger(c).Error("failed to discard checkout", zap.String("checkout_id", s.ID), zap.Error(err))
		helpers.RespondWithError(c, http.StatusInternalServerError, helpers.CodeInternal, "Failed to discard checkout.")
		return
	}
	if ind := middleware.GetIndicators(c); ind != nil {
		ind.CancelPrefix("checkout:" + s.ID + ":")
	}
	c.Status(http.StatusNoContent)
}
