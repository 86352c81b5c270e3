package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/farellandr/storefront/internal/helpers"
	"github.com/farellandr/storefront/internal/middleware"
	"github.com/farellandr/storefront/internal/transient"
)

// CopyPaymentCode flags the PIX code as copied for the payment-code window.
func CopyPaymentCode(c *gin.Context) {
	_, s, ok := loadCheckout(c)
	if !ok {
		return
	}
	if s.Order == nil {
		helpers.RespondWithError(c, http.StatusConflict, helpers.CodeConflict, "No payment code yet.")
		return
	}

	ind := middleware.GetIndicators(c)
	if ind == nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, helpers.CodeInternal, "Indicators not found.")
		return
	}
	ind.Mark(paymentCodeKey(s.ID), transient.PaymentCodeWindow)

	c.JSON(http.StatusOK, gin.H{
		"paymentCode": s.Order.PaymentCode,
		"copied":      true,
	})
}

// PaymentQRCode serves the payment QR image: the one the events API sent
// when present, otherwise rendered from the payment code.
func PaymentQRCode(c *gin.Context) {
	_, s, ok := loadCheckout(c)
	if !ok {
		return
	}
	if s.Order == nil {
		helpers.RespondWithError(c, http.StatusConflict, helpers.CodeConflict, "No payment code yet.")
		return
	}

	if s.Order.QRCodeBase64 != "" {
		img, err := helpers.DecodeInlineImage(s.Order.QRCodeBase64)
		if err == nil {
			c.Data(http.StatusOK, "image/png", img)
			return
		}
		middleware.GetLogger(c).Warn("unreadable inline QR code, rendering locally", zap.String("checkout_id", s.ID), zap.Error(err))
	}

	qrImage, err := helpers.PaymentQRCode(s.Order.PaymentCode)
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, helpers.CodeInternal, "Failed to generate QR code")
		return
	}

	c.Data(http.StatusOK, "image/png", qrImage)
}
