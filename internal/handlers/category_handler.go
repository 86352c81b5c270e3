package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/farellandr/storefront/internal/catalog"
)

func ListCategories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"categories": catalog.Categories})
}

func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
