package middleware

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/farellandr/storefront/internal/checkout"
	"github.com/farellandr/storefront/internal/clients"
	"github.com/farellandr/storefront/internal/clock"
	"github.com/farellandr/storefront/internal/credentials"
	"github.com/farellandr/storefront/internal/transient"
)

const (
	apiClientKey     = "api_client"
	checkoutStoreKey = "checkout_store"
	credentialsKey   = "credentials"
	indicatorsKey    = "indicators"
	clockKey         = "clock"
	loggerKey        = "logger"
	publicBaseURLKey = "public_base_url"
)

// Dependencies are the shared services handlers reach through the gin context.
type Dependencies struct {
	API           *clients.APIClient
	Checkouts     checkout.Store
	Credentials   credentials.Store
	Indicators    *transient.Indicators
	Clock         clock.Clock
	Logger        *zap.Logger
	PublicBaseURL string
}

func DependenciesMiddleware(deps Dependencies) gin.HandlerFunc {
	if deps.Clock == nil {
		deps.Clock = clock.NewSystem()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		c.Set(apiClientKey, deps.API)
		c.Set(checkoutStoreKey, deps.Checkouts)
		c.Set(credentialsKey, deps.Credentials)
		c.Set(indicatorsKey, deps.Indicators)
		c.Set(clockKey, deps.Clock)
		c.Set(loggerKey, deps.Logger)
		c.Set(publicBaseURLKey, deps.PublicBaseURL)
		c.Next()
	}
}

// GetAPIClient returns the events API client authenticated as the visitor
// when they are logged in.
func GetAPIClient(c *gin.Context) *clients.APIClient {
	client, exists := c.Get(apiClientKey)
	if !exists {
		return nil
	}
	api, _ := client.(*clients.APIClient)
	if api == nil {
		return nil
	}
	if auth := GetAuthSession(c); auth.IsLoggedIn {
		return api.WithToken(auth.Token)
	}
	return api
}

func GetCheckoutStore(c *gin.Context) checkout.Store {
	store, exists := c.Get(checkoutStoreKey)
	if !exists {
		return nil
	}
	s, _ := store.(checkout.Store)
	return s
}

func GetCredentials(c *gin.Context) credentials.Store {
	store, exists := c.Get(credentialsKey)
	if !exists {
		return nil
	}
	s, _ := store.(credentials.Store)
	return s
}

func GetIndicators(c *gin.Context) *transient.Indicators {
	ind, exists := c.Get(indicatorsKey)
	if !exists {
		return nil
	}
	i, _ := ind.(*transient.Indicators)
	return i
}

func GetClock(c *gin.Context) clock.Clock {
	if v, exists := c.Get(clockKey); exists {
		if clk, ok := v.(clock.Clock); ok {
			return clk
		}
	}
	return clock.NewSystem()
}

func GetLogger(c *gin.Context) *zap.Logger {
	if v, exists := c.Get(loggerKey); exists {
		if l, ok := v.(*zap.Logger); ok {
			return l.With(zap.String("request_id", c.GetString(requestIDKey)))
		}
	}
	return zap.NewNop()
}

func GetPublicBaseURL(c *gin.Context) string {
	return c.GetString(publicBaseURLKey)
}
