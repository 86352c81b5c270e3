package middleware

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/farellandr/storefront/internal/helpers"
	"github.com/farellandr/storefront/internal/models"
)

const (
	SessionCookie = "storefront_session"
	sessionMaxAge = 30 * 24 * time.Hour

	clientIDKey    = "client_id"
	authSessionKey = "auth_session"
)

type sessionClaims struct {
	SID string `json:"sid"`
	jwt.RegisteredClaims
}

// SignSession mints the storefront session cookie value for sid.
func SignSession(secret, sid string, now time.Time) (string, error) {
	claims := sessionClaims{
		SID: sid,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(sessionMaxAge)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// parseSession validates raw against the same clock that signed it.
func parseSession(secret, raw string, now func() time.Time) (string, error) {
	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	}, jwt.WithTimeFunc(now))
	if err != nil || !token.Valid {
		return "", err
	}
	if claims.SID == "" {
		return "", errors.New("missing sid")
	}
	return claims.SID, nil
}

// StorefrontSession identifies the browser. A missing, expired or forged
// cookie is replaced by a fresh session id.
func StorefrontSession(secret string, secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		clk := GetClock(c)

		var sid string
		if raw, err := c.Cookie(SessionCookie); err == nil {
			sid, _ = parseSession(secret, raw, clk.Now)
		}

		if sid == "" {
			sid = uuid.NewString()
			signed, err := SignSession(secret, sid, clk.Now())
			if err != nil {
				helpers.RespondWithError(c, http.StatusInternalServerError, helpers.CodeInternal, "Failed to start session.")
				return
			}
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(SessionCookie, signed, int(sessionMaxAge/time.Second), "/", "", secure, true)
		}

		c.Set(clientIDKey, sid)
		c.Next()
	}
}

func GetClientID(c *gin.Context) string {
	return c.GetString(clientIDKey)
}

// LoadAuthSession attaches the visitor's stored login, if any.
func LoadAuthSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		store := GetCredentials(c)
		if store == nil {
			c.Next()
			return
		}

		auth, err := store.Load(c.Request.Context(), GetClientID(c))
		if err != nil {
			GetLogger(c).Warn("failed to load credentials", zap.Error(err))
			auth = models.AuthSession{}
		}
		c.Set(authSessionKey, auth)
		c.Next()
	}
}

func GetAuthSession(c *gin.Context) models.AuthSession {
	v, exists := c.Get(authSessionKey)
	if !exists {
		return models.AuthSession{}
	}
	auth, _ := v.(models.AuthSession)
	return auth
}

// SetAuthSession replaces the request's auth state after login or logout.
func SetAuthSession(c *gin.Context, auth models.AuthSession) {
	c.Set(authSessionKey, auth)
}

func RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !GetAuthSession(c).IsLoggedIn {
			helpers.RespondWithError(c, http.StatusUnauthorized, helpers.CodeAuthRequired, "Please log in to continue.")
			return
		}
		c.Next()
	}
}
