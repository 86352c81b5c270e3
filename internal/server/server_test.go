package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farellandr/storefront/config"
	"github.com/farellandr/storefront/internal/checkout"
	"github.com/farellandr/storefront/internal/clients"
	"github.com/farellandr/storefront/internal/clock"
	"github.com/farellandr/storefront/internal/credentials"
	"github.com/farellandr/storefront/internal/middleware"
	"github.com/farellandr/storefront/internal/transient"
)

var now = time.Date(2025, 3, 15, 18, 30, 0, 0, time.UTC)

const eventJSON = `{"id":"evt-1","title":"Jazz Night","description":"Live jazz","date":"2025-03-15",
	"category":{"id":"c1","title":"music"},
	"batches":[{"id":"b1","eventId":"evt-1","price":50,"createdAt":"2025-03-14T18:30:00Z"},
	           {"id":"b2","eventId":"evt-1","price":120,"createdAt":"2025-03-14T18:30:00Z"}]}`

const eventsJSON = `{"data":[` + eventJSON + `,
	{"id":"evt-2","title":"Stand-up","description":"Comedy night","date":"2025-01-01",
	 "category":{"id":"c2","title":"comedy"},"batches":[{"id":"b3","price":80}]}],
	"pagination":{"totalItems":2,"totalPages":1,"currentPage":1,"pageSize":20}}`

type upstream struct {
	mu          sync.Mutex
	ticketReply string
	ticketAuth  string
	down        bool
	onTicket    func()
}

func (u *upstream) handler() http.Handler {
	mux := http.NewServeMux()
	reply := func(w http.ResponseWriter, status int, body string) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}

	mux.HandleFunc("/events", func(w http.ResponseWriter, r *http.Request) {
		u.mu.Lock()
		down := u.down
		u.mu.Unlock()
		if down {
			reply(w, http.StatusInternalServerError, `{"message":"boom"}`)
			return
		}
		reply(w, http.StatusOK, eventsJSON)
	})
	mux.HandleFunc("/events/", func(w http.ResponseWriter, r *http.Request) {
		switch strings.TrimPrefix(r.URL.Path, "/events/") {
		case "evt-1":
			reply(w, http.StatusOK, eventJSON)
		case "sold-out":
			reply(w, http.StatusOK, `{"id":"sold-out","title":"Sold out","batches":[]}`)
		default:
			reply(w, http.StatusNotFound, `{"message":"Event not found"}`)
		}
	})
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["password"] != "pw" {
			reply(w, http.StatusUnauthorized, `{"message":"Invalid credentials"}`)
			return
		}
		reply(w, http.StatusOK, `{"id":"user-1","name":"Ana","email":"ana@example.com","phoneNumber":"11999999999","cpf":"12345678900","accessToken":"tok"}`)
	})
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["email"] == "taken@example.com" {
			reply(w, http.StatusConflict, `{"message":"Email already registered"}`)
			return
		}
		reply(w, http.StatusCreated, `{"id":"user-2","name":"Bia","email":"`+body["email"]+`"}`)
	})
	mux.HandleFunc("/user/user-1", func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusOK, `{"id":"user-1","name":"Ana","tickets":[
			{"id":"TK-001","status":"ASSIGNED","eventId":"evt-1","quantity":1,"price":50},
			{"id":"TK-002","status":"USED","eventId":"evt-2","quantity":2,"price":160},
			{"id":"TK-003","status":"ASSIGNED","eventId":"evt-1","quantity":1,"price":50}]}`)
	})
	mux.HandleFunc("/ticket", func(w http.ResponseWriter, r *http.Request) {
		u.mu.Lock()
		u.ticketAuth = r.Header.Get("Authorization")
		body := u.ticketReply
		hook := u.onTicket
		u.mu.Unlock()
		if hook != nil {
			hook()
		}
		reply(w, http.StatusCreated, body)
	})
	return mux
}

func (u *upstream) lastTicketAuth() string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.ticketAuth
}

func (u *upstream) set(fn func(u *upstream)) {
	u.mu.Lock()
	defer u.mu.Unlock()
	fn(u)
}

type fixture struct {
	t        *testing.T
	router   *gin.Engine
	upstream *upstream
	cookies  []*http.Cookie
}

// ctxStore fails on a cancelled context the way the redis store does.
type ctxStore struct {
	checkout.Store
}

func (s ctxStore) Get(ctx context.Context, id string) (*checkout.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.Store.Get(ctx, id)
}

func (s ctxStore) Save(ctx context.Context, session *checkout.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.Store.Save(ctx, session)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithStore(t, func(s checkout.Store) checkout.Store { return s })
}

func newFixtureWithStore(t *testing.T, wrap func(checkout.Store) checkout.Store) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	up := &upstream{ticketReply: `{"id":"ord-1","qr_code":"00020126PIX"}`}
	api := httptest.NewServer(up.handler())
	t.Cleanup(api.Close)

	clk := clock.NewFixed(now)
	ind := transient.NewIndicators()
	t.Cleanup(ind.Close)

	cfg := &config.Config{JWTSecret: "test-secret", CORSOrigins: []string{"http://localhost:3000"}}
	deps := middleware.Dependencies{
		API:           clients.NewAPIClient(api.URL, time.Second),
		Checkouts:     wrap(checkout.NewMemoryStore(time.Hour, clk)),
		Credentials:   credentials.NewMemoryStore(clk),
		Indicators:    ind,
		Clock:         clk,
		PublicBaseURL: "https://shop.example.com",
	}

	return &fixture{t: t, router: NewRouter(cfg, deps), upstream: up}
}

// browser returns a fixture sharing the router and upstream but with its own
// cookie jar.
func (f *fixture) browser() *fixture {
	return &fixture{t: f.t, router: f.router, upstream: f.upstream}
}

func (f *fixture) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	return f.doContext(context.Background(), method, path, body)
}

func (f *fixture) doContext(ctx context.Context, method, path string, body interface{}) *httptest.ResponseRecorder {
	f.t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(f.t, err)
		reader = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, reader).WithContext(ctx)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range f.cookies {
		req.AddCookie(c)
	}

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	if cookies := w.Result().Cookies(); len(cookies) > 0 {
		f.cookies = cookies
	}
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func (f *fixture) login() {
	f.t.Helper()
	w := f.do(http.MethodPost, "/v1/auth/login", map[string]string{"email": "ana@example.com", "password": "pw"})
	require.Equal(f.t, http.StatusOK, w.Code, w.Body.String())
}

func (f *fixture) startCheckout(body map[string]interface{}) string {
	f.t.Helper()
	w := f.do(http.MethodPost, "/v1/checkout", body)
	require.Equal(f.t, http.StatusCreated, w.Code, w.Body.String())
	return decode(f.t, w)["id"].(string)
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	w := f.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Result().Cookies())
}

func TestCategories(t *testing.T) {
	f := newFixture(t)
	w := f.do(http.MethodGet, "/v1/categories", nil)
	require.Equal(t, http.StatusOK, w.Code)

	cats := decode(t, w)["categories"].([]interface{})
	require.Len(t, cats, 7)
	assert.Equal(t, "all", cats[0].(map[string]interface{})["id"])
}

func TestListEvents(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodGet, "/v1/events", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, 2.0, body["total"])
	assert.Equal(t, 2.0, body["pagination"].(map[string]interface{})["totalItems"])

	w = f.do(http.MethodGet, "/v1/events?category=comedy", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	assert.Equal(t, 1.0, body["total"])
	assert.Equal(t, "Stand-up", body["events"].([]interface{})[0].(map[string]interface{})["title"])

	w = f.do(http.MethodGet, "/v1/events?date=today&search=JAZZ", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1.0, decode(t, w)["total"])

	w = f.do(http.MethodGet, "/v1/events?maxPrice=60", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1.0, decode(t, w)["total"])
}

func TestListEventsErrors(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodGet, "/v1/events?maxPrice=cheap", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(http.MethodGet, "/v1/events?date=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	f.upstream.set(func(u *upstream) { u.down = true })
	w = f.do(http.MethodGet, "/v1/events", nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "upstream_unavailable", decode(t, w)["code"])
}

func TestGetEvent(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodGet, "/v1/events/evt-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 50.0, decode(t, w)["lowestPrice"])

	w = f.do(http.MethodGet, "/v1/events/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestShare(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodGet, "/v1/events/evt-1/share", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "https://shop.example.com/events/evt-1", body["url"])
	assert.Len(t, body["options"], 5)
	assert.Equal(t, false, body["copied"])

	w = f.do(http.MethodPost, "/v1/events/evt-1/share/copy", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(http.MethodGet, "/v1/events/evt-1/share", nil)
	assert.Equal(t, true, decode(t, w)["copied"])

	other := f.browser()
	w = other.do(http.MethodGet, "/v1/events/evt-1/share", nil)
	assert.Equal(t, false, decode(t, w)["copied"])
}

func TestCountdown(t *testing.T) {
	f := newFixture(t)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	w := f.doContext(ctx, http.MethodGet, "/v1/events/evt-1/countdown", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "event:countdown")
	assert.Contains(t, w.Body.String(), `"days":6`)

	w = f.do(http.MethodGet, "/v1/events/sold-out/countdown", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestCheckoutFlow(t *testing.T) {
	f := newFixture(t)
	id := f.startCheckout(map[string]interface{}{"eventId": "evt-1"})

	w := f.do(http.MethodGet, "/v1/checkout/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "selecting", body["phase"])
	assert.Equal(t, "b1", body["batchId"])
	assert.Equal(t, 1.0, body["quantity"])
	assert.Equal(t, 50.0, body["total"])

	w = f.do(http.MethodPatch, "/v1/checkout/"+id+"/quantity", map[string]int{"delta": -5})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1.0, decode(t, w)["quantity"])

	w = f.do(http.MethodPatch, "/v1/checkout/"+id+"/quantity", map[string]int{"delta": 2})
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(http.MethodPut, "/v1/checkout/"+id+"/batch", map[string]string{"batchId": "b2"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 360.0, decode(t, w)["total"])

	w = f.do(http.MethodPut, "/v1/checkout/"+id+"/batch", map[string]string{"batchId": "nope"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(http.MethodPost, "/v1/checkout/"+id+"/submit", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "auth_required", decode(t, w)["code"])
	assert.Empty(t, f.upstream.lastTicketAuth())

	f.login()

	w = f.do(http.MethodPost, "/v1/checkout/"+id+"/submit", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body = decode(t, w)
	assert.Equal(t, "awaiting_payment", body["phase"])
	assert.Equal(t, false, body["loading"])
	assert.Equal(t, "00020126PIX", body["order"].(map[string]interface{})["qr_code"])
	assert.Equal(t, "/v1/checkout/"+id+"/qr.png", body["qrCodeUrl"])
	assert.Equal(t, "Bearer tok", f.upstream.lastTicketAuth())

	w = f.do(http.MethodPatch, "/v1/checkout/"+id+"/quantity", map[string]int{"delta": 1})
	assert.Equal(t, http.StatusConflict, w.Code)
	w = f.do(http.MethodPost, "/v1/checkout/"+id+"/submit", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = f.do(http.MethodPost, "/v1/checkout/"+id+"/copy", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "00020126PIX", decode(t, w)["paymentCode"])

	w = f.do(http.MethodGet, "/v1/checkout/"+id, nil)
	assert.Equal(t, true, decode(t, w)["copied"])

	w = f.do(http.MethodGet, "/v1/checkout/"+id+"/qr.png", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")))

	w = f.do(http.MethodDelete, "/v1/checkout/"+id, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = f.do(http.MethodGet, "/v1/checkout/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCheckoutStartOptions(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/v1/checkout", map[string]interface{}{"eventId": "evt-1", "batchId": "b2", "quantity": 50})
	require.Equal(t, http.StatusCreated, w.Code)
	body := decode(t, w)
	assert.Equal(t, 10.0, body["quantity"])
	assert.Equal(t, 1200.0, body["total"])

	w = f.do(http.MethodPost, "/v1/checkout", map[string]interface{}{"eventId": "sold-out"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = f.do(http.MethodPost, "/v1/checkout", map[string]interface{}{"eventId": "missing"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(http.MethodPost, "/v1/checkout", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCheckoutBelongsToItsBrowser(t *testing.T) {
	f := newFixture(t)
	id := f.startCheckout(map[string]interface{}{"eventId": "evt-1"})

	other := f.browser()
	w := other.do(http.MethodGet, "/v1/checkout/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = other.do(http.MethodDelete, "/v1/checkout/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSubmitFailuresKeepSelecting(t *testing.T) {
	tests := []struct {
		name   string
		reply  string
		code   string
		notice string
	}{
		{"oversized image", `{"qr_code":"pix","qr_code_base64":"` + strings.Repeat("A", checkout.MaxQRCodeBase64Len+1) + `"}`, "payment_payload_too_large", checkout.NoticePayloadTooLarge},
		{"no payment code", `{"id":"ord-1"}`, "ticket_creation_failed", checkout.NoticeCreationFailed},
		{"empty body", ``, "ticket_creation_failed", checkout.NoticeCreationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.upstream.set(func(u *upstream) { u.ticketReply = tt.reply })
			id := f.startCheckout(map[string]interface{}{"eventId": "evt-1"})
			f.login()

			w := f.do(http.MethodPost, "/v1/checkout/"+id+"/submit", nil)
			require.Equal(t, http.StatusBadGateway, w.Code)
			body := decode(t, w)
			assert.Equal(t, tt.code, body["code"])
			assert.Equal(t, tt.notice, body["message"])

			w = f.do(http.MethodGet, "/v1/checkout/"+id, nil)
			body = decode(t, w)
			assert.Equal(t, "selecting", body["phase"])
			assert.Equal(t, false, body["loading"])
			assert.Nil(t, body["order"])
			assert.Equal(t, tt.notice, body["error"])
		})
	}
}

func TestSubmitReleasesLoadingWhenClientLeaves(t *testing.T) {
	f := newFixtureWithStore(t, func(s checkout.Store) checkout.Store { return ctxStore{Store: s} })
	id := f.startCheckout(map[string]interface{}{"eventId": "evt-1"})
	f.login()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.upstream.set(func(u *upstream) { u.onTicket = cancel })

	w := f.doContext(ctx, http.MethodPost, "/v1/checkout/"+id+"/submit", nil)
	assert.NotEqual(t, http.StatusInternalServerError, w.Code, w.Body.String())

	w = f.do(http.MethodGet, "/v1/checkout/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode(t, w)["loading"])
}

func TestAuth(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodGet, "/v1/auth/session", nil)
	assert.Equal(t, false, decode(t, w)["isLoggedIn"])

	w = f.do(http.MethodPost, "/v1/auth/login", map[string]string{"email": "ana@example.com", "password": "wrong"})
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "invalid_credentials", decode(t, w)["code"])

	f.login()
	w = f.do(http.MethodGet, "/v1/auth/session", nil)
	body := decode(t, w)
	assert.Equal(t, true, body["isLoggedIn"])
	assert.Equal(t, "Ana", body["user"].(map[string]interface{})["name"])
	assert.NotContains(t, w.Body.String(), "tok\"")

	w = f.do(http.MethodPost, "/v1/auth/logout", nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = f.do(http.MethodGet, "/v1/auth/session", nil)
	assert.Equal(t, false, decode(t, w)["isLoggedIn"])
}

func TestRegister(t *testing.T) {
	f := newFixture(t)
	form := func(email, confirm string) map[string]string {
		return map[string]string{
			"name": "Bia", "email": email, "phoneNumber": "11988887777",
			"password": "secret1", "confirmPassword": confirm,
		}
	}

	w := f.do(http.MethodPost, "/v1/auth/register", form("bia@example.com", "different"))
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Passwords do not match.", decode(t, w)["message"])

	w = f.do(http.MethodPost, "/v1/auth/register", form("taken@example.com", "secret1"))
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "registration_conflict", decode(t, w)["code"])

	w = f.do(http.MethodPost, "/v1/auth/register", form("bia@example.com", "secret1"))
	require.Equal(t, http.StatusCreated, w.Code)

	w = f.do(http.MethodGet, "/v1/auth/session", nil)
	assert.Equal(t, false, decode(t, w)["isLoggedIn"])
}

func TestMyTickets(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodGet, "/v1/me/tickets", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	f.login()

	w = f.do(http.MethodGet, "/v1/me/tickets", nil)
	require.Equal(t, http.StatusOK, w.Code)
	groups := decode(t, w)["events"].([]interface{})
	require.Len(t, groups, 2)
	first := groups[0].(map[string]interface{})
	assert.Equal(t, "evt-1", first["eventId"])
	tickets := first["tickets"].([]interface{})
	require.Len(t, tickets, 2)
	assert.Equal(t, "https://shop.example.com/tickets/TK-001", tickets[0].(map[string]interface{})["shareLink"])

	w = f.do(http.MethodGet, "/v1/me/tickets?status=USED", nil)
	require.Equal(t, http.StatusOK, w.Code)
	groups = decode(t, w)["events"].([]interface{})
	require.Len(t, groups, 1)
	assert.Equal(t, "evt-2", groups[0].(map[string]interface{})["eventId"])

	w = f.do(http.MethodGet, "/v1/me/tickets?status=LOST", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(http.MethodPost, "/v1/me/tickets/TK-003/copy", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(http.MethodGet, "/v1/me/tickets", nil)
	groups = decode(t, w)["events"].([]interface{})
	tickets = groups[0].(map[string]interface{})["tickets"].([]interface{})
	assert.Equal(t, false, tickets[0].(map[string]interface{})["copied"])
	assert.Equal(t, true, tickets[1].(map[string]interface{})["copied"])

	w = f.do(http.MethodGet, "/v1/me", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Ana", decode(t, w)["name"])
}
