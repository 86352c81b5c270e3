package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/farellandr/storefront/internal/models"
)

// APIError is a non-2xx answer from the events API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("upstream error: status=%d", e.Status)
	}
	return fmt.Sprintf("upstream error: status=%d message=%s", e.Status, e.Message)
}

// StatusOf returns the upstream status carried by err, or 0 when err did not
// come from an upstream response.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

type APIClient struct {
	baseURL string
	client  *http.Client
	token   string
}

func NewAPIClient(baseURL string, timeout time.Duration) *APIClient {
	return &APIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// WithToken returns a copy of the client that authenticates as token. The
// underlying http.Client is shared.
func (a *APIClient) WithToken(token string) *APIClient {
	cp := *a
	cp.token = token
	return &cp
}

// Login and registration are the only calls made without a bearer token.
func public(method, path string) bool {
	if method != http.MethodPost {
		return false
	}
	return path == "/auth/login" || path == "/user"
}

func (a *APIClient) do(ctx context.Context, method, path string, query url.Values, in, out interface{}) error {
	u := a.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if a.token != "" && !public(method, path) {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var payload struct {
		Message json.RawMessage `json:"message"`
	}
	apiErr := &APIError{Status: resp.StatusCode}
	if json.Unmarshal(raw, &payload) == nil && len(payload.Message) > 0 {
		// Validation failures may carry a list of messages.
		var single string
		var many []string
		switch {
		case json.Unmarshal(payload.Message, &single) == nil:
			apiErr.Message = single
		case json.Unmarshal(payload.Message, &many) == nil:
			apiErr.Message = strings.Join(many, "; ")
		}
	}
	return apiErr
}

func (a *APIClient) ListEvents(ctx context.Context, page, pageSize int) (*models.EventPage, error) {
	query := url.Values{}
	if page > 0 {
		query.Set("page", strconv.Itoa(page))
	}
	if pageSize > 0 {
		query.Set("pageSize", strconv.Itoa(pageSize))
	}

	var out models.EventPage
	if err := a.do(ctx, http.MethodGet, "/events", query, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *APIClient) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	var out models.Event
	if err := a.do(ctx, http.MethodGet, "/events/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateTicket places the order. A 2xx with an empty body yields a nil order.
func (a *APIClient) CreateTicket(ctx context.Context, req models.CreateTicketRequest) (*models.Order, error) {
	var out *models.Order
	if err := a.do(ctx, http.MethodPost, "/ticket", nil, req, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *APIClient) GetUser(ctx context.Context, id string) (*models.UserProfile, error) {
	var out models.UserProfile
	if err := a.do(ctx, http.MethodGet, "/user/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *APIClient) Login(ctx context.Context, email, password string) (*models.LoginResponse, error) {
	in := map[string]string{"email": email, "password": password}

	var out models.LoginResponse
	if err := a.do(ctx, http.MethodPost, "/auth/login", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *APIClient) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	var out models.User
	if err := a.do(ctx, http.MethodPost, "/user", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
