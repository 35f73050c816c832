// Package identity adapts a GoTrue-style auth service (the API behind
// Supabase Auth) to the IdentityProvider port. Credentials never touch the
// rest of the application.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"flash-code/internal/domain"
	"flash-code/internal/domain/ports/adapter"
)

var _ adapter.IdentityProvider = (*GoTrueProvider)(nil)

// GoTrueProvider talks to the auth service over REST. The service key is the
// privileged key used for admin account creation and session revocation.
type GoTrueProvider struct {
	baseURL    string
	serviceKey string
	client     *http.Client
}

func NewGoTrueProvider(baseURL, serviceKey string, timeout time.Duration) (*GoTrueProvider, error) {
	if _, err := url.Parse(baseURL); err != nil || baseURL == "" {
		return nil, fmt.Errorf("invalid identity base url: %w", err)
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &GoTrueProvider{
		baseURL:    strings.TrimRight(baseURL, "/"),
		serviceKey: serviceKey,
		client:     &http.Client{Timeout: timeout},
	}, nil
}

type gotrueUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type gotrueError struct {
	Message string `json:"msg"`
	Error   string `json:"error_description"`
}

func (e gotrueError) text() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Error
}

// Authenticate exchanges email/password for a session via the password grant.
func (p *GoTrueProvider) Authenticate(ctx context.Context, email, password string) (*adapter.Account, error) {
	payload := map[string]string{"email": email, "password": password}
	var out struct {
		User gotrueUser `json:"user"`
	}
	status, gerr, err := p.post(ctx, "/token?grant_type=password", payload, false, &out)
	if err != nil {
		return nil, err
	}
	if status == http.StatusBadRequest || status == http.StatusUnauthorized {
		return nil, domain.ErrAuthFailed
	}
	if status != http.StatusOK || out.User.ID == "" {
		return nil, fmt.Errorf("identity authenticate: unexpected response %d: %s", status, gerr.text())
	}
	return &adapter.Account{ID: out.User.ID, Email: out.User.Email}, nil
}

// CreateAccount registers a confirmed account through the admin API.
func (p *GoTrueProvider) CreateAccount(ctx context.Context, email, password, displayName string) (*adapter.Account, error) {
	payload := map[string]any{
		"email":         email,
		"password":      password,
		"email_confirm": true,
		"user_metadata": map[string]string{"display_name": displayName},
	}
	var out gotrueUser
	status, gerr, err := p.post(ctx, "/admin/users", payload, true, &out)
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnprocessableEntity ||
		strings.Contains(gerr.text(), "already been registered") ||
		strings.Contains(gerr.text(), "already registered") {
		return nil, domain.ErrAlreadyRegistered
	}
	if (status != http.StatusOK && status != http.StatusCreated) || out.ID == "" {
		return nil, fmt.Errorf("identity create account: unexpected response %d: %s", status, gerr.text())
	}
	return &adapter.Account{ID: out.ID, Email: out.Email}, nil
}

// EndSession revokes every session the account holds.
func (p *GoTrueProvider) EndSession(ctx context.Context, accountID string) error {
	status, gerr, err := p.post(ctx, "/admin/users/"+url.PathEscape(accountID)+"/logout", nil, true, nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK && status != http.StatusNoContent {
		return fmt.Errorf("identity end session: unexpected response %d: %s", status, gerr.text())
	}
	return nil
}

func (p *GoTrueProvider) post(ctx context.Context, path string, payload any, privileged bool, out any) (int, gotrueError, error) {
	var body *bytes.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return 0, gotrueError{}, err
		}
		body = bytes.NewReader(b)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, body)
	if err != nil {
		return 0, gotrueError{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if privileged {
		if p.serviceKey == "" {
			return 0, gotrueError{}, errors.New("identity service key not configured")
		}
		req.Header.Set("Authorization", "Bearer "+p.serviceKey)
		req.Header.Set("apikey", p.serviceKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, gotrueError{}, err
	}
	defer resp.Body.Close()

	// Decode into both the caller's shape and the error shape; bodies are
	// small and one of the two will simply stay zero.
	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		raw = nil
	}
	var gerr gotrueError
	if raw != nil {
		_ = json.Unmarshal(raw, &gerr)
		if out != nil {
			_ = json.Unmarshal(raw, out)
		}
	}
	return resp.StatusCode, gerr, nil
}
