package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"sync"
	"time"
)

// User is the signed-in identity exposed to the rest of the core
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Session tracks the signed-in identity against the Firebase Identity Toolkit
// REST API. Credential verification is entirely the provider's job; this
// service only holds the resulting identity and fans out auth-state changes.
type Session struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string

	mu           sync.Mutex
	user         *User
	idToken      string
	refreshToken string
	listeners    map[int]func(*User)
	nextListener int
	authError    string
}

type identityError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

type signInResponse struct {
	LocalID      string `json:"localId"`
	Email        string `json:"email"`
	DisplayName  string `json:"displayName"`
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
}

// NewSession creates a session service. The web API key provisions the hosted
// identity provider and is required.
func NewSession() (*Session, error) {
	apiKey := os.Getenv("FIREBASE_WEB_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("FIREBASE_WEB_API_KEY environment variable is required")
	}
	return newSessionWithKey(apiKey), nil
}

func newSessionWithKey(apiKey string) *Session {
	return &Session{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    "https://identitytoolkit.googleapis.com/v1",
		listeners:  make(map[int]func(*User)),
	}
}

// CurrentUser returns the signed-in identity, or nil when signed out
func (s *Session) CurrentUser() *User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil
	}
	copy := *s.user
	return &copy
}

// AuthError returns the last auth failure message, "" when none
func (s *Session) AuthError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authError
}

// ClearAuthError dismisses the auth error slice
func (s *Session) ClearAuthError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authError = ""
}

// OnAuthStateChanged registers a listener called with the new identity on every
// sign-in/out transition. The returned handle unsubscribes.
func (s *Session) OnAuthStateChanged(fn func(*User)) func() {
	s.mu.Lock()
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// SignIn authenticates an email/password pair against the hosted provider
func (s *Session) SignIn(ctx context.Context, email, password string) (*User, error) {
	payload := map[string]interface{}{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}

	var result signInResponse
	if err := s.post(ctx, "accounts:signInWithPassword", payload, &result); err != nil {
		s.setAuthError(err)
		return nil, err
	}

	return s.establish(result), nil
}

// SignUp creates an account and sets the display name
func (s *Session) SignUp(ctx context.Context, name, email, password string) (*User, error) {
	payload := map[string]interface{}{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}

	var result signInResponse
	if err := s.post(ctx, "accounts:signUp", payload, &result); err != nil {
		s.setAuthError(err)
		return nil, err
	}

	if name != "" {
		update := map[string]interface{}{
			"idToken":           result.IDToken,
			"displayName":       name,
			"returnSecureToken": false,
		}
		var updated signInResponse
		if err := s.post(ctx, "accounts:update", update, &updated); err != nil {
			// Account exists; a failed rename is not fatal
			log.Printf("⚠️  Failed to set display name: %v", err)
		} else {
			result.DisplayName = updated.DisplayName
		}
	}

	return s.establish(result), nil
}

// SendPasswordReset asks the provider to email a reset link
func (s *Session) SendPasswordReset(ctx context.Context, email string) error {
	payload := map[string]interface{}{
		"requestType": "PASSWORD_RESET",
		"email":       email,
	}

	var result struct {
		Email string `json:"email"`
	}
	if err := s.post(ctx, "accounts:sendOobCode", payload, &result); err != nil {
		s.setAuthError(err)
		return err
	}
	return nil
}

// SignOut clears the identity and notifies listeners. Trip teardown is wired
// through an auth-state listener so signing out always releases the active trip.
func (s *Session) SignOut() {
	s.mu.Lock()
	s.user = nil
	s.idToken = ""
	s.refreshToken = ""
	s.authError = ""
	listeners := s.snapshotListeners()
	s.mu.Unlock()

	log.Println("🔴 Signed out")
	for _, fn := range listeners {
		fn(nil)
	}
}

// establish stores the authenticated identity and notifies listeners
func (s *Session) establish(result signInResponse) *User {
	name := result.DisplayName
	if name == "" {
		name = "You"
	}

	user := &User{ID: result.LocalID, Name: name, Email: result.Email}

	s.mu.Lock()
	s.user = user
	s.idToken = result.IDToken
	s.refreshToken = result.RefreshToken
	s.authError = ""
	listeners := s.snapshotListeners()
	s.mu.Unlock()

	log.Printf("✅ Signed in: %s", user.Email)

	copy := *user
	for _, fn := range listeners {
		fn(&copy)
	}
	return user
}

// snapshotListeners must be called with the mutex held
func (s *Session) snapshotListeners() []func(*User) {
	listeners := make([]func(*User), 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	return listeners
}

func (s *Session) setAuthError(err error) {
	s.mu.Lock()
	s.authError = err.Error()
	s.mu.Unlock()
}

// post sends a request to an Identity Toolkit endpoint and decodes the result
func (s *Session) post(ctx context.Context, endpoint string, payload interface{}, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	fullURL := fmt.Sprintf("%s/%s?key=%s", s.baseURL, endpoint, s.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fullURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("identity request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr identityError
		if decodeErr := json.NewDecoder(resp.Body).Decode(&apiErr); decodeErr == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("identity provider rejected request: %s", apiErr.Error.Message)
		}
		return fmt.Errorf("identity provider returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
