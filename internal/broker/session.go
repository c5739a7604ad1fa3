package broker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"
)

// The brokerage issues tokens valid for 24h but recommends renewal
// within 18h; a 5 minute margin keeps an in-flight request from ever
// using a token at the edge of its lifetime.
const (
	tokenLifetime     = 18 * time.Hour
	tokenSafetyMargin = 5 * time.Minute
)

// Session owns the brokerage access token and its freshness. Only the
// single worker goroutine calls Token or mutates session state; that
// single-writer invariant is why there is no lock here. Extending the
// engine to multiple workers would require serializing refreshes.
type Session struct {
	baseURL   string
	appKey    string
	appSecret string
	tokenFile string
	client    *http.Client

	token    string
	issuedAt time.Time

	now func() time.Time // test hook
}

// NewSession creates a session and loads any previously persisted token
// so restarts within the token lifetime do not burn an issuance.
func NewSession(baseURL, appKey, appSecret, tokenFile string, client *http.Client) *Session {
	s := &Session{
		baseURL:   baseURL,
		appKey:    appKey,
		appSecret: appSecret,
		tokenFile: tokenFile,
		client:    client,
		now:       time.Now,
	}
	s.loadSaved()
	return s
}

// Token returns a credential guaranteed to be younger than
// lifetime - safetyMargin, requesting a fresh one from the brokerage
// exactly when that threshold is crossed and never on a timer.
func (s *Session) Token(ctx context.Context) (string, error) {
	if s.token == "" || s.now().Sub(s.issuedAt) >= tokenLifetime-tokenSafetyMargin {
		if err := s.refresh(ctx); err != nil {
			return "", err
		}
	}
	return s.token, nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

func (s *Session) refresh(ctx context.Context) error {
	body, err := json.Marshal(map[string]string{
		"grant_type": "client_credentials",
		"appkey":     s.appKey,
		"appsecret":  s.appSecret,
	})
	if err != nil {
		return &AuthError{Op: "marshal token request", Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/oauth2/tokenP", bytes.NewReader(body))
	if err != nil {
		return &AuthError{Op: "build token request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return &AuthError{Op: "request token", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &AuthError{Op: "request token", Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return &AuthError{Op: "decode token", Err: err}
	}
	if tr.AccessToken == "" {
		return &AuthError{Op: "decode token", Err: fmt.Errorf("empty access_token")}
	}

	s.token = tr.AccessToken
	s.issuedAt = s.now()
	s.save()
	log.Println("[INFO] access token refreshed")
	return nil
}

type savedToken struct {
	AccessToken string    `json:"access_token"`
	IssuedAt    time.Time `json:"issued_at"`
}

func (s *Session) loadSaved() {
	if s.tokenFile == "" {
		return
	}
	data, err := os.ReadFile(s.tokenFile)
	if err != nil {
		return
	}
	var st savedToken
	if err := json.Unmarshal(data, &st); err != nil {
		log.Printf("[WARN] parse saved token: %v", err)
		return
	}
	s.token = st.AccessToken
	s.issuedAt = st.IssuedAt
}

func (s *Session) save() {
	if s.tokenFile == "" {
		return
	}
	data, err := json.MarshalIndent(savedToken{AccessToken: s.token, IssuedAt: s.issuedAt}, "", "  ")
	if err != nil {
		log.Printf("[WARN] marshal token: %v", err)
		return
	}
	if err := os.WriteFile(s.tokenFile, data, 0600); err != nil {
		log.Printf("[WARN] persist token: %v", err)
	}
}
