// Package client talks to the game authority and the identity service over
// HTTP, and to the authority's push hub over a WebSocket.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/oauth2"

	"github.com/freeeve/salvo/internal/wire"
	"github.com/freeeve/salvo/pkg/fleet"
)

// ErrCredentialInactive is returned when a service rejects the bearer
// credential. The caller must re-authenticate; retrying will not help.
var ErrCredentialInactive = errors.New("credential is not active")

// StatusError is a non-2xx response. Body holds the server's message.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Code, e.Body)
}

// Client is an HTTP client for one player's credential.
type Client struct {
	baseURL     string
	identityURL string
	token       string
	httpC       *http.Client
	identC      *http.Client // no bearer transport; introspection sets its own header
	dialer      *websocket.Dialer
}

const requestTimeout = 30 * time.Second

// New creates a client for the authority at baseURL. identityURL may be
// empty, in which case introspection goes to the authority.
func New(baseURL, identityURL, token string) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	if identityURL == "" {
		identityURL = baseURL
	}
	httpC := oauth2.NewClient(context.Background(), oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: token,
		TokenType:   "Bearer",
	}))
	httpC.Timeout = requestTimeout
	return &Client{
		baseURL:     baseURL,
		identityURL: strings.TrimRight(identityURL, "/"),
		token:       token,
		httpC:       httpC,
		identC:      &http.Client{Timeout: requestTimeout},
		dialer:      &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
	}
}

// Token returns the credential this client sends.
func (c *Client) Token() string { return c.token }

// State fetches the full snapshot for a match.
func (c *Client) State(ctx context.Context, gameID string) (*wire.Snapshot, error) {
	body, err := c.do(ctx, http.MethodGet, c.baseURL, "/state?gameId="+url.QueryEscape(gameID), nil)
	if err != nil {
		return nil, err
	}
	return wire.ParseSnapshot(body)
}

// Fire submits an attack on cell.
func (c *Client) Fire(ctx context.Context, gameID string, cell fleet.Cell) (*wire.FireResponse, error) {
	p := wire.PointOf(cell)
	body, err := c.do(ctx, http.MethodPost, c.baseURL, "/fire", wire.FireRequest{
		GameID: gameID,
		Token:  c.token,
		X:      p.X,
		Y:      p.Y,
	})
	if err != nil {
		return nil, err
	}
	var resp wire.FireResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode fire response: %w", err)
	}
	return &resp, nil
}

// SubmitBoard posts a complete board and returns the resulting snapshot.
func (c *Client) SubmitBoard(ctx context.Context, gameID string, board fleet.Board) (*wire.Snapshot, error) {
	body, err := c.do(ctx, http.MethodPost, c.baseURL, "/submit-board", wire.SubmitBoardRequest{
		GameID: gameID,
		Token:  c.token,
		Board:  board.Rows(),
	})
	if err != nil {
		return nil, err
	}
	return wire.ParseSnapshot(body)
}

// Introspect asks the identity service about token. A rejected credential
// is reported as inactive rather than as an error.
func (c *Client) Introspect(ctx context.Context, token string) (*wire.Introspection, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.identityURL+"/auth/introspect", nil)
	if err != nil {
		return nil, err
	}
	// The token being checked may differ from the one this client carries.
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.identC.Do(req)
	if err != nil {
		return nil, fmt.Errorf("introspect: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return &wire.Introspection{Active: false}, nil
	case resp.StatusCode >= 400:
		return nil, &StatusError{Method: http.MethodGet, Path: "/auth/introspect", Code: resp.StatusCode, Body: serverMessage(body)}
	}
	var info wire.Introspection
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("decode introspection: %w", err)
	}
	return &info, nil
}

// JoinDevMatch enters the dev server's matchmaking queue and blocks until
// an opponent joins or ctx is done.
func (c *Client) JoinDevMatch(ctx context.Context) (*wire.Handoff, error) {
	body, err := c.do(ctx, http.MethodPost, c.baseURL, "/match/dev", nil)
	if err != nil {
		return nil, err
	}
	var h wire.Handoff
	if err := json.Unmarshal(body, &h); err != nil {
		return nil, fmt.Errorf("decode hand-off: %w", err)
	}
	return &h, nil
}

// DevLogin obtains a development token from the dev server.
func DevLogin(ctx context.Context, baseURL, name string) (string, error) {
	u := strings.TrimRight(baseURL, "/") + "/auth/dev?name=" + url.QueryEscape(name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}
	resp, err := (&http.Client{Timeout: requestTimeout}).Do(req)
	if err != nil {
		return "", fmt.Errorf("dev login request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("dev login status %d: %s", resp.StatusCode, body)
	}
	var tokens struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokens); err != nil {
		return "", fmt.Errorf("decode tokens: %w", err)
	}
	return tokens.AccessToken, nil
}

func (c *Client) do(ctx context.Context, method, base, path string, payload any) ([]byte, error) {
	var bodyReader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, base+path, bodyReader)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpC.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, fmt.Errorf("%s %s: %w", method, path, ErrCredentialInactive)
	case resp.StatusCode >= 400:
		return nil, &StatusError{Method: method, Path: path, Code: resp.StatusCode, Body: serverMessage(body)}
	}
	return body, nil
}

// serverMessage pulls the human-readable part out of an error body,
// preferring {"error": ...} or {"message": ...}.
func serverMessage(body []byte) string {
	var parsed struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &parsed) == nil {
		if parsed.Error != "" {
			return parsed.Error
		}
		if parsed.Message != "" {
			return parsed.Message
		}
	}
	return strings.TrimSpace(string(body))
}
