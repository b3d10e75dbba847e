// Package defiagent is a Go client for the DeFi agent REST API together with
// the small persisted stores a wallet-connected client keeps between runs.
package defiagent

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"

	"DeFi-Agent/pkg/dto"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DefaultHTTPTimeout is used by clients created without a custom http.Client.
const DefaultHTTPTimeout = 15 * time.Second

// Client wraps the HTTP interactions with the DeFi agent REST API.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	log        *slog.Logger

	mu          sync.RWMutex
	accessToken string
}

// APIError carries the error envelope returned by the server.
type APIError struct {
	dto.ErrorResponse
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	if e.Code != "" {
		return fmt.Sprintf("defiagent api error (%d): %s - %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("defiagent api error (%d): %s", e.StatusCode, e.Message)
}

// NewClient instantiates a client. When httpClient is nil a default client with
// DefaultHTTPTimeout is used.
func NewClient(rawURL string, httpClient *http.Client) (*Client, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	return &Client{baseURL: parsed, httpClient: httpClient, log: slog.Default().With("component", "defiagent-sdk")}, nil
}

// AccessToken returns the currently stored token.
func (c *Client) AccessToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accessToken
}

// SetAccessToken overrides the stored token.
func (c *Client) SetAccessToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accessToken = token
}

func (c *Client) session(ctx context.Context, method, endpoint string, body any) (*dto.SessionResponse, error) {
	var out dto.SessionResponse
	if err := c.call(ctx, method, endpoint, nil, body, &out); err != nil {
		return nil, err
	}
	c.SetAccessToken(out.AccessToken)
	return &out, nil
}

// WalletNonce requests the message a wallet must sign.
func (c *Client) WalletNonce(ctx context.Context, walletAddress string) (*dto.WalletNonceResponse, error) {
	var out dto.WalletNonceResponse
	q := url.Values{"walletAddress": {walletAddress}}
	if err := c.call(ctx, http.MethodGet, "/api/auth/wallet/nonce", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// WalletLogin exchanges a signed nonce for a session and stores its token.
func (c *Client) WalletLogin(ctx context.Context, req dto.WalletLoginRequest) (*dto.SessionResponse, error) {
	return c.session(ctx, http.MethodPost, "/api/auth/wallet/login", req)
}

// Login authenticates with email and password.
func (c *Client) Login(ctx context.Context, email, password string) (*dto.SessionResponse, error) {
	return c.session(ctx, http.MethodPost, "/api/auth/login", dto.LoginRequest{Email: email, Password: password})
}

// Register creates a regular account and logs in.
func (c *Client) Register(ctx context.Context, email, password string) (*dto.SessionResponse, error) {
	return c.session(ctx, http.MethodPost, "/api/auth/register", dto.RegisterRequest{Email: email, Password: password})
}

// Guest starts a guest session.
func (c *Client) Guest(ctx context.Context) (*dto.SessionResponse, error) {
	return c.session(ctx, http.MethodGet, "/api/auth/guest", nil)
}

// Session returns the user behind the stored token.
func (c *Client) Session(ctx context.Context) (*dto.CurrentSession, error) {
	var out dto.CurrentSession
	if err := c.call(ctx, http.MethodGet, "/api/auth/session", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListHistory returns one page of chats.
func (c *Client) ListHistory(ctx context.Context, q dto.HistoryQuery) (*dto.HistoryPage, error) {
	values := url.Values{}
	if q.Limit > 0 {
		values.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.StartingAfter != "" {
		values.Set("starting_after", q.StartingAfter)
	}
	if q.EndingBefore != "" {
		values.Set("ending_before", q.EndingBefore)
	}
	if q.AgentID != nil {
		values.Set("agentId", *q.AgentID)
	}
	var out dto.HistoryPage
	if err := c.call(ctx, http.MethodGet, "/api/history", values, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetChat returns a chat with its messages.
func (c *Client) GetChat(ctx context.Context, id string) (*dto.ChatWithMessages, error) {
	var out dto.ChatWithMessages
	if err := c.call(ctx, http.MethodGet, "/api/chat/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteChat deletes a chat and returns the removed record.
func (c *Client) DeleteChat(ctx context.Context, id string) (*dto.Chat, error) {
	var out dto.Chat
	if err := c.call(ctx, http.MethodDelete, "/api/chat", url.Values{"id": {id}}, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetVotes lists the votes of a chat.
func (c *Client) GetVotes(ctx context.Context, chatID string) ([]dto.Vote, error) {
	var out []dto.Vote
	if err := c.call(ctx, http.MethodGet, "/api/vote", url.Values{"chatId": {chatID}}, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Vote records an up or down vote on a message.
func (c *Client) Vote(ctx context.Context, req dto.VoteRequest) error {
	return c.call(ctx, http.MethodPatch, "/api/vote", nil, req, nil)
}

// GetDocuments returns every version of a document.
func (c *Client) GetDocuments(ctx context.Context, id string) ([]dto.Document, error) {
	var out []dto.Document
	if err := c.call(ctx, http.MethodGet, "/api/document", url.Values{"id": {id}}, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SaveDocument appends a document version.
func (c *Client) SaveDocument(ctx context.Context, id string, req dto.DocumentRequest) (*dto.Document, error) {
	var out dto.Document
	if err := c.call(ctx, http.MethodPost, "/api/document", url.Values{"id": {id}}, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetSuggestions returns the suggestions of a document. Failures are logged
// and produce an empty list.
func (c *Client) GetSuggestions(ctx context.Context, documentID string) []dto.Suggestion {
	var out []dto.Suggestion
	if err := c.call(ctx, http.MethodGet, "/api/suggestions", url.Values{"documentId": {documentID}}, nil, &out); err != nil {
		c.log.Warn("fetch suggestions failed", slog.String("document_id", documentID), slog.Any("error", err))
		return []dto.Suggestion{}
	}
	if out == nil {
		out = []dto.Suggestion{}
	}
	return out
}

// ListAgents lists the registered agents.
func (c *Client) ListAgents(ctx context.Context) ([]dto.Agent, error) {
	var out []dto.Agent
	if err := c.call(ctx, http.MethodGet, "/agents", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetAgent returns one agent.
func (c *Client) GetAgent(ctx context.Context, id string) (*dto.Agent, error) {
	var out dto.Agent
	if err := c.call(ctx, http.MethodGet, "/agents/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListLinks lists every link.
func (c *Client) ListLinks(ctx context.Context) ([]dto.Link, error) {
	var out []dto.Link
	if err := c.call(ctx, http.MethodGet, "/links", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateLink creates a link.
func (c *Client) CreateLink(ctx context.Context, req dto.CreateLinkRequest) (*dto.Link, error) {
	var out dto.Link
	if err := c.call(ctx, http.MethodPost, "/links", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetLink returns one link.
func (c *Client) GetLink(ctx context.Context, id int64) (*dto.Link, error) {
	var out dto.Link
	if err := c.call(ctx, http.MethodGet, linkPath(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateLink changes the non-nil fields of a link.
func (c *Client) UpdateLink(ctx context.Context, id int64, req dto.UpdateLinkRequest) (*dto.Link, error) {
	var out dto.Link
	if err := c.call(ctx, http.MethodPatch, linkPath(id), nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteLink removes a link.
func (c *Client) DeleteLink(ctx context.Context, id int64) error {
	return c.call(ctx, http.MethodDelete, linkPath(id), nil, nil, nil)
}

func linkPath(id int64) string {
	return "/links/" + strconv.FormatInt(id, 10)
}

func (c *Client) call(ctx context.Context, method, endpoint string, query url.Values, payload, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}
	rel := &url.URL{Path: path.Join(c.baseURL.Path, endpoint)}
	if len(query) > 0 {
		rel.RawQuery = query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.ResolveReference(rel).String(), body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.AccessToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read error response: %w", err)
		}
		apiErr := &APIError{}
		if len(data) > 0 {
			_ = json.Unmarshal(data, &apiErr.ErrorResponse)
		}
		apiErr.StatusCode = resp.StatusCode
		if apiErr.Message == "" {
			apiErr.Message = string(bytes.TrimSpace(data))
		}
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
