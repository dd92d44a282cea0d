package zabbix

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// Defaults used when Config leaves a field empty
const (
	DefaultTimeout = 30 * time.Second
	apiPath        = "/api_jsonrpc.php"
)

// Config holds connection settings shared by every session of a Client
type Config struct {
	Timeout   time.Duration
	VerifySSL bool
	ProxyURL  string
	// RateLimit is the number of API calls per second, 0 disables limiting
	RateLimit float64
	RateBurst int
}

// JSONRPCRequest represents a Zabbix JSON-RPC request
type JSONRPCRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
	Auth    string      `json:"auth,omitempty"`
	ID      uint64      `json:"id"`
}

// JSONRPCResponse represents a Zabbix JSON-RPC response
type JSONRPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *APIError       `json:"error,omitempty"`
	ID      uint64          `json:"id"`
}

// APIError represents an error object returned by the Zabbix API
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Zabbix API error: %s (code: %d, data: %s)", e.Message, e.Code, e.Data)
}

// AuthError is returned when a session cannot be opened, either because the
// server is unreachable or because the credentials were rejected
type AuthError struct {
	Server string
	Err    error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("login to %s failed: %v", e.Server, e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// Client talks to Zabbix JSON-RPC endpoints
type Client struct {
	logger     *log.Logger
	httpClient *http.Client
	limiter    *rate.Limiter
	requestID  uint64
}

// NewClient creates a client. A nil logger discards log output.
func NewClient(cfg Config, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	// Explicit proxy only, HTTP_PROXY env vars are ignored
	transport := &http.Transport{Proxy: nil}
	if cfg.ProxyURL != "" {
		proxyURL, err := url.Parse(cfg.ProxyURL)
		if err != nil {
			logger.Printf("Invalid proxy URL %s: %v, proceeding without proxy", cfg.ProxyURL, err)
		} else {
			transport.Proxy = http.ProxyURL(proxyURL)
			logger.Printf("Zabbix using proxy: %s", cfg.ProxyURL)
		}
	}
	if !cfg.VerifySSL {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	return &Client{
		logger: logger,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		limiter: limiter,
	}
}

// APIURL normalizes a server address to its JSON-RPC endpoint
func APIURL(server string) string {
	apiURL := strings.TrimSpace(server)
	if !strings.HasSuffix(apiURL, apiPath) {
		apiURL = strings.TrimSuffix(apiURL, "/") + apiPath
	}
	return apiURL
}

// APIVersion is the major.minor version reported by apiinfo.version
type APIVersion struct {
	Major int
	Minor int
}

// ParseAPIVersion parses strings such as "6.4.0" or "7.0"
func ParseAPIVersion(raw string) (APIVersion, error) {
	parts := strings.Split(strings.TrimSpace(raw), ".")
	if len(parts) < 2 {
		return APIVersion{}, fmt.Errorf("unexpected API version %q", raw)
	}
	major, err := strconv.Atoi(parts[0])
	if err != nil {
		return APIVersion{}, fmt.Errorf("unexpected API version %q", raw)
	}
	minor, err := strconv.Atoi(parts[1])
	if err != nil {
		return APIVersion{}, fmt.Errorf("unexpected API version %q", raw)
	}
	return APIVersion{Major: major, Minor: minor}, nil
}

// AtLeast reports whether v >= major.minor
func (v APIVersion) AtLeast(major, minor int) bool {
	if v.Major != major {
		return v.Major > major
	}
	return v.Minor >= minor
}

func (v APIVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Version asks the server for its API version. No authentication needed.
func (c *Client) Version(ctx context.Context, server string) (APIVersion, error) {
	result, err := c.call(ctx, APIURL(server), "apiinfo.version", []string{}, "", false)
	if err != nil {
		return APIVersion{}, err
	}

	var raw string
	if err := json.Unmarshal(result, &raw); err != nil {
		return APIVersion{}, fmt.Errorf("failed to parse API version: %w", err)
	}
	return ParseAPIVersion(raw)
}

// Login opens an authenticated session
func (c *Client) Login(ctx context.Context, server, user, password string) (*Session, error) {
	apiURL := APIURL(server)

	version, err := c.Version(ctx, server)
	if err != nil {
		return nil, &AuthError{Server: server, Err: err}
	}

	// "user" was renamed to "username" in 5.4 and removed in 6.4
	userKey := "user"
	if version.AtLeast(5, 4) {
		userKey = "username"
	}
	params := map[string]string{
		userKey:    user,
		"password": password,
	}

	result, err := c.call(ctx, apiURL, "user.login", params, "", false)
	if err != nil {
		return nil, &AuthError{Server: server, Err: err}
	}

	var token string
	if err := json.Unmarshal(result, &token); err != nil {
		return nil, &AuthError{Server: server, Err: fmt.Errorf("failed to parse auth token: %w", err)}
	}

	c.logger.Printf("Logged in to %s as %s (API %s)", apiURL, user, version)

	return &Session{
		client:  c,
		apiURL:  apiURL,
		token:   token,
		version: version,
		users:   newUserCache(),
	}, nil
}

// call performs a single JSON-RPC request. With bearer the token travels in
// the Authorization header, otherwise in the "auth" request field.
func (c *Client) call(ctx context.Context, apiURL, method string, params interface{}, auth string, bearer bool) (json.RawMessage, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait cancelled: %w", err)
		}
	}

	req := JSONRPCRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      atomic.AddUint64(&c.requestID, 1),
	}
	if !bearer {
		req.Auth = auth
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	c.logger.Printf("Zabbix API call: %s", method)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json-rpc")
	if bearer && auth != "" {
		httpReq.Header.Set("Authorization", "Bearer "+auth)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("HTTP error %d: %s", resp.StatusCode, string(bodyBytes))
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var rpcResp JSONRPCResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if rpcResp.Error != nil {
		return nil, rpcResp.Error
	}

	return rpcResp.Result, nil
}
