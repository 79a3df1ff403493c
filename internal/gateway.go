package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"
)

// VerifyAction is the only action sent without the stored credential
const VerifyAction = "verifyToken"

// TokenParam carries the credential on every request
const TokenParam = "id_token"

// DefaultRequestTimeout bounds a single round trip
const DefaultRequestTimeout = 30 * time.Second

// maxResponseSize caps how much of a response body is read
const maxResponseSize = 10 << 20

// authFailureMarkers are matched case-insensitively against response errors
var authFailureMarkers = []string{
	"authentication failed",
	"token missing",
	"expired token",
	"invalid token",
}

// Params are the action-specific parameters of a call
type Params map[string]any

// GatewayOption configures a Gateway
type GatewayOption func(*Gateway)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(client *http.Client) GatewayOption {
	return func(g *Gateway) {
		g.client = client
	}
}

// WithAuthFailureHandler sets the forced-logout callback
func WithAuthFailureHandler(fn func()) GatewayOption {
	return func(g *Gateway) {
		g.onAuthFailure = fn
	}
}

// Gateway performs every call to the remote store
type Gateway struct {
	endpoint string
	client   *http.Client
	tokens   TokenStore

	mu            sync.RWMutex
	onAuthFailure func()
}

// NewGateway creates a gateway for endpoint reading credentials from tokens
func NewGateway(endpoint string, tokens TokenStore, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		endpoint: strings.TrimSpace(endpoint),
		client:   &http.Client{Timeout: DefaultRequestTimeout},
		tokens:   tokens,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// SetAuthFailureHandler sets the forced-logout callback after construction
func (g *Gateway) SetAuthFailureHandler(fn func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.onAuthFailure = fn
}

// Endpoint returns the configured remote endpoint
func (g *Gateway) Endpoint() string {
	return g.endpoint
}

func (g *Gateway) forceLogout() {
	g.mu.RLock()
	fn := g.onAuthFailure
	g.mu.RUnlock()
	if fn != nil {
		fn()
	}
}

type envelope struct {
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error"`
}

// Call performs one round trip for action and returns the raw result payload
func (g *Gateway) Call(ctx context.Context, action string, params Params) (json.RawMessage, error) {
	if action == "" {
		return nil, &APIError{Kind: KindConfiguration, Message: "API action not specified"}
	}
	if g.endpoint == "" {
		return nil, &APIError{Kind: KindConfiguration, Action: action, Message: "API endpoint not configured"}
	}

	values, err := EncodeParams(params)
	if err != nil {
		return nil, &APIError{Kind: KindConfiguration, Action: action, Message: "failed to encode parameters", Err: err}
	}
	values.Set("action", action)

	if action != VerifyAction {
		token, err := g.tokens.LoadToken()
		if err != nil {
			LogWarn("Failed to read stored credential: %v", err)
		}
		if token == "" {
			LogError("Action '%s' requires auth, token missing", action)
			g.forceLogout()
			return nil, &APIError{Kind: KindAuthMissing, Action: action, Message: AuthMissingMessage, Err: err}
		}
		values.Set(TokenParam, token)
	}

	reqURL := g.endpoint + "?" + values.Encode()
	if strings.Contains(g.endpoint, "?") {
		reqURL = g.endpoint + "&" + values.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, &APIError{Kind: KindConfiguration, Action: action, Message: "invalid API endpoint", Err: err}
	}

	LogDebug("Calling API action: %s", action)
	start := time.Now()

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, &APIError{Kind: KindRemote, Action: action, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, &APIError{Kind: KindRemote, Action: action, Message: "failed to read response", Err: err}
	}
	LogDebug("API action %s returned %d in %s", action, resp.StatusCode, time.Since(start).Round(time.Millisecond))

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, g.sessionInvalid(action, fmt.Sprintf("status %d", resp.StatusCode))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{
			Kind:    KindRemote,
			Action:  action,
			Message: fmt.Sprintf("API Error: Status %d. Body: %s", resp.StatusCode, truncate(string(body), 200)),
		}
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		LogError("Failed to parse response for %s: %v", action, err)
		return nil, &APIError{Kind: KindProtocol, Action: action, Message: "failed to parse server response", Err: err}
	}

	if env.Error != "" {
		if isAuthFailure(env.Error) {
			return nil, g.sessionInvalid(action, env.Error)
		}
		return nil, &APIError{Kind: KindRemote, Action: action, Message: env.Error}
	}

	return env.Result, nil
}

func (g *Gateway) sessionInvalid(action, reason string) error {
	LogWarn("Backend rejected credential for %s: %s", action, reason)
	g.forceLogout()
	return &APIError{Kind: KindSessionInvalid, Action: action, Message: SessionInvalidMessage}
}

func isAuthFailure(message string) bool {
	lower := strings.ToLower(message)
	for _, marker := range authFailureMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// EncodeParams flattens params into query values. Scalars pass through,
// arrays, maps and structs are sent as their JSON encoding, nil values are dropped.
func EncodeParams(params Params) (url.Values, error) {
	values := url.Values{}
	for key, value := range params {
		if value == nil {
			continue
		}
		encoded, skip, err := encodeParam(reflect.ValueOf(value))
		if err != nil {
			return nil, fmt.Errorf("parameter %s: %w", key, err)
		}
		if !skip {
			values.Set(key, encoded)
		}
	}
	return values, nil
}

func encodeParam(v reflect.Value) (string, bool, error) {
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			return "", true, nil
		}
		return encodeParam(v.Elem())
	case reflect.String:
		return v.String(), false, nil
	case reflect.Bool:
		return strconv.FormatBool(v.Bool()), false, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10), false, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(v.Uint(), 10), false, nil
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(v.Float(), 'f', -1, 64), false, nil
	case reflect.Slice, reflect.Array, reflect.Map, reflect.Struct:
		data, err := json.Marshal(v.Interface())
		if err != nil {
			return "", false, err
		}
		return string(data), false, nil
	default:
		return "", false, fmt.Errorf("unsupported type %s", v.Type())
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
