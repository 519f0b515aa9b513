package marketplace

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// serviceResponse is the standard response envelope of the marketplace
// gateway services
type serviceResponse struct {
	Success bool             `json:"success"`
	Data    json.RawMessage  `json:"data"`
	Error   *serviceApiError `json:"error"`
}

type serviceApiError struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// transport is the shared HTTP plumbing for marketplace clients
type transport struct {
	baseURL string
	client  *http.Client
	headers map[string]string
	log     zerolog.Logger
}

func newTransport(baseURL string, headers map[string]string, log zerolog.Logger) *transport {
	return &transport{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		headers: headers,
		log:     log,
	}
}

// postJSON makes a POST request and returns the decoded envelope.
// Transport failures and retryable HTTP statuses map to temporary errors;
// other failures are fatal.
func (t *transport) postJSON(endpoint string, request interface{}) (*serviceResponse, *ApiError) {
	body, err := json.Marshal(request)
	if err != nil {
		return nil, NewFatal("MARSHAL_FAILED", fmt.Sprintf("failed to marshal request: %v", err))
	}

	req, err := http.NewRequest(http.MethodPost, t.baseURL+endpoint, bytes.NewBuffer(body))
	if err != nil {
		return nil, NewFatal("BAD_REQUEST", fmt.Sprintf("failed to build request: %v", err))
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		// Network failure is expected to resolve with time
		return nil, NewTemporary("NETWORK_ERROR", err.Error())
	}
	defer resp.Body.Close()

	if apiErr := classifyStatus(resp.StatusCode); apiErr != nil {
		return nil, apiErr
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewTemporary("NETWORK_ERROR", fmt.Sprintf("failed to read response: %v", err))
	}

	var result serviceResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, NewFatal("MALFORMED_RESPONSE", fmt.Sprintf("failed to parse response: %v", err))
	}

	if !result.Success {
		return nil, envelopeError(result.Error)
	}

	return &result, nil
}

// classifyStatus maps HTTP statuses to the error taxonomy.
// 2xx is success; 429 and 5xx are retryable; everything else is fatal.
func classifyStatus(status int) *ApiError {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusTooManyRequests:
		return NewTemporary("RATE_LIMIT", "rate limited by marketplace")
	case status >= 500:
		return NewTemporary(fmt.Sprintf("HTTP_%d", status), "marketplace service error")
	default:
		return NewFatal(fmt.Sprintf("HTTP_%d", status), "marketplace rejected request")
	}
}

// envelopeError converts a gateway error body into an ApiError
func envelopeError(e *serviceApiError) *ApiError {
	if e == nil {
		return NewTemporary("UNKNOWN", "marketplace returned failure without detail")
	}
	if e.Type == "temporary" {
		return NewTemporary(e.Code, e.Message)
	}
	return NewFatal(e.Code, e.Message)
}
