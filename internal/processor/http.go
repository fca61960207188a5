package processor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultTimeout = 30 * time.Second

// HTTPClient submits charges to a processor gateway over HTTP.
type HTTPClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPClient builds a processor client for the given gateway URL.
func NewHTTPClient(baseURL, apiKey string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

type chargeRequest struct {
	Amount      int64             `json:"amount"`
	Currency    string            `json:"currency"`
	Customer    string            `json:"customer"`
	Description string            `json:"description"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type chargeResponse struct {
	ID    string `json:"id"`
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Charge submits the request and maps any non-2xx response to a *Error.
func (c *HTTPClient) Charge(ctx context.Context, req Request) (Receipt, error) {
	body, err := json.Marshal(chargeRequest{
		Amount:      req.Amount,
		Currency:    strings.ToLower(req.Currency),
		Customer:    req.CustomerID,
		Description: req.Description,
		Metadata:    req.Metadata,
	})
	if err != nil {
		return Receipt{}, fmt.Errorf("encode charge request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/charges", bytes.NewReader(body))
	if err != nil {
		return Receipt{}, fmt.Errorf("build charge request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return Receipt{}, &Error{Code: "network_error", Message: err.Error()}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Receipt{}, &Error{Code: "read_error", Message: err.Error()}
	}

	var decoded chargeResponse
	_ = json.Unmarshal(payload, &decoded)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		procErr := &Error{Code: decoded.Error.Code, Message: decoded.Error.Message}
		if procErr.Message == "" {
			procErr.Message = fmt.Sprintf("HTTP %d", resp.StatusCode)
		}
		return Receipt{}, procErr
	}

	if decoded.ID == "" {
		return Receipt{}, &Error{Code: "invalid_response", Message: "missing charge id"}
	}
	return Receipt{Reference: decoded.ID}, nil
}
