package paystack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"storefront/internal/gateway"
)

const (
	DefaultBaseURL = "https://api.paystack.co"
	DefaultTimeout = 10 * time.Second

	maxBodyBytes = 1 << 20
)

// ゲートウェイ呼び出しの計測（nil可）
type Observer interface {
	ObserveGatewayCall(operation string, outcome string, d time.Duration)
}

type Client struct {
	baseURL   string
	secretKey string
	timeout   time.Duration
	http      *http.Client
	observer  Observer
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

func NewClient(baseURL, secretKey string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		secretKey: secretKey,
		timeout:   DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: c.timeout}
	}
	return c
}

var _ gateway.PaymentGateway = (*Client)(nil)

type initializeRequest struct {
	Email       string `json:"email"`
	Amount      int64  `json:"amount"`
	Reference   string `json:"reference"`
	CallbackURL string `json:"callback_url,omitempty"`
}

type initializeResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	} `json:"data"`
}

type verifyResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Status    string `json:"status"`
		Amount    int64  `json:"amount"`
		Reference string `json:"reference"`
	} `json:"data"`
}

// 決済セッションを作成する（amount は補助単位）
func (c *Client) Initialize(ctx context.Context, req gateway.InitializeRequest) (gateway.InitializeResult, error) {
	body, err := json.Marshal(initializeRequest{
		Email:       req.Email,
		Amount:      req.AmountMinor,
		Reference:   req.Reference,
		CallbackURL: req.CallbackURL,
	})
	if err != nil {
		return gateway.InitializeResult{}, err
	}

	raw, err := c.do(ctx, "initialize", http.MethodPost, "/transaction/initialize", body)
	if err != nil {
		return gateway.InitializeResult{}, err
	}

	var resp initializeResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return gateway.InitializeResult{OK: false, Raw: raw}, nil
	}
	if !resp.Status || resp.Data.AuthorizationURL == "" {
		return gateway.InitializeResult{OK: false, Raw: raw}, nil
	}

	return gateway.InitializeResult{
		OK:               true,
		AuthorizationURL: resp.Data.AuthorizationURL,
		AccessCode:       resp.Data.AccessCode,
		Raw:              raw,
	}, nil
}

// reference の確定ステータスを問い合わせる
func (c *Client) Verify(ctx context.Context, reference string) (gateway.VerifyResult, error) {
	raw, err := c.do(ctx, "verify", http.MethodGet, "/transaction/verify/"+url.PathEscape(reference), nil)
	if err != nil {
		return gateway.VerifyResult{}, err
	}

	var resp verifyResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return gateway.VerifyResult{OK: false, Raw: raw}, nil
	}
	if !resp.Status || resp.Data.Status == "" {
		return gateway.VerifyResult{OK: false, Raw: raw}, nil
	}

	return gateway.VerifyResult{
		OK:          true,
		Status:      resp.Data.Status,
		AmountMinor: resp.Data.Amount,
		Raw:         raw,
	}, nil
}

// do returns the response body when it is valid JSON. Transport failures and
// non-JSON bodies are reported as gateway.ErrUnavailable.
func (c *Client) do(ctx context.Context, op, method, path string, body []byte) (raw json.RawMessage, err error) {
	start := time.Now()
	defer func() {
		if c.observer != nil {
			c.observer.ObserveGatewayCall(op, outcome(raw, err), time.Since(start))
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", gateway.ErrUnavailable, method, path, err)
	}
	defer func() { _ = res.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", gateway.ErrUnavailable, err)
	}

	// 2xx以外でもJSONが返っていれば「拒否」として扱う
	if !json.Valid(data) {
		return nil, fmt.Errorf("%w: %s %s: status %d with unparseable body", gateway.ErrUnavailable, method, path, res.StatusCode)
	}
	return data, nil
}

func outcome(raw json.RawMessage, err error) string {
	if err != nil {
		return "unavailable"
	}
	var probe struct {
		Status bool `json:"status"`
	}
	if json.Unmarshal(raw, &probe) != nil || !probe.Status {
		return "rejected"
	}
	return "ok"
}
