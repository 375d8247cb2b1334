package paddle

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

	"github.com/JEMsword1976/netflix-skipper/pkg/config"
	"github.com/JEMsword1976/netflix-skipper/pkg/logger"
)

// Client is a thin authenticated client for the Paddle Billing REST API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	verifier   *SignatureVerifier
}

// APIError carries the provider's status code and diagnostic payload.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("paddle: status %d: %s", e.StatusCode, e.Body)
}

// IsNotFound reports whether the provider answered 404.
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// Customer is the subset of Paddle's customer entity the backend reads.
type Customer struct {
	ID     string `json:"id"`
	Email  string `json:"email"`
	Status string `json:"status"`
}

// TransactionItem is a price/quantity line on a checkout transaction.
type TransactionItem struct {
	PriceID  string `json:"price_id"`
	Quantity int    `json:"quantity"`
}

// CreateTransactionRequest creates a hosted-checkout transaction.
type CreateTransactionRequest struct {
	Items      []TransactionItem `json:"items"`
	Customer   *CustomerRef      `json:"customer,omitempty"`
	CustomData map[string]string `json:"custom_data,omitempty"`
}

type CustomerRef struct {
	Email string `json:"email"`
}

// Transaction is the subset of the created transaction the backend reads.
type Transaction struct {
	ID       string `json:"id"`
	Checkout struct {
		URL string `json:"url"`
	} `json:"checkout"`
}

// PortalSession is the customer-portal session the backend reads.
type PortalSession struct {
	ID   string `json:"id"`
	URLs struct {
		General struct {
			Overview string `json:"overview"`
		} `json:"general"`
	} `json:"urls"`
	URL string `json:"url"`
}

// OverviewURL returns the usable portal URL across payload shapes.
func (p PortalSession) OverviewURL() string {
	if p.URLs.General.Overview != "" {
		return p.URLs.General.Overview
	}
	return p.URL
}

// NewClient builds a Paddle client from config.
func NewClient(ctx context.Context, cfg config.PaddleConfig, logg *logger.Logger) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("paddle api key is required")
	}
	secret := strings.TrimSpace(cfg.WebhookSecret)
	if secret == "" {
		return nil, errors.New("paddle webhook secret is required")
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		return nil, errors.New("paddle base url is required")
	}
	if logg != nil {
		logg.Info(ctx, fmt.Sprintf("paddle client initialized (%s)", baseURL))
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		verifier:   NewSignatureVerifier(secret, cfg.MaxSkew),
	}, nil
}

// Verifier returns the webhook signature verifier bound to this client's secret.
func (c *Client) Verifier() *SignatureVerifier {
	if c == nil {
		return nil
	}
	return c.verifier
}

// FindCustomerByEmail looks up a customer by email. A missing customer is
// reported as a 404 APIError so callers can distinguish it from outages.
func (c *Client) FindCustomerByEmail(ctx context.Context, email string) (*Customer, error) {
	query := url.Values{"email": {strings.ToLower(strings.TrimSpace(email))}}
	var out struct {
		Data []Customer `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/customers?"+query.Encode(), nil, &out); err != nil {
		return nil, err
	}
	if len(out.Data) == 0 {
		return nil, &APIError{StatusCode: http.StatusNotFound, Body: "customer not found"}
	}
	return &out.Data[0], nil
}

// GetCustomer fetches a customer by id.
func (c *Client) GetCustomer(ctx context.Context, customerID string) (*Customer, error) {
	if strings.TrimSpace(customerID) == "" {
		return nil, errors.New("customer id is required")
	}
	var out struct {
		Data Customer `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/customers/"+url.PathEscape(customerID), nil, &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

// CreateTransaction creates a checkout transaction and returns it.
func (c *Client) CreateTransaction(ctx context.Context, req CreateTransactionRequest) (*Transaction, error) {
	var out struct {
		Data Transaction `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, "/transactions", req, &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

// CreatePortalSession creates a customer-portal session for the customer.
func (c *Client) CreatePortalSession(ctx context.Context, customerID, returnURL string) (*PortalSession, error) {
	if strings.TrimSpace(customerID) == "" {
		return nil, errors.New("customer id is required")
	}
	body := map[string]string{"customer_id": customerID}
	if returnURL != "" {
		body["return_url"] = returnURL
	}
	var out struct {
		Data PortalSession `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, "/customer-portal-sessions", body, &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, dest any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call paddle: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(payload))}
	}

	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
