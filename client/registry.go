package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// Contract represents a registered contract as returned by the API.
type Contract struct {
	Address string   `json:"address"`
	Token   string   `json:"token"`
	Wallets []string `json:"wallets"`
}

// Transaction represents a recorded contract transaction.
type Transaction struct {
	ContractAddress string `json:"contract_address"`
	Type            string `json:"type"`
	Details         string `json:"details"`
	Timestamp       string `json:"timestamp"`
}

// Rescue represents a recorded rescue operation. TokenIDs is nil when the
// rescue was created without token ids.
type Rescue struct {
	Owner           string  `json:"owner"`
	Type            string  `json:"type"`
	ContractAddress string  `json:"contract_address"`
	Amount          float64 `json:"amount"`
	TokenIDs        []int64 `json:"token_ids"`
	Timestamp       string  `json:"timestamp"`
}

// CreateContractRequest is the request payload for registering a contract.
type CreateContractRequest struct {
	Address string   `json:"address"`
	Token   string   `json:"token"`
	Wallets []string `json:"wallets"`
	Owner   string   `json:"owner"`
}

// CreateTransactionRequest is the request payload for recording a transaction.
type CreateTransactionRequest struct {
	ContractAddress string `json:"contractAddress"`
	Type            string `json:"type"`
	Details         string `json:"details"`
	Timestamp       string `json:"timestamp"`
}

// CreateRescueRequest is the request payload for recording a rescue.
// A nil TokenIDs is sent as JSON null and stored as NULL.
type CreateRescueRequest struct {
	Owner           string  `json:"owner"`
	Type            string  `json:"type"`
	ContractAddress string  `json:"contractAddress"`
	Amount          float64 `json:"amount"`
	TokenIDs        []int64 `json:"tokenIds,omitempty"`
	Timestamp       string  `json:"timestamp"`
}

// Client is the HTTP client for the contract rescue registry service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new registry service client.
func NewClient(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// CreateContract registers a new contract.
func (c *Client) CreateContract(ctx context.Context, req CreateContractRequest) error {
	if err := c.post(ctx, "/contracts", req); err != nil {
		return err
	}
	c.logger.Debug("contract created", "address", req.Address, "owner", req.Owner)
	return nil
}

// ListContracts retrieves all contracts registered for an owner.
func (c *Client) ListContracts(ctx context.Context, owner string) ([]*Contract, error) {
	var contracts []*Contract
	u := fmt.Sprintf("%s/contracts/%s", c.baseURL, url.PathEscape(owner))
	if err := c.get(ctx, u, &contracts); err != nil {
		return nil, err
	}
	return contracts, nil
}

// CreateTransaction records a transaction for a contract.
func (c *Client) CreateTransaction(ctx context.Context, req CreateTransactionRequest) error {
	if err := c.post(ctx, "/transactions", req); err != nil {
		return err
	}
	c.logger.Debug("transaction created", "contract", req.ContractAddress, "type", req.Type)
	return nil
}

// ListTransactions retrieves all transactions recorded for a contract address.
func (c *Client) ListTransactions(ctx context.Context, contractAddress string) ([]*Transaction, error) {
	var transactions []*Transaction
	u := fmt.Sprintf("%s/transactions/%s", c.baseURL, url.PathEscape(contractAddress))
	if err := c.get(ctx, u, &transactions); err != nil {
		return nil, err
	}
	return transactions, nil
}

// CreateRescue records a rescue operation.
func (c *Client) CreateRescue(ctx context.Context, req CreateRescueRequest) error {
	if err := c.post(ctx, "/rescues", req); err != nil {
		return err
	}
	c.logger.Debug("rescue created", "owner", req.Owner, "contract", req.ContractAddress)
	return nil
}

// ListRescues retrieves all rescues recorded for an owner.
func (c *Client) ListRescues(ctx context.Context, owner string) ([]*Rescue, error) {
	var rescues []*Rescue
	u := fmt.Sprintf("%s/rescues/%s", c.baseURL, url.PathEscape(owner))
	if err := c.get(ctx, u, &rescues); err != nil {
		return nil, err
	}
	return rescues, nil
}

// post sends a JSON body and expects a 201 response.
func (c *Client) post(ctx context.Context, path string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return c.parseErrorResponse(resp)
	}

	return nil
}

// get fetches a URL and decodes a 200 JSON response into out.
func (c *Client) get(ctx context.Context, u string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.parseErrorResponse(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// parseErrorResponse extracts the {"error": ...} body from a failed response.
func (c *Client) parseErrorResponse(resp *http.Response) error {
	var errResp struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil || errResp.Error == "" {
		return fmt.Errorf("request failed with status %d", resp.StatusCode)
	}
	return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, errResp.Error)
}
