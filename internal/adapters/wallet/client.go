package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const defaultHTTPTimeout = 10 * time.Second

// Client implements Ledger against an external balance service. Each debit
// and credit carries a fresh transfer id so the remote side can deduplicate
// retried requests.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates an HTTP wallet client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: defaultHTTPTimeout},
	}
}

type transferRequest struct {
	TransferID string `json:"transfer_id"`
	Account    string `json:"account"`
	Amount     int64  `json:"amount"`
}

type transferResponse struct {
	Balance int64  `json:"balance"`
	Error   string `json:"error"`
}

func (c *Client) post(ctx context.Context, path, account string, amount int64) (*transferResponse, int, error) {
	body, err := json.Marshal(transferRequest{
		TransferID: uuid.NewString(),
		Account:    account,
		Amount:     amount,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("wallet: marshal transfer: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, 0, fmt.Errorf("wallet: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("wallet: %w", err)
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)
	var data transferResponse
	_ = json.Unmarshal(respBody, &data)
	return &data, resp.StatusCode, nil
}

// Debit removes amount from the remote account.
func (c *Client) Debit(ctx context.Context, account string, amount int64) error {
	data, status, err := c.post(ctx, "/api/balance/debit", account, amount)
	if err != nil {
		return err
	}
	switch status {
	case http.StatusOK:
		return nil
	case http.StatusPaymentRequired, http.StatusConflict:
		return fmt.Errorf("wallet: %s: %w", data.Error, ErrInsufficientFunds)
	case http.StatusNotFound:
		return fmt.Errorf("wallet: %s: %w", data.Error, ErrUnknownAccount)
	default:
		return fmt.Errorf("wallet: debit status %d: %w", status, ErrTransferRejected)
	}
}

// Credit adds amount to the remote account.
func (c *Client) Credit(ctx context.Context, account string, amount int64) error {
	data, status, err := c.post(ctx, "/api/balance/credit", account, amount)
	if err != nil {
		return err
	}
	switch status {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
		return fmt.Errorf("wallet: %s: %w", data.Error, ErrUnknownAccount)
	default:
		return fmt.Errorf("wallet: credit status %d: %w", status, ErrTransferRejected)
	}
}

// Balance returns the remote account balance.
func (c *Client) Balance(ctx context.Context, account string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/balance/"+account, nil)
	if err != nil {
		return 0, fmt.Errorf("wallet: build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("wallet: %w", err)
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)
	var data transferResponse
	_ = json.Unmarshal(respBody, &data)
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("wallet: %s: %w", data.Error, ErrUnknownAccount)
	}
	return data.Balance, nil
}
