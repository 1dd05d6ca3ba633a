package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// Executor drives the banking HTTP edge. Accounts have no create
// endpoint of their own — the registry spawns an account's actor
// lazily on its first request — so Executor only ever issues the
// mutation/read endpoints the edge actually exposes.
type Executor struct {
	client            *http.Client
	baseURL           string
	currency          string
	secondaryCurrency string
}

func New(baseURL, currency, secondaryCurrency string) *Executor {
	return &Executor{
		client: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        1000,
				MaxIdleConnsPerHost: 100,
				MaxConnsPerHost:     100,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		baseURL:           baseURL,
		currency:          currency,
		secondaryCurrency: secondaryCurrency,
	}
}

func (e *Executor) Deposit(ctx context.Context, accountID string, amount float64) error {
	payload := map[string]interface{}{"amount": int(amount), "currency": e.currency}
	_, err := e.post(ctx, fmt.Sprintf("/accounts/%s/deposit", accountID), payload)
	return err
}

func (e *Executor) Withdraw(ctx context.Context, accountID string, amount float64) error {
	payload := map[string]interface{}{"amount": int(amount), "currency": e.currency}
	_, err := e.post(ctx, fmt.Sprintf("/accounts/%s/withdraw", accountID), payload)
	return err
}

func (e *Executor) Transfer(ctx context.Context, fromID, toID string, amount float64) error {
	toIDInt, err := strconv.Atoi(toID)
	if err != nil {
		return fmt.Errorf("invalid to account ID: %w", err)
	}

	payload := map[string]interface{}{
		"amount":               int(amount),
		"currency":             e.currency,
		"recipient_account_id": toIDInt,
	}
	_, err = e.post(ctx, fmt.Sprintf("/accounts/%s/transfer", fromID), payload)
	return err
}

func (e *Executor) CardTransaction(ctx context.Context, accountID string, amount float64, cardID string) error {
	payload := map[string]interface{}{"amount": int(amount), "currency": e.currency, "card_id": cardID}
	_, err := e.post(ctx, fmt.Sprintf("/accounts/%s/card-transactions", accountID), payload)
	return err
}

func (e *Executor) Exchange(ctx context.Context, accountID string, amount float64) error {
	payload := map[string]interface{}{
		"amount":       int(amount),
		"currency":     e.currency,
		"new_currency": e.secondaryCurrency,
	}
	_, err := e.post(ctx, fmt.Sprintf("/accounts/%s/exchange", accountID), payload)
	return err
}

func (e *Executor) GetBalance(ctx context.Context, accountID string) (float64, error) {
	resp, err := e.get(ctx, fmt.Sprintf("/accounts/%s/balance?currency=%s", accountID, e.currency))
	if err != nil {
		return 0, err
	}

	var result struct {
		Balance float64 `json:"balance"`
	}

	if err := json.Unmarshal(resp, &result); err != nil {
		return 0, fmt.Errorf("failed to parse balance response: %w", err)
	}

	return result.Balance, nil
}

func (e *Executor) post(ctx context.Context, path string, payload interface{}) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", e.baseURL+path, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Load-Test", "true")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	var respBody bytes.Buffer
	if _, err := respBody.ReadFrom(resp.Body); err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, respBody.String())
	}

	return respBody.Bytes(), nil
}

func (e *Executor) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", e.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("X-Load-Test", "true")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	var respBody bytes.Buffer
	if _, err := respBody.ReadFrom(resp.Body); err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, respBody.String())
	}

	return respBody.Bytes(), nil
}
