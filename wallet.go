package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrInsufficientFunds is returned by Debit when the wallet balance cannot
// cover the requested amount.
var ErrInsufficientFunds = errors.New("insufficient funds")

// Wallet is the coin-ledger collaborator. The game server only ever debits an
// entry fee before a ranked match and credits a reward after a win; everything
// else about accounts lives outside this process.
type Wallet interface {
	Debit(userID string, amount int, reason string) (balance int, err error)
	Credit(userID string, amount int, reason string) (balance int, err error)
}

// httpWallet talks JSON to the platform's wallet API.
type httpWallet struct {
	baseURL string
	client  *http.Client
}

// NewHTTPWallet creates a wallet client against the given base URL.
func NewHTTPWallet(baseURL string) Wallet {
	return &httpWallet{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

type walletRequest struct {
	UserID string `json:"userId"`
	Amount int    `json:"amount"`
	Reason string `json:"reason"`
}

type walletResponse struct {
	Balance int    `json:"balance"`
	Error   string `json:"error"`
}

func (w *httpWallet) post(path, userID string, amount int, reason string) (int, error) {
	body, err := json.Marshal(walletRequest{UserID: userID, Amount: amount, Reason: reason})
	if err != nil {
		return 0, err
	}
	resp, err := w.client.Post(w.baseURL+path, "application/json", bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	var wr walletResponse
	if err := json.NewDecoder(resp.Body).Decode(&wr); err != nil {
		return 0, fmt.Errorf("wallet response: %w", err)
	}
	if resp.StatusCode == http.StatusPaymentRequired {
		return wr.Balance, ErrInsufficientFunds
	}
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("wallet %s: status %d: %s", path, resp.StatusCode, wr.Error)
	}
	return wr.Balance, nil
}

func (w *httpWallet) Debit(userID string, amount int, reason string) (int, error) {
	return w.post("/spend", userID, amount, reason)
}

func (w *httpWallet) Credit(userID string, amount int, reason string) (int, error) {
	return w.post("/earn", userID, amount, reason)
}

// noopWallet accepts every transaction. Used when no wallet API is configured
// so free play keeps working without the collaborator.
type noopWallet struct{}

func (noopWallet) Debit(string, int, string) (int, error)  { return 0, nil }
func (noopWallet) Credit(string, int, string) (int, error) { return 0, nil }
