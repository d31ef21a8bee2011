package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestBankLazyAccounts(t *testing.T) {
	ctx := context.Background()
	b := NewBank(WithStartingBalance(1000))

	bal, err := b.Balance(ctx, "alice")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if bal != 1000 {
		t.Fatalf("fresh account balance = %d, want 1000", bal)
	}
}

func TestBankDebitCredit(t *testing.T) {
	ctx := context.Background()
	b := NewBank(WithStartingBalance(500))

	if err := b.Debit(ctx, "alice", 105); err != nil {
		t.Fatalf("debit: %v", err)
	}
	if err := b.Credit(ctx, "alice", 50); err != nil {
		t.Fatalf("credit: %v", err)
	}
	bal, _ := b.Balance(ctx, "alice")
	if bal != 445 {
		t.Fatalf("balance = %d, want 445", bal)
	}
}

func TestBankDebitInsufficient(t *testing.T) {
	ctx := context.Background()
	b := NewBank()

	err := b.Debit(ctx, "alice", 1)
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("debit = %v, want ErrInsufficientFunds", err)
	}
	bal, _ := b.Balance(ctx, "alice")
	if bal != 0 {
		t.Fatalf("failed debit must not move funds, balance = %d", bal)
	}
}

func walletServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL)
}

func TestClientDebit(t *testing.T) {
	ctx := context.Background()
	var got transferRequest
	c := walletServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/balance/debit" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		_ = json.NewEncoder(w).Encode(transferResponse{Balance: 895})
	})

	if err := c.Debit(ctx, "alice", 105); err != nil {
		t.Fatalf("debit: %v", err)
	}
	if got.Account != "alice" || got.Amount != 105 {
		t.Fatalf("request = %+v", got)
	}
	if got.TransferID == "" {
		t.Fatal("debit must carry a transfer id for remote deduplication")
	}
}

func TestClientDebitInsufficient(t *testing.T) {
	ctx := context.Background()
	c := walletServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		_ = json.NewEncoder(w).Encode(transferResponse{Error: "balance too low"})
	})

	if err := c.Debit(ctx, "alice", 105); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("debit = %v, want ErrInsufficientFunds", err)
	}
}

func TestClientCreditUnknownAccount(t *testing.T) {
	ctx := context.Background()
	c := walletServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(transferResponse{Error: "no such account"})
	})

	if err := c.Credit(ctx, "ghost", 10); !errors.Is(err, ErrUnknownAccount) {
		t.Fatalf("credit = %v, want ErrUnknownAccount", err)
	}
}

func TestClientTransferRejected(t *testing.T) {
	ctx := context.Background()
	c := walletServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	if err := c.Debit(ctx, "alice", 1); !errors.Is(err, ErrTransferRejected) {
		t.Fatalf("debit = %v, want ErrTransferRejected", err)
	}
	if err := c.Credit(ctx, "alice", 1); !errors.Is(err, ErrTransferRejected) {
		t.Fatalf("credit = %v, want ErrTransferRejected", err)
	}
}

func TestClientBalance(t *testing.T) {
	ctx := context.Background()
	c := walletServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/balance/alice" {
			t.Errorf("path = %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(transferResponse{Balance: 321})
	})

	bal, err := c.Balance(ctx, "alice")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if bal != 321 {
		t.Fatalf("balance = %d, want 321", bal)
	}
}
