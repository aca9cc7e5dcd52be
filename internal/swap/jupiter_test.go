package swap

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gagliardetto/solana-go"

	"dc-purchase-api/internal/credits"
)

const sampleQuote = `{"inputMint":"EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v","inAmount":"50000000","outputMint":"hntyVP6YFm1Hg25TN9WGLqM12b8TQmcknKrdu1oxWux","outAmount":"1234567890","slippageBps":100,"priceImpactPct":"0","routePlan":[{"percent":100}]}`

func TestGetQuote(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr bool
	}{
		{"ok", http.StatusOK, sampleQuote, false},
		{"server error", http.StatusInternalServerError, `{"error":"boom"}`, true},
		{"malformed", http.StatusOK, `{"outAmount":"abc"}`, true},
		{"not json", http.StatusOK, `<html>`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				q := r.URL.Query()
				if q.Get("amount") != "50000000" || q.Get("slippageBps") != "100" {
					t.Errorf("unexpected query: %s", r.URL.RawQuery)
				}
				if q.Get("inputMint") != credits.UsdcMint.String() {
					t.Errorf("inputMint = %s", q.Get("inputMint"))
				}
				if r.Header.Get("x-api-key") != "k" {
					t.Errorf("missing api key header")
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewClient(srv.URL, srv.URL, "k", srv.Client())
			quote, err := c.GetQuote(context.Background(), credits.UsdcMint, credits.HntMint, 50_000_000, 100)
			if tt.wantErr {
				if !errors.Is(err, ErrQuoteFailed) {
					t.Fatalf("err = %v, want ErrQuoteFailed", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
			if quote.OutAmount != "1234567890" {
				t.Fatalf("outAmount = %s", quote.OutAmount)
			}
			if quote.String() != sampleQuote {
				t.Fatalf("raw quote not preserved")
			}
		})
	}
}

func TestBuildTransaction(t *testing.T) {
	key, _ := solana.NewRandomPrivateKey()
	ix := solana.NewInstruction(solana.SystemProgramID,
		solana.AccountMetaSlice{solana.NewAccountMeta(key.PublicKey(), true, true)}, []byte{7})
	unsigned, err := solana.NewTransaction([]solana.Instruction{ix}, solana.Hash{1}, solana.TransactionPayer(key.PublicKey()))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := unsigned.Sign(func(solana.PublicKey) *solana.PrivateKey { return &key }); err != nil {
		t.Fatal(err)
	}
	raw, err := unsigned.MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]json.RawMessage
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		var q map[string]any
		_ = json.Unmarshal(body["quoteResponse"], &q)
		if _, ok := q["routePlan"]; !ok {
			t.Errorf("quoteResponse must be forwarded verbatim")
		}
		if string(body["prioritizationFeeLamports"]) != `"auto"` {
			t.Errorf("prioritizationFeeLamports = %s", body["prioritizationFeeLamports"])
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"swapTransaction": base64.StdEncoding.EncodeToString(raw)})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.URL, "", srv.Client())
	quote := &Quote{OutAmount: "1", Raw: json.RawMessage(sampleQuote)}
	tx, err := c.BuildTransaction(context.Background(), quote, key.PublicKey())
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(tx.Signatures) != 0 {
		t.Fatalf("signatures must be cleared before re-signing")
	}
	if !tx.Message.AccountKeys[0].Equals(key.PublicKey()) {
		t.Fatalf("fee payer mismatch")
	}
}

func TestBuildTransaction_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()
	c := NewClient(srv.URL, srv.URL, "", srv.Client())
	user := solana.NewWallet().PublicKey()

	if _, err := c.BuildTransaction(context.Background(), nil, user); !errors.Is(err, ErrBuildFailed) {
		t.Fatalf("nil quote: err = %v", err)
	}
	quote := &Quote{Raw: json.RawMessage(sampleQuote)}
	if _, err := c.BuildTransaction(context.Background(), quote, user); !errors.Is(err, ErrBuildFailed) {
		t.Fatalf("missing swapTransaction: err = %v", err)
	}
}
