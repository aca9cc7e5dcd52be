package dto

import (
	"encoding/json"
	"testing"

	"github.com/go-playground/validator/v10"
)

func TestValidUsdAmount(t *testing.T) {
	v := validator.New()
	if err := v.RegisterValidation("usdamount", validUsdAmount); err != nil {
		t.Fatal(err)
	}
	type req struct {
		Usd string `validate:"usdamount"`
	}
	tests := []struct {
		in string
		ok bool
	}{
		{"50", true},
		{"4.99", true},
		{"10.5", true},
		{"0", false},
		{"-5", false},
		{"1.234", false},
		{"abc", false},
	}
	for _, tt := range tests {
		err := v.Struct(req{Usd: tt.in})
		if (err == nil) != tt.ok {
			t.Errorf("usd %q: err=%v, want ok=%v", tt.in, err, tt.ok)
		}
	}
}

func TestOnrampWebhookPayload_Fallbacks(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		ref       string
		completed bool
		txID      string
		amount    string
	}{
		{
			name:      "nested",
			body:      `{"data":{"partner_user_ref":"dc_1","status":"COMPLETED","transaction_id":"tx1","crypto":{"amount":50}}}`,
			ref:       "dc_1",
			completed: true,
			txID:      "tx1",
			amount:    "50",
		},
		{
			name:   "flat camel",
			body:   `{"partnerUserRef":"dc_2","status":"pending","transaction_id":"tx2","crypto_amount":"49.5"}`,
			ref:    "dc_2",
			txID:   "tx2",
			amount: "49.5",
		},
		{
			name:      "flat snake",
			body:      `{"partner_user_ref":"dc_3","status":"completed"}`,
			ref:       "dc_3",
			completed: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p OnrampWebhookPayload
			if err := json.Unmarshal([]byte(tt.body), &p); err != nil {
				t.Fatal(err)
			}
			if p.Ref() != tt.ref || p.Completed() != tt.completed || p.TxID() != tt.txID || p.UsdcAmount() != tt.amount {
				t.Fatalf("got ref=%q completed=%v tx=%q amount=%q", p.Ref(), p.Completed(), p.TxID(), p.UsdcAmount())
			}
		})
	}
}
