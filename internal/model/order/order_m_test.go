package ordermodel

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestSignatureList_ScanValue(t *testing.T) {
	var s SignatureList
	if err := s.Scan(`["a","b"]`); err != nil {
		t.Fatal(err)
	}
	if len(s) != 2 || s[1] != "b" {
		t.Fatalf("unexpected scan result: %v", s)
	}
	if err := s.Scan(nil); err != nil || s != nil {
		t.Fatalf("nil scan: %v %v", s, err)
	}
	v, err := SignatureList{"x"}.Value()
	if err != nil || v.(string) != `["x"]` {
		t.Fatalf("value = %v, %v", v, err)
	}
}

func TestSignatureList_AppendDedup(t *testing.T) {
	s := SignatureList{"a"}.Append("b", "a", "")
	if len(s) != 2 {
		t.Fatalf("want 2 signatures, got %v", s)
	}
}

func TestDcPurchaseOrder_UsdcAmount(t *testing.T) {
	o := DcPurchaseOrder{UsdRequested: decimal.RequireFromString("50")}
	if !o.UsdcAmount().Equal(decimal.RequireFromString("50")) {
		t.Fatal("should fall back to usd requested")
	}
	o.UsdcAmountReceived = decimal.NewNullDecimal(decimal.RequireFromString("49.5"))
	if !o.UsdcAmount().Equal(decimal.RequireFromString("49.5")) {
		t.Fatal("should prefer received amount")
	}
}
