package idgen

import (
	"testing"

	"github.com/google/uuid"
)

func TestNew_Unique(t *testing.T) {
	if err := InitNode("default", 7); err != nil {
		t.Fatal(err)
	}
	seen := make(map[uint64]bool)
	for i := 0; i < 1000; i++ {
		id := New()
		if seen[id] {
			t.Fatalf("duplicate id %d", id)
		}
		seen[id] = true
	}
}

func TestNewOrderID_IsUUID(t *testing.T) {
	if _, err := uuid.Parse(NewOrderID()); err != nil {
		t.Fatalf("order id is not a uuid: %v", err)
	}
}

func TestNewRefToken(t *testing.T) {
	a, b := NewRefToken(), NewRefToken()
	if len(a) != 15 || a == b {
		t.Fatalf("unexpected ref tokens %q %q", a, b)
	}
}
