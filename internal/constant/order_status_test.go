package constant

import "testing"

func TestOrderStatus_Rank(t *testing.T) {
	for i, s := range statusOrder {
		if s.Rank() != i {
			t.Errorf("%s rank = %d, want %d", s, s.Rank(), i)
		}
	}
	if OrderStatus("in_progress").Rank() != -1 {
		t.Error("unknown status should rank -1")
	}
}

func TestOrderStatus_NextIsForward(t *testing.T) {
	for from, to := range processorTransitions {
		if !from.Before(to) {
			t.Errorf("transition %s -> %s is not forward", from, to)
		}
	}
	for _, s := range []OrderStatus{StatusCreated, StatusOnrampStarted, StatusComplete} {
		if _, ok := s.Next(); ok {
			t.Errorf("%s should have no processor transition", s)
		}
	}
}

func TestNonTerminalStatuses(t *testing.T) {
	if len(NonTerminalStatuses) != 6 {
		t.Fatalf("want 6 in-flight statuses, got %d", len(NonTerminalStatuses))
	}
	for _, s := range NonTerminalStatuses {
		if s.IsTerminal() || s == StatusCreated {
			t.Errorf("%s must not be listed as in-flight", s)
		}
	}
}

func TestHTTPStatus(t *testing.T) {
	cases := map[int]int{
		CodeOrderNotFound:      404,
		CodeOrderAmountInvalid: 400,
		CodeNotifySignError:    401,
		CodeSystemError:        500,
	}
	for code, want := range cases {
		if got := HTTPStatus(code); got != want {
			t.Errorf("HTTPStatus(%d) = %d, want %d", code, got, want)
		}
	}
}
