package mq

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"dc-purchase-api/internal/dto"
)

type fakeWriter struct {
	msgs []kafka.Message
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func TestKafkaPublisher(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaPublisher{Writer: w}
	msg := dto.OrderEventMQ{EventID: 1, OrderID: "o-1", Type: "STATUS_CHANGE", Payload: json.RawMessage(`{"status":"created"}`), CreatedAt: 1700000000000}
	if err := p.Publish(context.Background(), msg); err != nil {
		t.Fatal(err)
	}
	if len(w.msgs) != 1 || string(w.msgs[0].Key) != "o-1" {
		t.Fatalf("unexpected messages: %+v", w.msgs)
	}
	var got dto.OrderEventMQ
	if err := json.Unmarshal(w.msgs[0].Value, &got); err != nil || got.Type != "STATUS_CHANGE" {
		t.Fatalf("value = %s, err = %v", w.msgs[0].Value, err)
	}
}

func TestRoutingKey(t *testing.T) {
	if got := RoutingKey("ONCHAIN_EVENT"); got != "order.onchain_event" {
		t.Fatalf("routing key = %s", got)
	}
}

type fakeDriver struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (d *fakeDriver) Drive(ctx context.Context, orderID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("dispatch context must carry a deadline")
	}
	d.calls = append(d.calls, orderID)
	return d.err
}

func TestGoroutineDispatcher(t *testing.T) {
	drv := &fakeDriver{err: errors.New("boom")}
	d := NewGoroutineDispatcher(drv, time.Second, nil)
	for _, id := range []string{"a", "b"} {
		if err := d.Dispatch(id, "webhook"); err != nil {
			t.Fatal(err)
		}
	}
	d.Wait()
	if len(drv.calls) != 2 {
		t.Fatalf("calls = %v", drv.calls)
	}
}
