package amqp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"billed/internal/core"
	"billed/internal/log"
)

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},
		{10, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt_%d", tt.attempt), func(t *testing.T) {
			if got := exponentialBackoff(tt.attempt); got != tt.expected {
				t.Errorf("exponentialBackoff(%d) = %v, want %v", tt.attempt, got, tt.expected)
			}
		})
	}
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"connection refused", errors.New("dial tcp: connection refused"), true},
		{"closed", amqp091.ErrClosed, true},
		{"wrapped closed", fmt.Errorf("publish: %w", amqp091.ErrClosed), true},
		{"EOF", errors.New("unexpected EOF"), true},
		{"broken pipe", errors.New("write: broken pipe"), true},
		{"other", errors.New("invalid input"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isConnectionError(tt.err); got != tt.expected {
				t.Errorf("isConnectionError(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

func TestClient_CircuitBreaker(t *testing.T) {
	client := &Client{exchangeName: "bills", queueName: "bills_submitted"}

	t.Run("initial state is closed", func(t *testing.T) {
		if client.isCircuitOpen() {
			t.Error("circuit should be closed initially")
		}
	})

	t.Run("success resets state", func(t *testing.T) {
		atomic.StoreInt64(&client.failureCount, 3)
		atomic.StoreInt32(&client.state, StateOpen)
		client.recordSuccess()
		if client.isCircuitOpen() || atomic.LoadInt64(&client.failureCount) != 0 {
			t.Error("success should close the circuit and reset failures")
		}
	})

	t.Run("failures open circuit", func(t *testing.T) {
		for i := 0; i < maxFailures; i++ {
			client.recordFailure()
		}
		if !client.isCircuitOpen() {
			t.Error("circuit should be open after max failures")
		}
	})

	t.Run("half-open after timeout", func(t *testing.T) {
		atomic.StoreInt32(&client.state, StateOpen)
		client.lastFailure = time.Now().Add(-openTimeout - time.Second)
		if client.isCircuitOpen() {
			t.Error("circuit should let a probe through after the timeout")
		}
		if atomic.LoadInt32(&client.state) != StateHalfOpen {
			t.Error("state should be half-open")
		}
	})

	t.Run("half-open failure reopens", func(t *testing.T) {
		atomic.StoreInt64(&client.failureCount, 0)
		atomic.StoreInt32(&client.state, StateHalfOpen)
		client.recordFailure()
		if atomic.LoadInt32(&client.state) != StateOpen {
			t.Error("a failed probe should reopen the circuit")
		}
	})
}

func TestClient_PublishShortCircuits(t *testing.T) {
	client := &Client{exchangeName: "bills", queueName: "bills_submitted"}
	msg := NewBillSubmittedMessage(core.Bill{ID: "k1"})

	atomic.StoreInt32(&client.state, StateOpen)
	client.lastFailure = time.Now()
	if err := client.PublishBillSubmitted(context.Background(), msg); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("expected ErrCircuitOpen, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := client.PublishBillSubmitted(ctx, msg); err != context.Canceled {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

type fakeAcknowledger struct {
	acks    int
	nacks   int
	requeue bool
}

func (f *fakeAcknowledger) Ack(uint64, bool) error { f.acks++; return nil }
func (f *fakeAcknowledger) Nack(_ uint64, _ bool, requeue bool) error {
	f.nacks++
	f.requeue = requeue
	return nil
}
func (f *fakeAcknowledger) Reject(_ uint64, requeue bool) error {
	f.nacks++
	f.requeue = requeue
	return nil
}

func TestHandleDelivery(t *testing.T) {
	client := &Client{lgr: log.Discard()}
	good := []byte(`{"bill_id":"k1","email":"a@a","status":"pending","timestamp":"2024-01-01T12:00:00Z"}`)

	tests := []struct {
		name        string
		body        []byte
		handlerErr  error
		wantAcks    int
		wantNacks   int
		wantRequeue bool
		wantCalled  bool
	}{
		{name: "ack", body: good, wantAcks: 1, wantCalled: true},
		{name: "requeue on handler failure", body: good, handlerErr: errors.New("sheets down"), wantNacks: 1, wantRequeue: true, wantCalled: true},
		{name: "drop malformed", body: []byte("{"), wantNacks: 1},
		{name: "drop missing id", body: []byte(`{"email":"a@a"}`), wantNacks: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ack := &fakeAcknowledger{}
			called := false
			handler := func(_ context.Context, msg *BillSubmittedMessage) error {
				called = true
				if msg.BillID != "k1" {
					t.Errorf("unexpected bill id %q", msg.BillID)
				}
				return tt.handlerErr
			}

			client.handleDelivery(context.Background(), amqp091.Delivery{Acknowledger: ack, Body: tt.body}, handler)

			if called != tt.wantCalled || ack.acks != tt.wantAcks || ack.nacks != tt.wantNacks || ack.requeue != tt.wantRequeue {
				t.Errorf("called=%v acks=%d nacks=%d requeue=%v", called, ack.acks, ack.nacks, ack.requeue)
			}
		})
	}
}

func TestBillSubmittedMessage_JSON(t *testing.T) {
	msg := &BillSubmittedMessage{
		BillID:    "0f8e",
		Email:     "employee@test.tld",
		Status:    core.StatusPending,
		Timestamp: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}

	data, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}
	if !strings.Contains(string(data), `"bill_id":"0f8e"`) {
		t.Errorf("unexpected body %s", data)
	}

	parsed, err := BillSubmittedMessageFromJSON(data)
	if err != nil {
		t.Fatalf("BillSubmittedMessageFromJSON() error = %v", err)
	}
	if parsed.BillID != msg.BillID || parsed.Email != msg.Email || parsed.Status != msg.Status || !parsed.Timestamp.Equal(msg.Timestamp) {
		t.Errorf("parsed %+v, want %+v", parsed, msg)
	}
}

func TestBillSubmittedMessage_Invalid(t *testing.T) {
	if _, err := BillSubmittedMessageFromJSON([]byte(`{"bill_id": 12}`)); err == nil {
		t.Error("expected type error")
	}
	if _, err := BillSubmittedMessageFromJSON([]byte(`{}`)); !errors.Is(err, ErrMissingBillID) {
		t.Errorf("expected ErrMissingBillID, got %v", err)
	}
}

func TestNewBillSubmittedMessage(t *testing.T) {
	msg := NewBillSubmittedMessage(core.Bill{ID: "k", Email: "e@e", Status: core.StatusAccepted})
	if msg.BillID != "k" || msg.Email != "e@e" || msg.Status != core.StatusAccepted {
		t.Errorf("unexpected message %+v", msg)
	}
	if time.Since(msg.Timestamp) > time.Second {
		t.Error("timestamp should be recent")
	}
}
