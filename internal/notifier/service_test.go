package notifier

import (
	"context"
	"errors"
	"testing"
)

type recordingTransport struct {
	calls       int
	lastErr     error
	lastDetails string
	fail        error
}

func (r *recordingTransport) Notify(_ context.Context, err error, details string) error {
	r.calls++
	r.lastErr = err
	r.lastDetails = details
	return r.fail
}

func TestServiceForwardsToTransport(t *testing.T) {
	transport := &recordingTransport{}
	svc := NewService(transport)

	boom := errors.New("db down")
	if err := svc.Notify(context.Background(), boom, "append failed"); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if transport.calls != 1 {
		t.Fatalf("transport calls = %d, want 1", transport.calls)
	}
	if transport.lastErr != boom || transport.lastDetails != "append failed" {
		t.Fatalf("transport got (%v, %q)", transport.lastErr, transport.lastDetails)
	}
}

func TestServiceWithoutTransportOnlyLogs(t *testing.T) {
	svc := NewService(nil)
	if err := svc.Notify(context.Background(), errors.New("boom"), "anything"); err != nil {
		t.Fatalf("unconfigured Notify should swallow, got %v", err)
	}
}

func TestServicePropagatesSendFailure(t *testing.T) {
	transport := &recordingTransport{fail: errors.New("telegram 502")}
	svc := NewService(transport)

	if err := svc.Notify(context.Background(), errors.New("boom"), "x"); err == nil {
		t.Fatal("expected send failure to propagate")
	}
}
