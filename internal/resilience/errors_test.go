package resilience

import (
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"syscall"
	"testing"
)

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"explicit", NewTransientError(errors.New("overloaded"), 503), true},
		{"wrapped", fmt.Errorf("call: %w", NewTransientError(errors.New("slow"), 429)), true},
		{"reset", fmt.Errorf("read: %w", syscall.ECONNRESET), true},
		{"refused", fmt.Errorf("dial: %w", syscall.ECONNREFUSED), true},
		{"dns timeout", &net.DNSError{IsTimeout: true, Err: "timeout"}, true},
		{"unexpected eof", fmt.Errorf("body: %w", io.ErrUnexpectedEOF), true},
		{"client timeout text", errors.New("Get x: Client.Timeout exceeded while awaiting headers"), true},
		{"plain", errors.New("invalid input"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsTransientHTTPStatus(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504} {
		if !IsTransientHTTPStatus(code) {
			t.Errorf("expected HTTP %d to be transient", code)
		}
	}
	for _, code := range []int{200, 400, 401, 403, 404, 410} {
		if IsTransientHTTPStatus(code) {
			t.Errorf("expected HTTP %d to NOT be transient", code)
		}
	}
}

func TestKindOf(t *testing.T) {
	denied := WithKind(errors.New("robots"), KindComplianceDenied, "askizzy")
	if KindOf(denied) != KindComplianceDenied {
		t.Errorf("expected compliance_denied, got %s", KindOf(denied))
	}
	if KindOf(fmt.Errorf("unit: %w", denied)) != KindComplianceDenied {
		t.Error("kind should survive wrapping")
	}
	if KindOf(NewTransientError(errors.New("503"), 503)) != KindTransport {
		t.Error("untagged transient should be transport_error")
	}
	if KindOf(errors.New("nil entity")) != KindPipelineFatal {
		t.Error("untagged permanent should be fatal")
	}
	if KindOf(nil) != "" {
		t.Error("nil should have no kind")
	}
	if WithKind(nil, KindTransport, "x") != nil {
		t.Error("WithKind(nil) should be nil")
	}
}

func TestIsFatal(t *testing.T) {
	if !IsFatal(NewKind(KindPipelineFatal, "", "sink failed")) {
		t.Error("expected fatal")
	}
	if IsFatal(NewKind(KindRateLimited, "a", "wait exhausted")) {
		t.Error("rate limited is not fatal")
	}
}

func TestKindError_Message(t *testing.T) {
	err := NewKind(KindTransport, "ckan", "http 500")
	if got := err.Error(); !strings.HasPrefix(got, "transport_error [ckan]: ") || !strings.Contains(got, "http 500") {
		t.Errorf("unexpected message %q", got)
	}
	err = NewKind(KindPipelineFatal, "", "boom")
	if got := err.Error(); !strings.HasPrefix(got, "pipeline_fatal: ") {
		t.Errorf("unexpected message %q", got)
	}
}
