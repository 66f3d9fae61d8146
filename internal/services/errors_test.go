package services_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"wordxl/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrRemote, "convertapi", "upload", "upload failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrRemote) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"convertapi", "upload", "upload failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsMarker(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransport) {
		t.Fatalf("expected transport marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected placeholder detail, got %q", err.Error())
	}
}

func TestKindMapping(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{services.Wrap(services.ErrValidation, "intake", "pick", "no files", nil), "validation"},
		{services.Wrap(services.ErrRemote, "convertapi", "start", "failed", nil), "remote"},
		{services.Wrap(services.ErrTransport, "convertapi", "poll", "dial", errors.New("refused")), "transport"},
		{fmt.Errorf("outer: %w", context.DeadlineExceeded), "timeout"},
		{context.Canceled, "cancelled"},
		{services.ErrUnauthorized, "unauthorized"},
		{errors.New("plain"), "error"},
	}
	for _, tt := range tests {
		if got := services.Kind(tt.err); got != tt.want {
			t.Fatalf("Kind(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestRetryable(t *testing.T) {
	if !services.Retryable(services.Wrap(services.ErrTransport, "c", "op", "", nil)) {
		t.Fatal("transport errors should be retryable")
	}
	if services.Retryable(services.Wrap(services.ErrRemote, "c", "op", "", nil)) {
		t.Fatal("remote rejections should not be retryable")
	}
}
