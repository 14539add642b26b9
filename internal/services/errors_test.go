package services_test

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"automerge/internal/catalog"
	"automerge/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrTransient, "jellyfin", "merge versions", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"jellyfin", "merge versions", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestStatusMarker(t *testing.T) {
	cases := map[int]error{
		http.StatusUnauthorized:        services.ErrConfiguration,
		http.StatusForbidden:           services.ErrConfiguration,
		http.StatusNotFound:            services.ErrNotFound,
		http.StatusGatewayTimeout:      services.ErrTimeout,
		http.StatusServiceUnavailable:  services.ErrTransient,
		http.StatusTooManyRequests:     services.ErrTransient,
		http.StatusBadRequest:          services.ErrValidation,
		http.StatusUnprocessableEntity: services.ErrValidation,
	}
	for code, want := range cases {
		if got := services.StatusMarker(code); got != want {
			t.Errorf("StatusMarker(%d) = %v, want %v", code, got, want)
		}
	}
	notFound := services.Wrap(services.StatusMarker(http.StatusNotFound), "jellyfin", "split", "", nil)
	if !errors.Is(notFound, catalog.ErrNotFound) {
		t.Fatal("not found marker should match catalog.ErrNotFound")
	}
	if !services.IsRetryable(services.Wrap(services.ErrTimeout, "", "", "", nil)) {
		t.Fatal("timeout should be retryable")
	}
}
