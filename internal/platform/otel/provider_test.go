package otel_test

import (
	"context"
	"testing"

	"github.com/earthref/KDD/internal/platform/otel"
)

func TestSetup_NoopWhenEndpointEmpty(t *testing.T) {
	t.Setenv("KDD_OTEL_ENDPOINT", "")
	t.Setenv("KDD_OTEL_ENABLED", "")

	shutdown, err := otel.Setup(context.Background(), "test-service")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}

func TestSetup_NoopWhenExplicitlyDisabled(t *testing.T) {
	t.Setenv("KDD_OTEL_ENDPOINT", "http://localhost:4318")
	t.Setenv("KDD_OTEL_ENABLED", "false")

	shutdown, err := otel.Setup(context.Background(), "test-service")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}

func TestSetup_CreatesProviderWhenEndpointSet(t *testing.T) {
	// Non-routable address so no export happens.
	t.Setenv("KDD_OTEL_ENDPOINT", "http://192.0.2.1:4318")
	t.Setenv("KDD_OTEL_ENABLED", "")
	t.Setenv("KDD_OTEL_SAMPLE_RATIO", "")

	shutdown, err := otel.Setup(context.Background(), "test-service")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}

func TestSetup_AcceptsSampleRatio(t *testing.T) {
	t.Setenv("KDD_OTEL_ENDPOINT", "http://192.0.2.1:4318")
	t.Setenv("KDD_OTEL_ENABLED", "")
	t.Setenv("KDD_OTEL_SAMPLE_RATIO", "0.25")

	shutdown, err := otel.Setup(context.Background(), "ratio-test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}

func TestSetup_RejectsInvalidSampleRatio(t *testing.T) {
	t.Setenv("KDD_OTEL_ENDPOINT", "http://192.0.2.1:4318")
	t.Setenv("KDD_OTEL_ENABLED", "")

	for _, raw := range []string{"abc", "0", "1.5", "-1"} {
		t.Run(raw, func(t *testing.T) {
			t.Setenv("KDD_OTEL_SAMPLE_RATIO", raw)
			shutdown, err := otel.Setup(context.Background(), "ratio-test")
			if err == nil {
				t.Fatalf("expected error for ratio %q", raw)
			}
			if err := shutdown(context.Background()); err != nil {
				t.Fatalf("noop shutdown should not error: %v", err)
			}
		})
	}
}

func TestSetup_NoopShutdownIgnoresCancelledContext(t *testing.T) {
	t.Setenv("KDD_OTEL_ENDPOINT", "")
	t.Setenv("KDD_OTEL_ENABLED", "")

	shutdown, err := otel.Setup(context.Background(), "noop-test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := shutdown(ctx); err != nil {
		t.Fatalf("noop shutdown should not error: %v", err)
	}
}
