package ctxutil

import (
	"context"
	"testing"
	"time"
)

func TestUserIDContext(t *testing.T) {
	t.Parallel()

	t.Run("empty context", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		if userID := GetUserID(ctx); userID != 0 {
			t.Errorf("Expected zero, got %d", userID)
		}
	})

	t.Run("with user ID", func(t *testing.T) {
		t.Parallel()
		ctx := WithUserID(context.Background(), 123456789)
		if userID := GetUserID(ctx); userID != 123456789 {
			t.Errorf("Expected 123456789, got %d", userID)
		}
	})

	t.Run("zero user ID treated as absent", func(t *testing.T) {
		t.Parallel()
		ctx := WithUserID(context.Background(), 0)
		if userID := GetUserID(ctx); userID != 0 {
			t.Errorf("Expected zero, got %d", userID)
		}
	})
}

func TestRequestIDContext(t *testing.T) {
	t.Parallel()

	t.Run("empty context", func(t *testing.T) {
		t.Parallel()
		requestID, ok := GetRequestID(context.Background())
		if ok || requestID != "" {
			t.Errorf("Expected empty requestID, got %q (ok=%v)", requestID, ok)
		}
	})

	t.Run("with request ID", func(t *testing.T) {
		t.Parallel()
		ctx := WithRequestID(context.Background(), "req-abc-123")
		requestID, ok := GetRequestID(ctx)
		if !ok || requestID != "req-abc-123" {
			t.Errorf("Expected 'req-abc-123', got %q (ok=%v)", requestID, ok)
		}
	})
}

func TestContextChaining(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ctx = WithRequestID(ctx, "req-1")
	ctx = WithUserID(ctx, 42)

	if requestID, ok := GetRequestID(ctx); !ok || requestID != "req-1" {
		t.Error("RequestID not preserved in chained context")
	}
	if userID := GetUserID(ctx); userID != 42 {
		t.Error("UserID not preserved in chained context")
	}
}

func TestPreserveTracing(t *testing.T) {
	t.Parallel()

	t.Run("preserves tracing values", func(t *testing.T) {
		t.Parallel()
		parentCtx := context.Background()
		parentCtx = WithUserID(parentCtx, 123456789)
		parentCtx = WithRequestID(parentCtx, "req789")

		detachedCtx := PreserveTracing(parentCtx)

		if userID := GetUserID(detachedCtx); userID != 123456789 {
			t.Errorf("Expected userID 123456789, got %d", userID)
		}
		if requestID, ok := GetRequestID(detachedCtx); !ok || requestID != "req789" {
			t.Errorf("Expected requestID 'req789', got %q (ok=%v)", requestID, ok)
		}
	})

	t.Run("handles partial values", func(t *testing.T) {
		t.Parallel()
		partialCtx := WithUserID(context.Background(), 42)
		detachedPartial := PreserveTracing(partialCtx)

		if userID := GetUserID(detachedPartial); userID != 42 {
			t.Errorf("Expected userID 42, got %d", userID)
		}
		if requestID, ok := GetRequestID(detachedPartial); ok || requestID != "" {
			t.Errorf("Expected empty requestID, got %q (ok=%v)", requestID, ok)
		}
	})

	t.Run("detaches from parent cancellation", func(t *testing.T) {
		t.Parallel()
		parentCtx, cancel := context.WithCancel(context.Background())
		parentCtx = WithRequestID(parentCtx, "req-detach")

		detachedCtx := PreserveTracing(parentCtx)
		cancel()

		select {
		case <-detachedCtx.Done():
			t.Error("Detached context should not inherit parent cancellation")
		case <-time.After(10 * time.Millisecond):
		}

		if requestID, ok := GetRequestID(detachedCtx); !ok || requestID != "req-detach" {
			t.Errorf("Expected requestID 'req-detach', got %q (ok=%v)", requestID, ok)
		}
	})

	t.Run("drops parent deadline", func(t *testing.T) {
		t.Parallel()
		parentCtx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
		defer cancel()

		detachedCtx := PreserveTracing(parentCtx)
		if _, hasDeadline := detachedCtx.Deadline(); hasDeadline {
			t.Error("Detached context should not carry the parent deadline")
		}
	})
}
