package resource

import (
	"context"
	"testing"
	"time"
)

func TestControllerNilIsNoop(t *testing.T) {
	var c *Controller
	if err := c.AcquireSearch(context.Background()); err != nil {
		t.Fatalf("nil controller AcquireSearch: %v", err)
	}
	c.ReleaseSearch()
	if err := c.WaitInsert(context.Background(), 1); err != nil {
		t.Fatalf("nil controller WaitInsert: %v", err)
	}
}

func TestControllerSearchFanOutBound(t *testing.T) {
	c := NewController(Config{MaxSearchWorkers: 2})
	ctx := context.Background()

	if err := c.AcquireSearch(ctx); err != nil {
		t.Fatal(err)
	}
	if err := c.AcquireSearch(ctx); err != nil {
		t.Fatal(err)
	}

	tctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if err := c.AcquireSearch(tctx); err == nil {
		t.Fatal("expected third acquire to block past the worker cap")
	}

	c.ReleaseSearch()
	c.ReleaseSearch()
}

func TestControllerInsertRateLimit(t *testing.T) {
	c := NewController(Config{InsertRateLimit: 1000})
	if err := c.WaitInsert(context.Background(), 1); err != nil {
		t.Fatalf("WaitInsert: %v", err)
	}
}

func TestControllerUnlimitedByDefault(t *testing.T) {
	c := NewController(Config{})
	if err := c.WaitInsert(context.Background(), 1000000); err != nil {
		t.Fatalf("unlimited controller should never block: %v", err)
	}
}
