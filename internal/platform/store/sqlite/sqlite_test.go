package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/fetchguard/fetchguard/internal/platform/store"
)

func newTestDriver(t *testing.T) store.Driver {
	t.Helper()
	d, err := store.Open("sqlite", &store.DriverConfig{DataDir: t.TempDir()})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := d.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func TestRecordAndListFetches(t *testing.T) {
	d := newTestDriver(t)
	ctx := context.Background()

	now := time.Now().UnixMilli()
	for i, rec := range []*store.FetchRecord{
		{URL: "http://example.com/", Outcome: store.OutcomeAllowed},
		{URL: "http://127.0.0.1/", Outcome: store.OutcomeBlocked, Reason: "Host resolves to a blacklisted address."},
		{URL: "http://slow.test/", Outcome: store.OutcomeFailed, Reason: "transport failure"},
	} {
		id, err := uuid.NewV7()
		if err != nil {
			t.Fatal(err)
		}
		rec.ID = id.String()
		rec.CreatedAt = now + int64(i)
		if err := d.RecordFetch(ctx, rec); err != nil {
			t.Fatalf("RecordFetch: %v", err)
		}
	}

	recs, err := d.ListFetches(ctx, 10)
	if err != nil {
		t.Fatalf("ListFetches: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("got %d records, want 3", len(recs))
	}
	// Newest first.
	if recs[0].URL != "http://slow.test/" {
		t.Errorf("first record = %q, want newest", recs[0].URL)
	}
	if recs[2].Outcome != store.OutcomeAllowed {
		t.Errorf("oldest record outcome = %q", recs[2].Outcome)
	}

	limited, err := d.ListFetches(ctx, 1)
	if err != nil {
		t.Fatalf("ListFetches: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("limit 1 returned %d records", len(limited))
	}
}

func TestClosedDriverRejectsOperations(t *testing.T) {
	d := newTestDriver(t)
	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	ctx := context.Background()
	if err := d.RecordFetch(ctx, &store.FetchRecord{ID: "x"}); !errors.Is(err, store.ErrClosed) {
		t.Errorf("RecordFetch after Close: got %v, want ErrClosed", err)
	}
	if _, err := d.ListFetches(ctx, 1); !errors.Is(err, store.ErrClosed) {
		t.Errorf("ListFetches after Close: got %v, want ErrClosed", err)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := store.Open("postgres", &store.DriverConfig{DataDir: t.TempDir()}); err == nil {
		t.Error("unknown driver must fail")
	}
}

func TestNewDriverRequiresDataDir(t *testing.T) {
	if _, err := NewDriver(&store.DriverConfig{}); err == nil {
		t.Error("missing data_dir must fail")
	}
}
