package trimmer

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
)

type fakeStream struct {
	calledWith string
	called     bool
}

func (f *fakeStream) XTrimMinID(ctx context.Context, key, minID string) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	f.called = true
	f.calledWith = minID
	cmd.SetVal(0)
	return cmd
}

func TestWatermarkNoOpWhenCursorAbsent(t *testing.T) {
	if _, ok := Watermark("", 120, 1700000000000); ok {
		t.Fatal("expected no-op on empty cursor")
	}
	if _, ok := Watermark(EarliestSentinel, 120, 1700000000000); ok {
		t.Fatal("expected no-op on earliest sentinel")
	}
}

func TestWatermarkTrimHorizonScenario(t *testing.T) {
	// spec.md §8 scenario 6: cursor 1h old, keep 120 minutes -> cutoff older
	// than the cursor, so watermark = cutoff, not the cursor itself.
	cursor := "1700000000000-0"
	nowMS := int64(1700000000000) + 60*60*1000
	got, ok := Watermark(cursor, 120, nowMS)
	if !ok {
		t.Fatal("expected a watermark")
	}
	want := "1699996400000-0"
	if got != want {
		t.Fatalf("expected watermark %q, got %q", want, got)
	}
}

func TestWatermarkNeverExceedsCursor(t *testing.T) {
	// I5: when the cursor is older than the retention window, the
	// watermark must be the cursor itself, never something past it.
	cursor := "1700000000000-0"
	nowMS := cursor2ms(cursor) + 130*60*1000 // 130 minutes have passed, past the 120-minute window
	got, ok := Watermark(cursor, 120, nowMS)
	if !ok {
		t.Fatal("expected a watermark")
	}
	if got != cursor {
		t.Fatalf("expected watermark to equal cursor when the cursor is older than the retention window, got %q", got)
	}
}

func cursor2ms(cursor string) int64 {
	ms, ok := parseMillisPrefix(cursor)
	if !ok {
		panic("bad cursor in test")
	}
	return ms
}

func TestTrimInvokesXTrimMinIDWithComputedWatermark(t *testing.T) {
	fs := &fakeStream{}
	tr := New(fs, "videogen:jobs", nil)

	tr.Trim(context.Background(), "1700000000000-0", 120, 1700000000000+60*60*1000)
	if !fs.called {
		t.Fatal("expected XTrimMinID to be called")
	}
	if fs.calledWith != "1699996400000-0" {
		t.Fatalf("unexpected watermark passed: %q", fs.calledWith)
	}
}

func TestTrimNoOpOnAbsentCursor(t *testing.T) {
	fs := &fakeStream{}
	tr := New(fs, "videogen:jobs", nil)

	tr.Trim(context.Background(), "", 120, 1700000000000)
	if fs.called {
		t.Fatal("expected no XTrimMinID call on absent cursor")
	}
}
