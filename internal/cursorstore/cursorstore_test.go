package cursorstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type fakeStringStore struct {
	values  map[string]string
	getErr  error
	setErr  error
}

func newFakeStringStore() *fakeStringStore {
	return &fakeStringStore{values: make(map[string]string)}
}

func (f *fakeStringStore) Get(ctx context.Context, key string) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx)
	if f.getErr != nil {
		cmd.SetErr(f.getErr)
		return cmd
	}
	v, ok := f.values[key]
	if !ok {
		cmd.SetErr(redis.Nil)
		return cmd
	}
	cmd.SetVal(v)
	return cmd
}

func (f *fakeStringStore) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(ctx)
	if f.setErr != nil {
		cmd.SetErr(f.setErr)
		return cmd
	}
	f.values[key] = value.(string)
	cmd.SetVal("OK")
	return cmd
}

func TestLoadReturnsFalseWhenAbsent(t *testing.T) {
	s := New(newFakeStringStore(), nil)
	_, ok := s.Load(context.Background())
	if ok {
		t.Fatal("expected ok=false when no cursor persisted")
	}
}

func TestStoreThenLoadRoundTrips(t *testing.T) {
	fake := newFakeStringStore()
	s := New(fake, nil)
	s.Store(context.Background(), "1700000000000-0")

	got, ok := s.Load(context.Background())
	if !ok || got != "1700000000000-0" {
		t.Fatalf("expected round trip, got %q ok=%v", got, ok)
	}
}

func TestStoreFailureIsNonFatal(t *testing.T) {
	fake := newFakeStringStore()
	fake.setErr = errors.New("connection refused")
	s := New(fake, nil)

	// Store must not panic on failure; it only logs.
	s.Store(context.Background(), "1700000000000-0")
}

func TestLoadFailureTreatedAsAbsent(t *testing.T) {
	fake := newFakeStringStore()
	fake.getErr = errors.New("connection refused")
	s := New(fake, nil)

	_, ok := s.Load(context.Background())
	if ok {
		t.Fatal("expected ok=false on load error")
	}
}
