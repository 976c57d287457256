package posstatus

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type fakeLockStore struct {
	values  map[string]string
	setNXOK bool
	dels    []string
	expires []string
}

func newFakeLockStore() *fakeLockStore {
	return &fakeLockStore{values: map[string]string{}, setNXOK: true}
}

func (f *fakeLockStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if !f.setNXOK {
		return false, nil
	}
	if _, held := f.values[key]; held {
		return false, nil
	}
	f.values[key] = value.(string)
	return true, nil
}

func (f *fakeLockStore) Get(ctx context.Context, key string) (string, error) {
	value, ok := f.values[key]
	if !ok {
		return "", redis.Nil
	}
	return value, nil
}

func (f *fakeLockStore) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.values, key)
		f.dels = append(f.dels, key)
	}
	return nil
}

func (f *fakeLockStore) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if _, ok := f.values[key]; !ok {
		return false, nil
	}
	f.expires = append(f.expires, key)
	return true, nil
}

func TestRedisWorkerLock_AcquireAndRelease(t *testing.T) {
	store := newFakeLockStore()
	lock, err := NewRedisWorkerLock(store, "posportal:scheduler:lock", time.Minute)
	if err != nil {
		t.Fatalf("build lock: %v", err)
	}

	ok, err := lock.Acquire(context.Background())
	if err != nil || !ok {
		t.Fatalf("expected first acquire to win, got ok=%v err=%v", ok, err)
	}

	second, err := NewRedisWorkerLock(store, "posportal:scheduler:lock", time.Minute)
	if err != nil {
		t.Fatalf("build second lock: %v", err)
	}
	ok, err = second.Acquire(context.Background())
	if err != nil || ok {
		t.Fatalf("expected contention, got ok=%v err=%v", ok, err)
	}

	if err := lock.Release(context.Background()); err != nil {
		t.Fatalf("release: %v", err)
	}
	if len(store.dels) != 1 {
		t.Fatalf("expected one delete, got %d", len(store.dels))
	}
}

func TestRedisWorkerLock_ReleaseSkipsForeignOwner(t *testing.T) {
	store := newFakeLockStore()
	lock, err := NewRedisWorkerLock(store, "posportal:scheduler:lock", time.Minute)
	if err != nil {
		t.Fatalf("build lock: %v", err)
	}
	if ok, _ := lock.Acquire(context.Background()); !ok {
		t.Fatal("expected acquire to win")
	}

	// Another worker took over after our TTL lapsed.
	store.values["posportal:scheduler:lock"] = "someone-else"
	if err := lock.Release(context.Background()); err != nil {
		t.Fatalf("release: %v", err)
	}
	if len(store.dels) != 0 {
		t.Fatal("must not delete a lock owned by another worker")
	}
}

func TestRedisWorkerLock_ReleaseAfterExpiry(t *testing.T) {
	store := newFakeLockStore()
	lock, err := NewRedisWorkerLock(store, "posportal:scheduler:lock", time.Minute)
	if err != nil {
		t.Fatalf("build lock: %v", err)
	}
	if ok, _ := lock.Acquire(context.Background()); !ok {
		t.Fatal("expected acquire to win")
	}

	delete(store.values, "posportal:scheduler:lock")
	if err := lock.Release(context.Background()); err != nil {
		t.Fatalf("release after expiry: %v", err)
	}
}

func TestRedisWorkerLock_RefreshExtendsWhileHeld(t *testing.T) {
	store := newFakeLockStore()
	lock, err := NewRedisWorkerLock(store, "posportal:scheduler:lock", time.Minute)
	if err != nil {
		t.Fatalf("build lock: %v", err)
	}
	if ok, _ := lock.Acquire(context.Background()); !ok {
		t.Fatal("expected acquire to win")
	}

	held, err := lock.Refresh(context.Background())
	if err != nil || !held {
		t.Fatalf("expected refresh to extend, got held=%v err=%v", held, err)
	}
	if len(store.expires) != 1 {
		t.Fatalf("expected one ttl extension, got %d", len(store.expires))
	}
}

func TestRedisWorkerLock_RefreshDetectsLoss(t *testing.T) {
	store := newFakeLockStore()
	lock, err := NewRedisWorkerLock(store, "posportal:scheduler:lock", time.Minute)
	if err != nil {
		t.Fatalf("build lock: %v", err)
	}
	if ok, _ := lock.Acquire(context.Background()); !ok {
		t.Fatal("expected acquire to win")
	}

	// TTL lapsed and a standby grabbed the key.
	store.values["posportal:scheduler:lock"] = "someone-else"
	held, err := lock.Refresh(context.Background())
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if held {
		t.Fatal("expected refresh to report a lost lock")
	}
	if len(store.expires) != 0 {
		t.Fatal("must not extend a lock owned by another worker")
	}
	if err := lock.Release(context.Background()); err != nil {
		t.Fatalf("release: %v", err)
	}
	if len(store.dels) != 0 {
		t.Fatal("must not delete the new owner's lock")
	}
}

func TestRedisWorkerLock_RefreshAfterExpiry(t *testing.T) {
	store := newFakeLockStore()
	lock, err := NewRedisWorkerLock(store, "posportal:scheduler:lock", time.Minute)
	if err != nil {
		t.Fatalf("build lock: %v", err)
	}
	if ok, _ := lock.Acquire(context.Background()); !ok {
		t.Fatal("expected acquire to win")
	}

	delete(store.values, "posportal:scheduler:lock")
	held, err := lock.Refresh(context.Background())
	if err != nil {
		t.Fatalf("refresh after expiry: %v", err)
	}
	if held {
		t.Fatal("expected refresh to report expiry")
	}

	// The worker can take the key again once it is free.
	if ok, _ := lock.Acquire(context.Background()); !ok {
		t.Fatal("expected re-acquire to win")
	}
}

func TestNewRedisWorkerLock_Validation(t *testing.T) {
	if _, err := NewRedisWorkerLock(nil, "key", time.Minute); err == nil {
		t.Fatal("expected error without client")
	}
	if _, err := NewRedisWorkerLock(newFakeLockStore(), "", time.Minute); err == nil {
		t.Fatal("expected error without key")
	}
}
