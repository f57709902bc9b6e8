package aggregator_test

import (
	"context"
	"errors"
	"sync"
	"time"

	agg "github.com/caramaschiHG/Dilutio/internal/aggregator"
)

// fakeKVStore 仅用于单元测试（内存 KV + TTL + 调用计数）
type fakeKVStore struct {
	mu   sync.Mutex
	data map[string]fakeKVItem
	gets int
	sets int
}

type fakeKVItem struct {
	value   string
	expires time.Time // zero = no ttl
}

func newFakeKVStore() *fakeKVStore {
	return &fakeKVStore{
		data: make(map[string]fakeKVItem),
	}
}

func (f *fakeKVStore) Get(ctx context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++

	item, ok := f.data[key]
	if !ok {
		return "", agg.ErrCacheMiss
	}
	if !item.expires.IsZero() && time.Now().After(item.expires) {
		delete(f.data, key)
		return "", agg.ErrCacheMiss
	}
	return item.value, nil
}

func (f *fakeKVStore) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sets++

	var exp time.Time
	if ttl > 0 {
		exp = time.Now().Add(ttl)
	}
	f.data[key] = fakeKVItem{value: value, expires: exp}
	return nil
}

func (f *fakeKVStore) keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.data))
	for k := range f.data {
		out = append(out, k)
	}
	return out
}

func (f *fakeKVStore) put(key, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = fakeKVItem{value: value}
}

var errKVDown = errors.New("kv unavailable")

// brokenKVStore 所有操作均失败
type brokenKVStore struct{}

func (brokenKVStore) Get(ctx context.Context, key string) (string, error) {
	return "", errKVDown
}

func (brokenKVStore) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	return errKVDown
}
