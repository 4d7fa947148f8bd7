//go:build !integration

package redis

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// fakeClient is an in-memory RedisClient for unit tests. TTLs are recorded
// but never enforced.
type fakeClient struct {
	mu   sync.Mutex
	data map[string]string
	ttls map[string]time.Duration

	getErr error
	setErr error
}

func newFakeClient() *fakeClient {
	return &fakeClient{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeClient) Ping(ctx context.Context) error { return nil }

func (f *fakeClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	switch v := value.(type) {
	case string:
		f.data[key] = v
	case []byte:
		f.data[key] = string(v)
	default:
		f.data[key] = fmt.Sprintf("%v", v)
	}
	if expiration > 0 {
		f.ttls[key] = expiration
	}
	return nil
}

func (f *fakeClient) Get(ctx context.Context, key string) (string, error) {
	if f.getErr != nil {
		return "", f.getErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	if !ok {
		return "", Nil
	}
	return v, nil
}

func (f *fakeClient) Incr(ctx context.Context, key string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, _ := strconv.ParseInt(f.data[key], 10, 64)
	n++
	f.data[key] = strconv.FormatInt(n, 10)
	return n, nil
}

func (f *fakeClient) Expire(ctx context.Context, key string, expiration time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ttls[key] = expiration
	return nil
}

func (f *fakeClient) Del(ctx context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.data, k)
	}
	return nil
}

func (f *fakeClient) Close() error { return nil }

func silentLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}
