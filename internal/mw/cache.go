package mw

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// CachedResponse is a captured GET response.
type CachedResponse struct {
	Status  int
	Headers http.Header
	Body    []byte
}

// ResponseStore persists cached responses.
type ResponseStore interface {
	Get(ctx context.Context, key string) (*CachedResponse, bool)
	Set(ctx context.Context, key string, resp *CachedResponse, ttl time.Duration)
}

// MemoryStore keeps responses in process memory.
type MemoryStore struct {
	c *cache.Cache
}

func NewMemoryStore(cleanup time.Duration) *MemoryStore {
	return &MemoryStore{c: cache.New(cache.NoExpiration, cleanup)}
}

func (m *MemoryStore) Get(_ context.Context, key string) (*CachedResponse, bool) {
	v, ok := m.c.Get(key)
	if !ok {
		return nil, false
	}
	return v.(*CachedResponse), true
}

func (m *MemoryStore) Set(_ context.Context, key string, resp *CachedResponse, ttl time.Duration) {
	m.c.Set(key, resp, ttl)
}

// RedisStore shares cached responses between instances.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
	log    *zap.Logger
}

func NewRedisStore(rdb *redis.Client, prefix string, log *zap.Logger) *RedisStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &RedisStore{rdb: rdb, prefix: prefix, log: log}
}

func (r *RedisStore) Get(ctx context.Context, key string) (*CachedResponse, bool) {
	bs, err := r.rdb.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.log.Warn("response cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	resp, ok := decodeResponse(bs)
	return resp, ok
}

func (r *RedisStore) Set(ctx context.Context, key string, resp *CachedResponse, ttl time.Duration) {
	payload, err := encodeResponse(resp)
	if err != nil {
		return
	}
	if err := r.rdb.Set(ctx, r.prefix+key, payload, ttl).Err(); err != nil {
		r.log.Warn("response cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// encodeResponse packs [4 bytes status][4 bytes header length][header JSON][body].
func encodeResponse(resp *CachedResponse) ([]byte, error) {
	hdr, err := json.Marshal(resp.Headers)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 8+len(hdr)+len(resp.Body))
	binary.BigEndian.PutUint32(out[0:4], uint32(resp.Status))
	binary.BigEndian.PutUint32(out[4:8], uint32(len(hdr)))
	copy(out[8:], hdr)
	copy(out[8+len(hdr):], resp.Body)
	return out, nil
}

func decodeResponse(bs []byte) (*CachedResponse, bool) {
	if len(bs) < 8 {
		return nil, false
	}
	hlen := int(binary.BigEndian.Uint32(bs[4:8]))
	if hlen < 0 || 8+hlen > len(bs) {
		return nil, false
	}
	resp := &CachedResponse{Status: int(binary.BigEndian.Uint32(bs[0:4])), Headers: http.Header{}}
	if hlen > 0 {
		if err := json.Unmarshal(bs[8:8+hlen], &resp.Headers); err != nil {
			return nil, false
		}
	}
	resp.Body = bs[8+hlen:]
	return resp, true
}

type bodyCacheWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w bodyCacheWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w bodyCacheWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Cache serves repeated GET requests from store. Only 2xx responses are
// kept. The key is the request URI, so it must only wrap public routes.
func Cache(store ResponseStore, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		key := c.Request.RequestURI
		if cached, ok := store.Get(ctx, key); ok {
			for k, v := range cached.Headers {
				c.Writer.Header()[k] = v
			}
			c.Writer.Header().Set("X-Cache", "HIT")
			c.Writer.WriteHeader(cached.Status)
			c.Writer.Write(cached.Body)
			c.Abort()
			return
		}

		w := &bodyCacheWriter{body: bytes.NewBuffer(nil), ResponseWriter: c.Writer}
		c.Writer = w
		c.Next()

		if w.Status() >= 200 && w.Status() < 300 {
			store.Set(ctx, key, &CachedResponse{
				Status:  w.Status(),
				Headers: w.Header().Clone(),
				Body:    w.body.Bytes(),
			}, ttl)
		}
	}
}
