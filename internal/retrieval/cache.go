package retrieval

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"brookside/internal/feature"
	"brookside/internal/logger"
)

// CachedIndex 在 VectorIndex 外套一层 Redis 查询缓存。
// 缓存是尽力而为的：命中加速，未命中或 Redis 故障都透传到下层索引。
// 键里编入 schema 版本，特征含义漂移后旧缓存自动失效。
type CachedIndex struct {
	inner VectorIndex
	rdb   *redis.Client
	ttl   time.Duration
}

func NewCachedIndex(inner VectorIndex, rdb *redis.Client, ttl time.Duration) *CachedIndex {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &CachedIndex{inner: inner, rdb: rdb, ttl: ttl}
}

func searchKey(query string, topK int, f Filter) string {
	sum := sha256.Sum256([]byte(query))
	return fmt.Sprintf("brookside:%s:search:%s:%d:%s:%s",
		feature.SchemaVersion, hex.EncodeToString(sum[:8]), topK, f.Book, f.Section)
}

func neighborKey(book string, seq, n int) string {
	return fmt.Sprintf("brookside:%s:nbr:%s:%d:%d", feature.SchemaVersion, book, seq, n)
}

// Search 实现 VectorIndex。
func (c *CachedIndex) Search(ctx context.Context, query string, topK int, f Filter) ([]ScoredChunk, error) {
	key := searchKey(query, topK, f)
	if raw, err := c.rdb.Get(ctx, key).Bytes(); err == nil {
		var cached []ScoredChunk
		if json.Unmarshal(raw, &cached) == nil {
			return cached, nil
		}
	}

	chunks, err := c.inner.Search(ctx, query, topK, f)
	if err != nil {
		return nil, err
	}
	c.put(ctx, key, chunks)
	return chunks, nil
}

// Neighbors 实现 VectorIndex。
func (c *CachedIndex) Neighbors(ctx context.Context, book string, seq, n int) ([]Chunk, error) {
	key := neighborKey(book, seq, n)
	if raw, err := c.rdb.Get(ctx, key).Bytes(); err == nil {
		var cached []Chunk
		if json.Unmarshal(raw, &cached) == nil {
			return cached, nil
		}
	}

	chunks, err := c.inner.Neighbors(ctx, book, seq, n)
	if err != nil {
		return nil, err
	}
	c.put(ctx, key, chunks)
	return chunks, nil
}

func (c *CachedIndex) put(ctx context.Context, key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		logger.Debugf("检索缓存写入失败 key=%s: %v", key, err)
	}
}
