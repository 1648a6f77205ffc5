package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/openfga/go-sdk/client"
)

// PermissionCache 权限缓存
type PermissionCache struct {
	cache *sync.Map
	ttl   time.Duration
}

// cacheEntry 缓存条目
type cacheEntry struct {
	value     bool
	expiresAt time.Time
}

// NewPermissionCache 创建权限缓存
func NewPermissionCache(ttl time.Duration) *PermissionCache {
	return &PermissionCache{
		cache: &sync.Map{},
		ttl:   ttl,
	}
}

// Get 获取缓存，过期条目视为未命中
func (c *PermissionCache) Get(key string) (bool, bool) {
	val, found := c.cache.Load(key)
	if !found {
		return false, false
	}

	entry := val.(*cacheEntry)
	if time.Now().After(entry.expiresAt) {
		c.cache.Delete(key)
		return false, false
	}
	return entry.value, true
}

// Set 设置缓存
func (c *PermissionCache) Set(key string, value bool) {
	c.cache.Store(key, &cacheEntry{
		value:     value,
		expiresAt: time.Now().Add(c.ttl),
	})
}

// Delete 删除单个条目
func (c *PermissionCache) Delete(key string) {
	c.cache.Delete(key)
}

// Clear 清空缓存
func (c *PermissionCache) Clear() {
	c.cache.Range(func(key, value interface{}) bool {
		c.cache.Delete(key)
		return true
	})
}

func permissionKey(userID, relation, objectType, objectID string) string {
	return fmt.Sprintf("user:%s:%s:%s:%s", userID, relation, objectType, objectID)
}

// CachedOpenFGAClient 带缓存的关系检查
type CachedOpenFGAClient struct {
	checker RelationChecker
	writer  RelationWriter
	cache   *PermissionCache
}

// NewCachedOpenFGAClient 创建带缓存的 OpenFGA 客户端
func NewCachedOpenFGAClient(fga *OpenFGAClient, cache *PermissionCache) *CachedOpenFGAClient {
	return &CachedOpenFGAClient{checker: fga, writer: fga, cache: cache}
}

// NewCachedChecker 包装任意 RelationChecker
func NewCachedChecker(checker RelationChecker, writer RelationWriter, cache *PermissionCache) *CachedOpenFGAClient {
	return &CachedOpenFGAClient{checker: checker, writer: writer, cache: cache}
}

// CheckPermission 检查权限（带缓存），只缓存成功的结果
func (c *CachedOpenFGAClient) CheckPermission(ctx context.Context, userID, relation, objectType, objectID string) (bool, error) {
	key := permissionKey(userID, relation, objectType, objectID)
	if value, found := c.cache.Get(key); found {
		return value, nil
	}

	allowed, err := c.checker.CheckPermission(ctx, userID, relation, objectType, objectID)
	if err != nil {
		return false, err
	}
	c.cache.Set(key, allowed)
	return allowed, nil
}

// WriteTuples 写入关系后清空缓存
// 机构关系会影响该机构全部招聘方的结果，无法按 key 精确失效
func (c *CachedOpenFGAClient) WriteTuples(ctx context.Context, tuples []client.ClientTupleKey) error {
	if c.writer == nil {
		return nil
	}
	if err := c.writer.WriteTuples(ctx, tuples); err != nil {
		return err
	}
	c.cache.Clear()
	return nil
}

// GrantRecord 写入新记录的候选人和机构关系
func (c *CachedOpenFGAClient) GrantRecord(ctx context.Context, recordID, candidateID, agencyID string) error {
	return c.WriteTuples(ctx, RecordTuples(recordID, candidateID, agencyID))
}
