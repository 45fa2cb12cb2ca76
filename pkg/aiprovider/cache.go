package aiprovider

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	apperrors "github.com/zhipai/zhipai/pkg/errors"
	"github.com/zhipai/zhipai/pkg/logger"
	"github.com/zhipai/zhipai/pkg/model"
	"github.com/zhipai/zhipai/pkg/reasoning"
)

const cacheKeyPrefix = "zhipai:ai:recommendations:"

// Cache 推荐结果的 Redis 缓存层
// Redis 不可用时直接透传到内层 Provider，缓存故障不影响生成流程
type Cache struct {
	inner Provider
	rdb   *redis.Client
	ttl   time.Duration
}

// NewCache 创建缓存层
func NewCache(inner Provider, rdb *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Cache{inner: inner, rdb: rdb, ttl: ttl}
}

// GetRecommendations 先查缓存，未命中时请求内层并回写
func (c *Cache) GetRecommendations(
	ctx context.Context,
	shifts []*model.Shift,
	staff []*model.Staff,
	history *HistoricalSummary,
	strategy string,
) (map[uuid.UUID]Recommendation, error) {
	key := c.cacheKey(shifts, staff, strategy)

	if c.rdb != nil {
		if payload, err := c.rdb.Get(ctx, key).Bytes(); err == nil {
			var cached map[string]Recommendation
			if err := json.Unmarshal(payload, &cached); err == nil {
				result := make(map[uuid.UUID]Recommendation, len(cached))
				for k, rec := range cached {
					if id, err := uuid.Parse(k); err == nil {
						result[id] = rec
					}
				}
				return result, nil
			}
		} else if err != redis.Nil {
			logger.Debug().Err(err).Msg("推荐缓存读取失败，透传到推荐服务")
		}
	}

	result, err := c.inner.GetRecommendations(ctx, shifts, staff, history, strategy)
	if err != nil {
		return nil, err
	}

	if c.rdb != nil {
		serializable := make(map[string]Recommendation, len(result))
		for id, rec := range result {
			serializable[id.String()] = rec
		}
		if payload, err := json.Marshal(serializable); err == nil {
			if err := c.rdb.Set(ctx, key, payload, c.ttl).Err(); err != nil {
				logger.Debug().Err(err).Msg("推荐缓存写入失败")
			}
		}
	}

	return result, nil
}

// EnrichReasoning 解释增强不缓存，直接透传
func (c *Cache) EnrichReasoning(ctx context.Context, shift *model.Shift, staff *model.Staff) (*reasoning.Enrichment, error) {
	if enricher, ok := c.inner.(reasoning.Enricher); ok {
		return enricher.EnrichReasoning(ctx, shift, staff)
	}
	return nil, apperrors.AIService("推荐服务不支持解释增强")
}

// cacheKey 由班次、员工与策略生成稳定的缓存键
func (c *Cache) cacheKey(shifts []*model.Shift, staff []*model.Staff, strategy string) string {
	ids := make([]string, 0, len(shifts)+len(staff))
	for _, sh := range shifts {
		ids = append(ids, sh.ID.String())
	}
	for _, st := range staff {
		ids = append(ids, st.ID.String())
	}
	sort.Strings(ids)

	sum := sha256.Sum256([]byte(strategy + "|" + strings.Join(ids, ",")))
	return cacheKeyPrefix + hex.EncodeToString(sum[:16])
}
