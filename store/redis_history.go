package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/rushteam/decorec/core"
	"github.com/rushteam/decorec/pkg/logging"
	"github.com/rushteam/decorec/pkg/metrics"
)

// RedisHistory 用每用户一个 ZSET 保存行为历史：score 为时间戳（Unix 纳秒），member 为 JSON。
// 写入与截断在同一个 MULTI 中完成，保证每用户不超过 Cap 条，超出部分按时间戳从小到大淘汰。
type RedisHistory struct {
	client *redis.Client
	prefix string
	cap    int
	logger zerolog.Logger
}

// NewRedisHistory 创建 RedisHistory。keyPrefix 为空时取 "decorec:history:"。
func NewRedisHistory(client *redis.Client, keyPrefix string, historyCap int) *RedisHistory {
	if keyPrefix == "" {
		keyPrefix = "decorec:history:"
	}
	if historyCap <= 0 {
		historyCap = core.HistoryCap
	}
	return &RedisHistory{client: client, prefix: keyPrefix, cap: historyCap, logger: logging.Component("store.redis_history")}
}

var (
	_ core.HistoryStore  = (*RedisHistory)(nil)
	_ core.HistoryWriter = (*RedisHistory)(nil)
)

func (h *RedisHistory) key(userID string) string { return h.prefix + userID }

func (h *RedisHistory) GetUserHistory(ctx context.Context, userID string) ([]core.HistoryEntry, error) {
	members, err := h.client.ZRevRange(ctx, h.key(userID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("zrevrange history: %w", err)
	}
	out, dropped := decodeHistory(members)
	if dropped > 0 {
		metrics.AddDropped("history_entry", dropped)
		logging.With(ctx, h.logger).Warn().Str("user_id", userID).Int("dropped", dropped).
			Msg("undecodable history entries skipped")
	}
	return out, nil
}

// decodeHistory 按原顺序解码 ZSET 成员，返回无法解码的条数。
func decodeHistory(members []string) ([]core.HistoryEntry, int) {
	out := make([]core.HistoryEntry, 0, len(members))
	dropped := 0
	for _, m := range members {
		var e core.HistoryEntry
		if err := json.Unmarshal([]byte(m), &e); err != nil {
			dropped++
			continue
		}
		out = append(out, e)
	}
	return out, dropped
}

func (h *RedisHistory) AppendHistory(ctx context.Context, e core.HistoryEntry) (*core.HistoryEntry, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		return nil, core.Validation(core.ModuleStore, "history entry timestamp is required", nil)
	}
	member, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal history: %w", err)
	}
	key := h.key(e.UserID)
	_, err = h.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, key, redis.Z{Score: float64(e.Timestamp.UnixNano()), Member: member})
		// 只保留分数最高（最新）的 cap 条
		pipe.ZRemRangeByRank(ctx, key, 0, int64(-h.cap-1))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("append history: %w", err)
	}
	return &e, nil
}

func (h *RedisHistory) DeleteUserHistory(ctx context.Context, userID string) error {
	return h.client.Del(ctx, h.key(userID)).Err()
}

// RemoveProduct 从所有用户历史中移除某商品的记录（商品删除时调用）。
func (h *RedisHistory) RemoveProduct(ctx context.Context, productID string) error {
	iter := h.client.Scan(ctx, 0, h.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		members, err := h.client.ZRange(ctx, key, 0, -1).Result()
		if err != nil {
			return fmt.Errorf("zrange history: %w", err)
		}
		for _, m := range members {
			var e core.HistoryEntry
			if json.Unmarshal([]byte(m), &e) == nil && e.ProductID == productID {
				if err := h.client.ZRem(ctx, key, m).Err(); err != nil {
					return fmt.Errorf("zrem history: %w", err)
				}
			}
		}
	}
	return iter.Err()
}
