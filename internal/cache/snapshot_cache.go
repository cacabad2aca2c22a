package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/lifecycle-engine/internal/domain"
)

const (
	workflowKeyPrefix = "lifecycle:workflow:"
	policyKeyPrefix   = "lifecycle:policy:"
)

// SnapshotCache caches compiled workflow definitions and SLA policies in
// Redis so lifecycle triggers avoid re-reading the structural tables on
// every call. Authoring writes invalidate entries; a nil client degrades
// to a pass-through miss.
type SnapshotCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewSnapshotCache constructs the cache.
func NewSnapshotCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *SnapshotCache {
	return &SnapshotCache{client: client, ttl: ttl, logger: logger}
}

// WorkflowSnapshot returns the cached snapshot for a definition, if any.
func (c *SnapshotCache) WorkflowSnapshot(ctx context.Context, definitionID string) (*domain.WorkflowSnapshot, bool) {
	var snapshot domain.WorkflowSnapshot
	if !c.get(ctx, workflowKeyPrefix+definitionID, &snapshot) {
		return nil, false
	}
	return &snapshot, true
}

// StoreWorkflowSnapshot caches a definition snapshot.
func (c *SnapshotCache) StoreWorkflowSnapshot(ctx context.Context, snapshot *domain.WorkflowSnapshot) {
	c.set(ctx, workflowKeyPrefix+snapshot.Definition.ID, snapshot)
}

// InvalidateWorkflow drops the cached snapshot for a definition.
func (c *SnapshotCache) InvalidateWorkflow(ctx context.Context, definitionID string) {
	c.del(ctx, workflowKeyPrefix+definitionID)
}

// PolicySnapshot returns the cached snapshot for a policy, if any.
func (c *SnapshotCache) PolicySnapshot(ctx context.Context, policyID string) (*domain.SlaPolicySnapshot, bool) {
	var snapshot domain.SlaPolicySnapshot
	if !c.get(ctx, policyKeyPrefix+policyID, &snapshot) {
		return nil, false
	}
	return &snapshot, true
}

// StorePolicySnapshot caches a policy snapshot.
func (c *SnapshotCache) StorePolicySnapshot(ctx context.Context, snapshot *domain.SlaPolicySnapshot) {
	c.set(ctx, policyKeyPrefix+snapshot.Policy.ID, snapshot)
}

// InvalidatePolicy drops the cached snapshot for a policy.
func (c *SnapshotCache) InvalidatePolicy(ctx context.Context, policyID string) {
	c.del(ctx, policyKeyPrefix+policyID)
}

func (c *SnapshotCache) get(ctx context.Context, key string, out any) bool {
	if c == nil || c.client == nil {
		return false
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Debug("cache read failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		c.logger.Warn("corrupt cache entry discarded", zap.String("key", key), zap.Error(err))
		c.del(ctx, key)
		return false
	}
	return true
}

func (c *SnapshotCache) set(ctx context.Context, key string, value any) {
	if c == nil || c.client == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("cache encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.logger.Debug("cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (c *SnapshotCache) del(ctx context.Context, key string) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.logger.Debug("cache delete failed", zap.String("key", key), zap.Error(err))
	}
}
