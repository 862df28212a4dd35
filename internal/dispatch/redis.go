// Package dispatch hands composed work items to the external automation
// workers through Redis. Workers lease items, fill the third-party form, and
// report the outcome back through the queue manager.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"jobswipe-core/internal/config"
	"jobswipe-core/internal/models"
)

// WorkItem is the composed unit handed to an automation worker.
type WorkItem struct {
	ApplicationID    string            `json:"application_id"`
	UserID           string            `json:"user_id"`
	JobID            string            `json:"job_id"`
	SnapshotID       string            `json:"snapshot_id"`
	SchemaID         string            `json:"schema_id,omitempty"`
	JobBoard         string            `json:"job_board"`
	ApplyURL         string            `json:"apply_url"`
	Priority         models.Priority   `json:"priority"`
	Attempt          int               `json:"attempt"`
	ResumeOverride   string            `json:"resume_override,omitempty"`
	CoverLetter      string            `json:"cover_letter,omitempty"`
	AutomationConfig map[string]string `json:"automation_config,omitempty"`
	EnqueuedAt       time.Time         `json:"enqueued_at"`
}

// AggregateStats is the dispatcher's live view, consumed by the statistics
// aggregator when available.
type AggregateStats struct {
	ReadyByPriority map[models.Priority]int64 `json:"ready_by_priority"`
	ReadyTotal      int64                     `json:"ready_total"`
	InFlight        int64                     `json:"in_flight"`
}

// priorityOrder is the drain order for workers: highest tier first.
var priorityOrder = []models.Priority{
	models.PriorityImmediate,
	models.PriorityUrgent,
	models.PriorityHigh,
	models.PriorityNormal,
}

// Redis coordinates ready, in-flight, and per-tier dispatch queues.
type Redis struct {
	client      *redis.Client
	inflightKey string
	itemPrefix  string
	leaseTTL    time.Duration
}

// NewRedis builds a dispatcher from config.
func NewRedis(cfg config.Config) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	lease := cfg.DispatchLeaseTTL
	if lease == 0 {
		lease = 5 * time.Minute
	}
	return &Redis{
		client:      client,
		inflightKey: "dispatch:inflight",
		itemPrefix:  "dispatch:item:",
		leaseTTL:    lease,
	}
}

// NewRedisWithClient injects an existing client; used by tests.
func NewRedisWithClient(client *redis.Client, leaseTTL time.Duration) *Redis {
	return &Redis{
		client:      client,
		inflightKey: "dispatch:inflight",
		itemPrefix:  "dispatch:item:",
		leaseTTL:    leaseTTL,
	}
}

func (d *Redis) readyKey(p models.Priority) string {
	return fmt.Sprintf("dispatch:ready:%s", p)
}

func (d *Redis) itemKey(applicationID string) string {
	return d.itemPrefix + applicationID
}

// Dispatch pushes the work item onto its tier's ready queue. High-priority
// hand-offs jump the line within the tier.
func (d *Redis) Dispatch(ctx context.Context, item WorkItem, highPriority bool) error {
	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("marshal work item: %w", err)
	}

	pipe := d.client.TxPipeline()
	pipe.HSet(ctx, d.itemKey(item.ApplicationID),
		"payload", data,
		"priority", string(item.Priority),
		"state", "queued",
	)
	if highPriority {
		pipe.LPush(ctx, d.readyKey(item.Priority), item.ApplicationID)
	} else {
		pipe.RPush(ctx, d.readyKey(item.Priority), item.ApplicationID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("dispatch %s: %w", item.ApplicationID, err)
	}
	return nil
}

// Cancel removes an application from every dispatch structure, best-effort.
// A worker already past the lease may still finish.
func (d *Redis) Cancel(ctx context.Context, applicationID string) error {
	pipe := d.client.TxPipeline()
	for _, p := range priorityOrder {
		pipe.LRem(ctx, d.readyKey(p), 0, applicationID)
	}
	pipe.ZRem(ctx, d.inflightKey, applicationID)
	pipe.Del(ctx, d.itemKey(applicationID))
	_, err := pipe.Exec(ctx)
	return err
}

// Status returns the dispatcher-side state for an application, or "" when the
// dispatcher no longer tracks it.
func (d *Redis) Status(ctx context.Context, applicationID string) (string, error) {
	state, err := d.client.HGet(ctx, d.itemKey(applicationID), "state").Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("dispatch status: %w", err)
	}
	return state, nil
}

// AggregateStats reports ready depths per tier and the in-flight count.
func (d *Redis) AggregateStats(ctx context.Context) (*AggregateStats, error) {
	pipe := d.client.Pipeline()
	depthCmds := make(map[models.Priority]*redis.IntCmd, len(priorityOrder))
	for _, p := range priorityOrder {
		depthCmds[p] = pipe.LLen(ctx, d.readyKey(p))
	}
	inflightCmd := pipe.ZCard(ctx, d.inflightKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("aggregate stats: %w", err)
	}

	stats := &AggregateStats{ReadyByPriority: make(map[models.Priority]int64, len(priorityOrder))}
	for p, cmd := range depthCmds {
		stats.ReadyByPriority[p] = cmd.Val()
		stats.ReadyTotal += cmd.Val()
	}
	stats.InFlight = inflightCmd.Val()
	return stats, nil
}

// Lease pops the next application in tier order and places it in-flight with a
// visibility deadline. Returns the work item, or nil when nothing is ready.
func (d *Redis) Lease(ctx context.Context) (*WorkItem, error) {
	keys := make([]string, 0, len(priorityOrder)+1)
	for _, p := range priorityOrder {
		keys = append(keys, d.readyKey(p))
	}
	keys = append(keys, d.inflightKey)

	res, err := leaseScript.Run(ctx, d.client, keys, time.Now().Add(d.leaseTTL).UnixMilli()).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lease: %w", err)
	}
	applicationID, ok := res.(string)
	if !ok {
		return nil, fmt.Errorf("unexpected type from lease script: %T", res)
	}

	payload, err := d.client.HGet(ctx, d.itemKey(applicationID), "payload").Result()
	if err != nil {
		return nil, fmt.Errorf("read leased item %s: %w", applicationID, err)
	}
	var item WorkItem
	if err := json.Unmarshal([]byte(payload), &item); err != nil {
		return nil, fmt.Errorf("unmarshal leased item %s: %w", applicationID, err)
	}
	_ = d.client.HSet(ctx, d.itemKey(applicationID), "state", "processing").Err()
	return &item, nil
}

// Ack removes a finished application from in-flight tracking and its item
// record.
func (d *Redis) Ack(ctx context.Context, applicationID string) error {
	pipe := d.client.TxPipeline()
	pipe.ZRem(ctx, d.inflightKey, applicationID)
	pipe.Del(ctx, d.itemKey(applicationID))
	_, err := pipe.Exec(ctx)
	return err
}

// RequeueExpired reclaims leases whose visibility deadline passed, pushing the
// items back onto their tier queues.
func (d *Redis) RequeueExpired(ctx context.Context, now time.Time, limit int64) ([]string, error) {
	ids, err := d.client.ZRangeByScore(ctx, d.inflightKey, &redis.ZRangeBy{
		Min:    "-inf",
		Max:    fmt.Sprintf("%d", now.UnixMilli()),
		Offset: 0,
		Count:  limit,
	}).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	pipe := d.client.TxPipeline()
	for _, id := range ids {
		priority, err := d.client.HGet(ctx, d.itemKey(id), "priority").Result()
		if err != nil || priority == "" {
			priority = string(models.PriorityNormal)
		}
		pipe.ZRem(ctx, d.inflightKey, id)
		pipe.HSet(ctx, d.itemKey(id), "state", "queued")
		pipe.RPush(ctx, d.readyKey(models.Priority(priority)), id)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}
	return ids, nil
}

// ReadyDepth returns the total length across tier queues.
func (d *Redis) ReadyDepth(ctx context.Context) (int64, error) {
	stats, err := d.AggregateStats(ctx)
	if err != nil {
		return 0, err
	}
	return stats.ReadyTotal, nil
}

var leaseScript = redis.NewScript(`
local inflight = KEYS[#KEYS]
for i=1,#KEYS-1 do
  local id = redis.call('LPOP', KEYS[i])
  if id then
    redis.call('ZADD', inflight, ARGV[1], id)
    return id
  end
end
return nil
`)
