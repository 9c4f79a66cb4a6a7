package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rickgao/arbwatch/internal/config"
	"github.com/rickgao/arbwatch/internal/model"
)

// Client is the subset of a Redis client the mirror uses.
type Client interface {
	redis.Scripter
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	Close() error
}

// applyRecord writes the hash only when the incoming (epoch, version) is
// newer than the stored one, so concurrent writers cannot regress a record.
//
// KEYS[1] record key
// ARGV[1] epoch, ARGV[2] version, ARGV[3] ttl in ms (0 keeps the key)
// ARGV[4..] field/value pairs
var applyRecord = redis.NewScript(`
local cur_epoch = tonumber(redis.call('HGET', KEYS[1], 'epoch') or '0')
local cur_version = tonumber(redis.call('HGET', KEYS[1], 'version') or '0')
local epoch = tonumber(ARGV[1])
local version = tonumber(ARGV[2])
if epoch < cur_epoch or (epoch == cur_epoch and version <= cur_version) then
	return 0
end
redis.call('HSET', KEYS[1], unpack(ARGV, 4))
local ttl = tonumber(ARGV[3])
if ttl > 0 then
	redis.call('PEXPIRE', KEYS[1], ttl)
end
return 1
`)

// Mirror writes store state and opportunities to Redis.
type Mirror struct {
	client  Client
	prefix  string
	channel string
	ttl     time.Duration
	logger  *slog.Logger
	now     func() time.Time
	// epoch orders records across restarts: versions restart at zero with
	// every process, so a newer epoch always wins.
	epoch int64

	records   atomic.Int64
	stale     atomic.Int64
	published atomic.Int64
	errors    atomic.Int64
}

// MirrorStats holds mirror counters.
type MirrorStats struct {
	Records   int64 `json:"records"`
	Stale     int64 `json:"stale"`
	Published int64 `json:"published"`
	Errors    int64 `json:"errors"`
}

// NewMirror connects to Redis and verifies the connection with a ping.
func NewMirror(ctx context.Context, cfg config.RedisConfig, logger *slog.Logger) (*Mirror, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewMirrorWithClient(client, cfg, logger), nil
}

// NewMirrorWithClient creates a Mirror on an existing client.
func NewMirrorWithClient(client Client, cfg config.RedisConfig, logger *slog.Logger) *Mirror {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mirror{
		client:  client,
		prefix:  cfg.KeyPrefix,
		channel: cfg.Channel,
		ttl:     cfg.TTL,
		logger:  logger,
		now:     time.Now,
		epoch:   time.Now().UnixMilli(),
	}
}

// HandleRecord stores rec as a hash and refreshes its TTL, unless Redis
// already holds a record with a higher version.
func (m *Mirror) HandleRecord(ctx context.Context, asset string, rec model.AssetBestRecord, version uint64) error {
	key := RecordKey(m.prefix, asset)

	fields := RecordFields(rec, m.now())
	fields["epoch"] = strconv.FormatInt(m.epoch, 10)
	fields["version"] = strconv.FormatUint(version, 10)

	args := []any{m.epoch, version, m.ttl.Milliseconds()}
	args = append(args, flatten(fields)...)

	applied, err := applyRecord.Run(ctx, m.client, []string{key}, args...).Int()
	if err != nil {
		m.errors.Add(1)
		return fmt.Errorf("failed to mirror record %s: %w", asset, err)
	}
	if applied == 0 {
		m.stale.Add(1)
		m.logger.Debug("stale record skipped", "asset", asset, "version", version)
		return nil
	}

	m.records.Add(1)
	return nil
}

// Publish sends opp as JSON on the configured channel.
func (m *Mirror) Publish(ctx context.Context, opp model.Opportunity) error {
	data, err := json.Marshal(opp)
	if err != nil {
		return fmt.Errorf("failed to marshal opportunity: %w", err)
	}

	if err := m.client.Publish(ctx, m.channel, data).Err(); err != nil {
		m.errors.Add(1)
		return fmt.Errorf("failed to publish opportunity: %w", err)
	}

	m.published.Add(1)
	return nil
}

// Run publishes every opportunity from sub until sub is closed or ctx ends.
func (m *Mirror) Run(ctx context.Context, sub <-chan model.Opportunity) {
	for {
		select {
		case <-ctx.Done():
			return
		case opp, ok := <-sub:
			if !ok {
				return
			}
			if err := m.Publish(ctx, opp); err != nil {
				m.logger.Warn("redis publish failed", "asset", opp.Asset, "error", err)
			}
		}
	}
}

// Stats returns current counters.
func (m *Mirror) Stats() MirrorStats {
	return MirrorStats{
		Records:   m.records.Load(),
		Stale:     m.stale.Load(),
		Published: m.published.Load(),
		Errors:    m.errors.Load(),
	}
}

// Close closes the Redis client.
func (m *Mirror) Close() error {
	return m.client.Close()
}

// RecordKey returns the hash key for an asset.
func RecordKey(prefix, asset string) string {
	return prefix + "best:" + asset
}

// RecordFields returns the hash fields for rec. An empty buy side is
// stored as "+Inf".
func RecordFields(rec model.AssetBestRecord, updatedAt time.Time) map[string]any {
	return map[string]any{
		"best_buy_price":   formatPrice(rec.BestBuyPrice),
		"best_buy_market":  rec.BestBuyMarket,
		"best_sell_price":  formatPrice(rec.BestSellPrice),
		"best_sell_market": rec.BestSellMarket,
		"updated_at":       updatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func formatPrice(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}

// flatten returns fields as key/value pairs in key order.
func flatten(fields map[string]any) []any {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]any, 0, 2*len(fields))
	for _, k := range keys {
		out = append(out, k, fields[k])
	}
	return out
}
