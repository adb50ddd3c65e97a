/*
Copyright 2022 The Numaproj Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package redisstate implements the §4.3 state Backend against Redis, for deployments that need
// per-key state to survive a worker restart without paying for a full external database. Every
// cell is stored under a key built from (key, namespace, address); bags use a Redis list,
// watermark holds a plain string of the instant's Unix-nanosecond encoding, and value cells a
// plain string of the caller's opaque bytes.
package redisstate

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/flowcore/windower/pkg/state"
)

// Backend is a state.Backend backed by a Redis client. Every call round-trips to Redis
// synchronously; there is no prefetch or batching, so each cell access is its own round trip.
type Backend struct {
	rdb    *redis.Client
	ctx    context.Context
	prefix string
}

// New returns a Backend using rdb, namespacing every Redis key under prefix to let several
// pipelines share one Redis instance.
func New(ctx context.Context, rdb *redis.Client, prefix string) *Backend {
	return &Backend{rdb: rdb, ctx: ctx, prefix: prefix}
}

func (b *Backend) valueKey(key string, ns state.Namespace, addr state.Address) string {
	return fmt.Sprintf("%s:v:%s:%s:%s", b.prefix, key, ns, addr)
}

func (b *Backend) bagKey(key string, ns state.Namespace, addr state.Address) string {
	return fmt.Sprintf("%s:b:%s:%s:%s", b.prefix, key, ns, addr)
}

func (b *Backend) holdKey(key string, ns state.Namespace, addr state.Address) string {
	return fmt.Sprintf("%s:h:%s:%s:%s", b.prefix, key, ns, addr)
}

func (b *Backend) Value(key string, ns state.Namespace, addr state.Address) state.ValueCell {
	return &valueCell{b: b, redisKey: b.valueKey(key, ns, addr)}
}

func (b *Backend) Bag(key string, ns state.Namespace, addr state.Address) state.BagCell {
	return &bagCell{b: b, redisKey: b.bagKey(key, ns, addr)}
}

func (b *Backend) WatermarkHold(key string, ns state.Namespace, addr state.Address) state.WatermarkHoldCell {
	return &holdCell{b: b, redisKey: b.holdKey(key, ns, addr)}
}

func (b *Backend) MergeBags(key string, sources []state.Namespace, result state.Namespace, addr state.Address) state.BagCell {
	resultKey := b.bagKey(key, result, addr)
	for _, ns := range sources {
		sourceKey := b.bagKey(key, ns, addr)
		if sourceKey == resultKey {
			continue
		}
		values, err := b.rdb.LRange(b.ctx, sourceKey, 0, -1).Result()
		if err != nil || len(values) == 0 {
			continue
		}
		args := make([]interface{}, len(values))
		for i, v := range values {
			args[i] = v
		}
		b.rdb.RPush(b.ctx, resultKey, args...)
		b.pendingDelete(key, sourceKey)
	}
	return &bagCell{b: b, redisKey: resultKey}
}

func (b *Backend) MergeWatermarkHolds(key string, sources []state.Namespace, result state.Namespace, addr state.Address, combine func(existing, incoming time.Time) time.Time) state.WatermarkHoldCell {
	resultKey := b.holdKey(key, result, addr)
	var merged *time.Time
	for _, ns := range sources {
		sourceKey := b.holdKey(key, ns, addr)
		if t, ok := b.readHold(sourceKey); ok {
			if merged == nil {
				merged = &t
			} else {
				combined := combine(*merged, t)
				merged = &combined
			}
		}
		if sourceKey != resultKey {
			b.pendingDelete(key, sourceKey)
		}
	}
	if merged != nil {
		b.writeHold(resultKey, *merged)
	}
	return &holdCell{b: b, redisKey: resultKey}
}

// pendingClearsKey is the Redis set tracking, per key, which source cells a merge has folded
// away and must be deleted at the next Persist (§4.3: "after persist, source namespaces are
// empty for that address").
func (b *Backend) pendingClearsKey(key string) string {
	return fmt.Sprintf("%s:pending:%s", b.prefix, key)
}

func (b *Backend) pendingDelete(key, redisKey string) {
	b.rdb.SAdd(b.ctx, b.pendingClearsKey(key), redisKey)
}

func (b *Backend) Persist(key string) error {
	pendingKey := b.pendingClearsKey(key)
	members, err := b.rdb.SMembers(b.ctx, pendingKey).Result()
	if err != nil {
		return fmt.Errorf("redisstate: persist failed to read pending clears for %q: %w", key, err)
	}
	if len(members) > 0 {
		if err := b.rdb.Del(b.ctx, members...).Err(); err != nil {
			return fmt.Errorf("redisstate: persist failed to clear merged sources for %q: %w", key, err)
		}
	}
	return b.rdb.Del(b.ctx, pendingKey).Err()
}

func (b *Backend) readHold(redisKey string) (time.Time, bool) {
	raw, err := b.rdb.Get(b.ctx, redisKey).Result()
	if err != nil {
		return time.Time{}, false
	}
	nanos, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.Unix(0, nanos).UTC(), true
}

func (b *Backend) writeHold(redisKey string, t time.Time) {
	b.rdb.Set(b.ctx, redisKey, strconv.FormatInt(t.UnixNano(), 10), 0)
}

type valueCell struct {
	b        *Backend
	redisKey string
}

func (c *valueCell) Read() ([]byte, bool) {
	raw, err := c.b.rdb.Get(c.b.ctx, c.redisKey).Bytes()
	if err != nil {
		return nil, false
	}
	return raw, true
}

func (c *valueCell) Write(v []byte) {
	c.b.rdb.Set(c.b.ctx, c.redisKey, v, 0)
}

func (c *valueCell) Clear() {
	c.b.rdb.Del(c.b.ctx, c.redisKey)
}

type bagCell struct {
	b        *Backend
	redisKey string
}

func (c *bagCell) Append(v []byte) {
	c.b.rdb.RPush(c.b.ctx, c.redisKey, v)
}

func (c *bagCell) ReadAll() [][]byte {
	values, err := c.b.rdb.LRange(c.b.ctx, c.redisKey, 0, -1).Result()
	if err != nil {
		return nil
	}
	out := make([][]byte, len(values))
	for i, v := range values {
		out[i] = []byte(v)
	}
	return out
}

func (c *bagCell) Clear() {
	c.b.rdb.Del(c.b.ctx, c.redisKey)
}

type holdCell struct {
	b        *Backend
	redisKey string
}

func (c *holdCell) Add(t time.Time, combine func(existing, incoming time.Time) time.Time) {
	if existing, ok := c.b.readHold(c.redisKey); ok {
		c.b.writeHold(c.redisKey, combine(existing, t))
		return
	}
	c.b.writeHold(c.redisKey, t)
}

func (c *holdCell) Read() (time.Time, bool) {
	return c.b.readHold(c.redisKey)
}

func (c *holdCell) Clear() {
	c.b.rdb.Del(c.b.ctx, c.redisKey)
}
