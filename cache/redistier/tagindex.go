package redistier

import (
	"context"
	"slices"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/jonwraymond/querycache/cache"
)

// attachScript adds ARGV[1] to each tag set in KEYS[2:] scored by its
// expiry in unix milliseconds, records the tag names on KEYS[1] and makes
// sure no set expires before ARGV[3] milliseconds from now.
//
// KEYS: tagsOf(key), tag(t1), tag(t2), ...
// ARGV: key, expiresAtMillis, ttlMillis, t1, t2, ...
var attachScript = redis.NewScript(`
local ttl = tonumber(ARGV[3])
for i = 2, #KEYS do
	redis.call('ZADD', KEYS[i], ARGV[2], ARGV[1])
	if redis.call('PTTL', KEYS[i]) < ttl then
		redis.call('PEXPIRE', KEYS[i], ARGV[3])
	end
	redis.call('SADD', KEYS[1], ARGV[i + 2])
end
if redis.call('PTTL', KEYS[1]) < ttl then
	redis.call('PEXPIRE', KEYS[1], ARGV[3])
end
return 0
`)

// TagIndex keeps tag membership in Redis so every process sharing the
// Redis instance sees the same associations. Each tag is a sorted set of
// keys scored by entry expiry; expired members are trimmed on read and
// every set carries a TTL covering its longest-lived member.
type TagIndex struct {
	rdb redis.UniversalClient
	ks  keyspace
	now func() time.Time
}

// NewTagIndex creates a TagIndex using prefix to namespace its sets.
func NewTagIndex(rdb redis.UniversalClient, prefix string) *TagIndex {
	return &TagIndex{rdb: rdb, ks: prefixOf(prefix), now: time.Now}
}

// Attach adds key to each tag set until expiresAt and records the tags on
// the key. An expiresAt already in the past attaches nothing.
func (x *TagIndex) Attach(ctx context.Context, key string, tags []string, expiresAt time.Time) error {
	if len(tags) == 0 {
		return nil
	}
	ttl := expiresAt.Sub(x.now()).Milliseconds()
	if ttl <= 0 {
		return nil
	}

	keys := make([]string, 0, len(tags)+1)
	args := make([]interface{}, 0, len(tags)+3)
	keys = append(keys, x.ks.tagsOf(key))
	args = append(args, key, expiresAt.UnixMilli(), ttl)
	for _, tag := range tags {
		keys = append(keys, x.ks.tag(tag))
		args = append(args, tag)
	}
	return attachScript.Run(ctx, x.rdb, keys, args...).Err()
}

// KeysForTag trims expired members from tag and returns the rest sorted.
func (x *TagIndex) KeysForTag(ctx context.Context, tag string) ([]string, error) {
	set := x.ks.tag(tag)
	now := strconv.FormatInt(x.now().UnixMilli(), 10)

	pipe := x.rdb.TxPipeline()
	pipe.ZRemRangeByScore(ctx, set, "-inf", now)
	members := pipe.ZRange(ctx, set, 0, -1)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}

	keys := members.Val()
	slices.Sort(keys)
	return keys, nil
}

// Detach removes key from every tag set it belongs to.
func (x *TagIndex) Detach(ctx context.Context, key string) error {
	tags, err := x.rdb.SMembers(ctx, x.ks.tagsOf(key)).Result()
	if err != nil {
		return err
	}

	pipe := x.rdb.TxPipeline()
	for _, tag := range tags {
		pipe.ZRem(ctx, x.ks.tag(tag), key)
	}
	pipe.Del(ctx, x.ks.tagsOf(key))
	_, err = pipe.Exec(ctx)
	return err
}

var _ cache.TagIndex = (*TagIndex)(nil)
