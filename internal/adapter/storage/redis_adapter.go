package storage

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/rl1809/catalog-cart/internal/core/domain"
)

const (
	inventoryKeyPrefix = "inventory:"
	cartKeyPrefix      = "cart:"
	priceKeyPrefix     = "prices:"
	idempotencyKeyTTL  = 24 * time.Hour
)

// Every inventory script returns {stock, reserved, version, outcome} or nil
// when the record does not exist.
var reserveScript = redis.NewScript(`
local key = KEYS[1]
local index = KEYS[2]
local quantity = tonumber(ARGV[1])
local now = ARGV[3]

if redis.call('EXISTS', key) == 0 then
	redis.call('HSET', key, 'item_id', ARGV[2], 'stock', 0, 'reserved', quantity,
		'version', 1, 'created_at', now, 'updated_at', now)
	redis.call('SADD', index, ARGV[4])
	return {0, quantity, 1, 1}
end

local stock = tonumber(redis.call('HGET', key, 'stock') or '0')
local reserved = tonumber(redis.call('HGET', key, 'reserved') or '0')
if stock - reserved < quantity then
	local version = tonumber(redis.call('HGET', key, 'version') or '0')
	return {stock, reserved, version, 2}
end

reserved = redis.call('HINCRBY', key, 'reserved', quantity)
local version = redis.call('HINCRBY', key, 'version', 1)
redis.call('HSET', key, 'updated_at', now)
return {stock, reserved, version, 0}
`)

// ARGV: stock delta, reserved delta, now. Both counters floor at zero.
var applyDeltaScript = redis.NewScript(`
local key = KEYS[1]
if redis.call('EXISTS', key) == 0 then
	return nil
end

local stock = tonumber(redis.call('HGET', key, 'stock') or '0') + tonumber(ARGV[1])
local reserved = tonumber(redis.call('HGET', key, 'reserved') or '0') + tonumber(ARGV[2])
if stock < 0 then stock = 0 end
if reserved < 0 then reserved = 0 end

local version = redis.call('HINCRBY', key, 'version', 1)
redis.call('HSET', key, 'stock', stock, 'reserved', reserved, 'updated_at', ARGV[3])
return {stock, reserved, version, 0}
`)

var setStockScript = redis.NewScript(`
local key = KEYS[1]
local index = KEYS[2]
local now = ARGV[3]

if redis.call('EXISTS', key) == 0 then
	redis.call('HSET', key, 'reserved', 0, 'version', 0, 'created_at', now)
	redis.call('SADD', index, ARGV[4])
end

local version = redis.call('HINCRBY', key, 'version', 1)
redis.call('HSET', key, 'item_id', ARGV[2], 'stock', ARGV[1], 'updated_at', now)
local reserved = tonumber(redis.call('HGET', key, 'reserved') or '0')
return {tonumber(ARGV[1]), reserved, version, 0}
`)

var setReservedScript = redis.NewScript(`
local key = KEYS[1]
if redis.call('EXISTS', key) == 0 then
	return nil
end
local version = redis.call('HINCRBY', key, 'version', 1)
redis.call('HSET', key, 'reserved', ARGV[1], 'updated_at', ARGV[2])
local stock = tonumber(redis.call('HGET', key, 'stock') or '0')
return {stock, tonumber(ARGV[1]), version, 0}
`)

// RedisAdapter keeps inventory hashes for one catalog namespace, plus cart
// blobs and idempotency keys.
type RedisAdapter struct {
	client    *redis.Client
	namespace string
	cartTTL   time.Duration
}

func NewRedisAdapter(client *redis.Client, namespace string, cartTTL time.Duration) *RedisAdapter {
	return &RedisAdapter{client: client, namespace: namespace, cartTTL: cartTTL}
}

func (r *RedisAdapter) recordKey(key string) string {
	return inventoryKeyPrefix + r.namespace + ":" + key
}

func (r *RedisAdapter) indexKey() string {
	return inventoryKeyPrefix + r.namespace + ":keys"
}

func now() string {
	return strconv.FormatInt(time.Now().UTC().Unix(), 10)
}

func (r *RedisAdapter) run(ctx context.Context, script *redis.Script, key string, keys []string, args ...interface{}) (*domain.Inventory, domain.ReserveOutcome, error) {
	vals, err := script.Run(ctx, r.client, keys, args...).Int64Slice()
	if errors.Is(err, redis.Nil) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, err
	}
	if len(vals) != 4 {
		return nil, 0, errors.Errorf("unexpected script reply for %s: %v", key, vals)
	}
	inv := &domain.Inventory{
		Key:      key,
		Stock:    int(vals[0]),
		Reserved: int(vals[1]),
		Version:  int(vals[2]),
	}
	return inv, domain.ReserveOutcome(vals[3]), nil
}

func (r *RedisAdapter) GetInventory(ctx context.Context, key string) (*domain.Inventory, error) {
	fields, err := r.client.HGetAll(ctx, r.recordKey(key)).Result()
	if err != nil {
		return nil, errors.Wrap(err, "hgetall inventory")
	}
	if len(fields) == 0 {
		return nil, nil
	}
	return parseInventory(key, fields), nil
}

func (r *RedisAdapter) ListInventory(ctx context.Context) ([]domain.Inventory, error) {
	keys, err := r.client.SMembers(ctx, r.indexKey()).Result()
	if err != nil {
		return nil, errors.Wrap(err, "list inventory keys")
	}

	pipe := r.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(keys))
	for i, key := range keys {
		cmds[i] = pipe.HGetAll(ctx, r.recordKey(key))
	}
	if len(keys) > 0 {
		if _, err := pipe.Exec(ctx); err != nil {
			return nil, errors.Wrap(err, "read inventory records")
		}
	}

	items := make([]domain.Inventory, 0, len(keys))
	for i, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			continue
		}
		items = append(items, *parseInventory(keys[i], fields))
	}
	return items, nil
}

func (r *RedisAdapter) Reserve(ctx context.Context, key, itemID string, quantity int) (domain.Inventory, domain.ReserveOutcome, error) {
	inv, outcome, err := r.run(ctx, reserveScript, key,
		[]string{r.recordKey(key), r.indexKey()}, quantity, itemID, now(), key)
	if err != nil {
		return domain.Inventory{}, 0, errors.Wrap(err, "reserve script")
	}
	inv.ItemID = itemID
	return *inv, outcome, nil
}

func (r *RedisAdapter) Release(ctx context.Context, key string, quantity int) (*domain.Inventory, error) {
	inv, _, err := r.run(ctx, applyDeltaScript, key, []string{r.recordKey(key)}, 0, -quantity, now())
	return inv, errors.Wrap(err, "release script")
}

func (r *RedisAdapter) Consume(ctx context.Context, key string, quantity int) (*domain.Inventory, error) {
	inv, _, err := r.run(ctx, applyDeltaScript, key, []string{r.recordKey(key)}, -quantity, -quantity, now())
	return inv, errors.Wrap(err, "consume script")
}

func (r *RedisAdapter) AdjustStock(ctx context.Context, key string, delta int) (*domain.Inventory, error) {
	inv, _, err := r.run(ctx, applyDeltaScript, key, []string{r.recordKey(key)}, delta, 0, now())
	return inv, errors.Wrap(err, "adjust script")
}

func (r *RedisAdapter) SetStock(ctx context.Context, key, itemID string, stock int) (domain.Inventory, error) {
	inv, _, err := r.run(ctx, setStockScript, key,
		[]string{r.recordKey(key), r.indexKey()}, stock, itemID, now(), key)
	if err != nil {
		return domain.Inventory{}, errors.Wrap(err, "set stock script")
	}
	inv.ItemID = itemID
	return *inv, nil
}

func (r *RedisAdapter) SetReserved(ctx context.Context, key string, reserved int) error {
	inv, _, err := r.run(ctx, setReservedScript, key, []string{r.recordKey(key)}, reserved, now())
	if err != nil {
		return errors.Wrap(err, "set reserved script")
	}
	if inv == nil {
		return errors.Wrapf(domain.ErrInventoryNotFound, "key %s", key)
	}
	return nil
}

func parseInventory(key string, fields map[string]string) *domain.Inventory {
	atoi := func(name string) int {
		n, _ := strconv.Atoi(fields[name])
		return n
	}
	unix := func(name string) time.Time {
		n, err := strconv.ParseInt(fields[name], 10, 64)
		if err != nil {
			return time.Time{}
		}
		return time.Unix(n, 0).UTC()
	}
	return &domain.Inventory{
		Key:       key,
		ItemID:    fields["item_id"],
		Stock:     atoi("stock"),
		Reserved:  atoi("reserved"),
		Version:   atoi("version"),
		CreatedAt: unix("created_at"),
		UpdatedAt: unix("updated_at"),
	}
}

func (r *RedisAdapter) LoadCart(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, cartKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "get cart")
	}
	return data, nil
}

func (r *RedisAdapter) SaveCart(ctx context.Context, key string, data []byte) error {
	return errors.Wrap(r.client.Set(ctx, cartKeyPrefix+key, data, r.cartTTL).Err(), "set cart")
}

func (r *RedisAdapter) RemoveCart(ctx context.Context, key string) error {
	return errors.Wrap(r.client.Del(ctx, cartKeyPrefix+key).Err(), "del cart")
}

func (r *RedisAdapter) SetIdempotency(ctx context.Context, key string) (bool, error) {
	ok, err := r.client.SetNX(ctx, key, 1, idempotencyKeyTTL).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}

func (r *RedisAdapter) ClearIdempotency(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

// Price overrides of a namespace live in one hash, one JSON field per item.
func (r *RedisAdapter) priceKey() string {
	return priceKeyPrefix + r.namespace
}

func (r *RedisAdapter) SetPrice(ctx context.Context, o domain.PriceOverride) error {
	data, err := json.Marshal(o)
	if err != nil {
		return errors.Wrap(err, "encode price override")
	}
	return errors.Wrap(r.client.HSet(ctx, r.priceKey(), o.ItemID, data).Err(), "hset price")
}

func (r *RedisAdapter) DeletePrice(ctx context.Context, itemID string) error {
	return errors.Wrap(r.client.HDel(ctx, r.priceKey(), itemID).Err(), "hdel price")
}

func (r *RedisAdapter) ListPrices(ctx context.Context) ([]domain.PriceOverride, error) {
	fields, err := r.client.HGetAll(ctx, r.priceKey()).Result()
	if err != nil {
		return nil, errors.Wrap(err, "hgetall prices")
	}
	out := make([]domain.PriceOverride, 0, len(fields))
	for itemID, raw := range fields {
		var o domain.PriceOverride
		if err := json.Unmarshal([]byte(raw), &o); err != nil {
			return nil, errors.Wrapf(err, "decode price override %s", itemID)
		}
		o.ItemID = itemID
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ItemID < out[j].ItemID })
	return out, nil
}
