package cache_test

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonwraymond/querycache/cache"
)

func ExampleHybridCache_GetOrCreateBytes() {
	c, _ := cache.New(cache.NewMemoryTier(cache.MemoryTierConfig{}))
	ctx := context.Background()

	factory := func(context.Context) ([]byte, bool, error) {
		fmt.Println("running query")
		return []byte("42 rows"), false, nil
	}

	for i := 0; i < 2; i++ {
		v, _, _ := c.GetOrCreateBytes(ctx, "query:orders:today", factory, cache.DefaultSettings(), "orders")
		fmt.Println(string(v))
	}
	// Output:
	// running query
	// 42 rows
	// 42 rows
}

type lookup struct {
	Found bool   `json:"found"`
	Name  string `json:"name"`
}

func (l lookup) IsSuccess() bool { return l.Found }

func ExampleGetOrCreate() {
	c, _ := cache.New(cache.NewMemoryTier(cache.MemoryTierConfig{}))

	// A failed lookup is cached for FailureExpiration only.
	settings := cache.Settings{
		Expiration:        5 * time.Minute,
		LocalExpiration:   time.Minute,
		FailureExpiration: 5 * time.Second,
	}

	v, err := cache.GetOrCreate(context.Background(), c, cache.Query[lookup]{
		Key:      "query:customer:404",
		Factory:  func(context.Context) (lookup, error) { return lookup{Found: false}, nil },
		Settings: settings,
	})
	fmt.Println(v.Found, err)
	// Output:
	// false <nil>
}

func ExampleHybridCache_RemoveByTag() {
	c, _ := cache.New(cache.NewMemoryTier(cache.MemoryTierConfig{}))
	ctx := context.Background()
	settings := cache.DefaultSettings()

	_ = c.Set(ctx, "K1", []byte("1"), false, settings, "A", "B")
	_ = c.Set(ctx, "K2", []byte("2"), false, settings, "B")

	_ = c.RemoveByTag(ctx, "B")

	_, ok1, _ := c.TryGet(ctx, "K1")
	_, ok2, _ := c.TryGet(ctx, "K2")
	fmt.Println(ok1, ok2)
	// Output:
	// false false
}

func ExampleHybridCache_Remove() {
	c, _ := cache.New(cache.NewMemoryTier(cache.MemoryTierConfig{}))
	ctx := context.Background()

	fmt.Println(c.Remove(ctx, "never-set"))
	// Output:
	// <nil>
}

func ExampleSettings_TTLs() {
	s := cache.Settings{Expiration: 300 * time.Second, FailureExpiration: 5 * time.Second}

	local, shared := s.TTLs(false)
	fmt.Println("success:", local, shared)

	local, shared = s.TTLs(true)
	fmt.Println("failure:", local, shared)
	// Output:
	// success: 5m0s 5m0s
	// failure: 5s 5s
}

func ExampleDefaultKeyer_Key() {
	keyer := cache.NewDefaultKeyer()

	k1, _ := keyer.Key("orders", map[string]any{"region": "eu", "limit": 10})
	k2, _ := keyer.Key("orders", map[string]any{"limit": 10, "region": "eu"})
	fmt.Println(k1 == k2)
	// Output:
	// true
}

func ExampleValidateKey() {
	fmt.Println(cache.ValidateKey("query:orders:1"))
	fmt.Println(errors.Is(cache.ValidateKey(""), cache.ErrInvalidKey))
	// Output:
	// <nil>
	// true
}
