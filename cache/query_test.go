package cache

import (
	"context"
	"errors"
	"strconv"
	"sync/atomic"
	"testing"
	"time"
)

type report struct {
	Title string `json:"title"`
	Rows  int    `json:"rows"`
}

type lookupResult struct {
	OK    bool   `json:"ok"`
	Value string `json:"value"`
}

func (r lookupResult) IsSuccess() bool { return r.OK }

func TestGetOrCreate_Typed(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	var calls atomic.Int32

	q := Query[report]{
		Key: "query:report:1",
		Factory: func(context.Context) (report, error) {
			calls.Add(1)
			return report{Title: "daily", Rows: 42}, nil
		},
		Settings: DefaultSettings(),
		Tags:     []string{"reports"},
	}

	for i := 0; i < 2; i++ {
		got, err := GetOrCreate(ctx, c, q)
		if err != nil {
			t.Fatalf("GetOrCreate() error = %v", err)
		}
		if got != (report{Title: "daily", Rows: 42}) {
			t.Errorf("GetOrCreate() = %+v", got)
		}
	}
	if calls.Load() != 1 {
		t.Errorf("factory called %d times, want 1", calls.Load())
	}
	if keys, _ := c.tags.KeysForTag(ctx, "reports"); len(keys) != 1 {
		t.Errorf("tag reports = %v, want one key", keys)
	}
}

func TestGetOrCreate_ResultFailureUsesFailureExpiration(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	settings := Settings{Expiration: 300 * time.Second, FailureExpiration: 5 * time.Second}

	got, err := GetOrCreate(ctx, c, Query[lookupResult]{
		Key:      "lookup:missing",
		Factory:  func(context.Context) (lookupResult, error) { return lookupResult{OK: false}, nil },
		Settings: settings,
	})
	if err != nil || got.OK {
		t.Fatalf("GetOrCreate() = (%+v, %v), want failure result", got, err)
	}

	c.clock.Advance(6 * time.Second)
	if _, ok, _ := c.TryGet(ctx, "lookup:missing"); ok {
		t.Error("failure result should expire with FailureExpiration")
	}
}

func TestGetOrCreate_PredicateOverridesResult(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	settings := Settings{Expiration: 300 * time.Second, FailureExpiration: 5 * time.Second}

	// The predicate treats empty strings as failures even though the value
	// reports success.
	_, err := GetOrCreate(ctx, c, Query[lookupResult]{
		Key:       "lookup:empty",
		Factory:   func(context.Context) (lookupResult, error) { return lookupResult{OK: true}, nil },
		Settings:  settings,
		IsFailure: func(r lookupResult) bool { return r.Value == "" },
	})
	if err != nil {
		t.Fatal(err)
	}

	c.clock.Advance(6 * time.Second)
	if _, ok, _ := c.TryGet(ctx, "lookup:empty"); ok {
		t.Error("predicate failure should expire with FailureExpiration")
	}
}

type intCodec struct{}

func (intCodec) Marshal(v int) ([]byte, error) { return []byte(strconv.Itoa(v)), nil }
func (intCodec) Unmarshal(b []byte) (int, error) {
	return strconv.Atoi(string(b))
}

func TestGetOrCreate_CustomCodec(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	got, err := GetOrCreate(ctx, c, Query[int]{
		Key:      "count",
		Factory:  func(context.Context) (int, error) { return 7, nil },
		Settings: DefaultSettings(),
		Codec:    intCodec{},
	})
	if err != nil || got != 7 {
		t.Fatalf("GetOrCreate() = (%d, %v), want (7, nil)", got, err)
	}

	raw, _, _ := c.TryGet(ctx, "count")
	if string(raw) != "7" {
		t.Errorf("stored bytes = %q, want 7", raw)
	}
}

func TestGetOrCreate_Errors(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	if _, err := GetOrCreate(ctx, c, Query[int]{Key: "k", Settings: DefaultSettings()}); !errors.Is(err, ErrNilFactory) {
		t.Errorf("nil factory error = %v, want ErrNilFactory", err)
	}

	boom := errors.New("db down")
	_, err := GetOrCreate(ctx, c, Query[int]{
		Key:      "k",
		Factory:  func(context.Context) (int, error) { return 0, boom },
		Settings: DefaultSettings(),
	})
	if !errors.Is(err, boom) {
		t.Errorf("factory fault error = %v, want db down", err)
	}

	_ = c.Set(ctx, "bad", []byte("not-a-number"), false, DefaultSettings())
	_, err = GetOrCreate(ctx, c, Query[int]{
		Key:      "bad",
		Factory:  func(context.Context) (int, error) { return 1, nil },
		Settings: DefaultSettings(),
	})
	if !errors.Is(err, ErrCorruptEntry) {
		t.Errorf("undecodable value error = %v, want ErrCorruptEntry", err)
	}
}
