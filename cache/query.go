package cache

import (
	"context"
	"encoding/json"
	"fmt"
)

// Result is implemented by values that carry their own success flag.
type Result interface {
	IsSuccess() bool
}

// Codec converts typed values to and from their cached bytes.
type Codec[T any] interface {
	Marshal(v T) ([]byte, error)
	Unmarshal(data []byte) (T, error)
}

// JSONCodec encodes values with encoding/json.
type JSONCodec[T any] struct{}

func (JSONCodec[T]) Marshal(v T) ([]byte, error) { return json.Marshal(v) }

func (JSONCodec[T]) Unmarshal(data []byte) (T, error) {
	var v T
	err := json.Unmarshal(data, &v)
	return v, err
}

// Engine is the byte-level operation GetOrCreate builds on.
type Engine interface {
	GetOrCreateBytes(ctx context.Context, key string, factory BytesFactory, settings Settings, tags ...string) ([]byte, bool, error)
}

// Query describes a typed get-or-create call.
type Query[T any] struct {
	Key      string
	Factory  func(ctx context.Context) (T, error)
	Settings Settings
	Tags     []string

	// Codec defaults to JSONCodec.
	Codec Codec[T]

	// IsFailure classifies a produced value. When nil, values implementing
	// Result are classified by IsSuccess and everything else is a success.
	IsFailure func(T) bool
}

// GetOrCreate is the typed form of HybridCache.GetOrCreateBytes.
func GetOrCreate[T any](ctx context.Context, c Engine, q Query[T]) (T, error) {
	var zero T
	if q.Factory == nil {
		return zero, ErrNilFactory
	}
	codec := q.Codec
	if codec == nil {
		codec = JSONCodec[T]{}
	}

	data, _, err := c.GetOrCreateBytes(ctx, q.Key, func(ctx context.Context) ([]byte, bool, error) {
		v, err := q.Factory(ctx)
		if err != nil {
			return nil, false, err
		}
		data, err := codec.Marshal(v)
		if err != nil {
			return nil, false, fmt.Errorf("cache: encode value: %w", err)
		}
		return data, isFailure(v, q.IsFailure), nil
	}, q.Settings, q.Tags...)
	if err != nil {
		return zero, err
	}

	v, err := codec.Unmarshal(data)
	if err != nil {
		return zero, fmt.Errorf("%w: %v", ErrCorruptEntry, err)
	}
	return v, nil
}

func isFailure[T any](v T, pred func(T) bool) bool {
	if pred != nil {
		return pred(v)
	}
	if r, ok := any(v).(Result); ok {
		return !r.IsSuccess()
	}
	return false
}
