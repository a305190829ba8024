package crud

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Field describes one column of T that generic queries may filter, order
// or update by name. A nil Set makes the field read-only.
type Field[T any] struct {
	Column string
	Get    func(*T) any
	Set    func(*T, any) error
}

// Schema is the per-entity descriptor table the generic service works from.
type Schema[T any] struct {
	Resource string
	Fields   map[string]Field[T]
	ID       func(*T) uint64
	// SoftDelete marks an entity deleted in place. When nil, Delete removes
	// the row.
	SoftDelete func(*T)
	// Validate runs after updates are applied and before they are saved.
	Validate func(*T) error
}

func (s Schema[T]) snapshot(entity *T) map[string]any {
	out := make(map[string]any, len(s.Fields))
	for name, f := range s.Fields {
		if f.Get != nil {
			out[name] = f.Get(entity)
		}
	}
	return out
}

func ReadOnly[T any](column string, get func(*T) any) Field[T] {
	return Field[T]{Column: column, Get: get}
}

func StringField[T any](column string, ptr func(*T) *string) Field[T] {
	return Field[T]{
		Column: column,
		Get:    func(t *T) any { return *ptr(t) },
		Set: func(t *T, v any) error {
			s, ok := v.(string)
			if !ok {
				return fmt.Errorf("%s: expected string, got %T", column, v)
			}
			*ptr(t) = s
			return nil
		},
	}
}

func IntField[T any, V ~int | ~int64](column string, ptr func(*T) *V) Field[T] {
	return Field[T]{
		Column: column,
		Get:    func(t *T) any { return *ptr(t) },
		Set: func(t *T, v any) error {
			n, err := toInt64(v)
			if err != nil {
				return fmt.Errorf("%s: %w", column, err)
			}
			*ptr(t) = V(n)
			return nil
		},
	}
}

func BoolField[T any](column string, ptr func(*T) *bool) Field[T] {
	return Field[T]{
		Column: column,
		Get:    func(t *T) any { return *ptr(t) },
		Set: func(t *T, v any) error {
			switch b := v.(type) {
			case bool:
				*ptr(t) = b
			case string:
				parsed, err := strconv.ParseBool(b)
				if err != nil {
					return fmt.Errorf("%s: %w", column, err)
				}
				*ptr(t) = parsed
			default:
				return fmt.Errorf("%s: expected bool, got %T", column, v)
			}
			return nil
		},
	}
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int64:
		return n, nil
	case int32:
		return int64(n), nil
	case uint64:
		return int64(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("expected integer, got %v", n)
		}
		return int64(n), nil
	case json.Number:
		return n.Int64()
	case string:
		return strconv.ParseInt(n, 10, 64)
	}
	return 0, fmt.Errorf("expected integer, got %T", v)
}
