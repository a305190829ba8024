package crud

import (
	"context"
	defError "errors"
	"fmt"
	"prompt-manager/internal/audit"
	"prompt-manager/internal/domain"
	"prompt-manager/internal/errors"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Service implements transactional create/read/update/delete and paginated
// listing for one entity type. Every successful mutation is audited.
type Service[T any] struct {
	db       *gorm.DB
	schema   Schema[T]
	recorder audit.Recorder
}

func NewService[T any](db *gorm.DB, schema Schema[T], recorder audit.Recorder) *Service[T] {
	if recorder == nil {
		recorder = audit.Nop
	}
	return &Service[T]{db: db, schema: schema, recorder: recorder}
}

func (s *Service[T]) DB() *gorm.DB { return s.db }

func (s *Service[T]) Schema() Schema[T] { return s.schema }

func (s *Service[T]) Recorder() audit.Recorder { return s.recorder }

func (s *Service[T]) Create(ctx context.Context, entity *T) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Omit(clause.Associations).Create(entity).Error
	})
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("resource", s.schema.Resource).Msg("create failed")
		return errors.New(errors.CodeCreateFailed, fmt.Sprintf("failed to create %s", s.schema.Resource), err)
	}

	id := s.schema.ID(entity)
	s.record(ctx, domain.OpCreate, id, s.schema.snapshot(entity))
	log.Ctx(ctx).Info().Str("resource", s.schema.Resource).Uint64("id", id).Msg("record created")
	return nil
}

// Find returns nil without error when no row has id.
func (s *Service[T]) Find(ctx context.Context, id uint64, preload ...string) (*T, error) {
	q := s.db.WithContext(ctx)
	for _, p := range preload {
		q = q.Preload(p)
	}

	var entity T
	if err := q.First(&entity, id).Error; err != nil {
		if defError.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errors.New(errors.CodeQueryFailed, fmt.Sprintf("failed to load %s", s.schema.Resource), err)
	}
	return &entity, nil
}

// Get is Find with a missing row reported as RECORD_NOT_FOUND.
func (s *Service[T]) Get(ctx context.Context, id uint64, preload ...string) (*T, error) {
	entity, err := s.Find(ctx, id, preload...)
	if err != nil {
		return nil, err
	}
	if entity == nil {
		return nil, s.notFound(id)
	}
	return entity, nil
}

// Update applies changes by field name. Names missing from the schema or
// read-only fields are ignored.
func (s *Service[T]) Update(ctx context.Context, id uint64, changes map[string]any) (*T, error) {
	var (
		entity  T
		oldData = map[string]any{}
		newData = map[string]any{}
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&entity, id).Error; err != nil {
			if defError.Is(err, gorm.ErrRecordNotFound) {
				return s.notFound(id)
			}
			return err
		}

		for _, name := range sortedKeys(changes) {
			f, ok := s.schema.Fields[name]
			if !ok || f.Set == nil {
				continue
			}
			oldData[name] = f.Get(&entity)
			if err := f.Set(&entity, changes[name]); err != nil {
				return errors.New(errors.CodeValidationFailed, err.Error(), err)
			}
			newData[name] = f.Get(&entity)
		}
		if s.schema.Validate != nil {
			if err := s.schema.Validate(&entity); err != nil {
				return errors.New(errors.CodeValidationFailed, err.Error(), err)
			}
		}

		return tx.Omit(clause.Associations).Save(&entity).Error
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeUpdateFailed, fmt.Sprintf("failed to update %s", s.schema.Resource))
	}

	s.record(ctx, domain.OpUpdate, id, map[string]any{"old_data": oldData, "new_data": newData})
	return &entity, nil
}

// Delete soft-deletes when the schema supports it and removes the row
// otherwise.
func (s *Service[T]) Delete(ctx context.Context, id uint64) error {
	if s.schema.SoftDelete == nil {
		return s.HardDelete(ctx, id)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var entity T
		if err := tx.First(&entity, id).Error; err != nil {
			if defError.Is(err, gorm.ErrRecordNotFound) {
				return s.notFound(id)
			}
			return err
		}
		s.schema.SoftDelete(&entity)
		return tx.Omit(clause.Associations).Save(&entity).Error
	})
	if err != nil {
		return errors.Wrap(err, errors.CodeDeleteFailed, fmt.Sprintf("failed to delete %s", s.schema.Resource))
	}

	s.record(ctx, domain.OpSoftDelete, id, nil)
	return nil
}

func (s *Service[T]) HardDelete(ctx context.Context, id uint64) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(new(T), id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return s.notFound(id)
		}
		return nil
	})
	if err != nil {
		return errors.Wrap(err, errors.CodeDeleteFailed, fmt.Sprintf("failed to delete %s", s.schema.Resource))
	}

	s.record(ctx, domain.OpDelete, id, nil)
	return nil
}

func (s *Service[T]) List(ctx context.Context, q Query) (*Page[T], error) {
	q.normalize()

	base := s.scoped(s.db.WithContext(ctx).Model(new(T)), q.Scopes)
	base, err := s.applyFilters(base, q.Filters)
	if err != nil {
		return nil, err
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, errors.New(errors.CodeListFailed, fmt.Sprintf("failed to list %s", s.schema.Resource), err)
	}

	find := s.applyOrder(base.Session(&gorm.Session{}), q.OrderBy)
	for _, p := range q.Preload {
		find = find.Preload(p)
	}

	items := []T{}
	err = find.Offset((q.Page - 1) * q.PerPage).Limit(q.PerPage).Find(&items).Error
	if err != nil {
		return nil, errors.New(errors.CodeListFailed, fmt.Sprintf("failed to list %s", s.schema.Resource), err)
	}

	return &Page[T]{Data: items, Meta: NewMeta(total, q.Page, q.PerPage)}, nil
}

func (s *Service[T]) Count(ctx context.Context, filters map[string]any, scopes ...Scope) (int64, error) {
	q, err := s.applyFilters(s.scoped(s.db.WithContext(ctx).Model(new(T)), scopes), filters)
	if err != nil {
		return 0, err
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return 0, errors.New(errors.CodeCountFailed, fmt.Sprintf("failed to count %s", s.schema.Resource), err)
	}
	return total, nil
}

func (s *Service[T]) BulkCreate(ctx context.Context, items []T) error {
	if len(items) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Omit(clause.Associations).CreateInBatches(items, 100).Error
	})
	if err != nil {
		return errors.New(errors.CodeBulkCreateFailed, fmt.Sprintf("failed to bulk create %s", s.schema.Resource), err)
	}

	s.record(ctx, domain.OpBulkCreate, 0, map[string]any{"count": len(items)})
	return nil
}

// Transaction runs fn in one transaction. Errors that already carry a code
// pass through; anything else is reported as TRANSACTION_FAILED.
func (s *Service[T]) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	err := s.db.WithContext(ctx).Transaction(fn)
	return errors.Wrap(err, errors.CodeTransactionFailed, "transaction failed")
}

// Record emits an audit entry for this resource.
func (s *Service[T]) Record(ctx context.Context, op string, id uint64, detail map[string]any) {
	s.record(ctx, op, id, detail)
}

func (s *Service[T]) record(ctx context.Context, op string, id uint64, detail map[string]any) {
	s.recorder.Record(ctx, audit.Entry{
		Operation:    op,
		ResourceType: s.schema.Resource,
		ResourceID:   audit.ID(id),
		Detail:       detail,
	}.FillFrom(ctx))
}

func (s *Service[T]) notFound(id uint64) error {
	return errors.NotFound(fmt.Sprintf("%s %d not found", s.schema.Resource, id), nil)
}

func (s *Service[T]) scoped(q *gorm.DB, scopes []Scope) *gorm.DB {
	for _, scope := range scopes {
		q = scope(q)
	}
	return q
}

func (s *Service[T]) applyFilters(q *gorm.DB, filters map[string]any) (*gorm.DB, error) {
	for _, name := range sortedKeys(filters) {
		f, ok := s.schema.Fields[name]
		if !ok {
			continue
		}
		col := clause.Column{Name: f.Column}

		ops, ok := filters[name].(map[string]any)
		if !ok {
			q = q.Where(clause.Eq{Column: col, Value: filters[name]})
			continue
		}
		for _, op := range sortedKeys(ops) {
			v := ops[op]
			switch op {
			case OpGt:
				q = q.Where(clause.Gt{Column: col, Value: v})
			case OpGte:
				q = q.Where(clause.Gte{Column: col, Value: v})
			case OpLt:
				q = q.Where(clause.Lt{Column: col, Value: v})
			case OpLte:
				q = q.Where(clause.Lte{Column: col, Value: v})
			case OpLike:
				q = q.Where(clause.Like{Column: col, Value: v})
			case OpIn:
				values, ok := anySlice(v)
				if !ok {
					return nil, errors.New(errors.CodeValidationFailed, fmt.Sprintf("filter %s: in expects a list", name), nil)
				}
				q = q.Where(clause.IN{Column: col, Values: values})
			}
		}
	}
	return q, nil
}

func (s *Service[T]) applyOrder(q *gorm.DB, orderBy string) *gorm.DB {
	desc := strings.HasPrefix(orderBy, "-")
	if f, ok := s.schema.Fields[strings.TrimPrefix(orderBy, "-")]; ok {
		q = q.Order(clause.OrderByColumn{Column: clause.Column{Name: f.Column}, Desc: desc})
	}
	// stable pages
	return q.Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}, Desc: desc})
}

func anySlice(v any) ([]any, bool) {
	switch vs := v.(type) {
	case []any:
		return vs, true
	case []string:
		return toAny(vs), true
	case []int:
		return toAny(vs), true
	case []int64:
		return toAny(vs), true
	case []uint64:
		return toAny(vs), true
	}
	return nil, false
}

func toAny[V any](vs []V) []any {
	out := make([]any, len(vs))
	for i, v := range vs {
		out[i] = v
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
