// Package repository provides GORM-backed persistence for the weather
// entities. Repository[T] supplies CRUD for any table; the per-entity
// repositories embed it and add relationship queries built from explicit
// joins, so no entity carries navigation fields.
package repository

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gorm.io/gorm"
	"gorm.io/plugin/dbresolver"
)

var (
	// ErrNotFound is returned when a lookup, update or delete matches no row.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a write violates a unique constraint.
	ErrDuplicate = errors.New("duplicate record")
	// ErrForeignKey is returned when a write references a row that does not exist.
	ErrForeignKey = errors.New("referenced record does not exist")
)

// Scope narrows or extends a query, e.g. ordering or eager joins.
type Scope = func(*gorm.DB) *gorm.DB

// OrderBy returns a scope that appends an ORDER BY clause.
func OrderBy(expr string) Scope {
	return func(db *gorm.DB) *gorm.DB {
		return db.Order(expr)
	}
}

// Primary routes a read to the primary database. Reads that must observe a
// write made moments earlier use it when read replicas are configured.
func Primary(db *gorm.DB) *gorm.DB {
	return db.Clauses(dbresolver.Write)
}

// Repository is a generic CRUD store over entities of type T with an
// integer primary key named id.
type Repository[T any] struct {
	db *gorm.DB
}

// New returns a Repository for T bound to db.
func New[T any](db *gorm.DB) *Repository[T] {
	return &Repository[T]{db: db}
}

// conn returns a session bound to ctx so cancellation reaches the driver.
func (r *Repository[T]) conn(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx)
}

// GetByID loads the entity with the given id.
func (r *Repository[T]) GetByID(ctx context.Context, id int, scopes ...Scope) (*T, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	var entity T
	if err := r.conn(ctx).Scopes(scopes...).First(&entity, id).Error; err != nil {
		return nil, translate(err)
	}
	return &entity, nil
}

// GetAll loads every row of the table. There is no pagination.
func (r *Repository[T]) GetAll(ctx context.Context, scopes ...Scope) ([]T, error) {
	var entities []T
	if err := r.conn(ctx).Scopes(scopes...).Find(&entities).Error; err != nil {
		return nil, translate(err)
	}
	return entities, nil
}

// Add inserts entity and populates its generated id.
func (r *Repository[T]) Add(ctx context.Context, entity *T) error {
	if err := r.conn(ctx).Create(entity).Error; err != nil {
		return translate(err)
	}
	return nil
}

// Update writes every column of an existing entity. The last writer wins.
func (r *Repository[T]) Update(ctx context.Context, entity *T) error {
	result := r.conn(ctx).Model(entity).Select("*").Updates(entity)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the entity with the given id.
func (r *Repository[T]) Delete(ctx context.Context, id int) error {
	if !validID(id) {
		return ErrNotFound
	}
	result := r.conn(ctx).Delete(new(T), id)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// translate maps GORM errors onto the package sentinels. TranslateError must
// be enabled on the connection for the constraint cases to be recognised.
func translate(err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return fmt.Errorf("%w: %v", ErrForeignKey, err)
	default:
		return err
	}
}

// validID reports whether id fits the INTEGER primary key columns.
func validID(id int) bool {
	return id >= 1 && id <= math.MaxInt32
}
