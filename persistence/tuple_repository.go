package persistence

import (
	"context"

	"github.com/relato/relato/tuple"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TupleRepository implements tuple.Store using GORM. Writes are idempotent
// through the content-derived primary key and an ON CONFLICT DO NOTHING
// upsert; the database's row-level locking serializes concurrent writes to
// the identical tuple while leaving distinct tuples unblocked.
type TupleRepository struct {
	db *gorm.DB
}

// NewTupleRepository creates a tuple repository over an open database.
func NewTupleRepository(db *gorm.DB) *TupleRepository {
	return &TupleRepository{db: db}
}

// AutoMigrate creates the relation tuple table and its indexes.
func (r *TupleRepository) AutoMigrate() error {
	return r.db.AutoMigrate(&gormRelationTuple{})
}

// DB exposes the underlying connection for health checks.
func (r *TupleRepository) DB() *gorm.DB {
	return r.db
}

// Write persists a tuple. Writing an existing tuple is a no-op.
func (r *TupleRepository) Write(ctx context.Context, t tuple.Tuple) error {
	if err := t.Validate(); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoNothing: true,
	}).Create(fromTuple(t)).Error
}

// WriteBatch persists multiple tuples in a single transaction.
func (r *TupleRepository) WriteBatch(ctx context.Context, tuples []tuple.Tuple) error {
	if len(tuples) == 0 {
		return nil
	}
	for _, t := range tuples {
		if err := t.Validate(); err != nil {
			return err
		}
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, t := range tuples {
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				DoNothing: true,
			}).Create(fromTuple(t)).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete removes every tuple matching the filter and returns the count.
func (r *TupleRepository) Delete(ctx context.Context, f tuple.Filter) (int64, error) {
	query := r.applyFilter(r.db.WithContext(ctx), f)
	result := query.Delete(&gormRelationTuple{})
	return result.RowsAffected, result.Error
}

// ListByObject returns all tuples for (namespace, object, relation).
func (r *TupleRepository) ListByObject(ctx context.Context, namespace, object, relation string) ([]tuple.Tuple, error) {
	var rows []gormRelationTuple
	err := r.db.WithContext(ctx).
		Where("namespace = ? AND object = ? AND relation = ?", namespace, object, relation).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toTuples(rows), nil
}

// ListBySubject returns all tuples in the namespace with the given
// canonical subject string.
func (r *TupleRepository) ListBySubject(ctx context.Context, namespace, subject string) ([]tuple.Tuple, error) {
	var rows []gormRelationTuple
	err := r.db.WithContext(ctx).
		Where("namespace = ? AND subject = ?", namespace, subject).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toTuples(rows), nil
}

// List returns all tuples matching the filter.
func (r *TupleRepository) List(ctx context.Context, f tuple.Filter) ([]tuple.Tuple, error) {
	var rows []gormRelationTuple
	if err := r.applyFilter(r.db.WithContext(ctx), f).Find(&rows).Error; err != nil {
		return nil, err
	}
	return toTuples(rows), nil
}

// Exists reports whether the exact tuple is present.
func (r *TupleRepository) Exists(ctx context.Context, t tuple.Tuple) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&gormRelationTuple{}).
		Where("id = ?", t.String()).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// applyFilter adds WHERE clauses for each set filter field.
func (r *TupleRepository) applyFilter(query *gorm.DB, f tuple.Filter) *gorm.DB {
	if f.Namespace != "" {
		query = query.Where("namespace = ?", f.Namespace)
	}
	if f.Object != "" {
		query = query.Where("object = ?", f.Object)
	}
	if f.Relation != "" {
		query = query.Where("relation = ?", f.Relation)
	}
	if f.SubjectID != "" {
		query = query.Where("subject_id = ?", f.SubjectID)
	}
	if f.SubjectSet != nil {
		query = query.Where(
			"subject_set_namespace = ? AND subject_set_object = ? AND subject_set_relation = ?",
			f.SubjectSet.Namespace, f.SubjectSet.Object, f.SubjectSet.Relation,
		)
	}
	return query
}

func toTuples(rows []gormRelationTuple) []tuple.Tuple {
	result := make([]tuple.Tuple, len(rows))
	for i := range rows {
		result[i] = toTuple(&rows[i])
	}
	return result
}

// Compile-time interface check
var _ tuple.Store = (*TupleRepository)(nil)
