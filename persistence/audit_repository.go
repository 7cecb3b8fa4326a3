package persistence

import (
	"context"

	"github.com/relato/relato/audit"
	"gorm.io/gorm"
)

// AuditRepository implements audit.Store using GORM.
type AuditRepository struct {
	db *gorm.DB
}

// NewAuditRepository creates an audit repository over an open database.
func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// AutoMigrate creates the audit event table.
func (r *AuditRepository) AutoMigrate() error {
	return r.db.AutoMigrate(&gormAuditEvent{})
}

// SaveEvent persists an audit event.
func (r *AuditRepository) SaveEvent(ctx context.Context, event *audit.Event) error {
	return r.db.WithContext(ctx).Create(&gormAuditEvent{
		ID:        event.ID,
		Type:      event.Type,
		Status:    event.Status,
		Message:   event.Message,
		Namespace: event.Namespace,
		Object:    event.Object,
		Relation:  event.Relation,
		Subject:   event.Subject,
		RequestID: event.RequestID,
		Metadata:  event.Metadata,
		CreatedAt: event.CreatedAt,
	}).Error
}

// ListEvents returns up to limit events, newest first.
func (r *AuditRepository) ListEvents(ctx context.Context, limit int) ([]*audit.Event, error) {
	query := r.db.WithContext(ctx).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []gormAuditEvent
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	events := make([]*audit.Event, len(rows))
	for i, row := range rows {
		events[i] = &audit.Event{
			ID:        row.ID,
			Type:      row.Type,
			Status:    row.Status,
			Message:   row.Message,
			Namespace: row.Namespace,
			Object:    row.Object,
			Relation:  row.Relation,
			Subject:   row.Subject,
			RequestID: row.RequestID,
			Metadata:  row.Metadata,
			CreatedAt: row.CreatedAt,
		}
	}
	return events, nil
}

// Compile-time interface check
var _ audit.Store = (*AuditRepository)(nil)
