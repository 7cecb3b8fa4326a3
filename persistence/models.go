package persistence

import (
	"time"

	"github.com/relato/relato/tuple"
)

// gormRelationTuple stores relation tuples. The table carries the two
// composite indexes the resolver's access patterns need: the object triple
// and the subject within a namespace.
type gormRelationTuple struct {
	// ID is the canonical tuple string, making inserts idempotent on the
	// natural key.
	ID                 string    `gorm:"primaryKey;size:512"`
	Namespace          string    `gorm:"size:128;index:idx_object,priority:1;index:idx_subject,priority:1"`
	Object             string    `gorm:"size:255;index:idx_object,priority:2"`
	Relation           string    `gorm:"size:64;index:idx_object,priority:3"`
	Subject            string    `gorm:"size:512;index:idx_subject,priority:2"`
	SubjectID          string    `gorm:"size:255"`
	SubjectSetNS       string    `gorm:"size:128;column:subject_set_namespace"`
	SubjectSetObject   string    `gorm:"size:255"`
	SubjectSetRelation string    `gorm:"size:64"`
	CreatedAt          time.Time `gorm:"autoCreateTime"`
}

// TableName returns the table name for GORM.
func (gormRelationTuple) TableName() string {
	return "relation_tuples"
}

func fromTuple(t tuple.Tuple) *gormRelationTuple {
	gt := &gormRelationTuple{
		ID:        t.String(),
		Namespace: t.Namespace,
		Object:    t.Object,
		Relation:  t.Relation,
		Subject:   t.Subject(),
		SubjectID: t.SubjectID,
	}
	if t.SubjectSet != nil {
		gt.SubjectSetNS = t.SubjectSet.Namespace
		gt.SubjectSetObject = t.SubjectSet.Object
		gt.SubjectSetRelation = t.SubjectSet.Relation
	}
	return gt
}

func toTuple(gt *gormRelationTuple) tuple.Tuple {
	t := tuple.Tuple{
		Namespace: gt.Namespace,
		Object:    gt.Object,
		Relation:  gt.Relation,
		SubjectID: gt.SubjectID,
	}
	if gt.SubjectSetNS != "" {
		t.SubjectSet = &tuple.SubjectSet{
			Namespace: gt.SubjectSetNS,
			Object:    gt.SubjectSetObject,
			Relation:  gt.SubjectSetRelation,
		}
	}
	return t
}

// gormAuditEvent stores audit events.
type gormAuditEvent struct {
	ID        string    `gorm:"primaryKey;size:36"`
	Type      string    `gorm:"size:64;index"`
	Status    string    `gorm:"size:16"`
	Message   string    `gorm:"size:512"`
	Namespace string    `gorm:"size:128"`
	Object    string    `gorm:"size:255"`
	Relation  string    `gorm:"size:64"`
	Subject   string    `gorm:"size:512"`
	RequestID string    `gorm:"size:64"`
	Metadata  []byte
	CreatedAt time.Time `gorm:"autoCreateTime;index"`
}

// TableName returns the table name for GORM.
func (gormAuditEvent) TableName() string {
	return "audit_events"
}
