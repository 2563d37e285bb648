package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ByRecallSetID struct {
	RecallSetID uuid.UUID
}

func (s ByRecallSetID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("recall_set_id = ?", s.RecallSetID)
}

type BySessionID struct {
	SessionID string
}

func (s BySessionID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("session_id = ?", s.SessionID)
}

// ByStringID filters by a textual primary key (sessions use prefixed string ids).
type ByStringID struct {
	ID string
}

func (s ByStringID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("id = ?", s.ID)
}

type ByStatus struct {
	Status string
}

func (s ByStatus) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("status = ?", s.Status)
}
