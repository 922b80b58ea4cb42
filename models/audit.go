package models

import "time"

// AuditLog records an engine state transition (audit_logs table).
// Rows are written fire-and-forget and periodically shipped to cold storage
// by the audit archiver worker.
type AuditLog struct {
	ID         string      `json:"id" gorm:"primaryKey"`
	Action     string      `json:"action" gorm:"index;not null"`
	DraftID    string      `json:"draft_id" gorm:"index"`
	OwnerID    string      `json:"owner_id" gorm:"index"`
	Details    DocumentMap `json:"details" gorm:"type:jsonb"`
	CreatedAt  time.Time   `json:"created_at" gorm:"autoCreateTime;index"`
	ArchivedAt *time.Time  `json:"archived_at,omitempty" gorm:"index"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}
