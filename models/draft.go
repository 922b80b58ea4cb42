package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Draft sync states. Tracked in memory only — the persisted row carries the
// draft status, not where its replicas currently agree.
const (
	SyncUnsaved    = "unsaved"
	SyncLocalOnly  = "local_only"
	SyncSynced     = "synced"
	SyncLocalAhead = "local_ahead"
	SyncCompleted  = "completed"
	SyncDeleted    = "deleted"
)

const (
	DraftStatusDraft     = "draft"
	DraftStatusCompleted = "completed"
)

// DefaultDraftName is used when the wizard document carries no name yet.
const DefaultDraftName = "Untitled Tournament"

// DocumentMap is the schema-free wizard document. The engine only merges and
// timestamps it; the wizard steps own interpretation.
type DocumentMap map[string]interface{}

// Value serializes the document for the jsonb column.
func (d DocumentMap) Value() (driver.Value, error) {
	if d == nil {
		return "{}", nil
	}
	data, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("marshal draft document: %w", err)
	}
	return string(data), nil
}

// Scan deserializes the jsonb column back into a map.
func (d *DocumentMap) Scan(src interface{}) error {
	if src == nil {
		*d = DocumentMap{}
		return nil
	}
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported draft document source type %T", src)
	}
	if len(data) == 0 {
		*d = DocumentMap{}
		return nil
	}
	return json.Unmarshal(data, d)
}

// Clone returns a shallow copy of the document.
func (d DocumentMap) Clone() DocumentMap {
	out := make(DocumentMap, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Draft represents an in-progress tournament-creation form (tournament_drafts table)
type Draft struct {
	ID          string      `json:"id" gorm:"primaryKey"`
	OwnerID     string      `json:"owner_id" gorm:"index"` // empty until the draft first touches the remote tier
	Name        string      `json:"name"`
	Status      string      `json:"status" gorm:"default:'draft';index"`
	Document    DocumentMap `json:"document" gorm:"type:jsonb"`
	CreatedAt   time.Time   `json:"created_at"`
	LastUpdated time.Time   `json:"last_updated" gorm:"index"`

	// Replica bookkeeping (not stored in DB)
	SyncState string `json:"sync_state,omitempty" gorm:"-"`
}

func (Draft) TableName() string {
	return "tournament_drafts"
}

// DisplayName resolves the display label from the document, falling back to
// the sentinel for unnamed drafts.
func (d *Draft) DisplayName() string {
	if d.Document != nil {
		if name, ok := d.Document["name"].(string); ok && name != "" {
			return name
		}
	}
	return DefaultDraftName
}

// Clone returns a copy safe to hand to callers or to serialize; the document
// map is copied so concurrent merges never alias it.
func (d *Draft) Clone() *Draft {
	if d == nil {
		return nil
	}
	out := *d
	out.Document = d.Document.Clone()
	return &out
}
