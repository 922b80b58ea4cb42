package services

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"

	"tournament-draft-system/models"
	"tournament-draft-system/utils"
)

// Audit actions emitted at every externally visible state transition.
const (
	ActionCreated        = "draft_created"
	ActionCreateFailed   = "draft_create_failed"
	ActionLoaded         = "draft_loaded"
	ActionLoadFailed     = "draft_load_failed"
	ActionUpdated        = "draft_updated"
	ActionUpdateFailed   = "draft_update_failed"
	ActionCompleted      = "draft_completed"
	ActionCompleteFailed = "draft_complete_failed"
	ActionDeleted        = "draft_deleted"
	ActionDeleteFailed   = "draft_delete_failed"
	ActionSynced         = "drafts_synced"
	ActionSyncFailed     = "drafts_sync_failed"
	ActionAutosaved      = "draft_autosaved"
)

// AuditEmitter is the fire-and-forget side channel. Delivery is best-effort
// and never blocks or fails the primary operation.
type AuditEmitter interface {
	Emit(action string, draft *models.Draft, details models.DocumentMap)
}

// AsyncAuditEmitter buffers events on a channel and drains them to the
// audit_logs table plus an optional external HTTP sink. When the buffer is
// full the event is dropped and counted; the primary operation never waits.
type AsyncAuditEmitter struct {
	db      *gorm.DB
	sinkURL string

	events  chan models.AuditLog
	done    chan struct{}
	once    sync.Once
	mu      sync.Mutex
	dropped int64
}

func NewAsyncAuditEmitter(db *gorm.DB, sinkURL string) *AsyncAuditEmitter {
	e := &AsyncAuditEmitter{
		db:      db,
		sinkURL: sinkURL,
		events:  make(chan models.AuditLog, 256),
		done:    make(chan struct{}),
	}
	go e.drain()
	return e
}

func (e *AsyncAuditEmitter) Emit(action string, draft *models.Draft, details models.DocumentMap) {
	entry := models.AuditLog{
		ID:        uuid.NewString(),
		Action:    action,
		CreatedAt: time.Now().UTC(),
		Details:   details.Clone(),
	}
	if entry.Details == nil {
		entry.Details = models.DocumentMap{}
	}
	if draft != nil {
		entry.DraftID = draft.ID
		entry.OwnerID = draft.OwnerID
		if draft.ID != "" {
			entry.Details["draft_label"] = slug.Make(draft.DisplayName())
		}
	}

	select {
	case e.events <- entry:
	default:
		e.mu.Lock()
		e.dropped++
		n := e.dropped
		e.mu.Unlock()
		log.Printf("[AUDIT] buffer full, dropped event %s (%d dropped so far)", action, n)
	}
}

// Dropped reports how many events were discarded due to backpressure.
func (e *AsyncAuditEmitter) Dropped() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dropped
}

// Close stops the drain loop after flushing what is already buffered.
func (e *AsyncAuditEmitter) Close() {
	e.once.Do(func() {
		close(e.events)
		<-e.done
	})
}

func (e *AsyncAuditEmitter) drain() {
	defer close(e.done)
	for entry := range e.events {
		if e.db != nil {
			if err := e.db.Create(&entry).Error; err != nil {
				log.Printf("[AUDIT] failed to persist %s: %v", entry.Action, err)
			}
		}
		if e.sinkURL != "" {
			e.forward(entry)
		}
	}
}

// forward POSTs the event to the external sink. Errors are logged and
// forgotten; the sink is advisory.
func (e *AsyncAuditEmitter) forward(entry models.AuditLog) {
	payload, err := json.Marshal(map[string]interface{}{
		"action":  entry.Action,
		"details": entry.Details,
	})
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, "POST", e.sinkURL, bytes.NewReader(payload))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := utils.HTTPClient.Do(req)
	if err != nil {
		log.Printf("[AUDIT] sink unreachable: %v", err)
		return
	}
	resp.Body.Close()
	if resp.StatusCode >= 300 {
		log.Printf("[AUDIT] sink returned %d for %s", resp.StatusCode, entry.Action)
	}
}
