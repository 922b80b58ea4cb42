// workers/audit_archiver.go
package workers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"

	"tournament-draft-system/models"
	"tournament-draft-system/utils"
)

const (
	archiveBatchSize = 500
	archiveMinAge    = time.Hour
	archiveRetention = 30 * 24 * time.Hour
)

// AuditArchiver ships aged audit rows to R2 as JSONL batches and prunes
// rows that have been archived long enough. Cold storage is best-effort:
// a failed upload just leaves the rows for the next pass.
type AuditArchiver struct {
	db        *gorm.DB
	keyPrefix string
	interval  time.Duration
}

func NewAuditArchiver(db *gorm.DB, interval time.Duration) *AuditArchiver {
	service := os.Getenv("SERVICE_NAME")
	if service == "" {
		service = "tournament draft system"
	}
	if interval <= 0 {
		interval = time.Hour
	}
	return &AuditArchiver{
		db:        db,
		keyPrefix: slug.Make(service),
		interval:  interval,
	}
}

func (a *AuditArchiver) Start(ctx context.Context) {
	log.Println("🗄️ Starting Audit Archiver…")

	sched, err := gocron.NewScheduler()
	if err != nil {
		log.Printf("[AUDIT] failed to create scheduler, archiving disabled: %v", err)
		return
	}
	_, _ = sched.NewJob(
		gocron.DurationJob(a.interval),
		gocron.NewTask(func() {
			runCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
			defer cancel()
			if err := a.archiveBatch(runCtx); err != nil {
				log.Printf("[AUDIT] archive pass failed: %v", err)
			}
			a.prune()
		}),
	)
	sched.Start()

	go func() {
		<-ctx.Done()
		_ = sched.Shutdown()
		log.Println("⏹️ Audit Archiver stopped")
	}()
}

// archiveBatch uploads one JSONL batch of unarchived rows older than
// archiveMinAge and marks them archived.
func (a *AuditArchiver) archiveBatch(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-archiveMinAge)

	var entries []models.AuditLog
	err := a.db.WithContext(ctx).
		Where("archived_at IS NULL AND created_at <= ?", cutoff).
		Order("created_at ASC").
		Limit(archiveBatchSize).
		Find(&entries).Error
	if err != nil {
		return fmt.Errorf("fetch unarchived audit rows: %w", err)
	}
	if len(entries) == 0 {
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	ids := make([]string, 0, len(entries))
	for i := range entries {
		if err := enc.Encode(&entries[i]); err != nil {
			return fmt.Errorf("encode audit row %s: %w", entries[i].ID, err)
		}
		ids = append(ids, entries[i].ID)
	}

	key := fmt.Sprintf("%s/audit/%s/%s.jsonl",
		a.keyPrefix, time.Now().UTC().Format("2006-01-02"), uuid.NewString())
	if err := utils.UploadBytesToR2(ctx, key, buf.Bytes(), "application/x-ndjson"); err != nil {
		return err
	}

	now := time.Now().UTC()
	if err := a.db.WithContext(ctx).Model(&models.AuditLog{}).
		Where("id IN ?", ids).
		Update("archived_at", now).Error; err != nil {
		return fmt.Errorf("mark audit rows archived: %w", err)
	}
	log.Printf("[AUDIT] archived %d event(s) to %s", len(ids), key)
	return nil
}

// prune deletes rows archived past the retention window.
func (a *AuditArchiver) prune() {
	cutoff := time.Now().UTC().Add(-archiveRetention)
	res := a.db.Where("archived_at IS NOT NULL AND archived_at <= ?", cutoff).
		Delete(&models.AuditLog{})
	if res.Error != nil {
		log.Printf("[AUDIT] prune failed: %v", res.Error)
		return
	}
	if res.RowsAffected > 0 {
		log.Printf("[AUDIT] pruned %d archived event(s)", res.RowsAffected)
	}
}
