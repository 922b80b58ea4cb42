package services

import (
	"context"
	"log"
	"sync"
	"time"

	"tournament-draft-system/models"
	"tournament-draft-system/storage"
)

// DefaultAutosaveInterval is the quiet period after the last edit before a
// buffered patch is committed.
const DefaultAutosaveInterval = 15 * time.Second

// Checkpoints are the caller-declared milestones that force an immediate,
// confirmed save instead of waiting out the debounce window. Unknown names
// are treated as ordinary debounced edits.
var Checkpoints = map[string]bool{
	"basic_info":          true,
	"pairing_method":      true,
	"player_registration": true,
	"schedule":            true,
	"review":              true,
}

// autosaveEntry is the per-draft scheduling state: one pending-patch
// accumulator plus one timer handle, guarded by the scheduler mutex so
// exactly one flush is in flight per draft id.
type autosaveEntry struct {
	pending  models.DocumentMap
	timer    *time.Timer
	inFlight bool
	followUp bool // checkpoint arrived mid-flight; flush again when it lands
}

// AutosaveScheduler coalesces incremental field edits and commits them to
// the repository either after a quiet period or immediately on a checkpoint.
// Later values win within the accumulation window; no edit is ever dropped
// or interleaved with an in-flight write.
type AutosaveScheduler struct {
	repo     *DraftRepository
	audit    AuditEmitter
	interval time.Duration

	mu      sync.Mutex
	cond    *sync.Cond
	entries map[string]*autosaveEntry
}

func NewAutosaveScheduler(repo *DraftRepository, audit AuditEmitter, interval time.Duration) *AutosaveScheduler {
	if interval <= 0 {
		interval = DefaultAutosaveInterval
	}
	s := &AutosaveScheduler{
		repo:     repo,
		audit:    audit,
		interval: interval,
		entries:  make(map[string]*autosaveEntry),
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

func (s *AutosaveScheduler) entry(id string) *autosaveEntry {
	e, ok := s.entries[id]
	if !ok {
		e = &autosaveEntry{pending: models.DocumentMap{}}
		s.entries[id] = e
	}
	return e
}

// Edit buffers a partial-document patch for the draft. A checkpoint-tagged
// edit cancels the pending debounce timer and flushes immediately —
// including everything accumulated before the checkpoint — and reports the
// commit outcome to the caller. Plain edits restart the debounce timer and
// never block on storage.
func (s *AutosaveScheduler) Edit(ctx context.Context, id string, patch models.DocumentMap, checkpoint string) error {
	if _, ok := s.repo.Get(id); !ok {
		return &storage.NotFoundError{Op: "autosave", ID: id}
	}

	s.mu.Lock()
	e := s.entry(id)
	for k, v := range patch {
		e.pending[k] = v
	}

	if checkpoint != "" && Checkpoints[checkpoint] {
		s.mu.Unlock()
		return s.Flush(ctx, id)
	}

	if e.timer != nil {
		e.timer.Stop()
	}
	e.timer = time.AfterFunc(s.interval, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.Flush(ctx, id); err != nil {
			// The failed patch stays accumulated; the next trigger retries it.
			log.Printf("[AUTOSAVE] debounced flush of %s failed: %v", id, err)
		}
	})
	s.mu.Unlock()
	return nil
}

// Flush commits the accumulated patch now (saveNow / checkpoint path) and
// only returns once it has been persisted. Single-writer-per-id: a flush
// arriving while another is in flight queues a follow-up and waits for the
// writer to drain the accumulator, so a checkpoint acknowledgement always
// means the checkpoint patch landed.
func (s *AutosaveScheduler) Flush(ctx context.Context, id string) error {
	s.mu.Lock()
	e := s.entry(id)
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	for e.inFlight {
		e.followUp = true
		s.cond.Wait()
	}
	e.inFlight = true

	var lastErr error
	for {
		patch := e.pending
		if len(patch) == 0 {
			break
		}
		// Swap the accumulator out atomically before issuing the write so a
		// concurrent edit cannot be absorbed into the in-flight request.
		e.pending = models.DocumentMap{}
		e.followUp = false
		s.mu.Unlock()

		draft, err := s.repo.Update(ctx, id, patch)
		s.mu.Lock()
		if err != nil {
			// Re-accumulate under anything newer: the failed values must not
			// clobber edits that arrived while the write was in flight.
			merged := patch.Clone()
			for k, v := range e.pending {
				merged[k] = v
			}
			e.pending = merged
			lastErr = err
			break
		}
		if s.audit != nil {
			s.audit.Emit(ActionAutosaved, draft, models.DocumentMap{"fields": patchKeys(patch)})
		}
		if !e.followUp {
			// Edits that arrived mid-flight already restarted their own
			// debounce timer; they belong to the next flush.
			break
		}
	}
	e.inFlight = false
	s.cond.Broadcast()
	s.mu.Unlock()
	return lastErr
}

// FlushAll commits every draft's accumulated patch; used on shutdown so the
// quiet-period guarantee holds across restarts.
func (s *AutosaveScheduler) FlushAll(ctx context.Context) {
	s.mu.Lock()
	ids := make([]string, 0, len(s.entries))
	for id, e := range s.entries {
		if len(e.pending) > 0 || e.timer != nil {
			ids = append(ids, id)
		}
	}
	s.mu.Unlock()
	for _, id := range ids {
		if err := s.Flush(ctx, id); err != nil {
			log.Printf("[AUTOSAVE] shutdown flush of %s failed: %v", id, err)
		}
	}
}

// Pending reports whether a draft has uncommitted edits; the status endpoint
// and tests use it.
func (s *AutosaveScheduler) Pending(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	return ok && (len(e.pending) > 0 || e.inFlight)
}
