package services

import (
	"context"
	"errors"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"

	"tournament-draft-system/models"
	"tournament-draft-system/storage"
)

// LocalCache is the durable offline tier (see storage.LocalStore).
type LocalCache interface {
	Read(ctx context.Context) ([]models.Draft, error)
	Write(ctx context.Context, drafts []models.Draft) error
	Clear(ctx context.Context) error
}

// RemoteStore is the hosted draft table (see storage.RemoteDraftStore).
type RemoteStore interface {
	List(ctx context.Context, owner string) ([]models.Draft, error)
	Insert(ctx context.Context, draft *models.Draft) error
	Update(ctx context.Context, id, owner string, fields map[string]interface{}) error
	Delete(ctx context.Context, id, owner string) error
	GetOne(ctx context.Context, id, owner string) (*models.Draft, error)
}

// Reachability is the advisory online/offline signal.
type Reachability interface {
	IsOnline() bool
}

// ErrSyncInFlight is returned when a reconcile is requested while another is
// still running; whole-collection reconciles are never overlapped.
var ErrSyncInFlight = errors.New("sync already in flight")

// ErrDraftCompleted rejects engine-managed mutation of a terminal draft.
var ErrDraftCompleted = errors.New("draft already completed")

// saveTier is the typed persistence outcome: which tier actually took the
// write. Callers branch on this instead of re-dispatching on error content.
type saveTier int

const (
	tierNone saveTier = iota
	tierRemote
	tierLocal
)

// EngineStatus is the observable surface the wizard polls.
type EngineStatus struct {
	IsSaving      bool       `json:"is_saving"`
	LastSaved     *time.Time `json:"last_saved,omitempty"`
	IsOnline      bool       `json:"is_online"`
	PendingDrafts int        `json:"pending_drafts"`
	Error         string     `json:"error,omitempty"`
}

var searchFolder = cases.Fold()

// DraftRepository owns the in-memory draft collection and decides, per
// operation, which storage tier is authoritative. The remote and local
// copies are replicas it keeps convergent; they are never independent
// sources of truth.
type DraftRepository struct {
	mu     sync.RWMutex
	drafts map[string]*models.Draft

	local  LocalCache
	remote RemoteStore
	reach  Reachability
	audit  AuditEmitter

	syncMu chan struct{} // size-1 token: single reconcile in flight

	statusMu  sync.Mutex
	saving    int
	lastSaved time.Time
	lastError string
}

func NewDraftRepository(local LocalCache, remote RemoteStore, reach Reachability, audit AuditEmitter) *DraftRepository {
	return &DraftRepository{
		drafts: make(map[string]*models.Draft),
		local:  local,
		remote: remote,
		reach:  reach,
		audit:  audit,
		syncMu: make(chan struct{}, 1),
	}
}

// Restore warms the in-memory collection from the local tier. Called once at
// startup, before any request is served.
func (r *DraftRepository) Restore(ctx context.Context) error {
	cached, err := r.local.Read(ctx)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range cached {
		d := cached[i]
		if d.Status != models.DraftStatusDraft {
			continue
		}
		d.SyncState = models.SyncLocalOnly
		r.drafts[d.ID] = &d
	}
	log.Printf("[DRAFTS] restored %d draft(s) from local cache", len(r.drafts))
	return nil
}

// --- timestamp and merge helpers ---

// nextTimestamp keeps last_updated strictly increasing per draft even when
// commits land within clock granularity.
func nextTimestamp(prev time.Time) time.Time {
	now := time.Now().UTC()
	if !now.After(prev) {
		return prev.Add(time.Millisecond)
	}
	return now
}

// mergeDocument is the shallow merge: patch keys replace document keys,
// untouched keys survive, nested values are replaced wholesale.
func mergeDocument(doc, patch models.DocumentMap) models.DocumentMap {
	out := doc.Clone()
	if out == nil {
		out = models.DocumentMap{}
	}
	for k, v := range patch {
		out[k] = v
	}
	return out
}

func remoteFields(d *models.Draft) map[string]interface{} {
	return map[string]interface{}{
		"owner_id":     d.OwnerID,
		"name":         d.Name,
		"status":       d.Status,
		"document":     d.Document,
		"last_updated": d.LastUpdated,
	}
}

// --- status bookkeeping ---

func (r *DraftRepository) beginSave() {
	r.statusMu.Lock()
	r.saving++
	r.statusMu.Unlock()
}

func (r *DraftRepository) endSave(err error) {
	r.statusMu.Lock()
	r.saving--
	if err == nil {
		r.lastSaved = time.Now().UTC()
		r.lastError = ""
	} else {
		r.lastError = err.Error()
	}
	r.statusMu.Unlock()
}

// Status reports the observable engine state.
func (r *DraftRepository) Status() EngineStatus {
	r.statusMu.Lock()
	saving := r.saving > 0
	lastErr := r.lastError
	var lastSaved *time.Time
	if !r.lastSaved.IsZero() {
		t := r.lastSaved
		lastSaved = &t
	}
	r.statusMu.Unlock()

	pending := 0
	r.mu.RLock()
	for _, d := range r.drafts {
		if d.SyncState == models.SyncLocalOnly || d.SyncState == models.SyncLocalAhead {
			pending++
		}
	}
	r.mu.RUnlock()

	return EngineStatus{
		IsSaving:      saving,
		LastSaved:     lastSaved,
		IsOnline:      r.reach.IsOnline(),
		PendingDrafts: pending,
		Error:         lastErr,
	}
}

// --- local tier writes ---

// collectionWith builds the local-cache value: every in-progress draft,
// with `include` replacing (or joining) its previous copy and `exclude`
// dropped. Completed drafts are never written to the local tier.
// Caller must hold r.mu (read is enough — the snapshot is a copy).
func (r *DraftRepository) collectionWith(include *models.Draft, excludeID string) []models.Draft {
	out := make([]models.Draft, 0, len(r.drafts)+1)
	for id, d := range r.drafts {
		if id == excludeID || d.Status != models.DraftStatusDraft {
			continue
		}
		if include != nil && id == include.ID {
			continue
		}
		out = append(out, *d.Clone())
	}
	if include != nil && include.ID != excludeID && include.Status == models.DraftStatusDraft {
		out = append(out, *include.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastUpdated.After(out[j].LastUpdated) })
	return out
}

// writeLocal persists the collection computed against a full copy; the
// in-memory map is only touched by the caller after this succeeds, so a
// failed local write never corrupts last-known-good state.
func (r *DraftRepository) writeLocal(ctx context.Context, include *models.Draft, excludeID string) error {
	r.mu.RLock()
	snapshot := r.collectionWith(include, excludeID)
	r.mu.RUnlock()
	return r.local.Write(ctx, snapshot)
}

// --- operations ---

// Create registers a new draft. The id is generated client-side and returned
// unconditionally: worst case the draft lives only in memory plus the local
// cache. Only a LocalStorageError is reported back, and even then the draft
// stays usable in memory.
func (r *DraftRepository) Create(ctx context.Context, owner string, initial models.DocumentMap) (*models.Draft, error) {
	now := time.Now().UTC()
	draft := &models.Draft{
		ID:          uuid.NewString(),
		OwnerID:     owner,
		Status:      models.DraftStatusDraft,
		Document:    initial.Clone(),
		CreatedAt:   now,
		LastUpdated: now,
		SyncState:   models.SyncUnsaved,
	}
	if draft.Document == nil {
		draft.Document = models.DocumentMap{}
	}
	draft.Name = draft.DisplayName()

	r.beginSave()
	var saveErr error
	defer func() { r.endSave(saveErr) }()

	if owner != "" && r.reach.IsOnline() {
		if err := r.remote.Insert(ctx, draft.Clone()); err == nil {
			draft.SyncState = models.SyncSynced
		} else if storage.IsOwnershipError(err) {
			// Never relocate an access-denied write silently; the draft still
			// exists, but only on this side of the wire.
			log.Printf("[DRAFTS] create %s rejected by remote: %v", draft.ID, err)
			r.emit(ActionCreateFailed, draft, models.DocumentMap{"error": err.Error()})
			saveErr = err
		} else {
			log.Printf("[DRAFTS] create %s falling back to local: %v", draft.ID, err)
		}
	}

	if draft.SyncState != models.SyncSynced {
		if err := r.writeLocal(ctx, draft, ""); err != nil {
			r.mu.Lock()
			r.drafts[draft.ID] = draft
			r.mu.Unlock()
			saveErr = err
			r.emit(ActionCreateFailed, draft, models.DocumentMap{"error": err.Error()})
			return draft.Clone(), err
		}
		if draft.SyncState == models.SyncUnsaved {
			draft.SyncState = models.SyncLocalOnly
		}
	} else {
		// Mirror the synced copy so an offline reload still finds it.
		if err := r.writeLocal(ctx, draft, ""); err != nil {
			log.Printf("[DRAFTS] create %s saved remotely but local mirror failed: %v", draft.ID, err)
		}
	}

	r.mu.Lock()
	r.drafts[draft.ID] = draft
	r.mu.Unlock()

	r.emit(ActionCreated, draft, models.DocumentMap{"tier": tierName(draft.SyncState)})
	return draft.Clone(), saveErr
}

// Load fetches a draft remote-first. A remote NotFound never suppresses the
// local attempt — a draft created offline and never uploaded must still
// resolve.
func (r *DraftRepository) Load(ctx context.Context, id, owner string) (*models.Draft, error) {
	if owner != "" && r.reach.IsOnline() {
		remote, err := r.remote.GetOne(ctx, id, owner)
		switch {
		case err == nil:
			adopted := r.adoptRemote(remote)
			if err := r.writeLocal(ctx, adopted, ""); err != nil {
				log.Printf("[DRAFTS] load %s: local mirror failed: %v", id, err)
			}
			r.emit(ActionLoaded, adopted, models.DocumentMap{"tier": "remote"})
			return adopted.Clone(), nil
		case storage.IsOwnershipError(err):
			r.emit(ActionLoadFailed, &models.Draft{ID: id, OwnerID: owner}, models.DocumentMap{"error": err.Error()})
			return nil, err
		case storage.IsNotFound(err) || storage.IsNetworkError(err):
			// fall through to the local tier
		default:
			return nil, err
		}
	}

	r.mu.RLock()
	d, ok := r.drafts[id]
	if ok {
		d = d.Clone()
	}
	r.mu.RUnlock()
	if ok && d.Status == models.DraftStatusDraft {
		r.emit(ActionLoaded, d, models.DocumentMap{"tier": "local"})
		return d, nil
	}
	return nil, &storage.NotFoundError{Op: "load", ID: id}
}

// adoptRemote folds a remote copy into memory under strict-newer-wins and
// returns the winning copy.
func (r *DraftRepository) adoptRemote(remote *models.Draft) *models.Draft {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.drafts[remote.ID]; ok && cur.LastUpdated.After(remote.LastUpdated) {
		return cur.Clone()
	}
	adopted := remote.Clone()
	adopted.SyncState = models.SyncSynced
	r.drafts[adopted.ID] = adopted
	return adopted.Clone()
}

// Update merges the patch into the draft document, bumps last_updated and
// persists per the online/offline rule. The returned draft is the committed
// copy; on any error the in-memory collection keeps its last-known-good
// state.
func (r *DraftRepository) Update(ctx context.Context, id string, patch models.DocumentMap) (*models.Draft, error) {
	r.mu.RLock()
	cur, ok := r.drafts[id]
	if ok {
		cur = cur.Clone()
	}
	r.mu.RUnlock()
	if !ok {
		return nil, &storage.NotFoundError{Op: "update", ID: id}
	}
	if cur.Status == models.DraftStatusCompleted {
		return nil, ErrDraftCompleted
	}

	updated := cur.Clone()
	updated.Document = mergeDocument(cur.Document, patch)
	updated.LastUpdated = nextTimestamp(cur.LastUpdated)
	updated.Name = updated.DisplayName()

	r.beginSave()
	tier, err := r.persist(ctx, cur, updated)
	r.endSave(err)
	if err != nil {
		r.emit(ActionUpdateFailed, updated, models.DocumentMap{"error": err.Error()})
		return nil, err
	}

	r.mu.Lock()
	r.drafts[id] = updated
	r.mu.Unlock()

	r.emit(ActionUpdated, updated, models.DocumentMap{"tier": tierLabel(tier), "fields": patchKeys(patch)})
	return updated.Clone(), nil
}

// persist writes the updated draft to the authoritative tier for this
// operation and mirrors/falls back to the local cache. Returns the tier that
// actually took the write.
func (r *DraftRepository) persist(ctx context.Context, prev, updated *models.Draft) (saveTier, error) {
	if updated.OwnerID != "" && r.reach.IsOnline() {
		var err error
		if prev.SyncState == models.SyncSynced || prev.SyncState == models.SyncLocalAhead {
			err = r.remote.Update(ctx, updated.ID, updated.OwnerID, remoteFields(updated))
			if storage.IsNotFound(err) {
				// Row vanished (or never made it up); upsert instead.
				err = r.remote.Insert(ctx, updated.Clone())
			}
		} else {
			err = r.remote.Insert(ctx, updated.Clone())
		}
		switch {
		case err == nil:
			updated.SyncState = models.SyncSynced
			if lerr := r.writeLocal(ctx, updated, ""); lerr != nil {
				log.Printf("[DRAFTS] %s saved remotely but local mirror failed: %v", updated.ID, lerr)
			}
			return tierRemote, nil
		case storage.IsOwnershipError(err):
			return tierNone, err
		case storage.IsNetworkError(err):
			log.Printf("[DRAFTS] %s remote save failed, falling back to local: %v", updated.ID, err)
		default:
			return tierNone, err
		}
	}

	if prev.SyncState == models.SyncSynced {
		updated.SyncState = models.SyncLocalAhead
	} else if prev.SyncState == models.SyncUnsaved {
		updated.SyncState = models.SyncLocalOnly
	} else {
		updated.SyncState = prev.SyncState
	}
	if err := r.writeLocal(ctx, updated, ""); err != nil {
		return tierNone, err
	}
	return tierLocal, nil
}

// Complete attaches the external tournament reference, marks the draft
// terminal and evicts it from the local cache (completed drafts are never
// retained there). Idempotent. The remote update must land before the
// terminal transition executes; a network failure leaves the draft intact
// for retry.
func (r *DraftRepository) Complete(ctx context.Context, id, tournamentID string) error {
	r.mu.RLock()
	cur, ok := r.drafts[id]
	if ok {
		cur = cur.Clone()
	}
	r.mu.RUnlock()
	if !ok {
		return &storage.NotFoundError{Op: "complete", ID: id}
	}
	if cur.Status == models.DraftStatusCompleted {
		return nil
	}

	updated := cur.Clone()
	updated.Document = mergeDocument(cur.Document, models.DocumentMap{"tournament_id": tournamentID})
	updated.Status = models.DraftStatusCompleted
	updated.LastUpdated = nextTimestamp(cur.LastUpdated)

	r.beginSave()
	var err error
	if updated.OwnerID != "" {
		if !r.reach.IsOnline() {
			err = storage.ErrOffline("complete")
		} else if cur.SyncState == models.SyncLocalOnly || cur.SyncState == models.SyncUnsaved {
			err = r.remote.Insert(ctx, updated.Clone())
		} else {
			err = r.remote.Update(ctx, updated.ID, updated.OwnerID, remoteFields(updated))
		}
	}
	r.endSave(err)
	if err != nil {
		r.emit(ActionCompleteFailed, updated, models.DocumentMap{"error": err.Error(), "tournament_id": tournamentID})
		return err
	}

	// Terminal transition: drop from the local cache, keep the terminal copy
	// in memory so a repeated complete is a cheap no-op.
	if lerr := r.writeLocal(ctx, nil, id); lerr != nil {
		log.Printf("[DRAFTS] complete %s: local eviction failed: %v", id, lerr)
	}
	updated.SyncState = models.SyncCompleted
	r.mu.Lock()
	r.drafts[id] = updated
	r.mu.Unlock()

	r.emit(ActionCompleted, updated, models.DocumentMap{"tournament_id": tournamentID})
	return nil
}

// Delete removes the draft from whichever tiers hold it. The local removal
// always happens, even when the remote delete fails, so the UI-visible list
// matches user intent under network failure.
func (r *DraftRepository) Delete(ctx context.Context, id string) error {
	r.mu.RLock()
	cur, ok := r.drafts[id]
	if ok {
		cur = cur.Clone()
	}
	r.mu.RUnlock()
	if !ok {
		return &storage.NotFoundError{Op: "delete", ID: id}
	}

	if cur.OwnerID != "" && r.reach.IsOnline() {
		if err := r.remote.Delete(ctx, id, cur.OwnerID); err != nil && !storage.IsNotFound(err) {
			// Tolerated: the local removal below is what the user observes.
			log.Printf("[DRAFTS] delete %s: remote delete failed (local removal proceeds): %v", id, err)
			r.emit(ActionDeleteFailed, cur, models.DocumentMap{"error": err.Error()})
		}
	}

	if err := r.writeLocal(ctx, nil, id); err != nil {
		return err
	}
	r.mu.Lock()
	delete(r.drafts, id)
	r.mu.Unlock()

	cur.SyncState = models.SyncDeleted
	r.emit(ActionDeleted, cur, nil)
	return nil
}

// List returns the owner's in-progress drafts, remote-first with local
// fallback, merged read-side under strict-newer-wins. query, when set,
// filters by caseless substring match on the draft name (resume search).
func (r *DraftRepository) List(ctx context.Context, owner, query string) ([]models.Draft, error) {
	byID := make(map[string]models.Draft)

	r.mu.RLock()
	for id, d := range r.drafts {
		if d.Status != models.DraftStatusDraft {
			continue
		}
		if d.OwnerID != "" && d.OwnerID != owner {
			continue
		}
		byID[id] = *d.Clone()
	}
	r.mu.RUnlock()

	if owner != "" && r.reach.IsOnline() {
		remote, err := r.remote.List(ctx, owner)
		switch {
		case err == nil:
			for i := range remote {
				rd := remote[i]
				rd.SyncState = models.SyncSynced
				if cur, ok := byID[rd.ID]; !ok || !cur.LastUpdated.After(rd.LastUpdated) {
					byID[rd.ID] = rd
				}
			}
		case storage.IsNetworkError(err):
			log.Printf("[DRAFTS] list for %s: remote unavailable, serving local copies: %v", owner, err)
		default:
			return nil, err
		}
	}

	folded := searchFolder.String(query)
	out := make([]models.Draft, 0, len(byID))
	for _, d := range byID {
		if query != "" && !strings.Contains(searchFolder.String(d.Name), folded) {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastUpdated.After(out[j].LastUpdated) })
	return out, nil
}

// Reconcile makes both tiers agree on the newest copy of every draft the
// local collection knows about, then rewrites the local cache to the
// winners' union (including remote-only rows). Strictly newer last_updated
// wins; equal timestamps mean the remote copy is adopted, which is what
// makes a repeated run a no-op. Ownerless local drafts are claimed by the
// syncing owner before upload.
func (r *DraftRepository) Reconcile(ctx context.Context, owner string) error {
	select {
	case r.syncMu <- struct{}{}:
	default:
		return ErrSyncInFlight
	}
	defer func() { <-r.syncMu }()

	if !r.reach.IsOnline() {
		return storage.ErrOffline("sync")
	}

	remoteDrafts, err := r.remote.List(ctx, owner)
	if err != nil {
		r.emit(ActionSyncFailed, &models.Draft{OwnerID: owner}, models.DocumentMap{"error": err.Error()})
		return err
	}
	remoteByID := make(map[string]*models.Draft, len(remoteDrafts))
	for i := range remoteDrafts {
		remoteByID[remoteDrafts[i].ID] = &remoteDrafts[i]
	}

	r.mu.RLock()
	locals := make([]*models.Draft, 0, len(r.drafts))
	for _, d := range r.drafts {
		if d.Status != models.DraftStatusDraft {
			continue
		}
		if d.OwnerID != "" && d.OwnerID != owner {
			continue
		}
		locals = append(locals, d.Clone())
	}
	r.mu.RUnlock()

	winners := make(map[string]*models.Draft, len(locals)+len(remoteByID))
	var pushed, adopted int
	var firstErr error

	for _, local := range locals {
		// An edit may have committed since the snapshot while earlier drafts
		// in this pass were doing remote I/O; always push the newest copy.
		if cur, ok := r.Get(local.ID); ok {
			if cur.Status != models.DraftStatusDraft {
				continue
			}
			if cur.LastUpdated.After(local.LastUpdated) {
				local = cur
			}
		}
		if local.OwnerID == "" {
			local.OwnerID = owner
		}
		remote, exists := remoteByID[local.ID]
		switch {
		case !exists:
			// Local copy is the only copy; it is authoritative.
			if err := r.remote.Insert(ctx, local.Clone()); err != nil {
				if firstErr == nil {
					firstErr = err
				}
				log.Printf("[SYNC] upload of %s failed: %v", local.ID, err)
				winners[local.ID] = local
				continue
			}
			local.SyncState = models.SyncSynced
			winners[local.ID] = local
			pushed++
		case local.LastUpdated.After(remote.LastUpdated):
			if err := r.remote.Update(ctx, local.ID, owner, remoteFields(local)); err != nil {
				if firstErr == nil {
					firstErr = err
				}
				log.Printf("[SYNC] overwrite of %s failed: %v", local.ID, err)
				winners[local.ID] = local
				continue
			}
			local.SyncState = models.SyncSynced
			winners[local.ID] = local
			pushed++
		default:
			// Equal or newer remote copy wins; mirror it locally.
			win := remote.Clone()
			win.SyncState = models.SyncSynced
			winners[win.ID] = win
			adopted++
		}
	}
	for id, remote := range remoteByID {
		if _, seen := winners[id]; !seen {
			win := remote.Clone()
			win.SyncState = models.SyncSynced
			winners[id] = win
		}
	}

	// Rewrite the local cache to exactly the reconciled union. A winner was
	// computed from the pre-I/O snapshot, so it never replaces a strictly
	// newer in-memory copy: an edit that committed while the remote calls
	// above were running keeps its document.
	r.mu.Lock()
	for id, d := range winners {
		if cur, ok := r.drafts[id]; ok && cur.LastUpdated.After(d.LastUpdated) {
			winners[id] = cur.Clone()
		}
	}
	union := make([]models.Draft, 0, len(winners))
	for _, d := range winners {
		union = append(union, *d.Clone())
	}
	r.mu.Unlock()
	sort.Slice(union, func(i, j int) bool { return union[i].LastUpdated.After(union[j].LastUpdated) })
	if err := r.local.Write(ctx, union); err != nil {
		if firstErr == nil {
			firstErr = err
		}
	} else {
		r.mu.Lock()
		for id, d := range winners {
			if cur, ok := r.drafts[id]; ok && cur.LastUpdated.After(d.LastUpdated) {
				continue
			}
			r.drafts[id] = d
		}
		r.mu.Unlock()
	}

	if firstErr != nil {
		r.emit(ActionSyncFailed, &models.Draft{OwnerID: owner}, models.DocumentMap{"error": firstErr.Error()})
		return firstErr
	}
	log.Printf("[SYNC] reconciled %d draft(s) for %s (%d pushed, %d adopted)", len(winners), owner, pushed, adopted)
	r.emit(ActionSynced, &models.Draft{OwnerID: owner}, models.DocumentMap{
		"drafts": len(winners), "pushed": pushed, "adopted": adopted,
	})
	return nil
}

// --- misc helpers ---

func (r *DraftRepository) emit(action string, d *models.Draft, details models.DocumentMap) {
	if r.audit == nil {
		return
	}
	r.audit.Emit(action, d, details)
}

func tierName(syncState string) string {
	if syncState == models.SyncSynced {
		return "remote"
	}
	return "local"
}

func tierLabel(t saveTier) string {
	switch t {
	case tierRemote:
		return "remote"
	case tierLocal:
		return "local"
	default:
		return "none"
	}
}

func patchKeys(patch models.DocumentMap) []string {
	keys := make([]string, 0, len(patch))
	for k := range patch {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Owners lists the distinct owners with in-progress drafts in the local
// collection; the reconcile worker syncs each of them.
func (r *DraftRepository) Owners() []string {
	seen := make(map[string]bool)
	r.mu.RLock()
	for _, d := range r.drafts {
		if d.Status == models.DraftStatusDraft && d.OwnerID != "" {
			seen[d.OwnerID] = true
		}
	}
	r.mu.RUnlock()
	owners := make([]string, 0, len(seen))
	for o := range seen {
		owners = append(owners, o)
	}
	sort.Strings(owners)
	return owners
}

// Get returns the in-memory copy without touching any tier; the autosave
// scheduler uses it to validate ids cheaply.
func (r *DraftRepository) Get(id string) (*models.Draft, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.drafts[id]
	if !ok {
		return nil, false
	}
	return d.Clone(), true
}
