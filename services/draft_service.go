package services

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"tournament-draft-system/connectivity"
	"tournament-draft-system/models"
	"tournament-draft-system/storage"
)

// DraftService is the HTTP surface over the draft engine. All routes sit
// behind the gateway middleware; the owner is whatever user context the
// gateway forwarded.
type DraftService struct {
	Repo      *DraftRepository
	Scheduler *AutosaveScheduler
	Monitor   *connectivity.Monitor
}

func NewDraftService(repo *DraftRepository, scheduler *AutosaveScheduler, monitor *connectivity.Monitor) *DraftService {
	return &DraftService{Repo: repo, Scheduler: scheduler, Monitor: monitor}
}

func ownerFromCtx(c *fiber.Ctx) string {
	if v, ok := c.Locals("user_id").(string); ok {
		return v
	}
	return ""
}

// statusForError maps the storage taxonomy onto HTTP codes. NetworkError only
// reaches here when no fallback tier could absorb the write.
func statusForError(err error) int {
	switch {
	case storage.IsNotFound(err):
		return fiber.StatusNotFound
	case storage.IsOwnershipError(err):
		return fiber.StatusForbidden
	case storage.IsNetworkError(err):
		return fiber.StatusServiceUnavailable
	case storage.IsLocalStorageError(err):
		return fiber.StatusInternalServerError
	case errors.Is(err, ErrDraftCompleted):
		return fiber.StatusConflict
	case errors.Is(err, ErrSyncInFlight):
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

// CreateDraft starts a new tournament-creation form. Creation never fails
// outright: even when a tier rejected the write the draft id is returned and
// the trouble is reported as a warning.
func (s *DraftService) CreateDraft(c *fiber.Ctx) error {
	type Req struct {
		Document models.DocumentMap `json:"document"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON", "details": err.Error()})
	}

	owner := ownerFromCtx(c)
	draft, err := s.Repo.Create(c.Context(), owner, req.Document)
	if err != nil {
		log.Printf("[DRAFTS] create degraded for %s: %v", draft.ID, err)
		return c.Status(201).JSON(fiber.Map{"draft": draft, "warning": err.Error()})
	}
	return c.Status(201).JSON(fiber.Map{"draft": draft})
}

// GetDrafts lists the owner's in-progress drafts; ?q= runs the resume search.
func (s *DraftService) GetDrafts(c *fiber.Ctx) error {
	drafts, err := s.Repo.List(c.Context(), ownerFromCtx(c), c.Query("q"))
	if err != nil {
		return c.Status(statusForError(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"drafts": drafts})
}

// GetDraft loads one draft, remote-first with local fallback.
func (s *DraftService) GetDraft(c *fiber.Ctx) error {
	draft, err := s.Repo.Load(c.Context(), c.Params("id"), ownerFromCtx(c))
	if err != nil {
		return c.Status(statusForError(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"draft": draft})
}

// UpdateDraft buffers a partial-document patch. A recognized checkpoint tag
// commits immediately and reports the outcome; plain edits are debounced and
// acknowledged right away.
func (s *DraftService) UpdateDraft(c *fiber.Ctx) error {
	type Req struct {
		Patch      models.DocumentMap `json:"patch"`
		Checkpoint string             `json:"checkpoint,omitempty"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON", "details": err.Error()})
	}
	if len(req.Patch) == 0 {
		return c.Status(400).JSON(fiber.Map{"error": "patch is required"})
	}

	id := c.Params("id")
	if err := s.Scheduler.Edit(c.Context(), id, req.Patch, req.Checkpoint); err != nil {
		return c.Status(statusForError(err)).JSON(fiber.Map{"error": err.Error()})
	}
	if req.Checkpoint != "" && Checkpoints[req.Checkpoint] {
		return c.JSON(fiber.Map{"status": "committed", "checkpoint": req.Checkpoint})
	}
	return c.Status(202).JSON(fiber.Map{"status": "buffered"})
}

// SaveDraftNow force-flushes the accumulated patch (saveNow).
func (s *DraftService) SaveDraftNow(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := s.Scheduler.Flush(c.Context(), id); err != nil {
		return c.Status(statusForError(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"status": "committed"})
}

// CompleteDraft executes the terminal transition once the tournament record
// exists on the remote side.
func (s *DraftService) CompleteDraft(c *fiber.Ctx) error {
	type Req struct {
		TournamentID string `json:"tournament_id"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
	}
	if req.TournamentID == "" {
		return c.Status(400).JSON(fiber.Map{"error": "tournament_id is required"})
	}

	id := c.Params("id")
	if err := s.Repo.Complete(c.Context(), id, req.TournamentID); err != nil {
		if storage.IsNetworkError(err) {
			return c.Status(503).JSON(fiber.Map{"error": "cannot complete while the draft service is unreachable; the draft was kept and can be retried"})
		}
		return c.Status(statusForError(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"status": "completed", "tournament_id": req.TournamentID})
}

// DeleteDraft removes the draft from every tier that holds it.
func (s *DraftService) DeleteDraft(c *fiber.Ctx) error {
	if err := s.Repo.Delete(c.Context(), c.Params("id")); err != nil {
		return c.Status(statusForError(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"status": "deleted"})
}

// SyncDrafts runs the reconciliation pass for the calling owner.
func (s *DraftService) SyncDrafts(c *fiber.Ctx) error {
	owner := ownerFromCtx(c)
	if owner == "" {
		return c.Status(401).JSON(fiber.Map{"error": "sync requires an authenticated owner"})
	}
	if err := s.Repo.Reconcile(c.Context(), owner); err != nil {
		if errors.Is(err, ErrSyncInFlight) {
			return c.Status(409).JSON(fiber.Map{"error": "a sync is already in flight"})
		}
		return c.Status(statusForError(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"status": "synced"})
}

// GetStatus reports the observable engine state the wizard polls.
func (s *DraftService) GetStatus(c *fiber.Ctx) error {
	return c.JSON(s.Repo.Status())
}

// NotifyConnectivity is the ingress for the platform's native online/offline
// notifications.
func (s *DraftService) NotifyConnectivity(c *fiber.Ctx) error {
	type Req struct {
		Online *bool `json:"online"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil || req.Online == nil {
		return c.Status(400).JSON(fiber.Map{"error": "body must be {\"online\": true|false}"})
	}
	s.Monitor.Notify(*req.Online)
	return c.JSON(fiber.Map{"online": s.Monitor.IsOnline()})
}
