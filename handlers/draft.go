package handlers

import (
	"tournament-draft-system/middleware"
	"tournament-draft-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupDraftRoutes(app *fiber.App, draftService *services.DraftService) {
	// Connectivity ingress — gateway-authenticated but carries no user context
	app.Post("/connectivity", draftService.NotifyConnectivity)

	// 🔐 Everything else requires the user context forwarded by the Gateway
	secured := app.Group("/", middleware.UserContextMiddleware())

	secured.Post("/drafts", draftService.CreateDraft)
	secured.Get("/drafts", draftService.GetDrafts) // ?q= resume search
	secured.Get("/drafts/status", draftService.GetStatus)
	secured.Post("/drafts/sync", draftService.SyncDrafts)
	secured.Get("/drafts/:id", draftService.GetDraft)
	secured.Patch("/drafts/:id", draftService.UpdateDraft) // debounced or checkpointed
	secured.Post("/drafts/:id/save", draftService.SaveDraftNow)
	secured.Post("/drafts/:id/complete", draftService.CompleteDraft)
	secured.Delete("/drafts/:id", draftService.DeleteDraft)
}
