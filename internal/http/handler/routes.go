package handler

import (
	"github.com/gofiber/fiber/v2"

	"docviewer/internal/service"
)

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
// db may be nil when the session ledger is disabled.
func RegisterRoutes(app *fiber.App, db Pinger, svc service.ViewingService, page PageConfig) {
	app.Get("/health", HealthCheck(db))

	// Backward-compatible simple liveness probe
	app.Get("/healthz", LivenessProbe())

	// Viewer page for the fixed default document (not scanned)
	app.Get("/", Index(svc, page))

	// Scan the named document, then hand back a viewing session id
	app.Get("/render/:file", RenderDocument(svc))

	app.Get("/documents", ListDocuments(svc))
	app.Get("/sessions/:id", GetSession(svc))
}
