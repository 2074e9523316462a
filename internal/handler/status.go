package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/blocklist-crawler/crawler/internal/state"
)

type Snapshotter interface {
	Snapshot() []state.SourceState
}

type Trigger interface {
	RunNow() error
	NextRun() (time.Time, error)
}

type StatusHandler struct {
	store   Snapshotter
	trigger Trigger
}

func NewStatusHandler(store Snapshotter, trigger Trigger) *StatusHandler {
	return &StatusHandler{
		store:   store,
		trigger: trigger,
	}
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type SourcesResponse struct {
	Items   []state.SourceState `json:"items"`
	NextRun *time.Time          `json:"next_run,omitempty"`
}

// Register mounts the status routes on app.
func (h *StatusHandler) Register(app *fiber.App) {
	app.Get("/health", h.Health)

	api := app.Group("/api")
	api.Get("/sources", h.List)
	api.Post("/sources/run", h.Run)
}

func (h *StatusHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (h *StatusHandler) List(c *fiber.Ctx) error {
	resp := SourcesResponse{Items: h.store.Snapshot()}
	if next, err := h.trigger.NextRun(); err == nil && !next.IsZero() {
		resp.NextRun = &next
	}
	return c.JSON(resp)
}

// Run queues an immediate crawl. A crawl already in progress wins.
func (h *StatusHandler) Run(c *fiber.Ctx) error {
	if err := h.trigger.RunNow(); err != nil {
		return c.Status(503).JSON(ErrorResponse{Error: err.Error()})
	}
	return c.Status(202).JSON(fiber.Map{"status": "queued"})
}
