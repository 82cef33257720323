package handlers

import (
	"github.com/skulebot/core/internal/config"
	"github.com/skulebot/core/internal/models"
	"github.com/skulebot/core/internal/router"
	"github.com/skulebot/core/internal/services"
)

// Handlers owns every bot interaction. Per-interaction services are built
// from the Context's transaction-bound store; only the fan-out service and
// the LMS client live for the process lifetime.
type Handlers struct {
	cfg    *config.Config
	notify *services.NotifyService
	lms    *services.LMSClient
}

func New(cfg *config.Config, notify *services.NotifyService, lms *services.LMSClient) *Handlers {
	return &Handlers{cfg: cfg, notify: notify, lms: lms}
}

// Register wires every command, callback table and conversation into the
// dispatcher. Callback routes are ordered most-specific first, since the
// first match wins.
func (h *Handlers) Register(d *router.Dispatcher) {
	d.Command("start", h.start)
	d.Command("help", h.help)
	d.Command("courses", h.coursesCommand)
	d.Command("enrollments", h.enrollmentsCommand)
	d.Command("settings", h.settingsCommand)
	d.Command("editor", h.editorCommand, models.RoleEditor)
	d.Command("updatematerials", h.updateMaterialsCommand, models.RoleEditor)
	d.Command("requests", h.requestsCommand, models.RoleRoot)
	d.Command("contentmanagement", h.contentCommand, models.RoleRoot)
	d.Command("users", h.usersCommand, models.RoleRoot)
	d.Command("broadcast", h.broadcastCommand, models.RoleRoot)
	d.Command("initialize", h.initialize, models.RoleRoot)

	h.registerCourses(d)
	h.registerNotifications(d)
	h.registerEnrollments(d)
	h.registerEditor(d)
	h.registerRequests(d)
	h.registerContent(d)
	h.registerSettings(d)
	h.registerUsers(d)
	h.registerBroadcast(d)
}
