package handlers

import (
	"github.com/skulebot/core/internal/router"
	"github.com/skulebot/core/internal/services"
)

func (h *Handlers) start(c *router.Context) error {
	// Refresh the command menu so a newly granted role shows up.
	if err := c.Bot.SetCommands(c.ChatID(), services.CommandsFor(c.Roles, c.Lang())); err != nil {
		c.Log.Warn("failed to set commands")
	}
	text := tr(c.Lang(),
		"Welcome! I keep your course materials in one place.\n"+
			"Use /enrollments to enroll, then /courses to browse materials.",
		"أهلاً بك! أنا هنا لحفظ ملفات موادك الدراسية في مكان واحد.\n"+
			"استخدم /enrollments للتسجيل ثم /courses لتصفح الملفات.")
	return c.Reply(text, nil)
}

func (h *Handlers) help(c *router.Context) error {
	text := tr(c.Lang(),
		"/courses — browse your course materials\n"+
			"/enrollments — manage your enrollments\n"+
			"/settings — language and notifications\n"+
			"Editors can publish materials via /editor.",
		"/courses — تصفح ملفات موادك\n"+
			"/enrollments — إدارة تسجيلاتك\n"+
			"/settings — اللغة والإشعارات\n"+
			"يمكن للمحررين نشر الملفات عبر /editor.")
	return c.Reply(text, nil)
}

// initialize imports the faculty catalog from the LMS. Safe to run again:
// rows are matched by their LMS ids.
func (h *Handlers) initialize(c *router.Context) error {
	if err := c.Reply("Importing catalog from the LMS…", nil); err != nil {
		return err
	}
	if err := h.lms.Import(c.Store); err != nil {
		return err
	}
	return c.Reply("Catalog import finished.", nil)
}
