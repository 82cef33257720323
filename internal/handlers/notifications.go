package handlers

import (
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/skulebot/core/internal/models"
	"github.com/skulebot/core/internal/repository"
	"github.com/skulebot/core/internal/router"
)

// Notification and reminder messages carry a deep link back into the
// material they announce:
//
//	ntf/<type>/<mid>       expand a publish notification in place
//	rmd/<type>/<mid>       expand a deadline reminder in place
//	.../<mid>?x=1          collapse back to the short form
//	.../<mid>/dl           deliver the material's files
//
// The two prefixes share handlers; they only differ in which fan-out
// authored the message.
func (h *Handlers) registerNotifications(d *router.Dispatcher) {
	d.Callback(
		router.On(`^(?P<pfx>ntf|rmd)/(?P<t>[a-z]+)/(?P<mid>\d+)/dl$`, h.ntfFiles),
		router.On(`^(?P<pfx>ntf|rmd)/(?P<t>[a-z]+)/(?P<mid>\d+)(\?x=(?P<x>1))?$`, h.ntfToggle),
	)
}

func (h *Handlers) ntfToggle(c *router.Context) error {
	m, err := c.Store.Materials.Material(c.Params.Uint("mid"))
	if errors.Is(err, repository.ErrNotFound) {
		return router.ErrStale
	}
	if err != nil {
		return err
	}

	base := router.Path(c.Params.Str("pfx"), string(m.Type), itoa(m.ID))
	if c.Params.Has("x") {
		return h.ntfCollapse(c, m, base)
	}
	return h.ntfExpand(c, m, base)
}

// ntfExpand rewrites the short announcement into the material's details.
func (h *Handlers) ntfExpand(c *router.Context, m *models.Material, base string) error {
	text := fmt.Sprintf("%s\n%s", m.Course.Name(c.Lang()), materialHeadline(m, c.Lang()))
	if m.Type == models.TypeAssignment && m.Deadline != nil {
		text += fmt.Sprintf("\n⏰ %s", m.Deadline.Format("Mon 2 Jan 15:04"))
	}
	files, err := c.Store.Materials.MaterialFiles(m.ID)
	if err != nil {
		return err
	}
	if n := len(files); n > 0 {
		text += "\n" + tr(c.Lang(),
			fmt.Sprintf("%d file(s) attached.", n),
			fmt.Sprintf("عدد الملفات المرفقة: %d.", n))
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	if len(files) > 0 {
		rows = append(rows, row(btn(tr(c.Lang(), "⬇️ Files", "⬇️ الملفات"), router.Path(base, "dl"))))
	}
	rows = append(rows, row(btn(tr(c.Lang(), "Show less", "عرض أقل"), base+"?x=1")))
	return c.EditOrReply(text, keyboard(rows...))
}

// ntfCollapse restores the one-line announcement.
func (h *Handlers) ntfCollapse(c *router.Context, m *models.Material, base string) error {
	text := fmt.Sprintf("📢 %s\n%s", m.Course.Name(c.Lang()), materialHeadline(m, c.Lang()))
	kb := keyboard(row(btn(tr(c.Lang(), "Show more", "عرض المزيد"), base)))
	return c.EditOrReply(text, kb)
}

func (h *Handlers) ntfFiles(c *router.Context) error {
	m, err := c.Store.Materials.Material(c.Params.Uint("mid"))
	if errors.Is(err, repository.ErrNotFound) {
		return router.ErrStale
	}
	if err != nil {
		return err
	}
	if err := c.Answer(""); err != nil {
		return err
	}
	return sendMaterialFiles(c, m)
}

// materialHeadline is the announcement form of a material's name.
func materialHeadline(m *models.Material, lang string) string {
	switch {
	case m.Type.Numbered():
		return fmt.Sprintf("%s %d", m.Type.Label(lang), m.Number)
	case m.Type == models.TypeReview:
		return fmt.Sprintf("%s: %s", m.Type.Label(lang), m.Name(lang))
	case len(m.Files) > 0:
		return fmt.Sprintf("%s: %s", m.Type.Label(lang), m.Files[0].Name)
	default:
		return m.Type.Label(lang)
	}
}
