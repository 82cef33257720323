package handlers

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/skulebot/core/internal/models"
	"github.com/skulebot/core/internal/router"
	"github.com/skulebot/core/internal/services"
)

func (h *Handlers) registerSettings(d *router.Dispatcher) {
	d.Callback(
		router.On(`^stg/lan/(?P<l>en|ar)$`, h.stgLanguage),
		router.On(`^stg/ntf/(?P<t>[a-z]+)$`, h.stgToggleNotification),
		router.On(`^stg$`, h.stgRoot),
	)
}

func (h *Handlers) settingsCommand(c *router.Context) error {
	return h.renderSettings(c)
}

func (h *Handlers) stgRoot(c *router.Context) error {
	return h.renderSettings(c)
}

func (h *Handlers) renderSettings(c *router.Context) error {
	enMark, arMark := "  ", "  "
	if c.Lang() == models.LangAR {
		arMark = "✓ "
	} else {
		enMark = "✓ "
	}
	rows := [][]tgbotapi.InlineKeyboardButton{
		row(btn(enMark+"English", "stg/lan/en"), btn(arMark+"العربية", "stg/lan/ar")),
	}

	for _, t := range models.MaterialTypes {
		enabled, err := c.Store.Settings.GetBool(c.User.ID, models.NotificationKey(t), true)
		if err != nil {
			return err
		}
		mark := "🔕"
		if enabled {
			mark = "🔔"
		}
		rows = append(rows, row(btn(mark+" "+t.Label(c.Lang()),
			router.Path("stg", "ntf", string(t)))))
	}
	return c.EditOrReply(tr(c.Lang(),
		"Language and notifications", "اللغة والإشعارات"), keyboard(rows...))
}

func (h *Handlers) stgLanguage(c *router.Context) error {
	lang := c.Params.Str("l")
	if err := c.Store.Users.SetLanguage(c.User.ID, lang); err != nil {
		return err
	}
	c.User.LanguageCode = lang
	// The command menu is localized too.
	if err := c.Bot.SetCommands(c.ChatID(), services.CommandsFor(c.Roles, lang)); err != nil {
		c.Log.Warn("failed to set commands")
	}
	return h.renderSettings(c)
}

func (h *Handlers) stgToggleNotification(c *router.Context) error {
	t := models.MaterialType(c.Params.Str("t"))
	key := models.NotificationKey(t)
	enabled, err := c.Store.Settings.GetBool(c.User.ID, key, true)
	if err != nil {
		return err
	}
	if err := c.Store.Settings.SetBool(c.User.ID, key, !enabled); err != nil {
		return err
	}
	return h.renderSettings(c)
}
