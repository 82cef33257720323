package handlers

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/skulebot/core/internal/models"
	"github.com/skulebot/core/internal/router"
)

const usersPageSize = 30

func (h *Handlers) registerUsers(d *router.Dispatcher) {
	d.Callback(
		router.Restricted(`^usr(\?.*)?$`, h.usrList, models.RoleRoot),
	)
}

func (h *Handlers) usersCommand(c *router.Context) error {
	return h.usrList(c)
}

// usrList renders one page of known users as text: the list is for reading,
// not navigation, so names aren't buttons.
func (h *Handlers) usrList(c *router.Context) error {
	total, err := c.Store.Users.Count()
	if err != nil {
		return err
	}
	offset := c.Params.Int(router.ParamPage)
	if offset < 0 || int64(offset) >= total {
		offset = 0
	}
	users, err := c.Store.Users.List(offset, usersPageSize)
	if err != nil {
		return err
	}

	text := fmt.Sprintf(tr(c.Lang(), "Users (%d total)\n", "المستخدمون (%d إجمالاً)\n"), total)
	for i, u := range users {
		name, err := c.Bot.ChatDisplayName(u.ChatID)
		if err != nil {
			name = fmt.Sprintf("id %d", u.TelegramID)
		}
		text += fmt.Sprintf("%d. %s\n", offset+i+1, name)
	}

	pager := router.NewPager(make([]struct{}, int(total)), offset, usersPageSize)
	var rows [][]tgbotapi.InlineKeyboardButton
	if nav := pagerRow(pager, "usr"); len(nav) > 0 {
		rows = append(rows, nav)
	}
	var kb *tgbotapi.InlineKeyboardMarkup
	if len(rows) > 0 {
		kb = keyboard(rows...)
	}
	return c.EditOrReply(text, kb)
}
