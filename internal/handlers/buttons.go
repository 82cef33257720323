package handlers

import (
	"math/rand"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/skulebot/core/internal/router"
)

func btn(label, data string) tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardButtonData(label, data)
}

func row(buttons ...tgbotapi.InlineKeyboardButton) []tgbotapi.InlineKeyboardButton {
	return buttons
}

func keyboard(rows ...[]tgbotapi.InlineKeyboardButton) *tgbotapi.InlineKeyboardMarkup {
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &kb
}

// backRow is the single back button most screens end with. pattern is the
// trailing part of the current data to strip.
func backRow(lang, data, pattern string) []tgbotapi.InlineKeyboardButton {
	return row(btn(backLabel(lang), router.Back(data, pattern)))
}

// confirmRow renders a yes/no pair in random order, so a destructive action
// cannot be confirmed by muscle memory.
func confirmRow(yesLabel, yesData, noLabel, noData string) []tgbotapi.InlineKeyboardButton {
	yes := btn(yesLabel, yesData)
	no := btn(noLabel, noData)
	if rand.Intn(2) == 0 {
		return row(yes, no)
	}
	return row(no, yes)
}

// pagerRow renders previous/next buttons for the page at hand, omitting
// whichever side has nothing beyond it.
func pagerRow[T any](p router.Pager[T], path string) []tgbotapi.InlineKeyboardButton {
	var buttons []tgbotapi.InlineKeyboardButton
	if p.HasPrevious() {
		buttons = append(buttons, btn("«", p.PreviousData(path)))
	}
	if p.HasNext() {
		buttons = append(buttons, btn("»", p.NextData(path)))
	}
	return buttons
}
