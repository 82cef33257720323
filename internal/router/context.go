package router

import (
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/skulebot/core/internal/models"
	"github.com/skulebot/core/internal/repository"
)

// Transport is the chat surface handlers talk to. *telegram.Bot implements
// it; tests substitute a recorder.
type Transport interface {
	Username() string
	SendMessage(chatID int64, text string, keyboard *tgbotapi.InlineKeyboardMarkup) (int, error)
	EditMessageText(chatID int64, messageID int, text string, keyboard *tgbotapi.InlineKeyboardMarkup) error
	DeleteMessage(chatID int64, messageID int) error
	AnswerCallback(callbackID, text string) error
	CopyMessage(toChatID, fromChatID int64, messageID int) (int, error)
	PinMessage(chatID int64, messageID int) error
	SendFile(chatID int64, kind, fileID, caption string) error
	ChatDisplayName(chatID int64) (string, error)
	SetCommands(chatID int64, commands []tgbotapi.BotCommand) error
}

// Scheduler runs named deferred jobs. *scheduler.Scheduler implements it.
type Scheduler interface {
	RunOnce(delay time.Duration, name string, job func())
	CancelByName(name string) bool
}

// Context carries everything one update's handler needs. The Store is bound
// to the interaction's transaction; nothing is cached across updates.
type Context struct {
	Update tgbotapi.Update
	Bot    Transport
	Store  *repository.Store
	Sched  Scheduler
	Log    *zap.Logger
	User   *models.User
	Roles  []models.Role
	Params Params
}

// Data returns the callback data of the pressed button, or "" for messages.
func (c *Context) Data() string {
	if c.Update.CallbackQuery != nil {
		return c.Update.CallbackQuery.Data
	}
	return ""
}

// Message returns the incoming message, following callback queries back to
// the message their keyboard is attached to.
func (c *Context) Message() *tgbotapi.Message {
	if c.Update.CallbackQuery != nil {
		return c.Update.CallbackQuery.Message
	}
	return c.Update.Message
}

// ChatID returns the chat the update came from.
func (c *Context) ChatID() int64 {
	if msg := c.Message(); msg != nil {
		return msg.Chat.ID
	}
	return c.User.ChatID
}

// Lang returns the user's interface language.
func (c *Context) Lang() string {
	return c.User.LanguageCode
}

// HasRole reports whether the interacting user holds the role.
func (c *Context) HasRole(role models.Role) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Reply sends a new message to the originating chat.
func (c *Context) Reply(text string, keyboard *tgbotapi.InlineKeyboardMarkup) error {
	_, err := c.Bot.SendMessage(c.ChatID(), text, keyboard)
	return err
}

// EditOrReply edits the message the pressed button belongs to, or sends a
// new message when the update is not a callback.
func (c *Context) EditOrReply(text string, keyboard *tgbotapi.InlineKeyboardMarkup) error {
	if c.Update.CallbackQuery != nil && c.Update.CallbackQuery.Message != nil {
		msg := c.Update.CallbackQuery.Message
		return c.Bot.EditMessageText(msg.Chat.ID, msg.MessageID, text, keyboard)
	}
	return c.Reply(text, keyboard)
}

// Answer acknowledges the callback query, silently when text is empty.
func (c *Context) Answer(text string) error {
	if c.Update.CallbackQuery == nil {
		return nil
	}
	return c.Bot.AnswerCallback(c.Update.CallbackQuery.ID, text)
}

// conversationKey scopes persisted conversation state to this user in this
// chat.
func (c *Context) conversationKey() string {
	return fmt.Sprintf("%d:%d", c.User.TelegramID, c.ChatID())
}

// SetState moves the named conversation to state for this user and chat.
func (c *Context) SetState(conversation, state string) error {
	return c.Store.States.SetConversationState(conversation, c.conversationKey(), state)
}

// State returns the named conversation's current state, "" when inactive.
func (c *Context) State(conversation string) (string, error) {
	return c.Store.States.ConversationState(conversation, c.conversationKey())
}

// EndConversation deactivates the named conversation for this user and chat.
func (c *Context) EndConversation(conversation string) error {
	return c.SetState(conversation, "")
}
