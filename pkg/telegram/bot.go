package telegram

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Bot wraps the Telegram API client. It is the only place that talks to the
// chat transport; everything above it treats message delivery as an opaque
// effect.
type Bot struct {
	api *tgbotapi.BotAPI
	log *zap.Logger
}

// NewBot connects to the Telegram API.
func NewBot(token string, log *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	api.Debug = false
	return &Bot{api: api, log: log}, nil
}

// Username returns the bot account's username.
func (b *Bot) Username() string {
	return b.api.Self.UserName
}

// SendMessage sends a text message, optionally with an inline keyboard.
// It returns the sent message id.
func (b *Bot) SendMessage(chatID int64, text string, keyboard *tgbotapi.InlineKeyboardMarkup) (int, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if keyboard != nil {
		msg.ReplyMarkup = keyboard
	}
	sent, err := b.api.Send(msg)
	if err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

// EditMessageText edits a previously sent message in place.
func (b *Bot) EditMessageText(chatID int64, messageID int, text string, keyboard *tgbotapi.InlineKeyboardMarkup) error {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = tgbotapi.ModeHTML
	if keyboard != nil {
		edit.ReplyMarkup = keyboard
	}
	_, err := b.api.Send(edit)
	return err
}

// DeleteMessage removes a message, used when a screen refers to an entity
// that no longer exists.
func (b *Bot) DeleteMessage(chatID int64, messageID int) error {
	_, err := b.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID))
	return err
}

// AnswerCallback acknowledges a button press, optionally with a toast text.
func (b *Bot) AnswerCallback(callbackID, text string) error {
	_, err := b.api.Request(tgbotapi.NewCallback(callbackID, text))
	return err
}

// CopyMessage re-delivers an existing message to another chat without
// re-uploading its content. Returns the new message id.
func (b *Bot) CopyMessage(toChatID, fromChatID int64, messageID int) (int, error) {
	sent, err := b.api.Send(tgbotapi.NewCopyMessage(toChatID, fromChatID, messageID))
	if err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

// PinMessage pins a message in a chat.
func (b *Bot) PinMessage(chatID int64, messageID int) error {
	_, err := b.api.Request(tgbotapi.PinChatMessageConfig{
		ChatID:              chatID,
		MessageID:           messageID,
		DisableNotification: true,
	})
	return err
}

// SendFile delivers a stored attachment by its transport file id. kind is
// one of the material media kinds.
func (b *Bot) SendFile(chatID int64, kind, fileID, caption string) error {
	file := tgbotapi.FileID(fileID)
	var msg tgbotapi.Chattable
	switch kind {
	case "photo":
		m := tgbotapi.NewPhoto(chatID, file)
		m.Caption = caption
		msg = m
	case "video":
		m := tgbotapi.NewVideo(chatID, file)
		m.Caption = caption
		msg = m
	case "voice":
		m := tgbotapi.NewVoice(chatID, file)
		m.Caption = caption
		msg = m
	default:
		m := tgbotapi.NewDocument(chatID, file)
		m.Caption = caption
		msg = m
	}
	_, err := b.api.Send(msg)
	return err
}

// ChatDisplayName returns a human identity for a chat: full name plus
// username when set.
func (b *Bot) ChatDisplayName(chatID int64) (string, error) {
	chat, err := b.api.GetChat(tgbotapi.ChatInfoConfig{
		ChatConfig: tgbotapi.ChatConfig{ChatID: chatID},
	})
	if err != nil {
		return "", err
	}
	name := chat.FirstName
	if chat.LastName != "" {
		name += " " + chat.LastName
	}
	if chat.UserName != "" {
		name += " @" + chat.UserName
	}
	return name, nil
}

// SetCommands sets the per-chat command menu.
func (b *Bot) SetCommands(chatID int64, commands []tgbotapi.BotCommand) error {
	scope := tgbotapi.NewBotCommandScopeChat(chatID)
	_, err := b.api.Request(tgbotapi.NewSetMyCommandsWithScope(scope, commands...))
	return err
}

// Updates returns the long-poll update channel used in development.
func (b *Bot) Updates() tgbotapi.UpdatesChannel {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 30
	return b.api.GetUpdatesChan(cfg)
}

// RunWebhook registers the webhook with Telegram and serves the push
// endpoint on the given port. Requests carrying the wrong secret token are
// rejected.
func (b *Bot) RunWebhook(webhookURL, secretToken string, port int, updates chan<- tgbotapi.Update) error {
	hook, err := tgbotapi.NewWebhook(webhookURL)
	if err != nil {
		return fmt.Errorf("failed to create webhook config: %w", err)
	}
	hook.SecretToken = secretToken
	if _, err := b.api.Request(hook); err != nil {
		return fmt.Errorf("failed to set webhook: %w", err)
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.POST("/webhook", func(c *gin.Context) {
		if c.GetHeader("X-Telegram-Bot-Api-Secret-Token") != secretToken {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		var update tgbotapi.Update
		if err := c.ShouldBindJSON(&update); err != nil {
			b.log.Warn("malformed webhook update", zap.Error(err))
			c.AbortWithStatus(http.StatusBadRequest)
			return
		}
		updates <- update
		c.Status(http.StatusOK)
	})

	b.log.Info("webhook listener starting", zap.Int("port", port))
	return router.Run(fmt.Sprintf(":%d", port))
}
