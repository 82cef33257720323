package router

import (
	"fmt"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/skulebot/core/internal/models"
)

// recorder is a Transport that remembers what the dispatcher sent.
type recorder struct {
	sent     []string
	answers  []string
	edited   []string
	deleted  []int
	sendErr  error
	messages int
}

func (r *recorder) Username() string { return "testbot" }

func (r *recorder) SendMessage(chatID int64, text string, kb *tgbotapi.InlineKeyboardMarkup) (int, error) {
	if r.sendErr != nil {
		return 0, r.sendErr
	}
	r.sent = append(r.sent, fmt.Sprintf("%d:%s", chatID, text))
	r.messages++
	return r.messages, nil
}

func (r *recorder) EditMessageText(chatID int64, messageID int, text string, kb *tgbotapi.InlineKeyboardMarkup) error {
	r.edited = append(r.edited, text)
	return nil
}

func (r *recorder) DeleteMessage(chatID int64, messageID int) error {
	r.deleted = append(r.deleted, messageID)
	return nil
}

func (r *recorder) AnswerCallback(callbackID, text string) error {
	r.answers = append(r.answers, text)
	return nil
}

func (r *recorder) CopyMessage(toChatID, fromChatID int64, messageID int) (int, error) {
	r.messages++
	return r.messages, nil
}

func (r *recorder) PinMessage(chatID int64, messageID int) error { return nil }

func (r *recorder) SendFile(chatID int64, kind, fileID, caption string) error { return nil }

func (r *recorder) ChatDisplayName(chatID int64) (string, error) { return "Test User", nil }
func (r *recorder) SetCommands(chatID int64, commands []tgbotapi.BotCommand) error {
	return nil
}

type noopScheduler struct{}

func (noopScheduler) RunOnce(delay time.Duration, name string, job func()) {}

func (noopScheduler) CancelByName(name string) bool { return false }

func newDispatcherTest(t *testing.T, rootIDs ...int64) (*Dispatcher, *recorder, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{}, &models.AcademicYear{}, &models.Semester{},
		&models.Program{}, &models.ProgramSemester{}, &models.Department{},
		&models.Course{}, &models.ProgramSemesterCourse{}, &models.Enrollment{},
		&models.AccessRequest{}, &models.UserOptionalCourse{}, &models.Material{},
		&models.File{}, &models.Setting{}, &models.ChatData{}, &models.UserData{},
		&models.Conversation{},
	))

	rec := &recorder{}
	d := NewDispatcher(db, rec, noopScheduler{}, zap.NewNop(), rootIDs, 0)
	return d, rec, db
}

func callbackUpdate(telegramID int64, data string) tgbotapi.Update {
	return tgbotapi.Update{
		CallbackQuery: &tgbotapi.CallbackQuery{
			ID:   "cb",
			From: &tgbotapi.User{ID: telegramID},
			Message: &tgbotapi.Message{
				MessageID: 7,
				Chat:      &tgbotapi.Chat{ID: telegramID},
			},
			Data: data,
		},
	}
}

func messageUpdate(telegramID int64, text string) tgbotapi.Update {
	return tgbotapi.Update{
		Message: &tgbotapi.Message{
			From: &tgbotapi.User{ID: telegramID},
			Chat: &tgbotapi.Chat{ID: telegramID},
			Text: text,
		},
	}
}

func commandUpdate(telegramID int64, command string) tgbotapi.Update {
	u := messageUpdate(telegramID, "/"+command)
	u.Message.Entities = []tgbotapi.MessageEntity{
		{Type: "bot_command", Offset: 0, Length: len(command) + 1},
	}
	return u
}

func TestDispatcherRegistersUnknownUser(t *testing.T) {
	d, _, db := newDispatcherTest(t)
	var seen *models.User
	d.DefaultMessage(func(c *Context) error {
		seen = c.User
		return nil
	})

	d.HandleUpdate(messageUpdate(42, "hello"))

	require.NotNil(t, seen)
	assert.EqualValues(t, 42, seen.TelegramID)
	assert.Equal(t, models.LangEN, seen.LanguageCode)

	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	// The next update finds the same row.
	d.HandleUpdate(messageUpdate(42, "again"))
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestDispatcherFirstMatchWins(t *testing.T) {
	d, _, _ := newDispatcherTest(t)
	var hit string
	d.Callback(
		On(`^crs/all$`, func(c *Context) error { hit = "all"; return nil }),
		On(`^crs/(?P<cid>\d+)$`, func(c *Context) error {
			hit = "course " + c.Params.Str("cid")
			return nil
		}),
		On(`^crs`, func(c *Context) error { hit = "root"; return nil }),
	)

	d.HandleUpdate(callbackUpdate(42, "crs/all"))
	assert.Equal(t, "all", hit)

	d.HandleUpdate(callbackUpdate(42, "crs/12"))
	assert.Equal(t, "course 12", hit)

	d.HandleUpdate(callbackUpdate(42, "crs"))
	assert.Equal(t, "root", hit)
}

func TestDispatcherRoleGate(t *testing.T) {
	d, rec, _ := newDispatcherTest(t, 99)
	var hits int
	d.Callback(Restricted(`^req$`, func(c *Context) error {
		hits++
		return nil
	}, models.RoleRoot))

	// A plain user is acknowledged silently and the handler never runs.
	d.HandleUpdate(callbackUpdate(42, "req"))
	assert.Zero(t, hits)
	assert.Equal(t, []string{""}, rec.answers)

	// The configured root passes.
	d.HandleUpdate(callbackUpdate(99, "req"))
	assert.Equal(t, 1, hits)
}

func TestDispatcherStaleCallback(t *testing.T) {
	d, rec, _ := newDispatcherTest(t)
	d.Callback(On(`^enr/\d+$`, func(c *Context) error {
		return ErrStale
	}))

	d.HandleUpdate(callbackUpdate(42, "enr/404"))

	assert.Equal(t, []int{7}, rec.deleted)
	assert.Equal(t, []string{""}, rec.answers)
	assert.Empty(t, rec.sent)
}

func TestDispatcherUnroutableCallback(t *testing.T) {
	d, rec, _ := newDispatcherTest(t)

	d.HandleUpdate(callbackUpdate(42, "old/keyboard/data"))

	assert.Equal(t, []string{""}, rec.answers)
	assert.Empty(t, rec.sent)
}

func TestDispatcherConversationFlow(t *testing.T) {
	d, _, _ := newDispatcherTest(t)

	var got []string
	d.Conversation(&Conversation{
		Name: "ayr",
		States: map[string]State{
			"photo": {
				OnMessage: func(c *Context) error {
					got = append(got, "photo:"+c.Update.Message.Text)
					return c.EndConversation("ayr")
				},
			},
		},
	})
	d.Callback(On(`^enr/ar$`, func(c *Context) error {
		return c.SetState("ayr", "photo")
	}))
	d.DefaultMessage(func(c *Context) error {
		got = append(got, "default:"+c.Update.Message.Text)
		return nil
	})

	// Messages fall through before the flow starts.
	d.HandleUpdate(messageUpdate(42, "early"))
	// Entering the flow claims the next message, which ends it.
	d.HandleUpdate(callbackUpdate(42, "enr/ar"))
	d.HandleUpdate(messageUpdate(42, "proof"))
	d.HandleUpdate(messageUpdate(42, "late"))

	assert.Equal(t, []string{"default:early", "photo:proof", "default:late"}, got)
}

func TestDispatcherCommandEndsConversations(t *testing.T) {
	d, _, _ := newDispatcherTest(t)

	var claimed bool
	d.Conversation(&Conversation{
		Name: "mat",
		States: map[string]State{
			"upload": {
				OnMessage: func(c *Context) error {
					claimed = true
					return nil
				},
			},
		},
	})
	d.Callback(On(`^edt/up$`, func(c *Context) error {
		return c.SetState("mat", "upload")
	}))
	var started bool
	d.Command("start", func(c *Context) error {
		started = true
		return nil
	})

	d.HandleUpdate(callbackUpdate(42, "edt/up"))
	d.HandleUpdate(commandUpdate(42, "start"))
	d.HandleUpdate(messageUpdate(42, "stray"))

	assert.True(t, started)
	assert.False(t, claimed)
}

func TestDispatcherReportsFailure(t *testing.T) {
	d, rec, _ := newDispatcherTest(t)
	d.errorChat = 777
	d.Callback(On(`^boom$`, func(c *Context) error {
		return fmt.Errorf("kaput")
	}))

	d.HandleUpdate(callbackUpdate(42, "boom"))

	assert.Equal(t, []string{"Something went wrong."}, rec.answers)
	require.Len(t, rec.sent, 1)
	assert.Contains(t, rec.sent[0], "777:")
	assert.Contains(t, rec.sent[0], "kaput")
}

func TestDispatcherIgnoresBots(t *testing.T) {
	d, rec, db := newDispatcherTest(t)

	u := messageUpdate(42, "hi")
	u.Message.From.IsBot = true
	d.HandleUpdate(u)

	assert.Empty(t, rec.sent)
	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	assert.Zero(t, count)
}
