package handlers

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

	"github.com/skulebot/core/internal/config"
	"github.com/skulebot/core/internal/models"
	"github.com/skulebot/core/internal/router"
	"github.com/skulebot/core/internal/services"
)

// fakeBot is a Transport that remembers what handlers sent, including the
// callback data of every keyboard button.
type fakeBot struct {
	sent    []string
	edited  []string
	buttons []string
	answers []string
	files   []string
}

func (b *fakeBot) Username() string { return "testbot" }

func (b *fakeBot) record(kb *tgbotapi.InlineKeyboardMarkup) {
	if kb == nil {
		return
	}
	for _, r := range kb.InlineKeyboard {
		for _, button := range r {
			if button.CallbackData != nil {
				b.buttons = append(b.buttons, *button.CallbackData)
			}
		}
	}
}

func (b *fakeBot) SendMessage(chatID int64, text string, kb *tgbotapi.InlineKeyboardMarkup) (int, error) {
	b.sent = append(b.sent, fmt.Sprintf("%d:%s", chatID, text))
	b.record(kb)
	return len(b.sent), nil
}

func (b *fakeBot) EditMessageText(chatID int64, messageID int, text string, kb *tgbotapi.InlineKeyboardMarkup) error {
	b.edited = append(b.edited, text)
	b.record(kb)
	return nil
}

func (b *fakeBot) DeleteMessage(chatID int64, messageID int) error { return nil }

func (b *fakeBot) AnswerCallback(callbackID, text string) error {
	b.answers = append(b.answers, text)
	return nil
}

func (b *fakeBot) CopyMessage(toChatID, fromChatID int64, messageID int) (int, error) {
	return messageID, nil
}

func (b *fakeBot) PinMessage(chatID int64, messageID int) error { return nil }

func (b *fakeBot) SendFile(chatID int64, kind, fileID, caption string) error {
	b.files = append(b.files, fmt.Sprintf("%d:%s:%s", chatID, kind, fileID))
	return nil
}

func (b *fakeBot) ChatDisplayName(chatID int64) (string, error) { return "Test User", nil }

func (b *fakeBot) SetCommands(chatID int64, commands []tgbotapi.BotCommand) error { return nil }

type fakeSched struct{}

func (fakeSched) RunOnce(delay time.Duration, name string, job func()) {}

func (fakeSched) CancelByName(name string) bool { return false }

func (fakeSched) FindByName(name string) bool { return false }

func newHandlerTest(t *testing.T, rootIDs ...int64) (*router.Dispatcher, *fakeBot, *gorm.DB) {
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

	bot := &fakeBot{}
	sched := fakeSched{}
	notify := services.NewNotifyService(db, bot, sched, 0, zap.NewNop())
	h := New(&config.Config{RootIDs: rootIDs}, notify, nil)
	d := router.NewDispatcher(db, bot, sched, zap.NewNop(), rootIDs, 0)
	h.Register(d)
	return d, bot, db
}

// school is one program with a single course placed in semester 1.
type school struct {
	year      models.AcademicYear
	program   models.Program
	semester  models.Semester
	link      models.ProgramSemester
	course    models.Course
	placement models.ProgramSemesterCourse
}

func seedSchool(t *testing.T, db *gorm.DB) school {
	t.Helper()
	var s school

	s.year = models.AcademicYear{Start: 2024, End: 2025}
	require.NoError(t, db.Create(&s.year).Error)
	s.program = models.Program{EnName: "Dentistry", ArName: "طب الأسنان", Duration: 2, Active: true}
	require.NoError(t, db.Create(&s.program).Error)
	s.semester = models.Semester{Number: 1}
	require.NoError(t, db.Create(&s.semester).Error)
	s.link = models.ProgramSemester{ProgramID: s.program.ID, SemesterID: s.semester.ID, Available: true}
	require.NoError(t, db.Create(&s.link).Error)
	s.course = models.Course{EnName: "Anatomy", ArName: "التشريح"}
	require.NoError(t, db.Create(&s.course).Error)
	s.placement = models.ProgramSemesterCourse{
		ProgramID: s.program.ID, SemesterID: s.semester.ID, CourseID: s.course.ID,
	}
	require.NoError(t, db.Create(&s.placement).Error)
	return s
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

func commandUpdate(telegramID int64, command string) tgbotapi.Update {
	return tgbotapi.Update{
		Message: &tgbotapi.Message{
			From: &tgbotapi.User{ID: telegramID},
			Chat: &tgbotapi.Chat{ID: telegramID},
			Text: "/" + command,
			Entities: []tgbotapi.MessageEntity{
				{Type: "bot_command", Offset: 0, Length: len(command) + 1},
			},
		},
	}
}

func TestCourseUnlink(t *testing.T) {
	d, bot, db := newHandlerTest(t, 99)
	s := seedSchool(t, db)

	// The course screen offers the unlink entry point.
	d.HandleUpdate(callbackUpdate(99, fmt.Sprintf("ctm/cr/%d", s.course.ID)))
	assert.Contains(t, bot.buttons, fmt.Sprintf("ctm/cr/%d/ul", s.course.ID))

	d.HandleUpdate(callbackUpdate(99, fmt.Sprintf("ctm/cr/%d/ul", s.course.ID)))
	require.NotEmpty(t, bot.edited)
	assert.Contains(t, bot.buttons, fmt.Sprintf("ctm/cr/%d/ul/%d", s.course.ID, s.placement.ID))

	// First press asks, second press with the confirmation flag deletes.
	d.HandleUpdate(callbackUpdate(99, fmt.Sprintf("ctm/cr/%d/ul/%d", s.course.ID, s.placement.ID)))
	var count int64
	require.NoError(t, db.Model(&models.ProgramSemesterCourse{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	d.HandleUpdate(callbackUpdate(99, fmt.Sprintf("ctm/cr/%d/ul/%d?c=1", s.course.ID, s.placement.ID)))
	require.NoError(t, db.Model(&models.ProgramSemesterCourse{}).Count(&count).Error)
	assert.Zero(t, count)
	assert.Contains(t, bot.answers, "Unlinked.")

	// The course itself survives.
	require.NoError(t, db.Model(&models.Course{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestUpdateMaterialsCommand(t *testing.T) {
	d, bot, db := newHandlerTest(t)
	s := seedSchool(t, db)

	editor := models.User{TelegramID: 501, ChatID: 501}
	require.NoError(t, db.Create(&editor).Error)
	enroll := models.Enrollment{
		UserID: editor.ID, AcademicYearID: s.year.ID, ProgramSemesterID: s.link.ID,
	}
	require.NoError(t, db.Create(&enroll).Error)
	require.NoError(t, db.Create(&models.AccessRequest{
		EnrollmentID: enroll.ID, Status: models.StatusGranted,
	}).Error)

	d.HandleUpdate(commandUpdate(501, "updatematerials"))

	// Straight to the granted scope's course list, no picker in between.
	require.NotEmpty(t, bot.sent)
	last := bot.sent[len(bot.sent)-1]
	assert.Contains(t, last, "Dentistry")
	assert.Contains(t, bot.buttons,
		fmt.Sprintf("edt/%d/%d/c/%d", s.link.ID, s.year.ID, s.course.ID))
}

func TestUpdateMaterialsWithoutAccess(t *testing.T) {
	d, bot, db := newHandlerTest(t)
	seedSchool(t, db)

	// No granted request means no editor role, so the command is ignored
	// by the role gate.
	d.HandleUpdate(commandUpdate(502, "updatematerials"))
	assert.Empty(t, bot.sent)
}

func TestNotificationDeepLink(t *testing.T) {
	d, bot, db := newHandlerTest(t)
	s := seedSchool(t, db)

	m := models.Material{
		Type: models.TypeLecture, CourseID: s.course.ID, AcademicYearID: s.year.ID,
		Number: 3, Published: true,
	}
	require.NoError(t, db.Create(&m).Error)
	uploader := models.User{TelegramID: 900, ChatID: 900}
	require.NoError(t, db.Create(&uploader).Error)
	require.NoError(t, db.Create(&models.File{
		TelegramID: "DOC-l3", Name: "lecture3.pdf", Kind: models.MediaDocument,
		MaterialID: &m.ID, UploaderID: uploader.ID,
	}).Error)

	base := fmt.Sprintf("ntf/lecture/%d", m.ID)

	// Show more expands in place and offers the files.
	d.HandleUpdate(callbackUpdate(700, base))
	require.NotEmpty(t, bot.edited)
	assert.Contains(t, bot.edited[0], "Anatomy")
	assert.Contains(t, bot.edited[0], "Lecture 3")
	assert.Contains(t, bot.buttons, base+"/dl")
	assert.Contains(t, bot.buttons, base+"?x=1")

	d.HandleUpdate(callbackUpdate(700, base+"/dl"))
	assert.Equal(t, []string{"700:document:DOC-l3"}, bot.files)

	// Show less restores the announcement form.
	d.HandleUpdate(callbackUpdate(700, base+"?x=1"))
	require.Len(t, bot.edited, 2)
	assert.Contains(t, bot.edited[1], "📢 Anatomy")
	assert.Contains(t, bot.buttons, base)
}

func TestReminderDeepLinkShowsDeadline(t *testing.T) {
	d, bot, db := newHandlerTest(t)
	s := seedSchool(t, db)

	deadline := time.Now().Add(40 * time.Hour).Truncate(time.Minute)
	m := models.Material{
		Type: models.TypeAssignment, CourseID: s.course.ID, AcademicYearID: s.year.ID,
		Number: 1, Published: true, Deadline: &deadline,
	}
	require.NoError(t, db.Create(&m).Error)

	d.HandleUpdate(callbackUpdate(700, fmt.Sprintf("rmd/assignment/%d", m.ID)))

	require.NotEmpty(t, bot.edited)
	assert.Contains(t, bot.edited[0], "Assignment 1")
	assert.Contains(t, bot.edited[0], deadline.Format("Mon 2 Jan 15:04"))
}
