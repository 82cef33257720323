package services

import (
	"errors"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/skulebot/core/internal/models"
	"github.com/skulebot/core/internal/repository"
)

// Messages to different recipients are spaced out to stay under the
// transport's flood limits.
const fanOutStagger = 2 * time.Second

// Sender is the slice of the chat transport the fan-out needs.
type Sender interface {
	SendMessage(chatID int64, text string, keyboard *tgbotapi.InlineKeyboardMarkup) (int, error)
	CopyMessage(toChatID, fromChatID int64, messageID int) (int, error)
	PinMessage(chatID int64, messageID int) error
	SendFile(chatID int64, kind, fileID, caption string) error
}

// JobScheduler runs named deferred jobs; scheduling a name again replaces
// the earlier job, which is what makes re-publishing idempotent.
type JobScheduler interface {
	RunOnce(delay time.Duration, name string, job func())
	CancelByName(name string) bool
	FindByName(name string) bool
}

// NotifyService fans material notifications, broadcasts and deadline
// reminders out to enrolled users. Jobs fire after the publishing
// interaction's transaction is gone, so each job re-reads the database
// through its own store and silently skips entities deleted in between.
//
// Every batch is bracketed: the job enqueued first also announces the start
// of the run and the job enqueued last announces its end, so whoever
// triggered the fan-out can watch it begin and finish. The flags are fixed
// at enqueue time.
type NotifyService struct {
	db         *gorm.DB
	bot        Sender
	sched      JobScheduler
	reportChat int64
	log        *zap.Logger
}

// NewNotifyService wires the fan-out service. reportChat receives the
// deadline sweep brackets; zero disables them.
func NewNotifyService(db *gorm.DB, bot Sender, sched JobScheduler, reportChat int64, log *zap.Logger) *NotifyService {
	return &NotifyService{db: db, bot: bot, sched: sched, reportChat: reportChat, log: log}
}

func localize(lang, en, ar string) string {
	if lang == models.LangAR {
		return ar
	}
	return en
}

// Recipients resolves who a material is addressed to: users enrolled this
// academic year into a (program, semester) the course is placed in, where
// optional placements only count for users who opted in.
func (s *NotifyService) Recipients(store *repository.Store, m *models.Material) ([]models.User, error) {
	return s.recipients(store, m, false)
}

// ReminderRecipients widens the set to both semesters of each placement's
// level. Assignments stay due for the level pair as students move between
// its two semesters during the year, so reminders must reach the pair.
func (s *NotifyService) ReminderRecipients(store *repository.Store, m *models.Material) ([]models.User, error) {
	return s.recipients(store, m, true)
}

func (s *NotifyService) recipients(store *repository.Store, m *models.Material, levelPair bool) ([]models.User, error) {
	placements, err := store.Courses.CoursePlacements(m.CourseID)
	if err != nil {
		return nil, err
	}

	seen := map[uint]bool{}
	var recipients []models.User
	for i := range placements {
		placement := placements[i]
		linkIDs, err := s.placementLinks(store, &placement, levelPair)
		if err != nil {
			return nil, err
		}
		if len(linkIDs) == 0 {
			continue
		}
		users, err := store.Enrollments.EnrolledUsers(m.AcademicYearID, linkIDs)
		if err != nil {
			return nil, err
		}
		for _, u := range users {
			if seen[u.ID] {
				continue
			}
			if placement.Optional {
				optIn, err := store.Courses.UserOptionalCourse(u.ID, placement.ID)
				if err != nil {
					return nil, err
				}
				if optIn == nil {
					continue
				}
			}
			seen[u.ID] = true
			recipients = append(recipients, u)
		}
	}
	return recipients, nil
}

// placementLinks resolves the program-semester links a placement addresses:
// its own semester, plus the other semester of the level when levelPair is
// set.
func (s *NotifyService) placementLinks(store *repository.Store, placement *models.ProgramSemesterCourse, levelPair bool) ([]uint, error) {
	var ids []uint
	link, err := store.Catalog.ProgramSemesterFor(placement.ProgramID, placement.SemesterID)
	if err != nil {
		return nil, err
	}
	if link != nil {
		ids = append(ids, link.ID)
	}
	if !levelPair {
		return ids, nil
	}
	pair, err := store.Catalog.SemesterByNumber(placement.Semester.PairNumber())
	if errors.Is(err, repository.ErrNotFound) {
		return ids, nil
	}
	if err != nil {
		return nil, err
	}
	pairLink, err := store.Catalog.ProgramSemesterFor(placement.ProgramID, pair.ID)
	if err != nil {
		return nil, err
	}
	if pairLink != nil {
		ids = append(ids, pairLink.ID)
	}
	return ids, nil
}

// NotifyPublished schedules one delivery job per recipient of a freshly
// published material. Users who disabled notifications for the material's
// type are skipped. Publishing the same material again replaces any jobs
// still pending, so nobody is notified twice. The publisher's chat gets a
// started message from the first job and a done message from the last.
func (s *NotifyService) NotifyPublished(store *repository.Store, publisher *models.User, m *models.Material) error {
	recipients, err := s.Recipients(store, m)
	if err != nil {
		return err
	}

	var targets []models.User
	for _, u := range recipients {
		enabled, err := store.Settings.GetBool(u.ID, models.NotificationKey(m.Type), true)
		if err != nil {
			return err
		}
		if !enabled {
			continue
		}
		targets = append(targets, u)
	}

	for i, u := range targets {
		name := fmt.Sprintf("%d_NOTIFY_%d_M_%d", publisher.TelegramID, u.TelegramID, m.ID)
		chatID, lang, materialID := u.ChatID, u.LanguageCode, m.ID
		first, last := i == 0, i == len(targets)-1
		reportChat, reportLang := publisher.ChatID, publisher.LanguageCode
		s.sched.RunOnce(time.Duration(i)*fanOutStagger, name, func() {
			if first {
				s.report(reportChat, localize(reportLang,
					"Started sending notifications", "بدأ إرسال الإشعارات"))
			}
			s.deliverMaterial(chatID, lang, materialID)
			if last {
				s.report(reportChat, localize(reportLang,
					"Done sending notifications", "اكتمل إرسال الإشعارات"))
			}
		})
	}
	s.log.Info("notification fan-out scheduled",
		zap.Uint("material_id", m.ID), zap.Int("recipients", len(targets)))
	return nil
}

func (s *NotifyService) report(chatID int64, text string) {
	if chatID == 0 {
		return
	}
	if _, err := s.bot.SendMessage(chatID, text, nil); err != nil {
		s.log.Warn("fan-out report failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (s *NotifyService) deliverMaterial(chatID int64, lang string, materialID uint) {
	store := repository.NewStore(s.db)
	m, err := store.Materials.Material(materialID)
	if errors.Is(err, repository.ErrNotFound) {
		return
	}
	if err != nil {
		s.log.Warn("notification delivery failed", zap.Uint("material_id", materialID), zap.Error(err))
		return
	}

	header := fmt.Sprintf("📢 %s\n%s", m.Course.Name(lang), materialTitle(m, lang))
	if lang == models.LangAR {
		header = fmt.Sprintf("📢 %s\n%s جديد", m.Course.Name(lang), materialTitle(m, lang))
	}
	kb := showMoreKeyboard(lang, fmt.Sprintf("ntf/%s/%d", m.Type, m.ID))
	if _, err := s.bot.SendMessage(chatID, header, kb); err != nil {
		s.log.Warn("notification send failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

// showMoreKeyboard builds the single deep-link button the recipient expands
// a notification or reminder with.
func showMoreKeyboard(lang, data string) *tgbotapi.InlineKeyboardMarkup {
	kb := tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(localize(lang, "Show more", "عرض المزيد"), data)))
	return &kb
}

// Broadcast copies an authored announcement to every recipient, picking the
// message matching each recipient's language and falling back to whichever
// language was authored. pin also pins the copy. The author's chat gets the
// start and done brackets.
func (s *NotifyService) Broadcast(publisher *models.User, messageByLang map[string]int, recipients []models.User, pin bool) {
	fromChatID := publisher.ChatID
	if len(recipients) == 0 {
		s.report(fromChatID, localize(publisher.LanguageCode,
			"Done! No users to broadcast to", "تم! لا يوجد مستخدمون للبث"))
		return
	}

	for i, u := range recipients {
		messageID, ok := messageByLang[u.LanguageCode]
		if !ok {
			for _, id := range messageByLang {
				messageID = id
				break
			}
		}
		if messageID == 0 {
			continue
		}

		name := fmt.Sprintf("%d_BROADCAST_TO_%d", publisher.TelegramID, u.TelegramID)
		chatID, msgID := u.ChatID, messageID
		first, last := i == 0, i == len(recipients)-1
		reportLang := publisher.LanguageCode
		s.sched.RunOnce(time.Duration(i)*fanOutStagger, name, func() {
			if first {
				s.report(fromChatID, localize(reportLang,
					"Started broadcasting the message", "بدأ بث الإعلان"))
			}
			newID, err := s.bot.CopyMessage(chatID, fromChatID, msgID)
			if err != nil {
				s.log.Warn("broadcast delivery failed", zap.Int64("chat_id", chatID), zap.Error(err))
			} else if pin {
				if err := s.bot.PinMessage(chatID, newID); err != nil {
					s.log.Warn("broadcast pin failed", zap.Int64("chat_id", chatID), zap.Error(err))
				}
			}
			if last {
				s.report(fromChatID, localize(reportLang,
					"Done broadcasting the message", "اكتمل بث الإعلان"))
			}
		})
	}
	s.log.Info("broadcast fan-out scheduled", zap.Int("recipients", len(recipients)))
}

// ScheduleDeadlineReminders finds published assignments due between 36 and
// 48 hours from now and schedules a reminder per enrolled recipient of the
// placement's level pair. The sweep runs twice a day; the 12-hour
// overlap-free window split means each assignment is picked up by exactly
// one sweep. A reminder already pending under its name is left alone. The
// operations chat gets the sweep brackets.
func (s *NotifyService) ScheduleDeadlineReminders() {
	s.report(s.reportChat, "Started assignment deadline reminders")

	now := time.Now()
	store := repository.NewStore(s.db)
	assignments, err := store.Materials.UpcomingDeadlines(now.Add(36*time.Hour), now.Add(48*time.Hour))
	if err != nil {
		s.log.Error("deadline sweep failed", zap.Error(err))
		return
	}

	scheduled := 0
	var lastName string
	for _, m := range assignments {
		material := m
		recipients, err := s.ReminderRecipients(store, &material)
		if err != nil {
			s.log.Error("deadline sweep failed", zap.Uint("material_id", material.ID), zap.Error(err))
			continue
		}
		for _, u := range recipients {
			enabled, err := store.Settings.GetBool(u.ID, models.NotificationKey(models.TypeAssignment), true)
			if err != nil || !enabled {
				continue
			}
			name := fmt.Sprintf("REMIND_%d_%d", u.TelegramID, material.ID)
			if s.sched.FindByName(name) {
				continue
			}
			chatID, lang := u.ChatID, u.LanguageCode
			deadline := *material.Deadline
			course := material.Course.Name(u.LanguageCode)
			title := materialTitle(&material, u.LanguageCode)
			data := fmt.Sprintf("rmd/%s/%d", material.Type, material.ID)
			s.sched.RunOnce(time.Duration(scheduled)*fanOutStagger, name, func() {
				text := fmt.Sprintf("⏰ %s: %s is due %s.", course, title, deadline.Format("Mon 2 Jan 15:04"))
				if lang == models.LangAR {
					text = fmt.Sprintf("⏰ %s: موعد تسليم %s هو %s.", course, title, deadline.Format("Mon 2 Jan 15:04"))
				}
				if _, err := s.bot.SendMessage(chatID, text, showMoreKeyboard(lang, data)); err != nil {
					s.log.Warn("reminder send failed", zap.Int64("chat_id", chatID), zap.Error(err))
				}
			})
			scheduled++
			lastName = name
		}
	}

	if scheduled == 0 {
		s.report(s.reportChat, "Done! No reminders to send")
		return
	}
	// Close the bracket after the last reminder fires.
	doneDelay := time.Duration(scheduled) * fanOutStagger
	s.sched.RunOnce(doneDelay, lastName+"_DONE", func() {
		s.report(s.reportChat, "Done sending reminders")
	})
}

// materialTitle renders a material's display name: numbered types carry
// their sequence number, reviews their authored name, single-file types
// their file's name.
func materialTitle(m *models.Material, lang string) string {
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
