package handlers

import (
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/skulebot/core/internal/models"
	"github.com/skulebot/core/internal/repository"
	"github.com/skulebot/core/internal/router"
	"github.com/skulebot/core/internal/services"
)

func (h *Handlers) registerRequests(d *router.Dispatcher) {
	root := []models.Role{models.RoleRoot}
	d.Callback(
		router.Restricted(`^req/(?P<arid>\d+)/(?P<act>grant|reject|revoke)(\?c=1)?$`, h.reqDecide, root...),
		router.Restricted(`^req/(?P<arid>\d+)$`, h.reqDetail, root...),
		router.Restricted(`^req(\?s=(?P<s>pending|granted))?$`, h.reqList, root...),
	)
}

func (h *Handlers) requestsCommand(c *router.Context) error {
	return h.reqList(c)
}

func (h *Handlers) reqList(c *router.Context) error {
	status := c.Params.Str("s")
	if status == "" {
		status = models.StatusPending
	}
	requests, err := c.Store.Enrollments.AccessRequests(status)
	if err != nil {
		return err
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, ar := range requests {
		e := ar.Enrollment
		name, err := c.Bot.ChatDisplayName(e.User.ChatID)
		if err != nil {
			name = fmt.Sprintf("user %d", e.User.TelegramID)
		}
		label := fmt.Sprintf("%s · %s", name, e.ProgramSemester.Program.Name(c.Lang()))
		rows = append(rows, row(btn(label, router.Path("req", itoa(ar.ID)))))
	}

	other := models.StatusGranted
	otherLabel := tr(c.Lang(), "Granted", "الممنوحة")
	if status == models.StatusGranted {
		other = models.StatusPending
		otherLabel = tr(c.Lang(), "Pending", "المعلقة")
	}
	rows = append(rows, row(btn(otherLabel, "req?s="+other)))

	header := tr(c.Lang(), "Pending access requests", "طلبات الوصول المعلقة")
	if status == models.StatusGranted {
		header = tr(c.Lang(), "Granted access", "الصلاحيات الممنوحة")
	}
	if len(requests) == 0 {
		header += tr(c.Lang(), "\n(nothing here)", "\n(لا يوجد شيء هنا)")
	}
	return c.EditOrReply(header, keyboard(rows...))
}

func (h *Handlers) reqDetail(c *router.Context) error {
	ar, err := c.Store.Enrollments.AccessRequest(c.Params.Uint("arid"))
	if errors.Is(err, repository.ErrNotFound) {
		return router.ErrStale
	}
	if err != nil {
		return err
	}
	e := ar.Enrollment

	name, err := c.Bot.ChatDisplayName(e.User.ChatID)
	if err != nil {
		name = fmt.Sprintf("user %d", e.User.TelegramID)
	}
	text := fmt.Sprintf("%s\n%s · %s · %s\n%s: %s",
		name,
		yearLabel(e.AcademicYear),
		e.ProgramSemester.Program.Name(c.Lang()),
		semesterLabel(c.Lang(), e.ProgramSemester.Semester.Number),
		tr(c.Lang(), "Status", "الحالة"), ar.Status)

	if ar.VerificationFile != nil {
		if err := c.Bot.SendFile(c.ChatID(),
			ar.VerificationFile.Kind, ar.VerificationFile.TelegramID,
			tr(c.Lang(), "Verification", "إثبات الهوية")); err != nil {
			c.Log.Warn("failed to send verification file")
		}
	}

	base := router.Path("req", itoa(ar.ID))
	var rows [][]tgbotapi.InlineKeyboardButton
	switch ar.Status {
	case models.StatusPending:
		rows = append(rows, confirmRow(
			tr(c.Lang(), "✅ Grant", "✅ منح"), router.Path(base, "grant"),
			tr(c.Lang(), "❌ Reject", "❌ رفض"), router.Path(base, "reject")))
	case models.StatusGranted:
		rows = append(rows, row(btn(tr(c.Lang(), "🚫 Revoke", "🚫 سحب"), router.Path(base, "revoke"))))
	}
	rows = append(rows, backRow(c.Lang(), base, `/\d+`))
	return c.EditOrReply(text, keyboard(rows...))
}

// reqDecide records the decision, confirming revocations a second time
// since they strip a working editor of access.
func (h *Handlers) reqDecide(c *router.Context) error {
	ar, err := c.Store.Enrollments.AccessRequest(c.Params.Uint("arid"))
	if errors.Is(err, repository.ErrNotFound) {
		return router.ErrStale
	}
	if err != nil {
		return err
	}
	act := c.Params.Str("act")
	base, _ := splitQuery(c.Data())

	if act == "revoke" && !c.Params.Has("c") {
		kb := keyboard(confirmRow(
			tr(c.Lang(), "Yes, revoke", "نعم، اسحبها"), base+"?c=1",
			tr(c.Lang(), "Keep access", "الإبقاء عليها"), router.Back(base, `/revoke`)))
		return c.EditOrReply(tr(c.Lang(),
			"Revoke this editor's access?", "سحب صلاحية هذا المحرر؟"), kb)
	}

	svc := services.NewEnrollmentService(c.Store)
	var verdict string
	requester := ar.Enrollment.User
	switch act {
	case "revoke":
		// Revocation erases the request record; the enrollment can apply
		// again from scratch.
		if ar, err = svc.RevokeAccess(ar.ID); err != nil {
			return err
		}
		verdict = tr(requester.LanguageCode, "Your editor access was revoked.", "تم سحب صلاحية المحرر منك.")
	case "grant":
		if ar, err = svc.SetRequestStatus(ar.ID, models.StatusGranted); err != nil {
			return err
		}
		verdict = tr(requester.LanguageCode, "🎉 Your editor access was granted.", "🎉 تم منحك صلاحية المحرر.")
	default:
		if ar, err = svc.SetRequestStatus(ar.ID, models.StatusRejected); err != nil {
			return err
		}
		verdict = tr(requester.LanguageCode, "Your editor access request was declined.", "تم رفض طلب صلاحية المحرر.")
	}
	if _, err := c.Bot.SendMessage(requester.ChatID, verdict, nil); err != nil {
		c.Log.Warn("failed to notify requester")
	}

	if err := c.Answer(tr(c.Lang(), "Done.", "تم.")); err != nil {
		return err
	}
	return h.reqList(c)
}
