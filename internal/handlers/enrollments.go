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

// convAccessRequest is the conversation collecting an optional verification
// photo for an editor access request.
const convAccessRequest = "ayr"

func (h *Handlers) registerEnrollments(d *router.Dispatcher) {
	d.Callback(
		router.On(`^enr/add/go\?.*$`, h.enrCreate),
		router.On(`^enr/add(\?.*)?$`, h.enrAdd),
		router.On(`^enr/(?P<eid>\d+)/sm/(?P<psid>\d+)$`, h.enrChangeSemester),
		router.On(`^enr/(?P<eid>\d+)/sm$`, h.enrSemesterOptions),
		router.On(`^enr/(?P<eid>\d+)/delete(\?c=(?P<c>[01]))?$`, h.enrDelete),
		router.On(`^enr/(?P<eid>\d+)/op/(?P<pscid>\d+)$`, h.enrToggleOptional),
		router.On(`^enr/(?P<eid>\d+)/op$`, h.enrOptionalCourses),
		router.On(`^enr/(?P<eid>\d+)/acc/skip$`, h.enrAccessSkip),
		router.On(`^enr/(?P<eid>\d+)/acc$`, h.enrAccessStart),
		router.On(`^enr/(?P<eid>\d+)$`, h.enrDetail),
		router.On(`^enr$`, h.enrRoot),
	)
	d.Conversation(&router.Conversation{
		Name: convAccessRequest,
		States: map[string]router.State{
			"photo": {OnMessage: h.enrAccessPhoto},
		},
	})
}

func (h *Handlers) enrollmentsCommand(c *router.Context) error {
	return h.renderEnrollments(c)
}

func (h *Handlers) enrRoot(c *router.Context) error {
	return h.renderEnrollments(c)
}

func (h *Handlers) renderEnrollments(c *router.Context) error {
	enrollments, err := c.Store.Enrollments.UserEnrollments(c.User.ID)
	if err != nil {
		return err
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	enrolledYears := map[uint]bool{}
	for _, e := range enrollments {
		enrolledYears[e.AcademicYearID] = true
		label := fmt.Sprintf("%s · %s · %s",
			yearLabel(e.AcademicYear),
			e.ProgramSemester.Program.Name(c.Lang()),
			semesterLabel(c.Lang(), e.ProgramSemester.Semester.Number))
		rows = append(rows, row(btn(label, router.Path("enr", itoa(e.ID)))))
	}

	year, err := c.Store.Catalog.MostRecentAcademicYear()
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	if year != nil && !enrolledYears[year.ID] {
		rows = append(rows, row(btn(
			fmt.Sprintf(tr(c.Lang(), "➕ Enroll for %s", "➕ التسجيل لعام %s"), yearLabel(*year)),
			"enr/add")))
	}
	if len(rows) == 0 {
		return c.EditOrReply(tr(c.Lang(),
			"No academic years are open for enrollment yet.",
			"لا توجد أعوام دراسية متاحة للتسجيل بعد."), nil)
	}
	return c.EditOrReply(tr(c.Lang(), "Your enrollments", "تسجيلاتك"), keyboard(rows...))
}

// enrAdd walks the user to a (program, semester) pick, accumulating choices
// in the query: enr/add -> ?pr=<pid> -> pick semester.
func (h *Handlers) enrAdd(c *router.Context) error {
	year, err := c.Store.Catalog.MostRecentAcademicYear()
	if errors.Is(err, repository.ErrNotFound) {
		return router.ErrStale
	}
	if err != nil {
		return err
	}

	if !c.Params.Has("pr") {
		programs, err := c.Store.Catalog.Programs()
		if err != nil {
			return err
		}
		var rows [][]tgbotapi.InlineKeyboardButton
		for _, p := range programs {
			if !p.Active {
				continue
			}
			rows = append(rows, row(btn(p.Name(c.Lang()),
				fmt.Sprintf("enr/add?pr=%d", p.ID))))
		}
		rows = append(rows, backRow(c.Lang(), c.Data(), `/add`))
		return c.EditOrReply(tr(c.Lang(), "Pick your program", "اختر برنامجك"), keyboard(rows...))
	}

	// Initial enrollments start in the first half of a level, so only odd
	// semesters are offered.
	available := true
	links, err := c.Store.Catalog.ProgramSemesters(c.Params.Uint("pr"), &available, nil)
	if err != nil {
		return err
	}
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, link := range links {
		if link.Semester.Number%2 == 0 {
			continue
		}
		rows = append(rows, row(btn(semesterLabel(c.Lang(), link.Semester.Number),
			fmt.Sprintf("enr/add/go?y=%d&ps=%d", year.ID, link.ID))))
	}
	if len(rows) == 0 {
		return c.EditOrReply(tr(c.Lang(),
			"No semesters of this program are open for enrollment.",
			"لا توجد فصول متاحة للتسجيل في هذا البرنامج."),
			keyboard(backRow(c.Lang(), "enr/add", `/add`)))
	}
	rows = append(rows, row(btn(backLabel(c.Lang()), "enr/add")))
	return c.EditOrReply(tr(c.Lang(), "Pick your semester", "اختر فصلك الدراسي"), keyboard(rows...))
}

func (h *Handlers) enrCreate(c *router.Context) error {
	svc := services.NewEnrollmentService(c.Store)
	_, err := svc.Enroll(c.User.ID, c.Params.Uint("y"), c.Params.Uint("ps"))
	if errors.Is(err, repository.ErrDuplicateEnrollment) {
		if err := c.Answer(tr(c.Lang(),
			"You are already enrolled for this year.",
			"أنت مسجل بالفعل لهذا العام.")); err != nil {
			return err
		}
		return h.renderEnrollments(c)
	}
	if err != nil {
		return err
	}
	if err := c.Answer(tr(c.Lang(), "Enrolled!", "تم التسجيل!")); err != nil {
		return err
	}
	return h.renderEnrollments(c)
}

func userEnrollment(c *router.Context, id uint) (*models.Enrollment, error) {
	e, err := c.Store.Enrollments.Enrollment(id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, router.ErrStale
	}
	if err != nil {
		return nil, err
	}
	// Enrollment screens are private to their owner.
	if e.UserID != c.User.ID {
		return nil, router.ErrStale
	}
	return e, nil
}

func (h *Handlers) enrDetail(c *router.Context) error {
	e, err := userEnrollment(c, c.Params.Uint("eid"))
	if err != nil {
		return err
	}

	base := router.Path("enr", itoa(e.ID))
	rows := [][]tgbotapi.InlineKeyboardButton{
		row(btn(tr(c.Lang(), "Change semester", "تغيير الفصل"), router.Path(base, "sm"))),
	}

	hasOptional, err := c.Store.Courses.HasOptionalCourses(
		e.ProgramSemester.ProgramID, e.ProgramSemester.SemesterID)
	if err != nil {
		return err
	}
	if hasOptional {
		rows = append(rows, row(btn(tr(c.Lang(), "Optional courses", "المواد الاختيارية"),
			router.Path(base, "op"))))
	}

	switch status := accessStatus(e); status {
	case models.StatusPending:
		// Nothing to offer while the request is under review.
	case models.StatusGranted:
		// Editors lose the button; revocation is the admins' side.
	default:
		rows = append(rows, row(btn(tr(c.Lang(), "Request editor access", "طلب صلاحية محرر"),
			router.Path(base, "acc"))))
	}
	rows = append(rows,
		row(btn(tr(c.Lang(), "🗑 Delete", "🗑 حذف"), base+"/delete")),
		backRow(c.Lang(), base, `/\d+`))

	text := fmt.Sprintf("%s\n%s · %s",
		yearLabel(e.AcademicYear),
		e.ProgramSemester.Program.Name(c.Lang()),
		semesterLabel(c.Lang(), e.ProgramSemester.Semester.Number))
	if status := accessStatus(e); status != "" {
		text += "\n" + tr(c.Lang(), "Editor access: ", "صلاحية المحرر: ") + status
	}
	return c.EditOrReply(text, keyboard(rows...))
}

func accessStatus(e *models.Enrollment) string {
	if e.AccessRequest == nil {
		return ""
	}
	return e.AccessRequest.Status
}

// enrSemesterOptions offers the adjacent semester within the level; the
// model hook is the real gatekeeper.
func (h *Handlers) enrSemesterOptions(c *router.Context) error {
	e, err := userEnrollment(c, c.Params.Uint("eid"))
	if err != nil {
		return err
	}

	pairNumber := e.ProgramSemester.Semester.PairNumber()
	pair, err := c.Store.Catalog.SemesterByNumber(pairNumber)
	if errors.Is(err, repository.ErrNotFound) {
		return c.Answer(tr(c.Lang(), "No other semester to move to.", "لا يوجد فصل آخر."))
	}
	if err != nil {
		return err
	}
	link, err := c.Store.Catalog.ProgramSemesterFor(e.ProgramSemester.ProgramID, pair.ID)
	if err != nil {
		return err
	}
	if link == nil || !link.Available {
		return c.Answer(tr(c.Lang(),
			"The other semester isn't open yet.", "الفصل الآخر غير متاح بعد."))
	}

	base := router.Path("enr", itoa(e.ID))
	rows := [][]tgbotapi.InlineKeyboardButton{
		row(btn(semesterLabel(c.Lang(), pair.Number), router.Path(base, "sm", itoa(link.ID)))),
		backRow(c.Lang(), router.Path(base, "sm"), `/sm`),
	}
	return c.EditOrReply(tr(c.Lang(), "Move to:", "الانتقال إلى:"), keyboard(rows...))
}

func (h *Handlers) enrChangeSemester(c *router.Context) error {
	e, err := userEnrollment(c, c.Params.Uint("eid"))
	if err != nil {
		return err
	}
	svc := services.NewEnrollmentService(c.Store)
	err = svc.ChangeSemester(e.ID, c.Params.Uint("psid"))
	if errors.Is(err, models.ErrSemesterJump) || errors.Is(err, models.ErrProgramChange) {
		return c.Answer(tr(c.Lang(), "That move isn't allowed.", "هذا التغيير غير مسموح."))
	}
	if err != nil {
		return err
	}
	if err := c.Answer(tr(c.Lang(), "Semester updated.", "تم تحديث الفصل.")); err != nil {
		return err
	}
	return h.renderEnrollments(c)
}

// enrDelete asks twice before removing an enrollment: once plainly, then
// again naming what is lost.
func (h *Handlers) enrDelete(c *router.Context) error {
	e, err := userEnrollment(c, c.Params.Uint("eid"))
	if err != nil {
		return err
	}
	base := router.Path("enr", itoa(e.ID))

	switch {
	case !c.Params.Has("c"):
		kb := keyboard(
			confirmRow(tr(c.Lang(), "Yes", "نعم"), base+"/delete?c=0",
				tr(c.Lang(), "No", "لا"), base),
		)
		return c.EditOrReply(tr(c.Lang(),
			"Delete this enrollment?", "حذف هذا التسجيل؟"), kb)
	case c.Params.Str("c") == "0":
		kb := keyboard(
			confirmRow(tr(c.Lang(), "Yes, delete it", "نعم، احذفه"), base+"/delete?c=1",
				tr(c.Lang(), "Keep it", "الإبقاء عليه"), base),
		)
		return c.EditOrReply(tr(c.Lang(),
			"This also removes any editor access tied to it. Are you sure?",
			"سيُحذف معه أي صلاحية محرر مرتبطة به. هل أنت متأكد؟"), kb)
	}

	if err := c.Store.Enrollments.Delete(e.ID); err != nil {
		return err
	}
	if err := c.Answer(tr(c.Lang(), "Deleted.", "تم الحذف.")); err != nil {
		return err
	}
	return h.renderEnrollments(c)
}

func (h *Handlers) enrOptionalCourses(c *router.Context) error {
	e, err := userEnrollment(c, c.Params.Uint("eid"))
	if err != nil {
		return err
	}
	optional := true
	placements, err := c.Store.Courses.Placements(
		e.ProgramSemester.ProgramID, e.ProgramSemester.SemesterID, &optional)
	if err != nil {
		return err
	}

	base := router.Path("enr", itoa(e.ID))
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, p := range placements {
		optIn, err := c.Store.Courses.UserOptionalCourse(c.User.ID, p.ID)
		if err != nil {
			return err
		}
		mark := "⬜"
		if optIn != nil {
			mark = "✅"
		}
		rows = append(rows, row(btn(mark+" "+p.Course.Name(c.Lang()),
			router.Path(base, "op", itoa(p.ID)))))
	}
	rows = append(rows, backRow(c.Lang(), router.Path(base, "op"), `/op`))
	return c.EditOrReply(tr(c.Lang(),
		"Pick the optional courses you take", "اختر موادك الاختيارية"), keyboard(rows...))
}

func (h *Handlers) enrToggleOptional(c *router.Context) error {
	svc := services.NewEnrollmentService(c.Store)
	if _, err := svc.ToggleOptionalCourse(c.User.ID, c.Params.Uint("pscid")); err != nil {
		return err
	}
	return h.enrOptionalCourses(c)
}

func (h *Handlers) enrAccessStart(c *router.Context) error {
	e, err := userEnrollment(c, c.Params.Uint("eid"))
	if err != nil {
		return err
	}
	d, err := loadDraft(c)
	if err != nil {
		return err
	}
	d["access_enrollment"] = itoa(e.ID)
	if err := saveDraft(c, d); err != nil {
		return err
	}
	if err := c.SetState(convAccessRequest, "photo"); err != nil {
		return err
	}

	kb := keyboard(row(btn(tr(c.Lang(), "Skip", "تخطي"),
		router.Path("enr", itoa(e.ID), "acc", "skip"))))
	return c.EditOrReply(tr(c.Lang(),
		"Send a photo of your university ID to support the request, or skip.",
		"أرسل صورة من كارنيه الجامعة لدعم الطلب، أو تخطَّ هذه الخطوة."), kb)
}

func (h *Handlers) enrAccessPhoto(c *router.Context) error {
	msg := c.Update.Message
	if msg == nil || len(msg.Photo) == 0 {
		return c.Reply(tr(c.Lang(),
			"That wasn't a photo. Send one, or press Skip.",
			"هذه ليست صورة. أرسل صورة أو اضغط تخطي."), nil)
	}
	d, err := loadDraft(c)
	if err != nil {
		return err
	}
	eid := parseUint(d["access_enrollment"])
	if eid == 0 {
		return c.EndConversation(convAccessRequest)
	}

	// Largest photo size is last.
	photo := msg.Photo[len(msg.Photo)-1]
	file := &models.File{
		TelegramID: photo.FileID,
		Name:       "verification",
		Kind:       models.MediaPhoto,
		UploaderID: c.User.ID,
	}
	if err := c.Store.Materials.CreateFile(file); err != nil {
		return err
	}
	return h.submitAccessRequest(c, eid, &file.ID)
}

func (h *Handlers) enrAccessSkip(c *router.Context) error {
	if err := c.Answer(""); err != nil {
		return err
	}
	return h.submitAccessRequest(c, c.Params.Uint("eid"), nil)
}

func (h *Handlers) submitAccessRequest(c *router.Context, enrollmentID uint, fileID *uint) error {
	svc := services.NewEnrollmentService(c.Store)
	_, err := svc.RequestAccess(enrollmentID, fileID)
	if errors.Is(err, services.ErrRequestOpen) {
		return c.Reply(tr(c.Lang(),
			"You already have an open request.", "لديك طلب قائم بالفعل."), nil)
	}
	if err != nil {
		return err
	}
	if err := c.EndConversation(convAccessRequest); err != nil {
		return err
	}
	if err := clearDraft(c); err != nil {
		return err
	}
	h.notifyRoots(c, fmt.Sprintf("📨 New access request from user %d.", c.User.TelegramID))
	return c.Reply(tr(c.Lang(),
		"Request submitted. You'll hear back once it's reviewed.",
		"تم إرسال الطلب. ستصلك النتيجة بعد المراجعة."), nil)
}

// notifyRoots pings every configured admin, best effort.
func (h *Handlers) notifyRoots(c *router.Context, text string) {
	for _, id := range h.cfg.RootIDs {
		root, err := c.Store.Users.GetByTelegramID(id)
		if err != nil {
			continue
		}
		if _, err := c.Bot.SendMessage(root.ChatID, text, nil); err != nil {
			c.Log.Warn("failed to notify admin")
		}
	}
}

func parseUint(s string) uint {
	var n uint
	_, _ = fmt.Sscanf(s, "%d", &n)
	return n
}
