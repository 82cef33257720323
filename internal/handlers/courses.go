package handlers

import (
	"errors"
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/skulebot/core/internal/models"
	"github.com/skulebot/core/internal/repository"
	"github.com/skulebot/core/internal/router"
)

// Student material browsing lives under the crs prefix:
//
//	crs                  course list of the current enrollment
//	crs/<cid>            material types of a course
//	crs/<cid>/<type>     materials of one type, paginated
//	crs/<cid>/<type>/<mid>  deliver one material's files
//	crs/<cid>/<type>/all    deliver every material of the type
const coursesPageSize = 12

func (h *Handlers) registerCourses(d *router.Dispatcher) {
	d.Callback(
		router.On(`^crs/(?P<cid>\d+)/(?P<t>[a-z]+)/all$`, h.crsSendAll),
		router.On(`^crs/(?P<cid>\d+)/(?P<t>[a-z]+)/(?P<mid>\d+)$`, h.crsSend),
		router.On(`^crs/(?P<cid>\d+)/(?P<t>[a-z]+)(\?.*)?$`, h.crsMaterials),
		router.On(`^crs/(?P<cid>\d+)$`, h.crsTypes),
		router.On(`^crs$`, h.crsRoot),
	)
}

// currentEnrollment is the enrollment student screens operate in: the most
// recent one by academic year.
func currentEnrollment(c *router.Context) (*models.Enrollment, error) {
	e, err := c.Store.Enrollments.MostRecentUserEnrollment(c.User.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	return e, err
}

func (h *Handlers) coursesCommand(c *router.Context) error {
	return h.renderCourses(c)
}

func (h *Handlers) crsRoot(c *router.Context) error {
	return h.renderCourses(c)
}

func (h *Handlers) renderCourses(c *router.Context) error {
	e, err := currentEnrollment(c)
	if err != nil {
		return err
	}
	if e == nil {
		return c.EditOrReply(tr(c.Lang(),
			"You are not enrolled yet. Use /enrollments first.",
			"أنت غير مسجل بعد. استخدم /enrollments أولاً."), nil)
	}

	courses, err := c.Store.Courses.UserCourses(
		e.ProgramSemester.ProgramID, e.ProgramSemester.SemesterID, c.User.ID, c.Lang())
	if err != nil {
		return err
	}
	if len(courses) == 0 {
		return c.EditOrReply(tr(c.Lang(),
			"No courses here yet.", "لا توجد مواد هنا بعد."), nil)
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, course := range courses {
		rows = append(rows, row(btn(course.Name(c.Lang()), router.Path("crs", itoa(course.ID)))))
	}
	header := fmt.Sprintf("%s — %s",
		e.ProgramSemester.Program.Name(c.Lang()),
		semesterLabel(c.Lang(), e.ProgramSemester.Semester.Number))
	return c.EditOrReply(header, keyboard(rows...))
}

func (h *Handlers) crsTypes(c *router.Context) error {
	courseID := c.Params.Uint("cid")
	course, err := c.Store.Courses.Course(courseID)
	if errors.Is(err, repository.ErrNotFound) {
		return router.ErrStale
	}
	if err != nil {
		return err
	}
	e, err := currentEnrollment(c)
	if err != nil {
		return err
	}
	if e == nil {
		return router.ErrStale
	}

	present, err := c.Store.Materials.TypesPresent(courseID, e.AcademicYearID)
	if err != nil {
		return err
	}
	published := map[models.MaterialType]bool{}
	for _, t := range present {
		published[t] = true
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, t := range models.MaterialTypes {
		if !published[t] {
			continue
		}
		rows = append(rows, row(btn(t.Label(c.Lang()), router.Path(c.Data(), string(t)))))
	}
	if len(rows) == 0 {
		rows = append(rows, backRow(c.Lang(), c.Data(), `/\d+`))
		return c.EditOrReply(tr(c.Lang(),
			"Nothing published for this course yet.",
			"لم يُنشر شيء لهذه المادة بعد."), keyboard(rows...))
	}
	rows = append(rows, backRow(c.Lang(), c.Data(), `/\d+`))
	return c.EditOrReply(course.Name(c.Lang()), keyboard(rows...))
}

func (h *Handlers) crsMaterials(c *router.Context) error {
	courseID := c.Params.Uint("cid")
	t := models.MaterialType(c.Params.Str("t"))
	e, err := currentEnrollment(c)
	if err != nil {
		return err
	}
	if e == nil {
		return router.ErrStale
	}

	materials, err := listMaterials(c.Store, courseID, e.AcademicYearID, t, true)
	if err != nil {
		return err
	}

	path := router.Path("crs", itoa(courseID), string(t))
	pager := router.NewPager(materials, c.Params.Int(router.ParamPage), coursesPageSize)

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, m := range pager.Items {
		label := materialButtonLabel(&m, c.Lang())
		rows = append(rows, row(btn(label, router.Path(path, itoa(m.ID)))))
	}
	if len(materials) > 1 {
		rows = append(rows, row(btn(tr(c.Lang(), "Send all", "إرسال الكل"), router.Path(path, "all"))))
	}
	if nav := pagerRow(pager, path); len(nav) > 0 {
		rows = append(rows, nav)
	}
	rows = append(rows, backRow(c.Lang(), path, `/[a-z]+`))
	return c.EditOrReply(t.Label(c.Lang()), keyboard(rows...))
}

func (h *Handlers) crsSend(c *router.Context) error {
	m, err := c.Store.Materials.Material(c.Params.Uint("mid"))
	if errors.Is(err, repository.ErrNotFound) {
		return router.ErrStale
	}
	if err != nil {
		return err
	}
	if err := c.Answer(""); err != nil {
		return err
	}
	return sendMaterialFiles(c, m)
}

func (h *Handlers) crsSendAll(c *router.Context) error {
	courseID := c.Params.Uint("cid")
	t := models.MaterialType(c.Params.Str("t"))
	e, err := currentEnrollment(c)
	if err != nil {
		return err
	}
	if e == nil {
		return router.ErrStale
	}
	materials, err := listMaterials(c.Store, courseID, e.AcademicYearID, t, true)
	if err != nil {
		return err
	}
	if err := c.Answer(""); err != nil {
		return err
	}

	// Bracket the batch so a long run of files has a visible start and end.
	if err := c.Reply(fmt.Sprintf("⬇️ %s", t.Label(c.Lang())), nil); err != nil {
		return err
	}
	for i := range materials {
		if err := sendMaterialFiles(c, &materials[i]); err != nil {
			return err
		}
	}
	return c.Reply(tr(c.Lang(), "✅ That's everything.", "✅ هذا كل شيء."), nil)
}

// listMaterials picks the right repository listing for the type.
func listMaterials(store *repository.Store, courseID, yearID uint, t models.MaterialType, publishedOnly bool) ([]models.Material, error) {
	if t.SingleFile() {
		return store.Materials.SingleFileMaterials(courseID, yearID, t, publishedOnly)
	}
	return store.Materials.OfType(courseID, yearID, t, publishedOnly)
}

func materialButtonLabel(m *models.Material, lang string) string {
	switch {
	case m.Type.Numbered():
		return strconv.Itoa(m.Number)
	case m.Type == models.TypeReview:
		return m.Name(lang)
	case len(m.Files) > 0:
		return m.Files[0].Name
	default:
		return string(m.Type)
	}
}

func sendMaterialFiles(c *router.Context, m *models.Material) error {
	files, err := c.Store.Materials.MaterialFiles(m.ID)
	if err != nil {
		return err
	}
	for _, f := range files {
		if err := c.Bot.SendFile(c.ChatID(), f.Kind, f.TelegramID, f.Name); err != nil {
			c.Log.Warn("file delivery failed")
		}
	}
	return nil
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
