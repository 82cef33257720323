package handlers

import (
	"errors"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/skulebot/core/internal/models"
	"github.com/skulebot/core/internal/repository"
	"github.com/skulebot/core/internal/router"
	"github.com/skulebot/core/internal/services"
)

// convMaterial collects the typed and uploaded pieces of material editing:
// file uploads, review names and dates, assignment deadlines.
const convMaterial = "mat"

// Editor screens live under edt/<program-semester>/<year>; both the
// editor's own contexts and the root catalog picker resolve to that pair.
func (h *Handlers) registerEditor(d *router.Dispatcher) {
	editor := []models.Role{models.RoleEditor}
	d.Callback(
		router.Restricted(`^edt/(?P<psid>\d+)/(?P<yid>\d+)/c/(?P<cid>\d+)/(?P<t>[a-z]+)/m/(?P<mid>\d+)/fl/(?P<fid>\d+)(\?c=(?P<c>[01]))?$`, h.edtDeleteFile, editor...),
		router.Restricted(`^edt/(?P<psid>\d+)/(?P<yid>\d+)/c/(?P<cid>\d+)/(?P<t>[a-z]+)/m/(?P<mid>\d+)/fl$`, h.edtFiles, editor...),
		router.Restricted(`^edt/(?P<psid>\d+)/(?P<yid>\d+)/c/(?P<cid>\d+)/(?P<t>[a-z]+)/m/(?P<mid>\d+)/upload$`, h.edtUploadStart, editor...),
		router.Restricted(`^edt/(?P<psid>\d+)/(?P<yid>\d+)/c/(?P<cid>\d+)/(?P<t>[a-z]+)/m/(?P<mid>\d+)/publish(\?c=(?P<c>[01]))?$`, h.edtPublish, editor...),
		router.Restricted(`^edt/(?P<psid>\d+)/(?P<yid>\d+)/c/(?P<cid>\d+)/(?P<t>[a-z]+)/m/(?P<mid>\d+)/deadline$`, h.edtDeadlineStart, editor...),
		router.Restricted(`^edt/(?P<psid>\d+)/(?P<yid>\d+)/c/(?P<cid>\d+)/(?P<t>[a-z]+)/m/(?P<mid>\d+)/delete(\?c=(?P<c>[01]))?$`, h.edtDeleteMaterial, editor...),
		router.Restricted(`^edt/(?P<psid>\d+)/(?P<yid>\d+)/c/(?P<cid>\d+)/(?P<t>[a-z]+)/m/(?P<mid>\d+)/send$`, h.edtSendMaterial, editor...),
		router.Restricted(`^edt/(?P<psid>\d+)/(?P<yid>\d+)/c/(?P<cid>\d+)/(?P<t>[a-z]+)/m/(?P<mid>\d+)$`, h.edtMaterial, editor...),
		router.Restricted(`^edt/(?P<psid>\d+)/(?P<yid>\d+)/c/(?P<cid>\d+)/(?P<t>[a-z]+)/add$`, h.edtAdd, editor...),
		router.Restricted(`^edt/(?P<psid>\d+)/(?P<yid>\d+)/c/(?P<cid>\d+)/(?P<t>[a-z]+)(\?.*)?$`, h.edtMaterials, editor...),
		router.Restricted(`^edt/(?P<psid>\d+)/(?P<yid>\d+)/c/(?P<cid>\d+)$`, h.edtTypes, editor...),
		router.Restricted(`^edt/(?P<psid>\d+)/(?P<yid>\d+)$`, h.edtCourses, editor...),
		router.Restricted(`^edt/pick(\?.*)?$`, h.edtPick, models.RoleRoot),
		router.Restricted(`^edt$`, h.edtRoot, editor...),
	)
	d.Conversation(&router.Conversation{
		Name: convMaterial,
		States: map[string]router.State{
			"upload":      {OnMessage: h.matUpload},
			"single":      {OnMessage: h.matSingleUpload},
			"review_en":   {OnMessage: h.matReviewEn},
			"review_ar":   {OnMessage: h.matReviewAr},
			"review_date": {OnMessage: h.matReviewDate},
			"deadline":    {OnMessage: h.matDeadline},
		},
	})
}

func (h *Handlers) editorCommand(c *router.Context) error {
	return h.renderEditorRoot(c)
}

func (h *Handlers) edtRoot(c *router.Context) error {
	return h.renderEditorRoot(c)
}

func (h *Handlers) renderEditorRoot(c *router.Context) error {
	granted, err := c.Store.Enrollments.UserAccessRequests(c.User.ID, models.StatusGranted)
	if err != nil {
		return err
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, ar := range granted {
		e := ar.Enrollment
		label := fmt.Sprintf("%s · %s",
			e.ProgramSemester.Program.Name(c.Lang()),
			semesterLabel(c.Lang(), e.ProgramSemester.Semester.Number))
		rows = append(rows, row(btn(label,
			router.Path("edt", itoa(e.ProgramSemesterID), itoa(e.AcademicYearID)))))
	}
	if c.HasRole(models.RoleRoot) {
		rows = append(rows, row(btn(tr(c.Lang(), "Browse the catalog", "تصفح الدليل"), "edt/pick")))
	}
	if len(rows) == 0 {
		return c.EditOrReply(tr(c.Lang(),
			"You have no editor access. Request it from /enrollments.",
			"ليست لديك صلاحية محرر. اطلبها من /enrollments."), nil)
	}
	return c.EditOrReply(tr(c.Lang(), "Where do you want to edit?", "أين تريد التحرير؟"), keyboard(rows...))
}

// edtPick lets an admin reach any (program, semester) of the current year.
func (h *Handlers) edtPick(c *router.Context) error {
	year, err := c.Store.Catalog.MostRecentAcademicYear()
	if errors.Is(err, repository.ErrNotFound) {
		return c.Answer(tr(c.Lang(), "No academic year exists yet.", "لا يوجد عام دراسي بعد."))
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
			rows = append(rows, row(btn(p.Name(c.Lang()),
				fmt.Sprintf("edt/pick?pr=%d", p.ID))))
		}
		rows = append(rows, backRow(c.Lang(), c.Data(), `/pick`))
		return c.EditOrReply(tr(c.Lang(), "Pick a program", "اختر برنامجاً"), keyboard(rows...))
	}

	links, err := c.Store.Catalog.ProgramSemesters(c.Params.Uint("pr"), nil, nil)
	if err != nil {
		return err
	}
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, link := range links {
		rows = append(rows, row(btn(semesterLabel(c.Lang(), link.Semester.Number),
			router.Path("edt", itoa(link.ID), itoa(year.ID)))))
	}
	rows = append(rows, row(btn(backLabel(c.Lang()), "edt/pick")))
	return c.EditOrReply(tr(c.Lang(), "Pick a semester", "اختر فصلاً"), keyboard(rows...))
}

// editorScope loads the (program-semester, year) pair the current editor
// screen operates in.
func editorScope(c *router.Context) (*models.ProgramSemester, *models.AcademicYear, string, error) {
	ps, err := c.Store.Catalog.ProgramSemester(c.Params.Uint("psid"))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil, "", router.ErrStale
	}
	if err != nil {
		return nil, nil, "", err
	}
	year, err := c.Store.Catalog.AcademicYear(c.Params.Uint("yid"))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil, "", router.ErrStale
	}
	if err != nil {
		return nil, nil, "", err
	}
	return ps, year, router.Path("edt", itoa(ps.ID), itoa(year.ID)), nil
}

func (h *Handlers) edtCourses(c *router.Context) error {
	ps, year, _, err := editorScope(c)
	if err != nil {
		return err
	}
	return h.renderEditorCourses(c, ps, year)
}

// updateMaterialsCommand jumps an editor straight into the course list of
// their most recently granted scope, skipping the scope picker.
func (h *Handlers) updateMaterialsCommand(c *router.Context) error {
	granted, err := c.Store.Enrollments.UserAccessRequests(c.User.ID, models.StatusGranted)
	if err != nil {
		return err
	}
	if len(granted) == 0 {
		return c.EditOrReply(tr(c.Lang(),
			"You have no editor access. Request it from /enrollments.",
			"ليست لديك صلاحية محرر. اطلبها من /enrollments."), nil)
	}
	e := granted[0].Enrollment
	ps, err := c.Store.Catalog.ProgramSemester(e.ProgramSemesterID)
	if err != nil {
		return err
	}
	year, err := c.Store.Catalog.AcademicYear(e.AcademicYearID)
	if err != nil {
		return err
	}
	return h.renderEditorCourses(c, ps, year)
}

func (h *Handlers) renderEditorCourses(c *router.Context, ps *models.ProgramSemester, year *models.AcademicYear) error {
	base := router.Path("edt", itoa(ps.ID), itoa(year.ID))
	placements, err := c.Store.Courses.Placements(ps.ProgramID, ps.SemesterID, nil)
	if err != nil {
		return err
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, p := range placements {
		rows = append(rows, row(btn(p.Course.Name(c.Lang()),
			router.Path(base, "c", itoa(p.CourseID)))))
	}
	rows = append(rows, row(btn(backLabel(c.Lang()), "edt")))
	header := fmt.Sprintf("%s · %s · %s",
		ps.Program.Name(c.Lang()),
		semesterLabel(c.Lang(), ps.Semester.Number),
		yearLabel(*year))
	return c.EditOrReply(header, keyboard(rows...))
}

func (h *Handlers) edtTypes(c *router.Context) error {
	_, _, base, err := editorScope(c)
	if err != nil {
		return err
	}
	course, err := c.Store.Courses.Course(c.Params.Uint("cid"))
	if errors.Is(err, repository.ErrNotFound) {
		return router.ErrStale
	}
	if err != nil {
		return err
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, t := range models.MaterialTypes {
		rows = append(rows, row(btn(t.Label(c.Lang()),
			router.Path(base, "c", itoa(course.ID), string(t)))))
	}
	rows = append(rows, backRow(c.Lang(), router.Path(base, "c", itoa(course.ID)), `/c/\d+`))
	return c.EditOrReply(course.Name(c.Lang()), keyboard(rows...))
}

func (h *Handlers) edtMaterials(c *router.Context) error {
	_, year, base, err := editorScope(c)
	if err != nil {
		return err
	}
	courseID := c.Params.Uint("cid")
	t := models.MaterialType(c.Params.Str("t"))

	materials, err := listMaterials(c.Store, courseID, year.ID, t, false)
	if err != nil {
		return err
	}

	path := router.Path(base, "c", itoa(courseID), string(t))
	pager := router.NewPager(materials, c.Params.Int(router.ParamPage), coursesPageSize)

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, m := range pager.Items {
		label := materialButtonLabel(&m, c.Lang())
		if !m.Published {
			label = "🔒 " + label
		}
		rows = append(rows, row(btn(label, router.Path(path, "m", itoa(m.ID)))))
	}
	rows = append(rows, row(btn(tr(c.Lang(), "➕ Add", "➕ إضافة"), router.Path(path, "add"))))
	if nav := pagerRow(pager, path); len(nav) > 0 {
		rows = append(rows, nav)
	}
	rows = append(rows, backRow(c.Lang(), path, `/[a-z]+`))
	return c.EditOrReply(t.Label(c.Lang()), keyboard(rows...))
}

// edtAdd branches per variant: numbered materials are created right away,
// single-file ones wait for their file, reviews start a naming dialog.
func (h *Handlers) edtAdd(c *router.Context) error {
	_, year, base, err := editorScope(c)
	if err != nil {
		return err
	}
	courseID := c.Params.Uint("cid")
	t := models.MaterialType(c.Params.Str("t"))
	path := router.Path(base, "c", itoa(courseID), string(t))

	if t.Numbered() {
		svc := services.NewMaterialService(c.Store)
		m, err := svc.CreateNumbered(courseID, year.ID, t, nil)
		if err != nil {
			return err
		}
		return h.renderMaterial(c, m, router.Path(path, "m", itoa(m.ID)))
	}

	d, err := loadDraft(c)
	if err != nil {
		return err
	}
	d["mat_path"] = path
	d["mat_course"] = itoa(courseID)
	d["mat_year"] = itoa(year.ID)
	d["mat_type"] = string(t)
	if err := saveDraft(c, d); err != nil {
		return err
	}

	if t == models.TypeReview {
		if err := c.SetState(convMaterial, "review_en"); err != nil {
			return err
		}
		return c.EditOrReply(tr(c.Lang(),
			"Send the review's English name.", "أرسل اسم المراجعة بالإنجليزية."), nil)
	}
	if err := c.SetState(convMaterial, "single"); err != nil {
		return err
	}
	return c.EditOrReply(tr(c.Lang(),
		"Send the file as a document.", "أرسل الملف كمستند."), nil)
}

func loadMaterial(c *router.Context) (*models.Material, error) {
	m, err := c.Store.Materials.Material(c.Params.Uint("mid"))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, router.ErrStale
	}
	return m, err
}

func (h *Handlers) edtMaterial(c *router.Context) error {
	m, err := loadMaterial(c)
	if err != nil {
		return err
	}
	base, _ := splitQuery(c.Data())
	return h.renderMaterial(c, m, base)
}

func (h *Handlers) renderMaterial(c *router.Context, m *models.Material, base string) error {
	status := tr(c.Lang(), "draft", "مسودة")
	if m.Published {
		status = tr(c.Lang(), "published", "منشور")
	}
	text := fmt.Sprintf("%s\n%s · %d %s",
		materialTitleLine(m, c.Lang()), status, len(m.Files),
		tr(c.Lang(), "file(s)", "ملف/ملفات"))
	if m.Deadline != nil {
		text += "\n⏰ " + m.Deadline.Format("Mon 2 Jan 15:04")
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	if len(m.Files) > 0 {
		rows = append(rows,
			row(btn(tr(c.Lang(), "Preview files", "معاينة الملفات"), router.Path(base, "send"))),
			row(btn(tr(c.Lang(), "Manage files", "إدارة الملفات"), router.Path(base, "fl"))),
		)
	}
	if !m.Type.SingleFile() || len(m.Files) == 0 {
		rows = append(rows, row(btn(tr(c.Lang(), "Add file", "إضافة ملف"), router.Path(base, "upload"))))
	}
	if m.Type == models.TypeAssignment {
		rows = append(rows, row(btn(tr(c.Lang(), "Set deadline", "تحديد الموعد"), router.Path(base, "deadline"))))
	}
	if !m.Published {
		rows = append(rows, row(btn(tr(c.Lang(), "📣 Publish", "📣 نشر"), base+"/publish")))
	}
	rows = append(rows,
		row(btn(tr(c.Lang(), "🗑 Delete", "🗑 حذف"), base+"/delete")),
		backRow(c.Lang(), base, `/m/\d+`))
	return c.EditOrReply(text, keyboard(rows...))
}

func materialTitleLine(m *models.Material, lang string) string {
	switch {
	case m.Type.Numbered():
		return fmt.Sprintf("%s %d", m.Type.Label(lang), m.Number)
	case m.Type == models.TypeReview:
		return fmt.Sprintf("%s — %s", m.Type.Label(lang), m.Name(lang))
	default:
		return m.Type.Label(lang)
	}
}

func (h *Handlers) edtSendMaterial(c *router.Context) error {
	m, err := loadMaterial(c)
	if err != nil {
		return err
	}
	if err := c.Answer(""); err != nil {
		return err
	}
	return sendMaterialFiles(c, m)
}

func (h *Handlers) edtUploadStart(c *router.Context) error {
	m, err := loadMaterial(c)
	if err != nil {
		return err
	}
	base, _ := splitQuery(c.Data())
	d, err := loadDraft(c)
	if err != nil {
		return err
	}
	d["mat_material"] = itoa(m.ID)
	d["mat_path"] = router.Back(base, `/upload`)
	if err := saveDraft(c, d); err != nil {
		return err
	}
	if err := c.SetState(convMaterial, "upload"); err != nil {
		return err
	}
	kinds := ""
	for i, k := range m.Type.MediaKinds() {
		if i > 0 {
			kinds += ", "
		}
		kinds += k
	}
	return c.EditOrReply(fmt.Sprintf(tr(c.Lang(),
		"Send the file (%s).", "أرسل الملف (%s)."), kinds), nil)
}

// fileFromMessage maps an uploaded message to a File row, nil when the
// message carries no supported media.
func fileFromMessage(c *router.Context) *models.File {
	msg := c.Update.Message
	switch {
	case msg.Document != nil:
		return &models.File{
			TelegramID: msg.Document.FileID,
			Name:       msg.Document.FileName,
			Kind:       models.MediaDocument,
			UploaderID: c.User.ID,
		}
	case msg.Video != nil:
		name := msg.Video.FileName
		if name == "" {
			name = "video"
		}
		return &models.File{
			TelegramID: msg.Video.FileID,
			Name:       name,
			Kind:       models.MediaVideo,
			UploaderID: c.User.ID,
		}
	case len(msg.Photo) > 0:
		return &models.File{
			TelegramID: msg.Photo[len(msg.Photo)-1].FileID,
			Name:       "photo",
			Kind:       models.MediaPhoto,
			UploaderID: c.User.ID,
		}
	case msg.Voice != nil:
		return &models.File{
			TelegramID: msg.Voice.FileID,
			Name:       "voice",
			Kind:       models.MediaVoice,
			UploaderID: c.User.ID,
		}
	}
	return nil
}

func (h *Handlers) matUpload(c *router.Context) error {
	file := fileFromMessage(c)
	if file == nil {
		return c.Reply(tr(c.Lang(), "Send a file, please.", "أرسل ملفاً من فضلك."), nil)
	}
	d, err := loadDraft(c)
	if err != nil {
		return err
	}
	svc := services.NewMaterialService(c.Store)
	err = svc.AttachFile(parseUint(d["mat_material"]), file)
	if errors.Is(err, services.ErrKindNotAccepted) {
		return c.Reply(tr(c.Lang(),
			"This material doesn't take that kind of file.",
			"هذا النوع من الملفات غير مقبول هنا."), nil)
	}
	if errors.Is(err, services.ErrFileExists) {
		return c.Reply(tr(c.Lang(),
			"This material already has its file.", "هذا العنصر له ملف بالفعل."), nil)
	}
	if err != nil {
		return err
	}
	if err := c.EndConversation(convMaterial); err != nil {
		return err
	}
	return c.Reply(tr(c.Lang(), "File added.", "تمت إضافة الملف."), nil)
}

func (h *Handlers) matSingleUpload(c *router.Context) error {
	file := fileFromMessage(c)
	if file == nil {
		return c.Reply(tr(c.Lang(), "Send a file, please.", "أرسل ملفاً من فضلك."), nil)
	}
	d, err := loadDraft(c)
	if err != nil {
		return err
	}
	svc := services.NewMaterialService(c.Store)
	m, err := svc.CreateSingleFile(
		parseUint(d["mat_course"]), parseUint(d["mat_year"]),
		models.MaterialType(d["mat_type"]), file)
	if errors.Is(err, services.ErrKindNotAccepted) {
		return c.Reply(tr(c.Lang(),
			"This material doesn't take that kind of file.",
			"هذا النوع من الملفات غير مقبول هنا."), nil)
	}
	if err != nil {
		return err
	}
	if err := c.EndConversation(convMaterial); err != nil {
		return err
	}
	return h.renderMaterial(c, m, router.Path(d["mat_path"], "m", itoa(m.ID)))
}

func (h *Handlers) matReviewEn(c *router.Context) error {
	if c.Update.Message.Text == "" {
		return c.Reply(tr(c.Lang(), "Send the name as text.", "أرسل الاسم كنص."), nil)
	}
	d, err := loadDraft(c)
	if err != nil {
		return err
	}
	d["review_en"] = c.Update.Message.Text
	if err := saveDraft(c, d); err != nil {
		return err
	}
	if err := c.SetState(convMaterial, "review_ar"); err != nil {
		return err
	}
	return c.Reply(tr(c.Lang(),
		"Now the Arabic name, or a dash to skip.",
		"الآن الاسم بالعربية، أو شرطة للتخطي."), nil)
}

func (h *Handlers) matReviewAr(c *router.Context) error {
	text := c.Update.Message.Text
	if text == "" {
		return c.Reply(tr(c.Lang(), "Send the name as text.", "أرسل الاسم كنص."), nil)
	}
	d, err := loadDraft(c)
	if err != nil {
		return err
	}
	if text != "-" {
		d["review_ar"] = text
	}
	if err := saveDraft(c, d); err != nil {
		return err
	}
	if err := c.SetState(convMaterial, "review_date"); err != nil {
		return err
	}
	return c.Reply(tr(c.Lang(),
		"When is it? Send a date as YYYY-MM-DD, or a dash to skip.",
		"متى موعدها؟ أرسل التاريخ بصيغة YYYY-MM-DD أو شرطة للتخطي."), nil)
}

func (h *Handlers) matReviewDate(c *router.Context) error {
	d, err := loadDraft(c)
	if err != nil {
		return err
	}
	var date *time.Time
	if text := c.Update.Message.Text; text != "-" {
		parsed, err := time.Parse("2006-01-02", text)
		if err != nil {
			return c.Reply(tr(c.Lang(),
				"I couldn't read that date. Use YYYY-MM-DD.",
				"لم أفهم التاريخ. استخدم صيغة YYYY-MM-DD."), nil)
		}
		date = &parsed
	}

	svc := services.NewMaterialService(c.Store)
	m, err := svc.CreateReview(
		parseUint(d["mat_course"]), parseUint(d["mat_year"]),
		d["review_en"], d["review_ar"], date)
	if err != nil {
		return err
	}
	if err := c.EndConversation(convMaterial); err != nil {
		return err
	}
	path := d["mat_path"]
	if err := clearDraft(c); err != nil {
		return err
	}
	return h.renderMaterial(c, m, router.Path(path, "m", itoa(m.ID)))
}

func (h *Handlers) edtDeadlineStart(c *router.Context) error {
	m, err := loadMaterial(c)
	if err != nil {
		return err
	}
	d, err := loadDraft(c)
	if err != nil {
		return err
	}
	d["mat_material"] = itoa(m.ID)
	if err := saveDraft(c, d); err != nil {
		return err
	}
	if err := c.SetState(convMaterial, "deadline"); err != nil {
		return err
	}
	return c.EditOrReply(tr(c.Lang(),
		"Send the deadline as YYYY-MM-DD HH:MM.",
		"أرسل الموعد النهائي بصيغة YYYY-MM-DD HH:MM."), nil)
}

func (h *Handlers) matDeadline(c *router.Context) error {
	deadline, err := time.ParseInLocation("2006-01-02 15:04", c.Update.Message.Text, time.Local)
	if err != nil {
		return c.Reply(tr(c.Lang(),
			"I couldn't read that. Use YYYY-MM-DD HH:MM.",
			"لم أفهم الموعد. استخدم صيغة YYYY-MM-DD HH:MM."), nil)
	}
	d, err := loadDraft(c)
	if err != nil {
		return err
	}
	svc := services.NewMaterialService(c.Store)
	if err := svc.SetDeadline(parseUint(d["mat_material"]), &deadline); err != nil {
		return err
	}
	if err := c.EndConversation(convMaterial); err != nil {
		return err
	}
	return c.Reply(tr(c.Lang(), "Deadline set.", "تم تحديد الموعد."), nil)
}

func (h *Handlers) edtPublish(c *router.Context) error {
	m, err := loadMaterial(c)
	if err != nil {
		return err
	}
	base, _ := splitQuery(c.Data())

	if !c.Params.Has("c") {
		kb := keyboard(confirmRow(
			tr(c.Lang(), "Publish", "نشر"), base+"?c=1",
			tr(c.Lang(), "Not yet", "ليس بعد"), router.Back(base, `/publish`)))
		return c.EditOrReply(tr(c.Lang(),
			"Publish and notify every enrolled student?",
			"النشر وإشعار كل الطلاب المسجلين؟"), kb)
	}

	svc := services.NewMaterialService(c.Store)
	published, err := svc.Publish(m.ID)
	if errors.Is(err, services.ErrNoFiles) {
		return c.Answer(tr(c.Lang(),
			"Add at least one file first.", "أضف ملفاً واحداً على الأقل أولاً."))
	}
	if err != nil {
		return err
	}
	if err := h.notify.NotifyPublished(c.Store, c.User, published); err != nil {
		return err
	}
	if err := c.Answer(tr(c.Lang(), "Published!", "تم النشر!")); err != nil {
		return err
	}
	return h.renderMaterial(c, published, router.Back(base, `/publish`))
}

func (h *Handlers) edtFiles(c *router.Context) error {
	m, err := loadMaterial(c)
	if err != nil {
		return err
	}
	base, _ := splitQuery(c.Data())

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, f := range m.Files {
		rows = append(rows, row(btn("🗑 "+f.Name, router.Path(base, itoa(f.ID)))))
	}
	rows = append(rows, backRow(c.Lang(), base, `/fl`))
	return c.EditOrReply(tr(c.Lang(),
		"Tap a file to remove it.", "اضغط على ملف لحذفه."), keyboard(rows...))
}

func (h *Handlers) edtDeleteFile(c *router.Context) error {
	file, err := c.Store.Materials.File(c.Params.Uint("fid"))
	if errors.Is(err, repository.ErrNotFound) {
		return router.ErrStale
	}
	if err != nil {
		return err
	}
	base, _ := splitQuery(c.Data())

	if !c.Params.Has("c") {
		kb := keyboard(confirmRow(
			tr(c.Lang(), "Remove", "حذف"), base+"?c=1",
			tr(c.Lang(), "Keep", "إبقاء"), router.Back(base, `/\d+`)))
		return c.EditOrReply(fmt.Sprintf(tr(c.Lang(),
			"Remove %q from this material?", "حذف %q من هذا العنصر؟"), file.Name), kb)
	}
	if err := c.Store.Materials.DeleteFile(file.ID); err != nil {
		return err
	}
	if err := c.Answer(tr(c.Lang(), "Removed.", "تم الحذف.")); err != nil {
		return err
	}
	m, err := loadMaterial(c)
	if err != nil {
		return err
	}
	return h.renderMaterial(c, m, router.Back(base, `/fl/\d+`))
}

func (h *Handlers) edtDeleteMaterial(c *router.Context) error {
	m, err := loadMaterial(c)
	if err != nil {
		return err
	}
	base, _ := splitQuery(c.Data())

	switch {
	case !c.Params.Has("c"):
		kb := keyboard(confirmRow(
			tr(c.Lang(), "Yes", "نعم"), base+"?c=0",
			tr(c.Lang(), "No", "لا"), router.Back(base, `/delete`)))
		return c.EditOrReply(tr(c.Lang(),
			"Delete this material?", "حذف هذا العنصر؟"), kb)
	case c.Params.Str("c") == "0":
		kb := keyboard(confirmRow(
			tr(c.Lang(), "Yes, delete it", "نعم، احذفه"), base+"?c=1",
			tr(c.Lang(), "Keep it", "الإبقاء عليه"), router.Back(base, `/delete`)))
		return c.EditOrReply(tr(c.Lang(),
			"Its files go with it and students lose access. Are you sure?",
			"ستُحذف ملفاته وسيفقد الطلاب الوصول إليها. هل أنت متأكد؟"), kb)
	}

	if err := c.Store.Materials.Delete(m.ID); err != nil {
		return err
	}
	if err := c.Answer(tr(c.Lang(), "Deleted.", "تم الحذف.")); err != nil {
		return err
	}
	// Back to the type listing.
	listData := router.Back(base, `/m/\d+/delete`)
	return c.EditOrReply(tr(c.Lang(), "Deleted.", "تم الحذف."),
		keyboard(row(btn(backLabel(c.Lang()), listData))))
}

func splitQuery(data string) (string, string) {
	for i := 0; i < len(data); i++ {
		if data[i] == '?' {
			return data[:i], data[i+1:]
		}
	}
	return data, ""
}
