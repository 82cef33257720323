package handlers

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/skulebot/core/internal/models"
	"github.com/skulebot/core/internal/repository"
	"github.com/skulebot/core/internal/router"
	"github.com/skulebot/core/internal/services"
)

// convCatalog collects typed input for catalog editing: department, program
// and course names, program durations.
const convCatalog = "cat"

func (h *Handlers) registerContent(d *router.Dispatcher) {
	root := []models.Role{models.RoleRoot}
	d.Callback(
		// Academic years.
		router.Restricted(`^ctm/ys/add$`, h.ysAdd, root...),
		router.Restricted(`^ctm/ys/(?P<yid>\d+)/delete(\?c=(?P<c>[01]))?$`, h.ysDelete, root...),
		router.Restricted(`^ctm/ys$`, h.ysList, root...),
		// Departments.
		router.Restricted(`^ctm/dp/add$`, h.dpAdd, root...),
		router.Restricted(`^ctm/dp/(?P<did>\d+)/edit$`, h.dpEdit, root...),
		router.Restricted(`^ctm/dp/(?P<did>\d+)/delete(\?c=(?P<c>[01]))?$`, h.dpDelete, root...),
		router.Restricted(`^ctm/dp/(?P<did>\d+)$`, h.dpDetail, root...),
		router.Restricted(`^ctm/dp$`, h.dpList, root...),
		// Programs.
		router.Restricted(`^ctm/pr/add$`, h.prAdd, root...),
		router.Restricted(`^ctm/pr/(?P<pid>\d+)/act$`, h.prToggleActive, root...),
		router.Restricted(`^ctm/pr/(?P<pid>\d+)/lv/(?P<psid>\d+)$`, h.prToggleLevel, root...),
		router.Restricted(`^ctm/pr/(?P<pid>\d+)/lv$`, h.prLevels, root...),
		router.Restricted(`^ctm/pr/(?P<pid>\d+)/edit$`, h.prEdit, root...),
		router.Restricted(`^ctm/pr/(?P<pid>\d+)/delete(\?c=(?P<c>[01]))?$`, h.prDelete, root...),
		router.Restricted(`^ctm/pr/(?P<pid>\d+)$`, h.prDetail, root...),
		router.Restricted(`^ctm/pr$`, h.prList, root...),
		// Courses.
		router.Restricted(`^ctm/cr/d/(?P<did>\d+)/add$`, h.crAdd, root...),
		router.Restricted(`^ctm/cr/d/(?P<did>\d+)(\?.*)?$`, h.crList, root...),
		router.Restricted(`^ctm/cr/(?P<cid>\d+)/ln(\?.*)?$`, h.crLink, root...),
		router.Restricted(`^ctm/cr/(?P<cid>\d+)/ul/(?P<pscid>\d+)(\?c=(?P<c>1))?$`, h.crUnlinkPlacement, root...),
		router.Restricted(`^ctm/cr/(?P<cid>\d+)/ul$`, h.crUnlink, root...),
		router.Restricted(`^ctm/cr/(?P<cid>\d+)/edit$`, h.crEdit, root...),
		router.Restricted(`^ctm/cr/(?P<cid>\d+)/delete(\?c=(?P<c>[01]))?$`, h.crDelete, root...),
		router.Restricted(`^ctm/cr/(?P<cid>\d+)$`, h.crDetail, root...),
		router.Restricted(`^ctm/cr$`, h.crDepartments, root...),
		router.Restricted(`^ctm$`, h.ctmRoot, root...),
	)
	d.Conversation(&router.Conversation{
		Name: convCatalog,
		States: map[string]router.State{
			"dep_en": {OnMessage: h.catDepEn},
			"dep_ar": {OnMessage: h.catDepAr},
			"prg_en": {OnMessage: h.catPrgEn},
			"prg_ar": {OnMessage: h.catPrgAr},
			"prg_dur": {OnMessage: h.catPrgDur},
			"crs_en": {OnMessage: h.catCrsEn},
			"crs_ar": {OnMessage: h.catCrsAr},
		},
	})
}

func (h *Handlers) contentCommand(c *router.Context) error {
	return h.ctmRoot(c)
}

func (h *Handlers) ctmRoot(c *router.Context) error {
	kb := keyboard(
		row(btn(tr(c.Lang(), "Academic years", "الأعوام الدراسية"), "ctm/ys")),
		row(btn(tr(c.Lang(), "Departments", "الأقسام"), "ctm/dp")),
		row(btn(tr(c.Lang(), "Programs", "البرامج"), "ctm/pr")),
		row(btn(tr(c.Lang(), "Courses", "المواد"), "ctm/cr")),
	)
	return c.EditOrReply(tr(c.Lang(), "Content management", "إدارة المحتوى"), kb)
}

// ---- academic years ----

func (h *Handlers) ysList(c *router.Context) error {
	years, err := c.Store.Catalog.AcademicYears()
	if err != nil {
		return err
	}
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, y := range years {
		rows = append(rows, row(btn("🗑 "+yearLabel(y),
			router.Path("ctm", "ys", itoa(y.ID), "delete"))))
	}
	rows = append(rows,
		row(btn(tr(c.Lang(), "➕ Add the next year", "➕ إضافة العام التالي"), "ctm/ys/add")),
		row(btn(backLabel(c.Lang()), "ctm")))
	return c.EditOrReply(tr(c.Lang(), "Academic years", "الأعوام الدراسية"), keyboard(rows...))
}

// ysAdd creates the year following the latest one, or the current calendar
// year when none exists.
func (h *Handlers) ysAdd(c *router.Context) error {
	latest, err := c.Store.Catalog.MostRecentAcademicYear()
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	start := time.Now().Year()
	if latest != nil {
		start = latest.End
	}
	year := &models.AcademicYear{Start: start, End: start + 1}
	if err := c.Store.Catalog.CreateAcademicYear(year); err != nil {
		return err
	}
	if err := c.Answer(yearLabel(*year)); err != nil {
		return err
	}
	return h.ysList(c)
}

func (h *Handlers) ysDelete(c *router.Context) error {
	year, err := c.Store.Catalog.AcademicYear(c.Params.Uint("yid"))
	if errors.Is(err, repository.ErrNotFound) {
		return router.ErrStale
	}
	if err != nil {
		return err
	}
	base, _ := splitQuery(c.Data())

	switch {
	case !c.Params.Has("c"):
		kb := keyboard(confirmRow(
			tr(c.Lang(), "Yes", "نعم"), base+"?c=0",
			tr(c.Lang(), "No", "لا"), "ctm/ys"))
		return c.EditOrReply(fmt.Sprintf(tr(c.Lang(),
			"Delete %s?", "حذف %s؟"), yearLabel(*year)), kb)
	case c.Params.Str("c") == "0":
		kb := keyboard(confirmRow(
			tr(c.Lang(), "Yes, delete it", "نعم، احذفه"), base+"?c=1",
			tr(c.Lang(), "Keep it", "الإبقاء عليه"), "ctm/ys"))
		return c.EditOrReply(tr(c.Lang(),
			"Every enrollment and material of that year goes with it. Are you sure?",
			"ستُحذف معه كل تسجيلات وملفات ذلك العام. هل أنت متأكد؟"), kb)
	}
	if err := c.Store.Catalog.DeleteAcademicYear(year.ID); err != nil {
		return err
	}
	if err := c.Answer(tr(c.Lang(), "Deleted.", "تم الحذف.")); err != nil {
		return err
	}
	return h.ysList(c)
}

// ---- departments ----

func (h *Handlers) dpList(c *router.Context) error {
	departments, err := c.Store.Catalog.Departments()
	if err != nil {
		return err
	}
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, d := range departments {
		rows = append(rows, row(btn(d.Name(c.Lang()), router.Path("ctm", "dp", itoa(d.ID)))))
	}
	rows = append(rows,
		row(btn(tr(c.Lang(), "➕ Add", "➕ إضافة"), "ctm/dp/add")),
		row(btn(backLabel(c.Lang()), "ctm")))
	return c.EditOrReply(tr(c.Lang(), "Departments", "الأقسام"), keyboard(rows...))
}

func (h *Handlers) dpDetail(c *router.Context) error {
	dep, err := c.Store.Catalog.Department(c.Params.Uint("did"))
	if errors.Is(err, repository.ErrNotFound) {
		return router.ErrStale
	}
	if err != nil {
		return err
	}
	base := router.Path("ctm", "dp", itoa(dep.ID))
	kb := keyboard(
		row(btn(tr(c.Lang(), "✏️ Rename", "✏️ إعادة تسمية"), router.Path(base, "edit"))),
		row(btn(tr(c.Lang(), "🗑 Delete", "🗑 حذف"), base+"/delete")),
		backRow(c.Lang(), base, `/\d+`))
	return c.EditOrReply(fmt.Sprintf("%s / %s", dep.EnName, dep.ArName), kb)
}

func (h *Handlers) dpAdd(c *router.Context) error {
	return h.startNameDialog(c, "dep_en", "cat_dep", "")
}

func (h *Handlers) dpEdit(c *router.Context) error {
	return h.startNameDialog(c, "dep_en", "cat_dep", c.Params.Str("did"))
}

// startNameDialog begins an english-name prompt for a catalog entity;
// editID is empty when creating.
func (h *Handlers) startNameDialog(c *router.Context, state, editKey, editID string) error {
	d, err := loadDraft(c)
	if err != nil {
		return err
	}
	d[editKey] = editID
	if err := saveDraft(c, d); err != nil {
		return err
	}
	if err := c.SetState(convCatalog, state); err != nil {
		return err
	}
	return c.EditOrReply(tr(c.Lang(),
		"Send the English name.", "أرسل الاسم بالإنجليزية."), nil)
}

func requireText(c *router.Context) (string, error) {
	if c.Update.Message == nil || c.Update.Message.Text == "" {
		return "", c.Reply(tr(c.Lang(), "Send it as text, please.", "أرسله كنص من فضلك."), nil)
	}
	return c.Update.Message.Text, nil
}

func (h *Handlers) catDepEn(c *router.Context) error {
	text, err := requireText(c)
	if text == "" {
		return err
	}
	d, err := loadDraft(c)
	if err != nil {
		return err
	}
	d["en"] = text
	if err := saveDraft(c, d); err != nil {
		return err
	}
	if err := c.SetState(convCatalog, "dep_ar"); err != nil {
		return err
	}
	return c.Reply(tr(c.Lang(), "Now the Arabic name.", "الآن الاسم بالعربية."), nil)
}

func (h *Handlers) catDepAr(c *router.Context) error {
	text, err := requireText(c)
	if text == "" {
		return err
	}
	d, err := loadDraft(c)
	if err != nil {
		return err
	}

	if id := parseUint(d["cat_dep"]); id != 0 {
		dep, err := c.Store.Catalog.Department(id)
		if err != nil {
			return err
		}
		dep.EnName, dep.ArName = d["en"], text
		if err := c.Store.Catalog.UpdateDepartment(dep); err != nil {
			return err
		}
	} else {
		dep := &models.Department{EnName: d["en"], ArName: text}
		if err := c.Store.Catalog.CreateDepartment(dep); err != nil {
			return err
		}
	}
	if err := c.EndConversation(convCatalog); err != nil {
		return err
	}
	if err := clearDraft(c); err != nil {
		return err
	}
	return c.Reply(tr(c.Lang(), "Saved.", "تم الحفظ."), nil)
}

func (h *Handlers) dpDelete(c *router.Context) error {
	dep, err := c.Store.Catalog.Department(c.Params.Uint("did"))
	if errors.Is(err, repository.ErrNotFound) {
		return router.ErrStale
	}
	if err != nil {
		return err
	}
	base, _ := splitQuery(c.Data())

	switch {
	case !c.Params.Has("c"):
		kb := keyboard(confirmRow(
			tr(c.Lang(), "Yes", "نعم"), base+"?c=0",
			tr(c.Lang(), "No", "لا"), "ctm/dp"))
		return c.EditOrReply(fmt.Sprintf(tr(c.Lang(),
			"Delete %s?", "حذف %s؟"), dep.Name(c.Lang())), kb)
	case c.Params.Str("c") == "0":
		kb := keyboard(confirmRow(
			tr(c.Lang(), "Yes, delete it", "نعم، احذفه"), base+"?c=1",
			tr(c.Lang(), "Keep it", "الإبقاء عليه"), "ctm/dp"))
		return c.EditOrReply(tr(c.Lang(),
			"Its courses lose their department. Are you sure?",
			"ستفقد مواده قسمها. هل أنت متأكد؟"), kb)
	}
	if err := c.Store.Catalog.DeleteDepartment(dep.ID); err != nil {
		return err
	}
	if err := c.Answer(tr(c.Lang(), "Deleted.", "تم الحذف.")); err != nil {
		return err
	}
	return h.dpList(c)
}

// ---- programs ----

func (h *Handlers) prList(c *router.Context) error {
	programs, err := c.Store.Catalog.Programs()
	if err != nil {
		return err
	}
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, p := range programs {
		label := p.Name(c.Lang())
		if !p.Active {
			label = "💤 " + label
		}
		rows = append(rows, row(btn(label, router.Path("ctm", "pr", itoa(p.ID)))))
	}
	rows = append(rows,
		row(btn(tr(c.Lang(), "➕ Add", "➕ إضافة"), "ctm/pr/add")),
		row(btn(backLabel(c.Lang()), "ctm")))
	return c.EditOrReply(tr(c.Lang(), "Programs", "البرامج"), keyboard(rows...))
}

func (h *Handlers) prDetail(c *router.Context) error {
	p, err := c.Store.Catalog.Program(c.Params.Uint("pid"))
	if errors.Is(err, repository.ErrNotFound) {
		return router.ErrStale
	}
	if err != nil {
		return err
	}
	base := router.Path("ctm", "pr", itoa(p.ID))

	activeLabel := tr(c.Lang(), "💤 Deactivate", "💤 تعطيل")
	if !p.Active {
		activeLabel = tr(c.Lang(), "▶️ Activate", "▶️ تفعيل")
	}
	kb := keyboard(
		row(btn(tr(c.Lang(), "Enrollment levels", "مستويات التسجيل"), router.Path(base, "lv"))),
		row(btn(activeLabel, router.Path(base, "act"))),
		row(btn(tr(c.Lang(), "✏️ Edit", "✏️ تعديل"), router.Path(base, "edit"))),
		row(btn(tr(c.Lang(), "🗑 Delete", "🗑 حذف"), base+"/delete")),
		backRow(c.Lang(), base, `/\d+`))
	text := fmt.Sprintf("%s / %s\n%s: %d",
		p.EnName, p.ArName, tr(c.Lang(), "Semesters", "عدد الفصول"), p.Duration)
	return c.EditOrReply(text, kb)
}

func (h *Handlers) prToggleActive(c *router.Context) error {
	p, err := c.Store.Catalog.Program(c.Params.Uint("pid"))
	if errors.Is(err, repository.ErrNotFound) {
		return router.ErrStale
	}
	if err != nil {
		return err
	}
	p.Active = !p.Active
	svc := services.NewCatalogService(c.Store)
	if err := svc.UpdateProgram(p); err != nil {
		return err
	}
	return h.prDetail(c)
}

// prLevels shows one toggle per level; both semesters of a level open and
// close together.
func (h *Handlers) prLevels(c *router.Context) error {
	p, err := c.Store.Catalog.Program(c.Params.Uint("pid"))
	if errors.Is(err, repository.ErrNotFound) {
		return router.ErrStale
	}
	if err != nil {
		return err
	}
	links, err := c.Store.Catalog.ProgramSemesters(p.ID, nil, nil)
	if err != nil {
		return err
	}

	base := router.Path("ctm", "pr", itoa(p.ID))
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, link := range links {
		// One button per level: the odd semester speaks for the pair.
		if link.Semester.Number%2 == 0 {
			continue
		}
		mark := "⬜"
		if link.Available {
			mark = "✅"
		}
		rows = append(rows, row(btn(
			mark+" "+levelLabel(c.Lang(), link.Semester.Level()),
			router.Path(base, "lv", itoa(link.ID)))))
	}
	rows = append(rows, backRow(c.Lang(), router.Path(base, "lv"), `/lv`))
	return c.EditOrReply(tr(c.Lang(),
		"Which levels are open for enrollment?", "أي المستويات متاحة للتسجيل؟"), keyboard(rows...))
}

func (h *Handlers) prToggleLevel(c *router.Context) error {
	link, err := c.Store.Catalog.ProgramSemester(c.Params.Uint("psid"))
	if errors.Is(err, repository.ErrNotFound) {
		return router.ErrStale
	}
	if err != nil {
		return err
	}
	svc := services.NewCatalogService(c.Store)
	if err := svc.SetLevelAvailability(link.ID, !link.Available); err != nil {
		return err
	}
	return h.prLevels(c)
}

func (h *Handlers) prAdd(c *router.Context) error {
	return h.startNameDialog(c, "prg_en", "cat_prg", "")
}

func (h *Handlers) prEdit(c *router.Context) error {
	return h.startNameDialog(c, "prg_en", "cat_prg", c.Params.Str("pid"))
}

func (h *Handlers) catPrgEn(c *router.Context) error {
	text, err := requireText(c)
	if text == "" {
		return err
	}
	d, err := loadDraft(c)
	if err != nil {
		return err
	}
	d["en"] = text
	if err := saveDraft(c, d); err != nil {
		return err
	}
	if err := c.SetState(convCatalog, "prg_ar"); err != nil {
		return err
	}
	return c.Reply(tr(c.Lang(), "Now the Arabic name.", "الآن الاسم بالعربية."), nil)
}

func (h *Handlers) catPrgAr(c *router.Context) error {
	text, err := requireText(c)
	if text == "" {
		return err
	}
	d, err := loadDraft(c)
	if err != nil {
		return err
	}
	d["ar"] = text
	if err := saveDraft(c, d); err != nil {
		return err
	}
	if err := c.SetState(convCatalog, "prg_dur"); err != nil {
		return err
	}
	return c.Reply(tr(c.Lang(),
		"How many semesters does it run? (e.g. 10)",
		"كم فصلاً دراسياً مدته؟ (مثلاً 10)"), nil)
}

func (h *Handlers) catPrgDur(c *router.Context) error {
	text, err := requireText(c)
	if text == "" {
		return err
	}
	duration, err := strconv.Atoi(text)
	if err != nil || duration < 1 || duration > 10 {
		return c.Reply(tr(c.Lang(),
			"Send a number between 1 and 10.", "أرسل رقماً من 1 إلى 10."), nil)
	}
	d, err := loadDraft(c)
	if err != nil {
		return err
	}

	svc := services.NewCatalogService(c.Store)
	if id := parseUint(d["cat_prg"]); id != 0 {
		p, err := c.Store.Catalog.Program(id)
		if err != nil {
			return err
		}
		p.EnName, p.ArName, p.Duration = d["en"], d["ar"], duration
		if err := svc.UpdateProgram(p); err != nil {
			return err
		}
	} else {
		p := &models.Program{EnName: d["en"], ArName: d["ar"], Duration: duration, Active: true}
		if err := svc.CreateProgram(p); err != nil {
			return err
		}
	}
	if err := c.EndConversation(convCatalog); err != nil {
		return err
	}
	if err := clearDraft(c); err != nil {
		return err
	}
	return c.Reply(tr(c.Lang(), "Saved.", "تم الحفظ."), nil)
}

func (h *Handlers) prDelete(c *router.Context) error {
	p, err := c.Store.Catalog.Program(c.Params.Uint("pid"))
	if errors.Is(err, repository.ErrNotFound) {
		return router.ErrStale
	}
	if err != nil {
		return err
	}
	base, _ := splitQuery(c.Data())

	switch {
	case !c.Params.Has("c"):
		kb := keyboard(confirmRow(
			tr(c.Lang(), "Yes", "نعم"), base+"?c=0",
			tr(c.Lang(), "No", "لا"), "ctm/pr"))
		return c.EditOrReply(fmt.Sprintf(tr(c.Lang(),
			"Delete %s?", "حذف %s؟"), p.Name(c.Lang())), kb)
	case c.Params.Str("c") == "0":
		kb := keyboard(confirmRow(
			tr(c.Lang(), "Yes, delete it", "نعم، احذفه"), base+"?c=1",
			tr(c.Lang(), "Keep it", "الإبقاء عليه"), "ctm/pr"))
		return c.EditOrReply(tr(c.Lang(),
			"Every enrollment in this program goes with it. Are you sure?",
			"سيُحذف معه كل تسجيل في هذا البرنامج. هل أنت متأكد؟"), kb)
	}
	if err := c.Store.Catalog.DeleteProgram(p.ID); err != nil {
		return err
	}
	if err := c.Answer(tr(c.Lang(), "Deleted.", "تم الحذف.")); err != nil {
		return err
	}
	return h.prList(c)
}

// ---- courses ----

const adminCoursesPageSize = 12

func (h *Handlers) crDepartments(c *router.Context) error {
	departments, err := c.Store.Catalog.Departments()
	if err != nil {
		return err
	}
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, d := range departments {
		rows = append(rows, row(btn(d.Name(c.Lang()), router.Path("ctm", "cr", "d", itoa(d.ID)))))
	}
	rows = append(rows,
		row(btn(tr(c.Lang(), "(no department)", "(بدون قسم)"), "ctm/cr/d/0")),
		row(btn(backLabel(c.Lang()), "ctm")))
	return c.EditOrReply(tr(c.Lang(), "Pick a department", "اختر قسماً"), keyboard(rows...))
}

func (h *Handlers) crList(c *router.Context) error {
	departmentID := c.Params.Uint("did")
	courses, err := c.Store.Courses.DepartmentCourses(departmentID)
	if err != nil {
		return err
	}

	path := router.Path("ctm", "cr", "d", itoa(departmentID))
	pager := router.NewPager(courses, c.Params.Int(router.ParamPage), adminCoursesPageSize)

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, course := range pager.Items {
		rows = append(rows, row(btn(course.Name(c.Lang()), router.Path("ctm", "cr", itoa(course.ID)))))
	}
	rows = append(rows, row(btn(tr(c.Lang(), "➕ Add", "➕ إضافة"), router.Path(path, "add"))))
	if nav := pagerRow(pager, path); len(nav) > 0 {
		rows = append(rows, nav)
	}
	rows = append(rows, row(btn(backLabel(c.Lang()), "ctm/cr")))
	return c.EditOrReply(tr(c.Lang(), "Courses", "المواد"), keyboard(rows...))
}

func (h *Handlers) crAdd(c *router.Context) error {
	d, err := loadDraft(c)
	if err != nil {
		return err
	}
	d["cat_crs"] = ""
	d["cat_crs_dep"] = c.Params.Str("did")
	if err := saveDraft(c, d); err != nil {
		return err
	}
	if err := c.SetState(convCatalog, "crs_en"); err != nil {
		return err
	}
	return c.EditOrReply(tr(c.Lang(),
		"Send the English course name.", "أرسل اسم المادة بالإنجليزية."), nil)
}

func (h *Handlers) crEdit(c *router.Context) error {
	return h.startNameDialog(c, "crs_en", "cat_crs", c.Params.Str("cid"))
}

func (h *Handlers) catCrsEn(c *router.Context) error {
	text, err := requireText(c)
	if text == "" {
		return err
	}
	d, err := loadDraft(c)
	if err != nil {
		return err
	}
	d["en"] = text
	if err := saveDraft(c, d); err != nil {
		return err
	}
	if err := c.SetState(convCatalog, "crs_ar"); err != nil {
		return err
	}
	return c.Reply(tr(c.Lang(), "Now the Arabic name.", "الآن الاسم بالعربية."), nil)
}

func (h *Handlers) catCrsAr(c *router.Context) error {
	text, err := requireText(c)
	if text == "" {
		return err
	}
	d, err := loadDraft(c)
	if err != nil {
		return err
	}

	if id := parseUint(d["cat_crs"]); id != 0 {
		course, err := c.Store.Courses.Course(id)
		if err != nil {
			return err
		}
		course.EnName, course.ArName = d["en"], text
		if err := c.Store.Courses.UpdateCourse(course); err != nil {
			return err
		}
	} else {
		course := &models.Course{EnName: d["en"], ArName: text}
		if depID := parseUint(d["cat_crs_dep"]); depID != 0 {
			course.DepartmentID = &depID
		}
		if err := c.Store.Courses.CreateCourse(course); err != nil {
			return err
		}
	}
	if err := c.EndConversation(convCatalog); err != nil {
		return err
	}
	if err := clearDraft(c); err != nil {
		return err
	}
	return c.Reply(tr(c.Lang(), "Saved.", "تم الحفظ."), nil)
}

func (h *Handlers) crDetail(c *router.Context) error {
	course, err := c.Store.Courses.Course(c.Params.Uint("cid"))
	if errors.Is(err, repository.ErrNotFound) {
		return router.ErrStale
	}
	if err != nil {
		return err
	}
	base := router.Path("ctm", "cr", itoa(course.ID))
	kb := keyboard(
		row(btn(tr(c.Lang(), "Link into a program", "ربط ببرنامج"), router.Path(base, "ln"))),
		row(btn(tr(c.Lang(), "Unlink from a program", "فك الربط من برنامج"), router.Path(base, "ul"))),
		row(btn(tr(c.Lang(), "✏️ Rename", "✏️ إعادة تسمية"), router.Path(base, "edit"))),
		row(btn(tr(c.Lang(), "🗑 Delete", "🗑 حذف"), base+"/delete")),
		row(btn(backLabel(c.Lang()), "ctm/cr")))
	return c.EditOrReply(fmt.Sprintf("%s / %s", course.EnName, course.ArName), kb)
}

// crLink places a course into a program's semester, accumulating the pick
// in the query: ln -> ?pr= -> ?pr=&sm= -> ?pr=&sm=&o=. A course already
// living elsewhere in the program gets a move confirmation instead.
func (h *Handlers) crLink(c *router.Context) error {
	course, err := c.Store.Courses.Course(c.Params.Uint("cid"))
	if errors.Is(err, repository.ErrNotFound) {
		return router.ErrStale
	}
	if err != nil {
		return err
	}
	base := router.Path("ctm", "cr", itoa(course.ID), "ln")

	if !c.Params.Has("pr") {
		programs, err := c.Store.Catalog.Programs()
		if err != nil {
			return err
		}
		var rows [][]tgbotapi.InlineKeyboardButton
		for _, p := range programs {
			rows = append(rows, row(btn(p.Name(c.Lang()),
				fmt.Sprintf("%s?pr=%d", base, p.ID))))
		}
		rows = append(rows, backRow(c.Lang(), base, `/ln`))
		return c.EditOrReply(tr(c.Lang(), "Into which program?", "في أي برنامج؟"), keyboard(rows...))
	}

	programID := c.Params.Uint("pr")
	if !c.Params.Has("sm") {
		links, err := c.Store.Catalog.ProgramSemesters(programID, nil, nil)
		if err != nil {
			return err
		}
		var rows [][]tgbotapi.InlineKeyboardButton
		for _, link := range links {
			rows = append(rows, row(btn(semesterLabel(c.Lang(), link.Semester.Number),
				fmt.Sprintf("%s?pr=%d&sm=%d", base, programID, link.SemesterID))))
		}
		rows = append(rows, row(btn(backLabel(c.Lang()), base)))
		return c.EditOrReply(tr(c.Lang(), "Into which semester?", "في أي فصل؟"), keyboard(rows...))
	}

	semesterID := c.Params.Uint("sm")
	if !c.Params.Has("o") {
		kb := keyboard(
			row(btn(tr(c.Lang(), "Required", "إجبارية"),
				fmt.Sprintf("%s?pr=%d&sm=%d&o=0", base, programID, semesterID))),
			row(btn(tr(c.Lang(), "Optional", "اختيارية"),
				fmt.Sprintf("%s?pr=%d&sm=%d&o=1", base, programID, semesterID))),
		)
		return c.EditOrReply(tr(c.Lang(), "Required or optional?", "إجبارية أم اختيارية؟"), kb)
	}

	svc := services.NewCatalogService(c.Store)
	if c.Params.Has("mv") {
		placement, err := c.Store.Courses.PlacementFor(programID, course.ID)
		if err != nil {
			return err
		}
		if placement == nil {
			return router.ErrStale
		}
		if err := svc.MovePlacement(placement.ID, semesterID); err != nil {
			return err
		}
		if err := c.Answer(tr(c.Lang(), "Moved.", "تم النقل.")); err != nil {
			return err
		}
		return h.crDetail(c)
	}

	existing, err := svc.PlaceCourse(programID, semesterID, course.ID, c.Params.Str("o") == "1")
	if errors.Is(err, services.ErrCoursePlaced) {
		kb := keyboard(confirmRow(
			tr(c.Lang(), "Move it", "انقلها"),
			fmt.Sprintf("%s?pr=%d&sm=%d&o=%s&mv=1", base, programID, semesterID, c.Params.Str("o")),
			tr(c.Lang(), "Leave it", "اتركها"), router.Path("ctm", "cr", itoa(course.ID))))
		return c.EditOrReply(fmt.Sprintf(tr(c.Lang(),
			"Already placed in semester %d of this program. Move it?",
			"موجودة بالفعل في الفصل %d من هذا البرنامج. نقلها؟"),
			existing.Semester.Number), kb)
	}
	if errors.Is(err, models.ErrSemesterExceedsDuration) {
		return c.Answer(tr(c.Lang(),
			"That semester is beyond the program's duration.",
			"هذا الفصل يتجاوز مدة البرنامج."))
	}
	if err != nil {
		return err
	}
	if err := c.Answer(tr(c.Lang(), "Linked.", "تم الربط.")); err != nil {
		return err
	}
	return h.crDetail(c)
}

// crUnlink lists the course's placements so one can be removed without
// touching the course itself.
func (h *Handlers) crUnlink(c *router.Context) error {
	course, err := c.Store.Courses.Course(c.Params.Uint("cid"))
	if errors.Is(err, repository.ErrNotFound) {
		return router.ErrStale
	}
	if err != nil {
		return err
	}
	placements, err := c.Store.Courses.CoursePlacements(course.ID)
	if err != nil {
		return err
	}
	base := router.Path("ctm", "cr", itoa(course.ID))

	if len(placements) == 0 {
		kb := keyboard(row(btn(backLabel(c.Lang()), base)))
		return c.EditOrReply(tr(c.Lang(),
			"This course is not linked anywhere.", "هذه المادة غير مرتبطة بأي برنامج."), kb)
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, p := range placements {
		label := fmt.Sprintf("%s · %s",
			p.Program.Name(c.Lang()), semesterLabel(c.Lang(), p.Semester.Number))
		rows = append(rows, row(btn(label, router.Path(base, "ul", itoa(p.ID)))))
	}
	rows = append(rows, row(btn(backLabel(c.Lang()), base)))
	return c.EditOrReply(tr(c.Lang(),
		"Unlink from which placement?", "فك الربط من أي موضع؟"), keyboard(rows...))
}

func (h *Handlers) crUnlinkPlacement(c *router.Context) error {
	placement, err := c.Store.Courses.ProgramSemesterCourse(c.Params.Uint("pscid"))
	if errors.Is(err, repository.ErrNotFound) {
		return router.ErrStale
	}
	if err != nil {
		return err
	}
	base, _ := splitQuery(c.Data())

	if !c.Params.Has("c") {
		kb := keyboard(confirmRow(
			tr(c.Lang(), "Yes, unlink it", "نعم، فك الربط"), base+"?c=1",
			tr(c.Lang(), "Keep it", "الإبقاء عليه"), router.Path("ctm", "cr", itoa(c.Params.Uint("cid")), "ul")))
		return c.EditOrReply(fmt.Sprintf(tr(c.Lang(),
			"Unlink from %s, semester %d? Its materials stay with the course.",
			"فك ربطها من %s، الفصل %d؟ تبقى ملفاتها مع المادة."),
			placement.Program.Name(c.Lang()), placement.Semester.Number), kb)
	}

	if err := c.Store.Courses.DeletePlacement(placement.ID); err != nil {
		return err
	}
	if err := c.Answer(tr(c.Lang(), "Unlinked.", "تم فك الربط.")); err != nil {
		return err
	}
	return h.crDetail(c)
}

func (h *Handlers) crDelete(c *router.Context) error {
	course, err := c.Store.Courses.Course(c.Params.Uint("cid"))
	if errors.Is(err, repository.ErrNotFound) {
		return router.ErrStale
	}
	if err != nil {
		return err
	}
	base, _ := splitQuery(c.Data())

	switch {
	case !c.Params.Has("c"):
		kb := keyboard(confirmRow(
			tr(c.Lang(), "Yes", "نعم"), base+"?c=0",
			tr(c.Lang(), "No", "لا"), "ctm/cr"))
		return c.EditOrReply(fmt.Sprintf(tr(c.Lang(),
			"Delete %s?", "حذف %s؟"), course.Name(c.Lang())), kb)
	case c.Params.Str("c") == "0":
		kb := keyboard(confirmRow(
			tr(c.Lang(), "Yes, delete it", "نعم، احذفها"), base+"?c=1",
			tr(c.Lang(), "Keep it", "الإبقاء عليها"), "ctm/cr"))
		return c.EditOrReply(tr(c.Lang(),
			"Its materials in every program go with it. Are you sure?",
			"ستُحذف معها ملفاتها في كل البرامج. هل أنت متأكد؟"), kb)
	}
	if err := c.Store.Courses.DeleteCourse(course.ID); err != nil {
		return err
	}
	if err := c.Answer(tr(c.Lang(), "Deleted.", "تم الحذف.")); err != nil {
		return err
	}
	return h.crDepartments(c)
}
