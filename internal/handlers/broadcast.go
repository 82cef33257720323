package handlers

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/skulebot/core/internal/models"
	"github.com/skulebot/core/internal/repository"
	"github.com/skulebot/core/internal/router"
)

// convBroadcast collects the announcement messages, one per selected
// language.
const convBroadcast = "bct"

func (h *Handlers) registerBroadcast(d *router.Dispatcher) {
	root := []models.Role{models.RoleRoot}
	d.Callback(
		router.Restricted(`^bct/msg(\?.*)?$`, h.bctAuthor, root...),
		router.Restricted(`^bct/t/pick(\?.*)?$`, h.bctPick, root...),
		router.Restricted(`^bct/t/(?P<t>all|miss)$`, h.bctTarget, root...),
		router.Restricted(`^bct/o/(?P<o>preview|send|pin)$`, h.bctOption, root...),
		router.Restricted(`^bct(\?.*)?$`, h.bctRoot, root...),
	)
	d.Conversation(&router.Conversation{
		Name: convBroadcast,
		States: map[string]router.State{
			"msg_en": {OnMessage: h.bctMessageEn},
			"msg_ar": {OnMessage: h.bctMessageAr},
		},
	})
}

func (h *Handlers) broadcastCommand(c *router.Context) error {
	return h.bctRoot(c)
}

// bctRoot picks the announcement languages; the flags travel in the query.
func (h *Handlers) bctRoot(c *router.Context) error {
	en, ar := "1", "0"
	if c.Params.Has("en") {
		en, ar = c.Params.Str("en"), c.Params.Str("ar")
	}

	mark := func(flag string) string {
		if flag == "1" {
			return "✅"
		}
		return "⬜"
	}
	flip := func(flag string) string {
		if flag == "1" {
			return "0"
		}
		return "1"
	}
	rows := [][]tgbotapi.InlineKeyboardButton{
		row(btn(mark(en)+" English", fmt.Sprintf("bct?en=%s&ar=%s", flip(en), ar)),
			btn(mark(ar)+" العربية", fmt.Sprintf("bct?en=%s&ar=%s", en, flip(ar)))),
	}
	if en == "1" || ar == "1" {
		rows = append(rows, row(btn(tr(c.Lang(), "Continue »", "متابعة »"),
			fmt.Sprintf("bct/msg?en=%s&ar=%s", en, ar))))
	}
	return c.EditOrReply(tr(c.Lang(),
		"Which languages is the announcement in?", "بأي اللغات سيكون الإعلان؟"), keyboard(rows...))
}

func (h *Handlers) bctAuthor(c *router.Context) error {
	d, err := loadDraft(c)
	if err != nil {
		return err
	}
	d["bc_en"] = c.Params.Str("en")
	d["bc_ar"] = c.Params.Str("ar")
	delete(d, "bc_msg_en")
	delete(d, "bc_msg_ar")
	if err := saveDraft(c, d); err != nil {
		return err
	}

	if d["bc_en"] == "1" {
		if err := c.SetState(convBroadcast, "msg_en"); err != nil {
			return err
		}
		return c.EditOrReply(tr(c.Lang(),
			"Send the English announcement message.", "أرسل رسالة الإعلان بالإنجليزية."), nil)
	}
	if err := c.SetState(convBroadcast, "msg_ar"); err != nil {
		return err
	}
	return c.EditOrReply(tr(c.Lang(),
		"Send the Arabic announcement message.", "أرسل رسالة الإعلان بالعربية."), nil)
}

func (h *Handlers) bctMessageEn(c *router.Context) error {
	d, err := loadDraft(c)
	if err != nil {
		return err
	}
	d["bc_msg_en"] = strconv.Itoa(c.Update.Message.MessageID)
	if err := saveDraft(c, d); err != nil {
		return err
	}
	if d["bc_ar"] == "1" {
		if err := c.SetState(convBroadcast, "msg_ar"); err != nil {
			return err
		}
		return c.Reply(tr(c.Lang(),
			"Now the Arabic version.", "الآن النسخة العربية."), nil)
	}
	return h.bctTargets(c)
}

func (h *Handlers) bctMessageAr(c *router.Context) error {
	d, err := loadDraft(c)
	if err != nil {
		return err
	}
	d["bc_msg_ar"] = strconv.Itoa(c.Update.Message.MessageID)
	if err := saveDraft(c, d); err != nil {
		return err
	}
	return h.bctTargets(c)
}

func (h *Handlers) bctTargets(c *router.Context) error {
	if err := c.EndConversation(convBroadcast); err != nil {
		return err
	}
	kb := keyboard(
		row(btn(tr(c.Lang(), "Everyone enrolled", "كل المسجلين"), "bct/t/all")),
		row(btn(tr(c.Lang(), "Courses missing editors", "المواد بلا محررين"), "bct/t/miss")),
		row(btn(tr(c.Lang(), "One program and level", "برنامج ومستوى محددان"), "bct/t/pick")),
	)
	return c.Reply(tr(c.Lang(), "Who should get it?", "لمن يُرسل؟"), kb)
}

func (h *Handlers) bctTarget(c *router.Context) error {
	if c.Params.Str("t") == "miss" {
		return c.EditOrReply(notImplemented(c.Lang()), nil)
	}
	d, err := loadDraft(c)
	if err != nil {
		return err
	}
	d["bc_target"] = "all"
	if err := saveDraft(c, d); err != nil {
		return err
	}
	return h.bctOptions(c)
}

// bctPick narrows the target to one (program, level), both of its
// semesters included.
func (h *Handlers) bctPick(c *router.Context) error {
	if !c.Params.Has("pr") {
		programs, err := c.Store.Catalog.Programs()
		if err != nil {
			return err
		}
		var rows [][]tgbotapi.InlineKeyboardButton
		for _, p := range programs {
			rows = append(rows, row(btn(p.Name(c.Lang()),
				fmt.Sprintf("bct/t/pick?pr=%d", p.ID))))
		}
		return c.EditOrReply(tr(c.Lang(), "Which program?", "أي برنامج؟"), keyboard(rows...))
	}

	programID := c.Params.Uint("pr")
	if !c.Params.Has("lv") {
		links, err := c.Store.Catalog.ProgramSemesters(programID, nil, nil)
		if err != nil {
			return err
		}
		var rows [][]tgbotapi.InlineKeyboardButton
		for _, link := range links {
			if link.Semester.Number%2 == 0 {
				continue
			}
			rows = append(rows, row(btn(levelLabel(c.Lang(), link.Semester.Level()),
				fmt.Sprintf("bct/t/pick?pr=%d&lv=%d", programID, link.Semester.Level()))))
		}
		rows = append(rows, row(btn(backLabel(c.Lang()), "bct/t/pick")))
		return c.EditOrReply(tr(c.Lang(), "Which level?", "أي مستوى؟"), keyboard(rows...))
	}

	d, err := loadDraft(c)
	if err != nil {
		return err
	}
	d["bc_target"] = fmt.Sprintf("pl:%d:%d", programID, c.Params.Int("lv"))
	if err := saveDraft(c, d); err != nil {
		return err
	}
	return h.bctOptions(c)
}

func (h *Handlers) bctOptions(c *router.Context) error {
	kb := keyboard(
		row(btn(tr(c.Lang(), "👀 Preview", "👀 معاينة"), "bct/o/preview")),
		row(btn(tr(c.Lang(), "📤 Send", "📤 إرسال"), "bct/o/send")),
		row(btn(tr(c.Lang(), "📌 Send and pin", "📌 إرسال وتثبيت"), "bct/o/pin")),
	)
	return c.EditOrReply(tr(c.Lang(), "Ready.", "جاهز."), kb)
}

func (h *Handlers) bctOption(c *router.Context) error {
	d, err := loadDraft(c)
	if err != nil {
		return err
	}
	messages := map[string]int{}
	if id, err := strconv.Atoi(d["bc_msg_en"]); err == nil && id != 0 {
		messages[models.LangEN] = id
	}
	if id, err := strconv.Atoi(d["bc_msg_ar"]); err == nil && id != 0 {
		messages[models.LangAR] = id
	}
	if len(messages) == 0 {
		return router.ErrStale
	}

	if c.Params.Str("o") == "preview" {
		if err := c.Answer(""); err != nil {
			return err
		}
		for _, id := range messages {
			if _, err := c.Bot.CopyMessage(c.ChatID(), c.ChatID(), id); err != nil {
				c.Log.Warn("broadcast preview failed")
			}
		}
		return h.bctOptions(c)
	}

	recipients, err := h.bctRecipients(c, d["bc_target"])
	if err != nil {
		return err
	}
	h.notify.Broadcast(c.User, messages, recipients, c.Params.Str("o") == "pin")
	if err := clearDraft(c); err != nil {
		return err
	}
	return c.EditOrReply(fmt.Sprintf(tr(c.Lang(),
		"On its way to %d people.", "في طريقه إلى %d شخصاً."), len(recipients)), nil)
}

func (h *Handlers) bctRecipients(c *router.Context, target string) ([]models.User, error) {
	year, err := c.Store.Catalog.MostRecentAcademicYear()
	if errors.Is(err, repository.ErrNotFound) {
		return nil, router.ErrStale
	}
	if err != nil {
		return nil, err
	}

	if !strings.HasPrefix(target, "pl:") {
		return c.Store.Enrollments.AllEnrolledUsers(year.ID)
	}

	var programID uint
	var level int
	if _, err := fmt.Sscanf(target, "pl:%d:%d", &programID, &level); err != nil {
		return nil, router.ErrStale
	}
	links, err := c.Store.Catalog.ProgramSemesters(programID, nil, &level)
	if err != nil {
		return nil, err
	}
	ids := make([]uint, 0, len(links))
	for _, link := range links {
		ids = append(ids, link.ID)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	return c.Store.Enrollments.EnrolledUsers(year.ID, ids)
}
