package handlers

import (
	"fmt"

	"github.com/skulebot/core/internal/models"
)

// tr picks the string matching the user's language.
func tr(lang, en, ar string) string {
	if lang == models.LangAR {
		return ar
	}
	return en
}

// yearLabel renders an academic year as "2024-2025".
func yearLabel(y models.AcademicYear) string {
	return fmt.Sprintf("%d-%d", y.Start, y.End)
}

// semesterLabel renders a semester in the user's language.
func semesterLabel(lang string, number int) string {
	return fmt.Sprintf(tr(lang, "Semester %d", "الفصل %d"), number)
}

// levelLabel renders a level (academic-year ordinal) in the user's
// language.
func levelLabel(lang string, level int) string {
	return fmt.Sprintf(tr(lang, "Level %d", "المستوى %d"), level)
}

func backLabel(lang string) string {
	return tr(lang, "« Back", "« رجوع")
}

func notImplemented(lang string) string {
	return tr(lang, "This isn't available yet.", "هذه الخاصية غير متاحة بعد.")
}
