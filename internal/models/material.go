package models

import (
	"time"
)

// MaterialType tags the closed set of material variants.
type MaterialType string

const (
	TypeLecture    MaterialType = "lecture"
	TypeTutorial   MaterialType = "tutorial"
	TypeLab        MaterialType = "lab"
	TypeAssignment MaterialType = "assignment"
	TypeReference  MaterialType = "reference"
	TypeSheet      MaterialType = "sheet"
	TypeTool       MaterialType = "tool"
	TypeReview     MaterialType = "review"
)

// MaterialTypes lists every variant in display order.
var MaterialTypes = []MaterialType{
	TypeLecture, TypeTutorial, TypeLab, TypeReference,
	TypeSheet, TypeTool, TypeAssignment, TypeReview,
}

// Numbered reports whether the variant carries a per-(course, year) sequence
// number.
func (t MaterialType) Numbered() bool {
	switch t {
	case TypeLecture, TypeTutorial, TypeLab, TypeAssignment:
		return true
	}
	return false
}

// SingleFile reports whether the variant holds exactly one file.
func (t MaterialType) SingleFile() bool {
	switch t {
	case TypeReference, TypeSheet, TypeTool:
		return true
	}
	return false
}

// Label returns the variant's display name in the given language.
func (t MaterialType) Label(lang string) string {
	labels := map[MaterialType][2]string{
		TypeLecture:    {"Lecture", "محاضرة"},
		TypeTutorial:   {"Tutorial", "سكشن"},
		TypeLab:        {"Lab", "معمل"},
		TypeAssignment: {"Assignment", "تكليف"},
		TypeReference:  {"Reference", "مرجع"},
		TypeSheet:      {"Sheet", "ملزمة"},
		TypeTool:       {"Tool", "أداة"},
		TypeReview:     {"Review", "مراجعة"},
	}
	pair, ok := labels[t]
	if !ok {
		return string(t)
	}
	if lang == LangAR {
		return pair[1]
	}
	return pair[0]
}

// Media kinds a material may accept as attachments.
const (
	MediaDocument = "document"
	MediaVideo    = "video"
	MediaPhoto    = "photo"
	MediaVoice    = "voice"
)

// MediaKinds is the capability table consulted when accepting uploads.
func (t MaterialType) MediaKinds() []string {
	switch t {
	case TypeLecture, TypeTutorial, TypeLab, TypeAssignment:
		return []string{MediaDocument, MediaVideo}
	case TypeReview:
		return []string{MediaDocument, MediaPhoto}
	default:
		return []string{MediaDocument}
	}
}

// Accepts reports whether the variant allows attachments of the given kind.
func (t MaterialType) Accepts(kind string) bool {
	for _, k := range t.MediaKinds() {
		if k == kind {
			return true
		}
	}
	return false
}

// Material is the polymorphic course-content record, stored as a single table
// dispatched on Type. Number is set for numbered variants, Deadline for
// assignments, and EnName/ArName/Date for reviews.
type Material struct {
	ID             uint         `gorm:"primaryKey"`
	Type           MaterialType `gorm:"size:20;not null;index"`
	CourseID       uint         `gorm:"not null;index"`
	AcademicYearID uint         `gorm:"not null;index"`
	Published      bool         `gorm:"not null;default:false"`

	Number   int
	Deadline *time.Time
	EnName   string `gorm:"size:30"`
	ArName   string `gorm:"size:30"`
	Date     *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time

	Course       Course
	AcademicYear AcademicYear
	Files        []File `gorm:"foreignKey:MaterialID;constraint:OnDelete:CASCADE"`
}

// Name returns the localized review name, falling back to whichever of the
// two was authored.
func (m Material) Name(lang string) string {
	if lang == LangAR && m.ArName != "" {
		return m.ArName
	}
	if m.EnName != "" {
		return m.EnName
	}
	return m.ArName
}

// File is an uploaded attachment. MaterialID stays nil until the file is
// attached to a material.
type File struct {
	ID         uint   `gorm:"primaryKey"`
	TelegramID string `gorm:"size:200;not null"`
	Name       string `gorm:"size:150;not null"`
	Kind       string `gorm:"size:30;not null"`
	Source     string `gorm:"size:200"`
	MaterialID *uint  `gorm:"index"`
	UploaderID uint   `gorm:"not null"`
	CreatedAt  time.Time

	Uploader User `gorm:"foreignKey:UploaderID"`
}
