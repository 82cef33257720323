package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// AcademicYear is one academic year, e.g. start=2024, end=2025. The year with
// the greatest start is the default target for new enrollments.
type AcademicYear struct {
	ID        uint `gorm:"primaryKey"`
	Start     int  `gorm:"not null"`
	End       int  `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Semester is a global catalog entry identified by its number. Odd numbers are
// the first half of a level, even numbers the second half.
type Semester struct {
	ID     uint `gorm:"primaryKey"`
	Number int  `gorm:"uniqueIndex;not null"`
}

// Level is the academic-year ordinal this semester belongs to:
// semesters 1,2 -> level 1, semesters 3,4 -> level 2, and so on.
func (s Semester) Level() int {
	return (s.Number + 1) / 2
}

// PairNumber is the number of the other semester in the same level.
func (s Semester) PairNumber() int {
	if s.Number%2 == 0 {
		return s.Number - 1
	}
	return s.Number + 1
}

// Program is a degree program. Duration is the highest semester number the
// program may link courses into.
type Program struct {
	ID        uint   `gorm:"primaryKey"`
	EnName    string `gorm:"size:50;not null"`
	ArName    string `gorm:"size:50;not null"`
	Duration  int    `gorm:"not null"`
	Active    bool   `gorm:"not null;default:true"`
	LMSID     *int
	CreatedAt time.Time
	UpdatedAt time.Time

	SemesterLinks []ProgramSemester `gorm:"foreignKey:ProgramID;constraint:OnDelete:CASCADE"`
}

// Name returns the localized program name.
func (p Program) Name(lang string) string {
	if lang == LangAR {
		return p.ArName
	}
	return p.EnName
}

// ProgramSemester links a program to one of its semesters and carries the
// availability flag. Availability is always toggled for both semesters of a
// level together; see services.CatalogService.
type ProgramSemester struct {
	ID         uint `gorm:"primaryKey"`
	ProgramID  uint `gorm:"not null;uniqueIndex:idx_program_semester"`
	SemesterID uint `gorm:"not null;uniqueIndex:idx_program_semester"`
	Available  bool `gorm:"not null;default:false"`
	LMSID      *int

	Program  Program
	Semester Semester
}

// Department groups courses. Courses may have no department; listings use a
// zero id as the "no department" filter.
type Department struct {
	ID        uint   `gorm:"primaryKey"`
	EnName    string `gorm:"size:50;not null"`
	ArName    string `gorm:"size:50;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Courses []Course `gorm:"foreignKey:DepartmentID"`
}

// Name returns the localized department name.
func (d Department) Name(lang string) string {
	if lang == LangAR {
		return d.ArName
	}
	return d.EnName
}

// Course is one taught course.
type Course struct {
	ID           uint   `gorm:"primaryKey"`
	EnName       string `gorm:"size:100;not null"`
	ArName       string `gorm:"size:100;not null"`
	EnCode       string `gorm:"size:30"`
	ArCode       string `gorm:"size:30"`
	Credits      *int
	LMSID        *int
	DepartmentID *uint
	CreatedAt    time.Time
	UpdatedAt    time.Time

	Department *Department
}

// Name returns the localized course name.
func (c Course) Name(lang string) string {
	if lang == LangAR {
		return c.ArName
	}
	return c.EnName
}

// ErrSemesterExceedsDuration is returned when linking a course into a
// semester whose number is greater than the program's duration.
var ErrSemesterExceedsDuration = errors.New("semester number is greater than program duration")

// ProgramSemesterCourse places a course in exactly one (program, semester)
// pair; (program, course) is unique, so moving a course between semesters is
// an update, never a second row.
type ProgramSemesterCourse struct {
	ID         uint `gorm:"primaryKey"`
	ProgramID  uint `gorm:"not null;uniqueIndex:idx_program_course"`
	SemesterID uint `gorm:"not null"`
	CourseID   uint `gorm:"not null;uniqueIndex:idx_program_course"`
	Optional   bool `gorm:"not null;default:false"`

	Program  Program
	Semester Semester
	Course   Course
}

// BeforeSave rejects links into semesters beyond the program duration. It
// fires for both creates and semester moves.
func (psc *ProgramSemesterCourse) BeforeSave(tx *gorm.DB) error {
	var program Program
	if err := tx.Select("duration").First(&program, psc.ProgramID).Error; err != nil {
		return err
	}
	var semester Semester
	if err := tx.Select("number").First(&semester, psc.SemesterID).Error; err != nil {
		return err
	}
	if semester.Number > program.Duration {
		return ErrSemesterExceedsDuration
	}
	return nil
}
