package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

var (
	// ErrEvenSemester is returned when an initial enrollment targets an
	// even-numbered semester.
	ErrEvenSemester = errors.New("initial enrollment must target an odd-numbered semester")

	// ErrSemesterJump is returned when an enrollment update leaves the
	// current level pair instead of moving to the adjacent semester.
	ErrSemesterJump = errors.New("new semester must be adjacent within the same level")

	// ErrProgramChange is returned when an enrollment update would switch
	// the enrollment to a different program.
	ErrProgramChange = errors.New("enrollment program cannot change")
)

// Enrollment registers a user into one (program, semester) for one academic
// year. A user has at most one enrollment per academic year.
type Enrollment struct {
	ID                uint `gorm:"primaryKey"`
	UserID            uint `gorm:"not null;uniqueIndex:idx_user_year"`
	AcademicYearID    uint `gorm:"not null;uniqueIndex:idx_user_year"`
	ProgramSemesterID uint `gorm:"not null"`
	CreatedAt         time.Time
	UpdatedAt         time.Time

	User            User
	AcademicYear    AcademicYear
	ProgramSemester ProgramSemester
	AccessRequest   *AccessRequest `gorm:"foreignKey:EnrollmentID;constraint:OnDelete:CASCADE"`
}

func programSemesterOf(tx *gorm.DB, id uint) (*ProgramSemester, error) {
	var ps ProgramSemester
	if err := tx.Preload("Semester").First(&ps, id).Error; err != nil {
		return nil, err
	}
	return &ps, nil
}

// BeforeCreate enforces the odd-semester rule for initial enrollments.
func (e *Enrollment) BeforeCreate(tx *gorm.DB) error {
	ps, err := programSemesterOf(tx, e.ProgramSemesterID)
	if err != nil {
		return err
	}
	if ps.Semester.Number%2 == 0 {
		return ErrEvenSemester
	}
	return nil
}

// BeforeUpdate enforces the progression rules: the semester may stay, or move
// to the other semester of the same level; the program can never change.
func (e *Enrollment) BeforeUpdate(tx *gorm.DB) error {
	var stored Enrollment
	if err := tx.Session(&gorm.Session{NewDB: true}).
		First(&stored, e.ID).Error; err != nil {
		return err
	}
	if stored.ProgramSemesterID == e.ProgramSemesterID {
		return nil
	}

	oldPS, err := programSemesterOf(tx, stored.ProgramSemesterID)
	if err != nil {
		return err
	}
	newPS, err := programSemesterOf(tx, e.ProgramSemesterID)
	if err != nil {
		return err
	}
	if oldPS.ProgramID != newPS.ProgramID {
		return ErrProgramChange
	}

	oldNum, newNum := oldPS.Semester.Number, newPS.Semester.Number
	forward := newNum == oldNum+1 && newNum%2 == 0
	backward := newNum == oldNum-1 && newNum%2 == 1
	if !forward && !backward {
		return ErrSemesterJump
	}
	return nil
}

// Access request lifecycle states. There is no revoked state: revoking
// deletes the request record outright.
const (
	StatusPending  = "pending"
	StatusGranted  = "granted"
	StatusRejected = "rejected"
)

// AccessRequest is a student's application for editor rights, scoped to a
// single enrollment. A user holds the editor role while at least one of their
// requests is granted.
type AccessRequest struct {
	ID                 uint   `gorm:"primaryKey"`
	EnrollmentID       uint   `gorm:"uniqueIndex;not null"`
	Status             string `gorm:"size:50;not null"`
	VerificationFileID *uint
	CreatedAt          time.Time
	UpdatedAt          time.Time

	Enrollment       Enrollment
	VerificationFile *File `gorm:"foreignKey:VerificationFileID"`
}

// UserOptionalCourse records a student's opt-in to an optional course.
type UserOptionalCourse struct {
	ID                      uint `gorm:"primaryKey"`
	UserID                  uint `gorm:"not null;uniqueIndex:idx_user_psc"`
	ProgramSemesterCourseID uint `gorm:"not null;uniqueIndex:idx_user_psc"`

	User                  User
	ProgramSemesterCourse ProgramSemesterCourse
}
