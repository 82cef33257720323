package repository

import (
	"errors"

	"github.com/skulebot/core/internal/models"
	"gorm.io/gorm"
)

// CourseRepository covers courses and their placement in program curricula.
type CourseRepository interface {
	Course(id uint) (*models.Course, error)
	CreateCourse(c *models.Course) error
	UpdateCourse(c *models.Course) error
	DeleteCourse(id uint) error
	// CourseByLMSID matches a previously imported course; nil, nil when the
	// LMS id is unknown.
	CourseByLMSID(lmsID int) (*models.Course, error)
	// DepartmentCourses lists courses of one department ordered by english
	// name. A zero departmentID selects courses with no department.
	DepartmentCourses(departmentID uint) ([]models.Course, error)

	// ProgramSemesterCourse looks a placement up by its own id.
	ProgramSemesterCourse(id uint) (*models.ProgramSemesterCourse, error)
	// PlacementFor finds the placement of a course within a program; returns
	// nil, nil when the course is not linked anywhere in the program.
	PlacementFor(programID, courseID uint) (*models.ProgramSemesterCourse, error)
	// Placements lists placements of a (program, semester); semesterID zero
	// lists the whole program. optional filters on the flag.
	Placements(programID, semesterID uint, optional *bool) ([]models.ProgramSemesterCourse, error)
	// CoursePlacements lists every placement of one course across all
	// programs, used to find who a course's materials are addressed to.
	CoursePlacements(courseID uint) ([]models.ProgramSemesterCourse, error)
	SavePlacement(psc *models.ProgramSemesterCourse) error
	DeletePlacement(id uint) error
	HasOptionalCourses(programID, semesterID uint) (bool, error)

	// UserCourses returns the required courses of (program, semester) plus
	// the optional ones this user opted into, required first, each group
	// ordered by localized name.
	UserCourses(programID, semesterID, userID uint, lang string) ([]models.Course, error)

	UserOptionalCourse(userID, placementID uint) (*models.UserOptionalCourse, error)
	CreateUserOptionalCourse(uoc *models.UserOptionalCourse) error
	DeleteUserOptionalCourse(id uint) error
}

type courseRepository struct {
	db *gorm.DB
}

func NewCourseRepository(db *gorm.DB) CourseRepository {
	return &courseRepository{db: db}
}

func (r *courseRepository) Course(id uint) (*models.Course, error) {
	var course models.Course
	if err := r.db.Preload("Department").First(&course, id).Error; err != nil {
		return nil, translate(err)
	}
	return &course, nil
}

func (r *courseRepository) CreateCourse(c *models.Course) error {
	return r.db.Create(c).Error
}

func (r *courseRepository) UpdateCourse(c *models.Course) error {
	return r.db.Save(c).Error
}

func (r *courseRepository) DeleteCourse(id uint) error {
	return r.db.Delete(&models.Course{}, id).Error
}

func (r *courseRepository) CourseByLMSID(lmsID int) (*models.Course, error) {
	var course models.Course
	err := r.db.Where("lms_id = ?", lmsID).First(&course).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &course, nil
}

func (r *courseRepository) DepartmentCourses(departmentID uint) ([]models.Course, error) {
	q := r.db.Order("en_name")
	if departmentID == 0 {
		q = q.Where("department_id IS NULL")
	} else {
		q = q.Where("department_id = ?", departmentID)
	}
	var courses []models.Course
	err := q.Find(&courses).Error
	return courses, err
}

func (r *courseRepository) ProgramSemesterCourse(id uint) (*models.ProgramSemesterCourse, error) {
	var psc models.ProgramSemesterCourse
	err := r.db.Preload("Program").Preload("Semester").Preload("Course").
		First(&psc, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &psc, nil
}

func (r *courseRepository) PlacementFor(programID, courseID uint) (*models.ProgramSemesterCourse, error) {
	var psc models.ProgramSemesterCourse
	err := r.db.Preload("Semester").Preload("Course").
		Where("program_id = ? AND course_id = ?", programID, courseID).
		First(&psc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &psc, nil
}

func (r *courseRepository) Placements(programID, semesterID uint, optional *bool) ([]models.ProgramSemesterCourse, error) {
	q := r.db.Preload("Course").Preload("Semester").
		Where("program_id = ?", programID)
	if semesterID != 0 {
		q = q.Where("semester_id = ?", semesterID)
	}
	if optional != nil {
		q = q.Where("optional = ?", *optional)
	}
	var placements []models.ProgramSemesterCourse
	err := q.Find(&placements).Error
	return placements, err
}

func (r *courseRepository) CoursePlacements(courseID uint) ([]models.ProgramSemesterCourse, error) {
	var placements []models.ProgramSemesterCourse
	err := r.db.Preload("Program").Preload("Semester").
		Where("course_id = ?", courseID).
		Find(&placements).Error
	return placements, err
}

func (r *courseRepository) SavePlacement(psc *models.ProgramSemesterCourse) error {
	return r.db.Save(psc).Error
}

func (r *courseRepository) DeletePlacement(id uint) error {
	return r.db.Delete(&models.ProgramSemesterCourse{}, id).Error
}

func (r *courseRepository) HasOptionalCourses(programID, semesterID uint) (bool, error) {
	var n int64
	err := r.db.Model(&models.ProgramSemesterCourse{}).
		Where("program_id = ? AND semester_id = ? AND optional = ?",
			programID, semesterID, true).
		Count(&n).Error
	return n > 0, err
}

func (r *courseRepository) UserCourses(programID, semesterID, userID uint, lang string) ([]models.Course, error) {
	nameCol := "courses.en_name"
	if lang == models.LangAR {
		nameCol = "courses.ar_name"
	}
	var courses []models.Course
	err := r.db.Model(&models.Course{}).
		Joins("JOIN program_semester_courses psc ON psc.course_id = courses.id").
		Joins("LEFT JOIN user_optional_courses uoc ON uoc.program_semester_course_id = psc.id AND uoc.user_id = ?", userID).
		Where("psc.program_id = ? AND psc.semester_id = ?", programID, semesterID).
		Where("psc.optional = ? OR uoc.id IS NOT NULL", false).
		Order("psc.optional, " + nameCol).
		Find(&courses).Error
	return courses, err
}

func (r *courseRepository) UserOptionalCourse(userID, placementID uint) (*models.UserOptionalCourse, error) {
	var uoc models.UserOptionalCourse
	err := r.db.Where("user_id = ? AND program_semester_course_id = ?",
		userID, placementID).First(&uoc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &uoc, nil
}

func (r *courseRepository) CreateUserOptionalCourse(uoc *models.UserOptionalCourse) error {
	return r.db.Create(uoc).Error
}

func (r *courseRepository) DeleteUserOptionalCourse(id uint) error {
	return r.db.Delete(&models.UserOptionalCourse{}, id).Error
}
