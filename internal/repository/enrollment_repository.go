package repository

import (
	"errors"

	"github.com/skulebot/core/internal/models"
	"gorm.io/gorm"
)

// EnrollmentRepository covers enrollments and editor access requests.
type EnrollmentRepository interface {
	Enrollment(id uint) (*models.Enrollment, error)
	// Create surfaces the (user, academic year) unique violation as
	// ErrDuplicateEnrollment.
	Create(e *models.Enrollment) error
	Update(e *models.Enrollment) error
	Delete(id uint) error
	// UserEnrollments lists a user's enrollments, most recent year first.
	UserEnrollments(userID uint) ([]models.Enrollment, error)
	MostRecentUserEnrollment(userID uint) (*models.Enrollment, error)
	// EnrolledUsers lists distinct users enrolled in any of the given
	// program-semester links for one academic year.
	EnrolledUsers(academicYearID uint, programSemesterIDs []uint) ([]models.User, error)
	// AllEnrolledUsers lists distinct users with any enrollment in the year.
	AllEnrolledUsers(academicYearID uint) ([]models.User, error)

	AccessRequest(id uint) (*models.AccessRequest, error)
	AccessRequests(status string) ([]models.AccessRequest, error)
	// UserAccessRequests lists a user's access requests, most recent first.
	UserAccessRequests(userID uint, status string) ([]models.AccessRequest, error)
	CountGranted(userID uint) (int64, error)
	SaveAccessRequest(ar *models.AccessRequest) error
	DeleteAccessRequest(id uint) error
}

type enrollmentRepository struct {
	db *gorm.DB
}

func NewEnrollmentRepository(db *gorm.DB) EnrollmentRepository {
	return &enrollmentRepository{db: db}
}

func (r *enrollmentRepository) Enrollment(id uint) (*models.Enrollment, error) {
	var e models.Enrollment
	err := r.db.
		Preload("AcademicYear").
		Preload("ProgramSemester.Program").
		Preload("ProgramSemester.Semester").
		Preload("AccessRequest").
		First(&e, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &e, nil
}

func (r *enrollmentRepository) Create(e *models.Enrollment) error {
	// Nested transaction, so a unique violation rolls back to a savepoint
	// instead of poisoning the caller's surrounding transaction.
	err := r.db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(e).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateEnrollment
	}
	return err
}

func (r *enrollmentRepository) Update(e *models.Enrollment) error {
	return r.db.Save(e).Error
}

func (r *enrollmentRepository) Delete(id uint) error {
	return r.db.Select("AccessRequest").Delete(&models.Enrollment{ID: id}).Error
}

func (r *enrollmentRepository) UserEnrollments(userID uint) ([]models.Enrollment, error) {
	var enrollments []models.Enrollment
	err := r.db.
		Joins("JOIN academic_years ON academic_years.id = enrollments.academic_year_id").
		Where("enrollments.user_id = ?", userID).
		Order("academic_years.start DESC").
		Preload("AcademicYear").
		Preload("ProgramSemester.Program").
		Preload("ProgramSemester.Semester").
		Preload("AccessRequest").
		Find(&enrollments).Error
	return enrollments, err
}

func (r *enrollmentRepository) MostRecentUserEnrollment(userID uint) (*models.Enrollment, error) {
	var e models.Enrollment
	err := r.db.
		Joins("JOIN academic_years ON academic_years.id = enrollments.academic_year_id").
		Where("enrollments.user_id = ?", userID).
		Order("academic_years.start DESC").
		Preload("AcademicYear").
		Preload("ProgramSemester.Program").
		Preload("ProgramSemester.Semester").
		First(&e).Error
	if err != nil {
		return nil, translate(err)
	}
	return &e, nil
}

func (r *enrollmentRepository) EnrolledUsers(academicYearID uint, programSemesterIDs []uint) ([]models.User, error) {
	var users []models.User
	err := r.db.Model(&models.User{}).Distinct("users.*").
		Joins("JOIN enrollments ON enrollments.user_id = users.id").
		Where("enrollments.academic_year_id = ?", academicYearID).
		Where("enrollments.program_semester_id IN ?", programSemesterIDs).
		Find(&users).Error
	return users, err
}

func (r *enrollmentRepository) AllEnrolledUsers(academicYearID uint) ([]models.User, error) {
	var users []models.User
	err := r.db.Model(&models.User{}).Distinct("users.*").
		Joins("JOIN enrollments ON enrollments.user_id = users.id").
		Where("enrollments.academic_year_id = ?", academicYearID).
		Find(&users).Error
	return users, err
}

func (r *enrollmentRepository) AccessRequest(id uint) (*models.AccessRequest, error) {
	var ar models.AccessRequest
	err := r.db.
		Preload("Enrollment.User").
		Preload("Enrollment.AcademicYear").
		Preload("Enrollment.ProgramSemester.Program").
		Preload("Enrollment.ProgramSemester.Semester").
		Preload("VerificationFile").
		First(&ar, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &ar, nil
}

func (r *enrollmentRepository) AccessRequests(status string) ([]models.AccessRequest, error) {
	q := r.db.
		Preload("Enrollment.User").
		Preload("Enrollment.ProgramSemester.Program").
		Preload("Enrollment.ProgramSemester.Semester")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var requests []models.AccessRequest
	err := q.Find(&requests).Error
	return requests, err
}

func (r *enrollmentRepository) UserAccessRequests(userID uint, status string) ([]models.AccessRequest, error) {
	q := r.db.
		Joins("JOIN enrollments ON enrollments.id = access_requests.enrollment_id").
		Where("enrollments.user_id = ?", userID).
		Preload("Enrollment.ProgramSemester.Program").
		Preload("Enrollment.ProgramSemester.Semester")
	if status != "" {
		q = q.Where("access_requests.status = ?", status)
	}
	var requests []models.AccessRequest
	err := q.Order("access_requests.id DESC").Find(&requests).Error
	return requests, err
}

func (r *enrollmentRepository) CountGranted(userID uint) (int64, error) {
	var n int64
	err := r.db.Model(&models.AccessRequest{}).
		Joins("JOIN enrollments ON enrollments.id = access_requests.enrollment_id").
		Where("enrollments.user_id = ? AND access_requests.status = ?",
			userID, models.StatusGranted).
		Count(&n).Error
	return n, err
}

func (r *enrollmentRepository) SaveAccessRequest(ar *models.AccessRequest) error {
	return r.db.Save(ar).Error
}

func (r *enrollmentRepository) DeleteAccessRequest(id uint) error {
	return r.db.Delete(&models.AccessRequest{}, id).Error
}
