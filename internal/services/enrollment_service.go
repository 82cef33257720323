package services

import (
	"errors"

	"github.com/skulebot/core/internal/models"
	"github.com/skulebot/core/internal/repository"
)

// ErrRequestOpen is returned when an enrollment already carries a pending
// or granted access request.
var ErrRequestOpen = errors.New("enrollment already has an open access request")

// EnrollmentService handles the enrollment lifecycle, optional-course
// choices and editor access requests.
type EnrollmentService struct {
	store *repository.Store
}

func NewEnrollmentService(store *repository.Store) *EnrollmentService {
	return &EnrollmentService{store: store}
}

// Enroll registers a user into (year, program-semester). Model hooks reject
// even starting semesters; a second enrollment in the same year surfaces as
// repository.ErrDuplicateEnrollment.
func (s *EnrollmentService) Enroll(userID, academicYearID, programSemesterID uint) (*models.Enrollment, error) {
	e := &models.Enrollment{
		UserID:            userID,
		AcademicYearID:    academicYearID,
		ProgramSemesterID: programSemesterID,
	}
	if err := s.store.Enrollments.Create(e); err != nil {
		return nil, err
	}
	return s.store.Enrollments.Enrollment(e.ID)
}

// ChangeSemester moves an enrollment to another semester of its program.
// Model hooks restrict the move to the adjacent semester within the level.
func (s *EnrollmentService) ChangeSemester(enrollmentID, programSemesterID uint) error {
	e, err := s.store.Enrollments.Enrollment(enrollmentID)
	if err != nil {
		return err
	}
	e.ProgramSemesterID = programSemesterID
	return s.store.Enrollments.Update(e)
}

// ToggleOptionalCourse flips the user's opt-in for an optional placement
// and reports the resulting state.
func (s *EnrollmentService) ToggleOptionalCourse(userID, placementID uint) (bool, error) {
	existing, err := s.store.Courses.UserOptionalCourse(userID, placementID)
	if err != nil {
		return false, err
	}
	if existing != nil {
		return false, s.store.Courses.DeleteUserOptionalCourse(existing.ID)
	}
	uoc := &models.UserOptionalCourse{
		UserID:                  userID,
		ProgramSemesterCourseID: placementID,
	}
	return true, s.store.Courses.CreateUserOptionalCourse(uoc)
}

// RequestAccess opens an editor access request for an enrollment, with an
// optional verification document. A rejected request is reopened in place;
// a pending or granted one is left alone.
func (s *EnrollmentService) RequestAccess(enrollmentID uint, verificationFileID *uint) (*models.AccessRequest, error) {
	e, err := s.store.Enrollments.Enrollment(enrollmentID)
	if err != nil {
		return nil, err
	}
	ar := e.AccessRequest
	if ar == nil {
		ar = &models.AccessRequest{EnrollmentID: enrollmentID}
	}
	switch ar.Status {
	case models.StatusPending, models.StatusGranted:
		return ar, ErrRequestOpen
	}
	ar.Status = models.StatusPending
	ar.VerificationFileID = verificationFileID
	if err := s.store.Enrollments.SaveAccessRequest(ar); err != nil {
		return nil, err
	}
	return ar, nil
}

// SetRequestStatus records the admin decision on an access request.
func (s *EnrollmentService) SetRequestStatus(requestID uint, status string) (*models.AccessRequest, error) {
	ar, err := s.store.Enrollments.AccessRequest(requestID)
	if err != nil {
		return nil, err
	}
	ar.Status = status
	if err := s.store.Enrollments.SaveAccessRequest(ar); err != nil {
		return nil, err
	}
	return ar, nil
}

// RevokeAccess deletes a granted request outright, so the enrollment is
// free to request again from scratch. The request entity is returned for
// the caller to notify the former editor.
func (s *EnrollmentService) RevokeAccess(requestID uint) (*models.AccessRequest, error) {
	ar, err := s.store.Enrollments.AccessRequest(requestID)
	if err != nil {
		return nil, err
	}
	if err := s.store.Enrollments.DeleteAccessRequest(ar.ID); err != nil {
		return nil, err
	}
	return ar, nil
}
