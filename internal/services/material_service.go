package services

import (
	"errors"
	"time"

	"github.com/skulebot/core/internal/models"
	"github.com/skulebot/core/internal/repository"
)

var (
	// ErrNoFiles is returned when publishing a material with no attachments.
	ErrNoFiles = errors.New("material has no files to publish")

	// ErrKindNotAccepted is returned when attaching a media kind the
	// material's type does not allow.
	ErrKindNotAccepted = errors.New("material type does not accept this media kind")

	// ErrFileExists is returned when attaching a second file to a
	// single-file material.
	ErrFileExists = errors.New("single-file material already has its file")
)

// MaterialService creates and mutates course materials.
type MaterialService struct {
	store *repository.Store
}

func NewMaterialService(store *repository.Store) *MaterialService {
	return &MaterialService{store: store}
}

// CreateNumbered creates the next lecture, tutorial, lab or assignment for
// (course, year). Numbers continue from the highest ever used, so deleting
// lecture 3 never renames lecture 4.
func (s *MaterialService) CreateNumbered(courseID, yearID uint, t models.MaterialType, deadline *time.Time) (*models.Material, error) {
	number, err := s.store.Materials.NextNumber(courseID, yearID, t)
	if err != nil {
		return nil, err
	}
	m := &models.Material{
		Type:           t,
		CourseID:       courseID,
		AcademicYearID: yearID,
		Number:         number,
		Deadline:       deadline,
	}
	if err := s.store.Materials.Create(m); err != nil {
		return nil, err
	}
	return m, nil
}

// CreateSingleFile creates a reference, sheet or tool around its one file.
func (s *MaterialService) CreateSingleFile(courseID, yearID uint, t models.MaterialType, file *models.File) (*models.Material, error) {
	if !t.Accepts(file.Kind) {
		return nil, ErrKindNotAccepted
	}
	m := &models.Material{
		Type:           t,
		CourseID:       courseID,
		AcademicYearID: yearID,
	}
	if err := s.store.Materials.Create(m); err != nil {
		return nil, err
	}
	file.MaterialID = &m.ID
	if err := s.store.Materials.CreateFile(file); err != nil {
		return nil, err
	}
	m.Files = []models.File{*file}
	return m, nil
}

// CreateReview creates a named, dated review.
func (s *MaterialService) CreateReview(courseID, yearID uint, enName, arName string, date *time.Time) (*models.Material, error) {
	m := &models.Material{
		Type:           models.TypeReview,
		CourseID:       courseID,
		AcademicYearID: yearID,
		EnName:         enName,
		ArName:         arName,
		Date:           date,
	}
	if err := s.store.Materials.Create(m); err != nil {
		return nil, err
	}
	return m, nil
}

// AttachFile adds an uploaded file to a material, enforcing the type's
// media capabilities and the single-file limit.
func (s *MaterialService) AttachFile(materialID uint, file *models.File) error {
	m, err := s.store.Materials.Material(materialID)
	if err != nil {
		return err
	}
	if !m.Type.Accepts(file.Kind) {
		return ErrKindNotAccepted
	}
	if m.Type.SingleFile() && len(m.Files) > 0 {
		return ErrFileExists
	}
	file.MaterialID = &m.ID
	return s.store.Materials.CreateFile(file)
}

// Publish makes a material visible to students. An empty material cannot be
// published.
func (s *MaterialService) Publish(materialID uint) (*models.Material, error) {
	m, err := s.store.Materials.Material(materialID)
	if err != nil {
		return nil, err
	}
	if len(m.Files) == 0 {
		return nil, ErrNoFiles
	}
	if m.Published {
		return m, nil
	}
	m.Published = true
	if err := s.store.Materials.Update(m); err != nil {
		return nil, err
	}
	return m, nil
}

// SetDeadline sets or clears an assignment's deadline.
func (s *MaterialService) SetDeadline(materialID uint, deadline *time.Time) error {
	m, err := s.store.Materials.Material(materialID)
	if err != nil {
		return err
	}
	m.Deadline = deadline
	return s.store.Materials.Update(m)
}
