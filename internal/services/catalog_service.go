package services

import (
	"errors"

	"github.com/skulebot/core/internal/models"
	"github.com/skulebot/core/internal/repository"
)

// ErrCoursePlaced is returned when linking a course into a program it is
// already placed in; a course sits in exactly one semester per program and
// must be moved, not linked twice.
var ErrCoursePlaced = errors.New("course is already placed in this program")

// CatalogService maintains programs, their semester links, and course
// placements.
type CatalogService struct {
	store *repository.Store
}

func NewCatalogService(store *repository.Store) *CatalogService {
	return &CatalogService{store: store}
}

// CreateProgram stores a program and links it to every semester up to its
// duration. Links start unavailable so students cannot enroll before an
// admin opens the level.
func (s *CatalogService) CreateProgram(p *models.Program) error {
	if err := s.store.Catalog.CreateProgram(p); err != nil {
		return err
	}
	return s.ensureSemesterLinks(p)
}

// UpdateProgram saves changes and creates any semester links a longer
// duration now calls for. Links beyond a shortened duration are kept but no
// longer listed.
func (s *CatalogService) UpdateProgram(p *models.Program) error {
	if err := s.store.Catalog.UpdateProgram(p); err != nil {
		return err
	}
	return s.ensureSemesterLinks(p)
}

func (s *CatalogService) ensureSemesterLinks(p *models.Program) error {
	semesters, err := s.store.Catalog.Semesters()
	if err != nil {
		return err
	}
	for _, sem := range semesters {
		if sem.Number > p.Duration {
			continue
		}
		existing, err := s.store.Catalog.ProgramSemesterFor(p.ID, sem.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}
		link := &models.ProgramSemester{ProgramID: p.ID, SemesterID: sem.ID}
		if err := s.store.Catalog.SaveProgramSemester(link); err != nil {
			return err
		}
	}
	return nil
}

// SetLevelAvailability opens or closes enrollment for both semesters of the
// level containing programSemesterID. The two semesters of a level always
// move together, otherwise a student progressing mid-year would be locked
// out of the second half.
func (s *CatalogService) SetLevelAvailability(programSemesterID uint, available bool) error {
	ps, err := s.store.Catalog.ProgramSemester(programSemesterID)
	if err != nil {
		return err
	}
	pair, err := s.store.Catalog.SemesterByNumber(ps.Semester.PairNumber())
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	ps.Available = available
	if err := s.store.Catalog.SaveProgramSemester(ps); err != nil {
		return err
	}
	if pair == nil {
		return nil
	}
	pairLink, err := s.store.Catalog.ProgramSemesterFor(ps.ProgramID, pair.ID)
	if err != nil {
		return err
	}
	if pairLink == nil || pairLink.Available == available {
		return nil
	}
	pairLink.Available = available
	return s.store.Catalog.SaveProgramSemester(pairLink)
}

// PlaceCourse links a course into a (program, semester). When the course is
// already placed anywhere in the program, the existing placement is
// returned with ErrCoursePlaced so the caller can offer a move instead.
func (s *CatalogService) PlaceCourse(programID, semesterID, courseID uint, optional bool) (*models.ProgramSemesterCourse, error) {
	existing, err := s.store.Courses.PlacementFor(programID, courseID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, ErrCoursePlaced
	}
	psc := &models.ProgramSemesterCourse{
		ProgramID:  programID,
		SemesterID: semesterID,
		CourseID:   courseID,
		Optional:   optional,
	}
	if err := s.store.Courses.SavePlacement(psc); err != nil {
		return nil, err
	}
	return psc, nil
}

// MovePlacement moves an existing placement into another semester of the
// same program.
func (s *CatalogService) MovePlacement(placementID, semesterID uint) error {
	psc, err := s.store.Courses.ProgramSemesterCourse(placementID)
	if err != nil {
		return err
	}
	psc.SemesterID = semesterID
	return s.store.Courses.SavePlacement(psc)
}
