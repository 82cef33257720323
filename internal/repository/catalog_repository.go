package repository

import (
	"errors"

	"github.com/skulebot/core/internal/models"
	"gorm.io/gorm"
)

// CatalogRepository covers the academic catalog: years, semesters, programs,
// departments and the program/semester association.
type CatalogRepository interface {
	AcademicYears() ([]models.AcademicYear, error)
	AcademicYear(id uint) (*models.AcademicYear, error)
	MostRecentAcademicYear() (*models.AcademicYear, error)
	CreateAcademicYear(year *models.AcademicYear) error
	DeleteAcademicYear(id uint) error

	Semesters() ([]models.Semester, error)
	// ProgramSemestersAll returns the semesters whose numbers fall within the
	// program's duration, ordered by number.
	SemestersForProgram(programID uint) ([]models.Semester, error)
	Semester(id uint) (*models.Semester, error)
	SemesterByNumber(number int) (*models.Semester, error)
	CreateSemester(sem *models.Semester) error
	DeleteSemester(id uint) error

	Programs() ([]models.Program, error)
	Program(id uint) (*models.Program, error)
	// ProgramByLMSID matches a previously imported program; nil, nil when
	// the LMS id is unknown.
	ProgramByLMSID(lmsID int) (*models.Program, error)
	CreateProgram(p *models.Program) error
	UpdateProgram(p *models.Program) error
	DeleteProgram(id uint) error

	Departments() ([]models.Department, error)
	Department(id uint) (*models.Department, error)
	CreateDepartment(d *models.Department) error
	UpdateDepartment(d *models.Department) error
	DeleteDepartment(id uint) error

	// ProgramSemester looks the association up by its own id.
	ProgramSemester(id uint) (*models.ProgramSemester, error)
	// ProgramSemesterFor looks the association up by (program, semester);
	// returns nil, nil when absent.
	ProgramSemesterFor(programID, semesterID uint) (*models.ProgramSemester, error)
	// ProgramSemesters lists associations for a program ordered by semester
	// number. available filters on the flag; level restricts to the odd/even
	// pair of that level.
	ProgramSemesters(programID uint, available *bool, level *int) ([]models.ProgramSemester, error)
	SaveProgramSemester(ps *models.ProgramSemester) error
}

type catalogRepository struct {
	db *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) CatalogRepository {
	return &catalogRepository{db: db}
}

func (r *catalogRepository) AcademicYears() ([]models.AcademicYear, error) {
	var years []models.AcademicYear
	err := r.db.Order("start DESC").Find(&years).Error
	return years, err
}

func (r *catalogRepository) AcademicYear(id uint) (*models.AcademicYear, error) {
	var year models.AcademicYear
	if err := r.db.First(&year, id).Error; err != nil {
		return nil, translate(err)
	}
	return &year, nil
}

func (r *catalogRepository) MostRecentAcademicYear() (*models.AcademicYear, error) {
	var year models.AcademicYear
	if err := r.db.Order("start DESC").First(&year).Error; err != nil {
		return nil, translate(err)
	}
	return &year, nil
}

func (r *catalogRepository) CreateAcademicYear(year *models.AcademicYear) error {
	return r.db.Create(year).Error
}

func (r *catalogRepository) DeleteAcademicYear(id uint) error {
	return r.db.Delete(&models.AcademicYear{}, id).Error
}

func (r *catalogRepository) Semesters() ([]models.Semester, error) {
	var semesters []models.Semester
	err := r.db.Order("number").Find(&semesters).Error
	return semesters, err
}

func (r *catalogRepository) SemestersForProgram(programID uint) ([]models.Semester, error) {
	var program models.Program
	if err := r.db.Select("duration").First(&program, programID).Error; err != nil {
		return nil, translate(err)
	}
	var semesters []models.Semester
	err := r.db.Where("number <= ?", program.Duration).
		Order("number").Find(&semesters).Error
	return semesters, err
}

func (r *catalogRepository) Semester(id uint) (*models.Semester, error) {
	var sem models.Semester
	if err := r.db.First(&sem, id).Error; err != nil {
		return nil, translate(err)
	}
	return &sem, nil
}

func (r *catalogRepository) SemesterByNumber(number int) (*models.Semester, error) {
	var sem models.Semester
	if err := r.db.Where("number = ?", number).First(&sem).Error; err != nil {
		return nil, translate(err)
	}
	return &sem, nil
}

func (r *catalogRepository) CreateSemester(sem *models.Semester) error {
	return r.db.Create(sem).Error
}

func (r *catalogRepository) DeleteSemester(id uint) error {
	return r.db.Delete(&models.Semester{}, id).Error
}

func (r *catalogRepository) Programs() ([]models.Program, error) {
	var programs []models.Program
	err := r.db.Order("id").Find(&programs).Error
	return programs, err
}

func (r *catalogRepository) ProgramByLMSID(lmsID int) (*models.Program, error) {
	var program models.Program
	err := r.db.Where("lms_id = ?", lmsID).First(&program).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &program, nil
}

func (r *catalogRepository) Program(id uint) (*models.Program, error) {
	var program models.Program
	if err := r.db.First(&program, id).Error; err != nil {
		return nil, translate(err)
	}
	return &program, nil
}

func (r *catalogRepository) CreateProgram(p *models.Program) error {
	return r.db.Create(p).Error
}

func (r *catalogRepository) UpdateProgram(p *models.Program) error {
	return r.db.Save(p).Error
}

func (r *catalogRepository) DeleteProgram(id uint) error {
	return r.db.Select("SemesterLinks").Delete(&models.Program{ID: id}).Error
}

func (r *catalogRepository) Departments() ([]models.Department, error) {
	var departments []models.Department
	err := r.db.Order("en_name").Find(&departments).Error
	return departments, err
}

func (r *catalogRepository) Department(id uint) (*models.Department, error) {
	var dep models.Department
	if err := r.db.First(&dep, id).Error; err != nil {
		return nil, translate(err)
	}
	return &dep, nil
}

func (r *catalogRepository) CreateDepartment(d *models.Department) error {
	return r.db.Create(d).Error
}

func (r *catalogRepository) UpdateDepartment(d *models.Department) error {
	return r.db.Save(d).Error
}

func (r *catalogRepository) DeleteDepartment(id uint) error {
	return r.db.Delete(&models.Department{}, id).Error
}

func (r *catalogRepository) ProgramSemester(id uint) (*models.ProgramSemester, error) {
	var ps models.ProgramSemester
	if err := r.db.Preload("Program").Preload("Semester").
		First(&ps, id).Error; err != nil {
		return nil, translate(err)
	}
	return &ps, nil
}

func (r *catalogRepository) ProgramSemesterFor(programID, semesterID uint) (*models.ProgramSemester, error) {
	var ps models.ProgramSemester
	err := r.db.Preload("Semester").
		Where("program_id = ? AND semester_id = ?", programID, semesterID).
		First(&ps).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ps, nil
}

func (r *catalogRepository) ProgramSemesters(programID uint, available *bool, level *int) ([]models.ProgramSemester, error) {
	q := r.db.Model(&models.ProgramSemester{}).
		Joins("JOIN semesters ON semesters.id = program_semesters.semester_id").
		Where("program_semesters.program_id = ?", programID).
		Order("semesters.number")
	if available != nil {
		q = q.Where("program_semesters.available = ?", *available)
	}
	if level != nil {
		q = q.Where("semesters.number IN ?", []int{*level * 2, *level*2 - 1})
	}
	var links []models.ProgramSemester
	err := q.Preload("Semester").Preload("Program").Find(&links).Error
	return links, err
}

func (r *catalogRepository) SaveProgramSemester(ps *models.ProgramSemester) error {
	return r.db.Save(ps).Error
}
