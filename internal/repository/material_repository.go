package repository

import (
	"time"

	"github.com/skulebot/core/internal/models"
	"gorm.io/gorm"
)

// MaterialRepository covers materials and their files.
type MaterialRepository interface {
	Material(id uint) (*models.Material, error)
	Create(m *models.Material) error
	Update(m *models.Material) error
	Delete(id uint) error

	// TypesPresent returns the distinct material type tags that exist for a
	// (course, year); empty groups don't render as menu buttons.
	TypesPresent(courseID, yearID uint) ([]models.MaterialType, error)
	// OfType lists materials of a type for (course, year), ordered per
	// variant: numbered by number, reviews by (date desc, name).
	OfType(courseID, yearID uint, t models.MaterialType, publishedOnly bool) ([]models.Material, error)
	// SingleFileMaterials lists the single-file variants of (course, year)
	// ordered by (file kind, file name), joined with their file.
	SingleFileMaterials(courseID, yearID uint, t models.MaterialType, publishedOnly bool) ([]models.Material, error)
	// NextNumber returns max+1 over existing numbers for (course, year,
	// type), starting at 1. Numbers are never reused after deletion.
	NextNumber(courseID, yearID uint, t models.MaterialType) (int, error)
	// UpcomingDeadlines lists published assignments whose deadline falls in
	// [from, to).
	UpcomingDeadlines(from, to time.Time) ([]models.Material, error)

	File(id uint) (*models.File, error)
	CreateFile(f *models.File) error
	UpdateFile(f *models.File) error
	DeleteFile(id uint) error
	MaterialFiles(materialID uint) ([]models.File, error)
}

type materialRepository struct {
	db *gorm.DB
}

func NewMaterialRepository(db *gorm.DB) MaterialRepository {
	return &materialRepository{db: db}
}

func (r *materialRepository) Material(id uint) (*models.Material, error) {
	var m models.Material
	err := r.db.Preload("Course").Preload("AcademicYear").Preload("Files").
		First(&m, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &m, nil
}

func (r *materialRepository) Create(m *models.Material) error {
	return r.db.Create(m).Error
}

func (r *materialRepository) Update(m *models.Material) error {
	return r.db.Save(m).Error
}

func (r *materialRepository) Delete(id uint) error {
	return r.db.Select("Files").Delete(&models.Material{ID: id}).Error
}

func (r *materialRepository) TypesPresent(courseID, yearID uint) ([]models.MaterialType, error) {
	var types []models.MaterialType
	err := r.db.Model(&models.Material{}).
		Where("course_id = ? AND academic_year_id = ?", courseID, yearID).
		Distinct().Pluck("type", &types).Error
	return types, err
}

func (r *materialRepository) OfType(courseID, yearID uint, t models.MaterialType, publishedOnly bool) ([]models.Material, error) {
	q := r.db.Where("course_id = ? AND academic_year_id = ? AND type = ?",
		courseID, yearID, t)
	if publishedOnly {
		q = q.Where("published = ?", true)
	}
	switch {
	case t.Numbered():
		q = q.Order("number")
	case t == models.TypeReview:
		q = q.Order("date DESC").Order("en_name")
	}
	var materials []models.Material
	err := q.Preload("Files").Find(&materials).Error
	return materials, err
}

func (r *materialRepository) SingleFileMaterials(courseID, yearID uint, t models.MaterialType, publishedOnly bool) ([]models.Material, error) {
	q := r.db.Model(&models.Material{}).
		Joins("JOIN files ON files.material_id = materials.id").
		Where("materials.course_id = ? AND materials.academic_year_id = ? AND materials.type = ?",
			courseID, yearID, t).
		Order("files.kind, files.name")
	if publishedOnly {
		q = q.Where("materials.published = ?", true)
	}
	var materials []models.Material
	err := q.Preload("Files").Find(&materials).Error
	return materials, err
}

func (r *materialRepository) NextNumber(courseID, yearID uint, t models.MaterialType) (int, error) {
	var max *int
	err := r.db.Model(&models.Material{}).
		Where("course_id = ? AND academic_year_id = ? AND type = ?",
			courseID, yearID, t).
		Select("MAX(number)").Scan(&max).Error
	if err != nil {
		return 0, err
	}
	if max == nil {
		return 1, nil
	}
	return *max + 1, nil
}

func (r *materialRepository) UpcomingDeadlines(from, to time.Time) ([]models.Material, error) {
	var materials []models.Material
	err := r.db.Preload("Course").
		Where("type = ? AND published = ? AND deadline >= ? AND deadline < ?",
			models.TypeAssignment, true, from, to).
		Order("deadline").
		Find(&materials).Error
	return materials, err
}

func (r *materialRepository) File(id uint) (*models.File, error) {
	var f models.File
	if err := r.db.First(&f, id).Error; err != nil {
		return nil, translate(err)
	}
	return &f, nil
}

func (r *materialRepository) CreateFile(f *models.File) error {
	return r.db.Create(f).Error
}

func (r *materialRepository) UpdateFile(f *models.File) error {
	return r.db.Save(f).Error
}

func (r *materialRepository) DeleteFile(id uint) error {
	return r.db.Delete(&models.File{}, id).Error
}

func (r *materialRepository) MaterialFiles(materialID uint) ([]models.File, error) {
	var files []models.File
	err := r.db.Where("material_id = ?", materialID).
		Order("kind, name").Find(&files).Error
	return files, err
}
