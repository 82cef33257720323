package repository

import "gorm.io/gorm"

// Store bundles every repository over one database handle. The dispatcher
// rebinds a Store to the per-interaction transaction so all reads and writes
// of a handler share it.
type Store struct {
	Users       UserRepository
	Catalog     CatalogRepository
	Courses     CourseRepository
	Enrollments EnrollmentRepository
	Materials   MaterialRepository
	Settings    SettingRepository
	States      StateRepository
}

// NewStore builds a Store bound to db.
func NewStore(db *gorm.DB) *Store {
	return &Store{
		Users:       NewUserRepository(db),
		Catalog:     NewCatalogRepository(db),
		Courses:     NewCourseRepository(db),
		Enrollments: NewEnrollmentRepository(db),
		Materials:   NewMaterialRepository(db),
		Settings:    NewSettingRepository(db),
		States:      NewStateRepository(db),
	}
}
