package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/skulebot/core/internal/models"
	"github.com/skulebot/core/internal/repository"
)

func newServiceTestDB(t *testing.T) (*repository.Store, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{}, &models.AcademicYear{}, &models.Semester{},
		&models.Program{}, &models.ProgramSemester{}, &models.Department{},
		&models.Course{}, &models.ProgramSemesterCourse{}, &models.Enrollment{},
		&models.AccessRequest{}, &models.UserOptionalCourse{}, &models.Material{},
		&models.File{}, &models.Setting{}, &models.ChatData{}, &models.UserData{},
		&models.Conversation{},
	))
	return repository.NewStore(db), db
}

// campus is a populated catalog: a four-semester program, a course placed
// in semester 1 plus an optional one, and a student enrolled in semester 1.
type campus struct {
	student   models.User
	year      models.AcademicYear
	program   models.Program
	semesters map[int]models.Semester
	links     map[int]models.ProgramSemester
	course    models.Course
	placement models.ProgramSemesterCourse
	optional  models.ProgramSemesterCourse
	enroll    models.Enrollment
}

func seedCampus(t *testing.T, db *gorm.DB) campus {
	t.Helper()
	c := campus{
		semesters: map[int]models.Semester{},
		links:     map[int]models.ProgramSemester{},
	}

	c.student = models.User{TelegramID: 1001, ChatID: 1001}
	require.NoError(t, db.Create(&c.student).Error)
	c.year = models.AcademicYear{Start: 2024, End: 2025}
	require.NoError(t, db.Create(&c.year).Error)

	c.program = models.Program{EnName: "Nursing", ArName: "التمريض", Duration: 4, Active: true}
	require.NoError(t, db.Create(&c.program).Error)
	for n := 1; n <= 4; n++ {
		sem := models.Semester{Number: n}
		require.NoError(t, db.Create(&sem).Error)
		c.semesters[n] = sem
		link := models.ProgramSemester{ProgramID: c.program.ID, SemesterID: sem.ID, Available: n <= 2}
		require.NoError(t, db.Create(&link).Error)
		c.links[n] = link
	}

	c.course = models.Course{EnName: "Physiology", ArName: "وظائف الأعضاء"}
	require.NoError(t, db.Create(&c.course).Error)
	c.placement = models.ProgramSemesterCourse{
		ProgramID: c.program.ID, SemesterID: c.semesters[1].ID, CourseID: c.course.ID,
	}
	require.NoError(t, db.Create(&c.placement).Error)

	elective := models.Course{EnName: "Ethics", ArName: "الأخلاقيات"}
	require.NoError(t, db.Create(&elective).Error)
	c.optional = models.ProgramSemesterCourse{
		ProgramID: c.program.ID, SemesterID: c.semesters[1].ID, CourseID: elective.ID,
		Optional: true,
	}
	require.NoError(t, db.Create(&c.optional).Error)

	c.enroll = models.Enrollment{
		UserID: c.student.ID, AcademicYearID: c.year.ID, ProgramSemesterID: c.links[1].ID,
	}
	require.NoError(t, db.Create(&c.enroll).Error)
	return c
}

func addStudent(t *testing.T, db *gorm.DB, c campus, telegramID int64, link models.ProgramSemester) models.User {
	t.Helper()
	u := models.User{TelegramID: telegramID, ChatID: telegramID}
	require.NoError(t, db.Create(&u).Error)
	require.NoError(t, db.Create(&models.Enrollment{
		UserID: u.ID, AcademicYearID: c.year.ID, ProgramSemesterID: link.ID,
	}).Error)
	return u
}

func deadlineIn(d time.Duration) *time.Time {
	t := time.Now().Add(d).Truncate(time.Minute)
	return &t
}
