package repository

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/skulebot/core/internal/models"
)

func newTestStore(t *testing.T) (*Store, *gorm.DB) {
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
	return NewStore(db), db
}

// fixture is a populated catalog: one two-semester program with a mandatory
// and an optional course placed in semester 1, one user enrolled there.
type fixture struct {
	user      models.User
	year      models.AcademicYear
	program   models.Program
	semesters map[int]models.Semester
	links     map[int]models.ProgramSemester
	mandatory models.ProgramSemesterCourse
	optional  models.ProgramSemesterCourse
	enroll    models.Enrollment
}

func seed(t *testing.T, db *gorm.DB) fixture {
	t.Helper()
	f := fixture{
		semesters: map[int]models.Semester{},
		links:     map[int]models.ProgramSemester{},
	}

	f.user = models.User{TelegramID: 42, ChatID: 42}
	require.NoError(t, db.Create(&f.user).Error)
	f.year = models.AcademicYear{Start: 2024, End: 2025}
	require.NoError(t, db.Create(&f.year).Error)

	f.program = models.Program{EnName: "Pharmacy", ArName: "الصيدلة", Duration: 2, Active: true}
	require.NoError(t, db.Create(&f.program).Error)
	for n := 1; n <= 4; n++ {
		sem := models.Semester{Number: n}
		require.NoError(t, db.Create(&sem).Error)
		f.semesters[n] = sem
		if n <= f.program.Duration {
			link := models.ProgramSemester{
				ProgramID: f.program.ID, SemesterID: sem.ID, Available: n == 1,
			}
			require.NoError(t, db.Create(&link).Error)
			f.links[n] = link
		}
	}

	chemistry := models.Course{EnName: "Chemistry", ArName: "الكيمياء"}
	require.NoError(t, db.Create(&chemistry).Error)
	botany := models.Course{EnName: "Botany", ArName: "النبات"}
	require.NoError(t, db.Create(&botany).Error)

	f.mandatory = models.ProgramSemesterCourse{
		ProgramID: f.program.ID, SemesterID: f.semesters[1].ID, CourseID: chemistry.ID,
	}
	require.NoError(t, db.Create(&f.mandatory).Error)
	f.optional = models.ProgramSemesterCourse{
		ProgramID: f.program.ID, SemesterID: f.semesters[1].ID, CourseID: botany.ID,
		Optional: true,
	}
	require.NoError(t, db.Create(&f.optional).Error)

	f.enroll = models.Enrollment{
		UserID: f.user.ID, AcademicYearID: f.year.ID, ProgramSemesterID: f.links[1].ID,
	}
	require.NoError(t, db.Create(&f.enroll).Error)
	return f
}

func TestUserCoursesOptionalFilter(t *testing.T) {
	store, db := newTestStore(t)
	f := seed(t, db)

	courses, err := store.Courses.UserCourses(f.program.ID, f.semesters[1].ID, f.user.ID, models.LangEN)
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Equal(t, "Chemistry", courses[0].EnName)

	require.NoError(t, store.Courses.CreateUserOptionalCourse(&models.UserOptionalCourse{
		UserID: f.user.ID, ProgramSemesterCourseID: f.optional.ID,
	}))

	courses, err = store.Courses.UserCourses(f.program.ID, f.semesters[1].ID, f.user.ID, models.LangEN)
	require.NoError(t, err)
	require.Len(t, courses, 2)
	// Mandatory courses sort before opted-in optional ones.
	assert.Equal(t, "Chemistry", courses[0].EnName)
	assert.Equal(t, "Botany", courses[1].EnName)
}

func TestDuplicateEnrollment(t *testing.T) {
	store, db := newTestStore(t)
	f := seed(t, db)

	err := store.Enrollments.Create(&models.Enrollment{
		UserID: f.user.ID, AcademicYearID: f.year.ID, ProgramSemesterID: f.links[1].ID,
	})
	assert.ErrorIs(t, err, ErrDuplicateEnrollment)
}

// The duplicate insert must not poison a surrounding transaction: handlers
// run inside one per update and keep using it after the rejection.
func TestDuplicateEnrollmentInsideTransaction(t *testing.T) {
	_, db := newTestStore(t)
	f := seed(t, db)

	err := db.Transaction(func(tx *gorm.DB) error {
		store := NewStore(tx)
		err := store.Enrollments.Create(&models.Enrollment{
			UserID: f.user.ID, AcademicYearID: f.year.ID, ProgramSemesterID: f.links[1].ID,
		})
		assert.ErrorIs(t, err, ErrDuplicateEnrollment)

		// The transaction is still usable after the rejected insert.
		enrollments, err := store.Enrollments.UserEnrollments(f.user.ID)
		require.NoError(t, err)
		require.Len(t, enrollments, 1)
		return nil
	})
	require.NoError(t, err)
}

func TestMostRecentUserEnrollment(t *testing.T) {
	store, db := newTestStore(t)
	f := seed(t, db)

	_, err := store.Enrollments.MostRecentUserEnrollment(f.user.ID + 1)
	assert.ErrorIs(t, err, ErrNotFound)

	newer := models.AcademicYear{Start: 2025, End: 2026}
	require.NoError(t, db.Create(&newer).Error)
	require.NoError(t, db.Create(&models.Enrollment{
		UserID: f.user.ID, AcademicYearID: newer.ID, ProgramSemesterID: f.links[1].ID,
	}).Error)

	e, err := store.Enrollments.MostRecentUserEnrollment(f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, 2025, e.AcademicYear.Start)
	assert.Equal(t, f.program.ID, e.ProgramSemester.ProgramID)
}

func TestSemestersForProgram(t *testing.T) {
	store, db := newTestStore(t)
	f := seed(t, db)

	semesters, err := store.Catalog.SemestersForProgram(f.program.ID)
	require.NoError(t, err)
	require.Len(t, semesters, 2)
	assert.Equal(t, 1, semesters[0].Number)
	assert.Equal(t, 2, semesters[1].Number)
}

func TestProgramSemestersFilters(t *testing.T) {
	store, db := newTestStore(t)
	f := seed(t, db)

	available := true
	links, err := store.Catalog.ProgramSemesters(f.program.ID, &available, nil)
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, 1, links[0].Semester.Number)

	level := 1
	links, err = store.Catalog.ProgramSemesters(f.program.ID, nil, &level)
	require.NoError(t, err)
	require.Len(t, links, 2)
	assert.Equal(t, 1, links[0].Semester.Number)
	assert.Equal(t, 2, links[1].Semester.Number)
}

func TestNextNumber(t *testing.T) {
	store, db := newTestStore(t)
	f := seed(t, db)

	n, err := store.Materials.NextNumber(f.mandatory.CourseID, f.year.ID, models.TypeLecture)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	for _, number := range []int{1, 3} {
		require.NoError(t, db.Create(&models.Material{
			Type: models.TypeLecture, CourseID: f.mandatory.CourseID,
			AcademicYearID: f.year.ID, Number: number,
		}).Error)
	}

	n, err = store.Materials.NextNumber(f.mandatory.CourseID, f.year.ID, models.TypeLecture)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	// Other types keep their own sequence.
	n, err = store.Materials.NextNumber(f.mandatory.CourseID, f.year.ID, models.TypeLab)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestOfTypePublishedOnly(t *testing.T) {
	store, db := newTestStore(t)
	f := seed(t, db)

	for number, published := range map[int]bool{1: true, 2: false} {
		require.NoError(t, db.Create(&models.Material{
			Type: models.TypeLecture, CourseID: f.mandatory.CourseID,
			AcademicYearID: f.year.ID, Number: number, Published: published,
		}).Error)
	}

	all, err := store.Materials.OfType(f.mandatory.CourseID, f.year.ID, models.TypeLecture, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	published, err := store.Materials.OfType(f.mandatory.CourseID, f.year.ID, models.TypeLecture, true)
	require.NoError(t, err)
	require.Len(t, published, 1)
	assert.Equal(t, 1, published[0].Number)
}

func TestCountGranted(t *testing.T) {
	store, db := newTestStore(t)
	f := seed(t, db)

	n, err := store.Enrollments.CountGranted(f.user.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, db.Create(&models.AccessRequest{
		EnrollmentID: f.enroll.ID, Status: models.StatusGranted,
	}).Error)

	n, err = store.Enrollments.CountGranted(f.user.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestConversationState(t *testing.T) {
	store, _ := newTestStore(t)

	state, err := store.States.ConversationState("mat", "42:42")
	require.NoError(t, err)
	assert.Empty(t, state)

	require.NoError(t, store.States.SetConversationState("mat", "42:42", "upload"))
	state, err = store.States.ConversationState("mat", "42:42")
	require.NoError(t, err)
	assert.Equal(t, "upload", state)

	// A second conversation under the same key is independent.
	state, err = store.States.ConversationState("ayr", "42:42")
	require.NoError(t, err)
	assert.Empty(t, state)

	require.NoError(t, store.States.SetConversationState("mat", "42:42", ""))
	state, err = store.States.ConversationState("mat", "42:42")
	require.NoError(t, err)
	assert.Empty(t, state)
}

func TestUserDataRoundTrip(t *testing.T) {
	store, db := newTestStore(t)
	f := seed(t, db)

	data, err := store.States.UserData(f.user.ID)
	require.NoError(t, err)
	assert.Nil(t, data)

	require.NoError(t, store.States.SetUserData(f.user.ID, []byte(`{"draft":"1"}`)))
	data, err = store.States.UserData(f.user.ID)
	require.NoError(t, err)
	assert.JSONEq(t, `{"draft":"1"}`, string(data))
}

func TestSettingDefaultsAndFlip(t *testing.T) {
	store, db := newTestStore(t)
	f := seed(t, db)

	key := models.NotificationKey(models.TypeLecture)
	enabled, err := store.Settings.GetBool(f.user.ID, key, true)
	require.NoError(t, err)
	assert.True(t, enabled)

	require.NoError(t, store.Settings.SetBool(f.user.ID, key, false))
	enabled, err = store.Settings.GetBool(f.user.ID, key, true)
	require.NoError(t, err)
	assert.False(t, enabled)

	require.NoError(t, store.Settings.SetBool(f.user.ID, key, true))
	enabled, err = store.Settings.GetBool(f.user.ID, key, true)
	require.NoError(t, err)
	assert.True(t, enabled)
}

func TestDeleteMaterialRemovesFiles(t *testing.T) {
	store, db := newTestStore(t)
	f := seed(t, db)

	m := models.Material{
		Type: models.TypeSheet, CourseID: f.mandatory.CourseID, AcademicYearID: f.year.ID,
	}
	require.NoError(t, db.Create(&m).Error)
	require.NoError(t, store.Materials.CreateFile(&models.File{
		TelegramID: "BQAC-sheet", Name: "sheet.pdf", Kind: models.MediaDocument,
		MaterialID: &m.ID, UploaderID: f.user.ID,
	}))

	require.NoError(t, store.Materials.Delete(m.ID))

	_, err := store.Materials.Material(m.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	var n int64
	require.NoError(t, db.Model(&models.File{}).Where("material_id = ?", m.ID).Count(&n).Error)
	assert.Zero(t, n)
}
