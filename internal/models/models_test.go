package models

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&User{}, &AcademicYear{}, &Semester{}, &Program{}, &ProgramSemester{},
		&Department{}, &Course{}, &ProgramSemesterCourse{}, &Enrollment{},
		&AccessRequest{}, &UserOptionalCourse{}, &Material{}, &File{},
		&Setting{}, &ChatData{}, &UserData{}, &Conversation{},
	))
	return db
}

// seedProgram creates a program with semester links 1..duration and returns
// the links indexed by semester number.
func seedProgram(t *testing.T, db *gorm.DB, duration int) (Program, map[int]ProgramSemester) {
	t.Helper()
	program := Program{EnName: "Medicine", ArName: "الطب", Duration: duration, Active: true}
	require.NoError(t, db.Create(&program).Error)

	links := map[int]ProgramSemester{}
	for n := 1; n <= duration; n++ {
		sem := Semester{Number: n}
		require.NoError(t, db.Create(&sem).Error)
		link := ProgramSemester{ProgramID: program.ID, SemesterID: sem.ID, Available: true}
		require.NoError(t, db.Create(&link).Error)
		links[n] = link
	}
	return program, links
}

func seedUserAndYear(t *testing.T, db *gorm.DB) (User, AcademicYear) {
	t.Helper()
	user := User{TelegramID: 100, ChatID: 100}
	require.NoError(t, db.Create(&user).Error)
	year := AcademicYear{Start: 2024, End: 2025}
	require.NoError(t, db.Create(&year).Error)
	return user, year
}

func TestSemesterLevelAndPair(t *testing.T) {
	assert.Equal(t, 1, Semester{Number: 1}.Level())
	assert.Equal(t, 1, Semester{Number: 2}.Level())
	assert.Equal(t, 3, Semester{Number: 5}.Level())
	assert.Equal(t, 2, Semester{Number: 1}.PairNumber())
	assert.Equal(t, 1, Semester{Number: 2}.PairNumber())
	assert.Equal(t, 6, Semester{Number: 5}.PairNumber())
}

func TestEnrollmentMustStartOdd(t *testing.T) {
	db := newTestDB(t)
	_, links := seedProgram(t, db, 4)
	user, year := seedUserAndYear(t, db)

	err := db.Create(&Enrollment{
		UserID: user.ID, AcademicYearID: year.ID, ProgramSemesterID: links[2].ID,
	}).Error
	assert.ErrorIs(t, err, ErrEvenSemester)

	err = db.Create(&Enrollment{
		UserID: user.ID, AcademicYearID: year.ID, ProgramSemesterID: links[1].ID,
	}).Error
	assert.NoError(t, err)
}

func TestEnrollmentProgression(t *testing.T) {
	db := newTestDB(t)
	_, links := seedProgram(t, db, 4)
	user, year := seedUserAndYear(t, db)

	e := Enrollment{UserID: user.ID, AcademicYearID: year.ID, ProgramSemesterID: links[3].ID}
	require.NoError(t, db.Create(&e).Error)

	// Forward into the second half of the level.
	e.ProgramSemesterID = links[4].ID
	assert.NoError(t, db.Save(&e).Error)

	// And back again.
	e.ProgramSemesterID = links[3].ID
	assert.NoError(t, db.Save(&e).Error)

	// Jumping levels is rejected.
	e.ProgramSemesterID = links[1].ID
	assert.ErrorIs(t, db.Save(&e).Error, ErrSemesterJump)
}

func TestEnrollmentProgramNeverChanges(t *testing.T) {
	db := newTestDB(t)
	_, links := seedProgram(t, db, 2)
	user, year := seedUserAndYear(t, db)

	other := Program{EnName: "Dentistry", ArName: "طب الأسنان", Duration: 2, Active: true}
	require.NoError(t, db.Create(&other).Error)
	var sem2 Semester
	require.NoError(t, db.Where("number = ?", 2).First(&sem2).Error)
	otherLink := ProgramSemester{ProgramID: other.ID, SemesterID: sem2.ID}
	require.NoError(t, db.Create(&otherLink).Error)

	e := Enrollment{UserID: user.ID, AcademicYearID: year.ID, ProgramSemesterID: links[1].ID}
	require.NoError(t, db.Create(&e).Error)

	e.ProgramSemesterID = otherLink.ID
	assert.ErrorIs(t, db.Save(&e).Error, ErrProgramChange)
}

func TestOneEnrollmentPerYear(t *testing.T) {
	db := newTestDB(t)
	_, links := seedProgram(t, db, 2)
	user, year := seedUserAndYear(t, db)

	first := Enrollment{UserID: user.ID, AcademicYearID: year.ID, ProgramSemesterID: links[1].ID}
	require.NoError(t, db.Create(&first).Error)

	dupe := Enrollment{UserID: user.ID, AcademicYearID: year.ID, ProgramSemesterID: links[1].ID}
	assert.ErrorIs(t, db.Create(&dupe).Error, gorm.ErrDuplicatedKey)
}

func TestPlacementRespectsDuration(t *testing.T) {
	db := newTestDB(t)
	program, links := seedProgram(t, db, 2)
	course := Course{EnName: "Anatomy", ArName: "التشريح"}
	require.NoError(t, db.Create(&course).Error)

	beyond := Semester{Number: 3}
	require.NoError(t, db.Create(&beyond).Error)

	err := db.Create(&ProgramSemesterCourse{
		ProgramID: program.ID, SemesterID: beyond.ID, CourseID: course.ID,
	}).Error
	assert.ErrorIs(t, err, ErrSemesterExceedsDuration)

	err = db.Create(&ProgramSemesterCourse{
		ProgramID: program.ID, SemesterID: links[2].SemesterID, CourseID: course.ID,
	}).Error
	assert.NoError(t, err)
}

func TestMaterialCapabilities(t *testing.T) {
	assert.True(t, TypeLecture.Numbered())
	assert.False(t, TypeSheet.Numbered())
	assert.True(t, TypeTool.SingleFile())
	assert.False(t, TypeAssignment.SingleFile())

	assert.True(t, TypeLecture.Accepts(MediaVideo))
	assert.False(t, TypeLecture.Accepts(MediaPhoto))
	assert.True(t, TypeReview.Accepts(MediaPhoto))
	assert.False(t, TypeReview.Accepts(MediaVideo))
	assert.True(t, TypeSheet.Accepts(MediaDocument))
	assert.False(t, TypeSheet.Accepts(MediaVoice))
}

func TestMaterialNameFallback(t *testing.T) {
	m := Material{EnName: "Midterm review", ArName: "مراجعة النصفي"}
	assert.Equal(t, "Midterm review", m.Name(LangEN))
	assert.Equal(t, "مراجعة النصفي", m.Name(LangAR))

	onlyEn := Material{EnName: "Final review"}
	assert.Equal(t, "Final review", onlyEn.Name(LangAR))

	onlyAr := Material{ArName: "مراجعة"}
	assert.Equal(t, "مراجعة", onlyAr.Name(LangEN))
}

func TestNotificationKeys(t *testing.T) {
	keys := NotificationKeys()
	assert.Len(t, keys, len(MaterialTypes))
	assert.Contains(t, keys, "notification.lecture")
	assert.Contains(t, keys, "notification.review")
}
