package services

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/skulebot/core/internal/models"
)

func TestOrdinalLevel(t *testing.T) {
	assert.Equal(t, 1, ordinalLevel("First Year"))
	assert.Equal(t, 3, ordinalLevel("third year"))
	assert.Equal(t, 5, ordinalLevel("Fifth Year Students"))
	assert.Zero(t, ordinalLevel("Announcements"))
}

func lmsFixture(t *testing.T) *httptest.Server {
	t.Helper()
	categories := []map[string]any{
		{"id": 10, "name": "Medicine", "parent": 0},
		{"id": 11, "name": "First Year", "parent": 10},
		{"id": 12, "name": "Second Year", "parent": 10},
		{"id": 13, "name": "Announcements", "parent": 10},
	}
	courses := []map[string]any{
		{"courses": []map[string]any{
			{"id": 100, "fullname": "Anatomy", "shortname": "ANAT101", "categoryid": 11},
			{"id": 101, "fullname": "Pathology", "shortname": "PATH201", "categoryid": 12},
		}},
	}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/webservice/rest/server.php", r.URL.Path)
		require.Equal(t, "test-token", r.URL.Query().Get("wstoken"))
		require.Equal(t, "json", r.URL.Query().Get("moodlewsrestformat"))
		switch r.URL.Query().Get("wsfunction") {
		case "core_course_get_categories":
			_ = json.NewEncoder(w).Encode(categories)
		case "core_course_get_courses_by_field":
			_ = json.NewEncoder(w).Encode(courses)
		default:
			t.Errorf("unexpected wsfunction %q", r.URL.Query().Get("wsfunction"))
		}
	}))
}

func TestLMSImport(t *testing.T) {
	store, db := newServiceTestDB(t)
	for n := 1; n <= 10; n++ {
		require.NoError(t, db.Create(&models.Semester{Number: n}).Error)
	}

	srv := lmsFixture(t)
	defer srv.Close()
	client := NewLMSClient(srv.URL, "test-token", zap.NewNop())

	require.NoError(t, client.Import(store))

	program, err := store.Catalog.ProgramByLMSID(10)
	require.NoError(t, err)
	require.NotNil(t, program)
	assert.Equal(t, "Medicine", program.EnName)
	// Two ordinal year categories stretch the program to four semesters.
	assert.Equal(t, 4, program.Duration)

	anatomy, err := store.Courses.CourseByLMSID(100)
	require.NoError(t, err)
	require.NotNil(t, anatomy)
	assert.Equal(t, "ANAT101", anatomy.EnCode)

	// First-year courses land in semester 1, second-year in semester 3.
	placement, err := store.Courses.PlacementFor(program.ID, anatomy.ID)
	require.NoError(t, err)
	require.NotNil(t, placement)
	sem, err := store.Catalog.Semester(placement.SemesterID)
	require.NoError(t, err)
	assert.Equal(t, 1, sem.Number)

	pathology, err := store.Courses.CourseByLMSID(101)
	require.NoError(t, err)
	placement, err = store.Courses.PlacementFor(program.ID, pathology.ID)
	require.NoError(t, err)
	require.NotNil(t, placement)
	sem, err = store.Catalog.Semester(placement.SemesterID)
	require.NoError(t, err)
	assert.Equal(t, 3, sem.Number)
}

func TestLMSImportIsIdempotent(t *testing.T) {
	store, db := newServiceTestDB(t)
	for n := 1; n <= 10; n++ {
		require.NoError(t, db.Create(&models.Semester{Number: n}).Error)
	}

	srv := lmsFixture(t)
	defer srv.Close()
	client := NewLMSClient(srv.URL, "test-token", zap.NewNop())

	require.NoError(t, client.Import(store))

	// A local rename survives the second import.
	program, err := store.Catalog.ProgramByLMSID(10)
	require.NoError(t, err)
	program.ArName = "الطب"
	require.NoError(t, db.Save(program).Error)

	require.NoError(t, client.Import(store))

	var programs, courses int64
	require.NoError(t, db.Model(&models.Program{}).Count(&programs).Error)
	require.NoError(t, db.Model(&models.Course{}).Count(&courses).Error)
	assert.EqualValues(t, 1, programs)
	assert.EqualValues(t, 2, courses)

	program, err = store.Catalog.ProgramByLMSID(10)
	require.NoError(t, err)
	assert.Equal(t, "الطب", program.ArName)
}
