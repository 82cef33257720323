package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/skulebot/core/internal/models"
	"github.com/skulebot/core/internal/repository"
)

// LMSClient imports the faculty catalog from the learning management
// system's REST API. Top-level categories map to programs, their
// ordinal-named children ("First Year", "Second Year", ...) to levels, and
// category courses to courses placed into the level's first semester.
type LMSClient struct {
	baseURL string
	token   string
	http    *http.Client
	log     *zap.Logger
}

func NewLMSClient(baseURL, token string, log *zap.Logger) *LMSClient {
	return &LMSClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
		log:     log,
	}
}

type lmsCategory struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Parent int    `json:"parent"`
}

type lmsCourse struct {
	ID         int    `json:"id"`
	FullName   string `json:"fullname"`
	ShortName  string `json:"shortname"`
	CategoryID int    `json:"categoryid"`
}

func (c *LMSClient) call(function string, params url.Values, out any) error {
	q := url.Values{
		"wstoken":            {c.token},
		"wsfunction":         {function},
		"moodlewsrestformat": {"json"},
	}
	for k, vs := range params {
		q[k] = vs
	}
	resp, err := c.http.Get(c.baseURL + "/webservice/rest/server.php?" + q.Encode())
	if err != nil {
		return fmt.Errorf("lms request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("lms request failed: status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("lms response malformed: %w", err)
	}
	return nil
}

// ordinalLevel extracts the level a category name refers to, 0 when none.
func ordinalLevel(name string) int {
	lower := strings.ToLower(name)
	for i, word := range []string{"first", "second", "third", "fourth", "fifth"} {
		if strings.Contains(lower, word) {
			return i + 1
		}
	}
	return 0
}

// Import pulls categories and courses from the LMS and upserts them into
// the catalog, matching existing rows by their LMS id. Names of existing
// rows are left alone so local edits survive a re-import.
func (c *LMSClient) Import(store *repository.Store) error {
	var categories []lmsCategory
	if err := c.call("core_course_get_categories", nil, &categories); err != nil {
		return err
	}
	var courses []struct {
		Courses []lmsCourse `json:"courses"`
	}
	if err := c.call("core_course_get_courses_by_field", nil, &courses); err != nil {
		return err
	}

	catalog := NewCatalogService(store)
	programs := map[int]*models.Program{}
	levelOfCategory := map[int]int{}
	programOfCategory := map[int]*models.Program{}

	for _, cat := range categories {
		if cat.Parent != 0 {
			continue
		}
		program, err := c.upsertProgram(store, catalog, cat)
		if err != nil {
			return err
		}
		programs[cat.ID] = program
	}

	for _, cat := range categories {
		parent, ok := programs[cat.Parent]
		if !ok {
			continue
		}
		level := ordinalLevel(cat.Name)
		if level == 0 {
			c.log.Warn("skipping category without ordinal level", zap.String("name", cat.Name))
			continue
		}
		levelOfCategory[cat.ID] = level
		programOfCategory[cat.ID] = parent
		if err := c.growDuration(catalog, parent, level*2); err != nil {
			return err
		}
	}

	for _, group := range courses {
		for _, lc := range group.Courses {
			program, ok := programOfCategory[lc.CategoryID]
			if !ok {
				continue
			}
			if err := c.importCourse(store, catalog, program, levelOfCategory[lc.CategoryID], lc); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *LMSClient) upsertProgram(store *repository.Store, catalog *CatalogService, cat lmsCategory) (*models.Program, error) {
	existing, err := store.Catalog.ProgramByLMSID(cat.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}
	lmsID := cat.ID
	program := &models.Program{
		EnName:   cat.Name,
		ArName:   cat.Name,
		Duration: 2,
		Active:   true,
		LMSID:    &lmsID,
	}
	if err := catalog.CreateProgram(program); err != nil {
		return nil, err
	}
	return program, nil
}

func (c *LMSClient) growDuration(catalog *CatalogService, program *models.Program, duration int) error {
	if program.Duration >= duration {
		return nil
	}
	program.Duration = duration
	return catalog.UpdateProgram(program)
}

func (c *LMSClient) importCourse(store *repository.Store, catalog *CatalogService, program *models.Program, level int, lc lmsCourse) error {
	course, err := store.Courses.CourseByLMSID(lc.ID)
	if err != nil {
		return err
	}
	if course == nil {
		lmsID := lc.ID
		course = &models.Course{
			EnName: lc.FullName,
			ArName: lc.FullName,
			EnCode: lc.ShortName,
			LMSID:  &lmsID,
		}
		if err := store.Courses.CreateCourse(course); err != nil {
			return err
		}
	}

	semester, err := store.Catalog.SemesterByNumber(level*2 - 1)
	if err != nil {
		return err
	}
	_, err = catalog.PlaceCourse(program.ID, semester.ID, course.ID, false)
	if errors.Is(err, ErrCoursePlaced) {
		return nil
	}
	return err
}
