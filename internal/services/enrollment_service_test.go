package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skulebot/core/internal/models"
	"github.com/skulebot/core/internal/repository"
)

func TestEnroll(t *testing.T) {
	store, db := newServiceTestDB(t)
	c := seedCampus(t, db)
	svc := NewEnrollmentService(store)

	u := models.User{TelegramID: 3003, ChatID: 3003}
	require.NoError(t, db.Create(&u).Error)

	e, err := svc.Enroll(u.ID, c.year.ID, c.links[3].ID)
	require.NoError(t, err)
	assert.Equal(t, "Nursing", e.ProgramSemester.Program.EnName)
	assert.Equal(t, 3, e.ProgramSemester.Semester.Number)

	_, err = svc.Enroll(u.ID, c.year.ID, c.links[1].ID)
	assert.ErrorIs(t, err, repository.ErrDuplicateEnrollment)

	_, err = svc.Enroll(c.student.ID, c.year.ID, c.links[2].ID)
	assert.ErrorIs(t, err, models.ErrEvenSemester)
}

func TestChangeSemester(t *testing.T) {
	store, db := newServiceTestDB(t)
	c := seedCampus(t, db)
	svc := NewEnrollmentService(store)

	require.NoError(t, svc.ChangeSemester(c.enroll.ID, c.links[2].ID))
	assert.ErrorIs(t, svc.ChangeSemester(c.enroll.ID, c.links[4].ID), models.ErrSemesterJump)
}

func TestToggleOptionalCourse(t *testing.T) {
	store, db := newServiceTestDB(t)
	c := seedCampus(t, db)
	svc := NewEnrollmentService(store)

	in, err := svc.ToggleOptionalCourse(c.student.ID, c.optional.ID)
	require.NoError(t, err)
	assert.True(t, in)

	in, err = svc.ToggleOptionalCourse(c.student.ID, c.optional.ID)
	require.NoError(t, err)
	assert.False(t, in)

	uoc, err := store.Courses.UserOptionalCourse(c.student.ID, c.optional.ID)
	require.NoError(t, err)
	assert.Nil(t, uoc)
}

func TestRequestAccessLifecycle(t *testing.T) {
	store, db := newServiceTestDB(t)
	c := seedCampus(t, db)
	svc := NewEnrollmentService(store)

	ar, err := svc.RequestAccess(c.enroll.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, ar.Status)

	// A pending request cannot be filed again.
	_, err = svc.RequestAccess(c.enroll.ID, nil)
	assert.ErrorIs(t, err, ErrRequestOpen)

	granted, err := svc.SetRequestStatus(ar.ID, models.StatusGranted)
	require.NoError(t, err)
	assert.Equal(t, models.StatusGranted, granted.Status)
	_, err = svc.RequestAccess(c.enroll.ID, nil)
	assert.ErrorIs(t, err, ErrRequestOpen)

	// A rejected request reopens in place rather than piling up rows.
	_, err = svc.SetRequestStatus(ar.ID, models.StatusRejected)
	require.NoError(t, err)
	reopened, err := svc.RequestAccess(c.enroll.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, ar.ID, reopened.ID)
	assert.Equal(t, models.StatusPending, reopened.Status)

	var count int64
	require.NoError(t, db.Model(&models.AccessRequest{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestRevokeAccessDeletesRequest(t *testing.T) {
	store, db := newServiceTestDB(t)
	c := seedCampus(t, db)
	svc := NewEnrollmentService(store)

	ar, err := svc.RequestAccess(c.enroll.ID, nil)
	require.NoError(t, err)
	_, err = svc.SetRequestStatus(ar.ID, models.StatusGranted)
	require.NoError(t, err)

	revoked, err := svc.RevokeAccess(ar.ID)
	require.NoError(t, err)
	assert.Equal(t, c.student.ID, revoked.Enrollment.User.ID)

	// The row is gone, not flagged.
	var count int64
	require.NoError(t, db.Model(&models.AccessRequest{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)

	// Which frees the enrollment to apply again from scratch.
	again, err := svc.RequestAccess(c.enroll.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, again.Status)
}

func TestRequestAccessUnknownEnrollment(t *testing.T) {
	store, db := newServiceTestDB(t)
	seedCampus(t, db)
	svc := NewEnrollmentService(store)

	_, err := svc.RequestAccess(9999, nil)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
