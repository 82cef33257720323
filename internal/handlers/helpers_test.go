package handlers

import (
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skulebot/core/internal/models"
	"github.com/skulebot/core/internal/router"
)

func TestLabels(t *testing.T) {
	assert.Equal(t, "hello", tr(models.LangEN, "hello", "مرحبا"))
	assert.Equal(t, "مرحبا", tr(models.LangAR, "hello", "مرحبا"))

	assert.Equal(t, "2024-2025", yearLabel(models.AcademicYear{Start: 2024, End: 2025}))
	assert.Equal(t, "Semester 3", semesterLabel(models.LangEN, 3))
	assert.Equal(t, "الفصل 3", semesterLabel(models.LangAR, 3))
	assert.Equal(t, "Level 2", levelLabel(models.LangEN, 2))
}

func TestParseUintAndItoa(t *testing.T) {
	assert.EqualValues(t, 42, parseUint("42"))
	assert.Zero(t, parseUint("nope"))
	assert.Zero(t, parseUint(""))
	assert.Equal(t, "42", itoa(42))
}

func TestSplitQuery(t *testing.T) {
	path, query := splitQuery("edt/3/1/c/12?c=1&mv=1")
	assert.Equal(t, "edt/3/1/c/12", path)
	assert.Equal(t, "c=1&mv=1", query)

	path, query = splitQuery("edt/3/1")
	assert.Equal(t, "edt/3/1", path)
	assert.Empty(t, query)
}

func TestBackRow(t *testing.T) {
	r := backRow(models.LangEN, `crs/12/lecture`, `/\w+`)
	require.Len(t, r, 1)
	assert.Equal(t, "« Back", r[0].Text)
	require.NotNil(t, r[0].CallbackData)
	assert.Equal(t, "crs/12", *r[0].CallbackData)
}

func TestConfirmRowCarriesBothChoices(t *testing.T) {
	r := confirmRow("Yes", "x?c=1", "No", "x")
	require.Len(t, r, 2)
	seen := map[string]string{}
	for _, b := range r {
		require.NotNil(t, b.CallbackData)
		seen[b.Text] = *b.CallbackData
	}
	assert.Equal(t, "x?c=1", seen["Yes"])
	assert.Equal(t, "x", seen["No"])
}

func TestPagerRow(t *testing.T) {
	items := make([]int, 30)
	middle := router.NewPager(items, 12, 12)
	r := pagerRow(middle, "usr")
	require.Len(t, r, 2)
	assert.Equal(t, "«", r[0].Text)
	assert.Equal(t, "usr?p=0", *r[0].CallbackData)
	assert.Equal(t, "»", r[1].Text)
	assert.Equal(t, "usr?p=24", *r[1].CallbackData)

	single := router.NewPager(items[:5], 0, 12)
	assert.Empty(t, pagerRow(single, "usr"))
}

func TestFileFromMessage(t *testing.T) {
	user := &models.User{ID: 7}

	ctx := func(msg *tgbotapi.Message) *router.Context {
		return &router.Context{Update: tgbotapi.Update{Message: msg}, User: user}
	}

	f := fileFromMessage(ctx(&tgbotapi.Message{
		Document: &tgbotapi.Document{FileID: "DOC-1", FileName: "notes.pdf"},
	}))
	require.NotNil(t, f)
	assert.Equal(t, models.MediaDocument, f.Kind)
	assert.Equal(t, "notes.pdf", f.Name)
	assert.EqualValues(t, 7, f.UploaderID)

	// The largest photo size is the last in the slice.
	f = fileFromMessage(ctx(&tgbotapi.Message{
		Photo: []tgbotapi.PhotoSize{{FileID: "PIC-s"}, {FileID: "PIC-l"}},
	}))
	require.NotNil(t, f)
	assert.Equal(t, models.MediaPhoto, f.Kind)
	assert.Equal(t, "PIC-l", f.TelegramID)

	f = fileFromMessage(ctx(&tgbotapi.Message{
		Video: &tgbotapi.Video{FileID: "VID-1"},
	}))
	require.NotNil(t, f)
	assert.Equal(t, "video", f.Name)

	assert.Nil(t, fileFromMessage(ctx(&tgbotapi.Message{Text: "just text"})))
}
