package pagination

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/repairshop-backend/pkg/db/dbtest"
	"github.com/angelmondragon/repairshop-backend/pkg/db/models"
)

func TestNormalizeLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, NormalizeLimit(0))
	assert.Equal(t, MaxLimit, NormalizeLimit(MaxLimit+50))
	assert.Equal(t, 10, NormalizeLimit(10))
	assert.Equal(t, 11, LimitWithBuffer(10))
}

func TestCursorRoundTrip(t *testing.T) {
	want := Cursor{CreatedAt: time.Date(2026, 3, 1, 10, 30, 0, 123, time.UTC), ID: uuid.New()}
	got, err := ParseCursor(EncodeCursor(want))
	require.NoError(t, err)
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, want.ID, got.ID)

	empty, err := ParseCursor("  ")
	require.NoError(t, err)
	assert.Nil(t, empty)

	_, err = ParseCursor("not-base64!!")
	assert.ErrorIs(t, err, ErrInvalidCursor)

	_, err = ParseCursor(EncodeCursor(want)[:10])
	assert.ErrorIs(t, err, ErrInvalidCursor)
}

func TestBuildPage(t *testing.T) {
	type row struct {
		id uuid.UUID
		at time.Time
	}
	now := time.Now().UTC()
	rows := []row{{uuid.New(), now}, {uuid.New(), now.Add(-time.Minute)}, {uuid.New(), now.Add(-2 * time.Minute)}}
	cursorOf := func(r row) Cursor { return Cursor{CreatedAt: r.at, ID: r.id} }

	page := BuildPage(rows, 2, cursorOf)
	require.Len(t, page.Items, 2)
	require.NotEmpty(t, page.NextCursor)
	next, err := ParseCursor(page.NextCursor)
	require.NoError(t, err)
	assert.Equal(t, rows[1].id, next.ID)

	last := BuildPage(rows[:1], 2, cursorOf)
	assert.Len(t, last.Items, 1)
	assert.Empty(t, last.NextCursor)

	assert.NotNil(t, BuildPage[row](nil, 5, cursorOf).Items)
}

func TestKeysetWalksNewestFirst(t *testing.T) {
	conn := dbtest.Open(t, &models.Note{})
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for i, title := range []string{"oldest", "middle", "newest"} {
		require.NoError(t, conn.Create(&models.Note{Title: title, CreatedAt: base.Add(time.Duration(i) * time.Hour)}).Error)
	}
	cursorOf := func(n models.Note) Cursor { return Cursor{CreatedAt: n.CreatedAt, ID: n.ID} }

	var rows []models.Note
	require.NoError(t, conn.Scopes(Keyset(Params{Limit: 2})).Find(&rows).Error)
	first := BuildPage(rows, 2, cursorOf)
	require.Len(t, first.Items, 2)
	assert.Equal(t, "newest", first.Items[0].Title)
	require.NotEmpty(t, first.NextCursor)

	rows = nil
	require.NoError(t, conn.Scopes(Keyset(Params{Limit: 2, Cursor: first.NextCursor})).Find(&rows).Error)
	second := BuildPage(rows, 2, cursorOf)
	require.Len(t, second.Items, 1)
	assert.Equal(t, "oldest", second.Items[0].Title)
	assert.Empty(t, second.NextCursor)
}

func TestKeysetRejectsBadCursor(t *testing.T) {
	conn := dbtest.Open(t, &models.Note{})
	var rows []models.Note
	err := conn.Scopes(Keyset(Params{Cursor: "%%%"})).Find(&rows).Error
	assert.ErrorIs(t, err, ErrInvalidCursor)
}
