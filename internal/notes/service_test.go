package notes

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/repairshop-backend/pkg/db/dbtest"
	"github.com/angelmondragon/repairshop-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/repairshop-backend/pkg/errors"
)

func newService(t *testing.T) Service {
	t.Helper()
	svc, err := NewService(NewRepository(dbtest.Open(t, &models.Note{})))
	require.NoError(t, err)
	return svc
}

func TestListPutsPinnedFirst(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, uuid.Nil, CreateInput{Title: "order screens"})
	require.NoError(t, err)
	pinned, err := svc.Create(ctx, uuid.New(), CreateInput{Title: "closed on Sunday", Pinned: true})
	require.NoError(t, err)
	_, err = svc.Create(ctx, uuid.Nil, CreateInput{Title: "call supplier", Body: "about batteries"})
	require.NoError(t, err)

	list, err := svc.List(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, pinned.ID, list[0].ID)

	found, err := svc.List(ctx, "BATTER", 0)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "call supplier", found[0].Title)
}

func TestUpdateAndDelete(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	note, err := svc.Create(ctx, uuid.Nil, CreateInput{Title: "draft"})
	require.NoError(t, err)

	pin := true
	title := " final "
	updated, err := svc.Update(ctx, note.ID, UpdateInput{Title: &title, Pinned: &pin})
	require.NoError(t, err)
	assert.Equal(t, "final", updated.Title)
	assert.True(t, updated.Pinned)

	blank := ""
	_, err = svc.Update(ctx, note.ID, UpdateInput{Title: &blank})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	require.NoError(t, svc.Delete(ctx, note.ID))
	_, err = svc.Get(ctx, note.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	assert.True(t, pkgerrors.IsCode(svc.Delete(ctx, note.ID), pkgerrors.CodeNotFound))
}

func TestCreateValidation(t *testing.T) {
	svc := newService(t)
	_, err := svc.Create(context.Background(), uuid.Nil, CreateInput{Title: strings.Repeat("x", maxTitleLength+1)})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
