package repository

import (
	"context"
	"testing"
	"time"

	"pulse/internal/models"
	"pulse/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWhyRepository_CreateListAndPage(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewWhyRepository(db)
	ctx := context.Background()
	author := testutil.CreateUser(t, db, "asker")

	base := time.Now().Add(-time.Hour)
	var created []*models.Why
	for i := 0; i < 3; i++ {
		why := &models.Why{AuthorID: author.ID, Title: "why?", Description: "because", CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		require.NoError(t, repo.Create(ctx, why))
		created = append(created, why)
	}

	got, err := repo.GetByID(ctx, created[1].ID)
	require.NoError(t, err)
	assert.Equal(t, "why?", got.Title)

	page, err := repo.List(ctx, 0, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, created[2].ID, page[0].ID, "newest first")
	assert.Equal(t, created[1].ID, page[1].ID)

	page, err = repo.List(ctx, page[1].ID, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, created[0].ID, page[0].ID)

	_, err = repo.GetByID(ctx, 1)
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}

func TestWhyRepository_Pulses(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewWhyRepository(db)
	ctx := context.Background()
	author := testutil.CreateUser(t, db, "asker")

	busy := &models.Why{AuthorID: author.ID, Title: "busy", Description: "d"}
	quiet := &models.Why{AuthorID: author.ID, Title: "quiet", Description: "d"}
	require.NoError(t, repo.Create(ctx, busy))
	require.NoError(t, repo.Create(ctx, quiet))

	base := time.Now().Add(-time.Hour)
	first := &models.Pulse{WhyID: busy.ID, Content: "first", CreatedAt: base}
	second := &models.Pulse{WhyID: busy.ID, Content: "second", CreatedAt: base.Add(time.Minute)}
	require.NoError(t, repo.AddPulse(ctx, first))
	require.NoError(t, repo.AddPulse(ctx, second))

	pulses, err := repo.ListPulses(ctx, busy.ID)
	require.NoError(t, err)
	require.Len(t, pulses, 2)
	assert.Equal(t, second.ID, pulses[0].ID, "newest first")
	assert.Equal(t, first.ID, pulses[1].ID)

	empty, err := repo.ListPulses(ctx, quiet.ID)
	require.NoError(t, err)
	assert.Empty(t, empty)

	counts, err := repo.CountPulses(ctx, []int64{busy.ID, quiet.ID})
	require.NoError(t, err)
	assert.Equal(t, map[int64]int{busy.ID: 2}, counts)

	counts, err = repo.CountPulses(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, counts)
}
