package links

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "DeFi-Agent/internal/errors"
	"DeFi-Agent/internal/store"
	"DeFi-Agent/pkg/dto"
)

func TestLinkLifecycle(t *testing.T) {
	ctx := context.Background()
	svc := NewService(store.NewMemory())

	first, err := svc.Create(ctx, dto.CreateLinkRequest{Title: "U2U", URL: "https://u2u.xyz"})
	require.NoError(t, err)
	second, err := svc.Create(ctx, dto.CreateLinkRequest{Title: "Docs", URL: "https://docs.u2u.xyz", Description: "network docs"})
	require.NoError(t, err)
	assert.Less(t, first.ID, second.ID)

	all, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, first.ID, all[0].ID)

	title := "U2U Network"
	updated, err := svc.Update(ctx, "1", dto.UpdateLinkRequest{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "U2U Network", updated.Title)
	assert.Equal(t, "https://u2u.xyz", updated.URL)

	got, err := svc.Get(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "U2U Network", got.Title)

	require.NoError(t, svc.Delete(ctx, "1"))
	_, err = svc.Get(ctx, "1")
	assert.Equal(t, apperrors.CodeNotFoundLink, apperrors.CodeOf(err))
	assert.Equal(t, 404, apperrors.StatusOf(err))
}

func TestInvalidLinkID(t *testing.T) {
	ctx := context.Background()
	svc := NewService(store.NewMemory())

	for _, id := range []string{"abc", "0", "-3", ""} {
		_, err := svc.Get(ctx, id)
		assert.Equal(t, apperrors.CodeBadRequestAPI, apperrors.CodeOf(err), id)
	}
	assert.Equal(t, apperrors.CodeNotFoundLink, apperrors.CodeOf(svc.Delete(ctx, "42")))
}
