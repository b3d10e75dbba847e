package document

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DeFi-Agent/internal/auth"
	apperrors "DeFi-Agent/internal/errors"
	"DeFi-Agent/internal/store"
	"DeFi-Agent/pkg/dto"
)

var (
	owner    = &auth.Subject{ID: "owner", Type: auth.UserTypeRegular}
	stranger = &auth.Subject{ID: "stranger", Type: auth.UserTypeGuest}
)

func newTestService() (*Service, *store.Memory) {
	repo := store.NewMemory()
	svc := NewService(repo)
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time {
		base = base.Add(time.Second)
		return base
	}
	return svc, repo
}

func TestSaveAndGetVersions(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Get(ctx, owner, "doc-1")
	assert.Equal(t, apperrors.CodeNotFoundDocument, apperrors.CodeOf(err))

	first, err := svc.Save(ctx, owner, "doc-1", dto.DocumentRequest{Title: "Plan", Kind: dto.KindText, Content: "v1"})
	require.NoError(t, err)
	_, err = svc.Save(ctx, owner, "doc-1", dto.DocumentRequest{Title: "Plan", Kind: dto.KindText, Content: "v2"})
	require.NoError(t, err)

	versions, err := svc.Get(ctx, owner, "doc-1")
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, "v1", versions[0].Content)
	assert.Equal(t, "v2", versions[1].Content)
	assert.Equal(t, first.CreatedAt, versions[0].CreatedAt)

	_, err = svc.Get(ctx, stranger, "doc-1")
	assert.Equal(t, apperrors.CodeForbiddenDocument, apperrors.CodeOf(err))
	_, err = svc.Save(ctx, stranger, "doc-1", dto.DocumentRequest{Title: "x", Kind: dto.KindCode})
	assert.Equal(t, apperrors.CodeForbiddenDocument, apperrors.CodeOf(err))

	_, err = svc.Get(ctx, owner, "")
	assert.Equal(t, apperrors.CodeBadRequestAPI, apperrors.CodeOf(err))
}

func TestDeleteAfter(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	first, err := svc.Save(ctx, owner, "doc-1", dto.DocumentRequest{Title: "Plan", Kind: dto.KindText, Content: "v1"})
	require.NoError(t, err)
	_, err = svc.Save(ctx, owner, "doc-1", dto.DocumentRequest{Title: "Plan", Kind: dto.KindText, Content: "v2"})
	require.NoError(t, err)

	_, err = svc.DeleteAfter(ctx, owner, "doc-1", "")
	assert.Equal(t, apperrors.CodeBadRequestAPI, apperrors.CodeOf(err))
	_, err = svc.DeleteAfter(ctx, owner, "doc-1", "yesterday")
	assert.Equal(t, apperrors.CodeBadRequestAPI, apperrors.CodeOf(err))
	_, err = svc.DeleteAfter(ctx, stranger, "doc-1", first.CreatedAt.Format(time.RFC3339Nano))
	assert.Equal(t, apperrors.CodeForbiddenDocument, apperrors.CodeOf(err))

	deleted, err := svc.DeleteAfter(ctx, owner, "doc-1", first.CreatedAt.Format(time.RFC3339Nano))
	require.NoError(t, err)
	require.Len(t, deleted, 1)
	assert.Equal(t, "v2", deleted[0].Content)

	versions, err := svc.Get(ctx, owner, "doc-1")
	require.NoError(t, err)
	assert.Len(t, versions, 1)
}

func TestSuggestions(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	empty, err := svc.Suggestions(ctx, owner, "")
	require.NoError(t, err)
	assert.Empty(t, empty)
	missing, err := svc.Suggestions(ctx, owner, "doc-1")
	require.NoError(t, err)
	assert.Empty(t, missing)

	doc, err := svc.Save(ctx, owner, "doc-1", dto.DocumentRequest{Title: "Plan", Kind: dto.KindText, Content: "stake all"})
	require.NoError(t, err)
	require.NoError(t, repo.SaveSuggestions(ctx, []store.Suggestion{{
		ID: "s1", DocumentID: "doc-1", DocumentCreatedAt: doc.CreatedAt,
		OriginalText: "stake all", SuggestedText: "stake half", UserID: owner.ID,
	}}))

	_, err = svc.Suggestions(ctx, stranger, "doc-1")
	assert.Equal(t, apperrors.CodeForbiddenSuggest, apperrors.CodeOf(err))

	got, err := svc.Suggestions(ctx, owner, "doc-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "stake half", got[0].SuggestedText)
}

func TestParseTimestamp(t *testing.T) {
	ts, err := ParseTimestamp("2025-03-01T10:00:00.123Z")
	require.NoError(t, err)
	assert.Equal(t, 123*time.Millisecond, time.Duration(ts.Nanosecond()))

	ts, err = ParseTimestamp("1740823200000")
	require.NoError(t, err)
	assert.Equal(t, int64(1740823200000), ts.UnixMilli())

	_, err = ParseTimestamp("-1")
	assert.Error(t, err)
}
