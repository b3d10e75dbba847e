package files

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "DeFi-Agent/internal/errors"
)

type failingStorage struct{}

func (failingStorage) Put(context.Context, string, string, int64, io.Reader) (string, error) {
	return "", errors.New("bucket unavailable")
}

func TestUploadStoresImage(t *testing.T) {
	storage := NewMemoryStorage("https://cdn.test")
	svc := NewService(storage, 0)

	res, err := svc.Upload(context.Background(), "../avatar.png", "image/png", 4, strings.NewReader("\x89PNG"))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(res.Pathname, "-avatar.png"))
	assert.Equal(t, "https://cdn.test/"+res.Pathname, res.URL)
	assert.Equal(t, "image/png", res.ContentType)

	obj, ok := storage.Get(res.Pathname)
	require.True(t, ok)
	assert.Equal(t, []byte("\x89PNG"), obj.Data)
}

func TestUploadValidation(t *testing.T) {
	svc := NewService(NewMemoryStorage(""), 0)
	ctx := context.Background()

	_, err := svc.Upload(ctx, "big.jpg", "image/jpeg", DefaultMaxBytes+1, strings.NewReader(""))
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, apperrors.StatusOf(err))
	e, _ := apperrors.From(err)
	assert.Equal(t, "File size should be less than 5MB", e.Message())

	_, err = svc.Upload(ctx, "doc.pdf", "application/pdf", 10, strings.NewReader("%PDF"))
	e, _ = apperrors.From(err)
	require.NotNil(t, e)
	assert.Equal(t, "File type should be JPEG or PNG", e.Message())

	_, err = svc.Upload(ctx, "photo.jpg", "image/jpeg; charset=binary", 3, strings.NewReader("abc"))
	assert.NoError(t, err)
}

func TestUploadStorageFailure(t *testing.T) {
	svc := NewService(failingStorage{}, 0)
	_, err := svc.Upload(context.Background(), "a.png", "image/png", 1, strings.NewReader("x"))
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeBadRequestAPI, apperrors.CodeOf(err))
	assert.Equal(t, http.StatusInternalServerError, apperrors.StatusOf(err))
}
