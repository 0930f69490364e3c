package utils

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func formFile(t *testing.T, name string, content []byte) *multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&buf, w.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })
	return form.File["file"][0]
}

func TestCheckUpload(t *testing.T) {
	assert.NoError(t, CheckUpload(formFile(t, "clip.MP4", []byte("x")), 10, ProofExtensions))
	assert.NoError(t, CheckUpload(formFile(t, "art.webp", []byte("x")), 10, ImageExtensions))

	err := CheckUpload(formFile(t, "clip.mp4", []byte("x")), 10, ImageExtensions)
	assert.True(t, errors.Is(err, ErrFileTypeInvalid))

	err = CheckUpload(formFile(t, "big.png", bytes.Repeat([]byte("x"), 11)), 10, ImageExtensions)
	assert.True(t, errors.Is(err, ErrFileTooLarge))

	err = CheckUpload(formFile(t, "noext", []byte("x")), 10, ImageExtensions)
	assert.True(t, errors.Is(err, ErrFileTypeInvalid))
}

func TestObjectKey(t *testing.T) {
	key := ObjectKey("proofs/m-1", "Screen Shot.PNG")
	assert.True(t, strings.HasPrefix(key, "proofs/m-1/"))
	assert.True(t, strings.HasSuffix(key, ".png"))
	assert.NotEqual(t, key, ObjectKey("proofs/m-1", "Screen Shot.PNG"))
}

func TestDiskStore_PutDelete(t *testing.T) {
	dir := t.TempDir()
	store, err := NewDiskStore(dir, "/uploads/")
	require.NoError(t, err)
	ctx := context.Background()

	url, err := store.Put(ctx, "rewards/jersey.png", formFile(t, "jersey.png", []byte("img")))
	require.NoError(t, err)
	assert.Equal(t, "/uploads/rewards/jersey.png", url)

	data, err := os.ReadFile(filepath.Join(dir, "rewards", "jersey.png"))
	require.NoError(t, err)
	assert.Equal(t, "img", string(data))

	require.NoError(t, store.Delete(ctx, "rewards/jersey.png"))
	_, err = os.Stat(filepath.Join(dir, "rewards", "jersey.png"))
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, store.Delete(ctx, "rewards/jersey.png"), "deleting a missing file is not an error")
}

func TestDiskStore_KeysStayInsideDir(t *testing.T) {
	dir := t.TempDir()
	store, err := NewDiskStore(filepath.Join(dir, "uploads"), "/uploads")
	require.NoError(t, err)

	_, err = store.Put(context.Background(), "../../escape.png", formFile(t, "escape.png", []byte("x")))
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "escape.png"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, "uploads", "escape.png"))
	assert.NoError(t, err)

	_, err = store.Put(context.Background(), "", formFile(t, "x.png", []byte("x")))
	assert.Error(t, err)
}
