package images

import (
	"context"
	"encoding/base64"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elee1766/genstudio/src/apiclient"
	"github.com/elee1766/genstudio/src/model"
	"github.com/elee1766/genstudio/src/testutil"
)

func newService(t *testing.T) (*Service, *testutil.Server) {
	t.Helper()
	server := testutil.NewServer(t)
	client := apiclient.NewClient(apiclient.Config{BaseURL: server.BaseURL()})
	return NewService(client, nil), server
}

func TestUploadThenList(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/photos/cat.png", testutil.PNG, 0o644))

	file, err := OpenFile(fs, "/photos/cat.png")
	require.NoError(t, err)
	assert.Equal(t, "cat.png", file.Name)
	assert.Equal(t, "image/png", file.MimeType)

	result, err := svc.Upload(ctx, file, "default")
	require.NoError(t, err)
	assert.Equal(t, "default/cat.png", result.Path)

	list, err := svc.List(ctx, "default")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "cat.png", list[0].Name)
	assert.Equal(t, model.SourceUpload, list[0].SourceType)
	assert.False(t, list[0].IsGenerated())
}

func TestOpenFileRejectsNonImages(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/notes.txt", []byte("just some text"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/empty.png", nil, 0o644))
	require.NoError(t, fs.MkdirAll("/dir", 0o755))

	for _, path := range []string{"/notes.txt", "/empty.png", "/dir"} {
		t.Run(path, func(t *testing.T) {
			_, err := OpenFile(fs, path)
			require.Error(t, err)
			assert.True(t, apiclient.IsValidationError(err))
		})
	}

	_, err := OpenFile(fs, "/missing.png")
	require.Error(t, err)
	assert.False(t, apiclient.IsValidationError(err))
}

func TestRenameAndDelete(t *testing.T) {
	ctx := context.Background()
	svc, server := newService(t)
	server.AddImage("default", model.ImageInfo{Name: "a.png"})

	renamed, err := svc.Rename(ctx, "default/a.png", "b.png", "default")
	require.NoError(t, err)
	assert.Equal(t, "default/b.png", renamed.Path)
	assert.Equal(t, "b.png", renamed.Name)

	_, err = svc.Rename(ctx, "default/b.png", " ", "default")
	assert.True(t, apiclient.IsValidationError(err))

	require.NoError(t, svc.Delete(ctx, "default/b.png"))
	list, err := svc.List(ctx, "default")
	require.NoError(t, err)
	assert.Empty(t, list)

	err = svc.Delete(ctx, "default/b.png")
	require.Error(t, err)
	assert.Equal(t, "image not found", apiclient.DisplayMessage(err))
}

func TestGenerateAndDownload(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	result, err := svc.Generate(ctx, model.GenerateRequest{Prompt: "a red fox", Workspace: "default"})
	require.NoError(t, err)
	require.Len(t, result.Parts, 2)
	assert.Equal(t, model.PartText, result.Parts[0].Type)
	require.True(t, result.Parts[1].IsImage())

	img := *result.Parts[1].Image
	data, err := svc.Download(ctx, img)
	require.NoError(t, err)
	assert.Equal(t, testutil.PNG, data)

	img.Data = ""
	data, err = svc.Download(ctx, img)
	require.NoError(t, err)
	assert.Equal(t, testutil.PNG, data)

	data, err = svc.Download(ctx, model.GeneratedImage{Data: "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("x"))})
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), data)

	_, err = svc.Download(ctx, model.GeneratedImage{})
	assert.ErrorIs(t, err, apiclient.ErrEmptyResponse)
}

func TestExtensionFor(t *testing.T) {
	tests := map[string]string{
		"image/png":                 ".png",
		"image/jpeg":                ".jpg",
		"image/webp":                ".webp",
		"image/png; charset=binary": ".png",
	}
	for mime, want := range tests {
		assert.Equal(t, want, ExtensionFor(mime), mime)
	}
	assert.True(t, IsImageMIME("image/gif"))
	assert.False(t, IsImageMIME("text/plain; charset=utf-8"))
}
