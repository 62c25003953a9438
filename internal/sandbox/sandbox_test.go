package sandbox

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemFS(t *testing.T) *FS {
	t.Helper()
	fs, err := NewWithFs(afero.NewMemMapFs(), "/project")
	require.NoError(t, err)
	return fs
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		want    string
		wantErr error
	}{
		{name: "plain", path: "index.html", want: "index.html"},
		{name: "nested", path: "css/style.css", want: "css/style.css"},
		{name: "dot segments", path: "./a/../b.js", want: "b.js"},
		{name: "traversal", path: "../etc/passwd", wantErr: ErrOutsideRoot},
		{name: "bare parent", path: "..", wantErr: ErrOutsideRoot},
		{name: "absolute", path: "/etc/passwd", wantErr: ErrAbsolutePath},
		{name: "empty", path: "  ", wantErr: ErrEmptyPath},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(tt.path)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWriteReadExists(t *testing.T) {
	ctx := context.Background()
	fs := newMemFS(t)

	require.NoError(t, fs.Write(ctx, "js/app/script.js", "console.log(1)"))
	assert.True(t, fs.Exists("js/app/script.js"))
	assert.False(t, fs.Exists("js/app"), "directories are not files")

	content, found, err := fs.Read("js/app/script.js")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "console.log(1)", content)

	content, found, err = fs.Read("missing.txt")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, content)

	assert.ErrorIs(t, fs.Write(ctx, "../escape.txt", "x"), ErrOutsideRoot)
	assert.ErrorIs(t, fs.Write(ctx, "/abs.txt", "x"), ErrAbsolutePath)
}

func TestWriteGuard(t *testing.T) {
	denied := errors.New("denied")
	fs := newMemFS(t).WithGuard(func(_ context.Context, path, _ string) error {
		if strings.HasPrefix(path, ".git/") {
			return denied
		}
		return nil
	})

	assert.ErrorIs(t, fs.Write(context.Background(), ".git/config", "x"), denied)
	assert.False(t, fs.Exists(".git/config"))
	assert.NoError(t, fs.Write(context.Background(), "README.md", "# hi"))
}

func TestList(t *testing.T) {
	ctx := context.Background()
	fs := newMemFS(t)
	for _, p := range []string{"styles.css", "index.html", "js/script.js", ".git/HEAD"} {
		require.NoError(t, fs.Write(ctx, p, "x"))
	}

	files, err := fs.List(".")
	require.NoError(t, err)
	assert.Equal(t, []string{"index.html", "js/script.js", "styles.css"}, files)

	files, err = fs.List("js")
	require.NoError(t, err)
	assert.Equal(t, []string{"js/script.js"}, files)

	files, err = fs.List("nope")
	require.NoError(t, err)
	assert.Empty(t, files)

	_, err = fs.List("index.html")
	assert.Error(t, err)
}

func TestContextSummary(t *testing.T) {
	ctx := context.Background()
	fs := newMemFS(t)
	assert.Equal(t, "No files in project yet.", fs.ContextSummary(5, 300, "index.html"))

	require.NoError(t, fs.Write(ctx, "a.css", strings.Repeat("a", 50)))
	require.NoError(t, fs.Write(ctx, "b.js", "short"))
	require.NoError(t, fs.Write(ctx, "c.md", "notes"))
	require.NoError(t, fs.Write(ctx, "index.html", "<html>"))

	summary := fs.ContextSummary(2, 10, "index.html")
	assert.Contains(t, summary, "### a.css\n```\naaaaaaaaaa\n... (truncated)\n```")
	assert.Contains(t, summary, "### b.js")
	assert.NotContains(t, summary, "### c.md")
	assert.NotContains(t, summary, "index.html")
	assert.Contains(t, summary, "... and 1 more files")
}

func TestContextSummary_KeepsCharactersWhole(t *testing.T) {
	fs := newMemFS(t)
	require.NoError(t, fs.Write(context.Background(), "i18n.js", strings.Repeat("é", 10)))

	summary := fs.ContextSummary(5, 5, "")
	assert.True(t, utf8.ValidString(summary))
	assert.Contains(t, summary, "```\néé\n... (truncated)\n```")
}

func TestArchive(t *testing.T) {
	ctx := context.Background()
	fs := newMemFS(t)
	require.NoError(t, fs.Write(ctx, "index.html", "<html></html>"))
	require.NoError(t, fs.Write(ctx, "css/style.css", "body{}"))

	var buf bytes.Buffer
	require.NoError(t, fs.Archive(&buf))

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	got := map[string]string{}
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		_ = rc.Close()
		got[f.Name] = string(data)
	}
	assert.Equal(t, map[string]string{
		"css/style.css": "body{}",
		"index.html":    "<html></html>",
	}, got)
}

func TestNew_OSRoot(t *testing.T) {
	dir := t.TempDir()
	fs, err := New(dir + "/generated")
	require.NoError(t, err)
	require.NoError(t, fs.Write(context.Background(), "index.html", "ok"))
	assert.True(t, fs.Exists("index.html"))
	assert.Equal(t, dir+"/generated", fs.Root())
}
