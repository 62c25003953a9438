// Package sandbox confines all project file access to a single root directory.
package sandbox

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/spf13/afero"
)

var (
	ErrAbsolutePath = errors.New("absolute paths are not allowed")
	ErrOutsideRoot  = errors.New("path escapes project root")
	ErrEmptyPath    = errors.New("empty path")
)

// WriteGuard is consulted before every write. A non-nil error rejects the write.
type WriteGuard func(ctx context.Context, path, content string) error

// FS is a project tree rooted at a directory. Paths handed to it are always
// relative to that root.
type FS struct {
	root  string
	fs    afero.Fs
	guard WriteGuard
}

// New roots a sandbox at dir on the OS filesystem, creating it if needed.
func New(dir string) (*FS, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve project root: %w", err)
	}
	return NewWithFs(afero.NewOsFs(), abs)
}

// NewWithFs roots a sandbox at dir on the given filesystem. Tests pass an
// afero.MemMapFs here.
func NewWithFs(base afero.Fs, dir string) (*FS, error) {
	if err := base.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create project root: %w", err)
	}
	return &FS{root: dir, fs: afero.NewBasePathFs(base, dir)}, nil
}

// WithGuard installs a write guard and returns the sandbox.
func (s *FS) WithGuard(g WriteGuard) *FS {
	s.guard = g
	return s
}

// Root returns the directory the sandbox is rooted at.
func (s *FS) Root() string { return s.root }

// Resolve validates a project-relative path and returns its cleaned form.
func Resolve(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", ErrEmptyPath
	}
	if filepath.IsAbs(path) || strings.HasPrefix(path, "/") || strings.HasPrefix(path, `\`) {
		return "", fmt.Errorf("%w: %s", ErrAbsolutePath, path)
	}
	clean := filepath.Clean(filepath.FromSlash(path))
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, path)
	}
	return clean, nil
}

// Write stores content at path, creating parent directories.
func (s *FS) Write(ctx context.Context, path, content string) error {
	clean, err := Resolve(path)
	if err != nil {
		return err
	}
	if s.guard != nil {
		if err := s.guard(ctx, filepath.ToSlash(clean), content); err != nil {
			return err
		}
	}
	if dir := filepath.Dir(clean); dir != "." {
		if err := s.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	if err := afero.WriteFile(s.fs, clean, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Read returns the content at path. A missing file is reported through found,
// not through err.
func (s *FS) Read(path string) (content string, found bool, err error) {
	clean, err := Resolve(path)
	if err != nil {
		return "", false, err
	}
	data, err := afero.ReadFile(s.fs, clean)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), true, nil
}

// Exists reports whether path names a regular file.
func (s *FS) Exists(path string) bool {
	clean, err := Resolve(path)
	if err != nil {
		return false
	}
	info, err := s.fs.Stat(clean)
	return err == nil && !info.IsDir()
}

// List returns every file below dir, relative to the root, slash-separated
// and sorted.
func (s *FS) List(dir string) ([]string, error) {
	start := "."
	if d := strings.TrimSpace(dir); d != "" && d != "." {
		clean, err := Resolve(d)
		if err != nil {
			return nil, err
		}
		start = clean
	}
	info, err := s.fs.Stat(start)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("stat %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	var files []string
	err = afero.Walk(s.fs, start, func(p string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			if fi.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		files = append(files, filepath.ToSlash(p))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	sort.Strings(files)
	return files, nil
}

// Snapshot reads every file in the tree. Unreadable files are skipped.
func (s *FS) Snapshot() (map[string]string, []string, error) {
	paths, err := s.List(".")
	if err != nil {
		return nil, nil, err
	}
	out := make(map[string]string, len(paths))
	kept := make([]string, 0, len(paths))
	for _, p := range paths {
		content, ok, err := s.Read(p)
		if err != nil || !ok {
			continue
		}
		out[p] = content
		kept = append(kept, p)
	}
	return out, kept, nil
}

// ContextSummary renders up to maxFiles project files, each truncated to
// maxChars, skipping exclude. It is fed to the coder as surrounding context.
func (s *FS) ContextSummary(maxFiles, maxChars int, exclude string) string {
	files, order, err := s.Snapshot()
	if err != nil || len(order) == 0 {
		return "No files in project yet."
	}
	exclude = filepath.ToSlash(filepath.Clean(filepath.FromSlash(exclude)))

	var b strings.Builder
	shown := 0
	candidates := 0
	for _, p := range order {
		if p == exclude {
			continue
		}
		candidates++
		if shown >= maxFiles {
			continue
		}
		content := files[p]
		if len(content) > maxChars {
			content = cutUTF8(content, maxChars) + "\n... (truncated)"
		}
		if shown > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "### %s\n```\n%s\n```", p, content)
		shown++
	}
	if shown == 0 {
		return "No files in project yet."
	}
	if rest := candidates - shown; rest > 0 {
		fmt.Fprintf(&b, "\n\n... and %d more files", rest)
	}
	return b.String()
}

// Archive writes the whole tree to w as a zip file.
func (s *FS) Archive(w io.Writer) error {
	paths, err := s.List(".")
	if err != nil {
		return err
	}
	zw := zip.NewWriter(w)
	for _, p := range paths {
		data, err := afero.ReadFile(s.fs, filepath.FromSlash(p))
		if err != nil {
			_ = zw.Close()
			return fmt.Errorf("read %s: %w", p, err)
		}
		f, err := zw.Create(p)
		if err != nil {
			_ = zw.Close()
			return fmt.Errorf("add %s: %w", p, err)
		}
		if _, err := f.Write(data); err != nil {
			_ = zw.Close()
			return fmt.Errorf("add %s: %w", p, err)
		}
	}
	return zw.Close()
}

// cutUTF8 shortens s to at most n bytes without splitting a character.
func cutUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
