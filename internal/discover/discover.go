// Package discover resolves root-relative paths and lists the entries
// beneath a served root directory.
package discover

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/phobologic/reponav/internal/lang"
)

var (
	// ErrEscape is returned for paths that would leave the root.
	ErrEscape = errors.New("path escapes root")
	// ErrNotFound is returned when a path does not exist under the root.
	ErrNotFound = errors.New("no such file or directory")
	// ErrNotDir is returned when a directory was expected.
	ErrNotDir = errors.New("not a directory")
)

// FileEntry represents a discovered source file.
type FileEntry struct {
	Path     string // Relative to root, slash separated
	Language string
}

// Listing holds the direct children of a directory.
type Listing struct {
	Files []string
	Dirs  []string
}

var skipDirs = map[string]struct{}{
	"__pycache__":   {},
	"node_modules":  {},
	".git":          {},
	".hg":           {},
	".svn":          {},
	"venv":          {},
	".venv":         {},
	"bin":           {},
	"obj":           {},
	".vs":           {},
	".tox":          {},
	".mypy_cache":   {},
	".pytest_cache": {},
}

// CheckRelative reports ErrEscape if rel is absolute or has a ".." segment.
func CheckRelative(rel string) error {
	if rel == "" {
		return nil
	}
	if filepath.IsAbs(rel) || strings.HasPrefix(rel, "/") || strings.HasPrefix(rel, `\`) || filepath.VolumeName(rel) != "" {
		return fmt.Errorf("%q: %w", rel, ErrEscape)
	}
	for _, seg := range strings.FieldsFunc(rel, func(r rune) bool { return r == '/' || r == '\\' }) {
		if seg == ".." {
			return fmt.Errorf("%q: %w", rel, ErrEscape)
		}
	}
	return nil
}

// Resolve joins rel onto root and returns the absolute path. It rejects any
// rel that could leave root, including one that passes through a symlink
// below root. Segments that do not exist yet are not checked.
func Resolve(root, rel string) (string, error) {
	if err := CheckRelative(rel); err != nil {
		return "", err
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolving root: %w", err)
	}
	joined := filepath.Join(absRoot, filepath.FromSlash(rel))
	inside, err := filepath.Rel(absRoot, joined)
	if err != nil || inside == ".." || strings.HasPrefix(inside, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%q: %w", rel, ErrEscape)
	}
	if err := checkSymlinks(absRoot, inside); err != nil {
		return "", fmt.Errorf("%q: %w", rel, err)
	}
	return joined, nil
}

// checkSymlinks walks inside one segment at a time and fails on the first
// symlink.
func checkSymlinks(absRoot, inside string) error {
	if inside == "." {
		return nil
	}
	cur := absRoot
	for _, seg := range strings.Split(inside, string(filepath.Separator)) {
		cur = filepath.Join(cur, seg)
		info, err := os.Lstat(cur)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if info.Mode()&os.ModeSymlink != 0 {
			return ErrEscape
		}
	}
	return nil
}

// Hidden reports whether a directory named name is left out of listings
// and discovery: dot folders and well-known tool directories.
func Hidden(name string) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	_, skip := skipDirs[name]
	return skip
}

// Rel converts an absolute path under root back to a slash-separated
// root-relative path.
func Rel(root, abs string) string {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return filepath.ToSlash(abs)
	}
	rel, err := filepath.Rel(absRoot, abs)
	if err != nil {
		return filepath.ToSlash(abs)
	}
	return filepath.ToSlash(rel)
}

// List returns the files and directories directly inside rel. Hidden
// entries, symlinks, well-known tool directories and paths matched by the
// root .gitignore are left out. When patterns is non-empty, only files
// whose name matches one of the globs are listed.
func List(root, rel string, patterns []string) (Listing, error) {
	dir, err := Resolve(root, rel)
	if err != nil {
		return Listing{}, err
	}
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Listing{}, fmt.Errorf("%q: %w", rel, ErrNotFound)
		}
		return Listing{}, err
	}
	if !info.IsDir() {
		return Listing{}, fmt.Errorf("%q: %w", rel, ErrNotDir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return Listing{}, fmt.Errorf("reading %q: %w", rel, err)
	}

	gi := loadGitignore(root)

	listing := Listing{Files: []string{}, Dirs: []string{}}
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		if e.Type()&os.ModeSymlink != 0 {
			continue
		}
		entryRel := path.Join(filepath.ToSlash(rel), name)
		if gi != nil && (gi.MatchesPath(entryRel) || (e.IsDir() && gi.MatchesPath(entryRel+"/"))) {
			continue
		}
		if e.IsDir() {
			if Hidden(name) {
				continue
			}
			listing.Dirs = append(listing.Dirs, name)
			continue
		}
		if !matchesAny(name, patterns) {
			continue
		}
		listing.Files = append(listing.Files, name)
	}

	sort.Strings(listing.Files)
	sort.Strings(listing.Dirs)
	return listing, nil
}

func matchesAny(name string, patterns []string) bool {
	if len(patterns) == 0 {
		return true
	}
	for _, p := range patterns {
		if ok, _ := filepath.Match(p, name); ok {
			return true
		}
	}
	return false
}

// Files discovers parseable source files under root/rel, returned
// relative to root and sorted. If languages is non-empty, only files
// matching one of the listed languages are returned.
func Files(root, rel string, languages []string) ([]FileEntry, error) {
	start, err := Resolve(root, rel)
	if err != nil {
		return nil, err
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving root: %w", err)
	}

	langSet := make(map[string]struct{}, len(languages))
	for _, l := range languages {
		langSet[l] = struct{}{}
	}
	gitFiles := gitLsFiles(absRoot)
	var gi *ignore.GitIgnore
	if gitFiles == nil {
		gi = loadGitignore(absRoot)
	}

	var results []FileEntry

	err = filepath.WalkDir(start, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // skip errors
		}

		name := d.Name()

		if d.IsDir() {
			if p == start {
				return nil
			}
			if Hidden(name) {
				return filepath.SkipDir
			}
			return nil
		}

		if strings.HasPrefix(name, ".") {
			return nil
		}

		// Skip symlinks
		if d.Type()&os.ModeSymlink != 0 {
			return nil
		}

		relPath, err := filepath.Rel(absRoot, p)
		if err != nil {
			return nil
		}
		relPath = filepath.ToSlash(relPath)

		if gitFiles != nil {
			if _, ok := gitFiles[relPath]; !ok {
				return nil
			}
		} else if gi != nil && gi.MatchesPath(relPath) {
			return nil
		}

		langName := lang.ForExtension(filepath.Ext(name))
		if langName == "" {
			return nil
		}

		if len(langSet) > 0 {
			if _, ok := langSet[langName]; !ok {
				return nil
			}
		}

		results = append(results, FileEntry{Path: relPath, Language: langName})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Path < results[j].Path
	})

	return results, nil
}

func gitLsFiles(root string) map[string]struct{} {
	gitDir := filepath.Join(root, ".git")
	info, err := os.Stat(gitDir)
	if err != nil || !info.IsDir() {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	out, err := cmd.Output()
	if err != nil {
		return nil
	}

	files := make(map[string]struct{})
	for _, line := range strings.Split(strings.TrimRight(string(out), "\n"), "\n") {
		if line != "" {
			files[line] = struct{}{}
		}
	}
	return files
}

func loadGitignore(root string) *ignore.GitIgnore {
	gi, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		return nil
	}
	return gi
}
