package analysis

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/phobologic/reponav/internal/lang"
	"github.com/phobologic/reponav/internal/model"
	"github.com/phobologic/reponav/internal/parse"
)

var (
	// ErrUnsupported is returned for files no registered language handles.
	ErrUnsupported = errors.New("unsupported file type")
	// ErrTooLarge is returned for files above the configured size limit.
	ErrTooLarge = errors.New("file too large")
)

// Extractor turns one source file into its type tags.
type Extractor interface {
	Extract(ctx context.Context, path string) (model.FileInfo, error)
}

type cachedFile struct {
	modTime time.Time
	size    int64
	info    model.FileInfo
}

// TreeSitterExtractor extracts tags with the tree-sitter languages in
// package lang. Results are cached per path and reused while the file's
// modification time and size are unchanged.
type TreeSitterExtractor struct {
	cache       *lru.Cache[string, cachedFile]
	maxFileSize int64
}

// NewTreeSitterExtractor creates an extractor holding up to cacheSize
// parsed files. maxFileSize <= 0 disables the size limit.
func NewTreeSitterExtractor(cacheSize int, maxFileSize int64) (*TreeSitterExtractor, error) {
	if cacheSize <= 0 {
		cacheSize = 1
	}
	cache, err := lru.New[string, cachedFile](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating parse cache: %w", err)
	}
	return &TreeSitterExtractor{cache: cache, maxFileSize: maxFileSize}, nil
}

// Extract implements Extractor.
func (e *TreeSitterExtractor) Extract(ctx context.Context, path string) (model.FileInfo, error) {
	langName := lang.ForExtension(filepath.Ext(path))
	if langName == "" {
		return model.FileInfo{}, ErrUnsupported
	}

	st, err := os.Stat(path)
	if err != nil {
		return model.FileInfo{}, err
	}
	if st.IsDir() {
		return model.FileInfo{}, fmt.Errorf("%s: is a directory", filepath.Base(path))
	}
	if e.maxFileSize > 0 && st.Size() > e.maxFileSize {
		return model.FileInfo{}, fmt.Errorf("%w (>%d bytes)", ErrTooLarge, e.maxFileSize)
	}

	if c, ok := e.cache.Get(path); ok && c.modTime.Equal(st.ModTime()) && c.size == st.Size() {
		return c.info, nil
	}

	source, err := os.ReadFile(path)
	if err != nil {
		return model.FileInfo{}, err
	}

	l := lang.Languages[langName]
	q, err := l.GetTypeQuery()
	if err != nil {
		return model.FileInfo{}, fmt.Errorf("query for %s: %w", langName, err)
	}
	p := l.AcquireParser()
	defer l.ReleaseParser(p)

	tags, err := parse.ExtractTags(ctx, p, q, source, path)
	if err != nil {
		return model.FileInfo{}, err
	}

	info := model.FileInfo{Path: path, Language: langName, Tags: tags}
	e.cache.Add(path, cachedFile{modTime: st.ModTime(), size: st.Size(), info: info})
	return info, nil
}

// Cached reports how many files are currently cached.
func (e *TreeSitterExtractor) Cached() int {
	return e.cache.Len()
}
