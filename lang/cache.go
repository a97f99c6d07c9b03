package lang

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/klauspost/readahead"
	"github.com/zeebo/xxh3"

	"github.com/vslavik/bakefile/log"
)

// fileCache stores parse results keyed by absolute file path. An import
// shared by several modules is read and parsed once per process.
var fileCache sync.Map

// state tracks the parse of one file. hash guards against the file
// changing on disk between lookups.
type state struct {
	once sync.Once
	hash uint64
	file *File
	err  error
}

// ParseFile reads and parses an input file, caching the result so
// repeated imports of the same file parse only once.
func ParseFile(path string) (*File, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, ErrReadInput.Wrap(err).
			With(slog.String("file", path))
	}

	f, err := os.Open(abs)
	if err != nil {
		return nil, ErrReadInput.Wrap(err).
			With(slog.String("file", path))
	}
	defer f.Close()

	// Wrap the file with async read-ahead so I/O overlaps hashing.
	ra := readahead.NewReader(f)
	defer ra.Close()

	data, err := io.ReadAll(ra)
	if err != nil {
		return nil, ErrReadInput.Wrap(err).
			With(slog.String("file", path))
	}
	hash := xxh3.Hash(data)

	for {
		entry := &state{hash: hash}
		value, hit := fileCache.LoadOrStore(abs, entry)
		st, ok := value.(*state)
		if !ok {
			fileCache.Delete(abs)

			continue
		}
		if st.hash != hash {
			// The file changed since it was cached; retry with a fresh
			// entry.
			fileCache.CompareAndDelete(abs, value)

			continue
		}

		log.Trace("cache lookup",
			slog.String("file", path),
			slog.String("source_hash", strconv.FormatUint(hash, 16)),
			slog.Bool("cache_hit", hit))

		st.once.Do(func() {
			st.file, st.err = Parse(path, string(data))
		})

		return st.file, st.err
	}
}

// ClearCache removes all cached parse results. This is primarily useful
// for testing or when memory needs to be reclaimed.
func ClearCache() {
	fileCache = sync.Map{}
}
