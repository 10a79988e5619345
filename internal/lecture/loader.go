package lecture

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kingrea/lecture-archive/internal/logging"
	"github.com/kingrea/lecture-archive/internal/section"
)

// LoadResult holds every record that resolved plus the files that were
// skipped along the way.
type LoadResult struct {
	Records []Record
	Skipped []*SourceError
}

// Loader reads data/<section>/*.json for every section in the catalog.
type Loader struct {
	dataDir  string
	catalog  section.Catalog
	resolver *Resolver
	log      *logging.Logger
}

// NewLoader wires a loader. A nil logger discards output.
func NewLoader(dataDir string, catalog section.Catalog, resolver *Resolver, log *logging.Logger) *Loader {
	if resolver == nil {
		resolver = NewResolver(DefaultCrossRules())
	}
	return &Loader{
		dataDir:  dataDir,
		catalog:  catalog,
		resolver: resolver,
		log:      log,
	}
}

// Load reads and resolves all records in catalog order. Files within a
// section are visited in name order so repeated runs see the same sequence.
func (l *Loader) Load(ctx context.Context) (LoadResult, error) {
	var result LoadResult
	info, err := os.Stat(l.dataDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return result, fmt.Errorf("%w: %s", ErrMissingDataDir, l.dataDir)
		}
		return result, fmt.Errorf("lecture: stat data dir: %w", err)
	}
	if !info.IsDir() {
		return result, fmt.Errorf("%w: %s is not a directory", ErrMissingDataDir, l.dataDir)
	}

	for _, key := range l.catalog.Keys() {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		files, err := ListJSON(filepath.Join(l.dataDir, string(key)))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				l.log.Warn("section folder not found", "section", key)
				continue
			}
			return result, fmt.Errorf("lecture: list section %s: %w", key, err)
		}
		l.log.Info("section scanned", "section", key, "files", len(files))

		for _, name := range files {
			rec, srcErr := l.loadFile(key, name)
			if srcErr != nil {
				l.log.Error("skipping lecture", "section", key, "file", name, "kind", srcErr.Kind, "error", srcErr.Err)
				result.Skipped = append(result.Skipped, srcErr)
				continue
			}
			result.Records = append(result.Records, rec)
		}
	}
	return result, nil
}

func (l *Loader) loadFile(key section.Key, name string) (Record, *SourceError) {
	data, err := os.ReadFile(filepath.Join(l.dataDir, string(key), name))
	if err != nil {
		return Record{}, &SourceError{Kind: ReadError, Section: key, Filename: name, Err: err}
	}
	raw, err := DecodeObject(data)
	if err != nil {
		return Record{}, &SourceError{Kind: ParseError, Section: key, Filename: name, Err: err}
	}
	rec := l.resolver.Resolve(raw, name, key)
	if !PlainName(rec.ID) {
		return Record{}, &SourceError{Kind: IDError, Section: key, Filename: name, Err: fmt.Errorf("%w: %q", ErrUnusableID, rec.ID)}
	}
	if rec.Date != "" && firstString(raw, "date") == "" {
		if _, fromName := DateFromFilename(name); fromName {
			l.log.Debug("date taken from filename", "section", key, "file", name, "date", rec.Date)
		}
	}
	return rec, nil
}

// DecodeObject parses a JSON document whose top level must be an object.
func DecodeObject(data []byte) (map[string]any, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, fmt.Errorf("top-level value is not an object")
	}
	return raw, nil
}

// ListJSON returns the names of regular .json files in dir, sorted.
func ListJSON(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}
