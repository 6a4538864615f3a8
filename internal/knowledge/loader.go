package knowledge

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"consultbot/internal/pkg/pdfextract"
)

// ErrSourceUnavailable marks a knowledge file that could not be read.
var ErrSourceUnavailable = errors.New("knowledge source unavailable")

type LoaderConfig struct {
	Dir        string
	Files      []string // optional allow-list, names relative to Dir
	Pattern    string   // optional regexp a file name must match
	Extensions []string // default .txt and .md
	Logger     *slog.Logger
}

type Loader struct {
	dir        string
	files      []string
	pattern    *regexp.Regexp
	extensions map[string]bool
	logger     *slog.Logger
}

func NewLoader(cfg LoaderConfig) (*Loader, error) {
	l := &Loader{
		dir:        cfg.Dir,
		files:      cfg.Files,
		extensions: make(map[string]bool),
		logger:     cfg.Logger,
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}
	if cfg.Pattern != "" {
		re, err := regexp.Compile(cfg.Pattern)
		if err != nil {
			return nil, fmt.Errorf("compile knowledge pattern failed: %w", err)
		}
		l.pattern = re
	}
	exts := cfg.Extensions
	if len(exts) == 0 {
		exts = []string{".txt", ".md"}
	}
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		l.extensions[ext] = true
	}
	return l, nil
}

// Load reads every eligible knowledge file. Unreadable files are logged and
// skipped; only an unusable directory is an error.
func (l *Loader) Load(ctx context.Context) ([]Document, error) {
	names, err := l.candidates()
	if err != nil {
		return nil, err
	}

	docs := make([]Document, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		doc, err := l.readDocument(name)
		if err != nil {
			l.logger.Warn("skip knowledge file", "file", name, "error", err)
			continue
		}
		if strings.TrimSpace(doc.Text) == "" {
			l.logger.Warn("skip empty knowledge file", "file", name)
			continue
		}
		docs = append(docs, doc)
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].SourceID < docs[j].SourceID })
	l.logger.Info("knowledge documents loaded", "dir", l.dir, "documents", len(docs), "candidates", len(names))
	return docs, nil
}

func (l *Loader) candidates() ([]string, error) {
	info, err := os.Stat(l.dir)
	if err != nil {
		return nil, fmt.Errorf("stat knowledge dir failed: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("knowledge path %s is not a directory", l.dir)
	}

	if len(l.files) > 0 {
		names := make([]string, 0, len(l.files))
		for _, name := range l.files {
			if l.accept(name) {
				names = append(names, filepath.ToSlash(name))
			}
		}
		return names, nil
	}

	var names []string
	err = filepath.WalkDir(l.dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			l.logger.Warn("skip knowledge path", "path", path, "error", walkErr)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(l.dir, path)
		if err != nil {
			rel = path
		}
		if l.accept(rel) {
			names = append(names, filepath.ToSlash(rel))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk knowledge dir failed: %w", err)
	}
	return names, nil
}

func (l *Loader) accept(name string) bool {
	if !l.extensions[strings.ToLower(filepath.Ext(name))] {
		return false
	}
	if l.pattern != nil && !l.pattern.MatchString(filepath.Base(name)) {
		return false
	}
	return true
}

func (l *Loader) readDocument(name string) (Document, error) {
	path := filepath.Join(l.dir, filepath.FromSlash(name))

	var text string
	if strings.EqualFold(filepath.Ext(name), ".pdf") {
		extracted, err := pdfextract.ExtractFile(path)
		if err != nil {
			return Document{}, fmt.Errorf("%w: extract pdf: %w", ErrSourceUnavailable, err)
		}
		text = extracted
	} else {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Document{}, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
		}
		text = string(raw)
	}

	doc := Document{SourceID: name, Text: text}
	if section, category, label, ok := ParseSourceName(name); ok {
		doc.Section, doc.Category, doc.Label = section, category, label
	}
	return doc, nil
}
