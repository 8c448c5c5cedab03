package schedule

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"cued/internal/script"
	"cued/pkg/logx"
)

// Compiler turns script files into schedule entries.
//
// It is a stateless transformer: parsing happens here, but applying the
// result to a Schedule stays with the caller (the actor), which keeps all
// schedule mutation on one goroutine.
type Compiler struct {
	Delimiter byte
	Log       logx.Logger
	Now       func() time.Time // test hook; defaults to time.Now
}

func NewCompiler(delimiter byte, log logx.Logger) *Compiler {
	if delimiter == 0 {
		delimiter = script.DefaultDelimiter
	}
	return &Compiler{Delimiter: delimiter, Log: log}
}

func (c *Compiler) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// IsScriptFile reports whether path names a cue-sheet file.
func IsScriptFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".txt")
}

// ScanDir walks the source directory and returns all script file paths in
// sorted order. Sorted order is what fixes fragment discovery order for the
// initial compile.
func (c *Compiler) ScanDir(dir string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if IsScriptFile(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

// CompileFile parses one fragment file with a fresh load time.
//
// The load time anchors the fragment's relative-timestamp cursor and is
// returned so the caller can record it on Apply.
func (c *Compiler) CompileFile(path string) ([]Entry, time.Time, error) {
	loadTime := c.now()

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, loadTime, &script.ParseError{Path: path, Kind: script.ErrRead, Cause: err}
	}

	msgs, err := script.Parse(string(b), c.Delimiter, loadTime)
	if err != nil {
		if pe, ok := err.(*script.ParseError); ok {
			pe.Path = path
		}
		return nil, loadTime, err
	}

	entries := make([]Entry, 0, len(msgs))
	for _, m := range msgs {
		entries = append(entries, Entry{
			Due:     m.Due,
			Topic:   m.Topic,
			Payload: m.Payload,
			Origin:  FragmentID(path),
			Seq:     m.Seq,
		})
	}
	return entries, loadTime, nil
}

// CompileDir parses every script file under dir into sched. A file that
// fails to parse is reported and skipped; the remaining fragments still
// compile (partial schedule plus per-file errors).
func (c *Compiler) CompileDir(dir string, sched *Schedule) []error {
	paths, err := c.ScanDir(dir)
	if err != nil {
		return []error{err}
	}

	var errs []error
	for _, path := range paths {
		entries, loadTime, err := c.CompileFile(path)
		if err != nil {
			errs = append(errs, err)
			c.Log.Warn("fragment rejected", logx.String("path", path), logx.Err(err))
			continue
		}
		sched.Apply(FragmentID(path), entries, loadTime)
		c.Log.Debug("fragment compiled",
			logx.String("path", path),
			logx.Int("entries", len(entries)),
		)
	}
	return errs
}
