package intake

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"wordxl/internal/services"
)

var acceptedExtensions = map[string]struct{}{
	".doc":  {},
	".docx": {},
	".rtf":  {},
	".odt":  {},
}

// Extensions lists the accepted suffixes in display order.
func Extensions() []string {
	return []string{".doc", ".docx", ".rtf", ".odt"}
}

// Accepts reports whether name carries an accepted document extension.
// The comparison uses Unicode case folding.
func Accepts(name string) bool {
	ext := filepath.Ext(name)
	if ext == "" {
		return false
	}
	_, ok := acceptedExtensions[cases.Fold().String(ext)]
	return ok
}

// Pick stages an explicit selection. Regular files are filtered by extension
// and named by base name; directories are walked recursively and each file
// is named by its path relative to the directory's parent.
func Pick(paths ...string) ([]Candidate, error) {
	var out []Candidate
	for _, raw := range paths {
		path := strings.TrimSpace(raw)
		if path == "" {
			continue
		}
		info, err := os.Stat(path)
		if err != nil {
			return nil, services.Wrap(services.ErrValidation, "intake", "pick", fmt.Sprintf("cannot read %s", path), err)
		}
		if !info.IsDir() {
			if c, ok := candidateFrom(path, filepath.Base(path), info); ok {
				out = append(out, c)
			}
			continue
		}
		walked, err := walkFolder(path)
		if err != nil {
			return nil, err
		}
		out = append(out, walked...)
	}
	return out, nil
}

// Drop stages dropped entries. Directory entries are skipped without
// descending; files are filtered by extension and named by base name.
func Drop(paths ...string) ([]Candidate, error) {
	var out []Candidate
	for _, raw := range paths {
		path := strings.TrimSpace(raw)
		if path == "" {
			continue
		}
		info, err := os.Stat(path)
		if err != nil {
			return nil, services.Wrap(services.ErrValidation, "intake", "drop", fmt.Sprintf("cannot read %s", path), err)
		}
		if info.IsDir() {
			continue
		}
		if c, ok := candidateFrom(path, filepath.Base(path), info); ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func walkFolder(root string) ([]Candidate, error) {
	root = filepath.Clean(root)
	base := filepath.Dir(root)
	var out []Candidate
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			// Unreadable subtrees are treated like rejected files.
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		rel, err := filepath.Rel(base, path)
		if err != nil {
			rel = filepath.Base(path)
		}
		if c, ok := candidateFrom(path, filepath.ToSlash(rel), info); ok {
			out = append(out, c)
		}
		return nil
	})
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "intake", "pick", fmt.Sprintf("walk %s", root), err)
	}
	return out, nil
}

func candidateFrom(path, name string, info fs.FileInfo) (Candidate, bool) {
	if !info.Mode().IsRegular() || !Accepts(name) {
		return Candidate{}, false
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return Candidate{
		Path:    abs,
		Name:    norm.NFC.String(name),
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, true
}
