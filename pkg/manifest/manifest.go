// Package manifest reads and edits Cargo.toml documents while preserving
// their formatting.
//
// Editing goes through tomledit, which keeps comments, table order, and
// unrelated entries intact, so a patched manifest diffs only in the feature
// array that changed. Manifests that need no change are never reserialized:
// [Patch.Changed] gates every write, which is what makes repeated runs
// byte-stable.
package manifest

import (
	"bytes"
	"io/fs"
	"os"
	"strconv"

	"github.com/creachadair/tomledit"
	"github.com/creachadair/tomledit/parser"

	"github.com/aspector/aspector/pkg/errors"
)

// Document is a parsed manifest plus the metadata needed to write it back.
type Document struct {
	Path string
	doc  *tomledit.Document
	mode fs.FileMode
}

// Load reads and parses the manifest at path.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "manifest %s", path)
		}
		return nil, errors.Wrap(errors.ErrCodeMetadata, err, "read manifest %s", path)
	}

	d, err := Parse(path, data)
	if err != nil {
		return nil, err
	}
	if fi, err := os.Stat(path); err == nil {
		d.mode = fi.Mode().Perm()
	}
	return d, nil
}

// Parse parses manifest bytes. The path is kept for diagnostics and writes.
func Parse(path string, data []byte) (*Document, error) {
	doc, err := tomledit.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeManifestParse, err, "parse %s", path)
	}
	return &Document{Path: path, doc: doc, mode: 0o644}, nil
}

// Bytes serializes the document.
func (d *Document) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := tomledit.Format(&buf, d.doc); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "format %s", d.Path)
	}
	return buf.Bytes(), nil
}

// FeatureArray returns the current entries of the named feature and whether
// the feature is declared. The entry must be an array of strings; anything
// else is a MANIFEST_SHAPE_ERROR.
func (d *Document) FeatureArray(name string) ([]string, bool, error) {
	e := d.doc.First("features", name)
	if e == nil {
		if err := d.checkFeaturesShape(); err != nil {
			return nil, false, err
		}
		return nil, false, nil
	}
	if e.IsSection() {
		return nil, false, errors.New(errors.ErrCodeManifestShape,
			"%s: features.%s is a table, expected an array of strings", d.Path, name)
	}
	entries, err := valueStrings(e.Value, d.Path, name)
	if err != nil {
		return nil, false, err
	}
	return entries, true, nil
}

// checkFeaturesShape rejects manifests where a top-level `features` key
// exists but is not a table, since no entry could be added under it.
func (d *Document) checkFeaturesShape() error {
	e := d.doc.First("features")
	if e == nil || e.IsSection() {
		return nil
	}
	return errors.New(errors.ErrCodeManifestShape,
		"%s: features exists but is not a [features] table", d.Path)
}

func valueStrings(v parser.Value, path, feature string) ([]string, error) {
	arr, ok := v.X.(parser.Array)
	if !ok {
		return nil, errors.New(errors.ErrCodeManifestShape,
			"%s: feature %q is not an array of strings", path, feature)
	}
	out := make([]string, len(arr))
	for i, elem := range arr {
		s, ok := stringLexeme(elem.X)
		if !ok {
			return nil, errors.New(errors.ErrCodeManifestShape,
				"%s: feature %q entry %d is not a string", path, feature, i)
		}
		out[i] = s
	}
	return out, nil
}

// stringLexeme extracts the value of a quoted TOML scalar. Escape handling
// covers the forms cargo manifests use in practice; feature references
// cannot contain quotes or backslashes anyway.
func stringLexeme(d parser.Datum) (string, bool) {
	if _, ok := d.(parser.Array); ok {
		return "", false
	}
	text := d.String()
	if len(text) < 2 {
		return "", false
	}
	switch {
	case text[0] == '"' && text[len(text)-1] == '"':
		if s, err := strconv.Unquote(text); err == nil {
			return s, true
		}
		return text[1 : len(text)-1], true
	case text[0] == '\'' && text[len(text)-1] == '\'':
		return text[1 : len(text)-1], true
	}
	return "", false
}
