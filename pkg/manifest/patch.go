package manifest

import (
	"slices"
	"strconv"

	"github.com/creachadair/tomledit"
	"github.com/creachadair/tomledit/parser"
	"github.com/creachadair/tomledit/transform"
	mapset "github.com/deckarep/golang-set/v2"

	"github.com/aspector/aspector/pkg/aspect"
)

// Patch is the computed change to one manifest's aspect feature. The same
// patch drives all run modes: apply mutates and writes, dry-run and verify
// only read Before, After, and Changed.
type Patch struct {
	Package string
	Path    string
	Feature string
	Before  []string // nil when the feature is not declared yet
	After   []string
	Added   []string // entries this run introduces

	doc     *Document
	existed bool
}

// Changed reports whether applying the patch would modify the manifest.
func (p *Patch) Changed() bool {
	return !p.existed || !slices.Equal(p.Before, p.After)
}

// Compute derives the patch for one plan against the package's manifest.
//
// Without sorting, existing entries keep their order and duplicates, and
// missing required entries are appended in plan order. With sorting, the
// final array is the deduplicated, lexicographically sorted union of the
// existing entries and the plan's.
func Compute(doc *Document, plan aspect.Plan) (*Patch, error) {
	existing, existed, err := doc.FeatureArray(plan.Feature)
	if err != nil {
		return nil, err
	}

	desired := plan.Entries()
	var after []string
	if plan.Sort {
		after = sortedUnion(existing, desired)
	} else {
		after = slices.Clone(existing)
		for _, want := range desired {
			if !slices.Contains(after, want) {
				after = append(after, want)
			}
		}
	}

	var added []string
	for _, want := range desired {
		if !slices.Contains(existing, want) && !slices.Contains(added, want) {
			added = append(added, want)
		}
	}

	return &Patch{
		Package: plan.Package.Name,
		Path:    doc.Path,
		Feature: plan.Feature,
		Before:  existing,
		After:   after,
		Added:   added,
		doc:     doc,
		existed: existed,
	}, nil
}

// Apply writes the computed array into the in-memory document, creating the
// [features] table and the feature entry as needed. Applying an unchanged
// patch is a no-op, so the document is never dirtied without cause.
func (p *Patch) Apply() {
	if !p.Changed() {
		return
	}

	arr := make(parser.Array, len(p.After))
	for i, s := range p.After {
		arr[i] = parser.MustValue(strconv.Quote(s))
	}

	// Replace only the datum so a trailing comment on the line survives.
	if e := p.doc.doc.First("features", p.Feature); e != nil && !e.IsSection() {
		e.Value.X = arr
		return
	}

	sec := transform.FindTable(p.doc.doc, "features")
	if sec == nil {
		sec = &tomledit.Section{Heading: &parser.Heading{Name: parser.Key{"features"}}}
		p.doc.doc.Sections = append(p.doc.doc.Sections, sec)
	}
	sec.Items = append(sec.Items, &parser.KeyValue{
		Name:  parser.Key{p.Feature},
		Value: parser.Value{X: arr},
	})
}

// Write applies the patch and atomically rewrites the manifest.
func (p *Patch) Write() error {
	p.Apply()
	data, err := p.doc.Bytes()
	if err != nil {
		return err
	}
	return WriteAtomic(p.Path, data, p.doc.mode)
}

func sortedUnion(existing, desired []string) []string {
	set := mapset.NewThreadUnsafeSet[string]()
	for _, s := range existing {
		set.Add(s)
	}
	for _, s := range desired {
		set.Add(s)
	}
	out := set.ToSlice()
	slices.Sort(out)
	return out
}
