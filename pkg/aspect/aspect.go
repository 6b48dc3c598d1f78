// Package aspect computes feature propagation plans.
//
// An aspect is a feature name that every package depending on a leaf package
// must declare, forwarding activation toward the leaf. Given the workspace
// graph and its dependencies-first order, [Resolve] walks the members from
// the bottom up and produces one [Plan] per package that reaches a leaf,
// listing exactly the forwarding references its aspect feature must contain.
// The leaf packages themselves own the seed feature and are never planned.
package aspect

import (
	"strings"

	"github.com/aspector/aspector/pkg/errors"
)

// LeafSpec identifies a seed feature. Package is empty for unqualified
// specs, which match every workspace member declaring the feature.
type LeafSpec struct {
	Package string
	Feature string
}

// ParseLeafSpec parses a leaf feature argument of the form
// "package/feature" or "feature".
func ParseLeafSpec(s string) (LeafSpec, error) {
	if err := errors.ValidateLeafSpec(s); err != nil {
		return LeafSpec{}, err
	}
	pkg, feat, found := strings.Cut(s, "/")
	if !found {
		return LeafSpec{Feature: pkg}, nil
	}
	return LeafSpec{Package: pkg, Feature: feat}, nil
}

// String returns the spec in its command-line form.
func (l LeafSpec) String() string {
	if l.Package == "" {
		return l.Feature
	}
	return l.Package + "/" + l.Feature
}

// Qualified reports whether the spec names a specific package.
func (l LeafSpec) Qualified() bool { return l.Package != "" }

// Config describes one propagation request.
type Config struct {
	// Name is the aspect feature name. When empty it is inferred, which
	// requires exactly one leaf spec: the leaf feature name is used.
	Name string

	// Leaves are the seed features. At least one is required.
	Leaves []LeafSpec

	// ExtraParams are literal feature array entries added on the direct
	// dependents of a leaf, such as "dep:logging".
	ExtraParams []string

	// Sort rewrites each touched feature array as a deduplicated,
	// lexicographically sorted union. When false, existing entries keep
	// their order and missing entries are appended.
	Sort bool

	validated bool
}

// Validate checks the configuration and infers the aspect name if needed.
// It is idempotent and must be called before the Config is used.
func (c *Config) Validate() error {
	if c.validated {
		return nil
	}

	if len(c.Leaves) == 0 {
		return errors.New(errors.ErrCodeInvalidInput, "at least one leaf feature is required")
	}
	for _, leaf := range c.Leaves {
		if err := errors.ValidateLeafSpec(leaf.String()); err != nil {
			return err
		}
	}

	if c.Name == "" {
		if len(c.Leaves) > 1 {
			return errors.New(errors.ErrCodeInvalidInput,
				"aspect name is required when multiple leaf features are given")
		}
		c.Name = c.Leaves[0].Feature
	}
	if err := errors.ValidateFeatureName(c.Name); err != nil {
		return err
	}

	for _, param := range c.ExtraParams {
		if err := errors.ValidateFeatureParam(param); err != nil {
			return err
		}
	}

	c.validated = true
	return nil
}
