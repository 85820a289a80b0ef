package catalog

import (
	"fmt"
	"slices"

	"github.com/Masterminds/semver/v3"
	"github.com/go-playground/validator/v10"

	"github.com/desertthunder/xtrobe/internal/models"
	"github.com/desertthunder/xtrobe/internal/shared"
)

// File is the on-disk shape of a catalog.
type File struct {
	Version string          `json:"version,omitempty" yaml:"version,omitempty"`
	Modules []models.Module `json:"modules" yaml:"modules" validate:"required,min=1,dive"`
}

// Entry pairs a module with its slug for listings.
type Entry struct {
	models.Module
	Slug string `json:"slug"`
}

// Catalog is the immutable set of modules. Safe for concurrent use.
type Catalog struct {
	version *semver.Version
	modules []models.Module
	slugs   []string
	bySlug  map[string]int
	byID    map[int]int
}

// New validates modules and builds a catalog. An empty version marks the catalog as unversioned.
//
// Module order is catalog order: [Catalog.Next] follows it, not the numeric ids.
func New(version string, modules []models.Module) (*Catalog, error) {
	file := File{Version: version, Modules: modules}
	if err := validator.New().Struct(file); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidCatalog, err)
	}

	c := &Catalog{
		modules: make([]models.Module, len(modules)),
		slugs:   make([]string, len(modules)),
		bySlug:  make(map[string]int, len(modules)),
		byID:    make(map[int]int, len(modules)),
	}

	if version != "" {
		v, err := semver.NewVersion(version)
		if err != nil {
			return nil, fmt.Errorf("%w: version %q: %v", shared.ErrInvalidCatalog, version, err)
		}
		c.version = v
	}

	for i, m := range modules {
		if prev, ok := c.byID[m.ID]; ok {
			return nil, fmt.Errorf("%w: %d used by %q and %q", shared.ErrDuplicateModuleID, m.ID, modules[prev].Title, m.Title)
		}

		slug := Slugify(m.Title)
		if slug == "" {
			return nil, fmt.Errorf("%w: %q", shared.ErrEmptySlug, m.Title)
		}
		if prev, ok := c.bySlug[slug]; ok {
			return nil, fmt.Errorf("%w: %q and %q both map to %q", shared.ErrSlugCollision, modules[prev].Title, m.Title, slug)
		}

		subs := make([]models.Submodule, len(m.Submodules))
		copy(subs, m.Submodules)
		c.modules[i] = models.Module{ID: m.ID, Title: m.Title, Submodules: subs}
		c.slugs[i] = slug
		c.bySlug[slug] = i
		c.byID[m.ID] = i
	}

	return c, nil
}

// Version returns the catalog version, or nil when the catalog is unversioned.
func (c *Catalog) Version() *semver.Version {
	return c.version
}

// CheckVersion fails with [shared.ErrIncompatibleCatalog] when the catalog is older than minVersion.
// Unversioned catalogs and an empty minVersion always pass.
func (c *Catalog) CheckVersion(minVersion string) error {
	if minVersion == "" || c.version == nil {
		return nil
	}

	constraint, err := semver.NewConstraint(">= " + minVersion)
	if err != nil {
		return fmt.Errorf("%w: min version %q: %v", shared.ErrInvalidArgument, minVersion, err)
	}
	if !constraint.Check(c.version) {
		return fmt.Errorf("%w: catalog %s is older than %s", shared.ErrIncompatibleCatalog, c.version, minVersion)
	}
	return nil
}

// module returns a copy of the i-th module whose submodules can be changed freely.
func (c *Catalog) module(i int) models.Module {
	m := c.modules[i]
	m.Submodules = slices.Clone(m.Submodules)
	return m
}

// Len returns the number of modules.
func (c *Catalog) Len() int {
	return len(c.modules)
}

// Modules returns the modules in catalog order.
func (c *Catalog) Modules() []models.Module {
	out := make([]models.Module, len(c.modules))
	for i := range c.modules {
		out[i] = c.module(i)
	}
	return out
}

// Entries returns the modules with their slugs in catalog order.
func (c *Catalog) Entries() []Entry {
	out := make([]Entry, len(c.modules))
	for i := range c.modules {
		out[i] = Entry{Module: c.module(i), Slug: c.slugs[i]}
	}
	return out
}

// First returns the first module in catalog order.
func (c *Catalog) First() models.Module {
	return c.module(0)
}

// ByID looks up a module by its catalog-assigned id.
func (c *Catalog) ByID(id int) (models.Module, bool) {
	i, ok := c.byID[id]
	if !ok {
		return models.Module{}, false
	}
	return c.module(i), true
}

// Slug returns the slug of the module with the given id.
func (c *Catalog) Slug(id int) (string, bool) {
	i, ok := c.byID[id]
	if !ok {
		return "", false
	}
	return c.slugs[i], true
}

// Resolve maps a slug to its module.
//
// Unknown slugs fail with [shared.ErrModuleNotFound]. A module without submodules still resolves.
func (c *Catalog) Resolve(slug string) (models.Module, error) {
	i, ok := c.bySlug[slug]
	if !ok {
		return models.Module{}, fmt.Errorf("%w: %q", shared.ErrModuleNotFound, slug)
	}
	return c.module(i), nil
}

// Next returns the module after id in catalog order, skipping modules without submodules.
func (c *Catalog) Next(id int) (models.Module, bool) {
	i, ok := c.byID[id]
	if !ok {
		return models.Module{}, false
	}
	for j := i + 1; j < len(c.modules); j++ {
		if c.modules[j].Len() > 0 {
			return c.module(j), true
		}
	}
	return models.Module{}, false
}

// IsLast reports whether no module with content follows id.
func (c *Catalog) IsLast(id int) bool {
	_, ok := c.Next(id)
	return !ok
}
