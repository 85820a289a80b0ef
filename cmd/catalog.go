package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/xtrobe/internal/catalog"
	"github.com/desertthunder/xtrobe/internal/shared"
	"github.com/urfave/cli/v3"
)

// CatalogList prints every module in catalog order.
func (r *Runner) CatalogList(ctx context.Context, cmd *cli.Command) error {
	c, err := r.loadCatalog(ctx, cmd)
	if err != nil {
		return err
	}

	entries := c.Entries()
	if cmd.Bool("json") {
		return r.writeJSON(entries, cmd.Bool("pretty"))
	}

	version := "unversioned"
	if v := c.Version(); v != nil {
		version = "v" + v.String()
	}
	r.writePlainHeader(fmt.Sprintf("Catalog (%s, %d modules)", version, len(entries)))
	for i, e := range entries {
		r.writePlain("%2d. %-32s %-28s %d submodules\n", i+1, e.Title, e.Slug, e.Len())
	}
	return nil
}

// CatalogShow prints one module and its submodule titles.
func (r *Runner) CatalogShow(ctx context.Context, cmd *cli.Command) error {
	slug := cmd.StringArg("slug")
	if slug == "" {
		return fmt.Errorf("%w: module slug", shared.ErrMissingArgument)
	}

	c, err := r.loadCatalog(ctx, cmd)
	if err != nil {
		return err
	}

	module, err := c.Resolve(slug)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(catalog.Entry{Module: module, Slug: slug}, cmd.Bool("pretty"))
	}

	r.writePlainHeader(module.Title)
	if module.Len() == 0 {
		r.writePlain("No submodules yet.\n")
		return nil
	}
	for i, s := range module.Submodules {
		r.writePlain("%2d. %s\n", i+1, s.Title)
	}
	return nil
}

// CatalogValidate parses a catalog from a file or URL and checks its version.
func (r *Runner) CatalogValidate(ctx context.Context, cmd *cli.Command) error {
	source := cmd.StringArg("source")
	if source == "" {
		return fmt.Errorf("%w: catalog path or URL", shared.ErrMissingArgument)
	}
	if err := r.loadConfig(cmd); err != nil {
		return err
	}

	var (
		c   *catalog.Catalog
		err error
	)
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		c, err = catalog.Fetch(ctx, source, catalog.FetchOptions{})
	} else {
		c, err = catalog.Load(source)
	}
	if err != nil {
		return err
	}

	minVersion := cmd.String("min-version")
	if minVersion == "" {
		minVersion = r.config.Catalog.MinVersion
	}
	if err := c.CheckVersion(minVersion); err != nil {
		return err
	}

	empty := 0
	for _, m := range c.Modules() {
		if m.Len() == 0 {
			empty++
		}
	}

	r.writePlain("✓ %s is valid: %d modules", source, c.Len())
	if v := c.Version(); v != nil {
		r.writePlain(", version %s", v)
	}
	r.writePlain("\n")
	if empty > 0 {
		r.logger.Warn("catalog has modules without submodules", "count", empty)
	}
	return nil
}
