// Package catalog holds the curriculum: modules with ordered submodules, loaded once and never mutated.
//
// # Slugs
//
// Every module is addressed by a URL-safe slug derived from its title with [Slugify].
// [New] rejects catalogs where two titles produce the same slug or a title produces an empty slug,
// so [Catalog.Resolve] is always unambiguous.
//
// # Sources
//
//   - [Default] : the bundled astronomy curriculum (data/modules.json)
//   - [Load] : a JSON or YAML file on disk
//   - [Fetch] : a JSON or YAML document served over HTTP
//
// Catalog files carry an optional semantic version; [Catalog.CheckVersion] enforces a minimum.
package catalog
