// Package rc models the resource container package store consumed by the
// client: mime-type rules for container formats, container slugs, the
// properties document, and a directory-backed Store implementation.
//
// The byte-level archive format is out of scope; a Package here is an opaque
// handle whose only structured content is its properties document.
package rc

import "strings"

const (
	// BaseMimeType prefixes every structured container format.
	BaseMimeType = "application/tsrc"

	// ContainerVersion is the package format version written into new
	// container properties.
	ContainerVersion = "7"

	// FileExtension is the extension of a closed container archive.
	FileExtension = "tsrc"
)

// MimeForType maps a resource type (book, help, dict, man) to the container
// mime type for that content.
func MimeForType(resourceType string) string {
	if resourceType == "" {
		return BaseMimeType
	}
	return BaseMimeType + "+" + resourceType
}

// IsContainerMime reports whether a format mime type denotes a structured
// resource container.
func IsContainerMime(mimeType string) bool {
	return strings.HasPrefix(mimeType, BaseMimeType+"+")
}

// MakeSlug builds the canonical container slug, e.g. "en_gen_ulb".
func MakeSlug(languageSlug, projectSlug, resourceSlug string) string {
	return strings.Join([]string{languageSlug, projectSlug, resourceSlug}, "_")
}
