// Package models defines the value records stored in the local index.
//
// These structs carry no database identifiers; the index package attaches row
// ids alongside the values when a caller needs to chain writes (for example a
// source language id feeding a project insert).
package models

// SourceLanguage is a language that resources are translated from.
type SourceLanguage struct {
	Slug      string
	Name      string
	Direction string
}

// TargetLanguage is a language that resources will be translated into.
//
// The same struct backs both official target languages and temporary target
// languages; temporary rows additionally carry an approval link held by the
// index, not by this value.
type TargetLanguage struct {
	Slug              string
	Name              string
	AnglicizedName    string
	Direction         string
	Region            string
	IsGatewayLanguage bool
}

// Category is one level of the project category tree, e.g. "bible-ot".
// Name is the localized label for the source language being indexed.
type Category struct {
	Slug string
	Name string
}

// Project is a translatable project (usually a book) in one source language.
type Project struct {
	Slug        string
	Name        string
	Description string
	Icon        string
	Sort        int
	ChunksURL   string
}

// SourceTranslation cross-references the source a synthetic resource (notes,
// questions, words) was split from.
type SourceTranslation struct {
	LanguageSlug string `yaml:"language_slug" json:"language_slug"`
	ResourceSlug string `yaml:"resource_slug" json:"resource_slug"`
	Version      string `yaml:"version" json:"version"`
}

// Status holds the quality/licensing state of a resource. TranslateMode,
// CheckingLevel and Version are mandatory.
type Status struct {
	TranslateMode      string
	CheckingLevel      string
	Comments           string
	PubDate            string
	License            string
	Version            string
	SourceTranslations []SourceTranslation
}

// Format is a physical form of a resource, e.g. a resource container archive.
type Format struct {
	PackageVersion string
	MimeType       string
	ModifiedAt     int
	URL            string
}

// Resource is a translatable resource belonging to a project. A resource must
// carry at least one format to be persisted.
type Resource struct {
	Slug   string
	Name   string
	Type   string
	Status Status
	// WordsAssignmentsURL points at the legacy translationWords assignment
	// feed, when the upstream catalog provides one.
	WordsAssignmentsURL string
	Formats             []Format
}

// Versification is a chapter/verse numbering scheme, e.g. "en-US".
// Name is localized per source language.
type Versification struct {
	Slug string
	Name string
}

// ChunkMarker is a chapter/verse boundary used to segment long-form content,
// scoped to a project and versification.
type ChunkMarker struct {
	Chapter string
	Verse   string
}

// Catalog describes a remote feed that can be indexed.
type Catalog struct {
	Slug       string
	URL        string
	ModifiedAt int
}

// Questionnaire is a set of new-language questions for one language.
// TDID is the translation-database id assigned server side.
type Questionnaire struct {
	LanguageSlug      string
	LanguageName      string
	LanguageDirection string
	TDID              int64
}

// Question is a single entry in a questionnaire. DependsOn is the
// translation-database id of the question this one depends on, 0 if none.
type Question struct {
	Text       string
	Help       string
	IsRequired bool
	InputType  string
	Sort       int
	DependsOn  int64
	TDID       int64
}
