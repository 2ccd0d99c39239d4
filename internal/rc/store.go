package rc

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// propertiesFile is the name of the properties document inside a package
// directory.
const propertiesFile = "package.yaml"

// Language identifies the container's source language.
type Language struct {
	Slug      string `yaml:"slug"`
	Name      string `yaml:"name"`
	Direction string `yaml:"direction"`
}

// Project identifies the container's project.
type Project struct {
	Slug        string `yaml:"slug"`
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	Sort        int    `yaml:"sort"`
}

// SourceTranslation cross-references the source a resource was derived from.
type SourceTranslation struct {
	LanguageSlug string `yaml:"language_slug"`
	ResourceSlug string `yaml:"resource_slug"`
	Version      string `yaml:"version"`
}

// Status mirrors the resource status fields carried in the properties
// document.
type Status struct {
	TranslateMode      string              `yaml:"translate_mode"`
	CheckingLevel      string              `yaml:"checking_level"`
	Comments           string              `yaml:"comments,omitempty"`
	PubDate            string              `yaml:"pub_date,omitempty"`
	License            string              `yaml:"license,omitempty"`
	Version            string              `yaml:"version"`
	SourceTranslations []SourceTranslation `yaml:"source_translations,omitempty"`
}

// Resource identifies the container's resource and its status.
type Resource struct {
	Slug   string `yaml:"slug"`
	Name   string `yaml:"name"`
	Type   string `yaml:"type"`
	Status Status `yaml:"status"`
}

// Properties is the document describing a container: identity records
// (without internal store ids) plus the modification time of the format the
// container was materialized from. TWAssignments, when present, maps
// chapter -> frame -> word cross-references.
type Properties struct {
	PackageVersion string                         `yaml:"package_version"`
	ModifiedAt     int                            `yaml:"modified_at"`
	ContentMime    string                         `yaml:"content_mime_type"`
	Language       Language                       `yaml:"language"`
	Project        Project                        `yaml:"project"`
	Resource       Resource                       `yaml:"resource"`
	TWAssignments  map[string]map[string][]string `yaml:"tw_assignments,omitempty"`
}

// Slug returns the canonical container slug for the package identity.
func (p *Properties) Slug() string {
	return MakeSlug(p.Language.Slug, p.Project.Slug, p.Resource.Slug)
}

// Package is an open container.
type Package struct {
	Path  string
	Props Properties
}

// Store is the package store consumed by the client bridge.
type Store interface {
	// Open opens (creating if needed) the package at path and loads its
	// properties document when one exists.
	Open(path string) (*Package, error)

	// WriteProperties persists the properties document of an open package.
	WriteProperties(p *Package, props *Properties) error

	// Close releases the package handle.
	Close(p *Package) error
}

// DirStore is a Store holding each package as a plain directory with a
// package.yaml properties document.
type DirStore struct{}

func NewDirStore() *DirStore {
	return &DirStore{}
}

func (s *DirStore) Open(path string) (*Package, error) {
	if err := os.MkdirAll(path, 0o770); err != nil {
		return nil, fmt.Errorf("opening package %s: %w", path, err)
	}

	pkg := &Package{Path: path}
	data, err := os.ReadFile(filepath.Join(path, propertiesFile))
	if errors.Is(err, os.ErrNotExist) {
		return pkg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading package properties: %w", err)
	}
	if err := yaml.Unmarshal(data, &pkg.Props); err != nil {
		return nil, fmt.Errorf("parsing package properties: %w", err)
	}
	return pkg, nil
}

func (s *DirStore) WriteProperties(p *Package, props *Properties) error {
	data, err := yaml.Marshal(props)
	if err != nil {
		return fmt.Errorf("encoding package properties: %w", err)
	}
	if err := os.WriteFile(filepath.Join(p.Path, propertiesFile), data, 0o660); err != nil {
		return fmt.Errorf("writing package properties: %w", err)
	}
	p.Props = *props
	return nil
}

func (s *DirStore) Close(p *Package) error {
	return nil
}
