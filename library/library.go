// Package library moves templates between a Store and a YAML document.
package library

import (
	"context"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/teranos/promptvars/errors"
	"github.com/teranos/promptvars/placeholder"
	"github.com/teranos/promptvars/store"
	"github.com/teranos/promptvars/types"
)

// FormatVersion is written to and required from every document
const FormatVersion = 1

// Document is the YAML layout of an exported library
type Document struct {
	Version   int               `yaml:"version"`
	Templates []*types.Template `yaml:"templates"`
}

// Export writes every template in s to w
func Export(ctx context.Context, s store.Store, w io.Writer) (int, error) {
	all, err := s.List(ctx)
	if err != nil {
		return 0, err
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&Document{Version: FormatVersion, Templates: all}); err != nil {
		return 0, errors.Wrap(err, "failed to encode library")
	}
	if err := enc.Close(); err != nil {
		return 0, errors.Wrap(err, "failed to flush library")
	}
	return len(all), nil
}

// Decode reads and checks a library document without touching a store
func Decode(r io.Reader) (*Document, error) {
	var doc Document
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if err == io.EOF {
			return nil, errors.NewInvalidRequestError("library document is empty")
		}
		return nil, errors.NewInvalidRequestError("invalid library document: %v", err)
	}
	if doc.Version != FormatVersion {
		return nil, errors.NewInvalidRequestError("unsupported library version %d, want %d", doc.Version, FormatVersion)
	}

	seen := make(map[string]bool, len(doc.Templates))
	for i, t := range doc.Templates {
		if t == nil || t.ID == "" {
			return nil, errors.NewInvalidRequestError("template #%d has no id", i+1)
		}
		if seen[t.ID] {
			return nil, errors.NewInvalidRequestError("template %s appears twice", t.ID)
		}
		seen[t.ID] = true
		t.Template = placeholder.Normalize(t.Template)
		if err := t.Validate(); err != nil {
			return nil, errors.Wrapf(err, "template %s", t.ID)
		}
	}
	return &doc, nil
}

// Import saves every template in the document read from r. Each template
// becomes a new version; nothing is saved if the document is invalid.
func Import(ctx context.Context, s store.Store, r io.Reader) (int, error) {
	doc, err := Decode(r)
	if err != nil {
		return 0, err
	}
	for i, t := range doc.Templates {
		if _, err := s.Save(ctx, t); err != nil {
			return i, errors.Wrapf(err, "failed to import template %s", t.ID)
		}
	}
	return len(doc.Templates), nil
}
