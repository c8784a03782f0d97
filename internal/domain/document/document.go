package document

import (
	"fmt"
	"maps"
)

// MaxIDLength mirrors the engine limit on document ids (512 bytes).
const MaxIDLength = 512

// Document is a stored document: identity plus raw attributes.
type Document struct {
	ID         string
	Type       string
	Attributes map[string]any
}

// New validates and creates a Document. Attributes are copied.
func New(docType, id string, attrs map[string]any) (Document, error) {
	if err := ValidateID(id); err != nil {
		return Document{}, err
	}
	if docType == "" {
		return Document{}, fmt.Errorf("document type is required")
	}
	return Document{ID: id, Type: docType, Attributes: maps.Clone(attrs)}, nil
}

// ValidateID checks that id is usable as a document id.
func ValidateID(id string) error {
	if id == "" {
		return fmt.Errorf("document ID is required")
	}
	if len(id) > MaxIDLength {
		return fmt.Errorf("document ID too long (max %d bytes)", MaxIDLength)
	}
	if id[0] == '_' {
		return fmt.Errorf("document ID %q must not start with an underscore", id)
	}
	return nil
}

// Get returns one attribute.
func (d Document) Get(name string) (any, bool) {
	v, ok := d.Attributes[name]
	return v, ok
}
