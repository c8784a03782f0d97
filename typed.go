package esremap

import (
	"context"
	"fmt"
)

// TypedIndex is a generic wrapper over Index that maps struct fields to document
// attributes via `esremap` struct tags:
//
//	type User struct {
//	    ID        string    `esremap:"id,id"`
//	    Name      string    `esremap:"name,text"`
//	    Email     string    `esremap:"email"`     // keyword
//	    Birthdate time.Time `esremap:"birthdate"` // date
//	}
//
// Untagged fields are not stored. When the IndexConfig declares no mappings they are
// generated from the tags, so removing a tagged field and calling Remap drops it from
// every stored document.
type TypedIndex[T any] struct {
	ix   *Index
	meta *schemaMeta
}

// NewTypedIndex parses the tags of T and returns a handle on the logical index cfg describes.
func NewTypedIndex[T any](c *Client, cfg IndexConfig) (*TypedIndex[T], error) {
	meta, err := parseSchema[T]()
	if err != nil {
		return nil, err
	}
	if cfg.Mappings == nil {
		cfg.Mappings = meta.mappings()
	}
	ix, err := c.Index(cfg)
	if err != nil {
		return nil, err
	}
	return &TypedIndex[T]{ix: ix, meta: meta}, nil
}

// Index returns the untyped handle, for lifecycle operations such as Remap.
func (t *TypedIndex[T]) Index() *Index { return t.ix }

// Segment returns the typed index for one segment.
func (t *TypedIndex[T]) Segment(name string) (*TypedIndex[T], error) {
	seg, err := t.ix.Segment(name)
	if err != nil {
		return nil, err
	}
	return &TypedIndex[T]{ix: seg, meta: t.meta}, nil
}

// Ensure creates the index if it is missing.
func (t *TypedIndex[T]) Ensure(ctx context.Context) error {
	return t.ix.Ensure(ctx)
}

// Remap moves the index onto the current mappings while it stays online.
func (t *TypedIndex[T]) Remap(ctx context.Context) error {
	return t.ix.Remap(ctx)
}

// Put writes item, replacing any previous version.
func (t *TypedIndex[T]) Put(ctx context.Context, item T) error {
	id, attrs, err := t.meta.toAttributes(item)
	if err != nil {
		return err
	}
	return t.ix.Put(ctx, id, attrs)
}

// PutBatch writes items in one bulk request. The error reports how many failed and why the
// first one did.
func (t *TypedIndex[T]) PutBatch(ctx context.Context, items []T) error {
	docs := make([]Document, 0, len(items))
	for _, item := range items {
		id, attrs, err := t.meta.toAttributes(item)
		if err != nil {
			return err
		}
		docs = append(docs, Document{ID: id, Attributes: attrs})
	}
	return batchError(t.ix.PutBatch(ctx, docs))
}

// Get retrieves an item by id. Returns ErrDocumentNotFound if it does not exist.
func (t *TypedIndex[T]) Get(ctx context.Context, id string) (T, error) {
	var zero T
	doc, err := t.ix.Get(ctx, id)
	if err != nil {
		return zero, err
	}
	item, err := t.meta.fromDocument(doc)
	if err != nil {
		return zero, err
	}
	typed, ok := item.(T)
	if !ok {
		return zero, fmt.Errorf("esremap: unexpected type %T", item)
	}
	return typed, nil
}

// Delete removes an item by id.
func (t *TypedIndex[T]) Delete(ctx context.Context, id string) error {
	return t.ix.Delete(ctx, id)
}
