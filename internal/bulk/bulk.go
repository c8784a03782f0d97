// Package bulk accumulates index, create, update and delete operations and submits them
// to the engine in a single round trip.
package bulk

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/esremap/internal/engine"
)

// executor is the consumer interface for bulk submission (ISP).
type executor interface {
	Bulk(ctx context.Context, ops []engine.BulkOp) (engine.BulkResponse, error)
}

// Batch is an ordered list of bulk operations addressed to explicit indexes.
// A Batch is not safe for concurrent use.
type Batch struct {
	client executor
	ops    []engine.BulkOp
}

// New creates an empty batch.
func New(client executor) *Batch {
	return &Batch{client: client}
}

// Index stages a full write that replaces any existing document.
func (b *Batch) Index(index, docType, id string, attrs map[string]any) {
	b.ops = append(b.ops, engine.BulkOp{Action: engine.BulkIndex, Index: index, Type: docType, ID: id, Data: attrs})
}

// Create stages a write that only succeeds if the id is free in index.
func (b *Batch) Create(index, docType, id string, attrs map[string]any) {
	b.ops = append(b.ops, engine.BulkOp{Action: engine.BulkCreate, Index: index, Type: docType, ID: id, Data: attrs})
}

// Update stages a partial update; attrs are sent as {"doc": attrs}.
func (b *Batch) Update(index, docType, id string, attrs map[string]any) {
	b.ops = append(b.ops, engine.BulkOp{
		Action: engine.BulkUpdate, Index: index, Type: docType, ID: id,
		Data: map[string]any{"doc": attrs},
	})
}

// Delete stages a delete.
func (b *Batch) Delete(index, docType, id string) {
	b.ops = append(b.ops, engine.BulkOp{Action: engine.BulkDelete, Index: index, Type: docType, ID: id})
}

// Len returns the number of staged operations.
func (b *Batch) Len() int {
	return len(b.ops)
}

// Ops returns the staged operations.
func (b *Batch) Ops() []engine.BulkOp {
	return b.ops
}

// Execute submits every staged operation in one call and returns the raw per-item results.
// An empty batch does not reach the engine. The batch is reset after a successful call.
func (b *Batch) Execute(ctx context.Context) (engine.BulkResponse, error) {
	if len(b.ops) == 0 {
		return engine.BulkResponse{}, nil
	}
	resp, err := b.client.Bulk(ctx, b.ops)
	if err != nil {
		return engine.BulkResponse{}, fmt.Errorf("bulk of %d operations: %w", len(b.ops), err)
	}
	b.ops = nil
	return resp, nil
}
