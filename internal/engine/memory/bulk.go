package memory

import (
	"context"
	"fmt"
	"maps"

	"github.com/kailas-cloud/esremap/internal/engine"
)

// Bulk applies each operation independently; failures are reported per item.
func (e *Engine) Bulk(_ context.Context, ops []engine.BulkOp) (engine.BulkResponse, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return engine.BulkResponse{}, engine.Transport(engine.OpBulk, fmt.Errorf("engine closed"))
	}
	resp := engine.BulkResponse{Items: make([]engine.BulkItem, 0, len(ops))}
	for _, op := range ops {
		item := e.apply(op)
		if item.Failed() {
			resp.Errors = true
		}
		resp.Items = append(resp.Items, item)
	}
	return resp, nil
}

// apply runs one bulk operation. Callers hold e.mu.
func (e *Engine) apply(op engine.BulkOp) engine.BulkItem {
	item := engine.BulkItem{Action: op.Action, Index: op.Index, ID: op.ID}
	fail := func(status int, errType, reason string) engine.BulkItem {
		item.Status, item.ErrType, item.Reason = status, errType, reason
		return item
	}

	ix, err := e.resolveWrite(engine.OpBulk, op.Index)
	if err != nil {
		if engine.IsNotFound(err) {
			return fail(404, "index_not_found_exception", err.Error())
		}
		return fail(400, "illegal_argument_exception", err.Error())
	}
	item.Index = ix.name

	ix.writeMu.Lock()
	defer ix.writeMu.Unlock()

	current, exists, err := ix.get(op.ID)
	if err != nil {
		return fail(500, "exception", err.Error())
	}

	switch op.Action {
	case engine.BulkIndex, engine.BulkCreate:
		if op.Action == engine.BulkCreate && exists {
			return fail(409, "version_conflict_engine_exception",
				fmt.Sprintf("[%s]: version conflict, document already exists", op.ID))
		}
		if err := ix.put(op.ID, op.Type, cloneMap(op.Data)); err != nil {
			return fail(500, "exception", err.Error())
		}
		item.Status = 201
		if exists {
			item.Status = 200
		}
	case engine.BulkUpdate:
		if !exists {
			return fail(404, "document_missing_exception", fmt.Sprintf("[%s]: document missing", op.ID))
		}
		partial, _ := op.Data["doc"].(map[string]any)
		merged := cloneMap(current.Source)
		if merged == nil {
			merged = make(map[string]any, len(partial))
		}
		maps.Copy(merged, partial)
		if err := ix.put(op.ID, current.Type, merged); err != nil {
			return fail(500, "exception", err.Error())
		}
		item.Status = 200
	case engine.BulkDelete:
		if !exists {
			item.Status = 404
			return item
		}
		if _, err := ix.remove(op.ID); err != nil {
			return fail(500, "exception", err.Error())
		}
		item.Status = 200
	default:
		return fail(400, "action_request_validation_exception", fmt.Sprintf("unknown bulk action [%s]", op.Action))
	}
	return item
}
