package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/kailas-cloud/esremap/internal/engine"
)

type bulkMeta struct {
	Index string `json:"_index"`
	ID    string `json:"_id,omitempty"`
}

type bulkItemResponse struct {
	Index  string      `json:"_index"`
	ID     string      `json:"_id"`
	Status int         `json:"status"`
	Error  *errorCause `json:"error"`
}

// Bulk submits ops as one NDJSON _bulk request.
func (c *Client) Bulk(ctx context.Context, ops []engine.BulkOp) (engine.BulkResponse, error) {
	if len(ops) == 0 {
		return engine.BulkResponse{}, nil
	}
	body, err := encodeBulk(ops)
	if err != nil {
		return engine.BulkResponse{}, engine.Transport(engine.OpBulk, err)
	}
	res, err := c.es.Bulk(bytes.NewReader(body), c.es.Bulk.WithContext(ctx))
	if err != nil {
		return engine.BulkResponse{}, engine.Transport(engine.OpBulk, err)
	}
	defer closeBody(res)

	var out struct {
		Errors bool                                     `json:"errors"`
		Items  []map[engine.BulkAction]bulkItemResponse `json:"items"`
	}
	if err := decode(engine.OpBulk, res, &out); err != nil {
		return engine.BulkResponse{}, err
	}
	if len(out.Items) != len(ops) {
		return engine.BulkResponse{}, engine.Unknown(engine.OpBulk,
			fmt.Sprintf("got %d items for %d operations", len(out.Items), len(ops)))
	}
	resp := engine.BulkResponse{Errors: out.Errors, Items: make([]engine.BulkItem, 0, len(ops))}
	for i, entry := range out.Items {
		item := engine.BulkItem{Action: ops[i].Action, Index: ops[i].Index, ID: ops[i].ID}
		if r, ok := entry[ops[i].Action]; ok {
			item.Index, item.ID, item.Status = r.Index, r.ID, r.Status
			if r.Error != nil {
				item.ErrType, item.Reason = r.Error.Type, r.Error.Reason
			}
		}
		resp.Items = append(resp.Items, item)
	}
	return resp, nil
}

func encodeBulk(ops []engine.BulkOp) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, op := range ops {
		meta := map[engine.BulkAction]bulkMeta{op.Action: {Index: op.Index, ID: op.ID}}
		if err := enc.Encode(meta); err != nil {
			return nil, fmt.Errorf("encode %s meta: %w", op.Action, err)
		}
		if op.Action == engine.BulkDelete {
			continue
		}
		data := op.Data
		if data == nil {
			data = map[string]any{}
		}
		if err := enc.Encode(data); err != nil {
			return nil, fmt.Errorf("encode %s %s: %w", op.Action, op.ID, err)
		}
	}
	return buf.Bytes(), nil
}
