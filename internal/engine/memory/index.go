package memory

import (
	"encoding/json"
	"fmt"
	"maps"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	domindex "github.com/kailas-cloud/esremap/internal/domain/index"
)

const sourcePrefix = "doc/"

// stored is what the index keeps per document next to the bleve fields.
type stored struct {
	Type   string         `json:"type"`
	Source map[string]any `json:"source"`
}

// index is one concrete index. writeMu makes read-modify-write operations (create, update)
// atomic per index.
type index struct {
	name    string
	def     domindex.Definition
	bi      bleve.Index
	writeMu sync.Mutex
}

func newIndex(name string, def domindex.Definition) (*index, error) {
	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("mapper_parsing_exception: %w", err)
	}
	bi, err := bleve.NewMemOnly(buildMapping(def))
	if err != nil {
		return nil, fmt.Errorf("create bleve index %s: %w", name, err)
	}
	return &index{name: name, def: def, bi: bi}, nil
}

// buildMapping translates mappings.properties into a bleve document mapping. Undeclared
// fields stay dynamic.
func buildMapping(def domindex.Definition) *mapping.IndexMappingImpl {
	im := bleve.NewIndexMapping()
	dm := bleve.NewDocumentMapping()
	for field, raw := range def.Properties() {
		prop, _ := raw.(map[string]any)
		typ, _ := prop["type"].(string)
		var fm *mapping.FieldMapping
		switch typ {
		case "text":
			fm = bleve.NewTextFieldMapping()
		case "keyword":
			fm = bleve.NewKeywordFieldMapping()
		case "long", "integer", "short", "byte", "double", "float", "half_float", "scaled_float":
			fm = bleve.NewNumericFieldMapping()
		case "boolean":
			fm = bleve.NewBooleanFieldMapping()
		case "date":
			fm = bleve.NewDateTimeFieldMapping()
		default:
			continue
		}
		dm.AddFieldMappingsAt(field, fm)
	}
	im.DefaultMapping = dm
	return im
}

func (ix *index) close() error {
	return ix.bi.Close()
}

func sourceKey(id string) []byte {
	return []byte(sourcePrefix + id)
}

// get returns the stored document, or found=false.
func (ix *index) get(id string) (stored, bool, error) {
	raw, err := ix.bi.GetInternal(sourceKey(id))
	if err != nil {
		return stored{}, false, fmt.Errorf("read %s/%s: %w", ix.name, id, err)
	}
	if raw == nil {
		return stored{}, false, nil
	}
	var doc stored
	if err := json.Unmarshal(raw, &doc); err != nil {
		return stored{}, false, fmt.Errorf("decode %s/%s: %w", ix.name, id, err)
	}
	return doc, true, nil
}

// put replaces the document. Callers hold writeMu.
func (ix *index) put(id, docType string, source map[string]any) error {
	if source == nil {
		source = map[string]any{}
	}
	raw, err := json.Marshal(stored{Type: docType, Source: source})
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", ix.name, id, err)
	}
	b := ix.bi.NewBatch()
	if err := b.Index(id, source); err != nil {
		return fmt.Errorf("index %s/%s: %w", ix.name, id, err)
	}
	b.SetInternal(sourceKey(id), raw)
	if err := ix.bi.Batch(b); err != nil {
		return fmt.Errorf("write %s/%s: %w", ix.name, id, err)
	}
	return nil
}

// remove deletes the document; it reports whether the document existed. Callers hold writeMu.
func (ix *index) remove(id string) (bool, error) {
	_, found, err := ix.get(id)
	if err != nil || !found {
		return false, err
	}
	b := ix.bi.NewBatch()
	b.Delete(id)
	b.DeleteInternal(sourceKey(id))
	if err := ix.bi.Batch(b); err != nil {
		return false, fmt.Errorf("delete %s/%s: %w", ix.name, id, err)
	}
	return true, nil
}

// match returns the ids matching q sorted by id.
func (ix *index) match(q query.Query) ([]string, error) {
	count, err := ix.bi.DocCount()
	if err != nil {
		return nil, fmt.Errorf("count %s: %w", ix.name, err)
	}
	if count == 0 {
		return nil, nil
	}
	req := bleve.NewSearchRequestOptions(q, int(count), 0, false)
	req.SortBy([]string{"_id"})
	res, err := ix.bi.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", ix.name, err)
	}
	ids := make([]string, 0, len(res.Hits))
	for _, h := range res.Hits {
		ids = append(ids, h.ID)
	}
	return ids, nil
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	return maps.Clone(m)
}
