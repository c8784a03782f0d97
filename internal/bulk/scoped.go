package bulk

import (
	"context"

	"github.com/kailas-cloud/esremap/internal/engine"
)

// Scoped stages document operations without naming indexes: writes target one index or alias,
// deletes fan out to a fixed set of indexes.
type Scoped struct {
	batch   *Batch
	docType string
	write   string
	deletes []string
}

// ForIndex scopes a batch to a single index for writes and deletes.
func ForIndex(client executor, index, docType string) *Scoped {
	return &Scoped{batch: New(client), docType: docType, write: index, deletes: []string{index}}
}

// ForAlias scopes a batch to the write alias, deleting from every index behind the read alias.
func ForAlias(client executor, updateAlias string, deleteIndexes []string, docType string) *Scoped {
	return &Scoped{batch: New(client), docType: docType, write: updateAlias, deletes: deleteIndexes}
}

// Index stages a full write.
func (s *Scoped) Index(id string, attrs map[string]any) {
	s.batch.Index(s.write, s.docType, id, attrs)
}

// Update stages a partial update.
func (s *Scoped) Update(id string, attrs map[string]any) {
	s.batch.Update(s.write, s.docType, id, attrs)
}

// Delete stages one delete per delete target.
func (s *Scoped) Delete(id string) {
	for _, index := range s.deletes {
		s.batch.Delete(index, s.docType, id)
	}
}

// Len returns the number of staged operations.
func (s *Scoped) Len() int {
	return s.batch.Len()
}

// Execute submits the staged operations.
func (s *Scoped) Execute(ctx context.Context) (engine.BulkResponse, error) {
	return s.batch.Execute(ctx)
}
