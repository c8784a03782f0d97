package engine

import "time"

// AliasActionKind is the verb of an alias update action.
type AliasActionKind string

const (
	// AliasAdd binds an alias to an index.
	AliasAdd AliasActionKind = "add"
	// AliasRemove unbinds an alias from an index.
	AliasRemove AliasActionKind = "remove"
)

// AliasAction is one step of an atomic alias update.
type AliasAction struct {
	Kind  AliasActionKind
	Index string
	Alias string
}

// Add builds an add action.
func Add(index, alias string) AliasAction {
	return AliasAction{Kind: AliasAdd, Index: index, Alias: alias}
}

// Remove builds a remove action.
func Remove(index, alias string) AliasAction {
	return AliasAction{Kind: AliasRemove, Index: index, Alias: alias}
}

// AliasMeta is the per-index alias metadata returned by GetAlias.
type AliasMeta map[string]any

// IndexResult is the outcome of indexing one document.
type IndexResult struct {
	ID string
	// Acknowledged is true when at least one shard copy accepted the write.
	Acknowledged bool
}

// DocRef addresses one document in one index.
type DocRef struct {
	Index string
	Type  string
	ID    string
}

// Doc is one multi-get result.
type Doc struct {
	Index  string
	Type   string
	ID     string
	Found  bool
	Source map[string]any
}

// SearchRequest opens a search, optionally as a scroll.
type SearchRequest struct {
	Index string
	Body  map[string]any
	Size  int
	// Scroll keeps the cursor alive for this long; zero means a plain search.
	Scroll time.Duration
}

// Hit is one search hit. Source is nil when the search excluded it.
type Hit struct {
	Index  string
	Type   string
	ID     string
	Source map[string]any
}

// ScrollPage is one page of a scroll.
type ScrollPage struct {
	ScrollID string
	Total    int
	Hits     []Hit
}

// BulkAction is the verb of a bulk operation.
type BulkAction string

const (
	// BulkIndex writes a document, replacing any existing one.
	BulkIndex BulkAction = "index"
	// BulkCreate writes a document only if the id is free.
	BulkCreate BulkAction = "create"
	// BulkUpdate applies a partial document.
	BulkUpdate BulkAction = "update"
	// BulkDelete removes a document.
	BulkDelete BulkAction = "delete"
)

// BulkOp is one bulk operation.
type BulkOp struct {
	Action BulkAction
	Index  string
	Type   string
	ID     string
	Data   map[string]any
}

// BulkItem is the raw per-operation result of a bulk call.
type BulkItem struct {
	Action BulkAction
	Index  string
	ID     string
	Status int
	// ErrType and Reason are empty on success.
	ErrType string
	Reason  string
}

// Failed reports whether the item did not succeed. Deleting a missing document is not a failure.
func (i BulkItem) Failed() bool {
	if i.Action == BulkDelete && i.Status == 404 && i.ErrType == "" {
		return false
	}
	return i.Status >= 300 || i.ErrType != ""
}

// IndexMissing reports that the target index did not exist, e.g. because a remap deleted it
// after the target list was resolved.
func (i BulkItem) IndexMissing() bool {
	return i.ErrType == "index_not_found_exception"
}

// Conflict reports a version conflict, e.g. a create on an existing id.
func (i BulkItem) Conflict() bool {
	return i.Status == 409
}

// BulkResponse is the raw result of a bulk call.
type BulkResponse struct {
	Errors bool
	Items  []BulkItem
}

// Failures returns the failed items.
func (r BulkResponse) Failures() []BulkItem {
	if !r.Errors {
		return nil
	}
	var failed []BulkItem
	for _, it := range r.Items {
		if it.Failed() {
			failed = append(failed, it)
		}
	}
	return failed
}
