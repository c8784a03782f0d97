package index

// Status describes the alias layout of a logical index.
type Status string

const (
	// StatusMissing means neither alias exists.
	StatusMissing Status = "missing"
	// StatusOK means both aliases exist.
	StatusOK Status = "ok"
	// StatusInconsistent means exactly one alias exists, the trace of an interrupted operation.
	StatusInconsistent Status = "inconsistent"
)

// StatusFromAliases derives the status from the presence of the read and write aliases.
func StatusFromAliases(mainExists, updateExists bool) Status {
	switch {
	case mainExists && updateExists:
		return StatusOK
	case !mainExists && !updateExists:
		return StatusMissing
	default:
		return StatusInconsistent
	}
}
