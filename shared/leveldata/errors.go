package leveldata

import "fmt"

// DocumentError reports a structurally invalid level document.
type DocumentError struct {
	Field  string
	Reason string
}

func (e *DocumentError) Error() string {
	return fmt.Sprintf("invalid level document: %s: %s", e.Field, e.Reason)
}

// LayerNotFoundError is returned when a required object layer is absent or
// ambiguous.
type LayerNotFoundError struct {
	Name  string
	Count int
}

func (e *LayerNotFoundError) Error() string {
	if e.Count > 1 {
		return fmt.Sprintf("cannot find layer %s: %d layers share that name", e.Name, e.Count)
	}
	return fmt.Sprintf("cannot find layer %s", e.Name)
}

// ZoneLookupError is returned when a zone lookup does not yield exactly one
// match.
type ZoneLookupError struct {
	Name    string
	Matches int
}

func (e *ZoneLookupError) Error() string {
	if e.Matches == 0 {
		return fmt.Sprintf("no zone named %s", e.Name)
	}
	return fmt.Sprintf("multiple zones named %s detected (%d)", e.Name, e.Matches)
}
