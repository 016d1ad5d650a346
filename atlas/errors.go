package atlas

import "fmt"

// Error reports a tileset that cannot be turned into descriptors.
type Error struct {
	Tileset string
	Reason  string
}

func (e *Error) Error() string {
	if e.Tileset == "" {
		return "atlas: " + e.Reason
	}
	return fmt.Sprintf("atlas: tileset %q: %s", e.Tileset, e.Reason)
}

// LookupError is returned for a gid outside every tileset range.
type LookupError struct {
	GID uint32
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("atlas: gid %d is not owned by any tileset", e.GID)
}
