package product

import "encoding/json"

// Project extracts field from the snapshot's quick status.
// Returns false when the field is absent or holds JSON null.
// This is a PURE function.
func Project(s Snapshot, field string) (json.RawMessage, bool) {
	v, ok := s.QuickStatus[field]
	if !ok || len(v) == 0 || string(v) == "null" {
		return nil, false
	}
	return v, true
}

// ProjectMany applies Project to each snapshot, keeping input order.
// Snapshots without the field are dropped, so the result may be shorter than the input.
// This is a PURE function.
func ProjectMany(snapshots []Snapshot, field string) []json.RawMessage {
	values := make([]json.RawMessage, 0, len(snapshots))
	for _, s := range snapshots {
		if v, ok := Project(s, field); ok {
			values = append(values, v)
		}
	}
	return values
}
