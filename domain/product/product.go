// Package product provides bazaar snapshot value types and pure functions over them.
// This package has NO dependencies on I/O.
package product

import "encoding/json"

// Snapshot is one point-in-time observation for a product (immutable value type).
// The storage row id is never part of the value and is never serialized.
type Snapshot struct {
	ProductID   string      `json:"product_id"`
	Timestamp   int64       `json:"timestamp"`
	QuickStatus QuickStatus `json:"quick_status"`
}

// QuickStatus holds the nested numeric trading fields of a snapshot.
// Values are kept as raw JSON so they are returned to clients exactly as stored.
type QuickStatus map[string]json.RawMessage

// Field names accepted by the query endpoints.
const (
	FieldSellPrice      = "sellPrice"
	FieldBuyPrice       = "buyPrice"
	FieldSellVolume     = "sellVolume"
	FieldBuyVolume      = "buyVolume"
	FieldSellOrders     = "sellOrders"
	FieldBuyOrders      = "buyOrders"
	FieldSellMovingWeek = "sellMovingWeek"
	FieldBuyMovingWeek  = "buyMovingWeek"
)

var fields = []string{
	FieldSellPrice,
	FieldBuyPrice,
	FieldSellVolume,
	FieldBuyVolume,
	FieldSellOrders,
	FieldBuyOrders,
	FieldSellMovingWeek,
	FieldBuyMovingWeek,
}

// Fields returns the allow-listed field names in a stable order.
func Fields() []string {
	out := make([]string, len(fields))
	copy(out, fields)
	return out
}

// WithField returns a copy of the snapshot with field set to the JSON encoding of v.
// Used by fixtures and the memory store; panics if v cannot be encoded.
func (s Snapshot) WithField(field string, v any) Snapshot {
	raw, err := json.Marshal(v)
	if err != nil {
		panic("product: encode field " + field + ": " + err.Error())
	}
	qs := make(QuickStatus, len(s.QuickStatus)+1)
	for k, existing := range s.QuickStatus {
		qs[k] = existing
	}
	qs[field] = raw
	s.QuickStatus = qs
	return s
}
