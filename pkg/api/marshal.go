package api

import "encoding/json"

// marshalExt re-marshals a decoded JSON object back into the raw form
// itemstore.Item.Ext stores. nil in produces nil out rather than the
// literal string "null", so unset Ext round-trips as an empty column.
func marshalExt(v map[string]interface{}) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}
