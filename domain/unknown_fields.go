package domain

import "encoding/json"

// unknownFields decodes the top-level keys of a JSON object that are not
// named in known, returning them as a plain map. Ingest adapters evolve
// independently of this module; a field a newer adapter started sending
// must land somewhere rather than vanish on unmarshal.
func unknownFields(data []byte, known map[string]struct{}) (map[string]interface{}, error) {
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, err
	}
	var extra map[string]interface{}
	for k, raw := range all {
		if _, ok := known[k]; ok {
			continue
		}
		var v interface{}
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		if extra == nil {
			extra = make(map[string]interface{})
		}
		extra[k] = v
	}
	return extra, nil
}

// mergeMetadata folds extra (unrecognized top-level fields captured by
// unknownFields) into explicit, an already-decoded metadata map.
// Explicit metadata keys win on collision: a caller that set
// "metadata": {"foo": ...} meant it, an unrecognized top-level "foo"
// sitting alongside it did not.
func mergeMetadata(explicit, extra map[string]interface{}) map[string]interface{} {
	if len(extra) == 0 {
		return explicit
	}
	merged := make(map[string]interface{}, len(explicit)+len(extra))
	for k, v := range extra {
		merged[k] = v
	}
	for k, v := range explicit {
		merged[k] = v
	}
	return merged
}
