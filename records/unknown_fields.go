package records

import "encoding/json"

// unknownFields decodes the top-level keys of a JSON object that are not
// named in known, returning them as a plain map to fold into Metadata.
// Mirrors domain.unknownFields; kept local since records and domain
// don't otherwise share unexported helpers.
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
