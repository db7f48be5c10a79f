package filter

import "fmt"

// Records normalizes a decoded JSON payload into records. An array must hold
// only objects; a single object becomes one record; null yields none.
func Records(payload any) ([]Record, error) {
	switch v := payload.(type) {
	case nil:
		return []Record{}, nil
	case map[string]any:
		return []Record{v}, nil
	case []any:
		records := make([]Record, 0, len(v))
		for i, item := range v {
			rec, ok := item.(map[string]any)
			if !ok {
				return nil, &PayloadError{Index: i, Reason: fmt.Sprintf("expected an object, got %T", item)}
			}
			records = append(records, rec)
		}
		return records, nil
	default:
		return nil, &PayloadError{Index: -1, Reason: fmt.Sprintf("expected an array or object, got %T", payload)}
	}
}

// Payload converts records back into a value that encodes as a JSON array.
func Payload(records []Record) []any {
	out := make([]any, len(records))
	for i, rec := range records {
		out[i] = rec
	}
	return out
}
