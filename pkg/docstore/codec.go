package docstore

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// jsonSnapshot backs the memory and SQLite stores, which keep documents as JSON
type jsonSnapshot struct {
	id   string
	data []byte
}

func (s *jsonSnapshot) ID() string { return s.id }

func (s *jsonSnapshot) DataTo(v interface{}) error {
	return json.Unmarshal(s.data, v)
}

// toDocument normalizes any JSON-encodable value into a field map
func toDocument(v interface{}) (map[string]interface{}, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	doc := map[string]interface{}{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("document must encode to a JSON object: %w", err)
	}
	return doc, nil
}

func fromBytes(raw []byte) (map[string]interface{}, error) {
	doc := map[string]interface{}{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return doc, nil
}

// normalize round-trips a Go value through JSON so comparisons happen on
// the same representation the document holds
func normalize(v interface{}) (interface{}, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func applyFields(doc map[string]interface{}, fields map[string]interface{}) error {
	for k, v := range fields {
		nv, err := normalize(v)
		if err != nil {
			return fmt.Errorf("encode field %s: %w", k, err)
		}
		doc[k] = nv
	}
	return nil
}

func applyArrayUnion(doc map[string]interface{}, field string, values []interface{}) error {
	existing, _ := doc[field].([]interface{})
	for _, v := range values {
		nv, err := normalize(v)
		if err != nil {
			return fmt.Errorf("encode array value: %w", err)
		}
		present := false
		for _, e := range existing {
			if reflect.DeepEqual(e, nv) {
				present = true
				break
			}
		}
		if !present {
			existing = append(existing, nv)
		}
	}
	if existing == nil {
		existing = []interface{}{}
	}
	doc[field] = existing
	return nil
}

func matches(doc map[string]interface{}, filters []Filter) (bool, error) {
	for _, f := range filters {
		want, err := normalize(f.Value)
		if err != nil {
			return false, err
		}
		if !reflect.DeepEqual(doc[f.Field], want) {
			return false, nil
		}
	}
	return true, nil
}
