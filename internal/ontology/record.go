package ontology

import (
	"bytes"
	"encoding/json"
)

// Entity is one extracted node. Only id and type are interpreted; the full
// JSON object is kept and re-emitted unchanged.
//
// ID holds a string id as is and any other scalar id as its JSON text, so
// {"id":1} has ID "1". Ids are matched on their JSON form, which keeps 1 and
// "1" apart.
type Entity struct {
	ID   string
	Type string
	key  string
	raw  json.RawMessage
}

// Relation is one extracted edge between two entity ids. SourceID and
// TargetID follow the same rules as Entity.ID.
type Relation struct {
	SourceID  string
	TargetID  string
	Type      string
	sourceKey string
	targetKey string
	raw       json.RawMessage
}

// UnmarshalJSON never fails on a structurally odd record: a missing or null
// id, a non-scalar id or a non-string type decodes as empty and the record is
// later dropped.
func (e *Entity) UnmarshalJSON(data []byte) error {
	var fields struct {
		ID   json.RawMessage `json:"id"`
		Type json.RawMessage `json:"type"`
	}
	*e = Entity{raw: bytes.Clone(data)}

	if err := json.Unmarshal(data, &fields); err != nil {
		return nil
	}
	e.ID, e.key = idField(fields.ID)
	e.Type = stringField(fields.Type)

	return nil
}

// MarshalJSON emits the original object when there is one.
func (e Entity) MarshalJSON() ([]byte, error) {
	if e.raw != nil {
		return e.raw, nil
	}

	return json.Marshal(map[string]string{"id": e.ID, "type": e.Type})
}

// UnmarshalJSON never fails on a structurally odd record; see Entity.
func (r *Relation) UnmarshalJSON(data []byte) error {
	var fields struct {
		SourceID json.RawMessage `json:"source_id"`
		TargetID json.RawMessage `json:"target_id"`
		Type     json.RawMessage `json:"type"`
	}
	*r = Relation{raw: bytes.Clone(data)}

	if err := json.Unmarshal(data, &fields); err != nil {
		return nil
	}
	r.SourceID, r.sourceKey = idField(fields.SourceID)
	r.TargetID, r.targetKey = idField(fields.TargetID)
	r.Type = stringField(fields.Type)

	return nil
}

// MarshalJSON emits the original object when there is one.
func (r Relation) MarshalJSON() ([]byte, error) {
	if r.raw != nil {
		return r.raw, nil
	}

	return json.Marshal(map[string]string{"source_id": r.SourceID, "target_id": r.TargetID, "type": r.Type})
}

// idKey is the identity used for referential checks; "" means no id.
func (e Entity) idKey() string { return keyOf(e.key, e.ID) }

func (r Relation) sourceIDKey() string { return keyOf(r.sourceKey, r.SourceID) }

func (r Relation) targetIDKey() string { return keyOf(r.targetKey, r.TargetID) }

// keyOf falls back to the quoted display id for records built in Go.
func keyOf(key, id string) string {
	if key != "" || id == "" {
		return key
	}
	b, _ := json.Marshal(id)

	return string(b)
}

// idField returns the display form and the match key of a scalar id. Absent,
// null, object and array ids yield two empty strings.
func idField(raw json.RawMessage) (id, key string) {
	var v any
	if len(raw) == 0 || json.Unmarshal(raw, &v) != nil {
		return "", ""
	}

	switch t := v.(type) {
	case string:
		b, _ := json.Marshal(t)
		return t, string(b)
	case float64, bool:
		var buf bytes.Buffer
		if json.Compact(&buf, raw) != nil {
			return "", ""
		}
		return buf.String(), buf.String()
	default:
		return "", ""
	}
}

func stringField(raw json.RawMessage) string {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return ""
	}

	return s
}
