package restclient

import (
	"bytes"
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
)

// Codec turns a request message into its canonical JSON object.
type Codec interface {
	Marshal(m proto.Message) ([]byte, error)
}

// DefaultCodec emits lowerCamelCase field names and omits unpopulated fields.
var DefaultCodec Codec = protojson.MarshalOptions{}

type field struct {
	name string
	raw  json.RawMessage
}

func isNilMessage(m proto.Message) bool {
	return m == nil || !m.ProtoReflect().IsValid()
}

// encodeParams converts msg into query params, dropping the used keys first.
func encodeParams(codec Codec, msg proto.Message, used []string) (*Params, error) {
	data, err := codec.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	fields, err := decodeObject(data)
	if err != nil {
		return nil, fmt.Errorf("decode encoded request: %w", err)
	}

	for _, key := range used {
		idx := -1
		for i, f := range fields {
			if f.name == key {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, &MissingParamError{Key: key}
		}
		fields = append(fields[:idx], fields[idx+1:]...)
	}

	params := NewParams()
	for _, f := range fields {
		if err := flatten(params, f.name, f.raw); err != nil {
			return nil, fmt.Errorf("flatten %s: %w", f.name, err)
		}
	}
	return params, nil
}

// decodeObject reads the members of a JSON object in document order.
func decodeObject(data []byte) ([]field, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("expected JSON object, got %v", tok)
	}

	var fields []field
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		name, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected object key %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("field %s: %w", name, err)
		}
		fields = append(fields, field{name: name, raw: raw})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return fields, nil
}

// flatten adds raw under key. Lists repeat the key, objects nest with dotted
// keys and null values are skipped.
func flatten(p *Params, key string, raw json.RawMessage) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil
	}

	switch raw[0] {
	case '{':
		fields, err := decodeObject(raw)
		if err != nil {
			return err
		}
		for _, f := range fields {
			if err := flatten(p, key+"."+f.name, f.raw); err != nil {
				return err
			}
		}
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return err
		}
		for _, item := range items {
			if err := flatten(p, key, item); err != nil {
				return err
			}
		}
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}
		p.Add(key, s)
	case 'n':
		// null
	default:
		// numbers and booleans keep their JSON spelling
		p.Add(key, string(raw))
	}
	return nil
}
