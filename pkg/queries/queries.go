package queries

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"google.golang.org/protobuf/types/known/structpb"
	"gopkg.in/yaml.v3"
)

// Package queries loads named REST calls from YAML/JSON files.

// configFile represents the structure of the queries file.
type configFile struct {
	Queries []Query `json:"queries" yaml:"queries"`
}

// Query is a single REST call declared in a queries file.
type Query struct {
	ID         string         `json:"id" yaml:"id"`
	Method     string         `json:"method" yaml:"method"`
	Path       string         `json:"path" yaml:"path"`
	Params     map[string]any `json:"params" yaml:"params"`
	UsedParams []string       `json:"used_params" yaml:"used_params"`
	Body       map[string]any `json:"body" yaml:"body"`
	Enabled    *bool          `json:"enabled" yaml:"enabled"`
}

// Registry materializes query definitions loaded from a file.
type Registry struct {
	mu      sync.RWMutex
	queries []Query
	idx     map[string]Query
}

// Load reads the query registry from a YAML/JSON file.
func Load(path string) (*Registry, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("queries file path is empty")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open queries file: %w", err)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read queries file: %w", err)
	}

	cf, err := parse(raw, filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	if len(cf.Queries) == 0 {
		return nil, errors.New("queries file contains no queries entries")
	}

	reg := &Registry{
		queries: make([]Query, len(cf.Queries)),
		idx:     make(map[string]Query, len(cf.Queries)),
	}
	for i := range cf.Queries {
		q := sanitize(cf.Queries[i])
		if err := validate(q); err != nil {
			return nil, fmt.Errorf("queries[%d]: %w", i, err)
		}
		if _, exists := reg.idx[q.ID]; exists {
			return nil, fmt.Errorf("duplicate query id %q", q.ID)
		}
		reg.queries[i] = q
		reg.idx[q.ID] = q
	}

	return reg, nil
}

func parse(data []byte, ext string) (configFile, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))
	decoders := []struct {
		name string
		ext  string
		fn   func([]byte, any) error
	}{
		{name: "yaml", ext: ".yaml", fn: yaml.Unmarshal},
		{name: "yaml", ext: ".yml", fn: yaml.Unmarshal},
		{name: "json", ext: ".json", fn: json.Unmarshal},
	}

	var errs []error
	for _, d := range decoders {
		if ext != "" && ext != d.ext {
			continue
		}
		var cf configFile
		if err := d.fn(data, &cf); err != nil {
			errs = append(errs, fmt.Errorf("decode %s queries: %w", d.name, err))
			continue
		}
		return cf, nil
	}

	return configFile{}, fmt.Errorf("queries file format not recognized (expected YAML or JSON): %w", errors.Join(errs...))
}

func sanitize(q Query) Query {
	q.ID = strings.TrimSpace(q.ID)
	q.Path = strings.TrimSpace(q.Path)
	q.Method = strings.ToUpper(strings.TrimSpace(q.Method))
	if q.Method == "" {
		q.Method = http.MethodGet
	}
	if q.Enabled == nil {
		def := true
		q.Enabled = &def
	}

	used := make([]string, 0, len(q.UsedParams))
	for _, p := range q.UsedParams {
		if p = strings.TrimSpace(p); p != "" {
			used = append(used, p)
		}
	}
	q.UsedParams = used

	return q
}

func validate(q Query) error {
	if q.ID == "" {
		return errors.New("id is required")
	}
	if q.Path == "" {
		return fmt.Errorf("path is required for query %q", q.ID)
	}
	if !strings.HasPrefix(q.Path, "/") {
		return fmt.Errorf("path for query %q must start with /", q.ID)
	}

	switch q.Method {
	case http.MethodGet:
		if len(q.Body) > 0 {
			return fmt.Errorf("body is only allowed on POST (query %q)", q.ID)
		}
	case http.MethodPost:
		if len(q.Body) == 0 {
			return fmt.Errorf("body is required for POST query %q", q.ID)
		}
		if len(q.UsedParams) > 0 || len(q.Params) > 0 {
			return fmt.Errorf("params and used_params are only allowed on GET (query %q)", q.ID)
		}
	default:
		return fmt.Errorf("unsupported method %q for query %q", q.Method, q.ID)
	}
	return nil
}

// Message converts the query's params (GET) or body (POST) into a request
// message. It returns nil when a GET query has no params.
func (q Query) Message() (*structpb.Struct, error) {
	src := q.Params
	if q.Method == http.MethodPost {
		src = q.Body
	}
	if len(src) == 0 {
		return nil, nil
	}
	msg, err := structpb.NewStruct(normalize(src).(map[string]any))
	if err != nil {
		return nil, fmt.Errorf("query %q: build request: %w", q.ID, err)
	}
	return msg, nil
}

// normalize rewrites YAML-decoded values into the shapes structpb accepts.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalize(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = normalize(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalize(val)
		}
		return out
	default:
		return v
	}
}

// EnabledValue returns the enabled flag defaulting to true.
func (q Query) EnabledValue() bool {
	if q.Enabled == nil {
		return true
	}
	return *q.Enabled
}

// ByID returns the query by id.
func (r *Registry) ByID(id string) (Query, bool) {
	if r == nil {
		return Query{}, false
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return Query{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	q, ok := r.idx[id]
	return q, ok
}

// All returns all configured queries in file order.
func (r *Registry) All() []Query {
	if r == nil {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Query, len(r.queries))
	copy(out, r.queries)
	return out
}

// Enabled returns the queries that are enabled.
func (r *Registry) Enabled() []Query {
	all := r.All()
	if len(all) == 0 {
		return nil
	}

	out := make([]Query, 0, len(all))
	for _, q := range all {
		if q.EnabledValue() {
			out = append(out, q)
		}
	}
	return out
}
