package restclient

import (
	"net/url"
	"strings"
)

// Params is an ordered mapping from key to one or many values. Keys are
// encoded in insertion order; a key with several values is expanded into
// repeated key=value pairs.
type Params struct {
	keys   []string
	values map[string][]string
}

// NewParams returns an empty Params.
func NewParams() *Params {
	return &Params{values: make(map[string][]string)}
}

// Add appends value to key, registering the key on first use.
func (p *Params) Add(key, value string) {
	if p.values == nil {
		p.values = make(map[string][]string)
	}
	if _, ok := p.values[key]; !ok {
		p.keys = append(p.keys, key)
	}
	p.values[key] = append(p.values[key], value)
}

// Get returns the values stored for key.
func (p *Params) Get(key string) ([]string, bool) {
	v, ok := p.values[key]
	return v, ok
}

// Keys returns the keys in insertion order.
func (p *Params) Keys() []string {
	out := make([]string, len(p.keys))
	copy(out, p.keys)
	return out
}

// Len returns the number of distinct keys.
func (p *Params) Len() int { return len(p.keys) }

// Remove deletes key and fails with a *MissingParamError when it is absent.
func (p *Params) Remove(key string) error {
	if _, ok := p.values[key]; !ok {
		return &MissingParamError{Key: key}
	}
	delete(p.values, key)
	for i, k := range p.keys {
		if k == key {
			p.keys = append(p.keys[:i], p.keys[i+1:]...)
			break
		}
	}
	return nil
}

// Encode renders the params as a form-encoded query string.
func (p *Params) Encode() string {
	if p == nil || len(p.keys) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, k := range p.keys {
		ek := url.QueryEscape(k)
		for _, v := range p.values[k] {
			if sb.Len() > 0 {
				sb.WriteByte('&')
			}
			sb.WriteString(ek)
			sb.WriteByte('=')
			sb.WriteString(url.QueryEscape(v))
		}
	}
	return sb.String()
}
