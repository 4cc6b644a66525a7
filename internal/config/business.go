package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// ErrInvalidPath is returned for empty or malformed dotted paths.
var ErrInvalidPath = errors.New("invalid config path")

var envPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Business is the shared business configuration document (hours, branches,
// messaging settings) served to agents. It is safe for concurrent use.
type Business struct {
	mu   sync.RWMutex
	path string
	doc  map[string]interface{}
}

// NewBusiness creates a document from an initial map. A nil map starts empty.
func NewBusiness(initial map[string]interface{}) *Business {
	doc, _ := deepCopy(initial).(map[string]interface{})
	if doc == nil {
		doc = map[string]interface{}{}
	}
	return &Business{doc: doc}
}

// LoadBusiness reads a YAML document from path. ${VAR} references are
// expanded from the environment before parsing.
func LoadBusiness(path string) (*Business, error) {
	doc, err := readBusiness(path)
	if err != nil {
		return nil, err
	}
	b := NewBusiness(doc)
	b.path = path
	return b, nil
}

func readBusiness(path string) (map[string]interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading business config: %w", err)
	}
	expanded := envPattern.ReplaceAllStringFunc(string(data), func(match string) string {
		return os.Getenv(envPattern.FindStringSubmatch(match)[1])
	})

	var doc map[string]interface{}
	if err := yaml.Unmarshal([]byte(expanded), &doc); err != nil {
		return nil, fmt.Errorf("parsing business config: %w", err)
	}
	normalized, _ := normalize(doc).(map[string]interface{})
	return normalized, nil
}

// Path returns the file the document was loaded from, if any.
func (b *Business) Path() string {
	return b.path
}

// Snapshot returns a deep copy of the document.
func (b *Business) Snapshot() map[string]interface{} {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out, _ := deepCopy(b.doc).(map[string]interface{})
	return out
}

// Get returns the value at a dotted path.
func (b *Business) Get(path string) (interface{}, bool) {
	keys, err := splitPath(path)
	if err != nil {
		return nil, false
	}
	b.mu.RLock()
	defer b.mu.RUnlock()

	var cur interface{} = b.doc
	for _, k := range keys {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		if cur, ok = m[k]; !ok {
			return nil, false
		}
	}
	return deepCopy(cur), true
}

// Set stores value at a dotted path, creating intermediate objects. A
// scalar found along the path is replaced by an object.
func (b *Business) Set(path string, value interface{}) error {
	keys, err := splitPath(path)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	cur := b.doc
	for _, k := range keys[:len(keys)-1] {
		next, ok := cur[k].(map[string]interface{})
		if !ok {
			next = map[string]interface{}{}
			cur[k] = next
		}
		cur = next
	}
	cur[keys[len(keys)-1]] = deepCopy(normalize(value))
	return nil
}

// Replace swaps the whole document, used when the file changes on disk.
func (b *Business) Replace(doc map[string]interface{}) {
	copied, _ := deepCopy(doc).(map[string]interface{})
	if copied == nil {
		copied = map[string]interface{}{}
	}
	b.mu.Lock()
	b.doc = copied
	b.mu.Unlock()
}

func splitPath(path string) ([]string, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidPath)
	}
	keys := strings.Split(path, ".")
	for _, k := range keys {
		if k == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPath, path)
		}
	}
	return keys, nil
}

// normalize converts YAML-decoded values into the JSON shape (string keyed
// maps, float64 numbers) so snapshots compare equal after a JSON round trip.
func normalize(v interface{}) interface{} {
	data, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return v
	}
	return out
}

func deepCopy(v interface{}) interface{} {
	switch x := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(x))
		for k, val := range x {
			out[k] = deepCopy(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(x))
		for i, val := range x {
			out[i] = deepCopy(val)
		}
		return out
	default:
		return x
	}
}
