package models

import (
	_ "embed"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

//go:embed models.yaml
var builtin []byte

// ErrUnknownModel is matched by every *UnknownModelError.
var ErrUnknownModel = errors.New("unknown target model")

// Descriptor describes a downstream model a prompt can be optimized for.
type Descriptor struct {
	Key         string `json:"key" yaml:"key"`
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`
}

// UnknownModelError is returned when a key has no registry entry.
type UnknownModelError struct {
	Key string
}

func (e *UnknownModelError) Error() string {
	return "unknown targetModel: " + e.Key
}

func (e *UnknownModelError) Is(target error) bool {
	return target == ErrUnknownModel
}

// Registry is a read-only, ordered list of target models.
// It is safe for concurrent use.
type Registry struct {
	models []Descriptor
	byKey  map[string]int
}

// New validates models and builds a registry. Keys must be unique and
// non-empty, titles non-empty.
func New(models []Descriptor) (*Registry, error) {
	if len(models) == 0 {
		return nil, errors.New("model registry is empty")
	}

	r := &Registry{
		models: make([]Descriptor, len(models)),
		byKey:  make(map[string]int, len(models)),
	}
	for i, m := range models {
		m.Key = strings.TrimSpace(m.Key)
		m.Title = strings.TrimSpace(m.Title)
		m.Description = strings.TrimSpace(m.Description)

		if m.Key == "" {
			return nil, errors.Newf("model #%d: empty key", i+1)
		}
		if m.Title == "" {
			return nil, errors.Newf("model %q: empty title", m.Key)
		}
		if _, dup := r.byKey[m.Key]; dup {
			return nil, errors.Newf("model %q: duplicate key", m.Key)
		}
		r.models[i] = m
		r.byKey[m.Key] = i
	}
	return r, nil
}

// Parse decodes a YAML list of descriptors.
func Parse(data []byte) (*Registry, error) {
	var models []Descriptor
	if err := yaml.Unmarshal(data, &models); err != nil {
		return nil, errors.Wrap(err, "parse model registry")
	}
	return New(models)
}

// Load reads a registry from a YAML file.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithHint(
			errors.Wrapf(err, "read model registry %s", path),
			"check models_file in your config",
		)
	}
	r, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", path)
	}
	return r, nil
}

// Builtin returns the registry shipped with the binary.
func Builtin() *Registry {
	r, err := Parse(builtin)
	if err != nil {
		panic(errors.Wrap(err, "builtin model registry"))
	}
	return r
}

// Lookup resolves a key to its descriptor.
func (r *Registry) Lookup(key string) (Descriptor, error) {
	i, ok := r.byKey[key]
	if !ok {
		return Descriptor{}, &UnknownModelError{Key: key}
	}
	return r.models[i], nil
}

// All returns the models in registry order.
func (r *Registry) All() []Descriptor {
	out := make([]Descriptor, len(r.models))
	copy(out, r.models)
	return out
}

// Default is the first registered model.
func (r *Registry) Default() Descriptor {
	return r.models[0]
}

// Index returns the position of key, or -1.
func (r *Registry) Index(key string) int {
	if i, ok := r.byKey[key]; ok {
		return i
	}
	return -1
}

// Len returns the number of registered models.
func (r *Registry) Len() int {
	return len(r.models)
}
