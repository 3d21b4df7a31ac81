// Package layers holds the facility layer registry: which overlay layers
// exist, which facility category feeds each one, and whether it is shown.
package layers

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/joeblew999/daurin/internal/model"
)

// ErrUnknownLayer is returned for layer ids that are not registered.
var ErrUnknownLayer = errors.New("unknown layer")

// Config is one toggleable facility layer.
type Config struct {
	ID       string `json:"id" yaml:"id" doc:"Layer identifier" example:"bank-sampah"`
	Name     string `json:"name" yaml:"name" doc:"Display name" example:"Bank Sampah"`
	Icon     string `json:"icon" yaml:"icon" doc:"Marker icon URL" example:"/static/icons/bank-sampah.svg"`
	Source   string `json:"source" yaml:"source" enum:"bankSampah,lembagaTpa,tpa,tpst3r" doc:"Facility category key"`
	IsActive bool   `json:"isActive" yaml:"active" doc:"Whether the layer is currently shown"`
}

// Defaults returns the built-in layer set, all inactive.
func Defaults() []Config {
	return []Config{
		{ID: "bank-sampah", Name: "Bank Sampah", Icon: "/static/icons/bank-sampah.svg", Source: model.CategoryBankSampah},
		{ID: "lembaga-tpa", Name: "Lembaga TPA", Icon: "/static/icons/lembaga-tpa.svg", Source: model.CategoryLembagaTPA},
		{ID: "tpa", Name: "TPA", Icon: "/static/icons/tpa.svg", Source: model.CategoryTPA},
		{ID: "tpst3r", Name: "TPST 3R", Icon: "/static/icons/tpst3r.svg", Source: model.CategoryTPST3R},
	}
}

// Registry is an ordered set of layer configs. The zero value is not usable;
// construct with New, LoadFile or Clone.
type Registry struct {
	mu     sync.RWMutex
	layers []Config
	index  map[string]int
}

// New validates the configs and builds a registry.
func New(configs []Config) (*Registry, error) {
	r := &Registry{
		layers: make([]Config, 0, len(configs)),
		index:  make(map[string]int, len(configs)),
	}
	for _, c := range configs {
		if c.ID == "" {
			return nil, fmt.Errorf("layer %q: id is required", c.Name)
		}
		if _, dup := r.index[c.ID]; dup {
			return nil, fmt.Errorf("layer with ID %q already exists", c.ID)
		}
		if !knownSource(c.Source) {
			return nil, fmt.Errorf("layer %q: unknown source %q", c.ID, c.Source)
		}
		if c.Name == "" {
			c.Name = c.ID
		}
		r.index[c.ID] = len(r.layers)
		r.layers = append(r.layers, c)
	}
	return r, nil
}

// LoadFile reads a YAML list of layers. An empty path yields the defaults.
func LoadFile(path string) (*Registry, error) {
	if path == "" {
		return New(Defaults())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading layers file: %w", err)
	}
	var doc struct {
		Layers []Config `yaml:"layers"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing layers file: %w", err)
	}
	return New(doc.Layers)
}

// Clone returns an independent copy, used to give each map session its own
// active flags.
func (r *Registry) Clone() *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c := &Registry{
		layers: make([]Config, len(r.layers)),
		index:  make(map[string]int, len(r.index)),
	}
	copy(c.layers, r.layers)
	for k, v := range r.index {
		c.index[k] = v
	}
	return c
}

// List returns the layers in registration order.
func (r *Registry) List() []Config {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Config, len(r.layers))
	copy(out, r.layers)
	return out
}

// Get returns a layer by ID.
func (r *Registry) Get(id string) (Config, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i, ok := r.index[id]
	if !ok {
		return Config{}, false
	}
	return r.layers[i], true
}

// Toggle flips the active flag and returns the updated layer.
func (r *Registry) Toggle(id string) (Config, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i, ok := r.index[id]
	if !ok {
		return Config{}, fmt.Errorf("layer %q: %w", id, ErrUnknownLayer)
	}
	r.layers[i].IsActive = !r.layers[i].IsActive
	return r.layers[i], nil
}

// SetActive forces the active flag, used to roll back a toggle whose data
// could not be loaded.
func (r *Registry) SetActive(id string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i, ok := r.index[id]
	if !ok {
		return fmt.Errorf("layer %q: %w", id, ErrUnknownLayer)
	}
	r.layers[i].IsActive = active
	return nil
}

// Active returns the layers currently shown.
func (r *Registry) Active() []Config {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Config
	for _, l := range r.layers {
		if l.IsActive {
			out = append(out, l)
		}
	}
	return out
}

func knownSource(s string) bool {
	for _, c := range model.Categories {
		if c == s {
			return true
		}
	}
	return false
}
