package models

import (
	"sort"
	"sync"
)

// RegistryView is the read-only side of a Registry handed to downstream pipelines
type RegistryView interface {
	Name() string
	Get(key ResourceKey) (ResourceRecord, error)
}

// Registry maps resource keys to records for one pipeline of one run
// It is created at run start and discarded at run end
type Registry struct {
	name    string
	mu      sync.RWMutex
	records map[ResourceKey]ResourceRecord
}

// NewRegistry creates an empty registry
func NewRegistry(name string) *Registry {
	return &Registry{
		name:    name,
		records: make(map[ResourceKey]ResourceRecord),
	}
}

// Name returns the owning pipeline name
func (r *Registry) Name() string {
	return r.name
}

// Put stores a record, replacing any previous one for the key
func (r *Registry) Put(key ResourceKey, record ResourceRecord) error {
	if err := record.Validate(); err != nil {
		return &InvalidRecordError{Registry: r.name, Key: key, Reason: err.Error()}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[key] = record.Clone()
	return nil
}

// Get returns a copy of the record; unregistered keys are always an error
func (r *Registry) Get(key ResourceKey) (ResourceRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	record, ok := r.records[key]
	if !ok {
		return ResourceRecord{}, &NotFoundError{Registry: r.name, Key: key}
	}
	return record.Clone(), nil
}

// Has reports whether the key is registered
func (r *Registry) Has(key ResourceKey) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.records[key]
	return ok
}

// Update applies mutator to a copy of the record and commits it if the
// result is still valid
func (r *Registry) Update(key ResourceKey, mutator func(ResourceRecord) (ResourceRecord, error)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.records[key]
	if !ok {
		return &NotFoundError{Registry: r.name, Key: key}
	}
	updated, err := mutator(current.Clone())
	if err != nil {
		return err
	}
	if err := updated.Validate(); err != nil {
		return &InvalidRecordError{Registry: r.name, Key: key, Reason: err.Error()}
	}
	r.records[key] = updated
	return nil
}

// Keys returns registered keys sorted by their string form
func (r *Registry) Keys() []ResourceKey {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]ResourceKey, 0, len(r.records))
	for k := range r.records {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys
}

// Snapshot returns a copy of every record keyed by its string form
func (r *Registry) Snapshot() map[string]ResourceRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]ResourceRecord, len(r.records))
	for k, v := range r.records {
		out[k.String()] = v.Clone()
	}
	return out
}

// NotFoundError is returned by Get on an unregistered key
type NotFoundError struct {
	Registry string
	Key      ResourceKey
}

func (e *NotFoundError) Error() string {
	return "resource " + e.Key.String() + " not registered in " + e.Registry + " registry"
}

// InvalidRecordError is returned when a write would break record invariants
type InvalidRecordError struct {
	Registry string
	Key      ResourceKey
	Reason   string
}

func (e *InvalidRecordError) Error() string {
	return "invalid record for " + e.Key.String() + " in " + e.Registry + " registry: " + e.Reason
}
