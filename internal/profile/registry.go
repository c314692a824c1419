// =============================================================================
// Accounting Export Mapper - Profile Registry
// =============================================================================
//
// A profile is a hand-verified column layout for one known exporter: a fixed
// column position -> field name table for a (system, document type, subtype)
// combination. Profiles beat the heuristic mapper because they were checked
// against real exports.
//
// The registry is built once at startup and only read afterwards, so a
// single instance can be shared by concurrent conversions.
//
// =============================================================================

package profile

import (
	"errors"
	"fmt"
	"sort"

	"github.com/ginjaninja78/jpk-mapper/internal/types"
)

// ErrDuplicateProfile is returned when two profiles share a lookup key.
var ErrDuplicateProfile = errors.New("duplicate profile")

// Profile is a deterministic column layout for one exporter.
type Profile struct {
	Name            string         `yaml:"name"`
	System          string         `yaml:"system"`
	DocumentType    string         `yaml:"document_type"`
	DocumentSubtype string         `yaml:"document_subtype"`
	Columns         map[int]string `yaml:"columns"`
}

// Key identifies a profile by exact metadata equality.
type Key struct {
	System          string
	DocumentType    string
	DocumentSubtype string
}

// String implements fmt.Stringer.
func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%s", k.System, k.DocumentType, k.DocumentSubtype)
}

// KeyFromMetadata reads the lookup key from sheet metadata.
func KeyFromMetadata(meta map[string]string) Key {
	return Key{
		System:          meta[types.MetaSystem],
		DocumentType:    meta[types.MetaDocumentType],
		DocumentSubtype: meta[types.MetaDocumentSubtype],
	}
}

// Key returns the lookup key of the profile.
func (p Profile) Key() Key {
	return Key{System: p.System, DocumentType: p.DocumentType, DocumentSubtype: p.DocumentSubtype}
}

// Registry is a read-only lookup of profiles.
type Registry struct {
	profiles map[Key]Profile
}

// NewRegistry builds a registry. Two profiles with the same key are an error.
func NewRegistry(profiles ...Profile) (*Registry, error) {
	r := &Registry{profiles: make(map[Key]Profile, len(profiles))}
	for _, p := range profiles {
		key := p.Key()
		if existing, dup := r.profiles[key]; dup {
			return nil, fmt.Errorf("%w: %q and %q both match %s", ErrDuplicateProfile, existing.Name, p.Name, key)
		}
		r.profiles[key] = p
	}
	return r, nil
}

// Lookup finds the profile whose key equals the sheet metadata exactly.
// A nil registry never matches.
func (r *Registry) Lookup(meta map[string]string) (Profile, bool) {
	if r == nil {
		return Profile{}, false
	}
	key := KeyFromMetadata(meta)
	if key == (Key{}) {
		return Profile{}, false
	}
	p, ok := r.profiles[key]
	return p, ok
}

// Len returns the number of registered profiles.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.profiles)
}

// Names lists profile names in sorted order.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.profiles))
	for _, p := range r.profiles {
		names = append(names, p.Name)
	}
	sort.Strings(names)
	return names
}
