// Package activities holds the in-memory activity registry: the catalogue of
// extracurricular activities and the participant roster of each one.
//
// The registry is constructed once at startup from a seed set and injected into
// the HTTP handlers. Nothing is persisted; a restart returns every roster to its
// seed state. Every check-then-mutate sequence runs under a single lock so that
// concurrent signups cannot push a roster past capacity or duplicate an email.
package activities

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
)

// Activity is a named extracurricular activity with its roster.
// Participants are kept in signup order.
type Activity struct {
	Name            string   `json:"-" yaml:"name"`
	Description     string   `json:"description" yaml:"description"`
	Schedule        string   `json:"schedule" yaml:"schedule"`
	MaxParticipants int      `json:"max_participants" yaml:"max_participants"`
	Participants    []string `json:"participants" yaml:"participants"`
}

// SpotsLeft returns how many more participants the activity can take.
func (a Activity) SpotsLeft() int {
	return a.MaxParticipants - len(a.Participants)
}

func (a Activity) clone() Activity {
	out := a
	out.Participants = make([]string, len(a.Participants))
	copy(out.Participants, a.Participants)
	return out
}

// Catalog is a point-in-time copy of the registry in seed order. It encodes as
// a JSON object keyed by activity name, preserving that order.
type Catalog []Activity

// MarshalJSON writes the catalogue as {"<name>": {...}, ...}.
func (c Catalog) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, a := range c {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(a.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(a)
		if err != nil {
			return nil, fmt.Errorf("failed to encode activity %q: %w", a.Name, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Names returns the activity names in catalogue order.
func (c Catalog) Names() []string {
	names := make([]string, len(c))
	for i, a := range c {
		names[i] = a.Name
	}
	return names
}

// Registry is the process-wide set of activities. The zero value is not usable;
// construct one with New.
type Registry struct {
	mu         sync.RWMutex
	order      []string
	activities map[string]*Activity
	observer   func(Activity)
}

// New builds a registry from seed after validating it. The seed slice is copied.
func New(seed []Activity) (*Registry, error) {
	if err := ValidateSeed(seed); err != nil {
		return nil, err
	}

	r := &Registry{
		order:      make([]string, 0, len(seed)),
		activities: make(map[string]*Activity, len(seed)),
	}
	for _, a := range seed {
		c := a.clone()
		r.order = append(r.order, c.Name)
		r.activities[c.Name] = &c
	}
	return r, nil
}

// List returns a copy of every activity in seed order.
func (r *Registry) List() Catalog {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(Catalog, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.activities[name].clone())
	}
	return out
}

// Observe registers fn to receive a copy of every activity whose roster
// changes, and calls it once per activity straight away. fn runs with the
// registry lock held, so changes to one activity reach it in the order they
// were made. fn must not call back into the registry.
func (r *Registry) Observe(fn func(Activity)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.observer = fn
	for _, name := range r.order {
		fn(r.activities[name].clone())
	}
}

func (r *Registry) notify(a *Activity) {
	if r.observer != nil {
		r.observer(a.clone())
	}
}

// Get returns a copy of one activity.
func (r *Registry) Get(name string) (Activity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.activities[name]
	if !ok {
		return Activity{}, ErrActivityNotFound
	}
	return a.clone(), nil
}

// Signup appends email to the roster of the named activity and returns the
// updated activity. Checks run in order: existence, duplicate, capacity.
func (r *Registry) Signup(name, email string) (Activity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.activities[name]
	if !ok {
		return Activity{}, ErrActivityNotFound
	}
	if slices.Contains(a.Participants, email) {
		return Activity{}, ErrAlreadySignedUp
	}
	if len(a.Participants) >= a.MaxParticipants {
		return Activity{}, ErrActivityFull
	}

	a.Participants = append(a.Participants, email)
	r.notify(a)
	return a.clone(), nil
}

// Unregister removes email from the roster of the named activity and returns
// the updated activity. The remaining participants keep their order.
func (r *Registry) Unregister(name, email string) (Activity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.activities[name]
	if !ok {
		return Activity{}, ErrActivityNotFound
	}
	idx := slices.Index(a.Participants, email)
	if idx < 0 {
		return Activity{}, ErrParticipantNotFound
	}

	a.Participants = slices.Delete(a.Participants, idx, idx+1)
	r.notify(a)
	return a.clone(), nil
}
