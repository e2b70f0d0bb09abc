/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: registry.go
Description: Interpretation registry. Owns every registered interpretation, rejects
duplicate names and upstream cycles at registration, and on Finalize resolves all
upstream references, verifies the upstream graph is acyclic and indexes candidates per
upstream in registration order. After Finalize the registry is read-only and may be
shared across goroutines without locking.
*/

package interpretation

import (
	"fmt"
	"sort"
	"strings"
)

// Registry maps interpretation names to interpretations.
// Registration is single-threaded; lookups after Finalize are safe for concurrent use.
type Registry struct {
	interpretations []Interpretation          // Registration order
	byName          map[string]Interpretation // Name index
	index           map[string]int            // Name to registration position

	candidates map[string][]Interpretation // Upstream name to followers, built by Finalize
	order      []string                    // Dependency order, built by Finalize
	finalized  bool
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]Interpretation),
		index:  make(map[string]int),
	}
}

// Register adds an interpretation. It fails with a ConfigurationError if the registry
// is finalized, the name is empty, reserved or taken, or if the new upstream edges
// close a cycle among already registered interpretations. Upstream names that are not
// registered yet are allowed here and resolved by Finalize.
func (r *Registry) Register(interp Interpretation) error {
	if interp == nil {
		return &ConfigurationError{Err: ErrReservedName, Detail: "nil interpretation"}
	}
	name := interp.Name()
	if r.finalized {
		return &ConfigurationError{Interpretation: name, Err: ErrAlreadyFinalized}
	}
	if name == "" || name == RootName {
		return &ConfigurationError{Interpretation: name, Err: ErrReservedName}
	}
	if _, exists := r.byName[name]; exists {
		return &ConfigurationError{Interpretation: name, Err: ErrDuplicate}
	}
	if path := r.pathBackTo(name, interp.UpstreamNames()); path != nil {
		return &ConfigurationError{
			Interpretation: name,
			Err:            ErrCycle,
			Detail:         strings.Join(path, " -> "),
		}
	}

	r.index[name] = len(r.interpretations)
	r.interpretations = append(r.interpretations, interp)
	r.byName[name] = interp
	return nil
}

// pathBackTo searches the upstream graph from the given upstream names for target and
// returns the offending path, or nil when adding target would not close a cycle
func (r *Registry) pathBackTo(target string, upstreams []string) []string {
	visited := make(map[string]bool)
	var walk func(name string, path []string) []string
	walk = func(name string, path []string) []string {
		path = append(path, name)
		if name == target {
			return path
		}
		if visited[name] {
			return nil
		}
		visited[name] = true
		interp, ok := r.byName[name]
		if !ok {
			return nil
		}
		for _, up := range interp.UpstreamNames() {
			if found := walk(up, path); found != nil {
				return found
			}
		}
		return nil
	}
	for _, up := range upstreams {
		if found := walk(up, []string{target}); found != nil {
			return found
		}
	}
	return nil
}

// Finalize resolves every upstream reference and checks the whole upstream graph for
// cycles. It must be called exactly once, before any chain building.
func (r *Registry) Finalize() error {
	if r.finalized {
		return &ConfigurationError{Err: ErrAlreadyFinalized}
	}

	for _, interp := range r.interpretations {
		for _, up := range interp.UpstreamNames() {
			if _, ok := r.byName[up]; !ok {
				return &ConfigurationError{
					Interpretation: interp.Name(),
					Err:            ErrUnknownUpstream,
					Detail:         up,
				}
			}
		}
		if err := interp.MetadataSchema().Compile(); err != nil {
			return &ConfigurationError{
				Interpretation: interp.Name(),
				Err:            fmt.Errorf("invalid metadata schema: %w", err),
			}
		}
	}

	order, err := r.topoSort()
	if err != nil {
		return err
	}

	candidates := make(map[string][]Interpretation)
	for _, interp := range r.interpretations {
		ups := interp.UpstreamNames()
		if len(ups) == 0 {
			candidates[RootName] = append(candidates[RootName], interp)
			continue
		}
		seen := make(map[string]bool, len(ups))
		for _, up := range ups {
			if seen[up] {
				continue
			}
			seen[up] = true
			candidates[up] = append(candidates[up], interp)
		}
	}

	r.order = order
	r.candidates = candidates
	r.finalized = true
	return nil
}

// topoSort returns interpretation names so that every interpretation comes after all
// of its upstreams. Ties are broken by registration order, so the result is
// deterministic. A leftover node means a cycle.
func (r *Registry) topoSort() ([]string, error) {
	n := len(r.interpretations)
	indeg := make([]int, n)
	out := make([][]int, n)

	for i, interp := range r.interpretations {
		seen := make(map[int]bool)
		for _, up := range interp.UpstreamNames() {
			d := r.index[up]
			if seen[d] {
				continue
			}
			seen[d] = true
			indeg[i]++
			out[d] = append(out[d], i)
		}
	}

	var ready []int
	for i := 0; i < n; i++ {
		if indeg[i] == 0 {
			ready = append(ready, i)
		}
	}

	order := make([]string, 0, n)
	for len(ready) > 0 {
		i := ready[0]
		ready = ready[1:]
		order = append(order, r.interpretations[i].Name())
		for _, j := range out[i] {
			indeg[j]--
			if indeg[j] == 0 {
				k := sort.SearchInts(ready, j)
				ready = append(ready, 0)
				copy(ready[k+1:], ready[k:])
				ready[k] = j
			}
		}
	}

	if len(order) != n {
		var stuck []string
		for i := 0; i < n; i++ {
			if indeg[i] > 0 {
				stuck = append(stuck, r.interpretations[i].Name())
			}
		}
		return nil, &ConfigurationError{
			Err:    ErrCycle,
			Detail: strings.Join(stuck, ", "),
		}
	}
	return order, nil
}

// Finalized reports whether Finalize has succeeded
func (r *Registry) Finalized() bool {
	return r.finalized
}

// CandidatesFor returns, in registration order, every interpretation that may follow
// tipName. For RootName it returns the interpretations with no upstreams.
// The returned slice is a copy owned by the caller.
func (r *Registry) CandidatesFor(tipName string) ([]Interpretation, error) {
	if !r.finalized {
		return nil, &ConfigurationError{Err: ErrNotFinalized}
	}
	return append([]Interpretation(nil), r.candidates[tipName]...), nil
}

// Lookup returns the interpretation registered under name
func (r *Registry) Lookup(name string) (Interpretation, bool) {
	interp, ok := r.byName[name]
	return interp, ok
}

// Names returns all registered names in registration order
func (r *Registry) Names() []string {
	names := make([]string, len(r.interpretations))
	for i, interp := range r.interpretations {
		names[i] = interp.Name()
	}
	return names
}

// DependencyOrder returns names ordered so upstreams precede their followers.
// It is only available after Finalize.
func (r *Registry) DependencyOrder() ([]string, error) {
	if !r.finalized {
		return nil, &ConfigurationError{Err: ErrNotFinalized}
	}
	return append([]string(nil), r.order...), nil
}

// Len returns the number of registered interpretations
func (r *Registry) Len() int {
	return len(r.interpretations)
}
