package fluentmig

import (
	"fmt"
	"sort"
)

// Registry is the explicit registration table migration modules add their
// units to at program start. It replaces runtime scanning: discovery is a
// plain lookup over what was registered.
type Registry struct {
	units map[int64]*MigrationUnit
	order []int64
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{units: make(map[int64]*MigrationUnit)}
}

// Register adds a unit. A duplicate version or a unit carrying a construction
// error is rejected; duplicate versions typically mean two branches picked the
// same number and must be renumbered before the run.
func (r *Registry) Register(u *MigrationUnit) error {
	if u == nil {
		return &ValidationError{Problems: []string{"nil migration unit"}}
	}
	if err := u.Err(); err != nil {
		return err
	}
	if prev, dup := r.units[u.Version()]; dup {
		return &ValidationError{Problems: []string{
			fmt.Sprintf("duplicate version %d: %q and %q", u.Version(), prev.Name(), u.Name()),
		}}
	}
	r.units[u.Version()] = u
	r.order = append(r.order, u.Version())
	return nil
}

// MustRegister is Register for package init blocks; it panics on error.
func (r *Registry) MustRegister(u *MigrationUnit) {
	if err := r.Register(u); err != nil {
		panic(err)
	}
}

// Units returns all registered units sorted by version ascending, regardless
// of registration order.
func (r *Registry) Units() []*MigrationUnit {
	versions := append([]int64(nil), r.order...)
	sort.Slice(versions, func(i, j int) bool { return versions[i] < versions[j] })
	out := make([]*MigrationUnit, len(versions))
	for i, v := range versions {
		out[i] = r.units[v]
	}
	return out
}

// Lookup returns the unit registered under version, if any.
func (r *Registry) Lookup(version int64) (*MigrationUnit, bool) {
	u, ok := r.units[version]
	return u, ok
}

// Len returns the number of registered units.
func (r *Registry) Len() int { return len(r.units) }

// MaxVersion returns the highest registered version, or 0 when empty.
func (r *Registry) MaxVersion() int64 {
	var max int64
	for v := range r.units {
		if v > max {
			max = v
		}
	}
	return max
}
