package flatten

import (
	"sort"
	"strings"
)

// FilterSet is the set of categories to keep, compared case-insensitively.
// An empty set keeps every category.
type FilterSet map[string]struct{}

// NewFilterSet builds a filter from category names. Blank names are ignored.
func NewFilterSet(names ...string) FilterSet {
	set := make(FilterSet, len(names))
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		set[name] = struct{}{}
	}
	return set
}

// ParseFilterSet builds a filter from a comma separated list such as "liveboard, vehicle".
func ParseFilterSet(list string) FilterSet {
	if strings.TrimSpace(list) == "" {
		return FilterSet{}
	}
	return NewFilterSet(strings.Split(list, ",")...)
}

func (f FilterSet) Empty() bool {
	return len(f) == 0
}

// Allows reports whether records of category pass the filter.
func (f FilterSet) Allows(category string) bool {
	if len(f) == 0 {
		return true
	}
	_, ok := f[strings.ToLower(category)]
	return ok
}

// Union returns a new set with the names of both sets. When f is empty the
// result stays empty, so an accept-all filter is never narrowed.
func (f FilterSet) Union(names ...string) FilterSet {
	out := make(FilterSet, len(f)+len(names))
	if len(f) == 0 {
		return out
	}
	for name := range f {
		out[name] = struct{}{}
	}
	for name := range NewFilterSet(names...) {
		out[name] = struct{}{}
	}
	return out
}

// Names returns the members in sorted order.
func (f FilterSet) Names() []string {
	names := make([]string, 0, len(f))
	for name := range f {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (f FilterSet) String() string {
	return strings.Join(f.Names(), ",")
}
