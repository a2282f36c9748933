// filter.go defines the pluggable event transformer chain applied before
// dispatch.

package faultline

// Filter inspects an event before dispatch. Apply returns the event to
// pass along, either the same value or a mutated one, or nil to veto it.
// Filters are registered at client construction and run in order.
type Filter interface {
	Apply(event *Event) *Event
}

// FilterFunc adapts a function to the Filter interface.
type FilterFunc func(*Event) *Event

// Apply calls f.
func (f FilterFunc) Apply(event *Event) *Event { return f(event) }

// applyFilters runs the chain in order, stopping at the first veto.
func applyFilters(filters []Filter, event *Event) *Event {
	for _, f := range filters {
		next := f.Apply(event)
		if next == nil {
			return nil
		}
		event = next
	}
	return event
}
