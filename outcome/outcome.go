// Package outcome records per-item results of batch operations such as a
// project scan or a scene save, where individual failures are tolerated
// and the operation continues.
package outcome

import (
	"errors"
	"fmt"
)

// Action identifies what happened to an item.
type Action uint8

const (
	// Added indicates a newly tracked item.
	Added Action = iota + 1
	// Updated indicates an item whose content was refreshed.
	Updated
	// Removed indicates an item that is no longer tracked.
	Removed
	// Stored indicates an item written into an archive.
	Stored
	// Extracted indicates an item materialized from an archive.
	Extracted
	// Skipped indicates an item that was intentionally not processed.
	Skipped
)

// String returns the lower-case action name.
func (a Action) String() string {
	switch a {
	case Added:
		return "added"
	case Updated:
		return "updated"
	case Removed:
		return "removed"
	case Stored:
		return "stored"
	case Extracted:
		return "extracted"
	case Skipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Item is the result for a single path, asset, or resource.
type Item struct {
	// Name identifies the item (a project path, resource role, or entry name).
	Name string

	// Action is what the operation attempted or did.
	Action Action

	// Bytes is the number of bytes copied, stored, or extracted.
	Bytes uint64

	// Err is non-nil when the item failed. A failed item does not fail
	// the batch.
	Err error
}

// OK reports whether the item succeeded.
func (i Item) OK() bool {
	return i.Err == nil
}

// String formats the item for logs and CLI output.
func (i Item) String() string {
	if i.Err != nil {
		return fmt.Sprintf("%s %s: %v", i.Action, i.Name, i.Err)
	}
	return fmt.Sprintf("%s %s", i.Action, i.Name)
}

// Stats summarizes a List.
type Stats struct {
	// Processed is the number of items that succeeded and were not skipped.
	Processed int

	// Skipped is the number of skipped items.
	Skipped int

	// Failed is the number of items with an error.
	Failed int

	// TotalBytes is the sum of Bytes over processed items.
	TotalBytes uint64
}

// List is an ordered collection of item results.
type List []Item

// Add appends a successful item.
func (l *List) Add(name string, action Action, n uint64) {
	*l = append(*l, Item{Name: name, Action: action, Bytes: n})
}

// Fail appends a failed item.
func (l *List) Fail(name string, action Action, err error) {
	*l = append(*l, Item{Name: name, Action: action, Err: err})
}

// Failed returns the failed items in order.
func (l List) Failed() List {
	var out List
	for _, it := range l {
		if it.Err != nil {
			out = append(out, it)
		}
	}
	return out
}

// With returns the items that have the given action.
func (l List) With(action Action) List {
	var out List
	for _, it := range l {
		if it.Action == action {
			out = append(out, it)
		}
	}
	return out
}

// Names returns item names in order.
func (l List) Names() []string {
	names := make([]string, 0, len(l))
	for _, it := range l {
		names = append(names, it.Name)
	}
	return names
}

// Stats computes summary counts for the list.
func (l List) Stats() Stats {
	var s Stats
	for _, it := range l {
		switch {
		case it.Err != nil:
			s.Failed++
		case it.Action == Skipped:
			s.Skipped++
		default:
			s.Processed++
			s.TotalBytes += it.Bytes
		}
	}
	return s
}

// Err joins the errors of every failed item, or returns nil.
func (l List) Err() error {
	var errs []error
	for _, it := range l {
		if it.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", it.Name, it.Err))
		}
	}
	return errors.Join(errs...)
}
