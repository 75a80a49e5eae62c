package cfapi

import (
	"github.com/ellieayla/logstash-output-loginsight/pkg/event"
)

// Adjustment is one entry of the field adjustment table: either a rename
// or a drop.
type Adjustment struct {
	name string
	drop bool
}

// Rename returns an adjustment that renames a field to name.
func Rename(name string) Adjustment { return Adjustment{name: name} }

// Drop returns an adjustment that removes a field.
func Drop() Adjustment { return Adjustment{drop: true} }

// IsDrop reports whether the field is removed.
func (a Adjustment) IsDrop() bool { return a.drop }

// Name returns the replacement name of a rename.
func (a Adjustment) Name() string { return a.name }

// Adjustments maps flattened field names to their adjustment. Lookups match
// whole names only.
type Adjustments map[string]Adjustment

// DefaultAdjustments returns the table applied when none is configured.
//
// Log Insight refuses events carrying a "timestamp" field, and @timestamp
// and message are already sent as the record's timestamp and text.
func DefaultAdjustments() Adjustments {
	return Adjustments{
		"hostname":   Rename("host"),
		"host":       Rename("hostname"),
		"@version":   Drop(),
		"@timestamp": Drop(),
		"message":    Drop(),
		"timestamp":  Rename("timestamp_"),
	}
}

// AdjustmentsFromMap builds a table from a plain map where the empty string
// marks a field to drop.
func AdjustmentsFromMap(m map[string]string) Adjustments {
	a := make(Adjustments, len(m))
	for k, v := range m {
		if v == "" {
			a[k] = Drop()
		} else {
			a[k] = Rename(v)
		}
	}
	return a
}

// Map is the inverse of AdjustmentsFromMap.
func (a Adjustments) Map() map[string]string {
	m := make(map[string]string, len(a))
	for k, v := range a {
		m[k] = v.name
	}
	return m
}

// Clone returns a copy of the table.
func (a Adjustments) Clone() Adjustments {
	c := make(Adjustments, len(a))
	for k, v := range a {
		c[k] = v
	}
	return c
}

func (a Adjustments) dropped(name string) bool {
	adj, ok := a[name]
	return ok && adj.drop
}

// Field is one name/content pair of an encoded record.
type Field struct {
	Name    string      `json:"name"`
	Content event.Value `json:"content"`
}

// Apply turns a flattened object into the record field list. Dropped fields
// are removed first, then names are renamed and, when sanitize is set,
// stripped of invalid characters. A field whose final name is empty or is
// itself marked for drop is omitted.
func (a Adjustments) Apply(flat *event.Object, sanitize bool) []Field {
	fields := make([]Field, 0, flat.Len())
	flat.Range(func(key string, v event.Value) bool {
		name := key
		if adj, ok := a[key]; ok {
			if adj.drop {
				return true
			}
			name = adj.name
		}
		if sanitize {
			name = Sanitize(name)
		}
		if name == "" || a.dropped(name) {
			return true
		}
		fields = append(fields, Field{Name: name, Content: v})
		return true
	})
	return fields
}
