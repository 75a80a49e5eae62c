package cfapi

import "github.com/ellieayla/logstash-output-loginsight/pkg/event"

// Separator joins the key path of a nested field.
const Separator = "_"

// Flatten collapses nested objects into a single-level object whose keys are
// the key paths joined with Separator. Lists are stored as their JSON text
// and not descended into. All other leaves keep their type.
//
// When two paths produce the same key the later value replaces the earlier
// one, keeping the position of the first.
func Flatten(obj *event.Object) *event.Object {
	acc := event.NewObject()
	flattenInto(acc, obj, "", false)
	return acc
}

func flattenInto(acc, obj *event.Object, prefix string, nested bool) {
	obj.Range(func(k string, v event.Value) bool {
		key := k
		if nested {
			key = prefix + Separator + k
		}
		switch t := v.(type) {
		case *event.Object:
			flattenInto(acc, t, key, true)
		case event.List:
			acc.Set(key, event.String(t.String()))
		default:
			acc.Set(key, v)
		}
		return true
	})
}
