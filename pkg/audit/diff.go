package audit

import "reflect"

// Dirty returns the attributes of after that differ from before, and the
// previous values of those attributes. Both are empty when nothing changed.
func Dirty(before, after map[string]interface{}) (changed, old map[string]interface{}) {
	changed = make(map[string]interface{})
	old = make(map[string]interface{})
	for k, v := range after {
		prev, ok := before[k]
		if ok && reflect.DeepEqual(prev, v) {
			continue
		}
		changed[k] = v
		if ok {
			old[k] = prev
		} else {
			old[k] = nil
		}
	}
	return changed, old
}
