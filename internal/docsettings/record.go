package docsettings

// keyDocPath is always (re)set to the requesting document path after load,
// overwriting whatever the stored file carried.
const keyDocPath = "doc_path"

// Record is a loaded settings mapping. Callers mutate it in place between
// [Store.Open] and [Session.Flush]. Values are the shapes produced by the
// literal codec: nested map[string]any, []any, string, int64, float64,
// bool, nil.
type Record map[string]any

// ReadSetting returns the value stored under key, or nil.
func (r Record) ReadSetting(key string) any {
	return r[key]
}

// SaveSetting stores value under key.
func (r Record) SaveSetting(key string, value any) {
	r[key] = value
}

// DelSetting removes key.
func (r Record) DelSetting(key string) {
	delete(r, key)
}

// Has reports whether key is present.
func (r Record) Has(key string) bool {
	_, ok := r[key]

	return ok
}

// IsTrue reports whether key holds boolean true.
func (r Record) IsTrue(key string) bool {
	b, ok := r[key].(bool)

	return ok && b
}
