package types

// Event is a program log entry. Attributes carry string values only so that
// receipts and the event index can store them without a schema.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

// Attr returns the named attribute or "" when absent.
func (e *Event) Attr(key string) string {
	if e == nil {
		return ""
	}
	return e.Attributes[key]
}

// WithAttribute returns a copy of e with key set to value. The receiver is
// left untouched.
func (e *Event) WithAttribute(key, value string) *Event {
	attrs := make(map[string]string, len(e.Attributes)+1)
	for k, v := range e.Attributes {
		attrs[k] = v
	}
	attrs[key] = value
	return &Event{Type: e.Type, Attributes: attrs}
}
