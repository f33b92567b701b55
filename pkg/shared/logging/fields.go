// Package logging provides a fluent structured-fields builder laid over
// zap's sugared logger, so call sites build up context ("component",
// "operation", "resource_type"/"resource_name", ...) without repeating
// zap.String/zap.Error boilerplate at every log line.
package logging

import "time"

// Fields is a builder of structured log fields keyed the way zap's
// SugaredLogger.Infow expects pairs, but held as a map so components can
// build it up incrementally before a single call site logs it.
type Fields map[string]interface{}

// NewFields starts an empty field set.
func NewFields() Fields {
	return Fields{}
}

func (f Fields) Component(name string) Fields {
	f["component"] = name
	return f
}

func (f Fields) Operation(name string) Fields {
	f["operation"] = name
	return f
}

func (f Fields) Resource(kind, name string) Fields {
	f["resource_type"] = kind
	if name != "" {
		f["resource_name"] = name
	}
	return f
}

func (f Fields) Duration(d time.Duration) Fields {
	f["duration_ms"] = d.Milliseconds()
	return f
}

func (f Fields) Error(err error) Fields {
	if err != nil {
		f["error"] = err.Error()
	}
	return f
}

func (f Fields) RunID(id string) Fields {
	f["run_id"] = id
	return f
}

func (f Fields) Attempt(n int) Fields {
	f["attempt"] = n
	return f
}

// Set attaches an arbitrary key/value pair not covered by the named
// builder methods above.
func (f Fields) Set(key string, value interface{}) Fields {
	f[key] = value
	return f
}

// KV flattens the fields into alternating key/value pairs for zap's
// SugaredLogger.Infow/Errorw/Warnw variadic signature.
func (f Fields) KV() []interface{} {
	kv := make([]interface{}, 0, len(f)*2)
	for k, v := range f {
		kv = append(kv, k, v)
	}
	return kv
}
