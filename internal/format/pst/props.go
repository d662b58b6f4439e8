package pst

import (
	"time"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
)

// props reads named fields of a go-pst property message. Field sets differ
// between item classes, so every lookup tolerates absent fields.
type props struct {
	m protoreflect.Message
}

func propsOf(v any) props {
	if pm, ok := v.(proto.Message); ok && pm != nil {
		return props{m: pm.ProtoReflect()}
	}
	return props{}
}

func (p props) value(name string) (protoreflect.Value, bool) {
	if p.m == nil || !p.m.IsValid() {
		return protoreflect.Value{}, false
	}
	fd := p.m.Descriptor().Fields().ByName(protoreflect.Name(name))
	if fd == nil || fd.IsList() || fd.IsMap() || !p.m.Has(fd) {
		return protoreflect.Value{}, false
	}
	return p.m.Get(fd), true
}

// str returns the first non-empty string field among names.
func (p props) str(names ...string) string {
	for _, name := range names {
		v, ok := p.value(name)
		if !ok {
			continue
		}
		if s, ok := v.Interface().(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// int returns the first set integer field among names.
func (p props) int(names ...string) (int64, bool) {
	for _, name := range names {
		v, ok := p.value(name)
		if !ok {
			continue
		}
		switch n := v.Interface().(type) {
		case int32:
			return int64(n), true
		case int64:
			return n, true
		case uint32:
			return int64(n), true
		case uint64:
			return int64(n), true
		}
	}
	return 0, false
}

func (p props) bytes(name string) []byte {
	v, ok := p.value(name)
	if !ok {
		return nil
	}
	b, _ := v.Interface().([]byte)
	return b
}

func (p props) time(names ...string) time.Time {
	n, ok := p.int(names...)
	if !ok {
		return time.Time{}
	}
	return pstTime(n)
}

// filetimeEpochDelta is the number of 100ns intervals between 1601-01-01
// and 1970-01-01.
const filetimeEpochDelta = 116444736000000000

// pstTime converts a stored timestamp. Values beyond any plausible unix
// seconds are FILETIMEs.
func pstTime(v int64) time.Time {
	switch {
	case v <= 0:
		return time.Time{}
	case v > 1e15:
		if v < filetimeEpochDelta {
			return time.Time{}
		}
		d := v - filetimeEpochDelta
		return time.Unix(d/1e7, (d%1e7)*100).UTC()
	default:
		return time.Unix(v, 0).UTC()
	}
}
