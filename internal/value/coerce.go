package value

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Coerce converts v to the wanted kind where a lossless or conventional
// conversion exists. Strings are the common source because values supplied
// on the command line or typed interactively always arrive as text:
//
//	"80"            -> integer 80
//	"yes", "off"    -> boolean
//	"a, b, c"       -> list of strings
//	"[1, 2]"        -> list parsed as YAML flow
//	"{k: v}"        -> map parsed as YAML flow
//
// Null is returned unchanged; callers decide whether null is acceptable.
func Coerce(v Value, want Kind) (Value, error) {
	if v.kind == want || v.kind == KindNull {
		return v, nil
	}
	switch want {
	case KindString:
		switch v.kind {
		case KindInteger, KindFloat, KindBoolean:
			return String(v.String()), nil
		}
	case KindInteger:
		switch v.kind {
		case KindFloat:
			if v.flt == math.Trunc(v.flt) && math.Abs(v.flt) < 1<<63 {
				return Int(int64(v.flt)), nil
			}
		case KindString:
			if i, err := strconv.ParseInt(strings.TrimSpace(v.str), 10, 64); err == nil {
				return Int(i), nil
			}
		}
	case KindFloat:
		switch v.kind {
		case KindInteger:
			return Float(float64(v.num)), nil
		case KindString:
			if f, err := strconv.ParseFloat(strings.TrimSpace(v.str), 64); err == nil {
				return Float(f), nil
			}
		}
	case KindBoolean:
		switch v.kind {
		case KindString:
			if b, ok := ParseBool(v.str); ok {
				return Bool(b), nil
			}
		case KindInteger:
			if v.num == 0 || v.num == 1 {
				return Bool(v.num == 1), nil
			}
		}
	case KindList:
		if v.kind == KindString {
			return coerceList(v.str)
		}
	case KindMap:
		if v.kind == KindString {
			s := strings.TrimSpace(v.str)
			if strings.HasPrefix(s, "{") {
				parsed, err := ParseYAML([]byte(s))
				if err == nil && parsed.kind == KindMap {
					return parsed, nil
				}
			}
		}
	}
	return Value{}, fmt.Errorf("cannot use %s %s as %s", v.kind, v.Describe(), want)
}

func coerceList(s string) (Value, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return ListOf(), nil
	}
	if strings.HasPrefix(s, "[") {
		parsed, err := ParseYAML([]byte(s))
		if err != nil || parsed.kind != KindList {
			return Value{}, fmt.Errorf("cannot use string %q as list", s)
		}
		return parsed, nil
	}
	parts := strings.Split(s, ",")
	items := make([]Value, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			items = append(items, String(p))
		}
	}
	return Value{kind: KindList, list: items}, nil
}

// ParseBool accepts the spellings people type at a prompt.
func ParseBool(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "y", "on", "1":
		return true, true
	case "false", "no", "n", "off", "0":
		return false, true
	}
	return false, false
}

// Truthy follows the usual template conventions: null, false, zero, the
// empty string and empty collections are false.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindString:
		return v.str != ""
	case KindInteger:
		return v.num != 0
	case KindFloat:
		return v.flt != 0
	case KindBoolean:
		return v.b
	case KindList:
		return len(v.list) > 0
	case KindMap:
		return v.m.Len() > 0
	}
	return false
}
