package venue

import "bytes"

// scan.go implements the byte-level pull parsing every venue adapter uses
// to turn a raw WS frame into normalized events without allocating for
// numeric fields. This is intentionally not encoding/json: the spec
// requires field names to be compared as UTF-8 byte literals and numbers
// parsed in place from their quoted-decimal wire representation, which a
// struct-tag unmarshaler cannot do without an allocation per field.

// fieldVisitor is called once per top-level key/value pair found by
// forEachField. value still carries its surrounding quotes/brackets for
// strings, arrays and objects; callers compare/parse as needed.
type fieldVisitor func(key, value []byte) (stop bool)

// forEachField walks a flat (or nested, skipped-over) JSON object's
// top-level fields, handing each key/value span to visit. It never
// allocates: all spans point into obj.
func forEachField(obj []byte, visit fieldVisitor) {
	i := skipWhitespace(obj, 0)
	if i >= len(obj) || obj[i] != '{' {
		return
	}
	i++
	for {
		i = skipWhitespace(obj, i)
		if i >= len(obj) || obj[i] == '}' {
			return
		}
		if obj[i] != '"' {
			return
		}
		keyStart := i + 1
		keyEnd := indexUnescapedQuote(obj, keyStart)
		if keyEnd < 0 {
			return
		}
		key := obj[keyStart:keyEnd]
		i = keyEnd + 1
		i = skipWhitespace(obj, i)
		if i >= len(obj) || obj[i] != ':' {
			return
		}
		i++
		i = skipWhitespace(obj, i)
		valStart := i
		valEnd, next := scanValue(obj, i)
		if valEnd < 0 {
			return
		}
		value := obj[valStart:valEnd]
		if visit(key, value) {
			return
		}
		i = skipWhitespace(obj, next)
		if i < len(obj) && obj[i] == ',' {
			i++
			continue
		}
		return
	}
}

func skipWhitespace(b []byte, i int) int {
	for i < len(b) {
		switch b[i] {
		case ' ', '\t', '\n', '\r':
			i++
		default:
			return i
		}
	}
	return i
}

func indexUnescapedQuote(b []byte, from int) int {
	for i := from; i < len(b); i++ {
		if b[i] == '\\' {
			i++
			continue
		}
		if b[i] == '"' {
			return i
		}
	}
	return -1
}

// scanValue returns the end offset (exclusive) of the value starting at i,
// and the offset to resume scanning from, which always equals end (for a
// string, end already includes the trailing quote).
func scanValue(b []byte, i int) (end, next int) {
	if i >= len(b) {
		return -1, -1
	}
	switch b[i] {
	case '"':
		q := indexUnescapedQuote(b, i+1)
		if q < 0 {
			return -1, -1
		}
		return q + 1, q + 1
	case '{':
		depth := 1
		j := i + 1
		for j < len(b) && depth > 0 {
			switch b[j] {
			case '"':
				q := indexUnescapedQuote(b, j+1)
				if q < 0 {
					return -1, -1
				}
				j = q
			case '{':
				depth++
			case '}':
				depth--
			}
			j++
		}
		return j, j
	case '[':
		depth := 1
		j := i + 1
		for j < len(b) && depth > 0 {
			switch b[j] {
			case '"':
				q := indexUnescapedQuote(b, j+1)
				if q < 0 {
					return -1, -1
				}
				j = q
			case '[':
				depth++
			case ']':
				depth--
			}
			j++
		}
		return j, j
	default:
		j := i
		for j < len(b) {
			switch b[j] {
			case ',', '}', ']', ' ', '\t', '\n', '\r':
				return j, j
			}
			j++
		}
		return j, j
	}
}

// unquote strips a leading/trailing `"` from a value span as returned by
// forEachField, if present. No allocation.
func unquote(v []byte) []byte {
	if len(v) >= 2 && v[0] == '"' && v[len(v)-1] == '"' {
		return v[1 : len(v)-1]
	}
	return v
}

// parseUint parses an unsigned decimal integer from b (optionally quoted)
// without allocating.
func parseUint(b []byte) (uint64, bool) {
	b = unquote(b)
	if len(b) == 0 {
		return 0, false
	}
	var n uint64
	for _, c := range b {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + uint64(c-'0')
	}
	return n, true
}

// parseInt parses a signed decimal integer from b (optionally quoted)
// without allocating.
func parseInt(b []byte) (int64, bool) {
	b = unquote(b)
	if len(b) == 0 {
		return 0, false
	}
	neg := false
	if b[0] == '-' {
		neg = true
		b = b[1:]
	}
	u, ok := parseUint(b)
	if !ok {
		return 0, false
	}
	if neg {
		return -int64(u), true
	}
	return int64(u), true
}

// parseTicks parses a quoted decimal price/size string (e.g. "12345.6700")
// into raw ticks at the given number of decimal places, without
// allocating. Extra precision beyond scale is truncated; missing
// precision is zero-padded.
func parseTicks(b []byte, scale int) (int64, bool) {
	b = unquote(b)
	if len(b) == 0 {
		return 0, false
	}
	neg := false
	if b[0] == '-' {
		neg = true
		b = b[1:]
	}
	dot := bytes.IndexByte(b, '.')
	var intPart, fracPart []byte
	if dot < 0 {
		intPart = b
	} else {
		intPart = b[:dot]
		fracPart = b[dot+1:]
	}
	whole, ok := parseUint(intPart)
	if !ok && len(intPart) > 0 {
		return 0, false
	}
	frac := uint64(0)
	for i := 0; i < scale; i++ {
		frac *= 10
		if i < len(fracPart) {
			c := fracPart[i]
			if c < '0' || c > '9' {
				return 0, false
			}
			frac += uint64(c - '0')
		}
	}
	mul := uint64(1)
	for i := 0; i < scale; i++ {
		mul *= 10
	}
	ticks := int64(whole*mul + frac)
	if neg {
		ticks = -ticks
	}
	return ticks, true
}
