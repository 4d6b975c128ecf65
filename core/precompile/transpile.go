package precompile

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

type runeRange struct {
	lo, hi rune
}

// TranspilePattern rewrites Unicode property escapes (\p{..} and \P{..}) of a
// pattern compiled with the u or v flag into explicit code point classes.
// Patterns without those flags have no property escapes and are returned
// as-is once their structure has been checked.
func TranspilePattern(pattern, flags string) (string, error) {
	unicodeMode := strings.ContainsAny(flags, "uv")
	setsMode := strings.ContainsRune(flags, 'v')

	var out strings.Builder
	out.Grow(len(pattern))
	classDepth := 0
	groupDepth := 0

	for i := 0; i < len(pattern); {
		c := pattern[i]
		switch {
		case c == '\\':
			if i+1 >= len(pattern) {
				return "", fmt.Errorf("\\ at end of pattern")
			}
			next := pattern[i+1]
			if unicodeMode && (next == 'p' || next == 'P') {
				name, width, err := readPropertyName(pattern[i+2:])
				if err != nil {
					return "", err
				}
				ranges, err := lookupProperty(name)
				if err != nil {
					return "", err
				}
				writeProperty(&out, ranges, next == 'P', classDepth > 0, setsMode)
				i += 2 + width
				continue
			}
			_, size := utf8.DecodeRuneInString(pattern[i+1:])
			out.WriteString(pattern[i : i+1+size])
			i += 1 + size
			continue
		case c == '[':
			if classDepth == 0 || setsMode {
				classDepth++
			}
		case c == ']':
			if classDepth > 0 {
				classDepth--
			}
		case c == '(' && classDepth == 0:
			groupDepth++
		case c == ')' && classDepth == 0:
			groupDepth--
			if groupDepth < 0 {
				return "", fmt.Errorf("unmatched ')'")
			}
		}
		out.WriteByte(c)
		i++
	}
	if classDepth > 0 {
		return "", fmt.Errorf("unterminated character class")
	}
	if groupDepth > 0 {
		return "", fmt.Errorf("unterminated group")
	}
	return out.String(), nil
}

// readPropertyName reads "{Name}" and returns Name and the bytes consumed.
func readPropertyName(s string) (string, int, error) {
	if !strings.HasPrefix(s, "{") {
		return "", 0, fmt.Errorf("invalid property name")
	}
	end := strings.IndexByte(s, '}')
	if end < 0 {
		return "", 0, fmt.Errorf("invalid property name")
	}
	name := s[1:end]
	if name == "" {
		return "", 0, fmt.Errorf("invalid property name")
	}
	return name, end + 1, nil
}

func writeProperty(out *strings.Builder, ranges []runeRange, negated, inClass, setsMode bool) {
	if inClass && !setsMode {
		// a plain class cannot nest, so the negation is folded into the ranges
		if negated {
			ranges = complement(ranges)
		}
		writeRanges(out, ranges)
		return
	}
	out.WriteByte('[')
	if negated {
		out.WriteByte('^')
	}
	writeRanges(out, ranges)
	out.WriteByte(']')
}

func writeRanges(out *strings.Builder, ranges []runeRange) {
	for _, r := range ranges {
		switch {
		case r.lo == r.hi:
			writeAtom(out, r.lo)
		case r.hi == r.lo+1:
			writeAtom(out, r.lo)
			writeAtom(out, r.hi)
		default:
			writeAtom(out, r.lo)
			out.WriteByte('-')
			writeAtom(out, r.hi)
		}
	}
}

func writeAtom(out *strings.Builder, r rune) {
	if r < utf8.RuneSelf && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
		out.WriteRune(r)
		return
	}
	fmt.Fprintf(out, `\u{%X}`, r)
}

func rangesOf(tables ...*unicode.RangeTable) []runeRange {
	var out []runeRange
	for _, t := range tables {
		for _, r := range t.R16 {
			out = appendStrided(out, rune(r.Lo), rune(r.Hi), rune(r.Stride))
		}
		for _, r := range t.R32 {
			out = appendStrided(out, rune(r.Lo), rune(r.Hi), rune(r.Stride))
		}
	}
	return normalize(out)
}

func appendStrided(out []runeRange, lo, hi, stride rune) []runeRange {
	if stride == 1 {
		return append(out, runeRange{lo, hi})
	}
	for r := lo; r <= hi; r += stride {
		out = append(out, runeRange{r, r})
	}
	return out
}

// normalize sorts ranges and merges the overlapping or adjacent ones.
func normalize(ranges []runeRange) []runeRange {
	if len(ranges) == 0 {
		return ranges
	}
	sort.Slice(ranges, func(i, j int) bool { return ranges[i].lo < ranges[j].lo })
	merged := ranges[:1]
	for _, r := range ranges[1:] {
		last := &merged[len(merged)-1]
		if r.lo <= last.hi+1 {
			if r.hi > last.hi {
				last.hi = r.hi
			}
			continue
		}
		merged = append(merged, r)
	}
	return merged
}

func complement(ranges []runeRange) []runeRange {
	var out []runeRange
	next := rune(0)
	for _, r := range ranges {
		if r.lo > next {
			out = append(out, runeRange{next, r.lo - 1})
		}
		next = r.hi + 1
	}
	if next <= unicode.MaxRune {
		out = append(out, runeRange{next, unicode.MaxRune})
	}
	return out
}
