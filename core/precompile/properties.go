package precompile

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/rangetable"
)

var categoryAliases = map[string]string{
	"Letter":                "L",
	"Cased_Letter":          "LC",
	"Uppercase_Letter":      "Lu",
	"Lowercase_Letter":      "Ll",
	"Titlecase_Letter":      "Lt",
	"Modifier_Letter":       "Lm",
	"Other_Letter":          "Lo",
	"Mark":                  "M",
	"Combining_Mark":        "M",
	"Nonspacing_Mark":       "Mn",
	"Spacing_Mark":          "Mc",
	"Enclosing_Mark":        "Me",
	"Number":                "N",
	"Decimal_Number":        "Nd",
	"digit":                 "Nd",
	"Letter_Number":         "Nl",
	"Other_Number":          "No",
	"Punctuation":           "P",
	"punct":                 "P",
	"Connector_Punctuation": "Pc",
	"Dash_Punctuation":      "Pd",
	"Open_Punctuation":      "Ps",
	"Close_Punctuation":     "Pe",
	"Initial_Punctuation":   "Pi",
	"Final_Punctuation":     "Pf",
	"Other_Punctuation":     "Po",
	"Symbol":                "S",
	"Math_Symbol":           "Sm",
	"Currency_Symbol":       "Sc",
	"Modifier_Symbol":       "Sk",
	"Other_Symbol":          "So",
	"Separator":             "Z",
	"Space_Separator":       "Zs",
	"Line_Separator":        "Zl",
	"Paragraph_Separator":   "Zp",
	"Other":                 "C",
	"Control":               "Cc",
	"cntrl":                 "Cc",
	"Format":                "Cf",
	"Surrogate":             "Cs",
	"Private_Use":           "Co",
	"Unassigned":            "Cn",
}

var scriptAliases = map[string]string{
	"Arab": "Arabic",
	"Armn": "Armenian",
	"Beng": "Bengali",
	"Cher": "Cherokee",
	"Copt": "Coptic",
	"Cyrl": "Cyrillic",
	"Deva": "Devanagari",
	"Ethi": "Ethiopic",
	"Geor": "Georgian",
	"Grek": "Greek",
	"Gujr": "Gujarati",
	"Guru": "Gurmukhi",
	"Hang": "Hangul",
	"Hani": "Han",
	"Hebr": "Hebrew",
	"Hira": "Hiragana",
	"Kana": "Katakana",
	"Khmr": "Khmer",
	"Knda": "Kannada",
	"Laoo": "Lao",
	"Latn": "Latin",
	"Mlym": "Malayalam",
	"Mong": "Mongolian",
	"Mymr": "Myanmar",
	"Orya": "Oriya",
	"Sinh": "Sinhala",
	"Syrc": "Syriac",
	"Taml": "Tamil",
	"Telu": "Telugu",
	"Thaa": "Thaana",
	"Thai": "Thai",
	"Tibt": "Tibetan",
	"Zinh": "Inherited",
	"Qaai": "Inherited",
	"Zyyy": "Common",
}

var binaryAliases = map[string]string{
	"AHex":        "ASCII_Hex_Digit",
	"Bidi_C":      "Bidi_Control",
	"Dep":         "Deprecated",
	"Dia":         "Diacritic",
	"Ext":         "Extender",
	"Hex":         "Hex_Digit",
	"IDSB":        "IDS_Binary_Operator",
	"IDST":        "IDS_Trinary_Operator",
	"Ideo":        "Ideographic",
	"Join_C":      "Join_Control",
	"LOE":         "Logical_Order_Exception",
	"NChar":       "Noncharacter_Code_Point",
	"Pat_Syn":     "Pattern_Syntax",
	"Pat_WS":      "Pattern_White_Space",
	"QMark":       "Quotation_Mark",
	"RI":          "Regional_Indicator",
	"SD":          "Soft_Dotted",
	"STerm":       "Sentence_Terminal",
	"Term":        "Terminal_Punctuation",
	"UIdeo":       "Unified_Ideograph",
	"VS":          "Variation_Selector",
	"WSpace":      "White_Space",
	"space":       "White_Space",
	"Alpha":       "Alphabetic",
	"Lower":       "Lowercase",
	"Upper":       "Uppercase",
	"Other_Alpha": "Other_Alphabetic",
}

// properties ECMAScript defines on top of the raw Unicode tables
var derivedProperties = map[string]func() []runeRange{
	"Any":   func() []runeRange { return []runeRange{{0, unicode.MaxRune}} },
	"ASCII": func() []runeRange { return []runeRange{{0, unicode.MaxASCII}} },
	"Assigned": func() []runeRange {
		return rangesOf(assigned())
	},
	"Alphabetic": func() []runeRange {
		return rangesOf(rangetable.Merge(unicode.Lu, unicode.Ll, unicode.Lt, unicode.Lm, unicode.Lo, unicode.Nl, unicode.Other_Alphabetic))
	},
	"Lowercase": func() []runeRange {
		return rangesOf(rangetable.Merge(unicode.Ll, unicode.Other_Lowercase))
	},
	"Uppercase": func() []runeRange {
		return rangesOf(rangetable.Merge(unicode.Lu, unicode.Other_Uppercase))
	},
	"Math": func() []runeRange {
		return rangesOf(rangetable.Merge(unicode.Sm, unicode.Other_Math))
	},
}

func assigned() *unicode.RangeTable {
	tables := make([]*unicode.RangeTable, 0, len(unicode.Categories))
	for name, t := range unicode.Categories {
		// single letter entries are unions of the two letter ones
		if len(name) == 2 {
			tables = append(tables, t)
		}
	}
	return rangetable.Merge(tables...)
}

// lookupProperty resolves the body of a \p{...} escape. Names are matched
// exactly, as ECMAScript does not allow loose matching.
func lookupProperty(name string) ([]runeRange, error) {
	if key, value, ok := strings.Cut(name, "="); ok {
		switch key {
		case "General_Category", "gc":
			return lookupCategory(value)
		case "Script", "sc":
			return lookupScript(value)
		default:
			// Script_Extensions has no table in the standard library, the
			// engine handles it natively
			return nil, fmt.Errorf("unsupported property %q", key)
		}
	}
	if ranges, err := lookupCategory(name); err == nil {
		return ranges, nil
	}
	if canonical, ok := binaryAliases[name]; ok {
		name = canonical
	}
	if derived, ok := derivedProperties[name]; ok {
		return derived(), nil
	}
	if t, ok := unicode.Properties[name]; ok {
		return rangesOf(t), nil
	}
	return nil, fmt.Errorf("unknown property %q", name)
}

func lookupCategory(value string) ([]runeRange, error) {
	if short, ok := categoryAliases[value]; ok {
		value = short
	}
	switch value {
	case "LC":
		return rangesOf(rangetable.Merge(unicode.Lu, unicode.Ll, unicode.Lt)), nil
	case "Cn":
		return complement(rangesOf(assigned())), nil
	case "C":
		// Other includes the unassigned code points, which Go has no table for
		return normalize(append(rangesOf(unicode.C), complement(rangesOf(assigned()))...)), nil
	}
	t, ok := unicode.Categories[value]
	if !ok {
		return nil, fmt.Errorf("unknown general category %q", value)
	}
	return rangesOf(t), nil
}

func lookupScript(value string) ([]runeRange, error) {
	if long, ok := scriptAliases[value]; ok {
		value = long
	}
	t, ok := unicode.Scripts[value]
	if !ok {
		return nil, fmt.Errorf("unknown script %q", value)
	}
	return rangesOf(t), nil
}
