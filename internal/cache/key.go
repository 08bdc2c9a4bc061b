package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
)

const (
	// codeLength is the width of a normalized A-share stock code.
	codeLength = 6

	// keyHashLength is the number of hex characters kept from the SHA256 digest.
	keyHashLength = 24

	// tokenSeparator joins normalized tokens before hashing.
	tokenSeparator = "\x1f"
)

// codePattern matches strings that look like a stock code once upper-cased:
// an optional exchange prefix or suffix around one to six significant digits,
// with any amount of extra zero padding.
var codePattern = regexp.MustCompile(`^(?:SH|SZ|BJ)?0*\d{1,6}(?:\.(?:SH|SZ|BJ))?$`)

// NormalizeCode converts a stock code to its canonical six digit form.
// "sh600519", "600519.SH", " 600519 ", "0600519" all become "600519"; "1"
// becomes "000001".
func NormalizeCode(code string) string {
	c := strings.ToUpper(strings.TrimSpace(code))
	for _, prefix := range []string{"SH", "SZ", "BJ"} {
		c = strings.TrimPrefix(c, prefix)
		c = strings.TrimSuffix(c, "."+prefix)
	}
	for len(c) > codeLength && c[0] == '0' {
		c = c[1:]
	}
	if len(c) < codeLength {
		c = strings.Repeat("0", codeLength-len(c)) + c
	}
	return c
}

// IsCode reports whether s looks like a stock code.
func IsCode(s string) bool {
	return codePattern.MatchString(strings.ToUpper(strings.TrimSpace(s)))
}

// MakeKey builds a deterministic fingerprint for category and parts.
//
// Parts are normalized before hashing: strings are trimmed and case-folded,
// strings that look like stock codes are normalized with NormalizeCode,
// numbers are formatted canonically, maps become sorted "key=value" tokens and
// slices are flattened. The resulting tokens are sorted, so argument order does
// not affect the key.
//
// Only strings are treated as codes: MakeKey(c, "30") and MakeKey(c, 30)
// differ because "30" normalizes to "000030".
func MakeKey(category Category, parts ...any) string {
	tokens := make([]string, 0, len(parts))
	for _, p := range parts {
		tokens = append(tokens, partTokens(p)...)
	}
	sort.Strings(tokens)

	sum := sha256.Sum256([]byte(strings.Join(tokens, tokenSeparator)))
	return fmt.Sprintf("%s_%s", category, hex.EncodeToString(sum[:])[:keyHashLength])
}

//nolint:gocyclo // one case per supported part type
func partTokens(p any) []string {
	switch v := p.(type) {
	case nil:
		return nil
	case string:
		return []string{normalizeToken(v)}
	case []string:
		out := make([]string, 0, len(v))
		for _, s := range v {
			out = append(out, normalizeToken(s))
		}
		return out
	case []any:
		var out []string
		for _, item := range v {
			out = append(out, partTokens(item)...)
		}
		return out
	case map[string]string:
		out := make([]string, 0, len(v))
		for k, val := range v {
			out = append(out, foldToken(k)+"="+normalizeToken(val))
		}
		return out
	case map[string]any:
		out := make([]string, 0, len(v))
		for k, val := range v {
			valTokens := partTokens(val)
			sort.Strings(valTokens)
			out = append(out, foldToken(k)+"="+strings.Join(valTokens, ","))
		}
		return out
	case int:
		return []string{strconv.Itoa(v)}
	case int64:
		return []string{strconv.FormatInt(v, 10)}
	case int32:
		return []string{strconv.FormatInt(int64(v), 10)}
	case uint:
		return []string{strconv.FormatUint(uint64(v), 10)}
	case uint64:
		return []string{strconv.FormatUint(v, 10)}
	case float64:
		return []string{strconv.FormatFloat(v, 'g', -1, 64)}
	case float32:
		return []string{strconv.FormatFloat(float64(v), 'g', -1, 32)}
	case bool:
		return []string{strconv.FormatBool(v)}
	case time.Time:
		return []string{v.UTC().Format(time.RFC3339Nano)}
	case time.Duration:
		return []string{v.String()}
	case Category:
		return []string{foldToken(string(v))}
	case fmt.Stringer:
		return []string{normalizeToken(v.String())}
	default:
		return []string{normalizeToken(fmt.Sprint(v))}
	}
}

func normalizeToken(s string) string {
	if IsCode(s) {
		return NormalizeCode(s)
	}
	return foldToken(s)
}

func foldToken(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

// KeyBuilder accumulates key parts fluently. Build returns the same key as
// MakeKey called with the accumulated parts.
type KeyBuilder struct {
	category Category
	parts    []any
}

// NewKeyBuilder starts a key for category.
func NewKeyBuilder(category Category) *KeyBuilder {
	return &KeyBuilder{category: category}
}

// Code adds a normalized stock code.
func (b *KeyBuilder) Code(code string) *KeyBuilder {
	b.parts = append(b.parts, NormalizeCode(code))
	return b
}

// Codes adds several stock codes.
func (b *KeyBuilder) Codes(codes ...string) *KeyBuilder {
	for _, c := range codes {
		b.Code(c)
	}
	return b
}

// Param adds a named parameter.
func (b *KeyBuilder) Param(name string, value any) *KeyBuilder {
	b.parts = append(b.parts, map[string]any{name: value})
	return b
}

// Params adds every entry of params.
func (b *KeyBuilder) Params(params map[string]any) *KeyBuilder {
	if len(params) > 0 {
		b.parts = append(b.parts, params)
	}
	return b
}

// Part adds a raw part.
func (b *KeyBuilder) Part(p any) *KeyBuilder {
	b.parts = append(b.parts, p)
	return b
}

// Build returns the key.
func (b *KeyBuilder) Build() string {
	return MakeKey(b.category, b.parts...)
}
