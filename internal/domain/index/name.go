package index

import (
	"strings"
	"time"
)

// updateAliasSuffix is appended to the logical name to form the write alias.
const updateAliasSuffix = "_update"

// timestampLayout renders a UTC instant with microsecond resolution: YYYYMMDDhhmmss + 6 digits.
const timestampLayout = "20060102150405.000000"

// timestampDigits is the length of a rendered timestamp once the dot is removed.
const timestampDigits = 20

// MainAlias returns the read alias of a logical index.
func MainAlias(base string) string {
	return base
}

// UpdateAlias returns the write alias of a logical index.
func UpdateAlias(base string) string {
	return base + updateAliasSuffix
}

// Pattern returns the wildcard matching every concrete index of a logical index.
func Pattern(base string) string {
	return base + "-*"
}

// ConcreteName builds the concrete index name for a logical index created at t.
func ConcreteName(base string, t time.Time) string {
	ts := strings.Replace(t.UTC().Format(timestampLayout), ".", "", 1)
	return base + "-" + ts
}

// IsConcrete reports whether name is a concrete index of base,
// so "users" never claims "users-archive-20240101000000000000".
func IsConcrete(base, name string) bool {
	suffix, ok := strings.CutPrefix(name, base+"-")
	if !ok || len(suffix) != timestampDigits {
		return false
	}
	for _, r := range suffix {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// CreatedAt parses the creation instant encoded in a concrete index name.
func CreatedAt(base, name string) (time.Time, bool) {
	if !IsConcrete(base, name) {
		return time.Time{}, false
	}
	suffix := name[len(base)+1:]
	t, err := time.Parse(timestampLayout, suffix[:14]+"."+suffix[14:])
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
