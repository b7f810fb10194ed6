package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// Key derives a deterministic cache key from an operation name and its
// positional arguments. Argument order matters: Key("f", "x", "y") and
// Key("f", "y", "x") are different keys. The digest is stable across
// process restarts, so persistent-tier entries survive.
func Key(op string, args ...any) string {
	var b strings.Builder
	b.WriteString(op)
	for _, arg := range args {
		b.WriteByte('|')
		fmt.Fprintf(&b, "%v", arg)
	}
	return digest(b.String())
}

// KeyNamed derives a key from positional arguments followed by named
// arguments. Named arguments are sorted by name before hashing, so the
// order they are supplied in never changes the key.
func KeyNamed(op string, args []any, named map[string]any) string {
	var b strings.Builder
	b.WriteString(op)
	for _, arg := range args {
		b.WriteByte('|')
		fmt.Fprintf(&b, "%v", arg)
	}
	names := make([]string, 0, len(named))
	for name := range named {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		b.WriteByte('|')
		fmt.Fprintf(&b, "%s=%v", name, named[name])
	}
	return digest(b.String())
}

func digest(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
