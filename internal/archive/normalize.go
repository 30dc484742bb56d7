package archive

import (
	"fmt"
	"path"
	"strings"
)

// placeholderName substitutes a member whose name sanitizes to nothing.
const placeholderName = "unnamed"

// Normalizer produces unique, storage-safe basenames for the members of
// one archive run. Not safe for concurrent use; callers normalize from
// a single goroutine in stable member order so that keys are
// reproducible across runs.
type Normalizer struct {
	used map[string]struct{}
}

// NewNormalizer creates a Normalizer scoped to one archive run.
func NewNormalizer() *Normalizer {
	return &Normalizer{used: make(map[string]struct{})}
}

// Normalize strips directories from memberPath, replaces every character
// outside [A-Za-z0-9._-] with '_', and deduplicates collisions with a
// -1, -2, ... suffix before the extension.
func (n *Normalizer) Normalize(memberPath string) string {
	base := path.Base(strings.ReplaceAll(memberPath, "\\", "/"))
	name := sanitize(base)
	if name == "" || name == "." || name == ".." {
		name = placeholderName
	}

	if _, taken := n.used[name]; taken {
		ext := path.Ext(name)
		stem := strings.TrimSuffix(name, ext)
		for i := 1; ; i++ {
			candidate := fmt.Sprintf("%s-%d%s", stem, i, ext)
			if _, taken := n.used[candidate]; !taken {
				name = candidate
				break
			}
		}
	}

	n.used[name] = struct{}{}
	return name
}

func sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '_' || r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
