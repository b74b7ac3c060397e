package store

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"sync/atomic"
)

// Ext is the artifact file extension. The store only lists and validates
// files carrying it.
const Ext = ".png"

// pngMagic is the fixed 8-byte PNG signature checked by Validate.
var pngMagic = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// nameRe is the filename grammar: the fixed allowed character set plus the
// required extension. It admits both generated names and caller-chosen ones.
var nameRe = regexp.MustCompile(`^[a-zA-Z0-9._-]+\.png$`)

// seq disambiguates GenerateName calls that land on the same nanosecond.
var seq atomic.Uint64

// ValidName reports whether name matches the filename grammar.
func ValidName(name string) bool {
	return nameRe.MatchString(name)
}

// GenerateName derives a unique artifact name from the capture context:
// screenshot-<hash>-<unixMillis>.png, where hash covers (url, selector,
// timestamp). The hash also mixes in a process-local sequence so two calls
// on the same clock reading still diverge.
func (m *Manager) GenerateName(url, selector string) string {
	now := m.now()
	h := sha256.Sum256(fmt.Appendf(nil, "%s|%s|%d|%d", url, selector, now.UnixNano(), seq.Add(1)))
	return fmt.Sprintf("screenshot-%s-%d%s", hex.EncodeToString(h[:8]), now.UnixMilli(), Ext)
}
