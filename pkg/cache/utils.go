package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// GenerateKey joins a prefix and parts with ':'.
func GenerateKey(prefix string, parts ...interface{}) string {
	var b strings.Builder
	b.WriteString(prefix)
	for _, p := range parts {
		fmt.Fprintf(&b, ":%v", p)
	}
	return b.String()
}

// HashValue returns a hex sha256 of v's JSON encoding. Struct fields encode
// in declaration order and map keys sorted, so equal requests hash equally.
func HashValue(v interface{}) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

var globEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

// BuildPattern creates a glob matching every key under prefix. Glob
// metacharacters inside prefix match literally, for both path.Match and
// Redis SCAN MATCH.
func BuildPattern(prefix string) string {
	return globEscaper.Replace(prefix) + "*"
}
