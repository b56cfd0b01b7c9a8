package guard

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Glossary maps lower-cased source strings to fixed translations. It is
// consulted only when the translator fails or its output is rejected as
// degenerate.
type Glossary map[string]string

// LoadGlossary reads a JSON object of source → translation pairs. An empty
// path yields an empty glossary.
func LoadGlossary(path string) (Glossary, error) {
	g := Glossary{}
	if path == "" {
		return g, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read glossary: %w", err)
	}
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse glossary %s: %w", path, err)
	}
	for k, v := range raw {
		g.Add(k, v)
	}
	return g, nil
}

// Add stores an entry under its lower-cased, trimmed key.
func (g Glossary) Add(src, dst string) {
	g[strings.ToLower(strings.TrimSpace(src))] = dst
}

// Lookup finds the entry for src, ignoring case.
func (g Glossary) Lookup(src string) (string, bool) {
	if g == nil {
		return "", false
	}
	v, ok := g[strings.ToLower(strings.TrimSpace(src))]
	return v, ok
}
