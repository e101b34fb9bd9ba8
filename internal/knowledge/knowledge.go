// Package knowledge loads the MITRE ATT&CK technique corpus used as the
// retrieval knowledge base.
package knowledge

import (
	"encoding/json"
	"fmt"
	"os"
)

// stixObject is the subset of a STIX 2.x object we read. Bundles carry many
// object types; only attack-pattern entries become documents.
type stixObject struct {
	Type        string `json:"type"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type stixBundle struct {
	Objects []stixObject `json:"objects"`
}

// LoadAttackDocs reads a MITRE ATT&CK STIX bundle (enterprise-attack.json)
// and returns one "Name: Description" document per attack-pattern object,
// in bundle order.
func LoadAttackDocs(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("knowledge: read bundle: %w", err)
	}

	var bundle stixBundle
	if err := json.Unmarshal(data, &bundle); err != nil {
		return nil, fmt.Errorf("knowledge: parse bundle: %w", err)
	}

	var docs []string
	for _, obj := range bundle.Objects {
		if obj.Type != "attack-pattern" {
			continue
		}
		docs = append(docs, fmt.Sprintf("%s: %s", obj.Name, obj.Description))
	}
	return docs, nil
}
