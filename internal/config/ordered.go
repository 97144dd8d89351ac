package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// OrderedSecrets maps logical secret names to secret filenames, keeping
// the document order of the [users.secrets] block. Order matters: the
// required-secrets listing and its prompts follow first-seen order.
type OrderedSecrets struct {
	pairs []SecretPair
}

// SecretPair is one logical-name to filename declaration. The logical
// name becomes the env var name (uppercased) inside the container; the
// filename names the file under the user's secrets directory.
type SecretPair struct {
	LogicalName string
	Filename    string
}

// Pairs returns the declarations in document order.
func (o OrderedSecrets) Pairs() []SecretPair {
	return o.pairs
}

// Len returns the number of declarations.
func (o OrderedSecrets) Len() int { return len(o.pairs) }

// FromPairs builds an OrderedSecrets from explicit pairs, for tests and
// programmatic construction.
func FromPairs(pairs ...SecretPair) OrderedSecrets {
	return OrderedSecrets{pairs: pairs}
}

// UnmarshalYAML decodes a YAML mapping while preserving key order.
func (o *OrderedSecrets) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("secrets must be a mapping of logical name to secret filename")
	}
	o.pairs = o.pairs[:0]
	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode, valNode := node.Content[i], node.Content[i+1]
		var key, val string
		if err := keyNode.Decode(&key); err != nil {
			return fmt.Errorf("secrets key at line %d: %w", keyNode.Line, err)
		}
		if err := valNode.Decode(&val); err != nil {
			return fmt.Errorf("secrets.%s: %w", key, err)
		}
		o.pairs = append(o.pairs, SecretPair{LogicalName: key, Filename: val})
	}
	return nil
}

// MarshalYAML re-emits the mapping in document order.
func (o OrderedSecrets) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, p := range o.pairs {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: p.LogicalName},
			&yaml.Node{Kind: yaml.ScalarNode, Value: p.Filename},
		)
	}
	return node, nil
}
