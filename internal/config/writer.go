package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/clawops/clawctl/internal/clawerr"
)

// SetUserModel rewrites the config file so the named user's agent.model
// is the given model. The edit is done on the YAML document tree so the
// rest of the file keeps its structure and comments.
func SetUserModel(path, username, model string) error {
	doc, err := loadDocument(path)
	if err != nil {
		return err
	}

	users := findMapValue(doc, "users")
	if users == nil || users.Kind != yaml.SequenceNode {
		return clawerr.NotFound("user %q in %s", username, path)
	}

	for _, userNode := range users.Content {
		nameNode := findMapValue(userNode, "name")
		if nameNode == nil || nameNode.Value != username {
			continue
		}
		agent := ensureMapValue(userNode, "agent")
		setMapScalar(agent, "model", model, "!!str")
		return writeDocument(path, doc)
	}
	return clawerr.NotFound("user %q in %s", username, path)
}

// SetWebPriceLimits rewrites the web.model_price_limits block. A zero
// value removes the corresponding cap.
func SetWebPriceLimits(path string, limits PriceLimits) error {
	doc, err := loadDocument(path)
	if err != nil {
		return err
	}

	web := ensureMapValue(doc, "web")
	pl := ensureMapValue(web, "model_price_limits")

	set := func(key string, v float64) {
		if v > 0 {
			setMapScalar(pl, key, fmt.Sprintf("%g", v), "!!float")
		} else {
			removeMapKey(pl, key)
		}
	}
	set("max_prompt_price_per_million", limits.MaxPromptPricePerMillion)
	set("max_completion_price_per_million", limits.MaxCompletionPricePerMillion)
	set("max_request_price", limits.MaxRequestPrice)

	if len(pl.Content) == 0 {
		removeMapKey(web, "model_price_limits")
	}
	if len(web.Content) == 0 {
		removeMapKey(doc, "web")
	}
	return writeDocument(path, doc)
}

// loadDocument parses the file and returns its root mapping node.
func loadDocument(path string) (*yaml.Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, clawerr.Config("config file not found: %s", path)
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, clawerr.Config("parsing %s: %v", path, err)
	}
	if len(root.Content) == 0 || root.Content[0].Kind != yaml.MappingNode {
		return nil, clawerr.Config("%s: document root is not a mapping", path)
	}
	return root.Content[0], nil
}

// writeDocument serializes the edited tree back to disk via a temp file
// and rename, so concurrent readers never see a partial write.
func writeDocument(path string, doc *yaml.Node) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}

// findMapValue returns the value node for key in a mapping node, or nil.
func findMapValue(mapping *yaml.Node, key string) *yaml.Node {
	if mapping == nil || mapping.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			return mapping.Content[i+1]
		}
	}
	return nil
}

// ensureMapValue returns the mapping value for key, creating an empty
// mapping entry when absent.
func ensureMapValue(mapping *yaml.Node, key string) *yaml.Node {
	if v := findMapValue(mapping, key); v != nil {
		return v
	}
	keyNode := &yaml.Node{Kind: yaml.ScalarNode, Value: key}
	valNode := &yaml.Node{Kind: yaml.MappingNode}
	mapping.Content = append(mapping.Content, keyNode, valNode)
	return valNode
}

// setMapScalar sets key to a scalar value in a mapping node.
func setMapScalar(mapping *yaml.Node, key, value, tag string) {
	if v := findMapValue(mapping, key); v != nil {
		v.Kind = yaml.ScalarNode
		v.Tag = tag
		v.Value = value
		v.Style = 0
		v.Content = nil
		return
	}
	mapping.Content = append(mapping.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
		&yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value},
	)
}

// removeMapKey drops key (and its value) from a mapping node.
func removeMapKey(mapping *yaml.Node, key string) {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			mapping.Content = append(mapping.Content[:i], mapping.Content[i+2:]...)
			return
		}
	}
}
