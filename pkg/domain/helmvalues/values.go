package helmvalues

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

// findChild returns the value node for key in a mapping node.
func findChild(mapping *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			return mapping.Content[i+1]
		}
	}
	return nil
}

// ensureChild returns the value node for key, appending the pair when absent.
func ensureChild(mapping *yaml.Node, key string) *yaml.Node {
	if found := findChild(mapping, key); found != nil {
		return found
	}
	mapping.Content = append(
		mapping.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
		&yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"},
	)
	return mapping.Content[len(mapping.Content)-1]
}

func setScalar(mapping *yaml.Node, key string, value string) {
	node := ensureChild(mapping, key)
	node.Kind = yaml.ScalarNode
	node.Tag = "!!str"
	node.Value = value
	node.Content = nil
}

func setStringSequence(mapping *yaml.Node, key string, values []string) {
	node := ensureChild(mapping, key)
	node.Kind = yaml.SequenceNode
	node.Tag = "!!seq"
	node.Value = ""
	node.Content = nil
	for _, v := range values {
		node.Content = append(node.Content, &yaml.Node{
			Kind: yaml.ScalarNode, Tag: "!!str", Value: v,
		})
	}
}

// RewriteImage updates image.repository and image.tag in a Helm values
// document, and image.pullSecrets when pullSecrets is not empty.
//
// Editing happens on the yaml node tree, so comments and the order of
// unrelated keys survive the round trip.
func RewriteImage(doc []byte, repository string, tag string, pullSecrets []string) ([]byte, error) {
	root := &yaml.Node{}
	if err := yaml.Unmarshal(doc, root); err != nil {
		return nil, fmt.Errorf("values file is not yaml: %w", err)
	}

	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		// empty file: start a fresh document.
		root = &yaml.Node{
			Kind: yaml.DocumentNode,
			Content: []*yaml.Node{
				{Kind: yaml.MappingNode, Tag: "!!map"},
			},
		}
	}
	top := root.Content[0]
	if top.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("values file: top level is not a mapping")
	}

	image := ensureChild(top, "image")
	if image.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("values file: image is not a mapping")
	}
	setScalar(image, "repository", repository)
	setScalar(image, "tag", tag)
	if len(pullSecrets) != 0 {
		setStringSequence(image, "pullSecrets", pullSecrets)
	}

	buf := &bytes.Buffer{}
	enc := yaml.NewEncoder(buf)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
