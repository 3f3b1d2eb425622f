package lexicon

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// The grammar document is category -> value -> [phrases]. Map order in
// the document is significant (it becomes index order), so both codecs
// walk the document instead of decoding into Go maps.

// DecodeJSON parses a grammar document.
func DecodeJSON(data []byte) (Grammar, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	var g Grammar
	if err := expectDelim(dec, '{'); err != nil {
		return Grammar{}, err
	}
	for dec.More() {
		name, err := readKey(dec)
		if err != nil {
			return Grammar{}, err
		}
		cat := g.Ensure(name)
		if err := expectDelim(dec, '{'); err != nil {
			return Grammar{}, fmt.Errorf("%s: %w", name, err)
		}
		for dec.More() {
			value, err := readKey(dec)
			if err != nil {
				return Grammar{}, fmt.Errorf("%s: %w", name, err)
			}
			var phrases []string
			if err := dec.Decode(&phrases); err != nil {
				return Grammar{}, fmt.Errorf("%s.%s: %w", name, value, err)
			}
			cat.Add(value, phrases...)
		}
		if err := expectDelim(dec, '}'); err != nil {
			return Grammar{}, fmt.Errorf("%s: %w", name, err)
		}
	}
	if err := expectDelim(dec, '}'); err != nil {
		return Grammar{}, err
	}
	if err := normalizeBool(&g); err != nil {
		return Grammar{}, err
	}
	return g, nil
}

// EncodeJSON renders g as an indented document, keeping category and
// value order.
func EncodeJSON(g Grammar) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range g.Categories {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString("\n  ")
		if err := writeJSONValue(&buf, c.Name); err != nil {
			return nil, err
		}
		buf.WriteString(": {")
		for j, v := range c.Values {
			if j > 0 {
				buf.WriteByte(',')
			}
			buf.WriteString("\n    ")
			if err := writeJSONValue(&buf, v.Name); err != nil {
				return nil, err
			}
			buf.WriteString(": ")
			phrases := v.Phrases
			if phrases == nil {
				phrases = []string{}
			}
			if err := writeJSONValue(&buf, phrases); err != nil {
				return nil, err
			}
		}
		if len(c.Values) > 0 {
			buf.WriteString("\n  ")
		}
		buf.WriteByte('}')
	}
	if len(g.Categories) > 0 {
		buf.WriteByte('\n')
	}
	buf.WriteString("}\n")
	return buf.Bytes(), nil
}

// MarshalJSON implements json.Marshaler.
func (g Grammar) MarshalJSON() ([]byte, error) {
	b, err := EncodeJSON(g)
	if err != nil {
		return nil, err
	}
	return bytes.TrimSpace(b), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (g *Grammar) UnmarshalJSON(data []byte) error {
	decoded, err := DecodeJSON(data)
	if err != nil {
		return err
	}
	*g = decoded
	return nil
}

// DecodeYAML parses the same document shape written as YAML.
func DecodeYAML(data []byte) (Grammar, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Grammar{}, err
	}
	root := &doc
	if root.Kind == yaml.DocumentNode {
		if len(root.Content) == 0 {
			return Grammar{}, nil
		}
		root = root.Content[0]
	}
	if root.Kind == 0 {
		return Grammar{}, nil
	}
	if root.Kind != yaml.MappingNode {
		return Grammar{}, fmt.Errorf("line %d: grammar must be a mapping", root.Line)
	}
	var g Grammar
	for i := 0; i+1 < len(root.Content); i += 2 {
		name := root.Content[i].Value
		values := root.Content[i+1]
		if values.Kind != yaml.MappingNode {
			return Grammar{}, fmt.Errorf("%s (line %d): values must be a mapping", name, values.Line)
		}
		cat := g.Ensure(name)
		for j := 0; j+1 < len(values.Content); j += 2 {
			value := values.Content[j].Value
			var phrases []string
			if err := values.Content[j+1].Decode(&phrases); err != nil {
				return Grammar{}, fmt.Errorf("%s.%s: %w", name, value, err)
			}
			cat.Add(value, phrases...)
		}
	}
	if err := normalizeBool(&g); err != nil {
		return Grammar{}, err
	}
	return g, nil
}

// EncodeYAML renders g as YAML with flow-style phrase lists.
func EncodeYAML(g Grammar) ([]byte, error) {
	root := &yaml.Node{Kind: yaml.MappingNode}
	for _, c := range g.Categories {
		values := &yaml.Node{Kind: yaml.MappingNode}
		for _, v := range c.Values {
			seq := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
			for _, p := range v.Phrases {
				seq.Content = append(seq.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: p})
			}
			values.Content = append(values.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v.Name}, seq)
		}
		root.Content = append(root.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: c.Name}, values)
	}
	return yaml.Marshal(root)
}

// Decode picks the codec from the file extension of name.
func Decode(name string, data []byte) (Grammar, error) {
	if isYAML(name) {
		return DecodeYAML(data)
	}
	return DecodeJSON(data)
}

// Encode picks the codec from the file extension of name.
func Encode(name string, g Grammar) ([]byte, error) {
	if isYAML(name) {
		return EncodeYAML(g)
	}
	return EncodeJSON(g)
}

func isYAML(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return true
	default:
		return false
	}
}

// normalizeBool rewrites BOOL_RESPONSE keys to the canonical "true" and
// "false" spelling.
func normalizeBool(g *Grammar) error {
	c, ok := g.Category(CategoryBoolResponse)
	if !ok {
		return nil
	}
	norm := Category{Name: c.Name}
	for _, v := range c.Values {
		b, err := strconv.ParseBool(strings.TrimSpace(v.Name))
		if err != nil {
			return fmt.Errorf("%s: key %q is not a boolean", CategoryBoolResponse, v.Name)
		}
		norm.Add(strconv.FormatBool(b), v.Phrases...)
	}
	*c = norm
	return nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}

func readKey(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", err
	}
	key, ok := tok.(string)
	if !ok {
		return "", errors.New("expected object key")
	}
	return key, nil
}

func writeJSONValue(buf *bytes.Buffer, v any) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return err
	}
	buf.Write(bytes.TrimRight(tmp.Bytes(), "\n"))
	return nil
}
