// Package document reads and edits the YAML front matter of markdown files.
package document

import (
	"bytes"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const frontmatterDelimiter = "---"

// DateKey is the front matter field holding a document's creation time.
const DateKey = "date"

// FrontMatter is a parsed markdown document: its metadata mapping and the
// untouched body that follows it.
type FrontMatter struct {
	mapping *yaml.Node
	body    []byte
}

// Parse splits content into front matter and body. Content without a
// leading delimiter has an empty front matter and is all body.
func Parse(content []byte) (*FrontMatter, error) {
	lines := bytes.SplitAfter(content, []byte("\n"))
	if len(lines) == 0 || strings.TrimSpace(string(lines[0])) != frontmatterDelimiter {
		return &FrontMatter{mapping: newMapping(), body: content}, nil
	}

	// Find closing delimiter
	end := 0
	offset := len(lines[0])
	var yamlContent bytes.Buffer
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(string(lines[i])) == frontmatterDelimiter {
			end = i
			offset += len(lines[i])
			break
		}
		yamlContent.Write(lines[i])
		offset += len(lines[i])
	}
	if end == 0 {
		return nil, &parseError{"unclosed YAML front matter"}
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(yamlContent.Bytes(), &doc); err != nil {
		return nil, &parseError{"invalid YAML: " + err.Error()}
	}

	mapping := newMapping()
	if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		mapping = doc.Content[0]
		if mapping.Kind != yaml.MappingNode {
			return nil, &parseError{"front matter is not a mapping"}
		}
	}

	return &FrontMatter{mapping: mapping, body: content[offset:]}, nil
}

func newMapping() *yaml.Node {
	return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
}

// Get returns the raw scalar text of key.
func (f *FrontMatter) Get(key string) (string, bool) {
	for i := 0; i+1 < len(f.mapping.Content); i += 2 {
		if f.mapping.Content[i].Value == key {
			v := f.mapping.Content[i+1]
			if v.Kind != yaml.ScalarNode {
				return "", false
			}
			return v.Value, true
		}
	}
	return "", false
}

// Set assigns key a bare scalar value, appending the key if missing.
// Every other key keeps its position and value.
func (f *FrontMatter) Set(key, value string) {
	// An empty tag emits the value unquoted.
	scalar := &yaml.Node{Kind: yaml.ScalarNode, Value: value}
	for i := 0; i+1 < len(f.mapping.Content); i += 2 {
		if f.mapping.Content[i].Value == key {
			scalar.HeadComment = f.mapping.Content[i+1].HeadComment
			scalar.LineComment = f.mapping.Content[i+1].LineComment
			f.mapping.Content[i+1] = scalar
			return
		}
	}
	f.mapping.Content = append(f.mapping.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
		scalar,
	)
}

// CreatedAt parses the date field.
func (f *FrontMatter) CreatedAt() (time.Time, bool) {
	raw, ok := f.Get(DateKey)
	if !ok {
		return time.Time{}, false
	}
	t, err := parseTime(raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Body returns the content after the front matter.
func (f *FrontMatter) Body() []byte {
	return f.body
}

// Bytes renders the document with its front matter block.
func (f *FrontMatter) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(frontmatterDelimiter + "\n")

	if len(f.mapping.Content) > 0 {
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(f.mapping); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
	}

	buf.WriteString(frontmatterDelimiter + "\n")
	buf.Write(f.body)
	return buf.Bytes(), nil
}

// SetField is a convenience for Parse, Set and Bytes.
func SetField(content []byte, key, value string) ([]byte, error) {
	fm, err := Parse(content)
	if err != nil {
		return nil, err
	}
	fm.Set(key, value)
	return fm.Bytes()
}

// parseError represents a parsing error.
type parseError struct {
	msg string
}

func (e *parseError) Error() string {
	return e.msg
}

// parseTime tries to parse a time string in common formats.
func parseTime(s string) (time.Time, error) {
	formats := []string{
		time.RFC3339,
		time.RFC3339Nano,
		time.DateTime,
		"2006-01-02T15:04:05Z",
		"2006-01-02T15:04:05",
		time.DateOnly,
	}
	for _, f := range formats {
		if t, err := time.Parse(f, strings.TrimSpace(s)); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &parseError{"unrecognized time format"}
}
