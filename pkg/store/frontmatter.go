package store

import (
	"fmt"
	"strings"
	"time"

	"github.com/stefanpenner/goalgraph/pkg/graph"
	"gopkg.in/yaml.v3"
)

const frontmatterDelimiter = "---"

// GoalFile is the on-disk form of one goal: YAML frontmatter followed by the
// description as markdown. Children is the only place edges are recorded.
type GoalFile struct {
	Deadline *time.Time     `yaml:"deadline,omitempty"`
	Achieved bool           `yaml:"achieved"`
	Color    string         `yaml:"color,omitempty"`
	Children []graph.GoalID `yaml:"children,omitempty"`
	Created  time.Time      `yaml:"created"`
	Updated  time.Time      `yaml:"updated"`

	Body string `yaml:"-"`
}

func (f *GoalFile) goal(id graph.GoalID) *graph.Goal {
	g := &graph.Goal{
		ID:          id,
		Description: f.Body,
		Achieved:    f.Achieved,
		Color:       f.Color,
		Created:     f.Created,
		Updated:     f.Updated,
	}
	if f.Deadline != nil {
		d := f.Deadline.UTC()
		g.Deadline = &d
	}
	return g
}

func fileFor(g *graph.Goal, children []graph.GoalID) *GoalFile {
	f := &GoalFile{
		Achieved: g.Achieved,
		Color:    g.Color,
		Children: children,
		Created:  g.Created.UTC(),
		Updated:  g.Updated.UTC(),
		Body:     g.Description,
	}
	if g.Deadline != nil {
		d := g.Deadline.UTC()
		f.Deadline = &d
	}
	return f
}

// ParseFrontmatter splits a goal file into YAML frontmatter and body. The
// body is kept verbatim apart from the one blank line SerializeFrontmatter
// puts after the closing delimiter.
func ParseFrontmatter(content string) (*GoalFile, error) {
	trimmed := strings.TrimLeft(content, " \t\r\n")
	if !strings.HasPrefix(trimmed, frontmatterDelimiter) {
		// No frontmatter: the whole file is the description
		return &GoalFile{Body: content}, nil
	}

	rest := trimmed[len(frontmatterDelimiter):]
	idx := strings.Index(rest, "\n"+frontmatterDelimiter)
	if idx == -1 {
		return nil, fmt.Errorf("unclosed frontmatter delimiter")
	}

	yamlContent := rest[:idx]
	body := rest[idx+len("\n"+frontmatterDelimiter):]
	body = strings.TrimPrefix(body, "\n") // end of the delimiter line
	body = strings.TrimPrefix(body, "\n") // separator

	var f GoalFile
	if err := yaml.Unmarshal([]byte(yamlContent), &f); err != nil {
		return nil, fmt.Errorf("parsing frontmatter YAML: %w", err)
	}

	f.Body = body
	return &f, nil
}

// SerializeFrontmatter renders a goal file back to markdown with frontmatter.
// A non-empty body follows one blank line and is written as is.
func SerializeFrontmatter(f *GoalFile) (string, error) {
	yamlBytes, err := yaml.Marshal(f)
	if err != nil {
		return "", fmt.Errorf("serializing frontmatter YAML: %w", err)
	}

	var b strings.Builder
	b.WriteString(frontmatterDelimiter)
	b.WriteString("\n")
	b.WriteString(strings.TrimRight(string(yamlBytes), "\n"))
	b.WriteString("\n")
	b.WriteString(frontmatterDelimiter)
	b.WriteString("\n")
	if f.Body != "" {
		b.WriteString("\n")
		b.WriteString(f.Body)
	}

	return b.String(), nil
}

// meta holds store-wide state kept next to the goal files.
type meta struct {
	NextID graph.GoalID `yaml:"next_id"`
}

func parseMeta(data []byte) (*meta, error) {
	var m meta
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing meta.yaml: %w", err)
	}
	return &m, nil
}

func serializeMeta(m *meta) ([]byte, error) {
	return yaml.Marshal(m)
}
