package builder

import (
	"bytes"
	"fmt"

	"github.com/vk/playbookgen/internal/value"
	"gopkg.in/yaml.v3"
)

// Document is a materialized playbook holding one play. A Document returned
// by Build must not be modified.
type Document struct {
	Name        string
	Hosts       string
	GatherFacts bool
	Vars        *value.Map
	Tasks       []*value.Map
	Handlers    []*value.Map
}

// Play returns the play mapping in serialization order. Empty vars and
// handlers are left out.
func (d *Document) Play() *value.Map {
	play := value.NewMap()
	play.Set("name", value.String(d.Name))
	play.Set("hosts", value.String(d.Hosts))
	play.Set("gather_facts", value.Bool(d.GatherFacts))
	if d.Vars.Len() > 0 {
		play.Set("vars", value.FromMap(d.Vars))
	}
	play.Set("tasks", mapsToList(d.Tasks))
	if len(d.Handlers) > 0 {
		play.Set("handlers", mapsToList(d.Handlers))
	}
	return play
}

// YAML serializes the document as a document-start marker followed by a
// list holding the play.
func (d *Document) YAML() ([]byte, error) {
	root := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq", Content: []*yaml.Node{d.Play().Node()}}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return nil, fmt.Errorf("encoding playbook: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encoding playbook: %w", err)
	}
	return buf.Bytes(), nil
}

// ParseDocument reads a playbook produced by YAML.
func ParseDocument(data []byte) (*Document, error) {
	v, err := value.ParseYAML(data)
	if err != nil {
		return nil, fmt.Errorf("parsing playbook: %w", err)
	}
	if v.Kind() != value.KindList || v.Len() != 1 || v.Items()[0].Kind() != value.KindMap {
		return nil, fmt.Errorf("parsing playbook: expected a list holding one play, got %s", v.Describe())
	}
	play := v.Items()[0].Map()

	d := &Document{Vars: value.NewMap()}
	if name, ok := play.Get("name"); ok {
		d.Name = name.String()
	}
	if hosts, ok := play.Get("hosts"); ok {
		d.Hosts = hosts.String()
	}
	if gf, ok := play.Get("gather_facts"); ok {
		d.GatherFacts = gf.Truthy()
	}
	if vars, ok := play.Get("vars"); ok && vars.Kind() == value.KindMap {
		d.Vars = vars.Map().Clone()
	}
	if d.Tasks, err = listOfMaps(play, "tasks"); err != nil {
		return nil, err
	}
	if d.Handlers, err = listOfMaps(play, "handlers"); err != nil {
		return nil, err
	}
	return d, nil
}

// Equal reports whether both documents hold the same play. Mapping key
// order is not compared.
func (d *Document) Equal(o *Document) bool {
	return d.Play().Equal(o.Play())
}

func mapsToList(maps []*value.Map) value.Value {
	items := make([]value.Value, len(maps))
	for i, m := range maps {
		items[i] = value.FromMap(m)
	}
	return value.ListOf(items...)
}

func listOfMaps(play *value.Map, key string) ([]*value.Map, error) {
	v, ok := play.Get(key)
	if !ok || v.IsNull() {
		return nil, nil
	}
	if v.Kind() != value.KindList {
		return nil, fmt.Errorf("parsing playbook: %s must be a list, got %s", key, v.Kind())
	}
	out := make([]*value.Map, 0, v.Len())
	for i, item := range v.Items() {
		if item.Kind() != value.KindMap {
			return nil, fmt.Errorf("parsing playbook: %s[%d] must be a mapping, got %s", key, i, item.Kind())
		}
		out = append(out, item.Map())
	}
	return out, nil
}
