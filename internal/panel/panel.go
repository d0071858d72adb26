// Package panel builds the embeds the bot posts. A Panel is platform neutral; the
// chat adapter converts it to the platform's embed type.
package panel

import (
	"fmt"
	"strings"
)

// Blurple is the default panel colour.
const Blurple = 0x7289DA

type Field struct {
	Name   string
	Value  string
	Inline bool
}

// Meta is one "key: value" footer line.
type Meta struct {
	Key   string
	Value string
}

type Panel struct {
	Type        string
	TypeIconURL string
	Title       string
	Description string
	Color       int
	Fields      []Field
	Meta        []Meta
}

func New(typ, title, description string) Panel {
	return Panel{Type: typ, Title: title, Description: description, Color: Blurple}
}

func (p *Panel) AddField(name, value string, inline bool) {
	p.Fields = append(p.Fields, Field{Name: name, Value: value, Inline: inline})
}

func (p *Panel) SetMeta(key string, values ...string) {
	line := Meta{Key: key, Value: strings.Join(values, ", ")}
	for i, m := range p.Meta {
		if m.Key == key {
			p.Meta[i] = line
			return
		}
	}
	p.Meta = append(p.Meta, line)
}

// Footer renders the meta lines.
func (p Panel) Footer() string {
	lines := make([]string, 0, len(p.Meta))
	for _, m := range p.Meta {
		lines = append(lines, fmt.Sprintf("%s: %s", m.Key, m.Value))
	}
	return strings.Join(lines, "\n")
}

func (p Panel) Field(name string) (Field, bool) {
	for _, f := range p.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}
