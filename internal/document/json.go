package document

import (
	"bytes"
	"encoding/json"

	"github.com/beevik/etree"
)

// ToJSON converts a parsed document into the JSON layout the in-store sales
// report carries:
//
//   - the root element becomes the single top-level property
//   - an element holding only text becomes a string, an empty one null
//   - attributes become "@name" properties and mixed text "#text"
//   - repeated sibling names collapse into an array at the first occurrence
//
// Whitespace-only text and comments are dropped.
func ToJSON(tree *etree.Document) (string, error) {
	var buf bytes.Buffer
	if tree == nil || tree.Root() == nil {
		buf.WriteString("null")
		return buf.String(), nil
	}
	root := tree.Root()
	buf.WriteByte('{')
	if err := writeJSONString(&buf, root.FullTag()); err != nil {
		return "", err
	}
	buf.WriteByte(':')
	if err := writeElement(&buf, root); err != nil {
		return "", err
	}
	buf.WriteByte('}')
	return buf.String(), nil
}

type jsonGroup struct {
	name   string
	tokens []etree.Token
}

func writeElement(buf *bytes.Buffer, el *etree.Element) error {
	groups := groupChildren(el)
	if len(el.Attr) == 0 {
		switch {
		case len(groups) == 0:
			buf.WriteString("null")
			return nil
		case len(groups) == 1 && len(groups[0].tokens) == 1:
			if text, ok := groups[0].tokens[0].(*etree.CharData); ok {
				return writeJSONString(buf, text.Data)
			}
		}
	}

	buf.WriteByte('{')
	first := true
	comma := func() {
		if !first {
			buf.WriteByte(',')
		}
		first = false
	}
	for _, attr := range el.Attr {
		comma()
		if err := writeJSONString(buf, "@"+attr.FullKey()); err != nil {
			return err
		}
		buf.WriteByte(':')
		if err := writeJSONString(buf, attr.Value); err != nil {
			return err
		}
	}
	for _, group := range groups {
		comma()
		if err := writeJSONString(buf, group.name); err != nil {
			return err
		}
		buf.WriteByte(':')
		if len(group.tokens) == 1 {
			if err := writeToken(buf, group.tokens[0]); err != nil {
				return err
			}
			continue
		}
		buf.WriteByte('[')
		for i, token := range group.tokens {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeToken(buf, token); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	}
	buf.WriteByte('}')
	return nil
}

func writeToken(buf *bytes.Buffer, token etree.Token) error {
	switch t := token.(type) {
	case *etree.Element:
		return writeElement(buf, t)
	case *etree.CharData:
		return writeJSONString(buf, t.Data)
	default:
		buf.WriteString("null")
		return nil
	}
}

// groupChildren buckets significant children by property name, keeping the
// order in which each name first appears.
func groupChildren(el *etree.Element) []*jsonGroup {
	var groups []*jsonGroup
	index := map[string]*jsonGroup{}
	add := func(name string, token etree.Token) {
		group, ok := index[name]
		if !ok {
			group = &jsonGroup{name: name}
			index[name] = group
			groups = append(groups, group)
		}
		group.tokens = append(group.tokens, token)
	}
	for _, token := range el.Child {
		switch t := token.(type) {
		case *etree.Element:
			add(t.FullTag(), t)
		case *etree.CharData:
			if t.IsWhitespace() {
				continue
			}
			if t.IsCData() {
				add("#cdata-section", t)
			} else {
				add("#text", t)
			}
		}
	}
	return groups
}

func writeJSONString(buf *bytes.Buffer, value string) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(value); err != nil {
		return err
	}
	// Encode appends a newline.
	buf.Truncate(buf.Len() - 1)
	return nil
}
