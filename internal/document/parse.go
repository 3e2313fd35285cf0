package document

import (
	"fmt"
	"io"
	"strings"

	"github.com/beevik/etree"
	"golang.org/x/text/encoding/ianaindex"

	"restronaut/internal/services"
)

// Parse reads an XML document. Encoding declarations other than UTF-8 (for
// example windows-1252) are decoded before parsing.
func Parse(data []byte) (*etree.Document, error) {
	tree := etree.NewDocument()
	tree.ReadSettings.CharsetReader = charsetReader
	if err := tree.ReadFromBytes(data); err != nil {
		return nil, services.Wrap(services.ErrParse, "document", "parse", "malformed XML", err)
	}
	if tree.Root() == nil {
		return nil, services.Wrap(services.ErrParse, "document", "parse", "document has no root element", nil)
	}
	if err := checkTopLevel(tree); err != nil {
		return nil, err
	}
	return tree, nil
}

// checkTopLevel rejects what etree tolerates outside the root element: a
// second root or stray text.
func checkTopLevel(tree *etree.Document) error {
	roots := 0
	for _, token := range tree.Child {
		switch t := token.(type) {
		case *etree.Element:
			roots++
			if roots > 1 {
				return services.Wrap(services.ErrParse, "document", "parse", "multiple root elements", nil)
			}
		case *etree.CharData:
			if !t.IsWhitespace() {
				return services.Wrap(services.ErrParse, "document", "parse", "text outside the root element", nil)
			}
		}
	}
	return nil
}

func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	enc, err := ianaindex.IANA.Encoding(strings.TrimSpace(charset))
	if err != nil {
		return nil, fmt.Errorf("unsupported charset %q: %w", charset, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("unsupported charset %q", charset)
	}
	return enc.NewDecoder().Reader(input), nil
}

// Value returns the concatenated text of an element and all its descendants.
// Whitespace-only text nodes are ignored.
func Value(el *etree.Element) string {
	if el == nil {
		return ""
	}
	var b strings.Builder
	appendValue(&b, el)
	return b.String()
}

func appendValue(b *strings.Builder, el *etree.Element) {
	for _, token := range el.Child {
		switch t := token.(type) {
		case *etree.CharData:
			if !t.IsWhitespace() {
				b.WriteString(t.Data)
			}
		case *etree.Element:
			appendValue(b, t)
		}
	}
}

// FirstElement returns the first element named tag in document order, searching
// the root and all of its descendants.
func FirstElement(tree *etree.Document, tag string) *etree.Element {
	if tree == nil {
		return nil
	}
	var found *etree.Element
	walk(tree.Root(), func(el *etree.Element) bool {
		if el.Tag == tag {
			found = el
			return false
		}
		return true
	})
	return found
}

// Descendants returns every element named tag in document order.
func Descendants(tree *etree.Document, tag string) []*etree.Element {
	if tree == nil {
		return nil
	}
	var out []*etree.Element
	walk(tree.Root(), func(el *etree.Element) bool {
		if el.Tag == tag {
			out = append(out, el)
		}
		return true
	})
	return out
}

// walk visits el and its descendants depth-first in document order until
// visit returns false. It reports whether the walk ran to completion.
func walk(el *etree.Element, visit func(*etree.Element) bool) bool {
	if el == nil {
		return true
	}
	if !visit(el) {
		return false
	}
	for _, child := range el.ChildElements() {
		if !walk(child, visit) {
			return false
		}
	}
	return true
}
