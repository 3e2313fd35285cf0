package document

import (
	"github.com/beevik/etree"

	"restronaut/internal/services"
)

// Document is a classified artifact with its extracted fields.
type Document struct {
	Kind   Kind
	Name   string
	Root   string
	Fields map[string]string
	Raw    []byte
	// Tree is set for parsed sales documents only.
	Tree *etree.Document
	// Prep is set for KindPrepOrder.
	Prep *PrepOrder
}

// Field returns an extracted field value.
func (d *Document) Field(name string) (string, bool) {
	if d == nil || d.Fields == nil {
		return "", false
	}
	value, ok := d.Fields[name]
	return value, ok
}

// LoyaltyMemo returns the reportable memo, if the document carries one.
func (d *Document) LoyaltyMemo() (string, bool) {
	memo, ok := d.Field(FieldLoyaltyMemo)
	if !ok || !validMemo(memo) {
		return "", false
	}
	return memo, true
}

// Load classifies and extracts a dropped file. Discard and manual-order files
// are never parsed; sales files are parsed and mapped by root tag. A parse
// failure is returned as a services.ErrParse error.
func Load(role Role, baseName string, data []byte) (*Document, error) {
	doc := &Document{Name: baseName, Fields: map[string]string{}}
	doc.Kind = ClassifyName(role, baseName)
	switch doc.Kind {
	case KindDiscard:
		return doc, nil
	case KindManualOrder:
		doc.Raw = data
		return doc, nil
	}

	if role != RoleSales {
		return nil, services.Wrap(services.ErrConfiguration, "document", "load", "unknown folder role "+string(role), nil)
	}

	tree, err := Parse(data)
	if err != nil {
		return nil, err
	}
	doc.Raw = data
	doc.Tree = tree
	doc.Root = tree.Root().Tag
	doc.Kind = ClassifyRoot(doc.Root)

	switch doc.Kind {
	case KindCheckFinalization:
		if memo, ok := LoyaltyMemo(tree); ok {
			doc.Fields[FieldLoyaltyMemo] = memo
		}
	case KindPrepOrder:
		prep := ExtractPrepOrder(tree)
		doc.Prep = &prep
		if prep.StoreNumber != nil {
			doc.Fields[FieldStoreNumber] = *prep.StoreNumber
		}
		if prep.CheckNumber != nil {
			doc.Fields[FieldCheckNumber] = *prep.CheckNumber
		}
		if prep.LoyaltyMemo != "" {
			doc.Fields[FieldLoyaltyMemo] = prep.LoyaltyMemo
		}
	}
	return doc, nil
}
