package document

import (
	"strings"

	"github.com/beevik/etree"
)

// Root tags accepted by the curbside ingress.
const (
	RootPopupRequest = "PopupRequest"
	RootPrintRequest = "PrintRequest"
)

// ReferenceNumber returns the value of the first ReferenceNumber element
// anywhere in the document, or "" when it is missing or blank.
func ReferenceNumber(tree *etree.Document) string {
	value := Value(FirstElement(tree, "ReferenceNumber"))
	if strings.TrimSpace(value) == "" {
		return ""
	}
	return value
}

// PopupRequestXML renders a normalized popup request holding only the
// terminal and line.
func PopupRequestXML(terminal, line string) (string, error) {
	tree := etree.NewDocument()
	root := tree.CreateElement(RootPopupRequest)
	root.CreateElement("Terminal").SetText(terminal)
	root.CreateElement("Line").SetText(line)
	tree.Indent(2)
	return tree.WriteToString()
}
