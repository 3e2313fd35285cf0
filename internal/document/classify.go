package document

import "strings"

const discardPrefix = "openchks"

// ClassifyName decides what can be known from the file name alone. It returns
// KindDiscard for open-check snapshots in any folder and KindManualOrder for
// every other file in a manual-order folder. Sales files need their root tag
// and yield KindUnrecognized here.
func ClassifyName(role Role, baseName string) Kind {
	if strings.HasPrefix(strings.ToLower(baseName), discardPrefix) {
		return KindDiscard
	}
	if role == RoleManualOrder {
		return KindManualOrder
	}
	return KindUnrecognized
}

// ClassifyRoot maps the local name of a document's root element.
func ClassifyRoot(rootTag string) Kind {
	switch Kind(rootTag) {
	case KindCheckFinalization, KindPrepOrder, KindPopupRequest, KindPrintRequest:
		return Kind(rootTag)
	default:
		return KindUnrecognized
	}
}

// InSalesScope reports whether a sales folder acts on the kind. Curbside
// requests belong to the HTTP ingress and are left alone by the watchers.
func InSalesScope(kind Kind) bool {
	return kind == KindCheckFinalization || kind == KindPrepOrder
}
