package document

// Kind identifies the business meaning of a dropped artifact.
type Kind string

const (
	// KindUnrecognized is the zero value: the artifact could not be mapped.
	KindUnrecognized Kind = ""
	// KindDiscard marks open-check snapshots that are deleted unread.
	KindDiscard           Kind = "Discard"
	KindCheckFinalization Kind = "CheckFinalization"
	KindPrepOrder         Kind = "PrepOrder"
	KindPopupRequest      Kind = "PopupRequest"
	KindPrintRequest      Kind = "PrintRequest"
	KindManualOrder       Kind = "ManualOrder"
)

// String returns the kind name, or "Unrecognized" for the zero value.
func (k Kind) String() string {
	if k == KindUnrecognized {
		return "Unrecognized"
	}
	return string(k)
}

// Recognized reports whether the kind maps to a known artifact.
func (k Kind) Recognized() bool {
	return k != KindUnrecognized
}

// ParseKind maps a configured kind name onto a Kind.
func ParseKind(value string) (Kind, bool) {
	switch Kind(value) {
	case KindCheckFinalization, KindPrepOrder, KindPopupRequest, KindPrintRequest, KindManualOrder, KindDiscard:
		return Kind(value), true
	default:
		return KindUnrecognized, false
	}
}

// Role describes what a watched folder receives.
type Role string

const (
	RoleSales       Role = "sales"
	RoleManualOrder Role = "manual_order"
)

// Field names used in Document.Fields.
const (
	FieldLoyaltyMemo = "LoyaltyMemo"
	FieldStoreNumber = "StoreNumber"
	FieldCheckNumber = "CheckNumber"
)

// MemoLength is the exact character count of a reportable loyalty memo.
const MemoLength = 6
