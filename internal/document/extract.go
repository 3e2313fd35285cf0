package document

import (
	"encoding/json"
	"strings"
	"unicode/utf8"

	"github.com/beevik/etree"
)

// memoSources lists the element names that may carry a loyalty memo, highest
// priority first. LoyalityCustomer is spelled as the POS emits it.
var memoSources = []string{"Memo", "AdditionalMemo", "LoyalityCustomer"}

// LoyaltyMemo returns the loyalty code of a finalized check. For each source
// name in priority order only the first matching element is considered; the
// first of those whose value is exactly MemoLength characters wins.
func LoyaltyMemo(tree *etree.Document) (string, bool) {
	for _, name := range memoSources {
		value := Value(FirstElement(tree, name))
		if validMemo(value) {
			return value, true
		}
	}
	return "", false
}

func validMemo(value string) bool {
	return value != "" && utf8.RuneCountInString(value) == MemoLength
}

// PrepOrder is the prep-sales report payload. Absent store or check numbers
// serialize as JSON null.
type PrepOrder struct {
	StoreNumber *string `json:"StoreNumber"`
	CheckNumber *string `json:"CheckNumber"`
	LoyaltyMemo string  `json:"LoyaltyMemo"`
}

// Reportable reports whether the memo qualifies the order for reporting.
func (p PrepOrder) Reportable() bool {
	return validMemo(p.LoyaltyMemo)
}

// JSON renders the payload as the remote service expects it.
func (p PrepOrder) JSON() (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ExtractPrepOrder pulls the store number (a direct child of the root), the
// first CheckHeader/CheckNumber in document order, and the first non-blank
// Option/Memo in document order.
func ExtractPrepOrder(tree *etree.Document) PrepOrder {
	var out PrepOrder
	if tree == nil || tree.Root() == nil {
		return out
	}
	if store := tree.Root().SelectElement("StoreNumber"); store != nil {
		value := Value(store)
		out.StoreNumber = &value
	}
	if check := firstChildOf(tree, "CheckHeader", "CheckNumber", nil); check != nil {
		value := Value(check)
		out.CheckNumber = &value
	}
	nonBlank := func(el *etree.Element) bool { return strings.TrimSpace(Value(el)) != "" }
	if memo := firstChildOf(tree, "Option", "Memo", nonBlank); memo != nil {
		out.LoyaltyMemo = Value(memo)
	}
	return out
}

// firstChildOf returns the first child named childTag of any element named
// parentTag, scanning parents in document order. accept, when set, filters
// candidates.
func firstChildOf(tree *etree.Document, parentTag, childTag string, accept func(*etree.Element) bool) *etree.Element {
	for _, parent := range Descendants(tree, parentTag) {
		for _, child := range parent.SelectElements(childTag) {
			if accept == nil || accept(child) {
				return child
			}
		}
	}
	return nil
}
