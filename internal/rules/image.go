package rules

// Link is one storefront listing for a recognized product.
type Link struct {
	Status string `json:"status"`
	URL    string `json:"url"`
}

// ImageItem is the catalog view of one recognized product in an image.
type ImageItem struct {
	Product string `json:"product"`     // corrected model number
	Type    string `json:"producttype"` // vision class, English label
	Stock   string `json:"stock"`       // in-stock label or anything else
	Links   []Link `json:"links"`
}

// usableLink reports whether the item has at least one real URL.
func (e *Engine) usableLink(it ImageItem) bool {
	for _, l := range it.Links {
		if l.URL != "" && l.URL != e.t.NoLinkURL {
			return true
		}
	}
	return false
}

// ImageDecision evaluates recognized products in priority order:
//  1. any transfer-type item escalates immediately;
//  2. all nameplates never escalate;
//  3. all out of stock escalates;
//  4. none with a usable link escalates.
//
// An empty list is handled automatically.
func (e *Engine) ImageDecision(items []ImageItem) TransferDecision {
	if len(items) == 0 {
		return Handle()
	}
	for _, it := range items {
		if e.IsTransferType(it.Type) {
			return Escalate(ReasonTransferType, it.Type)
		}
	}

	allNameplate, allOut, allNoLink := true, true, true
	for _, it := range items {
		if it.Type != e.t.NameplateType {
			allNameplate = false
		}
		if it.Stock == e.t.InStockLabel {
			allOut = false
		}
		if e.usableLink(it) {
			allNoLink = false
		}
	}
	switch {
	case allNameplate:
		return Handle()
	case allOut:
		return Escalate(ReasonAllOutOfStock, "")
	case allNoLink:
		return Escalate(ReasonAllNoLink, "")
	}
	return Handle()
}

// NeedsTransferImage reports whether the recognized products require a human.
func (e *Engine) NeedsTransferImage(items []ImageItem) bool {
	return e.ImageDecision(items).Escalate
}

// IsTransferType reports whether typ always goes to a human agent.
func (e *Engine) IsTransferType(typ string) bool {
	_, ok := e.transferTypes[typ]
	return ok
}

// IsRecognitionError reports whether a recognizer returned one of its
// failure sentinels instead of a label.
func (e *Engine) IsRecognitionError(s string) bool {
	_, ok := e.recogErrors[s]
	return ok
}

// StockLabel maps a quantity to the in-stock or out-of-stock label.
func (e *Engine) StockLabel(qty int64) string {
	if qty > 0 {
		return e.t.InStockLabel
	}
	return e.t.OutOfStockLabel
}

// NoLinkURL is the placeholder URL for a listing that does not exist.
func (e *Engine) NoLinkURL() string { return e.t.NoLinkURL }
