package orderconfig

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Quantities maps item id to quantity. It decodes every shape item maps have
// been stored in: bare numbers, numeric strings and {quantity, price} objects.
type Quantities map[string]int

func (q *Quantities) UnmarshalJSON(data []byte) error {
	items, err := DecodeBoxItems(data)
	if err != nil {
		// Malformed item maps are dropped, not fatal.
		*q = nil
		return nil
	}
	out := make(Quantities, len(items))
	for id, it := range items {
		out[id] = it.Quantity
	}
	*q = out
	return nil
}

// BoxItem is one decoded box item. Price is nil when the stored shape had none.
type BoxItem struct {
	Quantity int              `json:"quantity"`
	Price    *decimal.Decimal `json:"price,omitempty"`
}

// DecodeBoxItems is the single conversion from any stored item map to the
// canonical form. Accepted entry shapes:
//
//	{"itemId": 2}
//	{"itemId": "2"}
//	{"itemId": {"quantity": 2, "price": 3.5}}
func DecodeBoxItems(data []byte) (map[string]BoxItem, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode box items: %w", err)
	}
	out := make(map[string]BoxItem, len(raw))
	for id, v := range raw {
		it, ok := decodeItemEntry(v)
		if !ok {
			continue
		}
		out[id] = it
	}
	return out, nil
}

func decodeItemEntry(v json.RawMessage) (BoxItem, bool) {
	var n decimal.Decimal
	if err := json.Unmarshal(v, &n); err == nil {
		return BoxItem{Quantity: int(n.IntPart())}, true
	}
	var obj struct {
		Quantity *decimal.Decimal `json:"quantity"`
		Price    *decimal.Decimal `json:"price"`
	}
	if err := json.Unmarshal(v, &obj); err != nil || obj.Quantity == nil {
		return BoxItem{}, false
	}
	return BoxItem{Quantity: int(obj.Quantity.IntPart()), Price: obj.Price}, true
}

// EncodeBoxItems writes the canonical stored form: every entry is an object,
// with price present only when known.
func EncodeBoxItems(items Quantities, prices map[string]decimal.Decimal) ([]byte, error) {
	out := make(map[string]BoxItem, len(items))
	for id, qty := range items {
		it := BoxItem{Quantity: qty}
		if p, ok := prices[id]; ok {
			it.Price = &p
		}
		out[id] = it
	}
	return json.Marshal(out)
}

// SplitBoxItems separates decoded items into quantities and known prices.
func SplitBoxItems(items map[string]BoxItem) (Quantities, map[string]decimal.Decimal) {
	var qty Quantities
	var prices map[string]decimal.Decimal
	for id, it := range items {
		if qty == nil {
			qty = make(Quantities)
		}
		qty[id] = it.Quantity
		if it.Price != nil {
			if prices == nil {
				prices = make(map[string]decimal.Decimal)
			}
			prices[id] = *it.Price
		}
	}
	return qty, prices
}

// LegacyBoxOrder lifts the pre-boxOrders flat shape (boxTypeId, boxQuantity,
// items, itemPrices at the top level) into a single BoxOrder. ok is false
// when the document has no flat box data.
func LegacyBoxOrder(doc RawDocument) (BoxOrder, bool) {
	if doc.BoxTypeID == "" && len(doc.Items) == 0 {
		return BoxOrder{}, false
	}
	items, err := DecodeBoxItems(doc.Items)
	if err != nil {
		items = nil
	}
	qty, prices := SplitBoxItems(items)
	for id, p := range doc.ItemPrices {
		if prices == nil {
			prices = make(map[string]decimal.Decimal)
		}
		prices[id] = p
	}
	return BoxOrder{
		BoxTypeID:  doc.BoxTypeID,
		VendorID:   doc.VendorID,
		Quantity:   doc.BoxQuantity,
		Items:      qty,
		ItemPrices: prices,
	}, true
}
