package cart

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"math"
	"strconv"
	"strings"

	"github.com/herofit/storefront/internal/api"
)

// ErrUnrecognizedShape reports a cart payload whose items are neither an
// array nor a keyed object of item objects.
var ErrUnrecognizedShape = errors.New("unrecognized cart payload shape")

// Item is one normalized cart line.
type Item struct {
	Key       string
	ProductID string
	ID        string
	Slug      string
	Name      string
	Quantity  int
	UnitPrice float64
	Subtotal  float64
}

// State is a normalized cart. Count is always the sum of item quantities.
type State struct {
	ItemsByKey map[string]Item
	Items      []Item
	Total      float64
	Count      int
}

// Empty returns a cart with no items.
func Empty() State {
	return State{ItemsByKey: map[string]Item{}}
}

// Quantity returns the quantity held for key, 0 when absent.
func (s State) Quantity(key string) int {
	return s.ItemsByKey[key].Quantity
}

func (s State) clone() State {
	out := State{Total: s.Total, Count: s.Count, ItemsByKey: maps.Clone(s.ItemsByKey)}
	if out.ItemsByKey == nil {
		out.ItemsByKey = map[string]Item{}
	}
	if len(s.Items) > 0 {
		out.Items = make([]Item, len(s.Items))
		copy(out.Items, s.Items)
	}
	return out
}

type keyedObject struct {
	key string
	obj map[string]any
}

// Normalize converts a raw cart payload into a State. The payload may be an
// object with items under "items" or "carrito", a bare array of items, or an
// object that is itself the keyed item map (summary fields such as "total"
// beside the items are skipped). Items may be an array or an object keyed by
// an identifier; object key order is preserved. Each item is keyed by product id, then id, then slug, then
// name, then its object key.
func Normalize(raw json.RawMessage) (State, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return Empty(), nil
	}

	var entries []keyedObject
	var total float64
	var err error
	switch trimmed[0] {
	case '[':
		entries, err = decodeItems(trimmed)
	case '{':
		var top map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &top); err != nil {
			return Empty(), fmt.Errorf("decode cart: %w", err)
		}
		total = api.ParseNumber(top["total"])
		items, hasItems := top["items"]
		carrito, hasCarrito := top["carrito"]
		switch {
		case hasItems:
			entries, err = decodeItems(items)
		case hasCarrito:
			entries, err = decodeItems(carrito)
		default:
			// No wrapper key: the object itself is the keyed item map.
			entries, err = decodeOrderedObject(trimmed, isSummaryKey)
		}
	default:
		return Empty(), ErrUnrecognizedShape
	}
	if err != nil {
		return Empty(), err
	}

	state := Empty()
	state.Total = total
	for i, entry := range entries {
		item := itemFrom(entry.obj, entry.key, i)
		state.Items = append(state.Items, item)
		state.ItemsByKey[item.Key] = item
		state.Count += item.Quantity
	}
	return state, nil
}

func decodeItems(raw json.RawMessage) ([]keyedObject, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	switch trimmed[0] {
	case '[':
		var list []json.RawMessage
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, fmt.Errorf("decode cart items: %w", err)
		}
		out := make([]keyedObject, 0, len(list))
		for _, elem := range list {
			obj, err := decodeObject(elem)
			if err != nil {
				return nil, err
			}
			out = append(out, keyedObject{obj: obj})
		}
		return out, nil
	case '{':
		return decodeOrderedObject(trimmed, nil)
	default:
		return nil, ErrUnrecognizedShape
	}
}

// summaryKeys are cart-level fields that may sit beside the items of an
// unwrapped keyed map.
var summaryKeys = map[string]bool{
	"total": true, "count": true, "subtotal": true,
	"exito": true, "success": true, "mensaje": true, "message": true,
}

func isSummaryKey(key string) bool { return summaryKeys[key] }

// decodeOrderedObject walks a JSON object token by token so the items keep
// the order the server sent them in. Keys for which skip reports true are
// ignored.
func decodeOrderedObject(raw []byte, skip func(string) bool) ([]keyedObject, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("decode cart items: %w", err)
	}
	var out []keyedObject
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("decode cart items: %w", err)
		}
		key, _ := tok.(string)
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("decode cart item %q: %w", key, err)
		}
		if skip != nil && skip(key) {
			continue
		}
		obj, err := decodeObject(value)
		if err != nil {
			return nil, err
		}
		out = append(out, keyedObject{key: key, obj: obj})
	}
	return out, nil
}

func decodeObject(raw json.RawMessage) (map[string]any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, ErrUnrecognizedShape
	}
	var obj map[string]any
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return nil, fmt.Errorf("decode cart item: %w", err)
	}
	return obj, nil
}

func itemFrom(obj map[string]any, mapKey string, index int) Item {
	product, _ := obj["producto"].(map[string]any)
	if product == nil {
		product, _ = obj["product"].(map[string]any)
	}
	lookup := func(keys ...string) any {
		for _, k := range keys {
			if v, ok := obj[k]; ok && v != nil {
				return v
			}
		}
		for _, k := range keys {
			if v, ok := product[k]; ok && v != nil {
				return v
			}
		}
		return nil
	}

	item := Item{
		ProductID: refString(firstPresent(obj, "producto_id", "product_id", "productId")),
		ID:        refString(obj["id"]),
		Slug:      refString(lookup("slug")),
		Name:      refString(lookup("nombre", "name")),
		Quantity:  quantityFrom(lookup("cantidad", "quantity", "qty")),
		UnitPrice: api.NumberFrom(lookup("precio_unitario", "unit_price", "precio", "price")),
	}
	if item.ProductID == "" && product != nil {
		item.ProductID = refString(product["id"])
	}
	if v, ok := obj["subtotal"]; ok && v != nil {
		item.Subtotal = api.NumberFrom(v)
	} else {
		item.Subtotal = item.UnitPrice * float64(item.Quantity)
	}

	for _, candidate := range []string{item.ProductID, item.ID, item.Slug, item.Name, mapKey} {
		if candidate != "" {
			item.Key = candidate
			break
		}
	}
	if item.Key == "" {
		item.Key = "#" + strconv.Itoa(index)
	}
	return item
}

// quantityFrom floors a decoded quantity, clamping negatives to 0.
func quantityFrom(v any) int {
	q := math.Floor(api.NumberFrom(v))
	switch {
	case q <= 0:
		return 0
	case q > math.MaxInt32:
		return math.MaxInt32
	}
	return int(q)
}

func firstPresent(obj map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := obj[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func refString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	case bool, nil:
		return ""
	}
	return ""
}
