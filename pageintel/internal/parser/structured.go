package parser

import (
	"encoding/json"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/1genadam/tileshop-rag-sub001/pagefetch"
	"github.com/1genadam/tileshop-rag-sub001/pageintel/internal/record"
	"github.com/1genadam/tileshop-rag-sub001/sectiontext"
)

// structuredPass extracts observations from embedded structured product
// data: ld+json Product nodes first, then OpenGraph/product meta tags.
// priceSlot names the canonical field a displayed price maps to.
func structuredPass(b *pagefetch.Bundle, priceSlot string) []record.Observation {
	var obs []record.Observation
	for _, name := range b.Names() {
		s, ok := b.Get(name)
		if !ok {
			continue
		}
		doc, err := sectiontext.Parse(s.HTML)
		if err != nil {
			continue
		}
		for _, raw := range sectiontext.Scripts(doc, "application/ld+json") {
			obs = append(obs, fromJSONLD(raw, priceSlot)...)
		}
		obs = append(obs, fromMeta(doc, priceSlot)...)
	}
	return obs
}

// fromJSONLD decodes one ld+json block and pulls product attributes out of
// every Product node, including @graph members and top-level arrays.
func fromJSONLD(raw, priceSlot string) []record.Observation {
	var root any
	if err := json.Unmarshal([]byte(raw), &root); err != nil {
		return nil
	}

	var obs []record.Observation
	add := func(field, value string) {
		if strings.TrimSpace(value) != "" {
			obs = append(obs, record.Obs(field, strings.TrimSpace(value), record.PassStructured))
		}
	}

	for _, node := range productNodes(root) {
		add("title", jsonString(node["name"]))
		add("sku", jsonString(node["sku"]))
		if _, ok := node["sku"]; !ok {
			add("sku", jsonString(node["productID"]))
		}
		add("color", jsonString(node["color"]))
		add("material", jsonString(node["material"]))
		add("brand", brandName(node["brand"]))
		add("weight", quantity(node["weight"]))
		add("size", jsonString(node["size"]))

		for _, offer := range offerNodes(node["offers"]) {
			add(priceSlot, jsonString(offer["price"]))
			add("currency", jsonString(offer["priceCurrency"]))
		}

		if props, ok := node["additionalProperty"].([]any); ok {
			for _, p := range props {
				pv, ok := p.(map[string]any)
				if !ok {
					continue
				}
				name := jsonString(pv["name"])
				if name == "" {
					continue
				}
				add(name, jsonString(pv["value"]))
			}
		}
	}
	return obs
}

// productNodes finds every node whose @type is (or includes) Product.
func productNodes(v any) []map[string]any {
	var out []map[string]any
	switch t := v.(type) {
	case []any:
		for _, item := range t {
			out = append(out, productNodes(item)...)
		}
	case map[string]any:
		if isType(t["@type"], "Product") {
			out = append(out, t)
		}
		if graph, ok := t["@graph"]; ok {
			out = append(out, productNodes(graph)...)
		}
	}
	return out
}

func isType(v any, want string) bool {
	switch t := v.(type) {
	case string:
		return t == want
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok && s == want {
				return true
			}
		}
	}
	return false
}

// offerNodes flattens offers: a single Offer, a list, or an
// AggregateOffer wrapping a list.
func offerNodes(v any) []map[string]any {
	var out []map[string]any
	switch t := v.(type) {
	case []any:
		for _, item := range t {
			out = append(out, offerNodes(item)...)
		}
	case map[string]any:
		if nested, ok := t["offers"]; ok {
			out = append(out, offerNodes(nested)...)
		}
		if _, ok := t["price"]; ok {
			out = append(out, t)
		}
	}
	return out
}

func brandName(v any) string {
	if m, ok := v.(map[string]any); ok {
		return jsonString(m["name"])
	}
	return jsonString(v)
}

// quantity renders a schema.org QuantitativeValue ({value, unitText}) or a
// plain scalar as one string.
func quantity(v any) string {
	m, ok := v.(map[string]any)
	if !ok {
		return jsonString(v)
	}
	val := jsonString(m["value"])
	if val == "" {
		return ""
	}
	if unit := jsonString(m["unitText"]); unit != "" {
		return val + " " + unit
	}
	return val
}

func jsonString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	}
	return ""
}

// metaFields maps meta property/name attributes to field names. The price
// slot is family-dependent and handled separately.
var metaFields = map[string]string{
	"og:title":                 "title",
	"product:color":            "color",
	"product:retailer_item_id": "sku",
}

func fromMeta(doc *html.Node, priceSlot string) []record.Observation {
	var obs []record.Observation
	for _, m := range sectiontext.AllByTag(doc, atom.Meta) {
		key := sectiontext.Attr(m, "property")
		if key == "" {
			key = sectiontext.Attr(m, "name")
		}
		content := strings.TrimSpace(sectiontext.Attr(m, "content"))
		if key == "" || content == "" {
			continue
		}
		if key == "product:price:amount" || key == "og:price:amount" {
			obs = append(obs, record.Obs(priceSlot, content, record.PassStructured))
			continue
		}
		if field, ok := metaFields[key]; ok {
			obs = append(obs, record.Obs(field, content, record.PassStructured))
		}
	}
	return obs
}
