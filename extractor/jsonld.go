package extractor

import (
	"encoding/json"
	"strconv"
	"strings"
)

// addressKeys are joined in this order to form the location string.
var addressKeys = []string{"streetAddress", "addressLocality", "addressRegion", "postalCode"}

// parseJSONLDAddress scans JSON-LD blocks in order and returns the first
// address it can assemble. Malformed blocks are skipped.
func parseJSONLDAddress(blocks []string) string {
	for _, block := range blocks {
		var v any
		if err := json.Unmarshal([]byte(strings.TrimSpace(block)), &v); err != nil {
			continue
		}
		if addr := findAddress(v, 0); addr != "" {
			return addr
		}
	}
	return ""
}

// maxJSONLDDepth bounds recursion on pathological documents.
const maxJSONLDDepth = 16

// findAddress walks v depth first. It accepts an "address" property holding
// either a PostalAddress object, a list of them, or a plain string, and also a
// bare object typed PostalAddress (e.g. inside @graph).
func findAddress(v any, depth int) string {
	if depth > maxJSONLDDepth {
		return ""
	}
	switch t := v.(type) {
	case []any:
		for _, item := range t {
			if addr := findAddress(item, depth+1); addr != "" {
				return addr
			}
		}
	case map[string]any:
		if isPostalAddress(t) {
			if addr := joinAddress(t); addr != "" {
				return addr
			}
		}
		if raw, ok := t["address"]; ok {
			switch a := raw.(type) {
			case string:
				if s := strings.TrimSpace(a); s != "" {
					return s
				}
			case map[string]any:
				if addr := joinAddress(a); addr != "" {
					return addr
				}
			case []any:
				for _, item := range a {
					if m, ok := item.(map[string]any); ok {
						if addr := joinAddress(m); addr != "" {
							return addr
						}
					}
				}
			}
		}
		for key, child := range t {
			if key == "address" {
				continue
			}
			if addr := findAddress(child, depth+1); addr != "" {
				return addr
			}
		}
	}
	return ""
}

func isPostalAddress(m map[string]any) bool {
	switch t := m["@type"].(type) {
	case string:
		return t == "PostalAddress"
	case []any:
		for _, v := range t {
			if s, ok := v.(string); ok && s == "PostalAddress" {
				return true
			}
		}
	}
	return false
}

// joinAddress joins the non-empty address parts with ", ".
func joinAddress(m map[string]any) string {
	parts := make([]string, 0, len(addressKeys))
	for _, key := range addressKeys {
		if s := scalarString(m[key]); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}

func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case map[string]any:
		// addressRegion and addressLocality are sometimes typed Place objects.
		return scalarString(t["name"])
	}
	return ""
}
