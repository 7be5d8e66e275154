package google

import (
	"fmt"
	"sort"
	"strings"

	"gastos/internal/core"
)

var headerNames = map[string]bool{
	"category":  true,
	"categoria": true,
	"categoría": true,
	"name":      true,
	"nombre":    true,
}

// parseCategories converts a two-column values matrix into a category
// directory ordered by name. A header row is skipped, repeated names merge
// their keywords and the fallback category is always present without
// keywords.
func parseCategories(values [][]interface{}) []core.Category {
	keywords := map[string][]string{core.OtherCategory: nil}
	for i, raw := range values {
		row := toStrings(raw)
		name := strings.ToLower(strings.TrimSpace(safeGet(row, 0)))
		if name == "" || (i == 0 && headerNames[name]) {
			continue
		}
		if _, ok := keywords[name]; !ok {
			keywords[name] = nil
		}
		if name == core.OtherCategory {
			continue
		}
		for _, kw := range strings.Split(safeGet(row, 1), ",") {
			if kw = strings.TrimSpace(kw); kw != "" {
				keywords[name] = append(keywords[name], kw)
			}
		}
	}

	names := make([]string, 0, len(keywords))
	for name := range keywords {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]core.Category, 0, len(names))
	for _, name := range names {
		kws, err := core.NormalizeKeywords(keywords[name])
		if err != nil {
			kws = nil
		}
		out = append(out, core.Category{Name: name, Keywords: kws})
	}
	return out
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func safeGet(arr []string, idx int) string {
	if idx >= 0 && idx < len(arr) {
		return arr[idx]
	}
	return ""
}
