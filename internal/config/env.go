package config

import (
	"os"
	"strconv"
	"strings"
)

// Prefix for environment variable-based configuration.
const envPrefix = "SNOOZEMC_"

// Section separator in environment variable names.
const envSeparator = "__"

func hasEnvConfig() bool {
	for _, kv := range os.Environ() {
		if strings.HasPrefix(kv, envPrefix) {
			return true
		}
	}
	return false
}

// collectEnvConfig gathers all SNOOZEMC_ environment variables into a
// nested tree. Variable names are split on double underscore to form
// nested keys, so SNOOZEMC_SERVER__ADDRESS becomes server.address.
func collectEnvConfig() map[string]interface{} {
	root := map[string]interface{}{}

	for _, kv := range os.Environ() {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, envPrefix) {
			continue
		}

		suffix := strings.TrimPrefix(key, envPrefix)
		if suffix == "" {
			continue
		}

		parts := strings.Split(strings.ToLower(suffix), envSeparator)
		insertNested(root, parts, inferValue(value))
	}

	return root
}

func insertNested(table map[string]interface{}, keys []string, value interface{}) {
	switch len(keys) {
	case 0:
	case 1:
		table[keys[0]] = value
	default:
		sub, ok := table[keys[0]].(map[string]interface{})
		if !ok {
			sub = map[string]interface{}{}
			table[keys[0]] = sub
		}
		insertNested(sub, keys[1:], value)
	}
}

// inferValue guesses the config type of a string value.
//
//   - wrapped in brackets: array, split on commas, each element inferred
//   - true or false: boolean
//   - parseable integer: integer
//   - contains a dot but no comma and parseable: float
//   - contains a comma: array, each element inferred
//   - otherwise: string, with backslash escapes decoded
func inferValue(s string) interface{} {
	trimmed := strings.TrimSpace(s)
	if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
		inner := trimmed[1 : len(trimmed)-1]
		items := []interface{}{}
		for _, item := range strings.Split(inner, ",") {
			item = strings.TrimSpace(item)
			if item == "" {
				continue
			}
			items = append(items, inferValue(item))
		}
		return items
	}

	if strings.EqualFold(s, "true") {
		return true
	}
	if strings.EqualFold(s, "false") {
		return false
	}

	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}

	if strings.Contains(s, ".") && !strings.Contains(s, ",") {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}

	if strings.Contains(s, ",") {
		items := []interface{}{}
		for _, item := range strings.Split(s, ",") {
			items = append(items, inferValue(strings.TrimSpace(item)))
		}
		return items
	}

	return unescape(s)
}

// unescape decodes common backslash escapes so environment variables work
// the same as TOML basic strings. Panels like Pterodactyl pass values
// verbatim, so a literal \n must become a real newline.
func unescape(s string) string {
	var out strings.Builder
	out.Grow(len(s))

	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i == len(s)-1 {
			out.WriteByte(s[i])
			continue
		}

		i++
		switch s[i] {
		case 'n':
			out.WriteByte('\n')
		case 't':
			out.WriteByte('\t')
		case 'r':
			out.WriteByte('\r')
		case '\\':
			out.WriteByte('\\')
		default:
			out.WriteByte('\\')
			out.WriteByte(s[i])
		}
	}

	return out.String()
}

// deepMerge merges overlay onto base. Overlay values win; nested tables
// merge recursively. A scalar overlaying an array is wrapped into a
// single-element array so env vars like SNOOZEMC_JOIN__METHODS=kick
// deserialize into list fields.
func deepMerge(base, overlay map[string]interface{}) map[string]interface{} {
	if base == nil {
		base = map[string]interface{}{}
	}

	for key, overlayVal := range overlay {
		baseVal, exists := base[key]
		if !exists {
			base[key] = overlayVal
			continue
		}

		baseTable, baseIsTable := baseVal.(map[string]interface{})
		overlayTable, overlayIsTable := overlayVal.(map[string]interface{})
		if baseIsTable && overlayIsTable {
			base[key] = deepMerge(baseTable, overlayTable)
			continue
		}

		if _, baseIsArray := baseVal.([]interface{}); baseIsArray {
			if _, overlayIsArray := overlayVal.([]interface{}); !overlayIsArray {
				base[key] = []interface{}{overlayVal}
				continue
			}
		}

		base[key] = overlayVal
	}

	return base
}
