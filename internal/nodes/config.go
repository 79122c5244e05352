package nodes

import (
	"encoding/json"
	"strconv"
)

// Помощники извлечения значений из конфигурации узла.
// Конфигурация приходит из JSON, поэтому числа — float64,
// но после интерполяции числовые поля могут оказаться строками.

// getString извлекает строку из конфига.
func getString(cfg map[string]any, key string) string {
	if v, ok := cfg[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// getStringDefault извлекает строку с значением по умолчанию.
func getStringDefault(cfg map[string]any, key, def string) string {
	if s := getString(cfg, key); s != "" {
		return s
	}
	return def
}

// getFloat извлекает число из конфига. Строки парсятся:
// после интерполяции "{{nodes.q.ltp}}" значение приходит строкой.
func getFloat(cfg map[string]any, key string) (float64, bool) {
	v, ok := cfg[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// getInt извлекает целое из конфига.
func getInt(cfg map[string]any, key string) (int, bool) {
	f, ok := getFloat(cfg, key)
	if !ok {
		return 0, false
	}
	return int(f), true
}

// getBool извлекает bool из конфига.
func getBool(cfg map[string]any, key string, def bool) bool {
	if v, ok := cfg[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
		if s, ok := v.(string); ok {
			if b, err := strconv.ParseBool(s); err == nil {
				return b
			}
		}
	}
	return def
}

// getStringSlice извлекает список строк из конфига.
func getStringSlice(cfg map[string]any, key string) []string {
	v, ok := cfg[key]
	if !ok {
		return nil
	}
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		if list == "" {
			return nil
		}
		return []string{list}
	default:
		return nil
	}
}

// getMapSlice извлекает список map из конфига (для basket_order).
func getMapSlice(cfg map[string]any, key string) []map[string]any {
	v, ok := cfg[key]
	if !ok {
		return nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(list))
	for _, item := range list {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

// asOutput переводит произвольную структуру в map[string]any через JSON,
// чтобы результат был доступен точечным путям интерполяции.
func asOutput(v any) map[string]any {
	b, err := json.Marshal(v)
	if err != nil {
		return map[string]any{}
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return map[string]any{}
	}
	return out
}

// asList переводит слайс структур в []any через JSON.
func asList(v any) []any {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var out []any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil
	}
	return out
}
