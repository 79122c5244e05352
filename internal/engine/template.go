package engine

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// tokenPattern — шаблон подстановки: {{token}} или {{path.to.value}}.
var tokenPattern = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_][A-Za-z0-9_.]*)\s*\}\}`)

// Interpolate подставляет {{token}} значения в строку.
//
// Порядок разрешения токена:
//  1. Встроенные переменные: timestamp, date, time, weekday —
//     вычисляются от настенных часов в момент подстановки.
//  2. Пользовательские переменные (Context.Variables).
//  3. Точечный путь в payload триггера: {{webhook.symbol}}.
//  4. Точечный путь в выходы узлов: {{nodes.fetch.ltp}}.
//
// Неразрешённый токен остаётся в строке как есть — без ошибки.
// Это намеренная политика: молчаливый текст заметнее в журнале,
// чем упавшее выполнение из-за опечатки в имени переменной.
func Interpolate(text string, ctx *Context) string {
	if !strings.Contains(text, "{{") {
		return text
	}

	now := time.Now()

	return tokenPattern.ReplaceAllStringFunc(text, func(match string) string {
		token := tokenPattern.FindStringSubmatch(match)[1]

		if value, ok := resolveToken(token, ctx, now); ok {
			return formatValue(value)
		}

		// Токен не разрешён — оставляем дословно
		return match
	})
}

// resolveToken разрешает один токен. Возвращает false, если токен неизвестен.
func resolveToken(token string, ctx *Context, now time.Time) (any, bool) {
	// 1. Встроенные переменные
	switch token {
	case "timestamp":
		return now.Unix(), true
	case "date":
		return now.Format("2006-01-02"), true
	case "time":
		return now.Format("15:04:05"), true
	case "weekday":
		return now.Weekday().String(), true
	}

	if ctx == nil {
		return nil, false
	}

	// 2. Пользовательские переменные (точное имя, включая точки)
	if value, ok := ctx.Variables[token]; ok {
		return value, true
	}

	parts := strings.Split(token, ".")

	// 3. Выходы узлов: nodes.<nodeID>.<path...>
	if parts[0] == "nodes" && len(parts) >= 2 {
		outputs, ok := ctx.NodeOutputs[parts[1]]
		if !ok {
			return nil, false
		}
		if len(parts) == 2 {
			return outputs, true
		}
		return lookupPath(outputs, parts[2:])
	}

	// 4. Payload триггера: первый сегмент и далее по вложенным map
	return lookupPath(ctx.TriggerPayload, parts)
}

// lookupPath спускается по вложенным map по сегментам пути.
func lookupPath(data map[string]any, parts []string) (any, bool) {
	var current any = data

	for _, part := range parts {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}

	return current, true
}

// formatValue форматирует значение для подстановки в строку.
func formatValue(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	case nil:
		return ""
	case map[string]any, []any:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// InterpolateValue подставляет токены в произвольное значение.
// Рекурсивно обрабатывает map и slice.
func InterpolateValue(value any, ctx *Context) any {
	switch v := value.(type) {
	case string:
		return Interpolate(v, ctx)

	case map[string]any:
		result := make(map[string]any, len(v))
		for key, val := range v {
			result[key] = InterpolateValue(val, ctx)
		}
		return result

	case []any:
		result := make([]any, len(v))
		for i, val := range v {
			result[i] = InterpolateValue(val, ctx)
		}
		return result

	case map[string]string:
		result := make(map[string]string, len(v))
		for key, val := range v {
			result[key] = Interpolate(val, ctx)
		}
		return result

	case []string:
		result := make([]string, len(v))
		for i, val := range v {
			result[i] = Interpolate(val, ctx)
		}
		return result

	default:
		// Остальные типы (числа, bool) подстановок не содержат
		return value
	}
}

// InterpolateConfig подставляет токены в конфигурацию узла.
func InterpolateConfig(config map[string]any, ctx *Context) map[string]any {
	if config == nil {
		return make(map[string]any)
	}

	result, _ := InterpolateValue(config, ctx).(map[string]any)
	return result
}
