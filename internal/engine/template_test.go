package engine

import (
	"strings"
	"testing"
)

func testContext() *Context {
	ctx := NewContext(map[string]any{
		"symbol": "RELIANCE",
		"nested": map[string]any{"price": 2500.5},
	})
	ctx.SetVariable("qty", 10)
	ctx.SetVariable("note", "breakout")
	ctx.SetNodeOutput("fetch", map[string]any{
		"ltp":  101.25,
		"deep": map[string]any{"bid": 101.2},
	})
	return ctx
}

func TestInterpolate(t *testing.T) {
	ctx := testContext()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"без токенов", "plain text", "plain text"},
		{"переменная", "qty={{qty}}", "qty=10"},
		{"строковая переменная", "{{note}}!", "breakout!"},
		{"payload триггера", "sym={{symbol}}", "sym=RELIANCE"},
		{"вложенный payload", "p={{nested.price}}", "p=2500.5"},
		{"выход узла", "ltp={{nodes.fetch.ltp}}", "ltp=101.25"},
		{"глубокий выход узла", "bid={{nodes.fetch.deep.bid}}", "bid=101.2"},
		{"неизвестный токен дословно", "x={{missing}}", "x={{missing}}"},
		{"неизвестный путь дословно", "x={{nodes.fetch.nope}}", "x={{nodes.fetch.nope}}"},
		{"неизвестный узел дословно", "x={{nodes.ghost.ltp}}", "x={{nodes.ghost.ltp}}"},
		{"пробелы внутри скобок", "{{ qty }}", "10"},
		{"несколько токенов", "{{note}}/{{qty}}", "breakout/10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Interpolate(tt.in, ctx); got != tt.want {
				t.Errorf("Interpolate(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestInterpolateBuiltins(t *testing.T) {
	// Встроенные переменные зависят от часов: проверяем только то,
	// что токены разрешились.
	for _, token := range []string{"{{timestamp}}", "{{date}}", "{{time}}", "{{weekday}}"} {
		got := Interpolate(token, NewContext(nil))
		if strings.Contains(got, "{{") {
			t.Errorf("builtin %s not resolved: %q", token, got)
		}
		if got == "" {
			t.Errorf("builtin %s resolved to empty string", token)
		}
	}
}

func TestInterpolateNilContext(t *testing.T) {
	if got := Interpolate("{{qty}}", nil); got != "{{qty}}" {
		t.Errorf("nil context: got %q, want token verbatim", got)
	}
}

func TestInterpolateConfig(t *testing.T) {
	ctx := testContext()

	cfg := map[string]any{
		"symbol":  "{{symbol}}",
		"qty":     42, // числа не трогаем
		"message": "price is {{nodes.fetch.ltp}}",
		"nested": map[string]any{
			"inner": "{{note}}",
		},
		"list": []any{"{{qty}}", "static"},
	}

	got := InterpolateConfig(cfg, ctx)

	if got["symbol"] != "RELIANCE" {
		t.Errorf("symbol = %v", got["symbol"])
	}
	if got["qty"] != 42 {
		t.Errorf("qty = %v, want untouched 42", got["qty"])
	}
	if got["message"] != "price is 101.25" {
		t.Errorf("message = %v", got["message"])
	}
	nested := got["nested"].(map[string]any)
	if nested["inner"] != "breakout" {
		t.Errorf("nested.inner = %v", nested["inner"])
	}
	list := got["list"].([]any)
	if list[0] != "10" || list[1] != "static" {
		t.Errorf("list = %v", list)
	}

	// Исходная конфигурация не мутируется
	if cfg["symbol"] != "{{symbol}}" {
		t.Error("InterpolateConfig mutated source config")
	}
}

func TestInterpolateConfigNil(t *testing.T) {
	got := InterpolateConfig(nil, testContext())
	if got == nil {
		t.Fatal("nil config must produce empty map, not nil")
	}
	if len(got) != 0 {
		t.Errorf("got %v, want empty map", got)
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{"s", "s"},
		{float64(2500.50), "2500.5"},
		{float64(100), "100"},
		{int(7), "7"},
		{int64(9), "9"},
		{true, "true"},
		{nil, ""},
		{map[string]any{"a": 1.0}, `{"a":1}`},
	}

	for _, tt := range tests {
		if got := formatValue(tt.in); got != tt.want {
			t.Errorf("formatValue(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
