package trigger

import (
	"testing"

	"github.com/shaiso/Tradeflow/internal/domain"
)

func alert(cond domain.AlertCondition, target float64) *domain.PriceAlertConfig {
	return &domain.PriceAlertConfig{
		Symbol:    "NIFTY",
		Condition: cond,
		Target:    target,
	}
}

func TestEvaluateThresholds(t *testing.T) {
	tests := []struct {
		name  string
		cond  domain.AlertCondition
		price float64
		want  bool
	}{
		{"greater_than выше", domain.AlertGreaterThan, 101, true},
		{"greater_than равно", domain.AlertGreaterThan, 100, false},
		{"less_than ниже", domain.AlertLessThan, 99, true},
		{"less_than равно", domain.AlertLessThan, 100, false},
		{"crossing внутри допуска", domain.AlertCrossing, 100.05, true},
		{"crossing на границе", domain.AlertCrossing, 100.1, true},
		{"crossing вне допуска", domain.AlertCrossing, 100.2, false},
		{"crossing снизу", domain.AlertCrossing, 99.95, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(alert(tt.cond, 100), tt.price, &State{})
			if got != tt.want {
				t.Errorf("Evaluate(%s, %v) = %v, want %v", tt.cond, tt.price, got, tt.want)
			}
		})
	}
}

// feed прогоняет последовательность цен через условие так же,
// как это делает монитор: сработавшая цена завершает прогон.
func feed(a *domain.PriceAlertConfig, prices []float64) (firedAt float64, fired bool) {
	st := &State{}
	for _, price := range prices {
		if !st.HasBaseline {
			st.Baseline = price
			st.HasBaseline = true
		}
		if Evaluate(a, price, st) {
			return price, true
		}
		st.Prev = price
		st.HasPrev = true
	}
	return 0, false
}

func TestEvaluateCrossingUp(t *testing.T) {
	// Пересечение требует предыдущей цены: первый тик только копит состояние
	a := alert(domain.AlertCrossingUp, 100)

	if price, fired := feed(a, []float64{99, 100, 101}); !fired || price != 101 {
		t.Errorf("fired=%v at %v, want at 101", fired, price)
	}

	// Цена сразу выше цели — пересечения не было
	if _, fired := feed(a, []float64{105, 106}); fired {
		t.Error("fired without an actual cross")
	}
}

func TestEvaluateCrossingDown(t *testing.T) {
	a := alert(domain.AlertCrossingDown, 100)

	if price, fired := feed(a, []float64{101, 100, 99}); !fired || price != 99 {
		t.Errorf("fired=%v at %v, want at 99", fired, price)
	}
	if _, fired := feed(a, []float64{95, 94}); fired {
		t.Error("fired without an actual cross")
	}
}

func TestEvaluateChannel(t *testing.T) {
	entering := alert(domain.AlertEnteringChannel, 100)
	entering.TargetHigh = 110

	if price, fired := feed(entering, []float64{95, 105}); !fired || price != 105 {
		t.Errorf("entering: fired=%v at %v", fired, price)
	}
	// Всегда внутри канала — входа не было
	if _, fired := feed(entering, []float64{105, 106}); fired {
		t.Error("entering fired while always inside")
	}

	exiting := alert(domain.AlertExitingChannel, 100)
	exiting.TargetHigh = 110
	if price, fired := feed(exiting, []float64{105, 115}); !fired || price != 115 {
		t.Errorf("exiting: fired=%v at %v", fired, price)
	}

	// Перевёрнутые границы канала нормализуются
	inverted := alert(domain.AlertEnteringChannel, 110)
	inverted.TargetHigh = 100
	if _, fired := feed(inverted, []float64{95, 105}); !fired {
		t.Error("inverted channel bounds not normalized")
	}
}

func TestEvaluateMovingPercent(t *testing.T) {
	up := alert(domain.AlertMovingUpPct, 5) // +5% от baseline

	if price, fired := feed(up, []float64{100, 102, 105}); !fired || price != 105 {
		t.Errorf("moving up: fired=%v at %v, want at 105", fired, price)
	}
	if _, fired := feed(up, []float64{100, 104.9}); fired {
		t.Error("moving up fired below threshold")
	}

	down := alert(domain.AlertMovingDownPct, 10)
	if price, fired := feed(down, []float64{200, 185, 180}); !fired || price != 180 {
		t.Errorf("moving down: fired=%v at %v, want at 180", fired, price)
	}
}

func TestEvaluateUnknownCondition(t *testing.T) {
	a := alert(domain.AlertCondition("sideways"), 100)
	if Evaluate(a, 100, &State{}) {
		t.Error("unknown condition must never fire")
	}
}
