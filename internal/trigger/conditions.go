package trigger

import "github.com/shaiso/Tradeflow/internal/domain"

// crossingBand — допуск условия crossing: ±0.1% от целевой цены,
// границы включительно.
const crossingBand = 0.001

// State — наблюдаемое состояние цены для одного алерта.
//
// Prev — цена предыдущего опроса (нет на первом тике), Baseline —
// первая цена, увиденная после регистрации алерта. Условия
// moving_*_percent измеряют движение от Baseline, условия crossing_*
// сравнивают Prev и текущую цену.
type State struct {
	Prev        float64
	HasPrev     bool
	Baseline    float64
	HasBaseline bool
}

// Evaluate проверяет, срабатывает ли условие алерта на текущей цене.
//
// Условия, которым нужна предыдущая цена или baseline, не срабатывают,
// пока соответствующее состояние не накоплено: первый опрос после
// регистрации только заполняет State.
func Evaluate(alert *domain.PriceAlertConfig, price float64, st *State) bool {
	switch alert.Condition {
	case domain.AlertGreaterThan:
		return price > alert.Target

	case domain.AlertLessThan:
		return price < alert.Target

	case domain.AlertCrossing:
		if alert.Target == 0 {
			return false
		}
		delta := (price - alert.Target) / alert.Target
		if delta < 0 {
			delta = -delta
		}
		return delta <= crossingBand

	case domain.AlertCrossingUp:
		return st.HasPrev && st.Prev <= alert.Target && price > alert.Target

	case domain.AlertCrossingDown:
		return st.HasPrev && st.Prev >= alert.Target && price < alert.Target

	case domain.AlertEnteringChannel:
		return st.HasPrev && !inChannel(st.Prev, alert) && inChannel(price, alert)

	case domain.AlertExitingChannel:
		return st.HasPrev && inChannel(st.Prev, alert) && !inChannel(price, alert)

	case domain.AlertMovingUpPct:
		if !st.HasBaseline || st.Baseline == 0 {
			return false
		}
		return (price-st.Baseline)/st.Baseline*100 >= alert.Target

	case domain.AlertMovingDownPct:
		if !st.HasBaseline || st.Baseline == 0 {
			return false
		}
		return (st.Baseline-price)/st.Baseline*100 >= alert.Target

	default:
		return false
	}
}

// inChannel — цена внутри канала [Target, TargetHigh] включительно.
func inChannel(price float64, alert *domain.PriceAlertConfig) bool {
	low, high := alert.Target, alert.TargetHigh
	if high < low {
		low, high = high, low
	}
	return price >= low && price <= high
}
