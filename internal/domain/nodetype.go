package domain

// NodeType — тип узла из закрытого каталога.
//
// Каталог закрыт: множество типов известно на этапе компиляции,
// диспетчеризация идёт через статический реестр (internal/nodes).
// Добавление нового типа — это новая константа здесь плюс один
// обработчик в реестре; цикл обхода графа не меняется.
type NodeType string

// Триггерные узлы — только точка входа, повторно внутри обхода не выполняются.
const (
	NodeStart        NodeType = "start"
	NodeSchedule     NodeType = "schedule"
	NodeWebhook      NodeType = "webhook"
	NodePriceTrigger NodeType = "price_trigger"
)

// Условные узлы — вычисляют bool и выбирают ветку "yes" / "no".
const (
	NodePriceCondition NodeType = "price_condition"
	NodePositionCheck  NodeType = "position_check"
	NodeFundCheck      NodeType = "fund_check"
	NodeTimeWindow     NodeType = "time_window"
	NodeTimeCondition  NodeType = "time_condition"
)

// Логические узлы (gates) — комбинируют результаты условных узлов.
// В отличие от условных, имеют единственный безымянный выход.
const (
	NodeAndGate NodeType = "and_gate"
	NodeOrGate  NodeType = "or_gate"
	NodeNotGate NodeType = "not_gate"
)

// Узлы-действия — формируют запрос и делегируют его брокеру.
const (
	NodePlaceOrder      NodeType = "place_order"
	NodeSmartOrder      NodeType = "smart_order"
	NodeModifyOrder     NodeType = "modify_order"
	NodeCancelOrder     NodeType = "cancel_order"
	NodeCancelAllOrders NodeType = "cancel_all_orders"
	NodeClosePositions  NodeType = "close_positions"
	NodeBasketOrder     NodeType = "basket_order"
	NodeSplitOrder      NodeType = "split_order"
)

// Узлы чтения данных — read-only вызовы брокера, результат
// сохраняется в контексте для последующих узлов.
const (
	NodeGetQuote     NodeType = "get_quote"
	NodeGetDepth     NodeType = "get_depth"
	NodeHistory      NodeType = "history"
	NodeOpenPosition NodeType = "open_position"
	NodeOptionChain  NodeType = "option_chain"
	NodeOrderBook    NodeType = "order_book"
	NodeTradeBook    NodeType = "trade_book"
	NodePositionBook NodeType = "position_book"
	NodeHoldings     NodeType = "holdings"
	NodeFunds        NodeType = "funds"
)

// Служебные узлы.
const (
	NodeVariable      NodeType = "variable"
	NodeLog           NodeType = "log"
	NodeDelay         NodeType = "delay"
	NodeWaitUntil     NodeType = "wait_until"
	NodeHTTPRequest   NodeType = "http_request"
	NodeTelegramAlert NodeType = "telegram_alert"
)

// IsTrigger возвращает true для триггерных узлов.
func (t NodeType) IsTrigger() bool {
	switch t {
	case NodeStart, NodeSchedule, NodeWebhook, NodePriceTrigger:
		return true
	default:
		return false
	}
}

// IsCondition возвращает true для условных узлов (с ветками yes/no).
// Gates сюда не входят: у них единственный безымянный выход.
func (t NodeType) IsCondition() bool {
	switch t {
	case NodePriceCondition, NodePositionCheck, NodeFundCheck,
		NodeTimeWindow, NodeTimeCondition:
		return true
	default:
		return false
	}
}

// IsGate возвращает true для логических узлов.
func (t NodeType) IsGate() bool {
	switch t {
	case NodeAndGate, NodeOrGate, NodeNotGate:
		return true
	default:
		return false
	}
}

// IsAction возвращает true для узлов-действий.
func (t NodeType) IsAction() bool {
	switch t {
	case NodePlaceOrder, NodeSmartOrder, NodeModifyOrder, NodeCancelOrder,
		NodeCancelAllOrders, NodeClosePositions, NodeBasketOrder, NodeSplitOrder:
		return true
	default:
		return false
	}
}

// IsDataFetch возвращает true для узлов чтения данных.
func (t NodeType) IsDataFetch() bool {
	switch t {
	case NodeGetQuote, NodeGetDepth, NodeHistory, NodeOpenPosition,
		NodeOptionChain, NodeOrderBook, NodeTradeBook, NodePositionBook,
		NodeHoldings, NodeFunds:
		return true
	default:
		return false
	}
}

// IsUtility возвращает true для служебных узлов.
func (t NodeType) IsUtility() bool {
	switch t {
	case NodeVariable, NodeLog, NodeDelay, NodeWaitUntil,
		NodeHTTPRequest, NodeTelegramAlert:
		return true
	default:
		return false
	}
}

// String возвращает строковое представление типа.
func (t NodeType) String() string {
	return string(t)
}
