// Package nodes реализует обработчики типов узлов.
//
// Реестр закрыт: каждый тип из каталога domain.NodeType получает ровно
// один обработчик с общим контрактом — (config, context) → (outputs,
// ветка, журнал). Открытой диспетчеризации нет; добавление типа узла —
// это один новый обработчик, цикл обхода графа не меняется.
//
// Файлы по категориям:
//   - trigger.go   — триггерные узлы (только точка входа)
//   - condition.go — условные узлы и логические gates
//   - action.go    — заявки брокеру
//   - datafetch.go — read-only чтение данных брокера
//   - utility.go   — переменные, журнал, задержки, HTTP, Telegram
package nodes
