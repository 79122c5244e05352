// Package trigger реализует внешние источники запуска workflow:
// планировщик расписаний и монитор ценовых алертов.
//
// Оба источника запускают выполнение через общий интерфейс Launcher
// и разделяют семантику drop-and-report: если workflow уже выполняется,
// триггер отбрасывается с записью в журнал, очереди ожидания нет.
// Webhook-триггер живёт в пакете api — это обычный HTTP-обработчик.
package trigger
