// Package cli реализует инструмент командной строки Tradeflow.
//
// # Обзор
//
// CLI — клиентская утилита для взаимодействия с Tradeflow API.
// Работает через HTTP, не импортирует внутренние пакеты движка.
// CLI используется для управления workflows, просмотра журналов
// выполнений и проверки webhook-триггеров.
//
// # Ключевые компоненты
//
// ## Client
//
// HTTP-клиент для Tradeflow API. Инкапсулирует все HTTP-запросы,
// парсинг ответов (DataResponse, ListResponse, ErrorResponse)
// и обработку ошибок.
//
//	client := cli.NewClient("http://localhost:8080")
//	workflows, err := client.ListWorkflows()
//
// ## Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Таблицы (text/tabwriter) — по умолчанию
//   - JSON — с флагом --json
//
// Данные выводятся в stdout, сообщения (Success/Error) — в stderr.
// Это позволяет использовать pipe: tradeflow workflow list --json | jq .
//
// ## Commands
//
// Cobra-команды организованы по ресурсам:
//   - workflow: list, create, show, delete, activate, deactivate, run, executions
//   - execution: show, cancel
//   - webhook: trigger
//
// Каждая группа создаётся через фабричную функцию (NewWorkflowCmd и т.д.),
// принимающую clientFn и outputFn — замыкания для ленивого создания
// Client и Output после парсинга PersistentFlags.
package cli
