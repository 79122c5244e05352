// Package api реализует HTTP API сервера.
//
// Три группы маршрутов:
//   - /api/v1/workflows    — CRUD, активация и ручной запуск workflow
//   - /api/v1/executions   — чтение журнала и отмена выполнений
//   - /webhook/{token}     — входящие webhook-триггеры
//
// Обработчики используют stdlib ServeMux с method-паттернами
// и общий набор middleware (Recovery, Logging).
package api
