// Package engine содержит движок выполнения workflow-графов.
//
// Включает:
//   - graph.go     — структурная валидация графа (рёбра, точка входа)
//   - template.go  — интерполяция {{token}} подстановок
//   - context.go   — контекст одного выполнения (переменные, payload, outputs)
//   - traversal.go — ограниченный обход графа с ветвлением
//   - record.go    — журнал выполнения и его асинхронная запись
//   - service.go   — публичный фасад: Execute / GetExecution / Cancel
//
// Циклы в графе структурно легальны: авторы строят retry/loop паттерны
// намеренно. Разгон цикла останавливают только лимиты времени выполнения
// (посещения и глубина), а не валидация.
package engine
