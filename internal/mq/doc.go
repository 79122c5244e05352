// Package mq публикует события жизненного цикла executions в RabbitMQ.
//
// События — уведомления для внешних потребителей (дашборды, аудит,
// алертинг): сам движок на них не подписан и от брокера сообщений не
// зависит. Публикация fire-and-forget: ошибка публикации пишется в
// журнал и не влияет на выполнение workflow.
package mq
