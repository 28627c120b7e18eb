package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"taskhub/internal/metrics"
	"taskhub/internal/model"
)

// Sender delivers a single notification. Satisfied by notify.Mailer.
type Sender interface {
	Send(n model.Notification) error
}

// NotificationWorker drains the dispatch queue and delivers mail.
// Delivery is best-effort: a failed send is logged and dropped, never
// retried, so the queue can never back up behind a dead mail server.
type NotificationWorker struct {
	conn      *amqp.Connection
	sender    Sender
	queueName string

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewNotificationWorker(conn *amqp.Connection, sender Sender, queueName string) *NotificationWorker {
	return &NotificationWorker{
		conn:      conn,
		sender:    sender,
		queueName: queueName,
	}
}

func (w *NotificationWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}

	_, err = ch.QueueDeclare(
		w.queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("declare notification queue failed: %w", err)
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume notification queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}

				var n model.Notification
				if err := json.Unmarshal(d.Body, &n); err != nil {
					log.Printf("worker decode notification failed: %v", err)
					_ = d.Nack(false, false)
					continue
				}

				if err := w.sender.Send(n); err != nil {
					log.Printf("worker send notification to %s failed: %v", n.Email, err)
					metrics.NotificationsFailed.Inc()
					_ = d.Ack(false)
					continue
				}

				metrics.NotificationsSent.Inc()
				_ = d.Ack(false)
			}
		}
	}()

	return nil
}

func (w *NotificationWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
