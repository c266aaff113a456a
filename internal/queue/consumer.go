package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// SettlementLog appends ticket lifecycle events to a single file, one line
// per event.
type SettlementLog struct {
	mu   sync.Mutex
	path string
}

// NewSettlementLog writes to dir/settlement.log.
func NewSettlementLog(dir string) *SettlementLog {
	return &SettlementLog{path: filepath.Join(dir, "settlement.log")}
}

// Path returns the file the log writes to.
func (l *SettlementLog) Path() string { return l.path }

// Handle decodes a delivery from queue and appends it to the log.
func (l *SettlementLog) Handle(queue string, body []byte) error {
	var line string
	switch queue {
	case TicketSettledQueue:
		var ev TicketSettledEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}
		line = fmt.Sprintf("[%s] Ticket settled | memo=%d | ticket_id=%s | event_id=%s | event=%q | owner=%s | buyer_id=%s | price=%d e8s | block=%d | sold=%d\n",
			ev.SettledAt, ev.Memo, ev.TicketID, ev.EventID, ev.EventTitle, ev.Owner, ev.BuyerID, ev.PriceE8s, ev.PaidAtBlock, ev.SoldAmount)
	case TicketExpiredQueue:
		var ev TicketExpiredEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}
		line = fmt.Sprintf("[%s] Ticket expired | memo=%d | ticket_id=%s | event_id=%s | reserved_by=%s | buyer_id=%s | price=%d e8s\n",
			ev.ExpiredAt, ev.Memo, ev.TicketID, ev.EventID, ev.ReservedBy, ev.BuyerID, ev.PriceE8s)
	default:
		return fmt.Errorf("unknown queue %q", queue)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// StartSettlementConsumer connects to RabbitMQ, declares both ticket queues
// and appends every delivery to sink. It reconnects with exponential
// backoff and only returns once ctx is cancelled.
func StartSettlementConsumer(ctx context.Context, url string, sink *SettlementLog) error {
	if url == "" {
		url = DefaultURL
	}
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Printf("settlement-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consumeLoop(ctx, conn, sink)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Printf("settlement-consumer: consume loop ended: %v; reconnecting", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, sink *SettlementLog) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Printf("settlement-consumer: set QoS failed: %v", err)
	}

	queues := []string{TicketSettledQueue, TicketExpiredQueue}
	deliveries := make(chan amqp.Delivery)
	var wg sync.WaitGroup
	for _, q := range queues {
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			return fmt.Errorf("queue declare %s: %w", q, err)
		}
		msgs, err := ch.Consume(q, "", false, false, false, false, nil)
		if err != nil {
			return fmt.Errorf("queue consume %s: %w", q, err)
		}
		wg.Add(1)
		go func(msgs <-chan amqp.Delivery) {
			defer wg.Done()
			for d := range msgs {
				select {
				case deliveries <- d:
				case <-ctx.Done():
					return
				}
			}
		}(msgs)
	}
	go func() {
		wg.Wait()
		close(deliveries)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := sink.Handle(d.RoutingKey, d.Body); err != nil {
				log.Printf("settlement-consumer: handle message failed: %v", err)
				_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
