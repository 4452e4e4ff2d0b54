package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Makepad-fr/tarefas/internal/model"
	"github.com/segmentio/kafka-go"
)

// DefaultTopic receives task events when no topic is configured.
const DefaultTopic = "tarefas.events"

// Event is the Kafka message value. Titulo is nil only for deletes, so an
// update to an empty title still carries "titulo":"".
type Event struct {
	Op     string  `json:"op"` // create | update | delete
	ID     int64   `json:"id"`
	Titulo *string `json:"titulo,omitempty"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink publishes one event per mutation, keyed by task id so all events
// of a task land on the same partition in order.
type KafkaSink struct {
	w messageWriter
}

// NewKafkaSink writes to topic on brokers (comma separated).
func NewKafkaSink(brokers, topic string) *KafkaSink {
	if topic == "" {
		topic = DefaultTopic
	}
	return &KafkaSink{w: &kafka.Writer{
		Addr:         kafka.TCP(strings.Split(brokers, ",")...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	}}
}

func (k *KafkaSink) Create(ctx context.Context, task model.Task) error {
	return k.publish(ctx, Event{Op: "create", ID: task.ID, Titulo: &task.Title})
}

func (k *KafkaSink) Update(ctx context.Context, id int64, title string) error {
	return k.publish(ctx, Event{Op: "update", ID: id, Titulo: &title})
}

func (k *KafkaSink) Delete(ctx context.Context, id int64) error {
	return k.publish(ctx, Event{Op: "delete", ID: id})
}

func (k *KafkaSink) publish(ctx context.Context, ev Event) error {
	val, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(strconv.FormatInt(ev.ID, 10)),
		Value: val,
		Time:  time.Now(),
	}
	if err := k.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka %s %d: %w", ev.Op, ev.ID, err)
	}
	return nil
}

func (k *KafkaSink) Close() error {
	return k.w.Close()
}
