package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/invictos/bet-ledger/pkg/contracts/events"
)

// Sink records one ledger change event.
type Sink interface {
	Record(ctx context.Context, e events.BetChanged) error
}

// PGSink appends to the audit_log table.
type PGSink struct{ DB *sql.DB }

func (s *PGSink) Record(ctx context.Context, e events.BetChanged) error {
	ts := time.UnixMilli(e.TsUnixMs).UTC()
	if e.TsUnixMs == 0 {
		ts = time.Now().UTC()
	}
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO audit_log (bet_id, user_id, action, detail, occurred_at, recorded_at)
		VALUES ($1,$2,$3,$4,$5,NOW())`,
		e.BetID, e.UserID, e.Action, e.Detail, ts,
	)
	if err != nil {
		return fmt.Errorf("insert audit row: %w", err)
	}
	return nil
}

// MessageWriter is the producer surface used for dead letters.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
}

// Worker turns bet_changed messages into audit rows. Messages that keep
// failing after retries go to the DLQ topic so the consumer never wedges on
// one record.
type Worker struct {
	log     *zap.Logger
	sink    Sink
	dlq     MessageWriter
	retries int
}

func NewWorker(log *zap.Logger, sink Sink, dlq MessageWriter) *Worker {
	return &Worker{log: log, sink: sink, dlq: dlq, retries: 3}
}

// ProcessMessage handles a single raw kafka payload.
func (w *Worker) ProcessMessage(ctx context.Context, value []byte) error {
	var e events.BetChanged
	if err := json.Unmarshal(value, &e); err != nil {
		// malformed payloads cannot succeed on retry
		w.log.Error("unmarshal bet_changed", zap.Error(err))
		w.sendToDLQ(ctx, value)
		return nil
	}

	var err error
	for i := 0; i <= w.retries; i++ {
		if i > 0 {
			time.Sleep(time.Duration(100*i) * time.Millisecond)
		}
		if err = w.sink.Record(ctx, e); err == nil {
			return nil
		}
	}

	w.log.Error("record audit event",
		zap.String("betId", e.BetID),
		zap.String("action", e.Action),
		zap.Error(err),
	)
	w.sendToDLQ(ctx, value)
	return err
}

func (w *Worker) sendToDLQ(ctx context.Context, value []byte) {
	if w.dlq == nil {
		return
	}
	if err := w.dlq.WriteMessages(ctx, kafkago.Message{Value: value}); err != nil {
		w.log.Warn("dlq write", zap.Error(err))
	}
}

// Run consumes messages until ctx is cancelled.
func (w *Worker) Run(ctx context.Context, reader *kafkago.Reader) {
	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.log.Warn("kafka read", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}
		_ = w.ProcessMessage(ctx, msg.Value)
	}
}
