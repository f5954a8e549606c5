package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/cecproctor/proctor-backend/internal/config"
	"github.com/cecproctor/proctor-backend/internal/model"
	"github.com/cecproctor/proctor-backend/internal/service"
)

const (
	BatchSize    = 50
	BatchTimeout = 2 * time.Second
	PollTimeout  = 1 * time.Second // Must be >= 1s to satisfy Redis
)

// ViolationRecorder is the part of the violation service the worker needs.
type ViolationRecorder interface {
	Record(ctx context.Context, in service.ViolationInput) (*model.Violation, *model.Session, error)
}

// ViolationWorker drains the ingest queue filled by the WebSocket stream.
// Events are recorded one by one in arrival order so threshold flagging
// sees them in sequence.
type ViolationWorker struct {
	recorder ViolationRecorder
	rdb      *redis.Client
	log      zerolog.Logger
}

func NewViolationWorker(recorder ViolationRecorder, rdb *redis.Client, log zerolog.Logger) *ViolationWorker {
	return &ViolationWorker{
		recorder: recorder,
		rdb:      rdb,
		log:      log.With().Str("component", "violation_worker").Logger(),
	}
}

func (w *ViolationWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ViolationWorker started")

	buffer := make([]service.ViolationInput, 0, BatchSize)
	lastFlushTime := time.Now()

	for {
		if len(buffer) > 0 {
			if len(buffer) >= BatchSize || time.Since(lastFlushTime) >= BatchTimeout {
				w.flush(ctx, buffer)
				buffer = buffer[:0]
				lastFlushTime = time.Now()
			}
		}

		select {
		case <-ctx.Done():
			w.shutdown(buffer)
			return
		default:
		}

		result, err := w.rdb.BLPop(ctx, PollTimeout, config.WorkerKey.IngestViolationsQueue).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				w.shutdown(buffer)
				return
			}
			w.log.Error().Err(err).Msg("Redis connection error, sleeping 3s")
			time.Sleep(3 * time.Second)
			continue
		}

		if len(result) < 2 {
			continue
		}

		in, ok := w.decode(result[1])
		if !ok {
			continue
		}
		buffer = append(buffer, in)
	}
}

// decode drops payloads that can never be recorded.
func (w *ViolationWorker) decode(raw string) (service.ViolationInput, bool) {
	var in service.ViolationInput
	if err := json.Unmarshal([]byte(raw), &in); err != nil {
		w.log.Error().Err(err).Str("data", raw).Msg("Discarding malformed JSON")
		return in, false
	}
	return in, true
}

func (w *ViolationWorker) flush(ctx context.Context, batch []service.ViolationInput) {
	if failed := w.process(ctx, batch); len(failed) > 0 {
		w.requeue(ctx, failed)
	}
}

// process records each event and returns the ones worth retrying.
// Validation failures are dropped; anything else is treated as transient.
func (w *ViolationWorker) process(ctx context.Context, batch []service.ViolationInput) []service.ViolationInput {
	var failed []service.ViolationInput
	for _, in := range batch {
		_, _, err := w.recorder.Record(ctx, in)
		if err == nil {
			continue
		}

		var ve *service.ValidationError
		if errors.As(err, &ve) {
			w.log.Error().Err(err).Str("student_id", in.StudentID).Msg("Dropping invalid violation event")
			continue
		}
		w.log.Error().Err(err).Str("student_id", in.StudentID).Msg("Record failed, requeueing")
		failed = append(failed, in)
	}
	return failed
}

func (w *ViolationWorker) requeue(ctx context.Context, items []service.ViolationInput) {
	pipe := w.rdb.Pipeline()
	for _, in := range items {
		data, _ := json.Marshal(in)
		pipe.RPush(ctx, config.WorkerKey.IngestViolationsQueue, data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		w.log.Error().Err(err).Int("count", len(items)).Msg("CRITICAL: Failed to requeue violation events. Data loss occurred.")
		return
	}
	w.log.Info().Int("count", len(items)).Msg("Requeued failed violation events")
	// back off while the store is down
	time.Sleep(2 * time.Second)
}

func (w *ViolationWorker) shutdown(buffer []service.ViolationInput) {
	w.log.Info().Msg("Worker stopping, flushing remaining buffer...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if len(buffer) > 0 {
		w.flush(shutdownCtx, buffer)
	}
}
