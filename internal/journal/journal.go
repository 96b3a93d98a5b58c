package journal

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/armolymp/webSocket-python-react-native/internal/connection"
	"github.com/armolymp/webSocket-python-react-native/internal/queue"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS connection_events (
	id          BIGSERIAL PRIMARY KEY,
	handle_id   UUID        NOT NULL,
	kind        TEXT        NOT NULL,
	payload     TEXT,
	close_code  INTEGER,
	reason      TEXT,
	local_close BOOLEAN,
	error_kind  TEXT,
	error       TEXT,
	occurred_at TIMESTAMPTZ NOT NULL
)`

const insertSQL = `
INSERT INTO connection_events (handle_id, kind, payload, close_code, reason, local_close, error_kind, error, occurred_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

// DB is the subset of *pgxpool.Pool the journal needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Config configures batching.
type Config struct {
	BatchSize     int
	FlushInterval time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		BatchSize:     100,
		FlushInterval: time.Second,
	}
}

// Stats holds journal counters.
type Stats struct {
	Inserted int64
	Flushes  int64
	Errors   int64
}

// row is one connection_events record.
type row struct {
	HandleID   string
	Kind       string
	Payload    *string
	CloseCode  *int
	Reason     *string
	LocalClose *bool
	ErrorKind  *string
	Error      *string
	OccurredAt time.Time
}

// Journal batches connection events into the connection_events table.
type Journal struct {
	cfg    Config
	db     DB
	logger *slog.Logger

	rows    *queue.Queue[row]
	flushCh chan struct{}

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	flushMu sync.Mutex // one flush at a time
	statsMu sync.Mutex
	stats   Stats
}

// New creates a Journal writing to db.
func New(cfg Config, db DB, logger *slog.Logger) *Journal {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 1
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = DefaultConfig().FlushInterval
	}
	return &Journal{
		cfg:     cfg,
		db:      db,
		logger:  logger,
		rows:    queue.New[row](cfg.BatchSize),
		flushCh: make(chan struct{}, 1),
	}
}

// EnsureSchema creates the connection_events table if it does not exist.
func (j *Journal) EnsureSchema(ctx context.Context) error {
	if _, err := j.db.Exec(ctx, createTableSQL); err != nil {
		return fmt.Errorf("create connection_events: %w", err)
	}
	return nil
}

// Start begins the background flush loop.
func (j *Journal) Start(ctx context.Context) error {
	j.ctx, j.cancel = context.WithCancel(ctx)

	j.wg.Add(1)
	go j.flushLoop()

	j.logger.Info("journal started",
		"batch_size", j.cfg.BatchSize,
		"flush_interval", j.cfg.FlushInterval,
	)
	return nil
}

// Stop ends the flush loop and writes whatever is still queued.
func (j *Journal) Stop(ctx context.Context) error {
	j.logger.Info("stopping journal")

	if j.cancel != nil {
		j.cancel()
	}

	done := make(chan struct{})
	go func() {
		j.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		j.logger.Warn("journal stop timed out")
	}

	// Final flush
	j.flushAll(ctx)
	return nil
}

// Stats returns current counters.
func (j *Journal) Stats() Stats {
	j.statsMu.Lock()
	defer j.statsMu.Unlock()
	return j.stats
}

// Pending returns the number of rows not yet written.
func (j *Journal) Pending() int {
	return j.rows.Len()
}

func (j *Journal) OnOpen(e connection.Event)    { j.record(e) }
func (j *Journal) OnMessage(e connection.Event) { j.record(e) }
func (j *Journal) OnClose(e connection.Event)   { j.record(e) }
func (j *Journal) OnError(e connection.Event)   { j.record(e) }

var _ connection.Observer = (*Journal)(nil)

// record queues a row and nudges the flush loop once a batch is ready.
func (j *Journal) record(e connection.Event) {
	j.rows.Push(transform(e))

	if j.rows.Len() >= j.cfg.BatchSize {
		select {
		case j.flushCh <- struct{}{}:
		default:
		}
	}
}

// transform converts an Event to a row.
func transform(e connection.Event) row {
	r := row{
		HandleID:   e.HandleID().String(),
		Kind:       e.Kind.String(),
		OccurredAt: e.At,
	}

	switch e.Kind {
	case connection.EventMessage:
		payload := string(e.Payload)
		r.Payload = &payload
	case connection.EventClosed:
		code, reason, local := e.Code, e.Reason, e.Local
		r.CloseCode = &code
		r.Reason = &reason
		r.LocalClose = &local
	case connection.EventFailed:
		kind := e.ErrKind.String()
		r.ErrorKind = &kind
		if e.Err != nil {
			msg := e.Err.Error()
			r.Error = &msg
		}
	}
	return r
}

// flushLoop writes batches on the timer and whenever record fills one.
func (j *Journal) flushLoop() {
	defer j.wg.Done()

	ticker := time.NewTicker(j.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-j.ctx.Done():
			return
		case <-ticker.C:
			j.flushAll(j.ctx)
		case <-j.flushCh:
			j.flushAll(j.ctx)
		}
	}
}

// flushAll writes queued rows batch by batch until the queue is empty or a
// write fails.
func (j *Journal) flushAll(ctx context.Context) {
	for j.rows.Len() > 0 {
		if err := j.flush(ctx); err != nil {
			return
		}
	}
}

// flush writes one batch. Rows of a failed batch are dropped and counted.
func (j *Journal) flush(ctx context.Context) error {
	j.flushMu.Lock()
	defer j.flushMu.Unlock()

	rows := j.rows.Drain(j.cfg.BatchSize)
	if len(rows) == 0 {
		return nil
	}

	start := time.Now()
	if err := j.batchInsert(ctx, rows); err != nil {
		j.logger.Error("batch insert failed", "error", err, "count", len(rows))
		j.statsMu.Lock()
		j.stats.Errors++
		j.statsMu.Unlock()
		return err
	}

	j.statsMu.Lock()
	j.stats.Inserted += int64(len(rows))
	j.stats.Flushes++
	j.statsMu.Unlock()

	j.logger.Debug("flushed connection events",
		"count", len(rows),
		"duration", time.Since(start),
	)
	return nil
}

// batchInsert inserts rows using pgx.Batch.
func (j *Journal) batchInsert(ctx context.Context, rows []row) error {
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(insertSQL,
			r.HandleID, r.Kind, r.Payload, r.CloseCode, r.Reason,
			r.LocalClose, r.ErrorKind, r.Error, r.OccurredAt,
		)
	}

	results := j.db.SendBatch(ctx, batch)
	defer results.Close()

	for range rows {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}
	return nil
}
