package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shuldan/dispatch/pkg/contracts"
	"github.com/shuldan/dispatch/pkg/dispatcher"
	"github.com/shuldan/dispatch/pkg/errors"
	"github.com/shuldan/dispatch/pkg/logger"
	"github.com/shuldan/dispatch/pkg/relay"
)

// Post is a row of journal_posts with the number of successful deliveries
// recorded for it.
type Post struct {
	PostID    string
	Kind      dispatcher.Kind
	Matched   int
	Delivered int
	Payload   string
	Origin    string
	PostedAt  time.Time
}

// FaultRecord is a row of journal_faults.
type FaultRecord struct {
	PostID       string
	Kind         dispatcher.Kind
	Reason       string
	Subscription string
	Subscriber   string
	Context      dispatcher.ContextName
	Error        string
	FaultedAt    time.Time
}

type record struct {
	query   string
	args    []any
	flushed chan struct{}
}

// Journal is a dispatcher.Observer that records posts, deliveries and faults
// into SQL. Observer calls only enqueue; a single goroutine writes.
type Journal struct {
	db         *sql.DB
	dialect    dialect
	logger     contracts.Logger
	now        func() time.Time
	bufferSize int
	batchSize  int
	ownsDB     bool

	mu      sync.RWMutex
	closed  bool
	records chan record
	done    chan struct{}
	dropped atomic.Int64
	failed  atomic.Int64
}

var _ dispatcher.Observer = (*Journal)(nil)

// New migrates the journal schema on db and starts the writer.
func New(ctx context.Context, db *sql.DB, driver string, opts ...Option) (*Journal, error) {
	if db == nil {
		return nil, ErrNilDatabase
	}
	d, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}

	j := &Journal{
		db:         db,
		dialect:    d,
		now:        time.Now,
		bufferSize: 1024,
		batchSize:  64,
	}
	for _, opt := range opts {
		opt(j)
	}
	if j.logger == nil {
		j.logger = logger.NewNop()
	}

	if err := newMigrationRunner(db, d).Migrate(ctx, schema(d)); err != nil {
		return nil, err
	}

	j.records = make(chan record, j.bufferSize)
	j.done = make(chan struct{})
	go j.run()
	return j, nil
}

// Open connects to driver/dsn and returns a journal that owns the handle.
func Open(ctx context.Context, driver, dsn string, dbOpts []DBOption, opts ...Option) (*Journal, error) {
	db, err := OpenDB(ctx, driver, dsn, dbOpts...)
	if err != nil {
		return nil, err
	}
	j, err := New(ctx, db, driver, append(opts, WithOwnedDB())...)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return j, nil
}

func (j *Journal) Posted(ctx context.Context, e dispatcher.Event, matched int) {
	if isDispatcherKind(e.Kind()) {
		return
	}
	payload, err := json.Marshal(e)
	if err != nil {
		payload = []byte("null")
	}
	origin := ""
	if env, ok := relay.FromRelay(ctx); ok {
		origin = env.Origin
	}
	j.enqueue(record{
		query: "INSERT INTO journal_posts (post_id, kind, matched, payload, origin, posted_at) VALUES (?, ?, ?, ?, ?, ?)",
		args:  []any{dispatcher.PostID(ctx), string(e.Kind()), matched, string(payload), origin, j.now().UnixMicro()},
	})
}

func (j *Journal) Delivered(ctx context.Context, e dispatcher.Event, sub *dispatcher.Subscription, elapsed time.Duration) {
	if isDispatcherKind(e.Kind()) {
		return
	}
	j.enqueue(record{
		query: "INSERT INTO journal_deliveries (post_id, kind, subscription, subscriber, context, elapsed_us, delivered_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		args: []any{
			dispatcher.PostID(ctx), string(e.Kind()), sub.ID(), sub.Name(),
			string(sub.Context()), elapsed.Microseconds(), j.now().UnixMicro(),
		},
	})
}

func (j *Journal) Faulted(f dispatcher.Fault) {
	subID, subName := "", ""
	if f.Subscription != nil {
		subID, subName = f.Subscription.ID(), f.Subscription.Name()
	}
	msg := ""
	if f.Err != nil {
		msg = f.Err.Error()
	}
	at := f.At
	if at.IsZero() {
		at = j.now()
	}
	j.enqueue(record{
		query: "INSERT INTO journal_faults (post_id, kind, reason, subscription, subscriber, context, error, faulted_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		args: []any{
			f.PostID, string(f.Event.Kind()), f.Reason.String(), subID, subName,
			string(f.Context), msg, at.UnixMicro(),
		},
	})
}

func (j *Journal) enqueue(r record) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return
	}
	select {
	case j.records <- r:
	default:
		j.dropped.Add(1)
	}
}

// Flush waits until every record enqueued before the call is written.
func (j *Journal) Flush(ctx context.Context) error {
	marker := record{flushed: make(chan struct{})}

	j.mu.RLock()
	if j.closed {
		j.mu.RUnlock()
		return ErrJournalClosed
	}
	select {
	case j.records <- marker:
	case <-ctx.Done():
		j.mu.RUnlock()
		return ctx.Err()
	}
	j.mu.RUnlock()

	select {
	case <-marker.flushed:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dropped is the number of records lost to a full buffer.
func (j *Journal) Dropped() int64 { return j.dropped.Load() }

// Failed is the number of records whose batch failed to commit.
func (j *Journal) Failed() int64 { return j.failed.Load() }

// Close writes what is buffered, stops the writer and, for journals built
// by Open, closes the database.
func (j *Journal) Close() error {
	j.mu.Lock()
	if j.closed {
		j.mu.Unlock()
		return nil
	}
	j.closed = true
	close(j.records)
	j.mu.Unlock()

	<-j.done

	var errs []error
	if n := j.dropped.Load(); n > 0 {
		j.logger.Warn("journal dropped records", "count", n)
	}
	if j.ownsDB {
		errs = append(errs, j.db.Close())
	}
	return errors.Join(errs...)
}

func (j *Journal) run() {
	defer close(j.done)

	batch := make([]record, 0, j.batchSize)
	for r := range j.records {
		batch = append(batch[:0], r)
	drain:
		for len(batch) < j.batchSize {
			select {
			case next, ok := <-j.records:
				if !ok {
					break drain
				}
				batch = append(batch, next)
			default:
				break drain
			}
		}
		j.write(batch)
	}
}

func (j *Journal) write(batch []record) {
	var markers []chan struct{}
	defer func() {
		for _, m := range markers {
			close(m)
		}
	}()

	rows := batch[:0:0]
	for _, r := range batch {
		if r.flushed != nil {
			markers = append(markers, r.flushed)
			continue
		}
		rows = append(rows, r)
	}
	if len(rows) == 0 {
		return
	}

	ctx := context.Background()
	err := j.inTx(ctx, func(tx *sql.Tx) error {
		for _, r := range rows {
			if _, err := tx.ExecContext(ctx, j.dialect.rebind(r.query), r.args...); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		j.failed.Add(int64(len(rows)))
		j.logger.Error("journal write failed", "error", ErrWrite.WithDetail("count", len(rows)).WithCause(err))
	}
}

func (j *Journal) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Recent returns the latest posts, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Post, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit.WithDetail("limit", limit)
	}
	query := j.dialect.rebind(`SELECT p.post_id, p.kind, p.matched, p.payload, p.origin, p.posted_at,
    (SELECT COUNT(*) FROM journal_deliveries d WHERE d.post_id = p.post_id) AS delivered
FROM journal_posts p
ORDER BY p.posted_at DESC, p.id DESC
LIMIT ?`)

	rows, err := j.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, ErrQuery.WithDetail("table", "journal_posts").WithCause(err)
	}
	defer func() { _ = rows.Close() }()

	var out []Post
	for rows.Next() {
		var (
			p        Post
			kind     string
			postedAt int64
		)
		if err := rows.Scan(&p.PostID, &kind, &p.Matched, &p.Payload, &p.Origin, &postedAt, &p.Delivered); err != nil {
			return nil, ErrQuery.WithDetail("table", "journal_posts").WithCause(err)
		}
		p.Kind = dispatcher.Kind(kind)
		p.PostedAt = time.UnixMicro(postedAt)
		out = append(out, p)
	}
	return out, rows.Err()
}

// Faults returns the latest faults, newest first.
func (j *Journal) Faults(ctx context.Context, limit int) ([]FaultRecord, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit.WithDetail("limit", limit)
	}
	query := j.dialect.rebind(`SELECT post_id, kind, reason, subscription, subscriber, context, error, faulted_at
FROM journal_faults
ORDER BY faulted_at DESC, id DESC
LIMIT ?`)

	rows, err := j.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, ErrQuery.WithDetail("table", "journal_faults").WithCause(err)
	}
	defer func() { _ = rows.Close() }()

	var out []FaultRecord
	for rows.Next() {
		var (
			f         FaultRecord
			kind, cn  string
			faultedAt int64
		)
		if err := rows.Scan(&f.PostID, &kind, &f.Reason, &f.Subscription, &f.Subscriber, &cn, &f.Error, &faultedAt); err != nil {
			return nil, ErrQuery.WithDetail("table", "journal_faults").WithCause(err)
		}
		f.Kind = dispatcher.Kind(kind)
		f.Context = dispatcher.ContextName(cn)
		f.FaultedAt = time.UnixMicro(faultedAt)
		out = append(out, f)
	}
	return out, rows.Err()
}

// Migrations reports the applied schema migrations.
func (j *Journal) Migrations(ctx context.Context) ([]MigrationStatus, error) {
	return newMigrationRunner(j.db, j.dialect).Status(ctx)
}

// Reset drops every journal table and recreates the schema. Records still
// buffered are written first and then lost with the tables.
func (j *Journal) Reset(ctx context.Context) error {
	if err := j.Flush(ctx); err != nil {
		return err
	}
	runner := newMigrationRunner(j.db, j.dialect)
	migrations := schema(j.dialect)
	if err := runner.Rollback(ctx, 0, migrations); err != nil && !errors.Is(err, ErrNoMigrations) {
		return err
	}
	return runner.Migrate(ctx, migrations)
}

func isDispatcherKind(k dispatcher.Kind) bool {
	return k == dispatcher.KindFault || k == dispatcher.KindNoSubscriber
}
