// Package sqlarchive batches validated ticks into a SQL database for
// durable storage, generalizing original_source's ClickHouseConfig to a
// plain SQL sink since no ClickHouse driver is present in the example
// pack (SPEC_FULL.md §B, §C).
package sqlarchive

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ctpmd/gateway"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Sink buffers ticks in memory and flushes them to the database in
// batches of BatchSize, or after FlushInterval elapses, whichever comes
// first.
type Sink struct {
	db            *sqlx.DB
	batchSize     int
	flushInterval time.Duration

	mu      sync.Mutex
	pending []*gateway.Tick
	stop    chan struct{}
	done    chan struct{}
}

// New opens a connection to dsn (a postgres connection string) and
// starts the background flush loop.
func New(cfg gateway.ArchiveConfig) (*Sink, error) {
	db, err := sqlx.Connect("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("connect archive database: %w", err)
	}

	s := &Sink{
		db:            db,
		batchSize:     cfg.BatchSize,
		flushInterval: cfg.FlushInterval,
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}
	go s.run()
	return s, nil
}

// Append queues t for the next flush, forcing an immediate flush if the
// batch has reached BatchSize.
func (s *Sink) Append(t *gateway.Tick) {
	s.mu.Lock()
	s.pending = append(s.pending, t)
	shouldFlush := len(s.pending) >= s.batchSize
	s.mu.Unlock()

	if shouldFlush {
		s.flush()
	}
}

func (s *Sink) run() {
	defer close(s.done)
	ticker := time.NewTicker(s.flushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			s.flush()
			return
		case <-ticker.C:
			s.flush()
		}
	}
}

func (s *Sink) flush() {
	s.mu.Lock()
	batch := s.pending
	s.pending = nil
	s.mu.Unlock()

	if len(batch) == 0 {
		return
	}

	const insert = `INSERT INTO ticks
		(symbol, exchange, ts, last_price, volume, turnover, open_interest,
		 bid_price_1, bid_volume_1, ask_price_1, ask_volume_1, gateway_name)
		VALUES (:symbol, :exchange, :ts, :last_price, :volume, :turnover, :open_interest,
		        :bid_price_1, :bid_volume_1, :ask_price_1, :ask_volume_1, :gateway_name)`

	rows := make([]tickRow, 0, len(batch))
	for _, t := range batch {
		rows = append(rows, newTickRow(t))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if _, err := s.db.NamedExecContext(ctx, insert, rows); err != nil {
		// Best-effort archive: a failed batch is dropped rather than
		// retried indefinitely and blocking the dispatch loop's caller.
		return
	}
}

// Close stops the flush loop, flushing any pending batch, and closes
// the database connection.
func (s *Sink) Close() error {
	close(s.stop)
	<-s.done
	return s.db.Close()
}

type tickRow struct {
	Symbol       string    `db:"symbol"`
	Exchange     string    `db:"exchange"`
	Timestamp    time.Time `db:"ts"`
	LastPrice    string    `db:"last_price"`
	Volume       int64     `db:"volume"`
	Turnover     string    `db:"turnover"`
	OpenInterest int64     `db:"open_interest"`
	BidPrice1    string    `db:"bid_price_1"`
	BidVolume1   int64     `db:"bid_volume_1"`
	AskPrice1    string    `db:"ask_price_1"`
	AskVolume1   int64     `db:"ask_volume_1"`
	GatewayName  string    `db:"gateway_name"`
}

func newTickRow(t *gateway.Tick) tickRow {
	return tickRow{
		Symbol:       t.Symbol,
		Exchange:     t.Exchange,
		Timestamp:    t.Timestamp,
		LastPrice:    t.LastPrice.String(),
		Volume:       t.Volume,
		Turnover:     t.Turnover.String(),
		OpenInterest: t.OpenInterest,
		BidPrice1:    t.BidPrice1.String(),
		BidVolume1:   t.BidVolume1,
		AskPrice1:    t.AskPrice1.String(),
		AskVolume1:   t.AskVolume1,
		GatewayName:  t.GatewayName,
	}
}
