// Command replay rebuilds training features from a historical transaction log.
//
// It walks the log in timestamp order, computes every feature as of each
// transaction's own timestamp, and writes one feature row per transaction.
// Rows go to a CSV file, and optionally to the feature_rows table when -db
// is set and DATABASE_URL is configured.
//
// Usage:
//
//	go run ./cmd/replay -input transactions.csv -output features.csv
//	go run ./cmd/replay -input transactions.csv -output features.csv -db
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/paylens/paylens/internal/feature"
	"github.com/paylens/paylens/internal/logging"
	"github.com/paylens/paylens/internal/metrics"
	"github.com/paylens/paylens/internal/transaction"
)

// countingSink wraps a sink and counts emitted rows in Prometheus.
type countingSink struct {
	inner feature.RowSink
}

func (c countingSink) WriteRow(ctx context.Context, row feature.FeatureRow) error {
	if err := c.inner.WriteRow(ctx, row); err != nil {
		return err
	}
	metrics.ReplayRowsTotal.Inc()
	return nil
}

func main() {
	var (
		inputPath  = flag.String("input", "", "transaction log CSV (default stdin)")
		outputPath = flag.String("output", "", "feature CSV output (default stdout)")
		toDB       = flag.Bool("db", false, "also persist rows to feature_rows (requires DATABASE_URL)")
		logLevel   = flag.String("log-level", "info", "log level")
	)
	flag.Parse()

	_ = godotenv.Load()
	logger := logging.New(*logLevel, "text")
	ctx := context.Background()

	// Input
	var in io.Reader = os.Stdin
	if *inputPath != "" {
		f, err := os.Open(*inputPath)
		if err != nil {
			logger.Error("failed to open input", "error", err)
			os.Exit(1)
		}
		defer func() { _ = f.Close() }()
		in = f
	}

	events, err := transaction.ReadLog(in)
	if err != nil {
		logger.Error("failed to read transaction log", "error", err)
		os.Exit(1)
	}
	logger.Info("transaction log loaded", "events", len(events))

	// Output
	var out io.Writer = os.Stdout
	if *outputPath != "" {
		f, err := os.Create(*outputPath)
		if err != nil {
			logger.Error("failed to create output", "error", err)
			os.Exit(1)
		}
		defer func() { _ = f.Close() }()
		out = f
	}

	schema := feature.DefaultSchema()
	csvSink := feature.NewCSVSink(out, schema)
	var sink feature.RowSink = csvSink

	var db *sql.DB
	if *toDB {
		dbURL := os.Getenv("DATABASE_URL")
		if dbURL == "" {
			logger.Error("-db requires DATABASE_URL")
			os.Exit(1)
		}
		db, err = sql.Open("postgres", dbURL)
		if err != nil {
			logger.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer func() { _ = db.Close() }()
		if err := db.PingContext(ctx); err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		sink = feature.MultiSink{csvSink, feature.NewPostgresSink(db)}
	}

	driver := feature.NewReplayDriver(feature.NewAssembler(feature.NewMemoryStore()), logger)
	if err := driver.Replay(ctx, events, countingSink{inner: sink}); err != nil {
		logger.Error("replay failed", "error", err)
		os.Exit(1)
	}
	if err := csvSink.Flush(); err != nil {
		logger.Error("failed to flush output", "error", err)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "wrote %d feature rows\n", len(events))
}
