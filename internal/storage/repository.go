package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
	// ErrRunNotFound indicates the requested summary run does not exist.
	ErrRunNotFound = errors.New("storage: summary run not found")
)

const (
	insertRunSQL = `INSERT INTO summary_runs (
        ran_at,
        donations_dir,
        total_destinations,
        total_solutions,
        total_estimated_night,
        total_successful,
        total_already_submitted,
        total_failed,
        duplicates_removed,
        summary
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10
    )
    RETURNING id;`

	insertDestinationSQL = `INSERT INTO summary_destinations (
        run_id,
        destination_address,
        total_solutions,
        total_donations,
        already_submitted,
        failed,
        unique_source_addresses,
        unique_donation_ids,
        first_donation,
        last_donation
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10
    );`

	listRecentRunsSQL = `SELECT
        id,
        ran_at,
        donations_dir,
        total_destinations,
        total_solutions,
        total_estimated_night,
        total_successful,
        total_already_submitted,
        total_failed,
        duplicates_removed,
        summary,
        created_at
    FROM summary_runs
    ORDER BY ran_at DESC
    LIMIT $1;`

	getRunSQL = `SELECT
        id,
        ran_at,
        donations_dir,
        total_destinations,
        total_solutions,
        total_estimated_night,
        total_successful,
        total_already_submitted,
        total_failed,
        duplicates_removed,
        summary,
        created_at
    FROM summary_runs
    WHERE id = $1;`

	latestRunSQL = `SELECT
        id,
        ran_at,
        donations_dir,
        total_destinations,
        total_solutions,
        total_estimated_night,
        total_successful,
        total_already_submitted,
        total_failed,
        duplicates_removed,
        summary,
        created_at
    FROM summary_runs
    ORDER BY ran_at DESC
    LIMIT 1;`

	listRunDestinationsSQL = `SELECT
        run_id,
        destination_address,
        total_solutions,
        total_donations,
        already_submitted,
        failed,
        unique_source_addresses,
        unique_donation_ids,
        first_donation,
        last_donation
    FROM summary_destinations
    WHERE run_id = $1
    ORDER BY total_solutions DESC, destination_address;`
)

// SnapshotStore defines operations for summary snapshot persistence.
type SnapshotStore interface {
	InsertRun(ctx context.Context, run SummaryRun, destinations []DestinationRow) (int64, error)
	ListRecentRuns(ctx context.Context, limit int) ([]SummaryRun, error)
	GetRun(ctx context.Context, id int64) (SummaryRun, []DestinationRow, error)
	LatestRun(ctx context.Context) (SummaryRun, error)
}

// Store provides Postgres-backed summary snapshot persistence.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// InsertRun persists a finished summary and its per-destination rows in one
// transaction, returning the new run id.
func (s *Store) InsertRun(ctx context.Context, run SummaryRun, destinations []DestinationRow) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin snapshot tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var id int64
	err = tx.QueryRow(ctx, insertRunSQL,
		run.RanAt,
		run.DonationsDir,
		run.TotalDestinations,
		run.TotalSolutions,
		run.TotalEstimatedNight.String(),
		run.TotalSuccessful,
		run.TotalAlreadySubmitted,
		run.TotalFailed,
		run.DuplicatesRemoved,
		[]byte(run.Summary),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert summary run: %w", err)
	}

	for _, dest := range destinations {
		_, err = tx.Exec(ctx, insertDestinationSQL,
			id,
			dest.DestinationAddress,
			dest.TotalSolutions,
			dest.TotalDonations,
			dest.AlreadySubmitted,
			dest.Failed,
			dest.UniqueSourceAddresses,
			dest.UniqueDonationIDs,
			dest.FirstDonation,
			dest.LastDonation,
		)
		if err != nil {
			return 0, fmt.Errorf("insert destination row: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit snapshot tx: %w", err)
	}
	return id, nil
}

// ListRecentRuns lists persisted runs ordered by descending run time.
func (s *Store) ListRecentRuns(ctx context.Context, limit int) ([]SummaryRun, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentRunsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent runs: %w", queryErr)
	}
	defer rows.Close()

	runs := make([]SummaryRun, 0)
	for rows.Next() {
		run, scanErr := scanSummaryRun(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		runs = append(runs, run)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return runs, nil
}

// GetRun fetches one run and its per-destination breakdown.
func (s *Store) GetRun(ctx context.Context, id int64) (SummaryRun, []DestinationRow, error) {
	pool, err := s.getPool()
	if err != nil {
		return SummaryRun{}, nil, err
	}

	run, scanErr := scanSummaryRun(pool.QueryRow(ctx, getRunSQL, id))
	if scanErr != nil {
		if errors.Is(scanErr, pgx.ErrNoRows) {
			return SummaryRun{}, nil, ErrRunNotFound
		}
		return SummaryRun{}, nil, scanErr
	}

	rows, queryErr := pool.Query(ctx, listRunDestinationsSQL, id)
	if queryErr != nil {
		return SummaryRun{}, nil, fmt.Errorf("list run destinations: %w", queryErr)
	}
	defer rows.Close()

	dests := make([]DestinationRow, 0)
	for rows.Next() {
		var d DestinationRow
		if err := rows.Scan(
			&d.RunID,
			&d.DestinationAddress,
			&d.TotalSolutions,
			&d.TotalDonations,
			&d.AlreadySubmitted,
			&d.Failed,
			&d.UniqueSourceAddresses,
			&d.UniqueDonationIDs,
			&d.FirstDonation,
			&d.LastDonation,
		); err != nil {
			return SummaryRun{}, nil, fmt.Errorf("scan destination row: %w", err)
		}
		dests = append(dests, d)
	}
	if rows.Err() != nil {
		return SummaryRun{}, nil, rows.Err()
	}
	return run, dests, nil
}

// LatestRun fetches the most recently recorded run.
func (s *Store) LatestRun(ctx context.Context) (SummaryRun, error) {
	pool, err := s.getPool()
	if err != nil {
		return SummaryRun{}, err
	}

	run, scanErr := scanSummaryRun(pool.QueryRow(ctx, latestRunSQL))
	if scanErr != nil {
		if errors.Is(scanErr, pgx.ErrNoRows) {
			return SummaryRun{}, ErrRunNotFound
		}
		return SummaryRun{}, scanErr
	}
	return run, nil
}

func scanSummaryRun(row pgx.Row) (SummaryRun, error) {
	var run SummaryRun
	var night string
	if err := row.Scan(
		&run.ID,
		&run.RanAt,
		&run.DonationsDir,
		&run.TotalDestinations,
		&run.TotalSolutions,
		&night,
		&run.TotalSuccessful,
		&run.TotalAlreadySubmitted,
		&run.TotalFailed,
		&run.DuplicatesRemoved,
		&run.Summary,
		&run.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return SummaryRun{}, err
		}
		return SummaryRun{}, fmt.Errorf("scan summary run: %w", err)
	}

	parsed, err := decimal.NewFromString(night)
	if err != nil {
		return SummaryRun{}, fmt.Errorf("parse estimated night: %w", err)
	}
	run.TotalEstimatedNight = parsed
	return run, nil
}

var _ SnapshotStore = (*Store)(nil)
