package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/phrazzld/taskwatch/internal/domain"
	"github.com/phrazzld/taskwatch/internal/platform/logger"
	"github.com/phrazzld/taskwatch/internal/store"
)

// PostgresBillStore implements the store.BillStore interface
// using a PostgreSQL database as the storage backend.
type PostgresBillStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresBillStore creates a new PostgreSQL implementation of the BillStore interface.
func NewPostgresBillStore(db store.DBTX, logger *slog.Logger) *PostgresBillStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresBillStore{
		db:     db,
		logger: logger.With(slog.String("component", "bill_store")),
	}
}

var _ store.BillStore = (*PostgresBillStore)(nil)

// WithTx implements store.BillStore.WithTx.
func (s *PostgresBillStore) WithTx(tx *sql.Tx) store.BillStore {
	return &PostgresBillStore{db: tx, logger: s.logger}
}

// Create implements store.BillStore.Create.
func (s *PostgresBillStore) Create(ctx context.Context, entry *domain.BillEntry) (*domain.BillEntry, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := entry.Validate(); err != nil {
		log.Warn("bill entry validation failed during create", slog.String("error", err.Error()))
		return nil, err
	}

	query := `
		INSERT INTO bills (date, type, amount, description, time)
		VALUES ($1::date, $2, $3::numeric, $4, $5)
		RETURNING id, created_at
	`
	created := *entry
	err := s.db.QueryRowContext(ctx, query,
		entry.Date,
		entry.Type,
		entry.Amount.String(),
		entry.Description,
		entry.Time.String(),
	).Scan(&created.ID, &created.CreatedAt)
	if err != nil {
		log.Error("failed to create bill entry",
			slog.String("date", entry.Date),
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}

	log.Debug("bill entry created",
		slog.Int64("bill_id", created.ID),
		slog.String("type", string(created.Type)))
	return &created, nil
}

// ListByDate implements store.BillStore.ListByDate.
func (s *PostgresBillStore) ListByDate(ctx context.Context, date string) ([]*domain.BillEntry, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, date::text, type, amount::text, description, time, created_at
		FROM bills
		WHERE date = $1::date
		ORDER BY time, id
	`
	rows, err := s.db.QueryContext(ctx, query, date)
	if err != nil {
		log.Error("failed to query bills", slog.String("date", date), slog.String("error", err.Error()))
		return nil, store.NewStoreError("bill", "list_by_date", "database error", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	entries := []*domain.BillEntry{}
	for rows.Next() {
		var (
			entry    domain.BillEntry
			billType string
			amount   string
			at       string
		)
		if err := rows.Scan(&entry.ID, &entry.Date, &billType, &amount, &entry.Description, &at, &entry.CreatedAt); err != nil {
			return nil, store.NewStoreError("bill", "list_by_date", "scan failed", err)
		}
		entry.Type = domain.BillType(billType)
		cents, err := domain.ParseMoney(amount)
		if err != nil {
			return nil, fmt.Errorf("bill %d has corrupt amount %q: %w", entry.ID, amount, err)
		}
		entry.Amount = cents
		tod, err := domain.ParseTimeOfDay(at)
		if err != nil {
			return nil, fmt.Errorf("bill %d has corrupt time %q: %w", entry.ID, at, err)
		}
		entry.Time = tod
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("bill", "list_by_date", "row iteration failed", err)
	}

	return entries, nil
}
