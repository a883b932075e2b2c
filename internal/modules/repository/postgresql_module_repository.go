package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/allisson/ocpi-hub/internal/database"
	apperrors "github.com/allisson/ocpi-hub/internal/errors"
	modulesDomain "github.com/allisson/ocpi-hub/internal/modules/domain"
	"github.com/allisson/ocpi-hub/internal/ocpi"
	"github.com/lib/pq"
)

// PostgreSQLModuleRepository implements module object persistence for
// PostgreSQL. Partial updates run inside a transaction with a row lock via
// database.TxManager so concurrent merges on the same key never interleave.
type PostgreSQLModuleRepository struct {
	db        *sql.DB
	txManager database.TxManager
}

// NewPostgreSQLModuleRepository creates a new PostgreSQL module repository.
func NewPostgreSQLModuleRepository(db *sql.DB, txManager database.TxManager) *PostgreSQLModuleRepository {
	return &PostgreSQLModuleRepository{db: db, txManager: txManager}
}

// Get retrieves a module object by key. Returns ErrObjectNotFound if the
// object doesn't exist, or an error if the database query fails.
func (p *PostgreSQLModuleRepository) Get(
	ctx context.Context,
	module ocpi.ModuleID,
	key modulesDomain.Key,
) (*modulesDomain.Object, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT payload, last_updated
			  FROM module_objects
			  WHERE module = $1 AND country_code = $2 AND party_id = $3 AND id = $4`

	object := modulesDomain.Object{Module: module, Key: key}
	var payload []byte

	err := querier.QueryRowContext(ctx, query, string(module), key.CountryCode, key.PartyID, key.ID).
		Scan(&payload, &object.LastUpdated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, modulesDomain.ErrObjectNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get module object")
	}
	object.Payload = payload

	return &object, nil
}

// List retrieves one page of a module's objects ordered by last_updated then id.
func (p *PostgreSQLModuleRepository) List(
	ctx context.Context,
	module ocpi.ModuleID,
	filters modulesDomain.ListFilters,
) (*modulesDomain.Page, error) {
	querier := database.GetTx(ctx, p.db)

	dateFrom, dateTo := dateWindow(filters)

	countQuery := `SELECT COUNT(*)
				   FROM module_objects
				   WHERE module = $1 AND last_updated >= $2 AND last_updated < $3`

	var totalCount int
	err := querier.QueryRowContext(ctx, countQuery, string(module), dateFrom, dateTo).Scan(&totalCount)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to count module objects")
	}

	query := `SELECT country_code, party_id, id, payload, last_updated
			  FROM module_objects
			  WHERE module = $1 AND last_updated >= $2 AND last_updated < $3
			  ORDER BY last_updated, id
			  LIMIT $4 OFFSET $5`

	rows, err := querier.QueryContext(
		ctx, query, string(module), dateFrom, dateTo, filters.Limit, filters.Offset,
	)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list module objects")
	}
	defer rows.Close()

	items := make([]*modulesDomain.Object, 0, filters.Limit)
	for rows.Next() {
		object := modulesDomain.Object{Module: module}
		var payload []byte

		err := rows.Scan(
			&object.Key.CountryCode,
			&object.Key.PartyID,
			&object.Key.ID,
			&payload,
			&object.LastUpdated,
		)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan module object")
		}
		object.Payload = payload
		items = append(items, &object)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate module objects")
	}

	return &modulesDomain.Page{
		Items:      items,
		TotalCount: totalCount,
		IsLastPage: filters.Offset+len(items) >= totalCount,
	}, nil
}

// Create inserts a new module object. Returns ErrObjectExists on key collision.
func (p *PostgreSQLModuleRepository) Create(ctx context.Context, object *modulesDomain.Object) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO module_objects (module, country_code, party_id, id, payload, last_updated)
			  VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := querier.ExecContext(
		ctx,
		query,
		string(object.Module),
		object.Key.CountryCode,
		object.Key.PartyID,
		object.Key.ID,
		[]byte(object.Payload),
		object.LastUpdated,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return modulesDomain.ErrObjectExists
		}
		return apperrors.Wrap(err, "failed to create module object")
	}
	return nil
}

// Put inserts or fully replaces a module object.
func (p *PostgreSQLModuleRepository) Put(ctx context.Context, object *modulesDomain.Object) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO module_objects (module, country_code, party_id, id, payload, last_updated)
			  VALUES ($1, $2, $3, $4, $5, $6)
			  ON CONFLICT (module, country_code, party_id, id)
			  DO UPDATE SET payload = EXCLUDED.payload, last_updated = EXCLUDED.last_updated`

	_, err := querier.ExecContext(
		ctx,
		query,
		string(object.Module),
		object.Key.CountryCode,
		object.Key.PartyID,
		object.Key.ID,
		[]byte(object.Payload),
		object.LastUpdated,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to put module object")
	}
	return nil
}

// Update merges partial into the stored payload inside a transaction. The row
// is locked with FOR UPDATE so a concurrent merge on the same key waits
// instead of overwriting.
func (p *PostgreSQLModuleRepository) Update(
	ctx context.Context,
	module ocpi.ModuleID,
	key modulesDomain.Key,
	partial json.RawMessage,
) (*modulesDomain.Object, error) {
	var updated *modulesDomain.Object

	err := p.txManager.WithTx(ctx, func(ctx context.Context) error {
		querier := database.GetTx(ctx, p.db)

		query := `SELECT payload
				  FROM module_objects
				  WHERE module = $1 AND country_code = $2 AND party_id = $3 AND id = $4
				  FOR UPDATE`

		var payload []byte
		err := querier.QueryRowContext(ctx, query, string(module), key.CountryCode, key.PartyID, key.ID).
			Scan(&payload)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return modulesDomain.ErrObjectNotFound
			}
			return apperrors.Wrap(err, "failed to lock module object")
		}

		merged, err := modulesDomain.MergePayload(payload, partial)
		if err != nil {
			return modulesDomain.ErrMalformedPayload
		}

		lastUpdated := time.Now().UTC()
		updateQuery := `UPDATE module_objects
						SET payload = $5, last_updated = $6
						WHERE module = $1 AND country_code = $2 AND party_id = $3 AND id = $4`

		_, err = querier.ExecContext(
			ctx, updateQuery,
			string(module), key.CountryCode, key.PartyID, key.ID,
			[]byte(merged), lastUpdated,
		)
		if err != nil {
			return apperrors.Wrap(err, "failed to update module object")
		}

		updated = &modulesDomain.Object{
			Module:      module,
			Key:         key,
			LastUpdated: lastUpdated,
			Payload:     merged,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// Delete removes a module object. Returns ErrObjectNotFound if no row matched.
func (p *PostgreSQLModuleRepository) Delete(
	ctx context.Context,
	module ocpi.ModuleID,
	key modulesDomain.Key,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `DELETE FROM module_objects
			  WHERE module = $1 AND country_code = $2 AND party_id = $3 AND id = $4`

	result, err := querier.ExecContext(ctx, query, string(module), key.CountryCode, key.PartyID, key.ID)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete module object")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to read delete result")
	}
	if affected == 0 {
		return modulesDomain.ErrObjectNotFound
	}
	return nil
}

// dateWindow translates the optional date filters into an inclusive lower and
// exclusive upper bound usable in a single SQL predicate.
func dateWindow(filters modulesDomain.ListFilters) (time.Time, time.Time) {
	dateFrom := time.Time{}
	if filters.DateFrom != nil {
		dateFrom = *filters.DateFrom
	}
	dateTo := time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC)
	if filters.DateTo != nil {
		dateTo = *filters.DateTo
	}
	return dateFrom, dateTo
}
