package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/allisson/ocpi-hub/internal/database"
	apperrors "github.com/allisson/ocpi-hub/internal/errors"
	modulesDomain "github.com/allisson/ocpi-hub/internal/modules/domain"
	"github.com/allisson/ocpi-hub/internal/ocpi"
)

// mysqlDuplicateEntry is the MySQL error number for unique key violations.
const mysqlDuplicateEntry = 1062

// MySQLModuleRepository implements module object persistence for MySQL.
type MySQLModuleRepository struct {
	db        *sql.DB
	txManager database.TxManager
}

// NewMySQLModuleRepository creates a new MySQL module repository.
func NewMySQLModuleRepository(db *sql.DB, txManager database.TxManager) *MySQLModuleRepository {
	return &MySQLModuleRepository{db: db, txManager: txManager}
}

// Get retrieves a module object by key. Returns ErrObjectNotFound if the
// object doesn't exist, or an error if the database query fails.
func (m *MySQLModuleRepository) Get(
	ctx context.Context,
	module ocpi.ModuleID,
	key modulesDomain.Key,
) (*modulesDomain.Object, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT payload, last_updated
			  FROM module_objects
			  WHERE module = ? AND country_code = ? AND party_id = ? AND id = ?`

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
func (m *MySQLModuleRepository) List(
	ctx context.Context,
	module ocpi.ModuleID,
	filters modulesDomain.ListFilters,
) (*modulesDomain.Page, error) {
	querier := database.GetTx(ctx, m.db)

	dateFrom, dateTo := dateWindow(filters)

	countQuery := `SELECT COUNT(*)
				   FROM module_objects
				   WHERE module = ? AND last_updated >= ? AND last_updated < ?`

	var totalCount int
	err := querier.QueryRowContext(ctx, countQuery, string(module), dateFrom, dateTo).Scan(&totalCount)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to count module objects")
	}

	query := `SELECT country_code, party_id, id, payload, last_updated
			  FROM module_objects
			  WHERE module = ? AND last_updated >= ? AND last_updated < ?
			  ORDER BY last_updated, id
			  LIMIT ? OFFSET ?`

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
func (m *MySQLModuleRepository) Create(ctx context.Context, object *modulesDomain.Object) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO module_objects (module, country_code, party_id, id, payload, last_updated)
			  VALUES (?, ?, ?, ?, ?, ?)`

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
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry {
			return modulesDomain.ErrObjectExists
		}
		return apperrors.Wrap(err, "failed to create module object")
	}
	return nil
}

// Put inserts or fully replaces a module object.
func (m *MySQLModuleRepository) Put(ctx context.Context, object *modulesDomain.Object) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO module_objects (module, country_code, party_id, id, payload, last_updated)
			  VALUES (?, ?, ?, ?, ?, ?)
			  ON DUPLICATE KEY UPDATE payload = VALUES(payload), last_updated = VALUES(last_updated)`

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

// Update merges partial into the stored payload inside a transaction with a
// row lock, mirroring the PostgreSQL implementation.
func (m *MySQLModuleRepository) Update(
	ctx context.Context,
	module ocpi.ModuleID,
	key modulesDomain.Key,
	partial json.RawMessage,
) (*modulesDomain.Object, error) {
	var updated *modulesDomain.Object

	err := m.txManager.WithTx(ctx, func(ctx context.Context) error {
		querier := database.GetTx(ctx, m.db)

		query := `SELECT payload
				  FROM module_objects
				  WHERE module = ? AND country_code = ? AND party_id = ? AND id = ?
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
						SET payload = ?, last_updated = ?
						WHERE module = ? AND country_code = ? AND party_id = ? AND id = ?`

		_, err = querier.ExecContext(
			ctx, updateQuery,
			[]byte(merged), lastUpdated,
			string(module), key.CountryCode, key.PartyID, key.ID,
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
func (m *MySQLModuleRepository) Delete(
	ctx context.Context,
	module ocpi.ModuleID,
	key modulesDomain.Key,
) error {
	querier := database.GetTx(ctx, m.db)

	query := `DELETE FROM module_objects
			  WHERE module = ? AND country_code = ? AND party_id = ? AND id = ?`

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
