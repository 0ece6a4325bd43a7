package repository

import (
	"context"
	"database/sql"
	"regexp"

	"github.com/rotisserie/eris"

	"github.com/octobees/place-intelligence/internal/entity"
)

// insertPlaceSQLite rewrites the numbered placeholders into SQLite's positional form.
var insertPlaceSQLite = regexp.MustCompile(`\$\d+`).ReplaceAllString(insertPlaceSQL, "?")

// SQLitePlacesRepository reads and replaces the dataset in a local SQLite file.
type SQLitePlacesRepository struct {
	db *sql.DB
}

// NewSQLitePlacesRepository wires a repository over an opened SQLite handle.
func NewSQLitePlacesRepository(db *sql.DB) *SQLitePlacesRepository {
	return &SQLitePlacesRepository{db: db}
}

// LoadPlaces reads every place in dataset order.
func (r *SQLitePlacesRepository) LoadPlaces(ctx context.Context) ([]entity.Place, error) {
	rows, err := r.db.QueryContext(ctx, selectPlacesSQL)
	if err != nil {
		return nil, eris.Wrap(err, "repository: query sqlite places")
	}
	defer rows.Close()

	places := make([]entity.Place, 0)
	for rows.Next() {
		place, err := scanPlace(rows)
		if err != nil {
			return nil, err
		}
		places = append(places, place)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "repository: iterate sqlite places")
	}
	return places, nil
}

// ReplacePlaces swaps the stored dataset for places inside one transaction.
func (r *SQLitePlacesRepository) ReplacePlaces(ctx context.Context, places []entity.Place) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "repository: begin sqlite replace")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM places"); err != nil {
		return 0, eris.Wrap(err, "repository: clear sqlite places")
	}

	stmt, err := tx.PrepareContext(ctx, insertPlaceSQLite)
	if err != nil {
		return 0, eris.Wrap(err, "repository: prepare sqlite insert")
	}
	defer stmt.Close()

	for i, place := range places {
		args, err := placeArgs(i, place)
		if err != nil {
			return 0, err
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return 0, eris.Wrapf(err, "repository: insert place %q", place.ID)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "repository: commit sqlite replace")
	}
	return len(places), nil
}
