package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/octobees/place-intelligence/internal/entity"
)

// PlacesSource loads the full place dataset once at start-up.
type PlacesSource interface {
	LoadPlaces(ctx context.Context) ([]entity.Place, error)
}

// PlacesWriter replaces the stored dataset.
type PlacesWriter interface {
	ReplacePlaces(ctx context.Context, places []entity.Place) (int, error)
}

type pgxPool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

var _ pgxPool = (*pgxpool.Pool)(nil)

const selectPlacesSQL = `
        SELECT
            place_id,
            name,
            lat,
            lng,
            rating,
            user_ratings_total,
            price_level,
            business_status,
            open_now,
            address,
            formatted_address,
            phone,
            website,
            google_url,
            editorial_summary,
            known_for,
            cost_for_two,
            photo_url,
            attributes
        FROM places
        ORDER BY position ASC, name ASC
    `

const insertPlaceSQL = `
        INSERT INTO places (
            place_id, position, name, lat, lng, rating, user_ratings_total, price_level,
            business_status, open_now, address, formatted_address, phone, website, google_url,
            editorial_summary, known_for, cost_for_two, photo_url, attributes
        ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)
    `

// placeAttributes holds the list and map valued fields stored as one JSON document.
type placeAttributes struct {
	Types            []string                       `json:"types,omitempty"`
	Cuisines         []string                       `json:"cuisines,omitempty"`
	ExternalSources  []string                       `json:"external_sources,omitempty"`
	OpeningHours     entity.OpeningHours            `json:"opening_hours,omitempty"`
	SecondaryRatings map[string]entity.SourceRating `json:"secondary_ratings,omitempty"`
	Reviews          []entity.Review                `json:"reviews,omitempty"`
}

// PGXPlacesRepository reads and replaces the dataset in PostgreSQL.
type PGXPlacesRepository struct {
	pool pgxPool
}

// NewPGXPlacesRepository wires a pgx backed repository.
func NewPGXPlacesRepository(pool pgxPool) *PGXPlacesRepository {
	return &PGXPlacesRepository{pool: pool}
}

// LoadPlaces reads every place in dataset order.
func (r *PGXPlacesRepository) LoadPlaces(ctx context.Context) ([]entity.Place, error) {
	rows, err := r.pool.Query(ctx, selectPlacesSQL)
	if err != nil {
		return nil, eris.Wrap(err, "repository: query places")
	}
	defer rows.Close()

	return scanPlaces(rows)
}

// ReplacePlaces swaps the stored dataset for places inside one transaction.
func (r *PGXPlacesRepository) ReplacePlaces(ctx context.Context, places []entity.Place) (int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "repository: begin replace places")
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DELETE FROM places"); err != nil {
		return 0, eris.Wrap(err, "repository: clear places")
	}

	for i, place := range places {
		args, err := placeArgs(i, place)
		if err != nil {
			return 0, err
		}
		if _, err := tx.Exec(ctx, insertPlaceSQL, args...); err != nil {
			return 0, eris.Wrapf(err, "repository: insert place %q", place.ID)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "repository: commit replace places")
	}
	return len(places), nil
}

func scanPlaces(rows pgx.Rows) ([]entity.Place, error) {
	places := make([]entity.Place, 0)
	for rows.Next() {
		place, err := scanPlace(rows)
		if err != nil {
			return nil, err
		}
		places = append(places, place)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "repository: iterate places")
	}
	return places, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlace(row rowScanner) (entity.Place, error) {
	var (
		place            entity.Place
		lat, lng, rating sql.NullFloat64
		reviewCount      sql.NullInt64
		priceLevel       sql.NullInt64
		businessStatus   sql.NullString
		openNow          sql.NullBool
		address          sql.NullString
		formatted        sql.NullString
		phone            sql.NullString
		website          sql.NullString
		mapURL           sql.NullString
		summary          sql.NullString
		knownFor         sql.NullString
		costForTwo       sql.NullInt64
		photoURL         sql.NullString
		attributes       []byte
	)

	if err := row.Scan(
		&place.ID,
		&place.Name,
		&lat,
		&lng,
		&rating,
		&reviewCount,
		&priceLevel,
		&businessStatus,
		&openNow,
		&address,
		&formatted,
		&phone,
		&website,
		&mapURL,
		&summary,
		&knownFor,
		&costForTwo,
		&photoURL,
		&attributes,
	); err != nil {
		return entity.Place{}, eris.Wrap(err, "repository: scan place")
	}

	place.Lat = floatPtr(lat)
	place.Lng = floatPtr(lng)
	place.Rating = floatPtr(rating)
	place.ReviewCount = int(reviewCount.Int64)
	place.PriceLevel = intPtr(priceLevel)
	place.BusinessStatus = entity.ParseBusinessStatus(businessStatus.String)
	if openNow.Valid {
		v := openNow.Bool
		place.OpenNow = &v
	}
	place.Address = address.String
	place.FormattedAddress = formatted.String
	place.Phone = phone.String
	place.Website = website.String
	place.MapURL = mapURL.String
	place.EditorialSummary = summary.String
	place.KnownFor = knownFor.String
	place.CostForTwo = intPtr(costForTwo)
	if photoURL.Valid && photoURL.String != "" {
		v := photoURL.String
		place.PhotoURL = &v
	}

	if len(attributes) > 0 {
		var attrs placeAttributes
		if err := json.Unmarshal(attributes, &attrs); err != nil {
			zap.L().Warn("ignoring malformed place attributes", zap.String("place_id", place.ID), zap.Error(err))
		} else {
			place.Types = attrs.Types
			place.Cuisines = attrs.Cuisines
			place.ExternalSources = attrs.ExternalSources
			place.OpeningHours = attrs.OpeningHours
			place.SecondaryRatings = attrs.SecondaryRatings
			place.Reviews = attrs.Reviews
		}
	}

	return place, nil
}

func placeArgs(position int, p entity.Place) ([]any, error) {
	attributes, err := json.Marshal(placeAttributes{
		Types:            p.Types,
		Cuisines:         p.Cuisines,
		ExternalSources:  p.ExternalSources,
		OpeningHours:     p.OpeningHours,
		SecondaryRatings: p.SecondaryRatings,
		Reviews:          p.Reviews,
	})
	if err != nil {
		return nil, eris.Wrapf(err, "repository: encode attributes of %q", p.ID)
	}

	return []any{
		p.ID,
		position,
		p.Name,
		floatOrNil(p.Lat),
		floatOrNil(p.Lng),
		floatOrNil(p.Rating),
		p.ReviewCount,
		intOrNil(p.PriceLevel),
		stringOrNil(string(p.BusinessStatus)),
		boolOrNil(p.OpenNow),
		stringOrNil(p.Address),
		stringOrNil(p.FormattedAddress),
		stringOrNil(p.Phone),
		stringOrNil(p.Website),
		stringOrNil(p.MapURL),
		stringOrNil(p.EditorialSummary),
		stringOrNil(p.KnownFor),
		intOrNil(p.CostForTwo),
		stringPtrOrNil(p.PhotoURL),
		string(attributes),
	}, nil
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}

func stringOrNil(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func stringPtrOrNil(value *string) any {
	if value == nil {
		return nil
	}
	return stringOrNil(*value)
}

func floatOrNil(value *float64) any {
	if value == nil {
		return nil
	}
	return *value
}

func intOrNil(value *int) any {
	if value == nil {
		return nil
	}
	return *value
}

func boolOrNil(value *bool) any {
	if value == nil {
		return nil
	}
	return *value
}
