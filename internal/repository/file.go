package repository

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/octobees/place-intelligence/internal/entity"
)

// CSVValidationError indicates that the provided CSV payload is invalid.
type CSVValidationError struct {
	Message string
}

// Error implements the error interface.
func (e CSVValidationError) Error() string {
	return e.Message
}

// NewFileSource picks a loader by file extension.
func NewFileSource(path string) (PlacesSource, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return JSONFileSource{Path: path}, nil
	case ".csv":
		return CSVFileSource{Path: path}, nil
	default:
		return nil, eris.Errorf("repository: unsupported dataset file %q", path)
	}
}

// JSONFileSource loads places from a JSON array, or from an object with a
// "places" array.
type JSONFileSource struct {
	Path string
}

// LoadPlaces reads the file. Records that fail to decode are skipped.
func (s JSONFileSource) LoadPlaces(_ context.Context) ([]entity.Place, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, eris.Wrapf(err, "repository: read dataset %s", s.Path)
	}
	return DecodePlacesJSON(data)
}

// DecodePlacesJSON decodes a dataset document.
func DecodePlacesJSON(data []byte) ([]entity.Place, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, eris.New("repository: dataset is empty")
	}

	var records []json.RawMessage
	if data[0] == '{' {
		var wrapped struct {
			Places []json.RawMessage `json:"places"`
		}
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return nil, eris.Wrap(err, "repository: decode dataset")
		}
		records = wrapped.Places
	} else if err := json.Unmarshal(data, &records); err != nil {
		return nil, eris.Wrap(err, "repository: decode dataset")
	}

	places := make([]entity.Place, 0, len(records))
	for i, raw := range records {
		var place entity.Place
		if err := json.Unmarshal(raw, &place); err != nil {
			zap.L().Warn("skipping malformed place record", zap.Int("index", i), zap.Error(err))
			continue
		}
		places = append(places, place)
	}
	return places, nil
}

// CSVFileSource loads places from a CSV export with a header row. Only the
// name column is required; list columns are separated by "|".
type CSVFileSource struct {
	Path string
}

// LoadPlaces reads the file.
func (s CSVFileSource) LoadPlaces(_ context.Context) ([]entity.Place, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, eris.Wrapf(err, "repository: open dataset %s", s.Path)
	}
	defer f.Close()
	return DecodePlacesCSV(f)
}

var requiredCSVHeaders = []string{"name"}

// DecodePlacesCSV parses a CSV dataset. Rows without a name are skipped;
// malformed numbers fail the whole import with a CSVValidationError.
func DecodePlacesCSV(r io.Reader) ([]entity.Place, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, CSVValidationError{Message: "csv file is empty"}
		}
		return nil, eris.Wrap(err, "repository: read csv header")
	}

	index, err := buildHeaderIndex(header)
	if err != nil {
		return nil, err
	}

	var (
		places = make([]entity.Place, 0)
		rowNum = 1
	)

	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "repository: read csv row")
		}
		rowNum++

		col := func(name string) string {
			i, ok := index[name]
			if !ok || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}

		name := col("name")
		if name == "" {
			continue
		}

		place := entity.Place{
			ID:               col("place_id"),
			Name:             name,
			Types:            splitList(col("types")),
			BusinessStatus:   entity.ParseBusinessStatus(col("business_status")),
			Address:          col("address"),
			FormattedAddress: col("formatted_address"),
			Phone:            col("phone"),
			Website:          col("website"),
			MapURL:           col("google_url"),
			EditorialSummary: col("editorial_summary"),
			KnownFor:         col("known_for"),
			Cuisines:         splitList(col("cuisines")),
			PhotoURL:         normalizeString(col("photo_url")),
			OpeningHours:     entity.SplitOpeningHours(col("opening_hours")),
			ExternalSources:  splitList(col("external_sources")),
		}

		floats := map[string]**float64{"rating": &place.Rating, "lat": &place.Lat, "lng": &place.Lng}
		for column, dst := range floats {
			v, err := parseOptionalFloat(col(column))
			if err != nil {
				return nil, CSVValidationError{Message: fmt.Sprintf("invalid %s value on row %d", column, rowNum)}
			}
			*dst = v
		}

		ints := map[string]**int{"price_level": &place.PriceLevel, "cost_for_two": &place.CostForTwo}
		for column, dst := range ints {
			v, err := parseOptionalInt(col(column))
			if err != nil {
				return nil, CSVValidationError{Message: fmt.Sprintf("invalid %s value on row %d", column, rowNum)}
			}
			*dst = v
		}

		reviews, err := parseOptionalInt(col("user_ratings_total"))
		if err != nil {
			return nil, CSVValidationError{Message: fmt.Sprintf("invalid user_ratings_total value on row %d", rowNum)}
		}
		if reviews != nil {
			place.ReviewCount = *reviews
		}

		if raw := col("open_now"); raw != "" {
			open, err := strconv.ParseBool(raw)
			if err != nil {
				return nil, CSVValidationError{Message: fmt.Sprintf("invalid open_now value on row %d", rowNum)}
			}
			place.OpenNow = &open
		}

		places = append(places, place)
	}

	return places, nil
}

func buildHeaderIndex(header []string) (map[string]int, error) {
	index := make(map[string]int)
	for i, col := range header {
		index[strings.ToLower(strings.TrimSpace(col))] = i
	}

	missing := make([]string, 0)
	for _, required := range requiredCSVHeaders {
		if _, ok := index[required]; !ok {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		return nil, CSVValidationError{Message: fmt.Sprintf("missing required columns: %s", strings.Join(missing, ", "))}
	}
	return index, nil
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	out := make([]string, 0)
	for _, part := range strings.Split(value, "|") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseOptionalFloat(value string) (*float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func parseOptionalInt(value string) (*int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return nil, err
	}
	return &i, nil
}

func normalizeString(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
