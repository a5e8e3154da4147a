package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/nearme/internal/core/domain"
	"github.com/samirrijal/nearme/internal/core/ports"
	"github.com/samirrijal/nearme/internal/pkg/geospatial"
)

var _ ports.PlaceRepository = (*PlaceRepo)(nil)

// PlaceRepo implements ports.PlaceRepository on a PostGIS places table. It
// serves as a search gateway for deployments with their own POI data.
type PlaceRepo struct {
	db    *DB
	limit int
}

// NewPlaceRepo creates a PlaceRepo returning at most limit rows per search.
func NewPlaceRepo(db *DB, limit int) *PlaceRepo {
	if limit <= 0 {
		limit = 25
	}
	return &PlaceRepo{db: db, limit: limit}
}

const searchPlacesSQL = `
	SELECT external_id, name, phone, category_code, thoroughfare, locality,
	       administrative_area, postal_code, url,
	       ST_Y(location::geometry) AS lat,
	       ST_X(location::geometry) AS lon
	FROM places
	WHERE location::geometry && ST_MakeEnvelope($2, $3, $4, $5, 4326)
	  AND (name ILIKE '%' || $1 || '%' OR category_code ILIKE $1 OR similarity(name, $1) > 0.3)
	ORDER BY similarity(name, $1) DESC,
	         ST_Distance(location, ST_SetSRID(ST_MakePoint($6, $7), 4326)::geography)
	LIMIT $8
`

// Search returns places inside region whose name or category matches query.
func (r *PlaceRepo) Search(ctx context.Context, query string, region domain.Region) ([]domain.RawPlace, error) {
	b := geospatial.RegionBound(region)
	rows, err := r.db.Pool.Query(ctx, searchPlacesSQL,
		escapeLike(query),
		b.Min.Lon(), b.Min.Lat(), b.Max.Lon(), b.Max.Lat(),
		region.Center.Lon, region.Center.Lat,
		r.limit,
	)
	if err != nil {
		return nil, fmt.Errorf("search places: %w", err)
	}
	defer rows.Close()

	var places []domain.RawPlace
	for rows.Next() {
		var p domain.RawPlace
		var loc domain.GeoPoint
		if err := rows.Scan(
			&p.ExternalID, &p.Name, &p.Phone, &p.CategoryCode, &p.Thoroughfare, &p.Locality,
			&p.AdministrativeArea, &p.PostalCode, &p.URL,
			&loc.Lat, &loc.Lon,
		); err != nil {
			return nil, fmt.Errorf("scan place: %w", err)
		}
		p.Location = &loc
		places = append(places, p)
	}
	return places, rows.Err()
}

const upsertPlaceSQL = `
	INSERT INTO places (source, external_id, name, phone, category_code, thoroughfare, locality,
	                    administrative_area, postal_code, url, location, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
	        ST_SetSRID(ST_MakePoint($11, $12), 4326)::geography, now())
	ON CONFLICT (source, external_id) DO UPDATE
	SET name = EXCLUDED.name, phone = EXCLUDED.phone,
	    category_code = EXCLUDED.category_code,
	    thoroughfare = EXCLUDED.thoroughfare, locality = EXCLUDED.locality,
	    administrative_area = EXCLUDED.administrative_area,
	    postal_code = EXCLUDED.postal_code, url = EXCLUDED.url,
	    location = EXCLUDED.location, updated_at = now()
`

// UpsertBatch inserts or updates places from source using pgx.Batch. Places
// without a location are skipped; places without an external id get one
// derived from their name and coordinate.
func (r *PlaceRepo) UpsertBatch(ctx context.Context, places []domain.RawPlace, source string) error {
	batch := &pgx.Batch{}
	for _, p := range places {
		if p.Location == nil {
			continue
		}
		batch.Queue(upsertPlaceSQL,
			source, externalID(p), p.Name, p.Phone, p.CategoryCode, p.Thoroughfare, p.Locality,
			p.AdministrativeArea, p.PostalCode, p.URL,
			p.Location.Lon, p.Location.Lat,
		)
	}
	if batch.Len() == 0 {
		return nil
	}

	br := r.db.Pool.SendBatch(ctx, batch)
	defer br.Close()
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("batch exec: %w", err)
		}
	}
	return nil
}

func externalID(p domain.RawPlace) string {
	if p.ExternalID != "" {
		return p.ExternalID
	}
	return fmt.Sprintf("%s@%.6f,%.6f", strings.ToLower(strings.TrimSpace(p.Name)), p.Location.Lat, p.Location.Lon)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
