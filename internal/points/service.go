package points

import (
	"context"
	"errors"
	"fmt"

	"backend-frimining/internal/cycle"
	"backend-frimining/internal/db"
	"backend-frimining/internal/shared/geo"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var (
	ErrInvalidPoint  = errors.New("invalid field point")
	ErrPointNotFound = errors.New("field point not found")
)

const pointColumns = `id, name, kind, mine_code, ST_Y(location::geometry), ST_X(location::geometry),
		       COALESCE(elevation_m,0), COALESCE(created_by::text,''), created_at`

type Service struct {
	db db.Querier
}

func NewService(db db.Querier) *Service {
	return &Service{db: db}
}

func validate(p Point) error {
	if p.Name == "" {
		return fmt.Errorf("%w: name required", ErrInvalidPoint)
	}
	if p.Kind != cycle.KindCollection && p.Kind != cycle.KindStockpile {
		return fmt.Errorf("%w: kind must be %s or %s", ErrInvalidPoint, cycle.KindCollection, cycle.KindStockpile)
	}
	if !geo.ValidCoordinate(p.Lat, p.Lng) {
		return fmt.Errorf("%w: coordinates out of range", ErrInvalidPoint)
	}
	return nil
}

func (s *Service) CreatePoint(ctx context.Context, input Point) (Point, error) {
	if err := validate(input); err != nil {
		return Point{}, err
	}
	input.ID = uuid.NewString()
	row := s.db.QueryRow(ctx, `
		INSERT INTO field_points (id, name, kind, mine_code, location, elevation_m, created_by)
		VALUES ($1,$2,$3,$4, ST_SetSRID(ST_MakePoint($5,$6), 4326)::geography, $7, NULLIF($8,'')::uuid)
		RETURNING created_at
	`, input.ID, input.Name, string(input.Kind), input.MineCode, input.Lng, input.Lat, input.ElevationM, input.CreatedBy)
	if err := row.Scan(&input.CreatedAt); err != nil {
		return Point{}, err
	}
	return input, nil
}

func (s *Service) UpdatePoint(ctx context.Context, id string, patch Point) (Point, error) {
	p, err := s.GetPoint(ctx, id)
	if err != nil {
		return Point{}, err
	}
	if patch.Name != "" {
		p.Name = patch.Name
	}
	if patch.Kind != "" {
		p.Kind = patch.Kind
	}
	if patch.MineCode != "" {
		p.MineCode = patch.MineCode
	}
	if patch.Lat != 0 {
		p.Lat = patch.Lat
	}
	if patch.Lng != 0 {
		p.Lng = patch.Lng
	}
	if patch.ElevationM != 0 {
		p.ElevationM = patch.ElevationM
	}
	if err := validate(p); err != nil {
		return Point{}, err
	}

	_, err = s.db.Exec(ctx, `
		UPDATE field_points
		SET name=$2, kind=$3, mine_code=$4,
		    location=ST_SetSRID(ST_MakePoint($5,$6), 4326)::geography,
		    elevation_m=$7
		WHERE id=$1
	`, p.ID, p.Name, string(p.Kind), p.MineCode, p.Lng, p.Lat, p.ElevationM)
	if err != nil {
		return Point{}, err
	}
	return p, nil
}

// GetPoint returns ErrPointNotFound when no row matches id.
func (s *Service) GetPoint(ctx context.Context, id string) (Point, error) {
	row := s.db.QueryRow(ctx, `SELECT `+pointColumns+` FROM field_points WHERE id=$1`, id)
	p, err := scanPoint(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Point{}, fmt.Errorf("%w: %s", ErrPointNotFound, id)
	}
	return p, err
}

func (s *Service) DeletePoint(ctx context.Context, id string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM field_points WHERE id=$1`, id)
	return err
}

// ListPoints returns the catalog, optionally filtered by kind.
func (s *Service) ListPoints(ctx context.Context, kind cycle.PointKind) ([]Point, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+pointColumns+`
		FROM field_points
		WHERE ($1 = '' OR kind = $1)
		ORDER BY name
	`, string(kind))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows)
}

func (s *Service) Search(ctx context.Context, lat, lng, radiusKm float64) ([]Point, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+pointColumns+`
		FROM field_points
		WHERE ST_DWithin(location, ST_SetSRID(ST_MakePoint($1,$2), 4326)::geography, $3)
		ORDER BY location <-> ST_SetSRID(ST_MakePoint($1,$2), 4326)::geography
	`, lng, lat, radiusKm*1000)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	found, err := collect(rows)
	if err != nil {
		return nil, err
	}
	for i := range found {
		d := geo.HaversineKm(lat, lng, found[i].Lat, found[i].Lng)
		found[i].DistanceKm = &d
	}
	return found, nil
}

func scanPoint(row pgx.Row) (Point, error) {
	var p Point
	var kind string
	if err := row.Scan(&p.ID, &p.Name, &kind, &p.MineCode, &p.Lat, &p.Lng, &p.ElevationM, &p.CreatedBy, &p.CreatedAt); err != nil {
		return Point{}, err
	}
	p.Kind = cycle.PointKind(kind)
	return p, nil
}

func collect(rows pgx.Rows) ([]Point, error) {
	var out []Point
	for rows.Next() {
		p, err := scanPoint(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
