package points

import (
	"context"
	"errors"
	"testing"
	"time"

	"backend-frimining/internal/cycle"

	"github.com/pashagolub/pgxmock/v3"
)

var pointRowColumns = []string{"id", "name", "kind", "mine_code", "lat", "lng", "elevation_m", "created_by", "created_at"}

func TestPointCRUD(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	createdAt := time.Now()
	mock.ExpectQuery(`INSERT INTO field_points`).
		WithArgs(pgxmock.AnyArg(), "Frente 1", "COLLECTION", "HJT-081", -74.70, 7.08, 820.0, "op-1").
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(createdAt))

	svc := NewService(mock)
	p, err := svc.CreatePoint(context.Background(), Point{
		Name:       "Frente 1",
		Kind:       cycle.KindCollection,
		MineCode:   "HJT-081",
		Lat:        7.08,
		Lng:        -74.70,
		ElevationM: 820,
		CreatedBy:  "op-1",
	})
	if err != nil {
		t.Fatalf("create point: %v", err)
	}
	if p.ID == "" || !p.CreatedAt.Equal(createdAt) {
		t.Fatalf("expected id and created_at")
	}

	mock.ExpectQuery(`SELECT id, name, kind, mine_code, ST_Y\(location::geometry\), ST_X\(location::geometry\)`).
		WithArgs(p.ID).
		WillReturnRows(pgxmock.NewRows(pointRowColumns).
			AddRow(p.ID, p.Name, "COLLECTION", p.MineCode, p.Lat, p.Lng, p.ElevationM, p.CreatedBy, p.CreatedAt))

	loaded, err := svc.GetPoint(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("get point: %v", err)
	}
	if loaded.Kind != cycle.KindCollection {
		t.Fatalf("unexpected kind %q", loaded.Kind)
	}
	ref := loaded.Reference()
	if ref.Kind != cycle.KindCollection || ref.Lat != 7.08 || ref.Label != "Frente 1" {
		t.Fatalf("unexpected reference %+v", ref)
	}

	mock.ExpectQuery(`SELECT id, name, kind, mine_code`).
		WithArgs(p.ID).
		WillReturnRows(pgxmock.NewRows(pointRowColumns).
			AddRow(p.ID, p.Name, "COLLECTION", p.MineCode, p.Lat, p.Lng, p.ElevationM, p.CreatedBy, p.CreatedAt))
	mock.ExpectExec(`UPDATE field_points`).
		WithArgs(p.ID, "Frente 2", "COLLECTION", p.MineCode, p.Lng, p.Lat, p.ElevationM).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	updated, err := svc.UpdatePoint(context.Background(), p.ID, Point{Name: "Frente 2"})
	if err != nil {
		t.Fatalf("update point: %v", err)
	}
	if updated.Name != "Frente 2" {
		t.Fatalf("expected updated name")
	}

	mock.ExpectExec(`DELETE FROM field_points`).WithArgs(p.ID).WillReturnResult(pgxmock.NewResult("DELETE", 1))
	if err := svc.DeletePoint(context.Background(), p.ID); err != nil {
		t.Fatalf("delete point: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreatePointValidation(t *testing.T) {
	svc := NewService(nil)

	cases := []Point{
		{Kind: cycle.KindCollection, Lat: 7, Lng: -74},
		{Name: "x", Kind: "DUMP", Lat: 7, Lng: -74},
		{Name: "x", Kind: cycle.KindStockpile, Lat: 95, Lng: -74},
	}
	for _, c := range cases {
		if _, err := svc.CreatePoint(context.Background(), c); !errors.Is(err, ErrInvalidPoint) {
			t.Fatalf("expected invalid point for %+v, got %v", c, err)
		}
	}
}

func TestGetPointNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(`SELECT id, name, kind`).
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows(pointRowColumns))

	_, err = NewService(mock).GetPoint(context.Background(), "missing")
	if !errors.Is(err, ErrPointNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestListAndSearch(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	now := time.Now()
	mock.ExpectQuery(`FROM field_points\s+WHERE \(\$1 = '' OR kind = \$1\)`).
		WithArgs("STOCKPILE").
		WillReturnRows(pgxmock.NewRows(pointRowColumns).
			AddRow("p-1", "Acopio norte", "STOCKPILE", "", 7.1, -74.7, 0.0, "", now).
			AddRow("p-2", "Acopio sur", "STOCKPILE", "", 7.0, -74.7, 0.0, "", now))

	svc := NewService(mock)
	list, err := svc.ListPoints(context.Background(), cycle.KindStockpile)
	if err != nil || len(list) != 2 {
		t.Fatalf("list points: %v %d", err, len(list))
	}

	mock.ExpectQuery(`ST_DWithin`).
		WithArgs(-74.7, 7.1, 1500.0).
		WillReturnRows(pgxmock.NewRows(pointRowColumns).
			AddRow("p-1", "Acopio norte", "STOCKPILE", "", 7.1, -74.7, 0.0, "", now).
			AddRow("p-3", "Acopio este", "STOCKPILE", "", 7.1, -74.69, 0.0, "", now))

	found, err := svc.Search(context.Background(), 7.1, -74.7, 1.5)
	if err != nil || len(found) != 2 {
		t.Fatalf("search: %v", err)
	}
	if found[0].DistanceKm == nil || *found[0].DistanceKm != 0 {
		t.Fatalf("expected zero distance for p-1, got %v", found[0].DistanceKm)
	}
	if d := *found[1].DistanceKm; d < 1.09 || d > 1.11 {
		t.Fatalf("expected ~1.1 km to p-3, got %v", d)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPointQueryErrors(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	svc := NewService(mock)

	mock.ExpectQuery(`INSERT INTO field_points`).
		WithArgs(pgxmock.AnyArg(), "a", "STOCKPILE", "", 1.0, 1.0, 0.0, "").
		WillReturnError(errPoint)
	if _, err := svc.CreatePoint(context.Background(), Point{Name: "a", Kind: cycle.KindStockpile, Lat: 1, Lng: 1}); err == nil {
		t.Fatalf("expected create error")
	}

	mock.ExpectQuery(`FROM field_points`).WithArgs("").WillReturnError(errPoint)
	if _, err := svc.ListPoints(context.Background(), ""); err == nil {
		t.Fatalf("expected list error")
	}

	mock.ExpectQuery(`ST_DWithin`).WithArgs(0.0, 0.0, 1000.0).WillReturnError(errPoint)
	if _, err := svc.Search(context.Background(), 0, 0, 1); err == nil {
		t.Fatalf("expected search error")
	}

	mock.ExpectExec(`DELETE FROM field_points`).WithArgs("p-1").WillReturnError(errPoint)
	if err := svc.DeletePoint(context.Background(), "p-1"); err == nil {
		t.Fatalf("expected delete error")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

var errPoint = errors.New("point error")
