package utils

import (
	"math"
	"testing"
)

func TestDefaultGridCoordinates(t *testing.T) {
	grid := DefaultGridCoordinates()

	if grid.XSize != 1296000 || grid.YSize != 648000 {
		t.Errorf("unexpected default grid size: %dx%d", grid.XSize, grid.YSize)
	}

	llc := grid.LLC()
	urc := grid.URC()
	if llc.Lon != -180 || llc.Lat != -90 {
		t.Errorf("unexpected lower left corner: %v", llc)
	}
	if math.Abs(urc.Lon-180) > 1e-6 || math.Abs(urc.Lat-90) > 1e-6 {
		t.Errorf("unexpected upper right corner: %v", urc)
	}
}

func TestGridCorners(t *testing.T) {
	grid := GridCoordinates{
		XSize:        100,
		YSize:        50,
		Geotransform: [6]float64{10, 0.5, 0, 20, 0, 0.2},
	}

	if grid.MinLon() != 10 || grid.MaxLon() != 60 {
		t.Errorf("unexpected lon range: %v to %v", grid.MinLon(), grid.MaxLon())
	}
	if grid.MinLat() != 20 || grid.MaxLat() != 30 {
		t.Errorf("unexpected lat range: %v to %v", grid.MinLat(), grid.MaxLat())
	}
}

func TestBBox2Geot(t *testing.T) {
	geot := BBox2Geot(100, 50, []float64{-10, -5, 10, 5})

	if geot[0] != -10 || geot[3] != 5 {
		t.Errorf("unexpected geotransform origin: %v %v", geot[0], geot[3])
	}
	if geot[1] != 0.2 {
		t.Errorf("unexpected pixel width: %v", geot[1])
	}
	if geot[5] != -0.2 {
		t.Errorf("unexpected pixel height: %v", geot[5])
	}
}
