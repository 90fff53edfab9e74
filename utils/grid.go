package utils

// Point is a lat/lon pair.
type Point struct {
	Lat float64
	Lon float64
}

const defaultPixSize = 1.0 / 3600

// GridCoordinates describes the affine grid of a layer:
// geotransform [origin_x, pixel_w, 0, origin_y, 0, pixel_h] plus the
// grid size in pixels. The corner formulas are origin + pixel*size by
// definition; the sign of the pixel sizes decides which corner the
// origin is.
type GridCoordinates struct {
	XSize        int        `json:"x_size" yaml:"x_size"`
	YSize        int        `json:"y_size" yaml:"y_size"`
	Geotransform [6]float64 `json:"geotransform" yaml:"geotransform"`
}

// DefaultGridCoordinates covers the whole globe at one arc second.
func DefaultGridCoordinates() GridCoordinates {
	return GridCoordinates{
		XSize:        int(360 / defaultPixSize),
		YSize:        int(180 / defaultPixSize),
		Geotransform: [6]float64{-180, defaultPixSize, 0, -90, 0, defaultPixSize},
	}
}

func (g *GridCoordinates) MinLon() float64 {
	return g.Geotransform[0]
}

func (g *GridCoordinates) MaxLon() float64 {
	return g.Geotransform[0] + g.Geotransform[1]*float64(g.XSize)
}

func (g *GridCoordinates) MinLat() float64 {
	return g.Geotransform[3]
}

func (g *GridCoordinates) MaxLat() float64 {
	return g.Geotransform[3] + g.Geotransform[5]*float64(g.YSize)
}

// LLC is the lower-left corner of the grid.
func (g *GridCoordinates) LLC() Point {
	return Point{Lat: g.MinLat(), Lon: g.MinLon()}
}

// URC is the upper-right corner of the grid.
func (g *GridCoordinates) URC() Point {
	return Point{Lat: g.MaxLat(), Lon: g.MaxLon()}
}

// BBox2Geot returns the geotransform corresponding to a request bbox
// rendered at the given pixel size.
func BBox2Geot(width, height int, bbox []float64) []float64 {
	return []float64{bbox[0], (bbox[2] - bbox[0]) / float64(width), 0, bbox[3], 0, (bbox[1] - bbox[3]) / float64(height)}
}
