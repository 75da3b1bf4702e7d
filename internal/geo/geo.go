// Package geo расстояния между координатами для подбора ближайших аптек.
package geo

import "math"

// EarthRadiusKm средний радиус Земли
const EarthRadiusKm = 6371.0

// Point географическая координата в градусах
type Point struct {
	Lat float64 `json:"latitude"`
	Lon float64 `json:"longitude"`
}

// Valid проверяет диапазоны широты и долготы
func (p Point) Valid() bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lon) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

// PointOr собирает точку из nullable координат, при отсутствии любой из них возвращает fallback
func PointOr(lat, lon *float64, fallback Point) Point {
	if lat == nil || lon == nil {
		return fallback
	}
	return Point{Lat: *lat, Lon: *lon}
}

// Distance расстояние по большой окружности (haversine), км
func Distance(a, b Point) float64 {
	dLat := radians(b.Lat - a.Lat)
	dLon := radians(b.Lon - a.Lon)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(a.Lat))*math.Cos(radians(b.Lat))*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadiusKm * c
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }
