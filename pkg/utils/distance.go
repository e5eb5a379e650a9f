package utils

import (
	"math"
)

const (
	EarthRadiusKm = 6371.0
)

// HaversineDistance calculates the great-circle distance between two points
// in kilometers.
func HaversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	deltaLat := (lat2 - lat1) * math.Pi / 180
	deltaLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusKm * c
}

// PathLengthKm sums the Haversine length of a path given as [lon, lat]
// pairs, the GeoJSON axis order.
func PathLengthKm(path [][2]float64) float64 {
	total := 0.0
	for i := 1; i < len(path); i++ {
		a, b := path[i-1], path[i]
		total += HaversineDistance(a[1], a[0], b[1], b[0])
	}
	return total
}

// CellDimensionsKm returns the north-south height and the east-west width,
// measured along the cell's center latitude, of a latDeg x lonDeg cell.
func CellDimensionsKm(centerLat, latDeg, lonDeg float64) (heightKm, widthKm float64) {
	heightKm = HaversineDistance(centerLat-latDeg/2, 0, centerLat+latDeg/2, 0)
	widthKm = HaversineDistance(centerLat, 0, centerLat, lonDeg)
	return heightKm, widthKm
}
