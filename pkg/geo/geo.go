// Package geo provides shared geographic primitives used across the
// routing core: locations, bounding boxes, distance, and bearing math.
package geo

import "math"

// EarthRadius is the mean radius of the Earth in meters, used for all
// great-circle calculations in this package.
const EarthRadius = 6371000.0

// Location is a point in WGS84 decimal degrees.
type Location struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}

// BoundingBox is an axis-aligned lat/lon rectangle.
type BoundingBox struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}

// NewBoundingBox returns an empty bounding box suitable for accumulation
// with Extend.
func NewBoundingBox() *BoundingBox {
	return &BoundingBox{
		MinLat: math.Inf(1),
		MinLon: math.Inf(1),
		MaxLat: math.Inf(-1),
		MaxLon: math.Inf(-1),
	}
}

// Extend grows the bounding box to include loc.
func (b *BoundingBox) Extend(loc Location) {
	b.MinLat = math.Min(b.MinLat, loc.Latitude)
	b.MinLon = math.Min(b.MinLon, loc.Longitude)
	b.MaxLat = math.Max(b.MaxLat, loc.Latitude)
	b.MaxLon = math.Max(b.MaxLon, loc.Longitude)
}

// Contains reports whether loc falls within the box.
func (b *BoundingBox) Contains(loc Location) bool {
	return loc.Latitude >= b.MinLat && loc.Latitude <= b.MaxLat &&
		loc.Longitude >= b.MinLon && loc.Longitude <= b.MaxLon
}

// HaversineDistance returns the great-circle distance in meters between
// two WGS84 points.
func HaversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	rLat1 := lat1 * math.Pi / 180
	rLat2 := lat2 * math.Pi / 180
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadius * c
}

// Distance returns the great-circle distance in meters between a and b.
func Distance(a, b Location) float64 {
	return HaversineDistance(a.Latitude, a.Longitude, b.Latitude, b.Longitude)
}

// PathLength sums the great-circle distance between consecutive points.
func PathLength(points []Location) float64 {
	var total float64
	for i := 1; i < len(points); i++ {
		total += Distance(points[i-1], points[i])
	}
	return total
}

// Bearing returns the initial great-circle bearing in degrees [0, 360)
// from a to b.
func Bearing(a, b Location) float64 {
	rLat1 := a.Latitude * math.Pi / 180
	rLat2 := b.Latitude * math.Pi / 180
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180

	y := math.Sin(dLon) * math.Cos(rLat2)
	x := math.Cos(rLat1)*math.Sin(rLat2) - math.Sin(rLat1)*math.Cos(rLat2)*math.Cos(dLon)
	theta := math.Atan2(y, x)

	return math.Mod(theta*180/math.Pi+360, 360)
}

// Destination returns the point reached by travelling distanceM meters
// from origin along bearingDeg (degrees, 0 = north, clockwise).
func Destination(origin Location, bearingDeg, distanceM float64) Location {
	angular := distanceM / EarthRadius
	bearing := bearingDeg * math.Pi / 180
	rLat1 := origin.Latitude * math.Pi / 180
	rLon1 := origin.Longitude * math.Pi / 180

	rLat2 := math.Asin(math.Sin(rLat1)*math.Cos(angular) +
		math.Cos(rLat1)*math.Sin(angular)*math.Cos(bearing))
	rLon2 := rLon1 + math.Atan2(
		math.Sin(bearing)*math.Sin(angular)*math.Cos(rLat1),
		math.Cos(angular)-math.Sin(rLat1)*math.Sin(rLat2))

	return Location{
		Latitude:  rLat2 * 180 / math.Pi,
		Longitude: math.Mod(rLon2*180/math.Pi+540, 360) - 180,
	}
}

// AngleDiff returns the absolute difference between two bearings in
// degrees, in the range [0, 180].
func AngleDiff(a, b float64) float64 {
	d := math.Mod(math.Abs(a-b), 360)
	if d > 180 {
		d = 360 - d
	}
	return d
}

// TurnAngle returns the signed deviation in degrees a rider experiences
// turning from incoming bearing to outgoing bearing: 0 is straight ahead,
// positive is a right-hand turn, negative is left-hand, magnitude is in
// [0, 180].
func TurnAngle(incomingBearing, outgoingBearing float64) float64 {
	d := math.Mod(outgoingBearing-incomingBearing+540, 360) - 180
	return d
}
