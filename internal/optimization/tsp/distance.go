package tsp

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Point is a location in the plane, or a latitude (X) and longitude (Y) in
// degrees for Geodesic.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Metric is the distance between two points.
type Metric func(a, b Point) float64

// Distance returns the matrix of pairwise distances under m with the
// diagonal set to sentinel.
func Distance(points []Point, m Metric, sentinel float64) *mat.Dense {
	n := len(points)
	if n == 0 {
		return nil
	}
	if sentinel <= 0 {
		sentinel = DefaultSentinel
	}
	d := mat.NewDense(n, n, nil)
	for i := range points {
		for j := range points {
			if i == j {
				d.Set(i, j, sentinel)
				continue
			}
			d.Set(i, j, m(points[i], points[j]))
		}
	}
	return d
}

// Euclidean is the straight line distance.
func Euclidean(a, b Point) float64 {
	return floats.Distance([]float64{a.X, a.Y}, []float64{b.X, b.Y}, 2)
}

// WGS-84 ellipsoid.
const (
	wgs84A = 6378137.0
	wgs84F = 1 / 298.257223563
	wgs84B = wgs84A * (1 - wgs84F)

	vincentyTolerance  = 1e-12
	vincentyIterations = 200
)

// Geodesic returns a metric measuring the ellipsoidal distance between two
// latitude/longitude points with Vincenty's inverse formula, in metres
// divided by unit. A non-positive unit selects kilometres. Coincident points
// and pairs where the iteration does not converge measure 0.
func Geodesic(unit float64) Metric {
	if unit <= 0 {
		unit = 1e3
	}
	return func(a, b Point) float64 {
		return vincenty(a, b) / unit
	}
}

func vincenty(a, b Point) float64 {
	rad := math.Pi / 180
	l := (b.Y - a.Y) * rad
	u1 := math.Atan((1 - wgs84F) * math.Tan(a.X*rad))
	u2 := math.Atan((1 - wgs84F) * math.Tan(b.X*rad))
	sinU1, cosU1 := math.Sincos(u1)
	sinU2, cosU2 := math.Sincos(u2)

	lambda := l
	var sinSigma, cosSigma, sigma, cosSqAlpha, cos2SigmaM float64
	converged := false
	for i := 0; i < vincentyIterations; i++ {
		sinLambda, cosLambda := math.Sincos(lambda)
		sinSigma = math.Sqrt((cosU2*sinLambda)*(cosU2*sinLambda) +
			(cosU1*sinU2-sinU1*cosU2*cosLambda)*(cosU1*sinU2-sinU1*cosU2*cosLambda))
		if sinSigma == 0 {
			return 0
		}
		cosSigma = sinU1*sinU2 + cosU1*cosU2*cosLambda
		sigma = math.Atan2(sinSigma, cosSigma)
		sinAlpha := cosU1 * cosU2 * sinLambda / sinSigma
		cosSqAlpha = 1 - sinAlpha*sinAlpha
		cos2SigmaM = 0
		if cosSqAlpha != 0 {
			cos2SigmaM = cosSigma - 2*sinU1*sinU2/cosSqAlpha
		}
		c := wgs84F / 16 * cosSqAlpha * (4 + wgs84F*(4-3*cosSqAlpha))
		prev := lambda
		lambda = l + (1-c)*wgs84F*sinAlpha*
			(sigma+c*sinSigma*(cos2SigmaM+c*cosSigma*(-1+2*cos2SigmaM*cos2SigmaM)))
		if math.Abs(lambda-prev) < vincentyTolerance {
			converged = true
			break
		}
	}
	if !converged {
		return 0
	}

	uSq := cosSqAlpha * (wgs84A*wgs84A - wgs84B*wgs84B) / (wgs84B * wgs84B)
	bigA := 1 + uSq/16384*(4096+uSq*(-768+uSq*(320-175*uSq)))
	bigB := uSq / 1024 * (256 + uSq*(-128+uSq*(74-47*uSq)))
	deltaSigma := bigB * sinSigma * (cos2SigmaM + bigB/4*(cosSigma*(-1+2*cos2SigmaM*cos2SigmaM)-
		bigB/6*cos2SigmaM*(-3+4*sinSigma*sinSigma)*(-3+4*cos2SigmaM*cos2SigmaM)))
	return wgs84B * bigA * (sigma - deltaSigma)
}
