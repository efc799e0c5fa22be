package market

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

const (
	trendWindow  = 7
	statsWindow  = 30
	trendEpsilon = 1e-6
)

// Engineer derives Features from records ordered by arrival date ascending.
// Records without a modal price must already have been dropped.
func Engineer(records []Record) Features {
	n := len(records)
	if n == 0 {
		return Features{}
	}

	prices := make([]float64, n)
	for i, r := range records {
		prices[i] = *r.ModalPrice
	}

	latest := prices[n-1]
	last30 := tail(prices, statsWindow)
	med30 := median(last30)

	recent := stat.Mean(tail(prices, trendWindow), nil)
	var prior float64
	if n >= 2*trendWindow {
		prior = stat.Mean(prices[n-2*trendWindow:n-trendWindow], nil)
	} else {
		prior = stat.Mean(prices, nil)
	}
	trend7 := (recent - prior) / math.Max(prior, trendEpsilon)

	z30 := 0.0
	if len(last30) >= 2 {
		if sd := stat.StdDev(last30, nil); sd > 0 && !math.IsNaN(sd) {
			z30 = (latest - stat.Mean(last30, nil)) / sd
		}
	}

	return Features{
		PriceLatest:  &latest,
		PriceMed30:   &med30,
		PriceTrend7:  &trend7,
		PriceZ30:     &z30,
		Observations: n,
	}
}

func tail(xs []float64, k int) []float64 {
	if len(xs) <= k {
		return xs
	}
	return xs[len(xs)-k:]
}

// median averages the two middle values for even lengths.
func median(xs []float64) float64 {
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
