package analytics

import (
	"math"
	"sort"

	"PriceCast/internal/domain/models"
	"PriceCast/internal/services/features"
	"PriceCast/pkg/util"
)

const (
	minSeasonalRows   = 12
	seasonalCVCutoff  = 0.1
	seasonalMonthList = 3
)

// SeasonalityDetector flags monthly cycles from the dispersion of monthly
// mean prices.
type SeasonalityDetector struct{}

func NewSeasonalityDetector() *SeasonalityDetector { return &SeasonalityDetector{} }

type monthMean struct {
	month int
	mean  float64
}

func (d *SeasonalityDetector) Detect(table models.FeatureTable) models.SeasonalityResult {
	if len(table) < minSeasonalRows {
		return models.SeasonalityResult{Status: models.SeasonalityInsufficient}
	}

	sums := make(map[int]float64)
	counts := make(map[int]int)
	for _, r := range table {
		sums[r.Month] += r.Price
		counts[r.Month]++
	}
	means := make([]monthMean, 0, len(sums))
	for m, s := range sums {
		means = append(means, monthMean{month: m, mean: s / float64(counts[m])})
	}
	sort.Slice(means, func(i, j int) bool { return means[i].month < means[j].month })

	vals := make([]float64, len(means))
	for i, m := range means {
		vals[i] = m.mean
	}
	avg := features.Mean(vals)
	cv := features.SampleStd(vals) / avg
	if avg == 0 || math.IsNaN(cv) || math.IsInf(cv, 0) || cv <= seasonalCVCutoff {
		return models.SeasonalityResult{Status: models.SeasonalityNotDetected}
	}

	cvRounded := util.Round(cv, 3)
	return models.SeasonalityResult{
		Status:               models.SeasonalityDetected,
		HasSeasonality:       true,
		BestMonths:           pickMonths(means, true),
		WorstMonths:          pickMonths(means, false),
		VariationCoefficient: &cvRounded,
	}
}

// pickMonths returns up to three months ordered by mean price, ascending
// for cheapest and descending otherwise. Ties keep calendar order.
func pickMonths(means []monthMean, cheapest bool) []int {
	ordered := append([]monthMean(nil), means...)
	sort.SliceStable(ordered, func(i, j int) bool {
		if cheapest {
			return ordered[i].mean < ordered[j].mean
		}
		return ordered[i].mean > ordered[j].mean
	})
	n := min(seasonalMonthList, len(ordered))
	out := make([]int, n)
	for i := 0; i < n; i++ {
		out[i] = ordered[i].month
	}
	return out
}
