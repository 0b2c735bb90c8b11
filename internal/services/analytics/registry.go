package analytics

import (
	"fmt"
	"strings"

	"PriceCast/internal/domain/service"
)

// NewForecaster builds the configured strategy. A nil seed leaves the
// simple model's noise unseeded.
func NewForecaster(name string, seed *int64) (service.Forecaster, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", ModelRegression:
		return NewRegressionForecaster(), nil
	case ModelSimple:
		if seed != nil {
			return NewSimpleForecaster(WithSeed(*seed)), nil
		}
		return NewSimpleForecaster(), nil
	default:
		return nil, fmt.Errorf("unknown forecast model %q", name)
	}
}

var (
	_ service.Forecaster          = (*RegressionForecaster)(nil)
	_ service.Forecaster          = (*SimpleForecaster)(nil)
	_ service.TrendAnalyzer       = (*TrendAnalyzer)(nil)
	_ service.SeasonalityDetector = (*SeasonalityDetector)(nil)
	_ service.Recommender         = (*RecommendationEngine)(nil)
)
