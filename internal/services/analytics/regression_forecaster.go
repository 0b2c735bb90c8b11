package analytics

import (
	"math"
	"time"

	"PriceCast/internal/domain/models"
	"PriceCast/internal/services/features"
	"PriceCast/pkg/util"

	"gonum.org/v1/gonum/mat"
)

const ModelRegression = "regression"

// RegressionForecaster standardises days_since_start, day_of_week, month
// and the 7-day moving average, then fits ordinary least squares against
// price. Scaling statistics and coefficients live only for one call.
type RegressionForecaster struct{}

func NewRegressionForecaster() *RegressionForecaster { return &RegressionForecaster{} }

func (f *RegressionForecaster) Name() string        { return ModelRegression }
func (f *RegressionForecaster) Deterministic() bool { return true }

// linearFit is the per-call fitted state.
type linearFit struct {
	mean      []float64
	scale     []float64
	coef      []float64
	intercept float64
}

func (f *RegressionForecaster) Forecast(table models.FeatureTable, horizon int) (models.Forecast, error) {
	out := models.Forecast{Model: ModelRegression}
	if horizon <= 0 {
		return out, models.NewValidationError("forecast", "horizon must be positive, got %d", horizon)
	}
	if len(table) < features.MinPointsTrend {
		return out, models.NewInsufficientDataError("forecast", len(table), features.MinPointsTrend)
	}

	rows := make([][]float64, len(table))
	for i, r := range table {
		rows[i] = []float64{float64(r.DaysSinceStart), float64(r.DayOfWeek), float64(r.Month), r.MovingAvg7}
	}
	fit, err := fitStandardized(rows, table.Prices())
	if err != nil {
		return out, err
	}

	start := table.Start()
	last := table.Last().Date
	ma7 := features.Mean(features.Tail(table.Prices(), 7))

	out.Points = make([]models.ForecastPoint, 0, horizon)
	for i := 1; i <= horizon; i++ {
		d := last.AddDate(0, 0, i)
		x := []float64{float64(util.DaysBetween(start, d)), float64(util.WeekdayIndex(d)), float64(d.Month()), ma7}
		p := fit.predict(x)
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return models.Forecast{Model: ModelRegression}, models.NewComputationError("forecast", "non-finite prediction at day %d", i)
		}
		out.Points = append(out.Points, models.ForecastPoint{
			Date:           truncateDay(d),
			PredictedPrice: util.Round2(math.Max(0, p)),
		})
	}
	return out, nil
}

func (lf *linearFit) predict(x []float64) float64 {
	y := lf.intercept
	for j, v := range x {
		y += lf.coef[j] * (v - lf.mean[j]) / lf.scale[j]
	}
	return y
}

// fitStandardized scales each column to zero mean and unit population
// variance (a constant column keeps scale 1) and solves the centred least
// squares problem with an SVD pseudo-inverse, so rank-deficient designs
// get the minimum-norm solution.
func fitStandardized(rows [][]float64, y []float64) (*linearFit, error) {
	n, p := len(rows), len(rows[0])
	fit := &linearFit{mean: make([]float64, p), scale: make([]float64, p)}

	col := make([]float64, n)
	for j := 0; j < p; j++ {
		for i := range rows {
			col[i] = rows[i][j]
		}
		fit.mean[j] = features.Mean(col)
		fit.scale[j] = features.PopStd(col)
		if fit.scale[j] == 0 || math.IsNaN(fit.scale[j]) {
			fit.scale[j] = 1
		}
	}

	x := mat.NewDense(n, p, nil)
	for i, r := range rows {
		for j, v := range r {
			x.Set(i, j, (v-fit.mean[j])/fit.scale[j])
		}
	}
	fit.intercept = features.Mean(y)
	yc := mat.NewVecDense(n, nil)
	for i, v := range y {
		yc.SetVec(i, v-fit.intercept)
	}

	var svd mat.SVD
	if ok := svd.Factorize(x, mat.SVDThin); !ok {
		return nil, models.NewComputationError("forecast", "svd factorization failed")
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	sv := svd.Values(nil)

	var uty mat.VecDense
	uty.MulVec(u.T(), yc)

	tol := 0.0
	if len(sv) > 0 {
		tol = float64(max(n, p)) * sv[0] * 2.220446049250313e-16
	}
	w := mat.NewVecDense(len(sv), nil)
	for i, s := range sv {
		if s > tol {
			w.SetVec(i, uty.AtVec(i)/s)
		}
	}

	var coef mat.VecDense
	coef.MulVec(&v, w)
	fit.coef = make([]float64, p)
	for j := 0; j < p; j++ {
		fit.coef[j] = coef.AtVec(j)
	}
	return fit, nil
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
