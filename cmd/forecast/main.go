// Command forecast posts a price history file to a running PriceCast
// service and prints the prediction.
//
//	forecast -file history.json -url http://localhost:8080 -type full
//	forecast -product sku-1 -type trend
//
// The file holds either a full predict request or a bare array of
// {"date", "price"} points. With -product the service forecasts its stored
// history for that product instead.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"PriceCast/internal/domain/models"
	xhttp "PriceCast/pkg/http"
)

type options struct {
	file    string
	product string
	url     string
	typ     string
	name    string
	current float64
	horizon int
	timeout time.Duration
}

func main() {
	var o options
	flag.StringVar(&o.file, "file", "", "price history JSON file")
	flag.StringVar(&o.product, "product", "", "forecast the stored history of this product id")
	flag.StringVar(&o.url, "url", "http://localhost:8080", "service base URL")
	flag.StringVar(&o.typ, "type", "full", "analysis type: trend, seasonal or full")
	flag.StringVar(&o.name, "name", "", "product name (defaults to the file name)")
	flag.Float64Var(&o.current, "current", 0, "current price (defaults to the latest point)")
	flag.IntVar(&o.horizon, "horizon", 0, "forecast horizon in days")
	flag.DurationVar(&o.timeout, "timeout", 30*time.Second, "request timeout")
	flag.Parse()

	if err := run(o); err != nil {
		fmt.Fprintln(os.Stderr, "forecast:", err)
		os.Exit(1)
	}
}

func run(o options) error {
	call, err := buildCall(o)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), o.timeout)
	defer cancel()

	var resp xhttp.APIResponse
	client := xhttp.NewClient(xhttp.WithTimeout(o.timeout))
	err = client.SendAndParse(ctx, call, &resp)
	var se *xhttp.StatusError
	if errors.As(err, &se) {
		return fmt.Errorf("service returned %d: %s", se.Code, bytes.TrimSpace(se.Body))
	}
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(resp.Data, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

// buildCall picks the endpoint: the stored-product forecast when -product is
// set, the ad hoc predict endpoint otherwise.
func buildCall(o options) (*xhttp.RequestOptions, error) {
	base := strings.TrimRight(o.url, "/")

	if o.product != "" {
		query := map[string][]string{}
		if o.typ != "" {
			query["analysis_type"] = []string{o.typ}
		}
		if o.horizon > 0 {
			query["horizon_days"] = []string{strconv.Itoa(o.horizon)}
		}
		return &xhttp.RequestOptions{
			Method:      xhttp.MethodPost,
			URL:         base + "/api/products/" + url.PathEscape(o.product) + "/predict",
			QueryParams: query,
		}, nil
	}

	if o.file == "" {
		return nil, errors.New("-file or -product is required")
	}
	raw, err := os.ReadFile(o.file)
	if err != nil {
		return nil, err
	}
	if o.name == "" {
		o.name = strings.TrimSuffix(filepath.Base(o.file), filepath.Ext(o.file))
	}
	req, err := buildRequest(raw, o)
	if err != nil {
		return nil, err
	}
	return &xhttp.RequestOptions{Method: xhttp.MethodPost, URL: base + "/api/predict", Body: req}, nil
}

// buildRequest accepts a full predict request or a bare point array. Flags
// override file values when set.
func buildRequest(raw []byte, o options) (*models.PredictRequest, error) {
	req := &models.PredictRequest{}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &req.PriceHistory); err != nil {
			return nil, fmt.Errorf("decode price points: %w", err)
		}
	} else if err := json.Unmarshal(trimmed, req); err != nil {
		return nil, fmt.Errorf("decode request: %w", err)
	}
	if len(req.PriceHistory) == 0 {
		return nil, errors.New("price history is empty")
	}

	if req.ProductName == "" {
		req.ProductName = o.name
	}
	if o.typ != "" {
		req.AnalysisType = o.typ
	}
	if o.horizon > 0 {
		req.HorizonDays = o.horizon
	}
	if o.current > 0 {
		req.CurrentPrice = &o.current
	}
	if req.CurrentPrice == nil {
		history, err := models.ToPriceHistory(req.PriceHistory, "")
		if err != nil {
			return nil, err
		}
		latest := history[0]
		for _, p := range history[1:] {
			if !p.Date.Before(latest.Date) {
				latest = p
			}
		}
		req.CurrentPrice = &latest.Price
	}
	return req, nil
}
