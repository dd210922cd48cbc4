package order

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	DefaultExchangeRate  = 850.0
	DefaultFeePercentage = 10.0
)

// Bounds and scales of the stored pricing snapshot columns.
const (
	maxPriceUSD      = 1e10
	maxExchangeRate  = 1e8
	maxFeePercentage = 1e3
	maxTotalKwanza   = 1e14

	priceScale = 2
	rateScale  = 4
	feeScale   = 2
	totalScale = 2
)

// Quote breaks a Kwanza total into its parts. Shipping is zero for staff pricing.
type Quote struct {
	BaseKwanza float64 `json:"base_kwanza"`
	Fee        float64 `json:"fee"`
	Shipping   float64 `json:"shipping"`
	Total      float64 `json:"total"`
}

// EstimatorConfig holds the constants of the public price estimator.
type EstimatorConfig struct {
	ExchangeRate      float64 `yaml:"exchange_rate"`
	FeePercentage     float64 `yaml:"fee_percentage"`
	BaseShipping      float64 `yaml:"base_shipping"`
	HeavyShipping     float64 `yaml:"heavy_shipping"`
	HeavyThresholdUSD float64 `yaml:"heavy_threshold_usd"`
}

func DefaultEstimatorConfig() EstimatorConfig {
	return EstimatorConfig{
		ExchangeRate:      DefaultExchangeRate,
		FeePercentage:     8,
		BaseShipping:      15000,
		HeavyShipping:     5000,
		HeavyThresholdUSD: 100,
	}
}

// PriceOrder is the staff formula stored on an order: no shipping surcharge.
func PriceOrder(priceUSD, exchangeRate, feePercent float64) (Quote, error) {
	if priceUSD < 0 {
		return Quote{}, &ValidationError{Field: "price_usd", Reason: "must not be negative"}
	}
	if exchangeRate < 0 {
		return Quote{}, &ValidationError{Field: "exchange_rate", Reason: "must not be negative"}
	}
	if feePercent < 0 {
		return Quote{}, &ValidationError{Field: "service_fee_percentage", Reason: "must not be negative"}
	}

	base := priceUSD * exchangeRate
	fee := base * feePercent / 100
	return Quote{
		BaseKwanza: base,
		Fee:        fee,
		Total:      base + fee,
	}, nil
}

// snapshotPricing rounds the inputs to the precision they are stored at and
// prices from the rounded values, so the stored total always recomputes from
// the stored inputs.
func snapshotPricing(priceUSD, exchangeRate, feePercent float64) (price, rate, fee float64, q Quote, err error) {
	price = roundTo(priceUSD, priceScale)
	rate = roundTo(exchangeRate, rateScale)
	fee = roundTo(feePercent, feeScale)

	switch {
	case price >= maxPriceUSD:
		return 0, 0, 0, Quote{}, &ValidationError{Field: "price_usd", Reason: "is too large"}
	case rate >= maxExchangeRate:
		return 0, 0, 0, Quote{}, &ValidationError{Field: "exchange_rate", Reason: "is too large"}
	case fee >= maxFeePercentage:
		return 0, 0, 0, Quote{}, &ValidationError{Field: "service_fee_percentage", Reason: "is too large"}
	}

	q, err = PriceOrder(price, rate, fee)
	if err != nil {
		return 0, 0, 0, Quote{}, err
	}
	q.Total = roundTo(q.Total, totalScale)
	if q.Total >= maxTotalKwanza {
		return 0, 0, 0, Quote{}, &ValidationError{Field: "price_usd", Reason: "total is too large"}
	}
	return price, rate, fee, q, nil
}

func roundTo(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}

// EstimateTotal is the public estimator formula, which adds flat shipping.
func EstimateTotal(priceUSD float64, cfg EstimatorConfig) (Quote, error) {
	if priceUSD <= 0 {
		return Quote{}, &ValidationError{Field: "price_usd", Reason: "must be positive"}
	}

	q, err := PriceOrder(priceUSD, cfg.ExchangeRate, cfg.FeePercentage)
	if err != nil {
		return Quote{}, err
	}

	q.Shipping = cfg.BaseShipping
	if priceUSD > cfg.HeavyThresholdUSD {
		q.Shipping += cfg.HeavyShipping
	}
	q.Total += q.Shipping
	return q, nil
}

var printer = message.NewPrinter(language.Portuguese)

func FormatKwanza(v float64) string {
	return printer.Sprintf("%.0f Kz", v)
}

func FormatUSD(v float64) string {
	return printer.Sprintf("$%.2f", v)
}
