package market

import (
	"math"

	"github.com/markcheno/go-talib"
	"gonum.org/v1/gonum/stat"
)

const (
	smaPeriod = 20
	rsiPeriod = 14
)

// ComputeIndicators computes SMA(20), RSI(14) and the standard deviation of
// sample-to-sample returns over prices, oldest first.
func ComputeIndicators(prices []IntradayPrice) Indicators {
	closes := make([]float64, len(prices))
	for i, p := range prices {
		closes[i] = p.Price.InexactFloat64()
	}

	ind := Indicators{Samples: len(closes)}

	if len(closes) >= smaPeriod {
		sma := talib.Sma(closes, smaPeriod)
		ind.SMA20 = lastFinite(sma)
	}
	if len(closes) > rsiPeriod {
		rsi := talib.Rsi(closes, rsiPeriod)
		ind.RSI14 = lastFinite(rsi)
	}
	if returns := simpleReturns(closes); len(returns) >= 2 {
		v := stat.StdDev(returns, nil)
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			ind.Volatility = &v
		}
	}
	return ind
}

func simpleReturns(closes []float64) []float64 {
	if len(closes) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] == 0 {
			continue
		}
		returns = append(returns, (closes[i]-closes[i-1])/closes[i-1])
	}
	return returns
}

func lastFinite(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	v := values[len(values)-1]
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
