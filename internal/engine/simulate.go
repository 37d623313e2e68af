package engine

import (
	"math"
	"time"
)

// FeeModel covers the two costs a simulated trade pays: a transaction fee on
// the exit notional and a periodic expense prorated over the holding period.
type FeeModel struct {
	TransactionFeePct float64
	AnnualExpensePct  float64
}

// SimPick is the slice of a catalog pick the simulator needs.
type SimPick struct {
	Symbol        string
	AlgorithmName string
	PickDate      time.Time
	EntryPrice    float64
}

// Trade is one simulated outcome, gross and net of fees.
type Trade struct {
	Symbol        string
	AlgorithmName string
	EntryDate     time.Time
	ExitDate      time.Time
	EntryPrice    float64
	ExitPrice     float64
	Units         float64
	GrossPnL      float64
	Fees          float64
	NetPnL        float64
	ReturnPct     float64
	ExitReason    string
	HoldDays      int
}

const unitPrecision = 4

// Simulate turns one pick and its exit event into a trade sized at
// positionValue. The second return is false when the pick is skipped because
// the budget cannot buy a single minimum unit; that is a skip, not an error.
func Simulate(pick SimPick, exit ExitEvent, fees FeeModel, positionValue float64) (Trade, bool) {
	if pick.EntryPrice <= 0 || positionValue < pick.EntryPrice {
		return Trade{}, false
	}

	units := floorTo(positionValue/pick.EntryPrice, unitPrecision)
	if units <= 0 {
		return Trade{}, false
	}

	entryNotional := pick.EntryPrice * units
	exitNotional := exit.Price * units
	grossPnL := (exit.Price - pick.EntryPrice) * units

	totalFee := fees.TransactionFeePct / 100 * exitNotional
	totalFee += fees.AnnualExpensePct / 100 * (float64(exit.HoldDays) / 365.25) * entryNotional

	netPnL := grossPnL - totalFee
	returnPct := 0.0
	if entryNotional != 0 {
		returnPct = netPnL / entryNotional * 100
	}

	return Trade{
		Symbol:        pick.Symbol,
		AlgorithmName: pick.AlgorithmName,
		EntryDate:     pick.PickDate,
		ExitDate:      exit.Date,
		EntryPrice:    pick.EntryPrice,
		ExitPrice:     exit.Price,
		Units:         units,
		GrossPnL:      grossPnL,
		Fees:          totalFee,
		NetPnL:        netPnL,
		ReturnPct:     returnPct,
		ExitReason:    exit.Reason,
		HoldDays:      exit.HoldDays,
	}, true
}

func floorTo(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Floor(v*scale) / scale
}
