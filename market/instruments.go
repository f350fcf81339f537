// market/instruments.go
package market

// InstrumentMeta describes a futures contract's pricing increments.
type InstrumentMeta struct {
	Symbol     string
	Name       string
	TickSize   float64 // minimum price increment
	TickValue  float64 // dollar value of one tick, one contract
	PointValue float64 // dollar value of one full point, one contract
}

var Instruments = map[string]InstrumentMeta{
	"ES": {
		Symbol:     "ES",
		Name:       "E-mini S&P 500",
		TickSize:   0.25,
		TickValue:  12.50,
		PointValue: 50,
	},
	"MES": {
		Symbol:     "MES",
		Name:       "Micro E-mini S&P 500",
		TickSize:   0.25,
		TickValue:  1.25,
		PointValue: 5,
	},
	"NQ": {
		Symbol:     "NQ",
		Name:       "E-mini Nasdaq-100",
		TickSize:   0.25,
		TickValue:  5.00,
		PointValue: 20,
	},
	"MNQ": {
		Symbol:     "MNQ",
		Name:       "Micro E-mini Nasdaq-100",
		TickSize:   0.25,
		TickValue:  0.50,
		PointValue: 2,
	},
	"CL": {
		Symbol:     "CL",
		Name:       "Crude Oil",
		TickSize:   0.01,
		TickValue:  10.00,
		PointValue: 1000,
	},
	"GC": {
		Symbol:     "GC",
		Name:       "Gold",
		TickSize:   0.10,
		TickValue:  10.00,
		PointValue: 100,
	},
}
