package api

import "context"

// Instrument is the pyrometer surface the API exposes.
type Instrument interface {
	Focus(ctx context.Context) (string, error)
	InstrumentID(ctx context.Context) (string, error)
	Emissivity(ctx context.Context) (float64, error)
	Transmissivity(ctx context.Context) (float64, error)
	T90(ctx context.Context) (string, error)
	SetEmissivity(ctx context.Context, v float64) error
	SetTransmissivity(ctx context.Context, v float64) error
	SetT90(ctx context.Context, name string) error
	ReadTemperature(ctx context.Context) (float64, error)
}
