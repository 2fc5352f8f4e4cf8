package blockpool

import "github.com/pkg/errors"

type Instrument interface {
	NewInstance(id string, blockSz int) InstrumentInstance
}

type InstrumentInstance interface {
	// growth
	Grew(blocks, issued int)
	GrowthFailed(err error)

	// leases
	Popped()
	Pushed()
	ContractViolation(err error)

	// lifecycle
	Leaked(outstanding int)
	Closed()
}

func NewInstrument(name string, config map[string]interface{}) (Instrument, error) {
	switch name {
	case "", "nil":
		return NewNilInstrument(), nil
	case "trace":
		return NewTraceInstrument(config)
	case "metrics":
		return NewMetricsInstrument(config)
	default:
		return nil, errors.Errorf("unknown instrument '%s'", name)
	}
}
