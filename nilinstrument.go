package blockpool

type nilInstrument struct{}

func NewNilInstrument() Instrument {
	return &nilInstrument{}
}

func (self *nilInstrument) NewInstance(string, int) InstrumentInstance {
	return &nilInstrumentInstance{}
}

type nilInstrumentInstance struct{}

/*
 * growth
 */
func (self *nilInstrumentInstance) Grew(int, int)      {}
func (self *nilInstrumentInstance) GrowthFailed(error) {}

/*
 * leases
 */
func (self *nilInstrumentInstance) Popped()                 {}
func (self *nilInstrumentInstance) Pushed()                 {}
func (self *nilInstrumentInstance) ContractViolation(error) {}

/*
 * lifecycle
 */
func (self *nilInstrumentInstance) Leaked(int) {}
func (self *nilInstrumentInstance) Closed()    {}
