package bench

// PacketSz is the payload size of the benchmarked object.
const PacketSz = 1000

// Packet is the fixed-layout object allocated by every scenario.
type Packet struct {
	Data [PacketSz]byte
}

func (self *Packet) init() error {
	self.Data[0] = 1
	return nil
}

// Destroy is the packet's teardown, run before its storage is reused.
func (self *Packet) Destroy() {
	self.Data[0] = 0
}

func constructPacket(p *Packet) error {
	return p.init()
}
