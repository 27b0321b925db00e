package pipeline

// Channel is an intcode.Device whose input and output are Links shared with
// other machines.
type Channel struct {
	in, out *Link
	base    int64

	outputs []int64
	dropped []int64
}

// NewChannel returns a device reading from in and writing to out.
func NewChannel(in, out *Link) *Channel {
	return &Channel{in: in, out: out}
}

func (c *Channel) Input() (int64, bool) {
	return c.in.Recv()
}

// Output forwards v downstream. If the downstream machine has already
// halted, v is kept in Dropped rather than treated as a fault, so a stage
// that emits a final value after its consumer stopped still halts cleanly.
func (c *Channel) Output(v int64) {
	c.outputs = append(c.outputs, v)
	if !c.out.Send(v) {
		c.dropped = append(c.dropped, v)
	}
}

func (c *Channel) RelativeBase() int64 { return c.base }

func (c *Channel) AdjustRelativeBase(delta int64) { c.base += delta }

// Outputs returns every value the machine emitted, delivered or not.
func (c *Channel) Outputs() []int64 {
	out := make([]int64, len(c.outputs))
	copy(out, c.outputs)
	return out
}

// Dropped returns the values discarded because the receiver had gone.
func (c *Channel) Dropped() []int64 {
	out := make([]int64, len(c.dropped))
	copy(out, c.dropped)
	return out
}

// close releases both ends this device owns. Called once its machine stops.
func (c *Channel) close() {
	c.out.CloseSend()
	c.in.CloseRecv()
}
