package messages

import "fmt"

// PDConfig is the tuning of one Zeus regulation loop. The two divider
// powers share the last byte and are limited to 4 bits each.
type PDConfig struct {
	ProportionalMultiplier uint8
	DerivativeMultiplier   uint8
	IntegralMultiplier     uint8
	DividerPower           uint8
	DividerPowerIntegral   uint8
}

func (c PDConfig) marshal(buf []byte) error {
	if c.DividerPower > 15 {
		return fmt.Errorf("%w: maximal proportional&derivative divider is 15, got %d", ErrOutOfRange, c.DividerPower)
	}
	if c.DividerPowerIntegral > 15 {
		return fmt.Errorf("%w: maximal integral divider is 15, got %d", ErrOutOfRange, c.DividerPowerIntegral)
	}
	buf[0] = c.ProportionalMultiplier
	buf[1] = c.DerivativeMultiplier
	buf[2] = c.IntegralMultiplier
	buf[3] = c.DividerPower | c.DividerPowerIntegral<<4
	return nil
}

func (c *PDConfig) unmarshal(buf []byte) {
	c.ProportionalMultiplier = buf[0]
	c.DerivativeMultiplier = buf[1]
	c.IntegralMultiplier = buf[2]
	c.DividerPower = buf[3] & 0x0f
	c.DividerPowerIntegral = buf[3] >> 4
}

func (c PDConfig) String() string {
	return fmt.Sprintf("{P: %d, D: %d, I: %d, Div: %d, DivI: %d}",
		c.ProportionalMultiplier, c.DerivativeMultiplier, c.IntegralMultiplier,
		c.DividerPower, c.DividerPowerIntegral)
}
