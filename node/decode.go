package node

import (
	"log/slog"

	"github.com/notnil/arke"
	"github.com/notnil/arke/canbus"
	"github.com/notnil/arke/messages"
)

// ErrCodeMalformed is reported on the bus for inbound payloads that do not
// decode.
const ErrCodeMalformed uint16 = 0x0001

// Decoder is an Application that decodes inbound frames with
// messages.Parse before handing them to Handler. Payloads that fail to
// decode are reported with ErrCodeMalformed and dropped.
type Decoder struct {
	Handler func(e *arke.Engine, m messages.Message)
	Logger  *slog.Logger
}

func (d *Decoder) Handle(e *arke.Engine, in arke.Inbound) {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	f := canbus.Frame{ID: uint32(in.ID), Len: in.Length}
	copy(f.Data[:], in.Data[:min(int(in.Length), len(in.Data))])
	m, err := messages.Parse(e.Layout(), f)
	if err != nil {
		logger.Warn("node inbound dropped", "frame", f.String(), "error", err)
		e.ReportError(ErrCodeMalformed)
		return
	}
	logger.Debug("node inbound", "message", m.String())
	if d.Handler != nil {
		d.Handler(e, m)
	}
}
