package x11

import (
	"context"
	"log/slog"

	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/xproto"

	"github.com/persistwin/persistwin/internal/monitor"
)

// SubscribeChanges registers for the notifications that drive the topology
// monitor: RandR screen/CRTC/output changes for display reconfiguration, and
// SubstructureNotify on the root window so child ConfigureNotify events report
// window moves and resizes.
func (c *Connection) SubscribeChanges() error {
	conn := c.XUtil.Conn()

	mask := uint16(randr.NotifyMaskScreenChange |
		randr.NotifyMaskCrtcChange |
		randr.NotifyMaskOutputChange)
	if err := randr.SelectInputChecked(conn, c.Root, mask).Check(); err != nil {
		return err
	}

	return xproto.ChangeWindowAttributesChecked(conn, c.Root,
		xproto.CwEventMask,
		[]uint32{xproto.EventMaskSubstructureNotify}).Check()
}

// ChangeSink receives classified change notifications. The topology monitor
// implements it.
type ChangeSink interface {
	Notify(n monitor.Notification)
}

// Watch pumps raw X events into the sink until the context is cancelled or
// the connection closes. Events only re-arm the monitor's debounce; they
// carry no payload, so coalescing a burst is harmless.
func (c *Connection) Watch(ctx context.Context, sink ChangeSink, logger *slog.Logger) {
	conn := c.XUtil.Conn()

	for {
		ev, xerr := conn.WaitForEvent()
		if ev == nil && xerr == nil {
			// Connection closed.
			return
		}
		if ctx.Err() != nil {
			return
		}
		if xerr != nil {
			logger.Debug("x11 event error", "error", xerr)
			continue
		}

		var n monitor.Notification
		switch ev.(type) {
		case randr.ScreenChangeNotifyEvent, randr.NotifyEvent:
			n = monitor.DisplayChanged
		case xproto.ConfigureNotifyEvent:
			n = monitor.WindowChanged
		default:
			continue
		}

		sink.Notify(n)
	}
}
