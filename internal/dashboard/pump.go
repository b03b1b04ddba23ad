package dashboard

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/chatstack/chatpanel/internal/bus"
)

// Pump forwards bus messages into the running program. It returns when the
// context is cancelled or the subscription channel closes. The bus drops on a
// full subscriber, so a slow terminal can never stall a poller.
func Pump(ctx context.Context, p *tea.Program, ch <-chan bus.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-ch:
			if !ok {
				return
			}
			switch {
			case m.Resource != nil:
				p.Send(ResourceMsg(*m.Resource))
			case m.Service != nil:
				p.Send(ServiceMsg(*m.Service))
			case m.Logs != nil:
				p.Send(LogsMsg(*m.Logs))
			case m.Launch != nil:
				p.Send(LaunchMsg(*m.Launch))
			}
		}
	}
}
