package datasource

import (
	"context"

	"github.com/onemorebsmith/league-calc/src/events"
)

// ChannelSource forwards events pushed by in-process producers.
type ChannelSource struct {
	name string
	ch   <-chan events.Event
}

func NewChannelSource(name string, ch <-chan events.Event) *ChannelSource {
	return &ChannelSource{name: name, ch: ch}
}

func (c *ChannelSource) Name() string { return c.name }

// Run returns once ctx is done or the channel is closed.
func (c *ChannelSource) Run(ctx context.Context, sink Sink) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-c.ch:
			if !ok {
				return nil
			}
			if ev == nil {
				recordFrame(c.name, "dropped")
				continue
			}
			recordFrame(c.name, "ok")
			sink(ev)
		}
	}
}
