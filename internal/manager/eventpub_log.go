package manager

import "github.com/rs/zerolog"

// LogPublisher writes events to a zerolog logger at debug level.
type LogPublisher struct {
	log zerolog.Logger
}

func NewLogPublisher(l zerolog.Logger) *LogPublisher { return &LogPublisher{log: l} }

func (p *LogPublisher) Publish(e Event) {
	ev := p.log.Debug().Str("event", e.Name).Str("model", e.ModelID)
	if len(e.Fields) > 0 {
		ev = ev.Fields(e.Fields)
	}
	ev.Msg("manager event")
}

// multiPublisher fans an event out to several publishers.
type multiPublisher []EventPublisher

func (mp multiPublisher) Publish(e Event) {
	for _, p := range mp {
		p.Publish(e)
	}
}

// Publishers combines publishers into one; nil entries are skipped.
func Publishers(ps ...EventPublisher) EventPublisher {
	out := make(multiPublisher, 0, len(ps))
	for _, p := range ps {
		if p != nil {
			out = append(out, p)
		}
	}
	return out
}
