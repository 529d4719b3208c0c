package publisher

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"journey-tracker/internal/journey"
)

type NATSPublisher struct {
	nc          *nats.Conn
	prefix      string
	logSubjects bool
	metrics     PublisherMetrics
}

type PublisherMetrics interface {
	NATSPublishedInc()
	NATSPublishErrInc()
	PublishObserve(d time.Duration)
	NATSSetConnected(connected bool)
}

func NewNATSPublisher(url, prefix string, logSubjects bool, m PublisherMetrics) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("journey-tracker"),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			log.Warn().Err(err).Msg("nats disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(true)
			}
			log.Info().Str("url", nc.ConnectedUrl()).Msg("nats reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			log.Info().Msg("nats closed")
		}),
	)
	if err != nil {
		return nil, err
	}
	if m != nil {
		m.NATSSetConnected(true)
	}
	return &NATSPublisher{nc: nc, prefix: prefix, logSubjects: logSubjects, metrics: m}, nil
}

func (p *NATSPublisher) Close() {
	if p.nc != nil {
		p.nc.Drain()
		p.nc.Close()
	}
}

// PublishSnapshot sends snap as JSON on <prefix>.<journeyID>.
func (p *NATSPublisher) PublishSnapshot(journeyID string, snap journey.Snapshot) error {
	subject := Subject(p.prefix, journeyID)
	b, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	if p.logSubjects {
		log.Debug().Str("subject", subject).Float64("progress", snap.Progress).Msg("nats publish")
	}
	start := time.Now()
	err = p.nc.Publish(subject, b)
	if p.metrics != nil {
		p.metrics.PublishObserve(time.Since(start))
		if err != nil {
			p.metrics.NATSPublishErrInc()
		} else {
			p.metrics.NATSPublishedInc()
		}
	}
	return err
}

func Subject(prefix, journeyID string) string {
	if prefix == "" {
		return subjectToken(journeyID)
	}
	return fmt.Sprintf("%s.%s", prefix, subjectToken(journeyID))
}

func subjectToken(s string) string {
	s = strings.TrimSpace(s)
	// NATS token cannot contain spaces, '>', '*', or '.'
	repl := strings.NewReplacer(" ", "_", ".", "_", ">", "_", "*", "_", "/", "_", "\t", "_")
	s = repl.Replace(s)
	if s == "" {
		s = "_"
	}
	return s
}
