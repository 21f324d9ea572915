package notify

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/eigerco/remitchain/internal/remittance"
)

const (
	DefaultSubjectPrefix = "remitchain.events"

	// HeaderSeq carries the journal sequence number of the event
	HeaderSeq = "Remitchain-Seq"
)

// Config holds NATS connection configuration.
type Config struct {
	// URL is the NATS server URL (e.g., "nats://localhost:4222").
	URL string

	// Name is the client name for connection identification.
	Name string

	// MaxReconnects is the maximum number of reconnection attempts.
	// Use -1 for infinite reconnects.
	MaxReconnects int

	ReconnectWait time.Duration
	Timeout       time.Duration

	// Token for token-based authentication (optional).
	Token string
}

func DefaultConfig() Config {
	return Config{
		URL:           nats.DefaultURL,
		Name:          "remitchain",
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
		Timeout:       5 * time.Second,
	}
}

// Connect dials NATS and reports connection changes through log.
func Connect(cfg Config, log zerolog.Logger) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.Timeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info().Str("url", c.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}
	if cfg.Token != "" {
		opts = append(opts, nats.Token(cfg.Token))
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return conn, nil
}

// Publisher is the part of *nats.Conn the sink needs.
type Publisher interface {
	PublishMsg(msg *nats.Msg) error
}

// NATSSink publishes every journaled event as JSON on
// <prefix>.<event kind>. The Nats-Msg-Id header is derived from the journal
// sequence so JetStream streams drop redelivered events.
type NATSSink struct {
	pub    Publisher
	prefix string
}

func NewNATSSink(pub Publisher, prefix string) *NATSSink {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &NATSSink{pub: pub, prefix: prefix}
}

func (s *NATSSink) Name() string {
	return "nats"
}

func (s *NATSSink) Notify(entry remittance.Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	seq := strconv.FormatUint(entry.Seq, 10)
	msg := &nats.Msg{
		Subject: Subject(s.prefix, entry.Event.Kind()),
		Data:    data,
		Header:  nats.Header{},
	}
	msg.Header.Set(HeaderSeq, seq)
	msg.Header.Set(nats.MsgIdHdr, "remitchain-"+seq)

	if err := s.pub.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish %s: %w", msg.Subject, err)
	}
	return nil
}

// Subject returns the subject events of kind are published on.
func Subject(prefix string, kind remittance.EventKind) string {
	return prefix + "." + kind.String()
}

// Subscribe delivers decoded entries published under prefix to fn until the
// subscription is drained.
func Subscribe(conn *nats.Conn, prefix string, fn func(remittance.Entry), log zerolog.Logger) (*nats.Subscription, error) {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	sub, err := conn.Subscribe(prefix+".>", func(msg *nats.Msg) {
		entry, err := DecodeMsg(msg)
		if err != nil {
			log.Warn().Err(err).Str("subject", msg.Subject).Msg("dropping undecodable event")
			return
		}
		fn(entry)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", prefix, err)
	}
	return sub, nil
}

func DecodeMsg(msg *nats.Msg) (remittance.Entry, error) {
	var entry remittance.Entry
	if err := json.Unmarshal(msg.Data, &entry); err != nil {
		return remittance.Entry{}, fmt.Errorf("decode event: %w", err)
	}
	return entry, nil
}
