package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"

	"github.com/cschmidt0121/TA-DUOSecurity2FA/internal/model"
	"github.com/cschmidt0121/TA-DUOSecurity2FA/sink"
)

type Config struct {
	Brokers  []string `yaml:"brokers"`
	Topic    string   `yaml:"topic"`
	Acks     *int16   `yaml:"required_acks"` // 1 or -1, default -1; 0 is rejected
	Version  string   `yaml:"version"`
	TLSEn    bool     `yaml:"tls_enabled"`
	SASLUser string   `yaml:"sasl_user"`
	SASLPass string   `yaml:"sasl_pass"`
}

// driver uses a SyncProducer: Push returns once the broker acknowledged the
// message, which is what lets the collector advance its checkpoint.
type driver struct {
	cfg Config
	p   sarama.SyncProducer
}

func (d *driver) Configure(c any) error {
	cfg, ok := c.(Config)
	if !ok {
		return fmt.Errorf("kafka-sink: want Config")
	}
	if len(cfg.Brokers) == 0 || cfg.Topic == "" {
		return fmt.Errorf("kafka-sink: brokers and topic are required")
	}
	sc, err := saramaConfig(cfg)
	if err != nil {
		return err
	}
	d.cfg = cfg
	d.p, err = sarama.NewSyncProducer(cfg.Brokers, sc)
	return err
}

func saramaConfig(cfg Config) (*sarama.Config, error) {
	sc := sarama.NewConfig()
	if cfg.Version != "" {
		ver, err := sarama.ParseKafkaVersion(cfg.Version)
		if err != nil {
			return nil, err
		}
		sc.Version = ver
	}
	sc.Producer.RequiredAcks = sarama.WaitForAll
	if cfg.Acks != nil {
		switch acks := sarama.RequiredAcks(*cfg.Acks); acks {
		case sarama.WaitForLocal, sarama.WaitForAll:
			sc.Producer.RequiredAcks = acks
		default:
			// NoResponse cannot confirm delivery.
			return nil, fmt.Errorf("kafka-sink: required_acks must be 1 or -1, got %d", *cfg.Acks)
		}
	}
	sc.Producer.Return.Successes = true
	sc.Producer.Return.Errors = true
	if cfg.TLSEn {
		sc.Net.TLS.Enable = true
	}
	if cfg.SASLUser != "" {
		sc.Net.SASL.Enable = true
		sc.Net.SASL.User, sc.Net.SASL.Password = cfg.SASLUser, cfg.SASLPass
	}
	return sc, nil
}

func (d *driver) Push(_ context.Context, ev model.Event) error {
	if d.p == nil {
		return fmt.Errorf("kafka-sink: not configured")
	}
	value, err := json.Marshal(ev.HEC())
	if err != nil {
		return fmt.Errorf("kafka-sink: marshal: %w", err)
	}
	msg := &sarama.ProducerMessage{
		Topic: d.cfg.Topic,
		Key:   sarama.StringEncoder(ev.Host),
		Value: sarama.ByteEncoder(value),
		Headers: []sarama.RecordHeader{
			{Key: []byte("sourcetype"), Value: []byte(ev.SourceType)},
			{Key: []byte("index"), Value: []byte(ev.Index)},
			{Key: []byte("stream"), Value: []byte(ev.Stream)},
		},
	}
	if _, _, err := d.p.SendMessage(msg); err != nil {
		return fmt.Errorf("kafka-sink: %w", err)
	}
	return nil
}

func (d *driver) Close() error {
	if d.p == nil {
		return nil
	}
	err := d.p.Close()
	d.p = nil
	return err
}

func init() { sink.Register("kafka", func() sink.Adapter { return &driver{} }) }
