// Package spec is the shape of collector.yml.
package spec

import (
	"github.com/cschmidt0121/TA-DUOSecurity2FA/sink/file"
	"github.com/cschmidt0121/TA-DUOSecurity2FA/sink/grpc"
	"github.com/cschmidt0121/TA-DUOSecurity2FA/sink/hec"
	"github.com/cschmidt0121/TA-DUOSecurity2FA/sink/kafka"
	"github.com/cschmidt0121/TA-DUOSecurity2FA/sink/stdout"
)

type SinkConfigs struct {
	Stdout stdout.Config `yaml:"stdout"`
	File   file.Config   `yaml:"file"`
	Kafka  kafka.Config  `yaml:"kafka"`
	HEC    hec.Config    `yaml:"hec"`
	GRPC   grpc.Config   `yaml:"grpc"`
}

type HistorySection struct {
	DSN string `yaml:"dsn"` // empty disables run history
}

type MetricsSection struct {
	Pushgateway string `yaml:"pushgateway"` // empty disables push
	Job         string `yaml:"job"`
}

type LoggingSection struct {
	Level      string `yaml:"level"`
	JSON       bool   `yaml:"json"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type File struct {
	SchemaVersion string `yaml:"schema_version"`

	Source struct {
		Kind   string `yaml:"kind"`   // "duo"
		Config string `yaml:"config"` // relative to collector.yml
	} `yaml:"source"`

	// Every listed sink must accept an event before it counts as emitted.
	Sinks       []string    `yaml:"sinks"`
	SinkConfigs SinkConfigs `yaml:"sink_configs"`

	History HistorySection `yaml:"history"`
	Metrics MetricsSection `yaml:"metrics"`
	Logging LoggingSection `yaml:"logging"`
}
