// Package config defines the recognized runtime options of spec §6,
// loaded from YAML with sane production defaults.
//
// Grounded on Tangerg-lynx/stream/binding/pulsar.Config's dual
// json/yaml-tagged struct shape.
package config

import (
	"time"

	"gopkg.in/yaml.v3"

	"github.com/researchmesh/citeforge/internal/model"
)

// Options are the recognized configuration options (spec §6).
type Options struct {
	Mode                model.Mode `json:"mode" yaml:"mode"`
	MaxPapersTotal      int        `json:"max_papers_total" yaml:"max_papers_total"`
	MaxPDFDownload      int        `json:"max_pdf_download" yaml:"max_pdf_download"`
	TokenBudget         int        `json:"token_budget" yaml:"token_budget"`
	OutputLanguage      string     `json:"output_language" yaml:"output_language"`
	AuditPassRateFloor  float64    `json:"audit_pass_rate_floor" yaml:"audit_pass_rate_floor"`
	GateAutoApprove     bool       `json:"gate_auto_approve" yaml:"gate_auto_approve"`
	GateTimeoutSeconds  int        `json:"gate_timeout_seconds" yaml:"gate_timeout_seconds"`
	MinClusterSize      int        `json:"min_cluster_size" yaml:"min_cluster_size"`
	ScreeningBatchSize  int        `json:"screening_batch_size" yaml:"screening_batch_size"`
}

// Defaults returns the spec §6 default configuration.
func Defaults() Options {
	return Options{
		Mode:               model.ModeFull,
		MaxPapersTotal:     200,
		MaxPDFDownload:     50,
		TokenBudget:        2_000_000,
		OutputLanguage:     "en",
		AuditPassRateFloor: 0.8,
		GateAutoApprove:    false,
		GateTimeoutSeconds: 3600,
		MinClusterSize:     3,
		ScreeningBatchSize: 15,
	}
}

// GateTimeout returns GateTimeoutSeconds as a time.Duration.
func (o Options) GateTimeout() time.Duration {
	return time.Duration(o.GateTimeoutSeconds) * time.Second
}

// Load parses YAML bytes over Defaults, so unset fields keep their
// production defaults rather than zero values.
func Load(data []byte) (Options, error) {
	opts := Defaults()
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return Options{}, err
	}
	return opts, nil
}
