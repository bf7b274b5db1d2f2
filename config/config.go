// Package config loads the pipeline's single PipelineConfig record (spec
// §6), grounded on _examples/dshills-dungo's YAML-based config loader shape
// and using gopkg.in/yaml.v3.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ProposalAgent names one proposal worker's model (§6 "proposal_agents").
type ProposalAgent struct {
	Model string `yaml:"model"`
}

// PipelineConfig is the single configuration record consumed at pipeline
// start (§6).
type PipelineConfig struct {
	SupervisorModel       string          `yaml:"supervisor_model"`
	JudgeModel            string          `yaml:"judge_model"`
	MergerModel           string          `yaml:"merger_model"`
	ProposalAgents        []ProposalAgent `yaml:"proposal_agents"`
	FidelityThreshold     float64         `yaml:"fidelity_threshold"`
	MaxRounds             int             `yaml:"max_rounds"`
	DebateEnabled         bool            `yaml:"debate_enabled"`
	HumanApprovalRequired bool            `yaml:"human_approval_required"`
}

// MaxRoundsCeiling is the hard ceiling on MaxRounds (§6).
const MaxRoundsCeiling = 10

// Default returns the documented defaults (§6): fidelity_threshold=95.0,
// max_rounds=3, debate_enabled=true, human_approval_required=false.
func Default() PipelineConfig {
	return PipelineConfig{
		FidelityThreshold: 95.0,
		MaxRounds:         3,
		DebateEnabled:     true,
	}
}

// Load reads a YAML file into a PipelineConfig, applying Default() for any
// zero-valued field the file doesn't set, then validates it.
func Load(path string) (PipelineConfig, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return PipelineConfig{}, fmt.Errorf("read pipeline config: %w", err)
	}

	// Unmarshal onto the defaults so an absent key keeps its default rather
	// than zeroing it out.
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return PipelineConfig{}, fmt.Errorf("parse pipeline config: %w", err)
	}

	return cfg, cfg.Validate()
}

// Validate checks the invariants §6 names: proposal_agents non-empty,
// max_rounds positive and within the hard ceiling.
func (c PipelineConfig) Validate() error {
	if len(c.ProposalAgents) == 0 {
		return fmt.Errorf("pipeline config: proposal_agents must be non-empty")
	}
	if c.MaxRounds <= 0 {
		return fmt.Errorf("pipeline config: max_rounds must be positive")
	}
	if c.MaxRounds > MaxRoundsCeiling {
		return fmt.Errorf("pipeline config: max_rounds %d exceeds hard ceiling %d", c.MaxRounds, MaxRoundsCeiling)
	}
	return nil
}
