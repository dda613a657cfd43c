package mcp

import (
	"github.com/recuria/recuria/internal/engine"
	"github.com/recuria/recuria/internal/report"
	"github.com/recuria/recuria/internal/store"
)

// SimulateInput defines the input for the recuria_simulate tool.
type SimulateInput struct {
	MaxSteps       int    `json:"max_steps,omitempty" jsonschema:"Number of steps per system (default from config)"`
	Profile        string `json:"profile,omitempty" jsonschema:"Named profile: 'compact' (1000 steps, memory 10) or 'extended' (10000 steps, memory 200)"`
	MemoryCapacity int    `json:"memory_capacity,omitempty" jsonschema:"Decision memory capacity (default from config)"`
	Seed           int64  `json:"seed,omitempty" jsonschema:"Seed for system C's random input; 0 derives one from the clock"`
	Save           bool   `json:"save,omitempty" jsonschema:"Persist the batch to the run history store (default: false)"`
}

// SimulateOutput defines the output for the recuria_simulate tool.
type SimulateOutput struct {
	BatchID string                 `json:"batch_id" jsonschema:"ID of the completed batch"`
	Seed    int64                  `json:"seed" jsonschema:"Seed used for system C"`
	Systems []report.SystemSummary `json:"systems" jsonschema:"Per-system summary in label order"`
	Saved   bool                   `json:"saved" jsonschema:"Whether the batch was persisted"`
	Message string                 `json:"message" jsonschema:"Human-readable result message"`
}

// HistoryInput defines the input for the recuria_history tool.
type HistoryInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"Maximum number of batches to return, newest first (default: 20)"`
}

// HistoryOutput defines the output for the recuria_history tool.
type HistoryOutput struct {
	Batches []store.BatchInfo `json:"batches" jsonschema:"Stored batches, newest first"`
	Count   int               `json:"count" jsonschema:"Number of batches returned"`
}

// RunInput defines the input for the recuria_run tool.
type RunInput struct {
	BatchID string `json:"batch_id" jsonschema:"ID of a stored batch"`
	System  string `json:"system" jsonschema:"System label: A, B, C or D"`
	Tail    int    `json:"tail,omitempty" jsonschema:"Return only the last N steps (default: all)"`
}

// RunOutput defines the output for the recuria_run tool.
type RunOutput struct {
	BatchID   string           `json:"batch_id"`
	System    string           `json:"system"`
	Input     string           `json:"input" jsonschema:"Input regime of the system"`
	Weights   engine.WeightSet `json:"weights" jsonschema:"Initial weights"`
	Steps     int              `json:"steps" jsonschema:"Total number of steps in the run"`
	FirstStep int              `json:"first_step" jsonschema:"Index of the first returned step"`
	Decisions []int            `json:"decisions"`
	Stability []float64        `json:"stability"`
	SelfEval  []float64        `json:"self_eval"`
}

// ExportInput defines the input for the recuria_export tool.
type ExportInput struct {
	BatchIDs []string `json:"batch_ids,omitempty" jsonschema:"Batches to export (default: every stored batch)"`
	Path     string   `json:"path,omitempty" jsonschema:"Archive path inside ~/.recuria/exports or the project .recuria/exports (default: timestamped file in the project exports dir)"`
	Note     string   `json:"note,omitempty" jsonschema:"Short note stored in the archive header"`
}

// ExportOutput defines the output for the recuria_export tool.
type ExportOutput struct {
	Path       string `json:"path" jsonschema:"Path of the written archive"`
	BatchCount int    `json:"batch_count"`
	StepCount  int    `json:"step_count" jsonschema:"Steps across every system of every exported batch"`
	Message    string `json:"message"`
}
