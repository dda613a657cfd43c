package mcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/recuria/recuria/internal/backup"
	"github.com/recuria/recuria/internal/pathutil"
	"github.com/recuria/recuria/internal/report"
	"github.com/recuria/recuria/internal/sanitize"
	"github.com/recuria/recuria/internal/simulation"
)

// MaxToolSteps caps max_steps for a single recuria_simulate call.
const MaxToolSteps = 100000

// DefaultHistoryLimit is the number of batches recuria_history returns by default.
const DefaultHistoryLimit = 20

const latestBatchURI = "recuria://batches/latest"

// registerTools registers all recuria MCP tools with the server.
func (s *Server) registerTools() {
	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "recuria_simulate",
		Description: "Run the four-system feedback experiment (A: primes, B: stability of A, C: random, D: pattern) and summarize each system",
	}, s.handleSimulate)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "recuria_history",
		Description: "List stored experiment batches, newest first",
	}, s.handleHistory)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "recuria_run",
		Description: "Get one system's decision, stability and self-evaluation trace from a stored batch",
	}, s.handleRun)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "recuria_export",
		Description: "Write stored batches to a compressed, checksummed archive under a .recuria/exports directory",
	}, s.handleExport)
}

// registerResources registers MCP resources for auto-loading into context.
func (s *Server) registerResources() {
	s.server.AddResource(&sdk.Resource{
		URI:         latestBatchURI,
		Name:        "recuria-latest-batch",
		Description: "Summary of the most recent stored experiment batch.",
		MIMEType:    "text/markdown",
	}, s.handleLatestResource)
}

func (s *Server) handleSimulate(ctx context.Context, req *sdk.CallToolRequest, args SimulateInput) (_ *sdk.CallToolResult, _ SimulateOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("recuria_simulate", start, retErr, auditParams(map[string]any{
			"max_steps": args.MaxSteps, "profile": args.Profile, "memory_capacity": args.MemoryCapacity,
			"seed": args.Seed, "save": args.Save,
		}))
	}()

	if err := s.limiters.Check("recuria_simulate"); err != nil {
		return nil, SimulateOutput{}, err
	}

	cfg := *s.settings
	if args.Profile != "" {
		if err := cfg.ApplyProfile(args.Profile); err != nil {
			return nil, SimulateOutput{}, err
		}
	}
	if args.MaxSteps != 0 {
		cfg.Simulation.MaxSteps = args.MaxSteps
	}
	if args.MemoryCapacity != 0 {
		cfg.Simulation.MemoryCapacity = args.MemoryCapacity
	}
	if args.Seed != 0 {
		cfg.Simulation.Seed = args.Seed
	}
	if cfg.Simulation.MaxSteps > MaxToolSteps {
		return nil, SimulateOutput{}, fmt.Errorf("max_steps %d exceeds the limit of %d", cfg.Simulation.MaxSteps, MaxToolSteps)
	}
	if err := cfg.Validate(); err != nil {
		return nil, SimulateOutput{}, fmt.Errorf("invalid parameters: %w", err)
	}

	scenario, err := simulation.ScenarioFromConfig(&cfg)
	if err != nil {
		return nil, SimulateOutput{}, err
	}
	set, err := s.primeSet(scenario.PrimeLimit())
	if err != nil {
		return nil, SimulateOutput{}, fmt.Errorf("loading primes: %w", err)
	}

	opts := []simulation.Option{simulation.WithClock(s.clock), simulation.WithLogger(s.logger)}
	if args.Save {
		opts = append(opts, simulation.WithSinks(s.store))
	}
	runner, err := simulation.New(scenario, set, opts...)
	if err != nil {
		return nil, SimulateOutput{}, err
	}

	batch, err := runner.Run(ctx)
	if batch == nil {
		return nil, SimulateOutput{}, err
	}
	if err != nil {
		return nil, SimulateOutput{}, fmt.Errorf("batch %s completed but could not be saved: %w", batch.ID, err)
	}

	summary := report.Summarize(batch)
	msg := fmt.Sprintf("Ran %d steps per system (memory capacity %d)", scenario.MaxSteps, scenario.Engine.MemoryCapacity)
	if args.Save {
		msg += "; saved as " + batch.ID
	}

	return nil, SimulateOutput{
		BatchID: batch.ID,
		Seed:    batch.Seed,
		Systems: summary.Systems,
		Saved:   args.Save,
		Message: msg,
	}, nil
}

func (s *Server) handleHistory(ctx context.Context, req *sdk.CallToolRequest, args HistoryInput) (_ *sdk.CallToolResult, _ HistoryOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("recuria_history", start, retErr, auditParams(map[string]any{"limit": args.Limit}))
	}()

	if err := s.limiters.Check("recuria_history"); err != nil {
		return nil, HistoryOutput{}, err
	}

	limit := args.Limit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	infos, err := s.store.ListBatches(ctx, limit)
	if err != nil {
		return nil, HistoryOutput{}, fmt.Errorf("failed to list batches: %w", err)
	}
	return nil, HistoryOutput{Batches: infos, Count: len(infos)}, nil
}

func (s *Server) handleRun(ctx context.Context, req *sdk.CallToolRequest, args RunInput) (_ *sdk.CallToolResult, _ RunOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("recuria_run", start, retErr, auditParams(map[string]any{
			"batch_id": args.BatchID, "system": args.System, "tail": args.Tail,
		}))
	}()

	if err := s.limiters.Check("recuria_run"); err != nil {
		return nil, RunOutput{}, err
	}

	batchID := sanitize.BatchID(args.BatchID)
	if batchID == "" {
		return nil, RunOutput{}, fmt.Errorf("batch_id is required")
	}
	label := simulation.Label(strings.ToUpper(strings.TrimSpace(args.System)))
	if label.InputKind() == "" {
		return nil, RunOutput{}, fmt.Errorf("invalid system %q (valid: A, B, C, D)", args.System)
	}

	batch, err := s.store.LoadBatch(ctx, batchID)
	if err != nil {
		return nil, RunOutput{}, err
	}
	sys, ok := batch.System(label)
	if !ok {
		return nil, RunOutput{}, fmt.Errorf("batch %s has no system %s", batchID, label)
	}

	h := sys.History
	from := 0
	if args.Tail > 0 && args.Tail < h.Len() {
		from = h.Len() - args.Tail
	}

	return nil, RunOutput{
		BatchID:   batch.ID,
		System:    string(label),
		Input:     sys.Input,
		Weights:   sys.Weights,
		Steps:     h.Len(),
		FirstStep: from,
		Decisions: h.Decisions[from:],
		Stability: h.Stability[from:],
		SelfEval:  h.SelfEval[from:],
	}, nil
}

func (s *Server) handleExport(ctx context.Context, req *sdk.CallToolRequest, args ExportInput) (_ *sdk.CallToolResult, _ ExportOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("recuria_export", start, retErr, auditParams(map[string]any{
			"batch_ids": len(args.BatchIDs), "path": pathutil.RedactPath(args.Path), "note": args.Note != "",
		}))
	}()

	if err := s.limiters.Check("recuria_export"); err != nil {
		return nil, ExportOutput{}, err
	}

	allowed, err := pathutil.AllowedExportDirs(s.root)
	if err != nil {
		return nil, ExportOutput{}, err
	}
	now := s.clock.Now()
	path := args.Path
	if path == "" {
		path = backup.UniquePath(backup.GeneratePath(allowed[len(allowed)-1], now))
	}
	if err := pathutil.ValidatePath(path, allowed); err != nil {
		return nil, ExportOutput{}, err
	}

	var ids []string
	for _, raw := range args.BatchIDs {
		id := sanitize.BatchID(raw)
		if id == "" {
			return nil, ExportOutput{}, fmt.Errorf("invalid batch id %q", raw)
		}
		ids = append(ids, id)
	}

	archive, err := backup.Collect(ctx, s.store, ids, now)
	if err != nil {
		return nil, ExportOutput{}, err
	}
	if len(archive.Batches) == 0 {
		return nil, ExportOutput{}, fmt.Errorf("no stored batches to export")
	}
	metadata := map[string]string{"source": "recuria-mcp"}
	if note := sanitize.Note(args.Note); note != "" {
		metadata["note"] = note
	}
	if err := backup.WriteV2(path, archive, metadata); err != nil {
		return nil, ExportOutput{}, fmt.Errorf("failed to write archive: %w", err)
	}

	return nil, ExportOutput{
		Path:       path,
		BatchCount: len(archive.Batches),
		StepCount:  archive.StepCount(),
		Message:    fmt.Sprintf("Exported %d batch(es) to %s", len(archive.Batches), pathutil.RedactPath(path)),
	}, nil
}

// handleLatestResource renders the newest stored batch as markdown.
func (s *Server) handleLatestResource(ctx context.Context, req *sdk.ReadResourceRequest) (*sdk.ReadResourceResult, error) {
	infos, err := s.store.ListBatches(ctx, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to list batches: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("# Latest Recuria Batch\n\n")
	if len(infos) == 0 {
		sb.WriteString("No batches stored yet. Run one with `recuria_simulate` and `save: true`.\n")
	} else {
		batch, err := s.store.LoadBatch(ctx, infos[0].ID)
		if err != nil {
			return nil, err
		}
		summary := report.Summarize(batch)
		fmt.Fprintf(&sb, "Batch `%s`, seed %d, %d steps, memory capacity %d.\n\n",
			batch.ID, batch.Seed, batch.Scenario.MaxSteps, batch.Scenario.Engine.MemoryCapacity)
		sb.WriteString("| System | Input | Ones | Mean stability | Final self_eval |\n")
		sb.WriteString("|---|---|---|---|---|\n")
		for _, ss := range summary.Systems {
			fmt.Fprintf(&sb, "| %s | %s | %d | %.4f | %.4f |\n",
				ss.Label, ss.Input, ss.Ones, ss.MeanStability, ss.FinalSelfEval)
		}
	}

	return &sdk.ReadResourceResult{
		Contents: []*sdk.ResourceContents{
			{
				URI:      latestBatchURI,
				MIMEType: "text/markdown",
				Text:     sb.String(),
			},
		},
	}, nil
}
