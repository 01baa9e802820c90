package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Sumatoshi-tech/pipeshift/pkg/migrate"
	"github.com/Sumatoshi-tech/pipeshift/pkg/rules"
	"github.com/Sumatoshi-tech/pipeshift/pkg/tsast"
	"github.com/Sumatoshi-tech/pipeshift/pkg/typecheck"
)

// Tool name constants.
const (
	ToolNameCheck = "pipeshift_check"
	ToolNameFix   = "pipeshift_fix"
	ToolNameRules = "pipeshift_rules"
)

// MaxCodeInputBytes is the maximum allowed size for inline code input (1 MB).
const MaxCodeInputBytes = 1 << 20

const defaultFileName = "input.ts"

// Sentinel errors for tool input validation.
var (
	ErrEmptyCode       = errors.New("code parameter is required and must not be empty")
	ErrCodeTooLarge    = errors.New("code input exceeds maximum size")
	ErrUnsupportedFile = errors.New("file_name must end in .ts, .tsx, .mts or .cts")
)

// CodeInput is the input schema shared by pipeshift_check and pipeshift_fix.
type CodeInput struct {
	Code     string   `json:"code"                jsonschema:"TypeScript source to process"`
	FileName string   `json:"file_name,omitempty" jsonschema:"file name used to pick the grammar (default: input.ts)"`
	Rules    []string `json:"rules,omitempty"     jsonschema:"optional list of rule names to run (default: all)"`
}

// RulesInput is the (empty) input schema for pipeshift_rules.
type RulesInput struct{}

// ToolOutput is a generic wrapper for tool results.
type ToolOutput struct {
	Data any `json:"data"`
}

// CheckResult is the pipeshift_check payload.
type CheckResult struct {
	Findings []migrate.Finding `json:"findings"`
	Clean    bool              `json:"clean"`
}

// FixResult is the pipeshift_fix payload.
type FixResult struct {
	Code      string            `json:"code"`
	Findings  []migrate.Finding `json:"findings"`
	Passes    int               `json:"passes"`
	Changed   bool              `json:"changed"`
	Converged bool              `json:"converged"`
	Skipped   bool              `json:"skipped,omitempty"`
}

type toolSet struct {
	registry  *rules.Registry
	logger    *slog.Logger
	typeOpts  typecheck.Options
	maxPasses int
}

func (ts *toolSet) runner(names []string) (*migrate.Runner, error) {
	selected, err := ts.registry.Select(names)
	if err != nil {
		return nil, err
	}

	return migrate.New(migrate.Options{
		Logger:      ts.logger,
		Rules:       selected,
		TypeOptions: ts.typeOpts,
		MaxPasses:   ts.maxPasses,
		Workers:     1,
		DryRun:      true,
	})
}

func (ts *toolSet) handleCheck(
	ctx context.Context,
	_ *mcpsdk.CallToolRequest,
	input CodeInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	name, err := validateCodeInput(input)
	if err != nil {
		return errorResult(err)
	}

	runner, err := ts.runner(input.Rules)
	if err != nil {
		return errorResult(err)
	}

	tree, violations, err := runner.Analyze(ctx, name, []byte(input.Code))
	if err != nil {
		return errorResult(fmt.Errorf("analyze: %w", err))
	}

	result := CheckResult{Findings: []migrate.Finding{}, Clean: len(violations) == 0}

	for _, v := range violations {
		line, col := tree.Position(v.Start)
		result.Findings = append(result.Findings, migrate.Finding{
			Rule:    v.Rule,
			Message: v.Message,
			File:    name,
			Line:    line + 1,
			Column:  col + 1,
			Pass:    1,
		})
	}

	return jsonResult(result)
}

func (ts *toolSet) handleFix(
	ctx context.Context,
	_ *mcpsdk.CallToolRequest,
	input CodeInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	name, err := validateCodeInput(input)
	if err != nil {
		return errorResult(err)
	}

	runner, err := ts.runner(input.Rules)
	if err != nil {
		return errorResult(err)
	}

	res, err := runner.FixSource(ctx, name, []byte(input.Code))
	converged := err == nil

	if err != nil && !errors.Is(err, migrate.ErrNotConverged) {
		return errorResult(fmt.Errorf("fix: %w", err))
	}

	findings := res.Findings
	if findings == nil {
		findings = []migrate.Finding{}
	}

	return jsonResult(FixResult{
		Code:      string(res.Fixed),
		Findings:  findings,
		Passes:    res.Passes,
		Changed:   res.Changed(),
		Converged: converged,
		Skipped:   res.Skipped(),
	})
}

func (ts *toolSet) handleRules(
	_ context.Context,
	_ *mcpsdk.CallToolRequest,
	_ RulesInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	all := ts.registry.All()

	meta := make([]rules.Metadata, 0, len(all))
	for _, rule := range all {
		meta = append(meta, rule.Metadata())
	}

	return jsonResult(meta)
}

// errorResult builds a CallToolResult with isError set.
func errorResult(err error) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: err.Error()},
		},
		IsError: true,
	}, ToolOutput{}, nil
}

// jsonResult builds a CallToolResult with JSON-encoded content.
func jsonResult(value any) (*mcpsdk.CallToolResult, ToolOutput, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return errorResult(fmt.Errorf("encode result: %w", err))
	}

	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: string(data)},
		},
	}, ToolOutput{Data: value}, nil
}

func validateCodeInput(input CodeInput) (string, error) {
	if input.Code == "" {
		return "", ErrEmptyCode
	}

	if len(input.Code) > MaxCodeInputBytes {
		return "", fmt.Errorf("%w: %d bytes (max %d)", ErrCodeTooLarge, len(input.Code), MaxCodeInputBytes)
	}

	name := input.FileName
	if name == "" {
		name = defaultFileName
	}

	if _, ok := tsast.LanguageFor(name); !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFile, name)
	}

	return name, nil
}
