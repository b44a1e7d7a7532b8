package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Victoriakaey/troubador2/internal/core/domain"
	"github.com/Victoriakaey/troubador2/internal/core/ports"
	"github.com/Victoriakaey/troubador2/internal/logging"
	"github.com/Victoriakaey/troubador2/internal/metrics"
)

// DefaultMaxIter caps the model calls of a round that keeps asking for tools.
const DefaultMaxIter = 25

const finalAnswerPrompt = "You have used every tool step available for this task. " +
	"Do not call any more tools. Give your final answer now, in the expected output format."

// AgentConfig is the agent persona and its task. Text fields may contain
// {placeholders} filled from the inputs passed to Run.
type AgentConfig struct {
	Role      string
	Goal      string
	Backstory string

	TaskDescription string
	ExpectedOutput  string

	MaxIter     int
	InjectDate  bool
	Temperature float64
	MaxTokens   int
}

// AgentResult is the outcome of one agent run.
type AgentResult struct {
	Output            string
	Iterations        int
	HitIterationLimit bool
	Invocations       []domain.ToolInvocation
}

// Agent drives a model through a tool-calling loop until it produces a final
// answer.
type Agent struct {
	model   ports.Model
	tools   ports.ToolSet
	cfg     AgentConfig
	metrics *metrics.Recorder
	logger  *slog.Logger
	now     func() time.Time
}

// NewAgent constructs an Agent. A non-positive MaxIter uses DefaultMaxIter.
func NewAgent(model ports.Model, tools ports.ToolSet, cfg AgentConfig, rec *metrics.Recorder, logger *slog.Logger) *Agent {
	if cfg.MaxIter <= 0 {
		cfg.MaxIter = DefaultMaxIter
	}
	return &Agent{
		model:   model,
		tools:   tools,
		cfg:     cfg,
		metrics: rec,
		logger:  logging.OrDiscard(logger),
		now:     time.Now,
	}
}

// Run executes the task with inputs interpolated into the prompts.
func (a *Agent) Run(ctx context.Context, inputs map[string]string) (AgentResult, error) {
	var res AgentResult

	messages := a.prompt(inputs)
	specs := a.tools.Specs()

	for res.Iterations < a.cfg.MaxIter {
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("service: agent interrupted: %w", err)
		}

		completion, err := a.complete(ctx, messages, specs)
		res.Iterations++
		if err != nil {
			return res, fmt.Errorf("service: model call %d: %w", res.Iterations, err)
		}

		if len(completion.ToolCalls) == 0 {
			res.Output = completion.Content
			return res, nil
		}

		messages = append(messages, domain.Message{
			Role:      domain.RoleAssistant,
			Content:   completion.Content,
			ToolCalls: completion.ToolCalls,
		})
		for _, call := range completion.ToolCalls {
			inv := a.invoke(ctx, call)
			res.Invocations = append(res.Invocations, inv)
			messages = append(messages, domain.Message{
				Role:       domain.RoleTool,
				Content:    inv.Result,
				ToolCallID: call.ID,
				ToolName:   call.Name,
			})
		}
	}

	a.logger.Warn("service: agent hit iteration limit, forcing final answer", "max_iter", a.cfg.MaxIter)
	res.HitIterationLimit = true
	messages = append(messages, domain.Message{Role: domain.RoleUser, Content: finalAnswerPrompt})

	completion, err := a.complete(ctx, messages, nil)
	res.Iterations++
	if err != nil {
		return res, fmt.Errorf("service: final answer: %w", err)
	}
	res.Output = completion.Content
	return res, nil
}

func (a *Agent) complete(ctx context.Context, messages []domain.Message, specs []domain.ToolSpec) (domain.Completion, error) {
	start := time.Now()
	completion, err := a.model.Complete(ctx, domain.CompletionRequest{
		Messages:    messages,
		Tools:       specs,
		Temperature: a.cfg.Temperature,
		MaxTokens:   a.cfg.MaxTokens,
	})
	a.metrics.ObserveModel(a.model.Name(), completion.Usage.PromptTokens, completion.Usage.CompletionTokens, err, time.Since(start))
	return completion, err
}

// invoke runs one tool call. Unknown tools answer with an error string so the
// model can correct itself.
func (a *Agent) invoke(ctx context.Context, call domain.ToolCall) domain.ToolInvocation {
	start := time.Now()
	inv := domain.ToolInvocation{Tool: call.Name, Arguments: call.Arguments}

	tool, ok := a.tools.Get(call.Name)
	if !ok {
		inv.Result = fmt.Sprintf("Error: tool %q does not exist. Available tools: %s",
			call.Name, strings.Join(a.tools.Names(), ", "))
		a.logger.Warn("service: model requested unknown tool", "tool", call.Name)
	} else {
		inv.Result = tool.Call(ctx, call.Arguments)
	}

	inv.Duration = time.Since(start)
	a.logger.Debug("service: tool invoked", "tool", call.Name, "duration", inv.Duration)
	return inv
}

func (a *Agent) prompt(inputs map[string]string) []domain.Message {
	r := replacerFor(inputs)

	system := fmt.Sprintf("You are %s. %s\nYour personal goal is: %s",
		r.Replace(a.cfg.Role), r.Replace(a.cfg.Backstory), r.Replace(a.cfg.Goal))

	var task strings.Builder
	task.WriteString("Current Task: ")
	task.WriteString(r.Replace(a.cfg.TaskDescription))
	if a.cfg.InjectDate {
		task.WriteString("\n\nCurrent Date: ")
		task.WriteString(a.now().Format("2006-01-02"))
	}
	if a.cfg.ExpectedOutput != "" {
		task.WriteString("\n\nThis is the expected criteria for your final answer: ")
		task.WriteString(r.Replace(a.cfg.ExpectedOutput))
		task.WriteString("\nYou MUST return the actual complete content as the final answer, not a summary.")
	}

	return []domain.Message{
		{Role: domain.RoleSystem, Content: system},
		{Role: domain.RoleUser, Content: task.String()},
	}
}

// replacerFor substitutes {key} with inputs[key]. Unknown placeholders are
// left as they are.
func replacerFor(inputs map[string]string) *strings.Replacer {
	pairs := make([]string, 0, len(inputs)*2)
	for k, v := range inputs {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...)
}
