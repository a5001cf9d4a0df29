package flow

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/atendify/flowengine/internal/models"
)

// User-visible messages for turns the engine cannot advance normally.
const (
	// MsgOptionNotWired is sent when input selected a valid option whose
	// node has no outgoing edge at all.
	MsgOptionNotWired = "Your choice was recognized, but this step of the conversation is not connected yet. Please try another option."
	// MsgInternalError is the safe segment returned on state-store and
	// graph failures.
	MsgInternalError = "Sorry, something went wrong on our side. Please try again in a moment."
	// MsgConfigurationError is the safe segment returned when a node is
	// missing required configuration.
	MsgConfigurationError = "This conversation is not configured correctly. Please contact the account operator."
)

// StepResult is the outcome of evaluating one node against the current
// inbound input.
type StepResult struct {
	// Text is the outbound segment produced by the node; empty means the
	// node is silent this turn.
	Text string
	// NextNodeID is where the conversation moves next. Empty with
	// Blocking and Terminal both false marks a dangling branch: the flow
	// ends silently.
	NextNodeID string
	// Blocking means the node must wait for further user input before
	// advancing; the conversation rests here.
	Blocking bool
	// Terminal means the conversation is over: history is written, state
	// is deleted and the turn returns immediately.
	Terminal bool
	// Status is the history status for terminal results.
	Status models.HistoryStatus
	// Handoff carries the hand-off directive for transfer nodes.
	Handoff *Handoff
}

// Handoff is the side effect of a transfer node.
type Handoff struct {
	Kind     HandoffKind
	TargetID string
}

// evaluateNode runs the evaluator matching the node kind. input is the raw
// inbound text on the first hop of a turn and empty on auto-advanced hops.
func (r *Runner) evaluateNode(g *Graph, node models.Node, input string, state *models.ConversationState) (StepResult, error) {
	switch node.Kind {
	case models.NodeKindStart, models.NodeKindMessage:
		return r.evalMessage(g, node)
	case models.NodeKindOptions:
		return r.evalOptions(g, node, input)
	case models.NodeKindDecision:
		return r.evalDecision(g, node, input)
	case models.NodeKindCollectData:
		return r.evalCollectData(g, node, input, state)
	case models.NodeKindBusinessHours:
		return r.evalBusinessHours(g, node)
	case models.NodeKindTransferTeam:
		return r.evalTransfer(node, HandoffTeam, models.HistoryStatusTransferredTeam)
	case models.NodeKindTransferAgent:
		return r.evalTransfer(node, HandoffAgent, models.HistoryStatusTransferredAgent)
	case models.NodeKindEnd:
		return r.evalEnd(node)
	case models.NodeKindSatisfactionSurvey:
		return r.evalSurvey(g, node, input, state)
	default:
		return r.evalUnsupported(g, node)
	}
}

// evalMessage handles start and message nodes: emit the configured text and
// advance through the unconditional edge.
func (r *Runner) evalMessage(g *Graph, node models.Node) (StepResult, error) {
	var cfg models.MessageConfig
	if err := node.DecodeConfig(&cfg); err != nil {
		return StepResult{}, err
	}
	res := StepResult{Text: cfg.Text}
	if edge := g.ResolveEdge(node.ID, "", r.metrics); edge != nil {
		res.NextNodeID = edge.TargetNodeID
	}
	return res, nil
}

func (r *Runner) evalOptions(g *Graph, node models.Node, input string) (StepResult, error) {
	var cfg models.OptionsConfig
	if err := node.DecodeConfig(&cfg); err != nil {
		return StepResult{}, err
	}
	return r.branchOnChoice(g, node, input, cfg.Prompt, cfg.Options, OptionHandle)
}

func (r *Runner) evalDecision(g *Graph, node models.Node, input string) (StepResult, error) {
	var cfg models.DecisionConfig
	if err := node.DecodeConfig(&cfg); err != nil {
		return StepResult{}, err
	}
	return r.branchOnChoice(g, node, input, cfg.Prompt, cfg.Labels(), DecisionHandle)
}

// branchOnChoice implements the shared options/decision pattern: unmatched
// input re-asks the numbered prompt and blocks, matched input resolves the
// edge by the computed handle.
func (r *Runner) branchOnChoice(g *Graph, node models.Node, input string, prompt string, options []string, handle func(int) string) (StepResult, error) {
	idx := MatchOption(input, options)
	if idx == Unmatched {
		return StepResult{
			Text:       FormatOptionList(prompt, options),
			NextNodeID: node.ID,
			Blocking:   true,
		}, nil
	}

	edge := g.ResolveEdge(node.ID, handle(idx), r.metrics)
	if edge == nil {
		// Option recognized but nothing is wired downstream; report it and
		// end the turn without transition.
		slog.Warn("Matched option has no outgoing edge", "flowID", g.FlowID(), "nodeID", node.ID, "index", idx)
		return StepResult{
			Text:       MsgOptionNotWired,
			NextNodeID: node.ID,
			Blocking:   true,
		}, nil
	}
	// The next node supplies its own text.
	return StepResult{NextNodeID: edge.TargetNodeID}, nil
}

// evalCollectData captures non-empty input into the configured variable and
// advances; empty input means this is the first visit and the prompt is asked.
func (r *Runner) evalCollectData(g *Graph, node models.Node, input string, state *models.ConversationState) (StepResult, error) {
	var cfg models.CollectDataConfig
	if err := node.DecodeConfig(&cfg); err != nil {
		return StepResult{}, err
	}
	name := cfg.VariableName
	if name == "" {
		name = node.ID
	}

	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return StepResult{Text: cfg.Prompt, NextNodeID: node.ID, Blocking: true}, nil
	}

	if state.Variables == nil {
		state.Variables = make(map[string]string)
	}
	state.Variables[name] = trimmed
	slog.Debug("Collected variable", "nodeID", node.ID, "variable", name)

	res := StepResult{}
	if edge := g.ResolveEdge(node.ID, "", r.metrics); edge != nil {
		res.NextNodeID = edge.TargetNodeID
	}
	return res, nil
}

// evalBusinessHours routes through the "true" or "false" handle depending on
// the injected clock. The node itself is silent; downstream nodes supply the
// wording. A branch without a matching edge ends the flow silently.
func (r *Runner) evalBusinessHours(g *Graph, node models.Node) (StepResult, error) {
	var cfg models.BusinessHoursConfig
	if err := node.DecodeConfig(&cfg); err != nil {
		return StepResult{}, err
	}
	handle := "false"
	if WithinBusinessHours(r.clock.Now(), cfg) {
		handle = "true"
	}
	slog.Debug("Business hours evaluated", "nodeID", node.ID, "handle", handle)

	res := StepResult{}
	if edge := g.ResolveEdge(node.ID, handle, r.metrics); edge != nil {
		res.NextNodeID = edge.TargetNodeID
	}
	return res, nil
}

// evalTransfer terminates the conversation with a hand-off directive. A
// missing target id is a configuration error: the turn aborts with no side
// effects.
func (r *Runner) evalTransfer(node models.Node, kind HandoffKind, status models.HistoryStatus) (StepResult, error) {
	var cfg models.TransferConfig
	if err := node.DecodeConfig(&cfg); err != nil {
		return StepResult{}, err
	}
	if cfg.TargetID == "" {
		return StepResult{}, fmt.Errorf("%w: node %s (%s)", models.ErrMissingTransferTarget, node.ID, node.Kind)
	}
	return StepResult{
		Text:     cfg.Message,
		Terminal: true,
		Status:   status,
		Handoff:  &Handoff{Kind: kind, TargetID: cfg.TargetID},
	}, nil
}

func (r *Runner) evalEnd(node models.Node) (StepResult, error) {
	var cfg models.MessageConfig
	if err := node.DecodeConfig(&cfg); err != nil {
		return StepResult{}, err
	}
	return StepResult{Text: cfg.Text, Terminal: true, Status: models.HistoryStatusCompleted}, nil
}

// evalSurvey accepts a 1..5 rating, stores it and advances; anything else
// re-presents the rating prompt.
func (r *Runner) evalSurvey(g *Graph, node models.Node, input string, state *models.ConversationState) (StepResult, error) {
	var cfg models.SurveyConfig
	if err := node.DecodeConfig(&cfg); err != nil {
		return StepResult{}, err
	}

	rating, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil || rating < 1 || rating > 5 {
		return StepResult{Text: cfg.Prompt, NextNodeID: node.ID, Blocking: true}, nil
	}

	name := cfg.VariableName
	if name == "" {
		name = models.DefaultSurveyVariable
	}
	if state.Variables == nil {
		state.Variables = make(map[string]string)
	}
	state.Variables[name] = strconv.Itoa(rating)

	res := StepResult{}
	if edge := g.ResolveEdge(node.ID, "", r.metrics); edge != nil {
		res.NextNodeID = edge.TargetNodeID
	}
	return res, nil
}

// evalUnsupported keeps unfamiliar graphs moving: behave like a message node
// with a best-effort text lookup instead of failing hard.
func (r *Runner) evalUnsupported(g *Graph, node models.Node) (StepResult, error) {
	slog.Warn("Evaluating unsupported node kind as message", "nodeID", node.ID, "kind", node.Kind)
	text := ""
	for _, key := range []string{"text", "message", "prompt", "body"} {
		if v, ok := node.Config[key].(string); ok && v != "" {
			text = v
			break
		}
	}
	res := StepResult{Text: text}
	if edge := g.ResolveEdge(node.ID, "", r.metrics); edge != nil {
		res.NextNodeID = edge.TargetNodeID
	}
	return res, nil
}
