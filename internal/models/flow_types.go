// Package models defines the core data structures for the flowengine.
//
// It includes the flow graph types (nodes, edges, per-kind node
// configuration) and the durable conversation records shared across modules.
package models

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// NodeKind identifies the behavior of a flow node.
type NodeKind string

const (
	// NodeKindStart is the entry node of a flow. Exactly one per flow.
	NodeKindStart NodeKind = "start"
	// NodeKindMessage sends a static message and advances.
	NodeKindMessage NodeKind = "message"
	// NodeKindOptions presents a numbered option menu and branches on the answer.
	NodeKindOptions NodeKind = "options"
	// NodeKindDecision presents a yes/no question and branches on the answer.
	NodeKindDecision NodeKind = "decision"
	// NodeKindCollectData captures the inbound message into a variable.
	NodeKindCollectData NodeKind = "collect_data"
	// NodeKindEnd terminates the conversation with a closing message.
	NodeKindEnd NodeKind = "end"
	// NodeKindTransferTeam hands the conversation off to a human team.
	NodeKindTransferTeam NodeKind = "transfer_team"
	// NodeKindTransferAgent hands the conversation off to a specific agent.
	NodeKindTransferAgent NodeKind = "transfer_agent"
	// NodeKindBusinessHours branches on whether the clock falls inside the
	// configured service window.
	NodeKindBusinessHours NodeKind = "business_hours"
	// NodeKindSatisfactionSurvey collects a 1-5 rating.
	NodeKindSatisfactionSurvey NodeKind = "satisfaction_survey"
)

// IsKnownNodeKind reports whether the kind has a dedicated evaluator.
// Unknown kinds are still executed, with message-like best-effort behavior.
func IsKnownNodeKind(k NodeKind) bool {
	switch k {
	case NodeKindStart, NodeKindMessage, NodeKindOptions, NodeKindDecision,
		NodeKindCollectData, NodeKindEnd, NodeKindTransferTeam,
		NodeKindTransferAgent, NodeKindBusinessHours, NodeKindSatisfactionSurvey:
		return true
	default:
		return false
	}
}

// Node is one step of an operator-authored flow.
type Node struct {
	ID     string         `json:"id"`
	Kind   NodeKind       `json:"kind"`
	Config map[string]any `json:"config,omitempty"`
}

// Edge is a directed transition between two nodes. SourceHandle discriminates
// between multiple outgoing edges of one node (e.g. "opcao_0", "sim", "true");
// an empty handle marks the unconditional edge.
type Edge struct {
	ID           string `json:"id"`
	SourceNodeID string `json:"source_node_id"`
	TargetNodeID string `json:"target_node_id"`
	SourceHandle string `json:"source_handle,omitempty"`
}

// FlowDefinition is the operator-authored conversation graph. It is read-only
// for the engine; the caller supplies it on every invocation.
type FlowDefinition struct {
	ID    string `json:"id"`
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Default labels for decision nodes when the operator left them unconfigured.
const (
	DefaultAffirmativeLabel = "Sim"
	DefaultNegativeLabel    = "Não"
)

// DefaultSurveyVariable is where satisfaction ratings are stored when the
// survey node does not name a variable.
const DefaultSurveyVariable = "satisfaction_rating"

// MessageConfig configures start, message and end nodes.
type MessageConfig struct {
	Text string `json:"text" mapstructure:"text"`
}

// OptionsConfig configures an options node.
type OptionsConfig struct {
	Prompt  string   `json:"prompt" mapstructure:"prompt"`
	Options []string `json:"options" mapstructure:"options"`
}

// DecisionConfig configures a decision node. Empty labels fall back to
// DefaultAffirmativeLabel / DefaultNegativeLabel.
type DecisionConfig struct {
	Prompt           string `json:"prompt" mapstructure:"prompt"`
	AffirmativeLabel string `json:"affirmative_label" mapstructure:"affirmative_label"`
	NegativeLabel    string `json:"negative_label" mapstructure:"negative_label"`
}

// Labels returns the ordered two-element label set used for input matching.
func (c DecisionConfig) Labels() []string {
	aff, neg := c.AffirmativeLabel, c.NegativeLabel
	if aff == "" {
		aff = DefaultAffirmativeLabel
	}
	if neg == "" {
		neg = DefaultNegativeLabel
	}
	return []string{aff, neg}
}

// CollectDataConfig configures a collect_data node.
type CollectDataConfig struct {
	Prompt       string `json:"prompt" mapstructure:"prompt"`
	VariableName string `json:"variable_name" mapstructure:"variable_name"`
}

// TimeRange is an inclusive window expressed in minutes since midnight.
type TimeRange struct {
	StartMinutes int `json:"start_minutes" mapstructure:"start_minutes"`
	EndMinutes   int `json:"end_minutes" mapstructure:"end_minutes"`
}

// BusinessHoursConfig configures a business_hours node. Weekday keys are
// lowercase English day names ("monday".."sunday").
type BusinessHoursConfig struct {
	Weekdays   map[string]bool `json:"weekdays" mapstructure:"weekdays"`
	TimeRanges []TimeRange     `json:"time_ranges" mapstructure:"time_ranges"`
}

// TransferConfig configures transfer_team and transfer_agent nodes. TargetID
// is the team or agent receiving the conversation; a missing target is a
// configuration error at evaluation time.
type TransferConfig struct {
	TargetID string `json:"target_id" mapstructure:"target_id"`
	Message  string `json:"message" mapstructure:"message"`
}

// SurveyConfig configures a satisfaction_survey node.
type SurveyConfig struct {
	Prompt       string `json:"prompt" mapstructure:"prompt"`
	VariableName string `json:"variable_name" mapstructure:"variable_name"`
}

// DecodeConfig decodes the node's free-form config map into the typed struct
// for its kind. Unknown keys are ignored; type mismatches surface as
// ErrInvalidNodeConfig so malformed graphs fail at load time instead of
// mid-conversation.
func (n Node) DecodeConfig(out any) error {
	if n.Config == nil {
		return nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("building config decoder for node %s: %w", n.ID, err)
	}
	if err := dec.Decode(n.Config); err != nil {
		return fmt.Errorf("%w: node %s (%s): %v", ErrInvalidNodeConfig, n.ID, n.Kind, err)
	}
	return nil
}

// ValidateStructure checks the flow-level invariants: exactly one start node
// and unique node ids. Per-kind config is type-checked here as well so that
// malformed graphs are rejected before any conversation touches them.
func (f *FlowDefinition) ValidateStructure() error {
	starts := 0
	seen := make(map[string]bool, len(f.Nodes))
	for _, n := range f.Nodes {
		if n.ID == "" {
			return fmt.Errorf("%w: flow %s has a node without an id", ErrInvalidFlow, f.ID)
		}
		if seen[n.ID] {
			return fmt.Errorf("%w: flow %s repeats node id %s", ErrDuplicateNodeID, f.ID, n.ID)
		}
		seen[n.ID] = true
		if n.Kind == NodeKindStart {
			starts++
		}
		if err := n.checkConfigShape(); err != nil {
			return err
		}
	}
	if starts == 0 {
		return fmt.Errorf("%w: flow %s", ErrNoStartNode, f.ID)
	}
	if starts > 1 {
		return fmt.Errorf("%w: flow %s has %d start nodes", ErrInvalidFlow, f.ID, starts)
	}
	return nil
}

// checkConfigShape type-checks the config map against the kind's struct.
// Required-field presence (e.g. a transfer target) is deliberately left to
// evaluation time so that an incomplete node only fails the turns that reach it.
func (n Node) checkConfigShape() error {
	switch n.Kind {
	case NodeKindStart, NodeKindMessage, NodeKindEnd:
		var cfg MessageConfig
		return n.DecodeConfig(&cfg)
	case NodeKindOptions:
		var cfg OptionsConfig
		return n.DecodeConfig(&cfg)
	case NodeKindDecision:
		var cfg DecisionConfig
		return n.DecodeConfig(&cfg)
	case NodeKindCollectData:
		var cfg CollectDataConfig
		return n.DecodeConfig(&cfg)
	case NodeKindBusinessHours:
		var cfg BusinessHoursConfig
		return n.DecodeConfig(&cfg)
	case NodeKindTransferTeam, NodeKindTransferAgent:
		var cfg TransferConfig
		return n.DecodeConfig(&cfg)
	case NodeKindSatisfactionSurvey:
		var cfg SurveyConfig
		return n.DecodeConfig(&cfg)
	default:
		// Unknown kinds run with message-like semantics; nothing to check.
		return nil
	}
}
