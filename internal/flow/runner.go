package flow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/atendify/flowengine/internal/metric"
	"github.com/atendify/flowengine/internal/models"
)

// DefaultMaxHops bounds how many non-blocking nodes a single inbound turn may
// chain through, guarding against cyclic graphs.
const DefaultMaxHops = 10

// Runner executes conversation turns: it loads or creates the resting state
// for an identity, evaluates nodes until one blocks or terminates, persists
// the new resting state and returns the accumulated outbound segments.
type Runner struct {
	store    StateStore
	history  HistoryRecorder
	notifier HandoffNotifier
	clock    Clock
	metrics  *metric.Metrics
	maxHops  int
	locks    *identityLocks
}

// Option configures a Runner.
type Option func(*Runner)

// WithHandoffNotifier sets the collaborator informed on transfer nodes.
func WithHandoffNotifier(n HandoffNotifier) Option {
	return func(r *Runner) { r.notifier = n }
}

// WithClock replaces the wall clock, used by business-hours gating.
func WithClock(c Clock) Option {
	return func(r *Runner) { r.clock = c }
}

// WithMetrics sets the metrics collectors the runner reports into.
func WithMetrics(m *metric.Metrics) Option {
	return func(r *Runner) { r.metrics = m }
}

// WithMaxHops overrides the auto-advance bound.
func WithMaxHops(n int) Option {
	return func(r *Runner) { r.maxHops = n }
}

// NewRunner creates a runner with the given collaborators.
func NewRunner(store StateStore, history HistoryRecorder, opts ...Option) *Runner {
	r := &Runner{
		store:   store,
		history: history,
		clock:   SystemClock{},
		metrics: metric.New(),
		maxHops: DefaultMaxHops,
		locks:   newIdentityLocks(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Step processes one inbound message for the identity against the given flow
// definition. It returns the ordered outbound segments; the transport caller
// is expected to deliver the first immediately and later ones after a short
// typing delay.
//
// On failure the returned slice holds a single safe segment and the error
// carries the taxonomy classification; no partial state is ever persisted.
func (r *Runner) Step(ctx context.Context, def *models.FlowDefinition, id models.Identity, inbound string) ([]string, error) {
	started := time.Now()
	defer func() {
		r.metrics.TurnDuration.Observe(time.Since(started).Seconds())
	}()

	if err := id.Validate(); err != nil {
		return r.fail(id, err)
	}
	g, err := NewGraph(def)
	if err != nil {
		return r.fail(id, err)
	}

	// One in-flight turn per identity: concurrent inbound messages for the
	// same conversation are serialized here.
	unlock := r.locks.acquire(id.Key())
	defer unlock()

	state, err := r.store.LoadState(ctx, id)
	if err != nil {
		return r.fail(id, fmt.Errorf("%w: load: %v", models.ErrStateStore, err))
	}
	if state == nil {
		startNode, err := g.StartNode()
		if err != nil {
			return r.fail(id, err)
		}
		now := r.clock.Now()
		state = &models.ConversationState{
			Identity:      id,
			CurrentNodeID: startNode.ID,
			Variables:     make(map[string]string),
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		slog.Debug("Runner seeded new conversation", "identity", id.Key(), "startNode", startNode.ID)
	}
	state.LastMessage = inbound

	var segments []string
	// Only the first evaluated node sees the inbound text; auto-advanced
	// nodes were not prompted by the user.
	input := inbound
	for hops := 0; ; hops++ {
		node, err := g.FindNode(state.CurrentNodeID)
		if err != nil {
			// The persisted state references a node the current definition no
			// longer has (graph edited mid-conversation). Fail explicitly
			// rather than guess.
			return r.fail(id, err)
		}

		res, err := r.evaluateNode(g, node, input, state)
		if err != nil {
			return r.fail(id, err)
		}
		input = ""

		if res.Text != "" {
			segments = append(segments, res.Text)
		}

		if res.Terminal {
			if err := r.finalize(ctx, node, *state, res); err != nil {
				return r.fail(id, err)
			}
			r.metrics.TurnsTotal.WithLabelValues("ok").Inc()
			return segments, nil
		}

		if res.Blocking {
			break
		}

		if res.NextNodeID == "" {
			// Dangling branch: the flow ends silently. No history record.
			slog.Info("Runner reached dangling branch, ending flow silently",
				"identity", id.Key(), "nodeID", node.ID)
			if err := r.store.DeleteState(ctx, id); err != nil {
				return r.fail(id, fmt.Errorf("%w: delete: %v", models.ErrStateStore, err))
			}
			r.metrics.TurnsTotal.WithLabelValues("ok").Inc()
			return segments, nil
		}

		if res.NextNodeID == state.CurrentNodeID {
			// Self-reference without progress; rest here.
			break
		}
		if hops == r.maxHops {
			slog.Warn("Runner hit hop limit, resting mid-flow",
				"identity", id.Key(), "nodeID", node.ID, "maxHops", r.maxHops)
			break
		}
		state.CurrentNodeID = res.NextNodeID
	}

	state.UpdatedAt = r.clock.Now()
	if err := r.store.SaveState(ctx, *state); err != nil {
		return r.fail(id, fmt.Errorf("%w: save: %v", models.ErrStateStore, err))
	}

	r.metrics.TurnsTotal.WithLabelValues("ok").Inc()
	slog.Debug("Runner turn complete", "identity", id.Key(),
		"restingNode", state.CurrentNodeID, "segments", len(segments))
	return segments, nil
}

// finalize applies a terminal result: delete the state row, append the audit
// record and notify the hand-off collaborator. The state deletion must
// succeed; the history append is best-effort and never rolls the deletion
// back.
func (r *Runner) finalize(ctx context.Context, node models.Node, state models.ConversationState, res StepResult) error {
	if err := r.store.DeleteState(ctx, state.Identity); err != nil {
		return fmt.Errorf("%w: delete at terminal node %s: %v", models.ErrStateStore, node.ID, err)
	}

	extra := map[string]string{"last_message": state.LastMessage}
	if res.Handoff != nil {
		extra["handoff_kind"] = string(res.Handoff.Kind)
		extra["target_id"] = res.Handoff.TargetID
	}
	record := models.ConversationHistory{
		ID:          uuid.NewString(),
		Identity:    state.Identity,
		FinalNodeID: node.ID,
		Variables:   copyVariables(state.Variables),
		Status:      res.Status,
		Extra:       extra,
		CreatedAt:   r.clock.Now(),
	}
	if err := r.history.AppendHistory(ctx, record); err != nil {
		// Audit record lost; the conversation itself terminated cleanly.
		slog.Error("Runner failed to append conversation history",
			"identity", state.Identity.Key(), "status", res.Status, "error", err)
		r.metrics.HistoryWriteFailures.Inc()
	}

	if res.Handoff != nil {
		r.metrics.Handoffs.WithLabelValues(string(res.Handoff.Kind)).Inc()
		if r.notifier != nil {
			if err := r.notifier.NotifyHandoff(ctx, res.Handoff.Kind, res.Handoff.TargetID, state); err != nil {
				// Fire-and-forget; the transport layer owns retries.
				slog.Warn("Runner hand-off notification failed",
					"identity", state.Identity.Key(), "kind", res.Handoff.Kind,
					"targetID", res.Handoff.TargetID, "error", err)
			}
		}
	}

	slog.Info("Runner terminated conversation", "identity", state.Identity.Key(),
		"finalNode", node.ID, "status", res.Status)
	return nil
}

// fail converts an engine error into the single safe outbound segment the
// caller may show the user.
func (r *Runner) fail(id models.Identity, err error) ([]string, error) {
	kind := models.KindOf(err)
	r.metrics.TurnsTotal.WithLabelValues(string(kind)).Inc()
	slog.Error("Runner turn failed", "identity", id.Key(), "kind", kind, "error", err)
	msg := MsgInternalError
	if kind == models.ErrorKindConfiguration {
		msg = MsgConfigurationError
	}
	return []string{msg}, err
}

func copyVariables(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
