package engine

import (
	"context"
	"errors"
	"sort"

	"go.uber.org/zap"

	"github.com/andywolf/agenda/internal/catalog"
	"github.com/andywolf/agenda/internal/conversation"
	"github.com/andywolf/agenda/internal/events"
	"github.com/andywolf/agenda/internal/priority"
	"github.com/andywolf/agenda/internal/registry"
)

// SnapshotSource hands out the priority set to evaluate against.
// *registry.Registry satisfies it.
type SnapshotSource interface {
	Snapshot() *registry.Snapshot
}

// Sink receives one event per engine decision.
type Sink interface {
	WriteOne(event events.Event) error
}

// Activation is the result of one turn.
type Activation struct {
	Turn      int
	Priority  *priority.Priority
	Missing   []string
	Effect    Effect
	Triggered []string
}

// Active reports whether a priority was activated.
func (a Activation) Active() bool {
	return a.Priority != nil
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithSink records every decision to s.
func WithSink(s Sink) Option {
	return func(e *Engine) { e.sink = s }
}

// WithTasks checks task-bound activations against c.
func WithTasks(c catalog.Catalog) Option {
	return func(e *Engine) { e.tasks = c }
}

// Engine runs selection for conversations against a shared priority set.
// It holds no per-conversation state and is safe for concurrent use.
type Engine struct {
	source  SnapshotSource
	matcher TriggerMatcher
	guards  GuardEvaluator
	logger  *zap.Logger
	sink    Sink
	tasks   catalog.Catalog
}

// New creates an engine.
func New(source SnapshotSource, matcher TriggerMatcher, guards GuardEvaluator, opts ...Option) *Engine {
	e := &Engine{
		source:  source,
		matcher: matcher,
		guards:  guards,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Step evaluates one user turn and returns the activation, if any.
// The turn counter advances even when evaluation fails.
func (e *Engine) Step(ctx context.Context, conv *conversation.Conversation, text string) (Activation, error) {
	turnNo := conv.NextTurn()
	log := e.logger.With(zap.String("conversation", conv.ID), zap.Int("turn", turnNo))

	act, err := e.step(ctx, conv, turnNo, text, log)
	if err != nil {
		log.Warn("turn failed", zap.Error(err))
		ev := e.event(events.EventFailed, conv, turnNo)
		ev.Error = err.Error()
		ev.Triggered = act.Triggered
		var capErr *CapabilityError
		var taskErr *TaskUnavailableError
		switch {
		case errors.As(err, &capErr):
			ev.PriorityID = capErr.PriorityID
		case errors.As(err, &taskErr):
			ev.PriorityID = taskErr.PriorityID
			ev.TaskID = taskErr.TaskID
		}
		e.emit(ev)
		conv.ClearPending()
		return Activation{Turn: turnNo, Triggered: act.Triggered}, err
	}

	if !act.Active() {
		conv.ClearPending()
		log.Debug("no activation", zap.Strings("triggered", act.Triggered))
		ev := e.event(events.EventIdle, conv, turnNo)
		ev.Triggered = act.Triggered
		e.emit(ev)
		return act, nil
	}

	log.Info("priority activated",
		zap.String("priority", act.Priority.ID),
		zap.String("effect", string(act.Effect.Kind)),
		zap.Strings("missing", act.Missing))
	ev := e.event(events.EventActivated, conv, turnNo)
	ev.PriorityID = act.Priority.ID
	ev.Effect = string(act.Effect.Kind)
	ev.Triggered = act.Triggered
	ev.Missing = act.Missing
	ev.TaskID = act.Effect.TaskID
	e.emit(ev)
	conv.SetPending(conversation.Pending{PriorityID: act.Priority.ID, Missing: act.Missing})
	return act, nil
}

func (e *Engine) step(ctx context.Context, conv *conversation.Conversation, turnNo int, text string, log *zap.Logger) (Activation, error) {
	act := Activation{Turn: turnNo}
	snap := e.source.Snapshot()
	ps := snap.List()

	triggered, err := Triggered(ctx, e.matcher, ps, text)
	if err != nil {
		return act, err
	}
	act.Triggered = sortedKeys(triggered)

	sel, err := Evaluate(ctx, ps, e.turn(conv, turnNo, triggered, snap), e.guards)
	if err != nil {
		return act, err
	}
	for _, d := range sel.Decisions {
		if d.Reason != ReasonNotTriggered {
			log.Debug("decision", zap.String("priority", d.PriorityID), zap.String("reason", string(d.Reason)))
		}
	}
	if sel.Selected == nil {
		return act, nil
	}

	p := *sel.Selected
	missing := MissingData(p, conv.Known())
	effect := ResolveEffect(p, missing)
	if effect.Kind == EffectRunTask {
		if err := e.checkTask(ctx, p); err != nil {
			return act, err
		}
	}

	act.Priority = &p
	act.Missing = missing
	act.Effect = effect
	return act, nil
}

// Complete records that a priority finished in conv. The id must exist in
// the current priority set. A priority whose latest activation only requested
// missing data cannot complete: its effect has not run.
func (e *Engine) Complete(_ context.Context, conv *conversation.Conversation, id string) error {
	if !e.source.Snapshot().Has(id) {
		return &priority.NotFoundError{ID: id}
	}
	pending, ok := conv.Pending()
	if ok && pending.PriorityID == id {
		if pending.AwaitingData() {
			return &AwaitingDataError{PriorityID: id, Missing: pending.Missing}
		}
		conv.ClearPending()
	}
	conv.Tracker().MarkCompleted(id)

	e.logger.Info("priority completed", zap.String("conversation", conv.ID), zap.String("priority", id))
	ev := e.event(events.EventCompleted, conv, conv.Turn())
	ev.PriorityID = id
	e.emit(ev)
	return nil
}

// Explain evaluates text without advancing the turn or emitting events and
// returns a decision per priority in registry order.
func (e *Engine) Explain(ctx context.Context, conv *conversation.Conversation, text string) ([]Decision, error) {
	snap := e.source.Snapshot()
	ps := snap.List()
	triggered, err := Triggered(ctx, e.matcher, ps, text)
	if err != nil {
		return nil, err
	}
	sel, err := Evaluate(ctx, ps, e.turn(conv, conv.Turn(), triggered, snap), e.guards)
	if err != nil {
		return nil, err
	}
	return sel.Decisions, nil
}

func (e *Engine) turn(conv *conversation.Conversation, turnNo int, triggered map[string]bool, snap *registry.Snapshot) Turn {
	completed := conv.Tracker().Completed()
	return Turn{
		Triggered: triggered,
		Completed: completed,
		Used:      conv.Tracker(),
		Graph:     snap.Graph(),
		State: State{
			ConversationID: conv.ID,
			Turn:           turnNo,
			Values:         conv.Values(),
			Completed:      completed,
		},
	}
}

func (e *Engine) checkTask(ctx context.Context, p priority.Priority) error {
	if e.tasks == nil {
		return nil
	}
	task, ok, err := e.tasks.Lookup(ctx, p.TaskID)
	if err != nil {
		return &CapabilityError{Capability: CapabilityTasks, PriorityID: p.ID, Err: err}
	}
	if !ok {
		return &TaskUnavailableError{PriorityID: p.ID, TaskID: p.TaskID}
	}
	if !task.Enabled {
		return &TaskUnavailableError{PriorityID: p.ID, TaskID: p.TaskID, Disabled: true}
	}
	return nil
}

func (e *Engine) event(t events.EventType, conv *conversation.Conversation, turnNo int) events.Event {
	ev := events.New(t, conv.ID, turnNo)
	ev.AgentID = conv.AgentID
	return ev
}

func (e *Engine) emit(ev events.Event) {
	if e.sink == nil {
		return
	}
	if err := e.sink.WriteOne(ev); err != nil {
		e.logger.Warn("failed to write event", zap.String("type", string(ev.Type)), zap.Error(err))
	}
}

func sortedKeys(set map[string]bool) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
