// Package engine decides, once per conversation turn, which single priority
// an agent acts on and what that activation asks the agent to do.
package engine

import (
	"context"

	"github.com/andywolf/agenda/internal/graph"
	"github.com/andywolf/agenda/internal/priority"
)

// TriggerMatcher decides whether user text matches any of a priority's
// trigger phrases.
type TriggerMatcher interface {
	Match(ctx context.Context, text string, phrases []string) (bool, error)
}

// MatcherFunc adapts a function to TriggerMatcher.
type MatcherFunc func(ctx context.Context, text string, phrases []string) (bool, error)

// Match calls f.
func (f MatcherFunc) Match(ctx context.Context, text string, phrases []string) (bool, error) {
	return f(ctx, text, phrases)
}

// GuardEvaluator decides whether a guard holds against conversation state.
type GuardEvaluator interface {
	Evaluate(ctx context.Context, g *priority.Guard, s State) (bool, error)
}

// GuardFunc adapts a function to GuardEvaluator.
type GuardFunc func(ctx context.Context, g *priority.Guard, s State) (bool, error)

// Evaluate calls f.
func (f GuardFunc) Evaluate(ctx context.Context, g *priority.Guard, s State) (bool, error) {
	return f(ctx, g, s)
}

// State is the conversation state a guard may inspect.
type State struct {
	ConversationID string
	Turn           int
	Values         map[string]string
	Completed      map[string]bool
}

// Known reports whether a field has a value, empty or not.
func (s State) Known(key string) bool {
	_, ok := s.Values[key]
	return ok
}

// UsedChecker reports whether a priority has already completed.
type UsedChecker interface {
	IsUsed(id string) bool
}

// Turn is everything the selector needs to know about the current turn.
type Turn struct {
	// Triggered holds the ids the matcher proposed for this turn.
	Triggered map[string]bool
	// Completed holds the ids completed so far in this conversation.
	Completed map[string]bool
	// Used answers execute-once checks. When nil, Completed is consulted.
	Used UsedChecker
	// Graph is the dependency graph of the evaluated priorities. When nil it
	// is built from their DependsOn lists.
	Graph *graph.Graph
	State State
}

func (t Turn) used(id string) bool {
	if t.Used != nil {
		return t.Used.IsUsed(id)
	}
	return t.Completed[id]
}
