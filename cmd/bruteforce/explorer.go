package main

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/wricardo/trapped/game/engine"
)

// ErrBudgetExhausted is returned when the explorer hits its request budget
var ErrBudgetExhausted = errors.New("request budget exhausted")

// Explorer searches for a solution on the server itself. It runs an
// iterative deepening depth-first search: every edge is a real move and
// every backtrack is an undo, so the session ends on the solved board.
type Explorer struct {
	client      *Client
	maxDepth    int
	maxRequests int
	delay       time.Duration
	log         *logrus.Entry

	// best remaining depth a signature was expanded with
	seen map[string]int
	path []string
}

func NewExplorer(client *Client, maxDepth, maxRequests int, delay time.Duration, log *logrus.Entry) *Explorer {
	return &Explorer{
		client:      client,
		maxDepth:    maxDepth,
		maxRequests: maxRequests,
		delay:       delay,
		log:         log,
	}
}

// Solve returns the moves that solved the level, or nil when no solution
// exists within maxDepth moves
func (x *Explorer) Solve(start *engine.GameState) ([]string, error) {
	if start.Solved {
		return []string{}, nil
	}

	for depth := 1; depth <= x.maxDepth; depth++ {
		x.seen = make(map[string]int)
		x.path = x.path[:0]
		x.log.WithField("depth", depth).Debug("deepening")

		found, err := x.search(start, depth)
		if err != nil {
			return nil, err
		}
		if found {
			return append([]string(nil), x.path...), nil
		}
	}
	return nil, nil
}

func (x *Explorer) search(state *engine.GameState, remaining int) (bool, error) {
	if state.Solved {
		return true, nil
	}
	if remaining == 0 {
		return false, nil
	}

	key := signature(state)
	if best, ok := x.seen[key]; ok && best >= remaining {
		return false, nil
	}
	x.seen[key] = remaining

	for _, dir := range state.PossibleMoves {
		if x.client.Requests() >= x.maxRequests {
			return false, ErrBudgetExhausted
		}

		result, err := x.client.Move(dir)
		if err != nil {
			return false, err
		}
		if !result.Success {
			continue
		}
		if x.delay > 0 {
			time.Sleep(x.delay)
		}

		x.path = append(x.path, dir)
		found, err := x.search(result.GameState, remaining-1)
		if err != nil || found {
			return found, err
		}
		x.path = x.path[:len(x.path)-1]

		if _, err := x.client.UndoTurn(); err != nil {
			return false, fmt.Errorf("backtrack after %s: %w", dir, err)
		}
	}
	return false, nil
}

// signature identifies a board by the kind and position of every live entity
func signature(state *engine.GameState) string {
	parts := make([]string, 0, len(state.Entities))
	for _, e := range state.Entities {
		if e.Kind == engine.KindFloor.String() || e.Kind == engine.KindWall.String() {
			continue
		}
		parts = append(parts, fmt.Sprintf("%d:%d,%d", e.ID, e.X, e.Y))
	}
	sort.Strings(parts)
	return strings.Join(parts, ";")
}
