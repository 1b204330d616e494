package service

import (
	"context"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"

	"github.com/wricardo/trapped/game/engine"
	"github.com/wricardo/trapped/pkg/logger"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions    SessionManager
	configs     ConfigManager
	broadcaster Broadcaster
	log         *logrus.Entry
}

// Option configures the game service
type Option func(*gameServiceImpl)

// WithBroadcaster publishes every mutation to b
func WithBroadcaster(b Broadcaster) Option {
	return func(s *gameServiceImpl) {
		s.broadcaster = b
	}
}

// NewGameService creates a new game service instance
func NewGameService(sessions SessionManager, configs ConfigManager, opts ...Option) GameService {
	s := &gameServiceImpl{
		sessions: sessions,
		configs:  configs,
		log:      logger.Component("service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func sessionInfo(sess *Session) *SessionInfo {
	return &SessionInfo{
		ID:             sess.ID,
		LevelID:        sess.LevelID,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		GameState:      sess.Engine.GetState(),
		Level:          sess.Level,
	}
}

// session fetches a session and marks it as accessed. It must be called
// before taking the session lock.
func (s *gameServiceImpl) session(sessionID string) (*Session, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, err)
	}
	if err := s.sessions.UpdateLastAccessed(sess.ID); err != nil {
		s.log.WithError(err).WithField("session", sess.ID).Debug("failed to update last access")
	}
	return sess, nil
}

// CreateSession creates a new game session
func (s *gameServiceImpl) CreateSession(ctx context.Context, levelID string) (*SessionInfo, error) {
	var (
		level *engine.LevelConfig
		err   error
	)
	if levelID != "" {
		level, err = s.configs.LoadLevel(levelID)
		if err != nil {
			return nil, fmt.Errorf("failed to load level %s: %w", levelID, err)
		}
	} else {
		level = s.configs.GetDefault()
		levelID = "default"
	}

	sess, err := s.sessions.Create("", levelID, level)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	sess.Lock()
	defer sess.Unlock()
	info := sessionInfo(sess)
	s.publish(sess.ID, info.GameState, s.event(EventCreated, sess.ID, fmt.Sprintf("Session created on level %s", level.Name), info.GameState))
	return info, nil
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	sess.Lock()
	defer sess.Unlock()
	return sessionInfo(sess), nil
}

// ListSessions returns all active sessions
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))

	for _, sess := range sessions {
		sess.Lock()
		result = append(result, sessionInfo(sess))
		sess.Unlock()
	}

	return result, nil
}

// DeleteSession removes a session
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	if err := s.sessions.Delete(sessionID); err != nil {
		return fmt.Errorf("session %s: %w", sessionID, err)
	}
	s.publish(sessionID, nil, s.event(EventDeleted, sessionID, "Session deleted", nil))
	return nil
}

// Move executes a single move for a session
func (s *gameServiceImpl) Move(ctx context.Context, sessionID, direction string, reset bool) (*MoveResult, error) {
	dir, err := engine.ParseDirection(direction)
	if err != nil {
		return nil, err
	}

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	sess.Lock()
	defer sess.Unlock()

	events := []GameEvent{}
	if reset {
		state := sess.Engine.Reset()
		events = append(events, s.event(EventReset, sess.ID, "Game reset to initial state", state))
	}

	report, err := sess.Engine.Move(dir)
	if err != nil {
		return nil, fmt.Errorf("move %s: %w", dir, err)
	}
	state := sess.Engine.GetState()
	events = append(events, s.turnEvents(sess.ID, report, state)...)

	s.persist(sess.ID)
	s.publish(sess.ID, state, events...)

	return &MoveResult{
		Success:   report.Progress,
		GameState: state,
		Message:   state.Message,
		Report:    report,
		Events:    events,
	}, nil
}

// BulkMove executes multiple moves in sequence. It stops at the first
// blocked or invalid move and once the level is solved.
func (s *gameServiceImpl) BulkMove(ctx context.Context, sessionID string, moves []string, reset bool) (*BulkMoveResult, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	sess.Lock()
	defer sess.Unlock()

	result := &BulkMoveResult{
		RequestedMoves: len(moves),
		Success:        true,
		Events:         make([]GameEvent, 0),
	}

	if reset {
		state := sess.Engine.Reset()
		result.Events = append(result.Events, s.event(EventReset, sess.ID, "Game reset to initial state", state))
	}

	start := sess.Engine.GetState()
	result.StartPositions = start.ControlledPos

	if len(moves) > engine.MaxBulkMoves {
		result.Truncated = true
		result.Limit = engine.MaxBulkMoves
		moves = moves[:engine.MaxBulkMoves]
	}

	for i, move := range moves {
		if err := ctx.Err(); err != nil {
			result.Success = false
			result.StoppedReason = err.Error()
			result.StopReasonCode = "canceled"
			result.StoppedOnMove = i + 1
			break
		}
		if sess.Engine.IsSolved() {
			result.StoppedReason = "level already solved"
			result.StopReasonCode = "solved"
			result.StoppedOnMove = i + 1
			break
		}

		dir, err := engine.ParseDirection(move)
		if err != nil {
			result.Success = false
			result.StoppedReason = fmt.Sprintf("move %d: %v", i+1, err)
			result.StopReasonCode = "invalid_direction"
			result.StoppedOnMove = i + 1
			break
		}

		report, err := sess.Engine.Move(dir)
		if err != nil {
			return nil, fmt.Errorf("move %d: %w", i+1, err)
		}
		state := sess.Engine.GetState()
		result.Events = append(result.Events, s.turnEvents(sess.ID, report, state)...)

		step := StepInfo{
			Idx:       i + 1,
			Dir:       dir.String(),
			Progress:  report.Progress,
			Positions: state.ControlledPos,
			Collected: report.Collected,
			Solved:    report.Solved,
		}

		if !report.Progress {
			step.Reason = blockReason(report)
			result.Steps = append(result.Steps, step)
			result.Success = false
			result.StoppedReason = fmt.Sprintf("move %d blocked: %s", i+1, move)
			result.StopReasonCode = "blocked_" + step.Reason
			result.StoppedOnMove = i + 1
			break
		}

		result.MovesExecuted++
		result.Steps = append(result.Steps, step)

		if report.Solved {
			if i < len(moves)-1 {
				result.StoppedReason = "level solved"
				result.StoppedOnMove = i + 1
			}
			result.StopReasonCode = "solved"
			break
		}
	}

	end := sess.Engine.GetState()
	result.GameState = end
	result.EndPositions = end.ControlledPos
	result.Collected = end.Collected - start.Collected
	result.Solved = end.Solved
	result.Message = end.Message
	result.PossibleMoves = end.PossibleMoves

	s.persist(sess.ID)
	s.publish(sess.ID, end, result.Events...)

	return result, nil
}

// Undo reverses the latest change, or the whole latest turn
func (s *gameServiceImpl) Undo(ctx context.Context, sessionID string, wholeTurn bool) (*engine.GameState, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	sess.Lock()
	defer sess.Unlock()

	undo, what := sess.Engine.Undo, "Undid the last change"
	if wholeTurn {
		undo, what = sess.Engine.UndoTurn, "Undid the last turn"
	}
	if err := undo(); err != nil {
		return nil, err
	}

	state := sess.Engine.GetState()
	s.persist(sess.ID)
	s.publish(sess.ID, state, s.event(EventUndo, sess.ID, what, state))
	return state, nil
}

// Reset resets a game session to initial state
func (s *gameServiceImpl) Reset(ctx context.Context, sessionID string) (*engine.GameState, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	sess.Lock()
	defer sess.Unlock()

	state := sess.Engine.Reset()
	s.persist(sess.ID)
	s.publish(sess.ID, state, s.event(EventReset, sess.ID, "Game reset to initial state", state))
	return state, nil
}

// GetGameState retrieves the current game state
func (s *gameServiceImpl) GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	sess.Lock()
	defer sess.Unlock()
	return sess.Engine.GetState(), nil
}

// Render draws the session's level as text
func (s *gameServiceImpl) Render(ctx context.Context, sessionID string) (string, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return "", err
	}

	sess.Lock()
	defer sess.Unlock()
	return sess.Engine.Render(), nil
}

// GetHistory returns a page of the session journal
func (s *gameServiceImpl) GetHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	sess.Lock()
	history := sess.Engine.Journal()
	sess.Unlock()
	total := len(history)

	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = defaultHistoryLimit
	}
	if opts.Limit > maxHistoryLimit {
		opts.Limit = maxHistoryLimit
	}
	if opts.Order == "" {
		opts.Order = "desc"
	}

	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (opts.Page - 1) * opts.Limit
	end := start + opts.Limit
	if end > total {
		end = total
	}

	commands := []engine.Command{}
	if opts.Order == "desc" {
		// most recent first
		for i := total - 1 - start; i >= 0 && i >= total-end; i-- {
			commands = append(commands, history[i])
		}
	} else if start < total {
		commands = append(commands, history[start:end]...)
	}

	return &HistoryResponse{
		Commands:      commands,
		TotalCommands: total,
		Page:          opts.Page,
		PageSize:      opts.Limit,
		TotalPages:    totalPages,
		HasNext:       opts.Page < totalPages,
		HasPrevious:   opts.Page > 1,
	}, nil
}

// ListLevels returns available levels
func (s *gameServiceImpl) ListLevels(ctx context.Context) ([]*LevelInfo, error) {
	return s.configs.ListLevels()
}

// GetLevel loads a specific level
func (s *gameServiceImpl) GetLevel(ctx context.Context, levelID string) (*engine.LevelConfig, error) {
	return s.configs.LoadLevel(levelID)
}

// SaveLevel validates and stores a level
func (s *gameServiceImpl) SaveLevel(ctx context.Context, levelID string, level *engine.LevelConfig) error {
	return s.configs.SaveLevel(levelID, level)
}

func (s *gameServiceImpl) persist(sessionID string) {
	if err := s.sessions.Save(sessionID); err != nil {
		s.log.WithError(err).WithField("session", sessionID).Warn("failed to persist session")
	}
}

func (s *gameServiceImpl) publish(sessionID string, state *engine.GameState, events ...GameEvent) {
	if s.broadcaster == nil {
		return
	}
	for _, ev := range events {
		s.broadcaster.BroadcastEvent(sessionID, ev)
	}
	if state != nil {
		s.broadcaster.BroadcastState(sessionID, state)
	}
}

func (s *gameServiceImpl) event(kind, sessionID, message string, state *engine.GameState) GameEvent {
	ev := GameEvent{
		ID:        ulid.Make().String(),
		Type:      kind,
		SessionID: sessionID,
		Message:   message,
		Timestamp: time.Now(),
	}
	if state != nil {
		ev.Positions = state.ControlledPos
	}
	return ev
}

// turnEvents describes one settled move
func (s *gameServiceImpl) turnEvents(sessionID string, report *engine.TurnReport, state *engine.GameState) []GameEvent {
	if !report.Progress {
		msg := fmt.Sprintf("Move %s blocked: %s", report.Direction, blockReason(report))
		return []GameEvent{s.event(EventBlocked, sessionID, msg, state)}
	}

	events := []GameEvent{s.event(EventMove, sessionID, fmt.Sprintf("Moved %s", report.Direction), state)}
	if report.Collected > 0 {
		msg := fmt.Sprintf("Collected %d star(s), %d remaining", report.Collected, state.Remaining)
		events = append(events, s.event(EventCollected, sessionID, msg, state))
	}
	if report.Solved {
		events = append(events, s.event(EventSolved, sessionID, state.Message, state))
	}
	return events
}

// blockReason is the verdict of the first failed action of a turn
func blockReason(report *engine.TurnReport) string {
	for _, f := range report.Frames {
		if f.Outcome == engine.OutcomeFailed.String() && f.Reason != "" {
			return f.Reason
		}
	}
	return "blocked"
}
