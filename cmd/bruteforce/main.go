// Command bruteforce plays a level on a running server. It explores the
// level with real moves and undos until the session is solved, so the
// solving run can be watched live over the websocket feed.
package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"

	"github.com/wricardo/trapped/game/engine"
	"github.com/wricardo/trapped/pkg/logger"
)

const sessionFile = ".session"

var log = logger.Component("bruteforce")

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "bruteforce",
		Usage: "Solve a level on a running Trapped server",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "http://localhost:8080", Usage: "Game server URL", Sources: cli.EnvVars("API_URL")},
			&cli.StringFlag{Name: "level", Usage: "Level to play (server default when empty)"},
			&cli.StringFlag{Name: "continue", Usage: "Resume playing an existing session by ID"},
			&cli.IntFlag{Name: "max-depth", Value: 40, Usage: "Longest solution to look for"},
			&cli.IntFlag{Name: "max-requests", Value: 20000, Usage: "API calls before giving up"},
			&cli.DurationFlag{Name: "delay", Usage: "Pause after every move"},
			&cli.BoolFlag{Name: "v", Usage: "Verbose output"},
		},
		Action: run,
	}
}

func main() {
	logger.Init()
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		log.WithError(err).Error("bruteforce failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	if cmd.Bool("v") {
		log.Logger.SetLevel(logrus.DebugLevel)
	}

	log.WithField("url", cmd.String("url")).Info("connecting to game server")
	client := NewClient(cmd.String("url"))

	state, err := openSession(client, cmd.String("continue"), cmd.String("level"))
	if err != nil {
		return err
	}

	state, err = client.Reset()
	if err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	log.WithFields(logrus.Fields{
		"level": state.Level,
		"size":  fmt.Sprintf("%dx%d", state.Width, state.Height),
		"stars": state.Remaining,
	}).Info("game reset")

	explorer := NewExplorer(client, int(cmd.Int("max-depth")), int(cmd.Int("max-requests")), cmd.Duration("delay"), log)
	started := time.Now()
	solution, err := explorer.Solve(state)
	if err != nil {
		return err
	}

	fields := logrus.Fields{
		"session":  client.SessionID(),
		"requests": client.Requests(),
		"elapsed":  time.Since(started).Round(time.Millisecond),
	}
	if solution == nil {
		log.WithFields(fields).Warn("no solution found")
		return fmt.Errorf("no solution within %d moves", cmd.Int("max-depth"))
	}
	fields["moves"] = len(solution)
	log.WithFields(fields).Infof("🎉 solved: %s", strings.Join(solution, ","))
	return nil
}

// openSession resumes the requested or saved session, creating a new one
// when neither is usable
func openSession(client *Client, resume, level string) (*engine.GameState, error) {
	if resume == "" {
		if data, err := os.ReadFile(sessionFile); err == nil {
			resume = string(bytes.TrimSpace(data))
		}
	}

	if resume != "" {
		state, err := client.Resume(resume)
		if err == nil && (level == "" || state.Level == level) {
			log.WithField("session", resume).Info("🔄 resuming session")
			return state, nil
		}
		if err != nil {
			log.WithError(err).Warn("failed to resume session, creating a new one")
		}
	}

	state, err := client.CreateSession(level)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	log.WithField("session", client.SessionID()).Info("✨ session created")

	if err := os.WriteFile(sessionFile, []byte(client.SessionID()), 0o644); err != nil {
		log.WithError(err).Warn("failed to save session id")
	}
	return state, nil
}
