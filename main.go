// Command trapped starts the Trapped puzzle server.
//
// It supports two modes:
//  1. "server" (default) – runs the HTTP server exposing REST API, WebSocket, and an /mcp HTTP endpoint
//  2. "stdio-mcp" – runs an MCP stdio server and spins up an internal HTTP API if none is available
//
// Flags control the listen address, level directory, session store, and
// optional ngrok tunneling for easy external access during development.
// Every flag can also be set from the environment or a .env file.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/wricardo/trapped/api"
	"github.com/wricardo/trapped/game/config"
	"github.com/wricardo/trapped/game/service"
	"github.com/wricardo/trapped/game/session"
	"github.com/wricardo/trapped/pkg/logger"
	"github.com/wricardo/trapped/transport/mcp"
	"github.com/wricardo/trapped/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Trapped Server"
)

// Session store kinds
const (
	StoreFile   = "file"
	StoreZstd   = "zstd"
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

var log = logger.Component("main")

// options is the resolved command line
type options struct {
	Host         string
	Port         int
	LevelsDir    string
	DefaultLevel string
	Store        string
	DataDir      string
	SessionTTL   time.Duration
	APIURL       string
	Ngrok        bool
	NgrokDomain  string
	NgrokToken   string
}

func (o options) addr() string {
	return fmt.Sprintf("%s:%d", o.Host, o.Port)
}

func optionsFrom(cmd *cli.Command) options {
	return options{
		Host:         cmd.String("host"),
		Port:         int(cmd.Int("port")),
		LevelsDir:    cmd.String("levels-dir"),
		DefaultLevel: cmd.String("default-level"),
		Store:        cmd.String("store"),
		DataDir:      cmd.String("data-dir"),
		SessionTTL:   cmd.Duration("session-ttl"),
		APIURL:       cmd.String("api-url"),
		Ngrok:        cmd.Bool("ngrok"),
		NgrokDomain:  cmd.String("ngrok-domain"),
		NgrokToken:   cmd.String("ngrok-token"),
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:    "trapped",
		Usage:   "Serve the Trapped puzzle over REST, WebSocket and MCP",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "host", Value: "localhost", Usage: "HTTP server host", Sources: cli.EnvVars("HOST")},
			&cli.IntFlag{Name: "port", Value: 8080, Usage: "HTTP server port", Sources: cli.EnvVars("PORT")},
			&cli.StringFlag{Name: "levels-dir", Value: "levels", Usage: "Directory containing level files", Sources: cli.EnvVars("LEVELS_DIR")},
			&cli.StringFlag{Name: "default-level", Usage: "Level used when a session names none", Sources: cli.EnvVars("DEFAULT_LEVEL")},
			&cli.StringFlag{Name: "store", Value: StoreZstd, Usage: "Session store: file, zstd, sqlite or memory", Sources: cli.EnvVars("SESSION_STORE")},
			&cli.StringFlag{Name: "data-dir", Value: "sessions", Usage: "Where sessions are persisted", Sources: cli.EnvVars("DATA_DIR")},
			&cli.DurationFlag{Name: "session-ttl", Value: 24 * time.Hour, Usage: "Evict sessions idle for longer than this", Sources: cli.EnvVars("SESSION_TTL")},
			&cli.StringFlag{Name: "api-url", Value: "http://localhost:8080", Usage: "REST API the stdio MCP server proxies to", Sources: cli.EnvVars("API_URL")},
			&cli.BoolFlag{Name: "ngrok", Usage: "Enable ngrok tunnel", Sources: cli.EnvVars("NGROK_ENABLED")},
			&cli.StringFlag{Name: "ngrok-domain", Usage: "Custom ngrok domain (optional)", Sources: cli.EnvVars("NGROK_DOMAIN")},
			&cli.StringFlag{Name: "ngrok-token", Usage: "Ngrok auth token", Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN")},
		},
		Action: runServer,
		Commands: []*cli.Command{
			{
				Name:    "server",
				Aliases: []string{"http"},
				Usage:   "Run HTTP server with API, WebSocket, and MCP endpoint (default)",
				Action:  runServer,
			},
			{
				Name:    "stdio-mcp",
				Aliases: []string{"mcp-stdio", "mcp"},
				Usage:   "Run MCP stdio server, with an internal HTTP API when none is reachable",
				Action:  runStdio,
			},
		},
	}
}

// main loads .env, then hands over to the command line.
func main() {
	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: Error loading .env file: %v\n", err)
	}

	if err := newApp().Run(context.Background(), os.Args); err != nil {
		log.WithError(err).Fatal("trapped failed")
	}
}

// services is everything the transports share
type services struct {
	game     service.GameService
	sessions *session.Manager
	store    session.SessionPersistence
	closer   io.Closer
}

// Close saves every session and releases the store
func (s *services) Close() error {
	if s.store == nil {
		return nil
	}
	if err := s.sessions.SaveAllSessions(); err != nil {
		log.WithError(err).Warn("failed to save sessions on shutdown")
	}
	return s.closer.Close()
}

// openStore creates the session persistence selected by opts.Store. A nil
// store means sessions live in memory only.
func openStore(opts options, levels service.ConfigManager) (session.SessionPersistence, io.Closer, error) {
	switch opts.Store {
	case StoreMemory:
		return nil, nil, nil
	case StoreFile, StoreZstd:
		fp, err := session.NewFilePersistence(opts.DataDir, levels, opts.Store == StoreZstd)
		if err != nil {
			return nil, nil, err
		}
		return fp, fp, nil
	case StoreSQLite:
		if err := os.MkdirAll(opts.DataDir, 0o755); err != nil {
			return nil, nil, err
		}
		sp, err := session.OpenSQLitePersistence(filepath.Join(opts.DataDir, "sessions.db"), levels)
		if err != nil {
			return nil, nil, err
		}
		return sp, sp, nil
	}
	return nil, nil, fmt.Errorf("unknown session store %q", opts.Store)
}

// initializeServices wires the level and session managers into the game
// service and restores persisted sessions.
func initializeServices(opts options, broadcaster service.Broadcaster) (*services, error) {
	configManager, err := config.NewManager(opts.LevelsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create config manager: %w", err)
	}
	if opts.DefaultLevel != "" {
		if err := configManager.SetDefault(opts.DefaultLevel); err != nil {
			return nil, fmt.Errorf("default level: %w", err)
		}
	}

	store, closer, err := openStore(opts, configManager)
	if err != nil {
		return nil, fmt.Errorf("failed to create session persistence: %w", err)
	}

	svc := &services{store: store, closer: closer}
	if store != nil {
		svc.sessions = session.NewManagerWithPersistence(store)
		if err := svc.sessions.LoadPersistedSessions(); err != nil {
			log.WithError(err).Warn("failed to load persisted sessions")
		}
	} else {
		svc.sessions = session.NewManager()
	}

	var serviceOpts []service.Option
	if broadcaster != nil {
		serviceOpts = append(serviceOpts, service.WithBroadcaster(broadcaster))
	}
	svc.game = service.NewGameService(svc.sessions, configManager, serviceOpts...)

	log.WithFields(logrus.Fields{
		"levels":   opts.LevelsDir,
		"store":    opts.Store,
		"sessions": svc.sessions.Count(),
	}).Info("services initialized")

	return svc, nil
}

// sessionCleanupRoutine periodically evicts sessions that have not been
// accessed within ttl. Persisted copies stay on disk.
func sessionCleanupRoutine(ctx context.Context, manager *session.Manager, ttl, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := manager.CleanupExpiredSessions(ttl); removed > 0 {
				log.WithField("removed", removed).Info("cleaned up expired sessions")
			}
		}
	}
}

// mcpHandler answers single JSON-RPC messages posted to /mcp
func mcpHandler(client *mcp.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := client.GetMCPServer().HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	}
}

// newRouter mounts the REST API at the root and the MCP proxy at /mcp
func newRouter(apiServer http.Handler, mcpClient *mcp.Client) *http.ServeMux {
	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer)
	mainRouter.HandleFunc("/mcp", mcpHandler(mcpClient))
	return mainRouter
}

// runServer starts the HTTP server with REST API, WebSocket hub, and an /mcp proxy endpoint.
// If ngrok is enabled it also provisions a public tunnel.
func runServer(ctx context.Context, cmd *cli.Command) error {
	logger.Init()
	opts := optionsFrom(cmd)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := websocket.NewHub()
	go hub.Run(ctx)

	svc, err := initializeServices(opts, hub)
	if err != nil {
		return err
	}
	defer svc.Close()

	go sessionCleanupRoutine(ctx, svc.sessions, opts.SessionTTL, time.Hour)

	addr := opts.addr()
	mainRouter := newRouter(api.NewServer(svc.game, hub), mcp.NewClient("http://"+addr))

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mainRouter,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	var wg sync.WaitGroup
	errs := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()

		log.WithFields(logrus.Fields{
			"addr":      addr,
			"api":       "http://" + addr + "/api",
			"websocket": "ws://" + addr + "/api/ws?session=<session_id>",
			"mcp":       "http://" + addr + "/mcp",
		}).Infof("%s v%s listening", AppName, Version)

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- fmt.Errorf("HTTP server failed: %w", err)
		}
	}()

	if opts.Ngrok {
		wg.Add(1)
		go func() {
			defer wg.Done()
			serveNgrok(ctx, opts, mainRouter)
		}()
	}

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err = <-errs:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if shutdownErr := httpServer.Shutdown(shutdownCtx); shutdownErr != nil {
		log.WithError(shutdownErr).Warn("HTTP server shutdown error")
	}
	stop()

	wg.Wait()
	log.Info("server stopped")
	return err
}

// serveNgrok exposes handler through an ngrok tunnel until ctx ends
func serveNgrok(ctx context.Context, opts options, handler http.Handler) {
	if opts.NgrokToken == "" {
		log.Warn("ngrok enabled but no auth token provided (use --ngrok-token or NGROK_AUTHTOKEN)")
		return
	}

	var tunnel ngrokConfig.Tunnel
	if opts.NgrokDomain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(opts.NgrokDomain))
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(opts.NgrokToken))
	if err != nil {
		log.WithError(err).Error("failed to start ngrok tunnel")
		return
	}
	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			log.WithError(err).Warn("failed to close ngrok tunnel")
		}
	}()

	ngrokURL := tun.URL()
	log.WithFields(logrus.Fields{
		"url": ngrokURL,
		"api": ngrokURL + "/api",
		"mcp": ngrokURL + "/mcp",
	}).Info("ngrok tunnel established")

	if err := http.Serve(tun, handler); err != nil && !errors.Is(err, http.ErrServerClosed) && ctx.Err() == nil {
		log.WithError(err).Error("ngrok server error")
	}
	log.Info("ngrok tunnel closed")
}

// apiReachable reports whether a REST API answers at baseURL
func apiReachable(baseURL string) bool {
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(baseURL + "/health")
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// startInternalAPI serves the REST API on a random loopback port and returns
// its base URL.
func startInternalAPI(game service.GameService) (string, *http.Server, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", nil, fmt.Errorf("failed to get available port: %w", err)
	}

	httpServer := &http.Server{Handler: api.NewServer(game, nil)}
	go func() {
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("internal HTTP server error")
		}
	}()

	return "http://" + listener.Addr().String(), httpServer, nil
}

// runStdio runs an MCP stdio server. It reuses the API at --api-url when it
// answers, otherwise it serves an internal API on a loopback port. Logs go
// to stderr so they never mix with the protocol on stdout.
func runStdio(ctx context.Context, cmd *cli.Command) error {
	logger.InitWithOutput(os.Stderr)
	opts := optionsFrom(cmd)

	baseURL := opts.APIURL
	if apiReachable(baseURL) {
		log.WithField("api", baseURL).Info("using external API server")
	} else {
		svc, err := initializeServices(opts, nil)
		if err != nil {
			return err
		}
		defer svc.Close()

		var httpServer *http.Server
		baseURL, httpServer, err = startInternalAPI(svc.game)
		if err != nil {
			return err
		}
		defer httpServer.Close()
		log.WithField("api", baseURL).Info("started internal API server")
	}

	if err := server.ServeStdio(mcp.NewClient(baseURL).GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}
