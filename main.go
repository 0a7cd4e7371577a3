// Command clara serves and plays Clara tile levels.
//
// Subcommands:
//  1. "server" (default) runs the HTTP server exposing the REST API, WebSocket updates and an /mcp HTTP endpoint
//  2. "stdio-mcp" runs an MCP stdio server and spins up an internal HTTP API if none is available
//  3. "play" plays a level in the terminal
//  4. "import" copies a directory of boards into PostgreSQL
//  5. "settings" shows or changes the saved player preferences
//
// Flags (also read from the environment and a .env file) control the listen
// address, level and session storage, scene placement, cooldowns and an
// optional ngrok tunnel.
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
	"sync"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
	"github.com/wricardo/clara/api"
	"github.com/wricardo/clara/game/assets"
	"github.com/wricardo/clara/game/engine"
	"github.com/wricardo/clara/game/levels"
	"github.com/wricardo/clara/game/placement"
	"github.com/wricardo/clara/game/service"
	"github.com/wricardo/clara/game/session"
	"github.com/wricardo/clara/game/settings"
	"github.com/wricardo/clara/game/world"
	"github.com/wricardo/clara/pkg/logger"
	"github.com/wricardo/clara/terminal"
	"github.com/wricardo/clara/transport/mcp"
	"github.com/wricardo/clara/transport/websocket"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
	"gopkg.in/yaml.v3"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Clara Server"
)

// appConfig is the resolved flag and environment configuration
type appConfig struct {
	Host         string
	Port         int
	LevelsDir    string
	SessionsDir  string
	DatabaseURL  string
	AssetsDir    string
	Placement    placement.Config
	TurnCooldown time.Duration
	MoveCooldown time.Duration
	Ngrok        bool
	NgrokDomain  string
	NgrokAuth    string
	Debug        bool
}

func (c appConfig) addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c appConfig) worldOptions() world.Options {
	return world.Options{
		Placement: c.Placement.Normalize(),
		Engine:    engine.Options{TurnCooldown: c.TurnCooldown, MoveCooldown: c.MoveCooldown},
	}
}

// main loads .env, configures logging and runs the command tree
func main() {
	// Load .env file if it exists
	envErr := godotenv.Load()

	logger.Init()
	if envErr == nil {
		logger.Log.Debug("Loaded environment variables from .env file")
	} else if !os.IsNotExist(envErr) {
		logger.Log.WithError(envErr).Warn("Error loading .env file")
	}

	if err := newApp().Run(context.Background(), os.Args); err != nil {
		logger.Log.Fatal(err)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:           "clara",
		Usage:          "Clara tile game server, MCP bridge and terminal client",
		Version:        Version,
		DefaultCommand: "server",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "host", Value: "localhost", Usage: "HTTP server host", Sources: cli.EnvVars("HOST")},
			&cli.IntFlag{Name: "port", Value: 8080, Usage: "HTTP server port", Sources: cli.EnvVars("PORT")},
			&cli.StringFlag{Name: "levels-dir", Value: "boards", Usage: "Directory of level JSON files", Sources: cli.EnvVars("LEVELS_DIR")},
			&cli.StringFlag{Name: "sessions-dir", Value: "sessions", Usage: "Directory for persisted sessions", Sources: cli.EnvVars("SESSIONS_DIR")},
			&cli.StringFlag{Name: "database-url", Usage: "PostgreSQL DSN; when set levels are read from the database", Sources: cli.EnvVars("DATABASE_URL")},
			&cli.StringFlag{Name: "assets-dir", Usage: "Directory of model files; the built-in manifest is used when empty", Sources: cli.EnvVars("ASSETS_DIR")},
			&cli.IntFlag{Name: "detail", Value: 3, Usage: "Scenery detail level 1-3"},
			&cli.StringFlag{Name: "theme", Value: string(assets.ThemePastoral), Usage: "Scenery theme (pastoral or space)"},
			&cli.Int64Flag{Name: "seed", Value: 1, Usage: "Placement seed"},
			&cli.DurationFlag{Name: "turn-cooldown", Usage: "Input lock after a turn"},
			&cli.DurationFlag{Name: "move-cooldown", Usage: "Input lock after a move"},
			&cli.BoolFlag{Name: "ngrok", Usage: "Enable ngrok tunnel", Sources: cli.EnvVars("NGROK_ENABLED")},
			&cli.StringFlag{Name: "ngrok-domain", Usage: "Custom ngrok domain", Sources: cli.EnvVars("NGROK_DOMAIN")},
			&cli.StringFlag{Name: "ngrok-auth", Usage: "Ngrok auth token", Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN")},
			&cli.BoolFlag{Name: "debug", Usage: "Enable debug logging"},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			if cmd.Bool("debug") {
				logger.Log.SetLevel(logrus.DebugLevel)
			}
			return ctx, nil
		},
		Commands: []*cli.Command{
			{
				Name:    "server",
				Aliases: []string{"http"},
				Usage:   "Run the HTTP server with REST API, WebSocket and MCP endpoint",
				Action:  runServer,
			},
			{
				Name:    "stdio-mcp",
				Aliases: []string{"mcp-stdio", "mcp"},
				Usage:   "Run an MCP stdio server backed by the HTTP API",
				Action:  runStdioMCP,
			},
			{
				Name:      "play",
				Usage:     "Play a level in the terminal",
				ArgsUsage: "[level-id]",
				Action:    runPlay,
			},
			{
				Name:      "import",
				Usage:     "Import a directory of boards into PostgreSQL",
				ArgsUsage: "[dir]",
				Action:    runImport,
			},
			{
				Name:  "settings",
				Usage: "Show or change saved preferences (--detail, --theme, --seed, --turn-cooldown, --move-cooldown, --sound)",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "sound", Value: true, Usage: "Play death and win tones"},
					&cli.BoolFlag{Name: "reset", Usage: "Restore the defaults"},
				},
				Action: runSettings,
			},
		},
	}
}

// loadConfig reads every global flag
func loadConfig(cmd *cli.Command) appConfig {
	return appConfig{
		Host:        cmd.String("host"),
		Port:        cmd.Int("port"),
		LevelsDir:   cmd.String("levels-dir"),
		SessionsDir: cmd.String("sessions-dir"),
		DatabaseURL: cmd.String("database-url"),
		AssetsDir:   cmd.String("assets-dir"),
		Placement: placement.Config{
			DetailLevel: cmd.Int("detail"),
			Theme:       assets.Theme(cmd.String("theme")),
			Seed:        cmd.Int64("seed"),
		},
		TurnCooldown: cmd.Duration("turn-cooldown"),
		MoveCooldown: cmd.Duration("move-cooldown"),
		Ngrok:        cmd.Bool("ngrok"),
		NgrokDomain:  cmd.String("ngrok-domain"),
		NgrokAuth:    cmd.String("ngrok-auth"),
		Debug:        cmd.Bool("debug"),
	}
}

// levelStore is a level source that may hold a connection
type levelStore interface {
	service.LevelManager
	Close() error
}

type dirStore struct {
	*levels.DirSource
}

func (dirStore) Close() error { return nil }

// openLevels picks PostgreSQL when a DSN is configured, else the directory
func openLevels(ctx context.Context, cfg appConfig) (levelStore, error) {
	if cfg.DatabaseURL != "" {
		src, err := levels.NewPostgresSource(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		logger.Log.Info("Reading levels from PostgreSQL")
		return src, nil
	}
	src, err := levels.NewDirSource(cfg.LevelsDir)
	if err != nil {
		return nil, err
	}
	logger.Log.WithField("dir", cfg.LevelsDir).Info("Reading levels from directory")
	return dirStore{src}, nil
}

// newPlanner preloads every asset and returns a planner over the atlas
func newPlanner(ctx context.Context, cfg appConfig) (*placement.Planner, error) {
	var loader assets.Loader = assets.ManifestLoader{}
	if cfg.AssetsDir != "" {
		loader = assets.FileLoader{Dir: cfg.AssetsDir}
	}
	atlas, err := world.Preload(ctx, loader, nil)
	if err != nil {
		return nil, err
	}
	logger.Log.WithField("assets", atlas.Len()).Debug("Assets preloaded")
	return placement.NewPlanner(nil, atlas), nil
}

// services bundles what the HTTP modes need
type services struct {
	game        service.GameService
	sessions    *session.Manager
	persistence session.SessionPersistence
	levels      levelStore
}

// initializeServices wires level storage, the planner, session persistence
// and the game service.
func initializeServices(ctx context.Context, cfg appConfig) (*services, error) {
	store, err := openLevels(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open levels: %w", err)
	}

	planner, err := newPlanner(ctx, cfg)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to preload assets: %w", err)
	}

	opts := cfg.worldOptions()
	persistence, err := session.NewFilePersistence(cfg.SessionsDir, store, planner, opts.Engine)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to create session persistence: %w", err)
	}

	sessionManager := session.NewManagerWithPersistence(persistence)
	if err := sessionManager.LoadPersistedSessions(); err != nil {
		logger.Log.WithError(err).Warn("Failed to load persisted sessions")
	}

	return &services{
		game:        service.NewGameService(sessionManager, store, planner, opts),
		sessions:    sessionManager,
		persistence: persistence,
		levels:      store,
	}, nil
}

// newHTTPHandler mounts the API at the root and the MCP JSON-RPC endpoint at /mcp
func newHTTPHandler(apiServer http.Handler, mcpClient *mcp.Client) http.Handler {
	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer)

	mainRouter.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
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

		response := mcpClient.GetMCPServer().HandleMessage(r.Context(), body)

		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(responseData)
	})
	return mainRouter
}

// runServer starts the HTTP server and, when enabled, an ngrok tunnel
func runServer(ctx context.Context, cmd *cli.Command) error {
	cfg := loadConfig(cmd)
	logger.Log.Infof("Starting %s v%s", AppName, Version)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	svcs, err := initializeServices(ctx, cfg)
	if err != nil {
		return err
	}
	defer svcs.levels.Close()

	go sessionCleanupRoutine(ctx, svcs.sessions)
	go filesystemSyncRoutine(ctx, svcs.sessions, svcs.persistence)

	hub := websocket.NewHub()
	go hub.Run(ctx)

	addr := cfg.addr()
	handler := newHTTPHandler(api.NewServer(svcs.game, hub), mcp.NewClient("http://"+addr))

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	var wg sync.WaitGroup
	serveErr := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()

		logger.Log.Infof("HTTP server listening on %s", addr)
		logger.Log.Infof("REST API: http://%s/api", addr)
		logger.Log.Infof("WebSocket: ws://%s/ws?session=<session_id>", addr)
		logger.Log.Infof("MCP endpoint: http://%s/mcp", addr)

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- fmt.Errorf("HTTP server failed: %w", err)
			stop()
		}
	}()

	if cfg.Ngrok {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrok(ctx, cfg, handler)
		}()
	}

	<-ctx.Done()
	logger.Log.Info("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Log.WithError(err).Warn("HTTP server shutdown error")
	}

	wg.Wait()
	if err := svcs.sessions.SaveAllSessions(); err != nil {
		logger.Log.WithError(err).Warn("Failed to save sessions")
	}
	logger.Log.Info("Server stopped")

	select {
	case err := <-serveErr:
		return err
	default:
		return nil
	}
}

// runNgrok serves handler through an ngrok tunnel until ctx is done
func runNgrok(ctx context.Context, cfg appConfig, handler http.Handler) {
	if cfg.NgrokAuth == "" {
		logger.Log.Warn("Ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN env var)")
		return
	}

	logger.Log.Info("Starting ngrok tunnel...")

	var tunnel ngrokConfig.Tunnel
	if cfg.NgrokDomain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(cfg.NgrokDomain))
		logger.Log.Infof("Using custom ngrok domain: %s", cfg.NgrokDomain)
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(cfg.NgrokAuth))
	if err != nil {
		logger.Log.WithError(err).Error("Failed to start ngrok tunnel")
		return
	}
	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			logger.Log.WithError(err).Warn("Failed to close ngrok tunnel")
		}
	}()

	ngrokURL := tun.URL()
	logger.Log.Infof("Ngrok tunnel established: %s", ngrokURL)
	logger.Log.Infof("  REST API (ngrok): %s/api", ngrokURL)
	logger.Log.Infof("  WebSocket (ngrok): %s/ws?session=<session_id>", ngrokURL)
	logger.Log.Infof("  MCP endpoint (ngrok): %s/mcp", ngrokURL)

	if err := http.Serve(tun, handler); err != nil && !errors.Is(err, http.ErrServerClosed) && ctx.Err() == nil {
		logger.Log.WithError(err).Warn("Ngrok server error")
	}
	logger.Log.Info("Ngrok tunnel closed")
}

// sessionCleanupRoutine periodically removes sessions that have not been
// accessed within a day.
func sessionCleanupRoutine(ctx context.Context, manager *session.Manager) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := manager.CleanupExpiredSessions(24 * time.Hour); removed > 0 {
				logger.Log.Infof("Cleaned up %d expired sessions", removed)
			}
		}
	}
}

// filesystemSyncRoutine drops sessions from memory whose files were deleted
func filesystemSyncRoutine(ctx context.Context, manager *session.Manager, persistence session.SessionPersistence) {
	if persistence == nil {
		return
	}
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pruneOrphanedSessions(manager, persistence)
		}
	}
}

func pruneOrphanedSessions(manager *session.Manager, persistence session.SessionPersistence) int {
	pruned := 0
	for _, sess := range manager.List() {
		if persistence.Exists(sess.ID) {
			continue
		}
		if err := manager.DeleteFromMemory(sess.ID); err == nil {
			pruned++
			logger.Log.WithField("session", sess.ID).Info("Pruned session from memory (file deleted)")
		}
	}
	return pruned
}

// apiAvailable reports whether a Clara API server answers health checks at
// baseURL. Any status below 500 counts as up.
func apiAvailable(ctx context.Context, baseURL string) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/health", nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode < 500
}

// runStdioMCP serves MCP over stdio. It reuses an API already listening on
// the configured address, or starts an internal one on a loopback port.
func runStdioMCP(ctx context.Context, cmd *cli.Command) error {
	// stdout carries the protocol
	logger.Log.SetOutput(os.Stderr)
	cfg := loadConfig(cmd)

	externalURL := "http://" + cfg.addr()
	baseURL := externalURL

	if apiAvailable(ctx, externalURL) {
		logger.Log.Infof("External API server found at %s, using it for MCP", externalURL)
	} else {
		logger.Log.Info("No external API server found, starting internal HTTP server")

		svcs, err := initializeServices(ctx, cfg)
		if err != nil {
			return err
		}
		defer svcs.levels.Close()

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}
		baseURL = "http://" + listener.Addr().String()

		hub := websocket.NewHub()
		go hub.Run(ctx)

		httpServer := &http.Server{Handler: api.NewServer(svcs.game, hub)}
		go func() {
			if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Log.WithError(err).Error("Internal HTTP server error")
			}
		}()
		defer httpServer.Close()

		logger.Log.Infof("Internal HTTP server on %s", baseURL)
	}

	mcpClient := mcp.NewClient(baseURL)
	logger.Log.Info("MCP stdio server ready")
	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}

// openSettings opens the preference store, degrading to memory-only
func openSettings() *settings.Manager {
	store, err := settings.OpenStore(settings.AppName)
	if err != nil {
		logger.Log.WithError(err).Warn("Settings will not be saved")
		return settings.NewManager(nil)
	}
	return settings.NewManager(store)
}

// applyOverrides copies explicitly set flags over the saved preferences
func applyOverrides(cmd *cli.Command, m *settings.Manager) error {
	if cmd.IsSet("detail") {
		m.SetDetailLevel(cmd.Int("detail"))
	}
	if cmd.IsSet("theme") {
		if err := m.SetTheme(cmd.String("theme")); err != nil {
			return err
		}
	}
	if cmd.IsSet("seed") {
		m.SetSeed(cmd.Int64("seed"))
	}
	if cmd.IsSet("turn-cooldown") || cmd.IsSet("move-cooldown") {
		prefs := m.Preferences()
		turn, move := prefs.TurnCooldown, prefs.MoveCooldown
		if cmd.IsSet("turn-cooldown") {
			turn = cmd.Duration("turn-cooldown")
		}
		if cmd.IsSet("move-cooldown") {
			move = cmd.Duration("move-cooldown")
		}
		m.SetCooldowns(turn, move)
	}
	return nil
}

// runPlay plays one level in the terminal using the saved preferences
func runPlay(ctx context.Context, cmd *cli.Command) error {
	cfg := loadConfig(cmd)

	prefsManager := openSettings()
	if err := applyOverrides(cmd, prefsManager); err != nil {
		return err
	}
	prefs := prefsManager.Preferences()

	levelID := cmd.Args().First()
	if levelID == "" {
		levelID = prefs.LastLevel
	}

	store, err := openLevels(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	planner, err := newPlanner(ctx, cfg)
	if err != nil {
		return err
	}

	// Log lines would corrupt the screen
	logger.Log.SetOutput(io.Discard)
	if cfg.Debug {
		if f, err := os.OpenFile("clara.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err == nil {
			defer f.Close()
			logger.Log.SetOutput(f)
		}
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("failed to create screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("failed to initialize screen: %w", err)
	}
	defer screen.Fini()

	sound := &terminal.Sound{}
	if prefs.SoundEnabled {
		if err := sound.Init(); err != nil {
			logger.Log.WithError(err).Warn("Audio unavailable")
		}
	}

	game := terminal.NewGame(screen, store, planner, sound)
	if err := game.Load(ctx, levelID, prefs.WorldOptions()); err != nil {
		return fmt.Errorf("failed to load level %q: %w", levelID, err)
	}
	defer game.Close()

	prefsManager.SetLastLevel(game.World().Level.ID)
	if err := prefsManager.Save(); err != nil {
		logger.Log.WithError(err).Warn("Failed to save settings")
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := game.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// runImport copies board files into PostgreSQL
func runImport(ctx context.Context, cmd *cli.Command) error {
	cfg := loadConfig(cmd)
	if cfg.DatabaseURL == "" {
		return errors.New("import needs --database-url or DATABASE_URL")
	}
	dir := cmd.Args().First()
	if dir == "" {
		dir = cfg.LevelsDir
	}

	src, err := levels.NewPostgresSource(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer src.Close()

	n, err := src.ImportDir(ctx, dir)
	if err != nil {
		return err
	}
	fmt.Printf("Imported %d levels from %s\n", n, dir)
	return nil
}

// runSettings prints the preferences after applying any flags given
func runSettings(ctx context.Context, cmd *cli.Command) error {
	var out io.Writer = os.Stdout
	if w := cmd.Root().Writer; w != nil {
		out = w
	}
	return updateSettings(cmd, openSettings(), out)
}

func updateSettings(cmd *cli.Command, m *settings.Manager, out io.Writer) error {
	if cmd.Bool("reset") {
		*m.Preferences() = *settings.DefaultPreferences()
	}
	if err := applyOverrides(cmd, m); err != nil {
		return err
	}
	if cmd.IsSet("sound") {
		m.SetSoundEnabled(cmd.Bool("sound"))
	}

	changed := cmd.Bool("reset") || cmd.IsSet("sound") || cmd.IsSet("detail") || cmd.IsSet("theme") ||
		cmd.IsSet("seed") || cmd.IsSet("turn-cooldown") || cmd.IsSet("move-cooldown")
	if changed {
		if err := m.Save(); err != nil {
			return err
		}
	}

	data, err := yaml.Marshal(m.Preferences())
	if err != nil {
		return err
	}
	if !m.Persistent() {
		fmt.Fprintln(out, "# settings are not persisted on this system")
	}
	_, err = out.Write(data)
	return err
}
