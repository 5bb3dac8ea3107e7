package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"
	"github.com/hajimehoshi/ebiten/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/casualgame/engine/internal/config"
	"github.com/casualgame/engine/internal/core/event"
	coresys "github.com/casualgame/engine/internal/core/system"
	"github.com/casualgame/engine/internal/cvar"
	"github.com/casualgame/engine/internal/entity"
	"github.com/casualgame/engine/internal/game"
	"github.com/casualgame/engine/internal/hud"
	"github.com/casualgame/engine/internal/input"
	"github.com/casualgame/engine/internal/input/ebiteninput"
	"github.com/casualgame/engine/internal/locale"
	"github.com/casualgame/engine/internal/persist"
	"github.com/casualgame/engine/internal/render/ebitenrender"
	"github.com/casualgame/engine/internal/scriptapi"
	"github.com/casualgame/engine/internal/scripting"
	"github.com/casualgame/engine/internal/sound"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(title string, m game.Manifest) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Printf("\033[36;1m  │\033[0m %-41s \033[36;1m│\033[0m\n", title)
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1mPackage:\033[0m %s v%s \033[90m(by %s)\033[0m\n\n", m.Name, m.Version, m.Author)
}

func printSection(title string) {
	lineLen := max(46-len(title)-1, 3)
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := max(42-len(label)-len(numStr), 3)
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

// ── Engine bring-up ────────────────────────────────────────────────

func run() error {
	// 1. Load config
	cfg, err := config.Load(config.Path())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	// 3. Open the game package
	pkg, err := game.Open(cfg.Engine.PackageRoot, cfg.Engine.Package, cfg.Engine.CommonRoot)
	if err != nil {
		return fmt.Errorf("package %s: %w", cfg.Engine.Package, err)
	}
	printBanner(cfg.Engine.Title, pkg.Manifest)

	printSection("Configuration")
	cvars := cvar.NewStore(cfg.CVars, log)
	if pkgCfg := filepath.Join(pkg.Dir, pkg.Ident+".cfg"); fileExists(pkgCfg) {
		if err := cvars.Exec(pkgCfg); err != nil {
			return fmt.Errorf("package config: %w", err)
		}
		printOK("package config executed")
	}
	catalog, err := locale.Open(filepath.Join(pkg.Dir, "lang"), cfg.Engine.Language, log)
	if err != nil {
		return fmt.Errorf("locale: %w", err)
	}
	printOK("locale " + catalog.Locale())
	bindings, err := input.NewBindings(cfg.Input.Bindings, ebiteninput.KeyCode)
	if err != nil {
		return fmt.Errorf("key bindings: %w", err)
	}
	printStat("Key bindings", len(cfg.Input.Bindings))
	fmt.Println()

	// 4. Property storage: PostgreSQL when a DSN is set, files otherwise
	printSection("Storage")
	props, closeProps, err := openProps(cfg.Database, pkg, log)
	if err != nil {
		return err
	}
	defer closeProps()
	fmt.Println()

	// 5. Backends
	printSection("Backends")
	renderer := ebitenrender.New(cfg.Engine.Width, cfg.Engine.Height, log)
	defer renderer.Close()
	printOK(fmt.Sprintf("renderer %dx%d", cfg.Engine.Width, cfg.Engine.Height))

	var player sound.Player
	var mixer *sound.Mixer
	if cfg.Audio.Enabled {
		sr := beep.SampleRate(cfg.Audio.SampleRate)
		if err := speaker.Init(sr, sr.N(time.Second/10)); err != nil {
			log.Warn("audio unavailable", zap.Error(err))
		} else {
			mixer = sound.NewMixer(sr, cfg.Audio.Volume, speakerLock{}, log)
			defer mixer.Close()
			speaker.Play(mixer.Streamer())
			player = mixer
			printOK(fmt.Sprintf("audio %d Hz", cfg.Audio.SampleRate))
		}
	}
	fmt.Println()

	// 6. Scripting engine, entity manager and script API
	printSection("Scripting")
	engine := scripting.NewEngine(scripting.Options{
		MaxCallDepth: cfg.Script.MaxCallDepth,
		CallTimeout:  cfg.Script.CallTimeout,
		Includes:     scripting.IncludePolicy{CommonRoot: pkg.Common, PackageRoot: pkg.Dir},
	}, log)
	defer engine.Close()
	if err := entity.RegisterScriptTypes(engine, renderer); err != nil {
		return fmt.Errorf("register script types: %w", err)
	}

	bus := event.NewBus()
	runner := coresys.NewRunner()
	scripts := game.NewEntityScripts(engine, pkg, log)
	entities := entity.NewManager(engine, entity.Options{
		Resolution: renderer.WindowSize(),
		Bus:        bus,
		Modules:    scripts,
	}, log)
	defer entities.Release()

	h := hud.New(renderer, player, log)
	defer h.Release()
	if mixer != nil && pkg.Manifest.HintSound != "" {
		if id, err := mixer.QuerySound(pkg.Asset(pkg.Manifest.HintSound)); err == nil {
			h.SetHintSound(id)
		}
	}

	session := game.NewSession(game.Options{
		Engine:   engine,
		Entities: entities,
		Scripts:  scripts,
		Runner:   runner,
		Bus:      bus,
		HUD:      h,
		Props:    props,
		Package:  pkg,
		Log:      log,
	})

	err = scriptapi.Register(scriptapi.Deps{
		Engine:   engine,
		Entities: entities,
		Renderer: renderer,
		Sound:    player,
		CVars:    cvars,
		HUD:      h,
		Locale:   catalog,
		Props:    props,
		Bindings: bindings,
		Session:  session,
		Package: scriptapi.Package{
			Name:       pkg.Manifest.Name,
			Path:       pkg.Path(),
			CommonPath: pkg.CommonPath(),
		},
		FPS:  cfg.Engine.TPS,
		Rand: rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)),
		Log:  log,
	})
	if err != nil {
		return fmt.Errorf("register script api: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	paths := scripts.Paths(pkg.Manifest.Require)
	if err := engine.Precompile(ctx, paths, cfg.Script.PrecompileWorkers); err != nil {
		return fmt.Errorf("precompile: %w", err)
	}
	printStat("Precompiled scripts", len(paths))
	for _, ident := range pkg.Manifest.Require {
		if _, _, err := scripts.Require(ident); err != nil {
			return fmt.Errorf("require %s: %w", ident, err)
		}
	}
	printStat("Entity scripts", scripts.Loaded())

	if err := session.Start(pkg.Manifest.StartMap); err != nil {
		return fmt.Errorf("start map: %w", err)
	}
	printStat("Entities", entities.Count())
	fmt.Println()

	// 7. Systems, in phase order
	runner.Register(input.NewDispatcher(&ebiteninput.Source{}, engine, entities, log))
	runner.Register(game.NewEventSystem(bus))
	runner.Register(game.NewEntitySystem(entities))
	runner.Register(game.NewHUDSystem(h))
	runner.Register(session)

	// 8. Window and game loop
	ebiten.SetWindowTitle(cfg.Engine.Title + " - " + pkg.Manifest.Name)
	ebiten.SetWindowSize(cfg.Engine.Width, cfg.Engine.Height)
	ebiten.SetFullscreen(cfg.Engine.Fullscreen)
	ebiten.SetTPS(cfg.Engine.TPS)

	loop := &gameLoop{
		runner:   runner,
		renderer: renderer,
		entities: entities,
		hud:      h,
		session:  session,
		pkg:      pkg,
		width:    cfg.Engine.Width,
		height:   cfg.Engine.Height,
		tick:     time.Second / time.Duration(cfg.Engine.TPS),
		log:      log,
	}
	log.Info("engine started", zap.String("package", pkg.Ident), zap.String("map", session.CurrentMap()))
	if err := ebiten.RunGame(loop); err != nil && !errors.Is(err, ebiten.Termination) {
		return fmt.Errorf("game loop: %w", err)
	}
	log.Info("engine stopped")
	return nil
}

func openProps(cfg config.DatabaseConfig, pkg *game.Package, log *zap.Logger) (persist.PropStore, func(), error) {
	if cfg.DSN == "" {
		printOK("properties in " + filepath.Join(pkg.Dir, "props"))
		return persist.NewFileStore(pkg.Dir), func() {}, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := persist.Connect(ctx, cfg, log)
	if err != nil {
		return nil, nil, fmt.Errorf("database: %w", err)
	}
	printOK("PostgreSQL connected")
	version, err := db.Migrate(ctx)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("migrations: %w", err)
	}
	printStat("Schema version", int(version))
	return persist.NewPgStore(db, pkg.Ident), db.Close, nil
}

// speakerLock guards the mixer against the speaker's audio goroutine.
type speakerLock struct{}

func (speakerLock) Lock()   { speaker.Lock() }
func (speakerLock) Unlock() { speaker.Unlock() }

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
