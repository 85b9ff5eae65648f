package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rewired-gh/humanbattery/internal/config"
	"github.com/rewired-gh/humanbattery/internal/logger"
	"github.com/rewired-gh/humanbattery/internal/profile"
	"github.com/rewired-gh/humanbattery/internal/report"
	"github.com/rewired-gh/humanbattery/internal/storage"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// All linker flags will be set at build time.
var version = "dev"

// app holds the state shared by every command of one invocation.
type app struct {
	root    *cobra.Command
	v       *viper.Viper
	cfg     *config.Config
	store   storage.Store
	profile *profile.Profile
	now     func() time.Time
}

func newApp() *app {
	a := &app{v: viper.New(), now: time.Now}

	a.root = &cobra.Command{
		Use:   "humanbattery",
		Short: "Learn which activities drain or recharge your energy.",
		Long: `humanbattery keeps a daily log of your energy level and the activities you did,
and works out how much each activity costs or gives back.

Log a day with its starting and ending energy. Activities without a value are
solved from the day's total once enough is known about the others.`,
		Version:           version,
		SilenceErrors:     true,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		Run: func(cmd *cobra.Command, _ []string) {
			_ = cmd.Help()
		},
	}

	flags := a.root.PersistentFlags()
	flags.String("config", "", "Path to config file")
	flags.String("output", report.TableOut, "Output format: table or json or csv")
	flags.Int("precision", 1, "Decimal precision for numeric columns")
	flags.Bool("color", true, "Enable colored labels in table output")
	flags.String("backend", storage.BackendJSON, "Storage backend: json or sqlite")
	flags.String("log-level", "warn", "Log level: debug or info or warn or error")

	a.bind("output.format", "output")
	a.bind("output.precision", "precision")
	a.bind("output.color", "color")
	a.bind("storage.backend", "backend")
	a.bind("logging.level", "log-level")

	a.root.AddCommand(
		a.logCmd(),
		a.thinkCmd(),
		a.importCmd(),
		a.forecastCmd(),
		a.reportCmd(),
		a.pendingCmd(),
		a.sleepCmd(),
		a.namesCmd(),
		a.notifyCmd(),
		a.activityCmd(),
		a.backupCmd(),
		a.restoreCmd(),
		a.revisionsCmd(),
	)
	return a
}

func (a *app) bind(key, flag string) {
	if err := a.v.BindPFlag(key, a.root.PersistentFlags().Lookup(flag)); err != nil {
		logger.Fatal("Error binding flag %s: %v", flag, err)
	}
}

// setup loads the configuration, opens the store and reads the profile.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadWith(a.v, configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	a.cfg = cfg

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	if configPath != "" {
		logger.Debug("Configuration loaded from %s", configPath)
	}

	store, err := storage.Open(storage.Options{
		Backend:         cfg.Storage.Backend,
		FilePath:        cfg.Storage.FilePath,
		DBPath:          cfg.Storage.DBPath,
		FilePermissions: os.FileMode(cfg.Storage.FilePermissions),
		DirPermissions:  os.FileMode(cfg.Storage.DirPermissions),
		MaxRevisions:    cfg.Storage.MaxRevisions,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	a.store = store

	return a.loadProfile(cmd.Context())
}

func (a *app) loadProfile(ctx context.Context) error {
	data, err := a.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load profile: %w", err)
	}
	if data == nil {
		a.profile = profile.New(a.cfg.Profile.Name, a.cfg.Engine.Window)
		logger.Debug("No saved profile, starting %s", a.profile.Name)
		return nil
	}

	p, warnings := profile.Load(data, profile.LoadOptions{Window: a.cfg.Engine.Window, Now: a.now()})
	for _, w := range warnings {
		logger.Warn("Profile: %s", w)
	}
	a.profile = p
	logger.Debug("Loaded profile %s (%s)", p.Name, p.ID)
	return nil
}

func (a *app) save(ctx context.Context) error {
	data, err := profile.Save(a.profile)
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}
	if err := a.store.Save(ctx, data); err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	logger.Debug("Saved profile (%d bytes)", len(data))
	return nil
}

func (a *app) close() {
	if a.store == nil {
		return
	}
	if err := a.store.Close(); err != nil {
		logger.Error("Failed to close storage: %v", err)
	}
	a.store = nil
}

func (a *app) reportOptions() report.Options {
	out := a.cfg.Output
	return report.Options{
		Format:    out.Format,
		Precision: out.Precision,
		UseColors: out.Color && out.Format == report.TableOut,
	}
}

// emit writes to the command's output, or to path when one is given.
func emit(cmd *cobra.Command, path string, write func(io.Writer) error) error {
	if path == "" {
		return write(cmd.OutOrStdout())
	}
	return report.WithFile(path, write)
}
