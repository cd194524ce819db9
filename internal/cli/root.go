package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"raw-catalog/internal/startup"
)

// App carries the layered configuration shared by all subcommands.
type App struct {
	Viper  *viper.Viper
	Config *startup.Config

	configFile string
}

// NewApp returns an App with defaults and environment overrides
// registered. Config is filled in before any command runs.
func NewApp() *App {
	return &App{Viper: startup.NewViper()}
}

// load reads the config file and resolves the final configuration.
func (a *App) load() error {
	if err := startup.ReadConfigFile(a.Viper, a.configFile); err != nil {
		return err
	}
	cfg, err := startup.LoadConfig(a.Viper)
	if err != nil {
		return err
	}
	cfg.ApplyLogging()
	a.Config = cfg
	return nil
}

// bind ties a flag to a configuration key so the flag wins when set.
func (a *App) bind(cmd *cobra.Command, key, flag string) {
	f := cmd.Flags().Lookup(flag)
	if f == nil {
		f = cmd.PersistentFlags().Lookup(flag)
	}
	if f == nil {
		panic(fmt.Sprintf("cli: no flag %q on %s", flag, cmd.Name()))
	}
	if err := a.Viper.BindPFlag(key, f); err != nil {
		panic(fmt.Sprintf("cli: bind %s: %v", flag, err))
	}
}

// setupGlobalFlags defines flags shared by every command of a binary.
func (a *App) setupGlobalFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&a.configFile, "config", "", "Path to a YAML config file (default: ./rawcat.yaml)")
	cmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	cmd.PersistentFlags().String("log-format", "", "Log format: console or json")
	a.bind(cmd, startup.KeyLogLevel, "log-level")
	a.bind(cmd, startup.KeyLogFormat, "log-format")
}

// RootCommand creates the rawcat command tree.
func RootCommand(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "rawcat",
		Short:         "Generate RAW previews and catalog them for search",
		Version:       startup.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	app.setupGlobalFlags(rootCmd)
	rootCmd.PersistentFlags().String("db", "", "Path to the RAW catalog (default: raw_photos.db)")
	app.bind(rootCmd, startup.KeyDatabasePath, "db")

	rootCmd.AddCommand(
		ScanCommand(app),
		SearchCommand(app),
		ServeCommand(app),
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return app.load()
	}

	return rootCmd
}
