package commands

import (
	"io/fs"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/klabast/wb-services/my-schedule/internal/app"
	"github.com/klabast/wb-services/my-schedule/internal/logging"
)

// Assets are the files embedded into the binary by main
type Assets struct {
	Static    fs.FS
	IndexHTML []byte
}

// defaultServer returns the default server URL, checking MY_SCHEDULE_SERVER first
func defaultServer() string {
	if s := os.Getenv("MY_SCHEDULE_SERVER"); s != "" {
		return s
	}
	return "http://localhost:8080"
}

// env is the state shared by all subcommands, filled in before any of them runs
type env struct {
	assets Assets

	configPath string
	logLevel   string
	logFormat  string

	cfg app.Config
	log zerolog.Logger
}

// NewRootCmd creates the root command of the my-schedule CLI
func NewRootCmd(assets Assets) *cobra.Command {
	e := &env{assets: assets}

	root := &cobra.Command{
		Use:   "my-schedule",
		Short: "Personal schedule board",
		Long: `my-schedule serves a schedule board (dated schedules, weekly timetable,
month calendar) and renders its schedule list into HTML pages.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.LoadConfig(e.configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("log-level") {
				cfg.Log.Level = e.logLevel
			}
			if cmd.Flags().Changed("log-format") {
				cfg.Log.Format = e.logFormat
			}
			e.cfg = cfg
			e.log = logging.NewStderr(cfg.Log)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&e.configPath, "config", "", "Path to config file (.yaml, .toml or .json)")
	root.PersistentFlags().StringVar(&e.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&e.logFormat, "log-format", logging.FormatAuto, "Log format (auto, console, json)")

	root.AddCommand(
		newServeCmd(e),
		newRenderCmd(e),
		newExportCmd(e),
		newBackupCmd(e),
	)
	return root
}
