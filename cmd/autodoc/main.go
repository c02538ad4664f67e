package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rohankatakam/autodoc/internal/config"
	"github.com/rohankatakam/autodoc/internal/errors"
	"github.com/rohankatakam/autodoc/internal/logging"
)

var (
	// Version information (set by build flags)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"

	cfgFile   string
	verbose   bool
	outputDir string
	logger    *logrus.Logger
	cfg       *config.Config
)

func main() {
	err := rootCmd.Execute()
	_ = logging.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.IsFatal(err) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "autodoc",
	Short: "autodoc - LLM-written documentation for source trees",
	Long: `autodoc walks a project, asks a language model to describe every class,
function, variable, type, interface, import and export it finds, and writes
Markdown documentation with a project overview and architecture diagrams.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger = logrus.New()
		logger.SetOutput(os.Stderr)

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			logger.WithError(err).Warn("Failed to load config, using defaults")
			cfg = config.Default()
		}
		if outputDir != "" {
			cfg.Output.Dir = outputDir
		}

		level, err := logrus.ParseLevel(cfg.Logging.Level)
		if err != nil {
			level = logrus.InfoLevel
		}
		if verbose {
			level = logrus.DebugLevel
		}
		logger.SetLevel(level)

		logDir := cfg.Logging.Dir
		if logDir == "" {
			logDir = filepath.Join(cfg.Output.Dir, "logs")
		}
		logCfg := logging.DefaultConfig(logDir, verbose)
		if !verbose {
			logCfg.Level = logging.ParseLevel(cfg.Logging.Level)
		}
		if err := logging.Initialize(logCfg); err != nil {
			logger.WithError(err).Warn("File logging disabled")
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./autodoc.yaml or ~/.autodoc/autodoc.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&outputDir, "output", "o", "", "output directory (overrides output.dir)")

	rootCmd.SetVersionTemplate(`autodoc {{.Version}}
Build time: ` + BuildTime + `
Git commit: ` + GitCommit + `
`)

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(docsCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(configureCmd)
}
