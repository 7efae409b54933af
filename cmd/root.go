package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/endorses/lexicat/cmd/extract"
	"github.com/endorses/lexicat/cmd/match"
	"github.com/endorses/lexicat/cmd/patterns"
	"github.com/endorses/lexicat/cmd/scan"
	versioncmd "github.com/endorses/lexicat/cmd/version"
	"github.com/endorses/lexicat/internal/pkg/cmdutil"
	"github.com/endorses/lexicat/internal/pkg/logger"
	"github.com/endorses/lexicat/internal/pkg/version"
)

var cfgFile string

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "lexicat",
		Short: "lexicat finds network and file-system artifacts in text",
		Long: fmt.Sprintf(`lexicat %s - lexical artifact recognizer

Finds IP and MAC addresses, host names, email addresses, phone numbers,
file names and paths in text, files and packet captures.`, version.Short()),
		Version:           version.Full(),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setupLogging,
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/lexicat/config.yaml)")
	root.PersistentFlags().String("tld-file", "", "file with one top-level domain per line (default is the embedded subset of the IANA list)")
	root.PersistentFlags().String("log-level", "info", "log level: debug, info, warn or error")
	root.PersistentFlags().String("log-format", "text", "log format: text or json")

	_ = viper.BindPFlag("tld_file", root.PersistentFlags().Lookup("tld-file"))
	_ = viper.BindPFlag("log.level", root.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log.format", root.PersistentFlags().Lookup("log-format"))

	root.AddCommand(patterns.New())
	root.AddCommand(match.New())
	root.AddCommand(scan.New())
	root.AddCommand(extract.New())
	root.AddCommand(versioncmd.New())
	return root
}

// Execute runs the root command and exits with the command's exit code.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		code := cmdutil.ExitCode(err)
		if code != cmdutil.ExitNoMatch {
			logger.Error("Command failed", "error", err)
		}
		os.Exit(code)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func setupLogging(cmd *cobra.Command, args []string) error {
	err := logger.Configure(logger.Options{
		Level:  viper.GetString("log.level"),
		Format: viper.GetString("log.format"),
		Output: cmd.ErrOrStderr(),
	})
	if err != nil {
		return cmdutil.Validation(err)
	}
	if f := viper.ConfigFileUsed(); f != "" {
		logger.Debug("Using config file", "path", f)
	}
	return nil
}

func initConfig() {
	viper.SetEnvPrefix("lexicat")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	path := cfgFile
	if path == "" {
		path = findConfig()
	}
	if path == "" {
		return
	}

	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		fmt.Fprintln(os.Stderr, "Error reading config file:", err)
		os.Exit(cmdutil.ExitValidationError)
	}
}

// findConfig returns the first config file that exists, in priority order:
// ~/.config/lexicat/config.yaml, ~/.config/lexicat.yaml, ~/.lexicat.yaml.
func findConfig() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	for _, candidate := range []string{
		filepath.Join(home, ".config", "lexicat", "config.yaml"),
		filepath.Join(home, ".config", "lexicat.yaml"),
		filepath.Join(home, ".lexicat.yaml"),
	} {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}
