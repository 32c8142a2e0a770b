package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is overridden at build time with -ldflags "-X"
var version = "v0.1.0"

var (
	cfgFile     string
	verbose     bool
	metricsFile string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "penrose",
	Short: "Penrose - voice-preserving refinement engine",
	Long: `Penrose refines writing without erasing the author's voice.

It learns a stylistic fingerprint from an author's own samples, generates
candidate edits, scores each one for meaning, voice and scope, and only
shows a suggestion that stays faithful to the author. When nothing does,
the original text is returned untouched.

Penrose measures similarity. It does not judge whether writing is good.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Display the version number of Penrose.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("penrose %s\n", version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: $HOME/.penrose/config.yaml)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	pf.String("user", "", "author user id (default: $PENROSE_USER or $USER)")
	pf.String("org", "", "organization id for tenant-scoped profiles")
	pf.String("db", "", "SQLite database path (overrides store.path)")
	pf.String("llm-provider", "", "LLM provider (openai, anthropic, ollama)")
	pf.String("llm-model", "", "LLM model name")
	pf.StringVar(&metricsFile, "metrics-file", "", "write Prometheus metrics to this file on exit")

	// Bind flags to viper
	_ = viper.BindPFlag("verbose", pf.Lookup("verbose"))
	_ = viper.BindPFlag("user", pf.Lookup("user"))
	_ = viper.BindPFlag("org", pf.Lookup("org"))
	_ = viper.BindPFlag("store.path", pf.Lookup("db"))
	_ = viper.BindPFlag("llm.provider", pf.Lookup("llm-provider"))
	_ = viper.BindPFlag("llm.model", pf.Lookup("llm-model"))

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	setDefaults()

	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		// Search for config in home directory
		viper.AddConfigPath(home + "/.penrose")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// Read in environment variables that match PENROSE_* (llm.api_key -> PENROSE_LLM_API_KEY)
	viper.SetEnvPrefix("PENROSE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}
