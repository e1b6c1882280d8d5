package cli

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/mobile-next/streamkit/utils"
)

const version = "dev"

var (
	verbose  bool
	endpoint string

	// for session start
	configPlatform string
	configDevice   string
	configProxy    string
	configRecord   bool
	configDebug    bool

	// for screenshot command
	screenshotOutputPath string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "streamkit",
	Short: "A client for remote device streaming sessions",
	Long:  `A command-line client for driving remote iOS and Android devices over a streaming session`,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func initConfig() {
	utils.SetVerbose(verbose)
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&endpoint, "endpoint", "", "streaming service endpoint (ws:// or wss:// URL)")
}

// Execute runs the root command
func Execute() error {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	return rootCmd.Execute()
}

// printJson is a helper function to print JSON responses
func printJson(data interface{}) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(string(jsonData))
}
