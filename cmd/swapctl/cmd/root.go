package cmd

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hxuan190/swap-engine/internal/apiclient"
)

var rootCmd = &cobra.Command{
	Use:   "swapctl",
	Short: "Command-line client for the swap engine",
	Long: `swapctl quotes trades and previews the transaction steps of a swap
through a running swap engine.

Examples:
  swapctl quote 1 ETH 0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48:6:USDC
  swapctl steps 100 0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48:6:USDC ETH --account 0x...
  swapctl settings get 0x...`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(loadConfig)

	rootCmd.PersistentFlags().String("api", "http://localhost:8080", "Swap engine base URL")
	rootCmd.PersistentFlags().String("account", "", "Wallet address")
	rootCmd.PersistentFlags().Duration("timeout", 20*time.Second, "Request timeout")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "Output in JSON format")

	_ = viper.BindPFlag("api_url", rootCmd.PersistentFlags().Lookup("api"))
	_ = viper.BindPFlag("account", rootCmd.PersistentFlags().Lookup("account"))
	_ = viper.BindPFlag("timeout", rootCmd.PersistentFlags().Lookup("timeout"))
}

// loadConfig reads SWAPCTL_* variables and an optional .swapctl.yaml.
func loadConfig() {
	viper.SetConfigName(".swapctl")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("$HOME")
	viper.AddConfigPath(".")

	viper.SetEnvPrefix("SWAPCTL")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	_ = viper.ReadInConfig()
}

func newClient() *apiclient.Client {
	return apiclient.New(viper.GetString("api_url"), viper.GetString("account"), viper.GetDuration("timeout"))
}

func account(cmd *cobra.Command) (string, error) {
	a := viper.GetString("account")
	if a == "" {
		return "", fmt.Errorf("account required: pass --account or set SWAPCTL_ACCOUNT")
	}
	return a, nil
}

func jsonOutput(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func label(s string) string {
	return color.New(color.Bold).Sprint(s)
}
