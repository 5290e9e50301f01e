package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/hxuan190/swap-engine/internal/apiclient"
	api "github.com/hxuan190/swap-engine/internal/http"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Read or change per-wallet swap settings",
}

var settingsGetCmd = &cobra.Command{
	Use:   "get [account]",
	Short: "Show swap settings",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSettingsGet,
}

var (
	setSlippage  string
	setDeadline  int
	setRouting   string
	setProtocols []string
)

var settingsSetCmd = &cobra.Command{
	Use:   "set [account]",
	Short: "Replace swap settings",
	Long: `Replace the stored settings. Omitted flags reset to their defaults.

Examples:
  swapctl settings set 0x... --slippage 0.5 --deadline 20
  swapctl settings set --routing CLASSIC --protocols V3,V4`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSettingsSet,
}

func init() {
	rootCmd.AddCommand(settingsCmd)
	settingsCmd.AddCommand(settingsGetCmd, settingsSetCmd)

	settingsSetCmd.Flags().StringVar(&setSlippage, "slippage", "", "Custom slippage in percent (auto when empty)")
	settingsSetCmd.Flags().IntVar(&setDeadline, "deadline", 0, "Transaction deadline in minutes")
	settingsSetCmd.Flags().StringVar(&setRouting, "routing", "", "Routing preference")
	settingsSetCmd.Flags().StringSliceVar(&setProtocols, "protocols", nil, "Allowed protocols")
}

func settingsAccount(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	return account(cmd)
}

func runSettingsGet(cmd *cobra.Command, args []string) error {
	acct, err := settingsAccount(cmd, args)
	if err != nil {
		return err
	}
	s, err := newClient().Settings(context.Background(), acct)
	if err != nil {
		return err
	}
	return showSettings(cmd, s)
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	acct, err := settingsAccount(cmd, args)
	if err != nil {
		return err
	}
	req := api.SettingsRequest{DeadlineMinutes: setDeadline, RoutingPreference: setRouting, Protocols: setProtocols}
	if setSlippage != "" {
		v, err := decimal.NewFromString(setSlippage)
		if err != nil {
			return fmt.Errorf("invalid slippage %q", setSlippage)
		}
		req.Slippage = &v
	}
	s, err := newClient().PutSettings(context.Background(), acct, req)
	if err != nil {
		return err
	}
	return showSettings(cmd, s)
}

func showSettings(cmd *cobra.Command, s *apiclient.Settings) error {
	if jsonOutput(cmd) {
		return printJSON(s)
	}
	slip := "auto"
	if s.CustomSlippage != nil {
		slip = s.CustomSlippage.String() + "%"
	}
	protocols := "all"
	if len(s.Protocols) > 0 {
		protocols = strings.Join(s.Protocols, ", ")
	}
	fmt.Println()
	fmt.Printf("%s %s\n", label("Account: "), s.Account)
	fmt.Printf("%s %s\n", label("Slippage:"), slip)
	fmt.Printf("%s %s\n", label("Deadline:"), s.TxDeadline)
	fmt.Printf("%s %s\n", label("Routing: "), s.RoutingPreference)
	fmt.Printf("%s %s\n\n", label("Pools:   "), protocols)
	return nil
}
