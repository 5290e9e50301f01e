package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/hxuan190/swap-engine/internal/apiclient"
	api "github.com/hxuan190/swap-engine/internal/http"
)

var urgency string

var stepsCmd = &cobra.Command{
	Use:   "steps <amount> <token-in> <token-out>",
	Short: "Preview the transaction steps of a swap",
	Long: `Open a session, quote the swap, prepare it and print the approvals,
signatures and transactions the wallet would execute. Nothing is signed.

Examples:
  swapctl steps 100 0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48:6:USDC ETH --account 0x...
  swapctl steps 1 ETH 0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48:6:USDC --urgency fast`,
	Args: cobra.ExactArgs(3),
	RunE: runSteps,
}

func init() {
	rootCmd.AddCommand(stepsCmd)
	addTradeFlags(stepsCmd)
	stepsCmd.Flags().StringVar(&urgency, "urgency", "", "Gas urgency: normal, fast or urgent")
}

func runSteps(cmd *cobra.Command, args []string) error {
	acct, err := account(cmd)
	if err != nil {
		return err
	}
	req, err := tradeRequest(args)
	if err != nil {
		return err
	}

	ctx := context.Background()
	client := newClient()

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput(cmd) {
		s.Suffix = " Preparing swap..."
		s.Start()
	}
	view, err := prepare(ctx, client, acct, req)
	s.Stop()
	if err != nil {
		return err
	}

	if jsonOutput(cmd) {
		return printJSON(view)
	}
	if view.Accepted != nil {
		printTrade(view.Accepted, "")
	}
	fmt.Println()
	for i, step := range view.Steps {
		fmt.Printf("%d. %s  %s\n", i+1, label(step.Type), statusColor(step.Status))
		if step.TxRequest != nil {
			fmt.Printf("   to %s", step.TxRequest.To)
			if step.TxRequest.GasLimit > 0 {
				fmt.Printf(", gas limit %d", step.TxRequest.GasLimit)
			}
			fmt.Println()
		}
		if !step.Deadline.IsZero() {
			fmt.Printf("   expires %s\n", step.Deadline.Local().Format(time.Kitchen))
		}
	}
	fmt.Println()
	return nil
}

func prepare(ctx context.Context, client *apiclient.Client, acct string, req api.TradeInputRequest) (*apiclient.Session, error) {
	sess, err := client.CreateSession(ctx, acct)
	if err != nil {
		return nil, err
	}
	defer func() { _ = client.CloseSession(ctx, sess.ID) }()

	view, err := client.SetInput(ctx, sess.ID, req)
	if err != nil {
		return nil, err
	}
	if view.Trade == nil {
		if view.Error != "" {
			return nil, fmt.Errorf("no trade: %s", view.Error)
		}
		return nil, fmt.Errorf("no route found")
	}
	if view.RequiresAcceptance {
		if _, err := client.Accept(ctx, sess.ID); err != nil {
			return nil, err
		}
	}
	return client.PrepareSwap(ctx, sess.ID, urgency)
}

func statusColor(status string) string {
	switch status {
	case "Active":
		return color.CyanString(status)
	case "Complete":
		return color.GreenString(status)
	case "Failed", "TimedOut":
		return color.RedString(status)
	}
	return color.New(color.Faint).Sprint(status)
}
