package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hxuan190/swap-engine/internal/apiclient"
	"github.com/hxuan190/swap-engine/internal/domain"
	api "github.com/hxuan190/swap-engine/internal/http"
)

var (
	chainID    uint64
	exactOut   bool
	slippage   string
	routingPre string
)

var quoteCmd = &cobra.Command{
	Use:   "quote <amount> <token-in> <token-out>",
	Short: "Get a definitive quote",
	Long: `Get an executable quote. Tokens are a native symbol such as ETH or
address:decimals[:symbol].

Examples:
  swapctl quote 1 ETH 0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48:6:USDC
  swapctl quote 2500 ETH 0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48:6:USDC --exact-output
  swapctl quote 1 ETH 0x4200000000000000000000000000000000000006:18:WETH --chain 8453`,
	Args: cobra.ExactArgs(3),
	RunE: runQuote,
}

func init() {
	rootCmd.AddCommand(quoteCmd)
	addTradeFlags(quoteCmd)
}

func addTradeFlags(c *cobra.Command) {
	c.Flags().Uint64Var(&chainID, "chain", uint64(domain.ChainMainnet), "Chain id of both tokens")
	c.Flags().BoolVar(&exactOut, "exact-output", false, "Amount is the output amount")
	c.Flags().StringVar(&slippage, "slippage", "", "Slippage tolerance in percent (auto when empty)")
	c.Flags().StringVar(&routingPre, "routing", "", "Routing preference: BEST_PRICE, FASTEST, CLASSIC or UNISWAPX_V2")
}

// tradeRequest builds the request from <amount> <token-in> <token-out>.
func tradeRequest(args []string) (api.TradeInputRequest, error) {
	chain := domain.ChainID(chainID)
	in, err := parseToken(args[1], chain)
	if err != nil {
		return api.TradeInputRequest{}, err
	}
	out, err := parseToken(args[2], chain)
	if err != nil {
		return api.TradeInputRequest{}, err
	}

	req := api.TradeInputRequest{
		Account:           viper.GetString("account"),
		TokenIn:           in,
		TokenOut:          out,
		ExactField:        string(domain.FieldInput),
		RoutingPreference: routingPre,
	}
	exact := in
	if exactOut {
		req.ExactField = string(domain.FieldOutput)
		exact = out
	}
	if req.Amount, err = toBaseUnits(args[0], exact); err != nil {
		return api.TradeInputRequest{}, err
	}
	if slippage != "" {
		s, err := decimal.NewFromString(slippage)
		if err != nil {
			return api.TradeInputRequest{}, fmt.Errorf("invalid slippage %q", slippage)
		}
		req.Slippage = &s
	}
	return req, nil
}

func runQuote(cmd *cobra.Command, args []string) error {
	req, err := tradeRequest(args)
	if err != nil {
		return err
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput(cmd) {
		s.Suffix = " Fetching quote..."
		s.Start()
	}
	q, err := newClient().Quote(context.Background(), req)
	s.Stop()
	if err != nil {
		return err
	}

	if jsonOutput(cmd) {
		return printJSON(q)
	}
	if q.Trade == nil {
		color.Yellow("\nNo route found for %s -> %s\n\n", symbol(req.TokenIn), symbol(req.TokenOut))
		return nil
	}
	printTrade(q.Trade, q.Routing)
	fmt.Printf("%s %dms\n\n", label("Latency:"), q.LatencyMs)
	return nil
}

func printTrade(t *apiclient.Trade, routing string) {
	fmt.Println()
	fmt.Printf("%s %s %s\n", label("You pay:    "), t.InputAmount.Decimal().String(), symbol(t.InputAmount.Currency))
	fmt.Printf("%s %s %s\n", label("You receive:"), color.GreenString(t.OutputAmount.Decimal().String()), symbol(t.OutputAmount.Currency))
	if routing != "" {
		fmt.Printf("%s %s\n", label("Routing:    "), routing)
	}
	fmt.Printf("%s %s%%\n", label("Slippage:   "), t.SlippageTolerance.String())
	if !t.PriceImpact.IsZero() {
		impact := t.PriceImpact.StringFixed(2) + "%"
		if t.PriceImpact.GreaterThan(decimal.NewFromInt(5)) {
			impact = color.RedString(impact)
		}
		fmt.Printf("%s %s\n", label("Impact:     "), impact)
	}
	if !t.Deadline.IsZero() {
		fmt.Printf("%s %s\n", label("Expires:    "), t.Deadline.Local().Format(time.Kitchen))
	}
}
