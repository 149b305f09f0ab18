package main

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/cryptodevs/dao/governance"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/fatih/color"
	"github.com/holiman/uint256"
	"github.com/urfave/cli/v2"
)

var (
	rpcFlag = &cli.StringFlag{
		Name:    "rpc",
		Usage:   "Endpoint of the governance node",
		Value:   "http://127.0.0.1:8645",
		EnvVars: []string{"DAO_RPC"},
	}
	fromFlag = &cli.StringFlag{
		Name:     "from",
		Usage:    "Account the request is made on behalf of",
		Required: true,
	}
)

var (
	proposeCommand = &cli.Command{
		Name:      "propose",
		Usage:     "Propose purchasing a marketplace unit",
		ArgsUsage: "<unit>",
		Flags:     []cli.Flag{rpcFlag, fromFlag},
		Action:    propose,
	}
	voteCommand = &cli.Command{
		Name:      "vote",
		Usage:     "Vote on an open proposal",
		ArgsUsage: "<id> <YAY|NAY>",
		Flags:     []cli.Flag{rpcFlag, fromFlag},
		Action:    vote,
	}
	executeCommand = &cli.Command{
		Name:      "execute",
		Usage:     "Execute a proposal whose voting period has ended",
		ArgsUsage: "<id>",
		Flags:     []cli.Flag{rpcFlag, fromFlag},
		Action:    execute,
	}
	depositCommand = &cli.Command{
		Name:      "deposit",
		Usage:     "Deposit wei into the treasury",
		ArgsUsage: "<amount>",
		Flags:     []cli.Flag{rpcFlag, fromFlag},
		Action:    deposit,
	}
	withdrawCommand = &cli.Command{
		Name:      "withdraw",
		Usage:     "Withdraw wei from the treasury to the controller",
		ArgsUsage: "<amount|all>",
		Flags:     []cli.Flag{rpcFlag, fromFlag},
		Action:    withdraw,
	}
	showCommand = &cli.Command{
		Name:      "show",
		Usage:     "Show a proposal",
		ArgsUsage: "<id>",
		Flags:     []cli.Flag{rpcFlag},
		Action:    show,
	}
	listCommand = &cli.Command{
		Name:   "list",
		Usage:  "List all proposals",
		Flags:  []cli.Flag{rpcFlag},
		Action: list,
	}
	balanceCommand = &cli.Command{
		Name:   "balance",
		Usage:  "Show the treasury balance and controller",
		Flags:  []cli.Flag{rpcFlag},
		Action: balance,
	}
	memberCommand = &cli.Command{
		Name:      "member",
		Usage:     "Check whether an account holds a credential",
		ArgsUsage: "<address>",
		Flags:     []cli.Flag{rpcFlag},
		Action:    member,
	}
)

var (
	okColor   = color.New(color.FgGreen)
	warnColor = color.New(color.FgYellow)
	failColor = color.New(color.FgRed)
	keyColor  = color.New(color.Bold)
)

func dial(ctx *cli.Context) (*rpc.Client, error) {
	return rpc.DialContext(ctx.Context, ctx.String(rpcFlag.Name))
}

func fromAddress(ctx *cli.Context) (common.Address, error) {
	addr, err := parseAddress(ctx.String(fromFlag.Name))
	if err != nil {
		return common.Address{}, fmt.Errorf("--%s: %w", fromFlag.Name, err)
	}
	return addr, nil
}

// args checks the positional argument count.
func args(ctx *cli.Context, n int) error {
	if ctx.NArg() != n {
		return fmt.Errorf("expected %d argument(s), usage: %s %s", n, ctx.Command.Name, ctx.Command.ArgsUsage)
	}
	return nil
}

func parseUint(s, what string) (hexutil.Uint64, error) {
	v, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", what, s)
	}
	return hexutil.Uint64(v), nil
}

func parseAmount(s string) (*hexutil.Big, error) {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %v", s, err)
	}
	return (*hexutil.Big)(v.ToBig()), nil
}

func propose(ctx *cli.Context) error {
	if err := args(ctx, 1); err != nil {
		return err
	}
	from, err := fromAddress(ctx)
	if err != nil {
		return err
	}
	unit, err := parseUint(ctx.Args().Get(0), "unit")
	if err != nil {
		return err
	}
	client, err := dial(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	var id hexutil.Uint64
	if err := client.CallContext(ctx.Context, &id, "dao_createProposal", unit, from); err != nil {
		return err
	}
	fmt.Fprintf(ctx.App.Writer, "Created proposal %s for unit %d\n", okColor.Sprint(uint64(id)), uint64(unit))
	return nil
}

func vote(ctx *cli.Context) error {
	if err := args(ctx, 2); err != nil {
		return err
	}
	from, err := fromAddress(ctx)
	if err != nil {
		return err
	}
	id, err := parseUint(ctx.Args().Get(0), "proposal id")
	if err != nil {
		return err
	}
	choice, err := governance.ParseChoice(ctx.Args().Get(1))
	if err != nil {
		return err
	}
	client, err := dial(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.CallContext(ctx.Context, nil, "dao_vote", id, from, choice.String()); err != nil {
		return err
	}
	fmt.Fprintf(ctx.App.Writer, "Voted %s on proposal %d\n", choiceColor(choice).Sprint(choice), uint64(id))
	return nil
}

func execute(ctx *cli.Context) error {
	if err := args(ctx, 1); err != nil {
		return err
	}
	from, err := fromAddress(ctx)
	if err != nil {
		return err
	}
	id, err := parseUint(ctx.Args().Get(0), "proposal id")
	if err != nil {
		return err
	}
	client, err := dial(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	var outcome string
	if err := client.CallContext(ctx.Context, &outcome, "dao_execute", id, from); err != nil {
		return err
	}
	fmt.Fprintf(ctx.App.Writer, "Executed proposal %d: %s\n", uint64(id), outcomeColor(outcome).Sprint(outcome))
	return nil
}

func deposit(ctx *cli.Context) error {
	if err := args(ctx, 1); err != nil {
		return err
	}
	from, err := fromAddress(ctx)
	if err != nil {
		return err
	}
	amount, err := parseAmount(ctx.Args().Get(0))
	if err != nil {
		return err
	}
	client, err := dial(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.CallContext(ctx.Context, nil, "dao_deposit", from, amount); err != nil {
		return err
	}
	fmt.Fprintf(ctx.App.Writer, "Deposited %s wei\n", okColor.Sprint(amount.ToInt()))
	return nil
}

func withdraw(ctx *cli.Context) error {
	if err := args(ctx, 1); err != nil {
		return err
	}
	from, err := fromAddress(ctx)
	if err != nil {
		return err
	}
	client, err := dial(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	if strings.EqualFold(ctx.Args().Get(0), "all") {
		var drained hexutil.Big
		if err := client.CallContext(ctx.Context, &drained, "dao_withdrawAll", from); err != nil {
			return err
		}
		fmt.Fprintf(ctx.App.Writer, "Withdrew %s wei\n", okColor.Sprint(drained.ToInt()))
		return nil
	}
	amount, err := parseAmount(ctx.Args().Get(0))
	if err != nil {
		return err
	}
	if err := client.CallContext(ctx.Context, nil, "dao_withdraw", from, amount); err != nil {
		return err
	}
	fmt.Fprintf(ctx.App.Writer, "Withdrew %s wei\n", okColor.Sprint(amount.ToInt()))
	return nil
}

func show(ctx *cli.Context) error {
	if err := args(ctx, 1); err != nil {
		return err
	}
	id, err := parseUint(ctx.Args().Get(0), "proposal id")
	if err != nil {
		return err
	}
	client, err := dial(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	var p governance.RPCProposal
	if err := client.CallContext(ctx.Context, &p, "dao_getProposal", id); err != nil {
		return err
	}
	w := tabwriter.NewWriter(ctx.App.Writer, 0, 4, 2, ' ', 0)
	row := func(key string, value interface{}) {
		fmt.Fprintf(w, "%s\t%v\n", keyColor.Sprint(key), value)
	}
	row("Proposal", uint64(p.ID))
	row("Unit", uint64(p.Unit))
	row("Proposer", p.Proposer)
	row("Created", formatTime(uint64(p.CreatedAt)))
	row("Deadline", formatTime(uint64(p.Deadline)))
	row("Yay", uint64(p.YayVotes))
	row("Nay", uint64(p.NayVotes))
	row("Status", statusColor(p.Status).Sprint(p.Status))
	if p.Executed {
		row("Outcome", outcomeColor(p.Outcome).Sprint(p.Outcome))
		if p.Price != nil && p.Price.ToInt().Sign() > 0 {
			row("Price", p.Price.ToInt())
		}
	}
	return w.Flush()
}

func list(ctx *cli.Context) error {
	client, err := dial(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	var proposals []*governance.RPCProposal
	if err := client.CallContext(ctx.Context, &proposals, "dao_listProposals"); err != nil {
		return err
	}
	if len(proposals) == 0 {
		fmt.Fprintln(ctx.App.Writer, "No proposals")
		return nil
	}
	w := tabwriter.NewWriter(ctx.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tUNIT\tYAY\tNAY\tDEADLINE\tSTATUS")
	for _, p := range proposals {
		status := p.Status
		if p.Executed {
			status += " (" + p.Outcome + ")"
		}
		fmt.Fprintf(w, "%d\t%d\t%d\t%d\t%s\t%s\n", uint64(p.ID), uint64(p.Unit), uint64(p.YayVotes), uint64(p.NayVotes),
			formatTime(uint64(p.Deadline)), statusColor(p.Status).Sprint(status))
	}
	return w.Flush()
}

func balance(ctx *cli.Context) error {
	client, err := dial(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	var (
		funds      hexutil.Big
		controller common.Address
	)
	if err := client.CallContext(ctx.Context, &funds, "dao_balance"); err != nil {
		return err
	}
	if err := client.CallContext(ctx.Context, &controller, "dao_controller"); err != nil {
		return err
	}
	fmt.Fprintf(ctx.App.Writer, "Treasury:   %s wei\nController: %s\n", okColor.Sprint(funds.ToInt()), controller)
	return nil
}

func member(ctx *cli.Context) error {
	if err := args(ctx, 1); err != nil {
		return err
	}
	addr, err := parseAddress(ctx.Args().Get(0))
	if err != nil {
		return err
	}
	client, err := dial(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	var ok bool
	if err := client.CallContext(ctx.Context, &ok, "dao_isMember", addr); err != nil {
		return err
	}
	if ok {
		fmt.Fprintf(ctx.App.Writer, "%s is %s\n", addr, okColor.Sprint("a member"))
	} else {
		fmt.Fprintf(ctx.App.Writer, "%s is %s\n", addr, failColor.Sprint("not a member"))
	}
	return nil
}

func formatTime(secs uint64) string {
	return time.Unix(int64(secs), 0).UTC().Format(time.RFC3339)
}

func choiceColor(c governance.Choice) *color.Color {
	if c == governance.ChoiceYay {
		return okColor
	}
	return failColor
}

func statusColor(status string) *color.Color {
	switch status {
	case governance.StatusOpen.String():
		return okColor
	case governance.StatusClosed.String():
		return warnColor
	}
	return keyColor
}

func outcomeColor(outcome string) *color.Color {
	switch outcome {
	case governance.OutcomePurchased.String():
		return okColor
	case governance.OutcomeRejected.String():
		return warnColor
	}
	return failColor
}
