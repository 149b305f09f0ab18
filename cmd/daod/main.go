// daod runs a token-gated DAO governance node and talks to it over JSON-RPC.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/cryptodevs/dao/internal/config"
	"github.com/cryptodevs/dao/storage"
	"github.com/ethereum/go-ethereum/common"
	"github.com/urfave/cli/v2"

	// Automatically set GOMAXPROCS to match Linux container CPU quota.
	_ "go.uber.org/automaxprocs"
)

var (
	configFileFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "TOML configuration file",
	}
	dataDirFlag = &cli.StringFlag{
		Name:  "datadir",
		Usage: "Data directory for the journal",
	}
	httpAddrFlag = &cli.StringFlag{
		Name:  "http.addr",
		Usage: "HTTP-RPC listening address, empty to disable",
	}
	corsFlag = &cli.StringSliceFlag{
		Name:  "http.corsdomain",
		Usage: "Domains from which to accept cross origin requests (browser enforced)",
	}
	wsFlag = &cli.BoolFlag{
		Name:  "ws",
		Usage: "Accept WebSocket connections on the HTTP-RPC port",
	}
	metricsFlag = &cli.BoolFlag{
		Name:  "metrics",
		Usage: "Serve the metrics registry at /debug/metrics on the HTTP-RPC port",
	}
	dbEngineFlag = &cli.StringFlag{
		Name:  "db.engine",
		Usage: fmt.Sprintf("Journal database engine (%s, %s or %s)", storage.EngineLevelDB, storage.EnginePebble, storage.EngineMemory),
	}
	votingPeriodFlag = &cli.DurationFlag{
		Name:  "voting-period",
		Usage: "Length of the voting window of new proposals",
	}
	strictExecutionFlag = &cli.BoolFlag{
		Name:  "strict-execution",
		Usage: "Fail executions that cannot purchase instead of closing the proposal",
	}
	holdersOnlyFlag = &cli.BoolFlag{
		Name:  "execute-holders-only",
		Usage: "Only credential holders may execute proposals",
	}
	membershipEndpointFlag = &cli.StringFlag{
		Name:  "membership.endpoint",
		Usage: "Ethereum RPC endpoint serving the credential contract",
	}
	membershipContractFlag = &cli.StringFlag{
		Name:  "membership.contract",
		Usage: "Address of the ERC-721 credential contract",
	}
	controllerFlag = &cli.StringFlag{
		Name:  "controller",
		Usage: "Account allowed to withdraw treasury funds",
	}
	fundingFlag = &cli.StringFlag{
		Name:  "funding",
		Usage: "Initial treasury balance in wei",
	}
	membersFlag = &cli.StringSliceFlag{
		Name:  "members",
		Usage: "Accounts receiving a credential in the in-process registry",
	}
	unitPriceFlag = &cli.StringFlag{
		Name:  "unit-price",
		Usage: "Marketplace price of a unit in wei",
	}
	verbosityFlag = &cli.IntFlag{
		Name:  "verbosity",
		Usage: "Logging verbosity: 0=silent, 1=error, 2=warn, 3=info, 4=debug, 5=trace",
	}
	vmoduleFlag = &cli.StringFlag{
		Name:  "vmodule",
		Usage: "Per-module verbosity: comma-separated list of <pattern>=<level> (e.g. governance/*=5)",
	}
	logFormatFlag = &cli.StringFlag{
		Name:  "log.format",
		Usage: "Log format to use (terminal|logfmt|json)",
	}
	logFileFlag = &cli.StringFlag{
		Name:  "log.file",
		Usage: "Write logs to a rotated file instead of stderr",
	}

	nodeFlags = []cli.Flag{
		configFileFlag,
		dataDirFlag,
		httpAddrFlag,
		corsFlag,
		wsFlag,
		metricsFlag,
		dbEngineFlag,
		votingPeriodFlag,
		strictExecutionFlag,
		holdersOnlyFlag,
		membershipEndpointFlag,
		membershipContractFlag,
		controllerFlag,
		fundingFlag,
		membersFlag,
		unitPriceFlag,
		verbosityFlag,
		vmoduleFlag,
		logFormatFlag,
		logFileFlag,
	}
)

func newApp() *cli.App {
	return &cli.App{
		Name:     "daod",
		Usage:    "token-gated DAO governance node",
		Version:  "0.1.0",
		Flags:    nodeFlags,
		Action:   runNode,
		Commands: []*cli.Command{
			runCommand,
			proposeCommand,
			voteCommand,
			executeCommand,
			depositCommand,
			withdrawCommand,
			showCommand,
			listCommand,
			balanceCommand,
			memberCommand,
			dumpConfigCommand,
			journalCommand,
		},
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var dumpConfigCommand = &cli.Command{
	Name:   "dumpconfig",
	Usage:  "Show configuration values",
	Flags:  nodeFlags,
	Action: dumpConfig,
}

func dumpConfig(ctx *cli.Context) error {
	cfg, err := makeConfig(ctx)
	if err != nil {
		return err
	}
	out, err := cfg.Dump()
	if err != nil {
		return err
	}
	_, err = ctx.App.Writer.Write(out)
	return err
}

// makeConfig layers defaults, the config file, DAO_* variables and flags.
func makeConfig(ctx *cli.Context) (*config.Config, error) {
	cfg := config.Defaults()
	if file := ctx.String(configFileFlag.Name); file != "" {
		if err := cfg.Load(file); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := applyFlags(ctx, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyFlags(ctx *cli.Context, cfg *config.Config) error {
	if ctx.IsSet(dataDirFlag.Name) {
		cfg.Node.DataDir = ctx.String(dataDirFlag.Name)
	}
	if ctx.IsSet(httpAddrFlag.Name) {
		cfg.Node.HTTPAddr = ctx.String(httpAddrFlag.Name)
	}
	if ctx.IsSet(corsFlag.Name) {
		cfg.Node.CORSOrigins = ctx.StringSlice(corsFlag.Name)
	}
	if ctx.IsSet(wsFlag.Name) {
		cfg.Node.WSEnabled = ctx.Bool(wsFlag.Name)
	}
	if ctx.IsSet(metricsFlag.Name) {
		cfg.Node.Metrics = ctx.Bool(metricsFlag.Name)
	}
	if ctx.IsSet(dbEngineFlag.Name) {
		cfg.Storage.Engine = ctx.String(dbEngineFlag.Name)
	}
	if ctx.IsSet(votingPeriodFlag.Name) {
		cfg.Governance.VotingPeriod = config.Duration(ctx.Duration(votingPeriodFlag.Name).Truncate(time.Second))
	}
	if ctx.IsSet(strictExecutionFlag.Name) {
		cfg.Governance.StrictExecution = ctx.Bool(strictExecutionFlag.Name)
	}
	if ctx.IsSet(holdersOnlyFlag.Name) {
		cfg.Governance.ExecuteHoldersOnly = ctx.Bool(holdersOnlyFlag.Name)
	}
	if ctx.IsSet(membershipEndpointFlag.Name) {
		cfg.Membership.Endpoint = ctx.String(membershipEndpointFlag.Name)
	}
	if ctx.IsSet(membershipContractFlag.Name) {
		addr, err := parseAddress(ctx.String(membershipContractFlag.Name))
		if err != nil {
			return fmt.Errorf("--%s: %w", membershipContractFlag.Name, err)
		}
		cfg.Membership.Contract = addr
	}
	if ctx.IsSet(controllerFlag.Name) {
		addr, err := parseAddress(ctx.String(controllerFlag.Name))
		if err != nil {
			return fmt.Errorf("--%s: %w", controllerFlag.Name, err)
		}
		cfg.Genesis.Controller = addr
	}
	if ctx.IsSet(fundingFlag.Name) {
		cfg.Genesis.Funding = ctx.String(fundingFlag.Name)
	}
	if ctx.IsSet(membersFlag.Name) {
		cfg.Genesis.Members = nil
		for _, m := range ctx.StringSlice(membersFlag.Name) {
			addr, err := parseAddress(m)
			if err != nil {
				return fmt.Errorf("--%s: %w", membersFlag.Name, err)
			}
			cfg.Genesis.Members = append(cfg.Genesis.Members, addr)
		}
	}
	if ctx.IsSet(unitPriceFlag.Name) {
		cfg.Genesis.UnitPrice = ctx.String(unitPriceFlag.Name)
	}
	if ctx.IsSet(verbosityFlag.Name) {
		cfg.Log.Verbosity = ctx.Int(verbosityFlag.Name)
	}
	if ctx.IsSet(vmoduleFlag.Name) {
		cfg.Log.Vmodule = ctx.String(vmoduleFlag.Name)
	}
	if ctx.IsSet(logFormatFlag.Name) {
		cfg.Log.Format = ctx.String(logFormatFlag.Name)
	}
	if ctx.IsSet(logFileFlag.Name) {
		cfg.Log.File = ctx.String(logFileFlag.Name)
	}
	return nil
}

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid address %q", s)
	}
	return common.HexToAddress(s), nil
}
