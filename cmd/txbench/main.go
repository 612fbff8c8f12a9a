// txbench measures per-transaction latency of TCP (connect, send, receive,
// close) against UDP (send, receive) with an identical echo workload, and
// prints a summary and a comparison chart for each protocol.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/m-lab/go/flagx"
	"github.com/m-lab/go/prometheusx"
	"github.com/m-lab/go/rtx"
	"github.com/m-lab/txbench/internal/harness"
	"github.com/m-lab/txbench/internal/persistence"
	"github.com/m-lab/txbench/internal/render"
	"github.com/m-lab/txbench/pkg/client"
	"github.com/m-lab/txbench/pkg/txbench/spec"
	"github.com/m-lab/txbench/pkg/version"
)

var (
	flagHost         = flag.String("host", spec.DefaultHost, "Server bind/target host (use a LAN IP for cross-machine tests)")
	flagPayload      = flag.Int("payload", spec.DefaultPayloadSize, "Payload size in bytes")
	flagRepeat       = flag.Int("repeat", spec.DefaultRepeat, "Transactions per protocol")
	flagCC           = flag.String("cc", "", "Congestion control algorithm for TCP client sockets (empty: system default)")
	flagLocalServers = flag.Bool("local-servers", true, "Start the echo servers in-process")
	flagDataDir      = flag.String("datadir", "", "Directory to archive run results in (empty: disabled)")
	flagRender       = flag.Bool("render", true, "Render the comparison charts")
	flagDebug        = flag.Bool("debug", false, "Enable debug logging and per-transaction output")
	flagEnvFile      = flag.String("env-file", "", "Optional dotenv file to load flag values from")
	flagOnFailure    = flagx.Enum{
		Options: client.Policies,
		Value:   string(client.PolicyAbort),
	}
)

// metricsFlag is registered by prometheusx.
const metricsFlag = "prometheusx.listen-address"

func init() {
	flag.Var(&flagOnFailure, "on-failure", "What to do when a transaction fails (abort|skip)")
}

func main() {
	flag.Parse()
	if *flagEnvFile != "" {
		rtx.Must(godotenv.Load(*flagEnvFile), "cannot load env file %s", *flagEnvFile)
	}
	rtx.Must(flagx.ArgsFromEnv(flag.CommandLine), "cannot read args from env")

	// Initialize logging and metrics.
	log.SetReportTimestamp(true)
	log.SetReportCaller(true)
	log.SetLevel(log.InfoLevel)
	if *flagDebug {
		log.SetLevel(log.DebugLevel)
	}
	log.Debug("Starting txbench", "version", version.Version, "commit", version.GitShortCommit)

	emitter := client.HumanReadable{Debug: *flagDebug}

	config := harness.DefaultConfig()
	config.Host = *flagHost
	config.PayloadSize = *flagPayload
	config.Repeat = *flagRepeat
	config.Policy = client.Policy(flagOnFailure.Value)
	config.CongestionControl = *flagCC
	config.LocalServers = *flagLocalServers
	config.Emitter = emitter
	if err := config.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		flag.Usage()
		os.Exit(2)
	}

	// A short-lived client only exports metrics when asked to, so that it can
	// share a host with txbench-server.
	if flagIsSet(flag.CommandLine, metricsFlag) {
		promSrv := prometheusx.MustServeMetrics()
		defer promSrv.Close()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	result, runErr := harness.Run(ctx, config)

	if *flagDataDir != "" {
		df, err := persistence.WriteDataFile(*flagDataDir, spec.Datatype, "transactions",
			result.ID, harness.Archive(result))
		if err != nil {
			log.Error("failed to write run archive", "id", result.ID, "error", err)
		} else {
			log.Info("Run archived", "path", df.Path)
		}
	}

	harness.Report(result, emitter)
	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			log.Info("Interrupted")
		}
		fmt.Fprintln(os.Stderr, runErr)
		cancel()
		os.Exit(1)
	}

	if *flagRender {
		err := render.Comparison(os.Stdout, result.PayloadSize,
			render.Series{Label: "TCP per-tx (handshake)", Durations: result.Stream.Durations},
			render.Series{Label: "UDP per-tx", Durations: result.Datagram.Durations})
		rtx.Must(err, "cannot render results")
	}
}

// flagIsSet reports whether the flag name was given on the command line or
// through the environment.
func flagIsSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}
