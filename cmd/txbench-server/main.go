// txbench-server runs the stream and datagram echo servers until it receives
// SIGINT or SIGTERM. Use it on a remote host together with
// `txbench -local-servers=false -host <server>`.
package main

import (
	"context"
	"flag"
	"net"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/m-lab/go/flagx"
	"github.com/m-lab/go/prometheusx"
	"github.com/m-lab/go/rtx"
	"github.com/m-lab/txbench/internal/echo"
	"github.com/m-lab/txbench/pkg/txbench/spec"
)

var (
	flagHost         = flag.String("host", "", "Bind host (empty: all interfaces)")
	flagStreamPort   = flag.Int("stream-port", spec.StreamPort, "TCP echo port")
	flagDatagramPort = flag.Int("datagram-port", spec.DatagramPort, "UDP echo port")
	flagDebug        = flag.Bool("debug", false, "Enable debug logging")
	flagCC           = flag.String("cc", "", "Congestion control algorithm for accepted TCP connections (empty: system default)")
	flagEnvFile      = flag.String("env-file", "", "Optional dotenv file to load flag values from")
)

func main() {
	flag.Parse()
	if *flagEnvFile != "" {
		rtx.Must(godotenv.Load(*flagEnvFile), "cannot load env file %s", *flagEnvFile)
	}
	rtx.Must(flagx.ArgsFromEnv(flag.CommandLine), "cannot read args from env")

	// Initialize logging and metrics.
	log.SetReportCaller(true)
	log.SetReportTimestamp(true)
	if *flagDebug {
		log.SetLevel(log.DebugLevel)
	}

	promSrv := prometheusx.MustServeMetrics()
	defer promSrv.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	stream := echo.NewStreamServer(net.JoinHostPort(*flagHost, strconv.Itoa(*flagStreamPort)))
	stream.CongestionControl = *flagCC
	servers := []echo.Server{
		stream,
		echo.NewDatagramServer(net.JoinHostPort(*flagHost, strconv.Itoa(*flagDatagramPort))),
	}
	wg := sync.WaitGroup{}
	for _, s := range servers {
		rtx.Must(s.Listen(ctx), "failed to create listener")
		wg.Add(1)
		go func(s echo.Server) {
			defer wg.Done()
			rtx.Must(s.Serve(ctx), "echo server failed")
		}(s)
	}

	<-ctx.Done()
	wg.Wait()
}
