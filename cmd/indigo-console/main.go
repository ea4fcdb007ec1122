// Command indigo-console is an interactive client for INDIGO servers.
//
// It dials a server, mirrors its devices on a local bus and lets the user
// inspect and change their properties.
//
// Usage:
//
//	indigo-console [flags] [host[:port]]
//
// Flags:
//
//	-discover string      Find the server by its mDNS instance name
//	-browse               List servers advertised over mDNS and exit
//	-protocol-log string  Write a protocol capture to this file
//	-log-level string     Log level: debug, info, warn, error (default "warn")
//
// Examples:
//
//	# Connect to a local server
//	indigo-console localhost
//
//	# Connect to the server advertised as "observatory"
//	indigo-console -discover observatory
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/chzyer/readline"
	"github.com/google/uuid"

	"github.com/indigo-bus/indigo-go/pkg/bus"
	"github.com/indigo-bus/indigo-go/pkg/discovery"
	plog "github.com/indigo-bus/indigo-go/pkg/log"
	"github.com/indigo-bus/indigo-go/pkg/wire"
)

var (
	discoverName = flag.String("discover", "", "Find the server by its mDNS instance name")
	browse       = flag.Bool("browse", false, "List servers advertised over mDNS and exit")
	protocolLog  = flag.String("protocol-log", "", "Write a protocol capture to this file")
	logLevel     = flag.String("log-level", "warn", "Log level: debug, info, warn, error")
)

func main() {
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer cancel()

	if *browse {
		if err := runBrowse(ctx, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(ctx, flag.Arg(0)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runBrowse(ctx context.Context, w io.Writer) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	services, err := discovery.NewMDNSBrowser(discovery.BrowserConfig{}).Browse(ctx)
	if err != nil {
		return err
	}
	found := 0
	for svc := range services {
		found++
		fmt.Fprintf(w, "  %-24s %-28s v%s, %d devices\n", svc.Instance, svc.Address(), svc.Version, svc.Devices)
	}
	if found == 0 {
		fmt.Fprintln(w, "No servers found")
	}
	return nil
}

// serverAddress picks the address to dial from the argument or mDNS.
func serverAddress(ctx context.Context, arg string) (string, error) {
	if *discoverName == "" {
		if arg == "" {
			arg = "localhost"
		}
		return arg, nil
	}
	findCtx, cancel := context.WithTimeout(ctx, discovery.BrowseTimeout)
	defer cancel()
	svc, err := discovery.NewMDNSBrowser(discovery.BrowserConfig{}).Find(findCtx, *discoverName)
	if err != nil {
		return "", fmt.Errorf("discover %q: %w", *discoverName, err)
	}
	return svc.Address(), nil
}

func run(ctx context.Context, arg string) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "indigo> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()

	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		return err
	}
	// Log output goes through readline so it does not break the prompt.
	logger := slog.New(slog.NewTextHandler(rl.Stderr(), &slog.HandlerOptions{Level: level}))

	var protocolLogger plog.Logger
	if *protocolLog != "" {
		capture, err := plog.NewFileLogger(*protocolLog)
		if err != nil {
			return fmt.Errorf("protocol log: %w", err)
		}
		defer capture.Close()
		protocolLogger = capture
	}

	addr, err := serverAddress(ctx, arg)
	if err != nil {
		return err
	}

	b := bus.New(bus.Config{Logger: logger})
	console := NewConsole("indigo-console-"+uuid.NewString()[:8], rl.Stdout())
	if err := b.AttachClient(console); err != nil {
		return err
	}
	defer func() { _ = b.Stop() }()

	connCtx, disconnect := context.WithCancel(ctx)
	defer disconnect()
	remote, err := wire.Dial(connCtx, b, addr, wire.Config{
		Logger:         logger,
		ProtocolLogger: protocolLogger,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(rl.Stdout(), "Connected to %s (type 'help' for commands)\n", addr)

	go func() {
		<-remote.Done()
		if err := remote.Err(); err != nil && !errors.Is(err, io.EOF) && connCtx.Err() == nil {
			fmt.Fprintf(rl.Stderr(), "Connection lost: %v\n", err)
		} else if connCtx.Err() == nil {
			fmt.Fprintln(rl.Stderr(), "Server closed the connection")
		}
	}()

	for {
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			break
		}
		if !console.Exec(strings.TrimSpace(line)) {
			break
		}
		if ctx.Err() != nil {
			break
		}
	}
	fmt.Fprintln(rl.Stdout(), "Exiting...")
	disconnect()
	<-remote.Done()
	return nil
}
