package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/persistwin/persistwin/internal/config"
	"github.com/persistwin/persistwin/internal/daemon"
	"github.com/persistwin/persistwin/internal/ipc"
	"github.com/persistwin/persistwin/internal/monitor"
	"github.com/persistwin/persistwin/internal/restore"
	"github.com/persistwin/persistwin/internal/runtimepath"
	"github.com/persistwin/persistwin/internal/store"
	"github.com/persistwin/persistwin/internal/x11"
)

func main() {
	if len(os.Args) < 2 {
		printMainUsage(os.Stdout)
		os.Exit(0)
	}

	switch os.Args[1] {
	case "daemon":
		if len(os.Args) > 2 && (os.Args[2] == "help" || os.Args[2] == "-h" || os.Args[2] == "--help") {
			fmt.Fprintln(os.Stdout, "Usage: persistwin daemon")
			os.Exit(0)
		}
		if len(os.Args) > 2 {
			fmt.Fprintln(os.Stderr, "daemon takes no arguments")
			fmt.Fprintln(os.Stderr, "")
			fmt.Fprintln(os.Stderr, "Usage: persistwin daemon")
			os.Exit(2)
		}
		runDaemon()
	case "status":
		os.Exit(runStatus(os.Args[2:]))
	case "snapshot":
		os.Exit(runSnapshot(os.Args[2:]))
	case "restore":
		os.Exit(runRestore(os.Args[2:]))
	case "topology":
		os.Exit(runTopology(os.Args[2:]))
	case "layouts":
		os.Exit(runLayouts(os.Args[2:]))
	case "prune":
		os.Exit(runPrune(os.Args[2:]))
	case "reload":
		os.Exit(runReload(os.Args[2:]))
	case "help", "-h", "--help":
		printMainUsage(os.Stdout)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printMainUsage(os.Stderr)
		os.Exit(2)
	}
}

func printMainUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: persistwin <command> [options]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  daemon              Start the persistwin daemon (foreground)")
	fmt.Fprintln(w, "  status              Show daemon status")
	fmt.Fprintln(w, "  snapshot            Commit the current window layout now")
	fmt.Fprintln(w, "  restore             Restore the stored layout for the current topology")
	fmt.Fprintln(w, "  topology            Show the live monitor topology and fingerprint")
	fmt.Fprintln(w, "  layouts             List stored layouts")
	fmt.Fprintln(w, "  prune               Delete the stored layout for a fingerprint")
	fmt.Fprintln(w, "  reload              Reload daemon configuration")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Run 'persistwin <command> --help' for command-specific options.")
}

func runStatus(args []string) int {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: persistwin status")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Show daemon status via IPC.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}

	client := ipc.NewClient()
	status, err := client.GetStatus()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	fmt.Printf("Daemon:      running\n")
	fmt.Printf("State:       %s\n", status.State)
	if status.Fingerprint != "" {
		fmt.Printf("Topology:    %s\n", status.Fingerprint)
	} else {
		fmt.Printf("Topology:    (not yet observed)\n")
	}
	fmt.Printf("Uptime:      %ds\n", status.UptimeSeconds)
	return 0
}

func runSnapshot(args []string) int {
	fs := flag.NewFlagSet("snapshot", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: persistwin snapshot")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Commit the current window layout under the current topology fingerprint.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}

	client := ipc.NewClient()
	if err := client.SnapshotNow(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Println("Layout snapshot committed")
	return 0
}

func runRestore(args []string) int {
	fs := flag.NewFlagSet("restore", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: persistwin restore")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Restore the stored layout for the current topology.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}

	client := ipc.NewClient()
	if err := client.RestoreNow(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Println("Layout restored")
	return 0
}

func runTopology(args []string) int {
	fs := flag.NewFlagSet("topology", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	jsonOut := fs.Bool("json", false, "Output as JSON")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: persistwin topology [--json]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Show the live monitor topology and its fingerprint.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}

	client := ipc.NewClient()
	topo, err := client.GetTopology()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(topo); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	fmt.Printf("Fingerprint: %s\n", topo.Fingerprint)
	for _, m := range topo.Monitors {
		primary := ""
		if m.Primary {
			primary = " (primary)"
		}
		fmt.Printf("  %-12s %dx%d+%d+%d  scale %.2f%s\n",
			m.Name, m.Width, m.Height, m.X, m.Y, m.Scale, primary)
	}
	return 0
}

func runLayouts(args []string) int {
	fs := flag.NewFlagSet("layouts", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	jsonOut := fs.Bool("json", false, "Output as JSON")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: persistwin layouts [--json]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "List stored layouts with fingerprint, window count and last update.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}

	client := ipc.NewClient()
	data, err := client.ListLayouts()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(data); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	if len(data.Layouts) == 0 {
		fmt.Println("No stored layouts")
		return 0
	}
	for _, l := range data.Layouts {
		fmt.Printf("%s  %2d windows  %s  %s\n",
			l.Fingerprint, l.WindowCount,
			l.UpdatedAt.Local().Format("2006-01-02 15:04"),
			l.Description)
	}
	return 0
}

func runPrune(args []string) int {
	fs := flag.NewFlagSet("prune", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: persistwin prune <fingerprint>")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Delete the stored layout for a fingerprint. Layouts are never")
		fmt.Fprintln(os.Stderr, "pruned automatically.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return 2
	}

	client := ipc.NewClient()
	pruned, err := client.PruneLayout(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if !pruned {
		fmt.Printf("No stored layout for %s\n", fs.Arg(0))
		return 1
	}
	fmt.Printf("Pruned layout %s\n", fs.Arg(0))
	return 0
}

func runReload(args []string) int {
	fs := flag.NewFlagSet("reload", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: persistwin reload")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Ask the running daemon to reload its configuration.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}

	client := ipc.NewClient()
	if err := client.Reload(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Println("Reload requested")
	return 0
}

func runDaemon() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	log.Printf("Configuration loaded (debounce: %s, autosnap: %s)",
		cfg.Debounce(), cfg.AutosnapInterval())

	if cfg.Display != "" {
		os.Setenv("DISPLAY", cfg.Display)
	}
	if cfg.XAuthority != "" {
		os.Setenv("XAUTHORITY", cfg.XAuthority)
	}

	// Single-instance guard
	pidPath, err := runtimepath.PIDFilePath()
	if err != nil {
		log.Fatalf("Failed to resolve pid file path: %v", err)
	}
	pidFile, err := daemon.AcquirePIDFile(pidPath)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer pidFile.Release()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))

	// Open the layout store
	layouts, err := store.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to open layout store: %v", err)
	}
	defer layouts.Close()

	// Connect to the X server
	conn, err := x11.NewConnection()
	if err != nil {
		log.Fatalf("Failed to connect to display: %v", err)
	}
	defer conn.Close()

	if err := conn.SubscribeChanges(); err != nil {
		log.Fatalf("Failed to subscribe to display changes: %v", err)
	}

	log.Println("persistwin daemon started successfully")

	tracked := x11.NewTrackedWindows(conn, x11.EnumerateOptions{
		ExcludeClasses:         cfg.ExcludeClasses,
		ExcludeTitleSubstrings: cfg.ExcludeTitleSubstrings,
	})
	engine := restore.NewEngine(conn, logger)

	mon := monitor.New(conn, tracked, layouts, engine, monitor.Config{
		Debounce: cfg.Debounce(),
		Logger:   logger,
	})
	if err := mon.Init(); err != nil {
		log.Fatalf("Failed to observe initial topology: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go mon.Run(ctx)
	go conn.Watch(ctx, mon, logger)

	// Capture the startup layout so a crash before the first topology
	// change still leaves something to restore.
	if err := mon.SnapshotNow(ctx); err != nil {
		logger.Warn("startup snapshot failed", "error", err)
	}

	// Create config reload channel
	reloadChan := make(chan struct{}, 1)

	// Start IPC server
	ipcServer, err := ipc.NewServer(mon, layouts, reloadChan)
	if err != nil {
		log.Fatalf("Failed to create IPC server: %v", err)
	}
	if err := ipcServer.Start(); err != nil {
		log.Fatalf("Failed to start IPC server: %v", err)
	}
	defer ipcServer.Stop()

	// Periodic snapshot keeps the stored layout fresh between topology
	// changes.
	if cfg.AutosnapInterval() > 0 {
		autosnap := daemon.NewAutosnap(daemon.AutosnapConfig{
			Interval: cfg.AutosnapInterval(),
			Logger:   logger,
		}, mon)
		go autosnap.Run(ctx)
	}

	// Setup signal handlers
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)

	reloadConfig := func() {
		newCfg, err := config.Load()
		if err != nil {
			log.Printf("Config reload failed: %v", err)
			return
		}
		tracked.UpdateOptions(x11.EnumerateOptions{
			ExcludeClasses:         newCfg.ExcludeClasses,
			ExcludeTitleSubstrings: newCfg.ExcludeTitleSubstrings,
		})
		log.Println("Config reloaded successfully")
	}

	for {
		select {
		case sig := <-sigCh:
			switch sig {
			case syscall.SIGHUP:
				log.Println("Received SIGHUP, reloading config...")
				reloadConfig()
			case os.Interrupt, syscall.SIGTERM:
				log.Println("Shutting down persistwin daemon...")
				cancel()
				ipcServer.Stop()
				pidFile.Release()
				return
			}
		case <-reloadChan:
			reloadConfig()
		}
	}
}
