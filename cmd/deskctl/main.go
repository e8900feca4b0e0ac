package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"

	"github.com/h1v3-io/inbox/internal/config"
	"github.com/h1v3-io/inbox/internal/conversation"
	"github.com/h1v3-io/inbox/internal/desk"
	"github.com/h1v3-io/inbox/internal/logbuf"
	"github.com/h1v3-io/inbox/internal/remote"
	"github.com/h1v3-io/inbox/internal/scheduler"
	"github.com/h1v3-io/inbox/internal/tui"
	"github.com/h1v3-io/inbox/internal/view"
	"github.com/h1v3-io/inbox/pkg/protocol"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(0)
	}

	switch os.Args[1] {
	case "health":
		cmdHealth(os.Args[2:])
	case "tickets":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "usage: deskctl tickets <list|show>")
			os.Exit(1)
		}
		switch os.Args[2] {
		case "list":
			cmdTicketsList(os.Args[3:])
		case "show":
			cmdTicketsShow(os.Args[3:])
		default:
			fmt.Fprintf(os.Stderr, "unknown tickets subcommand: %s\n", os.Args[2])
			os.Exit(1)
		}
	case "reply":
		cmdReply(os.Args[2:])
	case "status":
		cmdStatus(os.Args[2:])
	case "inbox":
		cmdInbox(os.Args[2:])
	case "config":
		if len(os.Args) < 4 || os.Args[2] != "validate" {
			fmt.Fprintln(os.Stderr, "usage: deskctl config validate <path>")
			os.Exit(1)
		}
		cmdConfigValidate(os.Args[3])
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// clientFlags are shared by every command that talks to the service.
type clientFlags struct {
	config  *string
	baseURL *string
	apiKey  *string
}

func addClientFlags(fs *pflag.FlagSet) clientFlags {
	return clientFlags{
		config:  fs.StringP("config", "c", os.Getenv("INBOX_CONFIG"), "Path to config file"),
		baseURL: fs.String("base-url", "", "Ticket service base URL (overrides config)"),
		apiKey:  fs.String("api-key", "", "API key (overrides config)"),
	}
}

func (f clientFlags) load() *config.Config {
	var cfg *config.Config
	var err error
	if *f.config != "" {
		cfg, err = config.Load(*f.config)
	} else {
		cfg, err = config.LoadFromEnv()
	}
	if err != nil {
		fatal(err)
	}
	if *f.baseURL != "" {
		cfg.Client.BaseURL = *f.baseURL
	}
	if *f.apiKey != "" {
		cfg.Client.APIKey = *f.apiKey
	}
	return cfg
}

func newClient(cfg *config.Config, logger *slog.Logger) *remote.Client {
	return remote.New(
		remote.WithBaseURL(cfg.Client.BaseURL),
		remote.WithAPIKey(cfg.Client.APIKey),
		remote.WithHTTPClient(&http.Client{Timeout: cfg.Client.Timeout.Std()}),
		remote.WithUserAgent("deskctl"),
		remote.WithLogger(logger),
	)
}

// cliLogger only surfaces warnings; command output goes to stdout.
func cliLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

// --- API client commands ---

func cmdHealth(args []string) {
	fs := pflag.NewFlagSet("health", pflag.ExitOnError)
	cf := addClientFlags(fs)
	fs.Parse(args)

	cfg := cf.load()
	ctx, cancel := commandContext()
	defer cancel()
	if err := newClient(cfg, cliLogger()).Health(ctx); err != nil {
		fatal(err)
	}
	fmt.Printf("ok (%s)\n", cfg.Client.BaseURL)
}

func cmdTicketsList(args []string) {
	fs := pflag.NewFlagSet("tickets list", pflag.ExitOnError)
	cf := addClientFlags(fs)
	status := fs.StringP("status", "s", string(protocol.TicketOpen), "Status bucket (open|pending|closed)")
	search := fs.StringP("search", "q", "", "Match customer name or subject")
	page := fs.IntP("page", "p", 1, "Page number")
	pageSize := fs.Int("page-size", 0, "Tickets per page (10|20|50, default from config)")
	fs.Parse(args)

	cfg := cf.load()
	st, err := protocol.ParseStatus(*status)
	if err != nil {
		fatal(err)
	}
	size := cfg.Inbox.PageSize
	if *pageSize != 0 {
		if !view.ValidPageSize(*pageSize) {
			fatal(fmt.Errorf("page size must be one of %v", view.PageSizes))
		}
		size = *pageSize
	}

	ctx, cancel := commandContext()
	defer cancel()
	tickets, err := newClient(cfg, cliLogger()).ListTickets(ctx)
	if err != nil {
		fatal(err)
	}

	ls := view.NewListState(size)
	ls.SetStatus(st)
	ls.SetQuery(*search)
	p := view.Paginate(tickets, ls.Criteria())
	if !ls.GoTo(*page, p.TotalPages) {
		ls.Clamp(p.TotalPages)
	}
	printTicketPage(os.Stdout, protocol.CountStatuses(tickets), view.Paginate(tickets, ls.Criteria()), ls, time.Now())
}

func cmdTicketsShow(args []string) {
	fs := pflag.NewFlagSet("tickets show", pflag.ExitOnError)
	cf := addClientFlags(fs)
	fs.Parse(args)
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: deskctl tickets show <id>")
		os.Exit(1)
	}
	id := protocol.ID(fs.Arg(0))

	cfg := cf.load()
	grouping, err := groupingFromConfig(cfg)
	if err != nil {
		fatal(err)
	}
	ctx, cancel := commandContext()
	defer cancel()

	if err := showTicket(ctx, os.Stdout, newClient(cfg, cliLogger()), id, grouping); err != nil {
		fatal(err)
	}
}

// showTicket prints a ticket and its conversation. The ticket response
// already carries the messages, so this is a single request.
func showTicket(ctx context.Context, w io.Writer, client *remote.Client, id protocol.ID, grouping view.Grouping) error {
	t, err := client.GetTicket(ctx, id)
	if err != nil {
		return err
	}
	view.SortMessages(t.Messages)
	printConversation(w, *t, view.GroupMessages(t.Messages, grouping))
	return nil
}

func cmdReply(args []string) {
	fs := pflag.NewFlagSet("reply", pflag.ExitOnError)
	cf := addClientFlags(fs)
	fs.Parse(args)
	if fs.NArg() < 2 {
		fmt.Fprintln(os.Stderr, "usage: deskctl reply <id> <text>")
		os.Exit(1)
	}
	id := protocol.ID(fs.Arg(0))
	text := strings.TrimSpace(strings.Join(fs.Args()[1:], " "))
	if text == "" {
		fatal(desk.ErrEmptyMessage)
	}

	cfg := cf.load()
	ctx, cancel := commandContext()
	defer cancel()
	msg, err := newClient(cfg, cliLogger()).SendReply(ctx, id, text)
	if err != nil {
		fatal(err)
	}
	fmt.Printf("sent %s to ticket #%s\n", msg.ID, id)
}

func cmdStatus(args []string) {
	fs := pflag.NewFlagSet("status", pflag.ExitOnError)
	cf := addClientFlags(fs)
	fs.Parse(args)
	if fs.NArg() != 2 {
		fmt.Fprintln(os.Stderr, "usage: deskctl status <id> <open|pending|closed>")
		os.Exit(1)
	}
	st, err := protocol.ParseStatus(fs.Arg(1))
	if err != nil {
		fatal(err)
	}

	cfg := cf.load()
	ctx, cancel := commandContext()
	defer cancel()
	t, err := newClient(cfg, cliLogger()).UpdateStatus(ctx, protocol.ID(fs.Arg(0)), st)
	if err != nil {
		fatal(err)
	}
	fmt.Printf("ticket #%s is now %s\n", t.ID, t.Status)
}

func cmdInbox(args []string) {
	fs := pflag.NewFlagSet("inbox", pflag.ExitOnError)
	cf := addClientFlags(fs)
	logFile := fs.String("log-file", "", "Write logs to this file (default: discard)")
	verbose := fs.BoolP("verbose", "v", false, "Verbose logging")
	metricsAddr := fs.String("metrics-addr", "", "Serve Prometheus metrics on this address, e.g. 127.0.0.1:9464 (default: off)")
	fs.Parse(args)

	cfg := cf.load()
	grouping, err := groupingFromConfig(cfg)
	if err != nil {
		fatal(err)
	}

	// The terminal belongs to the TUI, so logs go to a file and warnings
	// are mirrored into the status line through the log buffer.
	var out io.Writer = io.Discard
	if *logFile != "" {
		f, err := os.OpenFile(*logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fatal(err)
		}
		defer f.Close()
		out = f
	}
	level := logbuf.ParseLevel(cfg.Desk.LogLevel)
	if *verbose {
		level = slog.LevelDebug
	}
	logBuf := logbuf.New(500)
	logger := slog.New(logbuf.NewHandler(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}), logBuf))

	d := desk.New(newClient(cfg, logger.With("component", "client")),
		desk.WithLogger(logger),
		desk.WithGrouping(grouping),
		desk.WithCacheOptions(conversation.WithFetchTimeout(cfg.Inbox.FetchTimeout.Std())),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *metricsAddr != "" {
		srv := newMetricsServer(*metricsAddr)
		go safeGo(logger, "metrics-server", func() {
			if err := serveMetrics(ctx, srv, logger); err != nil {
				logger.Error("metrics server failed", "error", err)
			}
		})
	}

	if cfg.Inbox.RefreshEnabled() {
		sched := scheduler.New(logger.With("component", "scheduler"))
		if err := sched.AddJob("refresh", cfg.Inbox.RefreshSchedule, d.Refresh); err != nil {
			fatal(err)
		}
		go safeGo(logger, "scheduler", func() { sched.Start(ctx) })
	}

	err = tui.Run(ctx, d, tui.WithPageSize(cfg.Inbox.PageSize), tui.WithLogBuffer(logBuf))
	if err != nil && !errors.Is(err, context.Canceled) {
		fatal(err)
	}
}

func cmdConfigValidate(path string) {
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("config is valid (service %s:%d, client %s, page size %d)\n",
		cfg.API.Host, cfg.API.Port, cfg.Client.BaseURL, cfg.Inbox.PageSize)
}

// --- Helpers ---

func groupingFromConfig(cfg *config.Config) (view.Grouping, error) {
	loc, err := cfg.Inbox.Grouping.Location()
	if err != nil {
		return view.Grouping{}, fmt.Errorf("grouping timezone: %w", err)
	}
	return view.Grouping{Layout: cfg.Inbox.Grouping.Layout, Location: loc}, nil
}

func newMetricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// serveMetrics blocks until ctx is cancelled.
func serveMetrics(ctx context.Context, srv *http.Server, logger *slog.Logger) error {
	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutCtx)
	}()

	logger.Info("metrics server starting", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}

func commandContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// safeGo runs fn with panic recovery.
func safeGo(logger *slog.Logger, name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("goroutine panicked", "name", name, "panic", fmt.Sprintf("%v", r))
		}
	}()
	fn()
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}

func printUsage() {
	fmt.Println("deskctl - support inbox CLI")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  health                     Check the ticket service")
	fmt.Println("  tickets list               List tickets (--status, --search, --page, --page-size)")
	fmt.Println("  tickets show <id>          Show a ticket and its conversation")
	fmt.Println("  reply <id> <text>          Send an agent reply")
	fmt.Println("  status <id> <status>       Move a ticket to open, pending or closed")
	fmt.Println("  inbox                      Open the interactive inbox (--metrics-addr to expose /metrics)")
	fmt.Println("  config validate <path>     Validate a config file")
	fmt.Println()
	fmt.Println("Every service command accepts --config, --base-url and --api-key.")
	fmt.Println()
	fmt.Println("Environment:")
	fmt.Println("  INBOX_CONFIG      Config file path")
	fmt.Println("  INBOX_BASE_URL    Ticket service URL (default: http://localhost:8080/api)")
	fmt.Println("  INBOX_API_KEY     API key for authentication")
}
