package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime/pprof"
	"strconv"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/vanderheijden86/archtrace/pkg/assistant"
	"github.com/vanderheijden86/archtrace/pkg/config"
	"github.com/vanderheijden86/archtrace/pkg/credential"
	"github.com/vanderheijden86/archtrace/pkg/debug"
	"github.com/vanderheijden86/archtrace/pkg/export"
	"github.com/vanderheijden86/archtrace/pkg/graph"
	"github.com/vanderheijden86/archtrace/pkg/layout"
	"github.com/vanderheijden86/archtrace/pkg/loader"
	"github.com/vanderheijden86/archtrace/pkg/metrics"
	"github.com/vanderheijden86/archtrace/pkg/model"
	"github.com/vanderheijden86/archtrace/pkg/trace"
	"github.com/vanderheijden86/archtrace/pkg/ui"
	"github.com/vanderheijden86/archtrace/pkg/version"
	"github.com/vanderheijden86/archtrace/pkg/viewer"
	"github.com/vanderheijden86/archtrace/pkg/watcher"
)

func main() {
	cpuProfile := flag.String("cpu-profile", "", "Write CPU profile to file")
	help := flag.Bool("help", false, "Show help")
	versionFlag := flag.Bool("version", false, "Show version")
	dataPath := flag.String("data", "", "Architecture file (YAML or JSON); default is the embedded airport data")
	selectID := flag.String("select", "", "System id to trace from")
	milestoneFlag := flag.String("milestone", "", "Milestone to show (1.0, 2.0, 3.0 or 4.0)")
	width := flag.Int("width", 0, "Viewport width in pixels for -robot-trace (default: base width)")
	exportPath := flag.String("export", "", "Write the diagram to an .svg, .png or .mmd file and exit")
	robotTrace := flag.Bool("robot-trace", false, "Print the trace of -select as JSON and exit")
	ask := flag.String("ask", "", "Ask the assistant one question and print the reply")
	askPresets := flag.Bool("ask-presets", false, "Ask every suggested question concurrently and print the replies")
	setKey := flag.Bool("set-key", false, "Store the Gemini API key (prompted, or read from stdin)")
	clearKey := flag.Bool("clear-key", false, "Remove the stored Gemini API key")
	showMetrics := flag.Bool("metrics", false, "Print timing metrics to stderr on exit")
	flag.Parse()

	// CPU profiling support
	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Could not create CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Could not start CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer pprof.StopCPUProfile()
	}

	if *help {
		fmt.Println("Usage: archtrace [options]")
		fmt.Println("\nAn architecture viewer that traces data flow between systems.")
		flag.PrintDefaults()
		os.Exit(0)
	}

	if *versionFlag {
		fmt.Printf("archtrace %s\n", version.String())
		os.Exit(0)
	}

	if *showMetrics {
		defer metrics.Report(os.Stderr)
	}

	creds := credential.WithEnv(credential.NewFileStore(credential.DefaultDir()))

	if *clearKey {
		if err := creds.Remove(); err != nil {
			fmt.Fprintf(os.Stderr, "Error removing API key: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("API key removed")
		os.Exit(0)
	}

	if *setKey {
		key, err := promptKey(os.Stdin)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if err := creds.Set(key); err != nil {
			fmt.Fprintf(os.Stderr, "Error saving API key: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("API key saved (%s)\n", credential.Mask(key))
		os.Exit(0)
	}

	appCfg, cfgErr := config.Load()
	if cfgErr != nil {
		// Non-fatal: continue without config
		fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", cfgErr)
		appCfg = config.DefaultConfig()
	}

	milestone := appCfg.Milestone()
	if *milestoneFlag != "" {
		m, err := model.ParseMilestone(*milestoneFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(2)
		}
		milestone = m
	}

	path := loader.ResolvePath(*dataPath, appCfg.Data.Path)
	arch, err := loader.Load(path, loader.ParseOptions{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading architecture: %v\n", err)
		os.Exit(1)
	}

	if *selectID != "" {
		if err := checkSelection(graph.New(arch), *selectID); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(2)
		}
	}

	switch {
	case *robotTrace:
		report := traceReport(arch, appCfg.TraceOptions(), *selectID, milestone, float64(*width))
		if err := export.WriteTraceJSON(os.Stdout, report); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing trace: %v\n", err)
			os.Exit(1)
		}
		return

	case *exportPath != "":
		err := export.SaveDiagram(export.DiagramOptions{
			Path:      *exportPath,
			Arch:      arch,
			Selected:  *selectID,
			Milestone: milestone,
			Trace:     appCfg.TraceOptions(),
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error exporting diagram: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Diagram written to %s\n", *exportPath)
		return

	case *ask != "" || *askPresets:
		if !creds.Has() {
			fmt.Fprintln(os.Stderr, "No Gemini API key stored. Run 'archtrace -set-key' first.")
			os.Exit(1)
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		client := newAssistant(creds, appCfg, arch)
		var questions []string
		if *ask != "" {
			questions = []string{*ask}
		} else {
			questions = suggestionQueries(graph.New(arch), *selectID)
		}
		if err := runAsk(ctx, os.Stdout, client, questions, appCfg.Assistant.BatchConcurrency); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if !term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Fprintln(os.Stderr, "archtrace needs a terminal; use -robot-trace or -export for scripted output.")
		os.Exit(2)
	}

	var w *watcher.Watcher
	if path != "" && appCfg.WatchEnabled() {
		w, err = watcher.New(path, watcher.WithOnError(func(err error) {
			debug.Log("watcher: %v", err)
		}))
		if err == nil {
			err = w.Start()
		}
		if err != nil {
			// Non-fatal: the r key still reloads by hand
			fmt.Fprintf(os.Stderr, "Warning: live reload disabled: %v\n", err)
			w = nil
		} else {
			defer w.Stop()
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	renderer := lipgloss.DefaultRenderer()
	ui.ApplyMode(renderer, appCfg.UI.Theme)
	theme := ui.DefaultTheme(renderer)

	cols, rows := terminalSize()
	m := ui.NewModel(ui.Options{
		Arch:        arch,
		DataPath:    path,
		Watcher:     w,
		Credentials: creds,
		Assistant:   newAssistant(creds, appCfg, arch),
		Config:      appCfg,
		Theme:       &theme,
		Selected:    *selectID,
		Milestone:   milestone,
		Context:     ctx,
		Width:       cols,
		Height:      rows,
	})

	if err := runTUIProgram(m); err != nil {
		fmt.Printf("Error running archtrace: %v\n", err)
		os.Exit(1)
	}
}

func runTUIProgram(m ui.Model) error {
	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithoutSignalHandler(),
	)

	runDone := make(chan struct{})
	defer close(runDone)

	// Graceful shutdown on SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-runDone:
			return
		case <-sigCh:
		}

		p.Quit()

		select {
		case <-runDone:
			return
		case <-sigCh:
		case <-time.After(5 * time.Second):
		}

		p.Kill()
	}()

	// Optional auto-quit for automated tests: set ARCHTRACE_TUI_AUTOCLOSE_MS.
	if v := os.Getenv("ARCHTRACE_TUI_AUTOCLOSE_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			go func() {
				timer := time.NewTimer(time.Duration(ms) * time.Millisecond)
				defer timer.Stop()

				select {
				case <-runDone:
					return
				case <-timer.C:
				}

				p.Quit()

				select {
				case <-runDone:
					return
				case <-time.After(2 * time.Second):
				}

				p.Kill()
			}()
		}
	}

	_, err := p.Run()
	if err != nil && (errors.Is(err, tea.ErrProgramKilled) || errors.Is(err, tea.ErrInterrupted)) {
		return nil
	}
	return err
}

// terminalSize falls back to 120x40 when stdout is not a terminal.
func terminalSize() (int, int) {
	cols, rows, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || cols <= 0 || rows <= 0 {
		return 120, 40
	}
	return cols, rows
}

func newAssistant(creds credential.Provider, cfg config.Config, arch model.Architecture) *assistant.Client {
	opts := []assistant.Option{
		assistant.WithEndpoint(cfg.Assistant.Endpoint),
		assistant.WithModel(cfg.Assistant.Model),
		assistant.WithTimeout(cfg.Assistant.Timeout),
	}
	if cfg.Assistant.ArchitectureContext {
		opts = append(opts, assistant.WithSystemPrompt(assistant.ArchitecturePrompt(arch)))
	}
	return assistant.NewClient(creds, opts...)
}

func checkSelection(g *graph.Graph, id string) error {
	if !g.Has(id) {
		return fmt.Errorf("unknown system %q", id)
	}
	return nil
}

// traceReport traces selected over the full-size diagram layout. A
// non-positive width keeps the base scale.
func traceReport(arch model.Architecture, opts trace.Options, selected string, milestone model.Milestone, width float64) export.TraceReport {
	g := graph.New(arch)
	lay := layout.Compute(arch, layout.DefaultConfig(), nil)

	state := viewer.New(g, opts, nil)
	state.Mount(func(scale float64) trace.Geometry {
		return lay.Geometry(scale, trace.Point{})
	})
	if width > 0 {
		state.SetViewportWidth(width)
	}
	if milestone.IsValid() {
		state.ToggleMilestone(milestone)
	} else {
		state.Select(selected)
	}
	state.Flush()

	snap := state.Snapshot()
	return export.BuildTraceReport(snap.Result, g, snap.Milestone)
}

// suggestionQueries lists the chat chips: the selected system's question
// first, then the presets.
func suggestionQueries(g *graph.Graph, selected string) []string {
	var node *model.Node
	if n, ok := g.Node(selected); ok {
		node = &n
	}
	suggestions := assistant.Suggestions(node)
	queries := make([]string, 0, len(suggestions))
	for _, s := range suggestions {
		queries = append(queries, s.Query)
	}
	return queries
}

func runAsk(ctx context.Context, w io.Writer, r assistant.Responder, questions []string, limit int) error {
	if len(questions) == 1 {
		_, err := fmt.Fprintln(w, r.GenerateResponse(ctx, questions[0]))
		return err
	}

	answers, err := assistant.AskAll(ctx, r, questions, limit)
	if err != nil {
		return fmt.Errorf("asking assistant: %w", err)
	}
	for i, a := range answers {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "## %s\n\n%s\n", a.Question, a.Reply)
	}
	return nil
}

// promptKey asks for the key with a masked form on a terminal, or reads
// the first line of in otherwise.
func promptKey(in *os.File) (string, error) {
	if term.IsTerminal(int(in.Fd())) {
		var key string
		form := huh.NewForm(huh.NewGroup(
			huh.NewInput().
				Title("Gemini API key").
				EchoMode(huh.EchoModePassword).
				Validate(credential.Validate).
				Value(&key),
		)).WithTheme(huh.ThemeDracula())
		if err := form.Run(); err != nil {
			return "", fmt.Errorf("reading API key: %w", err)
		}
		return strings.TrimSpace(key), nil
	}
	return readKey(in)
}

func readKey(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading API key: %w", err)
	}
	key := strings.TrimSpace(line)
	if err := credential.Validate(key); err != nil {
		return "", err
	}
	return key, nil
}
