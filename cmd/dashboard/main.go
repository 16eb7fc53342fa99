package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/i474232898/weather-aqi-monitor/internal/config"
	"github.com/i474232898/weather-aqi-monitor/internal/dashboard"
	"github.com/i474232898/weather-aqi-monitor/internal/logging"
)

const usage = `commands:
  city <name>     set the city without searching
  search [city]   show current conditions and history (default: the current city)
  days <n>        history window in days (1, 3, 7 or 30); applies to the next search
  history         reload the history of the current city
  export [dir]    save the CSV export of the current city (default: current directory)
  show            redraw the dashboard
  help            show this help
  quit            exit`

func main() {
	city := flag.String("city", "", "search this city once, print the dashboard and exit")
	days := flag.Int("days", dashboard.DefaultDaysToShow, "history window in days (1, 3, 7 or 30)")
	exportDir := flag.String("export", "", "with -city, also save the CSV export into this directory")
	flag.Parse()

	cfg, err := config.LoadDashboard()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logg, err := logging.NewConsole(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = logg.Sync() }()

	client := dashboard.NewClient(cfg.APIBaseURL, &http.Client{Timeout: cfg.Timeout})
	ctrl := dashboard.NewController(client, logg)
	if err := ctrl.SetDaysToShow(*days); err != nil {
		log.Fatalf("invalid -days: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *city != "" {
		os.Exit(runOnce(ctx, ctrl, *city, *exportDir))
	}

	logg.Debug("dashboard ready", zap.String("api", cfg.APIBaseURL))
	repl(ctx, ctrl, os.Stdin, os.Stdout)
}

func runOnce(ctx context.Context, ctrl *dashboard.Controller, city, exportDir string) int {
	code := 0
	if err := ctrl.Search(ctx, city); err != nil {
		code = 1
	}
	if err := dashboard.Render(os.Stdout, ctrl.State()); err != nil {
		return 1
	}
	if code == 0 && exportDir != "" {
		path, err := saveExport(ctx, ctrl, ctrl.State().Query.City, exportDir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "export: %v\n", err)
			return 1
		}
		fmt.Printf("saved %s\n", path)
	}
	return code
}

func repl(ctx context.Context, ctrl *dashboard.Controller, in io.Reader, out io.Writer) {
	fmt.Fprintln(out, usage)

	// Scan in the background so an interrupt ends the loop without
	// waiting for the next line.
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		fmt.Fprint(out, "> ")
		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(out)
			return
		case l, ok := <-lines:
			if !ok {
				return
			}
			line = l
		}

		cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
		arg = strings.TrimSpace(arg)
		switch strings.ToLower(cmd) {
		case "":
		case "city", "c":
			ctrl.SetCity(arg)
		case "search", "s":
			if arg == "" {
				arg = ctrl.State().Query.City
			}
			// Failures are already part of the rendered state.
			_ = ctrl.Search(ctx, arg)
			render(out, ctrl)
		case "days", "d":
			n, err := strconv.Atoi(arg)
			if err == nil {
				err = ctrl.SetDaysToShow(n)
			}
			if err != nil {
				fmt.Fprintf(out, "days must be one of %v\n", dashboard.AllowedDays)
			}
		case "history", "h":
			st := ctrl.State()
			if err := ctrl.FetchHistory(ctx, st.Query.City, st.Query.DaysToShow); err != nil {
				fmt.Fprintln(out, "history unavailable")
			}
			render(out, ctrl)
		case "export", "e":
			dir := arg
			if dir == "" {
				dir = "."
			}
			path, err := saveExport(ctx, ctrl, ctrl.State().Query.City, dir)
			if err != nil {
				fmt.Fprintf(out, "export: %v\n", err)
				continue
			}
			fmt.Fprintf(out, "saved %s\n", path)
		case "show":
			render(out, ctrl)
		case "help", "?":
			fmt.Fprintln(out, usage)
		case "quit", "exit", "q":
			return
		default:
			fmt.Fprintf(out, "unknown command %q (try help)\n", cmd)
		}
	}
}

func render(out io.Writer, ctrl *dashboard.Controller) {
	if err := dashboard.Render(out, ctrl.State()); err != nil {
		fmt.Fprintf(out, "render: %v\n", err)
	}
}

func saveExport(ctx context.Context, ctrl *dashboard.Controller, city, dir string) (string, error) {
	if strings.TrimSpace(city) == "" {
		return "", errors.New("search for a city first")
	}
	exp, err := ctrl.ExportCSV(ctx, city)
	if err != nil {
		return "", err
	}
	defer exp.Body.Close()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, filepath.Base(exp.Filename))
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, exp.Body); err != nil {
		f.Close()
		return "", err
	}
	return path, f.Close()
}
