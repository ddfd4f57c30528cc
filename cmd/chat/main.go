// Command chat runs a single conversation session in the terminal. Lines
// typed at the prompt are sent as utterances; lines starting with a slash
// are commands (see /help).
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"events-assistant/internal/config"
	"events-assistant/internal/domain"
	"events-assistant/internal/integrations/dialogflow"
	"events-assistant/internal/integrations/paramstore"
	"events-assistant/internal/integrations/places"
	"events-assistant/internal/observability/metrics"
	"events-assistant/internal/repository"
	"events-assistant/internal/usecase"
)

const localUser = "local"

var errPlacesDisabled = errors.New("place lookup is not configured")

// noPlaces stands in when PLACES_API_KEY is unset; every lookup finds nothing.
type noPlaces struct{}

func (noPlaces) Search(context.Context, string) ([]domain.Location, error) {
	return nil, errPlacesDisabled
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	session, m, err := build(ctx, cfg)
	if err != nil {
		slog.Error("failed to start", "err", err)
		os.Exit(1)
	}

	if cfg.MetricsAddr != "" {
		srv := metrics.NewServer(cfg.MetricsAddr, m)
		srv.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	out := &console{w: os.Stdout}
	defer session.Transcript().Subscribe(out.transcript)()
	defer session.Suggestions().Subscribe(out.suggestions)()
	defer session.PrimaryLoading().Subscribe(out.loading)()

	session.Initialize(ctx)
	run(ctx, session, os.Stdin, out)
}

func build(ctx context.Context, cfg config.Config) (*usecase.Session, *metrics.Metrics, error) {
	var (
		tokens    dialogflow.TokenSource
		favorites usecase.FavoritesStore = repository.NewMemoryFavorites()
	)

	needAWS := cfg.NLUToken == "" || cfg.FavoritesTable != ""
	if needAWS {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("load AWS config: %w", err)
		}
		if cfg.NLUToken == "" {
			if cfg.ParamPrefix == "" {
				return nil, nil, errors.New("either NLU_TOKEN or PARAM_PREFIX must be set")
			}
			ssmClient, err := paramstore.New(awsssm.NewFromConfig(awsCfg))
			if err != nil {
				return nil, nil, err
			}
			ts, err := paramstore.NewTokenSource(ssmClient, cfg.ParamPrefix, "nlu")
			if err != nil {
				return nil, nil, err
			}
			slog.Info("NLU token read from SSM", "parameter", ts.Name())
			tokens = ts
		}
		if cfg.FavoritesTable != "" {
			repo, err := repository.New(awsdynamodb.NewFromConfig(awsCfg), cfg.FavoritesTable)
			if err != nil {
				return nil, nil, err
			}
			favorites = repo
		}
	}
	if tokens == nil {
		tokens = paramstore.StaticToken(cfg.NLUToken)
	}

	nluClient, err := dialogflow.NewClient(tokens,
		dialogflow.WithEndpoint(cfg.NLUEndpoint),
		dialogflow.WithHTTPClient(&http.Client{Timeout: cfg.NLUTimeout}),
	)
	if err != nil {
		return nil, nil, err
	}

	var lookup usecase.PlaceLookup = noPlaces{}
	if cfg.PlacesAPIKey != "" {
		pc, err := places.NewClient(cfg.PlacesAPIKey,
			places.WithBaseURL(cfg.PlacesBaseURL),
			places.WithRateLimit(cfg.PlacesRatePerSec),
		)
		if err != nil {
			return nil, nil, err
		}
		lookup = pc
	}

	m := metrics.New()
	session, err := usecase.NewSession(usecase.Config{
		Lang:          cfg.NLULang,
		Timezone:      cfg.NLUTimezone,
		SessionID:     cfg.NLUSessionID,
		PageSize:      cfg.PageSize,
		FailureNotice: cfg.FailureNotice,
	}, nluClient, lookup, favorites, usecase.WithMetrics(m))
	if err != nil {
		return nil, nil, err
	}
	return session, m, nil
}

func run(ctx context.Context, s *usecase.Session, in io.Reader, out *console) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if quit := handleLine(ctx, s, line, out); quit {
				return
			}
		}
	}
}

func handleLine(ctx context.Context, s *usecase.Session, line string, out *console) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	if !strings.HasPrefix(line, "/") {
		if err := s.Send(ctx, line); err != nil {
			out.errorf("%v", err)
		}
		return false
	}

	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	switch cmd {
	case "/quit", "/exit":
		return true
	case "/help":
		out.printf("commands: /select <category>, /next, /prev, /show <n>, /save, /unsave, /favorites, /quit\n")
	case "/select":
		if err := s.SelectCategory(ctx, arg); err != nil {
			out.errorf("%v", err)
		}
	case "/next":
		if !s.NextLocations() {
			out.printf("(no more results)\n")
		}
	case "/prev":
		if !s.PreviousLocations() {
			out.printf("(already at the first page)\n")
		}
	case "/show":
		n, err := strconv.Atoi(arg)
		if err != nil {
			out.errorf("usage: /show <n>")
			return false
		}
		if _, err := s.ShowLocation(n - 1); err != nil {
			out.errorf("%v", err)
		}
	case "/save", "/unsave":
		loc, ok := s.CurrentLocation()
		if !ok {
			out.errorf("open a location with /show first")
			return false
		}
		var err error
		if cmd == "/save" {
			err = s.SaveFavorite(ctx, localUser, loc)
		} else {
			err = s.RemoveFavorite(ctx, localUser, loc.PlaceID)
		}
		if err != nil {
			out.errorf("%v", err)
			return false
		}
		out.printf("(%s %s)\n", strings.TrimPrefix(cmd, "/")+"d", loc.Name)
	case "/favorites":
		if _, err := s.ShowFavorites(ctx, localUser); err != nil {
			out.errorf("%v", err)
		}
	default:
		out.errorf("unknown command %s", cmd)
	}
	return false
}

// console renders observed session state. Callbacks run on the goroutine
// that changed the state, one at a time per observable.
type console struct {
	w       io.Writer
	printed int
}

func (c *console) transcript(entries []domain.Entry) {
	for _, e := range entries[min(c.printed, len(entries)):] {
		c.entry(e)
	}
	c.printed = len(entries)
}

func (c *console) entry(e domain.Entry) {
	who := "you"
	if e.IsBot {
		who = "bot"
	}
	if e.Title != "" {
		fmt.Fprintf(c.w, "%s> [%s]\n", who, e.Title)
	}
	if e.Text != "" {
		fmt.Fprintf(c.w, "%s> %s\n", who, e.Text)
	}
	for i, opt := range e.SelectionList {
		fmt.Fprintf(c.w, "   (%d) %s\n", i+1, opt)
	}
	for i, loc := range e.LocationList {
		fmt.Fprintf(c.w, "   %d. %s, %s\n", i+1, loc.Name, loc.Address)
	}
	if d := e.LocationDetail; d != nil {
		fmt.Fprintf(c.w, "   %.5f,%.5f rating %.1f\n", d.Lat, d.Lng, d.Rating)
	}
}

func (c *console) suggestions(items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(c.w, "   suggestions: %s\n", strings.Join(items, " | "))
}

func (c *console) loading(busy bool) {
	if busy {
		fmt.Fprintln(c.w, "   ...")
	}
}

func (c *console) printf(format string, args ...any) {
	fmt.Fprintf(c.w, format, args...)
}

func (c *console) errorf(format string, args ...any) {
	fmt.Fprintf(c.w, "error: "+format+"\n", args...)
}
