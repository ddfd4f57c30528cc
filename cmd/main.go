package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"events-assistant/handler"
	appconfig "events-assistant/internal/config"
	"events-assistant/internal/integrations/dialogflow"
	"events-assistant/internal/integrations/paramstore"
	"events-assistant/internal/integrations/places"
	"events-assistant/internal/repository"
	"events-assistant/internal/usecase"
)

const maxSessions = 1000

func main() {
	ctx := context.Background()

	// ---- Configuration (read only here) ----
	appCfg := appconfig.Load()
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: appCfg.SlogLevel()})))
	favoritesTable := mustValue("FAVORITES_TABLE", appCfg.FavoritesTable)
	placesKey := mustValue("PLACES_API_KEY", appCfg.PlacesAPIKey)

	// ---- AWS SDK config ----
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		slog.Error("failed to load AWS config", "err", err)
		os.Exit(1)
	}

	// ---- Clients ----
	var tokens dialogflow.TokenSource
	if appCfg.NLUToken != "" {
		tokens = paramstore.StaticToken(appCfg.NLUToken)
	} else {
		ssmClient, err := paramstore.New(awsssm.NewFromConfig(cfg))
		if err != nil {
			slog.Error("failed to create SSM client", "err", err)
			os.Exit(1)
		}
		ts, err := paramstore.NewTokenSource(ssmClient, mustValue("PARAM_PREFIX", appCfg.ParamPrefix), "nlu")
		if err != nil {
			slog.Error("failed to create token source", "err", err)
			os.Exit(1)
		}
		slog.Info("NLU token read from SSM", "parameter", ts.Name())
		tokens = ts
	}

	nluClient, err := dialogflow.NewClient(tokens,
		dialogflow.WithEndpoint(appCfg.NLUEndpoint),
		dialogflow.WithHTTPClient(httpClient(appCfg.NLUTimeout)),
	)
	if err != nil {
		slog.Error("failed to create NLU client", "err", err)
		os.Exit(1)
	}

	placesClient, err := places.NewClient(placesKey,
		places.WithBaseURL(appCfg.PlacesBaseURL),
		places.WithRateLimit(appCfg.PlacesRatePerSec),
	)
	if err != nil {
		slog.Error("failed to create places client", "err", err)
		os.Exit(1)
	}

	favorites, err := repository.New(awsdynamodb.NewFromConfig(cfg), favoritesTable)
	if err != nil {
		slog.Error("failed to create favorites repository", "err", err)
		os.Exit(1)
	}

	// ---- Handler ----
	// No registry is passed: a Lambda has no scrape endpoint, so sessions keep
	// their private default collectors.
	sessionCfg := usecase.Config{
		Lang:          appCfg.NLULang,
		Timezone:      appCfg.NLUTimezone,
		SessionID:     appCfg.NLUSessionID,
		PageSize:      appCfg.PageSize,
		FailureNotice: appCfg.FailureNotice,
	}
	factory := func() (*usecase.Session, error) {
		return usecase.NewSession(sessionCfg, nluClient, placesClient, favorites)
	}

	chatService, err := usecase.NewChatService(factory, maxSessions, nil)
	if err != nil {
		slog.Error("failed to create chat service", "err", err)
		os.Exit(1)
	}

	h, err := handler.NewHandler(chatService)
	if err != nil {
		slog.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	lambda.Start(h.Handle)
}

func mustValue(key, v string) string {
	if v == "" {
		slog.Error("required environment variable is not set", "key", key)
		os.Exit(1)
	}
	return v
}

func httpClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}
