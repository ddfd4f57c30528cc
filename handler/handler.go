package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"events-assistant/internal/usecase"
)

const correlationHeader = "X-Correlation-Id"

type ChatUseCase interface {
	Start(ctx context.Context) (usecase.Snapshot, error)
	Chat(ctx context.Context, in usecase.ChatInput) (usecase.Snapshot, error)
	Snapshot(ctx context.Context, sessionID string) (usecase.Snapshot, error)
	SelectCategory(ctx context.Context, in usecase.SelectInput) (usecase.Snapshot, error)
	PageLocations(ctx context.Context, in usecase.PageInput) (usecase.Snapshot, error)
}

type Handler struct {
	chat   ChatUseCase
	logger *slog.Logger
}

type chatRequest struct {
	SessionID string `json:"sessionId"`
	Utterance string `json:"utterance"`
}

type selectRequest struct {
	SessionID string `json:"sessionId"`
	Category  string `json:"category"`
}

type sessionRequest struct {
	SessionID string `json:"sessionId"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func NewHandler(chat ChatUseCase) (*Handler, error) {
	if chat == nil {
		return nil, errors.New("handler: chat use case must not be nil")
	}
	return &Handler{chat: chat, logger: slog.Default()}, nil
}

// Handle routes an API Gateway proxy event to the chat use case. Errors are
// always rendered into the response; the returned error is reserved for
// failures Lambda itself should see, and is currently always nil.
func (h *Handler) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	correlationID := headerValue(event.Headers, correlationHeader)
	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	logger := h.logger.With("correlationId", correlationID, "method", event.HTTPMethod, "path", event.Path)

	path := strings.TrimSuffix(event.Path, "/")
	var (
		snap usecase.Snapshot
		err  error
	)
	switch {
	case path == "/chat/start" && event.HTTPMethod == http.MethodPost:
		snap, err = h.chat.Start(ctx)

	case path == "/chat" && event.HTTPMethod == http.MethodPost:
		var req chatRequest
		if err = decode(event.Body, &req); err == nil {
			snap, err = h.chat.Chat(ctx, usecase.ChatInput{SessionID: req.SessionID, Utterance: req.Utterance})
		}

	case path == "/chat" && event.HTTPMethod == http.MethodGet:
		snap, err = h.chat.Snapshot(ctx, event.QueryStringParameters["sessionId"])

	case path == "/chat/select" && event.HTTPMethod == http.MethodPost:
		var req selectRequest
		if err = decode(event.Body, &req); err == nil {
			snap, err = h.chat.SelectCategory(ctx, usecase.SelectInput{SessionID: req.SessionID, Category: req.Category})
		}

	case (path == "/chat/locations/next" || path == "/chat/locations/previous") && event.HTTPMethod == http.MethodPost:
		var req sessionRequest
		if err = decode(event.Body, &req); err == nil {
			snap, err = h.chat.PageLocations(ctx, usecase.PageInput{
				SessionID: req.SessionID,
				Forward:   strings.HasSuffix(path, "/next"),
			})
		}

	case knownPath(path):
		return respond(http.StatusMethodNotAllowed, correlationID, errorResponse{Error: "METHOD_NOT_ALLOWED"}), nil

	default:
		return respond(http.StatusNotFound, correlationID, errorResponse{Error: "ROUTE_NOT_FOUND"}), nil
	}

	if err != nil {
		status, code := classify(err)
		if status >= http.StatusInternalServerError {
			logger.Error("request failed", "status", status, "err", err)
		} else {
			logger.Warn("request rejected", "status", status, "err", err)
		}
		return respond(status, correlationID, errorResponse{Error: code}), nil
	}

	logger.Info("request served", "sessionId", snap.SessionID, "entries", len(snap.Transcript))
	return respond(http.StatusOK, correlationID, snap), nil
}

func knownPath(path string) bool {
	switch path {
	case "/chat", "/chat/start", "/chat/select", "/chat/locations/next", "/chat/locations/previous":
		return true
	}
	return false
}

func decode(body string, v any) error {
	if err := json.Unmarshal([]byte(body), v); err != nil {
		return &usecase.Error{Code: usecase.ErrorInvalidInput, Reason: "invalid_body", Err: err}
	}
	return nil
}

func classify(err error) (int, string) {
	var ucErr *usecase.Error
	if !errors.As(err, &ucErr) {
		return http.StatusInternalServerError, string(usecase.ErrorInternal)
	}
	switch ucErr.Code {
	case usecase.ErrorInvalidInput:
		return http.StatusBadRequest, string(ucErr.Code)
	case usecase.ErrorNotFound:
		return http.StatusNotFound, string(ucErr.Code)
	case usecase.ErrorUpstream:
		return http.StatusBadGateway, string(ucErr.Code)
	default:
		return http.StatusInternalServerError, string(usecase.ErrorInternal)
	}
}

func headerValue(headers map[string]string, name string) string {
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func respond(status int, correlationID string, body any) events.APIGatewayProxyResponse {
	raw, err := json.Marshal(body)
	if err != nil {
		status = http.StatusInternalServerError
		raw = []byte(`{"error":"INTERNAL_ERROR"}`)
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers: map[string]string{
			"Content-Type":    "application/json",
			correlationHeader: correlationID,
		},
		Body: string(raw),
	}
}
