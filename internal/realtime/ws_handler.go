package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"

	"github.com/site-analyzer/portal/internal/domain"
	"github.com/site-analyzer/portal/internal/observability"
	"github.com/site-analyzer/portal/internal/security"
	"github.com/site-analyzer/portal/internal/service"
)

// Close codes surfaced to the viewer so it can distinguish "refresh and
// retry" (expired) from "go log in again" (everything else). These are part
// of the wire contract with the dashboard frontend.
const (
	CloseMissingToken websocket.StatusCode = 4002
	CloseTokenExpired websocket.StatusCode = 4001
	CloseUnauthorized websocket.StatusCode = 4003
)

const defaultWriteTimeout = 5 * time.Second

// AccessVerifier verifies a bearer access token. *service.TokenService
// satisfies it.
type AccessVerifier interface {
	VerifyAccess(token string) (*security.Claims, error)
}

// WSHandler upgrades live-feed connections. The access token travels as the
// sole negotiated sub-protocol value: browser WebSocket clients cannot set
// arbitrary headers on the upgrade request.
type WSHandler struct {
	logger       *slog.Logger
	tokens       AccessVerifier
	gateway      *Gateway
	writeTimeout time.Duration
}

func NewWSHandler(logger *slog.Logger, tokens AccessVerifier, gateway *Gateway) *WSHandler {
	return &WSHandler{
		logger:       logger,
		tokens:       tokens,
		gateway:      gateway,
		writeTimeout: defaultWriteTimeout,
	}
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := subprotocolToken(r)

	opts := &websocket.AcceptOptions{}
	if token != "" {
		// Echo the offered value back so browser clients complete the
		// negotiation.
		opts.Subprotocols = []string{token}
	}
	conn, err := websocket.Accept(w, r, opts)
	if err != nil {
		h.logger.Info("live feed upgrade failed", "error", err, "remote", r.RemoteAddr)
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "bye") }()

	if token == "" {
		observability.RecordWSHandshake(r.Context(), "missing_token")
		h.logger.Info("live feed rejected: no token presented", "remote", r.RemoteAddr)
		_ = conn.Close(CloseMissingToken, "token required")
		return
	}

	claims, err := h.tokens.VerifyAccess(token)
	if err != nil {
		if errors.Is(err, service.ErrExpiredToken) {
			observability.RecordWSHandshake(r.Context(), "expired")
			_ = conn.Close(CloseTokenExpired, "token expired")
			return
		}
		observability.RecordWSHandshake(r.Context(), "invalid")
		_ = conn.Close(CloseUnauthorized, "unauthorized")
		return
	}
	if claims.Role != domain.RoleAdmin {
		// Treated identically to a bad token: no role oracle.
		observability.RecordWSHandshake(r.Context(), "forbidden")
		_ = conn.Close(CloseUnauthorized, "unauthorized")
		return
	}

	observability.RecordWSHandshake(r.Context(), "admitted")
	h.logger.Info("live feed viewer admitted", "username", claims.Username)

	sub := h.gateway.Subscribe(claims.Username)
	defer h.gateway.Unsubscribe(sub)

	// Inbound frames are not part of the protocol; CloseRead surfaces peer
	// disconnects through ctx.
	ctx := conn.CloseRead(r.Context())

	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.Done():
			return
		case msg := <-sub.Messages():
			if err := h.writeMessage(ctx, conn, msg); err != nil {
				h.logger.Info("live feed write failed, dropping viewer",
					"username", claims.Username,
					"close_status", websocket.CloseStatus(err),
					"error", err,
				)
				return
			}
		}
	}
}

func (h *WSHandler) writeMessage(parent context.Context, conn *websocket.Conn, msg Message) error {
	ctx, cancel := context.WithTimeout(parent, h.writeTimeout)
	defer cancel()

	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, b)
}

// subprotocolToken extracts the first offered sub-protocol value.
func subprotocolToken(r *http.Request) string {
	raw := r.Header.Get("Sec-WebSocket-Protocol")
	if raw == "" {
		return ""
	}
	first := strings.Split(raw, ",")[0]
	return strings.TrimSpace(first)
}
