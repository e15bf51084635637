package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/velvetpaws/groomhub/internal/notify/sms"
)

// InboundSMSProcessor turns a customer reply into the response text to send
// back.
type InboundSMSProcessor interface {
	HandleInboundSMS(ctx context.Context, from, body string) (string, error)
}

// TwilioHandler receives inbound SMS webhooks. Requests must carry a valid
// X-Twilio-Signature computed over the public callback URL and the form
// parameters.
type TwilioHandler struct {
	processor InboundSMSProcessor
	logger    *slog.Logger
	authToken string
	// PublicURL is the externally visible webhook URL Twilio signed against,
	// which can differ from r.URL behind a proxy.
	publicURL string
}

func NewTwilioHandler(processor InboundSMSProcessor, logger *slog.Logger, authToken, publicURL string) *TwilioHandler {
	return &TwilioHandler{
		processor: processor,
		logger:    logger,
		authToken: authToken,
		publicURL: publicURL,
	}
}

// Inbound answers POST /webhooks/twilio/incoming with a plain-text reply body.
func (h *TwilioHandler) Inbound(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid form body")
		return
	}

	if h.authToken != "" {
		sig := r.Header.Get("X-Twilio-Signature")
		if !sms.ValidateSignature(h.authToken, h.callbackURL(r), r.PostForm, sig) {
			h.logger.Warn("rejected inbound sms with bad signature")
			writeError(w, http.StatusForbidden, codeForbidden, "invalid signature")
			return
		}
	}

	from := strings.TrimSpace(r.PostForm.Get("From"))
	body := r.PostForm.Get("Body")
	if from == "" {
		writeError(w, http.StatusBadRequest, codeBadRequest, "missing From")
		return
	}

	reply, err := h.processor.HandleInboundSMS(r.Context(), from, body)
	if err != nil {
		h.logger.Error("inbound sms handling failed", "err", err)
		writeInternalError(w)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(reply))
}

func (h *TwilioHandler) callbackURL(r *http.Request) string {
	if h.publicURL != "" {
		return h.publicURL
	}
	scheme := "https"
	if r.TLS == nil {
		scheme = "http"
	}
	return scheme + "://" + r.Host + r.URL.RequestURI()
}
