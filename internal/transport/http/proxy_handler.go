package http

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
)

// ContentGenerator is the upstream model client behind the proxy.
type ContentGenerator interface {
	HasKey() bool
	GenerateContent(ctx context.Context, contents, config json.RawMessage) (string, error)
}

// ProxyHandler serves POST /api/generate so the upstream API key never leaves
// the server.
type ProxyHandler struct {
	upstream ContentGenerator
}

func NewProxyHandler(upstream ContentGenerator) *ProxyHandler {
	return &ProxyHandler{upstream: upstream}
}

type generateBody struct {
	Contents json.RawMessage `json:"contents"`
	Config   json.RawMessage `json:"config"`
}

type proxyResponse struct {
	Text  string `json:"text,omitempty"`
	Error string `json:"error,omitempty"`
}

func (h *ProxyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, proxyResponse{Error: "Method Not Allowed"})
		return
	}
	if h.upstream == nil || !h.upstream.HasKey() {
		writeJSON(w, http.StatusInternalServerError, proxyResponse{Error: "مفتاح API غير معرف على الخادم."})
		return
	}

	var body generateBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || isEmpty(body.Contents) || isEmpty(body.Config) {
		writeJSON(w, http.StatusBadRequest, proxyResponse{Error: `الطلب يجب أن يحتوي على "contents" و "config".`})
		return
	}

	text, err := h.upstream.GenerateContent(r.Context(), body.Contents, body.Config)
	if err != nil {
		log.Printf("generate proxy: %v", err)
		writeJSON(w, http.StatusInternalServerError, proxyResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, proxyResponse{Text: text})
}

func isEmpty(raw json.RawMessage) bool {
	s := string(raw)
	return s == "" || s == "null" || s == `""`
}
