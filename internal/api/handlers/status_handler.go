package handlers

import (
	"net/http"
	"time"

	"github.com/danghamo/posture/internal/api/jsonrpcx"
	"github.com/danghamo/posture/internal/app/pipeline"
)

// PipelineStats reports pipeline throughput
type PipelineStats interface {
	Stats() pipeline.Stats
}

// IngressStats reports frame admission counters
type IngressStats interface {
	Stats() pipeline.IngressStats
}

// ClientCounter reports connected stream clients
type ClientCounter interface {
	GetClientCount() int
}

// StatusHandler serves the current pipeline state
type StatusHandler struct {
	pipeline PipelineStats
	ingress  IngressStats
	clients  ClientCounter
	started  time.Time
}

// NewStatusHandler creates a new status handler. ingress and clients may be nil.
func NewStatusHandler(p PipelineStats, ingress IngressStats, clients ClientCounter) *StatusHandler {
	return &StatusHandler{
		pipeline: p,
		ingress:  ingress,
		clients:  clients,
		started:  time.Now(),
	}
}

// StatusResponse represents the pipeline status
type StatusResponse struct {
	Uptime     string                `json:"uptime"`
	Pipeline   pipeline.Stats        `json:"pipeline"`
	Ingress    pipeline.IngressStats `json:"ingress"`
	SSEClients int                   `json:"sse_clients"`
}

// HandleStatus handles GET /api/v1/status and the JSON-RPC form POST /api/v1/status
func (h *StatusHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	var id any
	switch r.Method {
	case http.MethodGet:
	case http.MethodPost:
		req, err := jsonrpcx.ParseRequest(r)
		if err != nil {
			jsonrpcx.SendError(w, nil, jsonrpcx.ParseError, "Invalid JSON-RPC request")
			return
		}
		id = req.ID
	default:
		jsonrpcx.SendError(w, nil, jsonrpcx.MethodNotFound, "Method not allowed")
		return
	}

	jsonrpcx.Success(w, id, h.Status())
}

// Status assembles the current status snapshot
func (h *StatusHandler) Status() StatusResponse {
	resp := StatusResponse{
		Uptime:   time.Since(h.started).Truncate(time.Second).String(),
		Pipeline: h.pipeline.Stats(),
	}
	if h.ingress != nil {
		resp.Ingress = h.ingress.Stats()
	}
	if h.clients != nil {
		resp.SSEClients = h.clients.GetClientCount()
	}
	return resp
}
