package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ZanzyTHEbar/sentiment-pipeline/senti/inference"
	"github.com/ZanzyTHEbar/sentiment-pipeline/senti/pipeline"
	"github.com/ZanzyTHEbar/sentiment-pipeline/senti/server/web"
)

const maxRequestBytes = 64 << 10

type response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

type predictRequest struct {
	Text string `json:"text"`
}

// StatusView is the JSON form of a pipeline status
type StatusView struct {
	pipeline.Status
	Message string `json:"message"`
}

func newStatusView(s pipeline.Status) StatusView {
	return StatusView{Status: s, Message: s.Message()}
}

func ok(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(response{Success: true, Data: data})
}

func fail(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(response{Success: false, Error: msg})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ok(w, newStatusView(s.pipeline.Status()))
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req predictRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		fail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res := s.pipeline.Predict(r.Context(), req.Text)
	switch {
	case res.OK():
		s.hub.Broadcast(Message{Type: TypePrediction, Data: res.Prediction})
		ok(w, res.Prediction)
	case errors.Is(res.Err, pipeline.ErrEmptyInput):
		fail(w, http.StatusBadRequest, res.Err.Error())
	case errors.Is(res.Err, pipeline.ErrNotReady), errors.Is(res.Err, inference.ErrModelNotReady):
		fail(w, http.StatusServiceUnavailable, res.Err.Error())
	default:
		fail(w, http.StatusInternalServerError, res.Err.Error())
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	s.hub.ServeWS(w, r, func() Message {
		return Message{Type: TypeStatus, Data: newStatusView(s.pipeline.Status())}
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	content, err := web.Files.ReadFile("index.html")
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(content)
}
