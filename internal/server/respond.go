package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/hyperjump/ragpipe/internal/apperr"
)

type errorResponse struct {
	Error     string            `json:"error"`
	Stage     string            `json:"stage,omitempty"`
	Kind      string            `json:"kind,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
	Committed *int              `json:"committed,omitempty"`
}

// statusFor maps an error kind to an HTTP status.
func statusFor(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindInvalidArgument, apperr.KindTokenLimitExceeded, apperr.KindDimensionMismatch:
		return http.StatusBadRequest
	case apperr.KindCollectionNotFound, apperr.KindModelNotFound, apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindNotConnected:
		return http.StatusServiceUnavailable
	case apperr.KindProvider:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, errorResponse{Error: message})
}

// respondErr reports a pipeline error with its stage and kind.
func (s *Server) respondErr(w http.ResponseWriter, r *http.Request, err error) {
	s.respondErrWith(w, r, err, errorResponse{})
}

func (s *Server) respondErrWith(w http.ResponseWriter, r *http.Request, err error, resp errorResponse) {
	status := statusFor(err)
	fields := []zap.Field{zap.String("path", r.URL.Path), zap.Int("status", status), zap.Error(err)}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", fields...)
	} else {
		s.logger.Debug("request rejected", fields...)
	}
	resp.Error = err.Error()
	resp.Stage = string(apperr.StageOf(err))
	resp.Kind = string(apperr.KindOf(err))
	s.respondJSON(w, status, resp)
}

// decode reads a JSON body into dst and validates it. It writes the error
// response itself and reports whether the handler may continue.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return false
		}
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		s.respondJSON(w, http.StatusBadRequest, errorResponse{
			Error:  "validation failed",
			Kind:   string(apperr.KindInvalidArgument),
			Fields: fields,
		})
		return false
	}
	return true
}
