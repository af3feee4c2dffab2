package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/jonathan/monitoring-deck/internal/classify"
	"github.com/jonathan/monitoring-deck/internal/schemas"
	"github.com/jonathan/monitoring-deck/internal/thresholds"
	"github.com/jonathan/monitoring-deck/internal/types"
	schemafiles "github.com/jonathan/monitoring-deck/schemas"
)

// ThresholdsResponse is a resolved threshold config.
type ThresholdsResponse struct {
	MetricType string                 `json:"metric_type"`
	Thresholds *types.ThresholdConfig `json:"thresholds"`
	Source     thresholds.Source      `json:"source,omitempty"`
	Warnings   []string               `json:"warnings,omitempty"`
}

// ClassifyRequest asks for the band of one value, against either explicit
// thresholds or the resolved config of a metric type.
type ClassifyRequest struct {
	MetricType string                 `json:"metric_type" validate:"required_without=Thresholds"`
	Thresholds *types.ThresholdConfig `json:"thresholds"`
	Value      *float64               `json:"value" validate:"required"`
}

// ClassifyResponse is the band of a classified value.
type ClassifyResponse struct {
	Band       types.Band             `json:"band"`
	Thresholds *types.ThresholdConfig `json:"thresholds,omitempty"`
	Source     thresholds.Source      `json:"source,omitempty"`
}

func metricParam(r *http.Request) (string, error) {
	metric := r.PathValue("metric")
	if err := thresholds.ValidateMetricType(metric); err != nil {
		return "", &ErrValidation{Field: "metric", Message: err.Error()}
	}
	return metric, nil
}

func orderingWarnings(cfg *types.ThresholdConfig) []string {
	var mis *types.MisconfiguredError
	if errors.As(cfg.Validate(), &mis) {
		return mis.Violations
	}
	return nil
}

// handleGetThresholds returns the saved or default config of a metric type
func (s *Server) handleGetThresholds(w http.ResponseWriter, r *http.Request) {
	metric, err := metricParam(r)
	if err != nil {
		s.fail(w, err)
		return
	}

	cfg, source, err := thresholds.Resolve(r.Context(), s.cfg.Thresholds, metric)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, ThresholdsResponse{
		MetricType: metric,
		Thresholds: cfg,
		Source:     source,
		Warnings:   orderingWarnings(cfg),
	})
}

// handlePutThresholds saves the config of a metric type. Misordered cut
// points are saved as given and reported as warnings.
func (s *Server) handlePutThresholds(w http.ResponseWriter, r *http.Request) {
	metric, err := metricParam(r)
	if err != nil {
		s.fail(w, err)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		s.fail(w, &ErrValidation{Field: "body", Message: err.Error()})
		return
	}
	if err := schemas.Validate(schemafiles.Thresholds, body); err != nil {
		s.fail(w, &ErrValidation{Field: "thresholds", Message: err.Error()})
		return
	}
	var cfg types.ThresholdConfig
	if err := decodeBytes(body, &cfg); err != nil {
		s.fail(w, err)
		return
	}

	if err := s.cfg.Thresholds.Save(r.Context(), metric, cfg); err != nil {
		s.fail(w, err)
		return
	}
	warnings := orderingWarnings(&cfg)
	if len(warnings) > 0 {
		s.logger.Warn("saved misordered thresholds", zap.String("metric_type", metric), zap.Strings("violations", warnings))
	}
	s.jsonResponse(w, http.StatusOK, ThresholdsResponse{
		MetricType: metric,
		Thresholds: &cfg,
		Source:     thresholds.SourcePersisted,
		Warnings:   warnings,
	})
}

// handleClassify classifies one value. A metric type without any config
// classifies as UNCLASSIFIED.
func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	var req ClassifyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, err)
		return
	}
	if err := validator.New().Struct(req); err != nil {
		s.fail(w, &ErrValidation{Field: "request", Message: err.Error()})
		return
	}

	resp := ClassifyResponse{Thresholds: req.Thresholds}
	if resp.Thresholds == nil {
		if err := thresholds.ValidateMetricType(req.MetricType); err != nil {
			s.fail(w, &ErrValidation{Field: "metric_type", Message: err.Error()})
			return
		}
		cfg, source, err := thresholds.Resolve(r.Context(), s.cfg.Thresholds, req.MetricType)
		if err != nil && !errors.Is(err, thresholds.ErrConfigMissing) {
			s.fail(w, err)
			return
		}
		resp.Thresholds, resp.Source = cfg, source
	}

	resp.Band = classify.Classify(*req.Value, resp.Thresholds)
	s.jsonResponse(w, http.StatusOK, resp)
}
