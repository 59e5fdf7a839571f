package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/MD412/project-arceus/internal/common"
	"github.com/MD412/project-arceus/internal/model"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// CorrectDetectionRequest relinks a detection.
type CorrectDetectionRequest struct {
	CardID string `json:"card_id" validate:"required"`
}

// UpdateStatusRequest sets a scan's status label.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=queued processing review_pending completed failed cancelled rejected"`
}

// RenameScanRequest changes a scan's title.
type RenameScanRequest struct {
	Title string `json:"title" validate:"required,max=200"`
}

func (s *Server) listPending(c echo.Context) error {
	entries, err := s.backend.ListPendingScans(c.Request().Context())
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, entries)
}

func (s *Server) listHistory(c echo.Context) error {
	scans, err := s.backend.ListHistory(c.Request().Context())
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, scans)
}

func (s *Server) searchCards(c echo.Context) error {
	results, err := s.backend.SearchCards(c.Request().Context(), c.QueryParam("q"))
	if err != nil {
		return s.fail(c, err)
	}
	if results == nil {
		results = []model.CardCandidate{}
	}
	return c.JSON(http.StatusOK, results)
}

func (s *Server) listDetections(c echo.Context) error {
	detections, err := s.backend.ListDetections(c.Request().Context(), c.Param("id"))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, detections)
}

func (s *Server) approveScan(c echo.Context) error {
	result, err := s.backend.ApproveScan(c.Request().Context(), c.Param("id"))
	s.metrics.recordAction("approve", err)
	if err != nil {
		return s.fail(c, err)
	}
	s.metrics.CardsApproved.Add(float64(result.ApprovedCount))
	return c.JSON(http.StatusOK, result)
}

func (s *Server) updateStatus(c echo.Context) error {
	var req UpdateStatusRequest
	if err := s.bind(c, &req); err != nil {
		if req.Status != "" && !model.ScanStatus(req.Status).IsValid() {
			err = fmt.Errorf("%w: %q", common.ErrInvalidStatus, req.Status)
		}
		return s.fail(c, err)
	}

	status := model.ScanStatus(req.Status)
	if status == model.ScanRejected {
		return s.rejectScan(c)
	}
	if err := s.backend.UpdateScanStatus(c.Request().Context(), c.Param("id"), status); err != nil {
		return s.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) rejectScan(c echo.Context) error {
	err := s.backend.RejectScan(c.Request().Context(), c.Param("id"))
	s.metrics.recordAction("discard", err)
	if err != nil {
		return s.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) renameScan(c echo.Context) error {
	var req RenameScanRequest
	if err := s.bind(c, &req); err != nil {
		return s.fail(c, err)
	}
	if err := s.backend.RenameScan(c.Request().Context(), c.Param("id"), req.Title); err != nil {
		return s.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) deleteScan(c echo.Context) error {
	if err := s.backend.DeleteScan(c.Request().Context(), c.Param("id")); err != nil {
		return s.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) correctDetection(c echo.Context) error {
	var req CorrectDetectionRequest
	if err := s.bind(c, &req); err != nil {
		return s.fail(c, err)
	}
	if err := s.backend.CorrectDetection(c.Request().Context(), c.Param("id"), req.CardID); err != nil {
		return s.fail(c, err)
	}
	s.metrics.CorrectionsTotal.Inc()
	return c.NoContent(http.StatusNoContent)
}

// bind decodes and validates a JSON body.
func (s *Server) bind(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return fmt.Errorf("%w: malformed request body", common.ErrInvalidInput)
	}
	if err := s.validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %s", common.ErrInvalidInput, describeValidation(err))
	}
	return nil
}

func describeValidation(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s must satisfy %s=%s", strings.ToLower(fe.Field()), fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s is %s", strings.ToLower(fe.Field()), fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}

// fail writes err as an ErrorResponse.
func (s *Server) fail(c echo.Context, err error) error {
	status, code := codeFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.Error("API request failed",
			"method", c.Request().Method,
			"path", c.Request().URL.Path,
			"error", err)
		msg = "internal error"
	}
	return c.JSON(status, ErrorResponse{Code: code, Message: msg})
}
