package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/studyhall/progress-ledger/internal/ledger"
	"github.com/studyhall/progress-ledger/internal/report"
)

type submitQuizResultRequest struct {
	UserID           string          `json:"user_id" validate:"required"`
	ActivityID       string          `json:"activity_id" validate:"required"`
	Score            int             `json:"score" validate:"min=0"`
	MaxScore         int             `json:"max_score" validate:"min=0"`
	TimeTakenSeconds int             `json:"time_taken_seconds" validate:"min=0"`
	Answers          json.RawMessage `json:"answers,omitempty"`
}

func (s *Server) handleSubmitQuizResult(w http.ResponseWriter, r *http.Request) {
	var req submitQuizResultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed_body", "request body is not valid JSON")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	result, err := s.ledger.SubmitQuizResult(r.Context(), ledger.QuizResultEvent{
		UserID:           req.UserID,
		ActivityID:       req.ActivityID,
		Score:            req.Score,
		MaxScore:         req.MaxScore,
		TimeTakenSeconds: req.TimeTakenSeconds,
		Answers:          req.Answers,
		SubmittedAt:      time.Now().UTC(),
	})
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (s *Server) handleListProgress(w http.ResponseWriter, r *http.Request) {
	records, err := s.ledger.ListProgress(r.Context(), r.PathValue("id"))
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	if records == nil {
		records = []ledger.ProgressRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	record, err := s.ledger.GetProgress(r.Context(), r.PathValue("id"), r.PathValue("subject"))
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (s *Server) handleListAchievements(w http.ResponseWriter, r *http.Request) {
	records, err := s.ledger.ListAchievements(r.Context(), r.PathValue("id"))
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	if records == nil {
		records = []ledger.AchievementRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	report, err := s.ledger.GetClassAnalytics(r.Context(), r.PathValue("id"))
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleAnalyticsExport(w http.ResponseWriter, r *http.Request) {
	teacherID := r.PathValue("id")
	rep, err := s.ledger.GetClassAnalytics(r.Context(), teacherID)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="analytics-%s.xlsx"`, teacherID))
	if err := report.WriteAnalyticsXLSX(w, rep); err != nil {
		// Headers are already sent; all we can do is log.
		slog.Error("analytics export failed", "teacher_id", teacherID, "error", err)
	}
}
