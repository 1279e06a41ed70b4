package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kidlearn/learning-hub/internal/application/command"
	"github.com/kidlearn/learning-hub/internal/application/query"
	"github.com/kidlearn/learning-hub/internal/domain/reward"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker == nil {
		writeJSON(w, r, http.StatusOK, map[string]any{"healthy": true, "uptime": s.Uptime().String()})
		return
	}
	status := s.deps.HealthChecker.Check(r.Context())
	code := http.StatusOK
	if !status.Healthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, r, code, status)
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]any{"alive": true})
}

// ══════════════════════════════════════════════════════════════════════════════
// WATCH SESSION HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if !s.decode(w, r, &req, true) {
		return
	}
	handle, err := s.deps.StartSession.Handle(r.Context(), command.StartSessionCommand{
		UserID:        chi.URLParam(r, "userID"),
		LessonID:      chi.URLParam(r, "lessonID"),
		StartPosition: req.StartPosition,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, handle)
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	var req endSessionRequest
	if !s.decode(w, r, &req, true) {
		return
	}
	res, err := s.deps.EndSession.Handle(r.Context(), command.EndSessionCommand{
		UserID:      chi.URLParam(r, "userID"),
		LessonID:    chi.URLParam(r, "lessonID"),
		EndPosition: req.EndPosition,
		Completed:   req.Completed,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleRecordProgress(w http.ResponseWriter, r *http.Request) {
	var req recordProgressRequest
	if !s.decode(w, r, &req, false) {
		return
	}
	res, err := s.deps.RecordProgress.Handle(r.Context(), command.RecordProgressCommand{
		UserID:          chi.URLParam(r, "userID"),
		LessonID:        chi.URLParam(r, "lessonID"),
		WatchTime:       req.WatchTime,
		TotalDuration:   req.TotalDuration,
		CurrentPosition: req.CurrentPosition,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

func (s *Server) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	view, err := s.deps.GetProgress.Handle(r.Context(), query.GetProgressQuery{
		UserID:   chi.URLParam(r, "userID"),
		LessonID: chi.URLParam(r, "lessonID"),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, view)
}

// ══════════════════════════════════════════════════════════════════════════════
// FEEDBACK HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleRate(w http.ResponseWriter, r *http.Request) {
	var req rateRequest
	if !s.decode(w, r, &req, false) {
		return
	}
	rec, err := s.deps.RateLesson.Handle(r.Context(), command.RateLessonCommand{
		UserID:   chi.URLParam(r, "userID"),
		LessonID: chi.URLParam(r, "lessonID"),
		Rating:   req.Rating,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, query.NewProgressView(rec))
}

func (s *Server) handleBookmark(w http.ResponseWriter, r *http.Request) {
	var req bookmarkRequest
	if !s.decode(w, r, &req, false) {
		return
	}
	rec, err := s.deps.BookmarkLesson.Handle(r.Context(), command.BookmarkLessonCommand{
		UserID:   chi.URLParam(r, "userID"),
		LessonID: chi.URLParam(r, "lessonID"),
		Flag:     *req.Bookmarked,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, query.NewProgressView(rec))
}

func (s *Server) handleEngagement(w http.ResponseWriter, r *http.Request) {
	var req engagementRequest
	if !s.decode(w, r, &req, false) {
		return
	}
	rec, err := s.deps.UpdateEngagement.Handle(r.Context(), command.UpdateEngagementCommand{
		UserID:   chi.URLParam(r, "userID"),
		LessonID: chi.URLParam(r, "lessonID"),
		Engagement: reward.Engagement{
			AttentionLevel:  req.AttentionLevel,
			EnjoymentLevel:  req.EnjoymentLevel,
			ConfidenceLevel: req.ConfidenceLevel,
		},
		Notes: req.Notes,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, query.NewProgressView(rec))
}

// ══════════════════════════════════════════════════════════════════════════════
// USER HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleGetStatistics(w http.ResponseWriter, r *http.Request) {
	report, err := s.deps.GetStatistics.Handle(r.Context(), query.GetStatisticsQuery{
		UserID: chi.URLParam(r, "userID"),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, report)
}

func (s *Server) handleListBookmarks(w http.ResponseWriter, r *http.Request) {
	views, err := s.deps.ListBookmarks.Handle(r.Context(), query.ListBookmarksQuery{
		UserID: chi.URLParam(r, "userID"),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeList(w, r, views, len(views))
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	view, err := s.deps.GetProfile.Handle(r.Context(), query.GetProfileQuery{
		UserID: chi.URLParam(r, "userID"),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, view)
}

func (s *Server) handleRecordActivity(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.RecordActivity.Handle(r.Context(), command.RecordActivityCommand{
		UserID: chi.URLParam(r, "userID"),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

// decode reads and validates the body, writing the error response on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any, allowEmpty bool) bool {
	if rerr := decodeRequest(r, dst, allowEmpty); rerr != nil {
		writeJSONError(w, r, rerr.status, rerr.api)
		return false
	}
	return true
}
