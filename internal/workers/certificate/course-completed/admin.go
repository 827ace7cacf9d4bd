package coursecompleted

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"ehealth-workers/internal/common/logger"
)

// TransferCounter is implemented by moodle.TransferLogRepository.
type TransferCounter interface {
	CountByCompletion(ctx context.Context, completionID int64) (int, error)
}

// CacheInvalidator is implemented by cache.CourseCache.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, courseID int64) error
}

// Admin answers operator queries about the transfer log and drops stale
// course cache entries after a course's custom fields are edited.
type Admin struct {
	transfers TransferCounter
	cache     CacheInvalidator
	logger    logger.Logger
}

// NewAdmin takes a nil cache when the course cache is disabled.
func NewAdmin(transfers TransferCounter, cache CacheInvalidator, log logger.Logger) *Admin {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Admin{
		transfers: transfers,
		cache:     cache,
		logger:    log.WithFields(map[string]interface{}{"component": "admin"}),
	}
}

type TransferCount struct {
	CompletionID int64 `json:"completionId"`
	Transfers    int   `json:"transfers"`
}

// Routes is mounted under /admin.
func (a *Admin) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Get("/transfers/{completionId}", a.handleCountTransfers)
	r.Delete("/courses/{courseId}/cache", a.handleInvalidateCourse)
	return r
}

func (a *Admin) handleCountTransfers(w http.ResponseWriter, r *http.Request) {
	completionID, ok := pathID(w, r, "completionId")
	if !ok {
		return
	}

	n, err := a.transfers.CountByCompletion(r.Context(), completionID)
	if err != nil {
		a.logger.Error("Transfer count failed", map[string]interface{}{
			"requestId":    middleware.GetReqID(r.Context()),
			"completionId": completionID,
			"error":        err.Error(),
		})
		writeJSON(w, http.StatusInternalServerError, Response{Status: StatusFailed, Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, TransferCount{CompletionID: completionID, Transfers: n})
}

func (a *Admin) handleInvalidateCourse(w http.ResponseWriter, r *http.Request) {
	if a.cache == nil {
		writeJSON(w, http.StatusNotFound, Response{Status: StatusFailed, Error: "course cache is disabled"})
		return
	}
	courseID, ok := pathID(w, r, "courseId")
	if !ok {
		return
	}

	if err := a.cache.Invalidate(r.Context(), courseID); err != nil {
		a.logger.Error("Course cache invalidation failed", map[string]interface{}{
			"requestId": middleware.GetReqID(r.Context()),
			"courseId":  courseID,
			"error":     err.Error(),
		})
		writeJSON(w, http.StatusServiceUnavailable, Response{Status: StatusFailed, Error: err.Error()})
		return
	}

	a.logger.Info("Course cache invalidated", map[string]interface{}{"courseId": courseID})
	w.WriteHeader(http.StatusNoContent)
}

// pathID parses a positive id URL parameter, answering 400 when it is not one.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, Response{Status: StatusInvalid, Error: name + " must be a positive integer"})
		return 0, false
	}
	return id, true
}
