package activities

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/andrewwb/trainsight/internal/telemetry/tracing"
	"github.com/andrewwb/trainsight/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

//go:generate mockgen -source=$GOFILE -destination=handler_mocks_test.go -package=activities_test

type activitiesRepo interface {
	Add(ctx context.Context, activity Activity) (*Activity, error)
	Get(ctx context.Context, id int) (*Activity, error)
	List(ctx context.Context, params ListParams) (_ []Activity, total int, err error)
	Delete(ctx context.Context, id int) error
}

type activitiesSyncer interface {
	Sync(ctx context.Context) (SyncResult, error)
}

type DeleteActivityResponse struct {
	DeletedID int `json:"deletedId"`
}

type ActivitiesListResponse struct {
	Activities []Activity `json:"activities"`
	Total      int        `json:"total"`
}

type Handler struct {
	repo   activitiesRepo
	syncer activitiesSyncer
}

func NewHandler(repo activitiesRepo, syncer activitiesSyncer) *Handler {
	return &Handler{
		repo:   repo,
		syncer: syncer,
	}
}

func (handler *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.activities.add")
	defer span.End()

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	var activity Activity
	if err := json.NewDecoder(r.Body).Decode(&activity); err != nil {
		log.Errorf("new activity, unmarshal json params: %s", err)
		http.Error(w, "add activity failed", http.StatusBadRequest)
		return
	}

	if activity.SportType == "" || activity.StartDate.IsZero() {
		http.Error(w, "error, sport type or start date empty", http.StatusBadRequest)
		return
	}

	addedActivity, err := handler.repo.Add(ctx, activity)
	if err != nil {
		if pkg.IsUniqueViolationError(err) {
			http.Error(w, "activity already stored", http.StatusConflict)
			return
		}
		log.Errorf("failed to add new activity [%s] [%d]: %s", activity.SportType, activity.StravaID, err)
		http.Error(w, "error, failed to add new activity", http.StatusInternalServerError)
		return
	}

	log.Debugf("new activity added: [%s] [%d]: %d", addedActivity.SportType, addedActivity.StravaID, addedActivity.ID)

	addedActivityJson, err := json.Marshal(addedActivity)
	if err != nil {
		log.Errorf("failed to marshal new activity: %s", err)
		http.Error(w, "error, failed to add new activity", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, addedActivityJson, http.StatusCreated)
}

func (handler *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.activities.get")
	defer span.End()

	id, err := idParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	activity, err := handler.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrActivityNotFound) {
			http.Error(w, "activity not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to get activity %d: %s", id, err)
		http.Error(w, "failed to get activity", http.StatusInternalServerError)
		return
	}

	activityJson, err := json.Marshal(activity)
	if err != nil {
		log.Errorf("failed to marshal activity: %s", err)
		http.Error(w, "failed to marshal activity", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, activityJson, http.StatusOK)
}

func (handler *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.activities.list")
	defer span.End()

	vars := mux.Vars(r)

	page, err := strconv.Atoi(vars["page"])
	if err != nil {
		log.Errorf("handle list activities, from <page> param: %s", err)
		http.Error(w, "parse form error, parameter <page>", http.StatusBadRequest)
		return
	}
	size, err := strconv.Atoi(vars["size"])
	if err != nil {
		log.Errorf("handle list activities, from <size> param: %s", err)
		http.Error(w, "parse form error, parameter <size>", http.StatusBadRequest)
		return
	}

	if page < 1 {
		http.Error(w, "invalid page (has to be non-zero value)", http.StatusBadRequest)
		return
	}
	if size < 1 {
		http.Error(w, "invalid size (has to be non-zero value)", http.StatusBadRequest)
		return
	}

	activityParams, err := activityParamsFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	activities, total, err := handler.repo.List(ctx, ListParams{
		ActivityParams: activityParams,
		Page:           page,
		Size:           size,
	})
	if err != nil {
		log.Errorf("list activities error: %s", err)
		http.Error(w, "failed to get activities", http.StatusInternalServerError)
		return
	}

	listResponseJson, err := json.Marshal(ActivitiesListResponse{
		Activities: activities,
		Total:      total,
	})
	if err != nil {
		log.Errorf("marshal activities error: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, listResponseJson, http.StatusOK)
}

func (handler *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.activities.delete")
	defer span.End()

	id, err := idParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := handler.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrActivityNotFound) {
			http.Error(w, "activity not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to delete activity %d: %s", id, err)
		http.Error(w, "activity not deleted", http.StatusInternalServerError)
		return
	}

	deleteRespJson, err := json.Marshal(DeleteActivityResponse{
		DeletedID: id,
	})
	if err != nil {
		log.Errorf("failed to marshal delete response: %s", err)
		http.Error(w, "failed to marshal delete response", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSONResponseOK(w, string(deleteRespJson))
}

func (handler *Handler) HandleSync(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.activities.sync")
	defer span.End()

	result, err := handler.syncer.Sync(ctx)
	if err != nil {
		log.Errorf("activities sync failed: %s", err)
		http.Error(w, "activities sync failed", http.StatusInternalServerError)
		return
	}

	resultJson, err := json.Marshal(result)
	if err != nil {
		log.Errorf("failed to marshal sync result: %s", err)
		http.Error(w, "failed to marshal sync result", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSONResponseOK(w, string(resultJson))
}

func idParam(r *http.Request) (int, error) {
	idStr := mux.Vars(r)["id"]
	if idStr == "" {
		return 0, errors.New("error, id empty")
	}
	id, err := strconv.Atoi(idStr)
	if err != nil {
		return 0, errors.New("error, id NaN")
	}
	return id, nil
}
