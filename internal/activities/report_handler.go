package activities

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/andrewwb/trainsight/internal/intensity"
	"github.com/andrewwb/trainsight/internal/telemetry/tracing"
	"github.com/andrewwb/trainsight/internal/trends"
	"github.com/andrewwb/trainsight/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

const (
	// DefaultRollingWindow smooths report series the way the original
	// dashboard trend lines do.
	DefaultRollingWindow = 8
	// MonthlyRollingWindow is narrower, monthly buckets are few.
	MonthlyRollingWindow = 2

	dateParamLayout = "2006-01-02"
)

//go:generate mockgen -source=$GOFILE -destination=report_handler_mocks_test.go -package=activities_test

type reportRepo interface {
	ListAll(ctx context.Context, params ActivityParams) ([]Activity, error)
}

type SeriesResponse struct {
	Points  []trends.Point `json:"points"`
	Rolling []trends.Point `json:"rolling"`
}

type ZonesResponse struct {
	Zones map[int]int `json:"zones"`
}

// ReportHandler serves the aggregated series the dashboard renders.
// Scores are recomputed from the stored activities on every request.
type ReportHandler struct {
	repo    reportRepo
	profile intensity.Profile
	now     func() time.Time
}

func NewReportHandler(repo reportRepo, profile intensity.Profile) *ReportHandler {
	return &ReportHandler{
		repo:    repo,
		profile: profile,
		now:     time.Now,
	}
}

func (handler *ReportHandler) HandleDaily(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.report.daily")
	defer span.End()

	handler.handleSeries(ctx, w, r, trends.Daily, DefaultRollingWindow)
}

func (handler *ReportHandler) HandleWeekly(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.report.weekly")
	defer span.End()

	handler.handleSeries(ctx, w, r, trends.Weekly, DefaultRollingWindow)
}

func (handler *ReportHandler) HandleTRIMP(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.report.trimp")
	defer span.End()

	switch mux.Vars(r)["period"] {
	case "weekly":
		handler.handleSeries(ctx, w, r, trends.WeeklyTRIMPTotals, DefaultRollingWindow)
	case "monthly":
		handler.handleSeries(ctx, w, r, trends.MonthlyTRIMPTotals, MonthlyRollingWindow)
	default:
		http.Error(w, "invalid period param", http.StatusBadRequest)
	}
}

func (handler *ReportHandler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.report.summary")
	defer span.End()

	scored, ok := handler.scoredActivities(ctx, w, r)
	if !ok {
		return
	}

	summary := trends.Summarize(scored, handler.now())
	summaryJson, err := json.Marshal(summary)
	if err != nil {
		log.Errorf("failed to marshal summary: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, summaryJson, http.StatusOK)
}

func (handler *ReportHandler) HandleZones(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.report.zones")
	defer span.End()

	scored, ok := handler.scoredActivities(ctx, w, r)
	if !ok {
		return
	}

	zonesJson, err := json.Marshal(ZonesResponse{
		Zones: trends.ZoneDistribution(scored),
	})
	if err != nil {
		log.Errorf("failed to marshal zones: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, zonesJson, http.StatusOK)
}

func (handler *ReportHandler) handleSeries(
	ctx context.Context,
	w http.ResponseWriter,
	r *http.Request,
	bucketFunc func([]trends.ScoredActivity) map[time.Time]float64,
	defaultWindow int,
) {
	scored, ok := handler.scoredActivities(ctx, w, r)
	if !ok {
		return
	}

	window := defaultWindow
	if windowStr := r.URL.Query().Get("window"); windowStr != "" {
		parsedWindow, err := strconv.Atoi(windowStr)
		if err != nil || parsedWindow < 1 {
			http.Error(w, "invalid window param", http.StatusBadRequest)
			return
		}
		window = parsedWindow
	}

	points := trends.Series(bucketFunc(scored))
	seriesJson, err := json.Marshal(SeriesResponse{
		Points:  points,
		Rolling: trends.RollingAverage(points, window),
	})
	if err != nil {
		log.Errorf("failed to marshal series: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, seriesJson, http.StatusOK)
}

func (handler *ReportHandler) scoredActivities(
	ctx context.Context,
	w http.ResponseWriter,
	r *http.Request,
) ([]trends.ScoredActivity, bool) {
	params, err := activityParamsFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil, false
	}

	stored, err := handler.repo.ListAll(ctx, params)
	if err != nil {
		log.Errorf("report: list activities: %s", err)
		http.Error(w, "failed to get activities", http.StatusInternalServerError)
		return nil, false
	}

	return ScoreAll(stored, handler.profile), true
}

// activityParamsFromQuery reads the shared from/to/type query filters.
// Dates accept both 2006-01-02 and RFC3339.
func activityParamsFromQuery(r *http.Request) (ActivityParams, error) {
	params := ActivityParams{
		SportTypes: r.URL.Query()["type"],
	}

	from, err := parseDateParam(r.URL.Query().Get("from"))
	if err != nil {
		return ActivityParams{}, errors.New("invalid from param")
	}
	params.From = from

	to, err := parseDateParam(r.URL.Query().Get("to"))
	if err != nil {
		return ActivityParams{}, errors.New("invalid to param")
	}
	params.To = to

	return params, nil
}

func parseDateParam(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	if t, err := time.Parse(dateParamLayout, value); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
