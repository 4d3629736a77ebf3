package athlete

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/andrewwb/trainsight/internal/telemetry/tracing"
	"github.com/andrewwb/trainsight/pkg"

	log "github.com/sirupsen/logrus"
)

//go:generate mockgen -source=$GOFILE -destination=handler_mocks_test.go -package=athlete_test

type profileGetter interface {
	GetProfile(ctx context.Context) (*Profile, error)
}

type Handler struct {
	service profileGetter
}

func NewHandler(service profileGetter) *Handler {
	return &Handler{
		service: service,
	}
}

func (handler *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.athlete.get")
	defer span.End()

	profile, err := handler.service.GetProfile(ctx)
	if err != nil {
		log.Errorf("failed to get athlete profile: %s", err)
		http.Error(w, "failed to get athlete profile", http.StatusInternalServerError)
		return
	}

	profileJson, err := json.Marshal(profile)
	if err != nil {
		log.Errorf("failed to marshal athlete profile: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, profileJson, http.StatusOK)
}
