package deploy

import (
	"context"
	"time"

	"github.com/cuemby/cspublish/pkg/events"
	"github.com/cuemby/cspublish/pkg/log"
	"github.com/cuemby/cspublish/pkg/metrics"
	"github.com/cuemby/cspublish/pkg/storage"
	"github.com/cuemby/cspublish/pkg/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Phase is a state of the publish state machine
type Phase string

const (
	PhaseValidating             Phase = "validating"
	PhaseEnsuringInfrastructure Phase = "ensuring-infrastructure"
	PhaseCheckingPrerequisites  Phase = "checking-prerequisites"
	PhaseUploading              Phase = "uploading"
	PhaseCreatingDeployment     Phase = "creating-deployment"
	PhaseAwaitingOperation      Phase = "awaiting-operation"
	PhaseAwaitingRoleHealth     Phase = "awaiting-role-health"
	PhaseDeletingDeployment     Phase = "deleting-deployment"
	PhaseSucceeded              Phase = "succeeded"
	PhaseFailed                 Phase = "failed"
)

// run tracks one pass through the state machine: the current phase, its
// timer, the history record and the events published for it
type run struct {
	id     string
	phase  Phase
	timer  *metrics.Timer
	record *types.RunRecord
	logger zerolog.Logger

	broker *events.Broker
	store  storage.Store
	now    func() time.Time
}

func newRun(action, service string, slot types.DeploymentSlot, broker *events.Broker, store storage.Store, now func() time.Time) *run {
	id := uuid.NewString()
	r := &run{
		id:     id,
		broker: broker,
		store:  store,
		now:    now,
		logger: log.WithRunID(id).With().
			Str("component", "deploy").
			Str("cloud_service", service).
			Str("slot", string(slot)).
			Logger(),
	}
	r.record = &types.RunRecord{
		ID:           id,
		Action:       action,
		CloudService: service,
		Slot:         slot,
		Status:       types.RunStatusRunning,
		StartedAt:    now(),
	}
	return r
}

// enter closes the current phase and opens the next one
func (r *run) enter(phase Phase) {
	r.closePhase()

	r.phase = phase
	r.timer = metrics.NewTimer()
	r.record.Phase = string(phase)
	r.save()

	r.logger.Info().Str("phase", string(phase)).Msg("Entering phase")
	r.publish(events.EventPhaseEntered, "", nil)
}

func (r *run) closePhase() {
	if r.timer == nil {
		return
	}
	r.timer.ObserveDurationVec(metrics.PhaseDuration, string(r.phase))
	r.publish(events.EventPhaseCompleted, "", map[string]string{
		"duration": r.timer.Duration().Round(time.Millisecond).String(),
	})
	r.timer = nil
}

// fail records err against the current phase and returns it wrapped in a
// PhaseError. Nothing created so far is rolled back.
func (r *run) fail(err error) error {
	phase := r.phase
	perr := &types.PhaseError{Phase: string(phase), Err: err}

	if r.timer != nil {
		r.timer.ObserveDurationVec(metrics.PhaseDuration, string(phase))
		r.timer = nil
	}

	r.record.Status = types.RunStatusFailed
	r.record.Error = err.Error()
	r.record.FinishedAt = r.now()
	r.save()

	metrics.DeploymentsTotal.WithLabelValues(string(types.RunStatusFailed)).Inc()
	r.logger.Error().Err(err).Str("phase", string(phase)).Msg("Run failed")
	r.phase = PhaseFailed
	r.publish(events.EventRunFailed, err.Error(), map[string]string{"failed_phase": string(phase)})
	return perr
}

func (r *run) succeed(url string) {
	r.closePhase()

	r.phase = PhaseSucceeded
	r.record.Phase = string(PhaseSucceeded)
	r.record.Status = types.RunStatusSucceeded
	r.record.URL = url
	r.record.FinishedAt = r.now()
	r.save()

	metrics.DeploymentsTotal.WithLabelValues(string(types.RunStatusSucceeded)).Inc()
	r.logger.Info().Str("url", url).Msg("Run succeeded")
	r.publish(events.EventRunSucceeded, url, nil)
}

func (r *run) warn(message string) {
	r.logger.Warn().Str("phase", string(r.phase)).Msg(message)
	r.publish(events.EventWarning, message, nil)
}

func (r *run) publish(t events.EventType, message string, metadata map[string]string) {
	if r.broker == nil {
		return
	}
	r.broker.Publish(&events.Event{
		RunID:    r.id,
		Type:     t,
		Phase:    string(r.phase),
		Message:  message,
		Metadata: metadata,
	})
}

// save writes the history record; history is best effort
func (r *run) save() {
	if r.store == nil {
		return
	}
	if err := r.store.SaveRun(r.record); err != nil {
		r.logger.Warn().Err(err).Msg("Failed to record run history")
	}
}

// detached returns a context for cleanup work that must run even after ctx
// is cancelled
func detached(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), timeout)
}
