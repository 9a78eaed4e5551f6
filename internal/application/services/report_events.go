package services

import (
	"context"

	"github.com/zatekoja/Medicalreportanalysis/backend/internal/domain/entities"
	"github.com/zatekoja/Medicalreportanalysis/backend/internal/domain/providers"
	"github.com/zatekoja/Medicalreportanalysis/backend/internal/infrastructure/observability"
)

// publishReportEvent notifies the patient and, once assigned, the doctor.
// Failures are logged and never fail the operation that produced the event.
func publishReportEvent(ctx context.Context, bus providers.EventBus, report *entities.Report, eventType entities.ReportEventType) {
	if bus == nil || report == nil {
		return
	}

	event := entities.NewReportEvent(report, eventType)
	channels := []string{providers.GetPatientChannel(report.PatientID)}
	if report.Review.AssignedDoctorID != "" {
		channels = append(channels, providers.GetDoctorChannel(report.Review.AssignedDoctorID))
	}

	for _, channel := range channels {
		if err := bus.Publish(ctx, channel, event); err != nil {
			observability.LoggerFromContext(ctx).Warn().
				Err(err).
				Str("channel", channel).
				Str("report_id", report.ID).
				Str("event_type", string(eventType)).
				Msg("failed to publish report event")
		}
	}
}
