package providers

import (
	"context"

	"github.com/zatekoja/Medicalreportanalysis/backend/internal/domain/entities"
)

// EventBus defines the interface for publishing and subscribing to events
type EventBus interface {
	// Publish publishes an event to all subscribers
	Publish(ctx context.Context, channel string, event *entities.ReportEvent) error

	// Subscribe subscribes to events on a channel
	Subscribe(ctx context.Context, channel string) (<-chan *entities.ReportEvent, error)

	// Unsubscribe unsubscribes from a channel
	Unsubscribe(ctx context.Context, channel string) error

	// Close closes the event bus and all subscriptions
	Close() error
}

const (
	// EventChannelPatientPrefix is the prefix for per-patient channels
	EventChannelPatientPrefix = "reports:patient:"

	// EventChannelDoctorPrefix is the prefix for per-doctor channels
	EventChannelDoctorPrefix = "reports:doctor:"
)

// GetPatientChannel returns the channel name for a specific patient
func GetPatientChannel(patientID string) string {
	return EventChannelPatientPrefix + patientID
}

// GetDoctorChannel returns the channel name for a specific doctor
func GetDoctorChannel(doctorID string) string {
	return EventChannelDoctorPrefix + doctorID
}

// GetIdentityChannel returns the channel an identity listens on
func GetIdentityChannel(identity entities.Identity) string {
	if identity.IsDoctor() {
		return GetDoctorChannel(identity.SubjectID)
	}
	return GetPatientChannel(identity.SubjectID)
}
