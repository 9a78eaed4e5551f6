package repositories

import (
	"context"
	"time"

	"github.com/zatekoja/Medicalreportanalysis/backend/internal/domain/entities"
)

// ReportRepository defines the interface for report persistence.
//
// Reads never return the raw extracted text. Review transitions are
// conditional writes: the store applies them only when the stored state
// matches, so concurrent callers cannot both succeed.
type ReportRepository interface {
	// Create persists a new report
	Create(ctx context.Context, report *entities.Report) error

	// GetByID returns the report if it is visible to the identity
	GetByID(ctx context.Context, id string, identity entities.Identity) (*entities.Report, error)

	// RequestReview assigns doctorID when the report belongs to patientID and is not yet reviewed
	RequestReview(ctx context.Context, id, patientID, doctorID string, at time.Time) (*entities.Report, error)

	// SubmitReview completes the review when doctorID is assigned and the review is requested
	SubmitReview(ctx context.Context, id, doctorID, notes string, at time.Time) (*entities.Report, error)
}
