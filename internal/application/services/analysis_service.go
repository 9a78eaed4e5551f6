package services

import (
	"context"
	"time"

	"github.com/zatekoja/Medicalreportanalysis/backend/internal/application/oracle"
	"github.com/zatekoja/Medicalreportanalysis/backend/internal/domain/entities"
	"github.com/zatekoja/Medicalreportanalysis/backend/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/Medicalreportanalysis/backend/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
)

// AnalysisService turns extracted report text into AnalyzedData through the
// oracle fallback chain.
type AnalysisService struct {
	chain         *oracle.Chain
	maxInputChars int
}

// NewAnalysisService creates a new analysis service
func NewAnalysisService(chain *oracle.Chain, maxInputChars int) *AnalysisService {
	if maxInputChars <= 0 {
		maxInputChars = oracle.DefaultMaxInputChars
	}
	return &AnalysisService{
		chain:         chain,
		maxInputChars: maxInputChars,
	}
}

// Analyze truncates text, asks each provider in turn and returns the first
// schema-valid result. Provider details stay in the logs; callers only see
// an ANALYSIS error.
func (s *AnalysisService) Analyze(ctx context.Context, text string) (*entities.AnalyzedData, error) {
	ctx, span := observability.StartSpan(ctx, "analysis.analyze")
	defer span.End()

	prompt := oracle.BuildAnalysisPrompt(text, s.maxInputChars)
	start := time.Now()
	data, attempts, err := oracle.Run(ctx, s.chain, prompt, oracle.ParseAnalyzedData)
	observability.SetSpanAttributes(span,
		attribute.Int("oracle.attempts", len(attempts)),
		attribute.Int("analysis.red_flags", redFlagCount(data)),
	)
	if err != nil {
		observability.RecordError(span, err)
		observability.LoggerFromContext(ctx).Error().
			Err(err).
			Int("attempts", len(attempts)).
			Dur("duration", time.Since(start)).
			Msg("report analysis failed")
		return nil, apperrors.NewAnalysisError("the report could not be analyzed, please try again later", err)
	}

	return data, nil
}

func redFlagCount(data *entities.AnalyzedData) int {
	if data == nil {
		return 0
	}
	return len(data.RedFlags)
}
