package voicefit

import "github.com/himanishpuri/VoiceFit/pkg/voicefit/model"

type (
	AnalyzeResponse = model.AnalyzeResponse
	Recommendation  = model.Recommendation
	VoiceProfile    = model.VoiceProfile
	AnalysisRecord  = model.AnalysisRecord
	CreditEvent     = model.CreditEvent
	PrecisionEvent  = model.PrecisionEvent
	HealthResponse  = model.HealthResponse
)
