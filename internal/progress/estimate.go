package progress

// Phase weight boundaries. Download spans (0.01, 0.50], shard parsing
// (0.50, 0.85], then fixed points for the tokenizer and init stages.
const (
	configFraction    = 0.01
	downloadSpan      = 0.49
	loadBase          = 0.50
	loadSpan          = 0.35
	tokenizerFraction = 0.88
	initFraction      = 0.95
)

// Estimate maps an event to a fractional completion estimate in [0, 1].
//
// For a well-formed event sequence from a single load the estimate is
// non-decreasing, except that Failed resets to 0: a failed load is not
// partial progress. The estimate is a UX approximation only and must never
// drive control decisions.
func Estimate(ev Event) float64 {
	switch e := ev.(type) {
	case DownloadingConfig:
		return configFraction
	case DownloadingWeights:
		n := float64(max(e.Total, 1))
		return configFraction + float64(e.Index-1)/n*downloadSpan + e.Fraction/n*downloadSpan
	case LoadingWeights:
		n := float64(max(e.Total, 1))
		return loadBase + float64(e.Index)/n*loadSpan
	case LoadingTokenizer:
		return tokenizerFraction
	case InitializingModel:
		return initFraction
	case Ready:
		return 1.0
	case Failed:
		return 0.0
	default:
		return 0.0
	}
}
