package domain

// Step is one of the seven ordered checkpoints of a tracked message.
type Step int

const (
	StepFetch              Step = 1 // pulled from the platform
	StepPreprocess         Step = 2 // routed and enriched
	StepEngineCall         Step = 3 // dialogue engine request sent
	StepEngineCallComplete Step = 4 // dialogue engine answered
	StepPlatformCall       Step = 5 // reply or transfer sent to the platform
	StepPlatformSuccess    Step = 6 // platform accepted it
	StepFinished           Step = 7 // record closed
)

var stepColumns = map[Step]string{
	StepFetch:              "sainiu_fetch_info",
	StepPreprocess:         "preprocess_info",
	StepEngineCall:         "dify_api_call",
	StepEngineCallComplete: "dify_call_completed",
	StepPlatformCall:       "sainiu_api_call",
	StepPlatformSuccess:    "sainiu_call_success",
}

// Column returns the tracking column written by s, or "" for StepFinished and
// unknown steps.
func (s Step) Column() string { return stepColumns[s] }

// Valid reports whether s is one of the seven steps.
func (s Step) Valid() bool { return s >= StepFetch && s <= StepFinished }

// String returns the step name.
func (s Step) String() string {
	switch s {
	case StepFetch:
		return "fetch"
	case StepPreprocess:
		return "preprocess"
	case StepEngineCall:
		return "engine_call"
	case StepEngineCallComplete:
		return "engine_call_complete"
	case StepPlatformCall:
		return "platform_call"
	case StepPlatformSuccess:
		return "platform_success"
	case StepFinished:
		return "finished"
	}
	return "unknown"
}
