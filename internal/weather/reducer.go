package weather

// State is the lookup state. Weather is nil while a fetch is pending and
// after a failure.
type State struct {
	City    string  `json:"city,omitempty"`
	Weather *Report `json:"weather,omitempty"`
	Err     string  `json:"error,omitempty"`
}

// Loading reports whether a city was requested and nothing arrived yet.
func (s State) Loading() bool { return s.City != "" && s.Weather == nil && s.Err == "" }

// Action is a state transition.
type Action interface{ weatherAction() }

type (
	// FetchWeather starts a lookup for City.
	FetchWeather struct{ City string }
	// FetchSuccess stores the fetched report.
	FetchSuccess struct{ Report Report }
	// FetchError stores a user-visible failure message.
	FetchError struct{ Message string }
)

func (FetchWeather) weatherAction() {}
func (FetchSuccess) weatherAction() {}
func (FetchError) weatherAction()   {}

// Reduce returns the state after a. Unknown actions leave s unchanged.
func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case FetchWeather:
		return State{City: a.City}
	case FetchSuccess:
		r := a.Report
		s.Weather = &r
		s.Err = ""
		return s
	case FetchError:
		s.Weather = nil
		s.Err = a.Message
		return s
	default:
		return s
	}
}
