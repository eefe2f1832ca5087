package session

// State is a step of the fetch-then-download interaction.
type State int

const (
	StateIdle State = iota
	StateFetching
	StateFormatsReady
	StateFetchError
	StateSelecting
	StateDownloading
	StateDownloadReady
	StateDownloadError
	StateVerificationRequired
)

var stateNames = map[State]string{
	StateIdle:                 "idle",
	StateFetching:             "fetching",
	StateFormatsReady:         "formatsReady",
	StateFetchError:           "fetchError",
	StateSelecting:            "selecting",
	StateDownloading:          "downloading",
	StateDownloadReady:        "downloadReady",
	StateDownloadError:        "downloadError",
	StateVerificationRequired: "verificationRequired",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// canSelect reports whether a format can be picked in state s.
func (s State) canSelect() bool {
	switch s {
	case StateFormatsReady,
		StateSelecting,
		StateDownloadReady,
		StateDownloadError,
		StateVerificationRequired:
		return true
	default:
		return false
	}
}

// HasFormats reports whether a fetched format list is available in s.
func (s State) HasFormats() bool {
	return s.canSelect() || s == StateDownloading
}
