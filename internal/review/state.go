package review

// LoadState describes the lifecycle of a backend read.
type LoadState int

// Load states.
const (
	LoadIdle LoadState = iota
	LoadLoading
	LoadLoaded
	LoadFailed
)

func (s LoadState) String() string {
	switch s {
	case LoadIdle:
		return "idle"
	case LoadLoading:
		return "loading"
	case LoadLoaded:
		return "loaded"
	case LoadFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// NoticeLevel is the severity of a notice.
type NoticeLevel int

// Notice levels.
const (
	NoticeInfo NoticeLevel = iota
	NoticeWarning
	NoticeError
)

// Notice is a dismissible, non-blocking message for the user.
type Notice struct {
	Message string
	Level   NoticeLevel
}

// IsZero reports whether there is nothing to show.
func (n Notice) IsZero() bool {
	return n.Message == ""
}
