package minter

// State is a step of the mint pipeline.
type State int

const (
	StateIdle State = iota
	StateFetchingStats
	StateCompositing
	StatePublishingImage
	StatePublishingMetadata
	StateBurningOld
	StateUnpinning
	StateMinting
	StateDone
	StateFailed
)

var stateNames = map[State]string{
	StateIdle:               "idle",
	StateFetchingStats:      "fetching_stats",
	StateCompositing:        "compositing",
	StatePublishingImage:    "publishing_image",
	StatePublishingMetadata: "publishing_metadata",
	StateBurningOld:         "burning_old",
	StateUnpinning:          "unpinning",
	StateMinting:            "minting",
	StateDone:               "done",
	StateFailed:             "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Terminal reports whether no further transitions follow s.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// Observer is called on every state transition.
type Observer func(State)
