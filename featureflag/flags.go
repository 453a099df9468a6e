package featureflag

type Flag string

const (
	FlagDisableExtentPerceivers Flag = "DISABLE_EXTENT_PERCEIVERS"
	FlagDisableObserverStream   Flag = "DISABLE_OBSERVER_STREAM"
	FlagDisableWanderers        Flag = "DISABLE_WANDERERS"
	FlagLogNewsAndFrees         Flag = "LOG_NEWS_AND_FREES"
)

func (f Flag) String() string {
	return string(f)
}
