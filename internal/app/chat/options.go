package chat

import "time"

// Token authority modes.
const (
	TokenModeSigned = "signed"
	TokenModeOpaque = "opaque"
)

const (
	// DefaultHistoryLimit is the number of messages kept in memory.
	DefaultHistoryLimit = 1000

	// DefaultRateWindow and DefaultRateMax bound how often one user may send.
	DefaultRateWindow = 60 * time.Second
	DefaultRateMax    = 10

	// BasicMaxTextLength is the text cap of the basic edition. The PRO edition has none.
	BasicMaxTextLength = 256

	// DefaultPresenceResetInterval is how often the whole online set is cleared.
	DefaultPresenceResetInterval = 5 * time.Minute

	// DefaultSubscriberQueueSize is the outbound queue length of each live subscriber.
	DefaultSubscriberQueueSize = 256
)

// Features switches the PRO capabilities on or off.
type Features struct {
	Images   bool
	Search   bool
	Live     bool
	Profiles bool
}

// Options configures a Manager.
type Options struct {
	HistoryLimit int

	RateWindow time.Duration
	RateMax    int

	// MaxTextLength caps message text in runes; 0 means unbounded.
	MaxTextLength int

	PresenceResetInterval time.Duration
	SubscriberQueueSize   int

	TokenMode   string
	TokenSecret string

	Features Features

	// Clock overrides time.Now, mainly for tests.
	Clock func() time.Time
}

// BasicOptions returns the settings of the basic edition: text only, 256 rune cap, polling only.
func BasicOptions() Options {
	return Options{
		HistoryLimit:          DefaultHistoryLimit,
		RateWindow:            DefaultRateWindow,
		RateMax:               DefaultRateMax,
		MaxTextLength:         BasicMaxTextLength,
		PresenceResetInterval: DefaultPresenceResetInterval,
		SubscriberQueueSize:   DefaultSubscriberQueueSize,
		TokenMode:             TokenModeOpaque,
	}
}

// ProOptions returns the settings of the PRO edition: images, search, live push, profiles, no text cap.
func ProOptions() Options {
	opts := BasicOptions()
	opts.MaxTextLength = 0
	opts.Features = Features{Images: true, Search: true, Live: true, Profiles: true}
	return opts
}

func (o *Options) applyDefaults() {
	if o.HistoryLimit <= 0 {
		o.HistoryLimit = DefaultHistoryLimit
	}
	if o.RateWindow <= 0 {
		o.RateWindow = DefaultRateWindow
	}
	if o.RateMax <= 0 {
		o.RateMax = DefaultRateMax
	}
	if o.MaxTextLength < 0 {
		o.MaxTextLength = 0
	}
	if o.SubscriberQueueSize <= 0 {
		o.SubscriberQueueSize = DefaultSubscriberQueueSize
	}
	if o.TokenMode == "" {
		o.TokenMode = TokenModeOpaque
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
}
