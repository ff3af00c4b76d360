package types

import "time"

const (
	DefaultCheckoutThreshold = 10
	DefaultMaxReTags         = 3

	MaxReTagsLimit = 10
)

// Settings are the two admin-tunable knobs read by every classification.
type Settings struct {
	CheckoutThreshold int       `json:"checkout_threshold" yaml:"checkout_threshold" validate:"min=1,max=60"`
	MaxReTags         int       `json:"max_re_tags" yaml:"max_re_tags" validate:"min=1,max=10"`
	UpdatedAt         time.Time `json:"updated_at,omitempty" yaml:"-"`
}

func DefaultSettings() Settings {
	return Settings{
		CheckoutThreshold: DefaultCheckoutThreshold,
		MaxReTags:         DefaultMaxReTags,
	}
}

func (s Settings) CheckoutWindow() time.Duration {
	return time.Duration(s.CheckoutThreshold) * time.Minute
}
