package cache

import "time"

// Default TTL per data class.
const (
	TTLIndex   = 30 * time.Minute
	TTLProfile = 60 * time.Minute
	TTLSearch  = 24 * time.Hour
	TTLBatch   = 15 * time.Minute
	TTLNews    = 60 * time.Minute
	TTLPenny   = 24 * time.Hour
)

// TTLs holds the per-class TTLs in effect.
type TTLs struct {
	Index   time.Duration `mapstructure:"index" json:"index" validate:"gte=0"`
	Profile time.Duration `mapstructure:"profile" json:"profile" validate:"gte=0"`
	Search  time.Duration `mapstructure:"search" json:"search" validate:"gte=0"`
	Batch   time.Duration `mapstructure:"batch" json:"batch" validate:"gte=0"`
	News    time.Duration `mapstructure:"news" json:"news" validate:"gte=0"`
	Penny   time.Duration `mapstructure:"penny" json:"penny" validate:"gte=0"`
}

func DefaultTTLs() TTLs {
	return TTLs{
		Index:   TTLIndex,
		Profile: TTLProfile,
		Search:  TTLSearch,
		Batch:   TTLBatch,
		News:    TTLNews,
		Penny:   TTLPenny,
	}
}
