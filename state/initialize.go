package state

import (
	"time"
)

// newLocalEnv creates a new LocalEnv instance with default values
func newLocalEnv() *LocalEnv {
	return &LocalEnv{
		start: time.Now(),
		// Default cover background - decorative frame only, title and dates
		// are drawn over the raster later. Replaceable via configuration.
		CoverTemplate: []byte(`<svg viewBox="0 0 600 800" xmlns="http://www.w3.org/2000/svg">
  <rect x="0" y="0" width="600" height="800" fill="#ffffff"/>
  <rect x="0" y="0" width="600" height="120" fill="#005a9c"/>
  <rect x="0" y="680" width="600" height="120" fill="#005a9c"/>
  <rect x="24" y="144" width="552" height="512" fill="none" stroke="#005a9c" stroke-width="3"/>
  <rect x="32" y="152" width="536" height="496" fill="none" stroke="#005a9c" stroke-width="1"/>
  <path d="M40 620 H560" stroke="#005a9c" stroke-width="1"/>
</svg>`),
	}
}
