//go:build !link

package link

// New returns the in-process clock; build with -tags link for Ableton Link.
func New(bpm float64) Link {
	return NewSolo(bpm)
}
