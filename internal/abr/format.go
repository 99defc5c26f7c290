package abr

// Format describes one encoded quality variant of the media.
type Format struct {
	// ID uniquely identifies the format within its catalog.
	ID string

	// Bitrate is the format's bandwidth requirement in bits per second.
	Bitrate int

	// Width and Height are the video resolution in pixels.
	Width  int
	Height int
}

// MediaChunk describes one buffered, downloaded-but-unplayed unit of media.
type MediaChunk struct {
	// Format the chunk was encoded with.
	Format *Format

	// StartTimeUs and EndTimeUs bound the chunk on the media timeline,
	// in microseconds.
	StartTimeUs int64
	EndTimeUs   int64
}

// DurationUs returns the chunk's duration in microseconds.
func (c *MediaChunk) DurationUs() int64 {
	return c.EndTimeUs - c.StartTimeUs
}
