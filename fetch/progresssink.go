package fetch

import (
	"io"

	"github.com/schollz/progressbar/v3"
)

// NewProgressBarSink returns a ProgressSink that renders a byte-level
// progress bar to w via schollz/progressbar, grounded on the teacher's
// own push-progress rendering (docker/pusher.go decoded a percent out
// of a JSON stream and printed it per line); here the percentage comes
// directly from the (contentLength, bytesSoFar) pair Download already
// tracks, so a byte-mode progressbar.NewOptions64 bar renders it without any parsing
// step. description labels the bar, e.g. the destination file name.
func NewProgressBarSink(w io.Writer, description string) ProgressSink {
	var bar *progressbar.ProgressBar
	return func(contentLength, bytesSoFar int64) {
		if bar == nil {
			bar = progressbar.NewOptions64(contentLength,
				progressbar.OptionSetWriter(w),
				progressbar.OptionSetDescription(description),
				progressbar.OptionShowBytes(true),
			)
		}
		_ = bar.Set64(bytesSoFar)
	}
}
