package export

import (
	"fmt"
	"math"
	"strings"

	"github.com/vibeboard/vibeboard-engine/internal/timeline"
)

// CutList is a rendered CMX 3600 EDL plus bookkeeping about what went in.
type CutList struct {
	Content string   `json:"content"`
	Events  int      `json:"events"`
	Skipped []string `json:"skipped_clips,omitempty"`
}

// BuildEDL renders the playable members of a sequence as a CMX 3600 cut
// list. Source in/out are each member's trim window in its own media
// timebase; record in/out accumulate effective durations, matching the
// assembled timeline. Unplayable members are skipped and reported.
func BuildEDL(seq timeline.Sequence, title string, frameRate float64) CutList {
	fps := int(math.Round(frameRate))
	if fps <= 0 {
		fps = 24
	}
	dropFrame := math.Abs(frameRate-29.97) < 0.01 || math.Abs(frameRate-59.94) < 0.01

	lines := []string{fmt.Sprintf("TITLE: %s", SanitizeName(title, 70))}
	if dropFrame {
		lines = append(lines, "FCM: DROP FRAME")
	} else {
		lines = append(lines, "FCM: NON-DROP FRAME")
	}
	lines = append(lines, "")

	var skipped []string
	events := 0
	record := 0.0
	for _, clip := range seq {
		eff := clip.EffectiveDuration()
		if eff <= 0 {
			skipped = append(skipped, clip.ID)
			continue
		}
		events++

		name := clip.Label
		if name == "" {
			name = clip.ID
		}
		lines = append(lines,
			fmt.Sprintf("%03d  %-8s %-5s C        %s %s %s %s", events, "AX", "V",
				toTimecode(clip.TrimStart, fps),
				toTimecode(clip.TrimStart+eff, fps),
				toTimecode(record, fps),
				toTimecode(record+eff, fps)),
			fmt.Sprintf("* FROM CLIP NAME:  %s", SanitizeName(name, 70)),
			fmt.Sprintf("* MEDIA PATH:  %s", clip.MediaRef),
		)
		record += eff
	}

	lines = append(lines, "")
	return CutList{
		Content: strings.Join(lines, "\n"),
		Events:  events,
		Skipped: skipped,
	}
}

func toTimecode(seconds float64, fps int) string {
	totalFrames := int(math.Round(seconds * float64(fps)))
	frames := totalFrames % fps
	totalSeconds := totalFrames / fps
	return fmt.Sprintf("%02d:%02d:%02d:%02d",
		totalSeconds/3600, (totalSeconds/60)%60, totalSeconds%60, frames)
}
