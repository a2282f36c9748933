// resolve.go guesses which stack frame is the interesting application
// frame, as opposed to library or framework frames.

package faultline

import "strings"

// ResolveView walks frames oldest call first and returns the dotted
// module-qualified identifier of the best application frame, or "" when no
// frame matched.
//
// A frame whose identifier matches one of appPrefixes becomes the best
// guess, except that a frame also matching excludePrefixes never overwrites
// an earlier guess. Once the walk leaves the application prefix run after a
// guess exists it stops: the frames past that point belong to library or
// framework error handling, and the last accepted application frame is the
// answer. Frames that cannot yield an identifier are skipped.
func ResolveView(frames []Frame, appPrefixes, excludePrefixes []string) string {
	var bestGuess string
	for _, f := range frames {
		view := f.DottedName()
		if view == "" {
			continue
		}
		if matchesPrefix(appPrefixes, view) {
			if !(matchesPrefix(excludePrefixes, view) && bestGuess != "") {
				bestGuess = view
			}
		} else if bestGuess != "" {
			break
		}
	}
	return bestGuess
}

func matchesPrefix(prefixes []string, view string) bool {
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(view, p) {
			return true
		}
	}
	return false
}
