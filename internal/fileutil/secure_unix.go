//go:build !windows

package fileutil

// restrict is a no-op: the mode bits passed at creation already apply.
func restrict(string) {}
