//go:build (!unix && !windows) || aix || (solaris && !illumos)

package commit

import "os"

const lockSupported = false

// No file locking on this platform: concurrent writers are not detected.
func lock(*os.File, bool) error { return nil }

func unlock(*os.File) {}
