//go:build linux

package tabular

import (
	"os"

	"golang.org/x/sys/unix"
)

// adviseSequential tells the kernel the scratch file is read front to back
// once, so readahead can be aggressive.
func adviseSequential(f *os.File) {
	_ = unix.Fadvise(int(f.Fd()), 0, 0, unix.FADV_SEQUENTIAL)
	_ = unix.Fadvise(int(f.Fd()), 0, 0, unix.FADV_WILLNEED)
}
