//go:build !linux

package tabular

import "os"

func adviseSequential(*os.File) {}
