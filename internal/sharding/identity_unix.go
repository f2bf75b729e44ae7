//go:build unix

package sharding

import (
	"io/fs"
	"syscall"
)

type identity struct {
	uid, gid int
}

// sysIdentity extracts the numeric owner of an existing file so an
// atomic replacement can preserve it.
func sysIdentity(info fs.FileInfo) (identity, bool) {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return identity{}, false
	}
	return identity{uid: int(st.Uid), gid: int(st.Gid)}, true
}
