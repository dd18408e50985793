package solver

import (
	"fmt"
	"os/user"
	"strconv"
	"syscall"
)

// ownerString renders a stat_t's uid:gid as "user:group", falling back
// to the numeric IDs if they can't be resolved to names (a common case
// for a uid that no longer exists on the system, or one from another
// user's session on a shared machine).
func ownerString(stat *syscall.Stat_t) string {
	uid := strconv.FormatUint(uint64(stat.Uid), 10)
	gid := strconv.FormatUint(uint64(stat.Gid), 10)

	userName := uid
	if u, err := user.LookupId(uid); err == nil {
		userName = u.Username
	}
	groupName := gid
	if g, err := user.LookupGroupId(gid); err == nil {
		groupName = g.Name
	}
	return fmt.Sprintf("%s:%s", userName, groupName)
}
