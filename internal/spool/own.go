package spool

import (
	"fmt"
	"os"
	"os/user"
	"strconv"
)

// Own hands the file at path to the named system user and that user's
// primary group, which is what the engine reads spool and sounds files as.
// An empty owner is a no-op, which is how dev and test setups run without
// the engine's user on the box.
func Own(path, owner string) error {
	if owner == "" {
		return nil
	}

	u, err := user.Lookup(owner)
	if err != nil {
		return fmt.Errorf("looking up user %q: %w", owner, err)
	}
	uid, err := strconv.Atoi(u.Uid)
	if err != nil {
		return fmt.Errorf("parsing uid for %q: %w", owner, err)
	}
	gid, err := strconv.Atoi(u.Gid)
	if err != nil {
		return fmt.Errorf("parsing gid for %q: %w", owner, err)
	}

	if err := os.Chown(path, uid, gid); err != nil {
		return fmt.Errorf("chowning %s: %w", path, err)
	}
	return nil
}
