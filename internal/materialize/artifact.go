// Package materialize owns the create-if-absent provisioning of the
// generated configuration artifacts. Files it creates are never
// rewritten by it; an existing file always wins, whatever its content.
package materialize

import (
	"errors"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strconv"

	"shardctl/internal/logging"
)

// Spec describes one artifact to ensure.
type Spec struct {
	Path    string
	Owner   string // empty = leave as process identity
	Group   string
	Mode    os.FileMode
	Content []byte
}

// Ensure creates the artifact if it does not exist and reports whether
// a creation occurred. Content is staged in a temp file and linked into
// place, so concurrent callers cannot both create and readers never see
// partial content. An existing file is left untouched.
func Ensure(spec Spec) (created bool, err error) {
	if _, err := os.Lstat(spec.Path); err == nil {
		logging.Get(logging.CategoryMaterialize).Debug("artifact %s already present, leaving untouched", spec.Path)
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("stat %s: %w", spec.Path, err)
	}

	dir := filepath.Dir(spec.Path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(spec.Path)+".tmp-*")
	if err != nil {
		return false, fmt.Errorf("create temp file for %s: %w (does %s exist and is it writable?)", spec.Path, err, dir)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(spec.Content); err != nil {
		tmp.Close()
		return false, fmt.Errorf("write %s: %w", spec.Path, err)
	}
	if err := tmp.Chmod(spec.Mode); err != nil {
		tmp.Close()
		return false, fmt.Errorf("chmod %s: %w", spec.Path, err)
	}
	if spec.Owner != "" || spec.Group != "" {
		uid, gid, err := resolveIdentity(spec.Owner, spec.Group)
		if err != nil {
			tmp.Close()
			return false, err
		}
		if err := tmp.Chown(uid, gid); err != nil {
			tmp.Close()
			return false, fmt.Errorf("chown %s to %s:%s: %w (run as root or clear artifact owner/group)", spec.Path, spec.Owner, spec.Group, err)
		}
	}
	if err := tmp.Close(); err != nil {
		return false, fmt.Errorf("close temp file for %s: %w", spec.Path, err)
	}

	// Link is the exclusive primitive: it fails if the target appeared
	// since the stat above, so two racing callers cannot both create.
	if err := os.Link(tmpName, spec.Path); err != nil {
		if errors.Is(err, os.ErrExist) {
			logging.Get(logging.CategoryMaterialize).Debug("artifact %s appeared concurrently, leaving untouched", spec.Path)
			return false, nil
		}
		return false, fmt.Errorf("create %s: %w", spec.Path, err)
	}

	logging.Materialize("created artifact %s (%d bytes, mode %s)", spec.Path, len(spec.Content), spec.Mode)
	return true, nil
}

// resolveIdentity maps owner/group names to numeric ids. Empty names
// resolve to the current process identity.
func resolveIdentity(owner, group string) (uid, gid int, err error) {
	uid, gid = os.Getuid(), os.Getgid()

	if owner != "" {
		u, err := user.Lookup(owner)
		if err != nil {
			return 0, 0, fmt.Errorf("lookup user %q: %w (create the service account or clear artifact owner)", owner, err)
		}
		uid, err = strconv.Atoi(u.Uid)
		if err != nil {
			return 0, 0, fmt.Errorf("parse uid for %q: %w", owner, err)
		}
	}
	if group != "" {
		g, err := user.LookupGroup(group)
		if err != nil {
			return 0, 0, fmt.Errorf("lookup group %q: %w (create the service group or clear artifact group)", group, err)
		}
		gid, err = strconv.Atoi(g.Gid)
		if err != nil {
			return 0, 0, fmt.Errorf("parse gid for %q: %w", group, err)
		}
	}
	return uid, gid, nil
}
