package chown_util

import (
	"context"
	"os"
	"os/user"
	"strconv"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type UserIds struct {
	Username string
	Uid      int
	Gid      int
}

// Rectifier hands files written as root back to the user that invoked sudo.
type Rectifier struct {
	Current func() (*user.User, error)
	Lookup  func(username string) (*user.User, error)
	Getenv  func(key string) string
	Chown   func(path string, uid, gid int) error
}

func NewRectifier() *Rectifier {
	return &Rectifier{
		Current: user.Current,
		Lookup:  user.Lookup,
		Getenv:  os.Getenv,
		Chown:   os.Chown,
	}
}

// RealUser returns nil when the process does not run as root.
func (r *Rectifier) RealUser() (*UserIds, error) {
	u, err := r.Current()
	if err != nil {
		return nil, errors.Wrap(err, "error getting current user")
	}
	currentUser, err := convertUser(u)
	if err != nil {
		return nil, err
	}
	if currentUser.Uid != 0 {
		return nil, nil
	}

	sudoUserName := r.Getenv("SUDO_USER")
	if sudoUserName == "" || sudoUserName == currentUser.Username {
		return nil, nil
	}
	sudoUser, err := r.Lookup(sudoUserName)
	if err != nil {
		return nil, errors.Wrap(err, "error getting real user")
	}
	return convertUser(sudoUser)
}

func convertUser(u *user.User) (*UserIds, error) {
	if u == nil {
		return nil, errors.New("user is nil")
	}
	userId, err := strconv.Atoi(u.Uid)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid uid %q", u.Uid)
	}
	groupId, err := strconv.Atoi(u.Gid)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid gid %q", u.Gid)
	}
	return &UserIds{
		Username: u.Username,
		Uid:      userId,
		Gid:      groupId,
	}, nil
}

// TryRectifyRootFiles changes the owner of the given paths to the real user when
// running under sudo. Failures are only logged, the files stay usable by root.
func (r *Rectifier) TryRectifyRootFiles(ctx context.Context, filePaths []string) {
	if len(filePaths) == 0 {
		return
	}
	realUser, err := r.RealUser()
	if err != nil {
		log.Ctx(ctx).Debug().Err(err).Msg("error finding real user for root files rectification")
		return
	}
	if realUser == nil {
		return
	}
	for _, filePath := range filePaths {
		if _, err := os.Lstat(filePath); err != nil {
			continue
		}
		if err := r.Chown(filePath, realUser.Uid, realUser.Gid); err != nil {
			log.Ctx(ctx).Debug().Err(err).Msg("error changing owner of file '" + filePath + "'")
		}
	}
}

func TryRectifyRootFiles(ctx context.Context, filePaths []string) {
	NewRectifier().TryRectifyRootFiles(ctx, filePaths)
}
