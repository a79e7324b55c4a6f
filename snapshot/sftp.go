package snapshot

import (
	"context"
	"errors"
	"fmt"
	"path"

	"github.com/melbahja/goph"
	"github.com/pkg/sftp"
)

// SFTPConfig describes a server reachable over ssh where snapshots are
// copied to. The host must be in ~/.ssh/known_hosts
type SFTPConfig struct {
	User string
	Host string
	// private key file, without a passphrase
	KeyPath string
	// remote directory, created if missing
	Dir string
}

// IsSet returns true if enough is configured to attempt an upload
func (c *SFTPConfig) IsSet() bool {
	return c != nil && c.User != "" && c.Host != "" && c.KeyPath != ""
}

// SFTPUploader copies snapshot files to a directory on a server
type SFTPUploader struct {
	Client *goph.Client
	Sftp   *sftp.Client
	Dir    string
}

// NewSFTPUploader connects to the server
func NewSFTPUploader(config *SFTPConfig) (*SFTPUploader, error) {
	if !config.IsSet() {
		return nil, errors.New("must provide user, host and key path in config")
	}
	auth, err := goph.Key(config.KeyPath, "")
	if err != nil {
		return nil, fmt.Errorf("goph.Key('%s') failed with '%w'", config.KeyPath, err)
	}
	client, err := goph.New(config.User, config.Host, auth)
	if err != nil {
		return nil, err
	}
	sc, err := client.NewSftp()
	if err != nil {
		client.Close()
		return nil, err
	}
	return &SFTPUploader{
		Client: client,
		Sftp:   sc,
		Dir:    config.Dir,
	}, nil
}

func (u *SFTPUploader) remotePath(name string) string {
	if u.Dir == "" {
		return name
	}
	return path.Join(u.Dir, name)
}

// Upload copies the file at localPath to remotePath inside Dir
func (u *SFTPUploader) Upload(ctx context.Context, localPath string, remotePath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dst := u.remotePath(remotePath)
	if dir := path.Dir(dst); dir != "." {
		if err := u.Sftp.MkdirAll(dir); err != nil {
			return fmt.Errorf("sftp.MkdirAll('%s') failed with '%w'", dir, err)
		}
	}
	if err := u.Client.Upload(localPath, dst); err != nil {
		return fmt.Errorf("upload of '%s' as '%s' failed with '%w'", localPath, dst, err)
	}
	return nil
}

// Close closes the sftp session and the ssh connection
func (u *SFTPUploader) Close() error {
	if u == nil {
		return nil
	}
	errSftp := u.Sftp.Close()
	errClient := u.Client.Close()
	return errors.Join(errSftp, errClient)
}
