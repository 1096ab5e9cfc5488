package transport

import (
	"fmt"
	"os"

	"github.com/creack/pty"
	"github.com/golang/glog"
	"golang.org/x/term"
)

// PTY is the device side of a pseudo terminal. Hosts open the terminal
// through Name or the symlink like a serial port.
type PTY struct {
	*os.File

	tty     *os.File
	symlink string
}

// OpenPTY creates a pseudo terminal in raw mode. If symlink is not empty,
// it's (re)created pointing to the terminal.
func OpenPTY(symlink string) (*PTY, error) {
	master, tty, err := pty.Open()
	if err != nil {
		return nil, fmt.Errorf("open pty: %w", err)
	}
	p := &PTY{File: master, tty: tty}
	if _, err = term.MakeRaw(int(tty.Fd())); err != nil {
		p.Close()
		return nil, fmt.Errorf("raw mode: %w", err)
	}
	if symlink != "" {
		if _, err := os.Lstat(symlink); err == nil {
			glog.Infof("removing existing symlink at %s", symlink)
			if err = os.Remove(symlink); err != nil {
				p.Close()
				return nil, err
			}
		}
		if err = os.Symlink(tty.Name(), symlink); err != nil {
			p.Close()
			return nil, err
		}
		p.symlink = symlink
		glog.Infof("symlink %s -> %s", symlink, tty.Name())
	}
	return p, nil
}

// Name returns the path of the terminal for hosts.
func (p *PTY) Name() string {
	return p.tty.Name()
}

// Close implements io.Closer and removes the symlink.
func (p *PTY) Close() error {
	if p.symlink != "" {
		if err := os.Remove(p.symlink); err != nil {
			glog.Errorf("remove symlink: %v", err)
		}
		p.symlink = ""
	}
	p.tty.Close()
	return p.File.Close()
}
