package core

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"net"
	"os"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"

	"filesh/config"
	ncerr "filesh/internal/errors"
	"filesh/internal/transport"
	"filesh/util"
)

// SSHListenMode serves the command protocol inside SSH session
// channels.  Clients are not authenticated; the SSH user name becomes
// the initial nickname.
type SSHListenMode struct {
	Address     string
	HostKeyPath string // empty generates an ephemeral ed25519 key
	Server      *Server
	Logger      *util.Logger
}

// Run listens until ctx is cancelled.
func (m *SSHListenMode) Run(ctx context.Context) error {
	signer, err := loadHostKey(m.HostKeyPath)
	if err != nil {
		return err
	}
	cfg := &ssh.ServerConfig{
		NoClientAuth:  true,
		ServerVersion: "SSH-2.0-filesh",
	}
	cfg.AddHostKey(signer)

	ln, err := net.Listen("tcp", m.Address)
	if err != nil {
		return ncerr.Wrap("listen", m.Address, err)
	}
	m.Logger.Info("listening on %s (ssh, host key %s)", ln.Addr(), ssh.FingerprintSHA256(signer.PublicKey()))

	err = acceptLoop(ctx, ln, m.Server, func(conn net.Conn) {
		m.handleConn(ctx, conn, cfg)
	})

	m.Server.Registry.CloseAll()
	if !m.Server.Drain(config.DefaultGracePeriod) {
		m.Logger.Warn("ssh sessions still running after %s", config.DefaultGracePeriod)
	}
	return err
}

func (m *SSHListenMode) handleConn(ctx context.Context, nc net.Conn, cfg *ssh.ServerConfig) {
	// Bound the handshake; a silent peer must not pin a goroutine.
	nc.SetDeadline(time.Now().Add(config.DefaultConnTimeout)) //nolint:errcheck
	sc, chans, reqs, err := ssh.NewServerConn(nc, cfg)
	if err != nil {
		m.Logger.Verbose("%v", ncerr.WrapSSH("handshake", nc.RemoteAddr().String(), err))
		nc.Close()
		return
	}
	nc.SetDeadline(time.Time{}) //nolint:errcheck
	defer sc.Close()

	stop := context.AfterFunc(ctx, func() { sc.Close() })
	defer stop()

	go ssh.DiscardRequests(reqs)

	nick := sc.User()
	if nick == "" {
		nick = sc.RemoteAddr().String()
	}
	m.Logger.Verbose("ssh handshake with %s as %q (%s)", sc.RemoteAddr(), sc.User(), sc.ClientVersion())

	for newCh := range chans {
		if newCh.ChannelType() != "session" {
			newCh.Reject(ssh.UnknownChannelType, "only session channels are supported") //nolint:errcheck
			continue
		}
		ch, requests, err := newCh.Accept()
		if err != nil {
			m.Logger.Verbose("%v", ncerr.WrapSSH("channel accept", sc.RemoteAddr().String(), err))
			continue
		}
		m.Server.spawn(func() { m.serveChannel(ctx, ch, requests, sc.RemoteAddr(), nick) })
	}
}

// ptyRequest is the payload of a "pty-req" request (RFC 4254 §6.2).
type ptyRequest struct {
	Term    string
	Columns uint32
	Rows    uint32
	Width   uint32
	Height  uint32
	Modes   string
}

// windowChange is the payload of a "window-change" request (RFC 4254 §6.7).
type windowChange struct {
	Columns uint32
	Rows    uint32
	Width   uint32
	Height  uint32
}

// exitStatus is the payload of an "exit-status" request.
type exitStatus struct {
	Status uint32
}

// serveChannel waits for the client to ask for a shell, then runs the
// command loop on the channel.
func (m *SSHListenMode) serveChannel(ctx context.Context, ch ssh.Channel, requests <-chan *ssh.Request, remote net.Addr, nick string) {
	conn := transport.NewTerminalConn(ch, remote)
	shell := make(chan struct{})

	go func() {
		started := false
		for req := range requests {
			ok := false
			switch req.Type {
			case "pty-req":
				var p ptyRequest
				if ssh.Unmarshal(req.Payload, &p) == nil {
					conn.SetSize(int(p.Columns), int(p.Rows)) //nolint:errcheck
					ok = true
				}
			case "window-change":
				var w windowChange
				if ssh.Unmarshal(req.Payload, &w) == nil {
					conn.SetSize(int(w.Columns), int(w.Rows)) //nolint:errcheck
					ok = true
				}
			case "env":
				ok = true
			case "shell":
				ok = !started
				if !started {
					started = true
					close(shell)
				}
			}
			if req.WantReply {
				req.Reply(ok, nil) //nolint:errcheck
			}
		}
		if !started {
			close(shell)
		}
	}()

	select {
	case <-shell:
	case <-ctx.Done():
		conn.Close()
		return
	}

	m.Server.serve(ctx, &channelConn{TerminalConn: conn, ch: ch}, nick)
}

// channelConn reports a zero exit status before closing the channel so
// ssh clients exit cleanly.
type channelConn struct {
	*transport.TerminalConn
	ch   ssh.Channel
	once sync.Once
}

func (c *channelConn) Close() error {
	c.once.Do(func() {
		c.ch.SendRequest("exit-status", false, ssh.Marshal(&exitStatus{})) //nolint:errcheck
	})
	return c.TerminalConn.Close()
}

// loadHostKey reads a PEM private key from path, or generates an
// ephemeral ed25519 key when path is empty.
func loadHostKey(path string) (ssh.Signer, error) {
	if path == "" {
		_, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, ncerr.WrapSSH("generate host key", "", err)
		}
		return ssh.NewSignerFromKey(priv)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ncerr.WrapSSH("read host key", path, err)
	}
	signer, err := ssh.ParsePrivateKey(data)
	if err != nil {
		return nil, ncerr.WrapSSH("parse host key", path, err)
	}
	return signer, nil
}
