package queueaccess

import (
	"errors"
	"fmt"
	"io"

	"montage/internal/config"
	"montage/internal/ipc"
	"montage/internal/queue"
)

// Dialer connects to the daemon socket.
type Dialer func() (*ipc.Client, error)

// StoreOpener opens the job database directly.
type StoreOpener func() (*queue.Store, error)

// Session is an open Access plus the connection or store behind it.
type Session struct {
	Access Access

	backing io.Closer
	daemon  bool
}

// Close releases the daemon connection or the store.
func (s *Session) Close() error {
	if s == nil || s.backing == nil {
		return nil
	}
	return s.backing.Close()
}

// Daemon reports whether operations go through a running daemon.
func (s *Session) Daemon() bool {
	return s != nil && s.daemon
}

// OpenWithFallback prefers the daemon so its workers see changes at once.
// When dial is nil or fails, the store is opened directly; cfg then backs
// submissions and the retention sweep.
func OpenWithFallback(cfg *config.Config, dial Dialer, openStore StoreOpener) (*Session, error) {
	if dial != nil {
		if client, err := dial(); err == nil {
			return &Session{Access: NewIPCAccess(client), backing: client, daemon: true}, nil
		}
	}
	if openStore == nil {
		return nil, errors.New("open queue store: daemon unreachable and no store opener configured")
	}
	store, err := openStore()
	if err != nil {
		return nil, fmt.Errorf("open queue store: %w", err)
	}
	return &Session{Access: NewStoreAccess(store, cfg), backing: store}, nil
}
