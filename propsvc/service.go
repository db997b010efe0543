/*
 * Copyright 2025 The system-properties Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package propsvc

import (
	"errors"
	"net"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/feicong/system-properties/sysprop"
)

// ControlFunc handles names in the reserved control namespace, which are an
// IPC mechanism rather than stored properties.
type ControlFunc func(name, value string) error

// Service is the privileged write daemon: it owns the single writer-mode
// store and applies mutation requests received over a unix socket.
type Service struct {
	store   *sysprop.SystemProperties
	control ControlFunc
	log     *zap.Logger

	mu sync.Mutex // serializes mutations: one concurrent mutator per area

	closeOnce sync.Once
	closed    chan struct{}
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithControlHandler installs a handler for control-namespace requests.
// Without one, such requests are rejected.
func WithControlHandler(fn ControlFunc) ServiceOption {
	return func(s *Service) { s.control = fn }
}

// WithServiceLogger routes the daemon's diagnostics through l.
func WithServiceLogger(l *zap.Logger) ServiceOption {
	return func(s *Service) { s.log = l }
}

// NewService wraps a store that was initialized with AreaInit.
func NewService(store *sysprop.SystemProperties, opts ...ServiceOption) *Service {
	s := &Service{
		store:  store,
		log:    zap.NewNop(),
		closed: make(chan struct{}),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Serve accepts connections on l until Accept fails. It returns nil when the
// failure follows Close or comes from a closed listener, and the Accept error
// otherwise. Each connection carries one request and one status reply.
func (s *Service) Serve(l net.Listener) error {
	for {
		conn, err := l.Accept()
		if err != nil {
			select {
			case <-s.closed:
				return nil
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		go s.handleConn(conn)
	}
}

// Close marks the service closed so that Serve returns nil once Accept
// fails. It does not close the listener and does not wait for in-flight
// requests.
func (s *Service) Close() {
	s.closeOnce.Do(func() { close(s.closed) })
}

func (s *Service) handleConn(conn net.Conn) {
	defer conn.Close()

	cmd, err := readUint32(conn)
	if err != nil {
		writeUint32(conn, uint32(StatusErrorReadCmd))
		return
	}
	if cmd != CmdSetProp2 {
		s.log.Warn("rejecting unknown property service command", zap.Uint32("cmd", cmd))
		writeUint32(conn, uint32(StatusErrorInvalidCmd))
		return
	}

	name, err := readString(conn)
	if err != nil {
		writeUint32(conn, uint32(StatusErrorReadData))
		return
	}
	value, err := readString(conn)
	if err != nil {
		writeUint32(conn, uint32(StatusErrorReadData))
		return
	}

	writeUint32(conn, uint32(s.apply(name, value)))
}

// apply validates and performs one mutation.
func (s *Service) apply(name, value string) Status {
	if name == "" || strings.HasPrefix(name, ".") || strings.Contains(name, "..") ||
		strings.HasSuffix(name, ".") {
		return StatusErrorInvalidName
	}
	isRO := strings.HasPrefix(name, "ro.")
	if len(value) >= sysprop.PropValueMax && !isRO {
		return StatusErrorInvalidValue
	}

	if strings.HasPrefix(name, sysprop.ReservedNamespace) {
		if s.control == nil {
			return StatusErrorHandleControl
		}
		if err := s.control(name, value); err != nil {
			return StatusErrorHandleControl
		}
		return StatusSuccess
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if pi, err := s.store.Find(name); err == nil {
		if isRO {
			return StatusErrorReadOnly
		}
		if err := s.store.Update(pi, value); err != nil {
			s.log.Error("property update failed",
				zap.String("name", name), zap.Error(err))
			return StatusErrorSetFailed
		}
		return StatusSuccess
	} else if errors.Is(err, sysprop.ErrAccessDenied) {
		return StatusErrorPermission
	}

	if err := s.store.Add(name, value); err != nil {
		s.log.Error("property add failed",
			zap.String("name", name), zap.Error(err))
		switch {
		case errors.Is(err, sysprop.ErrAccessDenied):
			return StatusErrorPermission
		case errors.Is(err, sysprop.ErrInvalidValue):
			return StatusErrorInvalidValue
		case errors.Is(err, sysprop.ErrInvalidName):
			return StatusErrorInvalidName
		default:
			return StatusErrorSetFailed
		}
	}
	return StatusSuccess
}
