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
	"fmt"
	"net"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/feicong/system-properties/sysprop"
)

// Setter sends property mutations to the write daemon. The zero value is
// not usable; construct with NewSetter.
type Setter struct {
	socketPath string
	timeout    time.Duration
	log        *zap.Logger
}

// SetterOption configures a Setter.
type SetterOption func(*Setter)

// WithSocketPath overrides the daemon socket location.
func WithSocketPath(path string) SetterOption {
	return func(s *Setter) { s.socketPath = path }
}

// WithTimeout bounds each round trip to the daemon.
func WithTimeout(d time.Duration) SetterOption {
	return func(s *Setter) { s.timeout = d }
}

// WithLogger routes the setter's diagnostics through l.
func WithLogger(l *zap.Logger) SetterOption {
	return func(s *Setter) { s.log = l }
}

// NewSetter returns a client for the daemon socket.
func NewSetter(opts ...SetterOption) *Setter {
	s := &Setter{
		socketPath: DefaultSocketPath,
		timeout:    2 * time.Second,
		log:        zap.NewNop(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Set asks the daemon to create or update name. Long values are only
// accepted for read-only names, matching the store's Add policy.
func (s *Setter) Set(name, value string) error {
	if name == "" {
		return sysprop.ErrInvalidName
	}
	if len(value) >= sysprop.PropValueMax && !strings.HasPrefix(name, "ro.") {
		return sysprop.ErrInvalidValue
	}

	conn, err := net.DialTimeout("unix", s.socketPath, s.timeout)
	if err != nil {
		s.log.Warn("unable to reach property service",
			zap.String("name", name), zap.Error(err))
		return fmt.Errorf("propsvc: connect: %w", err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(s.timeout))

	if _, err := conn.Write(encodeSetProp2(name, value)); err != nil {
		s.log.Warn("unable to send property set request",
			zap.String("name", name), zap.Error(err))
		return fmt.Errorf("propsvc: send: %w", err)
	}

	status, err := readUint32(conn)
	if err != nil {
		s.log.Warn("unable to read property service reply",
			zap.String("name", name), zap.Error(err))
		return fmt.Errorf("propsvc: recv: %w", err)
	}
	if Status(status) != StatusSuccess {
		return fmt.Errorf("propsvc: set %q: %s", name, Status(status))
	}
	return nil
}
