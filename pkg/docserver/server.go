// Package docserver serves a docstore over a unix socket. Requests and
// responses are UBJSON-encoded Messages in length-prefixed frames; every
// session starts with a PeerInfo exchange.
package docserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"

	"github.com/eigerco/ubjson/pkg/docstore"
	"github.com/eigerco/ubjson/pkg/log"
	"github.com/eigerco/ubjson/pkg/serialization"
	"github.com/eigerco/ubjson/pkg/serialization/codec"
	"github.com/eigerco/ubjson/pkg/serialization/codec/ubjson"
)

type Server struct {
	socketPath string
	store      *docstore.Store
	serializer *serialization.Serializer
	info       PeerInfo

	mu       sync.Mutex
	listener net.Listener
	stopped  bool
	conns    map[net.Conn]struct{}
	wg       sync.WaitGroup
}

// NewServer creates a server for store. The decoder options apply to incoming
// messages.
func NewServer(socketPath string, store *docstore.Store, info PeerInfo, opts ...ubjson.DecoderOption) *Server {
	return &Server{
		socketPath: socketPath,
		store:      store,
		serializer: serialization.NewSerializer(codec.NewUBJSONCodec(opts...)),
		info:       info,
		conns:      make(map[net.Conn]struct{}),
	}
}

// Listen binds the unix socket, replacing a stale socket file.
func (s *Server) Listen() error {
	if _, err := os.Stat(s.socketPath); err == nil {
		_ = os.Remove(s.socketPath)
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to listen on unix socket: %w", err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()
	log.Server.Info().Str("socket", s.socketPath).Msg("listening")
	return nil
}

// Serve accepts connections until Stop is called.
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	listener := s.listener
	s.mu.Unlock()
	if listener == nil {
		return errors.New("server is not listening")
	}

	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				s.wg.Wait()
				return nil
			}
			return err
		}
		if !s.track(conn) {
			_ = conn.Close()
			continue
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.untrack(conn)
			s.handleConnection(ctx, conn)
		}()
	}
}

// Start listens and serves until Stop is called.
func (s *Server) Start(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve(ctx)
}

// Stop closes the listener and every open session.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	for conn := range s.conns {
		_ = conn.Close()
	}
	if s.listener == nil {
		return nil
	}
	return s.listener.Close()
}

// track registers a session, refusing it once Stop has run.
func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	s.conns[conn] = struct{}{}
	return true
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
}

func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	handshakeDone := false

	for {
		content, err := ReadFrame(ctx, conn)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				log.Server.Debug().Err(err).Msg("session closed")
			} else {
				log.Server.Warn().Err(err).Msg("error reading from connection")
			}
			return
		}

		var response *Message
		msg := &Message{}
		if err := s.serializer.Decode(content, msg); err != nil {
			response = NewMessage(Error(err.Error()))
		} else if info, ok := msg.Get().(PeerInfo); ok {
			handshakeDone = true
			log.Server.Info().Str("peer", info.Name).Str("version", info.Version.String()).Msg("handshake")
			response = NewMessage(s.info)
		} else if !handshakeDone {
			response = NewMessage(Error(ErrHandshake.Error()))
		} else {
			response, err = s.messageHandler(msg)
			if err != nil {
				log.Server.Debug().Err(err).Msg("request failed")
				response = NewMessage(Error(err.Error()))
			}
		}

		out, err := s.serializer.Encode(response)
		if err != nil {
			log.Server.Error().Err(err).Msg("error marshalling response")
			return
		}
		if err := WriteFrame(ctx, conn, out); err != nil {
			log.Server.Warn().Err(err).Msg("error writing response")
			return
		}
	}
}

// messageHandler runs one request against the store.
func (s *Server) messageHandler(msg *Message) (*Message, error) {
	switch choice := msg.Get().(type) {
	case Put:
		if err := s.store.Put(choice.Key, choice.Document); err != nil {
			return nil, err
		}
		return NewMessage(Ok{}), nil
	case Get:
		v, err := s.store.GetValue(string(choice))
		if err != nil {
			return nil, err
		}
		return NewMessage(Document{Key: string(choice), Value: v}), nil
	case Delete:
		if err := s.store.Delete(string(choice)); err != nil {
			return nil, err
		}
		return NewMessage(Ok{}), nil
	case List:
		keys, err := s.store.Keys(choice.Prefix)
		if err != nil {
			return nil, err
		}
		return NewMessage(Keys(keys)), nil
	case Copy:
		payload, err := s.store.GetRaw(choice.From)
		if err != nil {
			return nil, err
		}
		if err := s.store.PutRaw(choice.To, payload); err != nil {
			return nil, err
		}
		return NewMessage(Ok{}), nil
	}
	return nil, fmt.Errorf("%w: %T", ErrUnexpectedMessage, msg.Get())
}
