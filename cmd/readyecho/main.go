// Command readyecho is a minimal TCP echo service built entirely on the
// netpoll core: one Poll, one Registry, a listener and every accepted
// connection registered as Source values, and a Waker used to interrupt
// the poll loop for a clean shutdown. It exists to exercise every module
// this repository builds, the way dynproxy's cmd/proxy.go exercises
// dynproxy's ad hoc poller.
package main

import (
	"flag"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.uber.org/atomic"

	"netpoll"
)

func main() {
	configPath := flag.String("c", "readyecho.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("readyecho: failed to load configuration")
	}
	initLog(cfg)

	poll, err := netpoll.New()
	if err != nil {
		log.Fatal().Err(err).Msg("readyecho: failed to create poll")
	}
	defer poll.Close()
	registry := poll.Registry()

	const wakeToken netpoll.Token = 0
	waker, err := netpoll.NewWaker(registry, wakeToken)
	if err != nil {
		log.Fatal().Err(err).Msg("readyecho: failed to create waker")
	}
	defer waker.Close()

	srv, err := newServer(registry, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("readyecho: failed to configure listeners")
	}

	running := atomic.NewBool(true)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info().Msg("readyecho: shutdown signal received")
		running.Store(false)
		if err := waker.Wake(); err != nil {
			log.Error().Err(err).Msg("readyecho: failed to wake poll loop for shutdown")
		}
	}()

	log.Info().Msg("readyecho: starting")
	events := netpoll.NewEvents(256)
	for running.Load() {
		if err := poll.Poll(events, nil); err != nil {
			log.Error().Err(err).Msg("readyecho: poll failed")
			continue
		}
		for i := 0; i < events.Len(); i++ {
			ev := events.Get(i)
			if ev.Token() == wakeToken {
				continue
			}
			srv.handle(ev)
		}
	}
	srv.close()
	log.Info().Msg("readyecho: stopped")
}

func initLog(cfg *Config) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	level, err := zerolog.ParseLevel(cfg.Global.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}

// server owns every listener and connection registered with a single
// Registry, dispatching readiness events by token the way the teacher's
// EventLoop dispatches by fd.
type server struct {
	registry  netpoll.Registry
	listeners map[netpoll.Token]*listenerState
	conns     map[netpoll.Token]*connState
	nextToken uint64
}

type listenerState struct {
	listener *netpoll.TCPListener
	cfg      ListenerConfig
	ocsp     *OCSPStapler
}

type connState struct {
	stream *netpoll.TCPStream
	buf    []byte
	pend   []byte
}

func newServer(registry netpoll.Registry, cfg *Config) (*server, error) {
	srv := &server{
		registry:  registry,
		listeners: make(map[netpoll.Token]*listenerState),
		conns:     make(map[netpoll.Token]*connState),
		nextToken: 1, // token 0 is reserved for the Waker
	}
	for _, lc := range cfg.Listeners {
		addr, err := net.ResolveTCPAddr("tcp", lc.Address)
		if err != nil {
			return nil, err
		}
		l, err := netpoll.ListenTCP(addr, lc.Backlog)
		if err != nil {
			return nil, err
		}
		tok := srv.allocToken()
		if err := registry.Register(l, tok, netpoll.Readable()); err != nil {
			return nil, err
		}
		var stapler *OCSPStapler
		if lc.OCSPStapleURL != "" {
			cache, err := NewOCSPCache(lc.OCSPCacheSize)
			if err != nil {
				return nil, err
			}
			stapler = NewOCSPStapler(lc.OCSPStapleURL, cache)
		}
		srv.listeners[tok] = &listenerState{listener: l, cfg: lc, ocsp: stapler}
		log.Info().Str("name", lc.Name).Str("address", lc.Address).Msg("readyecho: listening")
	}
	return srv, nil
}

func (s *server) allocToken() netpoll.Token {
	s.nextToken++
	return netpoll.Token(s.nextToken)
}

func (s *server) handle(ev netpoll.Event) {
	if ls, ok := s.listeners[ev.Token()]; ok {
		s.acceptLoop(ls)
		return
	}
	if cs, ok := s.conns[ev.Token()]; ok {
		s.serviceConn(ev.Token(), cs, ev)
	}
}

func (s *server) acceptLoop(ls *listenerState) {
	for {
		stream, _, err := ls.listener.Accept()
		if err == netpoll.ErrWouldBlock {
			return
		}
		if err != nil {
			log.Error().Err(err).Msg("readyecho: accept failed")
			return
		}
		_ = stream.SetNoDelay(true)
		tok := s.allocToken()
		if err := s.registry.Register(stream, tok, netpoll.Readable()); err != nil {
			log.Error().Err(err).Msg("readyecho: register accepted connection failed")
			_ = stream.Close()
			continue
		}
		size := ls.cfg.ReadBufferSize
		s.conns[tok] = &connState{stream: stream, buf: make([]byte, size)}
	}
}

func (s *server) serviceConn(tok netpoll.Token, cs *connState, ev netpoll.Event) {
	if ev.IsError() || ev.IsReadClosed() {
		s.closeConn(tok, cs)
		return
	}
	if ev.IsReadable() {
		for {
			n, err := cs.stream.Read(cs.buf)
			if err == netpoll.ErrWouldBlock {
				break
			}
			if err != nil || n == 0 {
				s.closeConn(tok, cs)
				return
			}
			cs.pend = append(cs.pend, cs.buf[:n]...)
		}
	}
	if len(cs.pend) > 0 {
		n, err := cs.stream.Write(cs.pend)
		if err != nil && err != netpoll.ErrWouldBlock {
			s.closeConn(tok, cs)
			return
		}
		cs.pend = cs.pend[n:]
		if len(cs.pend) > 0 {
			_ = s.registry.Reregister(cs.stream, tok, netpoll.Readable().Add(netpoll.Writable()))
			return
		}
	}
	_ = s.registry.Reregister(cs.stream, tok, netpoll.Readable())
}

func (s *server) closeConn(tok netpoll.Token, cs *connState) {
	_ = s.registry.Deregister(cs.stream)
	_ = cs.stream.Close()
	delete(s.conns, tok)
}

func (s *server) close() {
	for tok, cs := range s.conns {
		s.closeConn(tok, cs)
	}
	for _, ls := range s.listeners {
		_ = s.registry.Deregister(ls.listener)
		_ = ls.listener.Close()
	}
}
