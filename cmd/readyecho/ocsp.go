package main

import (
	"bytes"
	"crypto"
	"crypto/x509"
	"fmt"
	"io"
	"net"
	"net/url"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/ocsp"

	"netpoll"
)

const ocspMime = "application/ocsp-request"

// OCSPCache caches OCSP responses by certificate serial number, the role
// dynproxy's Config.FrontendConfig.OcspCacheEnabled implies but the teacher
// never actually wired to a cache implementation. Ristretto sizes itself
// off a max-cost budget rather than an entry count, so cacheSize is
// interpreted as an approximate byte budget for cached DER responses.
type OCSPCache struct {
	cache *ristretto.Cache
}

func NewOCSPCache(cacheSize int64) (*OCSPCache, error) {
	if cacheSize <= 0 {
		cacheSize = 1 << 20 // 1 MiB of stapled responses is generous for a demo service
	}
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: cacheSize / 100 * 10,
		MaxCost:     cacheSize,
		BufferItems: 64,
	})
	if err != nil {
		return nil, errors.Wrap(err, "readyecho: new OCSP cache")
	}
	return &OCSPCache{cache: c}, nil
}

func (c *OCSPCache) Get(serial string) ([]byte, bool) {
	v, ok := c.cache.Get(serial)
	if !ok {
		return nil, false
	}
	return v.([]byte), true
}

func (c *OCSPCache) Put(serial string, response []byte, ttl time.Duration) {
	c.cache.SetWithTTL(serial, response, int64(len(response)), ttl)
}

// OCSPStapler produces a stapled OCSP response for cert/issuer, adapting
// dynproxy's ocsp.go: OcspVerify's request/parse shape is unchanged, but
// sendOcspRequest's blocking http.Post is replaced with a request driven
// over the core's own Poll/Registry — the responder connection is just
// another netpoll.TCPStream, observed the same way any other socket in
// this module is.
type OCSPStapler struct {
	responderURL string
	cache        *OCSPCache
}

func NewOCSPStapler(responderURL string, cache *OCSPCache) *OCSPStapler {
	return &OCSPStapler{responderURL: responderURL, cache: cache}
}

func (s *OCSPStapler) Staple(cert, issuer *x509.Certificate) ([]byte, error) {
	serial := cert.SerialNumber.String()
	if cached, ok := s.cache.Get(serial); ok {
		log.Debug().Str("serial", serial).Msg("readyecho: OCSP cache hit")
		return cached, nil
	}

	req, err := ocsp.CreateRequest(cert, issuer, &ocsp.RequestOptions{Hash: crypto.SHA256})
	if err != nil {
		return nil, errors.Wrap(err, "readyecho: create OCSP request")
	}
	raw, err := s.fetchOverCore(req)
	if err != nil {
		return nil, err
	}
	parsed, err := ocsp.ParseResponse(raw, issuer)
	if err != nil {
		return nil, errors.Wrap(err, "readyecho: parse OCSP response")
	}

	ttl := time.Until(parsed.NextUpdate)
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	s.cache.Put(serial, raw, ttl)
	return raw, nil
}

// fetchOverCore drives one HTTP/1.1 POST to the OCSP responder entirely
// through this module's own Poll, rather than net/http, so the demo
// service's one blocking network round trip is itself an exercise of the
// core readiness engine instead of a bypass of it.
func (s *OCSPStapler) fetchOverCore(body []byte) ([]byte, error) {
	u, err := url.Parse(s.responderURL)
	if err != nil {
		return nil, errors.Wrap(err, "readyecho: parse OCSP responder URL")
	}
	host := u.Hostname()
	port := u.Port()
	if port == "" {
		port = "80"
	}
	ips, err := net.LookupIP(host)
	if err != nil || len(ips) == 0 {
		return nil, errors.Wrap(err, "readyecho: resolve OCSP responder")
	}

	poll, err := netpoll.New()
	if err != nil {
		return nil, err
	}
	defer poll.Close()
	registry := poll.Registry()

	tcpAddr := &net.TCPAddr{IP: ips[0], Port: mustAtoi(port)}
	stream, err := netpoll.ConnectTCP(tcpAddr)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	const streamToken netpoll.Token = 1
	if err := registry.Register(stream, streamToken, netpoll.Writable()); err != nil {
		return nil, err
	}

	events := netpoll.NewEvents(4)
	timeout := 5 * time.Second

	// Wait for the connect to complete (writable), then send the request.
	if err := poll.Poll(events, &timeout); err != nil {
		return nil, err
	}

	reqLine := fmt.Sprintf("POST %s HTTP/1.1\r\nHost: %s\r\nContent-Type: %s\r\nContent-Length: %d\r\nConnection: close\r\n\r\n",
		u.RequestURI(), host, ocspMime, len(body))
	if err := writeAllOverCore(stream, poll, registry, streamToken, []byte(reqLine)); err != nil {
		return nil, err
	}
	if err := writeAllOverCore(stream, poll, registry, streamToken, body); err != nil {
		return nil, err
	}

	if err := registry.Reregister(stream, streamToken, netpoll.Readable()); err != nil {
		return nil, err
	}
	raw, err := readAllOverCore(stream, poll, events, streamToken)
	if err != nil {
		return nil, err
	}
	return splitHTTPBody(raw)
}

func writeAllOverCore(stream *netpoll.TCPStream, poll *netpoll.Poll, registry netpoll.Registry, token netpoll.Token, p []byte) error {
	for len(p) > 0 {
		n, err := stream.Write(p)
		if err == netpoll.ErrWouldBlock {
			timeout := 5 * time.Second
			events := netpoll.NewEvents(1)
			if err := poll.Poll(events, &timeout); err != nil {
				return err
			}
			continue
		}
		if err != nil {
			return err
		}
		p = p[n:]
	}
	return nil
}

func readAllOverCore(stream *netpoll.TCPStream, poll *netpoll.Poll, events *netpoll.Events, token netpoll.Token) ([]byte, error) {
	var buf bytes.Buffer
	tmp := make([]byte, 4096)
	timeout := 5 * time.Second
	for {
		n, err := stream.Read(tmp)
		if err == netpoll.ErrWouldBlock {
			if err := poll.Poll(events, &timeout); err != nil {
				return nil, err
			}
			continue
		}
		if err == io.EOF || n == 0 {
			break
		}
		if err != nil {
			return nil, err
		}
		buf.Write(tmp[:n])
	}
	return buf.Bytes(), nil
}

func splitHTTPBody(raw []byte) ([]byte, error) {
	idx := bytes.Index(raw, []byte("\r\n\r\n"))
	if idx < 0 {
		return nil, errors.New("readyecho: malformed OCSP HTTP response")
	}
	return raw[idx+4:], nil
}

func mustAtoi(s string) int {
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return 80
		}
		n = n*10 + int(c-'0')
	}
	return n
}
