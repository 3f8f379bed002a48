// Package checkersvc exposes the heap-lifecycle checker as an HTTP/3
// service: POST a MIR module as JSON, receive back the diagnostics found
// across every function in it. Concurrent requests for the identical
// module body are deduped via singleflight so a burst of retries from a
// flaky client only runs the checker once.
package checkersvc

import (
	"context"
	"crypto/sha256"
	"crypto/tls"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	http3 "github.com/quic-go/quic-go/http3"
	"golang.org/x/sync/singleflight"

	"github.com/havenlang/havenchk/internal/build"
	"github.com/havenlang/havenchk/internal/diagnostics"
	"github.com/havenlang/havenchk/internal/heapcheck"
	"github.com/havenlang/havenchk/internal/mir"
	"github.com/havenlang/havenchk/internal/symexec"
)

// CheckResponse is the service's JSON response body.
type CheckResponse struct {
	Module      string                   `json:"module"`
	Diagnostics []diagnostics.Diagnostic `json:"diagnostics"`
}

// Server runs the checker over HTTP/3 and answers /check requests.
type Server struct {
	cfg  heapcheck.Config
	pc   net.PacketConn
	srv  *http3.Server
	errC chan error

	group  singleflight.Group
	bodies bodyPool
	cache  build.Cache
	addr   string
	closer func() error
}

// NewServer builds a Server bound to addr, checking modules under cfg.
// TLS 1.3 is enforced, matching the transport's minimum supported
// version.
func NewServer(addr string, cfg heapcheck.Config, tlsCfg *tls.Config) *Server {
	tlsCfg = ensureH3TLS(tlsCfg)

	s := &Server{cfg: cfg, addr: addr, errC: make(chan error, 1), cache: build.NewInMemoryLRUCache(512)}

	mux := http.NewServeMux()
	mux.HandleFunc("/check", s.handleCheck)
	mux.HandleFunc("/healthz", s.handleHealth)

	s.srv = &http3.Server{Addr: addr, TLSConfig: tlsCfg, Handler: mux}

	return s
}

func ensureH3TLS(tlsCfg *tls.Config) *tls.Config {
	if tlsCfg == nil {
		return &tls.Config{MinVersion: tls.VersionTLS13, NextProtos: []string{"h3"}}
	}

	if tlsCfg.MinVersion >= tls.VersionTLS13 && len(tlsCfg.NextProtos) > 0 {
		return tlsCfg
	}

	c := tlsCfg.Clone()
	c.MinVersion = tls.VersionTLS13

	if len(c.NextProtos) == 0 {
		c.NextProtos = []string{"h3"}
	}

	return c
}

// Start begins serving. If addr ends in ":0" the bound address is
// returned so the caller can discover the ephemeral port.
func (s *Server) Start() (string, error) {
	pc, err := net.ListenPacket("udp", s.addr)
	if err != nil {
		return "", fmt.Errorf("checkersvc: listen: %w", err)
	}

	s.pc = pc
	realAddr := pc.LocalAddr().String()
	done := make(chan struct{})

	go func() {
		if err := s.srv.Serve(pc); err != nil {
			select {
			case s.errC <- err:
			default:
			}
		}

		close(done)
	}()

	s.closer = func() error {
		_ = s.pc.Close()

		select {
		case <-done:
		case <-time.After(time.Second):
		}

		return nil
	}

	return realAddr, nil
}

// Stop closes the listening socket and waits for Serve to return.
func (s *Server) Stop() error {
	if s.closer == nil {
		return nil
	}

	return s.closer()
}

// Errors returns the channel that receives the first Serve error, if any.
func (s *Server) Errors() <-chan error { return s.errC }

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)

		return
	}

	body, err := s.bodies.ReadAll(r.Body, 64<<20)
	if err != nil {
		http.Error(w, "read body: "+err.Error(), http.StatusBadRequest)

		return
	}

	digest := sha256.Sum256(body)
	key := hex.EncodeToString(digest[:])

	resp, cached := s.lookupCached(key)

	if !cached {
		result, err, _ := s.group.Do(key, func() (interface{}, error) {
			return s.check(r.Context(), body)
		})
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)

			return
		}

		resp = result.(CheckResponse)
		s.storeCached(key, resp)
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// lookupCached answers a request straight from the result cache when an
// identical module body (by content digest) has already been checked,
// skipping the symbolic run entirely. Unlike the singleflight group,
// which only dedupes requests that are concurrently in flight, this
// also serves repeat requests that arrive long after the first.
func (s *Server) lookupCached(key string) (CheckResponse, bool) {
	artifact, ok, err := s.cache.Get(build.CacheKey(key))
	if err != nil || !ok {
		return CheckResponse{}, false
	}

	data, ok := artifact.Files["response.json"]
	if !ok {
		return CheckResponse{}, false
	}

	var resp CheckResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return CheckResponse{}, false
	}

	return resp, true
}

func (s *Server) storeCached(key string, resp CheckResponse) {
	data, err := json.Marshal(resp)
	if err != nil {
		return
	}

	_ = s.cache.Put(build.CacheKey(key), build.Artifact{Files: map[string][]byte{"response.json": data}})
}

// check runs every function in mod through its own checker instance
// concurrently via symexec.RunModuleGroup, so one slow function in a
// large module does not serialize behind the others within the same
// request.
func (s *Server) check(ctx context.Context, body []byte) (CheckResponse, error) {
	var mod mir.Module
	if err := json.Unmarshal(body, &mod); err != nil {
		return CheckResponse{}, fmt.Errorf("checkersvc: decode module: %w", err)
	}

	newEngine := func() *symexec.Engine {
		return symexec.NewEngine(heapcheck.NewChecker(s.cfg, &mod))
	}

	results, err := symexec.RunModuleGroup(ctx, &mod, newEngine)
	if err != nil {
		return CheckResponse{}, fmt.Errorf("checkersvc: check: %w", err)
	}

	var all []diagnostics.Diagnostic
	for _, r := range results {
		all = append(all, r.Findings...)
	}

	return CheckResponse{Module: mod.Name, Diagnostics: all}, nil
}
