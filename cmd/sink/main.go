// A local collector for trying the http destination without real
// infrastructure. It implements the stream protocol the http facade
// speaks: GET probes a stream, POST creates or appends, and every
// response carries the sequence cursor.
//
//	go run ./cmd/sink -addr :3100
//	go run ./cmd/simple
package main

import (
	"bufio"
	"bytes"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/valyala/fasthttp"
)

const sequenceHeader = "X-Relay-Sequence"

type stream struct {
	sequence uint64
	lines    uint64
}

type sink struct {
	mu      sync.Mutex
	streams map[string]*stream
	verbose bool
}

func main() {
	addr := flag.String("addr", ":3100", "listen address")
	verbose := flag.Bool("verbose", false, "print every received line")
	flag.Parse()

	s := &sink{
		streams: make(map[string]*stream),
		verbose: *verbose,
	}

	fmt.Printf("--- Stream Sink ---\n")
	fmt.Printf("Listening on %s\n", *addr)

	if err := fasthttp.ListenAndServe(*addr, s.handle); err != nil {
		fmt.Fprintf(os.Stderr, "Server failed: %v\n", err)
		os.Exit(1)
	}
}

func (s *sink) handle(ctx *fasthttp.RequestCtx) {
	path := string(ctx.Path())
	name, ok := strings.CutPrefix(path, "/streams/")
	if !ok || name == "" {
		ctx.SetStatusCode(fasthttp.StatusNotFound)
		return
	}

	switch string(ctx.Method()) {
	case fasthttp.MethodGet:
		s.probe(ctx, name)
	case fasthttp.MethodPost:
		if ctx.Request.Header.ContentLength() > 0 {
			s.append(ctx, name)
		} else {
			s.create(ctx, name)
		}
	default:
		ctx.SetStatusCode(fasthttp.StatusMethodNotAllowed)
	}
}

func (s *sink) probe(ctx *fasthttp.RequestCtx, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.streams[name]
	if !ok {
		ctx.SetStatusCode(fasthttp.StatusNotFound)
		return
	}
	s.respond(ctx, fasthttp.StatusOK, st)
}

func (s *sink) create(ctx *fasthttp.RequestCtx, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if st, ok := s.streams[name]; ok {
		s.respond(ctx, fasthttp.StatusConflict, st)
		return
	}
	st := &stream{}
	s.streams[name] = st
	fmt.Printf("Created stream %q\n", name)
	s.respond(ctx, fasthttp.StatusCreated, st)
}

func (s *sink) append(ctx *fasthttp.RequestCtx, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.streams[name]
	if !ok {
		ctx.SetStatusCode(fasthttp.StatusNotFound)
		return
	}

	// An append carrying a stale cursor means another writer advanced the
	// stream since the sender last looked
	if sent := string(ctx.Request.Header.Peek(sequenceHeader)); sent != "" {
		if sent != strconv.FormatUint(st.sequence, 10) {
			s.respond(ctx, fasthttp.StatusConflict, st)
			return
		}
	}

	count := 0
	scanner := bufio.NewScanner(bytes.NewReader(ctx.PostBody()))
	for scanner.Scan() {
		if s.verbose {
			fmt.Printf("[%s] %s\n", name, scanner.Text())
		}
		count++
	}

	st.lines += uint64(count)
	st.sequence++
	fmt.Printf("Stream %q: +%d lines (total %d, seq %d)\n", name, count, st.lines, st.sequence)
	s.respond(ctx, fasthttp.StatusOK, st)
}

func (s *sink) respond(ctx *fasthttp.RequestCtx, status int, st *stream) {
	ctx.Response.Header.Set(sequenceHeader, strconv.FormatUint(st.sequence, 10))
	ctx.SetStatusCode(status)
}
