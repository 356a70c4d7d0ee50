// Package worker implements the render message protocol: a request carries
// raw JSON text, the reply carries the rendered markup, and every embedded
// JSON source produces an out-of-band load signal.
package worker

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"

	"github.com/mcncl/jsonview/internal/config"
	"github.com/mcncl/jsonview/internal/errors"
	"github.com/mcncl/jsonview/internal/parser"
	"github.com/mcncl/jsonview/internal/renderer"
)

// codec encodes and decodes protocol messages. Markup in replies is left
// unescaped.
var codec = jsoniter.Config{
	EscapeHTML:             false,
	ValidateJsonRawMessage: true,
}.Froze()

// Request asks for JSON text to be rendered.
type Request struct {
	JSON   string          `json:"json"`
	FnName string          `json:"fnName,omitempty"`
	DocID  json.RawMessage `json:"docId,omitempty"`
}

// Reply answers a Request. A successful reply has OnJSONToHTML and HTML set
// and echoes the request's DocID; a failed one only has Error set.
type Reply struct {
	OnJSONToHTML bool            `json:"onjsonToHTML,omitempty"`
	DocID        json.RawMessage `json:"docId,omitempty"`
	HTML         string          `json:"html,omitempty"`
	Error        bool            `json:"error,omitempty"`
}

// LoadSignal asks the host to fetch Src, render it and splice the markup
// into the element matching SrcID.
type LoadSignal struct {
	SrcID string `json:"srcId"`
	Src   string `json:"src"`
}

// errorReply is the only reply a failed request gets.
var errorReply = Reply{Error: true}

// Worker handles render requests. It keeps no state between requests.
type Worker struct {
	cfg      *config.Config
	log      logrus.FieldLogger
	renderer *renderer.Renderer
}

// New creates a Worker. Renderer options are applied after the config.
func New(cfg *config.Config, logger logrus.FieldLogger, opts ...renderer.Option) *Worker {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Worker{
		cfg:      cfg,
		log:      logger,
		renderer: renderer.New(append([]renderer.Option{renderer.WithConfig(cfg)}, opts...)...),
	}
}

// Handle renders one request. Malformed JSON yields the error reply and no
// signals.
func (w *Worker) Handle(req Request) (Reply, []LoadSignal) {
	v, err := parser.ParseString(req.JSON)
	if err != nil {
		w.log.WithError(err).Warn("rejecting request with malformed JSON")
		return errorReply, nil
	}

	res := w.renderer.Render(v, req.FnName)
	signals := make([]LoadSignal, 0, len(res.Loads))
	for _, load := range res.Loads {
		signals = append(signals, LoadSignal{SrcID: load.SrcID, Src: load.Src})
	}

	w.log.WithFields(logrus.Fields{
		"doc_id": string(req.DocID),
		"bytes":  len(req.JSON),
		"loads":  len(signals),
	}).Debug("rendered document")

	return Reply{OnJSONToHTML: true, DocID: req.DocID, HTML: res.HTML}, signals
}

// DecodeRequest decodes one request message.
func DecodeRequest(msg []byte) (Request, error) {
	var req Request
	if err := codec.Unmarshal(msg, &req); err != nil {
		return Request{}, errors.NewTransportError("failed to decode request", fmt.Errorf("%w: %v", errors.ErrInvalidRequest, err))
	}
	return req, nil
}

// HandleMessage decodes a raw request and handles it. A message that is not
// a Request yields the error reply.
func (w *Worker) HandleMessage(msg []byte) (Reply, []LoadSignal) {
	req, err := DecodeRequest(msg)
	if err != nil {
		w.log.WithError(err).Warn("rejecting undecodable request")
		return errorReply, nil
	}
	return w.Handle(req)
}

// Serve reads newline-delimited requests from r and writes the load signals
// of each request, followed by its reply, to out as newline-delimited JSON.
// Blank lines are skipped. A line longer than the configured message limit
// is discarded and answered with the error reply. Serve returns nil at end
// of input and ctx.Err() once ctx is done.
func (w *Worker) Serve(ctx context.Context, r io.Reader, out io.Writer) error {
	limit := w.cfg.Worker.MaxMessageBytes
	br := bufio.NewReaderSize(r, min(64*1024, limit))

	lines := make(chan message)
	// The reader goroutine always reports how it stopped before closing lines.
	done := make(chan error, 1)
	go func() {
		defer close(lines)
		for {
			line, tooLong, err := readLine(br, limit)
			if err == io.EOF {
				done <- nil
				return
			}
			if err != nil {
				done <- err
				return
			}
			select {
			case lines <- message{line: line, tooLong: tooLong}:
			case <-ctx.Done():
				done <- ctx.Err()
				return
			}
		}
	}()

	bw := bufio.NewWriter(out)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-lines:
			if !ok {
				if err := <-done; err != nil {
					return errors.NewTransportError("failed to read request", err)
				}
				return nil
			}

			var (
				reply   Reply
				signals []LoadSignal
			)
			switch {
			case msg.tooLong:
				w.log.WithField("limit", limit).Warn("rejecting oversized request")
				reply = errorReply
			case len(bytes.TrimSpace(msg.line)) == 0:
				continue
			default:
				reply, signals = w.HandleMessage(msg.line)
			}

			for _, sig := range signals {
				if err := writeMessage(bw, sig); err != nil {
					return err
				}
			}
			if err := writeMessage(bw, reply); err != nil {
				return err
			}
			if err := bw.Flush(); err != nil {
				return errors.NewTransportError("failed to write reply", err)
			}
		}
	}
}

// message is one input line, or the marker of a discarded oversized line.
type message struct {
	line    []byte
	tooLong bool
}

// readLine reads the next line without its terminator. Once a line exceeds
// limit bytes the rest of it is drained and tooLong is reported instead. A
// final line without a newline is returned before io.EOF.
func readLine(br *bufio.Reader, limit int) (line []byte, tooLong bool, err error) {
	for {
		chunk, rerr := br.ReadSlice('\n')
		if !tooLong {
			line = append(line, chunk...)
			if len(bytes.TrimRight(line, "\r\n")) > limit {
				line, tooLong = nil, true
			}
		}

		switch rerr {
		case nil:
			return bytes.TrimRight(line, "\r\n"), tooLong, nil
		case bufio.ErrBufferFull:
			continue
		case io.EOF:
			if len(line) == 0 && !tooLong {
				return nil, false, io.EOF
			}
			return bytes.TrimRight(line, "\r\n"), tooLong, nil
		default:
			return nil, false, rerr
		}
	}
}

func writeMessage(bw *bufio.Writer, msg any) error {
	data, err := codec.Marshal(msg)
	if err != nil {
		return errors.NewTransportError("failed to encode message", err)
	}
	data = append(data, '\n')
	if _, err := bw.Write(data); err != nil {
		return errors.NewTransportError("failed to write message", err)
	}
	return nil
}
