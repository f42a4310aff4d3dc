package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/ccollicutt/chatclean/pkg/output"
	"github.com/ccollicutt/chatclean/pkg/parser"
)

// handleCleanChat parses an uploaded transcript and returns the report.
func (s *Server) handleCleanChat(ctx *fasthttp.RequestCtx) {
	remote := ctx.RemoteIP().String()

	if !s.limiter.Allow(remote) {
		s.metrics.observeUpload(resultRateLimited)
		writeJSONError(ctx, fasthttp.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	fh, err := ctx.FormFile(UploadField)
	if err != nil {
		s.metrics.observeUpload(resultBadRequest)
		writeJSONError(ctx, fasthttp.StatusBadRequest,
			fmt.Sprintf("multipart form field %q is required", UploadField))
		return
	}

	f, err := fh.Open()
	if err != nil {
		s.metrics.observeUpload(resultError)
		s.log.Error("opening upload", "remote", remote, "error", err)
		writeJSONError(ctx, fasthttp.StatusInternalServerError, "could not read upload")
		return
	}
	defer f.Close()

	start := time.Now()
	msgs, stats, err := s.parser.ParseReader(ctx, f)
	elapsed := time.Since(start)
	if err != nil {
		if errors.Is(err, parser.ErrInvalidUTF8) {
			s.metrics.observeUpload(resultBadRequest)
			writeJSONError(ctx, fasthttp.StatusBadRequest, "uploaded file is not valid UTF-8 text")
			return
		}
		s.metrics.observeUpload(resultError)
		s.log.Error("parsing upload", "remote", remote, "file", fh.Filename, "error", err)
		writeJSONError(ctx, fasthttp.StatusInternalServerError, "could not parse upload")
		return
	}
	s.metrics.observeParse(elapsed.Seconds(), stats)

	report := output.NewReport(msgs)
	report.Metadata = output.Metadata{
		Sources:  []string{fh.Filename},
		ParsedAt: time.Now(),
		Duration: elapsed,
		Stats:    stats,
	}

	if s.cfg.Output.PersistTempFile {
		path, err := output.WriteTempFile(s.cfg.Output.TempDir, report)
		if err != nil {
			s.metrics.observeUpload(resultError)
			s.log.Error("persisting transcript", "remote", remote, "error", err)
			writeJSONError(ctx, fasthttp.StatusInternalServerError, "could not persist transcript")
			return
		}
		s.log.Debug("transcript persisted", "path", path)
	}

	s.metrics.observeUpload(resultSuccess)
	s.log.Info("transcript cleaned",
		"remote", remote,
		"file", fh.Filename,
		"messages", report.MessagesCleaned,
		"lines", stats.Lines,
		"duration", elapsed)

	s.dispatchWebhooks(report)
	writeJSON(ctx, fasthttp.StatusOK, report)
}

// dispatchWebhooks delivers the report in the background. Serve waits for
// pending deliveries before returning.
func (s *Server) dispatchWebhooks(report *output.Report) {
	if len(s.cfg.Webhooks) == 0 {
		return
	}
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		s.hooks.Dispatch(context.Background(), s.cfg.Webhooks, report)
	}()
}
