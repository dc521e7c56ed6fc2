package web

import (
	"bytes"
	"html/template"
	"net/http"
)

// handleInventoryEvents streams the inventory table as server-sent events.
// Every snapshot replacement re-renders the fragment in full and pushes it;
// the page swaps its table wholesale, mirroring the backing collection.
func (s *Server) handleInventoryEvents(w http.ResponseWriter, r *http.Request) {
	ch, cancel := s.inventoryFeed.Subscribe()
	defer cancel()

	s.streamEvents(w, r, func() ([]byte, error) {
		select {
		case <-r.Context().Done():
			return nil, nil
		case items, ok := <-ch:
			if !ok {
				return nil, nil
			}
			return s.renderPartialBytes("partials/inventory_table.html", s.inventoryTableData(items))
		}
	})
}

func (s *Server) handleContactEvents(w http.ResponseWriter, r *http.Request) {
	ch, cancel := s.contactFeed.Subscribe()
	defer cancel()

	s.streamEvents(w, r, func() ([]byte, error) {
		select {
		case <-r.Context().Done():
			return nil, nil
		case contacts, ok := <-ch:
			if !ok {
				return nil, nil
			}
			return s.renderPartialBytes("partials/contact_table.html", s.contactTableData(contacts))
		}
	})
}

// streamEvents writes an SSE stream where each event body is produced by
// next. A nil body without error ends the stream. next blocks until a new
// snapshot arrives, so the goroutine parks between deliveries.
func (s *Server) streamEvents(w http.ResponseWriter, r *http.Request, next func() ([]byte, error)) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, canFlush := w.(http.Flusher)

	for {
		body, err := next()
		if err != nil {
			s.logger.Error("render event fragment failed", "error", err)
			return
		}
		if body == nil {
			return
		}
		if r.Context().Err() != nil {
			return
		}
		if err := writeSSE(w, "update", body); err != nil {
			return
		}
		if canFlush {
			flusher.Flush()
		}
	}
}

// writeSSE frames body as a single SSE event. Multi-line fragments become
// one data: line each, per the SSE wire format.
func writeSSE(w http.ResponseWriter, event string, body []byte) error {
	if _, err := w.Write([]byte("event: " + event + "\n")); err != nil {
		return err
	}
	for _, line := range bytes.Split(body, []byte("\n")) {
		if _, err := w.Write([]byte("data: ")); err != nil {
			return err
		}
		if _, err := w.Write(line); err != nil {
			return err
		}
		if _, err := w.Write([]byte("\n")); err != nil {
			return err
		}
	}
	_, err := w.Write([]byte("\n"))
	return err
}

// renderPartialBytes renders a partial into memory for SSE framing.
func (s *Server) renderPartialBytes(file string, data any) ([]byte, error) {
	tmpl, err := template.New("").Funcs(s.tmplFuncs).ParseFS(s.templates, file)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := executePartial(&buf, tmpl, file, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
