package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/khanhnv2901/secakit/internal/domain/history"
	"github.com/khanhnv2901/secakit/internal/filescan"
	consts "github.com/khanhnv2901/secakit/internal/shared/constants"
)

// multipart framing allowance on top of the file cap
const uploadOverheadBytes = 1 << 20

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/api/" {
		s.writeError(w, r, http.StatusNotFound, errors.New("not found"))
		return
	}
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, r, http.MethodGet)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": apiMessage, "status": "running"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if err := s.cfg.Service.Healthy(r.Context()); err != nil {
		s.writeError(w, r, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSystemInfo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, r, http.MethodGet)
		return
	}
	info, err := s.cfg.Service.SystemInfo(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleScanPorts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if err := parseForm(w, r); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	form := portScanForm{Target: formString(r, "target"), Ports: formString(r, "ports")}
	if err := validateForm(form); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	result, err := s.cfg.Service.ScanPorts(r.Context(), form.Target, form.Ports)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if err := parseForm(w, r); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	form := hostForm{Target: formString(r, "target")}
	if err := validateForm(form); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	count, err := formInt(r.FormValue("count"), "count", consts.DefaultPingCount, consts.MinPingCount, consts.MaxPingCount)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	result, err := s.cfg.Service.Ping(r.Context(), form.Target, count)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleTraceroute(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if err := parseForm(w, r); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	form := hostForm{Target: formString(r, "target")}
	if err := validateForm(form); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	maxHops, err := formInt(r.FormValue("max_hops"), "max_hops", consts.MaxHops, 1, consts.MaxHops)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	result, err := s.cfg.Service.Traceroute(r.Context(), form.Target, maxHops)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleScanFile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if !isMultipart(r) {
		s.writeServiceError(w, r, &ValidationError{Field: "file", Reason: "multipart/form-data upload required"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+uploadOverheadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeServiceError(w, r, err)
			return
		}
		s.writeServiceError(w, r, &ValidationError{Field: "file", Reason: "required"})
		return
	}
	defer file.Close()

	data, err := filescan.ReadLimited(file, s.cfg.MaxUploadBytes)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	result, err := s.cfg.Service.ScanFile(r.Context(), data, header.Filename)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleCheckWebsite(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if err := parseForm(w, r); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	form := websiteForm{URL: formString(r, "url")}
	if err := validateForm(form); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	result, err := s.cfg.Service.CheckWebsite(r.Context(), form.URL)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// historyHandler lists stored results of kind, newest first.
func (s *Server) historyHandler(kind history.Kind) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			s.methodNotAllowed(w, r, http.MethodGet)
			return
		}
		limit, err := formInt(r.URL.Query().Get("limit"), "limit", s.cfg.PageSize, 1, s.cfg.PageSize)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}

		recs, err := s.cfg.Service.History(r.Context(), kind, limit)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		payloads := make([]json.RawMessage, 0, len(recs))
		for _, rec := range recs {
			payloads = append(payloads, rec.Payload)
		}
		writeJSON(w, http.StatusOK, payloads)
	})
}
