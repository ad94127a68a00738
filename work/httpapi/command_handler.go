package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"sgai-proxy/work/errors"
	"sgai-proxy/work/metrics"
	"sgai-proxy/work/model"
	"sgai-proxy/work/scheduler"
)

// HandleCommand serves GET/POST /command, creating a dynamic ad break
// from either a single in/dur/pod query triple or a CommandBatch JSON
// body (spec §3, §4.4). Rejected with 400 when the proxy is in static
// insertion mode.
func (s *Server) HandleCommand() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if model.InsertionMode(s.Config.InsertionMode) != model.InsertionDynamic {
			metrics.CommandsReceived.WithLabelValues("rejected_static_mode").Inc()
			writeError(w, errors.New("httpapi.HandleCommand", errors.KindBadRequest, nil))
			return
		}

		sch := s.schedulerFor(s.Config.ForwardURL)
		now := time.Now()
		if edge := s.LiveEdge.TrackerFor(s.Config.ForwardURL).Load(); edge != nil {
			now = edge.LiveEdgePDT
		}

		if r.Method == http.MethodPost && r.Header.Get("Content-Type") == "application/json" {
			s.handleCommandBatch(w, r, sch, now)
			return
		}
		s.handleSingleCommand(w, r, sch, now)
	}
}

func (s *Server) handleSingleCommand(w http.ResponseWriter, r *http.Request, sch *scheduler.Scheduler, now time.Time) {
	cmd, err := parseInsertionCommand(r.URL.Query())
	if err != nil {
		metrics.CommandsReceived.WithLabelValues("bad_request").Inc()
		writeError(w, errors.New("httpapi.HandleCommand", errors.KindBadRequest, err))
		return
	}

	b := sch.Insert(cmd, now)
	metrics.CommandsReceived.WithLabelValues("accepted").Inc()
	writeJSON(w, http.StatusOK, map[string]string{"id": b.ID})
}

func (s *Server) handleCommandBatch(w http.ResponseWriter, r *http.Request, sch *scheduler.Scheduler, now time.Time) {
	var batch model.CommandBatch
	if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
		metrics.CommandsReceived.WithLabelValues("bad_request").Inc()
		writeError(w, errors.New("httpapi.HandleCommand", errors.KindBadRequest, err))
		return
	}

	cmds := make([]model.InsertionCommand, 0, len(batch.Commands))
	for _, e := range batch.Commands {
		if err := validateCommand(e.InSeconds, time.Duration(e.DurationS*float64(time.Second)), e.PodCount); err != nil {
			metrics.CommandsReceived.WithLabelValues("bad_request").Inc()
			writeError(w, errors.New("httpapi.HandleCommand", errors.KindBadRequest, err))
			return
		}
		cmds = append(cmds, model.InsertionCommand{
			InSeconds: e.InSeconds,
			Duration:  time.Duration(e.DurationS * float64(time.Second)),
			PodCount:  e.PodCount,
		})
	}

	added := sch.InsertBatch(cmds, now)
	ids := make([]string, 0, len(added))
	for _, b := range added {
		ids = append(ids, b.ID)
	}
	metrics.CommandsReceived.WithLabelValues("accepted").Add(float64(len(added)))
	writeJSON(w, http.StatusOK, map[string][]string{"ids": ids})
}

func parseInsertionCommand(q map[string][]string) (model.InsertionCommand, error) {
	in, err := parseFloatParam(q, "in")
	if err != nil {
		return model.InsertionCommand{}, err
	}
	durSec, err := parseFloatParam(q, "dur")
	if err != nil {
		return model.InsertionCommand{}, err
	}
	pod, err := parseIntParam(q, "pod")
	if err != nil {
		return model.InsertionCommand{}, err
	}

	dur := time.Duration(durSec * float64(time.Second))
	if err := validateCommand(in, dur, pod); err != nil {
		return model.InsertionCommand{}, err
	}
	return model.InsertionCommand{InSeconds: in, Duration: dur, PodCount: pod}, nil
}

func validateCommand(in float64, dur time.Duration, pod int) error {
	if in < 0 {
		return errBadCommand("in must be >= 0")
	}
	if dur <= 0 {
		return errBadCommand("dur must be > 0")
	}
	if pod < 1 {
		return errBadCommand("pod must be >= 1")
	}
	return nil
}

type badCommandError string

func (e badCommandError) Error() string { return string(e) }

func errBadCommand(msg string) error { return badCommandError(msg) }

func parseFloatParam(q map[string][]string, key string) (float64, error) {
	vals, ok := q[key]
	if !ok || len(vals) == 0 {
		return 0, errBadCommand("missing " + key)
	}
	return strconv.ParseFloat(vals[0], 64)
}

func parseIntParam(q map[string][]string, key string) (int, error) {
	vals, ok := q[key]
	if !ok || len(vals) == 0 {
		return 0, errBadCommand("missing " + key)
	}
	return strconv.Atoi(vals[0])
}
