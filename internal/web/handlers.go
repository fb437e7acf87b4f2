package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"github.com/yuewuo/AutoLock/internal/debug"
	"github.com/yuewuo/AutoLock/internal/lock"
)

// StepSizes is the step-count vocabulary offered by the API.
type StepSizes struct {
	Small     int
	Large     int
	MaxCustom int
}

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	Ctrl        *lock.Controller
	Broadcaster *StatusBroadcaster
	Steps       StepSizes
	staticFS    fs.FS
}

// NewHandlers creates handlers with the given dependencies.
func NewHandlers(ctrl *lock.Controller, broadcaster *StatusBroadcaster, steps StepSizes, staticFS fs.FS) *Handlers {
	return &Handlers{
		Ctrl:        ctrl,
		Broadcaster: broadcaster,
		Steps:       steps,
		staticFS:    staticFS,
	}
}

// writeJSON writes v as a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes {"error":"..."} with the given status.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// errorStatus maps controller errors onto HTTP statuses.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, lock.ErrSetupMode):
		return http.StatusConflict
	case errors.Is(err, lock.ErrDriver):
		return http.StatusBadGateway
	case errors.Is(err, lock.ErrStorage):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// broadcastState pushes the current controller snapshot to SSE clients.
func (h *Handlers) broadcastState(msg string) {
	if h.Broadcaster != nil {
		h.Broadcaster.BroadcastState(msg, h.Ctrl.Status())
	}
}

// ServeIndex serves the control page (root path only).
func (h *Handlers) ServeIndex(w http.ResponseWriter, r *http.Request) {
	data, err := fs.ReadFile(h.staticFS, "index.html")
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(data)
}

// HandleStatus returns the controller snapshot as JSON.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Ctrl.Status())
}

// stepRequest is the POST /step body.
type stepRequest struct {
	Direction string `json:"direction"` // "fwd" | "bwd"
	Size      string `json:"size"`      // "small" | "large" | "custom"
	Steps     int    `json:"steps"`     // only for size "custom"
}

// resolveSteps turns the request vocabulary into a concrete step
// count. Custom counts are clamped to [1, MaxCustom] so one request
// can never hold the motor (and the controller mutex) unbounded.
func (h *Handlers) resolveSteps(req stepRequest) (int, error) {
	switch req.Size {
	case "small":
		return h.Steps.Small, nil
	case "large":
		return h.Steps.Large, nil
	case "custom":
		steps := req.Steps
		if steps < 1 {
			steps = 1
		}
		if steps > h.Steps.MaxCustom {
			debug.Verbose("Clamping custom step request %d to %d", req.Steps, h.Steps.MaxCustom)
			steps = h.Steps.MaxCustom
		}
		return steps, nil
	default:
		return 0, fmt.Errorf("invalid size %q: use \"small\", \"large\" or \"custom\"", req.Size)
	}
}

// HandleStep handles POST /step: a relative move in setup positioning.
func (h *Handlers) HandleStep(w http.ResponseWriter, r *http.Request) {
	var req stepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Direction == "" || req.Size == "" {
		writeError(w, http.StatusBadRequest, "missing direction or size")
		return
	}

	steps, err := h.resolveSteps(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var pos int
	switch req.Direction {
	case "fwd":
		pos, err = h.Ctrl.StepForward(steps)
	case "bwd":
		pos, err = h.Ctrl.StepBackward(steps)
	default:
		writeError(w, http.StatusBadRequest, "invalid direction: use \"fwd\" or \"bwd\"")
		return
	}
	if err != nil {
		writeError(w, errorStatus(err), err.Error())
		return
	}

	h.broadcastState(fmt.Sprintf("stepped %s %d", req.Direction, steps))
	writeJSON(w, http.StatusOK, map[string]int{"position": pos})
}

// HandleSetCenter handles POST /set_center.
func (h *Handlers) HandleSetCenter(w http.ResponseWriter, r *http.Request) {
	pos := h.Ctrl.SetCenter()
	h.broadcastState("center set")
	writeJSON(w, http.StatusOK, map[string]int{"position": pos})
}

// HandleSetLock handles POST /set_lock. A storage failure still
// applies the value in memory, so the error response carries it too.
func (h *Handlers) HandleSetLock(w http.ResponseWriter, r *http.Request) {
	pos, err := h.Ctrl.SetLockPosition()
	if err != nil {
		writeJSON(w, errorStatus(err), map[string]any{"error": err.Error(), "lock_pos": pos})
		return
	}
	h.broadcastState("lock position set")
	writeJSON(w, http.StatusOK, map[string]int{"lock_pos": pos})
}

// HandleSetUnlock handles POST /set_unlock.
func (h *Handlers) HandleSetUnlock(w http.ResponseWriter, r *http.Request) {
	pos, err := h.Ctrl.SetUnlockPosition()
	if err != nil {
		writeJSON(w, errorStatus(err), map[string]any{"error": err.Error(), "unlock_pos": pos})
		return
	}
	h.broadcastState("unlock position set")
	writeJSON(w, http.StatusOK, map[string]int{"unlock_pos": pos})
}

// HandleLock handles POST /lock. The response reports the position at
// the lock point; the return-to-center runs afterwards in the background.
func (h *Handlers) HandleLock(w http.ResponseWriter, r *http.Request) {
	pos, err := h.Ctrl.Lock()
	if err != nil {
		writeError(w, errorStatus(err), err.Error())
		return
	}
	h.broadcastState("locked")
	writeJSON(w, http.StatusOK, map[string]int{"position": pos})
}

// HandleUnlock handles POST /unlock.
func (h *Handlers) HandleUnlock(w http.ResponseWriter, r *http.Request) {
	pos, err := h.Ctrl.Unlock()
	if err != nil {
		writeError(w, errorStatus(err), err.Error())
		return
	}
	h.broadcastState("unlocked")
	writeJSON(w, http.StatusOK, map[string]int{"position": pos})
}

// modeRequest is the POST /mode body.
type modeRequest struct {
	Mode string `json:"mode"` // "setup" | "normal"
}

// HandleMode handles POST /mode.
func (h *Handlers) HandleMode(w http.ResponseWriter, r *http.Request) {
	var req modeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Mode == "" {
		writeError(w, http.StatusBadRequest, "missing mode")
		return
	}
	if err := h.Ctrl.SetModeFromString(req.Mode); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.broadcastState("mode changed")
	writeJSON(w, http.StatusOK, map[string]string{"mode": req.Mode})
}

// HandleStatusStream handles GET /status/stream for SSE.
func (h *Handlers) HandleStatusStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // nginx

	ch, unsub := h.Broadcaster.Subscribe()
	defer unsub()

	// Send initial comment to establish connection
	w.Write([]byte(": connected\n\n"))
	flusher.Flush()

	// Heartbeat while idle
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			w.Write([]byte("data: " + msg + "\n\n"))
			flusher.Flush()

		case <-ticker.C:
			w.Write([]byte(": heartbeat\n\n"))
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}
