package server

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/lifegpc/libcodec2-MSVC/internal/audio"
	"github.com/lifegpc/libcodec2-MSVC/internal/interldpc"
	"github.com/lifegpc/libcodec2-MSVC/internal/ofdm"
	"github.com/lifegpc/libcodec2-MSVC/internal/protocol"
)

// ModemStatus is the JSON form of the demodulator estimates.
type ModemStatus struct {
	Sync           string  `json:"sync"`
	SNR3kDB        float64 `json:"snr3kDb"`
	ClockOffsetPPM float64 `json:"clockOffsetPpm"`
	FoffHz         float64 `json:"foffHz"`
	TimingMx       float64 `json:"timingMx"`
	Frames         int     `json:"frames"`
	Nin            int     `json:"nin"`
	PhaseBandwidth string  `json:"phaseBandwidth"`
}

// DecoderStatus is the JSON form of the interleaver and LDPC counters.
type DecoderStatus struct {
	Sync     string  `json:"sync"`
	Blocks   int     `json:"blocks"`
	RawBER   float64 `json:"rawBer"`
	CodedBER float64 `json:"codedBer"`
}

// Status is the snapshot served on /api/status and pushed to websocket
// clients.
type Status struct {
	Modem   ModemStatus              `json:"modem"`
	Decoder DecoderStatus            `json:"decoder"`
	Packets *protocol.AssemblerStats `json:"packets,omitempty"`
}

// NewStatus builds a snapshot from the modem and receiver state.
func NewStatus(st ofdm.Stats, sync ofdm.SyncState, c interldpc.Counters) Status {
	return Status{
		Modem: ModemStatus{
			Sync:           st.Sync.String(),
			SNR3kDB:        st.SNR3kDB,
			ClockOffsetPPM: st.ClockOffsetPPM,
			FoffHz:         st.FoffHz,
			TimingMx:       st.TimingMx,
			Frames:         st.Frames,
			Nin:            st.Nin,
			PhaseBandwidth: st.PhaseBandwidth.String(),
		},
		Decoder: DecoderStatus{
			Sync:     sync.String(),
			Blocks:   c.Blocks,
			RawBER:   c.RawBER(),
			CodedBER: c.CodedBER(),
		},
	}
}

// Handlers holds the HTTP API handlers and the latest status.
type Handlers struct {
	hub     *Hub
	log     *log.Logger
	devices func() ([]audio.DeviceInfo, error)

	mu     sync.RWMutex
	status Status
}

// NewHandlers creates handlers with an empty status. Devices are listed
// through audio.ListDevices.
func NewHandlers(l *log.Logger) *Handlers {
	if l == nil {
		l = log.Default()
	}
	return &Handlers{
		hub:     NewHub(l),
		log:     l,
		devices: audio.ListDevices,
	}
}

// Hub returns the websocket hub.
func (h *Handlers) Hub() *Hub { return h.hub }

// SetDeviceLister replaces the audio device lister.
func (h *Handlers) SetDeviceLister(f func() ([]audio.DeviceInfo, error)) { h.devices = f }

// Update stores s and pushes it to the websocket clients.
func (h *Handlers) Update(s Status) {
	h.mu.Lock()
	h.status = s
	h.mu.Unlock()
	h.hub.Broadcast(Message{Type: "stats", Payload: s})
}

// Status returns the latest snapshot.
func (h *Handlers) Status() Status {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.status
}

// HandleWebSocket upgrades the request, sends the current status and
// keeps the client registered until it disconnects.
func (h *Handlers) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade", "err", err)
		return
	}

	h.hub.Add(conn)
	if err := h.hub.Send(conn, Message{Type: "stats", Payload: h.Status()}); err != nil {
		return
	}

	go func() {
		defer h.hub.Remove(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// HandleStatus returns the latest status.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, h.Status())
}

// HandleDevices lists the audio devices.
func (h *Handlers) HandleDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := h.devices()
	if err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		writeJSON(w, map[string]any{
			"status":  "error",
			"message": err.Error(),
		})
		return
	}
	writeJSON(w, map[string]any{
		"status":  "ok",
		"devices": devices,
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
