package server

import (
	"net/http"

	"github.com/onnwee/tunequiz/chat"
)

// HandleChatStatus reports the bridge connection state. With the bridge
// disabled it reports disconnected rather than erroring, so the operator UI
// can always poll it.
func (h *Handlers) HandleChatStatus(w http.ResponseWriter, r *http.Request) {
	if h.bridge == nil {
		writeJSON(w, http.StatusOK, chat.Status{})
		return
	}
	writeJSON(w, http.StatusOK, h.bridge.Status())
}
