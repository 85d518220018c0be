package handlers

import "net/http"

// Health reports process liveness. It deliberately does not probe the EMR;
// a slow or flapping backend should not make the service look dead.
func Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
