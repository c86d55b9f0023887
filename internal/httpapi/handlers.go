package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/DoyleJ11/tier-auction/internal/auth"
	"github.com/DoyleJ11/tier-auction/internal/lobby"
)

type authResponse struct {
	Success bool          `json:"success"`
	Who     auth.Identity `json:"who"`
}

// Authenticate resolves the "key" form value. Unknown keys still succeed as
// viewers so spectators can use the same flow.
func Authenticate(resolver *auth.Resolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		who := resolver.Resolve(r.FormValue("key"))
		writeJSON(w, http.StatusOK, authResponse{Success: true, Who: who})
	}
}

func State(lb *lobby.Lobby) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reply := make(chan lobby.View, 1)
		if !lb.Send(r.Context(), lobby.GetState{Reply: reply}) {
			http.Error(w, "auction unavailable", http.StatusServiceUnavailable)
			return
		}
		select {
		case v := <-reply:
			writeJSON(w, http.StatusOK, struct {
				Version    int `json:"version"`
				NumClients int `json:"num_clients"`
				State      any `json:"state"`
			}{v.Version, v.NumClients, v.State})
		case <-r.Context().Done():
		}
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
