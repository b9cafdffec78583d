package response

import (
	"encoding/json"
	"net/http"
)

// JSON writes data with the given status. The body is encoded before the
// header goes out, so an unencodable value becomes a bare 500 instead of a
// truncated success.
func JSON(w http.ResponseWriter, status int, data any) {
	body, err := json.Marshal(data)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}
