package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"

	"github.com/gorilla/mux"

	"github.com/gershwin-desktop/gershwin-workspace-sub002/pkg/dsstore"
	"github.com/gershwin-desktop/gershwin-workspace-sub002/pkg/metadata"
)

// metadataResponse wraps the decoded model so the per-file map, which the
// model keeps private, serializes alongside the directory fields.
type metadataResponse struct {
	*metadata.DirectoryMetadata
	Icons map[string]*metadata.IconInfo `json:"Icons,omitempty"`
}

// RegisterMetadataHandlers registers GET /metadata?dir=<path>, returning
// the decoded DirectoryMetadata. Missing or damaged sidecars come back as
// Loaded=false rather than an error, matching the caller-facing contract.
func RegisterMetadataHandlers(r *mux.Router) {
	r.HandleFunc("/metadata", func(w http.ResponseWriter, req *http.Request) {
		dir := req.URL.Query().Get("dir")
		if dir == "" {
			http.Error(w, "missing dir param", http.StatusBadRequest)
			return
		}
		if st, err := os.Stat(dir); err != nil || !st.IsDir() {
			http.Error(w, "not a directory", http.StatusNotFound)
			return
		}
		m := metadata.Load(dir)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(metadataResponse{DirectoryMetadata: m, Icons: m.AllIconInfo()})
	}).Methods(http.MethodGet)
}

// recordView is one store record rendered for inspection.
type recordView struct {
	Filename string `json:"filename"`
	Code     string `json:"code"`
	Type     string `json:"type"`
	Value    string `json:"value"`
}

// RegisterRecordHandlers registers GET /records?file=<path>, returning the
// raw record listing of a container file in traversal order.
func RegisterRecordHandlers(r *mux.Router) {
	r.HandleFunc("/records", func(w http.ResponseWriter, req *http.Request) {
		file := req.URL.Query().Get("file")
		if file == "" {
			http.Error(w, "missing file param", http.StatusBadRequest)
			return
		}
		st, err := dsstore.Open(file)
		if err != nil {
			if errors.Is(err, dsstore.ErrNotFound) {
				http.Error(w, err.Error(), http.StatusNotFound)
				return
			}
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		views := make([]recordView, 0, st.Len())
		for _, rec := range st.Records() {
			views = append(views, recordView{
				Filename: rec.Filename,
				Code:     rec.Code,
				Type:     rec.Value.Kind.Tag(),
				Value:    rec.Value.String(),
			})
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(views)
	}).Methods(http.MethodGet)
}
