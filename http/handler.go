package http

import (
	"net/http"
	"strconv"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/multiversemmo/MultiversePlatform-sub002/geometry"
	"github.com/multiversemmo/MultiversePlatform-sub002/models"
	"github.com/multiversemmo/MultiversePlatform-sub002/quadtree"
	"github.com/segmentio/encoding/json"
)

func HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func HandleReadyCheck(readinessCheck func() bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !readinessCheck() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

func HandleVersion(version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(version))
	}
}

// HandleWithCORS allows cross origin GET requests to h.
func HandleWithCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		h.ServeHTTP(w, r)
	})
}

// HandleTreeDebugInfo writes the shape of the tree. Leaves are listed when
// the leaves query parameter is true.
func HandleTreeDebugInfo(tree *quadtree.QuadTree) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		withLeaves, _ := strconv.ParseBool(r.URL.Query().Get("leaves"))
		writeJSON(w, http.StatusOK, tree.DebugInfo(withLeaves))
	}
}

// HandleTreeInvariants checks the tree and responds with 500 when it is
// corrupted.
func HandleTreeInvariants(tree *quadtree.QuadTree) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := tree.CheckInvariants(); err != nil {
			writeJSON(w, http.StatusInternalServerError, struct {
				Error string `json:"error"`
			}{
				Error: err.Error(),
			})
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

// HandleWorldObjects lists the objects of the world. With x, z and radius
// query parameters, only the objects near that point are listed.
func HandleWorldObjects(world *models.World) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		if query.Get("radius") == "" {
			writeJSON(w, http.StatusOK, models.ObjectsToViews(world.Objects()))
			return
		}

		x, errX := strconv.Atoi(query.Get("x"))
		z, errZ := strconv.Atoi(query.Get("z"))
		radius, errRadius := strconv.Atoi(query.Get("radius"))
		if errX != nil || errZ != nil || errRadius != nil || radius < 0 {
			writeJSON(w, http.StatusBadRequest, struct {
				Error string `json:"error"`
			}{
				Error: "x, z and radius must be integers and radius can't be negative",
			})
			return
		}

		objects := world.ObjectsNear(geometry.NewPoint(x, 0, z), radius)
		writeJSON(w, http.StatusOK, models.ObjectsToViews(objects))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		logs.Warn(errors.New("encoding response failed").Wrap(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}
