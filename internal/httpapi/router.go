package httpapi

import "net/http"

// routeHandler and methodRouter are adapted from the teacher's
// internal/server/route_helpers.go generic dispatch-by-method helpers,
// moved here since this is the package that now owns all routing: the
// server package only mounts two system routes (health, shutdown) and has
// no CRUD surface of its own to justify keeping a routing helper file.
type routeHandler func(http.ResponseWriter, *http.Request)

type methodRouter map[string]routeHandler

func routeByMethod(w http.ResponseWriter, r *http.Request, routes methodRouter) {
	handler, ok := routes[r.Method]
	if !ok {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	handler(w, r)
}

// routeResourceCollection handles the GET-list / POST-create pattern used by
// /v1/jobs.
func routeResourceCollection(w http.ResponseWriter, r *http.Request, list, create routeHandler) {
	routeByMethod(w, r, methodRouter{
		http.MethodGet:  list,
		http.MethodPost: create,
	})
}

// routeResourceItem handles the GET / DELETE pattern used by /v1/jobs/{id}
// and /v1/jobs/{id}/bundle.
func routeResourceItem(w http.ResponseWriter, r *http.Request, get, delete routeHandler) {
	routes := methodRouter{http.MethodGet: get}
	if delete != nil {
		routes[http.MethodDelete] = delete
	}
	routeByMethod(w, r, routes)
}
