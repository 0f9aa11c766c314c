package routing

import (
	"net/http"
	"runtime/debug"
)

// Router dispatches on exact path and method. Every path carries one route
// class, fixed at first registration; errors for unknown paths fall back to
// the classifier so 404s still get a sensible envelope.
type Router struct {
	classifier *Classifier
	paths      map[string]*pathRoutes
}

type pathRoutes struct {
	rc      RouteClass
	methods map[string]http.Handler
}

func NewRouter(classifier *Classifier) *Router {
	return &Router{
		classifier: classifier,
		paths:      make(map[string]*pathRoutes),
	}
}

// Handle registers a handler, wrapped with a panic guard so a crashing
// handler still answers with the standard envelope.
func (r *Router) Handle(rc RouteClass, method string, path string, h http.Handler) {
	pr := r.paths[path]
	if pr == nil {
		pr = &pathRoutes{rc: rc, methods: make(map[string]http.Handler)}
		r.paths[path] = pr
	}
	pr.methods[method] = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				_ = debug.Stack()
				WriteError(w, req, rc, http.StatusInternalServerError, "internal_error", "internal error")
			}
		}()
		h.ServeHTTP(w, req)
	})
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	pr, ok := r.paths[req.URL.Path]
	if !ok {
		WriteError(w, req, r.classifier.Classify(req.URL.Path), http.StatusNotFound, "not_found", "not found")
		return
	}
	h, ok := pr.methods[req.Method]
	if !ok {
		WriteError(w, req, pr.rc, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	h.ServeHTTP(w, req)
}
